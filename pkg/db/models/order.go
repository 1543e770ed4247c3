package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/pkg/enums"
	"github.com/lumashop/storefront-backend/pkg/types"
)

// Order is the aggregate root for a placed order. Monetary fields are frozen
// at creation; status fields change only through the state machine.
type Order struct {
	ID             uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderNumber    int64                   `gorm:"column:order_number;not null"`
	Subtotal       decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountAmount decimal.Decimal         `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	ShippingFee    decimal.Decimal         `gorm:"column:shipping_fee;type:numeric(12,2);not null;default:0"`
	TotalAmount    decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	AppliedOffer   *types.OfferApplication `gorm:"column:applied_offer;type:jsonb;serializer:json"`
	AppliedPromo   *types.OfferApplication `gorm:"column:applied_promo;type:jsonb;serializer:json"`
	OrderStatus    enums.OrderStatus       `gorm:"column:order_status;type:order_status;not null;default:'pending'"`
	PaymentStatus  enums.PaymentStatus     `gorm:"column:payment_status;type:payment_status;not null;default:'pending'"`
	PaymentMethod  enums.PaymentMethod     `gorm:"column:payment_method;type:payment_method;not null"`
	// StatusChangedAt is the timestamp of the most recent status transition;
	// the sweep measures elapsed time against it.
	StatusChangedAt time.Time               `gorm:"column:status_changed_at;not null"`
	Version         int64                   `gorm:"column:version;not null;default:1"`
	Items           []OrderLineItem         `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	Transitions     []OrderStatusTransition `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt       time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt       time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

// IsTerminal reports whether the joint status pair accepts no further transitions.
func (o Order) IsTerminal() bool {
	switch {
	case o.OrderStatus == enums.OrderStatusCancelled && o.PaymentStatus == enums.PaymentStatusRefunded:
		return true
	case o.OrderStatus == enums.OrderStatusCancelled && o.PaymentStatus == enums.PaymentStatusFailed:
		return true
	case o.OrderStatus == enums.OrderStatusDelivered && o.PaymentStatus == enums.PaymentStatusCompleted:
		return true
	default:
		return false
	}
}
