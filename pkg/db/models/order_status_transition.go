package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/lumashop/storefront-backend/pkg/enums"
)

// OrderStatusTransition is one row of the append-only status history.
// Rows are never updated or deleted.
type OrderStatusTransition struct {
	ID                uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID           uuid.UUID             `gorm:"column:order_id;type:uuid;not null"`
	FromOrderStatus   enums.OrderStatus     `gorm:"column:from_order_status;type:order_status;not null"`
	ToOrderStatus     enums.OrderStatus     `gorm:"column:to_order_status;type:order_status;not null"`
	FromPaymentStatus enums.PaymentStatus   `gorm:"column:from_payment_status;type:payment_status;not null"`
	ToPaymentStatus   enums.PaymentStatus   `gorm:"column:to_payment_status;type:payment_status;not null"`
	Cause             enums.TransitionCause `gorm:"column:cause;type:transition_cause;not null"`
	CreatedAt         time.Time             `gorm:"column:created_at;autoCreateTime"`
}
