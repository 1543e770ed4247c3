package payloads

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/pkg/enums"
)

// OrderCreatedEvent is emitted when checkout finalizes an order.
type OrderCreatedEvent struct {
	OrderID        uuid.UUID           `json:"order_id"`
	OrderNumber    int64               `json:"order_number"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	PaymentMethod  enums.PaymentMethod `json:"payment_method"`
	PromoCode      *string             `json:"promo_code,omitempty"`
}

// OrderStatusChangedEvent mirrors one appended status-history row.
type OrderStatusChangedEvent struct {
	OrderID           uuid.UUID             `json:"order_id"`
	FromOrderStatus   enums.OrderStatus     `json:"from_order_status"`
	ToOrderStatus     enums.OrderStatus     `json:"to_order_status"`
	FromPaymentStatus enums.PaymentStatus   `json:"from_payment_status"`
	ToPaymentStatus   enums.PaymentStatus   `json:"to_payment_status"`
	Cause             enums.TransitionCause `json:"cause"`
}

// OrderAdvancedEvent is emitted when the sweep moves an order one stage.
type OrderAdvancedEvent struct {
	OrderID         uuid.UUID         `json:"order_id"`
	FromOrderStatus enums.OrderStatus `json:"from_order_status"`
	ToOrderStatus   enums.OrderStatus `json:"to_order_status"`
}

// RefundRequiredEvent asks an operator to execute a refund; the engine never
// moves money itself.
type RefundRequiredEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	Amount        decimal.Decimal     `json:"amount"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
}

// PaymentMismatchEvent flags a suppressed cross-derivation for manual review.
type PaymentMismatchEvent struct {
	OrderID       uuid.UUID           `json:"order_id"`
	OrderStatus   enums.OrderStatus   `json:"order_status"`
	PaymentStatus enums.PaymentStatus `json:"payment_status"`
}
