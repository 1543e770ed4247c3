package controllers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/lumashop/storefront-backend/api/responses"
	"github.com/lumashop/storefront-backend/api/validators"
	checkoutsvc "github.com/lumashop/storefront-backend/internal/checkout"
	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/logger"
	"github.com/lumashop/storefront-backend/pkg/types"
)

// Checkout turns the submitted cart into an order.
func Checkout(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.Execute(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccessStatus(w, http.StatusCreated, newOrderResponse(order))
	}
}

// CheckoutQuote prices the cart without creating an order or touching
// promo usage.
func CheckoutQuote(svc checkoutsvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "checkout service unavailable"))
			return
		}

		var payload checkoutRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		quote, err := svc.Quote(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newQuoteResponse(quote))
	}
}

type checkoutRequest struct {
	Items         []checkoutItemRequest `json:"items" validate:"required,min=1,dive"`
	ShippingFee   decimal.Decimal       `json:"shipping_fee"`
	OfferID       *uuid.UUID            `json:"offer_id,omitempty"`
	PromoCode     *string               `json:"promo_code,omitempty" validate:"omitempty,min=1"`
	PaymentMethod string                `json:"payment_method" validate:"required"`
}

type checkoutItemRequest struct {
	ProductID uuid.UUID       `json:"product_id" validate:"required"`
	Name      string          `json:"name" validate:"required"`
	Category  string          `json:"category" validate:"required"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Qty       int             `json:"qty" validate:"required,min=1"`
}

func (req checkoutRequest) toInput() (checkoutsvc.Input, error) {
	method, err := enums.ParsePaymentMethod(req.PaymentMethod)
	if err != nil {
		return checkoutsvc.Input{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment method").
			WithDetails(map[string]any{"payment_method": req.PaymentMethod})
	}
	items := make([]checkoutsvc.LineItemInput, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, checkoutsvc.LineItemInput{
			ProductID: item.ProductID,
			Name:      item.Name,
			Category:  item.Category,
			UnitPrice: item.UnitPrice,
			Qty:       item.Qty,
		})
	}
	return checkoutsvc.Input{
		Items:         items,
		ShippingFee:   req.ShippingFee,
		OfferID:       req.OfferID,
		PromoCode:     req.PromoCode,
		PaymentMethod: method,
	}, nil
}

type quoteResponse struct {
	Subtotal       decimal.Decimal         `json:"subtotal"`
	DiscountAmount decimal.Decimal         `json:"discount_amount"`
	ShippingFee    decimal.Decimal         `json:"shipping_fee"`
	TotalAmount    decimal.Decimal         `json:"total_amount"`
	AppliedOffer   *types.OfferApplication `json:"applied_offer,omitempty"`
	AppliedPromo   *types.OfferApplication `json:"applied_promo,omitempty"`
}

func newQuoteResponse(quote *checkoutsvc.Quote) quoteResponse {
	if quote == nil {
		return quoteResponse{}
	}
	return quoteResponse{
		Subtotal:       quote.Subtotal,
		DiscountAmount: quote.DiscountAmount,
		ShippingFee:    quote.ShippingFee,
		TotalAmount:    quote.TotalAmount,
		AppliedOffer:   quote.AppliedOffer,
		AppliedPromo:   quote.AppliedPromo,
	}
}

type orderResponse struct {
	OrderID         uuid.UUID               `json:"order_id"`
	OrderNumber     int64                   `json:"order_number"`
	Subtotal        decimal.Decimal         `json:"subtotal"`
	DiscountAmount  decimal.Decimal         `json:"discount_amount"`
	ShippingFee     decimal.Decimal         `json:"shipping_fee"`
	TotalAmount     decimal.Decimal         `json:"total_amount"`
	AppliedOffer    *types.OfferApplication `json:"applied_offer,omitempty"`
	AppliedPromo    *types.OfferApplication `json:"applied_promo,omitempty"`
	OrderStatus     string                  `json:"order_status"`
	PaymentStatus   string                  `json:"payment_status"`
	PaymentMethod   string                  `json:"payment_method"`
	StatusChangedAt time.Time               `json:"status_changed_at"`
	Version         int64                   `json:"version"`
	Items           []orderItemResponse     `json:"items"`
	History         []orderHistoryResponse  `json:"history,omitempty"`
}

type orderItemResponse struct {
	LineItemID uuid.UUID       `json:"line_item_id"`
	ProductID  uuid.UUID       `json:"product_id"`
	Name       string          `json:"name"`
	Category   string          `json:"category"`
	UnitPrice  decimal.Decimal `json:"unit_price"`
	Qty        int             `json:"qty"`
}

type orderHistoryResponse struct {
	FromOrderStatus   string    `json:"from_order_status"`
	ToOrderStatus     string    `json:"to_order_status"`
	FromPaymentStatus string    `json:"from_payment_status"`
	ToPaymentStatus   string    `json:"to_payment_status"`
	Cause             string    `json:"cause"`
	OccurredAt        time.Time `json:"occurred_at"`
}

func newOrderResponse(order *models.Order) orderResponse {
	if order == nil {
		return orderResponse{}
	}
	items := make([]orderItemResponse, 0, len(order.Items))
	for _, item := range order.Items {
		items = append(items, orderItemResponse{
			LineItemID: item.ID,
			ProductID:  item.ProductID,
			Name:       item.Name,
			Category:   item.Category,
			UnitPrice:  item.UnitPrice,
			Qty:        item.Qty,
		})
	}
	history := make([]orderHistoryResponse, 0, len(order.Transitions))
	for _, transition := range order.Transitions {
		history = append(history, orderHistoryResponse{
			FromOrderStatus:   transition.FromOrderStatus.String(),
			ToOrderStatus:     transition.ToOrderStatus.String(),
			FromPaymentStatus: transition.FromPaymentStatus.String(),
			ToPaymentStatus:   transition.ToPaymentStatus.String(),
			Cause:             transition.Cause.String(),
			OccurredAt:        transition.CreatedAt,
		})
	}
	return orderResponse{
		OrderID:         order.ID,
		OrderNumber:     order.OrderNumber,
		Subtotal:        order.Subtotal,
		DiscountAmount:  order.DiscountAmount,
		ShippingFee:     order.ShippingFee,
		TotalAmount:     order.TotalAmount,
		AppliedOffer:    order.AppliedOffer,
		AppliedPromo:    order.AppliedPromo,
		OrderStatus:     order.OrderStatus.String(),
		PaymentStatus:   order.PaymentStatus.String(),
		PaymentMethod:   order.PaymentMethod.String(),
		StatusChangedAt: order.StatusChangedAt,
		Version:         order.Version,
		Items:           items,
		History:         history,
	}
}
