package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/lumashop/storefront-backend/api/responses"
	"github.com/lumashop/storefront-backend/api/validators"
	ordersvc "github.com/lumashop/storefront-backend/internal/orders"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/logger"
)

// GetOrder returns one order with its line items and status history.
func GetOrder(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		order, err := svc.GetOrder(r.Context(), orderID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// PaymentEvent ingests a normalized payment-provider callback. Provider
// signature verification happens upstream of this handler.
func PaymentEvent(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		var payload paymentEventRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		outcome, err := enums.ParsePaymentStatus(payload.Outcome)
		if err != nil {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.New(pkgerrors.CodeValidation, "unknown payment outcome").
					WithDetails(map[string]any{"outcome": payload.Outcome}))
			return
		}

		order, err := svc.HandlePaymentEvent(r.Context(), ordersvc.PaymentEventInput{
			OrderID: payload.OrderID,
			Outcome: outcome,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

// AdminEditOrderStatus applies a manual edit to one status leg of an order.
func AdminEditOrderStatus(svc ordersvc.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "orders service unavailable"))
			return
		}

		orderID, err := orderIDFromPath(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload adminEditRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		input := ordersvc.AdminEditInput{OrderID: orderID, ActorID: payload.ActorID}
		if payload.OrderStatus != nil {
			parsed, err := enums.ParseOrderStatus(*payload.OrderStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
						WithDetails(map[string]any{"order_status": *payload.OrderStatus}))
				return
			}
			input.OrderStatus = &parsed
		}
		if payload.PaymentStatus != nil {
			parsed, err := enums.ParsePaymentStatus(*payload.PaymentStatus)
			if err != nil {
				responses.WriteError(r.Context(), logg, w,
					pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
						WithDetails(map[string]any{"payment_status": *payload.PaymentStatus}))
				return
			}
			input.PaymentStatus = &parsed
		}

		order, err := svc.AdminEditStatus(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		responses.WriteSuccess(w, newOrderResponse(order))
	}
}

type paymentEventRequest struct {
	OrderID uuid.UUID `json:"order_id" validate:"required"`
	Outcome string    `json:"outcome" validate:"required"`
}

type adminEditRequest struct {
	OrderStatus   *string   `json:"order_status,omitempty"`
	PaymentStatus *string   `json:"payment_status,omitempty"`
	ActorID       uuid.UUID `json:"actor_id" validate:"required"`
}

func orderIDFromPath(r *http.Request) (uuid.UUID, error) {
	raw := chi.URLParam(r, "orderID")
	orderID, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid order id").
			WithDetails(map[string]any{"order_id": raw})
	}
	return orderID, nil
}
