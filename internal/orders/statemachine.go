package orders

import (
	"time"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
)

// Signal is a side effect the caller must act on. The state machine only
// reports signals; executing them is external.
type Signal string

const (
	// SignalRefundRequired fires when an order is cancelled while its payment
	// is completed. Refund execution happens outside this core.
	SignalRefundRequired Signal = "refund_required"
	// SignalPaymentMismatch fires when a payment-status change would normally
	// re-derive the fulfillment status but the order is already shipped,
	// delivered or cancelled. The inconsistency is surfaced for manual review
	// instead of silently reverting fulfillment.
	SignalPaymentMismatch Signal = "payment_mismatch"
)

// Result is the outcome of a successful transition. Order is a new value; the
// input order is never mutated. History is nil when the call was a no-op.
type Result struct {
	Order   models.Order
	History *models.OrderStatusTransition
	Signals []Signal
}

// Changed reports whether the transition actually moved the order.
func (r Result) Changed() bool {
	return r.History != nil
}

var allowedPaymentTransitions = map[enums.PaymentStatus][]enums.PaymentStatus{
	enums.PaymentStatusPending:   {enums.PaymentStatusCompleted, enums.PaymentStatusFailed},
	enums.PaymentStatusCompleted: {enums.PaymentStatusRefunded},
	enums.PaymentStatusFailed:    {enums.PaymentStatusPending, enums.PaymentStatusCompleted},
	enums.PaymentStatusRefunded:  nil,
}

// ApplyPaymentStatus transitions the payment leg of the joint state and
// derives the fulfillment leg where the cross-derivation rule applies.
// Derivation is suppressed once the order is shipped, delivered or cancelled;
// the suppressed case emits SignalPaymentMismatch instead of changing
// fulfillment.
func ApplyPaymentStatus(order models.Order, next enums.PaymentStatus, cause enums.TransitionCause, now time.Time) (Result, error) {
	if order.IsTerminal() {
		return Result{}, terminalError(order)
	}
	if !next.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown payment status").
			WithDetails(map[string]any{"payment_status": string(next)})
	}
	if next == order.PaymentStatus {
		return Result{Order: order}, nil
	}
	if !paymentReachable(order.PaymentStatus, next) {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "payment status transition disallowed").
			WithDetails(map[string]any{
				"from": order.PaymentStatus.String(),
				"to":   next.String(),
			})
	}

	updated := order
	updated.PaymentStatus = next
	updated.StatusChangedAt = now

	var signals []Signal
	derived, derives := derivedOrderStatus(next)
	if derivationSuppressed(order.OrderStatus) {
		if derives && derived != order.OrderStatus {
			signals = append(signals, SignalPaymentMismatch)
		}
	} else if derives {
		updated.OrderStatus = derived
	}

	return Result{
		Order:   updated,
		History: historyEntry(order, updated, cause),
		Signals: signals,
	}, nil
}

// ApplyOrderStatus transitions the fulfillment leg directly. It never cascades
// onto the payment leg; cancelling a paid order emits SignalRefundRequired
// instead.
func ApplyOrderStatus(order models.Order, next enums.OrderStatus, cause enums.TransitionCause, now time.Time) (Result, error) {
	if order.IsTerminal() {
		return Result{}, terminalError(order)
	}
	if !next.IsValid() {
		return Result{}, pkgerrors.New(pkgerrors.CodeValidation, "unknown order status").
			WithDetails(map[string]any{"order_status": string(next)})
	}
	if next == order.OrderStatus {
		return Result{Order: order}, nil
	}
	if !orderReachable(order.OrderStatus, next) {
		return Result{}, pkgerrors.New(pkgerrors.CodeStateConflict, "order status transition disallowed").
			WithDetails(map[string]any{
				"from": order.OrderStatus.String(),
				"to":   next.String(),
			})
	}

	updated := order
	updated.OrderStatus = next
	updated.StatusChangedAt = now

	var signals []Signal
	if next == enums.OrderStatusCancelled && order.PaymentStatus == enums.PaymentStatusCompleted {
		signals = append(signals, SignalRefundRequired)
	}

	return Result{
		Order:   updated,
		History: historyEntry(order, updated, cause),
		Signals: signals,
	}, nil
}

func terminalError(order models.Order) error {
	return pkgerrors.New(pkgerrors.CodeTerminalState, "this order can no longer be modified").
		WithDetails(map[string]any{
			"order_status":   order.OrderStatus.String(),
			"payment_status": order.PaymentStatus.String(),
		})
}

func paymentReachable(from, to enums.PaymentStatus) bool {
	for _, candidate := range allowedPaymentTransitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// orderReachable allows forward movement along the fulfillment chain and
// cancellation from any non-terminal state. Backward movement is never legal.
func orderReachable(from, to enums.OrderStatus) bool {
	if from == enums.OrderStatusCancelled {
		return false
	}
	if to == enums.OrderStatusCancelled {
		return true
	}
	return to.Rank() > from.Rank()
}

func derivedOrderStatus(payment enums.PaymentStatus) (enums.OrderStatus, bool) {
	switch payment {
	case enums.PaymentStatusCompleted:
		return enums.OrderStatusConfirmed, true
	case enums.PaymentStatusFailed:
		return enums.OrderStatusPending, true
	case enums.PaymentStatusRefunded:
		return enums.OrderStatusCancelled, true
	default:
		return "", false
	}
}

// derivationSuppressed reports whether payment-driven derivation is disabled
// for the current fulfillment stage. Once goods moved, payment edits must not
// rewrite fulfillment.
func derivationSuppressed(status enums.OrderStatus) bool {
	switch status {
	case enums.OrderStatusShipped, enums.OrderStatusDelivered, enums.OrderStatusCancelled:
		return true
	default:
		return false
	}
}

func historyEntry(before, after models.Order, cause enums.TransitionCause) *models.OrderStatusTransition {
	return &models.OrderStatusTransition{
		OrderID:           before.ID,
		FromOrderStatus:   before.OrderStatus,
		ToOrderStatus:     after.OrderStatus,
		FromPaymentStatus: before.PaymentStatus,
		ToPaymentStatus:   after.PaymentStatus,
		Cause:             cause,
	}
}
