package orders

import (
	"time"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
)

// advanceThresholds is the dwell time an order must spend in a stage before
// the sweep moves it one step forward. Stages without an entry never advance
// on time alone.
var advanceThresholds = map[enums.OrderStatus]time.Duration{
	enums.OrderStatusConfirmed:  24 * time.Hour,
	enums.OrderStatusProcessing: 24 * time.Hour,
	enums.OrderStatusShipped:    24 * time.Hour,
}

// Advance moves an order exactly one step along
// confirmed -> processing -> shipped -> delivered when its dwell threshold has
// elapsed. It is pure over (order, now): payment must be completed, and even
// when several thresholds have been exceeded at once, only a single step is
// taken so the history records every intermediate stage.
func Advance(order models.Order, now time.Time) (Result, bool, error) {
	if order.PaymentStatus != enums.PaymentStatusCompleted {
		return Result{}, false, nil
	}
	threshold, ok := advanceThresholds[order.OrderStatus]
	if !ok {
		return Result{}, false, nil
	}
	if now.Sub(order.StatusChangedAt) < threshold {
		return Result{}, false, nil
	}

	result, err := ApplyOrderStatus(order, nextStage(order.OrderStatus), enums.CauseScheduledSweep, now)
	if err != nil {
		return Result{}, false, err
	}
	return result, true, nil
}

func nextStage(status enums.OrderStatus) enums.OrderStatus {
	switch status {
	case enums.OrderStatusConfirmed:
		return enums.OrderStatusProcessing
	case enums.OrderStatusProcessing:
		return enums.OrderStatusShipped
	default:
		return enums.OrderStatusDelivered
	}
}
