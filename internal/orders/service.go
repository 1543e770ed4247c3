package orders

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/outbox"
	"github.com/lumashop/storefront-backend/pkg/outbox/payloads"
)

const defaultSweepBatchSize = 200

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// PaymentEventInput is the normalized payment-provider callback. Provider
// signature checks happen before this boundary.
type PaymentEventInput struct {
	OrderID uuid.UUID
	Outcome enums.PaymentStatus
}

// AdminEditInput carries a manual status edit. Exactly one of OrderStatus and
// PaymentStatus must be set.
type AdminEditInput struct {
	OrderID       uuid.UUID
	OrderStatus   *enums.OrderStatus
	PaymentStatus *enums.PaymentStatus
	ActorID       uuid.UUID
}

// Service coordinates order status mutations: it is the only layer that does
// I/O around the state machine.
type Service interface {
	GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error)
	HandlePaymentEvent(ctx context.Context, input PaymentEventInput) (*models.Order, error)
	AdminEditStatus(ctx context.Context, input AdminEditInput) (*models.Order, error)
	Sweep(ctx context.Context, now time.Time) ([]models.Order, error)
}

type service struct {
	repo      Repository
	tx        txRunner
	outbox    outboxPublisher
	batchSize int
	now       func() time.Time
}

// NewService builds the order coordinator with the required dependencies.
func NewService(repo Repository, tx txRunner, outboxSvc outboxPublisher, sweepBatchSize int) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	if tx == nil {
		return nil, fmt.Errorf("transaction runner required")
	}
	if outboxSvc == nil {
		return nil, fmt.Errorf("outbox publisher required")
	}
	if sweepBatchSize <= 0 {
		sweepBatchSize = defaultSweepBatchSize
	}
	return &service{
		repo:      repo,
		tx:        tx,
		outbox:    outboxSvc,
		batchSize: sweepBatchSize,
		now:       time.Now,
	}, nil
}

func (s *service) GetOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	order, err := s.repo.FindOrderWithHistory(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
	}
	return order, nil
}

func (s *service) HandlePaymentEvent(ctx context.Context, input PaymentEventInput) (*models.Order, error) {
	// Providers only report settled outcomes. Resetting a failed payment back
	// to pending is an admin action, not a callback.
	switch input.Outcome {
	case enums.PaymentStatusCompleted, enums.PaymentStatusFailed, enums.PaymentStatusRefunded:
	default:
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "unsupported payment outcome").
			WithDetails(map[string]any{"outcome": string(input.Outcome)})
	}
	return s.transition(ctx, input.OrderID, nil, func(order models.Order, now time.Time) (Result, error) {
		return ApplyPaymentStatus(order, input.Outcome, enums.CauseExternalPaymentEvent, now)
	})
}

func (s *service) AdminEditStatus(ctx context.Context, input AdminEditInput) (*models.Order, error) {
	if (input.OrderStatus == nil) == (input.PaymentStatus == nil) {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "exactly one of order_status and payment_status must be provided")
	}
	actor := outbox.AdminActor(input.ActorID)
	if input.OrderStatus != nil {
		target := *input.OrderStatus
		return s.transition(ctx, input.OrderID, actor, func(order models.Order, now time.Time) (Result, error) {
			return ApplyOrderStatus(order, target, enums.CauseAdminEdit, now)
		})
	}
	target := *input.PaymentStatus
	return s.transition(ctx, input.OrderID, actor, func(order models.Order, now time.Time) (Result, error) {
		return ApplyPaymentStatus(order, target, enums.CauseAdminEdit, now)
	})
}

// transition loads the order, applies the pure state machine and persists the
// outcome atomically: status update, history append and outbox emission share
// one transaction. Nothing is considered committed unless all three succeed.
func (s *service) transition(ctx context.Context, orderID uuid.UUID, actor *outbox.ActorRef, apply func(models.Order, time.Time) (Result, error)) (*models.Order, error) {
	var updated *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		result, err := apply(*order, s.now())
		if err != nil {
			return err
		}
		if !result.Changed() {
			updated = order
			return nil
		}

		if err := repo.UpdateStatuses(ctx, result.Order, order.Version); err != nil {
			return err
		}
		if err := repo.AppendTransition(ctx, result.History); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
		if err := s.emitTransition(ctx, tx, result, actor); err != nil {
			return err
		}

		result.Order.Version = order.Version + 1
		updated = &result.Order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *service) emitTransition(ctx context.Context, tx *gorm.DB, result Result, actor *outbox.ActorRef) error {
	order := result.Order
	history := result.History
	if actor == nil {
		actor = outbox.SystemActor()
	}

	event := outbox.DomainEvent{
		EventType:     enums.EventOrderStatusChanged,
		AggregateType: enums.AggregateOrder,
		AggregateID:   order.ID,
		Actor:         actor,
		Version:       1,
		Data: payloads.OrderStatusChangedEvent{
			OrderID:           order.ID,
			FromOrderStatus:   history.FromOrderStatus,
			ToOrderStatus:     history.ToOrderStatus,
			FromPaymentStatus: history.FromPaymentStatus,
			ToPaymentStatus:   history.ToPaymentStatus,
			Cause:             history.Cause,
		},
	}
	if err := s.outbox.Emit(ctx, tx, event); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit status change")
	}

	for _, signal := range result.Signals {
		var signalEvent outbox.DomainEvent
		switch signal {
		case SignalRefundRequired:
			signalEvent = outbox.DomainEvent{
				EventType:     enums.EventRefundRequired,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Version:       1,
				Data: payloads.RefundRequiredEvent{
					OrderID:       order.ID,
					Amount:        order.TotalAmount,
					PaymentStatus: order.PaymentStatus,
					OrderStatus:   order.OrderStatus,
				},
			}
		case SignalPaymentMismatch:
			signalEvent = outbox.DomainEvent{
				EventType:     enums.EventPaymentMismatch,
				AggregateType: enums.AggregateOrder,
				AggregateID:   order.ID,
				Actor:         actor,
				Version:       1,
				Data: payloads.PaymentMismatchEvent{
					OrderID:       order.ID,
					OrderStatus:   order.OrderStatus,
					PaymentStatus: order.PaymentStatus,
				},
			}
		default:
			continue
		}
		if err := s.outbox.Emit(ctx, tx, signalEvent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit signal")
		}
	}
	return nil
}

// Sweep advances every eligible order by at most one stage. Each order gets
// its own transaction so a payment event arriving mid-sweep is never blocked
// by the batch; a version conflict on one order just skips it.
func (s *service) Sweep(ctx context.Context, now time.Time) ([]models.Order, error) {
	cutoff := now.Add(-minAdvanceThreshold())
	candidates, err := s.repo.FindAdvanceEligible(ctx, cutoff, s.batchSize)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load sweep candidates")
	}

	var advanced []models.Order
	var errs error
	for _, candidate := range candidates {
		order, sweepErr := s.advanceOne(ctx, candidate.ID, now)
		if sweepErr != nil {
			if pkgerrors.HasCode(sweepErr, pkgerrors.CodeConflict) {
				continue
			}
			errs = multierr.Append(errs, fmt.Errorf("advance order %s: %w", candidate.ID, sweepErr))
			continue
		}
		if order != nil {
			advanced = append(advanced, *order)
		}
	}
	return advanced, errs
}

func (s *service) advanceOne(ctx context.Context, orderID uuid.UUID, now time.Time) (*models.Order, error) {
	var advanced *models.Order
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		order, err := repo.FindOrder(ctx, orderID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load order")
		}

		// Eligibility is re-checked against the fresh row: the candidate list
		// may be stale by the time this transaction runs.
		result, ok, err := Advance(*order, now)
		if err != nil || !ok {
			return err
		}

		if err := repo.UpdateStatuses(ctx, result.Order, order.Version); err != nil {
			return err
		}
		if err := repo.AppendTransition(ctx, result.History); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "append status history")
		}
		if err := s.emitTransition(ctx, tx, result, outbox.SystemActor()); err != nil {
			return err
		}
		advancedEvent := outbox.DomainEvent{
			EventType:     enums.EventOrderAdvanced,
			AggregateType: enums.AggregateOrder,
			AggregateID:   order.ID,
			Actor:         outbox.SystemActor(),
			Version:       1,
			Data: payloads.OrderAdvancedEvent{
				OrderID:         order.ID,
				FromOrderStatus: order.OrderStatus,
				ToOrderStatus:   result.Order.OrderStatus,
			},
		}
		if err := s.outbox.Emit(ctx, tx, advancedEvent); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit advance")
		}

		result.Order.Version = order.Version + 1
		advanced = &result.Order
		return nil
	})
	if err != nil {
		return nil, err
	}
	return advanced, nil
}

func minAdvanceThreshold() time.Duration {
	min := time.Duration(0)
	for _, threshold := range advanceThresholds {
		if min == 0 || threshold < min {
			min = threshold
		}
	}
	return min
}
