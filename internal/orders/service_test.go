package orders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	pkgerrors "github.com/lumashop/storefront-backend/pkg/errors"
	"github.com/lumashop/storefront-backend/pkg/outbox"
)

type fakeTxRunner struct {
	calls int
}

func (f *fakeTxRunner) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	f.calls++
	return fn(&gorm.DB{})
}

type fakeOrdersRepo struct {
	orders      map[uuid.UUID]*models.Order
	updated     []models.Order
	transitions []models.OrderStatusTransition
	eligible    []models.Order
	updateErr   error
	findErr     error
}

func newFakeOrdersRepo(orders ...*models.Order) *fakeOrdersRepo {
	repo := &fakeOrdersRepo{orders: make(map[uuid.UUID]*models.Order)}
	for _, order := range orders {
		repo.orders[order.ID] = order
	}
	return repo
}

func (f *fakeOrdersRepo) WithTx(tx *gorm.DB) Repository { return f }

func (f *fakeOrdersRepo) CreateOrder(ctx context.Context, order *models.Order) (*models.Order, error) {
	if order.ID == uuid.Nil {
		order.ID = uuid.New()
	}
	f.orders[order.ID] = order
	return order, nil
}

func (f *fakeOrdersRepo) CreateOrderLineItems(ctx context.Context, items []models.OrderLineItem) error {
	return nil
}

func (f *fakeOrdersRepo) AppendTransition(ctx context.Context, transition *models.OrderStatusTransition) error {
	f.transitions = append(f.transitions, *transition)
	return nil
}

func (f *fakeOrdersRepo) FindOrder(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	if f.findErr != nil {
		return nil, f.findErr
	}
	order, ok := f.orders[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	copied := *order
	return &copied, nil
}

func (f *fakeOrdersRepo) FindOrderWithHistory(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	return f.FindOrder(ctx, id)
}

func (f *fakeOrdersRepo) UpdateStatuses(ctx context.Context, order models.Order, expectedVersion int64) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	current, ok := f.orders[order.ID]
	if !ok || current.Version != expectedVersion {
		return pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	}
	order.Version = expectedVersion + 1
	f.orders[order.ID] = &order
	f.updated = append(f.updated, order)
	return nil
}

func (f *fakeOrdersRepo) FindAdvanceEligible(ctx context.Context, cutoff time.Time, limit int) ([]models.Order, error) {
	return f.eligible, nil
}

func (f *fakeOrdersRepo) NextOrderNumber(ctx context.Context) (int64, error) {
	return 1000, nil
}

type fakeOutboxPublisher struct {
	events []outbox.DomainEvent
	err    error
}

func (f *fakeOutboxPublisher) Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error {
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakeOutboxPublisher) eventTypes() []enums.OutboxEventType {
	types := make([]enums.OutboxEventType, 0, len(f.events))
	for _, event := range f.events {
		types = append(types, event.EventType)
	}
	return types
}

func (f *fakeOutboxPublisher) hasEvent(eventType enums.OutboxEventType) bool {
	for _, event := range f.events {
		if event.EventType == eventType {
			return true
		}
	}
	return false
}

func newServiceTest(t *testing.T, repo *fakeOrdersRepo) (*service, *fakeOutboxPublisher) {
	t.Helper()
	publisher := &fakeOutboxPublisher{}
	svc, err := NewService(repo, &fakeTxRunner{}, publisher, 10)
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	impl := svc.(*service)
	impl.now = func() time.Time { return transitionTime }
	return impl, publisher
}

func TestHandlePaymentEvent_persistsAndEmits(t *testing.T) {
	order := orderIn(enums.OrderStatusPending, enums.PaymentStatusPending)
	repo := newFakeOrdersRepo(&order)
	svc, publisher := newServiceTest(t, repo)

	updated, err := svc.HandlePaymentEvent(context.Background(), PaymentEventInput{
		OrderID: order.ID,
		Outcome: enums.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("HandlePaymentEvent: %v", err)
	}
	if updated.OrderStatus != enums.OrderStatusConfirmed {
		t.Fatalf("expected confirmed, got %s", updated.OrderStatus)
	}
	if updated.Version != 2 {
		t.Fatalf("expected version bump to 2, got %d", updated.Version)
	}
	if len(repo.transitions) != 1 {
		t.Fatalf("expected 1 history row, got %d", len(repo.transitions))
	}
	if !publisher.hasEvent(enums.EventOrderStatusChanged) {
		t.Fatalf("expected status change event, got %v", publisher.eventTypes())
	}
}

func TestHandlePaymentEvent_sameStatusIsNoOp(t *testing.T) {
	order := orderIn(enums.OrderStatusConfirmed, enums.PaymentStatusCompleted)
	repo := newFakeOrdersRepo(&order)
	svc, publisher := newServiceTest(t, repo)

	updated, err := svc.HandlePaymentEvent(context.Background(), PaymentEventInput{
		OrderID: order.ID,
		Outcome: enums.PaymentStatusCompleted,
	})
	if err != nil {
		t.Fatalf("HandlePaymentEvent: %v", err)
	}
	if updated.Version != order.Version {
		t.Fatal("no-op must not bump the version")
	}
	if len(repo.updated) != 0 {
		t.Fatal("no-op must not write")
	}
	if len(publisher.events) != 0 {
		t.Fatalf("no-op must not emit, got %v", publisher.eventTypes())
	}
}

func TestHandlePaymentEvent_rejectsNonSettledOutcome(t *testing.T) {
	order := orderIn(enums.OrderStatusPending, enums.PaymentStatusFailed)
	repo := newFakeOrdersRepo(&order)
	svc, publisher := newServiceTest(t, repo)

	for _, outcome := range []enums.PaymentStatus{enums.PaymentStatusPending, "settled"} {
		_, err := svc.HandlePaymentEvent(context.Background(), PaymentEventInput{
			OrderID: order.ID,
			Outcome: outcome,
		})
		if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
			t.Fatalf("outcome %q: expected validation error, got %v", outcome, err)
		}
	}
	if len(repo.updated) != 0 {
		t.Fatal("rejected outcome must not write")
	}
	if len(publisher.events) != 0 {
		t.Fatalf("rejected outcome must not emit, got %v", publisher.eventTypes())
	}
}

func TestHandlePaymentEvent_unknownOrder(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, _ := newServiceTest(t, repo)

	_, err := svc.HandlePaymentEvent(context.Background(), PaymentEventInput{
		OrderID: uuid.New(),
		Outcome: enums.PaymentStatusCompleted,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestHandlePaymentEvent_versionConflictSurfaces(t *testing.T) {
	order := orderIn(enums.OrderStatusPending, enums.PaymentStatusPending)
	repo := newFakeOrdersRepo(&order)
	repo.updateErr = pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	svc, _ := newServiceTest(t, repo)

	_, err := svc.HandlePaymentEvent(context.Background(), PaymentEventInput{
		OrderID: order.ID,
		Outcome: enums.PaymentStatusCompleted,
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
}

func TestAdminEditStatus_exactlyOneLegRequired(t *testing.T) {
	order := orderIn(enums.OrderStatusPending, enums.PaymentStatusPending)
	repo := newFakeOrdersRepo(&order)
	svc, _ := newServiceTest(t, repo)

	orderStatus := enums.OrderStatusCancelled
	paymentStatus := enums.PaymentStatusCompleted

	_, err := svc.AdminEditStatus(context.Background(), AdminEditInput{OrderID: order.ID, ActorID: uuid.New()})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for neither leg, got %v", err)
	}

	_, err = svc.AdminEditStatus(context.Background(), AdminEditInput{
		OrderID:       order.ID,
		OrderStatus:   &orderStatus,
		PaymentStatus: &paymentStatus,
		ActorID:       uuid.New(),
	})
	if !pkgerrors.HasCode(err, pkgerrors.CodeValidation) {
		t.Fatalf("expected validation error for both legs, got %v", err)
	}
}

func TestAdminEditStatus_cancellingPaidOrderEmitsRefundEvent(t *testing.T) {
	order := orderIn(enums.OrderStatusProcessing, enums.PaymentStatusCompleted)
	repo := newFakeOrdersRepo(&order)
	svc, publisher := newServiceTest(t, repo)

	target := enums.OrderStatusCancelled
	updated, err := svc.AdminEditStatus(context.Background(), AdminEditInput{
		OrderID:     order.ID,
		OrderStatus: &target,
		ActorID:     uuid.New(),
	})
	if err != nil {
		t.Fatalf("AdminEditStatus: %v", err)
	}
	if updated.OrderStatus != enums.OrderStatusCancelled {
		t.Fatalf("expected cancelled, got %s", updated.OrderStatus)
	}
	if !publisher.hasEvent(enums.EventRefundRequired) {
		t.Fatalf("expected refund required event, got %v", publisher.eventTypes())
	}
}

func TestAdminEditStatus_suppressedDerivationEmitsMismatchEvent(t *testing.T) {
	order := orderIn(enums.OrderStatusShipped, enums.PaymentStatusCompleted)
	repo := newFakeOrdersRepo(&order)
	svc, publisher := newServiceTest(t, repo)

	target := enums.PaymentStatusRefunded
	updated, err := svc.AdminEditStatus(context.Background(), AdminEditInput{
		OrderID:       order.ID,
		PaymentStatus: &target,
		ActorID:       uuid.New(),
	})
	if err != nil {
		t.Fatalf("AdminEditStatus: %v", err)
	}
	if updated.OrderStatus != enums.OrderStatusShipped {
		t.Fatalf("fulfillment must stay shipped, got %s", updated.OrderStatus)
	}
	if !publisher.hasEvent(enums.EventPaymentMismatch) {
		t.Fatalf("expected payment mismatch event, got %v", publisher.eventTypes())
	}
}

func TestSweep_advancesEligibleOrders(t *testing.T) {
	order := orderIn(enums.OrderStatusConfirmed, enums.PaymentStatusCompleted)
	order.StatusChangedAt = transitionTime.Add(-25 * time.Hour)
	repo := newFakeOrdersRepo(&order)
	repo.eligible = []models.Order{order}
	svc, publisher := newServiceTest(t, repo)

	advanced, err := svc.Sweep(context.Background(), transitionTime)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(advanced) != 1 {
		t.Fatalf("expected 1 advanced order, got %d", len(advanced))
	}
	if advanced[0].OrderStatus != enums.OrderStatusProcessing {
		t.Fatalf("expected processing, got %s", advanced[0].OrderStatus)
	}
	if !publisher.hasEvent(enums.EventOrderAdvanced) {
		t.Fatalf("expected advance event, got %v", publisher.eventTypes())
	}
	if !publisher.hasEvent(enums.EventOrderStatusChanged) {
		t.Fatalf("expected status change event, got %v", publisher.eventTypes())
	}
}

func TestSweep_staleCandidateIsRecheckedAndSkipped(t *testing.T) {
	// The candidate row was eligible when listed, but the fresh row has since
	// been paid back to pending. Nothing should move.
	order := orderIn(enums.OrderStatusConfirmed, enums.PaymentStatusPending)
	order.StatusChangedAt = transitionTime.Add(-25 * time.Hour)
	repo := newFakeOrdersRepo(&order)

	stale := order
	stale.PaymentStatus = enums.PaymentStatusCompleted
	repo.eligible = []models.Order{stale}
	svc, publisher := newServiceTest(t, repo)

	advanced, err := svc.Sweep(context.Background(), transitionTime)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if len(advanced) != 0 {
		t.Fatalf("expected no advancement, got %d", len(advanced))
	}
	if len(publisher.events) != 0 {
		t.Fatalf("expected no events, got %v", publisher.eventTypes())
	}
}

func TestSweep_versionConflictSkipsOrder(t *testing.T) {
	order := orderIn(enums.OrderStatusConfirmed, enums.PaymentStatusCompleted)
	order.StatusChangedAt = transitionTime.Add(-25 * time.Hour)
	repo := newFakeOrdersRepo(&order)
	repo.eligible = []models.Order{order}
	repo.updateErr = pkgerrors.New(pkgerrors.CodeConflict, "order was modified concurrently")
	svc, _ := newServiceTest(t, repo)

	advanced, err := svc.Sweep(context.Background(), transitionTime)
	if err != nil {
		t.Fatalf("conflicts are skipped, not surfaced: %v", err)
	}
	if len(advanced) != 0 {
		t.Fatalf("expected no advancement, got %d", len(advanced))
	}
}

func TestSweep_aggregatesNonConflictErrors(t *testing.T) {
	order := orderIn(enums.OrderStatusConfirmed, enums.PaymentStatusCompleted)
	order.StatusChangedAt = transitionTime.Add(-25 * time.Hour)
	repo := newFakeOrdersRepo(&order)
	repo.eligible = []models.Order{order}
	repo.updateErr = errors.New("connection reset")
	svc, _ := newServiceTest(t, repo)

	_, err := svc.Sweep(context.Background(), transitionTime)
	if err == nil {
		t.Fatal("expected aggregated error")
	}
}

func TestGetOrder_notFound(t *testing.T) {
	repo := newFakeOrdersRepo()
	svc, _ := newServiceTest(t, repo)

	_, err := svc.GetOrder(context.Background(), uuid.New())
	if !pkgerrors.HasCode(err, pkgerrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
