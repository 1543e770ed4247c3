package main

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	gcppubsub "cloud.google.com/go/pubsub/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/lumashop/storefront-backend/pkg/config"
	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	"github.com/lumashop/storefront-backend/pkg/logger"
	"github.com/lumashop/storefront-backend/pkg/outbox"
	"github.com/lumashop/storefront-backend/pkg/outbox/payloads"
	"github.com/lumashop/storefront-backend/pkg/outbox/registry"
)

type fakeDB struct{}

func (fakeDB) Ping(context.Context) error { return nil }

func (fakeDB) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return fn(&gorm.DB{})
}

type fakePubSub struct{}

func (fakePubSub) Ping(context.Context) error { return nil }

func (fakePubSub) Publisher(name string) *gcppubsub.Publisher { return nil }

type fakeOutboxRepo struct {
	pending   []models.OutboxEvent
	published []uuid.UUID
	failed    []uuid.UUID
	terminal  []uuid.UUID
}

func (f *fakeOutboxRepo) FetchUnpublishedForPublish(tx *gorm.DB, limit, maxAttempts int) ([]models.OutboxEvent, error) {
	batch := f.pending
	f.pending = nil
	return batch, nil
}

func (f *fakeOutboxRepo) MarkPublishedTx(tx *gorm.DB, id uuid.UUID) error {
	f.published = append(f.published, id)
	return nil
}

func (f *fakeOutboxRepo) MarkFailedTx(tx *gorm.DB, id uuid.UUID, err error) error {
	f.failed = append(f.failed, id)
	return nil
}

func (f *fakeOutboxRepo) MarkTerminalTx(tx *gorm.DB, id uuid.UUID, err error, terminalAttempts int) error {
	f.terminal = append(f.terminal, id)
	return nil
}

type fakeDLQRepo struct {
	entries []models.OutboxDLQ
}

func (f *fakeDLQRepo) InsertTx(tx *gorm.DB, entry models.OutboxDLQ) error {
	f.entries = append(f.entries, entry)
	return nil
}

type fakePublishResult struct {
	err error
}

func (r fakePublishResult) Get(context.Context) (string, error) {
	if r.err != nil {
		return "", r.err
	}
	return "server-id", nil
}

type fakePublisher struct {
	err      error
	messages []*gcppubsub.Message
}

func (p *fakePublisher) Publish(ctx context.Context, msg *gcppubsub.Message) publishResult {
	p.messages = append(p.messages, msg)
	return fakePublishResult{err: p.err}
}

func outboxRow(t *testing.T, eventType enums.OutboxEventType, attempts int) models.OutboxEvent {
	t.Helper()
	data, err := json.Marshal(payloads.OrderCreatedEvent{OrderID: uuid.New()})
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
	payload, err := json.Marshal(envelope)
	if err != nil {
		t.Fatalf("marshal envelope: %v", err)
	}
	return models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     eventType,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
		AttemptCount:  attempts,
	}
}

type publisherTest struct {
	service   *Service
	repo      *fakeOutboxRepo
	dlq       *fakeDLQRepo
	publisher *fakePublisher
}

func newPublisherTest(t *testing.T) *publisherTest {
	t.Helper()
	cfg := &config.Config{}
	cfg.PubSub.OrdersTopic = "orders"
	cfg.PubSub.NotificationTopic = "notifications"
	cfg.Outbox.BatchSize = 10
	cfg.Outbox.MaxAttempts = 3

	eventRegistry, err := registry.NewEventRegistry(cfg.PubSub)
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	repo := &fakeOutboxRepo{}
	dlq := &fakeDLQRepo{}
	pub := &fakePublisher{}
	service, err := NewService(ServiceParams{
		Config:        cfg,
		Logger:        logger.New(logger.Options{ServiceName: "test"}),
		DB:            fakeDB{},
		PubSub:        fakePubSub{},
		Repository:    repo,
		Registry:      eventRegistry,
		DLQRepository: dlq,
		PublisherFactory: func(topic string) publisher {
			return pub
		},
	})
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return &publisherTest{service: service, repo: repo, dlq: dlq, publisher: pub}
}

func TestProcessBatch_publishesAndMarks(t *testing.T) {
	h := newPublisherTest(t)
	row := outboxRow(t, enums.EventOrderCreated, 0)
	h.repo.pending = []models.OutboxEvent{row}

	processed, err := h.service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if !processed {
		t.Fatal("expected batch to be processed")
	}
	if len(h.repo.published) != 1 || h.repo.published[0] != row.ID {
		t.Fatalf("expected row marked published, got %v", h.repo.published)
	}
	if len(h.publisher.messages) != 1 {
		t.Fatalf("expected 1 message, got %d", len(h.publisher.messages))
	}
	msg := h.publisher.messages[0]
	if msg.Attributes["event_type"] != string(enums.EventOrderCreated) {
		t.Fatalf("unexpected event_type attribute: %s", msg.Attributes["event_type"])
	}
	if msg.Attributes["aggregate_id"] != row.AggregateID.String() {
		t.Fatalf("unexpected aggregate_id attribute: %s", msg.Attributes["aggregate_id"])
	}
}

func TestProcessBatch_emptyBatch(t *testing.T) {
	h := newPublisherTest(t)

	processed, err := h.service.processBatch(context.Background())
	if err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if processed {
		t.Fatal("empty batch must report not processed")
	}
}

func TestProcessBatch_retryableFailureMarksFailed(t *testing.T) {
	h := newPublisherTest(t)
	h.publisher.err = errors.New("pubsub unavailable")
	row := outboxRow(t, enums.EventOrderCreated, 0)
	h.repo.pending = []models.OutboxEvent{row}

	if _, err := h.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.repo.failed) != 1 {
		t.Fatalf("expected failure mark, got %v", h.repo.failed)
	}
	if len(h.dlq.entries) != 0 {
		t.Fatal("retryable failures must not hit the DLQ")
	}
}

func TestProcessBatch_maxAttemptsGoesToDLQ(t *testing.T) {
	h := newPublisherTest(t)
	h.publisher.err = errors.New("pubsub unavailable")
	row := outboxRow(t, enums.EventOrderCreated, 2) // next attempt hits the cap of 3
	h.repo.pending = []models.OutboxEvent{row}

	if _, err := h.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.repo.terminal) != 1 {
		t.Fatalf("expected terminal mark, got %v", h.repo.terminal)
	}
	if len(h.dlq.entries) != 1 {
		t.Fatalf("expected 1 DLQ entry, got %d", len(h.dlq.entries))
	}
	if h.dlq.entries[0].ErrorReason != enums.OutboxDLQReasonMaxAttempts {
		t.Fatalf("unexpected DLQ reason: %s", h.dlq.entries[0].ErrorReason)
	}
}

func TestProcessBatch_unknownEventTypeGoesToDLQ(t *testing.T) {
	h := newPublisherTest(t)
	row := outboxRow(t, enums.OutboxEventType("mystery"), 0)
	h.repo.pending = []models.OutboxEvent{row}

	if _, err := h.service.processBatch(context.Background()); err != nil {
		t.Fatalf("processBatch: %v", err)
	}
	if len(h.dlq.entries) != 1 {
		t.Fatalf("expected 1 DLQ entry, got %d", len(h.dlq.entries))
	}
	if h.dlq.entries[0].ErrorReason != enums.OutboxDLQReasonNonRetryable {
		t.Fatalf("unexpected DLQ reason: %s", h.dlq.entries[0].ErrorReason)
	}
	if len(h.publisher.messages) != 0 {
		t.Fatal("unresolvable events must not be published")
	}
}

func TestNextBackoff_capsAtMax(t *testing.T) {
	base := 500 * time.Millisecond
	current := base
	for i := 0; i < 10; i++ {
		current = nextBackoff(current, base, maxBackoff)
	}
	if current != maxBackoff {
		t.Fatalf("expected cap at %s, got %s", maxBackoff, current)
	}
}
