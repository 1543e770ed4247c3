package registry

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lumashop/storefront-backend/pkg/config"
	"github.com/lumashop/storefront-backend/pkg/db/models"
	"github.com/lumashop/storefront-backend/pkg/enums"
	"github.com/lumashop/storefront-backend/pkg/outbox"
	"github.com/lumashop/storefront-backend/pkg/outbox/payloads"
)

func testConfig() config.PubSubConfig {
	return config.PubSubConfig{
		OrdersTopic:       "orders",
		NotificationTopic: "notifications",
	}
}

func envelopeRow(t *testing.T, eventType enums.OutboxEventType, data any) models.OutboxEvent {
	t.Helper()
	raw, err := json.Marshal(data)
	if err != nil {
		t.Fatalf("marshal data: %v", err)
	}
	envelope := outbox.PayloadEnvelope{
		Version:    1,
		EventID:    uuid.NewString(),
		OccurredAt: time.Now().UTC(),
		Data:       raw,
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
	}
}

func TestResolve_orderEventsRouteToOrdersTopic(t *testing.T) {
	registry, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	row := envelopeRow(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{OrderID: uuid.New()})
	resolved, err := registry.Resolve(row)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if resolved.Descriptor.Topic != "orders" {
		t.Fatalf("expected orders topic, got %s", resolved.Descriptor.Topic)
	}
	if _, ok := resolved.Payload.(*payloads.OrderCreatedEvent); !ok {
		t.Fatalf("unexpected payload type %T", resolved.Payload)
	}
}

func TestResolve_reviewEventsRouteToNotificationTopic(t *testing.T) {
	registry, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	for _, eventType := range []enums.OutboxEventType{enums.EventRefundRequired, enums.EventPaymentMismatch} {
		row := envelopeRow(t, eventType, payloads.RefundRequiredEvent{OrderID: uuid.New()})
		resolved, err := registry.Resolve(row)
		if err != nil {
			t.Fatalf("Resolve(%s): %v", eventType, err)
		}
		if resolved.Descriptor.Topic != "notifications" {
			t.Fatalf("expected notifications topic for %s, got %s", eventType, resolved.Descriptor.Topic)
		}
	}
}

func TestResolve_unknownEventTypeIsNonRetryable(t *testing.T) {
	registry, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	row := envelopeRow(t, enums.OutboxEventType("license_granted"), payloads.OrderCreatedEvent{})
	_, err = registry.Resolve(row)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestResolve_aggregateMismatchIsNonRetryable(t *testing.T) {
	registry, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	row := envelopeRow(t, enums.EventOrderCreated, payloads.OrderCreatedEvent{})
	row.AggregateType = enums.AggregatePromoCode
	_, err = registry.Resolve(row)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestResolve_emptyPayloadIsNonRetryable(t *testing.T) {
	registry, err := NewEventRegistry(testConfig())
	if err != nil {
		t.Fatalf("NewEventRegistry: %v", err)
	}

	envelope := outbox.PayloadEnvelope{Version: 1, EventID: uuid.NewString(), OccurredAt: time.Now()}
	payload, _ := json.Marshal(envelope)
	row := models.OutboxEvent{
		ID:            uuid.New(),
		EventType:     enums.EventOrderCreated,
		AggregateType: enums.AggregateOrder,
		AggregateID:   uuid.New(),
		Payload:       payload,
	}
	_, err = registry.Resolve(row)
	var nonRetry NonRetryableError
	if !errors.As(err, &nonRetry) {
		t.Fatalf("expected non-retryable error, got %v", err)
	}
}

func TestNewEventRegistry_requiresTopics(t *testing.T) {
	if _, err := NewEventRegistry(config.PubSubConfig{NotificationTopic: "n"}); err == nil {
		t.Fatal("expected error without orders topic")
	}
	if _, err := NewEventRegistry(config.PubSubConfig{OrdersTopic: "o"}); err == nil {
		t.Fatal("expected error without notification topic")
	}
}
