package outbox

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// ActorRef identifies who produced the event.
type ActorRef struct {
	Kind string     `json:"kind"`
	ID   *uuid.UUID `json:"id,omitempty"`
}

// SystemActor is used for events produced by workers rather than people.
func SystemActor() *ActorRef {
	return &ActorRef{Kind: "system"}
}

// AdminActor is used for events produced by an admin edit.
func AdminActor(id uuid.UUID) *ActorRef {
	return &ActorRef{Kind: "admin", ID: &id}
}

// PayloadEnvelope is the stable payload structure stored in outbox_events.
type PayloadEnvelope struct {
	Version    int             `json:"version"`
	EventID    string          `json:"eventId"`
	OccurredAt time.Time       `json:"occurredAt"`
	Actor      *ActorRef       `json:"actor,omitempty"`
	Data       json.RawMessage `json:"data"`
}
