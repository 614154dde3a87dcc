package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/emrgen/revision/internal/model"
)

// Event names emitted on version lifecycle transitions.
const (
	EventVersionCreated   = "version.created"
	EventVersionPublished = "version.published"
	EventVersionDeleted   = "version.deleted"
)

// Event is a lifecycle notification. Delivery is best-effort; the
// engine never blocks a transaction on it.
type Event struct {
	Name          string      `json:"name"`
	Scope         model.Scope `json:"scope"`
	VersionID     string      `json:"version_id"`
	VersionNumber int         `json:"version_number"`
	ActorID       string      `json:"actor_id"`
	OccurredAt    time.Time   `json:"occurred_at"`
}

func (e *Event) MarshalBinary() ([]byte, error) {
	return json.Marshal(e)
}

// Queue publishes lifecycle events to interested subscribers.
type Queue interface {
	// Publish emits an event. Implementations must not block on slow
	// consumers and must swallow delivery failures.
	Publish(ctx context.Context, event *Event) error
}
