package queue

import (
	"context"

	"github.com/sirupsen/logrus"
)

var _ Queue = (*MemoryQueue)(nil)

// MemoryQueue delivers events over a buffered channel. When the buffer
// is full the event is dropped rather than blocking the publisher.
type MemoryQueue struct {
	events chan *Event
}

func NewMemoryQueue(size int) *MemoryQueue {
	if size <= 0 {
		size = 64
	}
	return &MemoryQueue{events: make(chan *Event, size)}
}

func (m *MemoryQueue) Publish(ctx context.Context, event *Event) error {
	select {
	case m.events <- event:
	default:
		logrus.Warnf("event queue full, dropping event %s for version %s", event.Name, event.VersionID)
	}
	return nil
}

// Events exposes the subscription channel.
func (m *MemoryQueue) Events() <-chan *Event {
	return m.events
}
