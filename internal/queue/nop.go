package queue

import "context"

var _ Queue = (*Nop)(nil)

// Nop drops every event.
type Nop struct{}

func NewNop() *Nop {
	return &Nop{}
}

func (n *Nop) Publish(ctx context.Context, event *Event) error {
	return nil
}
