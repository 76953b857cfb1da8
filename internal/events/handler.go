// internal/events/handler.go
package events

import (
	"context"
)

// Handler consumes lifecycle events delivered by the Bus. Handlers run on
// the bus goroutine for Publish and on the caller for PublishSync, so they
// must return promptly.
type Handler interface {
	Handle(ctx context.Context, event Event) error
}

// HandlerFunc lets a plain function consume lifecycle events.
type HandlerFunc func(ctx context.Context, event Event) error

func (f HandlerFunc) Handle(ctx context.Context, event Event) error {
	return f(ctx, event)
}

// Subscription is a registered handler for one event type.
type Subscription interface {
	Unsubscribe()
}

type subscription struct {
	id        string
	bus       *Bus
	eventType EventType
}

func (s *subscription) Unsubscribe() {
	s.bus.unsubscribe(s.id, s.eventType)
}
