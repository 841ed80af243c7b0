// Package eventbus provides the publish/subscribe infrastructure carrying
// execution status events between the runner and the monitor.
package eventbus

import (
	"context"

	"github.com/flowgrid/flowgrid/pkg/events"
)

// Event is any typed message publishable on the bus.
type Event interface {
	GetType() events.EventType
}

// EventPublisher publishes events keyed by execution id.
type EventPublisher interface {
	Publish(ctx context.Context, executionID string, event Event) error
}

// EventHandler processes one decoded event.
type EventHandler func(ctx context.Context, event any) error

// EventSubscriber dispatches incoming events to registered handlers.
type EventSubscriber interface {
	Handle(eventType events.EventType, handler EventHandler) error
	Subscribe(ctx context.Context) error
}

// EventBus is the full bus contract.
type EventBus interface {
	EventPublisher
	EventSubscriber
	Close() error
	GenerateID() string
}
