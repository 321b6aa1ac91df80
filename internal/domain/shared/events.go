package shared

import (
	"context"
	"sync"
	"time"
)

// DomainEvent represents an event that has occurred in the domain
type DomainEvent interface {
	EventName() string
	OccurredAt() time.Time
}

// EventHandler handles domain events
type EventHandler func(ctx context.Context, event DomainEvent) error

// EventDispatcher routes events to handlers registered by event name.
// It is safe for concurrent use.
type EventDispatcher struct {
	mu       sync.RWMutex
	handlers map[string][]EventHandler
}

// NewEventDispatcher creates an empty dispatcher.
func NewEventDispatcher() *EventDispatcher {
	return &EventDispatcher{handlers: make(map[string][]EventHandler)}
}

// Register adds a handler for eventName.
func (d *EventDispatcher) Register(eventName string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.handlers[eventName] = append(d.handlers[eventName], handler)
}

// Handlers returns the number of handlers registered for eventName.
func (d *EventDispatcher) Handlers(eventName string) int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.handlers[eventName])
}

// Dispatch runs every handler for the event and returns the first error.
// All handlers run even if an earlier one fails.
func (d *EventDispatcher) Dispatch(ctx context.Context, event DomainEvent) error {
	d.mu.RLock()
	handlers := append([]EventHandler(nil), d.handlers[event.EventName()]...)
	d.mu.RUnlock()

	var first error
	for _, h := range handlers {
		if err := h(ctx, event); err != nil && first == nil {
			first = err
		}
	}
	return first
}
