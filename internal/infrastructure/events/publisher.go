// Package events delivers domain events to their consumers: the plan history
// store, a Kafka topic and an S3 archive.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/alchemorsel/nutriplan/internal/domain/mealplan"
	"github.com/alchemorsel/nutriplan/internal/domain/shared"
	"github.com/alchemorsel/nutriplan/internal/ports/outbound"
)

// Publisher implements outbound.EventPublisher on top of a dispatcher.
// Handlers run synchronously, each bounded by the handler timeout.
type Publisher struct {
	dispatcher     *shared.EventDispatcher
	handlerTimeout time.Duration
	logger         *zap.Logger
}

// NewPublisher creates a publisher over dispatcher
func NewPublisher(dispatcher *shared.EventDispatcher, handlerTimeout time.Duration, logger *zap.Logger) *Publisher {
	if handlerTimeout <= 0 {
		handlerTimeout = 5 * time.Second
	}
	return &Publisher{
		dispatcher:     dispatcher,
		handlerTimeout: handlerTimeout,
		logger:         logger.Named("event-publisher"),
	}
}

var _ outbound.EventPublisher = (*Publisher)(nil)

// Subscribe registers a handler for one event name
func (p *Publisher) Subscribe(eventName string, handler shared.EventHandler) {
	p.dispatcher.Register(eventName, func(ctx context.Context, event shared.DomainEvent) error {
		ctx, cancel := context.WithTimeout(ctx, p.handlerTimeout)
		defer cancel()
		return handler(ctx, event)
	})
}

// Publish dispatches event to every subscribed handler
func (p *Publisher) Publish(ctx context.Context, event shared.DomainEvent) error {
	if err := p.dispatcher.Dispatch(ctx, event); err != nil {
		return fmt.Errorf("dispatch %s: %w", event.EventName(), err)
	}
	p.logger.Debug("Event published",
		zap.String("event", event.EventName()),
		zap.Time("occurred_at", event.OccurredAt()),
	)
	return nil
}

// planEvent narrows a domain event to a generated plan
func planEvent(event shared.DomainEvent) (mealplan.PlanGeneratedEvent, error) {
	switch e := event.(type) {
	case mealplan.PlanGeneratedEvent:
		return e, nil
	case *mealplan.PlanGeneratedEvent:
		return *e, nil
	default:
		return mealplan.PlanGeneratedEvent{}, fmt.Errorf("unexpected event type %T", event)
	}
}

// Envelope is the wire format of events sent to Kafka and S3
type Envelope struct {
	Event      string          `json:"event"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// Encode wraps an event in its envelope
func Encode(event shared.DomainEvent) ([]byte, error) {
	payload, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", event.EventName(), err)
	}
	return json.Marshal(Envelope{
		Event:      event.EventName(),
		OccurredAt: event.OccurredAt().UTC(),
		Payload:    payload,
	})
}
