package sim

import (
	"context"

	"gridtactics/server/logging"
)

// Outbox collects the events produced by a state transition.
type Outbox struct {
	events []logging.Event
}

// Append records events in order.
func (o *Outbox) Append(events ...logging.Event) {
	o.events = append(o.events, events...)
}

// Len reports how many events are waiting.
func (o *Outbox) Len() int {
	return len(o.events)
}

// Drain returns the collected events and empties the outbox.
func (o *Outbox) Drain() []logging.Event {
	events := o.events
	o.events = nil
	return events
}

// Dispatcher is the single place where transition events reach the
// publisher. It stamps the battle id and time on each event.
type Dispatcher struct {
	publisher logging.Publisher
	clock     logging.Clock
}

// NewDispatcher constructs a dispatcher for one battle.
func NewDispatcher(publisher logging.Publisher, battleID string, clock logging.Clock) *Dispatcher {
	if publisher == nil {
		publisher = logging.NopPublisher()
	}
	if clock == nil {
		clock = logging.SystemClock{}
	}
	return &Dispatcher{publisher: logging.WithBattle(publisher, battleID), clock: clock}
}

// Dispatch publishes events in order.
func (d *Dispatcher) Dispatch(ctx context.Context, events []logging.Event) {
	for _, event := range events {
		if event.Time.IsZero() {
			event.Time = d.clock.Now()
		}
		d.publisher.Publish(ctx, event)
	}
}
