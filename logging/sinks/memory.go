package sinks

import (
	"context"
	"slices"
	"sync"

	"gridtactics/server/logging"
)

// MemorySink records events for tests and diagnostics.
type MemorySink struct {
	mu     sync.RWMutex
	events []logging.Event
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

func (s *MemorySink) Write(event logging.Event) error {
	s.mu.Lock()
	s.events = append(s.events, event.Clone())
	s.mu.Unlock()
	return nil
}

// Publish lets the sink stand in for a publisher in tests.
func (s *MemorySink) Publish(_ context.Context, event logging.Event) {
	_ = s.Write(event)
}

func (s *MemorySink) Events() []logging.Event {
	return s.filter(func(logging.Event) bool { return true })
}

// EventsOfType returns the recorded events of one type in arrival order.
func (s *MemorySink) EventsOfType(typ logging.EventType) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.Type == typ })
}

// ForBattle returns the recorded events of one battle in arrival order.
func (s *MemorySink) ForBattle(battleID string) []logging.Event {
	return s.filter(func(e logging.Event) bool { return e.BattleID == battleID })
}

func (s *MemorySink) filter(keep func(logging.Event) bool) []logging.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]logging.Event, 0, len(s.events))
	for _, e := range s.events {
		if keep(e) {
			out = append(out, e)
		}
	}
	return slices.Clip(out)
}

func (s *MemorySink) Reset() {
	s.mu.Lock()
	s.events = nil
	s.mu.Unlock()
}

func (s *MemorySink) Close(context.Context) error {
	return nil
}
