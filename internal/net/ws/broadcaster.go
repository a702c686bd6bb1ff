package ws

import (
	"context"
	"sync"

	"github.com/gorilla/websocket"

	"gridtactics/server/internal/net/proto"
	"gridtactics/server/internal/telemetry"
	"gridtactics/server/logging"
)

// Broadcaster is a logging sink that forwards battle events to the
// websocket sessions watching that battle.
type Broadcaster struct {
	mu     sync.RWMutex
	subs   map[string]map[*Session]struct{}
	logger telemetry.Logger
}

// NewBroadcaster constructs an empty broadcaster.
func NewBroadcaster(logger telemetry.Logger) *Broadcaster {
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Broadcaster{subs: make(map[string]map[*Session]struct{}), logger: logger}
}

// Subscribe registers a session for a battle's events.
func (b *Broadcaster) Subscribe(battleID string, s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subs[battleID]
	if !ok {
		set = make(map[*Session]struct{})
		b.subs[battleID] = set
	}
	set[s] = struct{}{}
}

// Unsubscribe removes a session.
func (b *Broadcaster) Unsubscribe(battleID string, s *Session) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set := b.subs[battleID]
	delete(set, s)
	if len(set) == 0 {
		delete(b.subs, battleID)
	}
}

// Subscribers reports how many sessions watch a battle.
func (b *Broadcaster) Subscribers(battleID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[battleID])
}

// Accepts implements logging.Filter: only battles with watchers are
// encoded.
func (b *Broadcaster) Accepts(event logging.Event) bool {
	return event.BattleID != "" && b.Subscribers(event.BattleID) > 0
}

// Write implements logging.Sink.
func (b *Broadcaster) Write(event logging.Event) error {
	if event.BattleID == "" {
		return nil
	}
	b.mu.RLock()
	set := b.subs[event.BattleID]
	sessions := make([]*Session, 0, len(set))
	for s := range set {
		sessions = append(sessions, s)
	}
	b.mu.RUnlock()
	if len(sessions) == 0 {
		return nil
	}

	data, err := proto.EncodeEvent(event)
	if err != nil {
		return err
	}
	for _, s := range sessions {
		if err := s.WriteMessage(websocket.TextMessage, data); err != nil {
			b.logger.Printf("[ws] dropping subscriber of %s: %v", event.BattleID, err)
			b.Unsubscribe(event.BattleID, s)
			s.Close()
		}
	}
	return nil
}

// Publish lets the broadcaster stand in for a publisher.
func (b *Broadcaster) Publish(_ context.Context, event logging.Event) {
	if err := b.Write(event); err != nil {
		b.logger.Printf("[ws] broadcast failed: %v", err)
	}
}

// Close implements logging.Sink and disconnects every session.
func (b *Broadcaster) Close(context.Context) error {
	b.mu.Lock()
	subs := b.subs
	b.subs = make(map[string]map[*Session]struct{})
	b.mu.Unlock()
	for _, set := range subs {
		for s := range set {
			s.Close()
		}
	}
	return nil
}
