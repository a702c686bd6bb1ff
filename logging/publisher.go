package logging

import (
	"context"
	"maps"
	"time"
)

type EventType string

type Severity int

const (
	SeverityDebug Severity = iota
	SeverityInfo
	SeverityWarn
	SeverityError
	// SeverityCritical marks failures that halt a battle.
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityDebug:
		return "debug"
	case SeverityInfo:
		return "info"
	case SeverityWarn:
		return "warn"
	case SeverityError:
		return "error"
	case SeverityCritical:
		return "critical"
	default:
		return "unknown"
	}
}

type EntityKind string

const (
	EntityKindUnknown EntityKind = "unknown"
	EntityKindUnit    EntityKind = "unit"
	EntityKindBattle  EntityKind = "battle"
	EntityKindSystem  EntityKind = "system"
)

type Event struct {
	Type     EventType      `json:"type"`
	Turn     int            `json:"turn"`
	Time     time.Time      `json:"time"`
	Actor    EntityRef      `json:"actor"`
	Targets  []EntityRef    `json:"targets,omitempty"`
	Severity Severity       `json:"severity"`
	Category string         `json:"category,omitempty"`
	Payload  any            `json:"payload,omitempty"`
	Extra    map[string]any `json:"extra,omitempty"`
	BattleID string         `json:"battleId,omitempty"`
}

type EntityRef struct {
	ID   string     `json:"id"`
	Kind EntityKind `json:"kind"`
}

// UnitRef builds a reference to a combat unit.
func UnitRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindUnit}
}

// BattleRef builds a reference to the battle itself.
func BattleRef(id string) EntityRef {
	return EntityRef{ID: id, Kind: EntityKindBattle}
}

const (
	CategoryTurns         = "turns"
	CategoryCombat        = "combat"
	CategoryStatusEffects = "status_effects"
	CategoryLifecycle     = "lifecycle"
	CategorySystem        = "system"
)

type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type PublisherFunc func(ctx context.Context, event Event)

func (f PublisherFunc) Publish(ctx context.Context, event Event) {
	if f == nil {
		return
	}
	f(ctx, event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(context.Context, Event) {}

func NopPublisher() Publisher {
	return nopPublisher{}
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time {
	return time.Now()
}

// Clone copies the targets and extra fields so the copy can be mutated
// independently. Payload is shared.
func (e Event) Clone() Event {
	cloned := e
	if len(e.Targets) > 0 {
		cloned.Targets = append([]EntityRef(nil), e.Targets...)
	}
	if e.Extra != nil {
		cloned.Extra = maps.Clone(e.Extra)
	}
	return cloned
}

// withDefaults fills Extra with fields the event does not set itself.
func withDefaults(event Event, fields map[string]any) Event {
	if len(fields) == 0 {
		return event
	}
	event = event.Clone()
	if event.Extra == nil {
		event.Extra = make(map[string]any, len(fields))
	}
	for k, v := range fields {
		if _, set := event.Extra[k]; !set {
			event.Extra[k] = v
		}
	}
	return event
}

// WithBattle stamps every event that does not already carry a battle id.
func WithBattle(p Publisher, battleID string) Publisher {
	if p == nil {
		return NopPublisher()
	}
	if battleID == "" {
		return p
	}
	return PublisherFunc(func(ctx context.Context, event Event) {
		if event.BattleID == "" {
			event.BattleID = battleID
		}
		p.Publish(ctx, event)
	})
}
