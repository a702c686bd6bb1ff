package status_effects

import "gridtactics/server/logging"

const (
	// EventApplied is emitted when a status effect is applied to a unit.
	EventApplied logging.EventType = "status_effects.applied"
	// EventRemoved is emitted when an expired instance is dropped.
	EventRemoved logging.EventType = "status_effects.removed"
	// EventTicked is emitted when a periodic effect fires.
	EventTicked logging.EventType = "status_effects.ticked"
)

// AppliedPayload captures details about a status effect application.
type AppliedPayload struct {
	StatusEffect string `json:"statusEffect"`
	SourceID     string `json:"sourceId,omitempty"`
	Turns        int    `json:"turns"`
	Refreshed    bool   `json:"refreshed,omitempty"`
}

// RemovedPayload names the expired effect.
type RemovedPayload struct {
	StatusEffect string `json:"statusEffect"`
}

// TickedPayload captures the periodic outcome of one instance.
type TickedPayload struct {
	StatusEffect   string `json:"statusEffect"`
	Damage         int    `json:"damage,omitempty"`
	Heal           int    `json:"heal,omitempty"`
	RemainingTurns int    `json:"remainingTurns"`
}

// Applied builds a status effect application event.
func Applied(turn int, actor, target logging.EntityRef, payload AppliedPayload) logging.Event {
	return logging.Event{
		Type:     EventApplied,
		Turn:     turn,
		Actor:    actor,
		Targets:  []logging.EntityRef{target},
		Severity: logging.SeverityInfo,
		Category: logging.CategoryStatusEffects,
		Payload:  payload,
	}
}

// Removed builds a status effect removal event.
func Removed(turn int, target logging.EntityRef, payload RemovedPayload) logging.Event {
	return logging.Event{
		Type:     EventRemoved,
		Turn:     turn,
		Actor:    target,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryStatusEffects,
		Payload:  payload,
	}
}

// Ticked builds a periodic tick event.
func Ticked(turn int, target logging.EntityRef, payload TickedPayload) logging.Event {
	return logging.Event{
		Type:     EventTicked,
		Turn:     turn,
		Actor:    target,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryStatusEffects,
		Payload:  payload,
	}
}
