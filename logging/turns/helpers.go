package turns

import "gridtactics/server/logging"

const (
	// EventTurnStarted is emitted after the queue for a new turn is built.
	EventTurnStarted logging.EventType = "turns.turn_started"
	// EventTurnEnded is emitted after end-of-turn hooks ran.
	EventTurnEnded logging.EventType = "turns.turn_ended"
	// EventUnitTurnStarted is emitted before a unit acts.
	EventUnitTurnStarted logging.EventType = "turns.unit_turn_started"
	// EventUnitTurnEnded is emitted after a unit's action fully resolved.
	EventUnitTurnEnded logging.EventType = "turns.unit_turn_ended"
	// EventUnitSkipped is emitted when a control effect prevents a unit from acting.
	EventUnitSkipped logging.EventType = "turns.unit_skipped"
	// EventActionWarning is emitted when missing data turns an action into a no-op.
	EventActionWarning logging.EventType = "turns.action_warning"
)

// TurnStartedPayload lists the acting order for the turn.
type TurnStartedPayload struct {
	Order []string `json:"order"`
}

// UnitTurnPayload identifies the queue slot of the acting unit.
type UnitTurnPayload struct {
	Index  int    `json:"index"`
	Action string `json:"action,omitempty"`
}

// UnitSkippedPayload names the effect that blocked the unit.
type UnitSkippedPayload struct {
	StatusEffect string `json:"statusEffect"`
}

// ActionWarningPayload explains why a unit did nothing.
type ActionWarningPayload struct {
	Reason string `json:"reason"`
	Skill  string `json:"skill,omitempty"`
	Class  string `json:"class,omitempty"`
}

// TurnStarted builds a turn-start event.
func TurnStarted(turn int, battle logging.EntityRef, payload TurnStartedPayload) logging.Event {
	return turnEvent(EventTurnStarted, turn, battle, logging.SeverityInfo, payload)
}

// TurnEnded builds a turn-end event.
func TurnEnded(turn int, battle logging.EntityRef) logging.Event {
	return turnEvent(EventTurnEnded, turn, battle, logging.SeverityDebug, nil)
}

// UnitTurnStarted builds a unit-turn-start event.
func UnitTurnStarted(turn int, unit logging.EntityRef, payload UnitTurnPayload) logging.Event {
	return turnEvent(EventUnitTurnStarted, turn, unit, logging.SeverityInfo, payload)
}

// UnitTurnEnded builds a unit-turn-end event.
func UnitTurnEnded(turn int, unit logging.EntityRef, payload UnitTurnPayload) logging.Event {
	return turnEvent(EventUnitTurnEnded, turn, unit, logging.SeverityInfo, payload)
}

// UnitSkipped builds a skipped-unit event.
func UnitSkipped(turn int, unit logging.EntityRef, payload UnitSkippedPayload) logging.Event {
	return turnEvent(EventUnitSkipped, turn, unit, logging.SeverityInfo, payload)
}

// ActionWarning builds a recoverable data-gap warning.
func ActionWarning(turn int, unit logging.EntityRef, payload ActionWarningPayload) logging.Event {
	return turnEvent(EventActionWarning, turn, unit, logging.SeverityWarn, payload)
}

func turnEvent(typ logging.EventType, turn int, actor logging.EntityRef, severity logging.Severity, payload any) logging.Event {
	return logging.Event{
		Type:     typ,
		Turn:     turn,
		Actor:    actor,
		Severity: severity,
		Category: logging.CategoryTurns,
		Payload:  payload,
	}
}
