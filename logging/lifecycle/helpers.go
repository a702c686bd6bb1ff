package lifecycle

import "gridtactics/server/logging"

const (
	// EventBattleStarted is emitted when a battle begins.
	EventBattleStarted logging.EventType = "lifecycle.battle_started"
	// EventBattleEnded is emitted once when a battle reaches a terminal state.
	EventBattleEnded logging.EventType = "lifecycle.battle_ended"
	// EventUnitSpawned is emitted when a unit is placed on the grid.
	EventUnitSpawned logging.EventType = "lifecycle.unit_spawned"
)

// BattleStartedPayload captures the start signal parameters.
type BattleStartedPayload struct {
	MapID      string `json:"mapId,omitempty"`
	Difficulty string `json:"difficulty,omitempty"`
	Units      int    `json:"units"`
	Seed       int64  `json:"seed"`
}

// BattleEndedPayload reports the terminal reason.
type BattleEndedPayload struct {
	Reason string `json:"reason"`
	Winner string `json:"winner,omitempty"`
	Turns  int    `json:"turns"`
}

// UnitSpawnedPayload captures spawn metadata.
type UnitSpawnedPayload struct {
	Class   string `json:"class"`
	Team    string `json:"team"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
	HP      int    `json:"hp"`
	Barrier int    `json:"barrier"`
}

// BattleStarted builds a battle-start event.
func BattleStarted(battle logging.EntityRef, payload BattleStartedPayload) logging.Event {
	return logging.Event{
		Type:     EventBattleStarted,
		Actor:    battle,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	}
}

// BattleEnded builds a battle-end event.
func BattleEnded(turn int, battle logging.EntityRef, payload BattleEndedPayload) logging.Event {
	return logging.Event{
		Type:     EventBattleEnded,
		Turn:     turn,
		Actor:    battle,
		Severity: logging.SeverityInfo,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	}
}

// UnitSpawned builds a spawn event.
func UnitSpawned(unit logging.EntityRef, payload UnitSpawnedPayload) logging.Event {
	return logging.Event{
		Type:     EventUnitSpawned,
		Actor:    unit,
		Severity: logging.SeverityDebug,
		Category: logging.CategoryLifecycle,
		Payload:  payload,
	}
}
