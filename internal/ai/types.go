package ai

import (
	"gridtactics/server/internal/catalog"
)

// Kind enumerates the outcomes of a decision.
type Kind uint8

const (
	// DecisionNone means the unit does nothing this turn.
	DecisionNone Kind = iota
	// DecisionSkill runs a skill routine.
	DecisionSkill
	// DecisionBasic moves toward the nearest opponent and optionally attacks.
	DecisionBasic
)

// Warning reasons attached to DecisionNone outcomes caused by data gaps.
const (
	ReasonMissingClass   = "missing_class"
	ReasonMissingSkill   = "missing_skill"
	ReasonNoTarget       = "no_target"
	ReasonUnknownRoutine = "unknown_routine"
)

// Point is a grid cell.
type Point struct {
	X int
	Y int
}

// Warning describes why a decision degraded to doing nothing.
type Warning struct {
	Reason string
	Skill  string
	Class  string
}

// Decision is the single action chosen for a unit's turn.
type Decision struct {
	Kind Kind

	// Skill is set for DecisionSkill.
	Skill catalog.Skill

	// TargetID is the unit the skill or attack is aimed at. Empty for
	// self-targeted skills and basic moves without an attack.
	TargetID string

	// MoveTo is the destination when the action includes movement.
	MoveTo *Point

	// Attack is true when a basic or charge action ends in an attack.
	Attack bool

	// Draw is the roulette value used for skill selection, or -1 when no
	// draw was taken.
	Draw float64

	Warning *Warning
}

// Action renders a short label for the decision.
func (d Decision) Action() string {
	switch d.Kind {
	case DecisionSkill:
		return "skill:" + d.Skill.ID
	case DecisionBasic:
		switch {
		case d.MoveTo != nil && d.Attack:
			return "move+attack"
		case d.Attack:
			return "attack"
		case d.MoveTo != nil:
			return "move"
		}
		return "wait"
	}
	return "none"
}

func none(draw float64, warning *Warning) Decision {
	return Decision{Kind: DecisionNone, Draw: draw, Warning: warning}
}
