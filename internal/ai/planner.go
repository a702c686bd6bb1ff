package ai

import (
	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/world"
)

// Grid answers the occupancy questions movement planning needs.
type Grid interface {
	InBounds(x, y int) bool
	IsTileOccupied(x, y int, excludeID string) bool
}

// Planner chooses one action per unit turn. It never mutates units.
type Planner struct {
	lookup catalog.Lookup
	roller *dice.Roller
}

// NewPlanner constructs a planner reading static data from lookup and
// drawing randomness from roller.
func NewPlanner(lookup catalog.Lookup, roller *dice.Roller) *Planner {
	return &Planner{lookup: lookup, roller: roller}
}

// Decide produces the unit's action against the live roster.
func (p *Planner) Decide(unit *state.Unit, roster []*state.Unit, grid Grid) Decision {
	class, ok := p.lookup.Class(unit.ClassID)
	if !ok {
		return none(-1, &Warning{Reason: ReasonMissingClass, Class: unit.ClassID})
	}

	candidates := make([]catalog.Skill, 0, len(unit.SkillSlots))
	for _, id := range unit.SkillSlots {
		skill, ok := p.lookup.Skill(id)
		if !ok {
			return none(-1, &Warning{Reason: ReasonMissingSkill, Skill: id, Class: class.ID})
		}
		if !skill.Type.Selectable() || !unit.HasTags(skill.RequiredTags) {
			continue
		}
		candidates = append(candidates, skill)
	}

	draw := -1.0
	if len(candidates) > 0 {
		draw = p.roller.Percent()
		if idx, ok := Select(candidates, draw); ok {
			decision := p.runRoutine(unit, class, candidates[idx], roster, grid)
			decision.Draw = draw
			return decision
		}
	}

	decision := p.basic(unit, class, roster, grid)
	decision.Draw = draw
	return decision
}

// Select walks candidates in slot order accumulating probabilities and
// returns the first whose cumulative threshold exceeds draw. When the total
// does not exceed draw nothing is selected.
func Select(candidates []catalog.Skill, draw float64) (int, bool) {
	cumulative := 0.0
	for i, skill := range candidates {
		cumulative += float64(skill.Probability)
		if cumulative > draw {
			return i, true
		}
	}
	return -1, false
}

func (p *Planner) runRoutine(unit *state.Unit, class catalog.Class, skill catalog.Skill, roster []*state.Unit, grid Grid) Decision {
	noTarget := none(0, &Warning{Reason: ReasonNoTarget, Skill: skill.ID, Class: class.ID})
	reach := skillRange(skill, class)

	switch skill.Effect.Routine {
	case catalog.RoutineCharge:
		target := lowestHP(opponents(unit, roster))
		if target == nil {
			return noTarget
		}
		dest := approach(unit, target, class.MoveRange+skill.Effect.BonusMove, class.AttackRange, grid)
		decision := Decision{Kind: DecisionSkill, Skill: skill, TargetID: target.ID}
		if dest != (Point{X: unit.X, Y: unit.Y}) {
			decision.MoveTo = &dest
		}
		decision.Attack = world.Distance(dest.X, dest.Y, target.X, target.Y) <= class.AttackRange
		return decision

	case catalog.RoutineStrike, catalog.RoutineHex:
		target := lowestHP(withinRange(unit, opponents(unit, roster), reach))
		if target == nil {
			return noTarget
		}
		return Decision{Kind: DecisionSkill, Skill: skill, TargetID: target.ID, Attack: skill.Effect.Routine == catalog.RoutineStrike}

	case catalog.RoutineEmpower:
		return Decision{Kind: DecisionSkill, Skill: skill}

	case catalog.RoutineMend:
		target := mostWounded(withinRange(unit, allies(unit, roster), reach))
		if target == nil {
			return noTarget
		}
		return Decision{Kind: DecisionSkill, Skill: skill, TargetID: target.ID}
	}
	return none(0, &Warning{Reason: ReasonUnknownRoutine, Skill: skill.ID, Class: class.ID})
}

func (p *Planner) basic(unit *state.Unit, class catalog.Class, roster []*state.Unit, grid Grid) Decision {
	foes := opponents(unit, roster)
	target := nearest(unit, foes)
	if target == nil {
		return Decision{Kind: DecisionNone}
	}
	dest := approach(unit, target, class.MoveRange, class.AttackRange, grid)
	decision := Decision{Kind: DecisionBasic}
	if dest != (Point{X: unit.X, Y: unit.Y}) {
		decision.MoveTo = &dest
	}

	victim := target
	if world.Distance(dest.X, dest.Y, target.X, target.Y) > class.AttackRange {
		victim = nil
		best := -1
		for _, foe := range foes {
			if world.Distance(dest.X, dest.Y, foe.X, foe.Y) > class.AttackRange {
				continue
			}
			if victim == nil || foe.CurrentHP < best {
				victim, best = foe, foe.CurrentHP
			}
		}
	}
	if victim != nil {
		decision.Attack = true
		decision.TargetID = victim.ID
	}
	return decision
}

// approach steps toward target along a direct line for at most steps tiles,
// stopping once within attackRange or when the line is blocked.
func approach(unit, target *state.Unit, steps, attackRange int, grid Grid) Point {
	x, y := unit.X, unit.Y
	for i := 0; i < steps; i++ {
		if world.Distance(x, y, target.X, target.Y) <= attackRange {
			break
		}
		next, ok := nextStep(unit.ID, x, y, target.X, target.Y, grid)
		if !ok {
			break
		}
		x, y = next.X, next.Y
	}
	return Point{X: x, Y: y}
}

func nextStep(selfID string, x, y, tx, ty int, grid Grid) (Point, bool) {
	dx, dy := world.StepToward(x, y, tx, ty)
	options := []Point{{X: dx, Y: dy}, {X: dx, Y: y}, {X: x, Y: dy}}
	current := world.Distance(x, y, tx, ty)
	for _, opt := range options {
		if opt.X == x && opt.Y == y {
			continue
		}
		if !grid.InBounds(opt.X, opt.Y) || grid.IsTileOccupied(opt.X, opt.Y, selfID) {
			continue
		}
		if world.Distance(opt.X, opt.Y, tx, ty) >= current {
			continue
		}
		return opt, true
	}
	return Point{}, false
}

func skillRange(skill catalog.Skill, class catalog.Class) int {
	if skill.Effect.Range > 0 {
		return skill.Effect.Range
	}
	return class.AttackRange
}

func opponents(unit *state.Unit, roster []*state.Unit) []*state.Unit {
	out := make([]*state.Unit, 0, len(roster))
	for _, other := range roster {
		if other.Alive() && other.Team != unit.Team {
			out = append(out, other)
		}
	}
	return out
}

func allies(unit *state.Unit, roster []*state.Unit) []*state.Unit {
	out := make([]*state.Unit, 0, len(roster))
	for _, other := range roster {
		if other.Alive() && other.Team == unit.Team {
			out = append(out, other)
		}
	}
	return out
}

func withinRange(unit *state.Unit, units []*state.Unit, reach int) []*state.Unit {
	out := make([]*state.Unit, 0, len(units))
	for _, other := range units {
		if world.Distance(unit.X, unit.Y, other.X, other.Y) <= reach {
			out = append(out, other)
		}
	}
	return out
}

// lowestHP returns the unit with the least current HP; the earliest in
// roster order wins ties.
func lowestHP(units []*state.Unit) *state.Unit {
	var best *state.Unit
	for _, u := range units {
		if best == nil || u.CurrentHP < best.CurrentHP {
			best = u
		}
	}
	return best
}

// nearest returns the closest unit by grid distance, then lowest HP.
func nearest(unit *state.Unit, units []*state.Unit) *state.Unit {
	var best *state.Unit
	bestDist := 0
	for _, u := range units {
		d := world.Distance(unit.X, unit.Y, u.X, u.Y)
		if best == nil || d < bestDist || (d == bestDist && u.CurrentHP < best.CurrentHP) {
			best, bestDist = u, d
		}
	}
	return best
}

// mostWounded returns the ally with the lowest HP ratio that is not at full
// health.
func mostWounded(units []*state.Unit) *state.Unit {
	var best *state.Unit
	bestRatio := 1.0
	for _, u := range units {
		maxHP := u.MaxHP()
		if maxHP <= 0 || u.CurrentHP >= maxHP {
			continue
		}
		ratio := float64(u.CurrentHP) / float64(maxHP)
		if best == nil || ratio < bestRatio {
			best, bestRatio = u, ratio
		}
	}
	return best
}
