package state

import (
	"sort"

	"gridtactics/server/stats"
)

// Team identifies which side of the battle a unit fights for.
type Team string

const (
	TeamAlly  Team = "ally"
	TeamEnemy Team = "enemy"
)

// Opponent returns the opposing team.
func (t Team) Opponent() Team {
	if t == TeamAlly {
		return TeamEnemy
	}
	return TeamAlly
}

// Valid reports whether t is one of the known teams.
func (t Team) Valid() bool {
	return t == TeamAlly || t == TeamEnemy
}

// MaxSkillSlots bounds the number of action skills a unit may carry.
const MaxSkillSlots = 3

// StatusEffectInstance is a status effect attached to a unit.
type StatusEffectInstance struct {
	DefinitionID   string `json:"definitionId"`
	RemainingTurns int    `json:"remainingTurns"`
	SourceUnitID   string `json:"sourceUnitId,omitempty"`
	// AppliedTurn is the turn the instance was first attached. Refreshing
	// keeps it.
	AppliedTurn int `json:"appliedTurn"`
}

// UnitData carries everything a spawn collaborator supplies for a new unit.
type UnitData struct {
	ID         string
	Name       string
	ClassID    string
	Team       Team
	BaseStats  stats.ValueSet
	SkillSlots []string
	Tags       []string
}

// Unit is the mutable combat entity owned by the ledger.
type Unit struct {
	ID      string
	Name    string
	ClassID string
	Team    Team
	X       int
	Y       int

	Stats          stats.Component
	CurrentHP      int
	CurrentBarrier int
	MaxBarrier     int

	SkillSlots    []string
	StatusEffects []StatusEffectInstance
	Tags          map[string]struct{}

	// Order is the insertion index assigned by the ledger.
	Order int
}

// Alive reports whether the unit still has hit points.
func (u *Unit) Alive() bool {
	return u != nil && u.CurrentHP > 0
}

// MaxHP returns the base hit point cap.
func (u *Unit) MaxHP() int {
	return u.Stats.Int(stats.StatHP)
}

// Stat returns the effective value of a stat including active modifiers.
func (u *Unit) Stat(id stats.StatID) int {
	return u.Stats.Int(id)
}

// HasTag reports whether the unit carries tag.
func (u *Unit) HasTag(tag string) bool {
	_, ok := u.Tags[tag]
	return ok
}

// HasTags reports whether every required tag is present.
func (u *Unit) HasTags(required []string) bool {
	for _, tag := range required {
		if !u.HasTag(tag) {
			return false
		}
	}
	return true
}

// StatusEffect returns the active instance for a definition, if any.
func (u *Unit) StatusEffect(definitionID string) (*StatusEffectInstance, bool) {
	for i := range u.StatusEffects {
		if u.StatusEffects[i].DefinitionID == definitionID {
			return &u.StatusEffects[i], true
		}
	}
	return nil, false
}

// TagList returns the tags in sorted order.
func (u *Unit) TagList() []string {
	out := make([]string, 0, len(u.Tags))
	for tag := range u.Tags {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
