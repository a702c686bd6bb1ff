package stats

import (
	"math"
	"slices"
	"strings"
)

// StatID enumerates the attributes tracked for a combat unit.
type StatID uint8

const (
	StatHP StatID = iota
	StatAttack
	StatDefense
	StatSpeed
	StatMagic
	StatValor
	StatStrength
	StatAgility
	StatEndurance
	StatIntelligence
	StatWisdom
	StatResistance
	StatWeight

	StatCount
)

var statNames = [StatCount]string{
	StatHP:           "hp",
	StatAttack:       "attack",
	StatDefense:      "defense",
	StatSpeed:        "speed",
	StatMagic:        "magic",
	StatValor:        "valor",
	StatStrength:     "strength",
	StatAgility:      "agility",
	StatEndurance:    "endurance",
	StatIntelligence: "intelligence",
	StatWisdom:       "wisdom",
	StatResistance:   "resistance",
	StatWeight:       "weight",
}

func (id StatID) String() string {
	if id >= StatCount {
		return "unknown"
	}
	return statNames[id]
}

// StatByName resolves a catalog stat key.
func StatByName(name string) (StatID, bool) {
	key := strings.ToLower(strings.TrimSpace(name))
	for id, n := range statNames {
		if n == key {
			return StatID(id), true
		}
	}
	return 0, false
}

// DerivedID enumerates values computed from the resolved totals.
type DerivedID uint8

const (
	DerivedMaxBarrier DerivedID = iota
	DerivedInitiative

	DerivedCount
)

// SourceKind orders modifiers from different origins.
type SourceKind uint8

const (
	SourceKindUnknown SourceKind = iota
	SourceKindClass
	SourceKindStatusEffect
)

// SourceKey identifies who attached a modifier.
type SourceKey struct {
	Kind SourceKind
	ID   string
}

func (k SourceKey) less(other SourceKey) bool {
	if k.Kind != other.Kind {
		return k.Kind < other.Kind
	}
	return k.ID < other.ID
}

// ValueSet stores one value per stat.
type ValueSet [StatCount]float64

// DerivedSet stores derived values.
type DerivedSet [DerivedCount]float64

// Change attaches, replaces or (with Remove) detaches the additive
// modifier owned by Source.
type Change struct {
	Source SourceKey
	Add    ValueSet
	Remove bool
}

type modifier struct {
	source SourceKey
	add    ValueSet
}

// Component holds a unit's rolled base stats plus the modifiers attached by
// active status effects. Totals are cached until the next Resolve.
type Component struct {
	base      ValueSet
	modifiers []modifier
	totals    ValueSet
	derived   DerivedSet
	dirty     bool
	version   uint64
}

// NewComponent resolves a component over the rolled base stats.
func NewComponent(base ValueSet) Component {
	c := Component{base: base, dirty: true}
	c.Resolve()
	return c
}

// Apply records a change. Totals update on the next Resolve.
func (c *Component) Apply(change Change) {
	if c == nil {
		return
	}
	idx, found := c.find(change.Source)
	switch {
	case change.Remove && found:
		c.modifiers = slices.Delete(c.modifiers, idx, idx+1)
		c.dirty = true
	case change.Remove:
	case found:
		if c.modifiers[idx].add != change.Add {
			c.modifiers[idx].add = change.Add
			c.dirty = true
		}
	default:
		c.modifiers = slices.Insert(c.modifiers, idx, modifier{source: change.Source, add: change.Add})
		c.dirty = true
	}
}

// find locates source in the sorted modifier list, or where it belongs.
func (c *Component) find(source SourceKey) (int, bool) {
	return slices.BinarySearchFunc(c.modifiers, source, func(m modifier, key SourceKey) int {
		switch {
		case m.source == key:
			return 0
		case m.source.less(key):
			return -1
		default:
			return 1
		}
	})
}

// HasSource reports whether a modifier from source is attached.
func (c *Component) HasSource(source SourceKey) bool {
	if c == nil {
		return false
	}
	_, found := c.find(source)
	return found
}

// Resolve sums base and modifiers in source order and recomputes derived
// values.
func (c *Component) Resolve() {
	if c == nil || !c.dirty {
		return
	}
	total := c.base
	for _, m := range c.modifiers {
		for i := range total {
			total[i] += m.add[i]
		}
	}
	c.totals = total
	c.derived = computeDerived(total)
	c.version++
	c.dirty = false
}

// Base returns the rolled stats without modifiers.
func (c *Component) Base() ValueSet {
	return c.base
}

func (c *Component) Totals() ValueSet {
	return c.totals
}

func (c *Component) GetTotal(id StatID) float64 {
	if id >= StatCount {
		return 0
	}
	return c.totals[id]
}

// Int returns the cached total rounded to the nearest integer.
func (c *Component) Int(id StatID) int {
	return int(math.Round(c.GetTotal(id)))
}

func (c *Component) GetDerived(id DerivedID) float64 {
	if id >= DerivedCount {
		return 0
	}
	return c.derived[id]
}

// Version increments on every effective resolve.
func (c *Component) Version() uint64 {
	return c.version
}

// Clone copies the component so later changes do not leak into snapshots.
func (c *Component) Clone() Component {
	clone := *c
	clone.modifiers = slices.Clone(c.modifiers)
	return clone
}
