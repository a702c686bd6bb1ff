package stats

import "math"

// Snapshot is a read-only copy of resolved stats for observers.
type Snapshot struct {
	Totals    ValueSet
	Derived   DerivedSet
	Modifiers []SourceKey
	Version   uint64
}

func (c *Component) Snapshot() Snapshot {
	snap := Snapshot{Totals: c.totals, Derived: c.derived, Version: c.version}
	if len(c.modifiers) > 0 {
		snap.Modifiers = make([]SourceKey, len(c.modifiers))
		for i, m := range c.modifiers {
			snap.Modifiers[i] = m.source
		}
	}
	return snap
}

// Map keys the rounded totals by catalog stat name.
func (s Snapshot) Map() map[string]int {
	out := make(map[string]int, StatCount)
	for id, v := range s.Totals {
		out[StatID(id).String()] = int(math.Round(v))
	}
	return out
}
