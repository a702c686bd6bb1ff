package sim

import (
	"sort"

	"gridtactics/server/internal/state"
	"gridtactics/server/stats"
)

// EffectiveSpeed is the value turn order sorts by.
func EffectiveSpeed(unit *state.Unit) int {
	return unit.Stat(stats.StatSpeed)
}

// TurnOrder returns the ids of the live units sorted by descending effective
// speed, ties broken by ledger insertion order.
func TurnOrder(units []*state.Unit) []string {
	live := make([]*state.Unit, 0, len(units))
	for _, unit := range units {
		if unit.Alive() {
			live = append(live, unit)
		}
	}
	sort.SliceStable(live, func(i, j int) bool {
		si, sj := EffectiveSpeed(live[i]), EffectiveSpeed(live[j])
		if si != sj {
			return si > sj
		}
		return live[i].Order < live[j].Order
	})
	ids := make([]string, len(live))
	for i, unit := range live {
		ids[i] = unit.ID
	}
	return ids
}
