package world

import (
	"testing"

	"gridtactics/server/internal/state"
	"gridtactics/server/stats"
)

func newTestUnit(id string, team state.Team, hp, valor int) state.UnitData {
	base := stats.ValueSet{}
	base[stats.StatHP] = float64(hp)
	base[stats.StatValor] = float64(valor)
	base[stats.StatDefense] = 10
	return state.UnitData{ID: id, Name: id, ClassID: "test", Team: team, BaseStats: base}
}

func mustAdd(t *testing.T, l *Ledger, data state.UnitData, x, y int) *state.Unit {
	t.Helper()
	unit, err := l.AddUnit(data, x, y)
	if err != nil {
		t.Fatalf("add %s: %v", data.ID, err)
	}
	return unit
}
