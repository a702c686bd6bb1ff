package world

import (
	"errors"
	"testing"

	"gridtactics/server/internal/state"
)

func TestAddUnitComputesBarrierFromValor(t *testing.T) {
	l := NewLedger(Config{Cols: 4, Rows: 4})
	unit := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 30, 5), 0, 0)
	if unit.CurrentHP != 30 {
		t.Fatalf("expected full hp 30, got %d", unit.CurrentHP)
	}
	if unit.MaxBarrier != 10 || unit.CurrentBarrier != 10 {
		t.Fatalf("expected barrier 10/10, got %d/%d", unit.CurrentBarrier, unit.MaxBarrier)
	}
	if unit.Order != 0 {
		t.Fatalf("expected insertion order 0, got %d", unit.Order)
	}
}

func TestAddUnitRejections(t *testing.T) {
	l := NewLedger(Config{Cols: 4, Rows: 4})
	mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 0), 1, 1)

	cases := []struct {
		name string
		data state.UnitData
		x, y int
		want error
	}{
		{"duplicate", newTestUnit("a", state.TeamAlly, 10, 0), 2, 2, ErrDuplicateUnit},
		{"occupied", newTestUnit("b", state.TeamEnemy, 10, 0), 1, 1, ErrTileOccupied},
		{"bounds", newTestUnit("c", state.TeamEnemy, 10, 0), 4, 0, ErrOutOfBounds},
		{"team", newTestUnit("d", state.Team("neutral"), 10, 0), 3, 3, ErrInvalidUnit},
		{"hp", newTestUnit("e", state.TeamEnemy, 0, 0), 3, 3, ErrInvalidUnit},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := l.AddUnit(tc.data, tc.x, tc.y); !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
	if l.Len() != 1 {
		t.Fatalf("rejected units must not be recorded, have %d", l.Len())
	}
}

func TestMoveUnitRejectsOccupiedAndOutOfBounds(t *testing.T) {
	l := NewLedger(Config{Cols: 5, Rows: 5})
	a := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 0), 0, 0)
	mustAdd(t, l, newTestUnit("b", state.TeamEnemy, 10, 0), 1, 0)

	if err := l.MoveUnit("a", 1, 0); !errors.Is(err, ErrTileOccupied) {
		t.Fatalf("expected ErrTileOccupied, got %v", err)
	}
	if a.X != 0 || a.Y != 0 {
		t.Fatalf("rejected move changed position to (%d,%d)", a.X, a.Y)
	}
	if err := l.MoveUnit("a", -1, 0); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if err := l.MoveUnit("a", 0, 5); !errors.Is(err, ErrOutOfBounds) {
		t.Fatalf("expected ErrOutOfBounds, got %v", err)
	}
	if err := l.MoveUnit("ghost", 2, 2); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
	if err := l.MoveUnit("a", 2, 3); err != nil {
		t.Fatalf("expected move to succeed, got %v", err)
	}
	if a.X != 2 || a.Y != 3 {
		t.Fatalf("expected (2,3), got (%d,%d)", a.X, a.Y)
	}
}

func TestDeadUnitsDoNotOccupyTiles(t *testing.T) {
	l := NewLedger(Config{Cols: 3, Rows: 3})
	m := NewMutator(l)
	mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 0), 0, 0)
	mustAdd(t, l, newTestUnit("b", state.TeamEnemy, 10, 0), 1, 1)

	if _, err := m.DealDamage("b", 50); err != nil {
		t.Fatalf("deal damage: %v", err)
	}
	if l.IsTileOccupied(1, 1, "") {
		t.Fatalf("dead unit still occupies its tile")
	}
	if _, ok := l.GetUnitAt(1, 1); ok {
		t.Fatalf("GetUnitAt returned a dead unit")
	}
	if err := l.MoveUnit("a", 1, 1); err != nil {
		t.Fatalf("expected move onto vacated tile, got %v", err)
	}
	if got, ok := l.GetUnitAt(1, 1); !ok || got.ID != "a" {
		t.Fatalf("expected a at (1,1), got %v %v", got, ok)
	}
	if live := l.Live(); len(live) != 1 || live[0].ID != "a" {
		t.Fatalf("expected only a to be live, got %d units", len(live))
	}
	if err := l.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestIsTileOccupiedExclude(t *testing.T) {
	l := NewLedger(Config{})
	mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 0), 2, 2)
	if !l.IsTileOccupied(2, 2, "") {
		t.Fatalf("expected tile to be occupied")
	}
	if l.IsTileOccupied(2, 2, "a") {
		t.Fatalf("expected exclude id to be ignored")
	}
	if cfg := l.Config(); cfg.Cols != DefaultCols || cfg.Rows != DefaultRows {
		t.Fatalf("expected default grid, got %+v", cfg)
	}
}

func TestCheckInvariantsDetectsBypass(t *testing.T) {
	l := NewLedger(Config{})
	unit := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 0), 0, 0)
	unit.CurrentHP = -3
	if err := l.CheckInvariants(); err == nil {
		t.Fatalf("expected invariant violation for negative hp")
	}
}

func TestGeometry(t *testing.T) {
	if d := Distance(0, 0, 3, 1); d != 3 {
		t.Fatalf("expected distance 3, got %d", d)
	}
	if x, y := StepToward(2, 2, 0, 5); x != 1 || y != 3 {
		t.Fatalf("expected step to (1,3), got (%d,%d)", x, y)
	}
	if x, y := StepToward(2, 2, 2, 2); x != 2 || y != 2 {
		t.Fatalf("expected no step, got (%d,%d)", x, y)
	}
}
