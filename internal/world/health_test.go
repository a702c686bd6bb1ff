package world

import (
	"errors"
	"testing"

	"gridtactics/server/internal/state"
	"gridtactics/server/stats"
)

func TestDealDamageBarrierFirst(t *testing.T) {
	l := NewLedger(Config{})
	m := NewMutator(l)
	unit := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 30, 5), 0, 0)

	res, err := m.DealDamage("a", 6)
	if err != nil {
		t.Fatalf("deal damage: %v", err)
	}
	if res.BarrierDamage != 6 || res.HPDamage != 0 || unit.CurrentHP != 30 {
		t.Fatalf("damage within barrier must not touch hp: %+v hp=%d", res, unit.CurrentHP)
	}

	res, err = m.DealDamage("a", 9)
	if err != nil {
		t.Fatalf("deal damage: %v", err)
	}
	if res.BarrierDamage != 4 || res.HPDamage != 5 {
		t.Fatalf("expected split 4/5, got %+v", res)
	}
	if unit.CurrentBarrier != 0 || unit.CurrentHP != 25 {
		t.Fatalf("expected barrier 0 hp 25, got %d/%d", unit.CurrentBarrier, unit.CurrentHP)
	}
}

func TestDealDamageReportsDefeatOnce(t *testing.T) {
	l := NewLedger(Config{})
	m := NewMutator(l)
	mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 0), 0, 0)

	first, _ := m.DealDamage("a", 40)
	if !first.Defeated || first.HPDamage != 10 || first.HP != 0 {
		t.Fatalf("expected lethal hit capped at 10, got %+v", first)
	}
	second, _ := m.DealDamage("a", 5)
	if second.Defeated || second.HPDamage != 0 {
		t.Fatalf("expected no second defeat, got %+v", second)
	}
	if _, err := m.DealDamage("ghost", 1); !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestDealDamageNegativeIsNoop(t *testing.T) {
	l := NewLedger(Config{})
	m := NewMutator(l)
	unit := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 10, 2), 0, 0)
	res, _ := m.DealDamage("a", -7)
	if res.HPDamage != 0 || res.BarrierDamage != 0 || unit.CurrentHP != 10 || unit.CurrentBarrier != 4 {
		t.Fatalf("negative damage changed state: %+v", res)
	}
}

func TestHealCapsAtMax(t *testing.T) {
	l := NewLedger(Config{})
	m := NewMutator(l)
	mustAdd(t, l, newTestUnit("a", state.TeamAlly, 20, 0), 0, 0)
	m.DealDamage("a", 5)

	res, err := m.Heal("a", 12)
	if err != nil {
		t.Fatalf("heal: %v", err)
	}
	if res.Amount != 5 || res.HP != 20 {
		t.Fatalf("expected heal of 5 to 20, got %+v", res)
	}

	m.DealDamage("a", 20)
	res, _ = m.Heal("a", 10)
	if res.Amount != 0 || res.HP != 0 {
		t.Fatalf("defeated unit must not be healed, got %+v", res)
	}
}

func TestApplyBarrierRaisesMax(t *testing.T) {
	l := NewLedger(Config{})
	m := NewMutator(l)
	unit := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 20, 2), 0, 0)

	got, err := m.ApplyBarrier("a", 7)
	if err != nil {
		t.Fatalf("apply barrier: %v", err)
	}
	if got != 11 || unit.MaxBarrier != 11 {
		t.Fatalf("expected barrier and max 11, got %d/%d", got, unit.MaxBarrier)
	}
	if err := l.CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestApplyModifierChangesEffectiveStats(t *testing.T) {
	l := NewLedger(Config{})
	m := NewMutator(l)
	unit := mustAdd(t, l, newTestUnit("a", state.TeamAlly, 20, 0), 0, 0)

	key := stats.SourceKey{Kind: stats.SourceKindStatusEffect, ID: "weakened"}
	change := stats.Change{Source: key}
	change.Add[stats.StatDefense] = -4
	if err := m.ApplyModifier("a", change); err != nil {
		t.Fatalf("apply modifier: %v", err)
	}
	if unit.Stat(stats.StatDefense) != 6 {
		t.Fatalf("expected defense 6, got %d", unit.Stat(stats.StatDefense))
	}
	m.ApplyModifier("a", stats.Change{Source: key, Remove: true})
	if unit.Stat(stats.StatDefense) != 10 {
		t.Fatalf("expected defense restored to 10, got %d", unit.Stat(stats.StatDefense))
	}
}
