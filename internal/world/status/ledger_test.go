package status

import (
	"errors"
	"testing"

	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/world"
	"gridtactics/server/logging"
	combatlog "gridtactics/server/logging/combat"
	statuslog "gridtactics/server/logging/status_effects"
	"gridtactics/server/stats"
)

func boolPtr(v bool) *bool { return &v }

type fixture struct {
	ledger  *world.Ledger
	mutator *world.Mutator
	status  *Ledger
}

func newFixture(t *testing.T) fixture {
	t.Helper()
	cat, err := catalog.New(catalog.Document{StatusEffects: []catalog.StatusEffectDefinition{
		{ID: "stunned", Type: catalog.StatusControl, Duration: 1, Effect: catalog.StatusPayload{CanAct: boolPtr(false)}},
		{ID: "poisoned", Type: catalog.StatusDebuff, Duration: 2, Effect: catalog.StatusPayload{DamagePerTurn: 4}},
		{ID: "regen", Type: catalog.StatusBuff, Duration: 3, Effect: catalog.StatusPayload{HealPerTurn: 3}},
		{ID: "fortified", Type: catalog.StatusBuff, Duration: 2, Effect: catalog.StatusPayload{
			StatModifiers:      map[string]int{"defense": 4},
			DamageReductionPct: 60,
		}},
		{ID: "bulwark", Type: catalog.StatusBuff, Duration: 2, Effect: catalog.StatusPayload{DamageReductionPct: 50}},
	}})
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	l := world.NewLedger(world.Config{})
	m := world.NewMutator(l)
	base := stats.ValueSet{}
	base[stats.StatHP] = 20
	base[stats.StatDefense] = 5
	for i, id := range []string{"a", "b"} {
		team := state.TeamAlly
		if i == 1 {
			team = state.TeamEnemy
		}
		if _, err := l.AddUnit(state.UnitData{ID: id, Team: team, BaseStats: base}, i, 0); err != nil {
			t.Fatalf("add unit: %v", err)
		}
	}
	return fixture{ledger: l, mutator: m, status: NewLedger(m, cat)}
}

func (f fixture) unit(id string) *state.Unit {
	u, _ := f.ledger.Unit(id)
	return u
}

func TestApplyRefreshesInsteadOfStacking(t *testing.T) {
	f := newFixture(t)
	if _, err := f.status.Apply(1, "a", "poisoned", "b"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, err := f.status.Tick(2, "a"); err != nil {
		t.Fatalf("tick: %v", err)
	}
	events, err := f.status.Apply(2, "a", "poisoned", "a")
	if err != nil {
		t.Fatalf("reapply: %v", err)
	}
	unit := f.unit("a")
	if len(unit.StatusEffects) != 1 {
		t.Fatalf("expected a single instance, got %d", len(unit.StatusEffects))
	}
	inst := unit.StatusEffects[0]
	if inst.RemainingTurns != 2 || inst.SourceUnitID != "a" {
		t.Fatalf("expected refreshed instance, got %+v", inst)
	}
	payload := events[0].Payload.(statuslog.AppliedPayload)
	if !payload.Refreshed {
		t.Fatalf("expected refreshed flag on event")
	}
}

func TestApplyUnknownDefinition(t *testing.T) {
	f := newFixture(t)
	if _, err := f.status.Apply(1, "a", "nope", ""); !errors.Is(err, ErrUnknownDefinition) {
		t.Fatalf("expected ErrUnknownDefinition, got %v", err)
	}
	if _, err := f.status.Apply(1, "ghost", "stunned", ""); !errors.Is(err, world.ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestControlEffectLifecycle(t *testing.T) {
	f := newFixture(t)
	// applied during turn N
	if _, err := f.status.Apply(1, "a", "stunned", "b"); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if ok, _ := f.status.CanAct(1, "a"); !ok {
		t.Fatalf("instance applied this turn must not block the same turn")
	}
	if events, _ := f.status.Expire(1, "a"); len(events) != 0 {
		t.Fatalf("fresh instance must survive the turn it was applied in")
	}

	// turn N+1: tick to zero, still blocks the action phase
	f.status.Tick(2, "a")
	if ok, by := f.status.CanAct(2, "a"); ok || by != "stunned" {
		t.Fatalf("expected unit to be blocked by stunned, got ok=%v by=%q", ok, by)
	}
	events, _ := f.status.Expire(2, "a")
	if len(events) != 1 || events[0].Type != statuslog.EventRemoved {
		t.Fatalf("expected a single removal event, got %v", events)
	}

	// turn N+2
	if ok, _ := f.status.CanAct(3, "a"); !ok {
		t.Fatalf("expected unit to act again")
	}
}

func TestRefreshKeepsOriginalApplyTurn(t *testing.T) {
	f := newFixture(t)
	f.status.Apply(1, "a", "stunned", "b")
	f.status.Tick(2, "a")
	if _, err := f.status.Apply(2, "a", "stunned", "c"); err != nil {
		t.Fatalf("refresh: %v", err)
	}
	if ok, by := f.status.CanAct(2, "a"); ok || by != "stunned" {
		t.Fatalf("refreshing an active stun must keep blocking, got ok=%v by=%q", ok, by)
	}
	unit, _ := f.ledger.Unit("a")
	if inst := unit.StatusEffects[0]; inst.AppliedTurn != 1 || inst.RemainingTurns != 1 || inst.SourceUnitID != "c" {
		t.Fatalf("unexpected refreshed instance %+v", inst)
	}
}

func TestTickAppliesDamageOverTime(t *testing.T) {
	f := newFixture(t)
	f.status.Apply(1, "a", "poisoned", "b")
	events, err := f.status.Tick(2, "a")
	if err != nil {
		t.Fatalf("tick: %v", err)
	}
	if f.unit("a").CurrentHP != 16 {
		t.Fatalf("expected hp 16, got %d", f.unit("a").CurrentHP)
	}
	if len(events) != 1 {
		t.Fatalf("expected one tick event, got %d", len(events))
	}
	payload := events[0].Payload.(statuslog.TickedPayload)
	if payload.Damage != 4 || payload.RemainingTurns != 1 {
		t.Fatalf("unexpected tick payload %+v", payload)
	}
}

func TestTickDefeatEmitsDefeatOnce(t *testing.T) {
	f := newFixture(t)
	f.mutator.DealDamage("a", 18)
	f.status.Apply(1, "a", "poisoned", "b")

	events, _ := f.status.Tick(2, "a")
	defeats := 0
	for _, e := range events {
		if e.Type == combatlog.EventDefeat {
			defeats++
			if e.Actor != logging.UnitRef("b") {
				t.Fatalf("expected defeat credited to b, got %+v", e.Actor)
			}
		}
	}
	if defeats != 1 {
		t.Fatalf("expected exactly one defeat event, got %d", defeats)
	}
	if again, _ := f.status.Tick(3, "a"); len(again) != 0 {
		t.Fatalf("defeated units must not tick, got %d events", len(again))
	}
}

func TestTickHealsCapped(t *testing.T) {
	f := newFixture(t)
	f.mutator.DealDamage("a", 2)
	f.status.Apply(1, "a", "regen", "a")
	events, _ := f.status.Tick(2, "a")
	payload := events[0].Payload.(statuslog.TickedPayload)
	if payload.Heal != 2 || f.unit("a").CurrentHP != 20 {
		t.Fatalf("expected capped heal of 2, got %+v hp=%d", payload, f.unit("a").CurrentHP)
	}
}

func TestStatModifiersFollowInstanceLifetime(t *testing.T) {
	f := newFixture(t)
	f.status.Apply(1, "a", "fortified", "a")
	if got := f.unit("a").Stat(stats.StatDefense); got != 9 {
		t.Fatalf("expected buffed defense 9, got %d", got)
	}
	f.status.Tick(2, "a")
	f.status.Expire(2, "a")
	if got := f.unit("a").Stat(stats.StatDefense); got != 9 {
		t.Fatalf("expected buff to persist, got %d", got)
	}
	f.status.Tick(3, "a")
	f.status.Expire(3, "a")
	if got := f.unit("a").Stat(stats.StatDefense); got != 5 {
		t.Fatalf("expected defense restored to 5, got %d", got)
	}
}

func TestReductionPctIsClamped(t *testing.T) {
	f := newFixture(t)
	if got := f.status.ReductionPct("a"); got != 0 {
		t.Fatalf("expected no reduction, got %d", got)
	}
	f.status.Apply(1, "a", "fortified", "a")
	f.status.Apply(1, "a", "bulwark", "a")
	if got := f.status.ReductionPct("a"); got != MaxReductionPct {
		t.Fatalf("expected clamp to %d, got %d", MaxReductionPct, got)
	}
}
