package sim

import (
	"context"
	"testing"
	"time"

	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/world"
	"gridtactics/server/logging"
	"gridtactics/server/logging/sinks"
	"gridtactics/server/stats"
)

var stunnedCanAct = false

func testDocument() catalog.Document {
	return catalog.Document{
		Classes: []catalog.Class{
			{ID: "fighter", MoveRange: 1, AttackRange: 1},
			{ID: "statue", MoveRange: 0, AttackRange: 1},
			{ID: "hexer", MoveRange: 0, AttackRange: 3},
		},
		Skills: []catalog.Skill{
			{ID: "curse", Type: catalog.SkillActive, Probability: 100, Effect: catalog.SkillEffect{Routine: catalog.RoutineHex, Range: 3, StatusEffect: "weakened"}},
			{ID: "daze", Type: catalog.SkillActive, Probability: 50, Effect: catalog.SkillEffect{Routine: catalog.RoutineHex, Range: 3, StatusEffect: "stunned"}},
		},
		StatusEffects: []catalog.StatusEffectDefinition{
			{ID: "stunned", Type: catalog.StatusControl, Duration: 1, Effect: catalog.StatusPayload{CanAct: &stunnedCanAct}},
			{ID: "poisoned", Type: catalog.StatusDebuff, Duration: 3, Effect: catalog.StatusPayload{DamagePerTurn: 100}},
			{ID: "weakened", Type: catalog.StatusDebuff, Duration: 2, Effect: catalog.StatusPayload{StatModifiers: map[string]int{"attack": -5}}},
		},
	}
}

type fixture struct {
	ledger *world.Ledger
	sink   *sinks.MemorySink
	deps   Deps
}

func newFixture(t *testing.T, rolls ...int) *fixture {
	t.Helper()
	cat, err := catalog.New(testDocument())
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	sink := sinks.NewMemorySink()
	return &fixture{
		ledger: world.NewLedger(world.Config{Cols: 8, Rows: 6}),
		sink:   sink,
		deps: Deps{
			Lookup:    cat,
			Roller:    dice.NewRoller(dice.NewScripted(rolls...), nil),
			Publisher: sink,
		},
	}
}

func (f *fixture) add(t *testing.T, id, class string, team state.Team, x, y int, base stats.ValueSet, skills ...string) *state.Unit {
	t.Helper()
	unit, err := f.ledger.AddUnit(state.UnitData{ID: id, Name: id, ClassID: class, Team: team, BaseStats: base, SkillSlots: skills}, x, y)
	if err != nil {
		t.Fatalf("add %s: %v", id, err)
	}
	return unit
}

func (f *fixture) sequencer(t *testing.T, maxTurns int) *Sequencer {
	t.Helper()
	seq, err := NewSequencer("b_test", f.ledger, Config{MaxTurns: maxTurns}, f.deps)
	if err != nil {
		t.Fatalf("sequencer: %v", err)
	}
	return seq
}

func runBattle(t *testing.T, seq *Sequencer, stop <-chan struct{}) (Result, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	result, err := seq.Run(ctx, stop, Hooks{})
	if ctx.Err() != nil {
		t.Fatalf("battle did not finish: %v", ctx.Err())
	}
	return result, err
}

func baseStats(hp, attack, defense, speed int) stats.ValueSet {
	base := stats.ValueSet{}
	base[stats.StatHP] = float64(hp)
	base[stats.StatAttack] = float64(attack)
	base[stats.StatDefense] = float64(defense)
	base[stats.StatSpeed] = float64(speed)
	return base
}

func eventsFor(events []logging.Event, typ logging.EventType, actorID string) []logging.Event {
	var matched []logging.Event
	for _, event := range events {
		if event.Type == typ && (actorID == "" || event.Actor.ID == actorID) {
			matched = append(matched, event)
		}
	}
	return matched
}
