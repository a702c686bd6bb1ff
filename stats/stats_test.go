package stats

import (
	"math"
	"testing"
)

func statusKey(id string) SourceKey {
	return SourceKey{Kind: SourceKindStatusEffect, ID: id}
}

func TestComponentSumsModifiersOverBase(t *testing.T) {
	base := ValueSet{}
	base[StatAttack] = 10
	base[StatValor] = 4
	comp := NewComponent(base)
	if got := comp.GetDerived(DerivedMaxBarrier); got != 8 {
		t.Fatalf("expected max barrier 8, got %.2f", got)
	}

	weaken := Change{Source: statusKey("weakened")}
	weaken.Add[StatAttack] = -5
	rally := Change{Source: statusKey("rallied")}
	rally.Add[StatAttack] = 3
	rally.Add[StatValor] = 1
	comp.Apply(weaken)
	comp.Apply(rally)

	if got := comp.GetTotal(StatAttack); got != 10 {
		t.Fatalf("totals must not change before Resolve, got %.2f", got)
	}
	comp.Resolve()
	if got := comp.Int(StatAttack); got != 8 {
		t.Fatalf("expected attack 8, got %d", got)
	}
	if got := comp.GetDerived(DerivedMaxBarrier); got != 10 {
		t.Fatalf("expected barrier to follow valor, got %.2f", got)
	}
	if comp.Base()[StatAttack] != 10 {
		t.Fatalf("base stats must stay untouched")
	}
}

func TestReapplyingSourceReplacesModifier(t *testing.T) {
	comp := NewComponent(ValueSet{StatDefense: 6})
	first := Change{Source: statusKey("fortified")}
	first.Add[StatDefense] = 4
	comp.Apply(first)
	comp.Resolve()
	version := comp.Version()

	comp.Apply(first)
	comp.Resolve()
	if comp.Version() != version {
		t.Fatalf("identical re-application should not re-resolve")
	}

	second := Change{Source: statusKey("fortified")}
	second.Add[StatDefense] = 2
	comp.Apply(second)
	comp.Resolve()
	if comp.Int(StatDefense) != 8 {
		t.Fatalf("expected replaced modifier to give 8, got %d", comp.Int(StatDefense))
	}
}

func TestRemoveSourceRestoresTotals(t *testing.T) {
	base := ValueSet{}
	base[StatDefense] = 6
	comp := NewComponent(base)
	key := statusKey("fortify")

	change := Change{Source: key}
	change.Add[StatDefense] = 4
	comp.Apply(change)
	comp.Resolve()
	if comp.Int(StatDefense) != 10 {
		t.Fatalf("expected defense 10, got %d", comp.Int(StatDefense))
	}
	if !comp.HasSource(key) {
		t.Fatalf("expected source to be tracked")
	}

	comp.Apply(Change{Source: key, Remove: true})
	comp.Resolve()
	if comp.Int(StatDefense) != 6 {
		t.Fatalf("expected defense 6 after removal, got %d", comp.Int(StatDefense))
	}
	if comp.HasSource(key) {
		t.Fatalf("expected source to be gone")
	}
	comp.Apply(Change{Source: key, Remove: true})
}

func TestDeterministicRecomputation(t *testing.T) {
	base := ValueSet{}
	base[StatSpeed] = 8
	compA := NewComponent(base)
	compB := NewComponent(base)

	a := Change{Source: statusKey("a")}
	a.Add[StatSpeed] = 3
	b := Change{Source: SourceKey{Kind: SourceKindClass, ID: "b"}}
	b.Add[StatSpeed] = -5.5

	compA.Apply(a)
	compA.Apply(b)
	compB.Apply(b)
	compB.Apply(a)
	compA.Resolve()
	compB.Resolve()

	if compA.Totals() != compB.Totals() {
		t.Fatalf("expected identical totals, got %v vs %v", compA.Totals(), compB.Totals())
	}
	if got := compA.GetDerived(DerivedInitiative); math.Abs(got-5.5) > 1e-9 {
		t.Fatalf("expected initiative 5.5, got %.2f", got)
	}
}

func TestMaxBarrierMonotonic(t *testing.T) {
	prev := -1
	for valor := -3; valor <= 40; valor++ {
		got := MaxBarrier(valor)
		if got < 0 {
			t.Fatalf("valor %d produced negative barrier %d", valor, got)
		}
		if got < prev {
			t.Fatalf("barrier decreased at valor %d: %d < %d", valor, got, prev)
		}
		prev = got
	}
	if MaxBarrier(5) != 10 {
		t.Fatalf("expected valor 5 to give barrier 10, got %d", MaxBarrier(5))
	}
}

func TestStatByName(t *testing.T) {
	id, ok := StatByName(" Resistance ")
	if !ok || id != StatResistance {
		t.Fatalf("expected resistance, got %v %v", id, ok)
	}
	if _, ok := StatByName("luck"); ok {
		t.Fatalf("expected unknown stat to be rejected")
	}
}

func TestCloneIsIndependent(t *testing.T) {
	base := ValueSet{}
	base[StatMagic] = 12
	comp := NewComponent(base)
	clone := comp.Clone()

	focus := Change{Source: statusKey("focus")}
	focus.Add[StatMagic] = 3
	comp.Apply(focus)
	comp.Resolve()
	clone.Resolve()

	if comp.Int(StatMagic) != 15 || clone.Int(StatMagic) != 12 {
		t.Fatalf("clone leaked mutation: comp=%d clone=%d", comp.Int(StatMagic), clone.Int(StatMagic))
	}
	if snap := comp.Snapshot().Map(); snap["magic"] != 15 {
		t.Fatalf("expected snapshot magic 15, got %d", snap["magic"])
	}
}
