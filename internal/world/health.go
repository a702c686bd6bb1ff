package world

import (
	"fmt"

	"gridtactics/server/internal/state"
	"gridtactics/server/stats"
)

// DamageApplied reports how an amount of damage was split across pools.
type DamageApplied struct {
	UnitID        string
	BarrierDamage int
	HPDamage      int
	HP            int
	Barrier       int
	// Defeated is true only for the call that brought HP to zero.
	Defeated bool
}

// HealApplied reports the hit points actually restored.
type HealApplied struct {
	UnitID string
	Amount int
	HP     int
}

// Mutator is the only writer of unit HP, barrier and stat modifiers.
type Mutator struct {
	ledger *Ledger
}

// NewMutator binds a mutation service to ledger.
func NewMutator(ledger *Ledger) *Mutator {
	return &Mutator{ledger: ledger}
}

// Ledger exposes the underlying ledger for read access.
func (m *Mutator) Ledger() *Ledger {
	return m.ledger
}

func (m *Mutator) unit(id string) (*state.Unit, error) {
	unit, ok := m.ledger.Unit(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	return unit, nil
}

// DealDamage drains the barrier first and the remainder from HP.
// Negative amounts are treated as zero.
func (m *Mutator) DealDamage(id string, amount int) (DamageApplied, error) {
	unit, err := m.unit(id)
	if err != nil {
		return DamageApplied{}, err
	}
	if amount < 0 {
		amount = 0
	}
	wasAlive := unit.Alive()

	barrierDamage := min(unit.CurrentBarrier, amount)
	setBarrier(unit, unit.CurrentBarrier-barrierDamage, unit.MaxBarrier)
	hpDamage := min(unit.CurrentHP, amount-barrierDamage)
	setHealth(unit, unit.CurrentHP-hpDamage)

	return DamageApplied{
		UnitID:        id,
		BarrierDamage: barrierDamage,
		HPDamage:      hpDamage,
		HP:            unit.CurrentHP,
		Barrier:       unit.CurrentBarrier,
		Defeated:      wasAlive && !unit.Alive(),
	}, nil
}

// Heal restores HP up to the unit's maximum. Defeated units stay defeated.
func (m *Mutator) Heal(id string, amount int) (HealApplied, error) {
	unit, err := m.unit(id)
	if err != nil {
		return HealApplied{}, err
	}
	if amount <= 0 || !unit.Alive() {
		return HealApplied{UnitID: id, HP: unit.CurrentHP}, nil
	}
	before := unit.CurrentHP
	setHealth(unit, before+amount)
	return HealApplied{UnitID: id, Amount: unit.CurrentHP - before, HP: unit.CurrentHP}, nil
}

// ApplyBarrier raises the current barrier, lifting the maximum when exceeded.
func (m *Mutator) ApplyBarrier(id string, amount int) (int, error) {
	unit, err := m.unit(id)
	if err != nil {
		return 0, err
	}
	if amount <= 0 {
		return unit.CurrentBarrier, nil
	}
	next := unit.CurrentBarrier + amount
	maxBarrier := unit.MaxBarrier
	if next > maxBarrier {
		maxBarrier = next
	}
	setBarrier(unit, next, maxBarrier)
	return unit.CurrentBarrier, nil
}

// ApplyModifier attaches or detaches a status modifier and re-clamps HP
// against the resulting maximum. A modifier never defeats a unit.
func (m *Mutator) ApplyModifier(id string, change stats.Change) error {
	unit, err := m.unit(id)
	if err != nil {
		return err
	}
	wasAlive := unit.Alive()
	unit.Stats.Apply(change)
	unit.Stats.Resolve()
	setHealth(unit, unit.CurrentHP)
	if wasAlive && !unit.Alive() && unit.MaxHP() > 0 {
		unit.CurrentHP = 1
	}
	return nil
}

// SetStatusEffects replaces the unit's status list.
func (m *Mutator) SetStatusEffects(id string, effects []state.StatusEffectInstance) error {
	unit, err := m.unit(id)
	if err != nil {
		return err
	}
	unit.StatusEffects = effects
	return nil
}

// setHealth clamps hp into [0, maxHP].
func setHealth(unit *state.Unit, hp int) {
	maxHP := unit.MaxHP()
	if maxHP < 0 {
		maxHP = 0
	}
	if hp < 0 {
		hp = 0
	}
	if hp > maxHP {
		hp = maxHP
	}
	unit.CurrentHP = hp
}

// setBarrier clamps barrier into [0, maxBarrier].
func setBarrier(unit *state.Unit, barrier, maxBarrier int) {
	if maxBarrier < 0 {
		maxBarrier = 0
	}
	if barrier < 0 {
		barrier = 0
	}
	if barrier > maxBarrier {
		barrier = maxBarrier
	}
	unit.CurrentBarrier = barrier
	unit.MaxBarrier = maxBarrier
}
