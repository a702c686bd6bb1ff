package status

import (
	"errors"
	"fmt"

	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/world"
	"gridtactics/server/logging"
	combatlog "gridtactics/server/logging/combat"
	statuslog "gridtactics/server/logging/status_effects"
	"gridtactics/server/stats"
)

// MaxReductionPct caps the combined incoming damage reduction.
const MaxReductionPct = 90

var ErrUnknownDefinition = errors.New("status: unknown status effect definition")

// Ledger tracks timed effects per unit. Re-applying an effect the unit
// already carries refreshes its duration and source instead of stacking.
// Every method returns the events it produced instead of publishing them.
type Ledger struct {
	mutator *world.Mutator
	defs    catalog.StatusLookup
}

// NewLedger binds the status ledger to the mutation service and the
// definition table.
func NewLedger(mutator *world.Mutator, defs catalog.StatusLookup) *Ledger {
	return &Ledger{mutator: mutator, defs: defs}
}

func (l *Ledger) unit(id string) (*state.Unit, error) {
	unit, ok := l.mutator.Ledger().Unit(id)
	if !ok {
		return nil, fmt.Errorf("%w: %s", world.ErrUnknownUnit, id)
	}
	return unit, nil
}

// Apply attaches definitionID to unitID. Defeated units are ignored.
func (l *Ledger) Apply(turn int, unitID, definitionID, sourceUnitID string) ([]logging.Event, error) {
	def, ok := l.defs.StatusEffect(definitionID)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownDefinition, definitionID)
	}
	unit, err := l.unit(unitID)
	if err != nil {
		return nil, err
	}
	if !unit.Alive() {
		return nil, nil
	}

	effects := append([]state.StatusEffectInstance(nil), unit.StatusEffects...)
	refreshed := false
	for i := range effects {
		if effects[i].DefinitionID == def.ID {
			effects[i].RemainingTurns = def.Duration
			effects[i].SourceUnitID = sourceUnitID
			refreshed = true
			break
		}
	}
	if !refreshed {
		effects = append(effects, state.StatusEffectInstance{
			DefinitionID:   def.ID,
			RemainingTurns: def.Duration,
			SourceUnitID:   sourceUnitID,
			AppliedTurn:    turn,
		})
	}
	if err := l.mutator.SetStatusEffects(unitID, effects); err != nil {
		return nil, err
	}
	if len(def.Effect.StatModifiers) > 0 {
		if err := l.mutator.ApplyModifier(unitID, modifierChange(def, false)); err != nil {
			return nil, err
		}
	}

	event := statuslog.Applied(turn, sourceRef(sourceUnitID), logging.UnitRef(unitID), statuslog.AppliedPayload{
		StatusEffect: def.ID,
		SourceID:     sourceUnitID,
		Turns:        def.Duration,
		Refreshed:    refreshed,
	})
	return []logging.Event{event}, nil
}

// Tick runs the periodic part of every instance on unitID and decrements
// durations. Instances that reach zero stay attached until Expire runs.
func (l *Ledger) Tick(turn int, unitID string) ([]logging.Event, error) {
	unit, err := l.unit(unitID)
	if err != nil {
		return nil, err
	}
	if !unit.Alive() || len(unit.StatusEffects) == 0 {
		return nil, nil
	}

	var events []logging.Event
	effects := append([]state.StatusEffectInstance(nil), unit.StatusEffects...)
	for i := range effects {
		inst := &effects[i]
		if inst.RemainingTurns > 0 {
			inst.RemainingTurns--
		}
		def, ok := l.defs.StatusEffect(inst.DefinitionID)
		if !ok || !unit.Alive() {
			continue
		}
		if def.Effect.DamagePerTurn <= 0 && def.Effect.HealPerTurn <= 0 {
			continue
		}
		payload := statuslog.TickedPayload{StatusEffect: def.ID, RemainingTurns: inst.RemainingTurns}
		var defeated bool
		if def.Effect.DamagePerTurn > 0 {
			res, err := l.mutator.DealDamage(unitID, def.Effect.DamagePerTurn)
			if err != nil {
				return events, err
			}
			payload.Damage = res.BarrierDamage + res.HPDamage
			defeated = res.Defeated
		}
		if def.Effect.HealPerTurn > 0 && unit.Alive() {
			res, err := l.mutator.Heal(unitID, def.Effect.HealPerTurn)
			if err != nil {
				return events, err
			}
			payload.Heal = res.Amount
		}
		events = append(events, statuslog.Ticked(turn, logging.UnitRef(unitID), payload))
		if defeated {
			events = append(events, combatlog.Defeat(turn, sourceRef(inst.SourceUnitID), logging.UnitRef(unitID), combatlog.DefeatPayload{
				StatusEffect: def.ID,
			}))
		}
	}
	if err := l.mutator.SetStatusEffects(unitID, effects); err != nil {
		return events, err
	}
	return events, nil
}

// Expire removes every instance on unitID whose duration ran out.
func (l *Ledger) Expire(turn int, unitID string) ([]logging.Event, error) {
	unit, err := l.unit(unitID)
	if err != nil {
		return nil, err
	}
	if len(unit.StatusEffects) == 0 {
		return nil, nil
	}
	var events []logging.Event
	kept := make([]state.StatusEffectInstance, 0, len(unit.StatusEffects))
	for _, inst := range unit.StatusEffects {
		if inst.RemainingTurns > 0 {
			kept = append(kept, inst)
			continue
		}
		if def, ok := l.defs.StatusEffect(inst.DefinitionID); ok && len(def.Effect.StatModifiers) > 0 {
			if err := l.mutator.ApplyModifier(unitID, modifierChange(def, true)); err != nil {
				return events, err
			}
		}
		events = append(events, statuslog.Removed(turn, logging.UnitRef(unitID), statuslog.RemovedPayload{StatusEffect: inst.DefinitionID}))
	}
	if err := l.mutator.SetStatusEffects(unitID, kept); err != nil {
		return events, err
	}
	return events, nil
}

// CanAct reports whether unitID may act during turn. When it may not, the
// blocking definition id is returned. Instances attached during turn itself
// only take hold from the next turn on.
func (l *Ledger) CanAct(turn int, unitID string) (bool, string) {
	unit, err := l.unit(unitID)
	if err != nil {
		return false, ""
	}
	for _, inst := range unit.StatusEffects {
		if inst.AppliedTurn == turn {
			continue
		}
		def, ok := l.defs.StatusEffect(inst.DefinitionID)
		if ok && !def.AllowsAction() {
			return false, def.ID
		}
	}
	return true, ""
}

// ReductionPct sums the damage reduction granted by active effects,
// clamped to [0, MaxReductionPct].
func (l *Ledger) ReductionPct(unitID string) int {
	unit, err := l.unit(unitID)
	if err != nil {
		return 0
	}
	total := 0
	for _, inst := range unit.StatusEffects {
		if def, ok := l.defs.StatusEffect(inst.DefinitionID); ok {
			total += def.Effect.DamageReductionPct
		}
	}
	return max(0, min(total, MaxReductionPct))
}

func modifierChange(def catalog.StatusEffectDefinition, remove bool) stats.Change {
	change := stats.Change{
		Source: stats.SourceKey{Kind: stats.SourceKindStatusEffect, ID: def.ID},
		Remove: remove,
	}
	if remove {
		return change
	}
	for name, value := range def.Effect.StatModifiers {
		if id, ok := stats.StatByName(name); ok {
			change.Add[id] += float64(value)
		}
	}
	return change
}

func sourceRef(id string) logging.EntityRef {
	if id == "" {
		return logging.EntityRef{}
	}
	return logging.UnitRef(id)
}
