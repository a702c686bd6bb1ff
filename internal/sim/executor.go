package sim

import (
	"context"
	"fmt"

	"gridtactics/server/internal/ai"
	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/combat"
	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/state"
	"gridtactics/server/logging"
	combatlog "gridtactics/server/logging/combat"
	"gridtactics/server/stats"
)

const (
	reasonMoveRejected        = "move_rejected"
	reasonUnknownStatusEffect = "unknown_status_effect"
	reasonTargetLost          = "target_lost"
)

// execute carries out a decision. It reports true when an attack was handed
// to the damage channel and the unit's turn continues in HandleReply.
func (s *Sequencer) execute(ctx context.Context, unit *state.Unit, d ai.Decision) (bool, error) {
	if d.Warning != nil {
		s.warn(unit.ID, d.Warning.Reason, d.Warning.Skill, d.Warning.Class)
	}

	switch d.Kind {
	case ai.DecisionBasic:
		s.move(unit, d.MoveTo)
		if d.Attack {
			return s.attack(ctx, unit, d.TargetID, nil)
		}
		return false, nil

	case ai.DecisionSkill:
		skill := d.Skill
		switch skill.Effect.Routine {
		case catalog.RoutineCharge:
			s.move(unit, d.MoveTo)
			if d.Attack {
				return s.attack(ctx, unit, d.TargetID, &skill)
			}
		case catalog.RoutineStrike:
			return s.attack(ctx, unit, d.TargetID, &skill)
		case catalog.RoutineHex:
			s.applyStatus(unit.ID, d.TargetID, skill)
		case catalog.RoutineEmpower:
			s.applyStatus(unit.ID, unit.ID, skill)
		case catalog.RoutineMend:
			s.mend(unit, d.TargetID, skill)
		}
	}
	return false, nil
}

func (s *Sequencer) move(unit *state.Unit, to *ai.Point) {
	if to == nil {
		return
	}
	fromX, fromY := unit.X, unit.Y
	if err := s.ledger.MoveUnit(unit.ID, to.X, to.Y); err != nil {
		s.logger.Printf("[sim] battle=%s unit=%s move rejected: %v", s.battleID, unit.ID, err)
		s.warn(unit.ID, reasonMoveRejected, "", unit.ClassID)
		return
	}
	s.outbox.Append(combatlog.Moved(s.turn.Number, logging.UnitRef(unit.ID), combatlog.MovedPayload{
		FromX: fromX,
		FromY: fromY,
		ToX:   unit.X,
		ToY:   unit.Y,
	}))
}

func (s *Sequencer) attack(ctx context.Context, attacker *state.Unit, targetID string, skill *catalog.Skill) (bool, error) {
	target, ok := s.ledger.Unit(targetID)
	if !ok || !target.Alive() {
		s.warn(attacker.ID, reasonTargetLost, skillID(skill), attacker.ClassID)
		return false, nil
	}
	if _, busy := s.pending[targetID]; busy {
		return false, fmt.Errorf("%w: %s", ErrPendingTarget, targetID)
	}

	var spec *dice.DamageDice
	multiplier := 1.0
	statusEffect := ""
	if skill != nil {
		if skill.Effect.Dice != nil || skill.Effect.Magical {
			spec = &dice.DamageDice{Magical: skill.Effect.Magical}
			if skill.Effect.Dice != nil {
				spec.Count, spec.Sides = skill.Effect.Dice.Count, skill.Effect.Dice.Sides
			}
		}
		multiplier = skill.Effect.Multiplier()
		statusEffect = skill.Effect.StatusEffect
	}
	roll := s.roller.PerformDamageRoll(dice.AttackerStats{
		Attack: attacker.Stat(stats.StatAttack),
		Magic:  attacker.Stat(stats.StatMagic),
	}, spec)
	damageType := combat.DamagePhysical
	if roll.Magical {
		damageType = combat.DamageMagical
	}

	req := combat.DamageRequest{
		AttackerID:       attacker.ID,
		TargetID:         targetID,
		Attacker:         statSnapshot(attacker),
		Target:           statSnapshot(target),
		TargetHP:         target.CurrentHP,
		TargetBarrier:    target.CurrentBarrier,
		TargetMaxBarrier: target.MaxBarrier,
		Skill:            skillID(skill),
		Multiplier:       multiplier,
		Type:             damageType,
		StatusEffect:     statusEffect,
		RawDamage:        roll.Total,
		ReductionPct:     s.statuses.ReductionPct(targetID),
	}
	s.outbox.Append(combatlog.AttackAttempt(s.turn.Number, logging.UnitRef(attacker.ID), logging.UnitRef(targetID), combatlog.AttackAttemptPayload{
		Skill:      req.Skill,
		RawDamage:  req.RawDamage,
		DamageType: string(damageType),
	}))

	seq, err := s.channel.Submit(ctx, req)
	if err != nil {
		return false, err
	}
	s.pending[targetID] = pendingAttack{
		seq:          seq,
		attackerID:   attacker.ID,
		skill:        req.Skill,
		statusEffect: statusEffect,
	}
	s.add("sim_attacks_total", 1)
	return true, nil
}

func (s *Sequencer) applyStatus(sourceID, targetID string, skill catalog.Skill) {
	events, err := s.statuses.Apply(s.turn.Number, targetID, skill.Effect.StatusEffect, sourceID)
	if err != nil {
		s.logger.Printf("[sim] battle=%s skill=%s: %v", s.battleID, skill.ID, err)
		s.warn(sourceID, reasonUnknownStatusEffect, skill.ID, "")
		return
	}
	s.outbox.Append(events...)
}

func (s *Sequencer) mend(healer *state.Unit, targetID string, skill catalog.Skill) {
	amount := healer.Stat(stats.StatMagic)
	if spec := skill.Effect.Dice; spec != nil {
		rolled, err := s.roller.RollDice(spec.Count, spec.Sides)
		if err != nil {
			s.logger.Printf("[sim] battle=%s skill=%s: %v", s.battleID, skill.ID, err)
		}
		amount += rolled
	}
	applied, err := s.mutator.Heal(targetID, amount)
	if err != nil {
		s.warn(healer.ID, reasonTargetLost, skill.ID, healer.ClassID)
		return
	}
	s.outbox.Append(combatlog.Heal(s.turn.Number, logging.UnitRef(healer.ID), logging.UnitRef(targetID), combatlog.HealPayload{
		Skill:    skill.ID,
		Amount:   applied.Amount,
		TargetHP: applied.HP,
	}))
}

func statSnapshot(unit *state.Unit) combat.StatSnapshot {
	return combat.StatSnapshot{
		Attack:     unit.Stat(stats.StatAttack),
		Defense:    unit.Stat(stats.StatDefense),
		Magic:      unit.Stat(stats.StatMagic),
		Resistance: unit.Stat(stats.StatResistance),
	}
}

func skillID(skill *catalog.Skill) string {
	if skill == nil {
		return ""
	}
	return skill.ID
}
