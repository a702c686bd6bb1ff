package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"gridtactics/server/internal/ai"
	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/combat"
	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/telemetry"
	"gridtactics/server/internal/world"
	"gridtactics/server/internal/world/status"
	"gridtactics/server/logging"
	combatlog "gridtactics/server/logging/combat"
	"gridtactics/server/logging/lifecycle"
	"gridtactics/server/logging/turns"
)

const tracerName = "gridtactics/server/internal/sim"

// Phase is the sequencer state.
type Phase string

const (
	PhaseIdle       Phase = "idle"
	PhaseTurnStart  Phase = "turn_start"
	PhaseUnitActing Phase = "unit_acting"
	PhaseTurnEnd    Phase = "turn_end"
	PhaseBattleEnd  Phase = "battle_end"
)

// Reason explains why a battle ended.
type Reason string

const (
	ReasonAllUnitsDefeated Reason = "allUnitsDefeated"
	ReasonNoUnits          Reason = "noUnits"
	ReasonTeamDefeated     Reason = "teamDefeated"
	ReasonTurnLimit        Reason = "turnLimit"
	ReasonCancelled        Reason = "cancelled"
	ReasonChannelFailure   Reason = "channelFailure"
)

var (
	ErrMissingDeps   = errors.New("sim: lookup and roller are required")
	ErrAlreadyEnded  = errors.New("sim: battle already ended")
	ErrPendingTarget = errors.New("sim: target already has an attack in flight")
)

// WaitKind tells the run loop what the sequencer is blocked on.
type WaitKind uint8

const (
	// WaitNone means Advance can be called again immediately.
	WaitNone WaitKind = iota
	// WaitDelay means the loop should sleep for Wait.Delay.
	WaitDelay
	// WaitReply means a damage reply must arrive before progress.
	WaitReply
	// WaitDone means the battle reached a terminal state.
	WaitDone
)

// Wait is returned by Advance.
type Wait struct {
	Kind  WaitKind
	Delay time.Duration
}

// TurnState is the per-turn queue bookkeeping.
type TurnState struct {
	Number      int
	Queue       []string
	ActiveIndex int
}

// Result summarizes a finished battle.
type Result struct {
	Reason Reason
	Winner state.Team
	Turns  int
}

type pendingAttack struct {
	seq          uint64
	attackerID   string
	skill        string
	statusEffect string
}

// Sequencer drives one battle through its turn phases. All methods except
// Enqueue must be called from a single goroutine.
type Sequencer struct {
	battleID string
	config   Config

	ledger   *world.Ledger
	mutator  *world.Mutator
	statuses *status.Ledger
	planner  *ai.Planner
	roller   *dice.Roller
	lookup   catalog.Lookup
	channel  *combat.Channel

	outbox     *Outbox
	dispatcher *Dispatcher
	commands   *CommandBuffer
	wake       chan struct{}

	logger  telemetry.Logger
	metrics telemetry.Metrics
	tracer  trace.Tracer

	phase      Phase
	turn       TurnState
	pending    map[string]pendingAttack
	staggered  []logging.Event
	unitDone   bool
	lastAction string
	multiTeam  bool
	stopped    bool

	ended  bool
	result Result
	err    error

	turnCtx  context.Context
	turnSpan trace.Span
}

// NewSequencer binds a sequencer to a populated ledger. The damage worker
// starts immediately and is released when Run returns or Close is called.
func NewSequencer(battleID string, ledger *world.Ledger, cfg Config, deps Deps) (*Sequencer, error) {
	if deps.Lookup == nil || deps.Roller == nil || ledger == nil {
		return nil, ErrMissingDeps
	}
	cfg = cfg.normalized()

	logger := deps.Logger
	if logger == nil {
		logger = telemetry.Discard()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = otel.Tracer(tracerName)
	}

	mutator := world.NewMutator(ledger)
	s := &Sequencer{
		battleID:   battleID,
		config:     cfg,
		ledger:     ledger,
		mutator:    mutator,
		statuses:   status.NewLedger(mutator, deps.Lookup),
		planner:    ai.NewPlanner(deps.Lookup, deps.Roller),
		roller:     deps.Roller,
		lookup:     deps.Lookup,
		outbox:     &Outbox{},
		dispatcher: NewDispatcher(deps.Publisher, battleID, deps.Clock),
		commands:   NewCommandBuffer(cfg.CommandCapacity, deps.Metrics),
		wake:       make(chan struct{}, 1),
		logger:     logger,
		metrics:    deps.Metrics,
		tracer:     tracer,
		phase:      PhaseIdle,
		pending:    make(map[string]pendingAttack),
		turnCtx:    context.Background(),
	}
	s.channel = combat.NewChannel(combat.ChannelConfig{
		Resolve: deps.Resolve,
		Tracer:  tracer,
		Logger:  logger,
		Metrics: deps.Metrics,
	})
	s.multiTeam = len(ledger.LiveTeams()) > 1
	return s, nil
}

// Phase reports the current phase.
func (s *Sequencer) Phase() Phase {
	return s.phase
}

// Turn returns a copy of the turn bookkeeping.
func (s *Sequencer) Turn() TurnState {
	turn := s.turn
	turn.Queue = append([]string(nil), s.turn.Queue...)
	return turn
}

// Ledger exposes the unit ledger for read access.
func (s *Sequencer) Ledger() *world.Ledger {
	return s.ledger
}

// Ended reports whether the battle reached a terminal state.
func (s *Sequencer) Ended() bool {
	return s.ended
}

// Result returns the terminal outcome. It is only meaningful once Ended.
func (s *Sequencer) Result() Result {
	return s.result
}

// Err returns the fatal error that ended the battle, if any.
func (s *Sequencer) Err() error {
	return s.err
}

// Awaiting reports whether an attack reply is outstanding.
func (s *Sequencer) Awaiting() bool {
	return len(s.pending) > 0
}

// Stop raises the external stop signal. An attack in flight is still
// applied; no further unit acts and no next turn is scheduled.
func (s *Sequencer) Stop() {
	s.stopped = true
}

// Close releases the damage worker.
func (s *Sequencer) Close() {
	s.channel.Close()
}

// Advance performs the next transition and reports what to wait for.
func (s *Sequencer) Advance(ctx context.Context) Wait {
	if s.ended {
		return Wait{Kind: WaitDone}
	}
	if len(s.pending) > 0 {
		return Wait{Kind: WaitReply}
	}
	if s.stopped {
		if s.phase == PhaseUnitActing && s.unitDone {
			s.flushStaggered()
			s.finishUnit()
		}
		s.park()
		return Wait{Kind: WaitDone}
	}

	switch s.phase {
	case PhaseIdle:
		if len(s.ledger.Live()) == 0 {
			s.end(ReasonNoUnits, "")
			return Wait{Kind: WaitDone}
		}
		s.phase = PhaseTurnStart
		return Wait{Kind: WaitNone}
	case PhaseTurnStart:
		return s.startTurn(ctx)
	case PhaseUnitActing:
		return s.stepUnit(ctx)
	case PhaseTurnEnd:
		return s.endTurn()
	}
	return Wait{Kind: WaitDone}
}

func (s *Sequencer) startTurn(ctx context.Context) Wait {
	if s.config.MaxTurns > 0 && s.turn.Number >= s.config.MaxTurns {
		s.end(ReasonTurnLimit, "")
		return Wait{Kind: WaitDone}
	}
	s.turn = TurnState{Number: s.turn.Number + 1}
	s.turnCtx, s.turnSpan = s.tracer.Start(context.WithoutCancel(ctx), "sim.turn", trace.WithAttributes(
		attribute.String("battle.id", s.battleID),
		attribute.Int("turn.number", s.turn.Number),
	))
	s.add("sim_turns_total", 1)

	s.turn.Queue = TurnOrder(s.ledger.Units())
	s.outbox.Append(turns.TurnStarted(s.turn.Number, logging.BattleRef(s.battleID), turns.TurnStartedPayload{
		Order: append([]string(nil), s.turn.Queue...),
	}))

	for _, id := range s.turn.Queue {
		events, err := s.statuses.Tick(s.turn.Number, id)
		s.outbox.Append(events...)
		if err != nil {
			s.logger.Printf("[sim] battle=%s turn=%d status tick %s: %v", s.battleID, s.turn.Number, id, err)
		}
	}
	s.refilter()
	if s.checkEnd() {
		return Wait{Kind: WaitDone}
	}
	s.phase = PhaseUnitActing
	return Wait{Kind: WaitNone}
}

func (s *Sequencer) stepUnit(ctx context.Context) Wait {
	if len(s.staggered) > 0 {
		s.flushStaggered()
	}
	if s.unitDone {
		s.finishUnit()
		if s.ended {
			return Wait{Kind: WaitDone}
		}
		return Wait{Kind: WaitNone}
	}
	if s.turn.ActiveIndex >= len(s.turn.Queue) {
		s.phase = PhaseTurnEnd
		return Wait{Kind: WaitNone}
	}

	id := s.turn.Queue[s.turn.ActiveIndex]
	unit, ok := s.ledger.Unit(id)
	if !ok || !unit.Alive() {
		s.turn.ActiveIndex++
		return Wait{Kind: WaitNone}
	}
	s.outbox.Append(turns.UnitTurnStarted(s.turn.Number, logging.UnitRef(id), turns.UnitTurnPayload{Index: s.turn.ActiveIndex}))

	if ok, blockedBy := s.statuses.CanAct(s.turn.Number, id); !ok {
		s.outbox.Append(turns.UnitSkipped(s.turn.Number, logging.UnitRef(id), turns.UnitSkippedPayload{StatusEffect: blockedBy}))
		s.lastAction = "skipped"
		s.unitDone = true
		return Wait{Kind: WaitNone}
	}

	decision := s.planner.Decide(unit, s.ledger.Live(), s.ledger)
	s.lastAction = decision.Action()
	awaiting, err := s.execute(s.turnCtx, unit, decision)
	if err != nil {
		s.fail(err)
		return Wait{Kind: WaitDone}
	}
	if awaiting {
		return Wait{Kind: WaitReply}
	}
	s.unitDone = true
	return Wait{Kind: WaitNone}
}

// HandleReply runs the continuation registered for a damage reply.
func (s *Sequencer) HandleReply(ctx context.Context, reply combat.Reply) Wait {
	if s.ended {
		return Wait{Kind: WaitDone}
	}
	targetID := reply.Request.TargetID
	pending, ok := s.pending[targetID]
	if !ok || pending.seq != reply.Request.Seq {
		s.logger.Printf("[sim] battle=%s ignoring unexpected damage reply target=%s seq=%d", s.battleID, targetID, reply.Request.Seq)
		return s.waitAfterReply()
	}
	delete(s.pending, targetID)

	if reply.Err != nil {
		s.fail(reply.Err)
		return Wait{Kind: WaitDone}
	}

	applied, err := s.mutator.DealDamage(targetID, reply.Result.Total())
	if err != nil {
		s.fail(err)
		return Wait{Kind: WaitDone}
	}
	turn := s.turn.Number
	attacker := logging.UnitRef(pending.attackerID)
	target := logging.UnitRef(targetID)
	s.outbox.Append(combatlog.DamageCalculated(turn, attacker, target, combatlog.DamageCalculatedPayload{
		Skill:         pending.skill,
		HPDamage:      applied.HPDamage,
		BarrierDamage: applied.BarrierDamage,
		TargetHP:      applied.HP,
		TargetBarrier: applied.Barrier,
		StatusEffect:  pending.statusEffect,
	}))

	var wait Wait
	switch {
	case applied.BarrierDamage > 0 && applied.HPDamage > 0:
		s.outbox.Append(combatlog.DamageDisplayed(turn, attacker, target, combatlog.DamageDisplayedPayload{Pool: combatlog.PoolBarrier, Amount: applied.BarrierDamage}))
		s.staggered = append(s.staggered, combatlog.DamageDisplayed(turn, attacker, target, combatlog.DamageDisplayedPayload{Pool: combatlog.PoolHP, Amount: applied.HPDamage}))
		wait = Wait{Kind: WaitDelay, Delay: s.config.DisplayStagger}
	case applied.BarrierDamage > 0:
		s.outbox.Append(combatlog.DamageDisplayed(turn, attacker, target, combatlog.DamageDisplayedPayload{Pool: combatlog.PoolBarrier, Amount: applied.BarrierDamage}))
	case applied.HPDamage > 0:
		s.outbox.Append(combatlog.DamageDisplayed(turn, attacker, target, combatlog.DamageDisplayedPayload{Pool: combatlog.PoolHP, Amount: applied.HPDamage}))
	}

	defeat := []logging.Event(nil)
	if applied.Defeated {
		defeat = append(defeat, combatlog.Defeat(turn, attacker, target, combatlog.DefeatPayload{Skill: pending.skill}))
	} else if pending.statusEffect != "" {
		events, err := s.statuses.Apply(turn, targetID, pending.statusEffect, pending.attackerID)
		if err != nil {
			s.warn(pending.attackerID, reasonUnknownStatusEffect, pending.skill, "")
		}
		defeat = append(defeat, events...)
	}
	if len(s.staggered) > 0 {
		s.staggered = append(s.staggered, defeat...)
	} else {
		s.outbox.Append(defeat...)
	}

	s.unitDone = true
	if wait.Kind == WaitDelay {
		return wait
	}
	return s.waitAfterReply()
}

func (s *Sequencer) waitAfterReply() Wait {
	if len(s.pending) > 0 {
		return Wait{Kind: WaitReply}
	}
	return Wait{Kind: WaitNone}
}

func (s *Sequencer) flushStaggered() {
	s.outbox.Append(s.staggered...)
	s.staggered = nil
}

func (s *Sequencer) finishUnit() {
	id := s.turn.Queue[s.turn.ActiveIndex]
	s.outbox.Append(turns.UnitTurnEnded(s.turn.Number, logging.UnitRef(id), turns.UnitTurnPayload{
		Index:  s.turn.ActiveIndex,
		Action: s.lastAction,
	}))
	s.unitDone = false
	s.lastAction = ""
	s.turn.ActiveIndex++
	s.refilter()
	s.checkEnd()
}

// refilter drops defeated units from the queue while keeping ActiveIndex
// pointing at the next unit to act.
func (s *Sequencer) refilter() {
	kept := make([]string, 0, len(s.turn.Queue))
	next := 0
	for i, id := range s.turn.Queue {
		unit, ok := s.ledger.Unit(id)
		if !ok || !unit.Alive() {
			continue
		}
		if i < s.turn.ActiveIndex {
			next++
		}
		kept = append(kept, id)
	}
	s.turn.Queue = kept
	s.turn.ActiveIndex = next
}

func (s *Sequencer) endTurn() Wait {
	for _, unit := range s.ledger.Units() {
		events, err := s.statuses.Expire(s.turn.Number, unit.ID)
		s.outbox.Append(events...)
		if err != nil {
			s.logger.Printf("[sim] battle=%s turn=%d status expire %s: %v", s.battleID, s.turn.Number, unit.ID, err)
		}
	}
	s.outbox.Append(turns.TurnEnded(s.turn.Number, logging.BattleRef(s.battleID)))
	s.endTurnSpan()
	if s.checkEnd() {
		return Wait{Kind: WaitDone}
	}
	s.phase = PhaseTurnStart
	return Wait{Kind: WaitDelay, Delay: s.config.TurnDelay}
}

// checkEnd ends the battle when no unit or only one team is left.
func (s *Sequencer) checkEnd() bool {
	if s.ended {
		return true
	}
	teams := s.ledger.LiveTeams()
	switch {
	case len(teams) == 0:
		s.end(ReasonAllUnitsDefeated, "")
		return true
	case len(teams) == 1 && s.multiTeam:
		for team := range teams {
			s.end(ReasonTeamDefeated, team)
		}
		return true
	}
	return false
}

// park handles the external stop signal.
func (s *Sequencer) park() {
	if s.ended {
		return
	}
	s.end(ReasonCancelled, "")
	s.phase = PhaseIdle
}

func (s *Sequencer) fail(err error) {
	s.err = err
	s.outbox.Append(combatlog.CriticalError(s.turn.Number, logging.BattleRef(s.battleID), combatlog.CriticalErrorPayload{Error: err.Error()}))
	if s.turnSpan != nil {
		s.turnSpan.RecordError(err)
	}
	if !errors.Is(err, combat.ErrChannelFailed) && !errors.Is(err, combat.ErrChannelClosed) {
		s.err = fmt.Errorf("sim: battle %s halted: %w", s.battleID, err)
	}
	s.end(ReasonChannelFailure, "")
}

func (s *Sequencer) end(reason Reason, winner state.Team) {
	if s.ended {
		return
	}
	s.ended = true
	s.phase = PhaseBattleEnd
	s.pending = make(map[string]pendingAttack)
	s.staggered = nil
	s.result = Result{Reason: reason, Winner: winner, Turns: s.turn.Number}
	s.outbox.Append(lifecycle.BattleEnded(s.turn.Number, logging.BattleRef(s.battleID), lifecycle.BattleEndedPayload{
		Reason: string(reason),
		Winner: string(winner),
		Turns:  s.turn.Number,
	}))
	s.endTurnSpan()
}

func (s *Sequencer) endTurnSpan() {
	if s.turnSpan != nil {
		s.turnSpan.End()
		s.turnSpan = nil
	}
}

func (s *Sequencer) warn(unitID, reason, skill, class string) {
	s.outbox.Append(turns.ActionWarning(s.turn.Number, logging.UnitRef(unitID), turns.ActionWarningPayload{
		Reason: reason,
		Skill:  skill,
		Class:  class,
	}))
}

func (s *Sequencer) add(key string, delta uint64) {
	if s.metrics != nil {
		s.metrics.Add(key, delta)
	}
}
