package sim

import (
	"context"
	"time"

	"gridtactics/server/internal/state"
)

// Hooks lets the owner observe a running battle.
type Hooks struct {
	// AfterStep receives a snapshot after each batch of events has been
	// dispatched.
	AfterStep func(state.BattleSnapshot)
}

type signals struct {
	stop <-chan struct{}
	done <-chan struct{}
}

// Run drives the battle until it ends. Closing stop or cancelling ctx raises
// the stop signal; the battle then finishes any attack in flight and ends
// with ReasonCancelled. The damage worker is released before Run returns.
func (s *Sequencer) Run(ctx context.Context, stop <-chan struct{}, hooks Hooks) (Result, error) {
	defer s.channel.Close()
	sig := &signals{stop: stop, done: ctx.Done()}

	for {
		s.poll(sig)
		s.applyCommands()
		wait := s.Advance(ctx)
		for wait.Kind == WaitReply {
			s.publish(ctx, hooks)
			wait = s.awaitReply(ctx, sig)
		}
		s.publish(ctx, hooks)

		switch wait.Kind {
		case WaitDone:
			return s.result, s.err
		case WaitDelay:
			s.sleep(wait.Delay, sig)
		}
	}
}

// Enqueue stages a command for the sequencer goroutine. It is safe to call
// from any goroutine and reports false when the buffer is full.
func (s *Sequencer) Enqueue(cmd Command) bool {
	if !s.commands.Push(cmd) {
		s.logger.Printf("[sim] battle=%s dropping command type=%s origin=%s", s.battleID, cmd.Type, cmd.Origin)
		return false
	}
	select {
	case s.wake <- struct{}{}:
	default:
	}
	return true
}

// Snapshot captures the battlefield. Call it from the sequencer goroutine or
// after Run has returned.
func (s *Sequencer) Snapshot() state.BattleSnapshot {
	cfg := s.ledger.Config()
	snap := state.BattleSnapshot{
		BattleID: s.battleID,
		Turn:     s.turn.Number,
		Phase:    string(s.phase),
		Cols:     cfg.Cols,
		Rows:     cfg.Rows,
		Units:    s.ledger.Snapshot(),
		Ended:    s.ended,
	}
	if s.ended {
		snap.Reason = string(s.result.Reason)
		snap.Winner = s.result.Winner
	}
	return snap
}

func (s *Sequencer) applyCommands() {
	for _, cmd := range s.commands.Drain() {
		switch cmd.Type {
		case CommandStop:
			s.Stop()
		case CommandSetTurnDelay:
			if cmd.Delay >= 0 {
				s.config.TurnDelay = cmd.Delay
			}
		default:
			s.logger.Printf("[sim] battle=%s unknown command type=%s", s.battleID, cmd.Type)
		}
	}
}

func (s *Sequencer) publish(ctx context.Context, hooks Hooks) {
	events := s.outbox.Drain()
	if len(events) == 0 {
		return
	}
	s.dispatcher.Dispatch(ctx, events)
	if hooks.AfterStep != nil {
		hooks.AfterStep(s.Snapshot())
	}
}

func (s *Sequencer) poll(sig *signals) {
	select {
	case <-sig.stop:
		sig.stop = nil
		s.Stop()
	case <-sig.done:
		sig.done = nil
		s.Stop()
	default:
	}
}

// awaitReply blocks until the damage worker answers. A stop request only
// marks the sequencer; the reply is still awaited and applied.
func (s *Sequencer) awaitReply(ctx context.Context, sig *signals) Wait {
	select {
	case reply := <-s.channel.Replies():
		return s.HandleReply(ctx, reply)
	case <-sig.stop:
		sig.stop = nil
		s.Stop()
	case <-sig.done:
		sig.done = nil
		s.Stop()
	case <-s.wake:
		s.applyCommands()
	}
	if s.ended {
		return Wait{Kind: WaitDone}
	}
	return Wait{Kind: WaitReply}
}

func (s *Sequencer) sleep(delay time.Duration, sig *signals) {
	if delay <= 0 {
		return
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	for {
		select {
		case <-timer.C:
			return
		case <-sig.stop:
			sig.stop = nil
			s.Stop()
			return
		case <-sig.done:
			sig.done = nil
			s.Stop()
			return
		case <-s.wake:
			s.applyCommands()
			if s.stopped {
				return
			}
		}
	}
}
