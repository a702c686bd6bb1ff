package battle

import (
	"sync"
	"time"

	"gridtactics/server/internal/sim"
	"gridtactics/server/internal/state"
)

// Battle is one running or finished encounter. Its snapshot is refreshed by
// the sequencer goroutine and may be read from anywhere.
type Battle struct {
	ID         string
	MapID      string
	Difficulty string
	Seed       int64

	seq      *sim.Sequencer
	stop     chan struct{}
	stopOnce sync.Once
	done     chan struct{}

	mu       sync.RWMutex
	snapshot state.BattleSnapshot
	finished bool
	endedAt  time.Time
	result   sim.Result
	err      error
}

// Summary is the listing view of a battle.
type Summary struct {
	ID         string `json:"id"`
	MapID      string `json:"mapId"`
	Difficulty string `json:"difficulty"`
	Turn       int    `json:"turn"`
	Ended      bool   `json:"ended"`
	Reason     string `json:"reason,omitempty"`
}

// Snapshot returns the latest published battlefield state.
func (b *Battle) Snapshot() state.BattleSnapshot {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.snapshot
}

// Summary condenses the latest snapshot.
func (b *Battle) Summary() Summary {
	snap := b.Snapshot()
	return Summary{
		ID:         b.ID,
		MapID:      b.MapID,
		Difficulty: b.Difficulty,
		Turn:       snap.Turn,
		Ended:      snap.Ended,
		Reason:     snap.Reason,
	}
}

// Stop raises the stop signal. It reports false once the battle finished.
func (b *Battle) Stop() bool {
	if b.Finished() {
		return false
	}
	b.stopOnce.Do(func() { close(b.stop) })
	return true
}

// Enqueue forwards an intent to the sequencer.
func (b *Battle) Enqueue(cmd sim.Command) bool {
	if b.Finished() {
		return false
	}
	if cmd.IssuedAt.IsZero() {
		cmd.IssuedAt = time.Now()
	}
	return b.seq.Enqueue(cmd)
}

// Done is closed when the battle goroutine exits.
func (b *Battle) Done() <-chan struct{} {
	return b.done
}

// Finished reports whether the battle reached a terminal state.
func (b *Battle) Finished() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.finished
}

// EndedAt returns when the battle finished, or the zero time while running.
func (b *Battle) EndedAt() time.Time {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.endedAt
}

// Result returns the outcome once Done is closed.
func (b *Battle) Result() (sim.Result, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.result, b.err
}

func (b *Battle) storeSnapshot(snap state.BattleSnapshot) {
	b.mu.Lock()
	b.snapshot = snap
	b.mu.Unlock()
}

func (b *Battle) finish(snap state.BattleSnapshot, result sim.Result, err error) {
	b.mu.Lock()
	b.snapshot = snap
	b.finished = true
	b.endedAt = time.Now()
	b.result = result
	b.err = err
	b.mu.Unlock()
}
