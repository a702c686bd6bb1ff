package battle

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"sync"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"gridtactics/server/internal/catalog"
	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/sim"
	"gridtactics/server/internal/state"
	"gridtactics/server/internal/telemetry"
	"gridtactics/server/internal/world"
	"gridtactics/server/logging"
	"gridtactics/server/logging/lifecycle"
)

var (
	ErrUnknownBattle  = errors.New("battle: unknown battle")
	ErrTooManyBattles = errors.New("battle: too many running battles")
	ErrShuttingDown   = errors.New("battle: manager is shutting down")
)

// Config tunes the manager.
type Config struct {
	Sim sim.Config
	// Seed derives per-battle seeds when non-zero; zero draws a fresh seed
	// for every battle.
	Seed int64
	// MaxRunning caps concurrently running battles. Zero disables the cap.
	MaxRunning int
	// MaxFinished caps how many finished battles stay queryable. The oldest
	// are evicted first. Zero keeps every finished battle.
	MaxFinished int
}

// Deps are shared by every battle the manager starts.
type Deps struct {
	Catalog   *catalog.Catalog
	Publisher logging.Publisher
	Logger    telemetry.Logger
	Metrics   telemetry.Metrics
	Clock     logging.Clock
	Tracer    trace.Tracer
}

// StartRequest is the battle-start signal.
type StartRequest struct {
	MapID      string `json:"mapId"`
	Difficulty string `json:"difficulty"`
	Seed       int64  `json:"seed,omitempty"`
}

// Manager owns the running battles.
type Manager struct {
	cfg  Config
	deps Deps

	mu      sync.Mutex
	battles map[string]*Battle
	closing bool
	wg      sync.WaitGroup
}

// NewManager constructs a manager. The catalog is required.
func NewManager(cfg Config, deps Deps) (*Manager, error) {
	if deps.Catalog == nil {
		return nil, errors.New("battle: catalog is required")
	}
	if deps.Publisher == nil {
		deps.Publisher = logging.NopPublisher()
	}
	if deps.Logger == nil {
		deps.Logger = telemetry.Discard()
	}
	return &Manager{
		cfg:     cfg,
		deps:    deps,
		battles: make(map[string]*Battle),
	}, nil
}

// Start spawns the encounter for req and runs it on its own goroutine.
func (m *Manager) Start(ctx context.Context, req StartRequest) (*Battle, error) {
	encounter, err := m.deps.Catalog.Encounter(req.MapID, req.Difficulty)
	if err != nil {
		return nil, err
	}
	battleID := "b_" + uuid.NewString()[:8]
	seed, err := m.seedFor(req.Seed, battleID)
	if err != nil {
		return nil, err
	}
	roller := dice.NewRoller(dice.NewSource(seed), m.deps.Logger)

	ledger, spawned, err := m.spawn(encounter, roller)
	if err != nil {
		return nil, fmt.Errorf("battle: spawn %s/%s: %w", encounter.MapID, encounter.Difficulty, err)
	}

	seq, err := sim.NewSequencer(battleID, ledger, m.cfg.Sim, sim.Deps{
		Lookup:    m.deps.Catalog,
		Roller:    roller,
		Publisher: m.deps.Publisher,
		Logger:    telemetry.Prefixed(m.deps.Logger, "[battle "+battleID+"] "),
		Metrics:   m.deps.Metrics,
		Clock:     m.deps.Clock,
		Tracer:    m.deps.Tracer,
	})
	if err != nil {
		return nil, err
	}

	b := &Battle{
		ID:         battleID,
		MapID:      encounter.MapID,
		Difficulty: encounter.Difficulty,
		Seed:       seed,
		seq:        seq,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
		snapshot:   seq.Snapshot(),
	}

	m.mu.Lock()
	if m.closing {
		m.mu.Unlock()
		seq.Close()
		return nil, ErrShuttingDown
	}
	if m.cfg.MaxRunning > 0 && m.runningLocked() >= m.cfg.MaxRunning {
		m.mu.Unlock()
		seq.Close()
		return nil, ErrTooManyBattles
	}
	m.battles[battleID] = b
	m.wg.Add(1)
	m.mu.Unlock()

	dispatcher := sim.NewDispatcher(m.deps.Publisher, battleID, m.deps.Clock)
	events := make([]logging.Event, 0, len(spawned)+1)
	events = append(events, lifecycle.BattleStarted(logging.BattleRef(battleID), lifecycle.BattleStartedPayload{
		MapID:      encounter.MapID,
		Difficulty: encounter.Difficulty,
		Units:      len(spawned),
		Seed:       seed,
	}))
	for _, unit := range spawned {
		events = append(events, lifecycle.UnitSpawned(logging.UnitRef(unit.ID), lifecycle.UnitSpawnedPayload{
			Class:   unit.ClassID,
			Team:    string(unit.Team),
			X:       unit.X,
			Y:       unit.Y,
			HP:      unit.CurrentHP,
			Barrier: unit.CurrentBarrier,
		}))
	}
	dispatcher.Dispatch(ctx, events)
	m.add("battles_started_total", 1)
	m.deps.Logger.Printf("[battle] started %s map=%s difficulty=%s units=%d seed=%d", battleID, encounter.MapID, encounter.Difficulty, len(spawned), seed)

	go m.run(context.WithoutCancel(ctx), b)
	return b, nil
}

func (m *Manager) run(ctx context.Context, b *Battle) {
	defer m.wg.Done()
	defer close(b.done)
	result, err := b.seq.Run(ctx, b.stop, sim.Hooks{AfterStep: b.storeSnapshot})
	b.finish(b.seq.Snapshot(), result, err)
	m.mu.Lock()
	evicted := m.pruneLocked()
	m.mu.Unlock()
	if evicted > 0 {
		m.add("battles_evicted_total", uint64(evicted))
	}
	if err != nil {
		m.deps.Logger.Printf("[battle] %s halted: %v", b.ID, err)
	}
	m.deps.Logger.Printf("[battle] %s ended reason=%s winner=%s turns=%d", b.ID, result.Reason, result.Winner, result.Turns)
	m.add("battles_ended_total", 1)
}

// spawn places both formations on a fresh ledger. Enemy stats are scaled by
// the encounter difficulty.
func (m *Manager) spawn(encounter catalog.Encounter, roller *dice.Roller) (*world.Ledger, []*state.Unit, error) {
	cat := m.deps.Catalog
	grid, ok := cat.Map(encounter.MapID)
	if !ok {
		return nil, nil, fmt.Errorf("%w: map %s", catalog.ErrUnknownReference, encounter.MapID)
	}
	difficulty, ok := cat.Difficulty(encounter.Difficulty)
	if !ok {
		return nil, nil, fmt.Errorf("%w: difficulty %s", catalog.ErrUnknownReference, encounter.Difficulty)
	}

	ledger := world.NewLedger(world.Config{Cols: grid.Cols, Rows: grid.Rows})
	sides := []struct {
		formation string
		team      state.Team
		scale     float64
	}{
		{encounter.Allies, state.TeamAlly, 1},
		{encounter.Enemies, state.TeamEnemy, difficulty.StatScale},
	}
	var spawned []*state.Unit
	for _, side := range sides {
		formation, ok := cat.Formation(side.formation)
		if !ok {
			return nil, nil, fmt.Errorf("%w: formation %s", catalog.ErrUnknownReference, side.formation)
		}
		for _, placement := range formation.Units {
			class, ok := cat.Class(placement.ClassID)
			if !ok {
				return nil, nil, fmt.Errorf("%w: class %s", catalog.ErrUnknownReference, placement.ClassID)
			}
			name := placement.Name
			if name == "" {
				name = class.Name
			}
			unit, err := ledger.AddUnit(state.UnitData{
				ID:         "u_" + uuid.NewString()[:8],
				Name:       name,
				ClassID:    class.ID,
				Team:       side.team,
				BaseStats:  catalog.RollBaseStats(class, roller, side.scale),
				SkillSlots: append([]string(nil), class.DefaultSkills...),
				Tags:       append([]string(nil), class.Tags...),
			}, placement.X, placement.Y)
			if err != nil {
				return nil, nil, err
			}
			spawned = append(spawned, unit)
		}
	}
	return ledger, spawned, nil
}

func (m *Manager) seedFor(requested int64, battleID string) (int64, error) {
	switch {
	case requested != 0:
		return requested, nil
	case m.cfg.Seed != 0:
		return dice.DeterministicSeed(strconv.FormatInt(m.cfg.Seed, 10), battleID), nil
	}
	seed, err := dice.NewSeed()
	if err != nil {
		return 0, fmt.Errorf("battle: seed: %w", err)
	}
	return seed, nil
}

// Get returns a battle by id, running or finished.
func (m *Manager) Get(id string) (*Battle, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.battles[id]
	return b, ok
}

// List returns summaries of every known battle.
func (m *Manager) List() []Summary {
	m.mu.Lock()
	battles := make([]*Battle, 0, len(m.battles))
	for _, b := range m.battles {
		battles = append(battles, b)
	}
	m.mu.Unlock()

	out := make([]Summary, 0, len(battles))
	for _, b := range battles {
		out = append(out, b.Summary())
	}
	return out
}

// Stop raises the stop signal on a battle.
func (m *Manager) Stop(id string) error {
	b, ok := m.Get(id)
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownBattle, id)
	}
	if !b.Stop() {
		return fmt.Errorf("%w: %s", sim.ErrAlreadyEnded, id)
	}
	return nil
}

// Shutdown stops every battle and waits for their goroutines to exit.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.mu.Lock()
	m.closing = true
	battles := make([]*Battle, 0, len(m.battles))
	for _, b := range m.battles {
		battles = append(battles, b)
	}
	m.mu.Unlock()

	for _, b := range battles {
		b.Stop()
	}
	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (m *Manager) runningLocked() int {
	running := 0
	for _, b := range m.battles {
		if !b.Finished() {
			running++
		}
	}
	return running
}

// pruneLocked drops the oldest finished battles beyond MaxFinished.
func (m *Manager) pruneLocked() int {
	if m.cfg.MaxFinished <= 0 {
		return 0
	}
	var finished []*Battle
	for _, b := range m.battles {
		if b.Finished() {
			finished = append(finished, b)
		}
	}
	excess := len(finished) - m.cfg.MaxFinished
	if excess <= 0 {
		return 0
	}
	sort.Slice(finished, func(i, j int) bool {
		return finished[i].EndedAt().Before(finished[j].EndedAt())
	})
	for _, b := range finished[:excess] {
		delete(m.battles, b.ID)
	}
	return excess
}

func (m *Manager) add(key string, delta uint64) {
	if m.deps.Metrics != nil {
		m.deps.Metrics.Add(key, delta)
	}
}

// Encounters lists the startable map/difficulty pairs.
func (m *Manager) Encounters() []string {
	return m.deps.Catalog.EncounterKeys()
}
