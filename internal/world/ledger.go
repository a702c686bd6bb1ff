package world

import (
	"errors"
	"fmt"

	"gridtactics/server/internal/state"
	"gridtactics/server/stats"
)

var (
	ErrOutOfBounds   = errors.New("world: position out of bounds")
	ErrTileOccupied  = errors.New("world: tile occupied")
	ErrUnknownUnit   = errors.New("world: unknown unit")
	ErrDuplicateUnit = errors.New("world: duplicate unit id")
	ErrInvalidUnit   = errors.New("world: invalid unit")
)

// Ledger is the single source of truth for unit records and positions.
// It is owned by the simulation goroutine and is not safe for concurrent use.
type Ledger struct {
	config Config
	units  map[string]*state.Unit
	order  []*state.Unit
}

// NewLedger constructs an empty ledger with a normalized grid size.
func NewLedger(cfg Config) *Ledger {
	return &Ledger{
		config: cfg.normalized(),
		units:  make(map[string]*state.Unit),
	}
}

// Config returns the normalized grid configuration.
func (l *Ledger) Config() Config {
	return l.config
}

// InBounds reports whether (x, y) lies in [0,cols)×[0,rows).
func (l *Ledger) InBounds(x, y int) bool {
	return x >= 0 && y >= 0 && x < l.config.Cols && y < l.config.Rows
}

// AddUnit inserts a unit at (x, y) with full hit points and a barrier
// derived from its valor.
func (l *Ledger) AddUnit(data state.UnitData, x, y int) (*state.Unit, error) {
	if data.ID == "" {
		return nil, fmt.Errorf("%w: missing id", ErrInvalidUnit)
	}
	if !data.Team.Valid() {
		return nil, fmt.Errorf("%w: unit %s has team %q", ErrInvalidUnit, data.ID, data.Team)
	}
	if len(data.SkillSlots) > state.MaxSkillSlots {
		return nil, fmt.Errorf("%w: unit %s has %d skills", ErrInvalidUnit, data.ID, len(data.SkillSlots))
	}
	if _, exists := l.units[data.ID]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateUnit, data.ID)
	}
	if !l.InBounds(x, y) {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	if l.IsTileOccupied(x, y, "") {
		return nil, fmt.Errorf("%w: (%d,%d)", ErrTileOccupied, x, y)
	}

	component := stats.NewComponent(data.BaseStats)
	barrier := int(component.GetDerived(stats.DerivedMaxBarrier))
	tags := make(map[string]struct{}, len(data.Tags))
	for _, tag := range data.Tags {
		tags[tag] = struct{}{}
	}

	unit := &state.Unit{
		ID:             data.ID,
		Name:           data.Name,
		ClassID:        data.ClassID,
		Team:           data.Team,
		X:              x,
		Y:              y,
		Stats:          component,
		CurrentBarrier: barrier,
		MaxBarrier:     barrier,
		SkillSlots:     append([]string(nil), data.SkillSlots...),
		Tags:           tags,
		Order:          len(l.order),
	}
	unit.CurrentHP = unit.MaxHP()
	if unit.CurrentHP <= 0 {
		return nil, fmt.Errorf("%w: unit %s has no hit points", ErrInvalidUnit, data.ID)
	}

	l.units[unit.ID] = unit
	l.order = append(l.order, unit)
	return unit, nil
}

// MoveUnit relocates a live unit. The unit is left untouched on rejection.
func (l *Ledger) MoveUnit(id string, x, y int) error {
	unit, ok := l.units[id]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownUnit, id)
	}
	if !unit.Alive() {
		return fmt.Errorf("%w: %s is defeated", ErrInvalidUnit, id)
	}
	if !l.InBounds(x, y) {
		return fmt.Errorf("%w: (%d,%d)", ErrOutOfBounds, x, y)
	}
	if l.IsTileOccupied(x, y, id) {
		return fmt.Errorf("%w: (%d,%d)", ErrTileOccupied, x, y)
	}
	unit.X, unit.Y = x, y
	return nil
}

// IsTileOccupied reports whether a live unit other than excludeID stands on (x, y).
func (l *Ledger) IsTileOccupied(x, y int, excludeID string) bool {
	for _, unit := range l.order {
		if unit.ID == excludeID || !unit.Alive() {
			continue
		}
		if unit.X == x && unit.Y == y {
			return true
		}
	}
	return false
}

// GetUnitAt returns the live unit on (x, y), if any.
func (l *Ledger) GetUnitAt(x, y int) (*state.Unit, bool) {
	for _, unit := range l.order {
		if unit.Alive() && unit.X == x && unit.Y == y {
			return unit, true
		}
	}
	return nil, false
}

// Unit returns the record for id regardless of whether it is alive.
func (l *Ledger) Unit(id string) (*state.Unit, bool) {
	unit, ok := l.units[id]
	return unit, ok
}

// Units returns every unit in insertion order.
func (l *Ledger) Units() []*state.Unit {
	return append([]*state.Unit(nil), l.order...)
}

// Live returns the live units in insertion order.
func (l *Ledger) Live() []*state.Unit {
	live := make([]*state.Unit, 0, len(l.order))
	for _, unit := range l.order {
		if unit.Alive() {
			live = append(live, unit)
		}
	}
	return live
}

// LiveTeams returns the set of teams that still have a live unit.
func (l *Ledger) LiveTeams() map[state.Team]int {
	teams := make(map[state.Team]int, 2)
	for _, unit := range l.order {
		if unit.Alive() {
			teams[unit.Team]++
		}
	}
	return teams
}

// Len reports how many units were ever added.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Snapshot copies every unit in insertion order.
func (l *Ledger) Snapshot() []state.UnitSnapshot {
	out := make([]state.UnitSnapshot, 0, len(l.order))
	for _, unit := range l.order {
		out = append(out, unit.Snapshot())
	}
	return out
}

// CheckInvariants verifies the HP, barrier and occupancy invariants.
func (l *Ledger) CheckInvariants() error {
	var errs []error
	occupied := make(map[[2]int]string, len(l.order))
	for _, unit := range l.order {
		if unit.CurrentHP < 0 || unit.CurrentHP > unit.MaxHP() {
			errs = append(errs, fmt.Errorf("unit %s hp %d outside [0,%d]", unit.ID, unit.CurrentHP, unit.MaxHP()))
		}
		if unit.CurrentBarrier < 0 || unit.CurrentBarrier > unit.MaxBarrier {
			errs = append(errs, fmt.Errorf("unit %s barrier %d outside [0,%d]", unit.ID, unit.CurrentBarrier, unit.MaxBarrier))
		}
		for _, inst := range unit.StatusEffects {
			if inst.RemainingTurns < 0 {
				errs = append(errs, fmt.Errorf("unit %s status %s has %d turns", unit.ID, inst.DefinitionID, inst.RemainingTurns))
			}
		}
		if !unit.Alive() {
			continue
		}
		if !l.InBounds(unit.X, unit.Y) {
			errs = append(errs, fmt.Errorf("unit %s at (%d,%d) out of bounds", unit.ID, unit.X, unit.Y))
		}
		key := [2]int{unit.X, unit.Y}
		if other, clash := occupied[key]; clash {
			errs = append(errs, fmt.Errorf("units %s and %s share (%d,%d)", other, unit.ID, unit.X, unit.Y))
		}
		occupied[key] = unit.ID
	}
	return errors.Join(errs...)
}
