package catalog

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"sort"
	"strings"

	"gridtactics/server/internal/dice"
	"gridtactics/server/internal/state"
	"gridtactics/server/stats"
)

//go:embed configs/*.json
var embeddedConfigs embed.FS

var (
	ErrDuplicateID      = errors.New("catalog: duplicate id")
	ErrInvalid          = errors.New("catalog: invalid definition")
	ErrUnknownReference = errors.New("catalog: unknown reference")
	ErrUnknownEncounter = errors.New("catalog: unknown encounter")
)

// ClassLookup resolves class templates by id.
type ClassLookup interface {
	Class(id string) (Class, bool)
}

// SkillLookup resolves skill definitions by id.
type SkillLookup interface {
	Skill(id string) (Skill, bool)
}

// StatusLookup resolves status effect definitions by id.
type StatusLookup interface {
	StatusEffect(id string) (StatusEffectDefinition, bool)
}

// Lookup is the read-only view handed to the sequencer and AI.
type Lookup interface {
	ClassLookup
	SkillLookup
	StatusLookup
}

// Catalog indexes the static tables. It is immutable after construction.
type Catalog struct {
	classes       map[string]Class
	skills        map[string]Skill
	statusEffects map[string]StatusEffectDefinition
	maps          map[string]Map
	difficulties  map[string]Difficulty
	formations    map[string]Formation
	encounters    map[string]Encounter
}

// MustLoad loads the embedded tables and panics on failure.
func MustLoad() *Catalog {
	cat, err := Load()
	if err != nil {
		panic(fmt.Errorf("catalog: load: %w", err))
	}
	return cat
}

// Load reads every embedded config, merges them and validates references.
func Load() (*Catalog, error) {
	entries, err := fs.ReadDir(embeddedConfigs, "configs")
	if err != nil {
		return nil, fmt.Errorf("catalog: read configs: %w", err)
	}
	var merged Document
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}
		data, err := fs.ReadFile(embeddedConfigs, "configs/"+entry.Name())
		if err != nil {
			return nil, fmt.Errorf("catalog: read %q: %w", entry.Name(), err)
		}
		var doc Document
		if err := json.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("catalog: decode %q: %w", entry.Name(), err)
		}
		merged = merged.Merge(doc)
	}
	cat, err := New(merged)
	if err != nil {
		return nil, err
	}
	if err := cat.Validate(); err != nil {
		return nil, err
	}
	return cat, nil
}

// Merge appends other's tables to d.
func (d Document) Merge(other Document) Document {
	d.Classes = append(d.Classes, other.Classes...)
	d.Skills = append(d.Skills, other.Skills...)
	d.StatusEffects = append(d.StatusEffects, other.StatusEffects...)
	d.Maps = append(d.Maps, other.Maps...)
	d.Difficulties = append(d.Difficulties, other.Difficulties...)
	d.Formations = append(d.Formations, other.Formations...)
	d.Encounters = append(d.Encounters, other.Encounters...)
	return d
}

// New indexes doc. Field ranges are checked here; cross references are
// checked by Validate so tests can build deliberately incomplete tables.
func New(doc Document) (*Catalog, error) {
	cat := &Catalog{
		classes:       make(map[string]Class, len(doc.Classes)),
		skills:        make(map[string]Skill, len(doc.Skills)),
		statusEffects: make(map[string]StatusEffectDefinition, len(doc.StatusEffects)),
		maps:          make(map[string]Map, len(doc.Maps)),
		difficulties:  make(map[string]Difficulty, len(doc.Difficulties)),
		formations:    make(map[string]Formation, len(doc.Formations)),
		encounters:    make(map[string]Encounter, len(doc.Encounters)),
	}
	for _, class := range doc.Classes {
		if class.ID == "" || class.MoveRange < 0 || class.AttackRange < 1 {
			return nil, fmt.Errorf("%w: class %q", ErrInvalid, class.ID)
		}
		if len(class.DefaultSkills) > state.MaxSkillSlots {
			return nil, fmt.Errorf("%w: class %q has %d skills, max %d", ErrInvalid, class.ID, len(class.DefaultSkills), state.MaxSkillSlots)
		}
		for name, r := range class.BaseStats {
			if _, ok := stats.StatByName(name); !ok {
				return nil, fmt.Errorf("%w: class %q stat %q", ErrInvalid, class.ID, name)
			}
			if r.Min > r.Max {
				return nil, fmt.Errorf("%w: class %q stat %q range %d..%d", ErrInvalid, class.ID, name, r.Min, r.Max)
			}
		}
		if _, dup := cat.classes[class.ID]; dup {
			return nil, fmt.Errorf("%w: class %q", ErrDuplicateID, class.ID)
		}
		cat.classes[class.ID] = class
	}
	for _, skill := range doc.Skills {
		if skill.ID == "" || skill.Probability < 0 || skill.Probability > 100 {
			return nil, fmt.Errorf("%w: skill %q", ErrInvalid, skill.ID)
		}
		if _, dup := cat.skills[skill.ID]; dup {
			return nil, fmt.Errorf("%w: skill %q", ErrDuplicateID, skill.ID)
		}
		cat.skills[skill.ID] = skill
	}
	for _, def := range doc.StatusEffects {
		if def.ID == "" || def.Duration < 0 {
			return nil, fmt.Errorf("%w: status effect %q", ErrInvalid, def.ID)
		}
		for name := range def.Effect.StatModifiers {
			if _, ok := stats.StatByName(name); !ok {
				return nil, fmt.Errorf("%w: status effect %q stat %q", ErrInvalid, def.ID, name)
			}
		}
		if _, dup := cat.statusEffects[def.ID]; dup {
			return nil, fmt.Errorf("%w: status effect %q", ErrDuplicateID, def.ID)
		}
		cat.statusEffects[def.ID] = def
	}
	for _, m := range doc.Maps {
		if m.ID == "" || m.Cols <= 0 || m.Rows <= 0 {
			return nil, fmt.Errorf("%w: map %q", ErrInvalid, m.ID)
		}
		cat.maps[m.ID] = m
	}
	for _, d := range doc.Difficulties {
		if d.ID == "" || d.StatScale <= 0 {
			return nil, fmt.Errorf("%w: difficulty %q", ErrInvalid, d.ID)
		}
		cat.difficulties[d.ID] = d
	}
	for _, f := range doc.Formations {
		if f.ID == "" {
			return nil, fmt.Errorf("%w: formation without id", ErrInvalid)
		}
		cat.formations[f.ID] = f
	}
	for _, e := range doc.Encounters {
		cat.encounters[encounterKey(e.MapID, e.Difficulty)] = e
	}
	return cat, nil
}

// Validate checks that every cross reference resolves.
func (c *Catalog) Validate() error {
	var errs []error
	for _, class := range c.classes {
		for _, id := range class.DefaultSkills {
			if _, ok := c.skills[id]; !ok {
				errs = append(errs, fmt.Errorf("%w: class %q skill %q", ErrUnknownReference, class.ID, id))
			}
		}
	}
	for _, skill := range c.skills {
		if id := skill.Effect.StatusEffect; id != "" {
			if _, ok := c.statusEffects[id]; !ok {
				errs = append(errs, fmt.Errorf("%w: skill %q status effect %q", ErrUnknownReference, skill.ID, id))
			}
		}
	}
	for _, f := range c.formations {
		for _, p := range f.Units {
			if _, ok := c.classes[p.ClassID]; !ok {
				errs = append(errs, fmt.Errorf("%w: formation %q class %q", ErrUnknownReference, f.ID, p.ClassID))
			}
		}
	}
	for _, e := range c.encounters {
		if _, ok := c.maps[e.MapID]; !ok {
			errs = append(errs, fmt.Errorf("%w: encounter map %q", ErrUnknownReference, e.MapID))
		}
		if _, ok := c.difficulties[e.Difficulty]; !ok {
			errs = append(errs, fmt.Errorf("%w: encounter difficulty %q", ErrUnknownReference, e.Difficulty))
		}
		for _, id := range []string{e.Allies, e.Enemies} {
			if _, ok := c.formations[id]; !ok {
				errs = append(errs, fmt.Errorf("%w: encounter formation %q", ErrUnknownReference, id))
			}
		}
	}
	return errors.Join(errs...)
}

func (c *Catalog) Class(id string) (Class, bool) {
	class, ok := c.classes[id]
	return class, ok
}

func (c *Catalog) Skill(id string) (Skill, bool) {
	skill, ok := c.skills[id]
	return skill, ok
}

func (c *Catalog) StatusEffect(id string) (StatusEffectDefinition, bool) {
	def, ok := c.statusEffects[id]
	return def, ok
}

func (c *Catalog) Map(id string) (Map, bool) {
	m, ok := c.maps[id]
	return m, ok
}

func (c *Catalog) Difficulty(id string) (Difficulty, bool) {
	d, ok := c.difficulties[id]
	return d, ok
}

func (c *Catalog) Formation(id string) (Formation, bool) {
	f, ok := c.formations[id]
	return f, ok
}

// Encounter resolves the encounter for a map and difficulty.
func (c *Catalog) Encounter(mapID, difficulty string) (Encounter, error) {
	e, ok := c.encounters[encounterKey(mapID, difficulty)]
	if !ok {
		return Encounter{}, fmt.Errorf("%w: map %q difficulty %q", ErrUnknownEncounter, mapID, difficulty)
	}
	return e, nil
}

// EncounterKeys lists every registered map/difficulty pair in sorted order.
func (c *Catalog) EncounterKeys() []string {
	keys := make([]string, 0, len(c.encounters))
	for key := range c.encounters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// RollBaseStats rolls each ranged stat of class and multiplies it by scale.
// Stats are visited in StatID order so the roll sequence is reproducible.
func RollBaseStats(class Class, roller *dice.Roller, scale float64) stats.ValueSet {
	if scale <= 0 {
		scale = 1
	}
	var base stats.ValueSet
	for id := stats.StatID(0); id < stats.StatCount; id++ {
		r, ok := class.BaseStats[id.String()]
		if !ok {
			continue
		}
		value := r.Min
		if span := r.Max - r.Min + 1; span > 1 && roller != nil {
			value = r.Min + roller.Roll(span) - 1
		}
		if id != stats.StatSpeed && id != stats.StatWeight {
			value = int(math.Round(float64(value) * scale))
		}
		base[id] = float64(value)
	}
	return base
}

func encounterKey(mapID, difficulty string) string {
	return strings.ToLower(mapID) + "/" + strings.ToLower(difficulty)
}
