package catalog

// StatRange bounds the rolled value of a base stat.
type StatRange struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// Class is the immutable template shared by every unit of that class.
type Class struct {
	ID            string               `json:"id" jsonschema:"pattern=^[a-z0-9_]+$,minLength=1,required"`
	Name          string               `json:"name"`
	Role          string               `json:"role"`
	MoveRange     int                  `json:"moveRange" jsonschema:"minimum=0"`
	AttackRange   int                  `json:"attackRange" jsonschema:"minimum=1"`
	BaseStats     map[string]StatRange `json:"baseStats"`
	DefaultSkills []string             `json:"defaultSkills,omitempty"`
	Tags          []string             `json:"tags,omitempty"`
}

// SkillType classifies when a skill is used.
type SkillType string

const (
	SkillActive   SkillType = "active"
	SkillPassive  SkillType = "passive"
	SkillBuff     SkillType = "buff"
	SkillDebuff   SkillType = "debuff"
	SkillReaction SkillType = "reaction"
)

// Selectable reports whether the AI may roll for this skill type.
func (t SkillType) Selectable() bool {
	return t == SkillActive || t == SkillBuff
}

// Routine names the execution routine run when a skill fires.
type Routine string

const (
	RoutineCharge  Routine = "charge"
	RoutineStrike  Routine = "strike"
	RoutineHex     Routine = "hex"
	RoutineEmpower Routine = "empower"
	RoutineMend    Routine = "mend"
)

// DiceSpec is an NdS dice expression.
type DiceSpec struct {
	Count int `json:"count"`
	Sides int `json:"sides"`
}

// SkillEffect is the payload a skill routine consumes.
type SkillEffect struct {
	Routine          Routine   `json:"routine" jsonschema:"enum=charge,enum=strike,enum=hex,enum=empower,enum=mend"`
	DamageMultiplier float64   `json:"damageMultiplier,omitempty"`
	Dice             *DiceSpec `json:"dice,omitempty"`
	Magical          bool      `json:"magical,omitempty"`
	StatusEffect     string    `json:"statusEffect,omitempty"`
	Range            int       `json:"range,omitempty"`
	BonusMove        int       `json:"bonusMove,omitempty"`
}

// Multiplier returns the damage multiplier, defaulting to 1.
func (e SkillEffect) Multiplier() float64 {
	if e.DamageMultiplier <= 0 {
		return 1
	}
	return e.DamageMultiplier
}

// Skill is an immutable skill definition.
type Skill struct {
	ID           string      `json:"id" jsonschema:"pattern=^[a-z0-9_]+$,minLength=1,required"`
	Name         string      `json:"name"`
	Type         SkillType   `json:"type" jsonschema:"enum=active,enum=passive,enum=buff,enum=debuff,enum=reaction"`
	Probability  int         `json:"probability" jsonschema:"minimum=0,maximum=100,description=Percent chance used by the skill roulette"`
	RequiredTags []string    `json:"requiredTags,omitempty"`
	Effect       SkillEffect `json:"effect"`
}

// StatusEffectType classifies a status effect.
type StatusEffectType string

const (
	StatusBuff    StatusEffectType = "buff"
	StatusDebuff  StatusEffectType = "debuff"
	StatusControl StatusEffectType = "control"
)

// StatusPayload is the periodic and passive effect of a status.
type StatusPayload struct {
	DamagePerTurn      int            `json:"damagePerTurn,omitempty"`
	HealPerTurn        int            `json:"healPerTurn,omitempty"`
	CanAct             *bool          `json:"canAct,omitempty"`
	StatModifiers      map[string]int `json:"statModifiers,omitempty"`
	DamageReductionPct int            `json:"damageReductionPct,omitempty" jsonschema:"minimum=0,maximum=90"`
}

// StatusEffectDefinition is an immutable status effect template.
type StatusEffectDefinition struct {
	ID       string           `json:"id" jsonschema:"pattern=^[a-z0-9_]+$,minLength=1,required"`
	Name     string           `json:"name"`
	Type     StatusEffectType `json:"type" jsonschema:"enum=buff,enum=debuff,enum=control"`
	Duration int              `json:"duration" jsonschema:"minimum=0,description=Turns the effect stays attached"`
	Effect   StatusPayload    `json:"effect"`
}

// AllowsAction reports whether a unit under this effect may act. Effects
// that omit canAct never block.
func (d StatusEffectDefinition) AllowsAction() bool {
	return d.Effect.CanAct == nil || *d.Effect.CanAct
}

// Map describes the grid a battle is fought on.
type Map struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Cols int    `json:"cols"`
	Rows int    `json:"rows"`
}

// Difficulty scales enemy base stats.
type Difficulty struct {
	ID        string  `json:"id"`
	StatScale float64 `json:"statScale"`
}

// Placement positions one unit of a formation.
type Placement struct {
	ClassID string `json:"classId"`
	Name    string `json:"name,omitempty"`
	X       int    `json:"x"`
	Y       int    `json:"y"`
}

// Formation is the roster for one side of an encounter.
type Formation struct {
	ID    string      `json:"id"`
	Units []Placement `json:"units"`
}

// Encounter binds formations to a map and difficulty.
type Encounter struct {
	MapID      string `json:"mapId"`
	Difficulty string `json:"difficulty"`
	Allies     string `json:"allies"`
	Enemies    string `json:"enemies"`
}

// Document is the on-disk authoring format. Each embedded file holds a
// partial document and the loader merges them.
type Document struct {
	Classes       []Class                  `json:"classes,omitempty"`
	Skills        []Skill                  `json:"skills,omitempty"`
	StatusEffects []StatusEffectDefinition `json:"statusEffects,omitempty"`
	Maps          []Map                    `json:"maps,omitempty"`
	Difficulties  []Difficulty             `json:"difficulties,omitempty"`
	Formations    []Formation              `json:"formations,omitempty"`
	Encounters    []Encounter              `json:"encounters,omitempty"`
}
