// Package dice implements the uniform rolls, advantage, damage rolls and
// saving throws used by combat resolution. Every draw comes from one
// injected Source so a battle can be replayed from its seed.
package dice

import (
	"errors"
	"strings"

	"gridtactics/server/internal/telemetry"
)

// ErrInvalidDiceSpec indicates a die specification has invalid fields.
var ErrInvalidDiceSpec = errors.New("dice must have positive sides and count")

// Default damage dice used when an attack carries no skill.
const (
	DefaultDamageDiceCount = 1
	DefaultDamageDiceSides = 6
	// SaveDie is the die rolled for saving throws.
	SaveDie = 20
)

// SaveType names the attribute a saving throw is made against.
type SaveType string

const (
	SaveStrength     SaveType = "strength"
	SaveDexterity    SaveType = "dexterity"
	SaveConstitution SaveType = "constitution"
	SaveFortitude    SaveType = "fortitude"
	SaveIntelligence SaveType = "intelligence"
	SaveWisdom       SaveType = "wisdom"
	SaveWill         SaveType = "will"
	SaveCharisma     SaveType = "charisma"
)

// AttackerStats carries the flat bonuses a damage roll can add.
type AttackerStats struct {
	Attack int
	Magic  int
}

// SaveStats carries the attributes saving throws map onto.
type SaveStats struct {
	Strength     int
	Agility      int
	Endurance    int
	Intelligence int
	Wisdom       int
}

// DamageDice describes the dice portion of a damage roll.
type DamageDice struct {
	Count   int
	Sides   int
	Magical bool
}

// DamageRoll is the pre-rolled raw damage sent to the damage channel.
type DamageRoll struct {
	Rolls   []int
	Dice    int
	Bonus   int
	Total   int
	Magical bool
}

// SavingThrow captures a resolved saving throw.
type SavingThrow struct {
	Roll       int
	Bonus      int
	Total      int
	Difficulty int
	Success    bool
}

// Roller draws every roll from a single Source.
type Roller struct {
	src    Source
	logger telemetry.Logger
}

// NewRoller wraps src. A nil logger discards warnings.
func NewRoller(src Source, logger telemetry.Logger) *Roller {
	if src == nil {
		src = NewSource(1)
	}
	if logger == nil {
		logger = telemetry.Discard()
	}
	return &Roller{src: src, logger: logger}
}

// Roll draws one uniform face in [1, sides].
func (r *Roller) Roll(sides int) int {
	if sides <= 0 {
		return 0
	}
	return r.src.Intn(sides) + 1
}

// RollDice sums n independent draws over [1, sides].
func (r *Roller) RollDice(n, sides int) (int, error) {
	rolls, err := r.rollEach(n, sides)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, v := range rolls {
		total += v
	}
	return total, nil
}

func (r *Roller) rollEach(n, sides int) ([]int, error) {
	if n <= 0 || sides <= 0 {
		return nil, ErrInvalidDiceSpec
	}
	rolls := make([]int, n)
	for i := range rolls {
		rolls[i] = r.Roll(sides)
	}
	return rolls, nil
}

// RollWithAdvantage draws twice and keeps the higher face.
func (r *Roller) RollWithAdvantage(sides int) int {
	a, b := r.Roll(sides), r.Roll(sides)
	if a > b {
		return a
	}
	return b
}

// RollWithDisadvantage draws twice and keeps the lower face.
func (r *Roller) RollWithDisadvantage(sides int) int {
	a, b := r.Roll(sides), r.Roll(sides)
	if a < b {
		return a
	}
	return b
}

// Percent draws a uniform value in [0, 100).
func (r *Roller) Percent() float64 {
	return r.src.Float64() * 100
}

// PerformDamageRoll rolls the dice portion (1d6 when spec is nil) and adds
// the attacker's attack or magic stat depending on the damage type.
func (r *Roller) PerformDamageRoll(attacker AttackerStats, spec *DamageDice) DamageRoll {
	count, sides, magical := DefaultDamageDiceCount, DefaultDamageDiceSides, false
	if spec != nil {
		if spec.Count > 0 {
			count = spec.Count
		}
		if spec.Sides > 0 {
			sides = spec.Sides
		}
		magical = spec.Magical
	}
	rolls, _ := r.rollEach(count, sides)
	sum := 0
	for _, v := range rolls {
		sum += v
	}
	bonus := attacker.Attack
	if magical {
		bonus = attacker.Magic
	}
	total := sum + bonus
	if total < 0 {
		total = 0
	}
	return DamageRoll{Rolls: rolls, Dice: sum, Bonus: bonus, Total: total, Magical: magical}
}

// PerformSavingThrow rolls 1d20 plus the stat mapped from saveType and
// succeeds when the total meets difficultyClass.
func (r *Roller) PerformSavingThrow(unit SaveStats, difficultyClass int, saveType SaveType) SavingThrow {
	bonus := r.saveBonus(unit, saveType)
	roll := r.Roll(SaveDie)
	total := roll + bonus
	return SavingThrow{
		Roll:       roll,
		Bonus:      bonus,
		Total:      total,
		Difficulty: difficultyClass,
		Success:    total >= difficultyClass,
	}
}

func (r *Roller) saveBonus(unit SaveStats, saveType SaveType) int {
	bonus, ok := SaveBonus(unit, saveType)
	if !ok {
		r.logger.Printf("[dice] unknown save type %q, using no bonus", saveType)
	}
	return bonus
}

// SaveBonus maps a save type onto the unit attribute it uses. Charisma is
// recognised but not modelled and contributes zero.
func SaveBonus(unit SaveStats, saveType SaveType) (int, bool) {
	switch SaveType(strings.ToLower(strings.TrimSpace(string(saveType)))) {
	case SaveStrength:
		return unit.Strength, true
	case SaveDexterity:
		return unit.Agility, true
	case SaveConstitution, SaveFortitude:
		return unit.Endurance, true
	case SaveIntelligence:
		return unit.Intelligence, true
	case SaveWisdom, SaveWill:
		return unit.Wisdom, true
	case SaveCharisma:
		return 0, true
	default:
		return 0, false
	}
}
