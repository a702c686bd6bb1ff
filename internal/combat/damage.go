package combat

import "math"

// DamageType selects which mitigation stat applies.
type DamageType string

const (
	DamagePhysical DamageType = "physical"
	DamageMagical  DamageType = "magical"
)

// StatSnapshot is the subset of a unit's effective stats the damage formula reads.
type StatSnapshot struct {
	Attack     int
	Defense    int
	Magic      int
	Resistance int
}

// DamageRequest is sent across the channel. It only holds values so the
// worker never shares memory with the simulation.
type DamageRequest struct {
	Seq        uint64
	AttackerID string
	TargetID   string
	Attacker   StatSnapshot
	Target     StatSnapshot

	TargetHP         int
	TargetBarrier    int
	TargetMaxBarrier int

	Skill        string
	Multiplier   float64
	Type         DamageType
	StatusEffect string

	RawDamage    int
	ReductionPct int
}

// DamageResult is the worker's reply payload.
type DamageResult struct {
	UnitID             string
	HPDamageDealt      int
	BarrierDamageDealt int
	Mitigated          int
}

// Total is the damage that will be applied across both pools.
func (r DamageResult) Total() int {
	return r.HPDamageDealt + r.BarrierDamageDealt
}

// Compute applies the multiplier, mitigation and reduction to the pre-rolled
// value and splits the outcome between barrier and hit points.
func Compute(req DamageRequest) DamageResult {
	multiplier := req.Multiplier
	if multiplier <= 0 {
		multiplier = 1
	}
	scaled := float64(req.RawDamage) * multiplier

	mitigation := req.Target.Defense
	if req.Type == DamageMagical {
		mitigation = req.Target.Resistance
	}
	mitigated := scaled - float64(mitigation)

	reduction := max(0, min(req.ReductionPct, 100))
	final := int(math.Floor(mitigated * float64(100-reduction) / 100))
	if final < 0 {
		final = 0
	}

	barrier := min(max(req.TargetBarrier, 0), final)
	hp := min(max(req.TargetHP, 0), final-barrier)
	return DamageResult{
		UnitID:             req.TargetID,
		HPDamageDealt:      hp,
		BarrierDamageDealt: barrier,
		Mitigated:          final,
	}
}
