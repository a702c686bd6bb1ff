package stats

import "math"

func computeDerived(total ValueSet) DerivedSet {
	var derived DerivedSet
	derived[DerivedMaxBarrier] = float64(MaxBarrier(int(math.Round(total[StatValor]))))
	derived[DerivedInitiative] = clamp(total[StatSpeed], 0, 1e9)
	return derived
}

// MaxBarrier converts valor into barrier capacity. The mapping is
// monotonic non-decreasing and never negative.
func MaxBarrier(valor int) int {
	if valor <= 0 {
		return 0
	}
	return int(math.Floor(float64(valor) * valorBarrierScalar))
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

const valorBarrierScalar = 2.0
