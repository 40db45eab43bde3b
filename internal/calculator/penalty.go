package calculator

import (
	"math"
	"sort"
)

// penaltyBase is the denominator of the diminishing returns exponent.
const penaltyBase = 2.67

// PenaltyCoefficient returns the scale applied to the nth strongest
// contribution in a penalized chain, counting from zero.
func PenaltyCoefficient(n int) float64 {
	x := float64(n) / penaltyBase
	return math.Exp(-x * x)
}

// penalize folds multipliers with diminishing returns. Bonuses and
// maluses form separate chains, each ordered by decreasing strength.
func penalize(mults []float64) float64 {
	var bonuses, maluses []float64
	for _, m := range mults {
		switch {
		case m > 1:
			bonuses = append(bonuses, m)
		case m < 1:
			maluses = append(maluses, m)
		}
	}
	sort.Sort(sort.Reverse(sort.Float64Slice(bonuses)))
	sort.Float64s(maluses)
	result := 1.0
	for i, m := range bonuses {
		result *= 1 + (m-1)*PenaltyCoefficient(i)
	}
	for i, m := range maluses {
		result *= 1 + (m-1)*PenaltyCoefficient(i)
	}
	return result
}
