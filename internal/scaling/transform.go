// Package scaling implements the diminishing-returns transform that maps raw
// stat inputs to their effective scaled value.
package scaling

import "math"

const (
	softCapOffset      = 40.0
	chunkSize          = 3.0
	initialMultiplier  = 0.9
	multiplierDecay    = 0.08
	multiplierFloor    = 0.1
	percentBonusFactor = 0.05
	percentBonusStep   = 3.0
)

// Input bundles the raw contributions to one attribute.
type Input struct {
	Baseline            float64
	Added               float64
	ClassContribution   float64
	MonoclassMultiplier float64
	CustomFlat          float64
	AptitudeBonus       float64
	BonusPercent        float64
	SoftCapBonus        float64
}

// SoftCap is the point past which each added point yields less than one
// scaled point.
func (in Input) SoftCap() float64 {
	return in.Baseline + softCapOffset + in.SoftCapBonus
}

// Raw is the pre-cap total including any percent inflation.
func (in Input) Raw() float64 {
	multiplier := in.MonoclassMultiplier
	if multiplier == 0 {
		multiplier = 1
	}
	total := in.Baseline + in.Added + in.ClassContribution*multiplier + in.CustomFlat + in.AptitudeBonus
	if in.BonusPercent > 0 {
		total += math.Floor(total * percentBonusFactor * in.BonusPercent / percentBonusStep)
	}
	return total
}

// Transform returns the scaled value. The result is fractional; callers floor
// only when presenting it.
func Transform(in Input) float64 {
	total := in.Raw()
	softCap := in.SoftCap()
	if total <= softCap {
		return total
	}

	effective := softCap
	remaining := total - softCap
	multiplier := initialMultiplier
	for remaining > chunkSize {
		remaining -= chunkSize
		effective += chunkSize * multiplier
		multiplier = math.Max(multiplierFloor, multiplier-multiplierDecay)
	}
	return effective + remaining*multiplier
}

// Marginal is the scaled gain of allocating one more point.
func Marginal(in Input) float64 {
	next := in
	next.Added++
	return Transform(next) - Transform(in)
}

// MarginalLoss is the scaled loss of removing one allocated point. It is zero
// when nothing is allocated.
func MarginalLoss(in Input) float64 {
	if in.Added <= 0 {
		return 0
	}
	prev := in
	prev.Added--
	return Transform(in) - Transform(prev)
}
