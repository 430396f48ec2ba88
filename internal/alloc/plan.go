// Package alloc builds budget-respecting allocations: one heuristic seed and
// any number of random ones.
package alloc

import (
	"statforge/internal/build"
	"statforge/internal/model"
)

const (
	// MaxAptitudeTarget is the largest hard aptitude target searched for;
	// anything at or above it reserves the full allocation cap.
	MaxAptitudeTarget   = 48.0
	aptitudeSearchLimit = 100
)

// Plan holds the per-run hard floors shared by the generator and mutation.
type Plan struct {
	Budget          int
	AptitudeReserve int
	SummonFloor     int
	Floors          map[model.Attribute]int
}

func NewPlan(ctx *build.Context, objective model.ObjectiveSpec, budget int) Plan {
	plan := Plan{Budget: budget, Floors: map[model.Attribute]int{}}
	remaining := budget

	if target := objective.Weights.AptitudeTarget; target > 0 {
		plan.AptitudeReserve = min(aptitudeReserve(ctx, target), remaining)
		remaining -= plan.AptitudeReserve
	}

	if slots := objective.Weights.SummonSlots; slots > 0 {
		bonus := build.AptitudeBonus(ctx.Scaled(model.Aptitude, plan.AptitudeReserve, 0))
		need := build.SummonWillpowerMinimum(slots)
		points := 0
		for points < model.MaxAllocation && ctx.Scaled(model.Willpower, points, bonus) < need {
			points++
		}
		plan.SummonFloor = min(points, remaining)
	}

	if plan.AptitudeReserve > 0 {
		plan.Floors[model.Aptitude] = plan.AptitudeReserve
	}
	if plan.SummonFloor > 0 {
		plan.Floors[model.Willpower] = plan.SummonFloor
	}
	return plan
}

// Floor returns the hard floor for attr.
func (p Plan) Floor(attr model.Attribute) int {
	return p.Floors[attr]
}

// aptitudeReserve finds the fewest points whose scaled aptitude reaches
// target, capped at the allocation limit.
func aptitudeReserve(ctx *build.Context, target float64) int {
	if target >= MaxAptitudeTarget {
		return model.MaxAllocation
	}
	for points := 0; points <= aptitudeSearchLimit; points++ {
		if ctx.Scaled(model.Aptitude, points, 0) >= target {
			return min(points, model.MaxAllocation)
		}
	}
	return model.MaxAllocation
}
