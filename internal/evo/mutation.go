package evo

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"statforge/internal/alloc"
	"statforge/internal/build"
	"statforge/internal/model"
)

const (
	DefaultMutationRate = 0.1
	maxPerturbation     = 3
)

var ErrUnrepairable = errors.New("allocation cannot be repaired to parent total")

// AllocationMutation perturbs non-aptitude attributes and then repairs the
// child back to the parent's total, spending or reclaiming points where the
// transform makes them cheapest.
type AllocationMutation struct {
	Context *build.Context
	Plan    alloc.Plan
	Rand    *rand.Rand
	Rate    float64
}

func (AllocationMutation) Name() string {
	return "perturb_and_repair"
}

func (o AllocationMutation) Apply(ctx context.Context, parent model.Allocation) (model.Allocation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if o.Context == nil {
		return nil, fmt.Errorf("build context is required")
	}
	if o.Rand == nil {
		return nil, fmt.Errorf("random source is required")
	}
	rate := o.Rate
	if rate <= 0 {
		rate = DefaultMutationRate
	}

	child := parent.Clone()
	for _, attr := range model.Attributes {
		if attr == model.Aptitude || o.Rand.Float64() >= rate {
			continue
		}
		delta := o.Rand.Intn(2*maxPerturbation+1) - maxPerturbation
		child[attr] = clampInt(child[attr]+delta, o.Plan.Floor(attr), model.MaxAllocation)
	}

	if err := o.repair(child, parent.Total()); err != nil {
		return nil, err
	}
	return child, nil
}

func (o AllocationMutation) repair(a model.Allocation, total int) error {
	for a.Total() > total {
		attr, ok := o.cheapestReduction(a)
		if !ok {
			return ErrUnrepairable
		}
		a[attr]--
	}
	for a.Total() < total {
		attr, ok := o.bestIncrease(a)
		if !ok {
			return ErrUnrepairable
		}
		a[attr]++
	}
	return nil
}

// cheapestReduction picks the attribute above its floor whose last point is
// worth the least scaled value. Ties keep canonical order.
func (o AllocationMutation) cheapestReduction(a model.Allocation) (model.Attribute, bool) {
	bonus := build.AptitudeBonus(o.Context.Scaled(model.Aptitude, a[model.Aptitude], 0))
	var (
		best  model.Attribute
		found bool
		least float64
	)
	for _, attr := range model.Attributes {
		if a[attr] <= o.Plan.Floor(attr) || a[attr] <= 0 {
			continue
		}
		loss := o.Context.Loss(attr, a[attr], bonus)
		if !found || loss < least {
			best, least, found = attr, loss, true
		}
	}
	return best, found
}

// bestIncrease picks the attribute under the allocation cap whose next point
// gains the most scaled value. Ties keep canonical order.
func (o AllocationMutation) bestIncrease(a model.Allocation) (model.Attribute, bool) {
	bonus := build.AptitudeBonus(o.Context.Scaled(model.Aptitude, a[model.Aptitude], 0))
	var (
		best  model.Attribute
		found bool
		most  float64
	)
	for _, attr := range model.Attributes {
		if a[attr] >= model.MaxAllocation {
			continue
		}
		gain := o.Context.Efficiency(attr, a[attr], bonus)
		if !found || gain > most {
			best, most, found = attr, gain, true
		}
	}
	return best, found
}

func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
