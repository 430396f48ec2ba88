package alloc

import (
	"errors"
	"math"
	"math/rand"
	"sort"

	"statforge/internal/build"
	"statforge/internal/model"
)

const (
	// GlobalCap stops heuristic and random spending in a single attribute.
	GlobalCap = 70

	blendClassSynergy  = 3.5
	blendBuildType     = 2.5
	blendWeaponScaling = 1.5
	blendCustomWeight  = 2.0

	greedyShare         = 0.85
	primaryEfficiency   = 0.3
	secondaryEfficiency = 0.2
	criticalShare       = 0.6
	breakpointReach     = 6
	lowEfficiencyReject = 0.7
	randomAttemptFactor = 50
)

// criticalAttributes are pre-funded toward their declared minimum before any
// greedy spending.
var criticalAttributes = []model.Attribute{model.Vitality, model.Skill, model.Aptitude}

type Generator struct {
	ctx       *build.Context
	objective model.ObjectiveSpec
	plan      Plan
	rng       *rand.Rand
	order     []model.Attribute
	priority  map[model.Attribute]float64
}

func NewGenerator(ctx *build.Context, objective model.ObjectiveSpec, plan Plan, rng *rand.Rand) (*Generator, error) {
	if ctx == nil {
		return nil, errors.New("build context is required")
	}
	if rng == nil {
		return nil, errors.New("random source is required")
	}
	g := &Generator{
		ctx:       ctx,
		objective: objective.Normalized(),
		plan:      plan,
		rng:       rng,
		priority:  map[model.Attribute]float64{},
	}
	for _, attr := range model.Attributes {
		g.priority[attr] = CombinedPriority(ctx, g.objective, attr)
		if g.priority[attr] > 0 {
			g.order = append(g.order, attr)
		}
	}
	sort.SliceStable(g.order, func(i, j int) bool {
		return g.priority[g.order[i]] > g.priority[g.order[j]]
	})
	return g, nil
}

// CombinedPriority ranks attributes for heuristic spending.
func CombinedPriority(ctx *build.Context, objective model.ObjectiveSpec, attr model.Attribute) float64 {
	return blendClassSynergy*ctx.ClassSynergy[attr] +
		blendBuildType*objective.Profile.Priorities[attr] +
		blendWeaponScaling*ctx.WeaponScaling[attr] +
		blendCustomWeight*objective.Weights.Attributes[attr]
}

// Initial is the heuristic seed allocation.
func (g *Generator) Initial() model.Allocation {
	a := g.withFloors()

	if g.objective.Mode == model.ModeTargets {
		g.fundTargets(a)
		g.fundHPFloor(a)
	}
	g.fundCriticalMinimums(a)
	g.spendGreedy(a, g.remaining(a))
	g.completeBreakpoint(a)
	g.spendRoundRobin(a, secondaryEfficiency)
	g.dumpLeftover(a)
	return a
}

// Random applies the same gating pre-funding as Initial, then spends the rest
// one uniformly chosen non-aptitude point at a time. Targets are funded before
// the HP floor so small budgets cannot be spent on vitality alone.
func (g *Generator) Random() model.Allocation {
	a := g.withFloors()
	if g.objective.Mode == model.ModeTargets {
		g.fundTargets(a)
	}
	g.fundHPFloor(a)

	candidates := make([]model.Attribute, 0, len(model.Attributes)-1)
	for _, attr := range model.Attributes {
		if attr != model.Aptitude {
			candidates = append(candidates, attr)
		}
	}
	attempts := randomAttemptFactor * g.plan.Budget
	for g.remaining(a) > 0 && attempts > 0 {
		attempts--
		attr := candidates[g.rng.Intn(len(candidates))]
		if !g.underCaps(a, attr) {
			continue
		}
		if g.efficiency(a, attr) < primaryEfficiency && g.rng.Float64() < lowEfficiencyReject {
			continue
		}
		a[attr]++
	}
	g.dumpLeftover(a)
	return a
}

func (g *Generator) withFloors() model.Allocation {
	a := model.NewAllocation()
	for attr, floor := range g.plan.Floors {
		a[attr] = floor
	}
	return a
}

func (g *Generator) remaining(a model.Allocation) int {
	return g.plan.Budget - a.Total()
}

func (g *Generator) aptitudeBonus(a model.Allocation) float64 {
	return build.AptitudeBonus(g.ctx.Scaled(model.Aptitude, a[model.Aptitude], 0))
}

func (g *Generator) scaled(a model.Allocation, attr model.Attribute) float64 {
	return g.ctx.Scaled(attr, a[attr], g.aptitudeBonus(a))
}

func (g *Generator) efficiency(a model.Allocation, attr model.Attribute) float64 {
	return g.ctx.Efficiency(attr, a[attr], g.aptitudeBonus(a))
}

// underCaps reports whether attr may take another point: below the global cap
// and below its declared max threshold.
func (g *Generator) underCaps(a model.Allocation, attr model.Attribute) bool {
	if a[attr] >= GlobalCap || a[attr] >= model.MaxAllocation {
		return false
	}
	if t := g.objective.Profile.Thresholds[attr]; t.Max > 0 && g.scaled(a, attr) >= t.Max {
		return false
	}
	return true
}

// fundUntil adds points to attr until its scaled value reaches goal.
func (g *Generator) fundUntil(a model.Allocation, attr model.Attribute, goal float64) {
	for g.remaining(a) > 0 && a[attr] < model.MaxAllocation && g.scaled(a, attr) < goal {
		a[attr]++
	}
}

func (g *Generator) fundTargets(a model.Allocation) {
	for _, attr := range model.Attributes {
		if target, ok := g.objective.Targets[attr]; ok {
			g.fundUntil(a, attr, target)
		}
	}
}

func (g *Generator) fundCriticalMinimums(a model.Allocation) {
	for _, attr := range criticalAttributes {
		if attr == model.Aptitude && g.plan.AptitudeReserve > 0 {
			continue
		}
		if t := g.objective.Profile.Thresholds[attr]; t.Min > 0 {
			g.fundUntil(a, attr, criticalShare*t.Min)
		}
	}
}

func (g *Generator) fundHPFloor(a model.Allocation) {
	floor := build.HPFloor(g.objective.Weights.MinHP)
	need := build.VitalityForHP(floor, g.ctx.Sheet(a).Values)
	for g.remaining(a) > 0 && a[model.Vitality] < GlobalCap && g.scaled(a, model.Vitality) < need {
		a[model.Vitality]++
	}
}

// spendGreedy spends about 85% of the remaining points across prioritized
// attributes in proportion to their combined priority.
func (g *Generator) spendGreedy(a model.Allocation, remaining int) {
	if remaining <= 0 || len(g.order) == 0 {
		return
	}
	budget := int(math.Floor(greedyShare * float64(remaining)))
	total := 0.0
	for _, attr := range g.order {
		total += g.priority[attr]
	}
	spent := 0
	for _, attr := range g.order {
		share := int(math.Round(float64(budget) * g.priority[attr] / total))
		for share > 0 && spent < budget && g.underCaps(a, attr) && g.efficiency(a, attr) >= primaryEfficiency {
			a[attr]++
			share--
			spent++
		}
	}
}

// completeBreakpoint finishes the next aptitude breakpoint when it is within
// reach and aptitude is not already aligned.
func (g *Generator) completeBreakpoint(a model.Allocation) {
	aptitude := g.ctx.Scaled(model.Aptitude, a[model.Aptitude], 0)
	if int(math.Floor(aptitude))%build.AptitudeBreakpoint == 0 {
		return
	}
	current := build.AptitudeBonus(aptitude)
	for extra := 1; extra <= breakpointReach; extra++ {
		if extra > g.remaining(a) || a[model.Aptitude]+extra > model.MaxAllocation {
			return
		}
		if build.AptitudeBonus(g.ctx.Scaled(model.Aptitude, a[model.Aptitude]+extra, 0)) > current {
			a[model.Aptitude] += extra
			return
		}
	}
}

// spendRoundRobin hands out single points in priority order until nothing
// clears the efficiency floor.
func (g *Generator) spendRoundRobin(a model.Allocation, floor float64) {
	for g.remaining(a) > 0 {
		progressed := false
		for _, attr := range g.order {
			if g.remaining(a) == 0 {
				return
			}
			if g.underCaps(a, attr) && g.efficiency(a, attr) >= floor {
				a[attr]++
				progressed = true
			}
		}
		if !progressed {
			return
		}
	}
}

// dumpLeftover places whatever is left into the first attributes under the
// allocation cap.
func (g *Generator) dumpLeftover(a model.Allocation) {
	for _, attr := range model.Attributes {
		left := g.remaining(a)
		if left <= 0 {
			return
		}
		room := model.MaxAllocation - a[attr]
		if room <= 0 {
			continue
		}
		a[attr] += min(left, room)
	}
}
