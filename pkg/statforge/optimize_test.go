package statforge

import (
	"context"
	"math/rand"
	"strings"
	"reflect"
	"testing"

	"statforge/internal/build"
	"statforge/internal/model"
)

func quick() []Option {
	return []Option{WithGenerations(30), WithStallGenerations(10)}
}

func warriorParams(level int) Params {
	return Params{
		Race:      "human",
		Subrace:   "highlander",
		MainClass: "warrior",
		SubClass:  "duelist",
		History:   "soldier",
		Level:     level,
		Seed:      17,
	}
}

func reasoningContains(result model.OptimizationResult, fragment string) bool {
	for _, line := range result.Reasoning {
		if strings.Contains(line, fragment) {
			return true
		}
	}
	return false
}

func TestOptimizeWeights(t *testing.T) {
	params := warriorParams(30)
	params.Weights = model.WeightVector{Crit: 2, Attributes: map[model.Attribute]float64{model.Strength: 8}}

	result := Optimize(context.Background(), DefaultCatalog(), "juggernaut", params, quick()...)
	if !result.OK {
		t.Fatalf("expected success, reasoning: %v", result.Reasoning)
	}
	if result.Budget != build.Budget(30) {
		t.Fatalf("expected budget %d, got %d", build.Budget(30), result.Budget)
	}
	if result.PointsUsed != result.Budget || result.Allocation.Total() != result.PointsUsed {
		t.Fatalf("expected full spend: budget=%d used=%d total=%d", result.Budget, result.PointsUsed, result.Allocation.Total())
	}
	if len(result.Final) != len(model.Attributes) {
		t.Fatalf("expected %d final stats, got %d", len(model.Attributes), len(result.Final))
	}
	if result.Generations <= 0 || len(result.Reasoning) == 0 {
		t.Fatalf("expected generations and reasoning, got %d / %v", result.Generations, result.Reasoning)
	}
	for _, attr := range model.Attributes {
		if result.Allocation[attr] > model.MaxAllocation {
			t.Fatalf("%s over allocation cap: %d", attr, result.Allocation[attr])
		}
	}
}

func TestOptimizeIsDeterministicForSeed(t *testing.T) {
	params := warriorParams(25)
	params.Workers = 4
	first := Optimize(context.Background(), DefaultCatalog(), "juggernaut", params, quick()...)
	second := Optimize(context.Background(), DefaultCatalog(), "juggernaut", params, quick()...)
	if !first.OK {
		t.Fatalf("expected success, reasoning: %v", first.Reasoning)
	}
	if !reflect.DeepEqual(first.Allocation, second.Allocation) || first.Score != second.Score {
		t.Fatalf("same seed diverged: %v (%f) vs %v (%f)", first.Allocation, first.Score, second.Allocation, second.Score)
	}

	injected := Optimize(context.Background(), DefaultCatalog(), "juggernaut", params,
		append(quick(), WithRand(rand.New(rand.NewSource(params.Seed))))...)
	if !reflect.DeepEqual(first.Allocation, injected.Allocation) {
		t.Fatalf("injected rng diverged: %v vs %v", first.Allocation, injected.Allocation)
	}
}

func TestOptimizeMeetsAchievableTargets(t *testing.T) {
	params := warriorParams(20)
	params.SubClass = ""
	params.History = ""
	params.Mode = model.ModeTargets
	params.Weights = model.WeightVector{MinHP: 1}
	params.Targets = model.TargetStatMap{
		model.Strength:  30,
		model.Vitality:  30,
		model.Endurance: 25,
	}

	result := Optimize(context.Background(), DefaultCatalog(), "juggernaut", params, quick()...)
	if !result.OK {
		t.Fatalf("expected success, reasoning: %v", result.Reasoning)
	}
	for attr, target := range params.Targets {
		if result.Final[attr] < target {
			t.Fatalf("%s target %.0f missed: %.2f", attr, target, result.Final[attr])
		}
	}
}

func TestOptimizeMeetsTargetUnderDefaultHPFloor(t *testing.T) {
	params := warriorParams(10)
	params.SubClass = ""
	params.History = ""
	params.Mode = model.ModeTargets
	params.Targets = model.TargetStatMap{model.Strength: 20}

	result := Optimize(context.Background(), DefaultCatalog(), "juggernaut", params, quick()...)
	if !result.OK {
		t.Fatalf("expected success, reasoning: %v", result.Reasoning)
	}
	if result.Final[model.Strength] < 20 {
		t.Fatalf("strength target missed with default hp floor: %.2f (allocation %v)", result.Final[model.Strength], result.Allocation)
	}
	if !reasoningContains(result, "strength target 20 met") {
		t.Fatalf("expected met target in reasoning: %v", result.Reasoning)
	}
}

func TestOptimizeHonorsSummonGate(t *testing.T) {
	params := Params{
		Race:      "homunculus",
		Subrace:   "vatborn",
		MainClass: "summoner",
		SubClass:  "mage",
		Level:     40,
		Seed:      3,
		Weights:   model.WeightVector{SummonSlots: 2, FP: 2},
	}
	result := Optimize(context.Background(), DefaultCatalog(), "conjurer", params, quick()...)
	if !result.OK {
		t.Fatalf("expected success, reasoning: %v", result.Reasoning)
	}
	if min := build.SummonWillpowerMinimum(2); result.Final[model.Willpower] < min {
		t.Fatalf("willpower %.2f below summon minimum %.2f", result.Final[model.Willpower], min)
	}
	if !reasoningContains(result, "summon gate met") {
		t.Fatalf("expected summon gate in reasoning: %v", result.Reasoning)
	}
}

func TestOptimizeConfigurationErrors(t *testing.T) {
	cases := []struct {
		name    string
		profile string
		mutate  func(*Params)
	}{
		{name: "unknown profile", profile: "bard"},
		{name: "unknown class", profile: "juggernaut", mutate: func(p *Params) { p.MainClass = "necromancer" }},
		{name: "subrace not allowed", profile: "juggernaut", mutate: func(p *Params) { p.Subrace = "sylvan" }},
		{name: "unknown mode", profile: "juggernaut", mutate: func(p *Params) { p.Mode = "vibes" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			params := warriorParams(10)
			if tc.mutate != nil {
				tc.mutate(&params)
			}
			result := Optimize(context.Background(), DefaultCatalog(), tc.profile, params, quick()...)
			if result.OK || result.Allocation != nil || result.Score != 0 {
				t.Fatalf("expected empty failed result, got %+v", result)
			}
			if !reasoningContains(result, "configuration error") {
				t.Fatalf("expected configuration error in reasoning: %v", result.Reasoning)
			}
		})
	}
}

type panickingCatalog struct {
	Catalog
}

func (panickingCatalog) BuildType(string) (model.BuildTypeProfile, error) {
	panic("corrupt catalog")
}

func TestOptimizeRecoversPanics(t *testing.T) {
	result := Optimize(context.Background(), panickingCatalog{Catalog: DefaultCatalog()}, "juggernaut", warriorParams(10))
	if result.OK || !reasoningContains(result, "corrupt catalog") {
		t.Fatalf("expected recovered panic, got ok=%v reasoning=%v", result.OK, result.Reasoning)
	}
}

func TestOptimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result := Optimize(ctx, DefaultCatalog(), "juggernaut", warriorParams(10))
	if result.OK || !reasoningContains(result, "cancelled") {
		t.Fatalf("expected cancelled result, got ok=%v reasoning=%v", result.OK, result.Reasoning)
	}
}

func TestOptimizeRejectsNilCatalog(t *testing.T) {
	result := Optimize(context.Background(), nil, "juggernaut", warriorParams(10))
	if result.OK || len(result.Reasoning) == 0 {
		t.Fatalf("expected failure with reasoning, got ok=%v reasoning=%v", result.OK, result.Reasoning)
	}
}
