package alloc

import (
	"math/rand"
	"reflect"
	"testing"

	"statforge/internal/build"
	"statforge/internal/fitness"
	"statforge/internal/gamedata"
	"statforge/internal/model"
)

func resolve(t *testing.T, sel build.Selection, profileKey string) (*build.Context, model.BuildTypeProfile) {
	t.Helper()
	catalog := gamedata.DefaultCatalog()
	profile, err := catalog.BuildType(profileKey)
	if err != nil {
		t.Fatalf("build type %s: %v", profileKey, err)
	}
	ctx, _, err := build.Resolve(catalog, sel, profile.WeaponCategory)
	if err != nil {
		t.Fatalf("resolve %+v: %v", sel, err)
	}
	return ctx, profile
}

func newGenerator(t *testing.T, ctx *build.Context, objective model.ObjectiveSpec, budget int, seed int64) (*Generator, Plan) {
	t.Helper()
	plan := NewPlan(ctx, objective, budget)
	gen, err := NewGenerator(ctx, objective, plan, rand.New(rand.NewSource(seed)))
	if err != nil {
		t.Fatalf("new generator: %v", err)
	}
	return gen, plan
}

func checkFloors(t *testing.T, label string, a model.Allocation, plan Plan) {
	t.Helper()
	for attr, floor := range plan.Floors {
		if a[attr] < floor {
			t.Fatalf("%s: %s=%d below floor %d", label, attr, a[attr], floor)
		}
	}
}

func TestGeneratorSpendsExactBudget(t *testing.T) {
	cases := []struct {
		name    string
		sel     build.Selection
		profile string
		weights model.WeightVector
	}{
		{
			name:    "warrior",
			sel:     build.Selection{Race: "human", Subrace: "highlander", MainClass: "warrior"},
			profile: "juggernaut",
		},
		{
			name:    "summoner",
			sel:     build.Selection{Race: "homunculus", Subrace: "vatborn", MainClass: "summoner", SubClass: "mage"},
			profile: "conjurer",
			weights: model.WeightVector{SummonSlots: 2, FP: 2},
		},
		{
			name:    "aptitude",
			sel:     build.Selection{Race: "elf", Subrace: "sylvan", MainClass: "duelist", SubClass: "ranger"},
			profile: "duelist",
			weights: model.WeightVector{AptitudeTarget: 30, Crit: 1},
		},
	}
	for _, tc := range cases {
		ctx, profile := resolve(t, tc.sel, tc.profile)
		objective := model.ObjectiveSpec{Mode: model.ModeWeights, Profile: profile, Weights: tc.weights}
		for _, level := range []int{1, 10, 30, 60, 90} {
			budget := build.Budget(level)
			gen, plan := newGenerator(t, ctx, objective, budget, int64(level))

			initial := gen.Initial()
			if initial.Total() != budget {
				t.Fatalf("%s level %d: initial spent %d of %d", tc.name, level, initial.Total(), budget)
			}
			checkFloors(t, tc.name+" initial", initial, plan)
			for _, attr := range model.Attributes {
				if initial[attr] > model.MaxAllocation {
					t.Fatalf("%s level %d: %s=%d over cap", tc.name, level, attr, initial[attr])
				}
			}
			for i := 0; i < 5; i++ {
				random := gen.Random()
				if random.Total() != budget {
					t.Fatalf("%s level %d: random spent %d of %d", tc.name, level, random.Total(), budget)
				}
				checkFloors(t, tc.name+" random", random, plan)
			}
		}
	}
}

func TestGeneratorWithZeroBudget(t *testing.T) {
	ctx, profile := resolve(t, build.Selection{Race: "human", Subrace: "highlander", MainClass: "warrior"}, "juggernaut")
	objective := model.ObjectiveSpec{
		Mode:    model.ModeWeights,
		Profile: profile,
		Weights: model.WeightVector{AptitudeTarget: 20, SummonSlots: 1},
	}
	gen, _ := newGenerator(t, ctx, objective, build.Budget(0), 1)
	if total := gen.Initial().Total(); total != 0 {
		t.Fatalf("expected empty initial allocation, got %d points", total)
	}
	if total := gen.Random().Total(); total != 0 {
		t.Fatalf("expected empty random allocation, got %d points", total)
	}
}

func TestPlanReservesGates(t *testing.T) {
	ctx, profile := resolve(t, build.Selection{Race: "homunculus", Subrace: "vatborn", MainClass: "summoner"}, "conjurer")
	objective := model.ObjectiveSpec{
		Mode:    model.ModeWeights,
		Profile: profile,
		Weights: model.WeightVector{SummonSlots: 2, AptitudeTarget: 18},
	}
	plan := NewPlan(ctx, objective, 200)

	if plan.AptitudeReserve <= 0 {
		t.Fatalf("expected an aptitude reserve, got %d", plan.AptitudeReserve)
	}
	if got := ctx.Scaled(model.Aptitude, plan.AptitudeReserve, 0); got < 18 {
		t.Fatalf("reserve %d reaches only %v aptitude", plan.AptitudeReserve, got)
	}
	if got := ctx.Scaled(model.Aptitude, plan.AptitudeReserve-1, 0); got >= 18 {
		t.Fatalf("reserve %d is not minimal: one less already reaches %v", plan.AptitudeReserve, got)
	}

	bonus := build.AptitudeBonus(ctx.Scaled(model.Aptitude, plan.AptitudeReserve, 0))
	if got := ctx.Scaled(model.Willpower, plan.SummonFloor, bonus); got < build.SummonWillpowerMinimum(2) {
		t.Fatalf("summon floor %d reaches only %v willpower", plan.SummonFloor, got)
	}
	if plan.Floor(model.Willpower) != plan.SummonFloor || plan.Floor(model.Aptitude) != plan.AptitudeReserve {
		t.Fatalf("floors do not match reserves: %+v", plan)
	}
}

func TestPlanCapsAtBudget(t *testing.T) {
	ctx, profile := resolve(t, build.Selection{Race: "human", Subrace: "lowlander", MainClass: "mage"}, "battlemage")
	plan := NewPlan(ctx, model.ObjectiveSpec{
		Profile: profile,
		Weights: model.WeightVector{AptitudeTarget: MaxAptitudeTarget, SummonSlots: 3},
	}, 12)
	if plan.AptitudeReserve != 12 {
		t.Fatalf("expected reserve capped at 12, got %d", plan.AptitudeReserve)
	}
	if plan.SummonFloor != 0 {
		t.Fatalf("expected no summon floor left, got %d", plan.SummonFloor)
	}
}

func TestInitialMeetsAptitudeTarget(t *testing.T) {
	ctx, profile := resolve(t, build.Selection{Race: "human", Subrace: "lowlander", MainClass: "mage", SubClass: "cleric"}, "battlemage")
	objective := model.ObjectiveSpec{
		Mode:    model.ModeWeights,
		Profile: profile,
		Weights: model.WeightVector{AptitudeTarget: 24},
	}
	gen, _ := newGenerator(t, ctx, objective, 200, 1)
	if got := ctx.Sheet(gen.Initial()).Aptitude; got < 24 {
		t.Fatalf("expected aptitude >= 24, got %v", got)
	}
}

func TestInitialFundsTargets(t *testing.T) {
	ctx, profile := resolve(t, build.Selection{Race: "human", Subrace: "highlander", MainClass: "warrior", SubClass: "duelist"}, "juggernaut")
	objective := model.ObjectiveSpec{
		Mode:    model.ModeTargets,
		Profile: profile,
		Targets: model.TargetStatMap{
			model.Strength:  35,
			model.Dexterity: 25,
			model.Vitality:  30,
		},
	}
	gen, _ := newGenerator(t, ctx, objective, build.Budget(50), 3)
	sheet := ctx.Sheet(gen.Initial())
	for attr, target := range objective.Targets {
		if got := sheet.Value(attr); got < target {
			t.Fatalf("%s=%v below target %v", attr, got, target)
		}
	}
}

func warriorTargetObjective(t *testing.T) (*build.Context, model.ObjectiveSpec) {
	t.Helper()
	ctx, profile := resolve(t, build.Selection{Race: "human", Subrace: "highlander", MainClass: "warrior"}, "juggernaut")
	return ctx, model.ObjectiveSpec{
		Mode:    model.ModeTargets,
		Profile: profile,
		Targets: model.TargetStatMap{model.Strength: 20},
	}
}

func TestRandomFundsTargetsBeforeHPFloor(t *testing.T) {
	ctx, objective := warriorTargetObjective(t)
	gen, _ := newGenerator(t, ctx, objective, build.Budget(10), 5)
	for i := 0; i < 20; i++ {
		a := gen.Random()
		if got := ctx.Sheet(a).Value(model.Strength); got < 20 {
			t.Fatalf("candidate %d: strength %v below target 20 (%v)", i, got, a)
		}
	}
}

func TestInitialFundsHPFloorInTargetMode(t *testing.T) {
	ctx, objective := warriorTargetObjective(t)
	budget := build.Budget(10)
	gen, _ := newGenerator(t, ctx, objective, budget, 5)

	// Meet the target with the fewest points, then pour the rest into
	// vitality: the HP floor is out of reach at this budget.
	manual := model.NewAllocation()
	for ctx.Sheet(manual).Value(model.Strength) < 20 {
		manual[model.Strength]++
	}
	manual[model.Vitality] = budget - manual.Total()

	eval := fitness.NewEvaluator(budget)
	initial := gen.Initial()
	got, err := eval.Evaluate(initial, ctx, objective.Normalized())
	if err != nil {
		t.Fatalf("evaluate initial: %v", err)
	}
	want, err := eval.Evaluate(manual, ctx, objective.Normalized())
	if err != nil {
		t.Fatalf("evaluate manual: %v", err)
	}
	if got < want {
		t.Fatalf("initial %v scores %v, below target-then-vitality allocation %v scoring %v", initial, got, manual, want)
	}
}

func TestRandomIsDeterministicForSeed(t *testing.T) {
	ctx, profile := resolve(t, build.Selection{Race: "beastkin", Subrace: "wildling", MainClass: "ranger"}, "marksman")
	objective := model.ObjectiveSpec{Mode: model.ModeWeights, Profile: profile}

	first, _ := newGenerator(t, ctx, objective, 120, 42)
	second, _ := newGenerator(t, ctx, objective, 120, 42)
	for i := 0; i < 3; i++ {
		a, b := first.Random(), second.Random()
		if !reflect.DeepEqual(a, b) {
			t.Fatalf("draw %d differs: %v vs %v", i, a, b)
		}
	}
}

func TestNewGeneratorRequiresInputs(t *testing.T) {
	if _, err := NewGenerator(nil, model.ObjectiveSpec{}, Plan{}, rand.New(rand.NewSource(1))); err == nil {
		t.Fatal("expected error for nil context")
	}
	ctx, _ := resolve(t, build.Selection{Race: "elf", Subrace: "sylvan", MainClass: "mage"}, "battlemage")
	if _, err := NewGenerator(ctx, model.ObjectiveSpec{}, Plan{}, nil); err == nil {
		t.Fatal("expected error for nil random source")
	}
}
