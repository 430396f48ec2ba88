package fitness

import (
	"math"

	"statforge/internal/build"
	"statforge/internal/model"
)

// Tuning constants. They have no derivation beyond matching existing builds.
const (
	thresholdMetBonus     = 100.0
	thresholdShortfall    = 10.0
	idealBonus            = 50.0
	idealDecay            = 2.0
	overMaxPenalty        = 5.0
	blendClassSynergy     = 0.8
	blendBuildType        = 0.6
	blendWeaponScaling    = 0.4
	blendCustomWeight     = 0.7
	summonGatePenalty     = -500.0
	summonSlotReward      = 150.0
	summonFPShortfall     = 2.0
	hpFloorShortfall      = 2.0
	critLuckShare         = 0.6
	critDexterityShare    = 0.4
	critScale             = 0.5
	accuracyScale         = 0.5
	fpScale               = 0.1
	aptitudeAffectedStats = 11
	aptitudeBreakpointPts = 2
	unusedPointPenalty    = 5.0

	targetBase             = 1000.0
	targetMetBonus         = 50.0
	targetOvershootMargin  = 10.0
	targetOvershootPenalty = 2.0
	targetShortfall        = 10.0
	budgetUsageBonus       = 25.0
	budgetUsageSlack       = 5
	overBudgetPenalty      = 50.0
)

func WeightRules() []Rule {
	return []Rule{
		{Name: "thresholds", Score: scoreThresholds},
		{Name: "priority", Score: scorePriority},
		{Name: "summon_gate", Applies: wantsSummons, Score: scoreSummonGate},
		{Name: "hp_floor", Score: scoreHPFloor},
		{Name: "crit_synergy", Applies: func(s State) bool { return s.Objective.Weights.Crit > 0 }, Score: scoreCrit},
		{Name: "accuracy_synergy", Applies: func(s State) bool { return s.Objective.Weights.Accuracy > 0 }, Score: scoreAccuracy},
		{Name: "fp_synergy", Applies: func(s State) bool { return s.Objective.Weights.FP > 0 }, Score: scoreFP},
		{Name: "aptitude_efficiency", Score: scoreAptitudeEfficiency},
		{Name: "unused_budget", Score: scoreUnused},
	}
}

func TargetRules() []Rule {
	return []Rule{
		{Name: "base", Score: func(State) float64 { return targetBase }},
		{Name: "targets", Score: scoreTargets},
		{Name: "budget_usage", Score: scoreBudgetUsage},
		{Name: "summon_gate", Applies: wantsSummons, Score: scoreSummonGate},
		{Name: "hp_floor", Score: scoreHPFloor},
	}
}

func scoreThresholds(s State) float64 {
	score := 0.0
	for _, attr := range model.Attributes {
		t, ok := s.Objective.Profile.Thresholds[attr]
		if !ok || !t.Declared() {
			continue
		}
		v := s.Sheet.Value(attr)
		if t.Min > 0 {
			if v >= t.Min {
				score += thresholdMetBonus
			} else {
				score -= thresholdShortfall * (t.Min - v)
			}
		}
		if t.Ideal > 0 {
			score += math.Max(0, idealBonus-idealDecay*math.Abs(v-t.Ideal))
		}
		if t.Max > 0 && v > t.Max {
			score -= overMaxPenalty * (v - t.Max)
		}
	}
	return score
}

// BlendedPriority is the per-point value of an attribute in weight mode.
func BlendedPriority(ctx *build.Context, objective model.ObjectiveSpec, attr model.Attribute) float64 {
	return blendClassSynergy*ctx.ClassSynergy[attr] +
		blendBuildType*objective.Profile.Priorities[attr] +
		blendWeaponScaling*ctx.WeaponScaling[attr] +
		blendCustomWeight*objective.Weights.Attributes[attr]
}

func scorePriority(s State) float64 {
	score := 0.0
	for _, attr := range model.Attributes {
		score += float64(s.Allocation[attr]) * BlendedPriority(s.Context, s.Objective, attr)
	}
	return score
}

func wantsSummons(s State) bool {
	return s.Objective.Weights.SummonSlots > 0
}

// scoreSummonGate applies the hard penalty when the willpower gate is unmet;
// otherwise it rewards the slots and charges for any FP shortfall.
func scoreSummonGate(s State) float64 {
	slots := s.Objective.Weights.SummonSlots
	if s.Sheet.Value(model.Willpower) < build.SummonWillpowerMinimum(slots) {
		return summonGatePenalty
	}
	score := summonSlotReward * float64(slots)
	if need := build.SummonFPMinimum(slots); s.Sheet.Derived.FP < need {
		score -= summonFPShortfall * (need - s.Sheet.Derived.FP)
	}
	return score
}

func scoreHPFloor(s State) float64 {
	floor := build.HPFloor(s.Objective.Weights.MinHP)
	if s.Sheet.Derived.HP >= floor {
		return 0
	}
	return -hpFloorShortfall * (floor - s.Sheet.Derived.HP)
}

func scoreCrit(s State) float64 {
	relevant := critLuckShare*s.Sheet.Value(model.Luck) + critDexterityShare*s.Sheet.Value(model.Dexterity)
	return s.Objective.Weights.Crit * relevant * critScale
}

func scoreAccuracy(s State) float64 {
	return s.Objective.Weights.Accuracy * s.Sheet.Value(model.Skill) * accuracyScale
}

func scoreFP(s State) float64 {
	return s.Objective.Weights.FP * s.Sheet.Derived.FP * fpScale
}

func scoreAptitudeEfficiency(s State) float64 {
	return s.Sheet.AptitudeBonus * aptitudeAffectedStats * aptitudeBreakpointPts
}

func scoreUnused(s State) float64 {
	unused := s.Budget - s.Points
	if unused <= 0 {
		return 0
	}
	return -unusedPointPenalty * float64(unused)
}

func scoreTargets(s State) float64 {
	score := 0.0
	for _, attr := range model.Attributes {
		target, ok := s.Objective.Targets[attr]
		if !ok {
			continue
		}
		v := s.Sheet.Value(attr)
		if v >= target {
			score += targetMetBonus
			if over := v - (target + targetOvershootMargin); over > 0 {
				score -= targetOvershootPenalty * over
			}
			continue
		}
		score -= targetShortfall * (target - v)
	}
	return score
}

func scoreBudgetUsage(s State) float64 {
	score := 0.0
	if s.Points >= s.Budget-budgetUsageSlack {
		score += budgetUsageBonus
	}
	if over := s.Points - s.Budget; over > 0 {
		score -= overBudgetPenalty * float64(over)
	}
	return score
}
