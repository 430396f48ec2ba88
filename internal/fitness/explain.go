package fitness

import (
	"fmt"
	"math"

	"statforge/internal/build"
	"statforge/internal/model"
)

// Explain describes how an allocation fares against the objective. Values are
// floored for display.
func Explain(s State) []string {
	var lines []string
	switch s.Objective.Mode {
	case model.ModeTargets:
		for _, attr := range model.Attributes {
			target, ok := s.Objective.Targets[attr]
			if !ok {
				continue
			}
			v := s.Sheet.Value(attr)
			if v >= target {
				lines = append(lines, fmt.Sprintf("%s target %.0f met (%.0f)", attr, target, math.Floor(v)))
			} else {
				lines = append(lines, fmt.Sprintf("%s target %.0f missed by %.1f", attr, target, target-v))
			}
		}
	default:
		for _, attr := range model.Attributes {
			t, ok := s.Objective.Profile.Thresholds[attr]
			if !ok || t.Min <= 0 {
				continue
			}
			v := s.Sheet.Value(attr)
			if v >= t.Min {
				lines = append(lines, fmt.Sprintf("%s minimum %.0f met (%.0f)", attr, t.Min, math.Floor(v)))
			} else {
				lines = append(lines, fmt.Sprintf("%s below minimum %.0f (%.0f)", attr, t.Min, math.Floor(v)))
			}
		}
	}

	if slots := s.Objective.Weights.SummonSlots; slots > 0 {
		need := build.SummonWillpowerMinimum(slots)
		if s.Sheet.Value(model.Willpower) < need {
			lines = append(lines, fmt.Sprintf("summon gate unmet: %d slots need %.0f willpower", slots, need))
		} else {
			lines = append(lines, fmt.Sprintf("summon gate met: %d slots, %.0f FP of %.0f needed", slots, math.Floor(s.Sheet.Derived.FP), build.SummonFPMinimum(slots)))
		}
	}

	floor := build.HPFloor(s.Objective.Weights.MinHP)
	if s.Sheet.Derived.HP < floor {
		lines = append(lines, fmt.Sprintf("HP %.0f below floor %.0f", math.Floor(s.Sheet.Derived.HP), floor))
	} else {
		lines = append(lines, fmt.Sprintf("HP %.0f meets floor %.0f", math.Floor(s.Sheet.Derived.HP), floor))
	}

	if s.Sheet.AptitudeBonus > 0 {
		lines = append(lines, fmt.Sprintf("aptitude %.0f grants +%.0f to every other attribute", math.Floor(s.Sheet.Aptitude), s.Sheet.AptitudeBonus))
	}
	if unused := s.Budget - s.Points; unused > 0 {
		lines = append(lines, fmt.Sprintf("%d points left unspent", unused))
	}
	return lines
}
