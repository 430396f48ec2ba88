// Package build resolves catalog selections into the immutable context one
// optimization run scores against.
package build

import (
	"errors"
	"fmt"
	"math"

	"statforge/internal/gamedata"
	"statforge/internal/model"
	"statforge/internal/scaling"
)

const (
	MonoclassMultiplier = 1.5
	HumanBonusPercent   = 3.0
	HomunculiSoftCap    = 5.0
	MaxBudget           = 240
	PointsPerLevel      = 4
	AptitudeBreakpoint  = 6
	maxClassSynergy     = 10.0
)

// Weapon scaling weight by rank in the category's priority list.
var weaponRankWeights = []float64{10, 7, 5, 3, 1}

var ErrRaceNotAllowed = errors.New("subrace not available to race")

// Selection is the player's race, class and modifier choice.
type Selection struct {
	Race           string   `json:"race"`
	Subrace        string   `json:"subrace"`
	MainClass      string   `json:"main_class"`
	SubClass       string   `json:"sub_class,omitempty"`
	History        string   `json:"history,omitempty"`
	Astrology      []string `json:"astrology,omitempty"`
	LegendExtends  []string `json:"legend_extends,omitempty"`
	PassiveRank    int      `json:"passive_rank,omitempty"`
	WeaponCategory string   `json:"weapon_category,omitempty"`
}

// Context is read-only for the duration of a run.
type Context struct {
	Base                map[model.Attribute]float64
	ClassContribution   map[model.Attribute]float64
	MonoclassMultiplier float64
	CustomFlat          map[model.Attribute]float64
	BonusPercent        float64
	SoftCapBonus        float64
	ClassSynergy        map[model.Attribute]float64
	WeaponScaling       map[model.Attribute]float64
	WeaponCategory      string
}

// Budget returns the allocatable points for a level. Levels below one have
// nothing to spend.
func Budget(level int) int {
	if level < 1 {
		return 0
	}
	budget := level * PointsPerLevel
	if budget > MaxBudget {
		budget = MaxBudget
	}
	return budget
}

// Resolve builds a Context. The returned notes describe substitutions made
// while resolving; errors wrap gamedata.ErrUnknownKey or ErrRaceNotAllowed.
func Resolve(lookups gamedata.Lookups, sel Selection, preferredWeapon string) (*Context, []string, error) {
	if lookups == nil {
		return nil, nil, errors.New("lookups are required")
	}
	var notes []string

	flags, err := lookups.RaceFlags(sel.Race)
	if err != nil {
		return nil, nil, err
	}
	subrace, err := lookups.SubraceBase(sel.Subrace)
	if err != nil {
		return nil, nil, err
	}
	if !subrace.Allows(sel.Race) {
		return nil, nil, fmt.Errorf("%w: %s/%s", ErrRaceNotAllowed, sel.Race, sel.Subrace)
	}

	subClass := sel.SubClass
	if subClass == "" {
		subClass = sel.MainClass
	}
	main, err := lookups.ClassBonus(sel.MainClass)
	if err != nil {
		return nil, nil, err
	}
	sub, err := lookups.ClassBonus(subClass)
	if err != nil {
		return nil, nil, err
	}

	ctx := &Context{
		Base:                map[model.Attribute]float64{},
		ClassContribution:   map[model.Attribute]float64{},
		MonoclassMultiplier: 1,
		CustomFlat:          map[model.Attribute]float64{},
		ClassSynergy:        map[model.Attribute]float64{},
		WeaponScaling:       map[model.Attribute]float64{},
	}
	for attr, v := range subrace.Base {
		ctx.Base[attr] = float64(v)
	}
	if main.Key == sub.Key {
		ctx.MonoclassMultiplier = MonoclassMultiplier
		for attr, v := range main.Bonus {
			ctx.ClassContribution[attr] = float64(v)
		}
		notes = append(notes, fmt.Sprintf("monoclass %s: class bonuses scaled by %.1f", main.Key, MonoclassMultiplier))
	} else {
		for attr, v := range main.Bonus {
			ctx.ClassContribution[attr] += float64(v)
		}
		for attr, v := range sub.Bonus {
			ctx.ClassContribution[attr] += float64(v)
		}
	}
	if flags.IsHuman {
		ctx.BonusPercent = HumanBonusPercent
	}
	if flags.IsHomunculi || subrace.Homunculi {
		ctx.SoftCapBonus = HomunculiSoftCap
	}

	history, err := lookups.HistoryBonus(sel.History)
	if err != nil {
		return nil, nil, err
	}
	for attr, v := range history {
		ctx.CustomFlat[attr] += float64(v)
	}
	for _, key := range sel.LegendExtends {
		bonus, err := lookups.LegendExtendBonus(key)
		if err != nil {
			return nil, nil, err
		}
		ctx.CustomFlat[bonus.Attribute] += float64(bonus.Amount)
	}
	for _, planet := range sel.Astrology {
		bonus, err := lookups.AstrologyBonus(planet)
		if err != nil {
			return nil, nil, err
		}
		ctx.CustomFlat[bonus.Attribute] += float64(bonus.Amount)
	}

	passive, err := lookups.ClassPassive(sel.MainClass)
	if err != nil {
		return nil, nil, err
	}
	rank := sel.PassiveRank
	if rank < 0 {
		rank = 0
	}
	if rank > passive.MaxRank {
		notes = append(notes, fmt.Sprintf("passive rank %d clamped to %d", sel.PassiveRank, passive.MaxRank))
		rank = passive.MaxRank
	}
	for attr, v := range passive.PerRank {
		ctx.CustomFlat[attr] += float64(v * rank)
	}

	for _, attr := range model.Attributes {
		synergy := 2 * ctx.ClassContribution[attr] * ctx.MonoclassMultiplier
		ctx.ClassSynergy[attr] = math.Min(maxClassSynergy, synergy)
	}

	category, note := pickWeapon(main, sel.WeaponCategory, preferredWeapon)
	if note != "" {
		notes = append(notes, note)
	}
	if category != "" {
		ranked, err := lookups.WeaponScalingPriority(category)
		if err != nil {
			return nil, nil, err
		}
		for i, attr := range ranked {
			weight := weaponRankWeights[len(weaponRankWeights)-1]
			if i < len(weaponRankWeights) {
				weight = weaponRankWeights[i]
			}
			ctx.WeaponScaling[attr] = weight
		}
	}
	ctx.WeaponCategory = category

	return ctx, notes, nil
}

// pickWeapon prefers the explicit selection, then the build type's weapon,
// then the class's first category.
func pickWeapon(main gamedata.ClassBonus, selected, preferred string) (string, string) {
	usable := func(category string) bool {
		for _, c := range main.WeaponCategories {
			if c == category {
				return true
			}
		}
		return false
	}
	fallback := ""
	if len(main.WeaponCategories) > 0 {
		fallback = main.WeaponCategories[0]
	}
	if selected != "" {
		if usable(selected) {
			return selected, ""
		}
		return fallback, fmt.Sprintf("weapon category %s is not usable by %s; using %s", selected, main.Key, fallback)
	}
	if preferred != "" && usable(preferred) {
		return preferred, ""
	}
	return fallback, ""
}

// Input assembles the transform input for one attribute.
func (c *Context) Input(attr model.Attribute, points int, aptitudeBonus float64) scaling.Input {
	if attr == model.Aptitude {
		aptitudeBonus = 0
	}
	return scaling.Input{
		Baseline:            c.Base[attr],
		Added:               float64(points),
		ClassContribution:   c.ClassContribution[attr],
		MonoclassMultiplier: c.MonoclassMultiplier,
		CustomFlat:          c.CustomFlat[attr],
		AptitudeBonus:       aptitudeBonus,
		BonusPercent:        c.BonusPercent,
		SoftCapBonus:        c.SoftCapBonus,
	}
}

func (c *Context) Scaled(attr model.Attribute, points int, aptitudeBonus float64) float64 {
	return scaling.Transform(c.Input(attr, points, aptitudeBonus))
}

// Efficiency is the scaled gain of one more point in attr.
func (c *Context) Efficiency(attr model.Attribute, points int, aptitudeBonus float64) float64 {
	return scaling.Marginal(c.Input(attr, points, aptitudeBonus))
}

// Loss is the scaled loss of removing one point from attr.
func (c *Context) Loss(attr model.Attribute, points int, aptitudeBonus float64) float64 {
	return scaling.MarginalLoss(c.Input(attr, points, aptitudeBonus))
}

// AptitudeBonus is the flat bonus every other attribute receives from the
// final scaled aptitude.
func AptitudeBonus(finalAptitude float64) float64 {
	return math.Floor(finalAptitude / AptitudeBreakpoint)
}
