package main

import (
	"flag"
	"fmt"
	"sort"
	"strings"

	"statforge/internal/config"
	"statforge/internal/model"
	"statforge/pkg/statforge"
)

// attrValues is a repeatable attr=value flag.
type attrValues map[model.Attribute]float64

func (v attrValues) String() string {
	parts := make([]string, 0, len(v))
	for attr, value := range v {
		parts = append(parts, fmt.Sprintf("%s=%g", attr, value))
	}
	sort.Strings(parts)
	return strings.Join(parts, ",")
}

// Set accepts attr=value. Values that are not numeric read as zero, the same
// way run files are parsed.
func (v attrValues) Set(raw string) error {
	key, value, ok := strings.Cut(raw, "=")
	if !ok {
		return fmt.Errorf("expected attr=value, got %q", raw)
	}
	parsed, err := config.ParseAttributeValues(map[string]any{key: strings.TrimSpace(value)})
	if err != nil {
		return err
	}
	for attr, f := range parsed {
		v[attr] = f
	}
	return nil
}

// stringList is a repeatable string flag.
type stringList []string

func (l *stringList) String() string {
	return strings.Join(*l, ",")
}

func (l *stringList) Set(raw string) error {
	*l = append(*l, raw)
	return nil
}

type requestFlags struct {
	profile        *string
	race           *string
	subrace        *string
	mainClass      *string
	subClass       *string
	history        *string
	astrology      *stringList
	legendExtends  *stringList
	passiveRank    *int
	weapon         *string
	level          *int
	mode           *string
	weights        attrValues
	targets        attrValues
	crit           *float64
	accuracy       *float64
	fp             *float64
	summons        *int
	minHP          *float64
	aptitudeTarget *float64
	seed           *int64
	workers        *int
	population     *int
	generations    *int
	selector       *string
}

func registerRequestFlags(fs *flag.FlagSet, defaultWorkers int) *requestFlags {
	f := &requestFlags{
		astrology:     &stringList{},
		legendExtends: &stringList{},
		weights:       attrValues{},
		targets:       attrValues{},
	}
	f.profile = fs.String("profile", "", "build type profile key")
	f.race = fs.String("race", "", "race")
	f.subrace = fs.String("subrace", "", "subrace")
	f.mainClass = fs.String("class", "", "main class")
	f.subClass = fs.String("subclass", "", "sub class (empty for monoclass)")
	f.history = fs.String("history", "", "history")
	fs.Var(f.astrology, "astrology", "astrology sign (repeatable)")
	fs.Var(f.legendExtends, "legend-extends", "legend extend (repeatable)")
	f.passiveRank = fs.Int("passive-rank", 0, "passive rank")
	f.weapon = fs.String("weapon", "", "weapon category (defaults to the profile's)")
	f.level = fs.Int("level", 1, "character level")
	f.mode = fs.String("mode", "", "objective mode: weights|targets (targets when any --target is given)")
	fs.Var(f.weights, "weight", "attribute weight attr=value (repeatable)")
	fs.Var(f.targets, "target", "attribute target attr=value (repeatable)")
	f.crit = fs.Float64("crit", 0, "crit weight")
	f.accuracy = fs.Float64("accuracy", 0, "accuracy weight")
	f.fp = fs.Float64("fp", 0, "FP weight")
	f.summons = fs.Int("summons", 0, "required summon slots")
	f.minHP = fs.Float64("min-hp", 0, "minimum HP (0 uses the default floor)")
	f.aptitudeTarget = fs.Float64("aptitude-target", 0, "hard aptitude target")
	f.seed = fs.Int64("seed", 1, "rng seed")
	f.workers = fs.Int("workers", defaultWorkers, "parallel evaluation workers")
	f.population = fs.Int("population", 0, "population size (0 uses the default)")
	f.generations = fs.Int("generations", 0, "max generations (0 uses the default)")
	f.selector = fs.String("selector", "", "parent selector: cyclic_elite|elite|tournament")
	return f
}

// override writes flag values into req. A nil set applies every flag; otherwise
// only the named flags are applied, leaving run file values in place.
func (f *requestFlags) override(req *config.Request, set map[string]bool) {
	apply := func(name string) bool {
		return set == nil || set[name]
	}
	if apply("profile") {
		req.Profile = *f.profile
	}
	if apply("race") {
		req.Selection.Race = *f.race
	}
	if apply("subrace") {
		req.Selection.Subrace = *f.subrace
	}
	if apply("class") {
		req.Selection.MainClass = *f.mainClass
	}
	if apply("subclass") {
		req.Selection.SubClass = *f.subClass
	}
	if apply("history") {
		req.Selection.History = *f.history
	}
	if apply("astrology") && len(*f.astrology) > 0 {
		req.Selection.Astrology = append([]string(nil), *f.astrology...)
	}
	if apply("legend-extends") && len(*f.legendExtends) > 0 {
		req.Selection.LegendExtends = append([]string(nil), *f.legendExtends...)
	}
	if apply("passive-rank") {
		req.Selection.PassiveRank = *f.passiveRank
	}
	if apply("weapon") {
		req.Selection.WeaponCategory = *f.weapon
	}
	if apply("level") {
		req.Level = *f.level
	}
	if apply("mode") {
		req.Mode = model.Mode(strings.ToLower(*f.mode))
	}
	if apply("weight") && len(f.weights) > 0 {
		if req.Weights.Attributes == nil {
			req.Weights.Attributes = map[model.Attribute]float64{}
		}
		for attr, w := range f.weights {
			req.Weights.Attributes[attr] = w
		}
	}
	if apply("target") && len(f.targets) > 0 {
		if req.Targets == nil {
			req.Targets = model.TargetStatMap{}
		}
		for attr, t := range f.targets {
			req.Targets[attr] = t
		}
	}
	if apply("crit") {
		req.Weights.Crit = *f.crit
	}
	if apply("accuracy") {
		req.Weights.Accuracy = *f.accuracy
	}
	if apply("fp") {
		req.Weights.FP = *f.fp
	}
	if apply("summons") {
		req.Weights.SummonSlots = *f.summons
	}
	if apply("min-hp") {
		req.Weights.MinHP = *f.minHP
	}
	if apply("aptitude-target") {
		req.Weights.AptitudeTarget = *f.aptitudeTarget
	}
	if apply("seed") {
		req.Seed = *f.seed
	}
	if apply("workers") {
		req.Workers = *f.workers
	}
	if apply("population") {
		req.Population = *f.population
	}
	if apply("generations") {
		req.Generations = *f.generations
	}
	if apply("selector") {
		req.Selector = *f.selector
	}
}

func runRequest(req config.Request) statforge.RunRequest {
	mode := req.Mode
	if mode == "" && len(req.Targets) > 0 {
		mode = model.ModeTargets
	}
	return statforge.RunRequest{
		Profile: req.Profile,
		Params: statforge.Params{
			Race:           req.Selection.Race,
			Subrace:        req.Selection.Subrace,
			MainClass:      req.Selection.MainClass,
			SubClass:       req.Selection.SubClass,
			History:        req.Selection.History,
			Astrology:      req.Selection.Astrology,
			LegendExtends:  req.Selection.LegendExtends,
			PassiveRank:    req.Selection.PassiveRank,
			WeaponCategory: req.Selection.WeaponCategory,
			Level:          req.Level,
			Mode:           mode,
			Weights:        req.Weights,
			Targets:        req.Targets,
			Seed:           req.Seed,
			Workers:        req.Workers,
		},
		Population:  req.Population,
		Generations: req.Generations,
		Selector:    req.Selector,
	}
}
