package config

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"statforge/internal/build"
	"statforge/internal/model"
)

// Request is one optimization described in a run file.
type Request struct {
	Profile     string
	Selection   build.Selection
	Level       int
	Mode        model.Mode
	Weights     model.WeightVector
	Targets     model.TargetStatMap
	Seed        int64
	Workers     int
	Generations int
	Population  int
	Selector    string
}

// LoadRequest reads a YAML, JSON or TOML run file. Numeric fields that do not
// parse as numbers are read as zero.
func LoadRequest(path string) (Request, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return Request{}, fmt.Errorf("read run file %s: %w", path, err)
	}

	req := Request{
		Profile: v.GetString("profile"),
		Selection: build.Selection{
			Race:           v.GetString("selection.race"),
			Subrace:        v.GetString("selection.subrace"),
			MainClass:      v.GetString("selection.main_class"),
			SubClass:       v.GetString("selection.sub_class"),
			History:        v.GetString("selection.history"),
			Astrology:      cast.ToStringSlice(v.Get("selection.astrology")),
			LegendExtends:  cast.ToStringSlice(v.Get("selection.legend_extends")),
			PassiveRank:    toInt(v.Get("selection.passive_rank")),
			WeaponCategory: v.GetString("selection.weapon_category"),
		},
		Level:       toInt(v.Get("level")),
		Mode:        model.Mode(strings.ToLower(v.GetString("mode"))),
		Seed:        int64(toInt(v.Get("search.seed"))),
		Workers:     toInt(v.Get("search.workers")),
		Generations: toInt(v.Get("search.generations")),
		Population:  toInt(v.Get("search.population")),
		Selector:    v.GetString("search.selector"),
	}

	weights, err := parseWeights(v.GetStringMap("weights"))
	if err != nil {
		return Request{}, fmt.Errorf("run file %s: %w", path, err)
	}
	req.Weights = weights

	if raw := v.GetStringMap("targets"); len(raw) > 0 {
		targets, err := ParseAttributeValues(raw)
		if err != nil {
			return Request{}, fmt.Errorf("run file %s targets: %w", path, err)
		}
		req.Targets = model.TargetStatMap(targets)
	}
	return req, nil
}

// ParseAttributeValues converts attribute-keyed raw values. Unknown
// attributes are an error; values that are not numeric become zero.
func ParseAttributeValues(raw map[string]any) (map[model.Attribute]float64, error) {
	out := make(map[model.Attribute]float64, len(raw))
	for key, value := range raw {
		attr, err := model.ParseAttribute(key)
		if err != nil {
			return nil, err
		}
		out[attr] = toFloat(value)
	}
	return out, nil
}

func parseWeights(raw map[string]any) (model.WeightVector, error) {
	weights := model.WeightVector{}
	attrs := map[string]any{}
	for key, value := range raw {
		switch strings.ToLower(key) {
		case "crit":
			weights.Crit = toFloat(value)
		case "accuracy":
			weights.Accuracy = toFloat(value)
		case "fp":
			weights.FP = toFloat(value)
		case "summon_slots", "summons":
			weights.SummonSlots = toInt(value)
		case "min_hp":
			weights.MinHP = toFloat(value)
		case "aptitude_target":
			weights.AptitudeTarget = toFloat(value)
		default:
			attrs[key] = value
		}
	}
	if len(attrs) > 0 {
		parsed, err := ParseAttributeValues(attrs)
		if err != nil {
			return model.WeightVector{}, fmt.Errorf("weights: %w", err)
		}
		weights.Attributes = parsed
	}
	return weights, nil
}

func toFloat(v any) float64 {
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return 0
	}
	return f
}

func toInt(v any) int {
	i, err := cast.ToIntE(v)
	if err != nil {
		return 0
	}
	return i
}
