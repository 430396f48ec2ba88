package model

import (
	"math"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

type Mode string

const (
	ModeWeights Mode = "weights"
	ModeTargets Mode = "targets"
)

// Threshold declares the acceptable band for one attribute's scaled value.
// Zero fields are undeclared.
type Threshold struct {
	Min   float64 `json:"min,omitempty"`
	Ideal float64 `json:"ideal,omitempty"`
	Max   float64 `json:"max,omitempty"`
}

func (t Threshold) Declared() bool {
	return t.Min > 0 || t.Ideal > 0 || t.Max > 0
}

// BuildTypeProfile is a named playstyle preset.
type BuildTypeProfile struct {
	Key            string                  `json:"key"`
	Name           string                  `json:"name"`
	Description    string                  `json:"description,omitempty"`
	Priorities     map[Attribute]float64   `json:"priorities,omitempty"`
	Thresholds     map[Attribute]Threshold `json:"thresholds,omitempty"`
	WeaponCategory string                  `json:"weapon_category,omitempty"`
}

// WeightVector holds the weight-mode preference dimensions. SummonSlots,
// MinHP and AptitudeTarget are hard gates and also apply in target mode.
type WeightVector struct {
	Attributes     map[Attribute]float64 `json:"attributes,omitempty"`
	Crit           float64               `json:"crit,omitempty"`
	Accuracy       float64               `json:"accuracy,omitempty"`
	FP             float64               `json:"fp,omitempty"`
	SummonSlots    int                   `json:"summon_slots,omitempty"`
	MinHP          float64               `json:"min_hp,omitempty"`
	AptitudeTarget float64               `json:"aptitude_target,omitempty"`
}

type TargetStatMap map[Attribute]float64

type ObjectiveSpec struct {
	Mode    Mode             `json:"mode"`
	Profile BuildTypeProfile `json:"profile"`
	Weights WeightVector     `json:"weights"`
	Targets TargetStatMap    `json:"targets,omitempty"`
}

type Candidate struct {
	Allocation Allocation `json:"allocation"`
	Score      float64    `json:"score"`
}

type DerivedStats struct {
	HP          float64 `json:"hp"`
	FP          float64 `json:"fp"`
	CritChance  float64 `json:"crit_chance"`
	Accuracy    float64 `json:"accuracy"`
	SummonSlots int     `json:"summon_slots"`
}

// OptimizationResult is the value handed back to callers. OK is false for the
// neutral result produced when inputs could not be resolved.
type OptimizationResult struct {
	OK          bool                  `json:"ok"`
	Allocation  Allocation            `json:"allocation"`
	PointsUsed  int                   `json:"points_used"`
	Budget      int                   `json:"budget"`
	Score       float64               `json:"score"`
	Final       map[Attribute]float64 `json:"final,omitempty"`
	Derived     DerivedStats          `json:"derived"`
	Generations int                   `json:"generations"`
	Reasoning   []string              `json:"reasoning,omitempty"`
}

type GenerationDiagnostics struct {
	Generation   int     `json:"generation"`
	BestScore    float64 `json:"best_score"`
	MeanScore    float64 `json:"mean_score"`
	MinScore     float64 `json:"min_score"`
	StdDevScore  float64 `json:"stddev_score"`
	Distinct     int     `json:"distinct"`
	BestImproved bool    `json:"best_improved"`
}

// RunRecord is a persisted optimization run.
type RunRecord struct {
	VersionedRecord
	ID         string             `json:"id"`
	CreatedAt  time.Time          `json:"created_at"`
	ProfileKey string             `json:"profile_key"`
	Mode       Mode               `json:"mode"`
	Level      int                `json:"level"`
	Seed       int64              `json:"seed"`
	Selection  map[string]string  `json:"selection,omitempty"`
	Result     OptimizationResult `json:"result"`
}

const maxWeight = 10.0

// Normalized clamps weights into [0, 10] and targets and raw floors to be
// non-negative, so malformed objectives still converge.
func (o ObjectiveSpec) Normalized() ObjectiveSpec {
	out := o
	if out.Mode == "" {
		out.Mode = ModeWeights
	}
	out.Weights.Attributes = make(map[Attribute]float64, len(o.Weights.Attributes))
	for attr, w := range o.Weights.Attributes {
		out.Weights.Attributes[attr] = clamp(w, 0, maxWeight)
	}
	out.Weights.Crit = clamp(o.Weights.Crit, 0, maxWeight)
	out.Weights.Accuracy = clamp(o.Weights.Accuracy, 0, maxWeight)
	out.Weights.FP = clamp(o.Weights.FP, 0, maxWeight)
	if out.Weights.SummonSlots < 0 {
		out.Weights.SummonSlots = 0
	}
	if out.Weights.MinHP < 0 {
		out.Weights.MinHP = 0
	}
	if out.Weights.AptitudeTarget < 0 {
		out.Weights.AptitudeTarget = 0
	}
	if o.Targets != nil {
		out.Targets = make(TargetStatMap, len(o.Targets))
		for attr, v := range o.Targets {
			if v < 0 || math.IsNaN(v) {
				v = 0
			}
			out.Targets[attr] = v
		}
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) || v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
