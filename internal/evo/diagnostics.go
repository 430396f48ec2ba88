package evo

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"statforge/internal/model"
)

// summarizeGeneration expects scored to be ranked best first.
func summarizeGeneration(scored []Scored, generation int, improved bool) model.GenerationDiagnostics {
	if len(scored) == 0 {
		return model.GenerationDiagnostics{Generation: generation}
	}

	scores := make([]float64, len(scored))
	distinct := make(map[string]struct{}, len(scored))
	for i, item := range scored {
		scores[i] = item.Score
		distinct[item.Allocation.Key()] = struct{}{}
	}

	mean, stddev := stat.MeanStdDev(scores, nil)
	if len(scores) < 2 {
		stddev = 0
	}
	return model.GenerationDiagnostics{
		Generation:   generation,
		BestScore:    scored[0].Score,
		MeanScore:    mean,
		MinScore:     floats.Min(scores),
		StdDevScore:  stddev,
		Distinct:     len(distinct),
		BestImproved: improved,
	}
}
