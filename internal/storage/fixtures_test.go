package storage

import (
	"time"

	"statforge/internal/model"
)

func runFixture(id string, createdAt time.Time) model.RunRecord {
	allocation := model.NewAllocation()
	allocation[model.Strength] = 30
	allocation[model.Vitality] = 20
	return Stamp(model.RunRecord{
		ID:         id,
		CreatedAt:  createdAt,
		ProfileKey: "juggernaut",
		Mode:       model.ModeWeights,
		Level:      20,
		Seed:       7,
		Selection:  map[string]string{"race": "human", "main_class": "warrior"},
		Result: model.OptimizationResult{
			OK:          true,
			Allocation:  allocation,
			PointsUsed:  50,
			Budget:      80,
			Score:       1234.5,
			Final:       map[model.Attribute]float64{model.Strength: 39, model.Vitality: 28},
			Generations: 120,
			Reasoning:   []string{"HP 640 below floor 700"},
		},
	})
}
