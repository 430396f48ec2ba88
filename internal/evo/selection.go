package evo

import (
	"fmt"
	"math/rand"

	"statforge/internal/model"
)

// Selector chooses the parent for the offspring-th mutation of a generation
// from the ranked population.
type Selector interface {
	Name() string
	PickParent(rng *rand.Rand, ranked []Scored, eliteCount, offspring int) (model.Allocation, error)
}

// CyclicEliteSelector walks the elites in rank order, wrapping around.
type CyclicEliteSelector struct{}

func (CyclicEliteSelector) Name() string {
	return "cyclic_elite"
}

func (CyclicEliteSelector) PickParent(_ *rand.Rand, ranked []Scored, eliteCount, offspring int) (model.Allocation, error) {
	if err := validateElites(ranked, eliteCount); err != nil {
		return nil, err
	}
	if offspring < 0 {
		return nil, fmt.Errorf("invalid offspring index: %d", offspring)
	}
	return ranked[offspring%eliteCount].Allocation, nil
}

// EliteSelector picks uniformly from the top elite set.
type EliteSelector struct{}

func (EliteSelector) Name() string {
	return "elite"
}

func (EliteSelector) PickParent(rng *rand.Rand, ranked []Scored, eliteCount, _ int) (model.Allocation, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := validateElites(ranked, eliteCount); err != nil {
		return nil, err
	}
	return ranked[rng.Intn(eliteCount)].Allocation, nil
}

// TournamentSelector samples candidates from the top of the ranking and picks
// the best score among them.
type TournamentSelector struct {
	PoolSize       int
	TournamentSize int
}

func (TournamentSelector) Name() string {
	return "tournament"
}

func (s TournamentSelector) PickParent(rng *rand.Rand, ranked []Scored, eliteCount, _ int) (model.Allocation, error) {
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if err := validateElites(ranked, eliteCount); err != nil {
		return nil, err
	}

	poolSize := s.PoolSize
	if poolSize <= 0 {
		poolSize = eliteCount * 2
	}
	if poolSize < eliteCount {
		poolSize = eliteCount
	}
	if poolSize > len(ranked) {
		poolSize = len(ranked)
	}

	tournamentSize := s.TournamentSize
	if tournamentSize <= 0 {
		tournamentSize = 3
	}
	if tournamentSize > poolSize {
		tournamentSize = poolSize
	}

	best := ranked[rng.Intn(poolSize)]
	for i := 1; i < tournamentSize; i++ {
		candidate := ranked[rng.Intn(poolSize)]
		if candidate.Score > best.Score {
			best = candidate
		}
	}
	return best.Allocation, nil
}

// SelectorByName resolves the selector names accepted in run configuration.
func SelectorByName(name string) (Selector, error) {
	switch name {
	case "", "cyclic_elite":
		return CyclicEliteSelector{}, nil
	case "elite":
		return EliteSelector{}, nil
	case "tournament":
		return TournamentSelector{}, nil
	default:
		return nil, fmt.Errorf("unsupported selector: %s", name)
	}
}

func validateElites(ranked []Scored, eliteCount int) error {
	if eliteCount <= 0 || eliteCount > len(ranked) {
		return fmt.Errorf("invalid elite count: %d", eliteCount)
	}
	return nil
}
