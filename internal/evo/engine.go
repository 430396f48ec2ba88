package evo

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/go-logr/logr"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"statforge/internal/model"
)

const (
	DefaultPopulationSize   = 30
	DefaultGenerations      = 500
	DefaultStallGenerations = 100
	DefaultEliteFraction    = 0.3
	DefaultMutationFraction = 0.6
)

var tracer = otel.Tracer("statforge/internal/evo")

type Scored struct {
	Allocation model.Allocation
	Score      float64
}

// Scorer must be safe for concurrent use; the engine evaluates a generation
// across Workers goroutines.
type Scorer interface {
	Score(a model.Allocation) (float64, error)
}

type ScorerFunc func(a model.Allocation) (float64, error)

func (f ScorerFunc) Score(a model.Allocation) (float64, error) {
	return f(a)
}

// Source produces seed allocations. It is only called from the engine's
// goroutine.
type Source interface {
	Initial() model.Allocation
	Random() model.Allocation
}

type RunResult struct {
	Best             Scored
	BestByGeneration []float64
	Diagnostics      []model.GenerationDiagnostics
	Generations      int
	Stalled          bool
}

type Config struct {
	Scorer           Scorer
	Source           Source
	Mutation         Operator
	Selector         Selector
	PopulationSize   int
	Generations      int
	StallGenerations int
	EliteFraction    float64
	MutationFraction float64
	Workers          int
	Seed             int64
	Rand             *rand.Rand
	Logger           logr.Logger
}

// DefaultConfig returns the search parameters without collaborators.
func DefaultConfig() Config {
	return Config{
		PopulationSize:   DefaultPopulationSize,
		Generations:      DefaultGenerations,
		StallGenerations: DefaultStallGenerations,
		EliteFraction:    DefaultEliteFraction,
		MutationFraction: DefaultMutationFraction,
		Workers:          1,
		Logger:           logr.Discard(),
	}
}

type Engine struct {
	cfg        Config
	rng        *rand.Rand
	eliteCount int
	mutants    int
}

func NewEngine(cfg Config) (*Engine, error) {
	if cfg.Scorer == nil {
		return nil, fmt.Errorf("scorer is required")
	}
	if cfg.Source == nil {
		return nil, fmt.Errorf("allocation source is required")
	}
	if cfg.Mutation == nil {
		return nil, fmt.Errorf("mutation operator is required")
	}
	if cfg.PopulationSize <= 0 {
		return nil, fmt.Errorf("population size must be > 0")
	}
	if cfg.Generations <= 0 {
		return nil, fmt.Errorf("generations must be > 0")
	}
	if cfg.StallGenerations <= 0 {
		return nil, fmt.Errorf("stall generations must be > 0")
	}
	if cfg.EliteFraction <= 0 || cfg.EliteFraction > 1 {
		return nil, fmt.Errorf("elite fraction must be in (0, 1]")
	}
	if cfg.MutationFraction < 0 || cfg.EliteFraction+cfg.MutationFraction > 1 {
		return nil, fmt.Errorf("elite and mutation fractions must sum to <= 1")
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.Selector == nil {
		cfg.Selector = CyclicEliteSelector{}
	}
	if cfg.Logger.GetSink() == nil {
		cfg.Logger = logr.Discard()
	}
	rng := cfg.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(cfg.Seed))
	}

	eliteCount := int(math.Round(float64(cfg.PopulationSize) * cfg.EliteFraction))
	if eliteCount < 1 {
		eliteCount = 1
	}
	mutants := int(math.Round(float64(cfg.PopulationSize) * cfg.MutationFraction))
	if eliteCount+mutants > cfg.PopulationSize {
		mutants = cfg.PopulationSize - eliteCount
	}

	return &Engine{cfg: cfg, rng: rng, eliteCount: eliteCount, mutants: mutants}, nil
}

// Run searches until the generation limit or until the best score has not
// improved for StallGenerations generations. Cancellation is observed between
// generations.
func (e *Engine) Run(ctx context.Context) (RunResult, error) {
	ctx, span := tracer.Start(ctx, "evo.Engine.Run")
	defer span.End()

	log := e.cfg.Logger
	log.Info("evolution started",
		"population", e.cfg.PopulationSize,
		"generations", e.cfg.Generations,
		"elites", e.eliteCount,
		"mutants", e.mutants,
		"workers", e.cfg.Workers)

	population := make([]model.Allocation, 0, e.cfg.PopulationSize)
	population = append(population, e.cfg.Source.Initial())
	for len(population) < e.cfg.PopulationSize {
		population = append(population, e.cfg.Source.Random())
	}

	result := RunResult{
		BestByGeneration: make([]float64, 0, e.cfg.Generations),
		Diagnostics:      make([]model.GenerationDiagnostics, 0, e.cfg.Generations),
	}
	haveBest := false
	stall := 0

	for gen := 0; gen < e.cfg.Generations; gen++ {
		if err := ctx.Err(); err != nil {
			return RunResult{}, err
		}

		scored, err := e.evaluate(ctx, population)
		if err != nil {
			return RunResult{}, err
		}
		sort.SliceStable(scored, func(i, j int) bool {
			return scored[i].Score > scored[j].Score
		})

		improved := !haveBest || scored[0].Score > result.Best.Score
		if improved {
			result.Best = Scored{Allocation: scored[0].Allocation.Clone(), Score: scored[0].Score}
			haveBest = true
			stall = 0
			log.V(1).Info("best improved", "generation", gen+1, "score", scored[0].Score)
		} else {
			stall++
		}
		result.BestByGeneration = append(result.BestByGeneration, result.Best.Score)
		result.Diagnostics = append(result.Diagnostics, summarizeGeneration(scored, gen+1, improved))
		result.Generations = gen + 1

		if stall >= e.cfg.StallGenerations {
			result.Stalled = true
			break
		}
		if gen+1 == e.cfg.Generations {
			break
		}

		population, err = e.nextGeneration(ctx, scored)
		if err != nil {
			return RunResult{}, err
		}
	}

	span.SetAttributes(
		attribute.Int("statforge.generations", result.Generations),
		attribute.Float64("statforge.best_score", result.Best.Score),
		attribute.Bool("statforge.stalled", result.Stalled),
	)
	log.Info("evolution finished",
		"generations", result.Generations,
		"bestScore", result.Best.Score,
		"stalled", result.Stalled)
	return result, nil
}

// evaluate scores the population in parallel. Results are stored by index so
// the ranking does not depend on scheduling.
func (e *Engine) evaluate(ctx context.Context, population []model.Allocation) ([]Scored, error) {
	scored := make([]Scored, len(population))
	p := pool.New().WithMaxGoroutines(e.cfg.Workers).WithContext(ctx).WithCancelOnError()
	for i := range population {
		p.Go(func(ctx context.Context) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			score, err := e.cfg.Scorer.Score(population[i])
			if err != nil {
				return fmt.Errorf("evaluate candidate %d: %w", i, err)
			}
			scored[i] = Scored{Allocation: population[i], Score: score}
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}
	return scored, nil
}

func (e *Engine) nextGeneration(ctx context.Context, ranked []Scored) ([]model.Allocation, error) {
	next := make([]model.Allocation, 0, e.cfg.PopulationSize)
	for i := 0; i < e.eliteCount; i++ {
		next = append(next, ranked[i].Allocation.Clone())
	}
	for i := 0; i < e.mutants; i++ {
		parent, err := e.cfg.Selector.PickParent(e.rng, ranked, e.eliteCount, i)
		if err != nil {
			return nil, err
		}
		child, err := e.cfg.Mutation.Apply(ctx, parent)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", e.cfg.Mutation.Name(), err)
		}
		next = append(next, child)
	}
	for len(next) < e.cfg.PopulationSize {
		next = append(next, e.cfg.Source.Random())
	}
	return next, nil
}
