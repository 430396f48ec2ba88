// Package statforge is the public entry point of the stat allocation
// optimizer.
package statforge

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"github.com/go-logr/logr"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"statforge/internal/alloc"
	"statforge/internal/build"
	"statforge/internal/evo"
	"statforge/internal/fitness"
	"statforge/internal/gamedata"
	"statforge/internal/model"
)

var tracer = otel.Tracer("statforge/pkg/statforge")

var ErrUnknownMode = fitness.ErrUnknownMode

// Catalog is the read-only game data an optimization resolves against.
type Catalog interface {
	gamedata.Lookups
	gamedata.Profiles
}

func DefaultCatalog() Catalog {
	return gamedata.DefaultCatalog()
}

func LoadCatalogFile(path string) (Catalog, error) {
	return gamedata.LoadCatalogFile(path)
}

// Params describes one optimization: the character selection, the level that
// sets the budget, and the objective.
type Params struct {
	Race           string
	Subrace        string
	MainClass      string
	SubClass       string
	History        string
	Astrology      []string
	LegendExtends  []string
	PassiveRank    int
	WeaponCategory string
	Level          int
	Mode           model.Mode
	Weights        model.WeightVector
	Targets        model.TargetStatMap
	Seed           int64
	Workers        int
}

func (p Params) selection() build.Selection {
	return build.Selection{
		Race:           p.Race,
		Subrace:        p.Subrace,
		MainClass:      p.MainClass,
		SubClass:       p.SubClass,
		History:        p.History,
		Astrology:      p.Astrology,
		LegendExtends:  p.LegendExtends,
		PassiveRank:    p.PassiveRank,
		WeaponCategory: p.WeaponCategory,
	}
}

type settings struct {
	logger           logr.Logger
	rng              *rand.Rand
	population       int
	generations      int
	stallGenerations int
	selector         string
}

type Option func(*settings)

func WithLogger(logger logr.Logger) Option {
	return func(s *settings) { s.logger = logger }
}

// WithRand replaces the seeded random source. Params.Seed is then ignored.
func WithRand(rng *rand.Rand) Option {
	return func(s *settings) { s.rng = rng }
}

func WithPopulation(n int) Option {
	return func(s *settings) { s.population = n }
}

func WithGenerations(n int) Option {
	return func(s *settings) { s.generations = n }
}

func WithStallGenerations(n int) Option {
	return func(s *settings) { s.stallGenerations = n }
}

// WithSelector picks the parent selector by name: cyclic_elite (default),
// elite or tournament.
func WithSelector(name string) Option {
	return func(s *settings) { s.selector = name }
}

// Optimize searches for the best allocation of the level's budget. It never
// fails: configuration errors, cancellation and panics produce a zero result
// with OK unset and the cause in Reasoning.
func Optimize(ctx context.Context, catalog Catalog, profileKey string, params Params, opts ...Option) model.OptimizationResult {
	result, _ := optimize(ctx, catalog, profileKey, params, opts...)
	return result
}

// optimize also returns the engine run for callers that persist history.
func optimize(ctx context.Context, catalog Catalog, profileKey string, params Params, opts ...Option) (result model.OptimizationResult, run evo.RunResult) {
	s := settings{logger: logr.Discard()}
	for _, opt := range opts {
		opt(&s)
	}

	ctx, span := tracer.Start(ctx, "statforge.Optimize")
	defer span.End()
	span.SetAttributes(
		attribute.String("statforge.profile", profileKey),
		attribute.Int("statforge.level", params.Level),
		attribute.String("statforge.mode", string(params.Mode)),
	)

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("optimizer panic: %v", r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			s.logger.Error(err, "optimization aborted", "profile", profileKey)
			result, run = failure(err), evo.RunResult{}
		}
	}()

	result, run, err := search(ctx, catalog, profileKey, params, s)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.logger.Error(err, "optimization failed", "profile", profileKey)
		return failure(err), evo.RunResult{}
	}
	span.SetAttributes(attribute.Float64("statforge.score", result.Score))
	return result, run
}

func search(ctx context.Context, catalog Catalog, profileKey string, params Params, s settings) (model.OptimizationResult, evo.RunResult, error) {
	if catalog == nil {
		return model.OptimizationResult{}, evo.RunResult{}, errors.New("catalog is required")
	}
	mode := params.Mode
	if mode == "" {
		mode = model.ModeWeights
	}
	if mode != model.ModeWeights && mode != model.ModeTargets {
		return model.OptimizationResult{}, evo.RunResult{}, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}

	profile, err := catalog.BuildType(profileKey)
	if err != nil {
		return model.OptimizationResult{}, evo.RunResult{}, err
	}
	bctx, notes, err := build.Resolve(catalog, params.selection(), profile.WeaponCategory)
	if err != nil {
		return model.OptimizationResult{}, evo.RunResult{}, err
	}

	budget := build.Budget(params.Level)
	objective := model.ObjectiveSpec{
		Mode:    mode,
		Profile: profile,
		Weights: params.Weights,
		Targets: params.Targets,
	}.Normalized()

	rng := s.rng
	if rng == nil {
		rng = rand.New(rand.NewSource(params.Seed))
	}
	plan := alloc.NewPlan(bctx, objective, budget)
	gen, err := alloc.NewGenerator(bctx, objective, plan, rng)
	if err != nil {
		return model.OptimizationResult{}, evo.RunResult{}, err
	}
	selector, err := evo.SelectorByName(s.selector)
	if err != nil {
		return model.OptimizationResult{}, evo.RunResult{}, err
	}
	eval := fitness.NewEvaluator(budget)

	cfg := evo.DefaultConfig()
	if s.population > 0 {
		cfg.PopulationSize = s.population
	}
	if s.generations > 0 {
		cfg.Generations = s.generations
	}
	if s.stallGenerations > 0 {
		cfg.StallGenerations = s.stallGenerations
	}
	cfg.Workers = params.Workers
	cfg.Rand = rng
	cfg.Logger = s.logger
	cfg.Selector = selector
	cfg.Source = gen
	cfg.Mutation = evo.AllocationMutation{Context: bctx, Plan: plan, Rand: rng}
	cfg.Scorer = evo.ScorerFunc(func(a model.Allocation) (float64, error) {
		return eval.Evaluate(a, bctx, objective)
	})

	engine, err := evo.NewEngine(cfg)
	if err != nil {
		return model.OptimizationResult{}, evo.RunResult{}, err
	}
	run, err := engine.Run(ctx)
	if err != nil {
		return model.OptimizationResult{}, evo.RunResult{}, err
	}

	best := run.Best.Allocation
	state := eval.NewState(best, bctx, objective)
	reasoning := append([]string(nil), notes...)
	reasoning = append(reasoning, fitness.Explain(state)...)

	return model.OptimizationResult{
		OK:          true,
		Allocation:  best,
		PointsUsed:  best.Total(),
		Budget:      budget,
		Score:       run.Best.Score,
		Final:       state.Sheet.Values,
		Derived:     state.Sheet.Derived,
		Generations: run.Generations,
		Reasoning:   reasoning,
	}, run, nil
}

func failure(err error) model.OptimizationResult {
	var reason string
	switch {
	case errors.Is(err, gamedata.ErrUnknownKey), errors.Is(err, build.ErrRaceNotAllowed), errors.Is(err, ErrUnknownMode):
		reason = "configuration error: " + err.Error()
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		reason = "optimization cancelled: " + err.Error()
	default:
		reason = "optimization failed: " + err.Error()
	}
	return model.OptimizationResult{Reasoning: []string{reason}}
}
