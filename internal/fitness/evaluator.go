// Package fitness scores candidate allocations. Scoring is an ordered list of
// independent rules over a precomputed State; the score is their sum.
package fitness

import (
	"errors"
	"fmt"

	"statforge/internal/build"
	"statforge/internal/model"
)

var ErrUnknownMode = errors.New("unknown objective mode")

// State is everything a rule may read. It is computed once per evaluation.
type State struct {
	Allocation model.Allocation
	Context    *build.Context
	Objective  model.ObjectiveSpec
	Budget     int
	Points     int
	Sheet      build.Sheet
}

type Rule struct {
	Name    string
	Applies func(State) bool
	Score   func(State) float64
}

// Term is one rule's contribution.
type Term struct {
	Rule  string
	Score float64
}

// Evaluator is pure and deterministic: it holds only the budget and the rule
// lists.
type Evaluator struct {
	budget      int
	weightRules []Rule
	targetRules []Rule
}

func NewEvaluator(budget int) *Evaluator {
	return &Evaluator{
		budget:      budget,
		weightRules: WeightRules(),
		targetRules: TargetRules(),
	}
}

func (e *Evaluator) Budget() int {
	return e.budget
}

func (e *Evaluator) NewState(a model.Allocation, ctx *build.Context, objective model.ObjectiveSpec) State {
	return State{
		Allocation: a,
		Context:    ctx,
		Objective:  objective.Normalized(),
		Budget:     e.budget,
		Points:     a.Total(),
		Sheet:      ctx.Sheet(a),
	}
}

func (e *Evaluator) Evaluate(a model.Allocation, ctx *build.Context, objective model.ObjectiveSpec) (float64, error) {
	terms, err := e.Breakdown(a, ctx, objective)
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, term := range terms {
		total += term.Score
	}
	return total, nil
}

// Breakdown returns the contribution of every applicable rule in order.
func (e *Evaluator) Breakdown(a model.Allocation, ctx *build.Context, objective model.ObjectiveSpec) ([]Term, error) {
	if ctx == nil {
		return nil, errors.New("build context is required")
	}
	state := e.NewState(a, ctx, objective)
	rules, err := e.rulesFor(state.Objective.Mode)
	if err != nil {
		return nil, err
	}
	terms := make([]Term, 0, len(rules))
	for _, rule := range rules {
		if rule.Applies != nil && !rule.Applies(state) {
			continue
		}
		terms = append(terms, Term{Rule: rule.Name, Score: rule.Score(state)})
	}
	return terms, nil
}

func (e *Evaluator) rulesFor(mode model.Mode) ([]Rule, error) {
	switch mode {
	case model.ModeWeights:
		return e.weightRules, nil
	case model.ModeTargets:
		return e.targetRules, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownMode, mode)
	}
}
