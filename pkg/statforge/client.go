package statforge

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-logr/logr"
	"github.com/google/uuid"

	"statforge/internal/model"
	"statforge/internal/storage"
)

const defaultDBPath = "statforge.db"

type Options struct {
	StoreKind string
	DBPath    string
	Catalog   Catalog
	Logger    logr.Logger
}

// Client runs optimizations against a catalog and keeps them in a store.
type Client struct {
	store   storage.Store
	catalog Catalog
	logger  logr.Logger
	now     func() time.Time
}

type RunRequest struct {
	Profile          string
	Params           Params
	Population       int
	Generations      int
	StallGenerations int
	Selector         string
}

type RunSummary struct {
	RunID            string
	Result           model.OptimizationResult
	BestByGeneration []float64
}

type RunsRequest struct {
	Limit int
}

type FitnessHistoryRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

type DiagnosticsRequest struct {
	RunID  string
	Latest bool
	Limit  int
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	catalog := opts.Catalog
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	logger := opts.Logger
	if logger.GetSink() == nil {
		logger = logr.Discard()
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:   store,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (c *Client) Init(ctx context.Context) error {
	return c.store.Init(ctx)
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Profiles lists the catalog's build types ordered by key.
func (c *Client) Profiles() []model.BuildTypeProfile {
	return c.catalog.BuildTypes()
}

// Run optimizes and persists the result with its per-generation history.
// Failed optimizations are persisted too; the error return is reserved for
// storage failures.
func (c *Client) Run(ctx context.Context, req RunRequest) (RunSummary, error) {
	opts := []Option{
		WithLogger(c.logger),
		WithPopulation(req.Population),
		WithGenerations(req.Generations),
		WithStallGenerations(req.StallGenerations),
		WithSelector(req.Selector),
	}
	result, run := optimize(ctx, c.catalog, req.Profile, req.Params, opts...)

	runID := uuid.NewString()
	record := storage.Stamp(model.RunRecord{
		ID:         runID,
		CreatedAt:  c.now().UTC(),
		ProfileKey: req.Profile,
		Mode:       req.Params.Mode,
		Level:      req.Params.Level,
		Seed:       req.Params.Seed,
		Selection:  selectionSummary(req.Params),
		Result:     result,
	})
	if record.Mode == "" {
		record.Mode = model.ModeWeights
	}
	if err := c.store.SaveRun(ctx, record); err != nil {
		return RunSummary{}, fmt.Errorf("save run %s: %w", runID, err)
	}
	if err := c.store.SaveFitnessHistory(ctx, runID, run.BestByGeneration); err != nil {
		return RunSummary{}, fmt.Errorf("save fitness history %s: %w", runID, err)
	}
	if err := c.store.SaveGenerationDiagnostics(ctx, runID, run.Diagnostics); err != nil {
		return RunSummary{}, fmt.Errorf("save diagnostics %s: %w", runID, err)
	}
	c.logger.Info("run persisted", "runID", runID, "ok", result.OK, "score", result.Score)

	return RunSummary{
		RunID:            runID,
		Result:           result,
		BestByGeneration: append([]float64(nil), run.BestByGeneration...),
	}, nil
}

// Runs lists persisted runs newest first.
func (c *Client) Runs(ctx context.Context, req RunsRequest) ([]model.RunRecord, error) {
	if req.Limit < 0 {
		return nil, errors.New("limit must be >= 0")
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return nil, err
	}
	if req.Limit > 0 && len(runs) > req.Limit {
		runs = runs[:req.Limit]
	}
	return runs, nil
}

func (c *Client) GetRun(ctx context.Context, runID string) (model.RunRecord, error) {
	if runID == "" {
		return model.RunRecord{}, errors.New("run id is required")
	}
	run, ok, err := c.store.GetRun(ctx, runID)
	if err != nil {
		return model.RunRecord{}, err
	}
	if !ok {
		return model.RunRecord{}, fmt.Errorf("run not found: %s", runID)
	}
	return run, nil
}

func (c *Client) FitnessHistory(ctx context.Context, req FitnessHistoryRequest) ([]float64, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, req.Limit)
	if err != nil {
		return nil, err
	}
	history, ok, err := c.store.GetFitnessHistory(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("fitness history not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(history) > req.Limit {
		history = history[:req.Limit]
	}
	return append([]float64(nil), history...), nil
}

func (c *Client) Diagnostics(ctx context.Context, req DiagnosticsRequest) ([]model.GenerationDiagnostics, error) {
	runID, err := c.resolveRunID(ctx, req.RunID, req.Latest, req.Limit)
	if err != nil {
		return nil, err
	}
	diagnostics, ok, err := c.store.GetGenerationDiagnostics(ctx, runID)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("diagnostics not found for run id: %s", runID)
	}
	if req.Limit > 0 && len(diagnostics) > req.Limit {
		diagnostics = diagnostics[:req.Limit]
	}
	return diagnostics, nil
}

func (c *Client) resolveRunID(ctx context.Context, runID string, latest bool, limit int) (string, error) {
	if runID != "" && latest {
		return "", errors.New("use either run id or latest")
	}
	if limit < 0 {
		return "", errors.New("limit must be >= 0")
	}
	if !latest {
		if runID == "" {
			return "", errors.New("run id or latest is required")
		}
		return runID, nil
	}
	runs, err := c.store.ListRuns(ctx)
	if err != nil {
		return "", err
	}
	if len(runs) == 0 {
		return "", errors.New("no runs available")
	}
	return runs[0].ID, nil
}

func selectionSummary(p Params) map[string]string {
	out := map[string]string{
		"race":       p.Race,
		"subrace":    p.Subrace,
		"main_class": p.MainClass,
	}
	if p.SubClass != "" {
		out["sub_class"] = p.SubClass
	}
	if p.History != "" {
		out["history"] = p.History
	}
	if p.WeaponCategory != "" {
		out["weapon_category"] = p.WeaponCategory
	}
	return out
}
