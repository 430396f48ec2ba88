package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/go-logr/logr"

	"statforge/internal/config"
	"statforge/internal/model"
	"statforge/internal/scaling"
	"statforge/internal/telemetry"
	"statforge/pkg/statforge"
)

const serviceName = "statforgectl"

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cli struct {
	env    config.Env
	logger logr.Logger
}

func run(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	env, err := config.LoadEnv()
	if err != nil {
		return err
	}
	logger, err := telemetry.NewLogger(env.LogLevel, env.LogFormat)
	if err != nil {
		return err
	}
	shutdown, err := telemetry.SetupTracing(ctx, serviceName, env.OTelEndpoint)
	if err != nil {
		return err
	}
	defer func() {
		_ = shutdown(context.Background())
	}()

	c := cli{env: env, logger: logger}
	switch args[0] {
	case "optimize":
		return c.runOptimize(ctx, args[1:])
	case "runs":
		return c.runRuns(ctx, args[1:])
	case "show":
		return c.runShow(ctx, args[1:])
	case "fitness":
		return c.runFitness(ctx, args[1:])
	case "diagnostics":
		return c.runDiagnostics(ctx, args[1:])
	case "profiles":
		return c.runProfiles(ctx, args[1:])
	case "transform":
		return runTransform(ctx, args[1:])
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func (c cli) newClient(ctx context.Context, storeKind, dbPath, catalogPath string) (*statforge.Client, error) {
	var catalog statforge.Catalog
	if catalogPath != "" {
		loaded, err := statforge.LoadCatalogFile(catalogPath)
		if err != nil {
			return nil, err
		}
		catalog = loaded
	}
	client, err := statforge.New(statforge.Options{
		StoreKind: storeKind,
		DBPath:    dbPath,
		Catalog:   catalog,
		Logger:    c.logger,
	})
	if err != nil {
		return nil, err
	}
	if err := client.Init(ctx); err != nil {
		_ = client.Close()
		return nil, err
	}
	return client, nil
}

func (c cli) storeFlags(fs *flag.FlagSet) (storeKind, dbPath *string) {
	storeKind = fs.String("store", c.env.Store, "store backend: memory|sqlite")
	dbPath = fs.String("db-path", c.env.DBPath, "sqlite database path")
	return storeKind, dbPath
}

func (c cli) runOptimize(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("optimize", flag.ContinueOnError)
	configPath := fs.String("config", "", "optional run file (yaml|json|toml); explicit flags override it")
	catalogPath := fs.String("catalog", c.env.CatalogPath, "optional catalog JSON path")
	storeKind, dbPath := c.storeFlags(fs)
	jsonOut := fs.Bool("json", false, "emit the result as JSON")
	opts := registerRequestFlags(fs, c.env.Workers)
	if err := fs.Parse(args); err != nil {
		return err
	}
	setFlags := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) {
		setFlags[f.Name] = true
	})

	req := config.Request{}
	if *configPath != "" {
		loaded, err := config.LoadRequest(*configPath)
		if err != nil {
			return err
		}
		req = loaded
		opts.override(&req, setFlags)
	} else {
		opts.override(&req, nil)
	}
	if req.Profile == "" {
		return errors.New("optimize requires --profile or a run file profile")
	}

	client, err := c.newClient(ctx, *storeKind, *dbPath, *catalogPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	summary, err := client.Run(ctx, runRequest(req))
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(struct {
			RunID  string                   `json:"run_id"`
			Result model.OptimizationResult `json:"result"`
		}{summary.RunID, summary.Result}); err != nil {
			return err
		}
	} else {
		fmt.Printf("run_id=%s\n", summary.RunID)
		printResult(summary.Result)
	}
	if !summary.Result.OK {
		return fmt.Errorf("run %s: %s", summary.RunID, strings.Join(summary.Result.Reasoning, "; "))
	}
	return nil
}

func (c cli) runRuns(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("runs", flag.ContinueOnError)
	limit := fs.Int("limit", 20, "max runs to list")
	jsonOut := fs.Bool("json", false, "emit runs list as JSON")
	storeKind, dbPath := c.storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *limit <= 0 {
		return errors.New("limit must be > 0")
	}

	client, err := c.newClient(ctx, *storeKind, *dbPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	runs, err := client.Runs(ctx, statforge.RunsRequest{Limit: *limit})
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(runs)
	}

	for _, r := range runs {
		fmt.Printf("run_id=%s created=%s profile=%s mode=%s level=%d seed=%d ok=%t score=%s\n",
			r.ID,
			humanize.Time(r.CreatedAt),
			r.ProfileKey,
			r.Mode,
			r.Level,
			r.Seed,
			r.Result.OK,
			humanize.CommafWithDigits(r.Result.Score, 2),
		)
	}
	return nil
}

func (c cli) runShow(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("show", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	jsonOut := fs.Bool("json", false, "emit the run record as JSON")
	storeKind, dbPath := c.storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID == "" {
		return errors.New("show requires --run-id")
	}

	client, err := c.newClient(ctx, *storeKind, *dbPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	record, err := client.GetRun(ctx, *runID)
	if err != nil {
		return err
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	fmt.Printf("run_id=%s created=%s (%s) profile=%s mode=%s level=%d seed=%d\n",
		record.ID,
		record.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
		humanize.Time(record.CreatedAt),
		record.ProfileKey,
		record.Mode,
		record.Level,
		record.Seed,
	)
	for _, key := range []string{"race", "subrace", "main_class", "sub_class", "history", "weapon_category"} {
		if v, ok := record.Selection[key]; ok {
			fmt.Printf("%s=%s\n", key, v)
		}
	}
	printResult(record.Result)
	return nil
}

func (c cli) runFitness(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("fitness", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show fitness history for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit fitness history as JSON")
	storeKind, dbPath := c.storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("fitness requires --run-id or --latest")
	}

	client, err := c.newClient(ctx, *storeKind, *dbPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	history, err := client.FitnessHistory(ctx, statforge.FitnessHistoryRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  max(*limit, 0),
	})
	if err != nil {
		return err
	}
	if len(history) == 0 {
		fmt.Println("no fitness history")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(history)
	}

	for i, best := range history {
		fmt.Printf("generation=%d best_score=%.6f\n", i+1, best)
	}
	return nil
}

func (c cli) runDiagnostics(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("diagnostics", flag.ContinueOnError)
	runID := fs.String("run-id", "", "run id")
	latest := fs.Bool("latest", false, "show diagnostics for the most recent run")
	limit := fs.Int("limit", 50, "max generations to print (<=0 for all)")
	jsonOut := fs.Bool("json", false, "emit diagnostics as JSON")
	storeKind, dbPath := c.storeFlags(fs)
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *runID != "" && *latest {
		return errors.New("use either --run-id or --latest, not both")
	}
	if *runID == "" && !*latest {
		return errors.New("diagnostics requires --run-id or --latest")
	}

	client, err := c.newClient(ctx, *storeKind, *dbPath, "")
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	diagnostics, err := client.Diagnostics(ctx, statforge.DiagnosticsRequest{
		RunID:  *runID,
		Latest: *latest,
		Limit:  max(*limit, 0),
	})
	if err != nil {
		return err
	}
	if len(diagnostics) == 0 {
		fmt.Println("no diagnostics")
		return nil
	}
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(diagnostics)
	}

	for _, d := range diagnostics {
		fmt.Printf("generation=%d best=%.6f mean=%.6f min=%.6f stddev=%.6f distinct=%d improved=%t\n",
			d.Generation,
			d.BestScore,
			d.MeanScore,
			d.MinScore,
			d.StdDevScore,
			d.Distinct,
			d.BestImproved,
		)
	}
	return nil
}

func (c cli) runProfiles(ctx context.Context, args []string) error {
	fs := flag.NewFlagSet("profiles", flag.ContinueOnError)
	catalogPath := fs.String("catalog", c.env.CatalogPath, "optional catalog JSON path")
	jsonOut := fs.Bool("json", false, "emit profiles as JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}

	client, err := c.newClient(ctx, "memory", "", *catalogPath)
	if err != nil {
		return err
	}
	defer func() {
		_ = client.Close()
	}()

	profiles := client.Profiles()
	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(profiles)
	}
	for _, p := range profiles {
		fmt.Printf("key=%s name=%q weapon=%s\n", p.Key, p.Name, p.WeaponCategory)
	}
	return nil
}

func runTransform(_ context.Context, args []string) error {
	fs := flag.NewFlagSet("transform", flag.ContinueOnError)
	baseline := fs.Float64("baseline", 0, "race baseline")
	added := fs.Float64("added", 0, "allocated points")
	class := fs.Float64("class", 0, "class contribution")
	monoclass := fs.Float64("monoclass", 1, "monoclass multiplier applied to the class contribution")
	custom := fs.Float64("custom", 0, "custom flat bonus")
	aptitudeBonus := fs.Float64("aptitude-bonus", 0, "aptitude bonus")
	bonusPercent := fs.Float64("bonus-percent", 0, "percent bonus")
	softCapBonus := fs.Float64("soft-cap-bonus", 0, "soft cap bonus")
	if err := fs.Parse(args); err != nil {
		return err
	}

	in := scaling.Input{
		Baseline:            *baseline,
		Added:               *added,
		ClassContribution:   *class,
		MonoclassMultiplier: *monoclass,
		CustomFlat:          *custom,
		AptitudeBonus:       *aptitudeBonus,
		BonusPercent:        *bonusPercent,
		SoftCapBonus:        *softCapBonus,
	}
	fmt.Printf("raw=%.4f soft_cap=%.4f scaled=%.4f marginal=%.4f\n",
		in.Raw(),
		in.SoftCap(),
		scaling.Transform(in),
		scaling.Marginal(in),
	)
	return nil
}

func printResult(r model.OptimizationResult) {
	fmt.Printf("ok=%t score=%s points=%d/%d generations=%d\n",
		r.OK,
		humanize.CommafWithDigits(r.Score, 2),
		r.PointsUsed,
		r.Budget,
		r.Generations,
	)
	if r.OK {
		for _, attr := range model.Attributes {
			fmt.Printf("%-12s points=%-3d final=%.0f\n", attr, r.Allocation[attr], math.Floor(r.Final[attr]))
		}
		fmt.Printf("hp=%.0f fp=%.0f crit=%.0f accuracy=%.0f summon_slots=%d\n",
			math.Floor(r.Derived.HP),
			math.Floor(r.Derived.FP),
			math.Floor(r.Derived.CritChance),
			math.Floor(r.Derived.Accuracy),
			r.Derived.SummonSlots,
		)
	}
	for _, line := range r.Reasoning {
		fmt.Printf("- %s\n", line)
	}
}

func usageError(msg string) error {
	return fmt.Errorf("%s\nusage: statforgectl <optimize|runs|show|fitness|diagnostics|profiles|transform> [flags]", msg)
}
