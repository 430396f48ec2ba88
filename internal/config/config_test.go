package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"statforge/internal/model"
)

var envKeys = []string{
	"STATFORGE_STORE",
	"STATFORGE_DB_PATH",
	"STATFORGE_LOG_LEVEL",
	"STATFORGE_LOG_FORMAT",
	"STATFORGE_OTEL_ENDPOINT",
	"STATFORGE_CATALOG_PATH",
	"STATFORGE_WORKERS",
}

// clearEnv unsets every key for the test and restores it afterwards.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range envKeys {
		t.Setenv(key, "")
		if err := os.Unsetenv(key); err != nil {
			t.Fatalf("unset %s: %v", key, err)
		}
	}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

func TestLoadEnvDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env"))
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	want := Env{
		Store:     "memory",
		DBPath:    "statforge.db",
		LogLevel:  "info",
		LogFormat: "console",
		Workers:   1,
	}
	if cfg != want {
		t.Fatalf("unexpected defaults: got %+v want %+v", cfg, want)
	}
}

func TestLoadEnvReadsDotenvWithoutOverriding(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATFORGE_LOG_LEVEL", "debug")
	path := writeFile(t, ".env", "STATFORGE_STORE=sqlite\nSTATFORGE_WORKERS=4\nSTATFORGE_LOG_LEVEL=error\n")

	cfg, err := LoadEnv(path)
	if err != nil {
		t.Fatalf("load env: %v", err)
	}
	if cfg.Store != "sqlite" || cfg.Workers != 4 {
		t.Fatalf("expected dotenv values, got %+v", cfg)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected process env to win, got log level %q", cfg.LogLevel)
	}
}

func TestLoadEnvRejectsBadWorkers(t *testing.T) {
	clearEnv(t)
	t.Setenv("STATFORGE_WORKERS", "many")
	if _, err := LoadEnv(filepath.Join(t.TempDir(), "missing.env")); err == nil {
		t.Fatal("expected parse error for non-numeric workers")
	}
}

func TestLoadRequestYAML(t *testing.T) {
	path := writeFile(t, "run.yaml", `
profile: conjurer
level: 40
mode: Weights
selection:
  race: homunculus
  subrace: vatborn
  main_class: summoner
  sub_class: mage
  astrology: [moon, saturn]
  passive_rank: 2
weights:
  willpower: 8
  spirit: "lots"
  fp: 3
  summon_slots: 2
  aptitude_target: 12
search:
  seed: 42
  workers: 4
  selector: tournament
`)
	req, err := LoadRequest(path)
	if err != nil {
		t.Fatalf("load request: %v", err)
	}

	if req.Profile != "conjurer" || req.Level != 40 || req.Mode != model.ModeWeights {
		t.Fatalf("unexpected header fields: %+v", req)
	}
	if req.Selection.Subrace != "vatborn" || req.Selection.PassiveRank != 2 {
		t.Fatalf("unexpected selection: %+v", req.Selection)
	}
	if want := []string{"moon", "saturn"}; !reflect.DeepEqual(req.Selection.Astrology, want) {
		t.Fatalf("expected astrology %v, got %v", want, req.Selection.Astrology)
	}
	if req.Weights.Attributes[model.Willpower] != 8 {
		t.Fatalf("expected willpower weight 8, got %v", req.Weights.Attributes[model.Willpower])
	}
	if req.Weights.Attributes[model.Spirit] != 0 {
		t.Fatalf("expected non-numeric weight to read as zero, got %v", req.Weights.Attributes[model.Spirit])
	}
	if req.Weights.FP != 3 || req.Weights.SummonSlots != 2 || req.Weights.AptitudeTarget != 12 {
		t.Fatalf("unexpected special weights: %+v", req.Weights)
	}
	if req.Seed != 42 || req.Workers != 4 || req.Selector != "tournament" {
		t.Fatalf("unexpected search fields: seed=%d workers=%d selector=%q", req.Seed, req.Workers, req.Selector)
	}
	if req.Targets != nil {
		t.Fatalf("expected no targets, got %v", req.Targets)
	}
}

func TestLoadRequestJSONTargets(t *testing.T) {
	path := writeFile(t, "run.json", `{
  "profile": "juggernaut",
  "level": 60,
  "mode": "targets",
  "selection": {"race": "human", "subrace": "highlander", "main_class": "warrior"},
  "targets": {"strength": 45, "vitality": "40", "luck": "n/a"}
}`)
	req, err := LoadRequest(path)
	if err != nil {
		t.Fatalf("load request: %v", err)
	}
	if req.Mode != model.ModeTargets {
		t.Fatalf("expected targets mode, got %q", req.Mode)
	}
	want := model.TargetStatMap{
		model.Strength: 45,
		model.Vitality: 40,
		model.Luck:     0,
	}
	if !reflect.DeepEqual(req.Targets, want) {
		t.Fatalf("unexpected targets: got %v want %v", req.Targets, want)
	}
}

func TestLoadRequestErrors(t *testing.T) {
	if _, err := LoadRequest(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing run file")
	}

	path := writeFile(t, "run.yaml", "targets:\n  charisma: 10\n")
	if _, err := LoadRequest(path); err == nil {
		t.Fatal("expected error for unknown attribute")
	}
}

func TestParseAttributeValuesReadsNonNumericAsZero(t *testing.T) {
	got, err := ParseAttributeValues(map[string]any{"Strength": "12.5", "luck": "abc"})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	want := map[model.Attribute]float64{model.Strength: 12.5, model.Luck: 0}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v want %v", got, want)
	}
}
