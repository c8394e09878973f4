package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCmd(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestModelsCommand(t *testing.T) {
	out, err := execute(t, "models", "--cache", "none")
	if err != nil {
		t.Fatalf("models: %v", err)
	}
	for _, name := range []string{"Random", "WSLS", "RW", "RWCK"} {
		if !strings.Contains(out, name) {
			t.Fatalf("expected %s in output:\n%s", name, out)
		}
	}
	if strings.Contains(out, "\x1b[") {
		t.Fatal("expected no color codes when writing to a buffer")
	}
}

func TestSimulateCSVThenFit(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "trials.csv")
	plotPath := filepath.Join(dir, "behavior.html")

	out, err := execute(t, "simulate", "--cache", "none", "--sim-model", "rw", "--sim-params", "0.2,8", "--horizon", "150", "--seed", "4", "--csv", csvPath, "--plot", plotPath)
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if !strings.Contains(out, "trials=150") {
		t.Fatalf("unexpected simulate output:\n%s", out)
	}
	for _, path := range []string{csvPath, plotPath} {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("expected %s: %v", path, err)
		}
	}

	out, err = execute(t, "fit", "--cache", "none", "--model", "rw", "--trials", csvPath, "--horizon", "150")
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	if !strings.Contains(out, "fit model=RW") || !strings.Contains(out, "alpha=") {
		t.Fatalf("unexpected fit output:\n%s", out)
	}
}

func TestCompareUsesSimulatedSubject(t *testing.T) {
	out, err := execute(t, "compare", "--cache", "memory", "--models", "random,wsls", "--sim-model", "wsls", "--sim-params", "0.05", "--horizon", "100")
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !strings.Contains(out, "Random") || !strings.Contains(out, "WSLS") || !strings.Contains(out, "*") {
		t.Fatalf("unexpected compare output:\n%s", out)
	}
}

func TestExperimentFromConfigThenRunsAndExport(t *testing.T) {
	dir := t.TempDir()
	outDir := filepath.Join(dir, "results")
	cfgPath := filepath.Join(dir, "exp.yaml")
	data := []byte(`experiment:
  models: [random, rw]
  subjects: 2
  grid_size: 3
  recovery_sets: 3
  confusion_sets: 1
  effect_steps: 5
  effect_points: 5
  bandit:
    horizon: 80
`)
	if err := os.WriteFile(cfgPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	out, err := execute(t, "experiment", "--config", cfgPath, "--cache", "none", "--out", outDir, "--workers", "2", "--run-id", "cli-run")
	if err != nil {
		t.Fatalf("experiment: %v\n%s", err, out)
	}
	if !strings.Contains(out, "experiment run_id=cli-run") || !strings.Contains(out, "best_model=") {
		t.Fatalf("unexpected experiment output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(outDir, "cli-run", "report.html")); err != nil {
		t.Fatalf("expected report: %v", err)
	}

	out, err = execute(t, "runs", "--out", outDir, "--cache", "none")
	if err != nil {
		t.Fatalf("runs: %v", err)
	}
	if !strings.Contains(out, "run_id=cli-run") {
		t.Fatalf("expected run in list:\n%s", out)
	}

	exportDir := filepath.Join(dir, "exports")
	out, err = execute(t, "export", "--out", outDir, "--cache", "none", "--latest", "--dir", exportDir)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if _, err := os.Stat(filepath.Join(exportDir, "cli-run", "config.json")); err != nil {
		t.Fatalf("expected exported config: %v\n%s", err, out)
	}
}

func TestUnknownModelFails(t *testing.T) {
	if _, err := execute(t, "fit", "--cache", "none", "--model", "qlearning", "--horizon", "20"); err == nil {
		t.Fatal("expected error for unknown model")
	}
}

func TestRunUnknownCommand(t *testing.T) {
	if err := run(context.Background(), []string{"nope"}); err == nil {
		t.Fatal("expected unknown command error")
	}
}
