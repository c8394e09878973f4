package tuning

import (
	"context"
	"errors"
	"math"
	"testing"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"
)

func simulate(t *testing.T, cfg scape.Config, seed int64, spec agent.Spec, params []float64) model.TrialSequence {
	t.Helper()
	seq, err := scape.Simulate(context.Background(), cfg, seed, spec, params)
	if err != nil {
		t.Fatalf("simulate %s: %v", spec.Name, err)
	}
	return seq
}

func TestOptimizerRecoversRWParameters(t *testing.T) {
	cfg := scape.DefaultConfig()
	truth := []float64{0.10, 10.00}
	seq := simulate(t, cfg, 0, agent.RWSpec, truth)

	fit, err := NewOptimizer(cfg).Fit(context.Background(), agent.RWSpec, seq)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}

	// seed 0 almost always picks option 1, which leaves alpha weakly
	// identified: the likelihood peaks near (0.26, 8.3), not at the truth
	grid, err := ExploreGrid(context.Background(), cfg, agent.RWSpec, seq, DefaultGridSize)
	if err != nil {
		t.Fatalf("explore: %v", err)
	}
	peak := grid.ArgMax()
	for i, b := range agent.RWSpec.FitBounds {
		cell := b.Width() / float64(DefaultGridSize-1)
		if math.Abs(fit.Params[i]-peak[i]) > 1.5*cell {
			t.Fatalf("param %d = %g more than 1.5 grid cells from surface peak %g", i, fit.Params[i], peak[i])
		}
	}
	gridBest := math.Inf(-1)
	for _, ll := range grid.LogLikelihoods {
		gridBest = math.Max(gridBest, ll)
	}
	if fit.LogLikelihood() < gridBest-1e-9 {
		t.Fatalf("fit is worse than the grid maximum: %g < %g", fit.LogLikelihood(), gridBest)
	}

	trueLL, err := LogLikelihood(cfg, agent.RWSpec, truth, seq)
	if err != nil {
		t.Fatalf("log likelihood: %v", err)
	}
	if fit.LogLikelihood() < trueLL-1e-6 {
		t.Fatalf("fit is worse than the generating parameters: %g < %g", fit.LogLikelihood(), trueLL)
	}
	if math.Abs(fit.Params[0]-truth[0]) > 0.2 || math.Abs(fit.Params[1]-truth[1]) > 2.0 {
		t.Fatalf("fit %v too far from generating parameters %v", fit.Params, truth)
	}
}

func TestOptimizerStaysInsideBounds(t *testing.T) {
	cfg := scape.DefaultConfig()
	cfg.Horizon = 200
	for _, spec := range agent.Default() {
		seq := simulate(t, cfg, 3, spec, spec.Midpoints())
		fit, err := NewOptimizer(cfg).Fit(context.Background(), spec, seq)
		if err != nil {
			t.Fatalf("%s: fit: %v", spec.Name, err)
		}
		if len(fit.Params) != spec.NumParams() {
			t.Fatalf("%s: got %d params", spec.Name, len(fit.Params))
		}
		for i, v := range fit.Params {
			if !spec.FitBounds[i].Contains(v) {
				t.Fatalf("%s: param %d = %g outside %+v", spec.Name, i, v, spec.FitBounds[i])
			}
		}
		ll, _ := LogLikelihood(cfg, spec, fit.Params, seq)
		if math.Abs(ll+fit.NegLogLikelihood) > 1e-9 {
			t.Fatalf("%s: reported objective %g does not match replay %g", spec.Name, fit.NegLogLikelihood, -ll)
		}
	}
}

func TestOptimizerRandomNeedsNoSearch(t *testing.T) {
	cfg := scape.DefaultConfig()
	seq := simulate(t, cfg, 1, agent.RWSpec, []float64{0.2, 5})
	fit, err := NewOptimizer(cfg).Fit(context.Background(), agent.RandomSpec, seq)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	want := -float64(cfg.Horizon) * math.Log(0.5+LogFloor)
	if math.Abs(fit.NegLogLikelihood-want) > 1e-9 {
		t.Fatalf("random nll: got %g want %g", fit.NegLogLikelihood, want)
	}
	if len(fit.Params) != 0 || fit.Evaluations != 1 {
		t.Fatalf("unexpected random fit: %+v", fit)
	}
}

func TestOptimizerRejectsMissingBounds(t *testing.T) {
	spec := agent.RWSpec
	spec.FitBounds = nil
	seq := model.TrialSequence{Choices: []int{0}, Successes: []bool{true}}
	if _, err := NewOptimizer(scape.DefaultConfig()).Fit(context.Background(), spec, seq); !errors.Is(err, ErrMissingBounds) {
		t.Fatalf("expected ErrMissingBounds, got %v", err)
	}
}

func TestOptimizerEvaluationLimitIsFatal(t *testing.T) {
	cfg := scape.DefaultConfig()
	seq := simulate(t, cfg, 2, agent.RWCKSpec, agent.RWCKSpec.Midpoints())
	opt := NewOptimizer(cfg)
	opt.FuncEvaluations = 3
	if _, err := opt.Fit(context.Background(), agent.RWCKSpec, seq); !errors.Is(err, ErrNotConverged) {
		t.Fatalf("expected ErrNotConverged, got %v", err)
	}
}

func TestOptimizerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	seq := model.TrialSequence{Choices: []int{0}, Successes: []bool{true}}
	if _, err := NewOptimizer(scape.DefaultConfig()).Fit(ctx, agent.RWSpec, seq); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestFromUnconstrainedMidpoint(t *testing.T) {
	x := fromUnconstrained([]float64{0, 0, math.Inf(-1)}, []model.Bound{{Low: 0, High: 1}, {Low: 1, High: 20}, {Low: 2, High: 3}})
	if x[0] != 0.5 || x[1] != 10.5 || x[2] != 2 {
		t.Fatalf("unexpected mapping: %v", x)
	}
}
