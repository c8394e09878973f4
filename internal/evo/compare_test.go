package evo

import (
	"context"
	"errors"
	"math"
	"reflect"
	"sync/atomic"
	"testing"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"
	"banditlab/internal/tuning"
)

func TestBIC(t *testing.T) {
	got := BIC(-100, 2, 500)
	want := 200 + 2*math.Log(500)
	if got != want {
		t.Fatalf("bic: got %g want %g", got, want)
	}
	if BIC(-100, 0, 500) != 200 {
		t.Fatal("parameter-free bic must equal deviance")
	}
}

func TestCompareSingleFavoursGeneratingModel(t *testing.T) {
	cfg := scape.DefaultConfig()
	seq, err := scape.Simulate(context.Background(), cfg, 0, agent.RWSpec, []float64{0.1, 10})
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	specs := []agent.Spec{agent.RandomSpec, agent.RWSpec}
	record, err := CompareSingle(context.Background(), tuning.NewOptimizer(cfg), specs, seq)
	if err != nil {
		t.Fatalf("compare: %v", err)
	}
	if !reflect.DeepEqual(record.Models, []string{"Random", "RW"}) {
		t.Fatalf("unexpected models: %v", record.Models)
	}
	if record.Best() != 1 {
		t.Fatalf("expected RW to win, bic=%v", record.BIC)
	}
	for j, spec := range specs {
		want := BIC(record.LogLikelihoods[j], spec.NumParams(), seq.Len())
		if record.BIC[j] != want {
			t.Fatalf("%s: bic %g want %g", spec.Name, record.BIC[j], want)
		}
	}
}

type failingTuner struct{}

func (failingTuner) Name() string { return "failing" }

func (failingTuner) Fit(context.Context, agent.Spec, model.TrialSequence) (model.FitResult, error) {
	return model.FitResult{}, tuning.ErrNotConverged
}

func TestCompareSinglePropagatesFitFailure(t *testing.T) {
	seq := model.TrialSequence{Choices: []int{0}, Successes: []bool{true}}
	_, err := CompareSingle(context.Background(), failingTuner{}, agent.Default(), seq)
	if !errors.Is(err, tuning.ErrNotConverged) {
		t.Fatalf("expected ErrNotConverged, got %v", err)
	}
}

func TestComparePopulationParallelMatchesSequential(t *testing.T) {
	cfg := scape.DefaultConfig()
	cfg.Horizon = 150
	pop, err := scape.SimulatePopulation(context.Background(), cfg, agent.RWSpec, scape.HomogeneousParams([]float64{0.2, 8}, 4))
	if err != nil {
		t.Fatalf("population: %v", err)
	}
	specs := []agent.Spec{agent.RandomSpec, agent.WSLSSpec, agent.RWSpec}
	tuner := tuning.NewOptimizer(cfg)

	var calls int32
	seq, err := ComparePopulation(context.Background(), tuner, specs, pop.Runs, Options{Workers: 1})
	if err != nil {
		t.Fatalf("sequential: %v", err)
	}
	par, err := ComparePopulation(context.Background(), tuner, specs, pop.Runs, Options{
		Workers:  3,
		Progress: func(done, total int) { atomic.AddInt32(&calls, 1) },
	})
	if err != nil {
		t.Fatalf("parallel: %v", err)
	}
	if !reflect.DeepEqual(seq, par) {
		t.Fatal("parallel comparison differs from sequential")
	}
	if calls != 4 {
		t.Fatalf("expected 4 progress calls, got %d", calls)
	}

	lls, bics := Matrices(par)
	if len(lls) != 4 || len(bics[0]) != 3 {
		t.Fatalf("unexpected matrix shapes: %dx%d", len(lls), len(bics[0]))
	}
	best := BestParams(par, 2)
	if len(best) != 4 || len(best[0]) != 2 {
		t.Fatalf("unexpected best params: %v", best)
	}
}

func TestConfusionMatrixDiagonalDominates(t *testing.T) {
	cfg := scape.DefaultConfig()
	specs := []agent.Spec{agent.RandomSpec, agent.RWSpec}
	matrix, err := ConfusionMatrix(context.Background(), cfg, tuning.NewOptimizer(cfg), specs, 8, 123, Options{Workers: 4})
	if err != nil {
		t.Fatalf("confusion: %v", err)
	}
	for i, row := range matrix.Counts {
		var total float64
		for j, v := range row {
			total += v
			if j != i && v > row[i] {
				t.Fatalf("row %s: off-diagonal %g exceeds diagonal %g", specs[i].Name, v, row[i])
			}
		}
		if math.Abs(total-8) > 1e-9 {
			t.Fatalf("row %s: counts sum to %g, want 8", specs[i].Name, total)
		}
	}
	freq := matrix.Frequencies()
	if math.Abs(freq[0][0]+freq[0][1]-1) > 1e-12 {
		t.Fatalf("frequencies must be row-normalized: %v", freq)
	}
}

func TestConfusionMatrixSplitsTies(t *testing.T) {
	cfg := scape.DefaultConfig()
	cfg.Horizon = 20
	specs := []agent.Spec{agent.RandomSpec, agent.RandomSpec}
	matrix, err := ConfusionMatrix(context.Background(), cfg, tuning.NewOptimizer(cfg), specs, 2, 1, Options{})
	if err != nil {
		t.Fatalf("confusion: %v", err)
	}
	for i := range matrix.Counts {
		for j := range matrix.Counts[i] {
			if matrix.Counts[i][j] != 1 {
				t.Fatalf("tie credit must be split evenly: %v", matrix.Counts)
			}
		}
	}
}

func TestParameterRecoveryPairs(t *testing.T) {
	cfg := scape.DefaultConfig()
	cfg.Horizon = 200
	data, err := ParameterRecovery(context.Background(), cfg, tuning.NewOptimizer(cfg), agent.RWSpec, 5, 234, Options{Workers: 2})
	if err != nil {
		t.Fatalf("recovery: %v", err)
	}
	if len(data.Simulated) != 2 || len(data.Simulated[0]) != 5 || len(data.Recovered[1]) != 5 {
		t.Fatalf("unexpected shape: %+v", data)
	}
	for i, b := range data.Bounds {
		for j := 0; j < 5; j++ {
			if !b.Contains(data.Simulated[i][j]) || !b.Contains(data.Recovered[i][j]) {
				t.Fatalf("param %d set %d outside bounds", i, j)
			}
		}
	}

	again, _ := ParameterRecovery(context.Background(), cfg, tuning.NewOptimizer(cfg), agent.RWSpec, 5, 234, Options{Workers: 1})
	if !reflect.DeepEqual(data, again) {
		t.Fatal("recovery must be reproducible regardless of worker count")
	}
}

func TestRunJobsReturnsLowestIndexError(t *testing.T) {
	errBoom := errors.New("boom")
	_, err := runJobs(context.Background(), 10, Options{Workers: 1}, func(_ context.Context, i int) (int, error) {
		if i == 3 || i == 7 {
			return 0, errBoom
		}
		return i, nil
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("expected boom, got %v", err)
	}

	out, err := runJobs(context.Background(), 5, Options{Workers: 8}, func(_ context.Context, i int) (int, error) {
		return i * i, nil
	})
	if err != nil || !reflect.DeepEqual(out, []int{0, 1, 4, 9, 16}) {
		t.Fatalf("unexpected output %v err %v", out, err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := runJobs(ctx, 3, Options{Workers: 2}, func(context.Context, int) (int, error) { return 0, nil }); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
