package evo

import (
	"context"
	"fmt"
	"math/rand"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"
	"banditlab/internal/tuning"
)

// DrawUniform samples one parameter vector uniformly from the fit bounds.
func DrawUniform(rng *rand.Rand, bounds []model.Bound) []float64 {
	out := make([]float64, len(bounds))
	for i, b := range bounds {
		out[i] = b.Low + rng.Float64()*b.Width()
	}
	return out
}

// ConfusionMatrix simulates sets sequences from every true model, fits all
// candidates to each and credits the minimum-BIC model, splitting credit
// evenly on ties. All parameter draws happen up front from one seeded
// generator, set j of every model is simulated with seed j.
func ConfusionMatrix(ctx context.Context, cfg scape.Config, tuner tuning.Tuner, specs []agent.Spec, sets int, seed int64, opts Options) (model.ConfusionMatrix, error) {
	if sets < 1 {
		return model.ConfusionMatrix{}, fmt.Errorf("sets must be >= 1, got %d", sets)
	}
	rng := rand.New(rand.NewSource(seed))
	draws := make([][]float64, len(specs)*sets)
	for i, spec := range specs {
		for j := 0; j < sets; j++ {
			draws[i*sets+j] = DrawUniform(rng, spec.FitBounds)
		}
	}

	winners, err := runJobs(ctx, len(draws), opts, func(ctx context.Context, idx int) ([]int, error) {
		spec := specs[idx/sets]
		setIdx := idx % sets
		seq, err := scape.Simulate(ctx, cfg, int64(setIdx), spec, draws[idx])
		if err != nil {
			return nil, err
		}
		record, err := CompareSingle(ctx, tuner, specs, seq)
		if err != nil {
			return nil, fmt.Errorf("true model %s set %d: %w", spec.Name, setIdx, err)
		}
		return record.BestModels(), nil
	})
	if err != nil {
		return model.ConfusionMatrix{}, err
	}

	matrix := model.NewConfusionMatrix(agent.SpecNames(specs), sets)
	for idx, best := range winners {
		row := idx / sets
		for _, col := range best {
			matrix.Counts[row][col] += 1 / float64(len(best))
		}
	}
	return matrix, nil
}
