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

// ParameterRecovery simulates sets sequences from spec with parameters drawn
// uniformly from its bounds, refits spec to each, and pairs the simulated
// and recovered values per parameter.
func ParameterRecovery(ctx context.Context, cfg scape.Config, tuner tuning.Tuner, spec agent.Spec, sets int, seed int64, opts Options) (model.RecoveryData, error) {
	if sets < 1 {
		return model.RecoveryData{}, fmt.Errorf("sets must be >= 1, got %d", sets)
	}
	rng := rand.New(rand.NewSource(seed))
	draws := make([][]float64, sets)
	for j := range draws {
		draws[j] = DrawUniform(rng, spec.FitBounds)
	}

	fits, err := runJobs(ctx, sets, opts, func(ctx context.Context, j int) (model.FitResult, error) {
		seq, err := scape.Simulate(ctx, cfg, int64(j), spec, draws[j])
		if err != nil {
			return model.FitResult{}, err
		}
		fit, err := tuner.Fit(ctx, spec, seq)
		if err != nil {
			return model.FitResult{}, fmt.Errorf("set %d: %w", j, err)
		}
		return fit, nil
	})
	if err != nil {
		return model.RecoveryData{}, err
	}

	k := spec.NumParams()
	data := model.RecoveryData{
		Model:     spec.Name,
		Labels:    append([]string(nil), spec.ParamLabels...),
		Bounds:    append([]model.Bound(nil), spec.FitBounds...),
		Simulated: make([][]float64, k),
		Recovered: make([][]float64, k),
	}
	for i := 0; i < k; i++ {
		data.Simulated[i] = make([]float64, sets)
		data.Recovered[i] = make([]float64, sets)
		for j := 0; j < sets; j++ {
			data.Simulated[i][j] = draws[j][i]
			data.Recovered[i][j] = fits[j].Params[i]
		}
	}
	return data, nil
}
