package scape

import (
	"context"
	"fmt"
	"math/rand"

	"banditlab/internal/agent"
	"banditlab/internal/model"
)

// Normal parameterizes a per-subject parameter distribution.
type Normal struct {
	Mean float64 `json:"mean" yaml:"mean"`
	Std  float64 `json:"std" yaml:"std"`
}

// SimulatePopulation runs subject i with seed i and params[i].
func SimulatePopulation(ctx context.Context, cfg Config, spec agent.Spec, params [][]float64) (model.PopulationData, error) {
	runs := make([]model.TrialSequence, len(params))
	for i := range params {
		seq, err := Simulate(ctx, cfg, int64(i), spec, params[i])
		if err != nil {
			return model.PopulationData{}, fmt.Errorf("subject %d: %w", i, err)
		}
		runs[i] = seq
	}
	return model.PopulationData{
		Model:  spec.Name,
		Params: cloneMatrix(params),
		Runs:   runs,
	}, nil
}

// HomogeneousParams repeats one parameter vector for n subjects.
func HomogeneousParams(params []float64, n int) [][]float64 {
	out := make([][]float64, n)
	for i := range out {
		out[i] = append([]float64(nil), params...)
	}
	return out
}

// HeterogeneousParams draws every subject's parameters from dists, in
// subject-major order, clamped to bounds when bounds are given.
func HeterogeneousParams(seed int64, n int, dists []Normal, bounds []model.Bound) ([][]float64, error) {
	if len(bounds) > 0 && len(bounds) != len(dists) {
		return nil, fmt.Errorf("%d distributions for %d bounds", len(dists), len(bounds))
	}
	rng := rand.New(rand.NewSource(seed))
	out := make([][]float64, n)
	for i := range out {
		out[i] = make([]float64, len(dists))
		for j, d := range dists {
			v := d.Mean + d.Std*rng.NormFloat64()
			if len(bounds) > 0 {
				v = bounds[j].Clamp(v)
			}
			out[i][j] = v
		}
	}
	return out, nil
}

func cloneMatrix(in [][]float64) [][]float64 {
	out := make([][]float64, len(in))
	for i := range in {
		out[i] = append([]float64(nil), in[i]...)
	}
	return out
}
