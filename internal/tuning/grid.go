package tuning

import (
	"context"
	"fmt"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"

	"gonum.org/v1/gonum/floats"
)

const DefaultGridSize = 20

// ExploreGrid evaluates the log-likelihood over an evenly spaced grid that
// spans both fit bounds of a two-parameter model.
func ExploreGrid(ctx context.Context, cfg scape.Config, spec agent.Spec, seq model.TrialSequence, gridSize int) (model.GridExploration, error) {
	if err := checkBounds(spec); err != nil {
		return model.GridExploration{}, err
	}
	if len(spec.FitBounds) != 2 {
		return model.GridExploration{}, fmt.Errorf("%w: %s has %d", ErrGridDimension, spec.Name, len(spec.FitBounds))
	}
	if gridSize < 2 {
		return model.GridExploration{}, fmt.Errorf("grid size must be >= 2, got %d", gridSize)
	}
	if err := seq.Validate(cfg.Options); err != nil {
		return model.GridExploration{}, err
	}

	axes := make([][]float64, len(spec.FitBounds))
	for i, b := range spec.FitBounds {
		axes[i] = floats.Span(make([]float64, gridSize), b.Low, b.High)
	}

	lls := make([]float64, 0, gridSize*gridSize)
	for _, x := range axes[0] {
		if err := ctx.Err(); err != nil {
			return model.GridExploration{}, err
		}
		for _, y := range axes[1] {
			ll, err := logLikelihood(cfg, spec, []float64{x, y}, seq)
			if err != nil {
				return model.GridExploration{}, err
			}
			lls = append(lls, ll)
		}
	}

	return model.GridExploration{
		Model:          spec.Name,
		Labels:         append([]string(nil), spec.ParamLabels...),
		Axes:           axes,
		LogLikelihoods: lls,
	}, nil
}
