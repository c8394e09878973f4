package tuning

import (
	"context"
	"errors"
	"fmt"

	"banditlab/internal/agent"
	"banditlab/internal/model"
)

var (
	ErrNotConverged  = errors.New("optimization did not converge")
	ErrMissingBounds = errors.New("model declares parameters without fit bounds")
	ErrGridDimension = errors.New("grid exploration requires exactly two parameters")
)

// ObjectiveFn scores a parameter vector; lower is better.
type ObjectiveFn func(params []float64) (float64, error)

// Tuner fits a model's free parameters to one recorded trial sequence.
type Tuner interface {
	Name() string
	Fit(ctx context.Context, spec agent.Spec, seq model.TrialSequence) (model.FitResult, error)
}

func checkBounds(spec agent.Spec) error {
	if spec.FitBounds == nil && len(spec.ParamLabels) > 0 {
		return fmt.Errorf("%w: %s", ErrMissingBounds, spec.Name)
	}
	if len(spec.ParamLabels) != len(spec.FitBounds) {
		return fmt.Errorf("%w: %s has %d labels for %d bounds", ErrMissingBounds, spec.Name, len(spec.ParamLabels), len(spec.FitBounds))
	}
	return nil
}
