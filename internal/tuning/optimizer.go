package tuning

import (
	"context"
	"fmt"
	"math"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"

	"gonum.org/v1/gonum/optimize"
)

const (
	DefaultFuncEvaluations = 20000
	DefaultTolerance       = 1e-8
	DefaultIdleIterations  = 200
)

// Optimizer is the maximum-likelihood tuner. It runs Nelder-Mead over an
// unconstrained reparameterization x = lo + (hi-lo)*sigmoid(z) of the fit
// bounds, starting at z = 0, the bound midpoints.
type Optimizer struct {
	Config scape.Config

	FuncEvaluations int
	Tolerance       float64
	IdleIterations  int
}

func NewOptimizer(cfg scape.Config) *Optimizer {
	return &Optimizer{
		Config:          cfg,
		FuncEvaluations: DefaultFuncEvaluations,
		Tolerance:       DefaultTolerance,
		IdleIterations:  DefaultIdleIterations,
	}
}

func (o *Optimizer) Name() string {
	return "nelder_mead"
}

func (o *Optimizer) Fit(ctx context.Context, spec agent.Spec, seq model.TrialSequence) (model.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return model.FitResult{}, err
	}
	if err := checkBounds(spec); err != nil {
		return model.FitResult{}, err
	}
	if err := seq.Validate(o.Config.Options); err != nil {
		return model.FitResult{}, err
	}
	objective := NegLogLikelihood(o.Config, spec, seq)

	if len(spec.FitBounds) == 0 {
		nll, err := objective(nil)
		if err != nil {
			return model.FitResult{}, err
		}
		return model.FitResult{Model: spec.Name, Params: []float64{}, NegLogLikelihood: nll, Evaluations: 1}, nil
	}

	bounds := spec.FitBounds
	var evalErr error
	problem := optimize.Problem{
		Func: func(z []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			v, err := objective(fromUnconstrained(z, bounds))
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			return v
		},
		Status: func() (optimize.Status, error) {
			if evalErr != nil {
				return optimize.Failure, evalErr
			}
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}

	settings := &optimize.Settings{
		FuncEvaluations: o.funcEvaluations(),
		Converger: &optimize.FunctionConverge{
			Absolute:   o.tolerance(),
			Iterations: o.idleIterations(),
		},
	}
	result, err := optimize.Minimize(problem, make([]float64, len(bounds)), settings, &optimize.NelderMead{SimplexSize: 1})
	if evalErr != nil {
		return model.FitResult{}, fmt.Errorf("%s objective: %w", spec.Name, evalErr)
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return model.FitResult{}, ctxErr
	}
	if err != nil {
		return model.FitResult{}, fmt.Errorf("%w: %s: %v", ErrNotConverged, spec.Name, err)
	}
	if !converged(result.Status) {
		return model.FitResult{}, fmt.Errorf("%w: %s: %s", ErrNotConverged, spec.Name, result.Status)
	}

	return model.FitResult{
		Model:            spec.Name,
		Params:           fromUnconstrained(result.X, bounds),
		NegLogLikelihood: result.F,
		Evaluations:      result.FuncEvaluations,
	}, nil
}

func converged(status optimize.Status) bool {
	switch status {
	case optimize.Failure,
		optimize.IterationLimit,
		optimize.RuntimeLimit,
		optimize.FunctionEvaluationLimit,
		optimize.GradientEvaluationLimit,
		optimize.HessianEvaluationLimit,
		optimize.NotTerminated:
		return false
	default:
		return true
	}
}

func (o *Optimizer) funcEvaluations() int {
	if o.FuncEvaluations > 0 {
		return o.FuncEvaluations
	}
	return DefaultFuncEvaluations
}

func (o *Optimizer) tolerance() float64 {
	if o.Tolerance > 0 {
		return o.Tolerance
	}
	return DefaultTolerance
}

func (o *Optimizer) idleIterations() int {
	if o.IdleIterations > 0 {
		return o.IdleIterations
	}
	return DefaultIdleIterations
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

func fromUnconstrained(z []float64, bounds []model.Bound) []float64 {
	x := make([]float64, len(bounds))
	for i, b := range bounds {
		x[i] = b.Clamp(b.Low + b.Width()*sigmoid(z[i]))
	}
	return x
}
