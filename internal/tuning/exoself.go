package tuning

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"
)

const (
	CandidateSelectBestSoFar = "best_so_far"
	CandidateSelectOriginal  = "original"
	CandidateSelectDynamicA  = "dynamic"
	CandidateSelectDynamic   = "dynamic_random"
)

// Exoself is a seeded stochastic hill climber over the fit bounds. It is a
// derivative-free alternative to Optimizer and never reports non-convergence:
// it stops after a fixed number of attempts.
type Exoself struct {
	Config             scape.Config
	Seed               int64
	Attempts           int
	Steps              int
	StepSize           float64
	AnnealingFactor    float64
	MinImprovement     float64
	CandidateSelection string
}

func (e *Exoself) Name() string {
	return "exoself_hillclimb"
}

func (e *Exoself) Fit(ctx context.Context, spec agent.Spec, seq model.TrialSequence) (model.FitResult, error) {
	if err := ctx.Err(); err != nil {
		return model.FitResult{}, err
	}
	if e == nil {
		return model.FitResult{}, errors.New("exoself is nil")
	}
	if e.Attempts < 0 {
		return model.FitResult{}, errors.New("attempts must be >= 0")
	}
	if e.Steps <= 0 {
		return model.FitResult{}, errors.New("steps must be > 0")
	}
	if e.StepSize <= 0 {
		return model.FitResult{}, errors.New("step size must be > 0")
	}
	if e.AnnealingFactor < 0 {
		return model.FitResult{}, errors.New("annealing factor must be >= 0")
	}
	if e.MinImprovement < 0 {
		return model.FitResult{}, errors.New("min improvement must be >= 0")
	}
	if err := checkBounds(spec); err != nil {
		return model.FitResult{}, err
	}
	if err := seq.Validate(e.Config.Options); err != nil {
		return model.FitResult{}, err
	}
	annealingFactor := e.AnnealingFactor
	if annealingFactor == 0 {
		annealingFactor = 1.0
	}

	objective := NegLogLikelihood(e.Config, spec, seq)
	original := spec.Midpoints()
	best := append([]float64(nil), original...)
	bestValue, err := objective(best)
	if err != nil {
		return model.FitResult{}, err
	}
	evaluations := 1
	if len(spec.FitBounds) == 0 {
		return model.FitResult{Model: spec.Name, Params: best, NegLogLikelihood: bestValue, Evaluations: evaluations}, nil
	}

	rng := rand.New(rand.NewSource(e.Seed))
	for a := 0; a < e.Attempts; a++ {
		bases, err := e.candidateBases(rng, best, original)
		if err != nil {
			return model.FitResult{}, err
		}
		for _, base := range bases {
			if err := ctx.Err(); err != nil {
				return model.FitResult{}, err
			}
			candidate := e.perturb(rng, base, spec.FitBounds, annealingFactor)
			value, err := objective(candidate)
			if err != nil {
				return model.FitResult{}, err
			}
			evaluations++
			if value < bestValue-e.MinImprovement {
				best = candidate
				bestValue = value
			}
		}
	}

	return model.FitResult{Model: spec.Name, Params: best, NegLogLikelihood: bestValue, Evaluations: evaluations}, nil
}

func NormalizeCandidateSelectionName(name string) string {
	switch name {
	case "", CandidateSelectBestSoFar:
		return CandidateSelectBestSoFar
	default:
		return name
	}
}

func (e *Exoself) candidateBases(rng *rand.Rand, best, original []float64) ([][]float64, error) {
	switch NormalizeCandidateSelectionName(e.CandidateSelection) {
	case CandidateSelectBestSoFar:
		return [][]float64{clone(best)}, nil
	case CandidateSelectOriginal:
		return [][]float64{clone(original)}, nil
	case CandidateSelectDynamicA:
		return [][]float64{clone(best), clone(original)}, nil
	case CandidateSelectDynamic:
		pool := [][]float64{clone(best), clone(original)}
		return randomSubset(rng, pool), nil
	default:
		return nil, fmt.Errorf("unsupported candidate selection: %s", e.CandidateSelection)
	}
}

func randomSubset(rng *rand.Rand, pool [][]float64) [][]float64 {
	mutationP := 1 / math.Sqrt(float64(len(pool)))
	chosen := make([][]float64, 0, len(pool))
	for i := range pool {
		if rng.Float64() < mutationP {
			chosen = append(chosen, pool[i])
		}
	}
	if len(chosen) > 0 {
		return chosen
	}
	return [][]float64{pool[rng.Intn(len(pool))]}
}

// perturb nudges randomly chosen parameters by a spread proportional to the
// bound width, annealed per step, and clamps the result into the bounds.
func (e *Exoself) perturb(rng *rand.Rand, base []float64, bounds []model.Bound, annealingFactor float64) []float64 {
	candidate := clone(base)
	for s := 0; s < e.Steps; s++ {
		idx := rng.Intn(len(candidate))
		spread := e.StepSize * bounds[idx].Width() * math.Pow(annealingFactor, float64(s))
		delta := (rng.Float64()*2 - 1) * spread
		candidate[idx] = bounds[idx].Clamp(candidate[idx] + delta)
	}
	return candidate
}

func clone(v []float64) []float64 {
	return append([]float64(nil), v...)
}
