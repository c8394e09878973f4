package evo

import (
	"context"
	"fmt"
	"math"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/tuning"
)

// BIC is -2*ll + k*ln(n); lower is better.
func BIC(ll float64, k, n int) float64 {
	return -2*ll + float64(k)*math.Log(float64(n))
}

// CompareSingle fits every candidate to one sequence and scores each by BIC.
func CompareSingle(ctx context.Context, tuner tuning.Tuner, specs []agent.Spec, seq model.TrialSequence) (model.ComparisonRecord, error) {
	record := model.ComparisonRecord{
		Models:         agent.SpecNames(specs),
		LogLikelihoods: make([]float64, len(specs)),
		BIC:            make([]float64, len(specs)),
		Params:         make([][]float64, len(specs)),
	}
	for j, spec := range specs {
		fit, err := tuner.Fit(ctx, spec, seq)
		if err != nil {
			return model.ComparisonRecord{}, fmt.Errorf("fit %s: %w", spec.Name, err)
		}
		ll := fit.LogLikelihood()
		record.LogLikelihoods[j] = ll
		record.BIC[j] = BIC(ll, spec.NumParams(), seq.Len())
		record.Params[j] = fit.Params
	}
	return record, nil
}

// ComparePopulation runs CompareSingle independently for every subject.
func ComparePopulation(ctx context.Context, tuner tuning.Tuner, specs []agent.Spec, runs []model.TrialSequence, opts Options) ([]model.ComparisonRecord, error) {
	return runJobs(ctx, len(runs), opts, func(ctx context.Context, i int) (model.ComparisonRecord, error) {
		record, err := CompareSingle(ctx, tuner, specs, runs[i])
		if err != nil {
			return model.ComparisonRecord{}, fmt.Errorf("subject %d: %w", i, err)
		}
		return record, nil
	})
}

// BestParams extracts, per subject, the fitted parameters of model index m.
func BestParams(records []model.ComparisonRecord, m int) [][]float64 {
	out := make([][]float64, len(records))
	for i, r := range records {
		out[i] = append([]float64(nil), r.Params[m]...)
	}
	return out
}

// Matrices splits population records into [subject][model] arrays.
func Matrices(records []model.ComparisonRecord) (lls, bics [][]float64) {
	lls = make([][]float64, len(records))
	bics = make([][]float64, len(records))
	for i, r := range records {
		lls[i] = append([]float64(nil), r.LogLikelihoods...)
		bics[i] = append([]float64(nil), r.BIC...)
	}
	return lls, bics
}
