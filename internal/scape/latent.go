package scape

import (
	"fmt"

	"banditlab/internal/agent"
	"banditlab/internal/model"
)

// LatentVariables replays a recorded sequence and captures the agent's value
// estimates and choice probabilities before each update.
func LatentVariables(cfg Config, spec agent.Spec, params []float64, seq model.TrialSequence) (model.LatentTrajectory, error) {
	if err := seq.Validate(cfg.Options); err != nil {
		return model.LatentTrajectory{}, err
	}
	a, err := spec.Build(params, cfg.Options)
	if err != nil {
		return model.LatentTrajectory{}, err
	}
	reporter, hasValues := a.(agent.ValueReporter)

	out := model.LatentTrajectory{Probabilities: make([][]float64, seq.Len())}
	if hasValues {
		out.Values = make([][]float64, seq.Len())
	}
	for t := 0; t < seq.Len(); t++ {
		if hasValues {
			out.Values[t] = reporter.Values()
		}
		out.Probabilities[t] = a.DecisionRule()
		a.UpdatingRule(seq.Choices[t], seq.Successes[t])
	}
	return out, nil
}

func LatentVariablesPopulation(cfg Config, spec agent.Spec, pop model.PopulationData) ([]model.LatentTrajectory, error) {
	if len(pop.Params) != len(pop.Runs) {
		return nil, fmt.Errorf("population has %d parameter sets for %d runs", len(pop.Params), len(pop.Runs))
	}
	out := make([]model.LatentTrajectory, len(pop.Runs))
	for i, run := range pop.Runs {
		traj, err := LatentVariables(cfg, spec, pop.Params[i], run)
		if err != nil {
			return nil, fmt.Errorf("subject %d: %w", i, err)
		}
		out[i] = traj
	}
	return out, nil
}
