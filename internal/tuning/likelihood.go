package tuning

import (
	"math"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/scape"
)

// LogFloor keeps log(p) finite when a recorded choice had zero probability.
var LogFloor = math.Nextafter(1, 2) - 1

// LogLikelihood replays seq through a fresh agent without resampling and sums
// log(p(choice)+LogFloor) over all trials.
func LogLikelihood(cfg scape.Config, spec agent.Spec, params []float64, seq model.TrialSequence) (float64, error) {
	if err := seq.Validate(cfg.Options); err != nil {
		return 0, err
	}
	return logLikelihood(cfg, spec, params, seq)
}

func logLikelihood(cfg scape.Config, spec agent.Spec, params []float64, seq model.TrialSequence) (float64, error) {
	a, err := spec.Build(params, cfg.Options)
	if err != nil {
		return 0, err
	}
	var ll float64
	for t, c := range seq.Choices {
		p := a.DecisionRule()
		ll += math.Log(p[c] + LogFloor)
		a.UpdatingRule(c, seq.Successes[t])
	}
	return ll, nil
}

// NegLogLikelihood returns the minimization objective for spec on seq.
func NegLogLikelihood(cfg scape.Config, spec agent.Spec, seq model.TrialSequence) ObjectiveFn {
	return func(params []float64) (float64, error) {
		ll, err := logLikelihood(cfg, spec, params, seq)
		if err != nil {
			return 0, err
		}
		return -ll, nil
	}
}
