package stats

import (
	"banditlab/internal/model"

	"gonum.org/v1/gonum/floats"
)

// MeanLatent averages trajectories step by step. Trajectories must share a
// length and option count; values are averaged only when all carry them.
func MeanLatent(trajs []model.LatentTrajectory) model.LatentTrajectory {
	if len(trajs) == 0 {
		return model.LatentTrajectory{}
	}
	withValues := true
	for _, tr := range trajs {
		if tr.Values == nil {
			withValues = false
			break
		}
	}

	out := model.LatentTrajectory{Probabilities: meanRows(trajs, func(tr model.LatentTrajectory) [][]float64 { return tr.Probabilities })}
	if withValues {
		out.Values = meanRows(trajs, func(tr model.LatentTrajectory) [][]float64 { return tr.Values })
	}
	return out
}

func meanRows(trajs []model.LatentTrajectory, get func(model.LatentTrajectory) [][]float64) [][]float64 {
	first := get(trajs[0])
	out := make([][]float64, len(first))
	for t := range first {
		out[t] = make([]float64, len(first[t]))
		for _, tr := range trajs {
			floats.Add(out[t], get(tr)[t])
		}
		floats.Scale(1/float64(len(trajs)), out[t])
	}
	return out
}
