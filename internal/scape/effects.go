package scape

import (
	"math"

	"banditlab/internal/agent"

	"gonum.org/v1/gonum/floats"
)

// AlphaEffect records option 0's value under repeated success for each
// learning rate. Rows are steps, columns follow alphas.
func AlphaEffect(alphas []float64, steps int) [][]float64 {
	out := make([][]float64, steps)
	for t := range out {
		out[t] = make([]float64, len(alphas))
	}
	for i, alpha := range alphas {
		rw := agent.NewRW(alpha, 1, agent.DefaultInitialValue, DefaultOptions)
		for t := 0; t < steps; t++ {
			out[t][i] = rw.Values()[0]
			rw.UpdatingRule(0, true)
		}
	}
	return out
}

// BetaEffect evaluates the two-option softmax 1/(1+exp(-beta*x)) over value
// differences spanning [-(max-min), max-min].
func BetaEffect(betas []float64, points int, minReward, maxReward float64) ([]float64, [][]float64) {
	span := maxReward - minReward
	xs := make([]float64, points)
	if points == 1 {
		xs[0] = -span
	} else if points > 1 {
		floats.Span(xs, -span, span)
	}
	ys := make([][]float64, points)
	for j, x := range xs {
		ys[j] = make([]float64, len(betas))
		for i, beta := range betas {
			ys[j][i] = 1 / (1 + math.Exp(-beta*x))
		}
	}
	return xs, ys
}
