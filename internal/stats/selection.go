package stats

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultConfidence is the two-sided level used for selection intervals.
const DefaultConfidence = 0.95

// SelectionSummary is how often each model scored best across subjects,
// with a Wilson score interval per model.
type SelectionSummary struct {
	Models    []string  `json:"models"`
	Counts    []float64 `json:"counts"`
	Frequency []float64 `json:"frequency"`
	Lower     []float64 `json:"lower"`
	Upper     []float64 `json:"upper"`
}

// FreqAndErr counts, per model column, the subjects for which that column
// holds the highest score. Ties split the subject evenly. Pass
// log-likelihoods directly and BIC negated.
func FreqAndErr(models []string, scores [][]float64) SelectionSummary {
	k := len(models)
	summary := SelectionSummary{
		Models:    append([]string(nil), models...),
		Counts:    make([]float64, k),
		Frequency: make([]float64, k),
		Lower:     make([]float64, k),
		Upper:     make([]float64, k),
	}
	n := len(scores)
	if n == 0 || k == 0 {
		return summary
	}
	for _, row := range scores {
		best := math.Inf(-1)
		for _, v := range row {
			best = math.Max(best, v)
		}
		var ties []int
		for j, v := range row {
			if v == best {
				ties = append(ties, j)
			}
		}
		for _, j := range ties {
			summary.Counts[j] += 1 / float64(len(ties))
		}
	}

	z := distuv.UnitNormal.Quantile(1 - (1-DefaultConfidence)/2)
	for j := range models {
		p := summary.Counts[j] / float64(n)
		summary.Frequency[j] = p
		summary.Lower[j], summary.Upper[j] = wilson(p, float64(n), z)
	}
	return summary
}

func wilson(p, n, z float64) (float64, float64) {
	z2 := z * z
	denom := 1 + z2/n
	centre := (p + z2/(2*n)) / denom
	half := z * math.Sqrt(p*(1-p)/n+z2/(4*n*n)) / denom
	return math.Max(0, centre-half), math.Min(1, centre+half)
}

// Best returns the model index with the highest selection frequency.
func (s SelectionSummary) Best() int {
	best := -1
	for j, f := range s.Frequency {
		if best < 0 || f > s.Frequency[best] {
			best = j
		}
	}
	return best
}

func Negate(m [][]float64) [][]float64 {
	out := make([][]float64, len(m))
	for i, row := range m {
		out[i] = make([]float64, len(row))
		for j, v := range row {
			out[i][j] = -v
		}
	}
	return out
}
