package model

import (
	"encoding/json"
	"fmt"
	"math"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Bound is the closed interval a single free parameter is fitted in.
type Bound struct {
	Low  float64 `json:"low"`
	High float64 `json:"high"`
}

func (b Bound) Mid() float64 {
	return b.Low + (b.High-b.Low)/2
}

func (b Bound) Width() float64 {
	return b.High - b.Low
}

func (b Bound) Contains(x float64) bool {
	return x >= b.Low && x <= b.High
}

func (b Bound) Clamp(x float64) float64 {
	return math.Min(b.High, math.Max(b.Low, x))
}

// TrialSequence is the ordered record of one bandit episode.
type TrialSequence struct {
	Choices   []int  `json:"choices"`
	Successes []bool `json:"successes"`
}

func NewTrialSequence(horizon int) TrialSequence {
	return TrialSequence{
		Choices:   make([]int, horizon),
		Successes: make([]bool, horizon),
	}
}

func (s TrialSequence) Len() int {
	return len(s.Choices)
}

func (s TrialSequence) Validate(nOptions int) error {
	if len(s.Choices) != len(s.Successes) {
		return fmt.Errorf("trial sequence length mismatch: choices=%d successes=%d", len(s.Choices), len(s.Successes))
	}
	for t, c := range s.Choices {
		if c < 0 || c >= nOptions {
			return fmt.Errorf("trial %d: choice %d outside [0,%d)", t, c, nOptions)
		}
	}
	return nil
}

// SuccessRate is the fraction of rewarded trials.
func (s TrialSequence) SuccessRate() float64 {
	if len(s.Successes) == 0 {
		return 0
	}
	n := 0
	for _, ok := range s.Successes {
		if ok {
			n++
		}
	}
	return float64(n) / float64(len(s.Successes))
}

// FitResult is the optimizer output for one (model, trial sequence) pair.
type FitResult struct {
	Model            string    `json:"model"`
	Params           []float64 `json:"params"`
	NegLogLikelihood float64   `json:"neg_log_likelihood"`
	Evaluations      int       `json:"evaluations,omitempty"`
}

func (r FitResult) LogLikelihood() float64 {
	return -r.NegLogLikelihood
}

// ComparisonRecord holds per-model fit quality for one subject.
type ComparisonRecord struct {
	Models         []string    `json:"models"`
	LogLikelihoods []float64   `json:"log_likelihoods"`
	BIC            []float64   `json:"bic"`
	Params         [][]float64 `json:"params"`
}

// Best returns the index of the lowest BIC, the first one on ties.
func (r ComparisonRecord) Best() int {
	best := -1
	for i, score := range r.BIC {
		if best < 0 || score < r.BIC[best] {
			best = i
		}
	}
	return best
}

// BestModels returns every index that attains the minimum BIC.
func (r ComparisonRecord) BestModels() []int {
	best := r.Best()
	if best < 0 {
		return nil
	}
	min := r.BIC[best]
	out := make([]int, 0, 1)
	for i, score := range r.BIC {
		if score == min {
			out = append(out, i)
		}
	}
	return out
}

type ConfusionMatrix struct {
	Models []string    `json:"models"`
	Counts [][]float64 `json:"counts"`
	Sets   int         `json:"sets"`
}

func NewConfusionMatrix(models []string, sets int) ConfusionMatrix {
	counts := make([][]float64, len(models))
	for i := range counts {
		counts[i] = make([]float64, len(models))
	}
	return ConfusionMatrix{
		Models: append([]string(nil), models...),
		Counts: counts,
		Sets:   sets,
	}
}

// Frequencies row-normalizes the selection counts.
func (m ConfusionMatrix) Frequencies() [][]float64 {
	out := make([][]float64, len(m.Counts))
	for i, row := range m.Counts {
		out[i] = make([]float64, len(row))
		var total float64
		for _, v := range row {
			total += v
		}
		if total == 0 {
			continue
		}
		for j, v := range row {
			out[i][j] = v / total
		}
	}
	return out
}

// RecoveryData pairs simulated and recovered values, indexed [param][set].
type RecoveryData struct {
	Model     string      `json:"model"`
	Labels    []string    `json:"labels"`
	Bounds    []Bound     `json:"bounds"`
	Simulated [][]float64 `json:"simulated"`
	Recovered [][]float64 `json:"recovered"`
}

type PopulationData struct {
	Model  string          `json:"model"`
	Params [][]float64     `json:"params"`
	Runs   []TrialSequence `json:"runs"`
}

// LatentTrajectory holds per-step internal values and choice probabilities,
// both recorded before the update of that step.
type LatentTrajectory struct {
	Values        [][]float64 `json:"values,omitempty"`
	Probabilities [][]float64 `json:"probabilities"`
}

// GridExploration is the log-likelihood surface over a cartesian grid.
// LogLikelihoods is row-major over Axes[0] x Axes[1].
type GridExploration struct {
	Model          string      `json:"model"`
	Labels         []string    `json:"labels"`
	Axes           [][]float64 `json:"axes"`
	LogLikelihoods []float64   `json:"log_likelihoods"`
}

// ArgMax returns the grid coordinates of the highest log-likelihood.
func (g GridExploration) ArgMax() []float64 {
	if len(g.LogLikelihoods) == 0 || len(g.Axes) == 0 {
		return nil
	}
	best := 0
	for i, ll := range g.LogLikelihoods {
		if ll > g.LogLikelihoods[best] {
			best = i
		}
	}
	out := make([]float64, len(g.Axes))
	rem := best
	for d := len(g.Axes) - 1; d >= 0; d-- {
		n := len(g.Axes[d])
		out[d] = g.Axes[d][rem%n]
		rem /= n
	}
	return out
}

// CacheRecord is one memoized result: the function name, the hashed call
// key and the JSON-encoded value.
type CacheRecord struct {
	VersionedRecord
	Key     string          `json:"key"`
	Name    string          `json:"name"`
	Payload json.RawMessage `json:"payload"`
}
