package agent

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// NormalizationTolerance bounds how far a decision rule may drift from 1.
const NormalizationTolerance = 1e-9

var ErrNormalization = errors.New("decision rule is not a probability vector")

// Agent is a stateful choice policy over a fixed option set.
type Agent interface {
	DecisionRule() []float64
	UpdatingRule(option int, success bool)
}

// ValueReporter exposes the value estimates of value-learning agents.
type ValueReporter interface {
	Values() []float64
}

// Softmax converts scores into a probability vector. The max score is
// subtracted before exponentiating so large inverse temperatures stay finite.
func Softmax(scores []float64) []float64 {
	p := make([]float64, len(scores))
	if len(scores) == 0 {
		return p
	}
	top := floats.Max(scores)
	for i, s := range scores {
		p[i] = math.Exp(s - top)
	}
	floats.Scale(1/floats.Sum(p), p)
	return p
}

func uniform(n int) []float64 {
	p := make([]float64, n)
	for i := range p {
		p[i] = 1 / float64(n)
	}
	return p
}

// CheckDistribution reports whether p is non-negative and sums to 1.
func CheckDistribution(p []float64) error {
	for i, v := range p {
		if v < 0 || math.IsNaN(v) {
			return fmt.Errorf("%w: p[%d]=%g", ErrNormalization, i, v)
		}
	}
	if sum := floats.Sum(p); math.Abs(sum-1) > NormalizationTolerance {
		return fmt.Errorf("%w: sum=%.17g p=%v", ErrNormalization, sum, p)
	}
	return nil
}

func mustDistribution(p []float64, context string) {
	if err := CheckDistribution(p); err != nil {
		panic(fmt.Sprintf("%s: %v", context, err))
	}
}
