package agent

// DefaultInitialValue is the prior value estimate of every option.
const DefaultInitialValue = 0.5

// RW is a Rescorla-Wagner learner with a softmax decision rule.
type RW struct {
	alpha  float64
	beta   float64
	values []float64
}

func NewRW(alpha, beta, initialValue float64, nOptions int) *RW {
	values := make([]float64, nOptions)
	for i := range values {
		values[i] = initialValue
	}
	return &RW{alpha: alpha, beta: beta, values: values}
}

func (r *RW) DecisionRule() []float64 {
	return Softmax(r.scores())
}

func (r *RW) scores() []float64 {
	s := make([]float64, len(r.values))
	for i, q := range r.values {
		s[i] = r.beta * q
	}
	return s
}

func (r *RW) UpdatingRule(option int, success bool) {
	r.values[option] += r.alpha * (reward(success) - r.values[option])
}

func (r *RW) Values() []float64 {
	return append([]float64(nil), r.values...)
}

func reward(success bool) float64 {
	if success {
		return 1
	}
	return 0
}
