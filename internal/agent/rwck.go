package agent

// RWCK combines Rescorla-Wagner values with a choice kernel that tracks how
// often each option was recently chosen.
type RWCK struct {
	rw *RW

	kernelAlpha float64
	kernelBeta  float64
	kernel      []float64
}

func NewRWCK(alpha, beta, kernelAlpha, kernelBeta float64, nOptions int) *RWCK {
	return &RWCK{
		rw:          NewRW(alpha, beta, DefaultInitialValue, nOptions),
		kernelAlpha: kernelAlpha,
		kernelBeta:  kernelBeta,
		kernel:      make([]float64, nOptions),
	}
}

func (r *RWCK) DecisionRule() []float64 {
	scores := r.rw.scores()
	for i, k := range r.kernel {
		scores[i] += r.kernelBeta * k
	}
	return Softmax(scores)
}

func (r *RWCK) UpdatingRule(option int, success bool) {
	for i := range r.kernel {
		var chosen float64
		if i == option {
			chosen = 1
		}
		r.kernel[i] += r.kernelAlpha * (chosen - r.kernel[i])
	}
	r.rw.UpdatingRule(option, success)
}

func (r *RWCK) Values() []float64 {
	return r.rw.Values()
}

func (r *RWCK) Kernel() []float64 {
	return append([]float64(nil), r.kernel...)
}
