package agent

import "fmt"

const noChoice = -1

// WSLS is win-stay-lose-switch with lapse rate epsilon.
type WSLS struct {
	n       int
	epsilon float64

	lastChoice  int
	lastSuccess bool
}

func NewWSLS(epsilon float64, nOptions int) *WSLS {
	return &WSLS{n: nOptions, epsilon: epsilon, lastChoice: noChoice}
}

// DecisionRule fills every non-repeated option in closed form and gives the
// previous choice the residual mass, so the vector sums to one.
func (w *WSLS) DecisionRule() []float64 {
	if w.lastChoice == noChoice {
		return uniform(w.n)
	}

	pRandom := w.epsilon / float64(w.n)
	other := pRandom
	if !w.lastSuccess {
		other = (1-w.epsilon)/float64(w.n-1) + pRandom
	}

	p := make([]float64, w.n)
	var sum float64
	for i := range p {
		if i == w.lastChoice {
			continue
		}
		p[i] = other
		sum += other
	}
	// rounding in the closed-form shares can leave a residual of -ulp
	residual := 1 - sum
	if residual < 0 && residual > -NormalizationTolerance {
		residual = 0
	}
	p[w.lastChoice] = residual

	mustDistribution(p, fmt.Sprintf("wsls c=%d r=%t epsilon=%g", w.lastChoice, w.lastSuccess, w.epsilon))
	return p
}

func (w *WSLS) UpdatingRule(option int, success bool) {
	w.lastChoice = option
	w.lastSuccess = success
}
