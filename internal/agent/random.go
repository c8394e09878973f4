package agent

// Random picks uniformly at random and never learns.
type Random struct {
	n int
}

func NewRandom(nOptions int) *Random {
	return &Random{n: nOptions}
}

func (r *Random) DecisionRule() []float64 {
	return uniform(r.n)
}

func (*Random) UpdatingRule(int, bool) {}
