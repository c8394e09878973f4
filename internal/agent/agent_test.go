package agent

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestRandomIsUniform(t *testing.T) {
	for _, n := range []int{1, 2, 3, 7} {
		p := NewRandom(n).DecisionRule()
		if len(p) != n {
			t.Fatalf("n=%d: unexpected length %d", n, len(p))
		}
		for i, v := range p {
			if v != 1/float64(n) {
				t.Fatalf("n=%d: p[%d]=%g, want %g", n, i, v, 1/float64(n))
			}
		}
	}
}

func TestWSLSFirstDecisionUniform(t *testing.T) {
	p := NewWSLS(0.2, 3).DecisionRule()
	for i, v := range p {
		if math.Abs(v-1.0/3) > 1e-12 {
			t.Fatalf("p[%d]=%g, want uniform", i, v)
		}
	}
}

func TestWSLSAfterSuccess(t *testing.T) {
	w := NewWSLS(0, 2)
	w.UpdatingRule(1, true)
	p := w.DecisionRule()
	if p[1] != 1 || p[0] != 0 {
		t.Fatalf("epsilon=0 after success: got %v", p)
	}

	w = NewWSLS(1, 4)
	w.UpdatingRule(2, true)
	p = w.DecisionRule()
	for i, v := range p {
		if math.Abs(v-0.25) > 1e-12 {
			t.Fatalf("epsilon=1 after success: p[%d]=%g", i, v)
		}
	}
}

func TestWSLSAfterFailureSwitches(t *testing.T) {
	w := NewWSLS(0.1, 3)
	w.UpdatingRule(0, false)
	p := w.DecisionRule()
	want := 0.9/2 + 0.1/3
	if math.Abs(p[1]-want) > 1e-12 || math.Abs(p[2]-want) > 1e-12 {
		t.Fatalf("unexpected switch mass: %v", p)
	}
	if math.Abs(p[0]-0.1/3) > 1e-12 {
		t.Fatalf("unexpected stay mass: %g", p[0])
	}
	if err := CheckDistribution(p); err != nil {
		t.Fatalf("distribution: %v", err)
	}
}

func TestRWFirstUpdate(t *testing.T) {
	rw := NewRW(0.1, 1, DefaultInitialValue, 2)
	rw.UpdatingRule(0, true)
	if got := rw.Values()[0]; got != 0.5+0.1*(1-0.5) {
		t.Fatalf("value after one update: got %g want 0.55", got)
	}
	if got := rw.Values()[1]; got != 0.5 {
		t.Fatalf("unchosen value changed: %g", got)
	}
}

func TestRWConvergesMonotonically(t *testing.T) {
	rw := NewRW(0.1, 1, DefaultInitialValue, 2)
	prev := rw.Values()[0]
	for i := 0; i < 100; i++ {
		rw.UpdatingRule(0, true)
		cur := rw.Values()[0]
		if cur <= prev || cur > 1 {
			t.Fatalf("iteration %d: value %g not increasing toward 1 (prev %g)", i, cur, prev)
		}
		prev = cur
	}
	if prev < 0.9999 {
		t.Fatalf("expected convergence near 1, got %g", prev)
	}
}

func TestSoftmaxStableForLargeBeta(t *testing.T) {
	rw := NewRW(0.5, 1e6, 0.5, 2)
	rw.UpdatingRule(0, true)
	p := rw.DecisionRule()
	if math.IsNaN(p[0]) || math.IsNaN(p[1]) {
		t.Fatalf("softmax overflowed: %v", p)
	}
	if p[0] != 1 || p[1] != 0 {
		t.Fatalf("expected saturated choice, got %v", p)
	}
}

func TestRWCKKernelTracksChoices(t *testing.T) {
	a := NewRWCK(0, 1, 0.5, 5, 2)
	a.UpdatingRule(1, false)
	a.UpdatingRule(1, false)
	k := a.Kernel()
	if k[0] != 0 || k[1] != 0.75 {
		t.Fatalf("unexpected kernel: %v", k)
	}
	if v := a.Values(); v[0] != 0.5 || v[1] != 0.5 {
		t.Fatalf("alpha_q=0 must leave values untouched: %v", v)
	}
	p := a.DecisionRule()
	if p[1] <= p[0] {
		t.Fatalf("kernel should favour repeated option: %v", p)
	}
}

func TestDecisionRulesAreDistributions(t *testing.T) {
	for _, spec := range Default() {
		low := make([]float64, spec.NumParams())
		high := make([]float64, spec.NumParams())
		for i, b := range spec.FitBounds {
			low[i], high[i] = b.Low, b.High
		}
		for _, params := range [][]float64{low, spec.Midpoints(), high} {
			for n := 2; n <= 12; n++ {
				a, err := spec.Build(params, n)
				if err != nil {
					t.Fatalf("%s: build: %v", spec.Name, err)
				}
				for step := 0; step < 50; step++ {
					p := a.DecisionRule()
					if err := CheckDistribution(p); err != nil {
						t.Fatalf("%s params=%v n=%d step=%d: %v", spec.Name, params, n, step, err)
					}
					a.UpdatingRule(step%n, step%3 == 0)
				}
			}
		}
	}
}

func TestWSLSResidualNeverNegative(t *testing.T) {
	for n := 2; n <= 12; n++ {
		for _, eps := range []float64{0, 1e-12, 0.1, 0.3, 0.7, 1} {
			for _, success := range []bool{true, false} {
				for c := 0; c < n; c++ {
					w := NewWSLS(eps, n)
					w.UpdatingRule(c, success)
					p := w.DecisionRule()
					if p[c] < 0 {
						t.Fatalf("n=%d eps=%g success=%t c=%d: negative residual %g", n, eps, success, c, p[c])
					}
				}
			}
		}
	}
}

func TestSpecBuildRejectsWrongParamCount(t *testing.T) {
	if _, err := RWSpec.Build([]float64{0.1}, 2); !errors.Is(err, ErrParamCount) {
		t.Fatalf("expected ErrParamCount, got %v", err)
	}
	if _, err := RandomSpec.Build(nil, 2); err != nil {
		t.Fatalf("random build: %v", err)
	}
}

func TestRegistryLookup(t *testing.T) {
	spec, err := Lookup("rwck")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if spec.NumParams() != 4 {
		t.Fatalf("unexpected param count: %d", spec.NumParams())
	}
	if _, err := Lookup("q-learning"); !errors.Is(err, ErrSpecNotFound) {
		t.Fatalf("expected ErrSpecNotFound, got %v", err)
	}
	if err := Register(RWSpec); !errors.Is(err, ErrSpecExists) {
		t.Fatalf("expected ErrSpecExists, got %v", err)
	}
	names := strings.Join(Names()[:4], ",")
	if names != "Random,WSLS,RW,RWCK" {
		t.Fatalf("unexpected default order: %s", names)
	}
}

func TestCheckDistributionRejectsDrift(t *testing.T) {
	if err := CheckDistribution([]float64{0.5, 0.5 + 1e-6}); !errors.Is(err, ErrNormalization) {
		t.Fatalf("expected normalization error, got %v", err)
	}
	if err := CheckDistribution([]float64{-0.1, 1.1}); !errors.Is(err, ErrNormalization) {
		t.Fatalf("expected negative entry error, got %v", err)
	}
}
