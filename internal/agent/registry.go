package agent

import (
	"errors"
	"fmt"
	"strings"
	"sync"

	"banditlab/internal/model"
)

var (
	ErrSpecExists   = errors.New("model already registered")
	ErrSpecNotFound = errors.New("model not found")
	ErrParamCount   = errors.New("parameter count mismatch")
)

// Constructor builds a fresh agent from a parameter vector ordered like the
// owning spec's FitBounds.
type Constructor func(params []float64, nOptions int) (Agent, error)

// Spec declares a model variant: its parameters, fit bounds and constructor.
type Spec struct {
	Name        string
	ParamLabels []string
	FitBounds   []model.Bound
	New         Constructor
}

// NumParams is the number of free parameters (k in BIC).
func (s Spec) NumParams() int {
	return len(s.FitBounds)
}

func (s Spec) Build(params []float64, nOptions int) (Agent, error) {
	if s.New == nil {
		return nil, fmt.Errorf("model %s has no constructor", s.Name)
	}
	if len(params) != len(s.FitBounds) {
		return nil, fmt.Errorf("%w: %s expects %d, got %d", ErrParamCount, s.Name, len(s.FitBounds), len(params))
	}
	if nOptions < 1 {
		return nil, fmt.Errorf("model %s: option count must be >= 1", s.Name)
	}
	return s.New(params, nOptions)
}

// Midpoints returns the centre of every fit bound.
func (s Spec) Midpoints() []float64 {
	out := make([]float64, len(s.FitBounds))
	for i, b := range s.FitBounds {
		out[i] = b.Mid()
	}
	return out
}

var (
	RandomSpec = Spec{
		Name: "Random",
		New: func(_ []float64, n int) (Agent, error) {
			return NewRandom(n), nil
		},
	}
	WSLSSpec = Spec{
		Name:        "WSLS",
		ParamLabels: []string{"epsilon"},
		FitBounds:   []model.Bound{{Low: 0, High: 1}},
		New: func(p []float64, n int) (Agent, error) {
			return NewWSLS(p[0], n), nil
		},
	}
	RWSpec = Spec{
		Name:        "RW",
		ParamLabels: []string{"alpha", "beta"},
		FitBounds:   []model.Bound{{Low: 0, High: 1}, {Low: 1, High: 20}},
		New: func(p []float64, n int) (Agent, error) {
			return NewRW(p[0], p[1], DefaultInitialValue, n), nil
		},
	}
	RWCKSpec = Spec{
		Name:        "RWCK",
		ParamLabels: []string{"alpha_q", "beta_q", "alpha_c", "beta_c"},
		FitBounds:   []model.Bound{{Low: 0, High: 1}, {Low: 1, High: 20}, {Low: 0, High: 1}, {Low: 1, High: 20}},
		New: func(p []float64, n int) (Agent, error) {
			return NewRWCK(p[0], p[1], p[2], p[3], n), nil
		},
	}
)

// Default returns the built-in model space in comparison order.
func Default() []Spec {
	return []Spec{RandomSpec, WSLSSpec, RWSpec, RWCKSpec}
}

var specRegistry = struct {
	mu    sync.RWMutex
	m     map[string]Spec
	order []string
}{
	m: make(map[string]Spec),
}

func init() {
	for _, spec := range Default() {
		if err := Register(spec); err != nil {
			panic(err)
		}
	}
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Register adds a model variant under its case-insensitive name.
func Register(spec Spec) error {
	if spec.Name == "" {
		return errors.New("model name is required")
	}
	if spec.New == nil {
		return errors.New("model constructor is required")
	}
	if len(spec.ParamLabels) != len(spec.FitBounds) {
		return fmt.Errorf("model %s: %d labels for %d bounds", spec.Name, len(spec.ParamLabels), len(spec.FitBounds))
	}
	for i, b := range spec.FitBounds {
		if b.Low > b.High {
			return fmt.Errorf("model %s: bound %d is inverted", spec.Name, i)
		}
	}

	key := normalizeName(spec.Name)
	specRegistry.mu.Lock()
	defer specRegistry.mu.Unlock()
	if _, exists := specRegistry.m[key]; exists {
		return fmt.Errorf("%w: %s", ErrSpecExists, spec.Name)
	}
	specRegistry.m[key] = spec
	specRegistry.order = append(specRegistry.order, key)
	return nil
}

func Lookup(name string) (Spec, error) {
	specRegistry.mu.RLock()
	defer specRegistry.mu.RUnlock()
	spec, ok := specRegistry.m[normalizeName(name)]
	if !ok {
		return Spec{}, fmt.Errorf("%w: %s", ErrSpecNotFound, name)
	}
	return spec, nil
}

// LookupAll resolves names in order; an empty list yields the default space.
func LookupAll(names []string) ([]Spec, error) {
	if len(names) == 0 {
		return Default(), nil
	}
	out := make([]Spec, 0, len(names))
	for _, name := range names {
		spec, err := Lookup(name)
		if err != nil {
			return nil, err
		}
		out = append(out, spec)
	}
	return out, nil
}

// Names lists registered models in registration order.
func Names() []string {
	specRegistry.mu.RLock()
	defer specRegistry.mu.RUnlock()
	out := make([]string, 0, len(specRegistry.order))
	for _, key := range specRegistry.order {
		out = append(out, specRegistry.m[key].Name)
	}
	return out
}

func SpecNames(specs []Spec) []string {
	out := make([]string, len(specs))
	for i, s := range specs {
		out[i] = s.Name
	}
	return out
}
