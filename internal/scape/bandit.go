package scape

import (
	"context"
	"errors"
	"fmt"
	"math/rand"

	"banditlab/internal/agent"
	"banditlab/internal/model"
)

const (
	DefaultOptions = 2
	DefaultHorizon = 500
)

var ErrInvalidConfig = errors.New("invalid bandit config")

// Config describes the task: option count, per-option success probability
// and episode length. It is never mutated during a run.
type Config struct {
	Options       int       `json:"options" yaml:"options"`
	Probabilities []float64 `json:"probabilities" yaml:"probabilities"`
	Horizon       int       `json:"horizon" yaml:"horizon"`
}

func DefaultConfig() Config {
	return Config{
		Options:       DefaultOptions,
		Probabilities: []float64{0.5, 0.75},
		Horizon:       DefaultHorizon,
	}
}

func (c Config) Validate() error {
	if c.Options < 1 {
		return fmt.Errorf("%w: options must be >= 1, got %d", ErrInvalidConfig, c.Options)
	}
	if len(c.Probabilities) != c.Options {
		return fmt.Errorf("%w: %d probabilities for %d options", ErrInvalidConfig, len(c.Probabilities), c.Options)
	}
	for i, p := range c.Probabilities {
		if p < 0 || p > 1 {
			return fmt.Errorf("%w: probability %d = %g outside [0,1]", ErrInvalidConfig, i, p)
		}
	}
	if c.Horizon < 1 {
		return fmt.Errorf("%w: horizon must be >= 1, got %d", ErrInvalidConfig, c.Horizon)
	}
	return nil
}

// BanditScape is a stationary Bernoulli multi-armed bandit.
type BanditScape struct {
	Config Config
}

func (BanditScape) Name() string {
	return "bandit"
}

// Run consumes the seeded generator in a fixed order: per step one draw for
// the choice, then one draw for the outcome.
func (s BanditScape) Run(ctx context.Context, seed int64, a agent.Agent) (model.TrialSequence, Trace, error) {
	cfg := s.Config
	if err := cfg.Validate(); err != nil {
		return model.TrialSequence{}, nil, err
	}

	rng := rand.New(rand.NewSource(seed))
	seq := model.NewTrialSequence(cfg.Horizon)
	counts := make([]int, cfg.Options)
	for t := 0; t < cfg.Horizon; t++ {
		if err := ctx.Err(); err != nil {
			return model.TrialSequence{}, nil, err
		}
		choice := sampleChoice(rng, a.DecisionRule())
		success := rng.Float64() < cfg.Probabilities[choice]

		a.UpdatingRule(choice, success)

		seq.Choices[t] = choice
		seq.Successes[t] = success
		counts[choice]++
	}

	return seq, Trace{
		"horizon":       cfg.Horizon,
		"choice_counts": counts,
		"success_rate":  seq.SuccessRate(),
		"seed":          seed,
	}, nil
}

func sampleChoice(rng *rand.Rand, p []float64) int {
	u := rng.Float64()
	var cum float64
	last := 0
	for i, v := range p {
		if v <= 0 {
			continue
		}
		cum += v
		last = i
		if u < cum {
			return i
		}
	}
	return last
}

// Simulate builds a fresh agent for spec and runs one seeded episode.
func Simulate(ctx context.Context, cfg Config, seed int64, spec agent.Spec, params []float64) (model.TrialSequence, error) {
	a, err := spec.Build(params, cfg.Options)
	if err != nil {
		return model.TrialSequence{}, err
	}
	seq, _, err := BanditScape{Config: cfg}.Run(ctx, seed, a)
	if err != nil {
		return model.TrialSequence{}, fmt.Errorf("simulate %s: %w", spec.Name, err)
	}
	return seq, nil
}
