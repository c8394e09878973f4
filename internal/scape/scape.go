package scape

import (
	"context"

	"banditlab/internal/agent"
	"banditlab/internal/model"
)

type Trace map[string]any

// Scape drives one agent through an episode and records what happened.
type Scape interface {
	Name() string
	Run(ctx context.Context, seed int64, a agent.Agent) (model.TrialSequence, Trace, error)
}
