package banditlab

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/plot"
	"banditlab/internal/scape"
	"banditlab/internal/stats"

	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/google/uuid"
)

const reportFile = "report.html"

// ExperimentConfig drives the full study: effect curves, a single simulated
// subject and its fit, grid exploration, homogeneous and heterogeneous
// populations, parameter recovery, model comparison and confusion.
// Zero counts skip the matching stage.
type ExperimentConfig struct {
	RunID          string         `json:"run_id" yaml:"run_id"`
	Bandit         scape.Config   `json:"bandit" yaml:"bandit"`
	Model          string         `json:"model" yaml:"model"`
	Params         []float64      `json:"params" yaml:"params"`
	Models         []string       `json:"models" yaml:"models"`
	Seed           int64          `json:"seed" yaml:"seed"`
	Subjects       int            `json:"subjects" yaml:"subjects"`
	PopulationSeed int64          `json:"population_seed" yaml:"population_seed"`
	Dists          []scape.Normal `json:"dists" yaml:"dists"`
	GridSize       int            `json:"grid_size" yaml:"grid_size"`
	RecoverySets   int            `json:"recovery_sets" yaml:"recovery_sets"`
	RecoverySeed   int64          `json:"recovery_seed" yaml:"recovery_seed"`
	ConfusionSets  int            `json:"confusion_sets" yaml:"confusion_sets"`
	ConfusionSeed  int64          `json:"confusion_seed" yaml:"confusion_seed"`
	Alphas         []float64      `json:"alphas" yaml:"alphas"`
	EffectSteps    int            `json:"effect_steps" yaml:"effect_steps"`
	Betas          []float64      `json:"betas" yaml:"betas"`
	EffectPoints   int            `json:"effect_points" yaml:"effect_points"`
	Tuner          TunerOptions   `json:"tuner" yaml:"tuner"`
	Plots          bool           `json:"plots" yaml:"plots"`
}

func DefaultExperimentConfig() ExperimentConfig {
	return ExperimentConfig{
		Bandit:         scape.DefaultConfig(),
		Model:          "rw",
		Params:         []float64{0.10, 10.00},
		Models:         agent.SpecNames(agent.Default()),
		Seed:           0,
		Subjects:       30,
		PopulationSeed: 1234,
		Dists:          []scape.Normal{{Mean: 0.15, Std: 0.05}, {Mean: 10.0, Std: 0.5}},
		GridSize:       20,
		RecoverySets:   30,
		RecoverySeed:   234,
		ConfusionSets:  100,
		ConfusionSeed:  123,
		Alphas:         []float64{0.01, 0.1, 0.2, 0.3},
		EffectSteps:    100,
		Betas:          []float64{1.0, 5.0, 10.0, 20.0},
		EffectPoints:   100,
		Tuner:          TunerOptions{Name: TunerNelderMead},
		Plots:          true,
	}
}

type ExperimentSummary struct {
	RunID        string
	ArtifactsDir string
	ReportPath   string

	Trials         model.TrialSequence
	BestFit        model.FitResult
	Grid           *model.GridExploration
	Single         *model.ComparisonRecord
	Correlation    []stats.Correlation
	Confusion      *model.ConfusionMatrix
	Classification []stats.ClassScore
	Accuracy       float64
	Population     *PopulationComparison
	BestModel      string
}

// Experiment runs every enabled stage, writes the artifacts and the HTML
// report under the results directory and records the run in the index.
func (c *Client) Experiment(ctx context.Context, cfg ExperimentConfig) (ExperimentSummary, error) {
	if cfg.RunID == "" {
		cfg.RunID = uuid.NewString()
	}
	cfg.Bandit = withDefaults(cfg.Bandit)
	spec, err := agent.Lookup(cfg.Model)
	if err != nil {
		return ExperimentSummary{}, err
	}

	summary := ExperimentSummary{RunID: cfg.RunID}
	artifacts := stats.RunArtifacts{Config: stats.RunConfig{
		RunID:         cfg.RunID,
		Command:       "experiment",
		Models:        append([]string{spec.Name}, cfg.Models...),
		Options:       cfg.Bandit.Options,
		Probabilities: cfg.Bandit.Probabilities,
		Horizon:       cfg.Bandit.Horizon,
		Seed:          cfg.Seed,
		Subjects:      cfg.Subjects,
		Sets:          cfg.ConfusionSets,
		GridSize:      cfg.GridSize,
		Workers:       c.workers,
		Tuner:         tunerKey(cfg.Tuner).Name,
		Params:        cfg.Params,
	}}
	var charts []components.Charter

	if len(cfg.Alphas) > 0 && cfg.EffectSteps > 0 {
		steps := make([]float64, cfg.EffectSteps)
		for t := range steps {
			steps[t] = float64(t)
		}
		charts = append(charts, plot.Effect("learning rate effect", "step", steps,
			labels("alpha", cfg.Alphas), scape.AlphaEffect(cfg.Alphas, cfg.EffectSteps)))
	}
	if len(cfg.Betas) > 0 && cfg.EffectPoints > 0 {
		xs, ys := scape.BetaEffect(cfg.Betas, cfg.EffectPoints, 0, 1)
		charts = append(charts, plot.Effect("inverse temperature effect", "Q(A)-Q(B)", xs, labels("beta", cfg.Betas), ys))
	}

	c.report("single", 0, 1)
	seq, err := c.Simulate(ctx, SimulateRequest{Model: spec.Name, Params: cfg.Params, Config: cfg.Bandit, Seed: cfg.Seed})
	if err != nil {
		return ExperimentSummary{}, fmt.Errorf("simulate single subject: %w", err)
	}
	summary.Trials = seq
	artifacts.Trials = append(artifacts.Trials, seq)
	latent, err := c.Latent(ctx, LatentRequest{Model: spec.Name, Params: cfg.Params, Config: cfg.Bandit, Trials: seq})
	if err != nil {
		return ExperimentSummary{}, err
	}
	charts = append(charts,
		plot.Behavior(fmt.Sprintf("%s single subject", spec.Name), seq, plot.DefaultWindow),
		plot.Latent(fmt.Sprintf("%s latent variables", spec.Name), latent),
	)
	c.report("single", 1, 1)

	c.report("fit", 0, 1)
	fit, err := c.Fit(ctx, FitRequest{Model: spec.Name, Config: cfg.Bandit, Trials: seq, Tuner: cfg.Tuner})
	if err != nil {
		return ExperimentSummary{}, fmt.Errorf("fit single subject: %w", err)
	}
	summary.BestFit = fit
	artifacts.Fits = append(artifacts.Fits, fit)
	bfSeq, err := c.Simulate(ctx, SimulateRequest{Model: spec.Name, Params: fit.Params, Config: cfg.Bandit, Seed: cfg.Seed + 1})
	if err != nil {
		return ExperimentSummary{}, err
	}
	artifacts.Trials = append(artifacts.Trials, bfSeq)
	bfLatent, err := c.Latent(ctx, LatentRequest{Model: spec.Name, Params: fit.Params, Config: cfg.Bandit, Trials: bfSeq})
	if err != nil {
		return ExperimentSummary{}, err
	}
	charts = append(charts,
		plot.Behavior(fmt.Sprintf("%s best-fit simulation", spec.Name), bfSeq, plot.DefaultWindow),
		plot.Latent(fmt.Sprintf("%s best-fit latent variables", spec.Name), bfLatent),
	)
	c.report("fit", 1, 1)

	if cfg.GridSize > 0 && spec.NumParams() == 2 {
		c.report("explore", 0, 1)
		grid, err := c.Explore(ctx, ExploreRequest{Model: spec.Name, Config: cfg.Bandit, Trials: seq, GridSize: cfg.GridSize})
		if err != nil {
			return ExperimentSummary{}, fmt.Errorf("explore parameter space: %w", err)
		}
		summary.Grid = &grid
		artifacts.Grid = &grid
		heat, err := plot.ParameterSpace(grid)
		if err != nil {
			return ExperimentSummary{}, err
		}
		charts = append(charts, heat)
		c.report("explore", 1, 1)
	}

	if cfg.Subjects > 0 {
		for _, run := range []struct {
			title  string
			params []float64
		}{
			{"homogeneous population", cfg.Params},
			{"homogeneous best-fit population", fit.Params},
		} {
			pop, err := c.Population(ctx, PopulationRequest{Model: spec.Name, Config: cfg.Bandit, Subjects: cfg.Subjects, Params: run.params})
			if err != nil {
				return ExperimentSummary{}, fmt.Errorf("%s: %w", run.title, err)
			}
			popChart, err := c.populationLatent(cfg.Bandit, spec, pop, run.title)
			if err != nil {
				return ExperimentSummary{}, err
			}
			charts = append(charts, popChart)
		}
	}

	if cfg.RecoverySets > 0 && spec.NumParams() > 0 {
		recovery, err := c.Recovery(ctx, RecoveryRequest{Model: spec.Name, Config: cfg.Bandit, Sets: cfg.RecoverySets, Seed: cfg.RecoverySeed, Tuner: cfg.Tuner})
		if err != nil {
			return ExperimentSummary{}, fmt.Errorf("parameter recovery: %w", err)
		}
		artifacts.Recovery = &recovery
		summary.Correlation = stats.CorrelationRecovery(recovery)
		artifacts.Correlation = summary.Correlation
		for _, sc := range plot.Recovery(recovery) {
			charts = append(charts, sc)
		}
	}

	if len(cfg.Models) > 0 {
		single, err := c.Compare(ctx, CompareRequest{Models: cfg.Models, Config: cfg.Bandit, Trials: seq, Tuner: cfg.Tuner})
		if err != nil {
			return ExperimentSummary{}, fmt.Errorf("compare single subject: %w", err)
		}
		summary.Single = &single
		artifacts.Comparisons = append(artifacts.Comparisons, single)
	}

	if cfg.ConfusionSets > 0 && len(cfg.Models) > 0 {
		confusion, err := c.Confusion(ctx, ConfusionRequest{Models: cfg.Models, Config: cfg.Bandit, Sets: cfg.ConfusionSets, Seed: cfg.ConfusionSeed, Tuner: cfg.Tuner})
		if err != nil {
			return ExperimentSummary{}, fmt.Errorf("confusion matrix: %w", err)
		}
		summary.Confusion = &confusion
		artifacts.Confusion = &confusion
		summary.Classification, summary.Accuracy = stats.Classification(confusion)
		artifacts.Scores = summary.Classification
		charts = append(charts, plot.Confusion(confusion))
	}

	if cfg.Subjects > 0 && len(cfg.Dists) > 0 && len(cfg.Models) > 0 {
		pop, err := c.Population(ctx, PopulationRequest{
			Model:    spec.Name,
			Config:   cfg.Bandit,
			Subjects: cfg.Subjects,
			Dists:    cfg.Dists,
			Seed:     cfg.PopulationSeed,
		})
		if err != nil {
			return ExperimentSummary{}, fmt.Errorf("heterogeneous population: %w", err)
		}
		cmp, err := c.ComparePopulation(ctx, ComparePopulationRequest{Models: cfg.Models, Config: cfg.Bandit, Runs: pop.Runs, Tuner: cfg.Tuner})
		if err != nil {
			return ExperimentSummary{}, fmt.Errorf("compare population: %w", err)
		}
		summary.Population = &cmp
		artifacts.Comparisons = append(artifacts.Comparisons, cmp.Records...)
		artifacts.Selection = &cmp.ByBIC
		charts = append(charts,
			plot.Comparison("best model by log-likelihood", cmp.ByLikelihood),
			plot.Comparison("best model by BIC", cmp.ByBIC),
		)

		best := cmp.ByBIC.Best()
		bestSpec, err := agent.Lookup(cmp.ByBIC.Models[best])
		if err != nil {
			return ExperimentSummary{}, err
		}
		summary.BestModel = bestSpec.Name
		if bestSpec.NumParams() > 0 {
			params := make([][]float64, len(cmp.Records))
			for i, r := range cmp.Records {
				params[i] = r.Params[best]
			}
			posthoc, err := scape.SimulatePopulation(ctx, cfg.Bandit, bestSpec, params)
			if err != nil {
				return ExperimentSummary{}, fmt.Errorf("post-hoc simulation: %w", err)
			}
			popChart, err := c.populationLatent(cfg.Bandit, bestSpec, posthoc, "post-hoc best-fit population")
			if err != nil {
				return ExperimentSummary{}, err
			}
			charts = append(charts, popChart)
		}
	}

	runDir, err := stats.WriteRunArtifacts(c.resultsDir, artifacts)
	if err != nil {
		return ExperimentSummary{}, err
	}
	summary.ArtifactsDir = filepath.Clean(runDir)
	if cfg.Plots && len(charts) > 0 {
		summary.ReportPath = filepath.Join(summary.ArtifactsDir, reportFile)
		if err := plot.WritePage(summary.ReportPath, charts...); err != nil {
			return ExperimentSummary{}, fmt.Errorf("write report: %w", err)
		}
	}
	if err := stats.AppendRunIndex(c.resultsDir, stats.RunIndexEntry{
		RunID:        cfg.RunID,
		Command:      "experiment",
		Models:       artifacts.Config.Models,
		Horizon:      cfg.Bandit.Horizon,
		Seed:         cfg.Seed,
		Workers:      c.workers,
		CreatedAtUTC: time.Now().UTC().Format(time.RFC3339Nano),
	}); err != nil {
		return ExperimentSummary{}, err
	}
	return summary, nil
}

func (c *Client) populationLatent(cfg scape.Config, spec agent.Spec, pop model.PopulationData, title string) (components.Charter, error) {
	trajs, err := scape.LatentVariablesPopulation(cfg, spec, pop)
	if err != nil {
		return nil, err
	}
	return plot.Latent(fmt.Sprintf("%s %s (mean of %d)", spec.Name, title, len(trajs)), stats.MeanLatent(trajs)), nil
}

func (c *Client) report(stage string, done, total int) {
	if c.progress != nil {
		c.progress(stage, done, total)
	}
}

func labels(name string, values []float64) []string {
	out := make([]string, len(values))
	for i, v := range values {
		out[i] = fmt.Sprintf("%s=%s", name, strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.3f", v), "0"), "."))
	}
	return out
}
