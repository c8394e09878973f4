package main

import (
	"fmt"
	"os"
	"path/filepath"

	"banditlab/internal/agent"
	"banditlab/internal/model"
	"banditlab/internal/plot"
	"banditlab/internal/stats"
	"banditlab/pkg/banditlab"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/spf13/cobra"
)

// trialSource is where a command gets its behavior: a CSV export or a fresh
// simulation.
type trialSource struct {
	bandit    banditFlags
	trialsCSV string
	model     string
	params    []float64
	seed      int64
}

func (s *trialSource) register(cmd *cobra.Command, defaultModel string) {
	flags := cmd.Flags()
	flags.IntVar(&s.bandit.options, "options", 2, "number of bandit options")
	flags.Float64SliceVar(&s.bandit.probs, "probs", nil, "reward probability per option")
	flags.IntVar(&s.bandit.horizon, "horizon", 500, "trials per episode")
	flags.StringVar(&s.trialsCSV, "trials", "", "read trials from a CSV written by simulate --csv")
	flags.StringVar(&s.model, "sim-model", defaultModel, "model used to simulate trials")
	flags.Float64SliceVar(&s.params, "sim-params", nil, "parameters of the simulating model")
	flags.Int64Var(&s.seed, "seed", 0, "simulation seed")
}

func (s *trialSource) load(cmd *cobra.Command, a *app, client *banditlab.Client) (model.TrialSequence, error) {
	if s.trialsCSV != "" {
		return stats.ReadTrials(s.trialsCSV)
	}
	params, err := s.resolveParams(a)
	if err != nil {
		return model.TrialSequence{}, err
	}
	return client.Simulate(cmd.Context(), banditlab.SimulateRequest{
		Model:  s.model,
		Params: params,
		Config: s.bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed),
		Seed:   s.seed,
	})
}

// resolveParams falls back to the configured parameters for the configured
// model and to the bound midpoints for any other model.
func (s *trialSource) resolveParams(a *app) ([]float64, error) {
	if s.params != nil {
		return s.params, nil
	}
	spec, err := agent.Lookup(s.model)
	if err != nil {
		return nil, err
	}
	configured, err := agent.Lookup(a.cfg.Experiment.Model)
	if err == nil && configured.Name == spec.Name {
		return a.cfg.Experiment.Params, nil
	}
	return spec.Midpoints(), nil
}

func newModelsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List registered models with their fit bounds",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()
			for _, m := range client.Models() {
				bounds := make([]string, len(m.FitBounds))
				for i, b := range m.FitBounds {
					bounds[i] = fmt.Sprintf("%s=[%g,%g]", m.ParamLabels[i], b.Low, b.High)
				}
				a.out.printf("%-8s params=%d %v\n", a.out.au.Green(m.Name), len(m.FitBounds), bounds)
			}
			return nil
		},
	}
}

func newSimulateCmd(a *app) *cobra.Command {
	var (
		src      trialSource
		csvPath  string
		plotPath string
	)
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Simulate one agent on the bandit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			src.trialsCSV = ""
			seq, err := src.load(cmd, a, client)
			if err != nil {
				return err
			}
			cfg := src.bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed)
			a.out.header(fmt.Sprintf("simulate model=%s seed=%d", src.model, src.seed))
			a.out.trials(seq, cfg.Options)

			if csvPath != "" {
				if err := stats.WriteTrials(csvPath, seq); err != nil {
					return err
				}
				a.out.printf("trials_csv=%s\n", csvPath)
			}
			if plotPath != "" {
				params, err := src.resolveParams(a)
				if err != nil {
					return err
				}
				items := []components.Charter{plot.Behavior(src.model+" behavior", seq, plot.DefaultWindow)}
				latent, err := client.Latent(cmd.Context(), banditlab.LatentRequest{Model: src.model, Params: params, Config: cfg, Trials: seq})
				if err != nil {
					return err
				}
				items = append(items, plot.Latent(src.model+" latent variables", latent))
				if err := writePlot(a, plotPath, items...); err != nil {
					return err
				}
			}
			return nil
		},
	}
	src.register(cmd, "rw")
	cmd.Flags().StringVar(&csvPath, "csv", "", "write trials to this CSV path")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write behavior and latent charts to this HTML path")
	return cmd
}

func newFitCmd(a *app) *cobra.Command {
	var (
		src       trialSource
		modelName string
		tuner     banditlab.TunerOptions
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Fit one model to trials by maximum likelihood",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			seq, err := src.load(cmd, a, client)
			if err != nil {
				return err
			}
			spec, err := agent.Lookup(modelName)
			if err != nil {
				return err
			}
			fit, err := client.Fit(cmd.Context(), banditlab.FitRequest{
				Model:  spec.Name,
				Config: src.bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed),
				Trials: seq,
				Tuner:  tuner,
			})
			if err != nil {
				return err
			}
			a.out.fit(spec.ParamLabels, fit)
			return nil
		},
	}
	src.register(cmd, "rw")
	cmd.Flags().StringVar(&modelName, "model", "rw", "model to fit")
	cmd.Flags().StringVar(&tuner.Name, "tuner", banditlab.TunerNelderMead, "fitting procedure: nelder_mead|exoself")
	cmd.Flags().Int64Var(&tuner.Seed, "tuner-seed", 0, "seed for stochastic tuners")
	return cmd
}

func newExploreCmd(a *app) *cobra.Command {
	var (
		src       trialSource
		modelName string
		gridSize  int
		plotPath  string
	)
	cmd := &cobra.Command{
		Use:   "explore",
		Short: "Evaluate the log-likelihood over a grid of a 2-parameter model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			seq, err := src.load(cmd, a, client)
			if err != nil {
				return err
			}
			grid, err := client.Explore(cmd.Context(), banditlab.ExploreRequest{
				Model:    modelName,
				Config:   src.bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed),
				Trials:   seq,
				GridSize: gridSize,
			})
			if err != nil {
				return err
			}
			best := grid.ArgMax()
			a.out.printf("explore model=%s points=%s max %s=%.4f %s=%.4f\n", a.out.au.Green(grid.Model),
				humanize.Comma(int64(len(grid.LogLikelihoods))), grid.Labels[0], best[0], grid.Labels[1], best[1])
			if plotPath != "" {
				heat, err := plot.ParameterSpace(grid)
				if err != nil {
					return err
				}
				return writePlot(a, plotPath, heat)
			}
			return nil
		},
	}
	src.register(cmd, "rw")
	cmd.Flags().StringVar(&modelName, "model", "rw", "2-parameter model to explore")
	cmd.Flags().IntVar(&gridSize, "grid", 20, "points per parameter axis")
	cmd.Flags().StringVar(&plotPath, "plot", "", "write the heat map to this HTML path")
	return cmd
}

func newCompareCmd(a *app) *cobra.Command {
	var (
		src    trialSource
		models []string
		tuner  banditlab.TunerOptions
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Fit every model to one subject and rank them by BIC",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			seq, err := src.load(cmd, a, client)
			if err != nil {
				return err
			}
			if models == nil {
				models = a.cfg.Experiment.Models
			}
			record, err := client.Compare(cmd.Context(), banditlab.CompareRequest{
				Models: models,
				Config: src.bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed),
				Trials: seq,
				Tuner:  tuner,
			})
			if err != nil {
				return err
			}
			a.out.header(fmt.Sprintf("compare subject model=%s", src.model))
			a.out.comparison(record)
			return nil
		},
	}
	src.register(cmd, "rw")
	cmd.Flags().StringSliceVar(&models, "models", nil, "candidate models (default: all)")
	cmd.Flags().StringVar(&tuner.Name, "tuner", banditlab.TunerNelderMead, "fitting procedure: nelder_mead|exoself")
	cmd.Flags().Int64Var(&tuner.Seed, "tuner-seed", 0, "seed for stochastic tuners")
	return cmd
}

func writePlot(a *app, path string, items ...components.Charter) error {
	if err := plot.WritePage(path, items...); err != nil {
		return err
	}
	if info, err := os.Stat(path); err == nil {
		a.out.printf("plot=%s size=%s\n", filepath.Clean(path), humanize.Bytes(uint64(info.Size())))
	}
	return nil
}
