package main

import (
	"fmt"

	"banditlab/internal/agent"
	"banditlab/internal/plot"
	"banditlab/internal/stats"
	"banditlab/pkg/banditlab"

	"github.com/dustin/go-humanize"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/spf13/cobra"
)

func newPopulationCmd(a *app) *cobra.Command {
	var (
		bandit    banditFlags
		modelName string
		params    []float64
		dists     string
		subjects  int
		seed      int64
		models    []string
		tuner     banditlab.TunerOptions
		plotPath  string
	)
	cmd := &cobra.Command{
		Use:   "population",
		Short: "Simulate a population and count the best model per subject",
		Long: `Simulate a homogeneous population (--params) or a heterogeneous one
(--dists mean:std,...), fit every candidate model to every subject and
report how often each model wins by log-likelihood and by BIC.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			cfg := bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed)
			req := banditlab.PopulationRequest{Model: modelName, Config: cfg, Subjects: subjects, Seed: seed}
			if dists != "" {
				req.Dists, err = parseDists(dists)
				if err != nil {
					return err
				}
			} else {
				req.Params = params
				if req.Params == nil {
					req.Params = a.cfg.Experiment.Params
				}
			}
			pop, err := client.Population(cmd.Context(), req)
			if err != nil {
				return err
			}
			if models == nil {
				models = a.cfg.Experiment.Models
			}
			cmp, err := client.ComparePopulation(cmd.Context(), banditlab.ComparePopulationRequest{
				Models: models,
				Config: cfg,
				Runs:   pop.Runs,
				Tuner:  tuner,
			})
			if err != nil {
				return err
			}
			a.out.printf("population model=%s subjects=%s\n", pop.Model, humanize.Comma(int64(len(pop.Runs))))
			a.out.selection("best model by log-likelihood", cmp.ByLikelihood)
			a.out.selection("best model by BIC", cmp.ByBIC)
			if plotPath != "" {
				return writePlot(a, plotPath,
					plot.Comparison("best model by log-likelihood", cmp.ByLikelihood),
					plot.Comparison("best model by BIC", cmp.ByBIC),
				)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&bandit.options, "options", 2, "number of bandit options")
	flags.Float64SliceVar(&bandit.probs, "probs", nil, "reward probability per option")
	flags.IntVar(&bandit.horizon, "horizon", 500, "trials per episode")
	flags.StringVar(&modelName, "model", "rw", "simulating model")
	flags.Float64SliceVar(&params, "params", nil, "parameters shared by every subject")
	flags.StringVar(&dists, "dists", "", "per-parameter normal distributions as mean:std,...")
	flags.IntVar(&subjects, "subjects", 30, "number of subjects")
	flags.Int64Var(&seed, "seed", 1234, "seed for heterogeneous parameter draws")
	flags.StringSliceVar(&models, "models", nil, "candidate models (default: all)")
	flags.StringVar(&tuner.Name, "tuner", banditlab.TunerNelderMead, "fitting procedure: nelder_mead|exoself")
	flags.StringVar(&plotPath, "plot", "", "write comparison bar charts to this HTML path")
	return cmd
}

func newRecoverCmd(a *app) *cobra.Command {
	var (
		bandit    banditFlags
		modelName string
		sets      int
		seed      int64
		tuner     banditlab.TunerOptions
		plotPath  string
	)
	cmd := &cobra.Command{
		Use:   "recover",
		Short: "Simulate with random parameters and check that fitting recovers them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			data, err := client.Recovery(cmd.Context(), banditlab.RecoveryRequest{
				Model:  modelName,
				Config: bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed),
				Sets:   sets,
				Seed:   seed,
				Tuner:  tuner,
			})
			if err != nil {
				return err
			}
			a.out.header(fmt.Sprintf("recovery model=%s sets=%d", data.Model, sets))
			a.out.correlations(stats.CorrelationRecovery(data))
			if plotPath != "" {
				items := make([]components.Charter, 0, len(data.Labels))
				for _, sc := range plot.Recovery(data) {
					items = append(items, sc)
				}
				return writePlot(a, plotPath, items...)
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&bandit.options, "options", 2, "number of bandit options")
	flags.Float64SliceVar(&bandit.probs, "probs", nil, "reward probability per option")
	flags.IntVar(&bandit.horizon, "horizon", 500, "trials per episode")
	flags.StringVar(&modelName, "model", "rw", "model to recover")
	flags.IntVar(&sets, "sets", 30, "number of simulated parameter sets")
	flags.Int64Var(&seed, "seed", 234, "seed for parameter draws")
	flags.StringVar(&tuner.Name, "tuner", banditlab.TunerNelderMead, "fitting procedure: nelder_mead|exoself")
	flags.StringVar(&plotPath, "plot", "", "write recovery scatter plots to this HTML path")
	return cmd
}

func newConfusionCmd(a *app) *cobra.Command {
	var (
		bandit   banditFlags
		models   []string
		sets     int
		seed     int64
		tuner    banditlab.TunerOptions
		plotPath string
	)
	cmd := &cobra.Command{
		Use:   "confusion",
		Short: "Build the model confusion matrix",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			if models == nil {
				models = a.cfg.Experiment.Models
			}
			m, err := client.Confusion(cmd.Context(), banditlab.ConfusionRequest{
				Models: models,
				Config: bandit.apply(a.cfg.Experiment.Bandit, cmd.Flags().Changed),
				Sets:   sets,
				Seed:   seed,
				Tuner:  tuner,
			})
			if err != nil {
				return err
			}
			a.out.header(fmt.Sprintf("confusion sets=%d", m.Sets))
			a.out.confusion(m)
			if plotPath != "" {
				return writePlot(a, plotPath, plot.Confusion(m))
			}
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVar(&bandit.options, "options", 2, "number of bandit options")
	flags.Float64SliceVar(&bandit.probs, "probs", nil, "reward probability per option")
	flags.IntVar(&bandit.horizon, "horizon", 500, "trials per episode")
	flags.StringSliceVar(&models, "models", nil, "candidate models (default: all)")
	flags.IntVar(&sets, "sets", 100, "simulated sets per model")
	flags.Int64Var(&seed, "seed", 123, "seed for parameter draws")
	flags.StringVar(&tuner.Name, "tuner", banditlab.TunerNelderMead, "fitting procedure: nelder_mead|exoself")
	flags.StringVar(&plotPath, "plot", "", "write the confusion heat map to this HTML path")
	return cmd
}

func newExperimentCmd(a *app) *cobra.Command {
	var (
		runID   string
		noPlots bool
	)
	cmd := &cobra.Command{
		Use:   "experiment",
		Short: "Run the full study and write artifacts and an HTML report",
		Long: `Run every stage configured under "experiment" in the config file: effect
curves, a single simulated subject and its fit, parameter space exploration,
homogeneous and heterogeneous populations, parameter recovery, single
subject comparison and the confusion matrix.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, err := a.client()
			if err != nil {
				return err
			}
			defer client.Close()

			cfg := a.cfg.Experiment
			if runID != "" {
				cfg.RunID = runID
			}
			if noPlots {
				cfg.Plots = false
			}
			summary, err := client.Experiment(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			a.out.header(fmt.Sprintf("experiment run_id=%s", summary.RunID))
			a.out.trials(summary.Trials, cfg.Bandit.Options)
			spec, err := agent.Lookup(cfg.Model)
			if err != nil {
				return err
			}
			a.out.fit(spec.ParamLabels, summary.BestFit)
			if summary.Single != nil {
				a.out.header("single subject comparison")
				a.out.comparison(*summary.Single)
			}
			if len(summary.Correlation) > 0 {
				a.out.header("parameter recovery")
				a.out.correlations(summary.Correlation)
			}
			if summary.Confusion != nil {
				a.out.header("confusion matrix")
				a.out.confusion(*summary.Confusion)
			}
			if summary.Population != nil {
				a.out.selection("heterogeneous population, best model by BIC", summary.Population.ByBIC)
				a.out.printf("best_model=%s\n", a.out.au.Green(summary.BestModel))
			}
			a.out.printf("artifacts=%s\n", summary.ArtifactsDir)
			if summary.ReportPath != "" {
				a.out.printf("report=%s\n", summary.ReportPath)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&runID, "run-id", "", "explicit run id (default: random uuid)")
	cmd.Flags().BoolVar(&noPlots, "no-plots", false, "skip the HTML report")
	return cmd
}
