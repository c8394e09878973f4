package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"banditlab/internal/storage"
	"banditlab/pkg/banditlab"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
)

func main() {
	if err := run(context.Background(), os.Args[1:]); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string) error {
	root := newRootCmd(os.Stdout)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

// app carries the global flags and the loaded config for one invocation.
type app struct {
	configPath string
	cache      string
	dbPath     string
	outDir     string
	workers    int
	noColor    bool

	cfg fileConfig
	out *printer
}

func newRootCmd(stdout io.Writer) *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:   "banditctl",
		Short: "Simulate, fit and compare bandit decision models",
		Long: `banditctl simulates reinforcement-learning agents on a multi-armed bandit,
fits their parameters by maximum likelihood and compares models by BIC.

Models:
  Random  uniform choice
  WSLS    win-stay lose-shift with noise epsilon
  RW      Rescorla-Wagner with softmax (alpha, beta)
  RWCK    Rescorla-Wagner with choice kernel`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.setup(cmd)
		},
	}
	root.SetOut(stdout)

	flags := root.PersistentFlags()
	flags.StringVar(&a.configPath, "config", "", "YAML config file")
	flags.StringVar(&a.cache, "cache", storage.DefaultStoreKind(), "result cache: memory|sqlite|none")
	flags.StringVar(&a.dbPath, "db-path", "banditlab.db", "sqlite cache path")
	flags.StringVar(&a.outDir, "out", "results", "artifact output directory")
	flags.IntVar(&a.workers, "workers", 4, "worker count for population, recovery and confusion studies")
	flags.BoolVar(&a.noColor, "no-color", false, "disable colored output")

	root.AddCommand(
		newModelsCmd(a),
		newSimulateCmd(a),
		newFitCmd(a),
		newExploreCmd(a),
		newCompareCmd(a),
		newPopulationCmd(a),
		newRecoverCmd(a),
		newConfusionCmd(a),
		newExperimentCmd(a),
		newRunsCmd(a),
		newExportCmd(a),
		newCacheCmd(a),
	)
	return root
}

// setup loads the config file and lets explicitly set flags win over it.
func (a *app) setup(cmd *cobra.Command) error {
	cfg, err := loadConfig(a.configPath)
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if flags.Changed("cache") || cfg.Cache == "" {
		cfg.Cache = a.cache
	}
	if flags.Changed("db-path") || cfg.DBPath == "" {
		cfg.DBPath = a.dbPath
	}
	if flags.Changed("out") || cfg.Out == "" {
		cfg.Out = a.outDir
	}
	if flags.Changed("workers") || cfg.Workers <= 0 {
		cfg.Workers = a.workers
	}
	a.cfg = cfg

	color := !a.noColor && writerIsTerminal(cmd.OutOrStdout())
	a.out = newPrinter(cmd.OutOrStdout(), color)
	return nil
}

func (a *app) client() (*banditlab.Client, error) {
	return banditlab.New(banditlab.Options{
		StoreKind:  a.cfg.Cache,
		DBPath:     a.cfg.DBPath,
		ResultsDir: a.cfg.Out,
		Workers:    a.cfg.Workers,
		Progress:   a.out.progress,
	})
}

func writerIsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
