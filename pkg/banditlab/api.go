package banditlab

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"

	"banditlab/internal/agent"
	"banditlab/internal/evo"
	"banditlab/internal/model"
	"banditlab/internal/scape"
	"banditlab/internal/stats"
	"banditlab/internal/storage"
	"banditlab/internal/tuning"
)

const (
	defaultResultsDir = "results"
	defaultExportsDir = "exports"
	defaultDBPath     = "banditlab.db"
	defaultWorkers    = 4

	TunerNelderMead = "nelder_mead"
	TunerExoself    = "exoself"
)

// Progress reports completed jobs of a named stage.
type Progress func(stage string, done, total int)

type Options struct {
	// StoreKind is memory, sqlite or none; none disables caching.
	StoreKind  string
	DBPath     string
	ResultsDir string
	ExportsDir string
	Workers    int
	Progress   Progress
}

type Client struct {
	store storage.Store

	mu          sync.Mutex
	initialized bool

	resultsDir string
	exportsDir string
	workers    int
	progress   Progress
}

// TunerOptions selects and seeds the fitting procedure.
type TunerOptions struct {
	Name string `json:"name" yaml:"name"`
	Seed int64  `json:"seed" yaml:"seed"`
}

type SimulateRequest struct {
	Model  string
	Params []float64
	Config scape.Config
	Seed   int64
}

type PopulationRequest struct {
	Model    string
	Config   scape.Config
	Subjects int
	// Params gives every subject the same vector; Dists, when set, draws
	// per subject from normals seeded by Seed instead.
	Params []float64
	Dists  []scape.Normal
	Seed   int64
}

type FitRequest struct {
	Model  string
	Config scape.Config
	Trials model.TrialSequence
	Tuner  TunerOptions
}

type ExploreRequest struct {
	Model    string
	Config   scape.Config
	Trials   model.TrialSequence
	GridSize int
}

type LatentRequest struct {
	Model  string
	Params []float64
	Config scape.Config
	Trials model.TrialSequence
}

type CompareRequest struct {
	Models []string
	Config scape.Config
	Trials model.TrialSequence
	Tuner  TunerOptions
}

type ComparePopulationRequest struct {
	Models []string
	Config scape.Config
	Runs   []model.TrialSequence
	Tuner  TunerOptions
}

// PopulationComparison holds per-subject records and how often each model
// won by log-likelihood and by BIC.
type PopulationComparison struct {
	Records      []model.ComparisonRecord `json:"records"`
	ByLikelihood stats.SelectionSummary   `json:"by_likelihood"`
	ByBIC        stats.SelectionSummary   `json:"by_bic"`
}

type ConfusionRequest struct {
	Models []string
	Config scape.Config
	Sets   int
	Seed   int64
	Tuner  TunerOptions
}

type RecoveryRequest struct {
	Model  string
	Config scape.Config
	Sets   int
	Seed   int64
	Tuner  TunerOptions
}

type ModelInfo struct {
	Name        string
	ParamLabels []string
	FitBounds   []model.Bound
}

type RunsRequest struct {
	Limit int
}

type ExportRequest struct {
	RunID  string
	Latest bool
	OutDir string
}

type ExportSummary struct {
	RunID     string
	Directory string
}

func New(opts Options) (*Client, error) {
	storeKind := opts.StoreKind
	if storeKind == "" {
		storeKind = storage.DefaultStoreKind()
	}
	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = defaultDBPath
	}
	resultsDir := opts.ResultsDir
	if resultsDir == "" {
		resultsDir = defaultResultsDir
	}
	exportsDir := opts.ExportsDir
	if exportsDir == "" {
		exportsDir = defaultExportsDir
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = defaultWorkers
	}

	store, err := storage.NewStore(storeKind, dbPath)
	if err != nil {
		return nil, err
	}

	return &Client{
		store:      store,
		resultsDir: resultsDir,
		exportsDir: exportsDir,
		workers:    workers,
		progress:   opts.Progress,
	}, nil
}

func (c *Client) Close() error {
	return storage.CloseIfSupported(c.store)
}

// Init prepares the cache backend. Every operation calls it lazily.
func (c *Client) Init(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized || c.store == nil {
		c.initialized = true
		return nil
	}
	if err := c.store.Init(ctx); err != nil {
		return fmt.Errorf("init cache: %w", err)
	}
	c.initialized = true
	return nil
}

// ClearCache drops every memoized result.
func (c *Client) ClearCache(ctx context.Context) (int, error) {
	if err := c.Init(ctx); err != nil {
		return 0, err
	}
	if c.store == nil {
		return 0, nil
	}
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := c.store.Delete(ctx, key); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

func (c *Client) Models() []ModelInfo {
	names := agent.Names()
	out := make([]ModelInfo, 0, len(names))
	for _, name := range names {
		spec, err := agent.Lookup(name)
		if err != nil {
			continue
		}
		out = append(out, ModelInfo{
			Name:        spec.Name,
			ParamLabels: append([]string(nil), spec.ParamLabels...),
			FitBounds:   append([]model.Bound(nil), spec.FitBounds...),
		})
	}
	return out
}

func (c *Client) Simulate(ctx context.Context, req SimulateRequest) (model.TrialSequence, error) {
	spec, cfg, err := c.prepare(ctx, req.Model, req.Config)
	if err != nil {
		return model.TrialSequence{}, err
	}
	args := []any{spec.Name, req.Params, cfg, req.Seed}
	return storage.Memo(ctx, c.store, "simulate", args, func(ctx context.Context) (model.TrialSequence, error) {
		return scape.Simulate(ctx, cfg, req.Seed, spec, req.Params)
	})
}

func (c *Client) Population(ctx context.Context, req PopulationRequest) (model.PopulationData, error) {
	spec, cfg, err := c.prepare(ctx, req.Model, req.Config)
	if err != nil {
		return model.PopulationData{}, err
	}
	if req.Subjects < 1 {
		return model.PopulationData{}, fmt.Errorf("subjects must be >= 1, got %d", req.Subjects)
	}
	if req.Params != nil && req.Dists != nil {
		return model.PopulationData{}, errors.New("population takes either params or dists, not both")
	}
	args := []any{spec.Name, cfg, req.Subjects, req.Params, req.Dists, req.Seed}
	return storage.Memo(ctx, c.store, "population", args, func(ctx context.Context) (model.PopulationData, error) {
		params := scape.HomogeneousParams(req.Params, req.Subjects)
		if req.Dists != nil {
			params, err = scape.HeterogeneousParams(req.Seed, req.Subjects, req.Dists, spec.FitBounds)
			if err != nil {
				return model.PopulationData{}, err
			}
		}
		return scape.SimulatePopulation(ctx, cfg, spec, params)
	})
}

func (c *Client) Fit(ctx context.Context, req FitRequest) (model.FitResult, error) {
	spec, cfg, err := c.prepare(ctx, req.Model, req.Config)
	if err != nil {
		return model.FitResult{}, err
	}
	tuner, err := newTuner(cfg, req.Tuner)
	if err != nil {
		return model.FitResult{}, err
	}
	args := []any{spec.Name, cfg, req.Trials, tunerKey(req.Tuner)}
	return storage.Memo(ctx, c.store, "fit", args, func(ctx context.Context) (model.FitResult, error) {
		return tuner.Fit(ctx, spec, req.Trials)
	})
}

func (c *Client) Explore(ctx context.Context, req ExploreRequest) (model.GridExploration, error) {
	spec, cfg, err := c.prepare(ctx, req.Model, req.Config)
	if err != nil {
		return model.GridExploration{}, err
	}
	if req.GridSize <= 0 {
		req.GridSize = tuning.DefaultGridSize
	}
	args := []any{spec.Name, cfg, req.Trials, req.GridSize}
	return storage.Memo(ctx, c.store, "explore", args, func(ctx context.Context) (model.GridExploration, error) {
		return tuning.ExploreGrid(ctx, cfg, spec, req.Trials, req.GridSize)
	})
}

// Latent replays trials through the model and is never cached.
func (c *Client) Latent(ctx context.Context, req LatentRequest) (model.LatentTrajectory, error) {
	spec, cfg, err := c.prepare(ctx, req.Model, req.Config)
	if err != nil {
		return model.LatentTrajectory{}, err
	}
	return scape.LatentVariables(cfg, spec, req.Params, req.Trials)
}

func (c *Client) Compare(ctx context.Context, req CompareRequest) (model.ComparisonRecord, error) {
	specs, cfg, err := c.prepareAll(ctx, req.Models, req.Config)
	if err != nil {
		return model.ComparisonRecord{}, err
	}
	tuner, err := newTuner(cfg, req.Tuner)
	if err != nil {
		return model.ComparisonRecord{}, err
	}
	args := []any{agent.SpecNames(specs), cfg, req.Trials, tunerKey(req.Tuner)}
	return storage.Memo(ctx, c.store, "compare", args, func(ctx context.Context) (model.ComparisonRecord, error) {
		return evo.CompareSingle(ctx, tuner, specs, req.Trials)
	})
}

func (c *Client) ComparePopulation(ctx context.Context, req ComparePopulationRequest) (PopulationComparison, error) {
	specs, cfg, err := c.prepareAll(ctx, req.Models, req.Config)
	if err != nil {
		return PopulationComparison{}, err
	}
	tuner, err := newTuner(cfg, req.Tuner)
	if err != nil {
		return PopulationComparison{}, err
	}
	args := []any{agent.SpecNames(specs), cfg, req.Runs, tunerKey(req.Tuner)}
	records, err := storage.Memo(ctx, c.store, "compare_population", args, func(ctx context.Context) ([]model.ComparisonRecord, error) {
		return evo.ComparePopulation(ctx, tuner, specs, req.Runs, c.evoOptions("compare"))
	})
	if err != nil {
		return PopulationComparison{}, err
	}

	names := agent.SpecNames(specs)
	lls, bics := evo.Matrices(records)
	return PopulationComparison{
		Records:      records,
		ByLikelihood: stats.FreqAndErr(names, lls),
		ByBIC:        stats.FreqAndErr(names, stats.Negate(bics)),
	}, nil
}

func (c *Client) Confusion(ctx context.Context, req ConfusionRequest) (model.ConfusionMatrix, error) {
	specs, cfg, err := c.prepareAll(ctx, req.Models, req.Config)
	if err != nil {
		return model.ConfusionMatrix{}, err
	}
	tuner, err := newTuner(cfg, req.Tuner)
	if err != nil {
		return model.ConfusionMatrix{}, err
	}
	args := []any{agent.SpecNames(specs), cfg, req.Sets, req.Seed, tunerKey(req.Tuner)}
	return storage.Memo(ctx, c.store, "confusion", args, func(ctx context.Context) (model.ConfusionMatrix, error) {
		return evo.ConfusionMatrix(ctx, cfg, tuner, specs, req.Sets, req.Seed, c.evoOptions("confusion"))
	})
}

func (c *Client) Recovery(ctx context.Context, req RecoveryRequest) (model.RecoveryData, error) {
	spec, cfg, err := c.prepare(ctx, req.Model, req.Config)
	if err != nil {
		return model.RecoveryData{}, err
	}
	tuner, err := newTuner(cfg, req.Tuner)
	if err != nil {
		return model.RecoveryData{}, err
	}
	args := []any{spec.Name, cfg, req.Sets, req.Seed, tunerKey(req.Tuner)}
	return storage.Memo(ctx, c.store, "recovery", args, func(ctx context.Context) (model.RecoveryData, error) {
		return evo.ParameterRecovery(ctx, cfg, tuner, spec, req.Sets, req.Seed, c.evoOptions("recovery"))
	})
}

func (c *Client) Runs(_ context.Context, req RunsRequest) ([]stats.RunIndexEntry, error) {
	if req.Limit <= 0 {
		req.Limit = 20
	}
	entries, err := stats.ListRunIndex(c.resultsDir)
	if err != nil {
		return nil, err
	}
	if len(entries) > req.Limit {
		entries = entries[:req.Limit]
	}
	return entries, nil
}

func (c *Client) Export(_ context.Context, req ExportRequest) (ExportSummary, error) {
	if req.RunID != "" && req.Latest {
		return ExportSummary{}, errors.New("use either run id or latest")
	}
	if req.RunID == "" && !req.Latest {
		return ExportSummary{}, errors.New("export requires run id or latest")
	}
	if req.OutDir == "" {
		req.OutDir = c.exportsDir
	}

	runID := req.RunID
	if req.Latest {
		entries, err := stats.ListRunIndex(c.resultsDir)
		if err != nil {
			return ExportSummary{}, err
		}
		if len(entries) == 0 {
			return ExportSummary{}, errors.New("no runs available to export")
		}
		runID = entries[0].RunID
	}

	exportedDir, err := stats.ExportRunArtifacts(c.resultsDir, runID, req.OutDir)
	if err != nil {
		return ExportSummary{}, err
	}
	return ExportSummary{RunID: runID, Directory: filepath.Clean(exportedDir)}, nil
}

func (c *Client) prepare(ctx context.Context, name string, cfg scape.Config) (agent.Spec, scape.Config, error) {
	if err := c.Init(ctx); err != nil {
		return agent.Spec{}, scape.Config{}, err
	}
	cfg = withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return agent.Spec{}, scape.Config{}, err
	}
	spec, err := agent.Lookup(name)
	if err != nil {
		return agent.Spec{}, scape.Config{}, err
	}
	return spec, cfg, nil
}

func (c *Client) prepareAll(ctx context.Context, names []string, cfg scape.Config) ([]agent.Spec, scape.Config, error) {
	if err := c.Init(ctx); err != nil {
		return nil, scape.Config{}, err
	}
	cfg = withDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, scape.Config{}, err
	}
	if len(names) == 0 {
		return agent.Default(), cfg, nil
	}
	specs, err := agent.LookupAll(names)
	if err != nil {
		return nil, scape.Config{}, err
	}
	return specs, cfg, nil
}

func (c *Client) evoOptions(stage string) evo.Options {
	opts := evo.Options{Workers: c.workers}
	if c.progress != nil {
		opts.Progress = func(done, total int) {
			c.progress(stage, done, total)
		}
	}
	return opts
}

// withDefaults fills an all-zero config with the default bandit. A partially
// set config is left for Validate to judge.
func withDefaults(cfg scape.Config) scape.Config {
	if cfg.Options == 0 && cfg.Probabilities == nil && cfg.Horizon == 0 {
		return scape.DefaultConfig()
	}
	return cfg
}

func newTuner(cfg scape.Config, opts TunerOptions) (tuning.Tuner, error) {
	switch opts.Name {
	case "", TunerNelderMead:
		return tuning.NewOptimizer(cfg), nil
	case TunerExoself:
		return &tuning.Exoself{
			Config:          cfg,
			Seed:            opts.Seed,
			Attempts:        200,
			Steps:           2,
			StepSize:        0.1,
			AnnealingFactor: 0.9,
		}, nil
	default:
		return nil, fmt.Errorf("unsupported tuner: %s", opts.Name)
	}
}

func tunerKey(opts TunerOptions) TunerOptions {
	if opts.Name == "" {
		opts.Name = TunerNelderMead
	}
	if opts.Name == TunerNelderMead {
		opts.Seed = 0
	}
	return opts
}
