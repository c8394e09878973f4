package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"banditlab/internal/scape"
	"banditlab/pkg/banditlab"

	"gopkg.in/yaml.v3"
)

// fileConfig is the YAML layout accepted by --config. Missing keys keep
// their defaults.
type fileConfig struct {
	Cache      string                     `yaml:"cache"`
	DBPath     string                     `yaml:"db_path"`
	Out        string                     `yaml:"out"`
	Workers    int                        `yaml:"workers"`
	Experiment banditlab.ExperimentConfig `yaml:"experiment"`
}

func defaultFileConfig() fileConfig {
	return fileConfig{Experiment: banditlab.DefaultExperimentConfig()}
}

func loadConfig(path string) (fileConfig, error) {
	cfg := defaultFileConfig()
	if path == "" {
		return cfg, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fileConfig{}, err
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return fileConfig{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Experiment.Bandit.Validate(); err != nil {
		return fileConfig{}, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// banditFlags overrides the configured bandit with explicitly set flags.
type banditFlags struct {
	options int
	probs   []float64
	horizon int
}

func (f *banditFlags) apply(base scape.Config, changed func(string) bool) scape.Config {
	cfg := base
	cfg.Probabilities = append([]float64(nil), base.Probabilities...)
	if changed("options") {
		cfg.Options = f.options
	}
	if changed("probs") {
		cfg.Probabilities = append([]float64(nil), f.probs...)
		if !changed("options") {
			cfg.Options = len(f.probs)
		}
	}
	if changed("horizon") {
		cfg.Horizon = f.horizon
	}
	return cfg
}

// parseDists reads "mean:std" pairs separated by commas.
func parseDists(raw string) ([]scape.Normal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	parts := strings.Split(raw, ",")
	out := make([]scape.Normal, 0, len(parts))
	for _, part := range parts {
		fields := strings.Split(strings.TrimSpace(part), ":")
		if len(fields) != 2 {
			return nil, fmt.Errorf("invalid distribution %q: want mean:std", part)
		}
		mean, err := strconv.ParseFloat(fields[0], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid distribution mean %q: %w", fields[0], err)
		}
		std, err := strconv.ParseFloat(fields[1], 64)
		if err != nil {
			return nil, fmt.Errorf("invalid distribution std %q: %w", fields[1], err)
		}
		if std < 0 {
			return nil, fmt.Errorf("invalid distribution std %v: must be >= 0", std)
		}
		out = append(out, scape.Normal{Mean: mean, Std: std})
	}
	return out, nil
}
