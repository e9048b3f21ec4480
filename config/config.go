// Package config loads planner configuration from YAML files and maps it
// onto searcher options.
package config

import (
	"os"

	"nsmdp/searcher"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Algorithm names accepted in configuration files.
const (
	AlgorithmMC    = "mc"
	AlgorithmUCT   = "uct"
	AlgorithmOLUCT = "oluct"
	AlgorithmADP   = "adp"
)

type Planner struct {
	Algorithm     string  `yaml:"algorithm"`
	Exploration   float64 `yaml:"exploration"`
	Discount      float64 `yaml:"discount"`
	Horizon       int     `yaml:"horizon"`
	Budget        int     `yaml:"budget"`
	Sweeps        int     `yaml:"sweeps"`
	Tolerance     float64 `yaml:"tolerance"`
	Samples       int     `yaml:"samples"`
	Reuse         bool    `yaml:"reuse"`
	Seed          uint64  `yaml:"seed"`
	ClusterRadius float64 `yaml:"cluster_radius"`
}

// Default returns the documented defaults: UCT with C = sqrt(2), discount
// 0.9, horizon 100 and a 1000-simulation budget.
func Default() Planner {
	return Planner{
		Algorithm:   AlgorithmUCT,
		Exploration: searcher.DefaultExploration,
		Discount:    searcher.DefaultDiscount,
		Horizon:     searcher.DefaultHorizon,
		Budget:      searcher.DefaultBudget,
		Sweeps:      searcher.DefaultSweeps,
		Tolerance:   searcher.DefaultTolerance,
		Samples:     searcher.DefaultSamples,
	}
}

// Load reads a planner configuration file. Fields left out keep their
// defaults.
func Load(path string) (Planner, error) {
	p := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return Planner{}, errors.Wrap(err, "read config")
	}
	if err := yaml.Unmarshal(data, &p); err != nil {
		return Planner{}, errors.Wrap(err, "parse config")
	}
	if err := p.Validate(); err != nil {
		return Planner{}, err
	}
	return p, nil
}

func (p Planner) Validate() error {
	switch p.Algorithm {
	case AlgorithmMC, AlgorithmUCT, AlgorithmOLUCT, AlgorithmADP:
	default:
		return errors.Errorf("unknown algorithm %q", p.Algorithm)
	}
	if p.Discount <= 0 || p.Discount > 1 {
		return errors.Errorf("discount %g outside (0, 1]", p.Discount)
	}
	if p.Horizon <= 0 {
		return errors.Errorf("horizon %d must be positive", p.Horizon)
	}
	if p.Budget <= 0 {
		return errors.Errorf("budget %d must be positive", p.Budget)
	}
	if p.Algorithm == AlgorithmADP && p.Sweeps <= 0 {
		return errors.Errorf("sweeps %d must be positive", p.Sweeps)
	}
	if p.Algorithm == AlgorithmOLUCT && p.ClusterRadius < 0 {
		return errors.Errorf("cluster radius %g must not be negative", p.ClusterRadius)
	}
	return nil
}

// Options maps the configuration onto searcher options.
func (p Planner) Options() []searcher.Option {
	options := []searcher.Option{
		searcher.WithExploration(p.Exploration),
		searcher.WithDiscount(p.Discount),
		searcher.WithHorizon(p.Horizon),
		searcher.WithBudget(p.Budget),
		searcher.WithSweeps(p.Sweeps),
		searcher.WithTolerance(p.Tolerance),
		searcher.WithSamples(p.Samples),
		searcher.WithClusterRadius(p.ClusterRadius),
	}
	if p.Reuse {
		options = append(options, searcher.WithReuse())
	}
	if p.Seed != 0 {
		options = append(options, searcher.WithSeed(p.Seed))
	}
	return options
}
