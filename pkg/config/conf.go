package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mchmarny/credrank/pkg/graph"
	"github.com/mchmarny/credrank/pkg/pagerank"
	"github.com/mchmarny/credrank/pkg/weights"
	"gopkg.in/yaml.v3"
)

const (
	FileName = "config.yaml"
	dirMode  = 0700
	fileMode = 0600
)

// ErrInvalidConfig is returned when a config value is out of range.
var ErrInvalidConfig = errors.New("invalid config")

// Config represents the ranking config file.
type Config struct {
	Alpha                float64       `json:"alpha" yaml:"alpha"`
	SelfLoopWeight       float64       `json:"selfLoopWeight" yaml:"selfLoopWeight"`
	ConvergenceThreshold float64       `json:"convergenceThreshold" yaml:"convergenceThreshold"`
	MaxIterations        int           `json:"maxIterations" yaml:"maxIterations"`
	YieldAfter           time.Duration `json:"yieldAfter" yaml:"yieldAfter"`
	Seed                 string        `json:"seed" yaml:"seed"`
	Verbose              bool          `json:"verbose" yaml:"verbose"`
	Weights              WeightsConfig `json:"weights" yaml:"weights"`
}

// WeightsConfig lists node and edge prefix weights.
type WeightsConfig struct {
	Nodes []NodeWeight `json:"nodes,omitempty" yaml:"nodes,omitempty"`
	Edges []EdgeWeight `json:"edges,omitempty" yaml:"edges,omitempty"`
}

// NodeWeight applies Weight to every node under Prefix.
type NodeWeight struct {
	Prefix []string `json:"prefix" yaml:"prefix"`
	Weight float64  `json:"weight" yaml:"weight"`
}

// EdgeWeight applies Forwards and Backwards to every edge under Prefix.
type EdgeWeight struct {
	Prefix    []string `json:"prefix" yaml:"prefix"`
	Forwards  float64  `json:"forwards" yaml:"forwards"`
	Backwards float64  `json:"backwards" yaml:"backwards"`
}

// MarshalJSON writes YieldAfter as a duration string, matching the YAML form.
func (c Config) MarshalJSON() ([]byte, error) {
	type plain Config
	return json.Marshal(struct {
		plain
		YieldAfter string `json:"yieldAfter"`
	}{plain: plain(c), YieldAfter: c.YieldAfter.String()})
}

// UnmarshalJSON reads YieldAfter as a duration string.
func (c *Config) UnmarshalJSON(b []byte) error {
	type plain Config
	aux := struct {
		*plain
		YieldAfter string `json:"yieldAfter"`
	}{plain: (*plain)(c)}
	if err := json.Unmarshal(b, &aux); err != nil {
		return err
	}
	if aux.YieldAfter == "" {
		return nil
	}
	d, err := time.ParseDuration(aux.YieldAfter)
	if err != nil {
		return fmt.Errorf("yieldAfter %q: %w", aux.YieldAfter, err)
	}
	c.YieldAfter = d
	return nil
}

// Default returns the config matching pagerank.DefaultOptions.
func Default() *Config {
	opts := pagerank.DefaultOptions()
	return &Config{
		Alpha:                opts.Alpha,
		SelfLoopWeight:       opts.SelfLoopWeight,
		ConvergenceThreshold: opts.ConvergenceThreshold,
		MaxIterations:        opts.MaxIterations,
		YieldAfter:           opts.YieldAfter,
		Seed:                 string(opts.Seed),
	}
}

// Validate checks every value and the weights.
func (c *Config) Validate() error {
	if math.IsNaN(c.Alpha) || c.Alpha < 0 || c.Alpha > 1 {
		return fmt.Errorf("alpha %v must be in [0, 1]: %w", c.Alpha, ErrInvalidConfig)
	}
	if !finiteNonNegative(c.SelfLoopWeight) {
		return fmt.Errorf("selfLoopWeight %v: %w", c.SelfLoopWeight, ErrInvalidConfig)
	}
	if !finiteNonNegative(c.ConvergenceThreshold) {
		return fmt.Errorf("convergenceThreshold %v: %w", c.ConvergenceThreshold, ErrInvalidConfig)
	}
	if c.MaxIterations < 0 {
		return fmt.Errorf("maxIterations %d: %w", c.MaxIterations, ErrInvalidConfig)
	}
	if c.YieldAfter < 0 {
		return fmt.Errorf("yieldAfter %s: %w", c.YieldAfter, ErrInvalidConfig)
	}
	switch pagerank.SeedMode(c.Seed) {
	case pagerank.SeedUniform, pagerank.SeedWeights:
	default:
		return fmt.Errorf("seed %q must be %s or %s: %w", c.Seed, pagerank.SeedUniform, pagerank.SeedWeights, ErrInvalidConfig)
	}
	if _, err := c.BuildWeights(); err != nil {
		return err
	}
	return nil
}

func finiteNonNegative(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// Options converts the config into pipeline options.
func (c *Config) Options() pagerank.Options {
	return pagerank.Options{
		Alpha:                c.Alpha,
		SelfLoopWeight:       c.SelfLoopWeight,
		ConvergenceThreshold: c.ConvergenceThreshold,
		MaxIterations:        c.MaxIterations,
		YieldAfter:           c.YieldAfter,
		Seed:                 pagerank.SeedMode(c.Seed),
		Verbose:              c.Verbose,
	}
}

// BuildWeights converts the configured prefixes into Weights.
func (c *Config) BuildWeights() (*weights.Weights, error) {
	w := weights.Empty()
	for _, nw := range c.Weights.Nodes {
		a, err := graph.NewNodeAddress(nw.Prefix...)
		if err != nil {
			return nil, fmt.Errorf("node weight prefix %v: %w", nw.Prefix, err)
		}
		if _, ok := w.NodeWeights[a]; ok {
			return nil, fmt.Errorf("duplicate node weight prefix %v: %w", nw.Prefix, ErrInvalidConfig)
		}
		w.NodeWeights[a] = nw.Weight
	}
	for _, ew := range c.Weights.Edges {
		a, err := graph.NewEdgeAddress(ew.Prefix...)
		if err != nil {
			return nil, fmt.Errorf("edge weight prefix %v: %w", ew.Prefix, err)
		}
		if _, ok := w.EdgeWeights[a]; ok {
			return nil, fmt.Errorf("duplicate edge weight prefix %v: %w", ew.Prefix, ErrInvalidConfig)
		}
		w.EdgeWeights[a] = weights.EdgeWeight{Forwards: ew.Forwards, Backwards: ew.Backwards}
	}
	if err := w.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return w, nil
}

// Load reads a config file. Keys missing from the file keep their default.
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("config path required")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file %s: %w", path, err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("error unmarshalling config file %s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}
	return c, nil
}

// Save writes c to path.
func Save(path string, c *Config) error {
	if path == "" {
		return errors.New("config path required")
	}
	if c == nil {
		return errors.New("config required")
	}
	b, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, b, fileMode); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// ReadOrCreate reads the config from directory or creates a default one.
func ReadOrCreate(dirPath string) (*Config, error) {
	if dirPath == "" {
		return nil, errors.New("config directory required")
	}

	if _, err := os.Stat(dirPath); errors.Is(err, os.ErrNotExist) {
		if err := os.MkdirAll(dirPath, dirMode); err != nil {
			return nil, fmt.Errorf("failed to create dir %s: %w", dirPath, err)
		}
	}

	path := filepath.Join(dirPath, FileName)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if err := Save(path, Default()); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
	}

	return Load(path)
}

// GetOrCreateHomeDir returns the app directory under the user's home.
// The created flag is set to true if the directory was created.
func GetOrCreateHomeDir(name string) (path string, created bool, err error) {
	if name == "" {
		return "", false, errors.New("name cannot be empty")
	}

	if !strings.HasPrefix(name, ".") {
		name = "." + name
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("failed to get user home dir: %w", err)
	}

	dir := filepath.Join(home, name)
	if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) {
		if err := os.Mkdir(dir, dirMode); err != nil {
			return "", false, fmt.Errorf("failed to create dir %s: %w", dir, err)
		}
		created = true
	}
	return dir, created, nil
}
