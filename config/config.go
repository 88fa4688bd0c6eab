package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/arturcastiel/opm-simulators/solver"
)

// Config holds the run configuration
type Config struct {
	Logging     LoggingConfig     `yaml:"logging"`
	Solver      SolverConfig      `yaml:"solver"`
	Output      OutputConfig      `yaml:"output"`
	Diagnostics DiagnosticsConfig `yaml:"diagnostics"`
	Iterations  IterationsConfig  `yaml:"iterations"`

	// Gravitational acceleration, zero disables gravity
	Gravity float64 `yaml:"gravity"`
}

type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error
}

type SolverConfig struct {
	Kind          string  `yaml:"kind"` // lu, cg
	Tolerance     float64 `yaml:"tolerance"`
	MaxIterations int     `yaml:"max_iterations"`
}

type OutputConfig struct {
	Dir      string `yaml:"dir"`
	Async    bool   `yaml:"async"`
	WriteNNC bool   `yaml:"write_nnc"`
}

type DiagnosticsConfig struct {
	MaxFailedCellsLogged int `yaml:"max_failed_cells_logged"`
}

type IterationsConfig struct {
	MaxNonlinear       int `yaml:"max_nonlinear"`
	MaxSwitchesPerWell int `yaml:"max_switches_per_well"`
}

// Default returns the configuration used for keys absent from a file
func Default() *Config {
	return &Config{
		Logging: LoggingConfig{Level: "info"},
		Solver: SolverConfig{
			Kind:          solver.KindLU,
			Tolerance:     1e-10,
			MaxIterations: 500,
		},
		Output: OutputConfig{
			Dir:   "output",
			Async: true,
		},
		Diagnostics: DiagnosticsConfig{MaxFailedCellsLogged: 20},
		Iterations: IterationsConfig{
			MaxNonlinear:       10,
			MaxSwitchesPerWell: 3,
		},
		Gravity: 9.80665,
	}
}

// Load reads a YAML configuration on top of the defaults
func Load(path string) (*Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

var validLevels = []string{"debug", "info", "warn", "error"}

func (c *Config) Validate() error {
	valid := false
	for _, l := range validLevels {
		if c.Logging.Level == l {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("invalid logging level: %s (valid: %v)", c.Logging.Level, validLevels)
	}
	if _, err := solver.New(c.Solver.Kind, c.Solver.Tolerance, c.Solver.MaxIterations); err != nil {
		return err
	}
	if c.Solver.Tolerance <= 0 {
		return fmt.Errorf("solver tolerance must be positive, got %g", c.Solver.Tolerance)
	}
	if c.Solver.MaxIterations < 1 {
		return fmt.Errorf("solver max_iterations must be at least 1, got %d", c.Solver.MaxIterations)
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output dir not configured")
	}
	if c.Diagnostics.MaxFailedCellsLogged < 1 {
		return fmt.Errorf("max_failed_cells_logged must be at least 1, got %d", c.Diagnostics.MaxFailedCellsLogged)
	}
	if c.Iterations.MaxNonlinear < 1 {
		return fmt.Errorf("max_nonlinear must be at least 1, got %d", c.Iterations.MaxNonlinear)
	}
	if c.Iterations.MaxSwitchesPerWell < 1 {
		return fmt.Errorf("max_switches_per_well must be at least 1, got %d", c.Iterations.MaxSwitchesPerWell)
	}
	if c.Gravity < 0 {
		return fmt.Errorf("gravity must not be negative, got %g", c.Gravity)
	}
	return nil
}

// Save writes the configuration as YAML
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}
