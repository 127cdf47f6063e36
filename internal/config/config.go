// Package config loads the calibration application configuration from a
// YAML file overlaid by environment variables with the SCHOOLING prefix.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v2"

	"github.com/pi-kappa-devel/structural-schooling/internal/calibration"
	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// envPrefix namespaces the environment variable overrides, e.g.
// SCHOOLING_PATHS_OUTPUT_DIR.
const envPrefix = "SCHOOLING"

// Config is the complete application configuration.
type Config struct {
	Run     RunConfig     `yaml:"run" envconfig:"RUN"`
	Search  SearchConfig  `yaml:"search" envconfig:"SEARCH"`
	Solver  SolverConfig  `yaml:"solver" envconfig:"SOLVER"`
	Paths   PathsConfig   `yaml:"paths" envconfig:"PATHS"`
	Logging LoggingConfig `yaml:"logging" envconfig:"LOGGING"`
}

// RunConfig selects what to calibrate and how runs are scheduled.
type RunConfig struct {
	// Setups lists setup names to run; empty means the full registry.
	Setups []string `yaml:"setups" envconfig:"SETUPS"`
	// Groups lists income groups to run; empty means all four.
	Groups []string `yaml:"groups" envconfig:"GROUPS"`
	// Adaptive chains income groups sequentially per setup, carrying fitted
	// parameters forward and warm-starting the equilibrium solver.
	Adaptive bool `yaml:"adaptive" envconfig:"ADAPTIVE"`
	// Concurrency bounds parallel runs in non-adaptive mode; zero means
	// one worker per setup.
	Concurrency int `yaml:"concurrency" envconfig:"CONCURRENCY" validate:"gte=0"`
}

// SearchConfig tunes the outer direct search.
type SearchConfig struct {
	MaxEvaluations int     `yaml:"max_evaluations" envconfig:"MAX_EVALUATIONS" validate:"gte=0"`
	ObjectiveTol   float64 `yaml:"objective_tol" envconfig:"OBJECTIVE_TOL" validate:"gte=0"`
	ParameterTol   float64 `yaml:"parameter_tol" envconfig:"PARAMETER_TOL" validate:"gte=0"`
	InitialScale   float64 `yaml:"initial_scale" envconfig:"INITIAL_SCALE" validate:"gte=0"`
}

// SolverConfig tunes the inner equilibrium solver.
type SolverConfig struct {
	MaxIterations   int     `yaml:"max_iterations" envconfig:"MAX_ITERATIONS" validate:"gte=0"`
	MaxContractions int     `yaml:"max_contractions" envconfig:"MAX_CONTRACTIONS" validate:"gte=0"`
	ResidualTol     float64 `yaml:"residual_tol" envconfig:"RESIDUAL_TOL" validate:"gte=0"`
	StepTol         float64 `yaml:"step_tol" envconfig:"STEP_TOL" validate:"gte=0"`
}

// PathsConfig locates the input and output files.
type PathsConfig struct {
	// ObservationsFile is the income-group observations CSV.
	ObservationsFile string `yaml:"observations_file" envconfig:"OBSERVATIONS_FILE" validate:"required"`
	// InitializersFile is an optional JSON initializer table; empty selects
	// the built-in defaults.
	InitializersFile string `yaml:"initializers_file" envconfig:"INITIALIZERS_FILE"`

	// FixedParametersFile optionally overlays the baseline preference and
	// technology constants (JSON).
	FixedParametersFile string `yaml:"fixed_parameters_file" envconfig:"FIXED_PARAMETERS_FILE"`
	// OutputDir receives the per-run JSON records and the summary exports.
	OutputDir string `yaml:"output_dir" envconfig:"OUTPUT_DIR" validate:"required"`
}

// LoggingConfig controls the structured logger.
type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" envconfig:"FORMAT" validate:"oneof=json text"`
	// Output selects console, file, or both.
	Output   string `yaml:"output" envconfig:"OUTPUT" validate:"oneof=console file both"`
	FilePath string `yaml:"file_path" envconfig:"FILE_PATH"`
}

// Load reads the configuration: YAML file first, environment variables on
// top. When configFile is empty the default locations are probed and their
// absence is not an error; an explicitly named file must exist.
func Load(configFile string) (*Config, error) {
	cfg := Default()

	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", configFile, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	}

	if err := envconfig.Process(envPrefix, cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

// findConfigFile probes the common config file locations.
func findConfigFile() string {
	locations := []string{
		"config.yaml",
		"configs/config.yaml",
	}
	for _, location := range locations {
		if _, err := os.Stat(location); err == nil {
			return location
		}
	}
	return ""
}

// Validate checks field constraints and resolves the run selection against
// the setup registry and the income group list.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return err
	}
	for _, name := range c.Run.Setups {
		if _, err := calibration.LookupSetup(name); err != nil {
			return err
		}
	}
	for _, group := range c.Run.Groups {
		if !model.IncomeGroup(group).Valid() {
			return fmt.Errorf("%w: unknown income group %q", model.ErrInvalidObservations, group)
		}
	}
	if c.Logging.Output != "console" && c.Logging.FilePath == "" {
		return fmt.Errorf("logging output %q requires a file path", c.Logging.Output)
	}
	return nil
}

// SelectedSetups resolves the configured setup names, defaulting to the
// full registry.
func (c *Config) SelectedSetups() ([]calibration.Setup, error) {
	if len(c.Run.Setups) == 0 {
		return calibration.Setups(), nil
	}
	setups := make([]calibration.Setup, 0, len(c.Run.Setups))
	for _, name := range c.Run.Setups {
		s, err := calibration.LookupSetup(name)
		if err != nil {
			return nil, err
		}
		setups = append(setups, s)
	}
	return setups, nil
}

// SelectedGroups resolves the configured income groups, defaulting to all.
func (c *Config) SelectedGroups() []model.IncomeGroup {
	if len(c.Run.Groups) == 0 {
		return append([]model.IncomeGroup(nil), model.IncomeGroups...)
	}
	groups := make([]model.IncomeGroup, len(c.Run.Groups))
	for i, g := range c.Run.Groups {
		groups[i] = model.IncomeGroup(g)
	}
	return groups
}

// EnsureDirectories creates the output and log directories.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.OutputDir}
	if c.Logging.Output != "console" {
		dirs = append(dirs, filepath.Dir(c.Logging.FilePath))
	}
	for _, dir := range dirs {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	return nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Search: SearchConfig{
			MaxEvaluations: 2000,
		},
		Solver: SolverConfig{
			MaxIterations:   35,
			MaxContractions: 20,
		},
		Paths: PathsConfig{
			ObservationsFile: "data/observations.csv",
			OutputDir:        "out",
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "json",
			Output:   "console",
			FilePath: "logs/calibrate.log",
		},
	}
}
