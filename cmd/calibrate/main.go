// Command calibrate fits the structural schooling model to income-group
// observations across the configured calibration setups and writes JSON,
// CSV, and Excel reports.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/pi-kappa-devel/structural-schooling/internal/calibration"
	"github.com/pi-kappa-devel/structural-schooling/internal/config"
	"github.com/pi-kappa-devel/structural-schooling/internal/exporter"
	"github.com/pi-kappa-devel/structural-schooling/internal/infrastructure"
	"github.com/pi-kappa-devel/structural-schooling/internal/model"
	"github.com/pi-kappa-devel/structural-schooling/internal/solver"
)

func main() {
	configFile := flag.String("config", "", "path to YAML config file (defaults to config.yaml when present)")
	setups := flag.String("setups", "", "comma-separated setup names (defaults to the full registry)")
	groups := flag.String("groups", "", "comma-separated income groups (low, middle, high, all)")
	input := flag.String("input", "", "income-group observations CSV (overrides config)")
	initializers := flag.String("initializers", "", "JSON initializer table (overrides config)")
	parameters := flag.String("parameters", "", "JSON fixed-parameters record overlaying the baseline constants (overrides config)")
	outputDir := flag.String("out", "", "output directory for run records and reports (overrides config)")
	adaptive := flag.Bool("adaptive", false, "chain income groups per setup, carrying fitted parameters forward")
	maxEvals := flag.Int("max-evals", 0, "outer search evaluation budget (overrides config)")
	listSetups := flag.Bool("list-setups", false, "print the setup registry and exit")
	flag.Parse()

	if *listSetups {
		for _, name := range calibration.SetupNames() {
			fmt.Println(name)
		}
		return
	}

	cfg, err := config.Load(*configFile)
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	applyFlags(cfg, *setups, *groups, *input, *initializers, *parameters, *outputDir, *adaptive, *maxEvals)
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		slog.Error("Failed to prepare directories", "error", err)
		os.Exit(1)
	}

	logger := infrastructure.MustInitializeLogger(cfg.Logging)
	defer infrastructure.CloseLogFile()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("Calibration failed", "error", err)
		os.Exit(1)
	}
}

// applyFlags overlays non-empty command line values onto the configuration.
func applyFlags(cfg *config.Config, setups, groups, input, initializers, parameters, outputDir string, adaptive bool, maxEvals int) {
	if setups != "" {
		cfg.Run.Setups = splitList(setups)
	}
	if groups != "" {
		cfg.Run.Groups = splitList(groups)
	}
	if input != "" {
		cfg.Paths.ObservationsFile = input
	}
	if initializers != "" {
		cfg.Paths.InitializersFile = initializers
	}
	if parameters != "" {
		cfg.Paths.FixedParametersFile = parameters
	}
	if outputDir != "" {
		cfg.Paths.OutputDir = outputDir
	}
	if adaptive {
		cfg.Run.Adaptive = true
	}
	if maxEvals > 0 {
		cfg.Search.MaxEvaluations = maxEvals
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func run(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.InfoContext(ctx, "Loading observations", "path", cfg.Paths.ObservationsFile)
	observations, err := model.LoadObservations(cfg.Paths.ObservationsFile)
	if err != nil {
		return fmt.Errorf("load observations: %w", err)
	}

	initTable := calibration.DefaultInitializers()
	if cfg.Paths.InitializersFile != "" {
		logger.InfoContext(ctx, "Loading initializers", "path", cfg.Paths.InitializersFile)
		initTable, err = calibration.LoadInitializers(cfg.Paths.InitializersFile)
		if err != nil {
			return fmt.Errorf("load initializers: %w", err)
		}
	}

	var fixed model.FixedParameters
	if cfg.Paths.FixedParametersFile != "" {
		logger.InfoContext(ctx, "Loading fixed parameters", "path", cfg.Paths.FixedParametersFile)
		fixed, err = model.LoadFixedParameters(cfg.Paths.FixedParametersFile)
		if err != nil {
			return fmt.Errorf("load fixed parameters: %w", err)
		}
	}

	selectedSetups, err := cfg.SelectedSetups()
	if err != nil {
		return err
	}
	selectedGroups := cfg.SelectedGroups()

	logger.InfoContext(ctx, "Starting calibration batch",
		"setups", len(selectedSetups),
		"groups", len(selectedGroups),
		"adaptive", cfg.Run.Adaptive,
		"max_evaluations", cfg.Search.MaxEvaluations)
	started := time.Now()

	results, err := calibration.RunAll(ctx, calibration.RunAllOptions{
		Setups:       selectedSetups,
		Groups:       selectedGroups,
		Observations: observations,
		Fixed:        fixed,
		Initializers: initTable,
		Search: calibration.SearchOptions{
			MaxEvaluations: cfg.Search.MaxEvaluations,
			ObjectiveTol:   cfg.Search.ObjectiveTol,
			ParameterTol:   cfg.Search.ParameterTol,
			InitialScale:   cfg.Search.InitialScale,
		},
		Solver: solver.Options{
			MaxIterations:   cfg.Solver.MaxIterations,
			MaxContractions: cfg.Solver.MaxContractions,
			ResidualTol:     cfg.Solver.ResidualTol,
			StepTol:         cfg.Solver.StepTol,
		},
		Adaptive:    cfg.Run.Adaptive,
		Concurrency: cfg.Run.Concurrency,
		Logger:      logger,
	})
	if err != nil && !errors.Is(err, calibration.ErrDidNotConverge) {
		return err
	}
	if err != nil {
		logger.WarnContext(ctx, "Some runs exhausted the evaluation budget", "error", err)
	}
	logger.InfoContext(ctx, "Calibration batch finished",
		"runs", len(results), "duration", time.Since(started))

	if err := export(ctx, cfg, logger, results); err != nil {
		return err
	}
	printSummary(results)
	return nil
}

func export(ctx context.Context, cfg *config.Config, logger *slog.Logger, results []*calibration.RunResult) error {
	completed := make([]*calibration.RunResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			completed = append(completed, r)
		}
	}
	if len(completed) == 0 {
		return fmt.Errorf("no completed runs to export")
	}

	for _, r := range completed {
		path, err := exporter.SaveRunJSON(r, cfg.Paths.OutputDir)
		if err != nil {
			return fmt.Errorf("save run %s: %w", r.ID, err)
		}
		logger.DebugContext(ctx, "Saved run record", "run_id", r.ID, "path", path)
	}

	batchPath := filepath.Join(cfg.Paths.OutputDir, "runs.json")
	if err := exporter.SaveBatchJSON(completed, batchPath); err != nil {
		return fmt.Errorf("save batch: %w", err)
	}
	summaryPath := filepath.Join(cfg.Paths.OutputDir, "summary.csv")
	if err := exporter.SaveSummaryCSV(completed, summaryPath); err != nil {
		return fmt.Errorf("save summary: %w", err)
	}
	residualsPath := filepath.Join(cfg.Paths.OutputDir, "residuals.csv")
	if err := exporter.SaveResidualsCSV(completed, residualsPath); err != nil {
		return fmt.Errorf("save residuals: %w", err)
	}
	workbookPath := filepath.Join(cfg.Paths.OutputDir, "calibration.xlsx")
	if err := exporter.SaveWorkbook(completed, workbookPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}

	logger.InfoContext(ctx, "Reports written",
		"batch", batchPath,
		"summary", summaryPath,
		"residuals", residualsPath,
		"workbook", workbookPath)
	return nil
}

func printSummary(results []*calibration.RunResult) {
	fmt.Println("\nSetup                                    | Group  | Objective    | Converged | Evals")
	fmt.Println("-----------------------------------------|--------|--------------|-----------|------")
	for _, r := range results {
		if r == nil {
			continue
		}
		fmt.Printf("%-41s | %-6s | %12.6f | %-9t | %5d\n",
			r.Setup, r.Group, r.Objective, r.Converged, r.Evaluations)
	}
}
