package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pi-kappa-devel/structural-schooling/internal/calibration"
)

// SaveRunJSON writes one run's full record to
// <outputDir>/<setup>/<group>.json and returns the written path.
func SaveRunJSON(result *calibration.RunResult, outputDir string) (string, error) {
	if result == nil {
		return "", fmt.Errorf("no run result to export")
	}

	outputPath := filepath.Join(outputDir, result.Setup, string(result.Group)+".json")
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return "", fmt.Errorf("create output directory: %w", err)
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return "", fmt.Errorf("create run record file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(result); err != nil {
		return "", fmt.Errorf("encode run record: %w", err)
	}
	return outputPath, nil
}

// SaveBatchJSON writes all batch results with generation metadata to a
// single JSON file.
func SaveBatchJSON(results []*calibration.RunResult, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to export")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	converged := 0
	for _, r := range results {
		if r.Converged {
			converged++
		}
	}
	output := map[string]interface{}{
		"metadata": map[string]interface{}{
			"generated_at":   time.Now().Format(time.RFC3339),
			"total_runs":     len(results),
			"converged_runs": converged,
		},
		"runs": results,
	}

	file, err := os.Create(outputPath)
	if err != nil {
		return fmt.Errorf("create batch file: %w", err)
	}
	defer file.Close()

	encoder := json.NewEncoder(file)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(output); err != nil {
		return fmt.Errorf("encode batch: %w", err)
	}
	return nil
}
