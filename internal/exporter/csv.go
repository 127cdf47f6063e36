package exporter

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/pi-kappa-devel/structural-schooling/internal/calibration"
	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// WriteOptions configures CSV writing behavior.
type WriteOptions struct {
	Headers   []string
	Records   [][]string
	Append    bool
	BOMPrefix bool // Add UTF-8 BOM for Excel compatibility
}

// WriteCSV writes data to a CSV file with the given options.
func WriteCSV(outputPath string, options WriteOptions) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	flags := os.O_CREATE | os.O_WRONLY
	if options.Append {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
	}
	file, err := os.OpenFile(outputPath, flags, 0644)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	// BOM helps Excel recognize UTF-8.
	if options.BOMPrefix && !options.Append {
		if _, err := file.Write([]byte{0xEF, 0xBB, 0xBF}); err != nil {
			return fmt.Errorf("failed to write BOM: %w", err)
		}
	}

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if !options.Append && len(options.Headers) > 0 {
		if err := writer.Write(options.Headers); err != nil {
			return fmt.Errorf("failed to write headers: %w", err)
		}
	}
	for i, record := range options.Records {
		if err := writer.Write(record); err != nil {
			return fmt.Errorf("failed to write record %d: %w", i, err)
		}
	}
	return writer.Error()
}

// summaryHeaders returns the batch summary column names: run identity,
// fitted parameters in canonical order, then fit diagnostics.
func summaryHeaders() []string {
	headers := []string{"setup", "group", "run_id"}
	for _, name := range model.ParamOrder {
		headers = append(headers, string(name))
	}
	return append(headers,
		"objective", "converged", "evaluations",
		"infeasible_evaluations", "flagged_evaluations", "duration_seconds")
}

// summaryRecord flattens one run result into a summary row.
func summaryRecord(r *calibration.RunResult) []string {
	record := []string{r.Setup, string(r.Group), r.ID}
	for _, name := range model.ParamOrder {
		record = append(record, formatFloat(r.Parameters[name], 6))
	}
	return append(record,
		formatFloat(r.Objective, 8),
		strconv.FormatBool(r.Converged),
		strconv.Itoa(r.Evaluations),
		strconv.Itoa(r.InfeasibleEvaluations),
		strconv.Itoa(r.FlaggedEvaluations),
		formatFloat(r.Duration.Seconds(), 2))
}

// SaveSummaryCSV writes the batch summary table, one row per run.
func SaveSummaryCSV(results []*calibration.RunResult, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to export")
	}
	records := make([][]string, 0, len(results))
	for _, r := range results {
		records = append(records, summaryRecord(r))
	}
	return WriteCSV(outputPath, WriteOptions{
		Headers:   summaryHeaders(),
		Records:   records,
		BOMPrefix: true,
	})
}

// SaveResidualsCSV writes the per-target residual table across all runs.
func SaveResidualsCSV(results []*calibration.RunResult, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to export")
	}
	headers := []string{"setup", "group", "target", "model", "observed", "weight", "weighted"}
	var records [][]string
	for _, r := range results {
		for _, res := range r.Residuals {
			records = append(records, []string{
				r.Setup,
				string(r.Group),
				string(res.Name),
				formatFloat(res.Model, 6),
				formatFloat(res.Target, 6),
				formatFloat(res.Weight, 4),
				formatFloat(res.Weighted, 6),
			})
		}
	}
	return WriteCSV(outputPath, WriteOptions{
		Headers:   headers,
		Records:   records,
		BOMPrefix: true,
	})
}

// formatFloat formats a float64 value for CSV output with the given
// precision.
func formatFloat(value float64, precision int) string {
	return strconv.FormatFloat(value, 'f', precision, 64)
}
