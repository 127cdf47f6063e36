package exporter

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/pi-kappa-devel/structural-schooling/internal/calibration"
	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// Workbook sheet names.
const (
	summarySheet   = "Summary"
	residualsSheet = "Residuals"
	hoursSheet     = "Hours"
)

// SaveWorkbook writes the batch results to an Excel workbook with summary,
// residual, and time-allocation sheets.
func SaveWorkbook(results []*calibration.RunResult, outputPath string) error {
	if len(results) == 0 {
		return fmt.Errorf("no results to export")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := writeSummarySheet(f, results); err != nil {
		return err
	}
	if err := writeResidualsSheet(f, results); err != nil {
		return err
	}
	if err := writeHoursSheet(f, results); err != nil {
		return err
	}

	// The summary replaces the default sheet.
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return fmt.Errorf("delete default sheet: %w", err)
	}
	if idx, err := f.GetSheetIndex(summarySheet); err == nil {
		f.SetActiveSheet(idx)
	}

	if err := f.SaveAs(outputPath); err != nil {
		return fmt.Errorf("save workbook: %w", err)
	}
	return nil
}

func writeSummarySheet(f *excelize.File, results []*calibration.RunResult) error {
	if _, err := f.NewSheet(summarySheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", summarySheet, err)
	}
	if err := writeRow(f, summarySheet, 1, toAny(summaryHeaders())); err != nil {
		return err
	}
	for i, r := range results {
		row := []interface{}{r.Setup, string(r.Group), r.ID}
		for _, name := range model.ParamOrder {
			row = append(row, r.Parameters[name])
		}
		row = append(row,
			r.Objective, r.Converged, r.Evaluations,
			r.InfeasibleEvaluations, r.FlaggedEvaluations, r.Duration.Seconds())
		if err := writeRow(f, summarySheet, i+2, row); err != nil {
			return err
		}
	}
	return nil
}

func writeResidualsSheet(f *excelize.File, results []*calibration.RunResult) error {
	if _, err := f.NewSheet(residualsSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", residualsSheet, err)
	}
	headers := []interface{}{"setup", "group", "target", "model", "observed", "weight", "weighted"}
	if err := writeRow(f, residualsSheet, 1, headers); err != nil {
		return err
	}
	rowIdx := 2
	for _, r := range results {
		for _, res := range r.Residuals {
			row := []interface{}{
				r.Setup, string(r.Group), string(res.Name),
				res.Model, res.Target, res.Weight, res.Weighted,
			}
			if err := writeRow(f, residualsSheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

func writeHoursSheet(f *excelize.File, results []*calibration.RunResult) error {
	if _, err := f.NewSheet(hoursSheet); err != nil {
		return fmt.Errorf("create sheet %s: %w", hoursSheet, err)
	}
	headers := []interface{}{"setup", "group", "gender"}
	for _, ix := range model.AllIndices {
		headers = append(headers, string(ix))
	}
	if err := writeRow(f, hoursSheet, 1, headers); err != nil {
		return err
	}
	rowIdx := 2
	for _, r := range results {
		if r.Allocation == nil {
			continue
		}
		for _, entry := range []struct {
			gender model.Gender
			hours  map[model.Index]float64
		}{
			{model.Female, r.Allocation.HoursFemale},
			{model.Male, r.Allocation.HoursMale},
		} {
			row := []interface{}{r.Setup, string(r.Group), string(entry.gender)}
			for _, ix := range model.AllIndices {
				row = append(row, entry.hours[ix])
			}
			if err := writeRow(f, hoursSheet, rowIdx, row); err != nil {
				return err
			}
			rowIdx++
		}
	}
	return nil
}

// writeRow sets one row of cell values starting at column A.
func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return fmt.Errorf("cell name for row %d: %w", row, err)
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("write row %d of %s: %w", row, sheet, err)
	}
	return nil
}

func toAny(values []string) []interface{} {
	out := make([]interface{}, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
