// Package exporter persists calibration results: one JSON record per run,
// a batch summary CSV, and an Excel workbook with summary and residual
// sheets.
package exporter
