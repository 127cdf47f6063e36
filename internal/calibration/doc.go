// Package calibration fits the structural model's free parameters so that
// model-implied statistics match empirical targets, independently per
// calibration setup and income group.
//
// The fitting is a nested optimization. The outer layer is a derivative-free
// Nelder-Mead search over the free parameter vector; its scalar objective is
// the weighted sum of squared residuals between targets and model moments.
// Every candidate parameter vector is handed to the inner equilibrium solver
// (package solver driving the conditions of package model); candidates
// without a feasible equilibrium receive a large finite penalty so the outer
// search keeps exploring instead of aborting.
//
// # Structure
//
//   - targets.go: named empirical targets with per-setup error weights
//   - moments.go: allocation-to-statistic mapping and residual evaluation
//   - setups.go: the calibration setup table (target inclusion, weighting,
//     structural restrictions), pure data
//   - params.go: the ordered free parameter vector with box domains
//   - neldermead.go: the derivative-free outer search
//   - run.go: per (setup, income group) calibration runs, adaptive
//     warm-start carry-over, and fan-out across income groups
package calibration
