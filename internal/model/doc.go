// Package model implements the structural schooling-gap model with two
// production technologies (traditional and modern), three sectors
// (agriculture, manufacturing, and services), two genders, and endogenous
// schooling. Each household consists of a female and a male; modern
// production requires schooling and firms hire effective labor units.
//
// The package exposes the model's closed-form equilibrium conditions as a
// three-equation system in the endogenous vector (tw, sf, sm): the
// female/male wage ratio and the two gender schooling levels. Given a
// solution point, all time-allocation controls, the subsistence consumption
// share, and the implied moments follow in closed form.
//
// # Structure
//
//   - types.go: sector/technology indices, genders, income groups
//   - constants.go: fixed (non-calibrated) model constants per income group
//   - params.go: calibrated parameter set and canonical ordering
//   - input.go: empirical observation loading from the calibration input CSV
//   - equations.go: wage bills, relative expenditures, labor ratios,
//     time-allocation controls, and the first-order condition system
//   - allocation.go: equilibrium allocation record and feasibility checks
//
// All equation methods are pure functions of (Constants, Parameters) and an
// evaluation point; the package holds no mutable state, so a Model value may
// be shared freely across concurrent calibration runs.
package model
