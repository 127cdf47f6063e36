package calibration

import (
	"errors"
	"fmt"
)

// ErrUnknownSetup indicates a setup name outside the registry. It is fatal
// and raised before any solver work begins.
var ErrUnknownSetup = errors.New("calibration: unknown setup")

// SchoolingTreatment selects how a setup targets schooling.
type SchoolingTreatment string

const (
	// SchoolingRelative targets schooling years weighted by the inverse
	// life expectancy (the default weighting).
	SchoolingRelative SchoolingTreatment = "rel-schooling"
	// SchoolingAbsolute targets schooling years with unit weight.
	SchoolingAbsolute SchoolingTreatment = "abs-schooling"
	// SchoolingExcluded drops the schooling targets entirely.
	SchoolingExcluded SchoolingTreatment = "no-schooling"
)

// Weights applied by the "scl-" setup variants.
const (
	scaledWageWeight   = 100
	scaledIncomeWeight = 100
)

// Setup is one named calibration configuration: which targets are included,
// how residuals are weighted, and which structural restrictions bind the
// free parameters. Setups are pure data; the registry holds no executable
// configuration.
type Setup struct {
	Name string `json:"name"`

	// Schooling selects the schooling target treatment.
	Schooling SchoolingTreatment `json:"schooling"`
	// SchoolingUnitWeight reweights the schooling targets to one. It holds
	// only for the absolute treatments without the subsistence restriction;
	// the no-subsistence absolute variants keep the default 1/T weight.
	SchoolingUnitWeight bool `json:"schooling_unit_weight"`
	// IncludeWages keeps the wage ratio target.
	IncludeWages bool `json:"include_wages"`
	// WageWeight is the wage ratio target weight when included.
	WageWeight float64 `json:"wage_weight"`
	// SubsistenceFree keeps the subsistence term among the calibrated
	// parameters; when false the term is pinned to zero ("no-subsistence").
	SubsistenceFree bool `json:"subsistence_free"`
	// GammaWeight is the subsistence share target weight.
	GammaWeight float64 `json:"gamma_weight"`
}

// variant describes one of the seven modifier combinations applied to each
// schooling treatment.
type variant struct {
	suffix          string
	subsistenceFree bool
	unitSchooling   bool
	includeWages    bool
	wageWeight      float64
	gammaWeight     float64
}

var variants = []variant{
	{suffix: "", subsistenceFree: true, unitSchooling: true, includeWages: true, wageWeight: 1, gammaWeight: 1},
	{suffix: "-no-subsistence", subsistenceFree: false, includeWages: true, wageWeight: 1, gammaWeight: 1},
	{suffix: "-no-subsistence-no-wages", subsistenceFree: false, includeWages: false, wageWeight: 1, gammaWeight: 1},
	{suffix: "-no-subsistence-scl-wages", subsistenceFree: false, includeWages: true, wageWeight: scaledWageWeight, gammaWeight: 1},
	{suffix: "-no-wages", subsistenceFree: true, unitSchooling: true, includeWages: false, wageWeight: 1, gammaWeight: 1},
	{suffix: "-scl-wages", subsistenceFree: true, unitSchooling: true, includeWages: true, wageWeight: scaledWageWeight, gammaWeight: 1},
	{suffix: "-scl-wages-scl-income", subsistenceFree: true, unitSchooling: true, includeWages: true, wageWeight: scaledWageWeight, gammaWeight: scaledIncomeWeight},
}

// Setups returns the full setup registry in canonical order: the three
// schooling treatments crossed with the seven weighting and restriction
// variants.
func Setups() []Setup {
	treatments := []SchoolingTreatment{SchoolingAbsolute, SchoolingExcluded, SchoolingRelative}
	setups := make([]Setup, 0, len(treatments)*len(variants))
	for _, treatment := range treatments {
		for _, v := range variants {
			setups = append(setups, Setup{
				Name:                string(treatment) + v.suffix,
				Schooling:           treatment,
				SchoolingUnitWeight: treatment == SchoolingAbsolute && v.unitSchooling,
				IncludeWages:        v.includeWages,
				WageWeight:          v.wageWeight,
				SubsistenceFree:     v.subsistenceFree,
				GammaWeight:         v.gammaWeight,
			})
		}
	}
	return setups
}

// SetupNames returns the registry's setup names in canonical order.
func SetupNames() []string {
	setups := Setups()
	names := make([]string, len(setups))
	for i, s := range setups {
		names[i] = s.Name
	}
	return names
}

// LookupSetup resolves a setup by name.
func LookupSetup(name string) (Setup, error) {
	for _, s := range Setups() {
		if s.Name == name {
			return s, nil
		}
	}
	return Setup{}, fmt.Errorf("%w: %q", ErrUnknownSetup, name)
}

// ApplyTargets specializes a default target set to the setup: schooling
// targets are reweighted or dropped, the wage target is dropped or
// reweighted, and the subsistence share target takes the setup's weight.
func (s Setup) ApplyTargets(ts TargetSet) TargetSet {
	switch s.Schooling {
	case SchoolingAbsolute:
		if s.SchoolingUnitWeight {
			ts = ts.reweighted(TargetSchoolingF, 1).reweighted(TargetSchoolingM, 1)
		}
	case SchoolingExcluded:
		ts = ts.without(TargetSchoolingF).without(TargetSchoolingM)
	}
	if !s.IncludeWages {
		ts = ts.without(TargetWageRatio)
	} else if s.WageWeight != 1 {
		ts = ts.reweighted(TargetWageRatio, s.WageWeight)
	}
	if s.GammaWeight != 1 {
		ts = ts.reweighted(TargetSubsistence, s.GammaWeight)
	}
	return ts
}
