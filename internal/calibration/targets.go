package calibration

import (
	"errors"
	"fmt"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// ErrInvalidTargets indicates malformed target data. It is fatal and raised
// before any solver work begins.
var ErrInvalidTargets = errors.New("calibration: invalid targets")

// TargetName names an empirical statistic matched by the calibration.
type TargetName string

const (
	// Within-gender female labor allocation ratios, modern over traditional
	// within a sector and modern across sectors.
	TargetLfArAh TargetName = "Lf_ArAh"
	TargetLfMrMh TargetName = "Lf_MrMh"
	TargetLfSrSh TargetName = "Lf_SrSh"
	TargetLfArSr TargetName = "Lf_ArSr"
	TargetLfMrSr TargetName = "Lf_MrSr"

	// TargetLeisureF is the female leisure allocation share.
	TargetLeisureF TargetName = "Lf_l"
	// TargetSchoolingF and TargetSchoolingM are schooling years per gender.
	TargetSchoolingF TargetName = "sf"
	TargetSchoolingM TargetName = "sm"
	// TargetWageRatio is the female/male wage ratio.
	TargetWageRatio TargetName = "tw"
	// TargetSubsistence is the subsistence consumption share.
	TargetSubsistence TargetName = "gamma"
)

// Target is a named empirical statistic with a non-negative error weight.
// Targets are created once from preprocessed data and never mutated during
// a calibration run.
type Target struct {
	Name   TargetName `json:"name"`
	Value  float64    `json:"value"`
	Weight float64    `json:"weight"`
}

// TargetSet is an ordered collection of targets for one (setup, income
// group) pair. The order fixes the residual vector layout.
type TargetSet struct {
	targets []Target
}

// DefaultTargets assembles the full target set for an income group with the
// baseline weights: schooling targets are weighted by the inverse life
// expectancy, everything else by one. Setup rules reweight or drop entries
// afterwards.
func DefaultTargets(obs model.GroupObservations) (TargetSet, error) {
	if err := obs.Validate(); err != nil {
		return TargetSet{}, fmt.Errorf("%w: %v", ErrInvalidTargets, err)
	}
	schoolingWeight := 1 / obs.LifeExpectancy

	ratio := func(over, under model.Index) float64 {
		return obs.HoursFemale[over] / obs.HoursFemale[under]
	}
	return TargetSet{targets: []Target{
		{Name: TargetLfArAh, Value: ratio(model.IndexAr, model.IndexAh), Weight: 1},
		{Name: TargetLfMrMh, Value: ratio(model.IndexMr, model.IndexMh), Weight: 1},
		{Name: TargetLfSrSh, Value: ratio(model.IndexSr, model.IndexSh), Weight: 1},
		{Name: TargetLfArSr, Value: ratio(model.IndexAr, model.IndexSr), Weight: 1},
		{Name: TargetLfMrSr, Value: ratio(model.IndexMr, model.IndexSr), Weight: 1},
		{Name: TargetLeisureF, Value: obs.HoursFemale[model.IndexLeisure], Weight: 1},
		{Name: TargetSchoolingF, Value: obs.SchoolingFemale, Weight: schoolingWeight},
		{Name: TargetSchoolingM, Value: obs.SchoolingMale, Weight: schoolingWeight},
		{Name: TargetWageRatio, Value: obs.WageRatio, Weight: 1},
		{Name: TargetSubsistence, Value: obs.SubsistenceShare, Weight: 1},
	}}, nil
}

// Targets returns the ordered targets.
func (ts TargetSet) Targets() []Target {
	return append([]Target(nil), ts.targets...)
}

// Len returns the number of targets.
func (ts TargetSet) Len() int { return len(ts.targets) }

// Has reports whether the set includes a target.
func (ts TargetSet) Has(name TargetName) bool {
	for _, t := range ts.targets {
		if t.Name == name {
			return true
		}
	}
	return false
}

// Weight returns the weight of a target, or zero when excluded.
func (ts TargetSet) Weight(name TargetName) float64 {
	for _, t := range ts.targets {
		if t.Name == name {
			return t.Weight
		}
	}
	return 0
}

// without returns a copy of the set with a target removed. Removing an
// absent target is a no-op.
func (ts TargetSet) without(name TargetName) TargetSet {
	out := make([]Target, 0, len(ts.targets))
	for _, t := range ts.targets {
		if t.Name != name {
			out = append(out, t)
		}
	}
	return TargetSet{targets: out}
}

// reweighted returns a copy of the set with a target's weight replaced.
func (ts TargetSet) reweighted(name TargetName, weight float64) TargetSet {
	out := append([]Target(nil), ts.targets...)
	for i := range out {
		if out[i].Name == name {
			out[i].Weight = weight
		}
	}
	return TargetSet{targets: out}
}

// Validate checks the set's structural integrity.
func (ts TargetSet) Validate() error {
	if len(ts.targets) == 0 {
		return fmt.Errorf("%w: empty target set", ErrInvalidTargets)
	}
	seen := make(map[TargetName]bool, len(ts.targets))
	for _, t := range ts.targets {
		if seen[t.Name] {
			return fmt.Errorf("%w: duplicate target %q", ErrInvalidTargets, t.Name)
		}
		seen[t.Name] = true
		if t.Weight < 0 {
			return fmt.Errorf("%w: negative weight on %q", ErrInvalidTargets, t.Name)
		}
	}
	return nil
}
