package calibration

import (
	"fmt"
	"math"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// InfeasiblePenalty is the finite objective value assigned to candidate
// parameter vectors without a feasible equilibrium. It dominates any
// attainable weighted sum of squared residuals so the outer search backs
// away from the infeasible region without terminating.
const InfeasiblePenalty = 1e10

// Residual is one target's signed, weighted model-minus-target difference.
type Residual struct {
	Name     TargetName `json:"name"`
	Model    float64    `json:"model"`
	Target   float64    `json:"target"`
	Weight   float64    `json:"weight"`
	Weighted float64    `json:"weighted"`
}

// moment maps an equilibrium allocation to one named statistic using the
// fixed, setup-independent mapping. Targets not in this table are a
// configuration error.
func moment(name TargetName, alloc *model.Allocation) (float64, error) {
	hoursRatio := func(over, under model.Index) float64 {
		return alloc.HoursFemale[over] / alloc.HoursFemale[under]
	}
	switch name {
	case TargetLfArAh:
		return hoursRatio(model.IndexAr, model.IndexAh), nil
	case TargetLfMrMh:
		return hoursRatio(model.IndexMr, model.IndexMh), nil
	case TargetLfSrSh:
		return hoursRatio(model.IndexSr, model.IndexSh), nil
	case TargetLfArSr:
		return hoursRatio(model.IndexAr, model.IndexSr), nil
	case TargetLfMrSr:
		return hoursRatio(model.IndexMr, model.IndexSr), nil
	case TargetLeisureF:
		return alloc.HoursFemale[model.IndexLeisure], nil
	case TargetSchoolingF:
		return alloc.Point.Sf, nil
	case TargetSchoolingM:
		return alloc.Point.Sm, nil
	case TargetWageRatio:
		return alloc.Point.Tw, nil
	case TargetSubsistence:
		return alloc.SubsistenceShare, nil
	}
	return 0, fmt.Errorf("%w: no moment mapping for %q", ErrInvalidTargets, name)
}

// EvaluateMoments computes the weighted residual vector for an allocation.
// The vector preserves the target set's order; targets excluded by the
// active setup are simply absent and contribute nothing.
func EvaluateMoments(alloc *model.Allocation, ts TargetSet) ([]Residual, error) {
	residuals := make([]Residual, 0, ts.Len())
	for _, t := range ts.targets {
		value, err := moment(t.Name, alloc)
		if err != nil {
			return nil, err
		}
		residuals = append(residuals, Residual{
			Name:     t.Name,
			Model:    value,
			Target:   t.Value,
			Weight:   t.Weight,
			Weighted: t.Weight * (value - t.Value),
		})
	}
	return residuals, nil
}

// SumOfSquares folds a residual vector into the outer calibrator's scalar
// objective. Non-finite residuals collapse to the infeasibility penalty.
func SumOfSquares(residuals []Residual) float64 {
	sum := 0.0
	for _, r := range residuals {
		sum += r.Weighted * r.Weighted
	}
	if math.IsNaN(sum) || math.IsInf(sum, 0) {
		return InfeasiblePenalty
	}
	return sum
}
