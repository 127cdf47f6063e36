package model

import (
	"fmt"
	"math"
)

// BudgetTolerance is the numerical tolerance on the time-budget identity:
// allocation shares plus leisure must sum to the time endowment within it.
const BudgetTolerance = 1e-6

// Allocation is the model's endogenous equilibrium solution for one
// candidate parameter set: the solved point, the per-gender time
// allocations by index, and the implied subsistence consumption share.
type Allocation struct {
	Point Point `json:"point"`

	// HoursFemale and HoursMale map every index, including leisure, to the
	// gender's allocated time share.
	HoursFemale map[Index]float64 `json:"hours_female"`
	HoursMale   map[Index]float64 `json:"hours_male"`

	// SubsistenceShare is the implied subsistence consumption share gamma.
	SubsistenceShare float64 `json:"gamma"`

	// Converged is false when the equilibrium solver exhausted its
	// iteration budget and returned its best available point. Downstream
	// moment evaluation still proceeds, but the run is flagged.
	Converged bool `json:"converged"`
	// Iterations is the number of solver iterations spent.
	Iterations int `json:"iterations"`
	// ResidualNorm is the equilibrium condition norm at the point.
	ResidualNorm float64 `json:"residual_norm"`
}

// Allocate evaluates all time-allocation controls and the subsistence share
// at a point. It does not assess whether the point is an equilibrium; the
// caller obtains the point from the equilibrium solver.
func (m *Model) Allocate(pt Point) *Allocation {
	alloc := &Allocation{
		Point:       pt,
		HoursFemale: make(map[Index]float64, len(AllIndices)),
		HoursMale:   make(map[Index]float64, len(AllIndices)),
	}
	for _, ix := range AllIndices {
		alloc.HoursFemale[ix] = m.TimeAllocationControl(Female, ix, pt)
		alloc.HoursMale[ix] = m.TimeAllocationControl(Male, ix, pt)
	}
	alloc.SubsistenceShare = m.SubsistenceShare(pt)
	return alloc
}

// Validate checks the economic feasibility invariants of an allocation:
// non-negative shares, the exact time-budget identity per gender, and
// schooling inside the working-life horizon.
func (a *Allocation) Validate(c Constants) error {
	if a.Point.Tw <= 0 || math.IsNaN(a.Point.Tw) {
		return fmt.Errorf("%w: wage ratio %v not positive", ErrInfeasibleAllocation, a.Point.Tw)
	}
	for s, bound := range map[string]float64{"sf": a.Point.Sf, "sm": a.Point.Sm} {
		if bound < 0 || bound > c.T || math.IsNaN(bound) {
			return fmt.Errorf("%w: schooling %s = %v outside [0, %v]", ErrInfeasibleAllocation, s, bound, c.T)
		}
	}

	for gender, hours := range map[Gender]map[Index]float64{Female: a.HoursFemale, Male: a.HoursMale} {
		endowment := c.TimeEndowmentF
		if gender == Male {
			endowment = c.TimeEndowmentM
		}
		total := 0.0
		for _, ix := range AllIndices {
			v := hours[ix]
			if math.IsNaN(v) || v < -BudgetTolerance {
				return fmt.Errorf("%w: L%s_%s = %v is negative", ErrInfeasibleAllocation, gender, ix, v)
			}
			total += v
		}
		if math.Abs(total-endowment) > BudgetTolerance {
			return fmt.Errorf("%w: gender %s time budget %v deviates from endowment %v",
				ErrInfeasibleAllocation, gender, total, endowment)
		}
	}

	if math.IsNaN(a.SubsistenceShare) || a.SubsistenceShare < 0 || a.SubsistenceShare >= 1 {
		return fmt.Errorf("%w: subsistence share %v outside [0, 1)", ErrInfeasibleAllocation, a.SubsistenceShare)
	}
	return nil
}
