package calibration

import (
	"fmt"
	"math"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

// ParameterVector is the ordered free parameter vector searched by the
// outer calibrator, together with the structurally pinned parameters of the
// active setup. Only the outer calibrator constructs new value slices
// between iterations; a vector is immutable during an equilibrium solve.
type ParameterVector struct {
	names   []model.ParamName
	initial []float64
	domains []model.Domain
	fixed   map[model.ParamName]float64
}

// NewParameterVector builds the free vector from initializer values,
// applying the setup's structural restrictions: under a no-subsistence
// setup the subsistence term is pinned to zero and removed from the search
// space even when the initializers carry a value for it.
func NewParameterVector(init map[model.ParamName]float64, setup Setup) (*ParameterVector, error) {
	domains := model.DefaultDomains()
	pv := &ParameterVector{fixed: make(map[model.ParamName]float64)}

	for _, name := range model.ParamOrder {
		if name == model.ParamSubsistence && !setup.SubsistenceFree {
			pv.fixed[name] = 0
			continue
		}
		value, ok := init[name]
		if !ok {
			return nil, fmt.Errorf("%w: missing initializer for %q", model.ErrInvalidParameters, name)
		}
		domain := domains[name]
		if math.IsNaN(value) || !domain.Contains(value) {
			return nil, fmt.Errorf("%w: initializer %s = %v outside [%v, %v]",
				model.ErrInvalidParameters, name, value, domain.Lower, domain.Upper)
		}
		pv.names = append(pv.names, name)
		pv.initial = append(pv.initial, value)
		pv.domains = append(pv.domains, domain)
	}
	return pv, nil
}

// Names returns the free parameter names in vector order.
func (pv *ParameterVector) Names() []model.ParamName {
	return append([]model.ParamName(nil), pv.names...)
}

// Initial returns the initializing values in vector order.
func (pv *ParameterVector) Initial() []float64 {
	return append([]float64(nil), pv.initial...)
}

// Bounds returns the per-coordinate box constraints in vector order.
func (pv *ParameterVector) Bounds() (lower, upper []float64) {
	lower = make([]float64, len(pv.domains))
	upper = make([]float64, len(pv.domains))
	for i, d := range pv.domains {
		lower[i], upper[i] = d.Lower, d.Upper
	}
	return lower, upper
}

// ModelParameters combines a candidate value slice with the pinned
// parameters into a full model parameter set.
func (pv *ParameterVector) ModelParameters(x []float64) (model.Parameters, error) {
	if len(x) != len(pv.names) {
		return model.Parameters{}, fmt.Errorf("%w: candidate has %d values, vector has %d",
			model.ErrInvalidParameters, len(x), len(pv.names))
	}
	values := make(map[model.ParamName]float64, len(model.ParamOrder))
	for name, v := range pv.fixed {
		values[name] = v
	}
	for i, name := range pv.names {
		values[name] = x[i]
	}
	return model.FromValues(values)
}

// ValueMap folds a candidate slice back into a name-keyed map including the
// pinned parameters, for reporting and for adaptive initializer carry-over.
func (pv *ParameterVector) ValueMap(x []float64) map[model.ParamName]float64 {
	values := make(map[model.ParamName]float64, len(pv.names)+len(pv.fixed))
	for name, v := range pv.fixed {
		values[name] = v
	}
	for i, name := range pv.names {
		if i < len(x) {
			values[name] = x[i]
		}
	}
	return values
}
