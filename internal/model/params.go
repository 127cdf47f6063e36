package model

import (
	"fmt"
	"math"
)

// ParamName names a calibrated model parameter. The names match the
// variable names of the parameter and initializer input files.
type ParamName string

const (
	// ParamSubsistence is the adjusted subsistence consumption term hat_c.
	ParamSubsistence ParamName = "hat_c"
	// ParamLeisureScale is the leisure preference scale varphi.
	ParamLeisureScale ParamName = "varphi"
	// ParamSchoolingCost is the female schooling cost beta_f. The male cost
	// is implied by the fixed relative cost tbeta.
	ParamSchoolingCost ParamName = "beta_f"

	// Relative productivity parameters. The five pairs form a spanning tree
	// over the six sector-technology indices, so every relative expenditure
	// resolves through them.
	ParamZArAh ParamName = "Z_ArAh"
	ParamZMrMh ParamName = "Z_MrMh"
	ParamZSrSh ParamName = "Z_SrSh"
	ParamZArSr ParamName = "Z_ArSr"
	ParamZMrSr ParamName = "Z_MrSr"
)

// ParamOrder is the canonical ordering of calibrated parameters, used for
// the outer calibrator's vector layout and for reporting.
var ParamOrder = []ParamName{
	ParamSubsistence,
	ParamLeisureScale,
	ParamSchoolingCost,
	ParamZArAh,
	ParamZMrMh,
	ParamZSrSh,
	ParamZArSr,
	ParamZMrSr,
}

// productivityPairs lists the (over, under) index pairs carrying a
// calibrated relative productivity, in ParamOrder order.
var productivityPairs = [][2]Index{
	{IndexAr, IndexAh},
	{IndexMr, IndexMh},
	{IndexSr, IndexSh},
	{IndexAr, IndexSr},
	{IndexMr, IndexSr},
}

// ZPairName returns the parameter name of the relative productivity between
// two indices, e.g. ZPairName(Ar, Ah) == "Z_ArAh".
func ZPairName(over, under Index) ParamName {
	return ParamName("Z_" + string(over) + string(under))
}

// Domain is the box constraint of a calibrated parameter. An infinite Upper
// means the parameter is unbounded above.
type Domain struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies in the domain.
func (d Domain) Contains(v float64) bool { return v >= d.Lower && v <= d.Upper }

// Clamp projects v into the domain.
func (d Domain) Clamp(v float64) float64 {
	return math.Min(math.Max(v, d.Lower), d.Upper)
}

// DefaultDomains returns the declared domain of every calibrated parameter:
// the subsistence term is non-negative, everything else is bounded away from
// zero to keep the equilibrium equations well defined.
func DefaultDomains() map[ParamName]Domain {
	domains := make(map[ParamName]Domain, len(ParamOrder))
	for _, name := range ParamOrder {
		lower := 1e-3
		if name == ParamSubsistence {
			lower = 0
		}
		domains[name] = Domain{Lower: lower, Upper: math.Inf(1)}
	}
	return domains
}

// Parameters holds one candidate value per calibrated parameter. A
// Parameters value is immutable during a single equilibrium solve; only the
// outer calibrator constructs new candidates between iterations.
type Parameters struct {
	// HatC is the adjusted subsistence term. Structural restrictions may pin
	// it to zero ("no-subsistence" setups).
	HatC float64 `json:"hat_c"`
	// Varphi is the leisure preference scale.
	Varphi float64 `json:"varphi"`
	// BetaF is the female schooling cost.
	BetaF float64 `json:"beta_f"`
	// Z maps a productivity pair such as "ArAh" to its relative level.
	Z map[string]float64 `json:"Z"`
}

// Value returns the parameter by name.
func (p Parameters) Value(name ParamName) (float64, error) {
	switch name {
	case ParamSubsistence:
		return p.HatC, nil
	case ParamLeisureScale:
		return p.Varphi, nil
	case ParamSchoolingCost:
		return p.BetaF, nil
	}
	if len(name) == 6 && name[:2] == "Z_" {
		if v, ok := p.Z[string(name[2:])]; ok {
			return v, nil
		}
	}
	return 0, fmt.Errorf("%w: unknown parameter %q", ErrInvalidParameters, name)
}

// Validate checks every parameter against its declared domain.
func (p Parameters) Validate() error {
	domains := DefaultDomains()
	for _, name := range ParamOrder {
		v, err := p.Value(name)
		if err != nil {
			return err
		}
		if math.IsNaN(v) || !domains[name].Contains(v) {
			return fmt.Errorf("%w: %s = %v outside [%v, %v]",
				ErrInvalidParameters, name, v, domains[name].Lower, domains[name].Upper)
		}
	}
	return nil
}

// FromValues builds Parameters from a name-keyed value map. Missing
// productivity pairs or preference parameters are an error.
func FromValues(values map[ParamName]float64) (Parameters, error) {
	p := Parameters{Z: make(map[string]float64, len(productivityPairs))}
	for _, name := range ParamOrder {
		v, ok := values[name]
		if !ok {
			return Parameters{}, fmt.Errorf("%w: missing parameter %q", ErrInvalidParameters, name)
		}
		switch name {
		case ParamSubsistence:
			p.HatC = v
		case ParamLeisureScale:
			p.Varphi = v
		case ParamSchoolingCost:
			p.BetaF = v
		default:
			p.Z[string(name)[2:]] = v
		}
	}
	return p, p.Validate()
}
