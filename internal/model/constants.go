package model

import (
	"fmt"
	"math"
)

// GroupObservations holds the empirical statistics for one income group, as
// produced by the external data-preparation step. They seed both the fixed
// model constants and the calibration targets.
type GroupObservations struct {
	Group IncomeGroup `json:"group"`

	// LifeExpectancy is the group's life expectancy T in years.
	LifeExpectancy float64 `json:"T"`
	// RelativeSchoolingCost is the male-to-female schooling cost ratio tbeta.
	RelativeSchoolingCost float64 `json:"tbeta"`

	// Observed equilibrium statistics, also used as solver initializers.
	WageRatio       float64 `json:"tw"`
	SchoolingFemale float64 `json:"sf"`
	SchoolingMale   float64 `json:"sm"`
	// SubsistenceShare is the observed subsistence consumption share gamma.
	SubsistenceShare float64 `json:"gamma"`

	// HoursFemale and HoursMale are observed time-allocation shares per
	// index, including leisure. Shares are fractions of the unit endowment.
	HoursFemale map[Index]float64 `json:"hours_female"`
	HoursMale   map[Index]float64 `json:"hours_male"`
}

// Validate checks that the observations are complete and economically
// admissible before any solver work begins.
func (o GroupObservations) Validate() error {
	if !o.Group.Valid() {
		return fmt.Errorf("%w: unknown income group %q", ErrInvalidObservations, o.Group)
	}
	if o.LifeExpectancy <= 0 {
		return fmt.Errorf("%w: non-positive life expectancy %v", ErrInvalidObservations, o.LifeExpectancy)
	}
	if o.RelativeSchoolingCost <= 0 {
		return fmt.Errorf("%w: non-positive relative schooling cost %v", ErrInvalidObservations, o.RelativeSchoolingCost)
	}
	if o.WageRatio <= 0 {
		return fmt.Errorf("%w: non-positive wage ratio %v", ErrInvalidObservations, o.WageRatio)
	}
	if o.SchoolingFemale < 0 || o.SchoolingFemale >= o.LifeExpectancy {
		return fmt.Errorf("%w: female schooling %v outside [0, T)", ErrInvalidObservations, o.SchoolingFemale)
	}
	if o.SchoolingMale < 0 || o.SchoolingMale >= o.LifeExpectancy {
		return fmt.Errorf("%w: male schooling %v outside [0, T)", ErrInvalidObservations, o.SchoolingMale)
	}
	if o.SubsistenceShare < 0 || o.SubsistenceShare >= 1 {
		return fmt.Errorf("%w: subsistence share %v outside [0, 1)", ErrInvalidObservations, o.SubsistenceShare)
	}
	for _, ix := range AllIndices {
		for gender, hours := range map[Gender]map[Index]float64{Female: o.HoursFemale, Male: o.HoursMale} {
			v, ok := hours[ix]
			if !ok {
				return fmt.Errorf("%w: missing L%s_%s", ErrInvalidObservations, gender, ix)
			}
			if v <= 0 {
				return fmt.Errorf("%w: non-positive L%s_%s = %v", ErrInvalidObservations, gender, ix, v)
			}
		}
	}
	return nil
}

// Constants are the model inputs that are fixed during a calibration run.
// Preference and technology elasticities are common across income groups;
// life expectancy, the relative schooling cost, and the female intensity
// shares are group specific.
type Constants struct {
	// Eta is the gender substitutability of labor inputs.
	Eta float64 `json:"eta"`
	// EtaL is the gender substitutability of leisure.
	EtaL float64 `json:"eta_l"`
	// Epsilon is the sectoral output substitutability.
	Epsilon float64 `json:"epsilon"`
	// Sigma is the technological output substitutability.
	Sigma float64 `json:"sigma"`
	// Nu is the log human capital curvature.
	Nu float64 `json:"nu"`
	// Zeta is the log human capital scale.
	Zeta float64 `json:"zeta"`
	// Rho is the subjective discount rate.
	Rho float64 `json:"rho"`

	// TimeEndowmentF and TimeEndowmentM are the per-gender time endowments.
	TimeEndowmentF float64 `json:"Lf"`
	TimeEndowmentM float64 `json:"Lm"`

	// T is life expectancy, the upper bound of the schooling horizon.
	T float64 `json:"T"`
	// TBeta is the relative (male to female) schooling cost.
	TBeta float64 `json:"tbeta"`
	// ZSr normalizes modern services productivity.
	ZSr float64 `json:"Z_Sr"`

	// Xi holds the female intensity share per index, including leisure.
	Xi map[Index]float64 `json:"xi"`
}

// Default preference and technology constants, common to all income groups.
// Values follow the baseline parameterization of the underlying paper.
const (
	defaultEta     = 2.27
	defaultEtaL    = 2.27
	defaultEpsilon = 0.002
	defaultSigma   = 2.0
	defaultNu      = 0.58
	defaultZeta    = 0.32
	defaultRho     = 0.04
)

// FixedParameters optionally overrides the baseline preference and
// technology constants, as an externally supplied fixed-parameters record.
// Nil fields keep the baseline values.
type FixedParameters struct {
	Eta            *float64 `json:"eta,omitempty"`
	EtaL           *float64 `json:"eta_l,omitempty"`
	Epsilon        *float64 `json:"epsilon,omitempty"`
	Sigma          *float64 `json:"sigma,omitempty"`
	Nu             *float64 `json:"nu,omitempty"`
	Zeta           *float64 `json:"zeta,omitempty"`
	Rho            *float64 `json:"rho,omitempty"`
	TimeEndowmentF *float64 `json:"Lf,omitempty"`
	TimeEndowmentM *float64 `json:"Lm,omitempty"`
	ZSr            *float64 `json:"Z_Sr,omitempty"`
}

// Validate checks the overrides against their admissible ranges. The
// substitutabilities, scales, endowments, and the discount rate must be
// positive; the human capital curvature nu must stay inside (0, 1).
func (p FixedParameters) Validate() error {
	positive := map[string]*float64{
		"eta":     p.Eta,
		"eta_l":   p.EtaL,
		"epsilon": p.Epsilon,
		"sigma":   p.Sigma,
		"zeta":    p.Zeta,
		"rho":     p.Rho,
		"Lf":      p.TimeEndowmentF,
		"Lm":      p.TimeEndowmentM,
		"Z_Sr":    p.ZSr,
	}
	for name, v := range positive {
		if v != nil && *v <= 0 {
			return fmt.Errorf("%w: non-positive %s = %v", ErrInvalidParameters, name, *v)
		}
	}
	if p.Nu != nil && (*p.Nu <= 0 || *p.Nu >= 1) {
		return fmt.Errorf("%w: nu = %v outside (0, 1)", ErrInvalidParameters, *p.Nu)
	}
	return nil
}

func override(target *float64, v *float64) {
	if v != nil {
		*target = *v
	}
}

// NewConstants derives the fixed model constants for an income group using
// the baseline preference and technology values. The female intensity shares
// are backed out from the observed time allocations and the observed wage
// ratio and schooling levels:
//
//	txi = tw * d(sf)/d(sm) * H(sf)/H(sm) * (Lf_ip/Lm_ip)^(1/eta)
//	xi  = txi / (1 + txi)
//
// using the leisure substitutability for the leisure share.
func NewConstants(obs GroupObservations) (Constants, error) {
	return NewConstantsWith(obs, FixedParameters{})
}

// NewConstantsWith is NewConstants with an externally supplied
// fixed-parameters record overlaying the baseline constants.
func NewConstantsWith(obs GroupObservations, fixed FixedParameters) (Constants, error) {
	if err := obs.Validate(); err != nil {
		return Constants{}, err
	}
	if err := fixed.Validate(); err != nil {
		return Constants{}, err
	}

	c := Constants{
		Eta:            defaultEta,
		EtaL:           defaultEtaL,
		Epsilon:        defaultEpsilon,
		Sigma:          defaultSigma,
		Nu:             defaultNu,
		Zeta:           defaultZeta,
		Rho:            defaultRho,
		TimeEndowmentF: 1.0,
		TimeEndowmentM: 1.0,
		T:              obs.LifeExpectancy,
		TBeta:          obs.RelativeSchoolingCost,
		ZSr:            1.0,
		Xi:             make(map[Index]float64, len(AllIndices)),
	}
	override(&c.Eta, fixed.Eta)
	override(&c.EtaL, fixed.EtaL)
	override(&c.Epsilon, fixed.Epsilon)
	override(&c.Sigma, fixed.Sigma)
	override(&c.Nu, fixed.Nu)
	override(&c.Zeta, fixed.Zeta)
	override(&c.Rho, fixed.Rho)
	override(&c.TimeEndowmentF, fixed.TimeEndowmentF)
	override(&c.TimeEndowmentM, fixed.TimeEndowmentM)
	override(&c.ZSr, fixed.ZSr)

	td := c.discounter(obs.SchoolingFemale) / c.discounter(obs.SchoolingMale)
	tH := c.humanCapital(obs.SchoolingFemale) / c.humanCapital(obs.SchoolingMale)
	for _, ix := range AllIndices {
		eta := c.Eta
		if ix.IsLeisure() {
			eta = c.EtaL
		}
		tL := obs.HoursFemale[ix] / obs.HoursMale[ix]
		txi := obs.WageRatio * td * tH * math.Pow(tL, 1/eta)
		c.Xi[ix] = txi / (1 + txi)
	}

	return c, nil
}

// discounter is the working-life discounter d(s); see appendix section A.1.
func (c Constants) discounter(s float64) float64 {
	return 1/(-c.Rho)*math.Exp(-c.Rho*c.T) - 1/(-c.Rho)*math.Exp(-c.Rho*s)
}

// discounterPrime is d'(s).
func (c Constants) discounterPrime(s float64) float64 {
	return -math.Exp(-c.Rho * s)
}

// humanCapital is the human capital function H(s); see equation C.6.
func (c Constants) humanCapital(s float64) float64 {
	return math.Exp(c.Zeta / (1 - c.Nu) * math.Pow(s, 1-c.Nu))
}

// humanCapitalPrime is H'(s).
func (c Constants) humanCapitalPrime(s float64) float64 {
	return c.humanCapital(s) * c.Zeta * math.Pow(s, -c.Nu)
}

// workingLife is delta(s) = T - s.
func (c Constants) workingLife(s float64) float64 {
	return c.T - s
}
