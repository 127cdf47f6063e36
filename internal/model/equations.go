package model

import (
	"fmt"
	"math"
)

// Model binds fixed constants to one candidate parameter set and evaluates
// the closed-form equilibrium conditions. Values are immutable after New;
// the outer calibrator constructs a fresh Model per candidate.
type Model struct {
	Consts Constants
	Params Parameters

	// paths holds, per ordered production index pair, the resolution path
	// through the calibrated productivity tree, endpoints included.
	paths map[[2]Index][]Index
}

// New validates the inputs and precomputes the productivity resolution
// paths between all production index pairs.
func New(c Constants, p Parameters) (*Model, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	for _, ix := range AllIndices {
		if xi, ok := c.Xi[ix]; !ok || xi <= 0 || xi >= 1 {
			return nil, fmt.Errorf("%w: intensity share xi_%s outside (0, 1)", ErrInvalidObservations, ix)
		}
	}

	m := &Model{Consts: c, Params: p, paths: make(map[[2]Index][]Index)}
	if err := m.buildPaths(); err != nil {
		return nil, err
	}
	return m, nil
}

// buildPaths runs a breadth-first search from every production index over
// the calibrated productivity pairs. The five pairs form a spanning tree,
// so every ordered pair has exactly one resolution path.
func (m *Model) buildPaths() error {
	adjacent := make(map[Index][]Index)
	for _, pair := range productivityPairs {
		adjacent[pair[0]] = append(adjacent[pair[0]], pair[1])
		adjacent[pair[1]] = append(adjacent[pair[1]], pair[0])
	}

	for _, from := range ProductionIndices {
		parent := map[Index]Index{from: from}
		queue := []Index{from}
		for len(queue) > 0 {
			node := queue[0]
			queue = queue[1:]
			for _, next := range adjacent[node] {
				if _, seen := parent[next]; !seen {
					parent[next] = node
					queue = append(queue, next)
				}
			}
		}
		for _, to := range ProductionIndices {
			if _, ok := parent[to]; !ok {
				return fmt.Errorf("%w: no productivity path from %s to %s", ErrInvalidParameters, from, to)
			}
			var reversed []Index
			for at := to; at != from; at = parent[at] {
				reversed = append(reversed, at)
			}
			path := make([]Index, 0, len(reversed)+1)
			path = append(path, from)
			for i := len(reversed) - 1; i >= 0; i-- {
				path = append(path, reversed[i])
			}
			m.paths[[2]Index{from, to}] = path
		}
	}
	return nil
}

// hasProductivity reports whether the ordered pair carries a calibrated
// relative productivity directly (+1), inversely (-1), or not at all (0).
func (m *Model) hasProductivity(over, under Index) int {
	if _, ok := m.Params.Z[string(over)+string(under)]; ok {
		return 1
	}
	if _, ok := m.Params.Z[string(under)+string(over)]; ok {
		return -1
	}
	return 0
}

// WageBill returns the gender wage bill share for an allocation index; see
// equations B.4, C.18, and C.32. The female and male bills are complements.
func (m *Model) WageBill(g Gender, ix Index, pt Point) float64 {
	female := m.femaleWageBill(ix, pt)
	if g == Male {
		return 1 - female
	}
	return female
}

func (m *Model) femaleWageBill(ix Index, pt Point) float64 {
	c := m.Consts
	eta := c.Eta
	if ix.IsLeisure() {
		eta = c.EtaL
	}
	xi := c.Xi[ix]

	// Traditional labor is adjusted by the schooling premium; modern labor
	// is hired per effective unit, so no adjustment applies.
	adjustment := 1.0
	if !ix.Modern() {
		adjustment = c.discounter(pt.Sf) * c.humanCapital(pt.Sf) /
			(c.discounter(pt.Sm) * c.humanCapital(pt.Sm))
	}

	a := math.Pow(xi/(1-xi), -eta)
	return 1 / (1 + a*math.Pow(pt.Tw, eta-1)*math.Pow(adjustment, eta-1))
}

// RelativeConsumptionExpenditure returns the expenditure on `over` relative
// to `under` for production indices; see equations C.41, C.48, and C.49.
// Pairs without a calibrated productivity resolve by chaining along the
// unique path through the productivity tree.
func (m *Model) RelativeConsumptionExpenditure(over, under Index, pt Point) float64 {
	if over == under {
		return 1
	}
	switch m.hasProductivity(over, under) {
	case 1:
		return m.directRelativeExpenditure(over, under, pt)
	case -1:
		return 1 / m.directRelativeExpenditure(under, over, pt)
	}
	path := m.paths[[2]Index{over, under}]
	value := 1.0
	for i := 0; i+1 < len(path); i++ {
		value *= m.RelativeConsumptionExpenditure(path[i], path[i+1], pt)
	}
	return value
}

// directRelativeExpenditure evaluates the pairs with a calibrated
// productivity. Same-sector pairs compare technologies within a sector;
// cross-sector pairs additionally carry the sectoral substitution margin.
func (m *Model) directRelativeExpenditure(over, under Index, pt Point) float64 {
	c := m.Consts
	z := m.Params.Z[string(over)+string(under)]
	xiOver := c.Xi[over]
	xiUnder := c.Xi[under]
	iOver := m.femaleWageBill(over, pt)
	iUnder := m.femaleWageBill(under, pt)

	if over.Sector() == under.Sector() {
		return math.Pow(
			z*
				math.Pow(xiOver/xiUnder, c.Eta/(c.Eta-1))*
				math.Pow(iUnder/iOver, 1/(c.Eta-1))*
				c.discounter(pt.Sf)*c.humanCapital(pt.Sf)/c.discounter(0),
			c.Sigma-1,
		)
	}

	overConj := m.RelativeConsumptionExpenditure(over, over.Conjugate(), pt)
	underConj := m.RelativeConsumptionExpenditure(under, under.Conjugate(), pt)
	return math.Pow(z, c.Epsilon-1) *
		math.Pow(
			math.Pow(xiOver/xiUnder, c.Eta/(c.Eta-1))*
				math.Pow(iOver/iUnder, 1/(1-c.Eta)),
			c.Epsilon-1,
		) *
		math.Pow(1+1/underConj, (c.Sigma-c.Epsilon)/(c.Sigma-1)) *
		math.Pow(1+1/overConj, (c.Epsilon-c.Sigma)/(c.Sigma-1))
}

// SectoralExpenditureShare returns the share of a sector's expenditure in
// total commodity expenditure; see equation C.52. The shares sum to one
// across sectors.
func (m *Model) SectoralExpenditureShare(sector Sector, pt Point) float64 {
	own := m.RelativeConsumptionExpenditure(MakeIndex(sector, TechModern), MakeIndex(sector, TechTraditional), pt)
	a := own / (1 + own)

	sum := 0.0
	for _, s := range Sectors {
		within := m.RelativeConsumptionExpenditure(MakeIndex(s, TechModern), MakeIndex(s, TechTraditional), pt)
		across := m.RelativeConsumptionExpenditure(MakeIndex(sector, TechModern), MakeIndex(s, TechTraditional), pt)
		sum += a * (1 + within) / across
	}
	return 1 / sum
}

// RelativeExpenditure extends RelativeConsumptionExpenditure to leisure;
// see equation C.54. Leisure expenditures carry the non-subsistence
// consumption share and the leisure preference scale.
func (m *Model) RelativeExpenditure(over, under Index, pt Point) float64 {
	if over == under {
		return 1
	}
	if under.IsLeisure() {
		return 1 / m.RelativeExpenditure(under, over, pt)
	}
	if over.IsLeisure() {
		if under.Modern() {
			nonSub := m.NonSubsistenceShare(pt)
			share := m.SectoralExpenditureShare(under.Sector(), pt)
			conj := m.RelativeConsumptionExpenditure(under.Conjugate(), under, pt)
			return m.Params.Varphi * nonSub / share * (1 + conj)
		}
		modern := under.Conjugate()
		return m.RelativeExpenditure(IndexLeisure, modern, pt) *
			m.RelativeExpenditure(modern, under, pt)
	}
	return m.RelativeConsumptionExpenditure(over, under, pt)
}

// schoolingDiscount is the common factor d(sf)/d(0) * delta(0)/delta(sf)
// converting modern flow allocations into lifetime units.
func (m *Model) schoolingDiscount(pt Point) float64 {
	c := m.Consts
	return c.discounter(pt.Sf) / c.discounter(0) * c.workingLife(0) / c.workingLife(pt.Sf)
}

// LaborRatio returns the gender labor allocation on `over` relative to
// `under`; see equations D.9 and D.14.
func (m *Model) LaborRatio(g Gender, over, under Index, pt Point) float64 {
	modernGap := 0
	if over.Modern() {
		modernGap++
	}
	if under.Modern() {
		modernGap--
	}
	return m.RelativeExpenditure(over, under, pt) *
		m.WageBill(g, over, pt) / m.WageBill(g, under, pt) *
		math.Pow(m.schoolingDiscount(pt), float64(modernGap))
}

// FlowTimeAllocationRatio extends LaborRatio to leisure; see equations D.10
// and D.15.
func (m *Model) FlowTimeAllocationRatio(g Gender, over, under Index, pt Point) float64 {
	if over == under {
		return 1
	}
	if under.IsLeisure() {
		return 1 / m.FlowTimeAllocationRatio(g, under, over, pt)
	}
	if over.IsLeisure() {
		exponent := 0.0
		if under.Modern() {
			exponent = -1
		}
		return m.RelativeExpenditure(over, under, pt) *
			m.WageBill(g, over, pt) / m.WageBill(g, under, pt) *
			math.Pow(m.schoolingDiscount(pt), exponent)
	}
	return m.LaborRatio(g, over, under, pt)
}

// AggregateLaborRatio sums the production labor ratios against a fixed
// reference index; see equations D.11 and D.16.
func (m *Model) AggregateLaborRatio(g Gender, reference Index, pt Point) float64 {
	sum := 0.0
	for _, ix := range ProductionIndices {
		sum += m.FlowTimeAllocationRatio(g, ix, reference, pt)
	}
	return sum
}

// aggregateFlowRatio additionally includes leisure; see equations D.12 and
// D.17. The reciprocal gives the reference index's allocation share.
func (m *Model) aggregateFlowRatio(g Gender, reference Index, pt Point) float64 {
	return m.AggregateLaborRatio(g, reference, pt) +
		m.FlowTimeAllocationRatio(g, IndexLeisure, reference, pt)
}

// TimeAllocationControl returns the gender time allocated to an index; see
// equations D.12 and D.18. Controls sum to the gender's time endowment.
func (m *Model) TimeAllocationControl(g Gender, ix Index, pt Point) float64 {
	endowment := m.Consts.TimeEndowmentF
	if g == Male {
		endowment = m.Consts.TimeEndowmentM
	}
	return endowment / m.aggregateFlowRatio(g, ix, pt)
}

// ModernProductionAllocation sums the gender's modern-technology controls;
// see equation C.12.
func (m *Model) ModernProductionAllocation(g Gender, pt Point) float64 {
	sum := 0.0
	for _, s := range Sectors {
		sum += m.TimeAllocationControl(g, MakeIndex(s, TechModern), pt)
	}
	return sum
}

// TotalTimeAllocation sums all controls including leisure. At any
// evaluation point it equals the gender's time endowment up to floating
// point error, because allocation ratios resolve through a common tree.
func (m *Model) TotalTimeAllocation(g Gender, pt Point) float64 {
	sum := m.TimeAllocationControl(g, IndexLeisure, pt)
	for _, ix := range ProductionIndices {
		sum += m.TimeAllocationControl(g, ix, pt)
	}
	return sum
}

// TotalWageBill is the female share of the household's total labor income;
// see equation D.19.
func (m *Model) TotalWageBill(pt Point) float64 {
	c := m.Consts
	lf := m.TotalTimeAllocation(Female, pt)
	lm := m.TotalTimeAllocation(Male, pt)
	return 1 / (1 + lm/lf*
		c.discounter(pt.Sm)/c.discounter(pt.Sf)*
		c.humanCapital(pt.Sm)/c.humanCapital(pt.Sf)/pt.Tw)
}

// baseSector is the sector whose modern productivity is normalized; the
// subsistence calculations anchor on its traditional technology.
const baseSector = SectorServices

// implicitTraditionalCoefficient is the implicit female traditional
// technology coefficient of the base sector; see equation F.1.
func (m *Model) implicitTraditionalCoefficient(pt Point) float64 {
	c := m.Consts
	traditional := MakeIndex(baseSector, TechTraditional)
	modern := MakeIndex(baseSector, TechModern)

	expenditure := m.RelativeConsumptionExpenditure(modern, traditional, pt)
	share := m.SectoralExpenditureShare(baseSector, pt)
	bill := m.femaleWageBill(modern, pt)
	ratio := m.LaborRatio(Female, modern, traditional, pt)

	return math.Pow(1+expenditure, c.Sigma/(c.Sigma-1)) *
		math.Pow(share, c.Epsilon/(1-c.Epsilon)) *
		c.ZSr *
		math.Pow(c.Xi[modern]/bill, c.Eta/(c.Eta-1)) *
		c.humanCapital(pt.Sf) *
		c.workingLife(pt.Sf) *
		ratio
}

// baseTraditionalLabor is the female traditional labor control of the base
// sector solved jointly with the subsistence requirement; see equation F.4.
func (m *Model) baseTraditionalLabor(pt Point) float64 {
	traditional := MakeIndex(baseSector, TechTraditional)
	modern := MakeIndex(baseSector, TechModern)

	expenditure := m.RelativeConsumptionExpenditure(modern, traditional, pt)
	share := m.SectoralExpenditureShare(baseSector, pt)
	leisureBill := m.femaleWageBill(IndexLeisure, pt)
	traditionalBill := m.femaleWageBill(traditional, pt)

	alpha := m.Params.Varphi * (1 + expenditure) / share * leisureBill / traditionalBill
	coefficient := m.implicitTraditionalCoefficient(pt)
	aggregate := m.AggregateLaborRatio(Female, traditional, pt)

	return (m.Consts.TimeEndowmentF + alpha*m.Params.HatC/coefficient) / (aggregate + alpha)
}

// SubsistenceShare is the subsistence consumption share gamma; see
// equation F.5. It is sector independent.
func (m *Model) SubsistenceShare(pt Point) float64 {
	if m.Params.HatC == 0 {
		return 0
	}
	return m.Params.HatC / m.implicitTraditionalCoefficient(pt) / m.baseTraditionalLabor(pt)
}

// NonSubsistenceShare is 1 - SubsistenceShare.
func (m *Model) NonSubsistenceShare(pt Point) float64 {
	return 1 - m.SubsistenceShare(pt)
}

// referenceIndex anchors the reduced equilibrium system; the conditions are
// stated at traditional services.
var referenceIndex = MakeIndex(baseSector, TechTraditional)

// ReducedConstraint is the household budget condition stated at the
// reference index; see equation D.23.
func (m *Model) ReducedConstraint(pt Point) float64 {
	sumExpenditure := 0.0
	for _, ix := range ProductionIndices {
		sumExpenditure += m.RelativeExpenditure(ix, referenceIndex, pt)
	}
	bill := m.femaleWageBill(referenceIndex, pt)
	totalBill := m.TotalWageBill(pt)
	return m.aggregateFlowRatio(Female, referenceIndex, pt) - sumExpenditure*bill/totalBill
}

// schoolingCostPrime is the marginal lifetime schooling cost dW(s) of a
// gender; see equation C.1.
func (m *Model) schoolingCostPrime(g Gender, s float64) float64 {
	beta := m.Params.BetaF
	if g == Male {
		beta = m.Params.BetaF / m.Consts.TBeta
	}
	return -beta * math.Exp(-m.Consts.Rho*s)
}

// SchoolingCondition is the gender's schooling first-order condition stated
// at the reference index; see equations E.2 and E.3.
func (m *Model) SchoolingCondition(g Gender, pt Point) float64 {
	c := m.Consts
	s := pt.Sf
	if g == Male {
		s = pt.Sm
	}
	growth := c.humanCapitalPrime(s)/c.humanCapital(s) + c.discounterPrime(s)/c.discounter(s)

	modern := m.ModernProductionAllocation(g, pt)
	control := m.TimeAllocationControl(g, referenceIndex, pt)
	share := m.SectoralExpenditureShare(baseSector, pt)
	conj := m.RelativeConsumptionExpenditure(referenceIndex, referenceIndex, pt)
	bill := m.WageBill(g, referenceIndex, pt)

	return m.schoolingCostPrime(g, s) +
		modern/control*growth/m.NonSubsistenceShare(pt)*
			share/(1+conj)*bill*c.workingLife(0)
}

// SchoolingConditionRatio relates the two gender schooling conditions; see
// equation E.5.
func (m *Model) SchoolingConditionRatio(pt Point) float64 {
	c := m.Consts
	g := func(s float64) float64 {
		return (c.humanCapitalPrime(s)/c.humanCapital(s) +
			c.discounterPrime(s)/c.discounter(s)) *
			c.discounter(s) * c.humanCapital(s)
	}
	mf := m.ModernProductionAllocation(Female, pt)
	mm := m.ModernProductionAllocation(Male, pt)
	return m.schoolingCostPrime(Female, pt.Sf)/m.schoolingCostPrime(Male, pt.Sm) -
		mf/mm*pt.Tw*g(pt.Sf)/g(pt.Sm)
}

// FOC evaluates the reduced three-equation equilibrium system at a point:
// the reduced budget constraint, the summed gender schooling conditions,
// and the schooling condition ratio. A zero of FOC is an equilibrium.
func (m *Model) FOC(pt Point) [3]float64 {
	return [3]float64{
		m.ReducedConstraint(pt),
		m.SchoolingCondition(Female, pt) + m.SchoolingCondition(Male, pt),
		m.SchoolingConditionRatio(pt),
	}
}

// System adapts FOC to the solver's slice-based signature.
func (m *Model) System() func(y []float64) ([]float64, error) {
	return func(y []float64) ([]float64, error) {
		if len(y) != 3 {
			return nil, fmt.Errorf("%w: equilibrium system expects 3 unknowns, got %d", ErrInvalidParameters, len(y))
		}
		foc := m.FOC(PointFromVector(y))
		return foc[:], nil
	}
}
