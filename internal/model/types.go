package model

// Sector identifies one of the model's three production sectors.
type Sector byte

const (
	// SectorAgriculture is the agricultural sector.
	SectorAgriculture Sector = 'A'
	// SectorManufacturing is the manufacturing sector.
	SectorManufacturing Sector = 'M'
	// SectorServices is the services sector.
	SectorServices Sector = 'S'
)

// Sectors lists the production sectors in canonical order.
var Sectors = []Sector{SectorAgriculture, SectorManufacturing, SectorServices}

// Technology identifies a production technology. Traditional production
// employs raw labor; modern production employs schooled (effective) labor.
type Technology byte

const (
	// TechTraditional is the traditional (home) technology.
	TechTraditional Technology = 'h'
	// TechModern is the modern (schooling-intensive) technology.
	TechModern Technology = 'r'
)

// Technologies lists the production technologies in canonical order.
var Technologies = []Technology{TechTraditional, TechModern}

// Index identifies a time-allocation category: a sector-technology pair
// such as "Ar" (modern agriculture), or leisure "l".
type Index string

const (
	IndexAh Index = "Ah"
	IndexMh Index = "Mh"
	IndexSh Index = "Sh"
	IndexAr Index = "Ar"
	IndexMr Index = "Mr"
	IndexSr Index = "Sr"
	// IndexLeisure is the leisure allocation category.
	IndexLeisure Index = "l"
)

// ProductionIndices lists the six sector-technology pairs in canonical
// order (traditional first within each sector loop, matching the summation
// order of the equilibrium conditions).
var ProductionIndices = []Index{IndexAh, IndexAr, IndexMh, IndexMr, IndexSh, IndexSr}

// AllIndices lists the production indices followed by leisure.
var AllIndices = append(append([]Index{}, ProductionIndices...), IndexLeisure)

// IsLeisure reports whether the index is the leisure category.
func (ix Index) IsLeisure() bool { return ix == IndexLeisure }

// Modern reports whether the index refers to modern-technology production.
// Leisure is not modern.
func (ix Index) Modern() bool {
	return len(ix) == 2 && Technology(ix[1]) == TechModern
}

// Sector returns the index's sector. It must not be called on leisure.
func (ix Index) Sector() Sector { return Sector(ix[0]) }

// Conjugate returns the index of the other technology within the same
// sector, e.g. Ar for Ah. It must not be called on leisure.
func (ix Index) Conjugate() Index {
	if ix.Modern() {
		return Index([]byte{ix[0], byte(TechTraditional)})
	}
	return Index([]byte{ix[0], byte(TechModern)})
}

// MakeIndex builds a production index from a sector and technology.
func MakeIndex(s Sector, t Technology) Index {
	return Index([]byte{byte(s), byte(t)})
}

// Gender identifies a household member.
type Gender string

const (
	// Female gender tag, matching the "f" suffix of the input data columns.
	Female Gender = "f"
	// Male gender tag, matching the "m" suffix of the input data columns.
	Male Gender = "m"
)

// IncomeGroup is a discrete country classification over which calibration
// runs independently.
type IncomeGroup string

const (
	GroupLow    IncomeGroup = "low"
	GroupMiddle IncomeGroup = "middle"
	GroupHigh   IncomeGroup = "high"
	GroupAll    IncomeGroup = "all"
)

// IncomeGroups lists the income groups in the order they appear in the
// calibration input data.
var IncomeGroups = []IncomeGroup{GroupLow, GroupMiddle, GroupHigh, GroupAll}

// Valid reports whether g is a known income group.
func (g IncomeGroup) Valid() bool {
	switch g {
	case GroupLow, GroupMiddle, GroupHigh, GroupAll:
		return true
	}
	return false
}

// Point is an evaluation point of the equilibrium system: the female/male
// wage ratio and the two gender schooling levels.
type Point struct {
	Tw float64 `json:"tw"`
	Sf float64 `json:"sf"`
	Sm float64 `json:"sm"`
}

// Vector returns the point in the solver's slice layout (tw, sf, sm).
func (p Point) Vector() []float64 { return []float64{p.Tw, p.Sf, p.Sm} }

// PointFromVector builds a Point from the solver's slice layout.
func PointFromVector(y []float64) Point {
	return Point{Tw: y[0], Sf: y[1], Sm: y[2]}
}
