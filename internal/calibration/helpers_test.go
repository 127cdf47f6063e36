package calibration

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

func testObservations() model.GroupObservations {
	return model.GroupObservations{
		Group:                 model.GroupMiddle,
		LifeExpectancy:        56.9,
		RelativeSchoolingCost: 1.0,
		WageRatio:             0.73,
		SchoolingFemale:       6.34,
		SchoolingMale:         7.72,
		SubsistenceShare:      0.31,
		HoursFemale: map[model.Index]float64{
			model.IndexAh: 0.110, model.IndexAr: 0.052,
			model.IndexMh: 0.020, model.IndexMr: 0.023,
			model.IndexSh: 0.022, model.IndexSr: 0.058,
			model.IndexLeisure: 0.410,
		},
		HoursMale: map[model.Index]float64{
			model.IndexAh: 0.080, model.IndexAr: 0.090,
			model.IndexMh: 0.016, model.IndexMr: 0.069,
			model.IndexSh: 0.013, model.IndexSr: 0.126,
			model.IndexLeisure: 0.360,
		},
	}
}

func testInitial() map[model.ParamName]float64 {
	return map[model.ParamName]float64{
		model.ParamSubsistence:   0.5,
		model.ParamLeisureScale:  1.2,
		model.ParamSchoolingCost: 0.9,
		model.ParamZArAh:         1.6,
		model.ParamZMrMh:         2.1,
		model.ParamZSrSh:         1.9,
		model.ParamZArSr:         0.7,
		model.ParamZMrSr:         1.1,
	}
}

func testSetup(t *testing.T, name string) Setup {
	t.Helper()
	s, err := LookupSetup(name)
	require.NoError(t, err)
	return s
}
