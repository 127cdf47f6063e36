package calibration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

func TestRunRejectsInvalidObservations(t *testing.T) {
	obs := testObservations()
	obs.WageRatio = 0

	res, err := Run(context.Background(), RunOptions{
		Setup:        testSetup(t, "rel-schooling"),
		Observations: obs,
		Initial:      testInitial(),
	})
	assert.ErrorIs(t, err, model.ErrInvalidObservations)
	assert.Nil(t, res)
}

func TestRunRejectsMissingInitializer(t *testing.T) {
	initial := testInitial()
	delete(initial, model.ParamZArAh)

	res, err := Run(context.Background(), RunOptions{
		Setup:        testSetup(t, "rel-schooling"),
		Observations: testObservations(),
		Initial:      initial,
	})
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
	assert.Nil(t, res)
}

func TestRunWithTinyBudgetReportsBestEffort(t *testing.T) {
	res, err := Run(context.Background(), RunOptions{
		Setup:        testSetup(t, "rel-schooling"),
		Observations: testObservations(),
		Initial:      testInitial(),
		Search:       SearchOptions{MaxEvaluations: 12},
	})
	require.ErrorIs(t, err, ErrDidNotConverge)
	require.NotNil(t, res)

	assert.Equal(t, "rel-schooling", res.Setup)
	assert.Equal(t, model.GroupMiddle, res.Group)
	assert.NotEmpty(t, res.ID)
	assert.False(t, res.Converged)
	assert.GreaterOrEqual(t, res.Evaluations, 12)
	assert.Len(t, res.Parameters, len(model.ParamOrder))
}

func TestRunAllRejectsMissingGroupObservations(t *testing.T) {
	_, err := RunAll(context.Background(), RunAllOptions{
		Setups: []Setup{testSetup(t, "rel-schooling")},
		Groups: []model.IncomeGroup{model.GroupLow},
		Observations: map[model.IncomeGroup]model.GroupObservations{
			model.GroupMiddle: testObservations(),
		},
	})
	assert.ErrorIs(t, err, model.ErrInvalidObservations)
}

func TestRunAllUsesPerGroupInitializers(t *testing.T) {
	// A table carrying only the low group has no entry for middle.
	table := Initializers{
		"rel-schooling": {model.GroupLow: testInitial()},
	}

	results, err := RunAll(context.Background(), RunAllOptions{
		Setups: []Setup{testSetup(t, "rel-schooling")},
		Groups: []model.IncomeGroup{model.GroupMiddle},
		Observations: map[model.IncomeGroup]model.GroupObservations{
			model.GroupMiddle: testObservations(),
		},
		Initializers: table,
		Search:       SearchOptions{MaxEvaluations: 12},
	})
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrDidNotConverge)
	assert.Nil(t, results)

	table["rel-schooling"][defaultGroupKey] = testInitial()
	results, err = RunAll(context.Background(), RunAllOptions{
		Setups: []Setup{testSetup(t, "rel-schooling")},
		Groups: []model.IncomeGroup{model.GroupMiddle},
		Observations: map[model.IncomeGroup]model.GroupObservations{
			model.GroupMiddle: testObservations(),
		},
		Initializers: table,
		Search:       SearchOptions{MaxEvaluations: 12},
	})
	if err != nil {
		require.ErrorIs(t, err, ErrDidNotConverge)
	}
	require.Len(t, results, 1)
	require.NotNil(t, results[0])
}

func TestRunAllKeepsInputOrder(t *testing.T) {
	middle := testObservations()
	low := testObservations()
	low.Group = model.GroupLow

	results, err := RunAll(context.Background(), RunAllOptions{
		Setups: []Setup{
			testSetup(t, "rel-schooling"),
			testSetup(t, "rel-schooling-no-subsistence"),
		},
		Groups: []model.IncomeGroup{model.GroupLow, model.GroupMiddle},
		Observations: map[model.IncomeGroup]model.GroupObservations{
			model.GroupLow:    low,
			model.GroupMiddle: middle,
		},
		Search:      SearchOptions{MaxEvaluations: 12},
		Concurrency: 2,
	})
	if err != nil {
		require.ErrorIs(t, err, ErrDidNotConverge)
	}
	require.Len(t, results, 4)

	assert.Equal(t, "rel-schooling", results[0].Setup)
	assert.Equal(t, model.GroupLow, results[0].Group)
	assert.Equal(t, "rel-schooling", results[1].Setup)
	assert.Equal(t, model.GroupMiddle, results[1].Group)
	assert.Equal(t, "rel-schooling-no-subsistence", results[2].Setup)
	assert.Equal(t, model.GroupLow, results[2].Group)
}

func TestRunAllAdaptiveCarriesParametersForward(t *testing.T) {
	middle := testObservations()
	low := testObservations()
	low.Group = model.GroupLow

	results, err := RunAll(context.Background(), RunAllOptions{
		Setups: []Setup{testSetup(t, "rel-schooling")},
		Groups: []model.IncomeGroup{model.GroupLow, model.GroupMiddle},
		Observations: map[model.IncomeGroup]model.GroupObservations{
			model.GroupLow:    low,
			model.GroupMiddle: middle,
		},
		Search:   SearchOptions{MaxEvaluations: 12},
		Adaptive: true,
	})
	if err != nil {
		require.ErrorIs(t, err, ErrDidNotConverge)
	}
	require.Len(t, results, 2)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Len(t, r.Parameters, len(model.ParamOrder))
	}
}
