package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTargets(t *testing.T) {
	obs := testObservations()
	ts, err := DefaultTargets(obs)
	require.NoError(t, err)
	require.NoError(t, ts.Validate())

	assert.Equal(t, 10, ts.Len())

	// Schooling targets are weighted by the inverse life expectancy.
	assert.InDelta(t, 1/obs.LifeExpectancy, ts.Weight(TargetSchoolingF), 1e-12)
	assert.InDelta(t, 1/obs.LifeExpectancy, ts.Weight(TargetSchoolingM), 1e-12)
	assert.Equal(t, 1.0, ts.Weight(TargetWageRatio))
	assert.Equal(t, 1.0, ts.Weight(TargetSubsistence))

	targets := ts.Targets()
	assert.Equal(t, TargetLfArAh, targets[0].Name)
	assert.InDelta(t, 0.052/0.110, targets[0].Value, 1e-12)
}

func TestDefaultTargetsRejectsInvalidObservations(t *testing.T) {
	obs := testObservations()
	obs.WageRatio = 0

	_, err := DefaultTargets(obs)
	assert.ErrorIs(t, err, ErrInvalidTargets)
}

func TestTargetSetWithoutAndReweighted(t *testing.T) {
	ts, err := DefaultTargets(testObservations())
	require.NoError(t, err)

	dropped := ts.without(TargetWageRatio)
	assert.Equal(t, ts.Len()-1, dropped.Len())
	assert.False(t, dropped.Has(TargetWageRatio))
	assert.Zero(t, dropped.Weight(TargetWageRatio))

	scaled := ts.reweighted(TargetWageRatio, 100)
	assert.Equal(t, 100.0, scaled.Weight(TargetWageRatio))
	// The original set is unchanged.
	assert.Equal(t, 1.0, ts.Weight(TargetWageRatio))
}

func TestTargetSetValidate(t *testing.T) {
	assert.ErrorIs(t, TargetSet{}.Validate(), ErrInvalidTargets)

	duplicate := TargetSet{targets: []Target{
		{Name: TargetWageRatio, Value: 1, Weight: 1},
		{Name: TargetWageRatio, Value: 1, Weight: 1},
	}}
	assert.ErrorIs(t, duplicate.Validate(), ErrInvalidTargets)

	negative := TargetSet{targets: []Target{
		{Name: TargetWageRatio, Value: 1, Weight: -1},
	}}
	assert.ErrorIs(t, negative.Validate(), ErrInvalidTargets)
}
