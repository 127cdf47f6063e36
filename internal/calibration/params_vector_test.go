package calibration

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
)

func TestNewParameterVectorFreesAllParameters(t *testing.T) {
	pv, err := NewParameterVector(testInitial(), testSetup(t, "rel-schooling"))
	require.NoError(t, err)

	names := pv.Names()
	assert.Len(t, names, len(model.ParamOrder))
	assert.Equal(t, model.ParamSubsistence, names[0])
	assert.Equal(t, pv.Initial()[0], testInitial()[model.ParamSubsistence])
}

func TestNewParameterVectorPinsSubsistence(t *testing.T) {
	pv, err := NewParameterVector(testInitial(), testSetup(t, "rel-schooling-no-subsistence"))
	require.NoError(t, err)

	names := pv.Names()
	assert.Len(t, names, len(model.ParamOrder)-1)
	assert.NotContains(t, names, model.ParamSubsistence)

	params, err := pv.ModelParameters(pv.Initial())
	require.NoError(t, err)
	assert.Zero(t, params.HatC)
}

func TestNewParameterVectorRejectsMissingInitializer(t *testing.T) {
	initial := testInitial()
	delete(initial, model.ParamZMrSr)

	_, err := NewParameterVector(initial, testSetup(t, "rel-schooling"))
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestNewParameterVectorRejectsOutOfDomainInitializer(t *testing.T) {
	initial := testInitial()
	initial[model.ParamLeisureScale] = -1

	_, err := NewParameterVector(initial, testSetup(t, "rel-schooling"))
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestParameterVectorBounds(t *testing.T) {
	pv, err := NewParameterVector(testInitial(), testSetup(t, "rel-schooling"))
	require.NoError(t, err)

	lower, upper := pv.Bounds()
	require.Len(t, lower, len(pv.Names()))
	require.Len(t, upper, len(pv.Names()))
	// The subsistence term admits zero; productivities stay bounded away.
	assert.Zero(t, lower[0])
	assert.Equal(t, 1e-3, lower[1])
}

func TestModelParametersRoundTrip(t *testing.T) {
	pv, err := NewParameterVector(testInitial(), testSetup(t, "rel-schooling"))
	require.NoError(t, err)

	params, err := pv.ModelParameters(pv.Initial())
	require.NoError(t, err)
	assert.Equal(t, testInitial()[model.ParamSubsistence], params.HatC)
	assert.Equal(t, testInitial()[model.ParamZArAh], params.Z["ArAh"])

	_, err = pv.ModelParameters([]float64{1, 2})
	assert.ErrorIs(t, err, model.ErrInvalidParameters)
}

func TestValueMapIncludesPinnedParameters(t *testing.T) {
	pv, err := NewParameterVector(testInitial(), testSetup(t, "rel-schooling-no-subsistence"))
	require.NoError(t, err)

	values := pv.ValueMap(pv.Initial())
	assert.Len(t, values, len(model.ParamOrder))
	assert.Zero(t, values[model.ParamSubsistence])
	assert.Equal(t, testInitial()[model.ParamZMrSr], values[model.ParamZMrSr])
}
