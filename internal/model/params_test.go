package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZPairName(t *testing.T) {
	assert.Equal(t, ParamZArAh, ZPairName(IndexAr, IndexAh))
	assert.Equal(t, ParamZMrSr, ZPairName(IndexMr, IndexSr))
}

func TestDomainClamp(t *testing.T) {
	d := Domain{Lower: 1e-3, Upper: math.Inf(1)}
	assert.True(t, d.Contains(1.0))
	assert.False(t, d.Contains(0))
	assert.Equal(t, 1e-3, d.Clamp(-5))
	assert.Equal(t, 2.5, d.Clamp(2.5))
}

func TestParametersValue(t *testing.T) {
	p := Parameters{
		HatC:   0.5,
		Varphi: 1.2,
		BetaF:  0.9,
		Z:      map[string]float64{"ArAh": 1.6},
	}

	v, err := p.Value(ParamSubsistence)
	require.NoError(t, err)
	assert.Equal(t, 0.5, v)

	v, err = p.Value(ParamZArAh)
	require.NoError(t, err)
	assert.Equal(t, 1.6, v)

	_, err = p.Value(ParamName("Z_XxYy"))
	assert.ErrorIs(t, err, ErrInvalidParameters)
}

func TestFromValuesRequiresEveryParameter(t *testing.T) {
	values := map[ParamName]float64{
		ParamSubsistence:   0.5,
		ParamLeisureScale:  1.2,
		ParamSchoolingCost: 0.9,
		ParamZArAh:         1.6,
		ParamZMrMh:         2.1,
		ParamZSrSh:         1.9,
		ParamZArSr:         0.7,
		// Z_MrSr missing
	}
	_, err := FromValues(values)
	assert.ErrorIs(t, err, ErrInvalidParameters)

	values[ParamZMrSr] = 1.1
	p, err := FromValues(values)
	require.NoError(t, err)
	assert.Equal(t, 1.1, p.Z["MrSr"])
}

func TestValidateRejectsOutOfDomain(t *testing.T) {
	values := map[ParamName]float64{
		ParamSubsistence:   -0.1,
		ParamLeisureScale:  1.2,
		ParamSchoolingCost: 0.9,
		ParamZArAh:         1.6,
		ParamZMrMh:         2.1,
		ParamZSrSh:         1.9,
		ParamZArSr:         0.7,
		ParamZMrSr:         1.1,
	}
	_, err := FromValues(values)
	assert.ErrorIs(t, err, ErrInvalidParameters)
}
