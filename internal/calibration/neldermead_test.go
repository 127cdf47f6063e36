package calibration

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMinimizeQuadratic(t *testing.T) {
	f := func(x []float64) float64 {
		return (x[0]-3)*(x[0]-3) + 2*(x[1]+1)*(x[1]+1)
	}

	res, err := Minimize(context.Background(), f, []float64{0, 0}, SearchOptions{}, nil)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 3.0, res.X[0], 1e-4)
	assert.InDelta(t, -1.0, res.X[1], 1e-4)
	assert.Less(t, res.F, 1e-7)
	assert.LessOrEqual(t, res.Evaluations, 2000)
}

func TestMinimizeRespectsBounds(t *testing.T) {
	// Unconstrained minimum at -2, box at [0, 10].
	f := func(x []float64) float64 {
		return (x[0] + 2) * (x[0] + 2)
	}

	res, err := Minimize(context.Background(), f, []float64{5}, SearchOptions{
		Lower: []float64{0},
		Upper: []float64{10},
	}, nil)
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.InDelta(t, 0.0, res.X[0], 1e-6)
}

func TestMinimizeRosenbrock(t *testing.T) {
	f := func(x []float64) float64 {
		return 100*math.Pow(x[1]-x[0]*x[0], 2) + math.Pow(1-x[0], 2)
	}

	res, err := Minimize(context.Background(), f, []float64{-1.2, 1}, SearchOptions{
		MaxEvaluations: 5000,
		InitialScale:   0.1,
	}, nil)
	if err != nil {
		require.ErrorIs(t, err, ErrDidNotConverge)
	}
	// The valley floor is reached well within the budget either way.
	assert.Less(t, res.F, 1e-4)
	assert.InDelta(t, 1.0, res.X[0], 0.05)
	assert.InDelta(t, 1.0, res.X[1], 0.05)
}

func TestMinimizeBudgetExhaustionCarriesBestPoint(t *testing.T) {
	f := func(x []float64) float64 {
		return x[0] * x[0]
	}

	res, err := Minimize(context.Background(), f, []float64{100}, SearchOptions{
		MaxEvaluations: 5,
	}, nil)
	require.ErrorIs(t, err, ErrDidNotConverge)
	require.NotNil(t, res)
	assert.False(t, res.Converged)
	assert.LessOrEqual(t, 5, res.Evaluations)
	// The best point is no worse than the start.
	assert.LessOrEqual(t, res.F, 100.0*100.0)
}

func TestMinimizeHonorsCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	f := func(x []float64) float64 { return x[0] * x[0] }
	res, err := Minimize(ctx, f, []float64{5}, SearchOptions{}, nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotNil(t, res)
}

func TestMinimizeEmptyVector(t *testing.T) {
	_, err := Minimize(context.Background(), func([]float64) float64 { return 0 }, nil, SearchOptions{}, nil)
	assert.Error(t, err)
}

func TestMinimizeFlatObjectiveTerminates(t *testing.T) {
	f := func(x []float64) float64 { return 42.0 }

	res, err := Minimize(context.Background(), f, []float64{1, 2, 3}, SearchOptions{
		MaxEvaluations: 200,
	}, nil)
	if err != nil {
		require.ErrorIs(t, err, ErrDidNotConverge)
	}
	assert.Equal(t, 42.0, res.F)
}
