package calibration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
	"github.com/pi-kappa-devel/structural-schooling/internal/solver"
)

// symmetricObservations builds a group where both genders share identical
// schooling, costs, and time allocations. The implied intensity shares are
// exactly one half for every index, so the equilibrium is symmetric: a unit
// wage ratio and equal schooling levels.
func symmetricObservations() model.GroupObservations {
	hours := map[model.Index]float64{
		model.IndexAh: 0.15, model.IndexAr: 0.06,
		model.IndexMh: 0.08, model.IndexMr: 0.10,
		model.IndexSh: 0.07, model.IndexSr: 0.12,
		model.IndexLeisure: 0.42,
	}
	hoursCopy := make(map[model.Index]float64, len(hours))
	for ix, v := range hours {
		hoursCopy[ix] = v
	}
	return model.GroupObservations{
		Group:                 model.GroupMiddle,
		LifeExpectancy:        56.9,
		RelativeSchoolingCost: 1.0,
		WageRatio:             1.0,
		SchoolingFemale:       6.0,
		SchoolingMale:         6.0,
		SubsistenceShare:      0.3,
		HoursFemale:           hours,
		HoursMale:             hoursCopy,
	}
}

// scenarioSolverOptions gives the equilibrium solver a generous iteration
// budget so the scenario assertions are about the model, not the budget.
func scenarioSolverOptions(c model.Constants) solver.Options {
	lower, upper := innerBounds(c)
	return solver.Options{MaxIterations: 200, Lower: lower, Upper: upper}
}

func TestSolverIdempotentAtConvergedEquilibrium(t *testing.T) {
	obs := symmetricObservations()
	consts, err := model.NewConstants(obs)
	require.NoError(t, err)

	initial := testInitial()
	initial[model.ParamSubsistence] = 0
	params, err := model.FromValues(initial)
	require.NoError(t, err)
	m, err := model.New(consts, params)
	require.NoError(t, err)

	opts := scenarioSolverOptions(consts)
	start := model.Point{Tw: obs.WageRatio, Sf: obs.SchoolingFemale, Sm: obs.SchoolingMale}

	first, err := solver.Solve(m.System(), start.Vector(), opts, nil)
	require.NoError(t, err)
	require.True(t, first.Converged)

	// Restarting from the converged point accepts it immediately and
	// reproduces the allocation.
	second, err := solver.Solve(m.System(), first.Y, opts, nil)
	require.NoError(t, err)
	require.True(t, second.Converged)
	assert.Zero(t, second.Iterations)
	for i := range first.Y {
		assert.InDelta(t, first.Y[i], second.Y[i], 1e-9)
	}

	allocFirst := m.Allocate(model.PointFromVector(first.Y))
	allocSecond := m.Allocate(model.PointFromVector(second.Y))
	for _, ix := range model.AllIndices {
		assert.InDelta(t, allocFirst.HoursFemale[ix], allocSecond.HoursFemale[ix], 1e-9)
		assert.InDelta(t, allocFirst.HoursMale[ix], allocSecond.HoursMale[ix], 1e-9)
	}
}

func TestZeroSubsistenceBoundaryMatchesPinnedSetup(t *testing.T) {
	obs := testObservations()
	consts, err := model.NewConstants(obs)
	require.NoError(t, err)

	// Free vector placed exactly on the subsistence boundary.
	boundary := testInitial()
	boundary[model.ParamSubsistence] = 0
	paramsFree, err := model.FromValues(boundary)
	require.NoError(t, err)

	// The pinned setup removes the parameter and fixes it at zero.
	pv, err := NewParameterVector(testInitial(), testSetup(t, "rel-schooling-no-subsistence"))
	require.NoError(t, err)
	paramsPinned, err := pv.ModelParameters(pv.Initial())
	require.NoError(t, err)
	assert.Equal(t, paramsFree, paramsPinned)

	mFree, err := model.New(consts, paramsFree)
	require.NoError(t, err)
	mPinned, err := model.New(consts, paramsPinned)
	require.NoError(t, err)

	opts := scenarioSolverOptions(consts)
	start := model.Point{Tw: obs.WageRatio, Sf: obs.SchoolingFemale, Sm: obs.SchoolingMale}

	resFree, err := solver.Solve(mFree.System(), start.Vector(), opts, nil)
	require.NoError(t, err)
	resPinned, err := solver.Solve(mPinned.System(), start.Vector(), opts, nil)
	require.NoError(t, err)

	assert.Equal(t, resFree.Converged, resPinned.Converged)
	for i := range resFree.Y {
		assert.InDelta(t, resFree.Y[i], resPinned.Y[i], 1e-12)
	}

	allocFree := mFree.Allocate(model.PointFromVector(resFree.Y))
	allocPinned := mPinned.Allocate(model.PointFromVector(resPinned.Y))
	assert.Zero(t, allocFree.SubsistenceShare)
	assert.Zero(t, allocPinned.SubsistenceShare)
}

func TestCalibratorRecoversKnownParameters(t *testing.T) {
	obs := symmetricObservations()
	consts, err := model.NewConstants(obs)
	require.NoError(t, err)
	setup := testSetup(t, "rel-schooling-no-subsistence")

	truth, err := NewParameterVector(testInitial(), setup)
	require.NoError(t, err)
	truthX := truth.Initial()

	opts := scenarioSolverOptions(consts)
	start := model.Point{Tw: obs.WageRatio, Sf: obs.SchoolingFemale, Sm: obs.SchoolingMale}

	solveAt := func(x []float64) *model.Allocation {
		params, err := truth.ModelParameters(x)
		if err != nil {
			return nil
		}
		m, err := model.New(consts, params)
		if err != nil {
			return nil
		}
		res, err := solver.Solve(m.System(), start.Vector(), opts, nil)
		if err != nil || !res.Converged {
			return nil
		}
		alloc := m.Allocate(model.PointFromVector(res.Y))
		alloc.Converged = res.Converged
		if err := alloc.Validate(consts); err != nil {
			return nil
		}
		return alloc
	}

	// Targets taken from the model's own equilibrium at the reference
	// parameters, so the objective has a known root.
	allocTruth := solveAt(truthX)
	require.NotNil(t, allocTruth)

	base, err := DefaultTargets(obs)
	require.NoError(t, err)
	applied := setup.ApplyTargets(base)
	implied, err := EvaluateMoments(allocTruth, applied)
	require.NoError(t, err)
	selfTargets := make([]Target, len(implied))
	for i, r := range implied {
		selfTargets[i] = Target{Name: r.Name, Value: r.Model, Weight: r.Weight}
	}
	targets := TargetSet{targets: selfTargets}
	require.NoError(t, targets.Validate())

	objective := func(x []float64) float64 {
		alloc := solveAt(x)
		if alloc == nil {
			return InfeasiblePenalty
		}
		residuals, err := EvaluateMoments(alloc, targets)
		if err != nil {
			return InfeasiblePenalty
		}
		return SumOfSquares(residuals)
	}
	require.Zero(t, objective(truthX))

	// Start the outer search near the reference point.
	x0 := make([]float64, len(truthX))
	for i, v := range truthX {
		x0[i] = v + 0.005
	}
	lower, upper := truth.Bounds()
	search, err := Minimize(context.Background(), objective, x0, SearchOptions{
		MaxEvaluations: 2000,
		InitialScale:   0.01,
		Lower:          lower,
		Upper:          upper,
	}, nil)
	if err != nil {
		require.True(t, errors.Is(err, ErrDidNotConverge))
	}
	require.NotNil(t, search)

	assert.Less(t, search.F, 1e-6)
	for i := range truthX {
		assert.InDelta(t, truthX[i], search.X[i], 1e-4)
	}
}
