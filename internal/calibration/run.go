package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pi-kappa-devel/structural-schooling/internal/model"
	"github.com/pi-kappa-devel/structural-schooling/internal/solver"
)

// RunOptions configure a single calibration run: one setup applied to one
// income group.
type RunOptions struct {
	Setup        Setup
	Observations model.GroupObservations
	// Fixed overlays the baseline preference and technology constants.
	Fixed model.FixedParameters
	// Initial seeds the outer search. Missing free parameters are an error.
	Initial map[model.ParamName]float64
	Search  SearchOptions
	Solver  solver.Options
	// AdaptiveStart warm-starts the equilibrium solver from the best
	// equilibrium point found so far instead of the observed point.
	AdaptiveStart bool
	Logger        *slog.Logger
}

// RunResult is the outcome of one calibration run. A result is produced
// even when the outer search exhausts its budget; Converged records it.
type RunResult struct {
	ID    string            `json:"id"`
	Setup string            `json:"setup"`
	Group model.IncomeGroup `json:"group"`

	// Parameters holds the fitted values, including structurally pinned
	// parameters.
	Parameters map[model.ParamName]float64 `json:"parameters"`
	// Allocation is the equilibrium at the fitted parameters, nil when no
	// feasible equilibrium exists there.
	Allocation *model.Allocation `json:"allocation,omitempty"`
	Residuals  []Residual        `json:"residuals,omitempty"`
	Objective  float64           `json:"objective"`
	Converged  bool              `json:"converged"`

	Evaluations           int `json:"evaluations"`
	InfeasibleEvaluations int `json:"infeasible_evaluations"`
	// FlaggedEvaluations counts objective evaluations where the equilibrium
	// solver returned a best-effort point without converging.
	FlaggedEvaluations int `json:"flagged_evaluations"`

	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// innerBounds returns the default feasibility box for the equilibrium
// unknowns (tw, sf, sm): bounded away from zero and, for schooling, below
// life expectancy.
func innerBounds(c model.Constants) (lower, upper []float64) {
	return []float64{1e-3, 1e-3, 1e-3}, []float64{math.Inf(1), c.T, c.T}
}

// Run calibrates one setup against one income group. It returns the best
// point found together with ErrDidNotConverge when the outer search
// exhausts its evaluation budget; fatal input errors return a nil result.
func Run(ctx context.Context, opts RunOptions) (*RunResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	started := time.Now()

	obs := opts.Observations
	if err := obs.Validate(); err != nil {
		return nil, err
	}
	consts, err := model.NewConstantsWith(obs, opts.Fixed)
	if err != nil {
		return nil, err
	}
	targets, err := DefaultTargets(obs)
	if err != nil {
		return nil, err
	}
	targets = opts.Setup.ApplyTargets(targets)
	if err := targets.Validate(); err != nil {
		return nil, err
	}
	pv, err := NewParameterVector(opts.Initial, opts.Setup)
	if err != nil {
		return nil, err
	}

	solverOpts := opts.Solver
	if solverOpts.Lower == nil && solverOpts.Upper == nil {
		solverOpts.Lower, solverOpts.Upper = innerBounds(consts)
	}
	observedStart := model.Point{Tw: obs.WageRatio, Sf: obs.SchoolingFemale, Sm: obs.SchoolingMale}

	runID := uuid.New().String()
	logger.InfoContext(ctx, "starting calibration run",
		"run_id", runID, "setup", opts.Setup.Name, "group", obs.Group,
		"free_parameters", len(pv.Names()), "targets", targets.Len())

	var (
		infeasible int
		flagged    int
		warmStart  = observedStart.Vector()
		bestInner  = math.Inf(1)
	)

	// solveAt solves the equilibrium for one candidate and evaluates its
	// weighted residuals. A nil allocation means the candidate is
	// infeasible and takes the penalty objective.
	solveAt := func(x []float64) (*model.Allocation, []Residual, float64) {
		params, err := pv.ModelParameters(x)
		if err != nil {
			return nil, nil, InfeasiblePenalty
		}
		m, err := model.New(consts, params)
		if err != nil {
			return nil, nil, InfeasiblePenalty
		}
		start := warmStart
		if !opts.AdaptiveStart {
			start = observedStart.Vector()
		}
		res, err := solver.Solve(m.System(), start, solverOpts, logger)
		if err != nil {
			if !errors.Is(err, solver.ErrInfeasible) {
				logger.DebugContext(ctx, "equilibrium solve failed",
					"run_id", runID, "error", err)
			}
			return nil, nil, InfeasiblePenalty
		}
		alloc := m.Allocate(model.PointFromVector(res.Y))
		alloc.Converged = res.Converged
		alloc.Iterations = res.Iterations
		alloc.ResidualNorm = res.ResidualNorm
		if err := alloc.Validate(consts); err != nil {
			return nil, nil, InfeasiblePenalty
		}
		residuals, err := EvaluateMoments(alloc, targets)
		if err != nil {
			return nil, nil, InfeasiblePenalty
		}
		return alloc, residuals, SumOfSquares(residuals)
	}

	objective := func(x []float64) float64 {
		alloc, _, f := solveAt(x)
		if alloc == nil {
			infeasible++
			return f
		}
		if !alloc.Converged {
			flagged++
		}
		if opts.AdaptiveStart && f < bestInner {
			bestInner = f
			warmStart = alloc.Point.Vector()
		}
		return f
	}

	searchOpts := opts.Search
	if searchOpts.Lower == nil && searchOpts.Upper == nil {
		searchOpts.Lower, searchOpts.Upper = pv.Bounds()
	}
	search, searchErr := Minimize(ctx, objective, pv.Initial(), searchOpts, logger)
	if searchErr != nil && !errors.Is(searchErr, ErrDidNotConverge) {
		return nil, fmt.Errorf("run %s: %w", runID, searchErr)
	}

	alloc, residuals, objValue := solveAt(search.X)
	result := &RunResult{
		ID:                    runID,
		Setup:                 opts.Setup.Name,
		Group:                 obs.Group,
		Parameters:            pv.ValueMap(search.X),
		Allocation:            alloc,
		Residuals:             residuals,
		Objective:             objValue,
		Converged:             search.Converged,
		Evaluations:           search.Evaluations,
		InfeasibleEvaluations: infeasible,
		FlaggedEvaluations:    flagged,
		StartedAt:             started,
		Duration:              time.Since(started),
	}

	logger.InfoContext(ctx, "calibration run finished",
		"run_id", runID, "setup", opts.Setup.Name, "group", obs.Group,
		"objective", result.Objective, "converged", result.Converged,
		"evaluations", result.Evaluations, "infeasible", infeasible,
		"flagged", flagged, "duration", result.Duration)

	if searchErr != nil {
		return result, fmt.Errorf("run %s (%s/%s): %w", runID, opts.Setup.Name, obs.Group, searchErr)
	}
	return result, nil
}

// RunAllOptions configure a batch over setups and income groups.
type RunAllOptions struct {
	Setups       []Setup
	Groups       []model.IncomeGroup
	Observations map[model.IncomeGroup]model.GroupObservations
	Fixed        model.FixedParameters
	Initializers Initializers
	Search       SearchOptions
	Solver       solver.Options

	// Adaptive chains the income groups of each setup sequentially,
	// carrying the fitted parameters forward as the next group's
	// initializers and warm-starting the equilibrium solver.
	Adaptive bool
	// Concurrency bounds parallel runs in non-adaptive mode; zero means one
	// run per setup.
	Concurrency int
	Logger      *slog.Logger
}

// RunAll executes every setup against every income group. Results keep the
// (setup, group) input order. Budget exhaustion in individual runs does not
// abort the batch; the joined error reports every non-converged run while
// the corresponding results still carry their best points.
func RunAll(ctx context.Context, opts RunAllOptions) ([]*RunResult, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Initializers == nil {
		opts.Initializers = DefaultInitializers()
	}
	for _, group := range opts.Groups {
		if _, ok := opts.Observations[group]; !ok {
			return nil, fmt.Errorf("%w: no observations for group %q", model.ErrInvalidObservations, group)
		}
	}

	results := make([]*RunResult, len(opts.Setups)*len(opts.Groups))
	index := func(si, gi int) int { return si*len(opts.Groups) + gi }

	runOne := func(ctx context.Context, setup Setup, group model.IncomeGroup, initial map[model.ParamName]float64) (*RunResult, error) {
		return Run(ctx, RunOptions{
			Setup:         setup,
			Observations:  opts.Observations[group],
			Fixed:         opts.Fixed,
			Initial:       initial,
			Search:        opts.Search,
			Solver:        opts.Solver,
			AdaptiveStart: opts.Adaptive,
			Logger:        logger,
		})
	}

	if opts.Adaptive {
		var soft []error
		for si, setup := range opts.Setups {
			var initial map[model.ParamName]float64
			for gi, group := range opts.Groups {
				if initial == nil {
					var err error
					initial, err = opts.Initializers.For(setup.Name, group)
					if err != nil {
						return nil, err
					}
				}
				res, err := runOne(ctx, setup, group, initial)
				if err != nil {
					if res == nil {
						return nil, err
					}
					soft = append(soft, err)
				}
				results[index(si, gi)] = res
				// Carry the fitted point forward to the next group.
				initial = res.Parameters
			}
		}
		return results, errors.Join(soft...)
	}

	concurrency := opts.Concurrency
	if concurrency == 0 {
		concurrency = len(opts.Setups)
	}
	grp, gctx := errgroup.WithContext(ctx)
	grp.SetLimit(concurrency)

	var (
		softMu sync.Mutex
		soft   []error
	)
	for si, setup := range opts.Setups {
		for gi, group := range opts.Groups {
			si, gi, setup, group := si, gi, setup, group
			grp.Go(func() error {
				initial, err := opts.Initializers.For(setup.Name, group)
				if err != nil {
					return err
				}
				res, err := runOne(gctx, setup, group, initial)
				if err != nil {
					if res == nil {
						return err
					}
					softMu.Lock()
					soft = append(soft, err)
					softMu.Unlock()
				}
				results[index(si, gi)] = res
				return nil
			})
		}
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return results, errors.Join(soft...)
}
