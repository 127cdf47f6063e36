package calibration

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"sort"
)

// ErrDidNotConverge signals that the outer search exhausted its function
// evaluation budget. The accompanying result still carries the best point
// found; callers report it rather than discard it.
var ErrDidNotConverge = errors.New("calibration: outer search did not converge")

// Objective is the outer calibrator's black-box scalar objective. It must
// return a finite value for every candidate; infeasible candidates are
// penalized inside the objective, never surfaced as errors.
type Objective func(x []float64) float64

// SearchOptions control the Nelder-Mead direct search. Zero values select
// the defaults.
type SearchOptions struct {
	// MaxEvaluations bounds the objective evaluations.
	MaxEvaluations int
	// ObjectiveTol and ParameterTol must both be met to declare
	// convergence: the simplex's objective spread and its diameter fall
	// below the respective tolerance.
	ObjectiveTol float64
	ParameterTol float64
	// InitialScale sizes the initial simplex relative to each coordinate.
	InitialScale float64
	// Lower and Upper bound the parameters; candidates are projected into
	// the box before evaluation. Nil means unbounded.
	Lower, Upper []float64
}

func (o SearchOptions) withDefaults() SearchOptions {
	if o.MaxEvaluations == 0 {
		o.MaxEvaluations = 2000
	}
	if o.ObjectiveTol == 0 {
		o.ObjectiveTol = 1e-8
	}
	if o.ParameterTol == 0 {
		o.ParameterTol = 1e-6
	}
	if o.InitialScale == 0 {
		o.InitialScale = 0.05
	}
	return o
}

// SearchResult is the outer search outcome.
type SearchResult struct {
	X           []float64 `json:"x"`
	F           float64   `json:"f"`
	Evaluations int       `json:"evaluations"`
	Iterations  int       `json:"iterations"`
	Converged   bool      `json:"converged"`
}

// Nelder-Mead coefficients: reflection, expansion, contraction, shrink.
const (
	nmReflect  = 1.0
	nmExpand   = 2.0
	nmContract = 0.5
	nmShrink   = 0.5
)

// Minimize runs a box-projected Nelder-Mead direct search from x0. On
// budget exhaustion it returns the best point together with
// ErrDidNotConverge.
func Minimize(ctx context.Context, f Objective, x0 []float64, opts SearchOptions, logger *slog.Logger) (*SearchResult, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	n := len(x0)
	if n == 0 {
		return nil, fmt.Errorf("%w: empty parameter vector", ErrDidNotConverge)
	}

	project := func(x []float64) []float64 {
		for i := range x {
			if opts.Lower != nil && x[i] < opts.Lower[i] {
				x[i] = opts.Lower[i]
			}
			if opts.Upper != nil && x[i] > opts.Upper[i] {
				x[i] = opts.Upper[i]
			}
		}
		return x
	}

	evaluations := 0
	eval := func(x []float64) float64 {
		evaluations++
		return f(x)
	}

	// Initial simplex: x0 plus one perturbed vertex per coordinate.
	vertices := make([][]float64, n+1)
	values := make([]float64, n+1)
	vertices[0] = project(append([]float64(nil), x0...))
	values[0] = eval(vertices[0])
	for i := 0; i < n; i++ {
		v := append([]float64(nil), vertices[0]...)
		step := opts.InitialScale * math.Abs(v[i])
		if step == 0 {
			step = opts.InitialScale * opts.InitialScale
		}
		v[i] += step
		vertices[i+1] = project(v)
		values[i+1] = eval(vertices[i+1])
	}

	order := func() {
		idx := make([]int, n+1)
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool { return values[idx[a]] < values[idx[b]] })
		sortedV := make([][]float64, n+1)
		sortedF := make([]float64, n+1)
		for i, j := range idx {
			sortedV[i], sortedF[i] = vertices[j], values[j]
		}
		copy(vertices, sortedV)
		copy(values, sortedF)
	}

	centroid := func() []float64 {
		c := make([]float64, n)
		for _, v := range vertices[:n] {
			for i := range c {
				c[i] += v[i] / float64(n)
			}
		}
		return c
	}

	point := func(base []float64, coeff float64, worst []float64) []float64 {
		x := make([]float64, n)
		for i := range x {
			x[i] = base[i] + coeff*(base[i]-worst[i])
		}
		return project(x)
	}

	converged := func() bool {
		if values[n]-values[0] > opts.ObjectiveTol {
			return false
		}
		diameter := 0.0
		for _, v := range vertices[1:] {
			for i := range v {
				if d := math.Abs(v[i] - vertices[0][i]); d > diameter {
					diameter = d
				}
			}
		}
		return diameter <= opts.ParameterTol
	}

	iterations := 0
	order()
	for evaluations < opts.MaxEvaluations {
		select {
		case <-ctx.Done():
			return &SearchResult{
				X: vertices[0], F: values[0],
				Evaluations: evaluations, Iterations: iterations,
			}, fmt.Errorf("outer search cancelled: %w", ctx.Err())
		default:
		}

		if converged() {
			logger.Debug("outer search converged",
				"iterations", iterations, "evaluations", evaluations, "objective", values[0])
			return &SearchResult{
				X: vertices[0], F: values[0],
				Evaluations: evaluations, Iterations: iterations, Converged: true,
			}, nil
		}
		iterations++

		c := centroid()
		reflected := point(c, nmReflect, vertices[n])
		fReflected := eval(reflected)

		switch {
		case fReflected < values[0]:
			expanded := point(c, nmExpand, vertices[n])
			if fExpanded := eval(expanded); fExpanded < fReflected {
				vertices[n], values[n] = expanded, fExpanded
			} else {
				vertices[n], values[n] = reflected, fReflected
			}
		case fReflected < values[n-1]:
			vertices[n], values[n] = reflected, fReflected
		default:
			contracted := point(c, -nmContract, vertices[n])
			if fContracted := eval(contracted); fContracted < values[n] {
				vertices[n], values[n] = contracted, fContracted
			} else {
				// Shrink toward the best vertex.
				for i := 1; i <= n; i++ {
					for j := range vertices[i] {
						vertices[i][j] = vertices[0][j] + nmShrink*(vertices[i][j]-vertices[0][j])
					}
					vertices[i] = project(vertices[i])
					values[i] = eval(vertices[i])
				}
			}
		}
		order()
	}

	logger.Debug("outer search exhausted evaluation budget",
		"iterations", iterations, "evaluations", evaluations, "objective", values[0])
	return &SearchResult{
		X: vertices[0], F: values[0],
		Evaluations: evaluations, Iterations: iterations,
	}, ErrDidNotConverge
}
