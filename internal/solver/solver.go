// Package solver implements the damped Newton iteration used to solve the
// model's equilibrium conditions. The iteration is constraint aware: every
// candidate step is projected into the feasible box, the step length
// contracts geometrically when a proposal leaves the feasible region or
// fails to reduce the residual, and a bounded contraction budget separates
// recoverable non-convergence from genuine infeasibility.
package solver

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
)

// ErrInfeasible signals that no feasible step exists from the supplied
// starting point within the contraction budget: the system evaluates to a
// non-finite residual on the entire search arc. Callers recover locally by
// penalizing the candidate rather than aborting the calibration.
var ErrInfeasible = errors.New("solver: no feasible equilibrium")

// System evaluates the equilibrium condition vector at a point. A non-nil
// error or non-finite components mark the point as inadmissible.
type System func(y []float64) ([]float64, error)

// Options control the iteration. Zero values select the defaults.
type Options struct {
	// MaxIterations bounds the outer Newton iterations.
	MaxIterations int
	// MaxContractions bounds the geometric step-halving per iteration.
	MaxContractions int
	// ResidualTol accepts a point when the residual norm falls below it.
	ResidualTol float64
	// StepTol accepts a point when the max-norm update falls below it.
	StepTol float64
	// JacobianStep is the central finite-difference step; it shrinks by
	// factors of ten down to MinJacobianStep when derivatives are not
	// finite at the current width.
	JacobianStep    float64
	MinJacobianStep float64
	// Lower and Upper bound the unknowns. Proposals are projected into the
	// box before evaluation. Nil means unbounded.
	Lower, Upper []float64
}

func (o Options) withDefaults() Options {
	if o.MaxIterations == 0 {
		o.MaxIterations = 35
	}
	if o.MaxContractions == 0 {
		o.MaxContractions = 20
	}
	if o.ResidualTol == 0 {
		o.ResidualTol = 1e-8
	}
	if o.StepTol == 0 {
		o.StepTol = 1e-8
	}
	if o.JacobianStep == 0 {
		o.JacobianStep = 1e-10
	}
	if o.MinJacobianStep == 0 {
		o.MinJacobianStep = 1e-12
	}
	return o
}

// Result is the solver outcome. When Converged is false the result carries
// the best point reached before the iteration budget ran out; downstream
// consumers proceed with it but flag the evaluation.
type Result struct {
	Y            []float64
	Residual     []float64
	ResidualNorm float64
	Iterations   int
	Converged    bool
}

// Solve drives the damped Newton iteration from y0. The starting point is
// projected into the feasible box first, so warm starts from nearby
// parameter vectors are always admissible.
func Solve(sys System, y0 []float64, opts Options, logger *slog.Logger) (*Result, error) {
	opts = opts.withDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	n := len(y0)

	y := clamp(append([]float64(nil), y0...), opts.Lower, opts.Upper)
	fv, err := evaluate(sys, y)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInfeasible, err)
	}
	norm := euclideanNorm(fv)

	result := &Result{Y: y, Residual: fv, ResidualNorm: norm}
	if norm <= opts.ResidualTol {
		result.Converged = true
		return result, nil
	}

	for iter := 1; iter <= opts.MaxIterations; iter++ {
		jac, err := jacobian(sys, y, len(fv), opts)
		if err != nil {
			// Derivatives are unavailable at the current point. The best
			// available point still stands; report it unconverged.
			logger.Debug("equilibrium solver stalled on jacobian",
				"iteration", iter, "residual_norm", norm, "error", err)
			result.Iterations = iter - 1
			return result, nil
		}
		step, err := solveLinear(jac, negate(fv))
		if err != nil {
			logger.Debug("equilibrium solver stalled on singular jacobian",
				"iteration", iter, "residual_norm", norm)
			result.Iterations = iter - 1
			return result, nil
		}

		// Geometric step halving: accept the first projected proposal that
		// is admissible and reduces the residual norm.
		var (
			accepted   bool
			infeasible = true
			yNext      []float64
			fvNext     []float64
			normNext   float64
		)
		scale := 1.0
		for contraction := 0; contraction <= opts.MaxContractions; contraction++ {
			candidate := make([]float64, n)
			for i := range candidate {
				candidate[i] = y[i] + scale*step[i]
			}
			candidate = clamp(candidate, opts.Lower, opts.Upper)

			fvCand, err := evaluate(sys, candidate)
			if err == nil {
				infeasible = false
				if normCand := euclideanNorm(fvCand); normCand < norm {
					yNext, fvNext, normNext = candidate, fvCand, normCand
					accepted = true
					break
				}
			}
			scale /= 2
		}
		if !accepted {
			if infeasible {
				return nil, fmt.Errorf("%w: no admissible step at iteration %d", ErrInfeasible, iter)
			}
			logger.Debug("equilibrium solver exhausted contractions",
				"iteration", iter, "residual_norm", norm)
			result.Iterations = iter - 1
			return result, nil
		}

		stepNorm := maxNormDiff(yNext, y)
		y, fv, norm = yNext, fvNext, normNext
		result.Y, result.Residual, result.ResidualNorm = y, fv, norm
		result.Iterations = iter

		if norm <= opts.ResidualTol || stepNorm <= opts.StepTol {
			result.Converged = true
			return result, nil
		}
	}

	logger.Debug("equilibrium solver exhausted iterations",
		"iterations", result.Iterations, "residual_norm", result.ResidualNorm)
	return result, nil
}

// evaluate runs the system and rejects non-finite residuals.
func evaluate(sys System, y []float64) ([]float64, error) {
	fv, err := sys(y)
	if err != nil {
		return nil, err
	}
	for i, v := range fv {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("component %d is not finite", i)
		}
	}
	return fv, nil
}

// jacobian approximates the system's Jacobian by central differences,
// shrinking the difference step when the system is not finite at the
// current width.
func jacobian(sys System, y []float64, m int, opts Options) ([][]float64, error) {
	n := len(y)
	step := opts.JacobianStep
	for step >= opts.MinJacobianStep {
		jac := make([][]float64, m)
		for i := range jac {
			jac[i] = make([]float64, n)
		}
		ok := true
		for j := 0; j < n && ok; j++ {
			left := append([]float64(nil), y...)
			right := append([]float64(nil), y...)
			left[j] -= step / 2
			right[j] += step / 2

			fl, errL := evaluate(sys, left)
			fr, errR := evaluate(sys, right)
			if errL != nil || errR != nil {
				ok = false
				break
			}
			for i := 0; i < m; i++ {
				jac[i][j] = (fr[i] - fl[i]) / step
			}
		}
		if ok {
			return jac, nil
		}
		step /= 10
	}
	return nil, fmt.Errorf("jacobian not finite down to step %g", opts.MinJacobianStep)
}

// solveLinear solves a small dense system by Gaussian elimination with
// partial pivoting. The equilibrium system has three unknowns, so no
// factorization library is warranted.
func solveLinear(a [][]float64, b []float64) ([]float64, error) {
	n := len(b)
	m := make([][]float64, n)
	for i := range m {
		m[i] = append(append([]float64(nil), a[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for row := col + 1; row < n; row++ {
			if math.Abs(m[row][col]) > math.Abs(m[pivot][col]) {
				pivot = row
			}
		}
		if math.Abs(m[pivot][col]) < 1e-14 {
			return nil, errors.New("singular matrix")
		}
		m[col], m[pivot] = m[pivot], m[col]
		for row := col + 1; row < n; row++ {
			factor := m[row][col] / m[col][col]
			for k := col; k <= n; k++ {
				m[row][k] -= factor * m[col][k]
			}
		}
	}

	x := make([]float64, n)
	for row := n - 1; row >= 0; row-- {
		sum := m[row][n]
		for k := row + 1; k < n; k++ {
			sum -= m[row][k] * x[k]
		}
		x[row] = sum / m[row][row]
	}
	return x, nil
}

func clamp(y, lower, upper []float64) []float64 {
	for i := range y {
		if lower != nil && y[i] < lower[i] {
			y[i] = lower[i]
		}
		if upper != nil && y[i] > upper[i] {
			y[i] = upper[i]
		}
	}
	return y
}

func negate(v []float64) []float64 {
	out := make([]float64, len(v))
	for i := range v {
		out[i] = -v[i]
	}
	return out
}

func euclideanNorm(v []float64) float64 {
	sum := 0.0
	for _, x := range v {
		sum += x * x
	}
	return math.Sqrt(sum)
}

func maxNormDiff(a, b []float64) float64 {
	max := 0.0
	for i := range a {
		if d := math.Abs(a[i] - b[i]); d > max {
			max = d
		}
	}
	return max
}
