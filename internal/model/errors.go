package model

import "errors"

// ErrInvalidObservations indicates malformed or economically inadmissible
// empirical input data. It is fatal and raised before any solver work.
var ErrInvalidObservations = errors.New("model: invalid observations")

// ErrInvalidParameters indicates a parameter set outside its declared
// domain.
var ErrInvalidParameters = errors.New("model: invalid parameters")

// ErrInfeasibleAllocation indicates an allocation violating the economic
// feasibility invariants: non-negative shares, the time-budget identity,
// schooling inside [0, T], and an admissible subsistence share.
var ErrInfeasibleAllocation = errors.New("model: infeasible allocation")
