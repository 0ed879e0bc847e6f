// Package rootfind locates the power-minimizing velocity with a guarded
// Newton-Raphson iteration on the stationarity condition.
package rootfind

import (
	"math"

	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/iwvelando/drone-power/pkg/powermodel"
)

// Outcome tags how an iteration ended.
type Outcome int

const (
	// Converged means two successive iterates differ by less than the tolerance.
	Converged Outcome = iota
	// StationaryDerivative means |g'(v)| fell below the refusal threshold.
	StationaryDerivative
	// DomainExit means the iterate left the positive velocity domain.
	DomainExit
	// IterationExhausted means the iteration budget ran out.
	IterationExhausted
)

func (o Outcome) String() string {
	switch o {
	case Converged:
		return "converged"
	case StationaryDerivative:
		return "stationary-derivative"
	case DomainExit:
		return "domain-exit"
	case IterationExhausted:
		return "iteration-exhausted"
	default:
		return "unknown"
	}
}

// Result is the outcome of a solve. When Converged is false, Value is the
// last iterate and carries no guarantee.
type Result struct {
	Value      float64
	Converged  bool
	Outcome    Outcome
	Iterations int
}

// Func is a scalar function with its derivative.
type Func struct {
	F  func(float64) float64
	DF func(float64) float64
}

// Stationarity returns g and g' of the power model bound to c1 and c2.
func Stationarity(c1, c2 float64) Func {
	return Func{
		F:  func(v float64) float64 { return powermodel.Stationarity(v, c1, c2) },
		DF: func(v float64) float64 { return powermodel.StationarityDerivative(v, c1, c2) },
	}
}

// Solve runs Newton-Raphson on the stationarity condition of the power model.
func Solve(c1, c2, v0, tolerance float64, maxIterations int) Result {
	return Newton(Stationarity(c1, c2), v0, tolerance, maxIterations)
}

// Newton iterates v_next = v - f(v)/f'(v) starting at v0. Iterates must stay
// strictly positive; a non-positive step or an iterate inside the velocity
// epsilon ends the iteration with DomainExit instead of evaluating the
// function near its singularity.
func Newton(fn Func, v0, tolerance float64, maxIterations int) Result {
	v := v0
	for i := 0; i < maxIterations; i++ {
		if v <= constants.VelocityEpsilon {
			return Result{Value: v, Outcome: DomainExit, Iterations: i}
		}

		f := fn.F(v)
		fp := fn.DF(v)
		if math.Abs(fp) < constants.StationaryDerivativeThreshold {
			return Result{Value: v, Outcome: StationaryDerivative, Iterations: i}
		}

		next := v - f/fp
		if next <= 0 || math.IsNaN(next) {
			return Result{Value: v, Outcome: DomainExit, Iterations: i + 1}
		}

		if math.Abs(next-v) < tolerance {
			return Result{Value: next, Converged: true, Outcome: Converged, Iterations: i + 1}
		}
		v = next
	}
	return Result{Value: v, Outcome: IterationExhausted, Iterations: maxIterations}
}

// OptimumOrFallback returns the solved velocity when the solve converged and
// the closed-form optimum (c2/c1)^0.25 otherwise.
func OptimumOrFallback(res Result, c1, c2 float64) float64 {
	if res.Converged {
		return res.Value
	}
	return powermodel.AnalyticOptimum(c1, c2)
}
