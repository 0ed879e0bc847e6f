// Package powermodel holds the analytic power-versus-velocity model
// P(v) = c1*v^3 + c2/v and the stationarity condition used to locate its
// optimum.
package powermodel

import (
	"math"

	"github.com/iwvelando/drone-power/pkg/constants"
)

// Coefficients are the two physical coefficients of the model.
type Coefficients struct {
	C1 float64
	C2 float64
}

// Valid reports whether both coefficients are positive, which is required
// for a physically meaningful optimum.
func (c Coefficients) Valid() bool {
	return c.C1 > 0 && c.C2 > 0
}

// Power returns P(v). Velocities at or below the domain epsilon yield 0.
func Power(v, c1, c2 float64) float64 {
	if v <= constants.VelocityEpsilon {
		return 0
	}
	return c1*v*v*v + c2/v
}

// PowerDerivative returns the closed-form dP/dv = 3*c1*v^2 - c2/v^2.
// It is only used to cross-check numerical differentiation.
func PowerDerivative(v, c1, c2 float64) float64 {
	return 3*c1*v*v - c2/(v*v)
}

// Stationarity returns g(v) = 2*c1*v - 2*c2/v^3, the function whose root is
// searched by the root finder.
func Stationarity(v, c1, c2 float64) float64 {
	if v <= constants.VelocityEpsilon {
		return constants.DomainSentinel
	}
	return 2*c1*v - 2*c2/(v*v*v)
}

// StationarityDerivative returns g'(v) = 2*c1 + 6*c2/v^4.
func StationarityDerivative(v, c1, c2 float64) float64 {
	if v <= constants.VelocityEpsilon {
		return constants.DomainSentinel
	}
	v2 := v * v
	return 2*c1 + 6*c2/(v2*v2)
}

// AnalyticOptimum returns the closed-form root (c2/c1)^0.25.
func AnalyticOptimum(c1, c2 float64) float64 {
	return math.Pow(c2/c1, 0.25)
}

// Power binds the coefficients into P(v).
func (c Coefficients) Power() func(float64) float64 {
	return func(v float64) float64 {
		return Power(v, c.C1, c.C2)
	}
}

// PowerDerivative binds the coefficients into dP/dv.
func (c Coefficients) PowerDerivative() func(float64) float64 {
	return func(v float64) float64 {
		return PowerDerivative(v, c.C1, c.C2)
	}
}

// AnalyticOptimum returns (c2/c1)^0.25 for these coefficients.
func (c Coefficients) AnalyticOptimum() float64 {
	return AnalyticOptimum(c.C1, c.C2)
}
