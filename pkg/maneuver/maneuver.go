// Package maneuver describes the velocity ramp flown between the start
// velocity and the optimum, and the power drawn along it.
package maneuver

import (
	"fmt"
	"math"

	"github.com/iwvelando/drone-power/pkg/calculus"
	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/iwvelando/drone-power/pkg/powermodel"
	"gonum.org/v1/gonum/floats"
)

// Ramp is a smooth ease-in from StartVelocity to TargetVelocity over Duration
// seconds: v(t) = v_start + (v_target - v_start) * sin^2(pi*t / 2T).
type Ramp struct {
	StartVelocity  float64
	TargetVelocity float64
	Duration       float64
}

// NewRamp returns a ramp from the default start velocity over the default
// duration.
func NewRamp(target float64) Ramp {
	return Ramp{
		StartVelocity:  constants.DefaultStartVelocity,
		TargetVelocity: target,
		Duration:       constants.DefaultManeuverDuration,
	}
}

// Velocity returns v(t).
func (r Ramp) Velocity(t float64) float64 {
	s := math.Sin(math.Pi * t / (2 * r.Duration))
	return r.StartVelocity + (r.TargetVelocity-r.StartVelocity)*s*s
}

// Power returns the instantaneous power P(v(t)) for the given coefficients.
func (r Ramp) Power(c powermodel.Coefficients) func(float64) float64 {
	return func(t float64) float64 {
		return powermodel.Power(r.Velocity(t), c.C1, c.C2)
	}
}

// Energy integrates the power drawn along the ramp over [0, Duration] with a
// Romberg table of the given depth.
func (r Ramp) Energy(c powermodel.Coefficients, levels int) (float64, error) {
	if r.Duration <= 0 {
		return 0, fmt.Errorf("maneuver duration must be positive, got %v", r.Duration)
	}
	return calculus.Romberg(r.Power(c), 0, r.Duration, levels)
}

// Profile is the ramp sampled on an evenly spaced time grid.
type Profile struct {
	Time     []float64
	Velocity []float64
	Power    []float64
}

// Sample evaluates velocity and power at n evenly spaced times in
// [0, Duration]. n must be at least 2.
func (r Ramp) Sample(c powermodel.Coefficients, n int) (Profile, error) {
	if n < 2 {
		return Profile{}, fmt.Errorf("profile needs at least 2 samples, got %d", n)
	}
	p := Profile{
		Time:     make([]float64, n),
		Velocity: make([]float64, n),
		Power:    make([]float64, n),
	}
	floats.Span(p.Time, 0, r.Duration)
	for i, t := range p.Time {
		v := r.Velocity(t)
		p.Velocity[i] = v
		p.Power[i] = powermodel.Power(v, c.C1, c.C2)
	}
	return p, nil
}
