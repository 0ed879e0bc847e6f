package config

import (
	"fmt"

	"github.com/iwvelando/drone-power/pkg/constants"
)

// minimumStep is the smallest difference step that still keeps the
// cancellation error of the fourth-order stencil below its truncation error
// for the magnitudes this model produces.
const minimumStep = 1e-4

// Normalize replaces values that cannot drive an analysis with defaults and
// returns a warning for every replacement.
func (c *Configuration) Normalize() []string {
	var warnings []string
	d := Default()

	if c.Input.File == "" {
		c.Input.File = d.Input.File
	}
	if c.Differentiation.Step <= 0 {
		warnings = append(warnings, fmt.Sprintf("differentiation step %v is not positive, using %v",
			c.Differentiation.Step, d.Differentiation.Step))
		c.Differentiation.Step = d.Differentiation.Step
	}
	if c.Integration.RombergLevels < 1 || c.Integration.RombergLevels > constants.MaxRombergLevels {
		warnings = append(warnings, fmt.Sprintf("romberg levels %d outside [1, %d], using %d",
			c.Integration.RombergLevels, constants.MaxRombergLevels, d.Integration.RombergLevels))
		c.Integration.RombergLevels = d.Integration.RombergLevels
	}
	if c.Maneuver.Duration <= 0 {
		warnings = append(warnings, fmt.Sprintf("maneuver duration %v is not positive, using %v",
			c.Maneuver.Duration, d.Maneuver.Duration))
		c.Maneuver.Duration = d.Maneuver.Duration
	}
	if c.Maneuver.StartVelocity <= constants.VelocityEpsilon {
		warnings = append(warnings, fmt.Sprintf("maneuver start velocity %v is not positive, using %v",
			c.Maneuver.StartVelocity, d.Maneuver.StartVelocity))
		c.Maneuver.StartVelocity = d.Maneuver.StartVelocity
	}
	if c.Maneuver.Samples < 2 {
		c.Maneuver.Samples = d.Maneuver.Samples
	}
	if c.Solver.DefaultTolerance <= 0 {
		c.Solver.DefaultTolerance = d.Solver.DefaultTolerance
	}
	if c.Solver.DefaultMaxIterations < 0 {
		c.Solver.DefaultMaxIterations = d.Solver.DefaultMaxIterations
	}
	if c.Generate.Count < 0 {
		c.Generate.Count = d.Generate.Count
	}
	if c.Output.Format == "" {
		c.Output.Format = d.Output.Format
	}
	if c.Server.Address == "" {
		c.Server.Address = d.Server.Address
	}
	return warnings
}

// ValidateConfiguration performs general validation of the configuration and
// returns warnings. None of them stop a run.
func (c *Configuration) ValidateConfiguration() []string {
	var warnings []string

	if c.Differentiation.Step > 0 && c.Differentiation.Step < minimumStep {
		warnings = append(warnings, fmt.Sprintf("differentiation step %v is below %v and may lose accuracy to cancellation",
			c.Differentiation.Step, minimumStep))
	}
	if c.Differentiation.Step > 0.5 {
		warnings = append(warnings, fmt.Sprintf("differentiation step %v is large; the stencil may leave the model domain near small optima",
			c.Differentiation.Step))
	}
	if c.Integration.RombergLevels > 16 {
		warnings = append(warnings, fmt.Sprintf("romberg levels %d evaluate %d trapezoid subintervals at the finest level",
			c.Integration.RombergLevels, 1<<(c.Integration.RombergLevels-1)))
	}
	if c.Maneuver.Samples > 0 && c.Maneuver.Samples < 10 {
		warnings = append(warnings, fmt.Sprintf("maneuver profile has only %d samples", c.Maneuver.Samples))
	}
	if c.Generate.Count == 0 {
		warnings = append(warnings, "generator count is 0; generated files will be empty")
	}
	return warnings
}
