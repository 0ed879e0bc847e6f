// Package analysis runs the per-case pipeline: locate the optimal velocity,
// differentiate the power model there and integrate the energy of the ramp
// maneuver towards it.
package analysis

import (
	"fmt"

	"github.com/iwvelando/drone-power/internal/cases"
	"github.com/iwvelando/drone-power/internal/config"
	"github.com/iwvelando/drone-power/pkg/calculus"
	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/iwvelando/drone-power/pkg/maneuver"
	"github.com/iwvelando/drone-power/pkg/powermodel"
	"github.com/iwvelando/drone-power/pkg/rootfind"
	"go.uber.org/zap"
)

// Settings are the fixed parameters shared by every case of a run.
type Settings struct {
	Step           float64 // centered difference step h
	RombergLevels  int
	Duration       float64 // maneuver length T in seconds
	StartVelocity  float64 // m/s
	ProfileSamples int     // 0 disables profile sampling
}

// DefaultSettings returns the settings of the reference analysis.
func DefaultSettings() Settings {
	return Settings{
		Step:           constants.DefaultDifferentiationStep,
		RombergLevels:  constants.DefaultRombergLevels,
		Duration:       constants.DefaultManeuverDuration,
		StartVelocity:  constants.DefaultStartVelocity,
		ProfileSamples: constants.DefaultProfileSamples,
	}
}

// SettingsFromConfig extracts the analysis settings from a normalized
// configuration.
func SettingsFromConfig(conf config.Configuration) Settings {
	return Settings{
		Step:           conf.Differentiation.Step,
		RombergLevels:  conf.Integration.RombergLevels,
		Duration:       conf.Maneuver.Duration,
		StartVelocity:  conf.Maneuver.StartVelocity,
		ProfileSamples: conf.Maneuver.Samples,
	}
}

// Result holds everything computed for one case.
type Result struct {
	Index              int              `json:"index"` // 1-based position in the input
	Case               cases.TestCase   `json:"case"`
	SolvedVelocity     float64          `json:"solvedVelocity"` // last Newton iterate
	Optimum            float64          `json:"optimum"`        // velocity used downstream
	AnalyticOptimum    float64          `json:"analyticOptimum"`
	Converged          bool             `json:"converged"`
	Outcome            string           `json:"outcome"`
	Iterations         int              `json:"iterations"`
	DerivativeNumeric  float64          `json:"derivativeNumeric"`
	DerivativeAnalytic float64          `json:"derivativeAnalytic"`
	Energy             float64          `json:"energy"`
	Profile            maneuver.Profile `json:"-"`
}

// Runner analyses cases one at a time. It holds no state between cases.
type Runner struct {
	logger   *zap.Logger
	settings Settings
}

// NewRunner constructs a Runner.
func NewRunner(logger *zap.Logger, settings Settings) (*Runner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if settings.Step <= 0 {
		return nil, fmt.Errorf("differentiation step must be positive, got %v", settings.Step)
	}
	if settings.RombergLevels < 1 || settings.RombergLevels > constants.MaxRombergLevels {
		return nil, fmt.Errorf("romberg levels must be in [1, %d], got %d", constants.MaxRombergLevels, settings.RombergLevels)
	}
	if settings.Duration <= 0 {
		return nil, fmt.Errorf("maneuver duration must be positive, got %v", settings.Duration)
	}
	return &Runner{logger: logger, settings: settings}, nil
}

// Run analyses a single case. Non-convergence of the root finder is not an
// error: the closed-form optimum replaces the iterate for every later stage.
func (r *Runner) Run(index int, tc cases.TestCase) (Result, error) {
	coeffs := powermodel.Coefficients{C1: tc.C1, C2: tc.C2}
	if !coeffs.Valid() {
		return Result{}, fmt.Errorf("case %d: coefficients must be positive, got c1=%v c2=%v", index, tc.C1, tc.C2)
	}
	if err := tc.Validate(); err != nil {
		r.logger.Warn(fmt.Sprintf("case %d: %v", index, err),
			zap.String("op", "analysis.Run"),
		)
	}

	res := Result{Index: index, Case: tc}

	root := rootfind.Solve(tc.C1, tc.C2, tc.V0, tc.Tolerance, tc.MaxIterations)
	res.SolvedVelocity = root.Value
	res.Converged = root.Converged
	res.Outcome = root.Outcome.String()
	res.Iterations = root.Iterations
	res.AnalyticOptimum = coeffs.AnalyticOptimum()
	res.Optimum = rootfind.OptimumOrFallback(root, tc.C1, tc.C2)
	if !root.Converged {
		r.logger.Info(fmt.Sprintf("case %d: root finder stopped without converging, using analytic optimum", index),
			zap.String("op", "analysis.Run"),
			zap.String("outcome", res.Outcome),
			zap.Int("iterations", root.Iterations),
			zap.Float64("lastIterate", root.Value),
			zap.Float64("analyticOptimum", res.AnalyticOptimum),
		)
	}

	res.DerivativeNumeric = calculus.Derivative(coeffs.Power(), res.Optimum, r.settings.Step)
	res.DerivativeAnalytic = powermodel.PowerDerivative(res.Optimum, tc.C1, tc.C2)

	ramp := maneuver.Ramp{
		StartVelocity:  r.settings.StartVelocity,
		TargetVelocity: res.Optimum,
		Duration:       r.settings.Duration,
	}
	energy, err := ramp.Energy(coeffs, r.settings.RombergLevels)
	if err != nil {
		return Result{}, fmt.Errorf("case %d: %w", index, err)
	}
	res.Energy = energy

	if r.settings.ProfileSamples >= 2 {
		profile, err := ramp.Sample(coeffs, r.settings.ProfileSamples)
		if err != nil {
			return Result{}, fmt.Errorf("case %d: %w", index, err)
		}
		res.Profile = profile
	}

	r.logger.Debug(fmt.Sprintf("case %d analysed", index),
		zap.String("op", "analysis.Run"),
		zap.Float64("optimum", res.Optimum),
		zap.Float64("derivative", res.DerivativeNumeric),
		zap.Float64("energy", res.Energy),
	)
	return res, nil
}

// RunAll analyses the cases in input order. Cases that cannot be analysed are
// logged and omitted; the indices of the remaining results keep their input
// positions.
func (r *Runner) RunAll(list []cases.TestCase) []Result {
	results := make([]Result, 0, len(list))
	for i, tc := range list {
		res, err := r.Run(i+1, tc)
		if err != nil {
			r.logger.Warn("skipping case",
				zap.String("op", "analysis.RunAll"),
				zap.Error(err),
			)
			continue
		}
		results = append(results, res)
	}
	return results
}
