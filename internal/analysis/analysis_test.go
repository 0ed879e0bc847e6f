package analysis

import (
	"math"
	"testing"

	"github.com/iwvelando/drone-power/internal/cases"
	"github.com/iwvelando/drone-power/internal/config"
	"github.com/iwvelando/drone-power/pkg/powermodel"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats/scalar"
)

func newTestRunner(t *testing.T) *Runner {
	t.Helper()
	runner, err := NewRunner(zap.NewNop(), DefaultSettings())
	if err != nil {
		t.Fatalf("NewRunner() error = %v", err)
	}
	return runner
}

func TestRunUnitCase(t *testing.T) {
	tc, err := cases.ParseLine("1.0 1.0 1.0 0.0001 100")
	if err != nil {
		t.Fatalf("ParseLine() error = %v", err)
	}

	res, err := newTestRunner(t).Run(1, tc)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if !res.Converged {
		t.Fatalf("Run() did not converge: %s", res.Outcome)
	}
	if math.Abs(res.Optimum-1.0) > 1e-9 {
		t.Errorf("Optimum = %v, expected 1.0", res.Optimum)
	}
	if math.Abs(res.AnalyticOptimum-1.0) > 1e-12 {
		t.Errorf("AnalyticOptimum = %v, expected 1.0", res.AnalyticOptimum)
	}
	if math.Abs(res.DerivativeNumeric-2.0) > 1e-6 {
		t.Errorf("DerivativeNumeric = %v, expected 2.0", res.DerivativeNumeric)
	}
	if math.Abs(res.DerivativeAnalytic-2.0) > 1e-9 {
		t.Errorf("DerivativeAnalytic = %v, expected 2.0", res.DerivativeAnalytic)
	}
	if math.Abs(res.Energy-20.0) > 1e-9 {
		t.Errorf("Energy = %v, expected 20.0", res.Energy)
	}
	if res.Index != 1 || res.Case != tc {
		t.Errorf("Run() did not carry index and case: %+v", res)
	}
	if len(res.Profile.Time) != DefaultSettings().ProfileSamples {
		t.Errorf("Profile samples = %d, expected %d", len(res.Profile.Time), DefaultSettings().ProfileSamples)
	}
}

func TestRunNonConvergenceUsesAnalyticOptimum(t *testing.T) {
	tc := cases.TestCase{C1: 0.2, C2: 250, V0: 3, Tolerance: 1e-6, MaxIterations: 0}

	res, err := newTestRunner(t).Run(1, tc)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Converged {
		t.Fatal("Run() with zero iterations reported convergence")
	}
	if res.Outcome != "iteration-exhausted" {
		t.Errorf("Outcome = %s, expected iteration-exhausted", res.Outcome)
	}
	if res.SolvedVelocity != 3 {
		t.Errorf("SolvedVelocity = %v, expected initial guess 3", res.SolvedVelocity)
	}
	want := powermodel.AnalyticOptimum(tc.C1, tc.C2)
	if res.Optimum != want {
		t.Errorf("Optimum = %v, expected analytic %v", res.Optimum, want)
	}
	if got := res.DerivativeAnalytic; math.Abs(got-powermodel.PowerDerivative(want, tc.C1, tc.C2)) > 1e-12 {
		t.Errorf("DerivativeAnalytic = %v, expected derivative at analytic optimum", got)
	}
	if last := res.Profile.Velocity[len(res.Profile.Velocity)-1]; math.Abs(last-want) > 1e-9 {
		t.Errorf("profile ends at %v, expected analytic optimum %v", last, want)
	}
}

func TestRunDomainExitUsesAnalyticOptimum(t *testing.T) {
	tc := cases.TestCase{C1: 1, C2: 1, V0: -2, Tolerance: 1e-6, MaxIterations: 50}

	res, err := newTestRunner(t).Run(3, tc)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Converged || res.Outcome != "domain-exit" {
		t.Errorf("Outcome = %s (converged %v), expected domain-exit", res.Outcome, res.Converged)
	}
	if res.Optimum != 1 {
		t.Errorf("Optimum = %v, expected analytic 1", res.Optimum)
	}
}

func TestRunSyntheticCases(t *testing.T) {
	runner := newTestRunner(t)
	list := []cases.TestCase{
		{C1: 0.05, C2: 500, V0: 7.5, Tolerance: 1e-6, MaxIterations: 100},
		{C1: 0.5, C2: 100, V0: 14, Tolerance: 1e-6, MaxIterations: 100},
		{C1: 0.3, C2: 320, V0: 1, Tolerance: 1e-6, MaxIterations: 100},
	}

	for i, tc := range list {
		res, err := runner.Run(i+1, tc)
		if err != nil {
			t.Fatalf("Run() error = %v", err)
		}
		if !res.Converged {
			t.Errorf("case %d did not converge: %s", i+1, res.Outcome)
		}
		if !scalar.EqualWithinRel(res.Optimum, res.AnalyticOptimum, 1e-3) {
			t.Errorf("case %d optimum = %v, expected %v", i+1, res.Optimum, res.AnalyticOptimum)
		}
		if !scalar.EqualWithinAbsOrRel(res.DerivativeNumeric, res.DerivativeAnalytic, 1e-5, 1e-6) {
			t.Errorf("case %d derivative = %v, expected %v", i+1, res.DerivativeNumeric, res.DerivativeAnalytic)
		}
		if !(res.Energy > 0) || math.IsInf(res.Energy, 0) {
			t.Errorf("case %d energy = %v, expected positive finite", i+1, res.Energy)
		}
	}
}

func TestRunAllSkipsInvalidCoefficients(t *testing.T) {
	list := []cases.TestCase{
		{C1: 1, C2: 1, V0: 1, Tolerance: 1e-4, MaxIterations: 100},
		{C1: -1, C2: 1, V0: 1, Tolerance: 1e-4, MaxIterations: 100},
		{C1: 0.1, C2: 200, V0: 4, Tolerance: 1e-6, MaxIterations: 100},
	}

	results := newTestRunner(t).RunAll(list)
	if len(results) != 2 {
		t.Fatalf("RunAll() returned %d results, expected 2", len(results))
	}
	if results[0].Index != 1 || results[1].Index != 3 {
		t.Errorf("RunAll() indices = %d, %d, expected 1, 3", results[0].Index, results[1].Index)
	}
}

func TestNewRunnerRejectsInvalidSettings(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Settings)
	}{
		{"Zero step", func(s *Settings) { s.Step = 0 }},
		{"Zero levels", func(s *Settings) { s.RombergLevels = 0 }},
		{"Too many levels", func(s *Settings) { s.RombergLevels = 100 }},
		{"Zero duration", func(s *Settings) { s.Duration = 0 }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := DefaultSettings()
			tt.modify(&s)
			if _, err := NewRunner(nil, s); err == nil {
				t.Errorf("NewRunner() expected error but got none")
			}
		})
	}
}

func TestSettingsFromConfig(t *testing.T) {
	conf := config.Default()
	if got := SettingsFromConfig(*conf); got != DefaultSettings() {
		t.Errorf("SettingsFromConfig(defaults) = %+v, expected %+v", got, DefaultSettings())
	}

	conf.Maneuver.Duration = 30
	conf.Integration.RombergLevels = 8
	got := SettingsFromConfig(*conf)
	if got.Duration != 30 || got.RombergLevels != 8 {
		t.Errorf("SettingsFromConfig() = %+v, expected overrides", got)
	}
}
