package rootfind

import (
	"math"
	"testing"

	"github.com/iwvelando/drone-power/pkg/powermodel"
	"gonum.org/v1/gonum/floats/scalar"
)

func TestSolveConverges(t *testing.T) {
	tests := []struct {
		name      string
		c1        float64
		c2        float64
		v0        float64
		tolerance float64
	}{
		{"Equal coefficients", 1.0, 1.0, 1.0, 1e-4},
		{"Equal coefficients far guess", 1.0, 1.0, 3.0, 1e-8},
		{"Synthetic low c1", 0.05, 500.0, 7.5, 1e-6},
		{"Synthetic high c1", 0.5, 100.0, 2.0, 1e-6},
		{"Guess below optimum", 0.2, 250.0, 1.0, 1e-6},
		{"Guess above optimum", 0.2, 250.0, 15.0, 1e-6},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Solve(tt.c1, tt.c2, tt.v0, tt.tolerance, 100)
			if !res.Converged {
				t.Fatalf("Solve() did not converge: outcome %s after %d iterations", res.Outcome, res.Iterations)
			}
			if res.Outcome != Converged {
				t.Errorf("Solve() outcome = %s, expected converged", res.Outcome)
			}
			want := powermodel.AnalyticOptimum(tt.c1, tt.c2)
			if !scalar.EqualWithinRel(res.Value, want, 1e-3) {
				t.Errorf("Solve() = %v, expected %v", res.Value, want)
			}
			// Newton converges quadratically, so the residual is far below the step tolerance.
			g := powermodel.Stationarity(res.Value, tt.c1, tt.c2)
			gp := powermodel.StationarityDerivative(res.Value, tt.c1, tt.c2)
			if math.Abs(g/gp) > tt.tolerance {
				t.Errorf("Solve() residual step |g/g'| = %v exceeds tolerance %v", math.Abs(g/gp), tt.tolerance)
			}
		})
	}
}

func TestSolveUnitCase(t *testing.T) {
	res := Solve(1.0, 1.0, 1.0, 0.0001, 100)
	if !res.Converged {
		t.Fatalf("Solve(1,1,1) did not converge: %s", res.Outcome)
	}
	if math.Abs(res.Value-1.0) > 1e-9 {
		t.Errorf("Solve(1,1,1) = %v, expected 1.0", res.Value)
	}
	if res.Iterations != 1 {
		t.Errorf("Solve(1,1,1) iterations = %d, expected 1", res.Iterations)
	}
}

func TestSolveFailureOutcomes(t *testing.T) {
	tests := []struct {
		name          string
		fn            Func
		v0            float64
		maxIterations int
		expected      Outcome
		expectedValue float64
	}{
		{
			name:          "Zero iteration budget",
			fn:            Stationarity(1, 1),
			v0:            2.5,
			maxIterations: 0,
			expected:      IterationExhausted,
			expectedValue: 2.5,
		},
		{
			name:          "Non-positive initial guess",
			fn:            Stationarity(1, 1),
			v0:            0,
			maxIterations: 10,
			expected:      DomainExit,
			expectedValue: 0,
		},
		{
			name: "Flat derivative",
			fn: Func{
				F:  func(float64) float64 { return 1 },
				DF: func(float64) float64 { return 1e-12 },
			},
			v0:            3,
			maxIterations: 10,
			expected:      StationaryDerivative,
			expectedValue: 3,
		},
		{
			name: "Step leaves positive domain",
			fn: Func{
				F:  func(v float64) float64 { return v + 1 },
				DF: func(float64) float64 { return 1 },
			},
			v0:            2,
			maxIterations: 10,
			expected:      DomainExit,
			expectedValue: 2,
		},
		{
			name: "Budget too small",
			fn: Func{
				F:  func(v float64) float64 { return v*v - 2 },
				DF: func(v float64) float64 { return 2 * v },
			},
			v0:            100,
			maxIterations: 2,
			expected:      IterationExhausted,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Newton(tt.fn, tt.v0, 1e-9, tt.maxIterations)
			if res.Converged {
				t.Fatalf("Newton() converged to %v, expected %s", res.Value, tt.expected)
			}
			if res.Outcome != tt.expected {
				t.Errorf("Newton() outcome = %s, expected %s", res.Outcome, tt.expected)
			}
			if tt.expectedValue != 0 && res.Value != tt.expectedValue {
				t.Errorf("Newton() value = %v, expected %v", res.Value, tt.expectedValue)
			}
		})
	}
}

func TestOptimumOrFallback(t *testing.T) {
	res := Solve(0.1, 400, 5, 1e-6, 0)
	if res.Converged {
		t.Fatalf("Solve() with zero budget converged")
	}
	got := OptimumOrFallback(res, 0.1, 400)
	want := powermodel.AnalyticOptimum(0.1, 400)
	if got != want {
		t.Errorf("OptimumOrFallback() = %v, expected %v", got, want)
	}

	converged := Result{Value: 4.2, Converged: true}
	if got := OptimumOrFallback(converged, 0.1, 400); got != 4.2 {
		t.Errorf("OptimumOrFallback() = %v, expected solved value 4.2", got)
	}
}

func TestOutcomeString(t *testing.T) {
	tests := map[Outcome]string{
		Converged:            "converged",
		StationaryDerivative: "stationary-derivative",
		DomainExit:           "domain-exit",
		IterationExhausted:   "iteration-exhausted",
		Outcome(42):          "unknown",
	}
	for outcome, want := range tests {
		if got := outcome.String(); got != want {
			t.Errorf("Outcome(%d).String() = %q, expected %q", int(outcome), got, want)
		}
	}
}
