// Package optimization provides shared data structures for optimization results.
package optimization

import (
	"fmt"
	"math"

	"github.com/iwvelando/drone-power/internal/analysis"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Summary captures the optimum search over a batch of cases.
type Summary struct {
	Cases                 int            `json:"cases"`
	Converged             int            `json:"converged"`
	Outcomes              map[string]int `json:"outcomes"`
	MeanIterations        float64        `json:"meanIterations"`
	MaxOptimumError       float64        `json:"maxOptimumError"`       // over converged cases
	MaxDerivativeResidual float64        `json:"maxDerivativeResidual"` // |dP/dv| at the optimum
	TotalEnergy           float64        `json:"totalEnergy"`
	Notes                 []string       `json:"notes,omitempty"`
}

// Summarize aggregates results.
func Summarize(results []analysis.Result) Summary {
	s := Summary{
		Cases:    len(results),
		Outcomes: make(map[string]int),
	}
	if len(results) == 0 {
		return s
	}

	iterations := make([]float64, len(results))
	energies := make([]float64, len(results))
	for i, r := range results {
		s.Outcomes[r.Outcome]++
		iterations[i] = float64(r.Iterations)
		energies[i] = r.Energy
		s.MaxDerivativeResidual = math.Max(s.MaxDerivativeResidual, math.Abs(r.DerivativeNumeric))
		if r.Converged {
			s.Converged++
			s.MaxOptimumError = math.Max(s.MaxOptimumError, math.Abs(r.Optimum-r.AnalyticOptimum))
			continue
		}
		s.Notes = append(s.Notes, fmt.Sprintf("case %d used the analytic optimum (%s)", r.Index, r.Outcome))
	}
	s.MeanIterations = stat.Mean(iterations, nil)
	s.TotalEnergy = floats.Sum(energies)
	return s
}
