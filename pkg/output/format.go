// Package output provides utilities for formatting and displaying analysis
// results.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/iwvelando/drone-power/internal/analysis"
	"github.com/iwvelando/drone-power/internal/cases"
	"github.com/iwvelando/drone-power/pkg/constants"
	"github.com/iwvelando/drone-power/pkg/optimization"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Write renders results in the named format.
func Write(w io.Writer, format string, results []analysis.Result, parseErrors []*cases.ParseError) error {
	switch format {
	case constants.OutputFormatPretty:
		return PrettyFormat(w, results, parseErrors)
	case constants.OutputFormatCSV:
		return CsvFormat(w, results)
	case constants.OutputFormatJSON:
		return JSONFormat(w, results, parseErrors)
	default:
		return fmt.Errorf("unsupported output format %q", format)
	}
}

// PrettyFormat outputs a human-readable report, one block per case.
func PrettyFormat(w io.Writer, results []analysis.Result, parseErrors []*cases.ParseError) error {
	p := message.NewPrinter(language.English)
	rule := strings.Repeat("=", 70)
	for _, r := range results {
		lines := []string{
			rule,
			p.Sprintf("Case %d: c1=%.4f, c2=%.2f, v0=%.2f, tol=%g, maxIter=%d",
				r.Index, r.Case.C1, r.Case.C2, r.Case.V0, r.Case.Tolerance, r.Case.MaxIterations),
			rule,
			p.Sprintf("  v_opt numeric  | %.6f m/s (%s, %d iterations)", r.Optimum, r.Outcome, r.Iterations),
			p.Sprintf("  v_opt analytic | %.6f m/s", r.AnalyticOptimum),
			p.Sprintf("  converged      | %t", r.Converged),
			p.Sprintf("  dP/dv numeric  | %.6f", r.DerivativeNumeric),
			p.Sprintf("  dP/dv analytic | %.6f", r.DerivativeAnalytic),
			p.Sprintf("  energy         | %.6f J", r.Energy),
			"",
		}
		if _, err := io.WriteString(w, strings.Join(lines, "\n")+"\n"); err != nil {
			return err
		}
	}
	if len(results) > 0 {
		sum := optimization.Summarize(results)
		line := p.Sprintf("Summary: %d cases, %d converged, mean %.1f iterations, total energy %.6f J\n",
			sum.Cases, sum.Converged, sum.MeanIterations, sum.TotalEnergy)
		if _, err := io.WriteString(w, line); err != nil {
			return err
		}
	}
	for _, perr := range parseErrors {
		if _, err := fmt.Fprintf(w, "skipped %v\n", perr); err != nil {
			return err
		}
	}
	return nil
}

// CsvHeader lists the CSV columns in order.
var CsvHeader = []string{
	"case", "c1", "c2", "v0", "tolerance", "max_iterations",
	"v_opt_numeric", "v_opt_analytic", "converged", "outcome", "iterations",
	"dp_dv_numeric", "dp_dv_analytic", "energy",
}

// CsvFormat outputs in comma-separated value format.
func CsvFormat(w io.Writer, results []analysis.Result) error {
	quoted := make([]string, len(CsvHeader))
	for i, h := range CsvHeader {
		quoted[i] = `"` + h + `"`
	}
	if _, err := fmt.Fprintln(w, strings.Join(quoted, ",")); err != nil {
		return err
	}
	for _, r := range results {
		_, err := fmt.Fprintf(w, "%d,%g,%g,%g,%g,%d,%.*f,%.*f,%t,\"%s\",%d,%.*f,%.*f,%.*f\n",
			r.Index, r.Case.C1, r.Case.C2, r.Case.V0, r.Case.Tolerance, r.Case.MaxIterations,
			constants.OutputPrecision, r.Optimum,
			constants.OutputPrecision, r.AnalyticOptimum,
			r.Converged, r.Outcome, r.Iterations,
			constants.OutputPrecision, r.DerivativeNumeric,
			constants.OutputPrecision, r.DerivativeAnalytic,
			constants.OutputPrecision, r.Energy,
		)
		if err != nil {
			return err
		}
	}
	return nil
}

// Report is the JSON document written by JSONFormat.
type Report struct {
	Results     []analysis.Result    `json:"results"`
	Summary     optimization.Summary `json:"summary"`
	ParseErrors []string             `json:"parseErrors,omitempty"`
}

// NewReport collects results and parse errors into a Report.
func NewReport(results []analysis.Result, parseErrors []*cases.ParseError) Report {
	report := Report{Results: results}
	if report.Results == nil {
		report.Results = []analysis.Result{}
	}
	report.Summary = optimization.Summarize(report.Results)
	for _, perr := range parseErrors {
		report.ParseErrors = append(report.ParseErrors, perr.Error())
	}
	return report
}

// JSONFormat outputs an indented JSON report.
func JSONFormat(w io.Writer, results []analysis.Result, parseErrors []*cases.ParseError) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(NewReport(results, parseErrors))
}
