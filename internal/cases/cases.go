// Package cases reads analysis cases from a whitespace-delimited text source.
//
// Every non-blank line holds five fields in order:
//
//	c1 c2 v0 tolerance maxIterations
//
// A line that does not parse into exactly these fields is reported and
// skipped; reading continues with the next line.
package cases

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// FieldCount is the number of fields in a case record.
const FieldCount = 5

// TestCase is one parameter record.
type TestCase struct {
	C1            float64 `json:"c1" yaml:"c1"`
	C2            float64 `json:"c2" yaml:"c2"`
	V0            float64 `json:"v0" yaml:"v0"`
	Tolerance     float64 `json:"tolerance" yaml:"tolerance"`
	MaxIterations int     `json:"maxIterations" yaml:"maxIterations"`
}

// Validate checks the physical preconditions of the case. A case that fails
// validation can still be analysed but the optimum is not meaningful.
func (tc TestCase) Validate() error {
	if !(tc.C1 > 0) || !(tc.C2 > 0) {
		return fmt.Errorf("coefficients must be positive, got c1=%v c2=%v", tc.C1, tc.C2)
	}
	if !(tc.V0 > 0) {
		return fmt.Errorf("initial velocity must be positive, got %v", tc.V0)
	}
	if !(tc.Tolerance > 0) {
		return fmt.Errorf("tolerance must be positive, got %v", tc.Tolerance)
	}
	if tc.MaxIterations < 0 {
		return fmt.Errorf("max iterations must not be negative, got %d", tc.MaxIterations)
	}
	return nil
}

// String renders the case in the input format.
func (tc TestCase) String() string {
	return fmt.Sprintf("%s %s %s %s %d",
		strconv.FormatFloat(tc.C1, 'g', -1, 64),
		strconv.FormatFloat(tc.C2, 'g', -1, 64),
		strconv.FormatFloat(tc.V0, 'g', -1, 64),
		strconv.FormatFloat(tc.Tolerance, 'g', -1, 64),
		tc.MaxIterations)
}

// ParseError describes a malformed input line.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("line %d: %v", e.Line, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// ErrFieldCount is wrapped by a ParseError when a line has the wrong number
// of fields.
var ErrFieldCount = errors.New("wrong number of fields")

// ParseLine parses one record.
func ParseLine(line string) (TestCase, error) {
	fields := strings.Fields(line)
	if len(fields) != FieldCount {
		return TestCase{}, fmt.Errorf("%w: expected %d, got %d", ErrFieldCount, FieldCount, len(fields))
	}

	var values [FieldCount - 1]float64
	for i := range values {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return TestCase{}, fmt.Errorf("field %d: %w", i+1, err)
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return TestCase{}, fmt.Errorf("field %d: value %q is not finite", i+1, fields[i])
		}
		values[i] = v
	}

	maxIter, err := parseIterations(fields[FieldCount-1])
	if err != nil {
		return TestCase{}, fmt.Errorf("field %d: %w", FieldCount, err)
	}

	return TestCase{
		C1:            values[0],
		C2:            values[1],
		V0:            values[2],
		Tolerance:     values[3],
		MaxIterations: maxIter,
	}, nil
}

// parseIterations accepts an integer, or an integral float such as "100.0"
// which is how some generators write the count.
func parseIterations(field string) (int, error) {
	if n, err := strconv.Atoi(field); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(field, 64)
	if err != nil {
		return 0, err
	}
	if f != math.Trunc(f) || math.Abs(f) > math.MaxInt32 {
		return 0, fmt.Errorf("max iterations %q is not an integer", field)
	}
	return int(f), nil
}

// Read parses every record of r. Malformed lines are logged, collected as
// ParseErrors and skipped. The returned error is only set when r itself fails.
func Read(logger *zap.Logger, r io.Reader) ([]TestCase, []*ParseError, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	var (
		parsed    []TestCase
		badRecord []*ParseError
	)
	scanner := bufio.NewScanner(r)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		text := scanner.Text()
		trimmed := strings.TrimSpace(text)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		tc, err := ParseLine(trimmed)
		if err != nil {
			perr := &ParseError{Line: lineNo, Text: text, Err: err}
			logger.Warn("skipping malformed case record",
				zap.String("op", "cases.Read"),
				zap.Int("line", lineNo),
				zap.Error(err),
			)
			badRecord = append(badRecord, perr)
			continue
		}
		parsed = append(parsed, tc)
	}
	if err := scanner.Err(); err != nil {
		return parsed, badRecord, fmt.Errorf("failed to read cases: %w", err)
	}

	logger.Debug(fmt.Sprintf("read %d cases, skipped %d records", len(parsed), len(badRecord)),
		zap.String("op", "cases.Read"),
	)
	return parsed, badRecord, nil
}

// ReadFile opens path and reads its records. A missing file is returned as an
// error wrapping fs.ErrNotExist.
func ReadFile(logger *zap.Logger, path string) ([]TestCase, []*ParseError, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open case file %s: %w", path, err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Read(logger, f)
}

// Write renders cases in the input format, one per line.
func Write(w io.Writer, list []TestCase) error {
	bw := bufio.NewWriter(w)
	for _, tc := range list {
		if _, err := fmt.Fprintln(bw, tc.String()); err != nil {
			return err
		}
	}
	return bw.Flush()
}
