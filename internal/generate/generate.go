// Package generate writes synthetic case files for exercising the analysis.
package generate

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/iwvelando/drone-power/internal/cases"
	"github.com/iwvelando/drone-power/pkg/constants"
	"go.uber.org/zap"
)

// Options controls the generated cases.
type Options struct {
	Count         int
	Seed          int64 // 0 seeds from the clock
	Tolerance     float64
	MaxIterations int
}

// DefaultOptions returns the generator defaults.
func DefaultOptions() Options {
	return Options{
		Count:         constants.DefaultGenerateCount,
		Tolerance:     constants.DefaultTolerance,
		MaxIterations: constants.DefaultMaxIterations,
	}
}

// Cases draws opts.Count cases with c1 in [0.05, 0.5), c2 in [100, 500) and
// v0 in [1, 15). The same non-zero seed always yields the same cases.
func Cases(opts Options) []cases.TestCase {
	seed := uint64(opts.Seed)
	if opts.Seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	uniform := func(lo, hi float64) float64 {
		return lo + (hi-lo)*rng.Float64()
	}

	list := make([]cases.TestCase, 0, opts.Count)
	for i := 0; i < opts.Count; i++ {
		list = append(list, cases.TestCase{
			C1:            uniform(constants.MinC1, constants.MaxC1),
			C2:            uniform(constants.MinC2, constants.MaxC2),
			V0:            uniform(constants.MinV0, constants.MaxV0),
			Tolerance:     opts.Tolerance,
			MaxIterations: opts.MaxIterations,
		})
	}
	return list
}

// WriteFile generates cases and writes them to path, creating parent
// directories as needed.
func WriteFile(logger *zap.Logger, path string, opts Options) error {
	if logger == nil {
		logger = zap.NewNop()
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create case file %s: %w", path, err)
	}

	list := Cases(opts)
	if err := cases.Write(f, list); err != nil {
		_ = f.Close()
		return fmt.Errorf("failed to write case file %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close case file %s: %w", path, err)
	}

	logger.Info(fmt.Sprintf("generated %d cases", len(list)),
		zap.String("op", "generate.WriteFile"),
		zap.String("path", path),
	)
	return nil
}
