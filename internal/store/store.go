// Package store persists analysis results in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/iwvelando/drone-power/internal/analysis"
	"github.com/iwvelando/drone-power/internal/cases"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Driver names registered by the imported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "pgx"
)

// Store writes and reads case results keyed by run.
type Store struct {
	DB     *sql.DB
	driver string
}

// DriverForDSN picks the PostgreSQL driver for postgres:// URLs and SQLite
// for everything else, which is treated as a file path.
func DriverForDSN(dsn string) string {
	lower := strings.ToLower(dsn)
	if strings.HasPrefix(lower, "postgres://") || strings.HasPrefix(lower, "postgresql://") {
		return DriverPostgres
	}
	return DriverSQLite
}

// Open connects to dsn, verifies the connection and creates the schema.
func Open(ctx context.Context, dsn string) (*Store, error) {
	if strings.TrimSpace(dsn) == "" {
		return nil, errors.New("open store: dsn must not be empty")
	}

	driver := DriverForDSN(dsn)
	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: open %s database: %w", driver, err)
	}

	if driver == DriverPostgres {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	} else {
		// A single connection keeps SQLite writes serialized.
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("open store: verify %s connection: %w", driver, err)
	}

	s := &Store{DB: db, driver: driver}
	if err := s.InitSchema(ctx); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.DB.Close()
}

// bind rewrites ? placeholders to $n for PostgreSQL.
func (s *Store) bind(query string) string {
	if s.driver != DriverPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			fmt.Fprintf(&b, "$%d", n)
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InitSchema creates the results table when missing.
func (s *Store) InitSchema(ctx context.Context) error {
	if s.DB == nil {
		return errors.New("init schema: DB is nil")
	}

	createResultsQuery := `
	CREATE TABLE IF NOT EXISTS case_results (
		run_id TEXT NOT NULL,
		case_index INTEGER NOT NULL,
		c1 DOUBLE PRECISION NOT NULL,
		c2 DOUBLE PRECISION NOT NULL,
		v0 DOUBLE PRECISION NOT NULL,
		tolerance DOUBLE PRECISION NOT NULL,
		max_iterations INTEGER NOT NULL,
		solved_velocity DOUBLE PRECISION NOT NULL,
		v_opt_numeric DOUBLE PRECISION NOT NULL,
		v_opt_analytic DOUBLE PRECISION NOT NULL,
		converged BOOLEAN NOT NULL,
		outcome TEXT NOT NULL,
		iterations INTEGER NOT NULL,
		dp_dv_numeric DOUBLE PRECISION NOT NULL,
		dp_dv_analytic DOUBLE PRECISION NOT NULL,
		energy DOUBLE PRECISION NOT NULL,
		created_at TEXT NOT NULL,
		PRIMARY KEY (run_id, case_index)
	);
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_case_results_created_at
	ON case_results(created_at);
	`

	for _, q := range []string{createResultsQuery, createIndexQuery} {
		if _, err := s.DB.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("init schema: exec: %w", err)
		}
	}
	return nil
}

// SaveRun stores all results of one run in a single transaction. Saving the
// same run again replaces its rows.
func (s *Store) SaveRun(ctx context.Context, runID string, results []analysis.Result) error {
	if s.DB == nil {
		return errors.New("save run: DB is nil")
	}
	if strings.TrimSpace(runID) == "" {
		return errors.New("save run: run id must not be empty")
	}

	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("save run: db begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, s.bind(`DELETE FROM case_results WHERE run_id = ?`), runID); err != nil {
		return fmt.Errorf("save run: clear run %q: %w", runID, err)
	}

	stmt, err := tx.PrepareContext(ctx, s.bind(`
	INSERT INTO case_results (
		run_id, case_index, c1, c2, v0, tolerance, max_iterations,
		solved_velocity, v_opt_numeric, v_opt_analytic, converged, outcome, iterations,
		dp_dv_numeric, dp_dv_analytic, energy, created_at
	)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`))
	if err != nil {
		return fmt.Errorf("save run: db prepare: %w", err)
	}
	defer stmt.Close()

	createdAt := time.Now().UTC().Format(time.RFC3339)
	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			runID, r.Index, r.Case.C1, r.Case.C2, r.Case.V0, r.Case.Tolerance, r.Case.MaxIterations,
			r.SolvedVelocity, r.Optimum, r.AnalyticOptimum, r.Converged, r.Outcome, r.Iterations,
			r.DerivativeNumeric, r.DerivativeAnalytic, r.Energy, createdAt,
		)
		if err != nil {
			return fmt.Errorf("save run: insert case %d: %w", r.Index, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save run: commit: %w", err)
	}
	return nil
}

// LoadRun returns the stored results of a run ordered by case index.
// Sampled profiles are not stored.
func (s *Store) LoadRun(ctx context.Context, runID string) ([]analysis.Result, error) {
	if s.DB == nil {
		return nil, errors.New("load run: DB is nil")
	}

	rows, err := s.DB.QueryContext(ctx, s.bind(`
	SELECT
		case_index, c1, c2, v0, tolerance, max_iterations,
		solved_velocity, v_opt_numeric, v_opt_analytic, converged, outcome, iterations,
		dp_dv_numeric, dp_dv_analytic, energy
	FROM case_results
	WHERE run_id = ?
	ORDER BY case_index
	`), runID)
	if err != nil {
		return nil, fmt.Errorf("load run: query case_results: %w", err)
	}
	defer rows.Close()

	var out []analysis.Result
	for rows.Next() {
		var (
			r  analysis.Result
			tc cases.TestCase
		)
		if err := rows.Scan(
			&r.Index, &tc.C1, &tc.C2, &tc.V0, &tc.Tolerance, &tc.MaxIterations,
			&r.SolvedVelocity, &r.Optimum, &r.AnalyticOptimum, &r.Converged, &r.Outcome, &r.Iterations,
			&r.DerivativeNumeric, &r.DerivativeAnalytic, &r.Energy,
		); err != nil {
			return nil, fmt.Errorf("load run: scan rows: %w", err)
		}
		r.Case = tc
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load run: row iteration: %w", err)
	}
	return out, nil
}

// Runs lists stored run ids, most recent first.
func (s *Store) Runs(ctx context.Context) ([]string, error) {
	rows, err := s.DB.QueryContext(ctx, `
	SELECT run_id, MAX(created_at) AS latest
	FROM case_results
	GROUP BY run_id
	ORDER BY latest DESC, run_id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("list runs: query case_results: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id, latest string
		if err := rows.Scan(&id, &latest); err != nil {
			return nil, fmt.Errorf("list runs: scan rows: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: row iteration: %w", err)
	}
	return ids, nil
}

// NewRunID returns a sortable identifier for a run started at t.
func NewRunID(t time.Time) string {
	return t.UTC().Format("20060102T150405.000000000Z")
}
