package portfolio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/bben1/PortfolioOptimisation-and-TradingBot/internal/contracts"
)

// ErrRunNotFound is returned when no run matches the requested ID
var ErrRunNotFound = errors.New("portfolio run not found")

// Repository persists run reports
// ⭐ SSOT: portfolio_runs is written only here
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new portfolio repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RunSummary is one row of portfolio_runs without the full report
type RunSummary struct {
	RunID     string              `json:"run_id"`
	CreatedAt time.Time           `json:"created_at"`
	SpecHash  string              `json:"spec_hash"`
	Technique contracts.Technique `json:"technique"`
}

// SaveRun stores the full run report as JSON. Simulated paths are dropped
// to keep rows small.
func (r *Repository) SaveRun(ctx context.Context, run *RunResult, specHash string) error {
	report := *run
	if run.Simulation != nil {
		sim := *run.Simulation
		sim.Paths = nil
		report.Simulation = &sim
	}

	payload, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("failed to marshal run %s: %w", run.RunID, err)
	}

	query := `
		INSERT INTO portfolio_runs (run_id, created_at, spec_hash, technique, result)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE SET
			spec_hash = EXCLUDED.spec_hash,
			technique = EXCLUDED.technique,
			result    = EXCLUDED.result
	`
	if _, err := r.pool.Exec(ctx, query, run.RunID, run.CreatedAt, specHash, string(run.Technique), payload); err != nil {
		return fmt.Errorf("failed to save run %s: %w", run.RunID, err)
	}
	return nil
}

// GetRun loads a stored report
func (r *Repository) GetRun(ctx context.Context, runID string) (*RunResult, error) {
	var payload []byte
	err := r.pool.QueryRow(ctx, `SELECT result FROM portfolio_runs WHERE run_id = $1`, runID).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run %s: %w", runID, err)
	}

	var run RunResult
	if err := json.Unmarshal(payload, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run %s: %w", runID, err)
	}
	return &run, nil
}

// ListRuns returns the most recent runs, newest first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunSummary, error) {
	query := `
		SELECT run_id, created_at, spec_hash, technique
		FROM portfolio_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	runs := make([]RunSummary, 0, limit)
	for rows.Next() {
		var s RunSummary
		var technique string
		if err := rows.Scan(&s.RunID, &s.CreatedAt, &s.SpecHash, &technique); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		s.Technique = contracts.Technique(technique)
		runs = append(runs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rows: %w", err)
	}

	return runs, nil
}

// DeleteRunsBefore removes runs created before cutoff and returns how many went
func (r *Repository) DeleteRunsBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM portfolio_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete runs before %s: %w", cutoff.Format(time.RFC3339), err)
	}
	return tag.RowsAffected(), nil
}
