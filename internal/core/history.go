package core

// history.go persists one row per filter/compare run. History is best
// effort: a failed insert is logged and the run result is still returned.
// Without a configured pool every method degrades to a disabled no-op.

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablediff/tablediff/internal/logging"
	"github.com/tablediff/tablediff/internal/tabular"
)

// Run operation names as stored in the runs table.
const (
	OpFilter  = "filter"
	OpCompare = "compare"
)

// ErrHistoryDisabled is returned by history queries when no database is
// configured.
var ErrHistoryDisabled = errors.New("run history is disabled")

// ErrRunNotFound is returned when no run exists with the requested ID.
var ErrRunNotFound = errors.New("run not found")

// RunRecord is one persisted run-history entry. Filter runs leave the
// comparison buckets zero; compare runs leave Mode empty.
type RunRecord struct {
	ID          string    `json:"id"`
	Operation   string    `json:"operation"`
	LeftLabel   string    `json:"leftLabel"`
	RightLabel  string    `json:"rightLabel"`
	Column      string    `json:"column"`
	ValueColumn string    `json:"valueColumn,omitempty"`
	Mode        string    `json:"mode,omitempty"`
	RowsIn      int       `json:"rowsIn"`
	RowsOut     int       `json:"rowsOut"`
	Matched     int       `json:"matched"`
	Diff        int       `json:"diff"`
	OnlyLeft    int       `json:"onlyLeft"`
	OnlyRight   int       `json:"onlyRight"`
	DurationMS  int64     `json:"durationMs"`
	CreatedAt   time.Time `json:"createdAt"`
}

// Statements run one at a time; pgx's extended protocol rejects
// multi-statement strings.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS runs (
		id           UUID PRIMARY KEY,
		operation    TEXT NOT NULL,
		left_label   TEXT NOT NULL,
		right_label  TEXT NOT NULL,
		column_name  TEXT NOT NULL,
		value_column TEXT NOT NULL DEFAULT '',
		mode         TEXT NOT NULL DEFAULT '',
		rows_in      INTEGER NOT NULL DEFAULT 0,
		rows_out     INTEGER NOT NULL DEFAULT 0,
		matched      INTEGER NOT NULL DEFAULT 0,
		diff         INTEGER NOT NULL DEFAULT 0,
		only_left    INTEGER NOT NULL DEFAULT 0,
		only_right   INTEGER NOT NULL DEFAULT 0,
		duration_ms  BIGINT NOT NULL DEFAULT 0,
		created_at   TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS runs_created_at_idx ON runs (created_at DESC)`,
}

// EnsureSchema bootstraps the runs table. Call once on startup, after the
// pool is verified. A nil pool is a no-op.
func (s *Service) EnsureSchema(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	for _, stmt := range schemaStatements {
		if _, err := s.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure runs schema: %w", err)
		}
	}
	return nil
}

// recordRun inserts one run-history row. Failures are logged, never
// surfaced: the run itself already succeeded.
func (s *Service) recordRun(ctx context.Context, rec RunRecord) {
	if s.pool == nil {
		return
	}

	_, err := s.pool.Exec(ctx, `
		INSERT INTO runs (
			id, operation, left_label, right_label, column_name, value_column,
			mode, rows_in, rows_out, matched, diff, only_left, only_right, duration_ms
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, rec.Operation, rec.LeftLabel, rec.RightLabel, rec.Column, rec.ValueColumn,
		rec.Mode, rec.RowsIn, rec.RowsOut, rec.Matched, rec.Diff, rec.OnlyLeft, rec.OnlyRight,
		rec.DurationMS,
	)
	if err != nil {
		logging.FromContext(ctx).Warn("failed to record run",
			"run_id", rec.ID,
			"operation", rec.Operation,
			"error", err,
		)
	}
}

const selectRunColumns = `
	id, operation, left_label, right_label, column_name, value_column,
	mode, rows_in, rows_out, matched, diff, only_left, only_right,
	duration_ms, created_at`

// ListRuns returns the most recent runs, newest first. A non-positive
// limit uses the configured default; requests above the configured maximum
// are clamped.
func (s *Service) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	if s.pool == nil {
		return nil, ErrHistoryDisabled
	}

	if limit <= 0 {
		limit = s.cfg.Engine.HistoryLimit
	}
	if limit > s.cfg.Engine.HistoryMaxLimit {
		limit = s.cfg.Engine.HistoryMaxLimit
	}

	rows, err := s.pool.Query(ctx,
		"SELECT"+selectRunColumns+" FROM runs ORDER BY created_at DESC LIMIT $1", limit)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()

	records := make([]RunRecord, 0, limit)
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("list runs: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	return records, nil
}

// GetRun fetches a single run by ID.
func (s *Service) GetRun(ctx context.Context, id string) (*RunRecord, error) {
	if s.pool == nil {
		return nil, ErrHistoryDisabled
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("%w: malformed run id %q", tabular.ErrInvalidArgument, id)
	}

	row := s.pool.QueryRow(ctx,
		"SELECT"+selectRunColumns+" FROM runs WHERE id = $1", id)
	rec, err := scanRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	return &rec, nil
}

// scanRun reads one runs row in selectRunColumns order.
func scanRun(row pgx.Row) (RunRecord, error) {
	var rec RunRecord
	err := row.Scan(
		&rec.ID, &rec.Operation, &rec.LeftLabel, &rec.RightLabel, &rec.Column,
		&rec.ValueColumn, &rec.Mode, &rec.RowsIn, &rec.RowsOut, &rec.Matched,
		&rec.Diff, &rec.OnlyLeft, &rec.OnlyRight, &rec.DurationMS, &rec.CreatedAt,
	)
	return rec, err
}
