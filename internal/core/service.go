// Package core orchestrates the tabular engine: it parses raw request
// payloads into tables, runs filter and comparison operations, and keeps an
// optional run history in PostgreSQL.
package core

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/tablediff/tablediff/internal/config"
	"github.com/tablediff/tablediff/internal/logging"
	"github.com/tablediff/tablediff/internal/tabular"
)

// Service coordinates parse, filter, and compare runs.
type Service struct {
	pool *pgxpool.Pool
	cfg  *config.Config
}

// NewService creates the orchestration service. pool may be nil, in which
// case run history is disabled and every request is served statelessly.
func NewService(pool *pgxpool.Pool, cfg *config.Config) (*Service, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	return &Service{pool: pool, cfg: cfg}, nil
}

// HistoryEnabled reports whether runs are being persisted.
func (s *Service) HistoryEnabled() bool {
	return s.pool != nil
}

// Source is one raw delimited-text dataset submitted by a caller. Label
// names the dataset in error messages, typically the original file name.
type Source struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

// labelOr returns the source label, falling back when the caller sent none.
func (src Source) labelOr(fallback string) string {
	if strings.TrimSpace(src.Label) != "" {
		return src.Label
	}
	return fallback
}

// ParseSource parses a single dataset. Used by the preview endpoint; parse
// previews are not recorded in run history.
func (s *Service) ParseSource(ctx context.Context, src Source) (*tabular.Table, error) {
	table, err := tabular.Parse(src.Text, src.labelOr("dataset"))
	if err != nil {
		return nil, err
	}
	logging.FromContext(ctx).Debug("parsed dataset",
		"label", src.labelOr("dataset"),
		"columns", len(table.Columns),
		"rows", len(table.Rows),
	)
	return table, nil
}

// FilterRequest asks for the left dataset to be filtered against a column
// of the right dataset. Mode is "exclude" (default) or "include".
type FilterRequest struct {
	Left            Source `json:"left"`
	Right           Source `json:"right"`
	Column          string `json:"column"`
	Mode            string `json:"mode"`
	CaseInsensitive bool   `json:"caseInsensitive"`
}

// FilterSummary tallies one filter run.
type FilterSummary struct {
	Processed  int   `json:"processed"`
	Kept       int   `json:"kept"`
	Dropped    int   `json:"dropped"`
	DurationMS int64 `json:"durationMs"`
}

// FilterResult is the outcome of RunFilter. Headers and Columns describe
// the left dataset, whose shape the surviving rows keep.
type FilterResult struct {
	RunID   string        `json:"runId"`
	Headers []string      `json:"headers"`
	Columns []string      `json:"columns"`
	Rows    []tabular.Row `json:"data"`
	Summary FilterSummary `json:"summary"`
}

// RunFilter parses both sides, filters the left rows by set membership in
// the right column, and records the run.
func (s *Service) RunFilter(ctx context.Context, req FilterRequest) (*FilterResult, error) {
	start := time.Now()

	mode, err := parseFilterMode(req.Mode)
	if err != nil {
		return nil, err
	}

	left, right, err := s.parsePair(ctx, req.Left, req.Right)
	if err != nil {
		return nil, err
	}

	rows, err := tabular.FilterRows(left.Rows, right.Rows, req.Column, tabular.FilterOptions{
		Mode:            mode,
		CaseInsensitive: req.CaseInsensitive,
	})
	if err != nil {
		return nil, err
	}

	result := &FilterResult{
		RunID:   uuid.New().String(),
		Headers: left.Headers,
		Columns: left.Columns,
		Rows:    rows,
		Summary: FilterSummary{
			Processed:  len(left.Rows),
			Kept:       len(rows),
			Dropped:    len(left.Rows) - len(rows),
			DurationMS: time.Since(start).Milliseconds(),
		},
	}

	s.recordRun(ctx, RunRecord{
		ID:         result.RunID,
		Operation:  OpFilter,
		LeftLabel:  req.Left.labelOr(defaultLeftLabel),
		RightLabel: req.Right.labelOr(defaultRightLabel),
		Column:     req.Column,
		Mode:       string(mode),
		RowsIn:     result.Summary.Processed,
		RowsOut:    result.Summary.Kept,
		DurationMS: result.Summary.DurationMS,
	})

	logging.WithFields(ctx, "run_id", result.RunID, "operation", OpFilter).Info("filter run completed",
		"processed", result.Summary.Processed,
		"kept", result.Summary.Kept,
		"duration_ms", result.Summary.DurationMS,
	)
	return result, nil
}

// CompareRequest asks for a key-based comparison of the two datasets.
type CompareRequest struct {
	Left            Source `json:"left"`
	Right           Source `json:"right"`
	KeyColumn       string `json:"keyColumn"`
	ValueColumn     string `json:"valueColumn"`
	CaseInsensitive bool   `json:"caseInsensitive"`
}

// CompareResult is the outcome of RunCompare.
type CompareResult struct {
	RunID       string                  `json:"runId"`
	Rows        []tabular.ComparisonRow `json:"data"`
	KeyColumn   string                  `json:"keyColumnName"`
	ValueColumn string                  `json:"valueColumnName"`
	Summary     tabular.Summary         `json:"summary"`
	DurationMS  int64                   `json:"durationMs"`
}

// RunCompare parses both sides, classifies every distinct key into
// matched/diff/only left/only right, and records the run.
func (s *Service) RunCompare(ctx context.Context, req CompareRequest) (*CompareResult, error) {
	start := time.Now()

	left, right, err := s.parsePair(ctx, req.Left, req.Right)
	if err != nil {
		return nil, err
	}

	comparison, err := tabular.Compare(left.Rows, right.Rows, req.KeyColumn, req.ValueColumn, tabular.CompareOptions{
		CaseInsensitive: req.CaseInsensitive,
	})
	if err != nil {
		return nil, err
	}

	result := &CompareResult{
		RunID:       uuid.New().String(),
		Rows:        comparison.Rows,
		KeyColumn:   comparison.KeyColumn,
		ValueColumn: comparison.ValueColumn,
		Summary:     comparison.Summary,
		DurationMS:  time.Since(start).Milliseconds(),
	}

	s.recordRun(ctx, RunRecord{
		ID:          result.RunID,
		Operation:   OpCompare,
		LeftLabel:   req.Left.labelOr(defaultLeftLabel),
		RightLabel:  req.Right.labelOr(defaultRightLabel),
		Column:      req.KeyColumn,
		ValueColumn: req.ValueColumn,
		RowsIn:      len(left.Rows) + len(right.Rows),
		RowsOut:     result.Summary.Total,
		Matched:     result.Summary.Matched,
		Diff:        result.Summary.Diff,
		OnlyLeft:    result.Summary.OnlyLeft,
		OnlyRight:   result.Summary.OnlyRight,
		DurationMS:  result.DurationMS,
	})

	logging.WithFields(ctx, "run_id", result.RunID, "operation", OpCompare).Info("compare run completed",
		"total", result.Summary.Total,
		"matched", result.Summary.Matched,
		"diff", result.Summary.Diff,
		"duration_ms", result.DurationMS,
	)
	return result, nil
}

const (
	defaultLeftLabel  = "left dataset"
	defaultRightLabel = "right dataset"
)

// parsePair parses the left and right sources. The left dataset must hold
// at least one data row; a header-only left side is rejected as invalid
// data, since filter and compare both exist to transform left rows.
func (s *Service) parsePair(ctx context.Context, leftSrc, rightSrc Source) (left, right *tabular.Table, err error) {
	leftLabel := leftSrc.labelOr(defaultLeftLabel)
	rightLabel := rightSrc.labelOr(defaultRightLabel)

	left, err = tabular.Parse(leftSrc.Text, leftLabel)
	if err != nil {
		return nil, nil, err
	}
	right, err = tabular.Parse(rightSrc.Text, rightLabel)
	if err != nil {
		return nil, nil, err
	}

	if len(left.Rows) == 0 {
		return nil, nil, &tabular.ParseError{
			Label:   leftLabel,
			Kind:    tabular.KindInvalidData,
			Message: fmt.Sprintf("no data rows found in %s", leftLabel),
		}
	}
	return left, right, nil
}

// parseFilterMode maps the request mode string to a FilterMode. An empty
// mode defaults to exclude.
func parseFilterMode(mode string) (tabular.FilterMode, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", string(tabular.ModeExclude):
		return tabular.ModeExclude, nil
	case string(tabular.ModeInclude):
		return tabular.ModeInclude, nil
	default:
		return "", fmt.Errorf("%w: unknown filter mode %q", tabular.ErrInvalidArgument, mode)
	}
}
