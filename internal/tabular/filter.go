package tabular

// filter.go implements empty-row elimination and set-membership filtering
// of the left dataset against a column of the right dataset. The filtering
// model follows the cross-reference idiom: build a set of normalized values
// from the reference side once, then test every left row against it.

import (
	"fmt"
	"strings"
)

// FilterMode selects which left rows a FilterRows call keeps.
type FilterMode string

const (
	// ModeExclude keeps left rows whose value is NOT present in the right
	// column. This is the default.
	ModeExclude FilterMode = "exclude"

	// ModeInclude keeps left rows whose value IS present in the right
	// column.
	ModeInclude FilterMode = "include"
)

// FilterOptions adjusts FilterRows behavior. The zero value means exclude
// mode with case-sensitive matching.
type FilterOptions struct {
	Mode            FilterMode
	CaseInsensitive bool
}

// FilterEmptyRows returns the rows that are not empty, preserving order. A
// row is empty iff every value in it is missing or coerces to a string that
// trims to empty; a row with no columns at all is empty too. The result is
// a fresh slice and the input is never mutated. The operation is
// idempotent.
func FilterEmptyRows(rows []Row) []Row {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if !rowIsEmpty(row) {
			out = append(out, row)
		}
	}
	return out
}

func rowIsEmpty(row Row) bool {
	for _, v := range row {
		if !v.IsEmpty() {
			return false
		}
	}
	return true
}

// FilterRows filters left by membership of its column value in the set of
// values the right rows hold under the same column name.
//
// Null and absent values never enter the membership set and never match,
// so a left row with a missing value survives exclude mode and is dropped
// by include mode. When the column never appears in any right row the
// filter is a no-op and a copy of left is returned unchanged; this keeps
// old saved selections working against files that renamed the column.
//
// Returns ErrInvalidArgument (wrapped) when column is empty or
// whitespace-only. Neither input is mutated.
func FilterRows(left, right []Row, column string, opts FilterOptions) ([]Row, error) {
	if strings.TrimSpace(column) == "" {
		return nil, fmt.Errorf("%w: filter column name is required", ErrInvalidArgument)
	}

	seen := false
	members := make(map[string]struct{}, len(right))
	for _, row := range right {
		v, ok := row[column]
		if !ok {
			continue
		}
		seen = true
		if v.IsMissing() {
			continue
		}
		members[normalizeValue(v, opts.CaseInsensitive)] = struct{}{}
	}

	if !seen {
		out := make([]Row, len(left))
		copy(out, left)
		return out, nil
	}

	include := opts.Mode == ModeInclude

	out := make([]Row, 0, len(left))
	for _, row := range left {
		member := false
		if v := row[column]; !v.IsMissing() {
			_, member = members[normalizeValue(v, opts.CaseInsensitive)]
		}
		if member == include {
			out = append(out, row)
		}
	}
	return out, nil
}

// normalizeValue coerces a non-missing value to its comparison form.
func normalizeValue(v Value, caseInsensitive bool) string {
	s := v.Text()
	if caseInsensitive {
		s = strings.ToLower(s)
	}
	return s
}
