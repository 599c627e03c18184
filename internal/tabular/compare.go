package tabular

// compare.go implements the key-based (VLOOKUP-style) comparison of two
// datasets. Each side is reduced to an insertion-ordered map of normalized
// key to (original key, value); the union of keys is then classified into
// four outcomes with an exactly reconciling summary.

import (
	"fmt"
	"strings"
)

// Status is the comparison outcome for a single key.
type Status string

const (
	StatusMatched   Status = "matched"
	StatusDiff      Status = "diff"
	StatusOnlyLeft  Status = "only left"
	StatusOnlyRight Status = "only right"
)

// nullKeySentinel stands in for null/absent key values inside the per-side
// maps. Null keys on both sides collide with each other but never with a
// legitimate empty-string key. NUL bytes cannot survive the parser, so no
// string key can equal the sentinel.
const nullKeySentinel = "\x00null\x00"

// ComparisonRow is the outcome for one distinct normalized key. KeyValue is
// the displayed (pre-normalization) key, preferring the left side's
// original. A side that lacks the key reports a null value.
type ComparisonRow struct {
	KeyValue   Value  `json:"keyValue"`
	LeftValue  Value  `json:"leftValue"`
	RightValue Value  `json:"rightValue"`
	Status     Status `json:"status"`
}

// Summary tallies the classification buckets. Total always equals the
// number of rows and the sum of the four buckets.
type Summary struct {
	Total     int `json:"total"`
	Matched   int `json:"matched"`
	Diff      int `json:"diff"`
	OnlyLeft  int `json:"onlyLeft"`
	OnlyRight int `json:"onlyRight"`
}

// ComparisonResult is the full output of Compare.
type ComparisonResult struct {
	Rows        []ComparisonRow `json:"rows"`
	KeyColumn   string          `json:"keyColumnName"`
	ValueColumn string          `json:"valueColumnName"`
	Summary     Summary         `json:"summary"`
}

// CompareOptions adjusts Compare behavior.
type CompareOptions struct {
	CaseInsensitive bool
}

// sideEntry is one side's record for a normalized key.
type sideEntry struct {
	key   Value // original, pre-normalization key value
	value Value // valueColumn entry, null-coerced when missing
}

// sideMap pairs an insertion-ordered key list with the entry map so result
// ordering is deterministic for a given pair of inputs.
type sideMap struct {
	keys    []string
	entries map[string]sideEntry
}

// Compare classifies every distinct key across left and right into
// matched, diff, only-left, or only-right. Values are compared as trimmed
// strings. Duplicate keys within one side resolve to the last row, without
// error. Returns ErrInvalidArgument (wrapped) when either column name is
// empty or whitespace-only. Neither input is mutated.
func Compare(left, right []Row, keyColumn, valueColumn string, opts CompareOptions) (*ComparisonResult, error) {
	if strings.TrimSpace(keyColumn) == "" {
		return nil, fmt.Errorf("%w: key column name is required", ErrInvalidArgument)
	}
	if strings.TrimSpace(valueColumn) == "" {
		return nil, fmt.Errorf("%w: value column name is required", ErrInvalidArgument)
	}

	leftSide := buildSide(left, keyColumn, valueColumn, opts.CaseInsensitive)
	rightSide := buildSide(right, keyColumn, valueColumn, opts.CaseInsensitive)

	result := &ComparisonResult{
		Rows:        make([]ComparisonRow, 0, len(leftSide.keys)+len(rightSide.keys)),
		KeyColumn:   keyColumn,
		ValueColumn: valueColumn,
	}

	for _, key := range unionKeys(leftSide, rightSide) {
		l, inLeft := leftSide.entries[key]
		r, inRight := rightSide.entries[key]

		row := ComparisonRow{
			KeyValue:   NullValue(),
			LeftValue:  NullValue(),
			RightValue: NullValue(),
		}

		switch {
		case inLeft && inRight:
			row.KeyValue = l.key
			row.LeftValue = l.value
			row.RightValue = r.value
			if strings.TrimSpace(l.value.Text()) == strings.TrimSpace(r.value.Text()) {
				row.Status = StatusMatched
				result.Summary.Matched++
			} else {
				row.Status = StatusDiff
				result.Summary.Diff++
			}
		case inLeft:
			row.KeyValue = l.key
			row.LeftValue = l.value
			row.Status = StatusOnlyLeft
			result.Summary.OnlyLeft++
		default:
			row.KeyValue = r.key
			row.RightValue = r.value
			row.Status = StatusOnlyRight
			result.Summary.OnlyRight++
		}

		result.Rows = append(result.Rows, row)
	}

	result.Summary.Total = len(result.Rows)
	return result, nil
}

// buildSide reduces one side's rows to an ordered key map. The last row
// with a given normalized key wins.
func buildSide(rows []Row, keyColumn, valueColumn string, caseInsensitive bool) sideMap {
	side := sideMap{entries: make(map[string]sideEntry, len(rows))}
	for _, row := range rows {
		key := normalizeKey(row[keyColumn], caseInsensitive)
		if _, exists := side.entries[key]; !exists {
			side.keys = append(side.keys, key)
		}
		value := row[valueColumn]
		if value.IsMissing() {
			value = NullValue()
		}
		side.entries[key] = sideEntry{key: row[keyColumn], value: value}
	}
	return side
}

// normalizeKey maps a key value to its map-insertion form. Null and absent
// keys share the reserved sentinel so they collide with each other but
// never with an empty-string key.
func normalizeKey(v Value, caseInsensitive bool) string {
	if v.IsMissing() {
		return nullKeySentinel
	}
	s := v.Text()
	if caseInsensitive {
		s = strings.ToLower(s)
	}
	return s
}

// unionKeys iterates left keys in insertion order followed by right keys
// not present on the left.
func unionKeys(left, right sideMap) []string {
	keys := make([]string, 0, len(left.keys)+len(right.keys))
	keys = append(keys, left.keys...)
	for _, key := range right.keys {
		if _, ok := left.entries[key]; !ok {
			keys = append(keys, key)
		}
	}
	return keys
}
