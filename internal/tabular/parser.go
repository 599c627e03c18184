package tabular

// parser.go turns raw delimited text into a Table.
//
// The pipeline, in order: strip a leading BOM, detect the delimiter,
// tokenize with encoding/csv, drop fully blank rows, normalize and validate
// the header row, assign column keys, build row mappings, and finally drop
// empty data rows. Failures are atomic: a ParseError is returned and no
// partial Table is ever produced alongside it.

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
)

// bom is the byte-order mark some Windows tools prepend to UTF-8 files.
const bom = "\uFEFF"

// delimiterCandidates are tried during auto-detection, in priority order.
// Comma wins ties.
var delimiterCandidates = []rune{',', '\t', ';', '|'}

// Parse converts rawText into a Table. label names the originating source
// (typically a file name) and appears in every error message so a
// multi-file caller can attribute failures.
//
// An input whose surviving rows are exhausted by blank-line elimination
// (including a header-only file) yields an empty Table, not an error. An
// input that is empty or whitespace-only before any rows exist fails with
// KindParsingError.
func Parse(rawText, label string) (*Table, error) {
	text := strings.TrimPrefix(rawText, bom)

	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{
			Label: label,
			Kind:  KindParsingError,
			Message: fmt.Sprintf(
				"unable to detect a delimiter in %s: the file is empty or contains only whitespace", label),
		}
	}

	records, err := tokenize(text, label)
	if err != nil {
		return nil, err
	}

	records = dropBlankRecords(records)
	if len(records) == 0 {
		return &Table{Headers: []string{}, Columns: []string{}, Rows: []Row{}}, nil
	}

	headers := make([]string, len(records[0]))
	for i, cell := range records[0] {
		headers[i] = normalizeHeader(cell)
	}

	if dups := duplicateHeaders(headers); len(dups) > 0 {
		return nil, &ParseError{
			Label: label,
			Kind:  KindDuplicateHeaders,
			Message: fmt.Sprintf(
				"duplicate column headers found in %s: %s", label, strings.Join(dups, ", ")),
		}
	}

	columns := columnKeys(headers)

	rows := make([]Row, 0, len(records)-1)
	for _, record := range records[1:] {
		row := make(Row, len(columns))
		for i, key := range columns {
			if i < len(record) {
				row[key] = NewString(record[i])
			} else {
				// Short rows pad with empty strings, not nulls.
				row[key] = NewString("")
			}
		}
		rows = append(rows, row)
	}

	return &Table{
		Headers: headers,
		Columns: columns,
		Rows:    FilterEmptyRows(rows),
	}, nil
}

// tokenize runs the csv reader over the whole input, collecting every
// row-level error rather than stopping at the first one.
func tokenize(text, label string) ([][]string, error) {
	r := csv.NewReader(strings.NewReader(text))
	r.Comma = detectDelimiter(text)
	r.FieldsPerRecord = -1 // short and long rows are tolerated; see Parse

	var records [][]string
	var problems []string

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			problems = append(problems, err.Error())
			continue
		}
		records = append(records, record)
	}

	if len(problems) > 0 {
		return nil, &ParseError{
			Label: label,
			Kind:  KindParsingError,
			Message: fmt.Sprintf(
				"failed to parse %s: %s", label, strings.Join(problems, ", ")),
		}
	}

	return records, nil
}

// detectDelimiter picks the candidate occurring most often in the text.
// When none of the candidates occur at all the file is effectively a single
// column and the comma default is harmless.
func detectDelimiter(text string) rune {
	best := delimiterCandidates[0]
	bestCount := 0
	for _, cand := range delimiterCandidates {
		if n := strings.Count(text, string(cand)); n > bestCount {
			best = cand
			bestCount = n
		}
	}
	return best
}

// dropBlankRecords removes rows whose every field trims to the empty
// string. This runs before header detection so leading blank lines never
// become the header.
func dropBlankRecords(records [][]string) [][]string {
	out := make([][]string, 0, len(records))
	for _, record := range records {
		blank := true
		for _, field := range record {
			if strings.TrimSpace(field) != "" {
				blank = false
				break
			}
		}
		if !blank {
			out = append(out, record)
		}
	}
	return out
}

// normalizeHeader strips one pair of surrounding double quotes when the
// cell consists of nothing else.
func normalizeHeader(cell string) string {
	if len(cell) >= 2 && cell[0] == '"' && cell[len(cell)-1] == '"' {
		return cell[1 : len(cell)-1]
	}
	return cell
}

// duplicateHeaders returns the non-empty header names that occur more than
// once, in first-occurrence order. Comparison is case-sensitive and does
// not trim whitespace; empty names are exempt from the check entirely.
func duplicateHeaders(headers []string) []string {
	counts := make(map[string]int, len(headers))
	for _, h := range headers {
		if h != "" {
			counts[h]++
		}
	}

	var dups []string
	reported := make(map[string]bool)
	for _, h := range headers {
		if h != "" && counts[h] > 1 && !reported[h] {
			dups = append(dups, h)
			reported[h] = true
		}
	}
	return dups
}

// columnKeys assigns the map key for each header position. Non-empty
// headers are used as-is. The first empty header keeps the empty-string key
// and every later one gets a positional col_N key (N is the 1-based column
// number), except that a lone empty header in the last column also takes
// the positional key. That trailing special case is preserved for
// compatibility with existing exports keyed this way.
func columnKeys(headers []string) []string {
	emptyTotal := 0
	for _, h := range headers {
		if h == "" {
			emptyTotal++
		}
	}

	keys := make([]string, len(headers))
	firstEmptySeen := false
	for i, h := range headers {
		if h != "" {
			keys[i] = h
			continue
		}
		if !firstEmptySeen {
			firstEmptySeen = true
			if emptyTotal == 1 && i == len(headers)-1 {
				keys[i] = fmt.Sprintf("col_%d", i+1)
			} else {
				keys[i] = ""
			}
			continue
		}
		keys[i] = fmt.Sprintf("col_%d", i+1)
	}
	return keys
}
