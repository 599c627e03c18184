// Package tabular implements the reconciliation engine for delimited-text
// datasets: parsing raw text into structured rows, eliminating empty rows,
// filtering one dataset by value membership in another, and key-based
// comparison of two datasets.
//
// All operations are pure functions over in-memory data. Inputs are never
// mutated and results are freshly allocated, so calling any function twice
// with identical inputs produces identical output.
package tabular

// Row is a mapping from column key to cell value. Missing keys read as the
// absent Value, matching the variant semantics in value.go.
type Row map[string]Value

// Table is the result of parsing one delimited-text source.
//
// Headers holds the header cells exactly as declared in the source (after
// quote normalization). Columns holds the keys used in each Row: identical
// to Headers for non-empty names, and positionally disambiguated for empty
// ones (see columnKeys in parser.go). The two slices are always the same
// length.
type Table struct {
	Headers []string `json:"headers"`
	Columns []string `json:"columns"`
	Rows    []Row    `json:"data"`
}
