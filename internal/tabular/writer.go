package tabular

// writer.go mirrors the parser: it serializes rows back to delimited text
// for export. encoding/csv re-quotes any value containing the delimiter,
// quote character, or line breaks, so Parse(Serialize(t)) round-trips cell
// content.

import (
	"encoding/csv"
	"strings"
)

// WriteString serializes a header row plus data rows to comma-delimited
// text. columns supplies the row map key for each output position and must
// be the same length as headers. Missing and null cells serialize as empty
// fields.
func WriteString(headers, columns []string, rows []Row) (string, error) {
	var buf strings.Builder
	w := csv.NewWriter(&buf)

	if err := w.Write(headers); err != nil {
		return "", err
	}
	record := make([]string, len(columns))
	for _, row := range rows {
		for i, key := range columns {
			record[i] = row[key].Text()
		}
		if err := w.Write(record); err != nil {
			return "", err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// Serialize writes the table back to delimited text.
func (t *Table) Serialize() (string, error) {
	return WriteString(t.Headers, t.Columns, t.Rows)
}
