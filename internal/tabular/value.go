package tabular

// value.go defines the cell value variant used throughout the engine.
//
// Delimited-text sources only ever produce strings, but callers that build
// rows programmatically (or round-trip them through JSON) can also supply
// numbers and nulls. Modelling the cell as a tagged variant keeps the
// null-vs-absent-vs-empty-string distinctions explicit instead of hiding
// them behind interface{} type switches.

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

type valueKind uint8

const (
	kindAbsent valueKind = iota
	kindString
	kindNumber
	kindNull
)

// Value is a single cell value: a string, a number, an explicit null, or
// absent. The zero Value is absent, so looking up a missing column in a Row
// yields the correct variant without extra bookkeeping.
type Value struct {
	kind valueKind
	str  string
	num  float64
}

// NewString returns a string Value.
func NewString(s string) Value {
	return Value{kind: kindString, str: s}
}

// NewNumber returns a numeric Value.
func NewNumber(f float64) Value {
	return Value{kind: kindNumber, num: f}
}

// NullValue returns an explicit null Value.
func NullValue() Value {
	return Value{kind: kindNull}
}

// IsAbsent reports whether the value is absent (never set).
func (v Value) IsAbsent() bool { return v.kind == kindAbsent }

// IsNull reports whether the value is an explicit null.
func (v Value) IsNull() bool { return v.kind == kindNull }

// IsMissing reports whether the value is null or absent. Missing values
// never participate in filter set membership and share the reserved key
// sentinel during comparison.
func (v Value) IsMissing() bool { return v.kind == kindNull || v.kind == kindAbsent }

// Text coerces the value to a string. Null and absent coerce to the empty
// string; numbers use their shortest decimal representation.
func (v Value) Text() string {
	switch v.kind {
	case kindString:
		return v.str
	case kindNumber:
		return strconv.FormatFloat(v.num, 'f', -1, 64)
	default:
		return ""
	}
}

// IsEmpty reports whether the value is missing or coerces to a string that
// trims to empty. Numeric zero is not empty.
func (v Value) IsEmpty() bool {
	if v.IsMissing() {
		return true
	}
	return strings.TrimSpace(v.Text()) == ""
}

// MarshalJSON encodes strings, numbers, and null. Absent values also encode
// as null; they normally never appear in serialized rows because absent
// columns are simply missing from the map.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case kindString:
		return json.Marshal(v.str)
	case kindNumber:
		return json.Marshal(v.num)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number, or null.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return fmt.Errorf("empty JSON value")
	}

	if string(trimmed) == "null" {
		*v = NullValue()
		return nil
	}

	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = NewString(s)
		return nil
	case '{', '[', 't', 'f':
		return fmt.Errorf("unsupported cell value %s: expected string, number, or null", trimmed)
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return err
		}
		*v = NewNumber(f)
		return nil
	}
}
