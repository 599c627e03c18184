package tabular

import "errors"

// ErrorKind classifies engine failures so callers can attribute and route
// them without parsing message text.
type ErrorKind string

const (
	// KindParsingError covers malformed delimited text and empty or
	// whitespace-only input.
	KindParsingError ErrorKind = "parsing_error"

	// KindDuplicateHeaders is returned when two or more non-empty header
	// cells collide.
	KindDuplicateHeaders ErrorKind = "duplicate_headers"

	// KindInvalidData is returned by callers of the engine when a source
	// produced no rows where rows were expected.
	KindInvalidData ErrorKind = "invalid_data"
)

// ParseError is a failure attributed to one input source. Message is
// human-readable and already names the source label, so callers can surface
// it verbatim.
type ParseError struct {
	Label   string
	Kind    ErrorKind
	Message string
}

func (e *ParseError) Error() string { return e.Message }

// ErrInvalidArgument is returned (wrapped) when a filter or compare call is
// given an empty or whitespace-only column name.
var ErrInvalidArgument = errors.New("invalid argument")
