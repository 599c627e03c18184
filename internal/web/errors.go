package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/tablediff/tablediff/internal/core"
	"github.com/tablediff/tablediff/internal/logging"
	"github.com/tablediff/tablediff/internal/tabular"
)

// errorResponse is the JSON error envelope. Kind and Label are present on
// engine errors so clients can tell a malformed file from a bad argument
// and point at the offending dataset.
type errorResponse struct {
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
	Label string `json:"label,omitempty"`
}

// respondError maps an error to an HTTP status and JSON body. Engine error
// messages are surfaced verbatim; unexpected errors are masked as a plain
// 500 and logged with the request ID.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := http.StatusInternalServerError
	resp := errorResponse{Error: err.Error()}

	var parseErr *tabular.ParseError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &parseErr):
		status = http.StatusUnprocessableEntity
		resp.Kind = string(parseErr.Kind)
		resp.Label = parseErr.Label
	case errors.Is(err, tabular.ErrInvalidArgument):
		status = http.StatusBadRequest
		resp.Kind = "invalid_argument"
	case errors.Is(err, core.ErrRunNotFound), errors.Is(err, core.ErrHistoryDisabled):
		status = http.StatusNotFound
	case errors.As(err, &tooLarge):
		status = http.StatusRequestEntityTooLarge
		resp.Error = fmt.Sprintf("request body exceeds %d bytes", s.cfg.Engine.MaxBodySize)
	}

	logger := logging.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
		resp.Error = "internal server error"
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	writeJSON(w, r, status, resp)
}

// decodeJSON reads a JSON request body into dst, enforcing the configured
// body size limit.
func (s *Server) decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Engine.MaxBodySize)

	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return tooLarge
		}
		return fmt.Errorf("%w: malformed request body: %v", tabular.ErrInvalidArgument, err)
	}
	return nil
}
