package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/caelumdev/journal-api/pkg/content"
)

// envelope is the uniform response wrapper for every JSON endpoint.
type envelope struct {
	Success   bool        `json:"success"`
	Data      interface{} `json:"data,omitempty"`
	Error     *errorBody  `json:"error,omitempty"`
	Timestamp string      `json:"timestamp"`
}

type errorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (s *Server) writeData(w http.ResponseWriter, status int, data interface{}) error {
	return writeJSON(w, status, envelope{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

// writeError converts any error into the error envelope. Typed errors keep
// their status and code; content.ErrNotFound maps to 404; everything else
// becomes a generic 500 whose underlying message is exposed only outside
// production mode.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	apiErr := s.classify(err)

	if apiErr.Status >= http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
	} else {
		s.logger.Debug().Err(err).Str("path", r.URL.Path).Msg("Request rejected")
	}

	body := &errorBody{
		Code:    apiErr.Code,
		Message: apiErr.Message,
		Details: apiErr.Details,
	}
	if apiErr.Err != nil && s.devMode {
		body.Details = apiErr.Err.Error()
	}

	if werr := writeJSON(w, apiErr.Status, envelope{
		Success:   false,
		Error:     body,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}); werr != nil {
		s.logger.Error().Err(werr).Msg("Failed to write error response")
	}
}

func (s *Server) classify(err error) *Error {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	if errors.Is(err, content.ErrNotFound) {
		return NotFoundError("resource not found")
	}
	if errors.Is(err, content.ErrSlugExists) {
		return ValidationError("slug already exists", nil)
	}
	return InternalError(err)
}

func writeJSON(w http.ResponseWriter, status int, payload envelope) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(payload)
}
