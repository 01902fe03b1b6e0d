package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog/log"

	"stealthcompany.com/clinicportal/internal/booking"
	"stealthcompany.com/clinicportal/internal/store"
)

// badRequest is a malformed request body or parameter.
type badRequest struct {
	msg string
}

func (e *badRequest) Error() string { return e.msg }

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Error().Err(err).Msg("Failed to encode response")
	}
}

// writeError maps domain errors to status codes. Persistence failures and
// timeouts are transient and reported as such; anything unexpected is a 500.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr *booking.ValidationError
		berr *badRequest
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, map[string]string{"error": "request timed out"})
	case errors.Is(err, store.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
	case errors.Is(err, store.ErrAlreadyExists):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "resource already exists"})
	case errors.Is(err, store.ErrMissingType):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.As(err, &berr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": berr.msg})
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{
			"error":   "validation failed",
			"field":   verr.Field,
			"message": verr.Reason,
		})
	case store.IsPersistence(err):
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("Store unavailable")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "store unavailable"})
	default:
		s.log.Error().Err(err).Str("path", r.URL.Path).Msg("Request failed")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

func decodeBody(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &badRequest{msg: "invalid JSON body"}
	}
	return nil
}
