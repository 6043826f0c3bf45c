package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/Strob0t/DeskForge/internal/domain"
	"github.com/Strob0t/DeskForge/internal/resilience"
)

type errorResponse struct {
	Error string `json:"error"`
}

// readJSON decodes a JSON request body with a size limit.
func readJSON[T any](w http.ResponseWriter, r *http.Request, bodyLimit int64) (T, bool) {
	var v T
	r.Body = http.MaxBytesReader(w, r.Body, bodyLimit)
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		if err.Error() == "http: request body too large" {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		} else {
			writeError(w, http.StatusBadRequest, "invalid request body")
		}
		return v, false
	}
	return v, true
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to write JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}

// writeDomainError maps the error taxonomy onto HTTP statuses. Unrecognized
// errors are logged server-side and surface as a generic 500.
func writeDomainError(w http.ResponseWriter, err error, fallbackMsg string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, fallbackMsg)
	case errors.Is(err, domain.ErrLowConfidence),
		errors.Is(err, domain.ErrMissingParameters):
		writeError(w, http.StatusUnprocessableEntity, trimSentinel(err))
	case errors.Is(err, domain.ErrInvalidTransition),
		errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, trimSentinel(err))
	case errors.Is(err, domain.ErrValidation):
		writeError(w, http.StatusBadRequest, trimSentinel(err))
	case errors.Is(err, domain.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission denied")
	case errors.Is(err, resilience.ErrCircuitOpen):
		writeError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
	case errors.Is(err, resilience.ErrRateLimited):
		writeError(w, http.StatusTooManyRequests, "too many requests")
	case errors.Is(err, resilience.ErrTimeout):
		writeError(w, http.StatusGatewayTimeout, "operation timed out")
	case errors.Is(err, domain.ErrPartialFailure):
		writeError(w, http.StatusInternalServerError, trimSentinel(err))
	default:
		slog.Error("unhandled domain error", "error", err)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// trimSentinel strips the sentinel prefix so clients see the detail only.
func trimSentinel(err error) string {
	msg := err.Error()
	for _, sentinel := range []error{
		domain.ErrValidation,
		domain.ErrLowConfidence,
		domain.ErrMissingParameters,
		domain.ErrInvalidTransition,
		domain.ErrPartialFailure,
	} {
		msg = strings.TrimPrefix(msg, sentinel.Error()+": ")
	}
	return msg
}
