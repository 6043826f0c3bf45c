// Package middleware provides HTTP middleware for DeskForge.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/DeskForge/internal/logger"
)

const headerRequestID = "X-Request-ID"

// maxRequestIDLen caps inbound request IDs so a client cannot inflate logs
// or audit rows with an arbitrarily long header.
const maxRequestIDLen = 64

// RequestID is HTTP middleware that accepts a well-formed X-Request-ID from
// the caller or generates a fresh UUID. The ID is stored on the context for
// log correlation and echoed on the response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if !acceptableID(id) {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// acceptableID reports whether an inbound ID is short printable ASCII.
func acceptableID(id string) bool {
	if id == "" || len(id) > maxRequestIDLen {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if c <= ' ' || c > '~' {
			return false
		}
	}
	return true
}
