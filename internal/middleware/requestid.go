// Package middleware provides HTTP middleware for MailWarden.
package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/Strob0t/MailWarden/internal/logger"
)

const (
	headerRequestID    = "X-Request-ID"
	maxRequestIDLength = 128
)

// RequestID is HTTP middleware that extracts X-Request-ID from the request
// header or generates a UUID. The ID is stored in the context, where the
// coordinator picks it up as the request identifier, and echoed on the
// response header.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if !validRequestID(id) {
			id = uuid.NewString()
		}

		ctx := logger.WithRequestID(r.Context(), id)
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// validRequestID accepts short printable ASCII identifiers only; anything
// else is replaced so client input cannot corrupt log lines.
func validRequestID(id string) bool {
	if id == "" || len(id) > maxRequestIDLength {
		return false
	}
	for i := 0; i < len(id); i++ {
		if id[i] < 0x21 || id[i] > 0x7e {
			return false
		}
	}
	return true
}
