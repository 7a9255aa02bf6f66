package api

import (
	"context"
	"crypto/subtle"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	app_errors "onlinellm-gateway/backend/internal/errors"
)

const (
	// APIKeyHeader carries the gateway secret on inbound requests.
	APIKeyHeader = "api-key"
	// RequestIDHeader is echoed on every response.
	RequestIDHeader = "X-Request-ID"
)

// RequestID reuses the caller's X-Request-ID or generates "req_<8 hex>". The id
// is stored under chi's key so middleware.Logger and GetReqID see it too.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get(RequestIDHeader)
		if requestID == "" {
			requestID = "req_" + uuid.New().String()[:8]
		}
		w.Header().Set(RequestIDHeader, requestID)
		ctx := context.WithValue(r.Context(), middleware.RequestIDKey, requestID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequestIDFromContext returns the id assigned by RequestID, or "".
func RequestIDFromContext(ctx context.Context) string {
	return middleware.GetReqID(ctx)
}

// RequireAPIKey rejects requests whose api-key header does not match secret.
// The comparison is byte-for-byte and constant time.
func RequireAPIKey(secret string) func(http.Handler) http.Handler {
	expected := []byte(secret)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			provided := r.Header.Get(APIKeyHeader)
			if provided == "" {
				respondWithError(w, r, fmt.Errorf("%w: missing %s header", app_errors.ErrUnauthorized, APIKeyHeader))
				return
			}
			if len(expected) == 0 || subtle.ConstantTimeCompare([]byte(provided), expected) != 1 {
				slog.Info("Rejected request with invalid API key", "request_id", RequestIDFromContext(r.Context()), "path", r.URL.Path)
				respondWithError(w, r, app_errors.ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
