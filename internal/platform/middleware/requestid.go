package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"preuvio/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID attaches a correlation ID to the request context and response,
// honoring an inbound header when the caller supplies one.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := requestcontext.WithRequestID(r.Context(), id)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetRequestID retrieves the correlation ID for handler logging.
func GetRequestID(r *http.Request) string {
	return requestcontext.RequestID(r.Context())
}
