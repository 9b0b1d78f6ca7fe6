package middleware

import (
	"log/slog"
	"net/http"
	"runtime/debug"

	dErrors "preuvio/pkg/domain-errors"
	"preuvio/pkg/platform/httputil"
	"preuvio/pkg/requestcontext"
)

// Recovery converts handler panics into 500 responses instead of dropping the
// connection.
func Recovery(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					log.ErrorContext(r.Context(), "panic recovered",
						"panic", rec,
						"stack", string(debug.Stack()),
						"request_id", requestcontext.RequestID(r.Context()),
					)
					httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "internal error"))
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}
