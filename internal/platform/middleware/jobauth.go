package middleware

import (
	"log/slog"
	"net/http"

	"preuvio/pkg/requestcontext"
	"preuvio/pkg/secrets"
)

const jobCredentialHeader = "X-Job-Credential"

// RequireJobCredential authenticates scheduled-job invocations against the
// bcrypt hash of the shared service secret. An empty hash disables the job
// endpoints entirely; there is no open mode.
func RequireJobCredential(credentialHash string, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			presented := r.Header.Get(jobCredentialHeader)
			if credentialHash == "" || presented == "" {
				logger.WarnContext(r.Context(), "job invocation rejected",
					"request_id", requestcontext.RequestID(r.Context()),
					"configured", credentialHash != "",
				)
				writeUnauthorized(w, "Missing or invalid job credential")
				return
			}
			if err := secrets.Verify(presented, credentialHash); err != nil {
				logger.WarnContext(r.Context(), "job invocation rejected - bad credential",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, "Missing or invalid job credential")
				return
			}
			ctx := requestcontext.WithActor(r.Context(), "scheduler")
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
