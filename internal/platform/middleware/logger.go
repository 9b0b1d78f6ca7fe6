package middleware

import (
	"log/slog"
	"net"
	"net/http"
	"time"

	"preuvio/pkg/requestcontext"
)

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}

// Logger emits one structured line per request with latency and status. It
// also records the client IP in context for the intake rate limiter.
func Logger(log *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}

			ip := clientIP(r)
			ctx := requestcontext.WithClientIP(r.Context(), ip)
			next.ServeHTTP(sw, r.WithContext(ctx))

			log.InfoContext(ctx, "http request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", sw.status,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_ip", ip,
				"request_id", requestcontext.RequestID(ctx),
			)
		})
	}
}

// clientIP prefers X-Forwarded-For (first hop) since the service sits behind
// a load balancer in every deployed environment.
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
