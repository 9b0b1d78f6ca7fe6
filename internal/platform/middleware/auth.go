package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"preuvio/pkg/requestcontext"
)

// JWTValidator defines the interface for validating dashboard access tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*JWTClaims, error)
}

// JWTClaims represents the claims we expect from the JWT validator.
type JWTClaims struct {
	UserID     string
	PlatformID string
	Role       string
}

type contextKeyUserID struct{}
type contextKeyPlatformID struct{}
type contextKeyRole struct{}

var (
	ContextKeyUserID     = contextKeyUserID{}
	ContextKeyPlatformID = contextKeyPlatformID{}
	ContextKeyRole       = contextKeyRole{}
)

// GetUserID retrieves the authenticated user ID from the context.
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(ContextKeyUserID).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetPlatformID retrieves the caller's platform ID from the context.
func GetPlatformID(ctx context.Context) string {
	platformID, ok := ctx.Value(ContextKeyPlatformID).(string)
	if !ok {
		return ""
	}
	return platformID
}

// GetRole retrieves the caller's platform role from the context.
func GetRole(ctx context.Context) string {
	role, ok := ctx.Value(ContextKeyRole).(string)
	if !ok {
		return ""
	}
	return role
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"unauthorized","error_description":"` + description + `"}`))
}

// RequireAuth validates the bearer token and stores the claims in context.
func RequireAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok {
				logger.WarnContext(r.Context(), "unauthorized access - missing token",
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(r.Context(), "unauthorized access - invalid token",
					"error", err,
					"request_id", requestcontext.RequestID(r.Context()),
				)
				writeUnauthorized(w, "Invalid or expired token")
				return
			}

			ctx := r.Context()
			ctx = context.WithValue(ctx, ContextKeyUserID, claims.UserID)
			ctx = context.WithValue(ctx, ContextKeyPlatformID, claims.PlatformID)
			ctx = context.WithValue(ctx, ContextKeyRole, claims.Role)
			ctx = requestcontext.WithActor(ctx, claims.UserID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
