package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/authelia/authelia-sub004/internal/session"
)

// SessionValidator verifies a bearer token and resolves its session claims.
type SessionValidator interface {
	ValidateToken(tokenString string) (*session.Claims, error)
}

type contextKeySession struct{}

// GetSession retrieves the validated session claims from the context. It
// returns nil outside of RequireSession-protected handlers.
func GetSession(ctx context.Context) *session.Claims {
	claims, ok := ctx.Value(contextKeySession{}).(*session.Claims)
	if !ok {
		return nil
	}
	return claims
}

// RequireSession rejects requests without a valid bearer session token and
// stores the claims in the request context for handlers.
func RequireSession(validator SessionValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok {
				logger.WarnContext(ctx, "request without bearer token",
					"path", r.URL.Path,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "rejected session token",
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				writeUnauthorized(w, "Invalid or expired session token")
				return
			}

			ctx = context.WithValue(ctx, contextKeySession{}, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func writeUnauthorized(w http.ResponseWriter, description string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_, _ = w.Write([]byte(`{"error":"not_authenticated","error_description":"` + description + `"}`))
}
