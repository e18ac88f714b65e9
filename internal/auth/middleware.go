// backend/internal/auth/middleware.go
package auth

import (
	"context"
	"net/http"
	"strings"

	"lesson-system/internal/apierr"
	"lesson-system/internal/response"
	"lesson-system/pkg/logger"
)

type contextKey struct{}

var userIDKey = contextKey{}

func WithUserID(ctx context.Context, userID uint) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// UserIDFromContext returns the authenticated user id set by the middleware.
func UserIDFromContext(ctx context.Context) (uint, bool) {
	id, ok := ctx.Value(userIDKey).(uint)
	return id, ok && id > 0
}

// JWTMiddleware requires a valid "Authorization: Bearer <token>" header.
func JWTMiddleware(issuer *TokenIssuer, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Error(w, log, apierr.Unauthorized("Authorization header required"))
				return
			}

			bearerToken := strings.Split(authHeader, " ")
			if len(bearerToken) != 2 || bearerToken[0] != "Bearer" {
				response.Error(w, log, apierr.Unauthorized("Invalid token format"))
				return
			}

			userID, err := issuer.Parse(bearerToken[1])
			if err != nil {
				log.Debug("rejected access token", "error", err)
				response.Error(w, log, apierr.Unauthorized("Invalid token"))
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
		})
	}
}
