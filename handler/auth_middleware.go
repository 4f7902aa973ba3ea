package handler

import (
	"context"
	"net/http"
	"strings"

	"cocity-api/common"
	"cocity-api/model"
)

type contextKey string

const (
	UserIDKey    contextKey = "userID"
	RequestIDKey contextKey = "requestID"
	logEntryKey  contextKey = "logEntry"
)

// AccessTokenParser verifies a bearer token and returns its claims.
type AccessTokenParser interface {
	ParseAccessToken(token string) (*model.AppClaims, error)
}

// AuthMiddleware rejects requests without a valid bearer access token and
// stores the token's user id under UserIDKey.
func AuthMiddleware(tokens AccessTokenParser) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			log := LoggerFromContext(r.Context())

			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				common.NewAppError(http.StatusUnauthorized, "Authorization header is required", nil).Send(w, log)
				return
			}

			scheme, tokenString, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "bearer") || strings.TrimSpace(tokenString) == "" {
				common.NewAppError(http.StatusUnauthorized, "Invalid authorization header format", nil).Send(w, log)
				return
			}

			claims, err := tokens.ParseAccessToken(strings.TrimSpace(tokenString))
			if err != nil {
				common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err).Send(w, log)
				return
			}
			userID, err := claims.UserID()
			if err != nil {
				common.NewAppError(http.StatusUnauthorized, "Invalid or expired token", err).Send(w, log)
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, userID)
			ctx = context.WithValue(ctx, logEntryKey, log.WithField("user_id", userID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// UserIDFromContext returns the id placed by AuthMiddleware.
func UserIDFromContext(ctx context.Context) (int, bool) {
	id, ok := ctx.Value(UserIDKey).(int)
	return id, ok
}
