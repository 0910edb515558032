package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"noun-crm/internal/service"

	"go.uber.org/zap"
)

type contextKey string

const (
	UserIDKey   contextKey = "user_id"
	UserRoleKey contextKey = "user_role"
)

// TokenValidator turns a bearer token into verified claims
type TokenValidator interface {
	ValidateToken(tokenString string) (*service.Claims, error)
}

var (
	errMissingAuthHeader = errors.New("missing authorization header")
	errMalformedAuth     = errors.New("invalid authorization header format")
)

// bearerToken extracts the token of an "Authorization: Bearer <token>" header
func bearerToken(r *http.Request) (string, error) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", errMissingAuthHeader
	}
	scheme, token, found := strings.Cut(header, " ")
	if !found || scheme != "Bearer" || token == "" || strings.Contains(token, " ") {
		return "", errMalformedAuth
	}
	return token, nil
}

// AuthMiddleware rejects requests without a valid access token and stores
// the caller's id and role in the request context
func AuthMiddleware(tokens TokenValidator, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := bearerToken(r)
			if err != nil {
				logger.Debug("Rejected authorization header", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, err.Error())
				return
			}

			claims, err := tokens.ValidateToken(token)
			switch {
			case errors.Is(err, service.ErrTokenExpired):
				RespondWithError(w, http.StatusUnauthorized, "token expired")
				return
			case err != nil:
				logger.Debug("Token validation failed", zap.Error(err))
				RespondWithError(w, http.StatusUnauthorized, "invalid token")
				return
			case claims.Role == "":
				logger.Warn("Token without role", zap.String("user_id", claims.UserID.String()))
				RespondWithError(w, http.StatusUnauthorized, "invalid token claims")
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID.String())
			ctx = context.WithValue(ctx, UserRoleKey, claims.Role)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetUserRole extracts user role from request context
func GetUserRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(UserRoleKey).(string)
	return role, ok
}
