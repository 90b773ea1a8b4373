package middleware

import (
	"citizenone/models"
	"citizenone/service"
	"citizenone/utils"
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strings"
)

type contextKey int

const principalKey contextKey = iota

// Authenticator turns a bearer token into the acting principal
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (models.Principal, error)
}

var _ Authenticator = (*service.UserService)(nil)

// AuthMiddleware validates the bearer token and puts the principal in the request context
type AuthMiddleware struct {
	auth Authenticator
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(auth Authenticator) *AuthMiddleware {
	return &AuthMiddleware{auth: auth}
}

// RequireAuth rejects requests without a valid token for an active account
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Authorization header required")
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid authorization format. Expected: Bearer <token>")
			return
		}

		principal, err := m.auth.Authenticate(r.Context(), parts[1])
		switch {
		case err == nil:
		case errors.Is(err, utils.ErrInvalidToken):
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Invalid or expired token")
			return
		case errors.Is(err, service.ErrAccountDisabled):
			respondWithError(w, http.StatusUnauthorized, "Unauthorized", "Account is not active")
			return
		default:
			log.Printf("[auth] Failed to authenticate request: %v", err)
			respondWithError(w, http.StatusInternalServerError, "Internal error", "Failed to authenticate request")
			return
		}

		next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), principal)))
	})
}

// WithPrincipal returns a copy of ctx carrying p
func WithPrincipal(ctx context.Context, p models.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext returns the principal set by RequireAuth
func PrincipalFromContext(ctx context.Context) (models.Principal, bool) {
	p, ok := ctx.Value(principalKey).(models.Principal)
	return p, ok
}

func respondWithError(w http.ResponseWriter, statusCode int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(models.ErrorResponse{Error: errorType, Message: message, Code: statusCode})
}
