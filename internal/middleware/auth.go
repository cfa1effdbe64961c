package middleware

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"pos-backend/internal/auth"
	"pos-backend/internal/domain"
)

type contextKey string

const principalKey contextKey = "principal"

// PrincipalFromContext returns the authenticated principal set by
// RequireAuth, or nil when the request was not authenticated.
func PrincipalFromContext(ctx context.Context) *auth.Principal {
	p, _ := ctx.Value(principalKey).(*auth.Principal)
	return p
}

func extractToken(r *http.Request) string {
	if cookie, err := r.Cookie("accessToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	authHeader := r.Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}
	return ""
}

// RequireAuth verifies the access token and attaches the principal to the
// request context.
func RequireAuth(tokens *auth.TokenManager, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "Unauthorized: Bearer token required")
				return
			}

			principal, err := tokens.VerifyAccessToken(token)
			if err != nil {
				logger.Warn("token verification failed", zap.Error(err))
				writeUnauthorized(w, "Token expired or invalid")
				return
			}

			ctx := context.WithValue(r.Context(), principalKey, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireRoles gates a route to the listed roles. Must run after
// RequireAuth.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	allowed := make(map[string]bool, len(roles))
	for _, role := range roles {
		allowed[role] = true
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil || principal.Role == "" {
				writeUnauthorized(w, "Unauthorized")
				return
			}
			if !allowed[principal.Role] {
				writeForbidden(w, "Access denied")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// AdminOnly restricts a route to admins.
func AdminOnly(next http.Handler) http.Handler {
	return RequireRoles(domain.RoleAdmin)(next)
}

// AdminOrCashier restricts a route to staff roles.
func AdminOrCashier(next http.Handler) http.Handler {
	return RequireRoles(domain.RoleAdmin, domain.RoleCashier)(next)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusUnauthorized, message)
}

func writeForbidden(w http.ResponseWriter, message string) {
	writeStatus(w, http.StatusForbidden, message)
}

func writeStatus(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]interface{}{
		"success": false,
		"message": message,
	})
}
