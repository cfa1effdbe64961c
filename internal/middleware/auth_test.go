package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"pos-backend/internal/auth"
	"pos-backend/internal/config"
	"pos-backend/internal/domain"
)

func testTokens() *auth.TokenManager {
	return auth.NewTokenManager(config.AuthConfig{
		JWTSecret:        "access-secret",
		JWTRefreshSecret: "refresh-secret",
		AccessTokenTTL:   time.Hour,
		RefreshTokenTTL:  time.Hour,
	})
}

func okHandler(captured **auth.Principal) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			*captured = PrincipalFromContext(r.Context())
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAuth_BearerHeader(t *testing.T) {
	tokens := testTokens()
	token, err := tokens.IssueAccessToken(domain.User{ID: "u1", Username: "kasir1", Role: domain.RoleCashier})
	require.NoError(t, err)

	var principal *auth.Principal
	handler := RequireAuth(tokens, zap.NewNop())(okHandler(&principal))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "u1", principal.ID)
	assert.Equal(t, domain.RoleCashier, principal.Role)
}

func TestRequireAuth_CookieTakesPrecedence(t *testing.T) {
	tokens := testTokens()
	cookieToken, err := tokens.IssueAccessToken(domain.User{ID: "cookie-user", Username: "a", Role: domain.RoleAdmin})
	require.NoError(t, err)

	var principal *auth.Principal
	handler := RequireAuth(tokens, zap.NewNop())(okHandler(&principal))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "accessToken", Value: cookieToken})
	req.Header.Set("Authorization", "Bearer garbage")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, principal)
	assert.Equal(t, "cookie-user", principal.ID)
}

func TestRequireAuth_MissingToken(t *testing.T) {
	handler := RequireAuth(testTokens(), zap.NewNop())(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_InvalidToken(t *testing.T) {
	handler := RequireAuth(testTokens(), zap.NewNop())(okHandler(nil))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoles(t *testing.T) {
	withPrincipal := func(req *http.Request, p *auth.Principal) *http.Request {
		return req.WithContext(context.WithValue(req.Context(), principalKey, p))
	}

	t.Run("AllowedRole", func(t *testing.T) {
		handler := AdminOnly(okHandler(nil))
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &auth.Principal{ID: "u1", Role: domain.RoleAdmin})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("ForbiddenRole", func(t *testing.T) {
		handler := AdminOnly(okHandler(nil))
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &auth.Principal{ID: "u1", Role: domain.RoleCashier})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("NoPrincipal", func(t *testing.T) {
		handler := AdminOrCashier(okHandler(nil))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("CashierOnStaffRoute", func(t *testing.T) {
		handler := AdminOrCashier(okHandler(nil))
		req := withPrincipal(httptest.NewRequest(http.MethodGet, "/", nil), &auth.Principal{ID: "u1", Role: domain.RoleCashier})
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestPrincipalFromContext_Empty(t *testing.T) {
	assert.Nil(t, PrincipalFromContext(context.Background()))
}
