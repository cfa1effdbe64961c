package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

type UserRepository interface {
	FindActiveByUsername(ctx context.Context, username string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	SaveRefreshToken(ctx context.Context, userID, token string) error
	GetRefreshToken(ctx context.Context, userID string) (string, error)
	DeleteRefreshToken(ctx context.Context, userID string) error
}

type Controller struct {
	users  UserRepository
	tokens *TokenManager
	logger *zap.Logger
}

func NewController(users UserRepository, tokens *TokenManager, logger *zap.Logger) *Controller {
	return &Controller{users: users, tokens: tokens, logger: logger}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (c *Controller) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}

	user, err := c.users.FindActiveByUsername(r.Context(), req.Username)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			writeError(w, http.StatusUnauthorized, "Invalid username or password")
			return
		}
		c.logger.Error("login lookup failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)) != nil {
		writeError(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	accessToken, err := c.tokens.IssueAccessToken(*user)
	if err != nil {
		c.logger.Error("issuing access token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	refreshToken, err := c.tokens.IssueRefreshToken(*user)
	if err != nil {
		c.logger.Error("issuing refresh token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	if err := c.users.SaveRefreshToken(r.Context(), user.ID, refreshToken); err != nil {
		c.logger.Error("saving refresh token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Login failed")
		return
	}

	setTokenCookie(w, "accessToken", accessToken, 8*time.Hour)
	setTokenCookie(w, "refreshToken", refreshToken, 7*24*time.Hour)

	c.logger.Info("user logged in", zap.String("username", user.Username), zap.String("role", user.Role))
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":       true,
		"access_token":  accessToken,
		"refresh_token": refreshToken,
		"user": map[string]string{
			"id":       user.ID,
			"username": user.Username,
			"role":     user.Role,
		},
	})
}

func (c *Controller) Refresh(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(r)
	if token == "" {
		writeError(w, http.StatusUnauthorized, "Refresh token required")
		return
	}

	principal, err := c.tokens.VerifyRefreshToken(token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token expired or invalid")
		return
	}

	// The token must match the one stored at login; logout invalidates it.
	stored, err := c.users.GetRefreshToken(r.Context(), principal.ID)
	if err != nil || stored != token {
		writeError(w, http.StatusUnauthorized, "Token expired or invalid")
		return
	}

	user, err := c.users.FindByID(r.Context(), principal.ID)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "Token expired or invalid")
		return
	}

	accessToken, err := c.tokens.IssueAccessToken(*user)
	if err != nil {
		c.logger.Error("issuing access token", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Refresh failed")
		return
	}

	setTokenCookie(w, "accessToken", accessToken, 8*time.Hour)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":      true,
		"access_token": accessToken,
	})
}

func (c *Controller) Logout(w http.ResponseWriter, r *http.Request) {
	token := refreshTokenFrom(r)
	if token != "" {
		if principal, err := c.tokens.VerifyRefreshToken(token); err == nil {
			if err := c.users.DeleteRefreshToken(r.Context(), principal.ID); err != nil {
				c.logger.Warn("deleting refresh token", zap.Error(err))
			}
		}
	}

	clearTokenCookie(w, "accessToken")
	clearTokenCookie(w, "refreshToken")
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": "Logged out",
	})
}

func refreshTokenFrom(r *http.Request) string {
	if cookie, err := r.Cookie("refreshToken"); err == nil && cookie.Value != "" {
		return cookie.Value
	}
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err == nil {
		return req.RefreshToken
	}
	return ""
}

func setTokenCookie(w http.ResponseWriter, name, value string, maxAge time.Duration) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(maxAge.Seconds()),
	})
}

func clearTokenCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]interface{}{
		"success": false,
		"message": message,
	})
}
