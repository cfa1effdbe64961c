package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"pos-backend/internal/config"
	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

// Principal is the authenticated identity attached to every mutating call.
type Principal struct {
	ID       string
	Username string
	Role     string
}

type Claims struct {
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

type TokenManager struct {
	accessSecret  []byte
	refreshSecret []byte
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

func NewTokenManager(cfg config.AuthConfig) *TokenManager {
	return &TokenManager{
		accessSecret:  []byte(cfg.JWTSecret),
		refreshSecret: []byte(cfg.JWTRefreshSecret),
		accessTTL:     cfg.AccessTokenTTL,
		refreshTTL:    cfg.RefreshTokenTTL,
	}
}

func (m *TokenManager) IssueAccessToken(user domain.User) (string, error) {
	return m.issue(user, m.accessSecret, m.accessTTL)
}

func (m *TokenManager) IssueRefreshToken(user domain.User) (string, error) {
	return m.issue(user, m.refreshSecret, m.refreshTTL)
}

func (m *TokenManager) issue(user domain.User, secret []byte, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Username: user.Username,
		Role:     user.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("signing token: %w", err)
	}
	return signed, nil
}

func (m *TokenManager) VerifyAccessToken(token string) (*Principal, error) {
	return m.verify(token, m.accessSecret)
}

func (m *TokenManager) VerifyRefreshToken(token string) (*Principal, error) {
	return m.verify(token, m.refreshSecret)
}

func (m *TokenManager) verify(tokenStr string, secret []byte) (*Principal, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.NewUnauthorizedError("token expired or invalid")
	}

	return &Principal{
		ID:       claims.Subject,
		Username: claims.Username,
		Role:     claims.Role,
	}, nil
}
