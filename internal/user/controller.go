package user

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

type Repository interface {
	List(ctx context.Context) ([]domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
	Insert(ctx context.Context, user domain.User) error
	Update(ctx context.Context, user domain.User) error
}

type Controller struct {
	repo   Repository
	logger *zap.Logger
}

func NewController(repo Repository, logger *zap.Logger) *Controller {
	return &Controller{repo: repo, logger: logger}
}

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Role      string    `json:"role"`
	Active    bool      `json:"active"`
	CreatedAt time.Time `json:"created_at"`
}

type createUserRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type updateUserRequest struct {
	Username string  `json:"username"`
	Password *string `json:"password"`
	Role     string  `json:"role"`
	Active   *bool   `json:"active"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
	}
}

func (c *Controller) List(w http.ResponseWriter, r *http.Request) {
	users, err := c.repo.List(r.Context())
	if err != nil {
		c.logger.Error("listing users", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to fetch users")
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    out,
		"count":   len(out),
	})
}

func (c *Controller) Create(w http.ResponseWriter, r *http.Request) {
	var req createUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	req.Username = strings.TrimSpace(req.Username)
	if req.Username == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Username and password are required")
		return
	}
	if !domain.ValidRole(req.Role) {
		writeError(w, http.StatusBadRequest, "Role must be admin or cashier")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		c.logger.Error("hashing password", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	user := domain.User{
		ID:           uuid.New().String(),
		Username:     req.Username,
		PasswordHash: string(hash),
		Role:         req.Role,
		Active:       true,
	}

	if err := c.repo.Insert(r.Context(), user); err != nil {
		c.logger.Error("creating user", zap.String("username", req.Username), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to create user")
		return
	}

	c.logger.Info("user created", zap.String("username", user.Username), zap.String("role", user.Role))
	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"success": true,
		"data":    toUserResponse(user),
	})
}

func (c *Controller) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req updateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Request body must be valid JSON")
		return
	}

	user, err := c.repo.FindByID(r.Context(), id)
	if err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		c.logger.Error("fetching user", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	if username := strings.TrimSpace(req.Username); username != "" {
		user.Username = username
	}
	if req.Role != "" {
		if !domain.ValidRole(req.Role) {
			writeError(w, http.StatusBadRequest, "Role must be admin or cashier")
			return
		}
		user.Role = req.Role
	}
	if req.Active != nil {
		user.Active = *req.Active
	}
	if req.Password != nil && *req.Password != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(*req.Password), bcrypt.DefaultCost)
		if err != nil {
			c.logger.Error("hashing password", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "Failed to update user")
			return
		}
		user.PasswordHash = string(hash)
	}

	if err := c.repo.Update(r.Context(), *user); err != nil {
		if _, ok := apperrors.IsNotFoundError(err); ok {
			writeError(w, http.StatusNotFound, "User not found")
			return
		}
		c.logger.Error("updating user", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Failed to update user")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    toUserResponse(*user),
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
