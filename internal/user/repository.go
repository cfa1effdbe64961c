package user

import (
	"context"
	"database/sql"
	"fmt"

	"pos-backend/internal/domain"
	apperrors "pos-backend/internal/errors"
)

type MySQLUserRepository struct {
	db *sql.DB
}

func NewMySQLUserRepository(db *sql.DB) *MySQLUserRepository {
	return &MySQLUserRepository{db: db}
}

func (r *MySQLUserRepository) FindActiveByUsername(ctx context.Context, username string) (*domain.User, error) {
	query := `
		SELECT id, username, password, role, active, created_at
		FROM users
		WHERE username = ? AND active = 1
		LIMIT 1
	`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, username).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", username))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("querying user by username", err)
	}

	return &user, nil
}

func (r *MySQLUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	query := `
		SELECT id, username, password, role, active, created_at
		FROM users
		WHERE id = ?
	`

	var user domain.User
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("querying user by id", err)
	}

	return &user, nil
}

func (r *MySQLUserRepository) List(ctx context.Context) ([]domain.User, error) {
	query := `
		SELECT id, username, password, role, active, created_at
		FROM users
		ORDER BY username
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, apperrors.NewInternalError("listing users", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var user domain.User
		if err := rows.Scan(&user.ID, &user.Username, &user.PasswordHash, &user.Role, &user.Active, &user.CreatedAt); err != nil {
			return nil, apperrors.NewInternalError("scanning user row", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("iterating user rows", err)
	}

	return users, nil
}

func (r *MySQLUserRepository) Insert(ctx context.Context, user domain.User) error {
	query := `
		INSERT INTO users (id, username, password, role, active)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := r.db.ExecContext(ctx, query, user.ID, user.Username, user.PasswordHash, user.Role, user.Active)
	if err != nil {
		return apperrors.NewInternalError("inserting user", err)
	}
	return nil
}

func (r *MySQLUserRepository) Update(ctx context.Context, user domain.User) error {
	query := `
		UPDATE users
		SET username = ?, password = ?, role = ?, active = ?
		WHERE id = ?
	`

	result, err := r.db.ExecContext(ctx, query, user.Username, user.PasswordHash, user.Role, user.Active, user.ID)
	if err != nil {
		return apperrors.NewInternalError("updating user", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return apperrors.NewInternalError("getting rows affected", err)
	}
	if affected == 0 {
		return apperrors.NewNotFoundError(fmt.Sprintf("user %s not found", user.ID))
	}

	return nil
}

func (r *MySQLUserRepository) SaveRefreshToken(ctx context.Context, userID, token string) error {
	query := `
		INSERT INTO refresh_tokens (user_id, token)
		VALUES (?, ?)
		ON DUPLICATE KEY UPDATE token = VALUES(token)
	`

	_, err := r.db.ExecContext(ctx, query, userID, token)
	if err != nil {
		return apperrors.NewInternalError("saving refresh token", err)
	}
	return nil
}

func (r *MySQLUserRepository) GetRefreshToken(ctx context.Context, userID string) (string, error) {
	var token string
	err := r.db.QueryRowContext(ctx, `SELECT token FROM refresh_tokens WHERE user_id = ?`, userID).Scan(&token)
	if err == sql.ErrNoRows {
		return "", apperrors.NewNotFoundError("refresh token not found")
	}
	if err != nil {
		return "", apperrors.NewInternalError("querying refresh token", err)
	}
	return token, nil
}

func (r *MySQLUserRepository) DeleteRefreshToken(ctx context.Context, userID string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM refresh_tokens WHERE user_id = ?`, userID)
	if err != nil {
		return apperrors.NewInternalError("deleting refresh token", err)
	}
	return nil
}
