package domain

import "time"

const (
	RoleAdmin   = "admin"
	RoleCashier = "cashier"
)

type User struct {
	ID           string
	Username     string
	PasswordHash string
	Role         string
	Active       bool
	CreatedAt    time.Time
}

func ValidRole(role string) bool {
	return role == RoleAdmin || role == RoleCashier
}
