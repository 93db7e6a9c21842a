package repository

import (
	"context"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// UsersRepository is the accounts store. Strongly typed domain models,
// no map[string]any.
type UsersRepository interface {
	GetUser(ctx context.Context, userID string) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ListUsers(ctx context.Context, filters UserFilters, page, size int) ([]*domain.User, int, error)
	CreateUser(ctx context.Context, user *domain.User) (string, error)
	UpdateUser(ctx context.Context, userID string, user *domain.User) error

	// DeactivateUser soft-deletes (active=false) and appends the audit row
	// in the same transaction; audit failure aborts the deactivation.
	DeactivateUser(ctx context.Context, userID string, audit *domain.AuditLog) error
}

// UserFilters narrows ListUsers.
type UserFilters struct {
	Role       string
	ActiveOnly bool
	Search     string // matches first_name, last_name, email
}
