package domain

import (
	"time"
)

// Role is the RBAC role of a user.
type Role string

const (
	RoleAdmin       Role = "admin"
	RoleResponsable Role = "responsable"
	RoleUser        Role = "user"
)

// Valid reports whether the role is one of the three known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleResponsable, RoleUser:
		return true
	}
	return false
}

// User is an account. PasswordHash is a bcrypt hash computed by the
// service layer before persistence, never by a storage hook.
type User struct {
	UserID    string `db:"user_id"`
	FirstName string `db:"first_name"`
	LastName  string `db:"last_name"`
	Email     string `db:"email"` // unique

	PasswordHash []byte `db:"password_hash"`
	Role         Role   `db:"role"`
	Active       bool   `db:"active"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
