package domain

import (
	"database/sql"
	"time"
)

// Department tags reservations for reporting. The responsible user link
// is optional.
type Department struct {
	DepartmentID string `db:"department_id"`
	Name         string `db:"name"` // unique

	Slug        sql.NullString `db:"slug"`
	Description sql.NullString `db:"description"`

	ResponsibleUserID sql.NullString `db:"responsible_user_id"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
