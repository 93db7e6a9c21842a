package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresUsersRepository implements UsersRepository over Postgres.
type PostgresUsersRepository struct {
	db *sql.DB
}

func NewPostgresUsersRepository(db *sql.DB) *PostgresUsersRepository {
	return &PostgresUsersRepository{db: db}
}

var _ UsersRepository = (*PostgresUsersRepository)(nil)

const userColumns = `user_id::text, first_name, last_name, email, password_hash, role, active, created_at, updated_at`

func scanUserRow(row interface{ Scan(...any) error }) (*domain.User, error) {
	var u domain.User
	err := row.Scan(
		&u.UserID, &u.FirstName, &u.LastName, &u.Email,
		&u.PasswordHash, &u.Role, &u.Active, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *PostgresUsersRepository) GetUser(ctx context.Context, userID string) (*domain.User, error) {
	if userID == "" {
		return nil, &domain.NotFoundError{Entity: "user", ID: userID}
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE user_id = $1`, userID)
	u, err := scanUserRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "user", ID: userID}
	}
	if err != nil {
		return nil, domain.NewStorageError("get user", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	u, err := scanUserRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "user", ID: email}
	}
	if err != nil {
		return nil, domain.NewStorageError("get user by email", err)
	}
	return u, nil
}

func (r *PostgresUsersRepository) ListUsers(ctx context.Context, filters UserFilters, page, size int) ([]*domain.User, int, error) {
	where := []string{"1=1"}
	args := []any{}
	idx := 1

	if filters.Role != "" {
		where = append(where, fmt.Sprintf("role = $%d", idx))
		args = append(args, filters.Role)
		idx++
	}
	if filters.ActiveOnly {
		where = append(where, "active = TRUE")
	}
	if filters.Search != "" {
		where = append(where, fmt.Sprintf("(first_name ILIKE $%d OR last_name ILIKE $%d OR email ILIKE $%d)", idx, idx, idx))
		args = append(args, "%"+filters.Search+"%")
		idx++
	}
	cond := strings.Join(where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count users", err)
	}

	query := fmt.Sprintf(
		`SELECT `+userColumns+` FROM users WHERE %s ORDER BY last_name, first_name LIMIT $%d OFFSET $%d`,
		cond, idx, idx+1)
	args = append(args, size, (page-1)*size)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	defer rows.Close()

	var users []*domain.User
	for rows.Next() {
		u, err := scanUserRow(rows)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan user", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list users", err)
	}
	return users, total, nil
}

func (r *PostgresUsersRepository) CreateUser(ctx context.Context, user *domain.User) (string, error) {
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (user_id, first_name, last_name, email, password_hash, role, active)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		user.UserID, user.FirstName, user.LastName, user.Email,
		user.PasswordHash, user.Role, user.Active,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.NewValidationError("email", "already registered")
		}
		return "", domain.NewStorageError("create user", err)
	}
	return user.UserID, nil
}

func (r *PostgresUsersRepository) UpdateUser(ctx context.Context, userID string, user *domain.User) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users
		 SET first_name = $1, last_name = $2, email = $3, password_hash = $4,
		     role = $5, active = $6, updated_at = now()
		 WHERE user_id = $7`,
		user.FirstName, user.LastName, user.Email, user.PasswordHash,
		user.Role, user.Active, userID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("email", "already registered")
		}
		return domain.NewStorageError("update user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "user", ID: userID}
	}
	return nil
}

// DeactivateUser soft-deletes the account. The audit row is part of the
// transaction: failing to record the deletion aborts it.
func (r *PostgresUsersRepository) DeactivateUser(ctx context.Context, userID string, audit *domain.AuditLog) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return domain.NewStorageError("begin transaction", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`UPDATE users SET active = FALSE, updated_at = now() WHERE user_id = $1`, userID)
	if err != nil {
		return domain.NewStorageError("deactivate user", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "user", ID: userID}
	}

	if err := insertAuditTx(ctx, tx, audit); err != nil {
		return domain.NewStorageError("audit user deactivation", err)
	}

	if err := tx.Commit(); err != nil {
		return domain.NewStorageError("commit transaction", err)
	}
	return nil
}

// isUniqueViolation reports a Postgres unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}
