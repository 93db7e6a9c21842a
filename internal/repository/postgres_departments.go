package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresDepartmentsRepository implements DepartmentsRepository over Postgres.
type PostgresDepartmentsRepository struct {
	db *sql.DB
}

func NewPostgresDepartmentsRepository(db *sql.DB) *PostgresDepartmentsRepository {
	return &PostgresDepartmentsRepository{db: db}
}

var _ DepartmentsRepository = (*PostgresDepartmentsRepository)(nil)

const departmentColumns = `department_id::text, name, slug, description, responsible_user_id::text, created_at, updated_at`

func scanDepartmentRow(row interface{ Scan(...any) error }) (*domain.Department, error) {
	var d domain.Department
	err := row.Scan(
		&d.DepartmentID, &d.Name, &d.Slug, &d.Description,
		&d.ResponsibleUserID, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *PostgresDepartmentsRepository) GetDepartment(ctx context.Context, departmentID string) (*domain.Department, error) {
	if departmentID == "" {
		return nil, &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	row := r.db.QueryRowContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE department_id = $1`, departmentID)
	d, err := scanDepartmentRow(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	if err != nil {
		return nil, domain.NewStorageError("get department", err)
	}
	return d, nil
}

func (r *PostgresDepartmentsRepository) ListDepartments(ctx context.Context, search string, page, size int) ([]*domain.Department, int, error) {
	cond := "1=1"
	args := []any{}
	if search != "" {
		cond = "name ILIKE $1"
		args = append(args, "%"+search+"%")
	}

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM departments WHERE `+cond, args...).Scan(&total); err != nil {
		return nil, 0, domain.NewStorageError("count departments", err)
	}

	limitIdx := len(args) + 1
	args = append(args, size, (page-1)*size)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+departmentColumns+` FROM departments WHERE `+cond+
			` ORDER BY name LIMIT $`+itoa(limitIdx)+` OFFSET $`+itoa(limitIdx+1),
		args...)
	if err != nil {
		return nil, 0, domain.NewStorageError("list departments", err)
	}
	defer rows.Close()

	var depts []*domain.Department
	for rows.Next() {
		d, err := scanDepartmentRow(rows)
		if err != nil {
			return nil, 0, domain.NewStorageError("scan department", err)
		}
		depts = append(depts, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.NewStorageError("list departments", err)
	}
	return depts, total, nil
}

func (r *PostgresDepartmentsRepository) CreateDepartment(ctx context.Context, dept *domain.Department) (string, error) {
	if dept.DepartmentID == "" {
		dept.DepartmentID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO departments (department_id, name, slug, description, responsible_user_id)
		 VALUES ($1, $2, $3, $4, $5)`,
		dept.DepartmentID, dept.Name, nullString(dept.Slug),
		nullString(dept.Description), nullString(dept.ResponsibleUserID),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return "", domain.NewValidationError("name", "already exists")
		}
		return "", domain.NewStorageError("create department", err)
	}
	return dept.DepartmentID, nil
}

func (r *PostgresDepartmentsRepository) UpdateDepartment(ctx context.Context, departmentID string, dept *domain.Department) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE departments
		 SET name = $1, slug = $2, description = $3, responsible_user_id = $4, updated_at = now()
		 WHERE department_id = $5`,
		dept.Name, nullString(dept.Slug), nullString(dept.Description),
		nullString(dept.ResponsibleUserID), departmentID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewValidationError("name", "already exists")
		}
		return domain.NewStorageError("update department", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	return nil
}

func (r *PostgresDepartmentsRepository) DeleteDepartment(ctx context.Context, departmentID string) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM departments WHERE department_id = $1`, departmentID)
	if err != nil {
		return domain.NewStorageError("delete department", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	return nil
}
