package repository

import (
	"context"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// DepartmentsRepository is the departments store.
type DepartmentsRepository interface {
	GetDepartment(ctx context.Context, departmentID string) (*domain.Department, error)
	ListDepartments(ctx context.Context, search string, page, size int) ([]*domain.Department, int, error)
	CreateDepartment(ctx context.Context, dept *domain.Department) (string, error)
	UpdateDepartment(ctx context.Context, departmentID string, dept *domain.Department) error
	DeleteDepartment(ctx context.Context, departmentID string) error
}
