package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// DepartmentService manages the department directory used to tag
// reservations for reporting.
type DepartmentService interface {
	CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (*domain.Department, error)
	GetDepartment(ctx context.Context, departmentID string) (*domain.Department, error)
	ListDepartments(ctx context.Context, req ListDepartmentsRequest) (*ListDepartmentsResponse, error)
	UpdateDepartment(ctx context.Context, req UpdateDepartmentRequest) (*domain.Department, error)
	DeleteDepartment(ctx context.Context, req DeleteDepartmentRequest) error
}

type departmentService struct {
	departmentsRepo repository.DepartmentsRepository
	usersRepo       repository.UsersRepository
	logger          *zap.Logger
}

func NewDepartmentService(departmentsRepo repository.DepartmentsRepository, usersRepo repository.UsersRepository, logger *zap.Logger) DepartmentService {
	return &departmentService{departmentsRepo: departmentsRepo, usersRepo: usersRepo, logger: logger}
}

type CreateDepartmentRequest struct {
	CurrentUserID string

	Name              string
	Description       string
	ResponsibleUserID string
}

type ListDepartmentsRequest struct {
	Search string
	Page   int
	Size   int
}

type ListDepartmentsResponse struct {
	Items []*domain.Department
	Total int
}

type UpdateDepartmentRequest struct {
	CurrentUserID string
	DepartmentID  string

	Name              string
	Description       string
	ResponsibleUserID string
}

type DeleteDepartmentRequest struct {
	CurrentUserID string
	DepartmentID  string
}

func (s *departmentService) CreateDepartment(ctx context.Context, req CreateDepartmentRequest) (*domain.Department, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "create departments"); err != nil {
		return nil, err
	}
	dept, err := s.buildDepartment(ctx, req.Name, req.Description, req.ResponsibleUserID)
	if err != nil {
		return nil, err
	}

	id, err := s.departmentsRepo.CreateDepartment(ctx, dept)
	if err != nil {
		return nil, err
	}
	dept.DepartmentID = id

	s.logger.Info("Created department", zap.String("department_id", id), zap.String("name", dept.Name))
	return dept, nil
}

func (s *departmentService) GetDepartment(ctx context.Context, departmentID string) (*domain.Department, error) {
	return s.departmentsRepo.GetDepartment(ctx, departmentID)
}

func (s *departmentService) ListDepartments(ctx context.Context, req ListDepartmentsRequest) (*ListDepartmentsResponse, error) {
	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.departmentsRepo.ListDepartments(ctx, req.Search, page, size)
	if err != nil {
		return nil, err
	}
	return &ListDepartmentsResponse{Items: items, Total: total}, nil
}

func (s *departmentService) UpdateDepartment(ctx context.Context, req UpdateDepartmentRequest) (*domain.Department, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "update departments"); err != nil {
		return nil, err
	}
	if _, err := s.departmentsRepo.GetDepartment(ctx, req.DepartmentID); err != nil {
		return nil, err
	}
	dept, err := s.buildDepartment(ctx, req.Name, req.Description, req.ResponsibleUserID)
	if err != nil {
		return nil, err
	}
	dept.DepartmentID = req.DepartmentID

	if err := s.departmentsRepo.UpdateDepartment(ctx, req.DepartmentID, dept); err != nil {
		return nil, err
	}
	s.logger.Info("Updated department", zap.String("department_id", req.DepartmentID))
	return dept, nil
}

func (s *departmentService) DeleteDepartment(ctx context.Context, req DeleteDepartmentRequest) error {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "delete departments"); err != nil {
		return err
	}
	if _, err := s.departmentsRepo.GetDepartment(ctx, req.DepartmentID); err != nil {
		return err
	}
	if err := s.departmentsRepo.DeleteDepartment(ctx, req.DepartmentID); err != nil {
		return err
	}
	s.logger.Info("Deleted department", zap.String("department_id", req.DepartmentID), zap.String("actor_id", req.CurrentUserID))
	return nil
}

func (s *departmentService) buildDepartment(ctx context.Context, name, description, responsibleID string) (*domain.Department, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("name", "is required")
	}

	dept := &domain.Department{
		Name: name,
	}
	if slug := slugify(name); slug != "" {
		dept.Slug.String = slug
		dept.Slug.Valid = true
	}
	if description != "" {
		dept.Description.String = description
		dept.Description.Valid = true
	}
	if responsibleID != "" {
		responsible, err := s.usersRepo.GetUser(ctx, responsibleID)
		if err != nil {
			return nil, err
		}
		if responsible.Role != domain.RoleResponsable && responsible.Role != domain.RoleAdmin {
			return nil, domain.NewValidationError("responsible_user_id", "user is not a responsable")
		}
		dept.ResponsibleUserID.String = responsibleID
		dept.ResponsibleUserID.Valid = true
	}
	return dept, nil
}

func slugify(name string) string {
	slug := strings.ToLower(strings.TrimSpace(name))
	slug = strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '_':
			return '-'
		}
		return -1
	}, slug)
	return strings.Trim(slug, "-")
}
