package service

import (
	"context"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// UserService manages accounts. Password hashing happens here with
// bcrypt before anything touches storage; repositories only ever see
// the hash.
type UserService interface {
	CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error)
	GetUser(ctx context.Context, req GetUserRequest) (*domain.User, error)
	ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error)
	UpdateUser(ctx context.Context, req UpdateUserRequest) (*domain.User, error)

	// DeactivateUser soft-deletes the account. The user's reservation
	// history stays intact for auditing.
	DeactivateUser(ctx context.Context, req DeactivateUserRequest) error
}

type userService struct {
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewUserService(usersRepo repository.UsersRepository, logger *zap.Logger) UserService {
	return &userService{usersRepo: usersRepo, logger: logger}
}

type CreateUserRequest struct {
	CurrentUserID string

	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

type GetUserRequest struct {
	CurrentUserID string
	UserID        string
}

type ListUsersRequest struct {
	CurrentUserID string

	Role       string
	ActiveOnly bool
	Search     string
	Page       int
	Size       int
}

type ListUsersResponse struct {
	Items []*domain.User
	Total int
}

// UpdateUserRequest rewrites profile fields. Empty Password keeps the
// current hash; Role changes are admin-only.
type UpdateUserRequest struct {
	CurrentUserID string
	UserID        string

	FirstName string
	LastName  string
	Email     string
	Password  string
	Role      domain.Role
}

type DeactivateUserRequest struct {
	CurrentUserID string
	UserID        string
}

func (s *userService) CreateUser(ctx context.Context, req CreateUserRequest) (*domain.User, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "create users"); err != nil {
		return nil, err
	}
	if err := validateUserFields(req.FirstName, req.LastName, req.Email); err != nil {
		return nil, err
	}
	if len(req.Password) < 8 {
		return nil, domain.NewValidationError("password", "must be at least 8 characters")
	}
	if !req.Role.Valid() {
		return nil, domain.NewValidationError("role", "must be admin, responsable or user")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, domain.NewStorageError("hash password", err)
	}

	user := &domain.User{
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		PasswordHash: hash,
		Role:         req.Role,
		Active:       true,
	}
	id, err := s.usersRepo.CreateUser(ctx, user)
	if err != nil {
		return nil, err
	}
	user.UserID = id
	user.PasswordHash = nil

	s.logger.Info("Created user",
		zap.String("user_id", id),
		zap.String("role", string(req.Role)),
	)
	return user, nil
}

func (s *userService) GetUser(ctx context.Context, req GetUserRequest) (*domain.User, error) {
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}
	// Non-admins may only read their own profile.
	if actor.Role != domain.RoleAdmin && actor.UserID != req.UserID {
		return nil, &domain.PermissionError{Role: string(actor.Role), Action: "read another user's profile"}
	}
	user, err := s.usersRepo.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	user.PasswordHash = nil
	return user, nil
}

func (s *userService) ListUsers(ctx context.Context, req ListUsersRequest) (*ListUsersResponse, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "list users"); err != nil {
		return nil, err
	}

	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.usersRepo.ListUsers(ctx, repository.UserFilters{
		Role:       req.Role,
		ActiveOnly: req.ActiveOnly,
		Search:     req.Search,
	}, page, size)
	if err != nil {
		return nil, err
	}
	for _, u := range items {
		u.PasswordHash = nil
	}
	return &ListUsersResponse{Items: items, Total: total}, nil
}

func (s *userService) UpdateUser(ctx context.Context, req UpdateUserRequest) (*domain.User, error) {
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && actor.UserID != req.UserID {
		return nil, &domain.PermissionError{Role: string(actor.Role), Action: "update another user's profile"}
	}

	current, err := s.usersRepo.GetUser(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if err := validateUserFields(req.FirstName, req.LastName, req.Email); err != nil {
		return nil, err
	}

	updated := *current
	updated.FirstName = strings.TrimSpace(req.FirstName)
	updated.LastName = strings.TrimSpace(req.LastName)
	updated.Email = strings.ToLower(strings.TrimSpace(req.Email))

	if req.Role != "" && req.Role != current.Role {
		if actor.Role != domain.RoleAdmin {
			return nil, &domain.PermissionError{Role: string(actor.Role), Action: "change a user's role"}
		}
		if !req.Role.Valid() {
			return nil, domain.NewValidationError("role", "must be admin, responsable or user")
		}
		updated.Role = req.Role
	}
	if req.Password != "" {
		if len(req.Password) < 8 {
			return nil, domain.NewValidationError("password", "must be at least 8 characters")
		}
		hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			return nil, domain.NewStorageError("hash password", err)
		}
		updated.PasswordHash = hash
	}

	if err := s.usersRepo.UpdateUser(ctx, req.UserID, &updated); err != nil {
		return nil, err
	}
	updated.PasswordHash = nil

	s.logger.Info("Updated user", zap.String("user_id", req.UserID), zap.String("actor_id", actor.UserID))
	return &updated, nil
}

func (s *userService) DeactivateUser(ctx context.Context, req DeactivateUserRequest) error {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "deactivate users"); err != nil {
		return err
	}
	if req.CurrentUserID == req.UserID {
		return domain.NewValidationError("user_id", "cannot deactivate your own account")
	}
	current, err := s.usersRepo.GetUser(ctx, req.UserID)
	if err != nil {
		return err
	}

	after := *current
	after.Active = false
	current.PasswordHash = nil
	after.PasswordHash = nil
	audit := auditRow(
		domain.AuditActionUserDelete, req.CurrentUserID,
		"user", req.UserID,
		current, &after, domain.AuditSuccess, "",
	)
	if err := s.usersRepo.DeactivateUser(ctx, req.UserID, audit); err != nil {
		return err
	}
	s.logger.Info("Deactivated user", zap.String("user_id", req.UserID), zap.String("actor_id", req.CurrentUserID))
	return nil
}

func validateUserFields(firstName, lastName, email string) error {
	if strings.TrimSpace(firstName) == "" {
		return domain.NewValidationError("first_name", "is required")
	}
	if strings.TrimSpace(lastName) == "" {
		return domain.NewValidationError("last_name", "is required")
	}
	email = strings.TrimSpace(email)
	if email == "" || !strings.Contains(email, "@") {
		return domain.NewValidationError("email", "must be a valid email address")
	}
	return nil
}
