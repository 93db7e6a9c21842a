package repository

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// MemoryUsersRepo is the in-memory UsersRepository used by unit tests and
// by the DB-less dev fallback.
type MemoryUsersRepo struct {
	mu    sync.RWMutex
	users map[string]*domain.User
}

func NewMemoryUsersRepo() *MemoryUsersRepo {
	return &MemoryUsersRepo{users: map[string]*domain.User{}}
}

var _ UsersRepository = (*MemoryUsersRepo)(nil)

func (r *MemoryUsersRepo) GetUser(_ context.Context, userID string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[userID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "user", ID: userID}
	}
	clone := *u
	return &clone, nil
}

func (r *MemoryUsersRepo) GetUserByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			clone := *u
			return &clone, nil
		}
	}
	return nil, &domain.NotFoundError{Entity: "user", ID: email}
}

func (r *MemoryUsersRepo) ListUsers(_ context.Context, filters UserFilters, page, size int) ([]*domain.User, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.User
	for _, u := range r.users {
		if filters.Role != "" && string(u.Role) != filters.Role {
			continue
		}
		if filters.ActiveOnly && !u.Active {
			continue
		}
		if filters.Search != "" {
			s := strings.ToLower(filters.Search)
			if !strings.Contains(strings.ToLower(u.FirstName), s) &&
				!strings.Contains(strings.ToLower(u.LastName), s) &&
				!strings.Contains(strings.ToLower(u.Email), s) {
				continue
			}
		}
		clone := *u
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].LastName != matched[j].LastName {
			return matched[i].LastName < matched[j].LastName
		}
		return matched[i].FirstName < matched[j].FirstName
	})
	return paginate(matched, page, size), len(matched), nil
}

func (r *MemoryUsersRepo) CreateUser(_ context.Context, user *domain.User) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return "", domain.NewValidationError("email", "already registered")
		}
	}
	if user.UserID == "" {
		user.UserID = uuid.NewString()
	}
	user.CreatedAt = time.Now()
	user.UpdatedAt = user.CreatedAt
	clone := *user
	r.users[user.UserID] = &clone
	return user.UserID, nil
}

func (r *MemoryUsersRepo) UpdateUser(_ context.Context, userID string, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.users[userID]
	if !ok {
		return &domain.NotFoundError{Entity: "user", ID: userID}
	}
	for id, u := range r.users {
		if id != userID && strings.EqualFold(u.Email, user.Email) {
			return domain.NewValidationError("email", "already registered")
		}
	}
	clone := *user
	clone.UserID = userID
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	r.users[userID] = &clone
	return nil
}

func (r *MemoryUsersRepo) DeactivateUser(_ context.Context, userID string, _ *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[userID]
	if !ok {
		return &domain.NotFoundError{Entity: "user", ID: userID}
	}
	u.Active = false
	u.UpdatedAt = time.Now()
	return nil
}

// paginate slices a sorted result set the way LIMIT/OFFSET would.
func paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	if page <= 0 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return nil
	}
	end := start + size
	if end > len(items) {
		end = len(items)
	}
	return items[start:end]
}
