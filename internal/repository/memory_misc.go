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

// MemoryDepartmentsRepo is the in-memory DepartmentsRepository.
type MemoryDepartmentsRepo struct {
	mu    sync.RWMutex
	depts map[string]*domain.Department
}

func NewMemoryDepartmentsRepo() *MemoryDepartmentsRepo {
	return &MemoryDepartmentsRepo{depts: map[string]*domain.Department{}}
}

var _ DepartmentsRepository = (*MemoryDepartmentsRepo)(nil)

func (r *MemoryDepartmentsRepo) GetDepartment(_ context.Context, departmentID string) (*domain.Department, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.depts[departmentID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	clone := *d
	return &clone, nil
}

func (r *MemoryDepartmentsRepo) ListDepartments(_ context.Context, search string, page, size int) ([]*domain.Department, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domain.Department
	for _, d := range r.depts {
		if search != "" && !strings.Contains(strings.ToLower(d.Name), strings.ToLower(search)) {
			continue
		}
		clone := *d
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].Name < matched[j].Name })
	return paginate(matched, page, size), len(matched), nil
}

func (r *MemoryDepartmentsRepo) CreateDepartment(_ context.Context, dept *domain.Department) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, d := range r.depts {
		if strings.EqualFold(d.Name, dept.Name) {
			return "", domain.NewValidationError("name", "already exists")
		}
	}
	if dept.DepartmentID == "" {
		dept.DepartmentID = uuid.NewString()
	}
	dept.CreatedAt = time.Now()
	dept.UpdatedAt = dept.CreatedAt
	clone := *dept
	r.depts[dept.DepartmentID] = &clone
	return dept.DepartmentID, nil
}

func (r *MemoryDepartmentsRepo) UpdateDepartment(_ context.Context, departmentID string, dept *domain.Department) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.depts[departmentID]
	if !ok {
		return &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	for id, d := range r.depts {
		if id != departmentID && strings.EqualFold(d.Name, dept.Name) {
			return domain.NewValidationError("name", "already exists")
		}
	}
	clone := *dept
	clone.DepartmentID = departmentID
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	r.depts[departmentID] = &clone
	return nil
}

func (r *MemoryDepartmentsRepo) DeleteDepartment(_ context.Context, departmentID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.depts[departmentID]; !ok {
		return &domain.NotFoundError{Entity: "department", ID: departmentID}
	}
	delete(r.depts, departmentID)
	return nil
}

// MemoryAuditLogsRepo is the in-memory AuditLogsRepository.
type MemoryAuditLogsRepo struct {
	mu   sync.RWMutex
	logs []*domain.AuditLog
}

func NewMemoryAuditLogsRepo() *MemoryAuditLogsRepo {
	return &MemoryAuditLogsRepo{}
}

var _ AuditLogsRepository = (*MemoryAuditLogsRepo)(nil)

func (r *MemoryAuditLogsRepo) Append(_ context.Context, log *domain.AuditLog) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if log.AuditID == "" {
		log.AuditID = uuid.NewString()
	}
	if log.CreatedAt.IsZero() {
		log.CreatedAt = time.Now()
	}
	clone := *log
	r.logs = append(r.logs, &clone)
	return log.AuditID, nil
}

func (r *MemoryAuditLogsRepo) ListAuditLogs(_ context.Context, filters AuditFilters, page, size int) ([]*domain.AuditLog, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var matched []*domain.AuditLog
	for _, log := range r.logs {
		if filters.Action != "" && log.Action != filters.Action {
			continue
		}
		if filters.ActorID != "" && (!log.ActorID.Valid || log.ActorID.String != filters.ActorID) {
			continue
		}
		if filters.TargetType != "" && log.TargetType != filters.TargetType {
			continue
		}
		if filters.TargetID != "" && log.TargetID != filters.TargetID {
			continue
		}
		if filters.Outcome != "" && string(log.Outcome) != filters.Outcome {
			continue
		}
		if !filters.Since.IsZero() && log.CreatedAt.Before(filters.Since) {
			continue
		}
		clone := *log
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, page, size), len(matched), nil
}

func (r *MemoryAuditLogsRepo) PruneBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var kept []*domain.AuditLog
	var removed int64
	for _, log := range r.logs {
		if log.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, log)
	}
	r.logs = kept
	return removed, nil
}

// MemoryNotificationsRepo is the in-memory NotificationsRepository with
// the same (user, reservation, type) dedupe as the Postgres constraint.
type MemoryNotificationsRepo struct {
	mu    sync.Mutex
	items map[string]*domain.Notification
	seen  map[string]bool // user|reservation|type
}

func NewMemoryNotificationsRepo() *MemoryNotificationsRepo {
	return &MemoryNotificationsRepo{
		items: map[string]*domain.Notification{},
		seen:  map[string]bool{},
	}
}

var _ NotificationsRepository = (*MemoryNotificationsRepo)(nil)

func dedupeKey(n *domain.Notification) string {
	reservation := ""
	if n.ReservationID.Valid {
		reservation = n.ReservationID.String
	}
	return n.UserID + "|" + reservation + "|" + string(n.Type)
}

func (r *MemoryNotificationsRepo) Insert(_ context.Context, n *domain.Notification) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := dedupeKey(n)
	if r.seen[key] {
		return n.NotificationID, false, nil
	}
	if n.NotificationID == "" {
		n.NotificationID = uuid.NewString()
	}
	n.CreatedAt = time.Now()
	clone := *n
	r.items[n.NotificationID] = &clone
	r.seen[key] = true
	return n.NotificationID, true, nil
}

func (r *MemoryNotificationsRepo) ListByUser(_ context.Context, userID string, unreadOnly bool, page, size int) ([]*domain.Notification, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var matched []*domain.Notification
	for _, n := range r.items {
		if n.UserID != userID {
			continue
		}
		if unreadOnly && n.Read {
			continue
		}
		clone := *n
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	return paginate(matched, page, size), len(matched), nil
}

func (r *MemoryNotificationsRepo) MarkRead(_ context.Context, userID, notificationID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.items[notificationID]
	if !ok || n.UserID != userID {
		return &domain.NotFoundError{Entity: "notification", ID: notificationID}
	}
	n.Read = true
	return nil
}

func (r *MemoryNotificationsRepo) MarkAllRead(_ context.Context, userID string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var count int64
	for _, n := range r.items {
		if n.UserID == userID && !n.Read {
			n.Read = true
			count++
		}
	}
	return count, nil
}

// MemorySettingsRepo is the in-memory SettingsRepository.
type MemorySettingsRepo struct {
	mu       sync.Mutex
	settings *domain.Settings
}

func NewMemorySettingsRepo() *MemorySettingsRepo {
	return &MemorySettingsRepo{}
}

var _ SettingsRepository = (*MemorySettingsRepo)(nil)

func (r *MemorySettingsRepo) GetSettings(_ context.Context) (*domain.Settings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.settings == nil {
		s := domain.DefaultSettings()
		s.SettingsID = uuid.NewString()
		s.UpdatedAt = time.Now()
		r.settings = s
	}
	clone := *r.settings
	return &clone, nil
}

func (r *MemorySettingsRepo) UpdateSettings(_ context.Context, s *domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *s
	clone.UpdatedAt = time.Now()
	r.settings = &clone
	return nil
}
