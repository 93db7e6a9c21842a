package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
	"github.com/marxist91/reservation-backend-sub001/internal/store"
)

const (
	settingsCacheKey = "settings:snapshot"
	settingsCacheTTL = 30 * time.Second
)

// SettingService serves the policy settings row. Reads go through a
// short-TTL cache; a policy change may take up to the TTL to reach all
// readers, which is acceptable for these limits.
type SettingService interface {
	GetSettings(ctx context.Context) (*domain.Settings, error)
	UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*domain.Settings, error)
}

type settingService struct {
	settingsRepo repository.SettingsRepository
	usersRepo    repository.UsersRepository
	auditSvc     AuditService
	cache        store.KV
	logger       *zap.Logger
}

func NewSettingService(settingsRepo repository.SettingsRepository, usersRepo repository.UsersRepository, auditSvc AuditService, cache store.KV, logger *zap.Logger) SettingService {
	return &settingService{
		settingsRepo: settingsRepo,
		usersRepo:    usersRepo,
		auditSvc:     auditSvc,
		cache:        cache,
		logger:       logger,
	}
}

// UpdateSettingsRequest is a partial update: nil fields keep the current
// value.
type UpdateSettingsRequest struct {
	CurrentUserID string

	MaxReservationsPerUser *int `json:"max_reservations_per_user"`
	MaxAdvanceDays         *int `json:"max_advance_days"`
	MaxDurationHours       *int `json:"max_duration_hours"`

	RequireValidation                  *bool `json:"require_validation"`
	NotifyOnValidation                 *bool `json:"notify_on_validation"`
	SuppressAdminIfResponsableNotified *bool `json:"suppress_admin_if_responsable_notified"`

	WorkingHoursStart *int `json:"working_hours_start"`
	WorkingHoursEnd   *int `json:"working_hours_end"`
}

func (s *settingService) GetSettings(ctx context.Context) (*domain.Settings, error) {
	if cached, err := s.cache.Get(ctx, settingsCacheKey); err == nil {
		var snap domain.Settings
		if jsonErr := json.Unmarshal([]byte(cached), &snap); jsonErr == nil {
			return &snap, nil
		}
		// Corrupt cache entry, fall through to the database.
	}

	settings, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}

	if raw, err := json.Marshal(settings); err == nil {
		if err := s.cache.Set(ctx, settingsCacheKey, string(raw), settingsCacheTTL); err != nil {
			s.logger.Warn("Failed to cache settings snapshot", zap.Error(err))
		}
	}
	return settings, nil
}

func (s *settingService) UpdateSettings(ctx context.Context, req UpdateSettingsRequest) (*domain.Settings, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "update settings"); err != nil {
		return nil, err
	}

	// 1. Load the current row (seeding defaults if absent).
	current, err := s.settingsRepo.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	before := *current

	// 2. Merge the partial update.
	updated := *current
	if req.MaxReservationsPerUser != nil {
		updated.MaxReservationsPerUser = *req.MaxReservationsPerUser
	}
	if req.MaxAdvanceDays != nil {
		updated.MaxAdvanceDays = *req.MaxAdvanceDays
	}
	if req.MaxDurationHours != nil {
		updated.MaxDurationHours = *req.MaxDurationHours
	}
	if req.RequireValidation != nil {
		updated.RequireValidation = *req.RequireValidation
	}
	if req.NotifyOnValidation != nil {
		updated.NotifyOnValidation = *req.NotifyOnValidation
	}
	if req.SuppressAdminIfResponsableNotified != nil {
		updated.SuppressAdminIfResponsableNotified = *req.SuppressAdminIfResponsableNotified
	}
	if req.WorkingHoursStart != nil {
		updated.WorkingHoursStart = *req.WorkingHoursStart
	}
	if req.WorkingHoursEnd != nil {
		updated.WorkingHoursEnd = *req.WorkingHoursEnd
	}

	// 3. Validate the merged result.
	if err := validateSettings(&updated); err != nil {
		return nil, err
	}

	// 4. Persist, invalidate the cache, audit.
	if err := s.settingsRepo.UpdateSettings(ctx, &updated); err != nil {
		return nil, err
	}
	if err := s.cache.Del(ctx, settingsCacheKey); err != nil {
		s.logger.Warn("Failed to invalidate settings cache", zap.Error(err))
	}
	s.auditSvc.Record(ctx, auditRow(
		domain.AuditActionSettingsUpdate, req.CurrentUserID,
		"settings", updated.SettingsID,
		&before, &updated, domain.AuditSuccess, "",
	))
	s.logger.Info("Updated settings", zap.String("actor_id", req.CurrentUserID))

	return &updated, nil
}

func validateSettings(s *domain.Settings) error {
	if s.MaxReservationsPerUser < 0 {
		return domain.NewValidationError("max_reservations_per_user", "must not be negative")
	}
	if s.MaxAdvanceDays < 0 {
		return domain.NewValidationError("max_advance_days", "must not be negative")
	}
	if s.MaxDurationHours < 0 {
		return domain.NewValidationError("max_duration_hours", "must not be negative")
	}
	if s.WorkingHoursStart < 0 || s.WorkingHoursStart > 23 {
		return domain.NewValidationError("working_hours_start", "must be within 0-23")
	}
	if s.WorkingHoursEnd < 0 || s.WorkingHoursEnd > 24 {
		return domain.NewValidationError("working_hours_end", "must be within 0-24")
	}
	if s.WorkingHoursEnd != 0 && s.WorkingHoursStart >= s.WorkingHoursEnd {
		return domain.NewValidationError("working_hours", "start must be before end")
	}
	return nil
}
