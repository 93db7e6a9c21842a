package repository

import (
	"context"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// SettingsRepository stores the single policy row.
type SettingsRepository interface {
	// GetSettings returns the singleton row, lazily inserting the
	// defaults when absent.
	GetSettings(ctx context.Context) (*domain.Settings, error)

	// UpdateSettings overwrites the singleton row.
	UpdateSettings(ctx context.Context, s *domain.Settings) error
}
