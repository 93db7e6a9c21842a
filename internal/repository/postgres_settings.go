package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// PostgresSettingsRepository implements SettingsRepository over Postgres.
// The settings table holds exactly one row, created lazily from
// domain.DefaultSettings.
type PostgresSettingsRepository struct {
	db *sql.DB
}

func NewPostgresSettingsRepository(db *sql.DB) *PostgresSettingsRepository {
	return &PostgresSettingsRepository{db: db}
}

var _ SettingsRepository = (*PostgresSettingsRepository)(nil)

const settingsColumns = `settings_id::text, max_reservations_per_user, max_advance_days, max_duration_hours,
	require_validation, notify_on_validation, suppress_admin_if_responsable_notified,
	working_hours_start, working_hours_end, updated_at`

func (r *PostgresSettingsRepository) GetSettings(ctx context.Context) (*domain.Settings, error) {
	s, err := r.querySettings(ctx)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, domain.NewStorageError("get settings", err)
	}

	// No row yet: seed the defaults. A concurrent seeder may win the
	// insert; re-read in that case.
	defaults := domain.DefaultSettings()
	defaults.SettingsID = uuid.NewString()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO settings
			(settings_id, max_reservations_per_user, max_advance_days, max_duration_hours,
			 require_validation, notify_on_validation, suppress_admin_if_responsable_notified,
			 working_hours_start, working_hours_end)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9
		 WHERE NOT EXISTS (SELECT 1 FROM settings)`,
		defaults.SettingsID, defaults.MaxReservationsPerUser, defaults.MaxAdvanceDays,
		defaults.MaxDurationHours, defaults.RequireValidation, defaults.NotifyOnValidation,
		defaults.SuppressAdminIfResponsableNotified, defaults.WorkingHoursStart, defaults.WorkingHoursEnd,
	)
	if err != nil {
		return nil, domain.NewStorageError("seed default settings", err)
	}

	s, err = r.querySettings(ctx)
	if err != nil {
		return nil, domain.NewStorageError("get settings", err)
	}
	return s, nil
}

func (r *PostgresSettingsRepository) querySettings(ctx context.Context) (*domain.Settings, error) {
	var s domain.Settings
	err := r.db.QueryRowContext(ctx,
		`SELECT `+settingsColumns+` FROM settings LIMIT 1`).Scan(
		&s.SettingsID, &s.MaxReservationsPerUser, &s.MaxAdvanceDays, &s.MaxDurationHours,
		&s.RequireValidation, &s.NotifyOnValidation, &s.SuppressAdminIfResponsableNotified,
		&s.WorkingHoursStart, &s.WorkingHoursEnd, &s.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PostgresSettingsRepository) UpdateSettings(ctx context.Context, s *domain.Settings) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE settings
		 SET max_reservations_per_user = $1, max_advance_days = $2, max_duration_hours = $3,
		     require_validation = $4, notify_on_validation = $5,
		     suppress_admin_if_responsable_notified = $6,
		     working_hours_start = $7, working_hours_end = $8, updated_at = now()
		 WHERE settings_id = $9`,
		s.MaxReservationsPerUser, s.MaxAdvanceDays, s.MaxDurationHours,
		s.RequireValidation, s.NotifyOnValidation, s.SuppressAdminIfResponsableNotified,
		s.WorkingHoursStart, s.WorkingHoursEnd, s.SettingsID,
	)
	if err != nil {
		return domain.NewStorageError("update settings", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return &domain.NotFoundError{Entity: "settings", ID: s.SettingsID}
	}
	return nil
}
