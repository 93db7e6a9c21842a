package domain

import "time"

// Settings is the single-row business policy configuration. Read-mostly;
// updated only by admins through the settings service.
type Settings struct {
	SettingsID string `db:"settings_id"`

	MaxReservationsPerUser int `db:"max_reservations_per_user"`
	MaxAdvanceDays         int `db:"max_advance_days"`
	MaxDurationHours       int `db:"max_duration_hours"`

	RequireValidation bool `db:"require_validation"`

	NotifyOnValidation                 bool `db:"notify_on_validation"`
	SuppressAdminIfResponsableNotified bool `db:"suppress_admin_if_responsable_notified"`

	// Working hours, local time, 24h clock. Reservations must fall inside
	// [WorkingHoursStart, WorkingHoursEnd).
	WorkingHoursStart int `db:"working_hours_start"`
	WorkingHoursEnd   int `db:"working_hours_end"`

	UpdatedAt time.Time `db:"updated_at"`
}

// DefaultSettings returns the policy used when the settings row has not
// been created yet.
func DefaultSettings() *Settings {
	return &Settings{
		MaxReservationsPerUser:             5,
		MaxAdvanceDays:                     60,
		MaxDurationHours:                   8,
		RequireValidation:                  true,
		NotifyOnValidation:                 true,
		SuppressAdminIfResponsableNotified: true,
		WorkingHoursStart:                  8,
		WorkingHoursEnd:                    20,
	}
}
