package booking

import (
	"fmt"
	"time"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// CheckCreatePolicy validates a proposed interval against the business
// policy settings: advance-booking window, single-booking duration cap
// and working hours. The interval itself must already be well-formed.
func CheckCreatePolicy(s *domain.Settings, now, start, end time.Time) error {
	if start.Before(now) {
		return domain.NewValidationError("start_time", "cannot book in the past")
	}
	if s.MaxAdvanceDays > 0 {
		horizon := now.AddDate(0, 0, s.MaxAdvanceDays)
		if start.After(horizon) {
			return domain.NewValidationError("start_time",
				fmt.Sprintf("cannot book more than %d days in advance", s.MaxAdvanceDays))
		}
	}
	if s.MaxDurationHours > 0 {
		if end.Sub(start) > time.Duration(s.MaxDurationHours)*time.Hour {
			return domain.NewValidationError("end_time",
				fmt.Sprintf("booking exceeds maximum duration of %d hours", s.MaxDurationHours))
		}
	}
	if err := checkWorkingHours(s, start, end); err != nil {
		return err
	}
	return nil
}

// checkWorkingHours requires the interval to fall inside the working
// window of the starting day. Open/close instants are compared, not raw
// hour numbers, so an interval ending at midnight next day cannot slip
// past the closing hour.
func checkWorkingHours(s *domain.Settings, start, end time.Time) error {
	if s.WorkingHoursStart == 0 && s.WorkingHoursEnd == 0 {
		return nil
	}
	year, month, day := start.Date()
	midnight := time.Date(year, month, day, 0, 0, 0, 0, start.Location())
	open := midnight.Add(time.Duration(s.WorkingHoursStart) * time.Hour)
	closeHour := s.WorkingHoursEnd
	if closeHour == 0 {
		closeHour = 24
	}
	closing := midnight.Add(time.Duration(closeHour) * time.Hour)

	if start.Before(open) {
		return domain.NewValidationError("start_time",
			fmt.Sprintf("working hours begin at %02d:00", s.WorkingHoursStart))
	}
	// The end instant is excluded, so ending exactly at closing time is fine.
	if end.After(closing) {
		return domain.NewValidationError("end_time",
			fmt.Sprintf("working hours end at %02d:00", closeHour))
	}
	return nil
}

// CheckQuota rejects a new pending reservation when the requester already
// holds activeCount non-terminal reservations at or above the limit.
func CheckQuota(s *domain.Settings, userID string, activeCount int) error {
	if s.MaxReservationsPerUser > 0 && activeCount >= s.MaxReservationsPerUser {
		return &domain.QuotaExceededError{UserID: userID, Limit: s.MaxReservationsPerUser}
	}
	return nil
}
