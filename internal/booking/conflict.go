// Package booking holds the pure scheduling rules: interval conflict
// detection, the reservation lifecycle table with its role gating, and
// the policy checks driven by the settings row. Nothing here touches
// storage; the service layer wires these rules into transactions.
package booking

import (
	"time"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// ValidateInterval rejects malformed intervals. Intervals are half-open
// [start, end); a zero-duration interval is invalid, not a "no conflict"
// case.
func ValidateInterval(start, end time.Time) error {
	if start.IsZero() || end.IsZero() {
		return domain.NewValidationError("interval", "start and end are required")
	}
	if !start.Before(end) {
		return domain.NewValidationError("interval", "start must be before end")
	}
	return nil
}

// FindOverlap returns the first reservation in existing that holds its
// slot and intersects [start, end), skipping excludeID (used for
// update-in-place checks). Returns nil when the interval is free.
//
// Overlap test: existing.Start < end AND existing.End > start. Under
// half-open semantics back-to-back bookings never overlap.
func FindOverlap(existing []*domain.Reservation, start, end time.Time, excludeID string) *domain.Reservation {
	for _, r := range existing {
		if excludeID != "" && r.ReservationID == excludeID {
			continue
		}
		if !r.Status.HoldsSlot() {
			continue
		}
		if r.Overlaps(start, end) {
			return r
		}
	}
	return nil
}
