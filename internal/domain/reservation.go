package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// ReservationStatus is the lifecycle status of a reservation.
type ReservationStatus string

const (
	ReservationPending   ReservationStatus = "pending"
	ReservationValidated ReservationStatus = "validated"
	ReservationRejected  ReservationStatus = "rejected"
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

// IsTerminal reports whether no further transitions are possible.
func (s ReservationStatus) IsTerminal() bool {
	switch s {
	case ReservationRejected, ReservationCancelled, ReservationCompleted:
		return true
	}
	return false
}

// HoldsSlot reports whether the status occupies the room's time slot for
// conflict purposes. Rejected and cancelled reservations free the slot;
// completed ones are in the past and kept for the record.
func (s ReservationStatus) HoldsSlot() bool {
	switch s {
	case ReservationPending, ReservationValidated, ReservationConfirmed:
		return true
	}
	return false
}

// Reservation is a request to occupy a room for the half-open interval
// [StartTime, EndTime).
type Reservation struct {
	ReservationID string `db:"reservation_id"`
	RoomID        string `db:"room_id"`
	UserID        string `db:"user_id"` // requester
	DepartmentID  sql.NullString `db:"department_id"`

	StartTime time.Time         `db:"start_time"`
	EndTime   time.Time         `db:"end_time"`
	Status    ReservationStatus `db:"status"`

	ParticipantCount int            `db:"participant_count"`
	Equipment        pq.StringArray `db:"equipment"` // supplementary equipment
	AdminComment     sql.NullString `db:"admin_comment"`

	ValidatedBy sql.NullString `db:"validated_by"`
	ValidatedAt sql.NullTime   `db:"validated_at"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Overlaps reports whether the reservation's interval intersects
// [start, end) under half-open semantics: back-to-back bookings
// (existing.End == start) do not overlap.
func (r *Reservation) Overlaps(start, end time.Time) bool {
	return r.StartTime.Before(end) && r.EndTime.After(start)
}
