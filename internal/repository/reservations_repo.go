package repository

import (
	"context"
	"time"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// ReservationsRepository is the reservations store. The check-then-write
// operations (CreateReservationChecked, TransitionReservation) run the
// conflict check and the status write as one transaction with row locks
// on the room's live reservations, so two concurrent validations cannot
// both pass the check against stale data; the loser surfaces
// ConflictError.
type ReservationsRepository interface {
	GetReservation(ctx context.Context, reservationID string) (*domain.Reservation, error)
	ListReservations(ctx context.Context, filters ReservationFilters, page, size int) ([]*domain.Reservation, int, error)

	// ListOverlapping returns slot-holding reservations of the room
	// intersecting [start, end), excluding excludeID when non-empty.
	// Side-effect-free read for the conflict checker.
	ListOverlapping(ctx context.Context, roomID string, start, end time.Time, excludeID string) ([]*domain.Reservation, error)

	// CountActiveByUser counts the user's non-terminal reservations, for
	// quota enforcement.
	CountActiveByUser(ctx context.Context, userID string) (int, error)

	// CreateReservationChecked inserts the reservation after re-running
	// the overlap check under lock, and appends the audit row, all in one
	// transaction. Overlap -> ConflictError, nothing written.
	CreateReservationChecked(ctx context.Context, res *domain.Reservation, audit *domain.AuditLog) (string, error)

	// TransitionReservation applies a status change. Inside the
	// transaction the row is re-read with FOR UPDATE; if its status no
	// longer matches upd.ExpectedStatus the caller lost a race and gets
	// ConflictError. When upd.RecheckConflict is set the overlap check is
	// re-run under lock before the write. The audit row is appended in
	// the same transaction; audit failure aborts the transition.
	TransitionReservation(ctx context.Context, reservationID string, upd TransitionUpdate, audit *domain.AuditLog) error

	// UpdateReservation rewrites the mutable fields of a pending
	// reservation (interval, participants, equipment, department) after
	// re-running the overlap check under lock, excluding the row itself.
	UpdateReservation(ctx context.Context, reservationID string, res *domain.Reservation, audit *domain.AuditLog) error

	// AssignResponsible sets validated_by without changing status.
	// Audited in the same transaction (critical action).
	AssignResponsible(ctx context.Context, reservationID, responsibleUserID string, audit *domain.AuditLog) error

	// DeleteReservation hard-deletes the row and appends the audit row in
	// one transaction (critical action).
	DeleteReservation(ctx context.Context, reservationID string, audit *domain.AuditLog) error
}

// TransitionUpdate carries the fields written by a status transition.
type TransitionUpdate struct {
	ExpectedStatus  domain.ReservationStatus
	TargetStatus    domain.ReservationStatus
	RecheckConflict bool

	// Set when entering validated: who validated and when.
	ValidatedBy string
	ValidatedAt time.Time

	AdminComment string
}

// ReservationFilters narrows ListReservations.
type ReservationFilters struct {
	RoomID       string
	UserID       string
	DepartmentID string
	Status       string
	From         time.Time // inclusive lower bound on start_time
	To           time.Time // exclusive upper bound on start_time
}
