package repository

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// MemoryReservationsRepo is the in-memory ReservationsRepository. A
// single mutex stands in for the row locks of the Postgres
// implementation, which gives the same winner-takes-the-slot semantics
// under concurrent check-then-write calls.
type MemoryReservationsRepo struct {
	mu           sync.Mutex
	reservations map[string]*domain.Reservation

	// audits receives the audit rows the Postgres implementation would
	// write transactionally. Optional.
	audits *MemoryAuditLogsRepo
}

func NewMemoryReservationsRepo() *MemoryReservationsRepo {
	return &MemoryReservationsRepo{reservations: map[string]*domain.Reservation{}}
}

// AttachAudits wires the audit repo that receives in-transaction rows.
func (r *MemoryReservationsRepo) AttachAudits(a *MemoryAuditLogsRepo) {
	r.audits = a
}

var _ ReservationsRepository = (*MemoryReservationsRepo)(nil)

func (r *MemoryReservationsRepo) appendAuditLocked(audit *domain.AuditLog) {
	if audit != nil && r.audits != nil {
		_, _ = r.audits.Append(context.Background(), audit)
	}
}

func (r *MemoryReservationsRepo) GetReservation(_ context.Context, reservationID string) (*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	res, ok := r.reservations[reservationID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	clone := *res
	return &clone, nil
}

func (r *MemoryReservationsRepo) ListReservations(_ context.Context, filters ReservationFilters, page, size int) ([]*domain.Reservation, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var matched []*domain.Reservation
	for _, res := range r.reservations {
		if filters.RoomID != "" && res.RoomID != filters.RoomID {
			continue
		}
		if filters.UserID != "" && res.UserID != filters.UserID {
			continue
		}
		if filters.DepartmentID != "" &&
			(!res.DepartmentID.Valid || res.DepartmentID.String != filters.DepartmentID) {
			continue
		}
		if filters.Status != "" && string(res.Status) != filters.Status {
			continue
		}
		if !filters.From.IsZero() && res.StartTime.Before(filters.From) {
			continue
		}
		if !filters.To.IsZero() && !res.StartTime.Before(filters.To) {
			continue
		}
		clone := *res
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })
	return paginate(matched, page, size), len(matched), nil
}

func (r *MemoryReservationsRepo) ListOverlapping(_ context.Context, roomID string, start, end time.Time, excludeID string) ([]*domain.Reservation, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.overlappingLocked(roomID, start, end, excludeID, false), nil
}

// overlappingLocked scans the room's slot-holding rows for interval
// intersections. With validatedOnly set, pending rows are skipped: they
// do not own the slot yet and must not block a validation recheck.
func (r *MemoryReservationsRepo) overlappingLocked(roomID string, start, end time.Time, excludeID string, validatedOnly bool) []*domain.Reservation {
	var matched []*domain.Reservation
	for _, res := range r.reservations {
		if res.RoomID != roomID {
			continue
		}
		if excludeID != "" && res.ReservationID == excludeID {
			continue
		}
		if !res.Status.HoldsSlot() {
			continue
		}
		if validatedOnly && res.Status == domain.ReservationPending {
			continue
		}
		if res.Overlaps(start, end) {
			clone := *res
			matched = append(matched, &clone)
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].StartTime.Before(matched[j].StartTime) })
	return matched
}

func (r *MemoryReservationsRepo) CountActiveByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.UserID == userID && res.Status.HoldsSlot() {
			count++
		}
	}
	return count, nil
}

func (r *MemoryReservationsRepo) countActiveForRoom(roomID string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, res := range r.reservations {
		if res.RoomID == roomID && res.Status.HoldsSlot() {
			count++
		}
	}
	return count
}

func (r *MemoryReservationsRepo) CreateReservationChecked(_ context.Context, res *domain.Reservation, audit *domain.AuditLog) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if overlapping := r.overlappingLocked(res.RoomID, res.StartTime, res.EndTime, "", false); len(overlapping) > 0 {
		return "", &domain.ConflictError{
			RoomID:        res.RoomID,
			ReservationID: overlapping[0].ReservationID,
			Reason:        "room already reserved for this interval",
		}
	}

	if res.ReservationID == "" {
		res.ReservationID = uuid.NewString()
	}
	res.CreatedAt = time.Now()
	res.UpdatedAt = res.CreatedAt
	clone := *res
	r.reservations[res.ReservationID] = &clone

	if audit != nil {
		audit.TargetID = res.ReservationID
	}
	r.appendAuditLocked(audit)
	return res.ReservationID, nil
}

func (r *MemoryReservationsRepo) TransitionReservation(_ context.Context, reservationID string, upd TransitionUpdate, audit *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[reservationID]
	if !ok {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	if res.Status != upd.ExpectedStatus {
		return &domain.ConflictError{
			RoomID:        res.RoomID,
			ReservationID: reservationID,
			Reason:        "reservation changed status concurrently",
		}
	}
	if upd.RecheckConflict {
		if overlapping := r.overlappingLocked(res.RoomID, res.StartTime, res.EndTime, reservationID, true); len(overlapping) > 0 {
			return &domain.ConflictError{
				RoomID:        res.RoomID,
				ReservationID: overlapping[0].ReservationID,
				Reason:        "an overlapping reservation was validated first",
			}
		}
	}

	res.Status = upd.TargetStatus
	if upd.ValidatedBy != "" {
		res.ValidatedBy.String = upd.ValidatedBy
		res.ValidatedBy.Valid = true
		res.ValidatedAt.Time = upd.ValidatedAt
		res.ValidatedAt.Valid = true
	}
	if upd.AdminComment != "" {
		res.AdminComment.String = upd.AdminComment
		res.AdminComment.Valid = true
	}
	res.UpdatedAt = time.Now()

	r.appendAuditLocked(audit)
	return nil
}

func (r *MemoryReservationsRepo) UpdateReservation(_ context.Context, reservationID string, res *domain.Reservation, audit *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.reservations[reservationID]
	if !ok {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	if existing.Status != domain.ReservationPending {
		return &domain.InvalidTransitionError{From: existing.Status, To: existing.Status}
	}
	if overlapping := r.overlappingLocked(res.RoomID, res.StartTime, res.EndTime, reservationID, false); len(overlapping) > 0 {
		return &domain.ConflictError{
			RoomID:        res.RoomID,
			ReservationID: overlapping[0].ReservationID,
			Reason:        "room already reserved for this interval",
		}
	}

	existing.RoomID = res.RoomID
	existing.DepartmentID = res.DepartmentID
	existing.StartTime = res.StartTime
	existing.EndTime = res.EndTime
	existing.ParticipantCount = res.ParticipantCount
	existing.Equipment = res.Equipment
	existing.UpdatedAt = time.Now()

	r.appendAuditLocked(audit)
	return nil
}

func (r *MemoryReservationsRepo) AssignResponsible(_ context.Context, reservationID, responsibleUserID string, audit *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	res, ok := r.reservations[reservationID]
	if !ok {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	res.ValidatedBy.String = responsibleUserID
	res.ValidatedBy.Valid = true
	res.UpdatedAt = time.Now()

	r.appendAuditLocked(audit)
	return nil
}

func (r *MemoryReservationsRepo) DeleteReservation(_ context.Context, reservationID string, audit *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.reservations[reservationID]; !ok {
		return &domain.NotFoundError{Entity: "reservation", ID: reservationID}
	}
	delete(r.reservations, reservationID)

	r.appendAuditLocked(audit)
	return nil
}
