package booking

import (
	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// transitions is the closed lifecycle table. Rejected, cancelled and
// completed are terminal; no transition skips a state.
var transitions = map[domain.ReservationStatus][]domain.ReservationStatus{
	domain.ReservationPending:   {domain.ReservationValidated, domain.ReservationRejected},
	domain.ReservationValidated: {domain.ReservationConfirmed, domain.ReservationCancelled},
	domain.ReservationConfirmed: {domain.ReservationCompleted, domain.ReservationCancelled},
}

// CanTransition reports whether from -> to is a legal lifecycle edge.
func CanTransition(from, to domain.ReservationStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// CheckTransition returns InvalidTransitionError for edges outside the
// table, regardless of actor.
func CheckTransition(from, to domain.ReservationStatus) error {
	if !CanTransition(from, to) {
		return &domain.InvalidTransitionError{From: from, To: to}
	}
	return nil
}

// NeedsConflictRecheck reports whether entering the target status must
// re-run the conflict check: a previously pending reservation may have
// been superseded by one validated first.
func NeedsConflictRecheck(to domain.ReservationStatus) bool {
	return to == domain.ReservationValidated || to == domain.ReservationConfirmed
}

// AuthorizeTransition enforces who may trigger a lifecycle edge:
//
//   - validate / reject / confirm / complete: admin, or the responsable
//     assigned to the reservation's room;
//   - cancel: the original requester or an admin.
//
// The edge itself must already have passed CheckTransition.
func AuthorizeTransition(actor *domain.User, room *domain.Room, res *domain.Reservation, to domain.ReservationStatus) error {
	if actor.Role == domain.RoleAdmin {
		return nil
	}
	switch to {
	case domain.ReservationValidated, domain.ReservationRejected,
		domain.ReservationConfirmed, domain.ReservationCompleted:
		if actor.Role == domain.RoleResponsable &&
			room.ResponsibleUserID.Valid && room.ResponsibleUserID.String == actor.UserID {
			return nil
		}
	case domain.ReservationCancelled:
		if res.UserID == actor.UserID {
			return nil
		}
	}
	return &domain.PermissionError{Role: string(actor.Role), Action: "set reservation status to " + string(to)}
}

// NotificationTypeFor maps a target status to the notification emitted
// to the requester on that transition.
func NotificationTypeFor(to domain.ReservationStatus) domain.NotificationType {
	switch to {
	case domain.ReservationValidated:
		return domain.NotifReservationValidated
	case domain.ReservationRejected:
		return domain.NotifReservationRejected
	case domain.ReservationConfirmed:
		return domain.NotifReservationConfirmed
	case domain.ReservationCancelled:
		return domain.NotifReservationCancelled
	case domain.ReservationCompleted:
		return domain.NotifReservationCompleted
	}
	return domain.NotifReservationCreated
}
