package booking

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

func TestTransitionTable(t *testing.T) {
	all := []domain.ReservationStatus{
		domain.ReservationPending,
		domain.ReservationValidated,
		domain.ReservationRejected,
		domain.ReservationConfirmed,
		domain.ReservationCancelled,
		domain.ReservationCompleted,
	}
	allowed := map[[2]domain.ReservationStatus]bool{
		{domain.ReservationPending, domain.ReservationValidated}:   true,
		{domain.ReservationPending, domain.ReservationRejected}:    true,
		{domain.ReservationValidated, domain.ReservationConfirmed}: true,
		{domain.ReservationValidated, domain.ReservationCancelled}: true,
		{domain.ReservationConfirmed, domain.ReservationCompleted}: true,
		{domain.ReservationConfirmed, domain.ReservationCancelled}: true,
	}

	// Every edge outside the table is rejected, including self-loops and
	// anything out of a terminal status.
	for _, from := range all {
		for _, to := range all {
			got := CanTransition(from, to)
			require.Equal(t, allowed[[2]domain.ReservationStatus{from, to}], got,
				"transition %s -> %s", from, to)
		}
	}
}

func TestCheckTransitionError(t *testing.T) {
	err := CheckTransition(domain.ReservationCompleted, domain.ReservationPending)
	require.Error(t, err)
	var invErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invErr)
	require.Equal(t, domain.ReservationCompleted, invErr.From)
	require.Equal(t, domain.ReservationPending, invErr.To)
}

func TestNeedsConflictRecheck(t *testing.T) {
	require.True(t, NeedsConflictRecheck(domain.ReservationValidated))
	require.True(t, NeedsConflictRecheck(domain.ReservationConfirmed))
	require.False(t, NeedsConflictRecheck(domain.ReservationRejected))
	require.False(t, NeedsConflictRecheck(domain.ReservationCancelled))
	require.False(t, NeedsConflictRecheck(domain.ReservationCompleted))
}

func TestAuthorizeTransition(t *testing.T) {
	admin := &domain.User{UserID: "admin-1", Role: domain.RoleAdmin}
	responsable := &domain.User{UserID: "resp-1", Role: domain.RoleResponsable}
	otherResponsable := &domain.User{UserID: "resp-2", Role: domain.RoleResponsable}
	requester := &domain.User{UserID: "user-1", Role: domain.RoleUser}
	stranger := &domain.User{UserID: "user-2", Role: domain.RoleUser}

	room := &domain.Room{
		RoomID:            "room-1",
		ResponsibleUserID: sql.NullString{String: "resp-1", Valid: true},
	}
	res := &domain.Reservation{
		ReservationID: "r1",
		RoomID:        "room-1",
		UserID:        "user-1",
		Status:        domain.ReservationPending,
	}

	// Admin may trigger anything.
	require.NoError(t, AuthorizeTransition(admin, room, res, domain.ReservationValidated))
	require.NoError(t, AuthorizeTransition(admin, room, res, domain.ReservationCancelled))

	// The room's responsable validates and rejects; another responsable
	// does not.
	require.NoError(t, AuthorizeTransition(responsable, room, res, domain.ReservationValidated))
	require.NoError(t, AuthorizeTransition(responsable, room, res, domain.ReservationRejected))
	require.Error(t, AuthorizeTransition(otherResponsable, room, res, domain.ReservationValidated))

	// The requester cancels their own reservation but cannot validate it.
	require.NoError(t, AuthorizeTransition(requester, room, res, domain.ReservationCancelled))
	require.Error(t, AuthorizeTransition(requester, room, res, domain.ReservationValidated))

	// A stranger can do nothing.
	err := AuthorizeTransition(stranger, room, res, domain.ReservationCancelled)
	require.Error(t, err)
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)
}
