package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

func stageReservation(r *MemoryReservationsRepo, id string, status domain.ReservationStatus, start, end time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reservations[id] = &domain.Reservation{
		ReservationID:    id,
		RoomID:           "room-1",
		UserID:           "user-" + id,
		StartTime:        start,
		EndTime:          end,
		Status:           status,
		ParticipantCount: 2,
	}
}

func TestTransitionRecheckIgnoresPendingSiblings(t *testing.T) {
	repo := NewMemoryReservationsRepo()
	ctx := context.Background()

	start := time.Date(2026, 9, 2, 9, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	// Two overlapping pendings can coexist after a create race; a pending
	// sibling does not own the slot, so validating either must succeed.
	stageReservation(repo, "first", domain.ReservationPending, start, end)
	stageReservation(repo, "second", domain.ReservationPending, start.Add(30*time.Minute), end.Add(30*time.Minute))

	require.NoError(t, repo.TransitionReservation(ctx, "first", TransitionUpdate{
		ExpectedStatus:  domain.ReservationPending,
		TargetStatus:    domain.ReservationValidated,
		RecheckConflict: true,
		ValidatedBy:     "resp-1",
		ValidatedAt:     time.Now().UTC(),
	}, nil))

	// The loser of the validation race is now blocked by a real occupant.
	err := repo.TransitionReservation(ctx, "second", TransitionUpdate{
		ExpectedStatus:  domain.ReservationPending,
		TargetStatus:    domain.ReservationValidated,
		RecheckConflict: true,
		ValidatedBy:     "resp-1",
		ValidatedAt:     time.Now().UTC(),
	}, nil)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, "first", conflictErr.ReservationID)
}

func TestTransitionRecheckBlockedByConfirmed(t *testing.T) {
	repo := NewMemoryReservationsRepo()
	ctx := context.Background()

	start := time.Date(2026, 9, 2, 14, 0, 0, 0, time.UTC)
	end := start.Add(time.Hour)

	stageReservation(repo, "held", domain.ReservationConfirmed, start, end)
	stageReservation(repo, "late", domain.ReservationPending, start, end)

	err := repo.TransitionReservation(ctx, "late", TransitionUpdate{
		ExpectedStatus:  domain.ReservationPending,
		TargetStatus:    domain.ReservationValidated,
		RecheckConflict: true,
		ValidatedBy:     "resp-1",
		ValidatedAt:     time.Now().UTC(),
	}, nil)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, "held", conflictErr.ReservationID)
}
