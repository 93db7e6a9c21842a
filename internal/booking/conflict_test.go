package booking

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts
}

func reservation(id string, status domain.ReservationStatus, start, end time.Time) *domain.Reservation {
	return &domain.Reservation{
		ReservationID: id,
		RoomID:        "room-1",
		Status:        status,
		StartTime:     start,
		EndTime:       end,
	}
}

func TestValidateInterval(t *testing.T) {
	start := mustTime(t, "2026-09-01T09:00:00Z")
	end := mustTime(t, "2026-09-01T10:00:00Z")

	require.NoError(t, ValidateInterval(start, end))

	err := ValidateInterval(end, start)
	require.Error(t, err)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	// Zero duration is invalid, not "no conflict".
	require.Error(t, ValidateInterval(start, start))
	require.Error(t, ValidateInterval(time.Time{}, end))
}

func TestFindOverlap(t *testing.T) {
	s1 := mustTime(t, "2026-09-01T09:00:00Z")
	e1 := mustTime(t, "2026-09-01T10:00:00Z")
	existing := []*domain.Reservation{
		reservation("r1", domain.ReservationValidated, s1, e1),
	}

	// Identical interval overlaps.
	require.NotNil(t, FindOverlap(existing, s1, e1, ""))

	// Partial overlap on either side.
	require.NotNil(t, FindOverlap(existing,
		mustTime(t, "2026-09-01T08:30:00Z"), mustTime(t, "2026-09-01T09:30:00Z"), ""))
	require.NotNil(t, FindOverlap(existing,
		mustTime(t, "2026-09-01T09:30:00Z"), mustTime(t, "2026-09-01T10:30:00Z"), ""))

	// Containment both ways.
	require.NotNil(t, FindOverlap(existing,
		mustTime(t, "2026-09-01T09:15:00Z"), mustTime(t, "2026-09-01T09:45:00Z"), ""))
	require.NotNil(t, FindOverlap(existing,
		mustTime(t, "2026-09-01T08:00:00Z"), mustTime(t, "2026-09-01T11:00:00Z"), ""))
}

func TestFindOverlapBackToBack(t *testing.T) {
	s1 := mustTime(t, "2026-09-01T09:00:00Z")
	e1 := mustTime(t, "2026-09-01T10:00:00Z")
	existing := []*domain.Reservation{
		reservation("r1", domain.ReservationConfirmed, s1, e1),
	}

	// [10:00, 11:00) directly after [09:00, 10:00) is free.
	require.Nil(t, FindOverlap(existing, e1, mustTime(t, "2026-09-01T11:00:00Z"), ""))
	// And directly before.
	require.Nil(t, FindOverlap(existing, mustTime(t, "2026-09-01T08:00:00Z"), s1, ""))
}

func TestFindOverlapSkipsFreedSlots(t *testing.T) {
	s1 := mustTime(t, "2026-09-01T09:00:00Z")
	e1 := mustTime(t, "2026-09-01T10:00:00Z")

	for _, status := range []domain.ReservationStatus{
		domain.ReservationRejected,
		domain.ReservationCancelled,
		domain.ReservationCompleted,
	} {
		existing := []*domain.Reservation{reservation("r1", status, s1, e1)}
		require.Nil(t, FindOverlap(existing, s1, e1, ""), "status %s should free the slot", status)
	}

	for _, status := range []domain.ReservationStatus{
		domain.ReservationPending,
		domain.ReservationValidated,
		domain.ReservationConfirmed,
	} {
		existing := []*domain.Reservation{reservation("r1", status, s1, e1)}
		require.NotNil(t, FindOverlap(existing, s1, e1, ""), "status %s should hold the slot", status)
	}
}

func TestFindOverlapExcludesSelf(t *testing.T) {
	s1 := mustTime(t, "2026-09-01T09:00:00Z")
	e1 := mustTime(t, "2026-09-01T10:00:00Z")
	existing := []*domain.Reservation{
		reservation("r1", domain.ReservationPending, s1, e1),
	}

	// Rescheduling r1 over its own slot is not a conflict.
	require.Nil(t, FindOverlap(existing, s1, e1, "r1"))
	require.NotNil(t, FindOverlap(existing, s1, e1, "other"))
}
