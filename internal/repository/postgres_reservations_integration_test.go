// +build integration

package repository

import (
	"context"
	"database/sql"
	"os"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/marxist91/reservation-backend-sub001/internal/database"
	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

func getTestDB(t *testing.T) *sql.DB {
	cfg := &database.Config{
		Host:     getEnv("TEST_DB_HOST", "localhost"),
		Port:     getEnvInt("TEST_DB_PORT", 5432),
		User:     getEnv("TEST_DB_USER", "postgres"),
		Password: getEnv("TEST_DB_PASSWORD", "postgres"),
		Database: getEnv("TEST_DB_NAME", "reservations_test"),
		SSLMode:  getEnv("TEST_DB_SSLMODE", "disable"),
	}

	db, err := database.NewPostgresDB(cfg)
	if err != nil {
		t.Skipf("Skipping integration test: cannot connect to database: %v", err)
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	require.NoError(t, EnsureSchema(ctx, db))
	return db
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func seedUserAndRoom(t *testing.T, db *sql.DB) (userID, roomID string) {
	ctx := context.Background()
	users := NewPostgresUsersRepository(db)
	rooms := NewPostgresRoomsRepository(db)

	suffix := uuid.NewString()[:8]
	userID, err := users.CreateUser(ctx, &domain.User{
		FirstName: "Iris",
		LastName:  "Integration",
		Email:     "iris-" + suffix + "@example.com",
		Role:      domain.RoleUser,
		Active:    true,
	})
	require.NoError(t, err)

	roomID, err = rooms.CreateRoom(ctx, &domain.Room{
		RoomName: "Integration Room " + suffix,
		Capacity: 6,
		Status:   domain.RoomAvailable,
	})
	require.NoError(t, err)
	return userID, roomID
}

func TestCreateReservationCheckedConflict(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	repo := NewPostgresReservationsRepository(db)
	audits := NewPostgresAuditLogsRepository(db)
	userID, roomID := seedUserAndRoom(t, db)

	start := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Hour)
	end := start.Add(time.Hour)

	first := &domain.Reservation{
		RoomID:           roomID,
		UserID:           userID,
		StartTime:        start,
		EndTime:          end,
		Status:           domain.ReservationPending,
		ParticipantCount: 3,
	}
	id, err := repo.CreateReservationChecked(ctx, first, &domain.AuditLog{
		Action:     domain.AuditActionReservationCreate,
		ActorID:    sql.NullString{String: userID, Valid: true},
		TargetType: "reservation",
		Outcome:    domain.AuditSuccess,
	})
	require.NoError(t, err)

	// The audit row landed in the same transaction.
	logs, total, err := audits.ListAuditLogs(ctx, AuditFilters{TargetID: id}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, domain.AuditActionReservationCreate, logs[0].Action)

	// An overlapping insert is refused with the occupant's id.
	second := &domain.Reservation{
		RoomID:           roomID,
		UserID:           userID,
		StartTime:        start.Add(30 * time.Minute),
		EndTime:          end.Add(30 * time.Minute),
		Status:           domain.ReservationPending,
		ParticipantCount: 2,
	}
	_, err = repo.CreateReservationChecked(ctx, second, nil)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, id, conflictErr.ReservationID)

	// Back-to-back on the shared boundary goes through.
	third := &domain.Reservation{
		RoomID:           roomID,
		UserID:           userID,
		StartTime:        end,
		EndTime:          end.Add(time.Hour),
		Status:           domain.ReservationPending,
		ParticipantCount: 2,
	}
	_, err = repo.CreateReservationChecked(ctx, third, nil)
	require.NoError(t, err)
}

func TestValidationSucceedsOverPendingSibling(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	repo := NewPostgresReservationsRepository(db)
	userID, roomID := seedUserAndRoom(t, db)

	start := time.Now().UTC().Add(72 * time.Hour).Truncate(time.Hour)
	end := start.Add(time.Hour)

	first := &domain.Reservation{
		RoomID:           roomID,
		UserID:           userID,
		StartTime:        start,
		EndTime:          end,
		Status:           domain.ReservationPending,
		ParticipantCount: 2,
	}
	firstID, err := repo.CreateReservationChecked(ctx, first, nil)
	require.NoError(t, err)

	// Stage an overlapping pending directly, the state a create race
	// leaves behind. It must not block the first validation.
	siblingID := uuid.NewString()
	_, err = db.ExecContext(ctx,
		`INSERT INTO reservations
			(reservation_id, room_id, user_id, start_time, end_time, status, participant_count)
		 VALUES ($1, $2, $3, $4, $5, 'pending', 1)`,
		siblingID, roomID, userID, start.Add(30*time.Minute), end.Add(30*time.Minute))
	require.NoError(t, err)

	require.NoError(t, repo.TransitionReservation(ctx, firstID, TransitionUpdate{
		ExpectedStatus:  domain.ReservationPending,
		TargetStatus:    domain.ReservationValidated,
		RecheckConflict: true,
		ValidatedBy:     userID,
		ValidatedAt:     time.Now().UTC(),
	}, nil))

	// The sibling now loses to a validated occupant.
	err = repo.TransitionReservation(ctx, siblingID, TransitionUpdate{
		ExpectedStatus:  domain.ReservationPending,
		TargetStatus:    domain.ReservationValidated,
		RecheckConflict: true,
		ValidatedBy:     userID,
		ValidatedAt:     time.Now().UTC(),
	}, nil)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, firstID, conflictErr.ReservationID)
}

func TestTransitionReservationStaleStatus(t *testing.T) {
	db := getTestDB(t)
	defer db.Close()
	ctx := context.Background()

	repo := NewPostgresReservationsRepository(db)
	userID, roomID := seedUserAndRoom(t, db)

	start := time.Now().UTC().Add(48 * time.Hour).Truncate(time.Hour)
	res := &domain.Reservation{
		RoomID:           roomID,
		UserID:           userID,
		StartTime:        start,
		EndTime:          start.Add(time.Hour),
		Status:           domain.ReservationPending,
		ParticipantCount: 1,
	}
	id, err := repo.CreateReservationChecked(ctx, res, nil)
	require.NoError(t, err)

	require.NoError(t, repo.TransitionReservation(ctx, id, TransitionUpdate{
		ExpectedStatus: domain.ReservationPending,
		TargetStatus:   domain.ReservationRejected,
	}, nil))

	// A second actor still holding the pending snapshot loses the race.
	err = repo.TransitionReservation(ctx, id, TransitionUpdate{
		ExpectedStatus:  domain.ReservationPending,
		TargetStatus:    domain.ReservationValidated,
		RecheckConflict: true,
		ValidatedBy:     userID,
		ValidatedAt:     time.Now().UTC(),
	}, nil)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)

	got, err := repo.GetReservation(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.ReservationRejected, got.Status)
}
