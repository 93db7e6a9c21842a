package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
	"github.com/marxist91/reservation-backend-sub001/internal/store"
)

// capturePublisher records fanned-out events for assertions.
type capturePublisher struct {
	events []ReservationEvent
	err    error
}

func (p *capturePublisher) PublishReservationEvent(evt ReservationEvent) error {
	p.events = append(p.events, evt)
	return p.err
}

// fixture wires the full service stack over memory repositories.
type fixture struct {
	users        *repository.MemoryUsersRepo
	rooms        *repository.MemoryRoomsRepo
	departments  *repository.MemoryDepartmentsRepo
	reservations *repository.MemoryReservationsRepo
	audits       *repository.MemoryAuditLogsRepo
	notifs       *repository.MemoryNotificationsRepo
	settings     *repository.MemorySettingsRepo
	publisher    *capturePublisher

	auditSvc        AuditService
	notificationSvc NotificationService
	settingSvc      SettingService
	reservationSvc  ReservationService

	now time.Time

	adminID       string
	responsableID string
	userID        string
	otherUserID   string
	roomID        string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := zap.NewNop()

	f := &fixture{
		users:        repository.NewMemoryUsersRepo(),
		rooms:        repository.NewMemoryRoomsRepo(),
		departments:  repository.NewMemoryDepartmentsRepo(),
		reservations: repository.NewMemoryReservationsRepo(),
		audits:       repository.NewMemoryAuditLogsRepo(),
		notifs:       repository.NewMemoryNotificationsRepo(),
		settings:     repository.NewMemorySettingsRepo(),
		publisher:    &capturePublisher{},
		now:          time.Date(2026, 9, 1, 8, 0, 0, 0, time.UTC),
	}
	f.rooms.AttachReservations(f.reservations)
	f.reservations.AttachAudits(f.audits)

	f.auditSvc = NewAuditService(f.audits, f.users, logger)
	f.notificationSvc = NewNotificationService(f.notifs, []EventPublisher{f.publisher}, logger)
	f.settingSvc = NewSettingService(f.settings, f.users, f.auditSvc, store.NewMemoryKV(), logger)
	f.reservationSvc = NewReservationService(
		f.reservations, f.rooms, f.users, f.departments,
		f.settingSvc, f.notificationSvc, f.auditSvc, logger,
	)
	f.reservationSvc.(*reservationService).now = func() time.Time { return f.now }

	ctx := context.Background()
	f.adminID = f.seedUser(t, ctx, "admin-1", "Ada", "Admin", "ada@example.com", domain.RoleAdmin)
	f.responsableID = f.seedUser(t, ctx, "resp-1", "Rita", "Responsable", "rita@example.com", domain.RoleResponsable)
	f.userID = f.seedUser(t, ctx, "user-1", "Uma", "User", "uma@example.com", domain.RoleUser)
	f.otherUserID = f.seedUser(t, ctx, "user-2", "Omar", "Other", "omar@example.com", domain.RoleUser)

	roomID, err := f.rooms.CreateRoom(ctx, &domain.Room{
		RoomName:          "Conference A",
		Capacity:          10,
		Status:            domain.RoomAvailable,
		ResponsibleUserID: sql.NullString{String: f.responsableID, Valid: true},
	})
	require.NoError(t, err)
	f.roomID = roomID
	return f
}

func (f *fixture) seedUser(t *testing.T, ctx context.Context, id, first, last, email string, role domain.Role) string {
	t.Helper()
	created, err := f.users.CreateUser(ctx, &domain.User{
		UserID:    id,
		FirstName: first,
		LastName:  last,
		Email:     email,
		Role:      role,
		Active:    true,
	})
	require.NoError(t, err)
	return created
}

func (f *fixture) slot(dayOffset, startHour, endHour int) (time.Time, time.Time) {
	day := f.now.AddDate(0, 0, dayOffset)
	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, time.UTC)
	return start, end
}

func (f *fixture) createReservation(t *testing.T, userID string, startHour, endHour int) *domain.Reservation {
	t.Helper()
	start, end := f.slot(1, startHour, endHour)
	res, err := f.reservationSvc.CreateReservation(context.Background(), CreateReservationRequest{
		CurrentUserID:    userID,
		RoomID:           f.roomID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 4,
	})
	require.NoError(t, err)
	return res
}

func TestCreateReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)
	require.NotEmpty(t, res.ReservationID)
	require.Equal(t, domain.ReservationPending, res.Status)

	// The creation audit row was written with the business transaction.
	logs, total, err := f.audits.ListAuditLogs(ctx, repository.AuditFilters{
		Action: domain.AuditActionReservationCreate,
	}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, res.ReservationID, logs[0].TargetID)

	// The room's responsable was notified; admins were suppressed by the
	// default policy.
	respNotifs, _, err := f.notifs.ListByUser(ctx, f.responsableID, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, respNotifs, 1)
	require.Equal(t, domain.NotifReservationCreated, respNotifs[0].Type)

	adminNotifs, _, err := f.notifs.ListByUser(ctx, f.adminID, false, 1, 10)
	require.NoError(t, err)
	require.Empty(t, adminNotifs)

	// The event was fanned out once.
	require.Len(t, f.publisher.events, 1)
	require.Equal(t, f.responsableID, f.publisher.events[0].RecipientID)
}

func TestCreateReservationConflict(t *testing.T) {
	f := newFixture(t)

	f.createReservation(t, f.userID, 9, 11)

	start, end := f.slot(1, 10, 12)
	_, err := f.reservationSvc.CreateReservation(context.Background(), CreateReservationRequest{
		CurrentUserID:    f.otherUserID,
		RoomID:           f.roomID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 2,
	})
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, f.roomID, conflictErr.RoomID)
}

func TestCreateReservationBackToBack(t *testing.T) {
	f := newFixture(t)

	f.createReservation(t, f.userID, 9, 10)
	// [10:00, 11:00) directly after [09:00, 10:00) must be accepted.
	res := f.createReservation(t, f.otherUserID, 10, 11)
	require.Equal(t, domain.ReservationPending, res.Status)
}

func TestCreateReservationQuota(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	limit := 2
	_, err := f.settingSvc.UpdateSettings(ctx, UpdateSettingsRequest{
		CurrentUserID:          f.adminID,
		MaxReservationsPerUser: &limit,
	})
	require.NoError(t, err)

	f.createReservation(t, f.userID, 9, 10)
	f.createReservation(t, f.userID, 11, 12)

	start, end := f.slot(1, 13, 14)
	_, err = f.reservationSvc.CreateReservation(ctx, CreateReservationRequest{
		CurrentUserID:    f.userID,
		RoomID:           f.roomID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 2,
	})
	require.Error(t, err)
	var quotaErr *domain.QuotaExceededError
	require.ErrorAs(t, err, &quotaErr)
}

func TestCreateReservationRoomChecks(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	start, end := f.slot(1, 9, 10)

	// Participant count over capacity.
	_, err := f.reservationSvc.CreateReservation(ctx, CreateReservationRequest{
		CurrentUserID:    f.userID,
		RoomID:           f.roomID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 50,
	})
	require.Error(t, err)
	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)

	// A room under maintenance is not bookable.
	room, err := f.rooms.GetRoom(ctx, f.roomID)
	require.NoError(t, err)
	room.Status = domain.RoomMaintenance
	require.NoError(t, f.rooms.UpdateRoom(ctx, f.roomID, room))

	_, err = f.reservationSvc.CreateReservation(ctx, CreateReservationRequest{
		CurrentUserID:    f.userID,
		RoomID:           f.roomID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 2,
	})
	require.Error(t, err)
}

func TestCreateReservationWithoutValidationStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	off := false
	_, err := f.settingSvc.UpdateSettings(ctx, UpdateSettingsRequest{
		CurrentUserID:     f.adminID,
		RequireValidation: &off,
	})
	require.NoError(t, err)

	res := f.createReservation(t, f.userID, 9, 10)
	require.Equal(t, domain.ReservationValidated, res.Status)
	require.True(t, res.ValidatedAt.Valid)
}

func TestTransitionValidateFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	validated, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ReservationValidated, validated.Status)
	require.Equal(t, f.responsableID, validated.ValidatedBy.String)
	require.True(t, validated.ValidatedAt.Valid)

	// The requester was told.
	notifs, _, err := f.notifs.ListByUser(ctx, f.userID, false, 1, 10)
	require.NoError(t, err)
	require.Len(t, notifs, 1)
	require.Equal(t, domain.NotifReservationValidated, notifs[0].Type)

	// Confirm and complete walk the rest of the lifecycle.
	_, err = f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationConfirmed,
	})
	require.NoError(t, err)
	completed, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationCompleted,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ReservationCompleted, completed.Status)
}

func TestTransitionFirstValidationWins(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Two pending requests cannot coexist on the same slot through
	// creation, so stage the second one directly in the store: it models
	// a request accepted before the first was validated under an earlier
	// policy, or a race the advisory check missed.
	first := f.createReservation(t, f.userID, 9, 10)
	start, end := f.slot(1, 9, 10)
	secondID, err := f.reservations.CreateReservationChecked(ctx, &domain.Reservation{
		RoomID:           f.roomID,
		UserID:           f.otherUserID,
		StartTime:        start.Add(30 * time.Minute),
		EndTime:          end.Add(30 * time.Minute),
		Status:           domain.ReservationPending,
		ParticipantCount: 2,
	}, nil)
	require.Error(t, err) // overlapping pending is refused by the store

	// Stage the overlap as cancelled-then-reinstated: insert on a free
	// slot, then move it over the contested one.
	secondID, err = f.reservations.CreateReservationChecked(ctx, &domain.Reservation{
		RoomID:           f.roomID,
		UserID:           f.otherUserID,
		StartTime:        start.Add(4 * time.Hour),
		EndTime:          end.Add(4 * time.Hour),
		Status:           domain.ReservationPending,
		ParticipantCount: 2,
	}, nil)
	require.NoError(t, err)

	// First validation wins.
	_, err = f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: first.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)

	// Move the second onto the contested slot fails the overlap check.
	err = f.reservations.UpdateReservation(ctx, secondID, &domain.Reservation{
		RoomID:           f.roomID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 2,
	}, nil)
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
	require.Equal(t, first.ReservationID, conflictErr.ReservationID)
}

func TestTransitionStaleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	// The reservation is rejected under the service's feet.
	require.NoError(t, f.reservations.TransitionReservation(ctx, res.ReservationID, repository.TransitionUpdate{
		ExpectedStatus: domain.ReservationPending,
		TargetStatus:   domain.ReservationRejected,
	}, nil))

	// Validating the now-rejected reservation is an invalid edge.
	_, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.Error(t, err)
	var invErr *domain.InvalidTransitionError
	require.ErrorAs(t, err, &invErr)
}

func TestTransitionPermissions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	// A plain user cannot validate, even their own request.
	_, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.userID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.Error(t, err)
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)

	// The denial left a failure audit row.
	logs, total, err := f.audits.ListAuditLogs(ctx, repository.AuditFilters{
		Action:  domain.AuditActionReservationTransition,
		Outcome: string(domain.AuditFailure),
	}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)
	require.Equal(t, res.ReservationID, logs[0].TargetID)

	// A stranger cannot cancel someone else's validated reservation.
	_, err = f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)
	_, err = f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.otherUserID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationCancelled,
	})
	require.Error(t, err)
	require.ErrorAs(t, err, &permErr)
}

func TestTransitionNotifiesAdminsWhenNotSuppressed(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	suppress := false
	_, err := f.settingSvc.UpdateSettings(ctx, UpdateSettingsRequest{
		CurrentUserID:                      f.adminID,
		SuppressAdminIfResponsableNotified: &suppress,
	})
	require.NoError(t, err)

	res := f.createReservation(t, f.userID, 9, 10)
	_, err = f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)

	// With suppression off, admins hear about the transition too.
	notifs, _, err := f.notifs.ListByUser(ctx, f.adminID, false, 1, 20)
	require.NoError(t, err)
	var sawValidated bool
	for _, n := range notifs {
		if n.Type == domain.NotifReservationValidated {
			sawValidated = true
		}
	}
	require.True(t, sawValidated)
}

func TestTransitionAdminsSuppressedWithResponsableInLoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)
	_, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)

	// Default policy: the acting responsable covers the admins.
	notifs, _, err := f.notifs.ListByUser(ctx, f.adminID, false, 1, 20)
	require.NoError(t, err)
	for _, n := range notifs {
		require.NotEqual(t, domain.NotifReservationValidated, n.Type)
	}
}

func TestCancelByRequester(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)
	_, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)

	cancelled, err := f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.userID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationCancelled,
	})
	require.NoError(t, err)
	require.Equal(t, domain.ReservationCancelled, cancelled.Status)

	// The responsable hears about the freed slot.
	notifs, _, err := f.notifs.ListByUser(ctx, f.responsableID, false, 1, 10)
	require.NoError(t, err)
	var sawCancellation bool
	for _, n := range notifs {
		if n.Type == domain.NotifReservationCancelled {
			sawCancellation = true
		}
	}
	require.True(t, sawCancellation)

	// The slot is free again.
	res2 := f.createReservation(t, f.otherUserID, 9, 10)
	require.Equal(t, domain.ReservationPending, res2.Status)
}

func TestUpdatePendingReservation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	start, end := f.slot(1, 14, 15)
	updated, err := f.reservationSvc.UpdateReservation(ctx, UpdateReservationRequest{
		CurrentUserID:    f.userID,
		ReservationID:    res.ReservationID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 6,
	})
	require.NoError(t, err)
	require.Equal(t, start, updated.StartTime)
	require.Equal(t, 6, updated.ParticipantCount)

	// Once validated, updates are refused.
	_, err = f.reservationSvc.TransitionReservation(ctx, TransitionReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
		TargetStatus:  domain.ReservationValidated,
	})
	require.NoError(t, err)
	_, err = f.reservationSvc.UpdateReservation(ctx, UpdateReservationRequest{
		CurrentUserID:    f.userID,
		ReservationID:    res.ReservationID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: 3,
	})
	require.Error(t, err)
	var conflictErr *domain.ConflictError
	require.ErrorAs(t, err, &conflictErr)
}

func TestDeleteReservationAdminOnly(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	err := f.reservationSvc.DeleteReservation(ctx, DeleteReservationRequest{
		CurrentUserID: f.userID,
		ReservationID: res.ReservationID,
	})
	require.Error(t, err)
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)

	require.NoError(t, f.reservationSvc.DeleteReservation(ctx, DeleteReservationRequest{
		CurrentUserID: f.adminID,
		ReservationID: res.ReservationID,
	}))
	_, err = f.reservations.GetReservation(ctx, res.ReservationID)
	require.Error(t, err)

	// Deletion is audited and the requester notified.
	_, total, err := f.audits.ListAuditLogs(ctx, repository.AuditFilters{
		Action: domain.AuditActionReservationDelete,
	}, 1, 10)
	require.NoError(t, err)
	require.Equal(t, 1, total)

	notifs, _, err := f.notifs.ListByUser(ctx, f.userID, false, 1, 10)
	require.NoError(t, err)
	var sawDeletion bool
	for _, n := range notifs {
		if n.Type == domain.NotifReservationDeleted {
			sawDeletion = true
			// No dangling reference to the deleted row.
			require.False(t, n.ReservationID.Valid)
		}
	}
	require.True(t, sawDeletion)
}

func TestListReservationsVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.createReservation(t, f.userID, 9, 10)
	f.createReservation(t, f.otherUserID, 11, 12)

	// Plain users only see their own reservations regardless of filters.
	resp, err := f.reservationSvc.ListReservations(ctx, ListReservationsRequest{
		CurrentUserID: f.userID,
	})
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	require.Equal(t, f.userID, resp.Items[0].UserID)

	// Responsables see the full schedule.
	resp, err = f.reservationSvc.ListReservations(ctx, ListReservationsRequest{
		CurrentUserID: f.responsableID,
	})
	require.NoError(t, err)
	require.Equal(t, 2, resp.Total)
}

func TestGetReservationVisibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	_, err := f.reservationSvc.GetReservation(ctx, GetReservationRequest{
		CurrentUserID: f.otherUserID,
		ReservationID: res.ReservationID,
	})
	require.Error(t, err)
	var permErr *domain.PermissionError
	require.ErrorAs(t, err, &permErr)

	got, err := f.reservationSvc.GetReservation(ctx, GetReservationRequest{
		CurrentUserID: f.responsableID,
		ReservationID: res.ReservationID,
	})
	require.NoError(t, err)
	require.Equal(t, res.ReservationID, got.ReservationID)
}

func TestCheckAvailability(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)
	start, end := f.slot(1, 9, 10)

	resp, err := f.reservationSvc.CheckAvailability(ctx, CheckAvailabilityRequest{
		RoomID:    f.roomID,
		StartTime: start,
		EndTime:   end,
	})
	require.NoError(t, err)
	require.False(t, resp.Available)
	require.Equal(t, res.ReservationID, resp.ConflictingID)

	// Excluding the occupant itself reports free (reschedule check).
	resp, err = f.reservationSvc.CheckAvailability(ctx, CheckAvailabilityRequest{
		RoomID:               f.roomID,
		StartTime:            start,
		EndTime:              end,
		ExcludeReservationID: res.ReservationID,
	})
	require.NoError(t, err)
	require.True(t, resp.Available)
}

func TestAssignResponsible(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	res := f.createReservation(t, f.userID, 9, 10)

	// Only admins assign; the assignee must be a responsable.
	err := f.reservationSvc.AssignResponsible(ctx, AssignResponsibleRequest{
		CurrentUserID:     f.userID,
		ReservationID:     res.ReservationID,
		ResponsibleUserID: f.responsableID,
	})
	require.Error(t, err)

	err = f.reservationSvc.AssignResponsible(ctx, AssignResponsibleRequest{
		CurrentUserID:     f.adminID,
		ReservationID:     res.ReservationID,
		ResponsibleUserID: f.otherUserID,
	})
	require.Error(t, err)

	require.NoError(t, f.reservationSvc.AssignResponsible(ctx, AssignResponsibleRequest{
		CurrentUserID:     f.adminID,
		ReservationID:     res.ReservationID,
		ResponsibleUserID: f.responsableID,
	}))
	got, err := f.reservations.GetReservation(ctx, res.ReservationID)
	require.NoError(t, err)
	require.Equal(t, f.responsableID, got.ValidatedBy.String)
}
