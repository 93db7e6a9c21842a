package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/booking"
	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// ReservationService orchestrates the reservation lifecycle: creation
// under policy and conflict checks, status transitions with role gating
// and race re-checks, responsable assignment and admin deletion.
//
// Conflict-sensitive writes delegate to the repository's transactional
// methods; the service never sees a window between check and write.
type ReservationService interface {
	CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error)
	GetReservation(ctx context.Context, req GetReservationRequest) (*domain.Reservation, error)
	ListReservations(ctx context.Context, req ListReservationsRequest) (*ListReservationsResponse, error)
	UpdateReservation(ctx context.Context, req UpdateReservationRequest) (*domain.Reservation, error)
	TransitionReservation(ctx context.Context, req TransitionReservationRequest) (*domain.Reservation, error)
	AssignResponsible(ctx context.Context, req AssignResponsibleRequest) error
	DeleteReservation(ctx context.Context, req DeleteReservationRequest) error

	// CheckAvailability reports whether the room is free over [start, end).
	// Advisory only: creation re-checks under lock.
	CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*CheckAvailabilityResponse, error)
}

type reservationService struct {
	reservationsRepo repository.ReservationsRepository
	roomsRepo        repository.RoomsRepository
	usersRepo        repository.UsersRepository
	departmentsRepo  repository.DepartmentsRepository
	settingSvc       SettingService
	notificationSvc  NotificationService
	auditSvc         AuditService
	logger           *zap.Logger

	now func() time.Time
}

func NewReservationService(
	reservationsRepo repository.ReservationsRepository,
	roomsRepo repository.RoomsRepository,
	usersRepo repository.UsersRepository,
	departmentsRepo repository.DepartmentsRepository,
	settingSvc SettingService,
	notificationSvc NotificationService,
	auditSvc AuditService,
	logger *zap.Logger,
) ReservationService {
	return &reservationService{
		reservationsRepo: reservationsRepo,
		roomsRepo:        roomsRepo,
		usersRepo:        usersRepo,
		departmentsRepo:  departmentsRepo,
		settingSvc:       settingSvc,
		notificationSvc:  notificationSvc,
		auditSvc:         auditSvc,
		logger:           logger,
		now:              time.Now,
	}
}

type CreateReservationRequest struct {
	CurrentUserID string

	RoomID           string
	DepartmentID     string
	StartTime        time.Time
	EndTime          time.Time
	ParticipantCount int
	Equipment        []string
}

type GetReservationRequest struct {
	CurrentUserID string
	ReservationID string
}

type ListReservationsRequest struct {
	CurrentUserID string

	RoomID       string
	UserID       string
	DepartmentID string
	Status       string
	From         time.Time
	To           time.Time
	Page         int
	Size         int
}

type ListReservationsResponse struct {
	Items []*domain.Reservation
	Total int
}

// UpdateReservationRequest rewrites a pending reservation's mutable
// fields. Only the requester or an admin may update, and only while the
// reservation is still pending.
type UpdateReservationRequest struct {
	CurrentUserID string
	ReservationID string

	StartTime        time.Time
	EndTime          time.Time
	ParticipantCount int
	Equipment        []string
	DepartmentID     string
}

type TransitionReservationRequest struct {
	CurrentUserID string
	ReservationID string
	TargetStatus  domain.ReservationStatus
	AdminComment  string
}

type AssignResponsibleRequest struct {
	CurrentUserID     string
	ReservationID     string
	ResponsibleUserID string
}

type DeleteReservationRequest struct {
	CurrentUserID string
	ReservationID string
}

type CheckAvailabilityRequest struct {
	RoomID    string
	StartTime time.Time
	EndTime   time.Time

	// ExcludeReservationID skips one reservation, for reschedule checks.
	ExcludeReservationID string
}

type CheckAvailabilityResponse struct {
	Available bool
	// ConflictingID is the occupying reservation when Available is false.
	ConflictingID string
}

func (s *reservationService) CreateReservation(ctx context.Context, req CreateReservationRequest) (*domain.Reservation, error) {
	// 1. Resolve the actor and validate the input shape.
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}
	if req.RoomID == "" {
		return nil, domain.NewValidationError("room_id", "is required")
	}
	if err := booking.ValidateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.ParticipantCount <= 0 {
		return nil, domain.NewValidationError("participant_count", "must be positive")
	}

	// 2. The room must exist, be bookable and fit the participants.
	room, err := s.roomsRepo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return nil, err
	}
	if room.Status != domain.RoomAvailable {
		return nil, domain.NewValidationError("room_id",
			fmt.Sprintf("room %s is %s", room.RoomName, room.Status))
	}
	if req.ParticipantCount > room.Capacity {
		return nil, domain.NewValidationError("participant_count",
			fmt.Sprintf("exceeds room capacity of %d", room.Capacity))
	}
	if req.DepartmentID != "" {
		if _, err := s.departmentsRepo.GetDepartment(ctx, req.DepartmentID); err != nil {
			return nil, err
		}
	}

	// 3. Policy and quota checks against the current settings snapshot.
	settings, err := s.settingSvc.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckCreatePolicy(settings, s.now(), req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	activeCount, err := s.reservationsRepo.CountActiveByUser(ctx, actor.UserID)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckQuota(settings, actor.UserID, activeCount); err != nil {
		return nil, err
	}

	// 4. Advisory pre-check, for a cheap early rejection before the
	// transactional one.
	existing, err := s.reservationsRepo.ListOverlapping(ctx, req.RoomID, req.StartTime, req.EndTime, "")
	if err != nil {
		return nil, err
	}
	if hit := booking.FindOverlap(existing, req.StartTime, req.EndTime, ""); hit != nil {
		return nil, &domain.ConflictError{
			RoomID:        req.RoomID,
			ReservationID: hit.ReservationID,
			Reason:        "room already reserved for this interval",
		}
	}

	// 5. Build the reservation. When validation is not required new
	// reservations are born validated (no responsable step).
	res := &domain.Reservation{
		RoomID:           req.RoomID,
		UserID:           actor.UserID,
		StartTime:        req.StartTime,
		EndTime:          req.EndTime,
		Status:           domain.ReservationPending,
		ParticipantCount: req.ParticipantCount,
		Equipment:        pq.StringArray(req.Equipment),
	}
	if req.DepartmentID != "" {
		res.DepartmentID = sql.NullString{String: req.DepartmentID, Valid: true}
	}
	if !settings.RequireValidation {
		res.Status = domain.ReservationValidated
		res.ValidatedAt = sql.NullTime{Time: s.now().UTC(), Valid: true}
	}

	// 6. Insert with the overlap re-check and the audit row in one
	// transaction. Losing the race surfaces ConflictError here.
	audit := auditRow(
		domain.AuditActionReservationCreate, actor.UserID,
		"reservation", "",
		nil, res, domain.AuditSuccess, "",
	)
	id, err := s.reservationsRepo.CreateReservationChecked(ctx, res, audit)
	if err != nil {
		if _, ok := err.(*domain.ConflictError); ok {
			s.auditSvc.Record(ctx, auditRow(
				domain.AuditActionReservationCreate, actor.UserID,
				"reservation", "",
				nil, res, domain.AuditFailure, err.Error(),
			))
		}
		return nil, err
	}
	res.ReservationID = id

	// 7. Notify the room's responsable, and admins unless suppressed.
	s.notifyCreated(ctx, res, room)

	s.logger.Info("Created reservation",
		zap.String("reservation_id", id),
		zap.String("room_id", req.RoomID),
		zap.String("user_id", actor.UserID),
		zap.String("status", string(res.Status)),
	)
	return res, nil
}

func (s *reservationService) GetReservation(ctx context.Context, req GetReservationRequest) (*domain.Reservation, error) {
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}
	res, err := s.reservationsRepo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, res); err != nil {
		return nil, err
	}
	return res, nil
}

func (s *reservationService) ListReservations(ctx context.Context, req ListReservationsRequest) (*ListReservationsResponse, error) {
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}

	filters := repository.ReservationFilters{
		RoomID:       req.RoomID,
		UserID:       req.UserID,
		DepartmentID: req.DepartmentID,
		Status:       req.Status,
		From:         req.From,
		To:           req.To,
	}
	// Plain users only see their own reservations regardless of the
	// requested filter. Responsables see everything: they need the room
	// schedules to validate.
	if actor.Role == domain.RoleUser {
		filters.UserID = actor.UserID
	}

	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.reservationsRepo.ListReservations(ctx, filters, page, size)
	if err != nil {
		return nil, err
	}
	return &ListReservationsResponse{Items: items, Total: total}, nil
}

func (s *reservationService) UpdateReservation(ctx context.Context, req UpdateReservationRequest) (*domain.Reservation, error) {
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}
	current, err := s.reservationsRepo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	if actor.Role != domain.RoleAdmin && current.UserID != actor.UserID {
		return nil, &domain.PermissionError{Role: string(actor.Role), Action: "update another user's reservation"}
	}
	if current.Status != domain.ReservationPending {
		return nil, &domain.ConflictError{
			RoomID:        current.RoomID,
			ReservationID: current.ReservationID,
			Reason:        "only pending reservations can be updated",
		}
	}
	if err := booking.ValidateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	if req.ParticipantCount <= 0 {
		return nil, domain.NewValidationError("participant_count", "must be positive")
	}

	room, err := s.roomsRepo.GetRoom(ctx, current.RoomID)
	if err != nil {
		return nil, err
	}
	if req.ParticipantCount > room.Capacity {
		return nil, domain.NewValidationError("participant_count",
			fmt.Sprintf("exceeds room capacity of %d", room.Capacity))
	}
	settings, err := s.settingSvc.GetSettings(ctx)
	if err != nil {
		return nil, err
	}
	if err := booking.CheckCreatePolicy(settings, s.now(), req.StartTime, req.EndTime); err != nil {
		return nil, err
	}

	updated := *current
	updated.StartTime = req.StartTime
	updated.EndTime = req.EndTime
	updated.ParticipantCount = req.ParticipantCount
	updated.Equipment = pq.StringArray(req.Equipment)
	updated.DepartmentID = sql.NullString{}
	if req.DepartmentID != "" {
		if _, err := s.departmentsRepo.GetDepartment(ctx, req.DepartmentID); err != nil {
			return nil, err
		}
		updated.DepartmentID = sql.NullString{String: req.DepartmentID, Valid: true}
	}

	audit := auditRow(
		"reservation.update", actor.UserID,
		"reservation", current.ReservationID,
		current, &updated, domain.AuditSuccess, "",
	)
	if err := s.reservationsRepo.UpdateReservation(ctx, req.ReservationID, &updated, audit); err != nil {
		return nil, err
	}

	s.logger.Info("Updated reservation",
		zap.String("reservation_id", req.ReservationID),
		zap.String("actor_id", actor.UserID),
	)
	return &updated, nil
}

func (s *reservationService) TransitionReservation(ctx context.Context, req TransitionReservationRequest) (*domain.Reservation, error) {
	// 1. Resolve actor, reservation and room.
	actor, err := fetchActor(ctx, s.usersRepo, req.CurrentUserID)
	if err != nil {
		return nil, err
	}
	res, err := s.reservationsRepo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return nil, err
	}
	room, err := s.roomsRepo.GetRoom(ctx, res.RoomID)
	if err != nil {
		return nil, err
	}

	// 2. The edge must exist in the lifecycle table and the actor must be
	// allowed to trigger it.
	if err := booking.CheckTransition(res.Status, req.TargetStatus); err != nil {
		return nil, err
	}
	if err := booking.AuthorizeTransition(actor, room, res, req.TargetStatus); err != nil {
		s.auditSvc.Record(ctx, auditRow(
			domain.AuditActionReservationTransition, actor.UserID,
			"reservation", res.ReservationID,
			res, nil, domain.AuditFailure, err.Error(),
		))
		return nil, err
	}

	// 3. Apply under lock. Entering a slot-holding status re-runs the
	// overlap check so the first validation wins.
	upd := repository.TransitionUpdate{
		ExpectedStatus:  res.Status,
		TargetStatus:    req.TargetStatus,
		RecheckConflict: booking.NeedsConflictRecheck(req.TargetStatus),
		AdminComment:    req.AdminComment,
	}
	if req.TargetStatus == domain.ReservationValidated {
		upd.ValidatedBy = actor.UserID
		upd.ValidatedAt = s.now().UTC()
	}

	after := *res
	after.Status = req.TargetStatus
	audit := auditRow(
		domain.AuditActionReservationTransition, actor.UserID,
		"reservation", res.ReservationID,
		res, &after, domain.AuditSuccess, "",
	)
	if err := s.reservationsRepo.TransitionReservation(ctx, req.ReservationID, upd, audit); err != nil {
		if _, ok := err.(*domain.ConflictError); ok {
			s.auditSvc.Record(ctx, auditRow(
				domain.AuditActionReservationTransition, actor.UserID,
				"reservation", res.ReservationID,
				res, &after, domain.AuditFailure, err.Error(),
			))
		}
		return nil, err
	}

	// 4. Notify the requester, and admins per the suppression policy.
	s.notifyTransition(ctx, &after, room, actor)

	s.logger.Info("Transitioned reservation",
		zap.String("reservation_id", req.ReservationID),
		zap.String("from", string(res.Status)),
		zap.String("to", string(req.TargetStatus)),
		zap.String("actor_id", actor.UserID),
	)

	final, err := s.reservationsRepo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return &after, nil
	}
	return final, nil
}

func (s *reservationService) AssignResponsible(ctx context.Context, req AssignResponsibleRequest) error {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "assign a responsable"); err != nil {
		return err
	}
	res, err := s.reservationsRepo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return err
	}
	assignee, err := s.usersRepo.GetUser(ctx, req.ResponsibleUserID)
	if err != nil {
		return err
	}
	if assignee.Role != domain.RoleResponsable && assignee.Role != domain.RoleAdmin {
		return domain.NewValidationError("responsible_user_id", "user is not a responsable")
	}

	after := *res
	after.ValidatedBy = sql.NullString{String: req.ResponsibleUserID, Valid: true}
	audit := auditRow(
		domain.AuditActionReservationAssign, req.CurrentUserID,
		"reservation", res.ReservationID,
		res, &after, domain.AuditSuccess, "",
	)
	if err := s.reservationsRepo.AssignResponsible(ctx, req.ReservationID, req.ResponsibleUserID, audit); err != nil {
		return err
	}
	s.logger.Info("Assigned responsable",
		zap.String("reservation_id", req.ReservationID),
		zap.String("responsible_user_id", req.ResponsibleUserID),
	)
	return nil
}

func (s *reservationService) DeleteReservation(ctx context.Context, req DeleteReservationRequest) error {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "delete a reservation"); err != nil {
		return err
	}
	res, err := s.reservationsRepo.GetReservation(ctx, req.ReservationID)
	if err != nil {
		return err
	}

	audit := auditRow(
		domain.AuditActionReservationDelete, req.CurrentUserID,
		"reservation", res.ReservationID,
		res, nil, domain.AuditSuccess, "",
	)
	if err := s.reservationsRepo.DeleteReservation(ctx, req.ReservationID, audit); err != nil {
		return err
	}

	// The row is gone, so the notification cannot reference it: a linked
	// reservation_id would fail the foreign key on insert.
	s.notificationSvc.Notify(ctx, notificationFor(
		res.UserID, "", domain.NotifReservationDeleted,
		"Reservation deleted",
		fmt.Sprintf("Your reservation from %s to %s was deleted by an administrator.",
			res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339)),
	))
	s.logger.Info("Deleted reservation",
		zap.String("reservation_id", req.ReservationID),
		zap.String("actor_id", req.CurrentUserID),
	)
	return nil
}

func (s *reservationService) CheckAvailability(ctx context.Context, req CheckAvailabilityRequest) (*CheckAvailabilityResponse, error) {
	if req.RoomID == "" {
		return nil, domain.NewValidationError("room_id", "is required")
	}
	if err := booking.ValidateInterval(req.StartTime, req.EndTime); err != nil {
		return nil, err
	}
	existing, err := s.reservationsRepo.ListOverlapping(ctx, req.RoomID, req.StartTime, req.EndTime, req.ExcludeReservationID)
	if err != nil {
		return nil, err
	}
	if hit := booking.FindOverlap(existing, req.StartTime, req.EndTime, req.ExcludeReservationID); hit != nil {
		return &CheckAvailabilityResponse{Available: false, ConflictingID: hit.ReservationID}, nil
	}
	return &CheckAvailabilityResponse{Available: true}, nil
}

// authorizeRead allows admins and responsables to read any reservation;
// plain users only their own.
func (s *reservationService) authorizeRead(_ context.Context, actor *domain.User, res *domain.Reservation) error {
	if actor.Role == domain.RoleAdmin || actor.Role == domain.RoleResponsable {
		return nil
	}
	if res.UserID == actor.UserID {
		return nil
	}
	return &domain.PermissionError{Role: string(actor.Role), Action: "read another user's reservation"}
}

// notifyCreated informs the room's responsable of a new request, and
// admins unless the policy suppresses them when a responsable was
// already notified.
func (s *reservationService) notifyCreated(ctx context.Context, res *domain.Reservation, room *domain.Room) {
	settings, err := s.settingSvc.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("Skipping creation notifications, settings unavailable", zap.Error(err))
		return
	}

	title := "New reservation request"
	message := fmt.Sprintf("Room %s requested from %s to %s.",
		room.RoomName, res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339))

	responsableNotified := false
	if room.ResponsibleUserID.Valid {
		s.notificationSvc.Notify(ctx, notificationFor(
			room.ResponsibleUserID.String, res.ReservationID,
			domain.NotifReservationCreated, title, message,
		))
		responsableNotified = true
	}
	if responsableNotified && settings.SuppressAdminIfResponsableNotified {
		return
	}
	s.notifyAdmins(ctx, res.ReservationID, domain.NotifReservationCreated, title, message)
}

// notifyTransition informs the requester of the status change, and
// admins unless the policy suppresses them while a responsable is
// already in the loop (notified, or the actor themself). Validation
// notifications are gated by the NotifyOnValidation policy.
func (s *reservationService) notifyTransition(ctx context.Context, res *domain.Reservation, room *domain.Room, actor *domain.User) {
	settings, err := s.settingSvc.GetSettings(ctx)
	if err != nil {
		s.logger.Warn("Skipping transition notifications, settings unavailable", zap.Error(err))
		return
	}

	typ := booking.NotificationTypeFor(res.Status)
	if typ == domain.NotifReservationValidated && !settings.NotifyOnValidation {
		return
	}

	title := fmt.Sprintf("Reservation %s", res.Status)
	message := fmt.Sprintf("Your reservation of room %s from %s to %s is now %s.",
		room.RoomName,
		res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339),
		res.Status)
	s.notificationSvc.Notify(ctx, notificationFor(res.UserID, res.ReservationID, typ, title, message))

	// A cancellation by the requester frees a slot the responsable was
	// tracking.
	responsableNotified := false
	if res.Status == domain.ReservationCancelled && actor.UserID == res.UserID &&
		room.ResponsibleUserID.Valid && room.ResponsibleUserID.String != actor.UserID {
		s.notificationSvc.Notify(ctx, notificationFor(
			room.ResponsibleUserID.String, res.ReservationID,
			domain.NotifReservationCancelled,
			"Reservation cancelled",
			fmt.Sprintf("The reservation of room %s from %s to %s was cancelled by the requester.",
				room.RoomName, res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339)),
		))
		responsableNotified = true
	}

	responsableInLoop := responsableNotified ||
		(room.ResponsibleUserID.Valid && room.ResponsibleUserID.String == actor.UserID)
	if settings.SuppressAdminIfResponsableNotified && responsableInLoop {
		return
	}
	s.notifyAdmins(ctx, res.ReservationID, typ,
		fmt.Sprintf("Reservation %s", res.Status),
		fmt.Sprintf("The reservation of room %s from %s to %s is now %s.",
			room.RoomName,
			res.StartTime.Format(time.RFC3339), res.EndTime.Format(time.RFC3339),
			res.Status))
}

// notifyAdmins fans a notification out to every active admin.
func (s *reservationService) notifyAdmins(ctx context.Context, reservationID string, typ domain.NotificationType, title, message string) {
	admins, _, err := s.usersRepo.ListUsers(ctx, repository.UserFilters{
		Role:       string(domain.RoleAdmin),
		ActiveOnly: true,
	}, 1, 100)
	if err != nil {
		s.logger.Warn("Failed to list admins for notification", zap.Error(err))
		return
	}
	for _, admin := range admins {
		s.notificationSvc.Notify(ctx, notificationFor(admin.UserID, reservationID, typ, title, message))
	}
}
