package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// NotificationService emits and queries user notifications. Notify is
// idempotent over (user, reservation, type): re-emitting after a retry
// stores nothing new and fans out nothing new.
type NotificationService interface {
	// Notify stores the notification and, when it was newly created, fans
	// it out to the configured event publishers. Publisher failures are
	// logged and swallowed.
	Notify(ctx context.Context, n *domain.Notification)

	ListNotifications(ctx context.Context, req ListNotificationsRequest) (*ListNotificationsResponse, error)
	MarkNotificationRead(ctx context.Context, req MarkNotificationReadRequest) error
	MarkAllNotificationsRead(ctx context.Context, req MarkAllNotificationsReadRequest) (int64, error)
}

type notificationService struct {
	notifRepo  repository.NotificationsRepository
	publishers []EventPublisher
	logger     *zap.Logger
}

func NewNotificationService(notifRepo repository.NotificationsRepository, publishers []EventPublisher, logger *zap.Logger) NotificationService {
	return &notificationService{notifRepo: notifRepo, publishers: publishers, logger: logger}
}

// ListNotificationsRequest lists the current user's notifications.
type ListNotificationsRequest struct {
	CurrentUserID string
	UnreadOnly    bool
	Page          int
	Size          int
}

type ListNotificationsResponse struct {
	Items []*domain.Notification
	Total int
}

type MarkNotificationReadRequest struct {
	CurrentUserID  string
	NotificationID string
}

type MarkAllNotificationsReadRequest struct {
	CurrentUserID string
}

func (s *notificationService) Notify(ctx context.Context, n *domain.Notification) {
	if n == nil || n.UserID == "" {
		return
	}

	id, created, err := s.notifRepo.Insert(ctx, n)
	if err != nil {
		// Notification loss must not fail the reservation operation that
		// triggered it.
		s.logger.Error("Failed to store notification",
			zap.String("user_id", n.UserID),
			zap.String("type", string(n.Type)),
			zap.Error(err),
		)
		return
	}
	if !created {
		s.logger.Debug("Notification already emitted, skipping",
			zap.String("user_id", n.UserID),
			zap.String("reservation_id", n.ReservationID.String),
			zap.String("type", string(n.Type)),
		)
		return
	}
	n.NotificationID = id

	evt := ReservationEvent{
		Type:          n.Type,
		ReservationID: n.ReservationID.String,
		RecipientID:   n.UserID,
		Title:         n.Title,
		Message:       n.Message,
		OccurredAt:    time.Now().UTC(),
	}
	for _, pub := range s.publishers {
		if err := pub.PublishReservationEvent(evt); err != nil {
			s.logger.Warn("Failed to publish reservation event",
				zap.String("type", string(evt.Type)),
				zap.String("recipient_id", evt.RecipientID),
				zap.Error(err),
			)
		}
	}
}

func (s *notificationService) ListNotifications(ctx context.Context, req ListNotificationsRequest) (*ListNotificationsResponse, error) {
	if req.CurrentUserID == "" {
		return nil, domain.NewValidationError("current_user_id", "is required")
	}

	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.notifRepo.ListByUser(ctx, req.CurrentUserID, req.UnreadOnly, page, size)
	if err != nil {
		s.logger.Error("ListNotifications failed", zap.String("user_id", req.CurrentUserID), zap.Error(err))
		return nil, err
	}
	return &ListNotificationsResponse{Items: items, Total: total}, nil
}

func (s *notificationService) MarkNotificationRead(ctx context.Context, req MarkNotificationReadRequest) error {
	if req.CurrentUserID == "" {
		return domain.NewValidationError("current_user_id", "is required")
	}
	if req.NotificationID == "" {
		return domain.NewValidationError("notification_id", "is required")
	}
	// Scoped by user: marking someone else's notification is a not-found,
	// not a permission probe.
	return s.notifRepo.MarkRead(ctx, req.CurrentUserID, req.NotificationID)
}

func (s *notificationService) MarkAllNotificationsRead(ctx context.Context, req MarkAllNotificationsReadRequest) (int64, error) {
	if req.CurrentUserID == "" {
		return 0, domain.NewValidationError("current_user_id", "is required")
	}
	return s.notifRepo.MarkAllRead(ctx, req.CurrentUserID)
}

// notificationFor builds a notification row for a reservation event.
func notificationFor(userID string, reservationID string, typ domain.NotificationType, title, message string) *domain.Notification {
	n := &domain.Notification{
		UserID:  userID,
		Type:    typ,
		Title:   title,
		Message: message,
	}
	if reservationID != "" {
		n.ReservationID = sql.NullString{String: reservationID, Valid: true}
	}
	return n
}
