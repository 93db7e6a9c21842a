package repository

import (
	"context"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// NotificationsRepository is the notification queue consumed by external
// delivery. Insert is idempotent over (user_id, reservation_id, type).
type NotificationsRepository interface {
	// Insert stores the notification. A repeat of an existing
	// (user, reservation, type) triple is a no-op: created=false, no error.
	Insert(ctx context.Context, n *domain.Notification) (id string, created bool, err error)

	ListByUser(ctx context.Context, userID string, unreadOnly bool, page, size int) ([]*domain.Notification, int, error)
	MarkRead(ctx context.Context, userID, notificationID string) error
	MarkAllRead(ctx context.Context, userID string) (int64, error)
}
