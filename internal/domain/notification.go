package domain

import (
	"database/sql"
	"time"
)

// NotificationType tags the lifecycle event a notification describes.
type NotificationType string

const (
	NotifReservationCreated   NotificationType = "reservation_created"
	NotifReservationValidated NotificationType = "reservation_validated"
	NotifReservationRejected  NotificationType = "reservation_rejected"
	NotifReservationConfirmed NotificationType = "reservation_confirmed"
	NotifReservationCancelled NotificationType = "reservation_cancelled"
	NotifReservationCompleted NotificationType = "reservation_completed"
	NotifReservationDeleted   NotificationType = "reservation_deleted"
)

// Notification is a user-facing message row. Delivery (email/SMS) is an
// external consumer of this table. The (UserID, ReservationID, Type)
// triple is unique so that emission is idempotent under retry.
type Notification struct {
	NotificationID string           `db:"notification_id"`
	UserID         string           `db:"user_id"`
	Type           NotificationType `db:"type"`

	Title   string `db:"title"`
	Message string `db:"message"`
	Read    bool   `db:"read"`

	ReservationID sql.NullString `db:"reservation_id"`

	CreatedAt time.Time `db:"created_at"`
}
