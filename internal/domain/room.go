package domain

import (
	"database/sql"
	"time"

	"github.com/lib/pq"
)

// RoomStatus is the operational status of a room.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomMaintenance RoomStatus = "maintenance"
	RoomUnavailable RoomStatus = "unavailable"
)

// Room is a bookable room. ResponsibleUserID links the responsable who
// validates reservations on it; the link is for assignment only, not an
// exclusive write lock.
type Room struct {
	RoomID   string `db:"room_id"`
	RoomName string `db:"room_name"` // unique
	Capacity int    `db:"capacity"`

	Equipment         pq.StringArray `db:"equipment"`
	ResponsibleUserID sql.NullString `db:"responsible_user_id"`
	Status            RoomStatus     `db:"status"`

	CreatedAt time.Time `db:"created_at"`
	UpdatedAt time.Time `db:"updated_at"`
}
