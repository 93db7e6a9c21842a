package service

import (
	"time"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// ReservationEvent is the payload fanned out to external consumers
// (MQTT topic, webhook sink) when a reservation notification is emitted.
// Fan-out is fire-and-forget: a lost event is acceptable, a blocked
// business request is not.
type ReservationEvent struct {
	Type          domain.NotificationType `json:"type"`
	ReservationID string                  `json:"reservation_id,omitempty"`
	RecipientID   string                  `json:"recipient_id"`
	Title         string                  `json:"title"`
	Message       string                  `json:"message"`
	OccurredAt    time.Time               `json:"occurred_at"`
}

// EventPublisher pushes reservation events to an external channel.
type EventPublisher interface {
	PublishReservationEvent(evt ReservationEvent) error
}
