package repository

import (
	"context"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// RoomsRepository is the rooms store.
type RoomsRepository interface {
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context, filters RoomFilters, page, size int) ([]*domain.Room, int, error)
	CreateRoom(ctx context.Context, room *domain.Room) (string, error)
	UpdateRoom(ctx context.Context, roomID string, room *domain.Room) error

	// DeleteRoom hard-deletes a room, restricted: when the room still has
	// non-terminal reservations the delete fails with ConflictError. The
	// restriction check, the delete and the audit row run in one
	// transaction.
	DeleteRoom(ctx context.Context, roomID string, audit *domain.AuditLog) error
}

// RoomFilters narrows ListRooms.
type RoomFilters struct {
	Status            string
	ResponsibleUserID string
	MinCapacity       int
	Search            string // matches room_name
}
