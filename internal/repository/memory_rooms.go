package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
)

// MemoryRoomsRepo is the in-memory RoomsRepository. The delete
// restriction needs visibility into reservations, so the reservations
// repo is attached after construction.
type MemoryRoomsRepo struct {
	mu    sync.RWMutex
	rooms map[string]*domain.Room

	reservations *MemoryReservationsRepo
}

func NewMemoryRoomsRepo() *MemoryRoomsRepo {
	return &MemoryRoomsRepo{rooms: map[string]*domain.Room{}}
}

// AttachReservations wires the reservations repo used by the DeleteRoom
// restriction check.
func (r *MemoryRoomsRepo) AttachReservations(res *MemoryReservationsRepo) {
	r.reservations = res
}

var _ RoomsRepository = (*MemoryRoomsRepo)(nil)

func (r *MemoryRoomsRepo) GetRoom(_ context.Context, roomID string) (*domain.Room, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	room, ok := r.rooms[roomID]
	if !ok {
		return nil, &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	clone := *room
	return &clone, nil
}

func (r *MemoryRoomsRepo) ListRooms(_ context.Context, filters RoomFilters, page, size int) ([]*domain.Room, int, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matched []*domain.Room
	for _, room := range r.rooms {
		if filters.Status != "" && string(room.Status) != filters.Status {
			continue
		}
		if filters.ResponsibleUserID != "" &&
			(!room.ResponsibleUserID.Valid || room.ResponsibleUserID.String != filters.ResponsibleUserID) {
			continue
		}
		if filters.MinCapacity > 0 && room.Capacity < filters.MinCapacity {
			continue
		}
		if filters.Search != "" &&
			!strings.Contains(strings.ToLower(room.RoomName), strings.ToLower(filters.Search)) {
			continue
		}
		clone := *room
		matched = append(matched, &clone)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].RoomName < matched[j].RoomName })
	return paginate(matched, page, size), len(matched), nil
}

func (r *MemoryRoomsRepo) CreateRoom(_ context.Context, room *domain.Room) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.rooms {
		if strings.EqualFold(existing.RoomName, room.RoomName) {
			return "", domain.NewValidationError("room_name", "already exists")
		}
	}
	if room.RoomID == "" {
		room.RoomID = uuid.NewString()
	}
	if room.Status == "" {
		room.Status = domain.RoomAvailable
	}
	room.CreatedAt = time.Now()
	room.UpdatedAt = room.CreatedAt
	clone := *room
	r.rooms[room.RoomID] = &clone
	return room.RoomID, nil
}

func (r *MemoryRoomsRepo) UpdateRoom(_ context.Context, roomID string, room *domain.Room) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.rooms[roomID]
	if !ok {
		return &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	for id, other := range r.rooms {
		if id != roomID && strings.EqualFold(other.RoomName, room.RoomName) {
			return domain.NewValidationError("room_name", "already exists")
		}
	}
	clone := *room
	clone.RoomID = roomID
	clone.CreatedAt = existing.CreatedAt
	clone.UpdatedAt = time.Now()
	r.rooms[roomID] = &clone
	return nil
}

func (r *MemoryRoomsRepo) DeleteRoom(_ context.Context, roomID string, _ *domain.AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.rooms[roomID]; !ok {
		return &domain.NotFoundError{Entity: "room", ID: roomID}
	}
	if r.reservations != nil {
		if n := r.reservations.countActiveForRoom(roomID); n > 0 {
			return &domain.ConflictError{
				RoomID: roomID,
				Reason: fmt.Sprintf("room has %d active reservations", n),
			}
		}
	}
	delete(r.rooms, roomID)
	return nil
}
