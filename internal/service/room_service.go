package service

import (
	"context"
	"strings"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
)

// RoomService manages the room catalogue. Reads are open to every
// authenticated user; mutations are admin-only.
type RoomService interface {
	CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error)
	GetRoom(ctx context.Context, roomID string) (*domain.Room, error)
	ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error)
	UpdateRoom(ctx context.Context, req UpdateRoomRequest) (*domain.Room, error)

	// DeleteRoom hard-deletes a room. Refused with ConflictError while
	// the room still has non-terminal reservations.
	DeleteRoom(ctx context.Context, req DeleteRoomRequest) error
}

type roomService struct {
	roomsRepo repository.RoomsRepository
	usersRepo repository.UsersRepository
	logger    *zap.Logger
}

func NewRoomService(roomsRepo repository.RoomsRepository, usersRepo repository.UsersRepository, logger *zap.Logger) RoomService {
	return &roomService{roomsRepo: roomsRepo, usersRepo: usersRepo, logger: logger}
}

type CreateRoomRequest struct {
	CurrentUserID string

	RoomName          string
	Capacity          int
	Equipment         []string
	ResponsibleUserID string
	Status            domain.RoomStatus
}

type ListRoomsRequest struct {
	Status            string
	ResponsibleUserID string
	MinCapacity       int
	Search            string
	Page              int
	Size              int
}

type ListRoomsResponse struct {
	Items []*domain.Room
	Total int
}

type UpdateRoomRequest struct {
	CurrentUserID string
	RoomID        string

	RoomName          string
	Capacity          int
	Equipment         []string
	ResponsibleUserID string
	Status            domain.RoomStatus
}

type DeleteRoomRequest struct {
	CurrentUserID string
	RoomID        string
}

func (s *roomService) CreateRoom(ctx context.Context, req CreateRoomRequest) (*domain.Room, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "create rooms"); err != nil {
		return nil, err
	}
	room, err := s.buildRoom(ctx, req.RoomName, req.Capacity, req.Equipment, req.ResponsibleUserID, req.Status)
	if err != nil {
		return nil, err
	}

	id, err := s.roomsRepo.CreateRoom(ctx, room)
	if err != nil {
		return nil, err
	}
	room.RoomID = id

	s.logger.Info("Created room", zap.String("room_id", id), zap.String("room_name", room.RoomName))
	return room, nil
}

func (s *roomService) GetRoom(ctx context.Context, roomID string) (*domain.Room, error) {
	return s.roomsRepo.GetRoom(ctx, roomID)
}

func (s *roomService) ListRooms(ctx context.Context, req ListRoomsRequest) (*ListRoomsResponse, error) {
	page, size := normalizePage(req.Page, req.Size)
	items, total, err := s.roomsRepo.ListRooms(ctx, repository.RoomFilters{
		Status:            req.Status,
		ResponsibleUserID: req.ResponsibleUserID,
		MinCapacity:       req.MinCapacity,
		Search:            req.Search,
	}, page, size)
	if err != nil {
		return nil, err
	}
	return &ListRoomsResponse{Items: items, Total: total}, nil
}

func (s *roomService) UpdateRoom(ctx context.Context, req UpdateRoomRequest) (*domain.Room, error) {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "update rooms"); err != nil {
		return nil, err
	}
	if _, err := s.roomsRepo.GetRoom(ctx, req.RoomID); err != nil {
		return nil, err
	}
	room, err := s.buildRoom(ctx, req.RoomName, req.Capacity, req.Equipment, req.ResponsibleUserID, req.Status)
	if err != nil {
		return nil, err
	}
	room.RoomID = req.RoomID

	if err := s.roomsRepo.UpdateRoom(ctx, req.RoomID, room); err != nil {
		return nil, err
	}
	s.logger.Info("Updated room", zap.String("room_id", req.RoomID))
	return room, nil
}

func (s *roomService) DeleteRoom(ctx context.Context, req DeleteRoomRequest) error {
	if err := requireAdmin(ctx, s.usersRepo, req.CurrentUserID, "delete rooms"); err != nil {
		return err
	}
	room, err := s.roomsRepo.GetRoom(ctx, req.RoomID)
	if err != nil {
		return err
	}

	audit := auditRow(
		domain.AuditActionRoomDelete, req.CurrentUserID,
		"room", req.RoomID,
		room, nil, domain.AuditSuccess, "",
	)
	if err := s.roomsRepo.DeleteRoom(ctx, req.RoomID, audit); err != nil {
		return err
	}
	s.logger.Info("Deleted room", zap.String("room_id", req.RoomID), zap.String("actor_id", req.CurrentUserID))
	return nil
}

func (s *roomService) buildRoom(ctx context.Context, name string, capacity int, equipment []string, responsibleID string, status domain.RoomStatus) (*domain.Room, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.NewValidationError("room_name", "is required")
	}
	if capacity <= 0 {
		return nil, domain.NewValidationError("capacity", "must be positive")
	}
	if status == "" {
		status = domain.RoomAvailable
	}
	switch status {
	case domain.RoomAvailable, domain.RoomMaintenance, domain.RoomUnavailable:
	default:
		return nil, domain.NewValidationError("status", "must be available, maintenance or unavailable")
	}

	room := &domain.Room{
		RoomName:  name,
		Capacity:  capacity,
		Equipment: pq.StringArray(equipment),
		Status:    status,
	}
	if responsibleID != "" {
		responsible, err := s.usersRepo.GetUser(ctx, responsibleID)
		if err != nil {
			return nil, err
		}
		if responsible.Role != domain.RoleResponsable && responsible.Role != domain.RoleAdmin {
			return nil, domain.NewValidationError("responsible_user_id", "user is not a responsable")
		}
		room.ResponsibleUserID.String = responsibleID
		room.ResponsibleUserID.Valid = true
	}
	return room, nil
}
