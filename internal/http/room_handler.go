package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// RoomHandler serves the room catalogue.
type RoomHandler struct {
	roomService service.RoomService
	logger      *zap.Logger
}

func NewRoomHandler(roomService service.RoomService, logger *zap.Logger) *RoomHandler {
	return &RoomHandler{roomService: roomService, logger: logger}
}

// ServeHTTP dispatches under /api/v1/rooms.
func (h *RoomHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/rooms" && r.Method == http.MethodGet:
		h.ListRooms(w, r)
	case path == "/api/v1/rooms" && r.Method == http.MethodPost:
		h.CreateRoom(w, r)
	case strings.HasPrefix(path, "/api/v1/rooms/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/api/v1/rooms/")
		if id != "" && !strings.Contains(id, "/") {
			h.GetRoom(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/rooms/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(path, "/api/v1/rooms/")
		if id != "" && !strings.Contains(id, "/") {
			h.UpdateRoom(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/rooms/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/api/v1/rooms/")
		if id != "" && !strings.Contains(id, "/") {
			h.DeleteRoom(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type roomPayload struct {
	RoomName          string   `json:"room_name"`
	Capacity          int      `json:"capacity"`
	Equipment         []string `json:"equipment"`
	ResponsibleUserID string   `json:"responsible_user_id"`
	Status            string   `json:"status"`
}

// CreateRoom creates a room (admin only).
func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var payload roomPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	room, err := h.roomService.CreateRoom(r.Context(), service.CreateRoomRequest{
		CurrentUserID:     currentUserID(r),
		RoomName:          payload.RoomName,
		Capacity:          payload.Capacity,
		Equipment:         payload.Equipment,
		ResponsibleUserID: payload.ResponsibleUserID,
		Status:            domain.RoomStatus(payload.Status),
	})
	if err != nil {
		h.logger.Warn("CreateRoom failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(roomView(room)))
}

// GetRoom returns one room.
func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request, id string) {
	room, err := h.roomService.GetRoom(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(roomView(room)))
}

// ListRooms lists rooms with filters.
func (h *RoomHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.roomService.ListRooms(r.Context(), service.ListRoomsRequest{
		Status:            q.Get("status"),
		ResponsibleUserID: q.Get("responsible_user_id"),
		MinCapacity:       parseInt(q.Get("min_capacity"), 0),
		Search:            strings.TrimSpace(q.Get("search")),
		Page:              parseInt(q.Get("page"), 1),
		Size:              parseInt(q.Get("size"), 20),
	})
	if err != nil {
		h.logger.Error("ListRooms failed", zap.Error(err))
		writeError(w, err)
		return
	}

	items := make([]any, 0, len(resp.Items))
	for _, room := range resp.Items {
		items = append(items, roomView(room))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

// UpdateRoom rewrites a room (admin only).
func (h *RoomHandler) UpdateRoom(w http.ResponseWriter, r *http.Request, id string) {
	var payload roomPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	room, err := h.roomService.UpdateRoom(r.Context(), service.UpdateRoomRequest{
		CurrentUserID:     currentUserID(r),
		RoomID:            id,
		RoomName:          payload.RoomName,
		Capacity:          payload.Capacity,
		Equipment:         payload.Equipment,
		ResponsibleUserID: payload.ResponsibleUserID,
		Status:            domain.RoomStatus(payload.Status),
	})
	if err != nil {
		h.logger.Warn("UpdateRoom failed", zap.String("room_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(roomView(room)))
}

// DeleteRoom hard-deletes a room without live reservations (admin only).
func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request, id string) {
	err := h.roomService.DeleteRoom(r.Context(), service.DeleteRoomRequest{
		CurrentUserID: currentUserID(r),
		RoomID:        id,
	})
	if err != nil {
		h.logger.Warn("DeleteRoom failed", zap.String("room_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func roomView(room *domain.Room) map[string]any {
	item := map[string]any{
		"room_id":   room.RoomID,
		"room_name": room.RoomName,
		"capacity":  room.Capacity,
		"status":    room.Status,
	}
	if len(room.Equipment) > 0 {
		item["equipment"] = []string(room.Equipment)
	}
	if room.ResponsibleUserID.Valid {
		item["responsible_user_id"] = room.ResponsibleUserID.String
	}
	if !room.CreatedAt.IsZero() {
		item["created_at"] = room.CreatedAt.Format(time.RFC3339)
	}
	return item
}
