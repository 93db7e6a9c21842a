package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// ReservationHandler serves the reservation surface.
type ReservationHandler struct {
	reservationService service.ReservationService
	logger             *zap.Logger
}

func NewReservationHandler(reservationService service.ReservationService, logger *zap.Logger) *ReservationHandler {
	return &ReservationHandler{
		reservationService: reservationService,
		logger:             logger,
	}
}

// ServeHTTP dispatches under /api/v1/reservations.
func (h *ReservationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/reservations" && r.Method == http.MethodGet:
		h.ListReservations(w, r)
	case path == "/api/v1/reservations" && r.Method == http.MethodPost:
		h.CreateReservation(w, r)
	case strings.HasSuffix(path, "/status") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(path, "/status")
		id = strings.TrimPrefix(id, "/api/v1/reservations/")
		if id != "" && !strings.Contains(id, "/") {
			h.TransitionReservation(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasSuffix(path, "/assign") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(path, "/assign")
		id = strings.TrimPrefix(id, "/api/v1/reservations/")
		if id != "" && !strings.Contains(id, "/") {
			h.AssignResponsible(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/reservations/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/api/v1/reservations/")
		if id != "" && !strings.Contains(id, "/") {
			h.GetReservation(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/reservations/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(path, "/api/v1/reservations/")
		if id != "" && !strings.Contains(id, "/") {
			h.UpdateReservation(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/reservations/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/api/v1/reservations/")
		if id != "" && !strings.Contains(id, "/") {
			h.DeleteReservation(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type createReservationPayload struct {
	RoomID           string   `json:"room_id"`
	DepartmentID     string   `json:"department_id"`
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	ParticipantCount int      `json:"participant_count"`
	Equipment        []string `json:"equipment"`
}

// CreateReservation creates a reservation request.
func (h *ReservationHandler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var payload createReservationPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	start, ok := parseTime(payload.StartTime)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("start_time must be RFC 3339"))
		return
	}
	end, ok := parseTime(payload.EndTime)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("end_time must be RFC 3339"))
		return
	}

	req := service.CreateReservationRequest{
		CurrentUserID:    currentUserID(r),
		RoomID:           payload.RoomID,
		DepartmentID:     payload.DepartmentID,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: payload.ParticipantCount,
		Equipment:        payload.Equipment,
	}

	res, err := h.reservationService.CreateReservation(ctx, req)
	if err != nil {
		h.logger.Warn("CreateReservation failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(reservationView(res)))
}

// GetReservation returns one reservation.
func (h *ReservationHandler) GetReservation(w http.ResponseWriter, r *http.Request, id string) {
	res, err := h.reservationService.GetReservation(r.Context(), service.GetReservationRequest{
		CurrentUserID: currentUserID(r),
		ReservationID: id,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reservationView(res)))
}

// ListReservations lists reservations with filters.
func (h *ReservationHandler) ListReservations(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	from, ok := parseTime(q.Get("from"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("from must be RFC 3339"))
		return
	}
	to, ok := parseTime(q.Get("to"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("to must be RFC 3339"))
		return
	}

	req := service.ListReservationsRequest{
		CurrentUserID: currentUserID(r),
		RoomID:        q.Get("room_id"),
		UserID:        q.Get("user_id"),
		DepartmentID:  q.Get("department_id"),
		Status:        q.Get("status"),
		From:          from,
		To:            to,
		Page:          parseInt(q.Get("page"), 1),
		Size:          parseInt(q.Get("size"), 20),
	}

	resp, err := h.reservationService.ListReservations(r.Context(), req)
	if err != nil {
		h.logger.Error("ListReservations failed", zap.Error(err))
		writeError(w, err)
		return
	}

	items := make([]any, 0, len(resp.Items))
	for _, res := range resp.Items {
		items = append(items, reservationView(res))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

type updateReservationPayload struct {
	StartTime        string   `json:"start_time"`
	EndTime          string   `json:"end_time"`
	ParticipantCount int      `json:"participant_count"`
	Equipment        []string `json:"equipment"`
	DepartmentID     string   `json:"department_id"`
}

// UpdateReservation rewrites a pending reservation.
func (h *ReservationHandler) UpdateReservation(w http.ResponseWriter, r *http.Request, id string) {
	var payload updateReservationPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	start, ok := parseTime(payload.StartTime)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("start_time must be RFC 3339"))
		return
	}
	end, ok := parseTime(payload.EndTime)
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("end_time must be RFC 3339"))
		return
	}

	res, err := h.reservationService.UpdateReservation(r.Context(), service.UpdateReservationRequest{
		CurrentUserID:    currentUserID(r),
		ReservationID:    id,
		StartTime:        start,
		EndTime:          end,
		ParticipantCount: payload.ParticipantCount,
		Equipment:        payload.Equipment,
		DepartmentID:     payload.DepartmentID,
	})
	if err != nil {
		h.logger.Warn("UpdateReservation failed", zap.String("reservation_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reservationView(res)))
}

type transitionPayload struct {
	Status       string `json:"status"`
	AdminComment string `json:"admin_comment"`
}

// TransitionReservation applies a lifecycle status change.
func (h *ReservationHandler) TransitionReservation(w http.ResponseWriter, r *http.Request, id string) {
	var payload transitionPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.Status == "" {
		writeJSON(w, http.StatusBadRequest, Fail("status is required"))
		return
	}

	res, err := h.reservationService.TransitionReservation(r.Context(), service.TransitionReservationRequest{
		CurrentUserID: currentUserID(r),
		ReservationID: id,
		TargetStatus:  domain.ReservationStatus(payload.Status),
		AdminComment:  payload.AdminComment,
	})
	if err != nil {
		h.logger.Warn("TransitionReservation failed",
			zap.String("reservation_id", id),
			zap.String("target", payload.Status),
			zap.Error(err),
		)
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(reservationView(res)))
}

type assignPayload struct {
	ResponsibleUserID string `json:"responsible_user_id"`
}

// AssignResponsible sets the responsable handling a reservation.
func (h *ReservationHandler) AssignResponsible(w http.ResponseWriter, r *http.Request, id string) {
	var payload assignPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	if payload.ResponsibleUserID == "" {
		writeJSON(w, http.StatusBadRequest, Fail("responsible_user_id is required"))
		return
	}

	err := h.reservationService.AssignResponsible(r.Context(), service.AssignResponsibleRequest{
		CurrentUserID:     currentUserID(r),
		ReservationID:     id,
		ResponsibleUserID: payload.ResponsibleUserID,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// DeleteReservation hard-deletes a reservation (admin only).
func (h *ReservationHandler) DeleteReservation(w http.ResponseWriter, r *http.Request, id string) {
	err := h.reservationService.DeleteReservation(r.Context(), service.DeleteReservationRequest{
		CurrentUserID: currentUserID(r),
		ReservationID: id,
	})
	if err != nil {
		h.logger.Warn("DeleteReservation failed", zap.String("reservation_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// CheckAvailability reports whether a room is free over an interval.
func (h *ReservationHandler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	q := r.URL.Query()
	start, ok := parseTime(q.Get("start_time"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("start_time must be RFC 3339"))
		return
	}
	end, ok := parseTime(q.Get("end_time"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("end_time must be RFC 3339"))
		return
	}

	resp, err := h.reservationService.CheckAvailability(r.Context(), service.CheckAvailabilityRequest{
		RoomID:               q.Get("room_id"),
		StartTime:            start,
		EndTime:              end,
		ExcludeReservationID: q.Get("exclude_reservation_id"),
	})
	if err != nil {
		writeError(w, err)
		return
	}

	result := map[string]any{"available": resp.Available}
	if resp.ConflictingID != "" {
		result["conflicting_reservation_id"] = resp.ConflictingID
	}
	writeJSON(w, http.StatusOK, Ok(result))
}

func reservationView(res *domain.Reservation) map[string]any {
	item := map[string]any{
		"reservation_id":    res.ReservationID,
		"room_id":           res.RoomID,
		"user_id":           res.UserID,
		"start_time":        res.StartTime.Format(time.RFC3339),
		"end_time":          res.EndTime.Format(time.RFC3339),
		"status":            res.Status,
		"participant_count": res.ParticipantCount,
	}
	if len(res.Equipment) > 0 {
		item["equipment"] = []string(res.Equipment)
	}
	if res.DepartmentID.Valid {
		item["department_id"] = res.DepartmentID.String
	}
	if res.AdminComment.Valid {
		item["admin_comment"] = res.AdminComment.String
	}
	if res.ValidatedBy.Valid {
		item["validated_by"] = res.ValidatedBy.String
	}
	if res.ValidatedAt.Valid {
		item["validated_at"] = res.ValidatedAt.Time.Format(time.RFC3339)
	}
	if !res.CreatedAt.IsZero() {
		item["created_at"] = res.CreatedAt.Format(time.RFC3339)
	}
	return item
}
