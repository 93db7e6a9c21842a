package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// ReportHandler serves Excel exports of the reservation schedule.
type ReportHandler struct {
	reservationService service.ReservationService
	logger             *zap.Logger
}

func NewReportHandler(reservationService service.ReservationService, logger *zap.Logger) *ReportHandler {
	return &ReportHandler{reservationService: reservationService, logger: logger}
}

// ExportReservations streams the filtered reservation list as an xlsx
// workbook. Visibility follows the list endpoint: plain users export
// only their own reservations.
func (h *ReportHandler) ExportReservations(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
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

	resp, err := h.reservationService.ListReservations(r.Context(), service.ListReservationsRequest{
		CurrentUserID: currentUserID(r),
		RoomID:        q.Get("room_id"),
		DepartmentID:  q.Get("department_id"),
		Status:        q.Get("status"),
		From:          from,
		To:            to,
		Page:          1,
		Size:          10000,
	})
	if err != nil {
		h.logger.Warn("Reservation export failed", zap.Error(err))
		writeError(w, err)
		return
	}

	data, err := GenerateReservationExport(resp.Items)
	if err != nil {
		h.logger.Error("Failed to generate reservation workbook", zap.Error(err))
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("reservations-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
