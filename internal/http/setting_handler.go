package httpapi

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// SettingHandler serves the policy settings row.
type SettingHandler struct {
	settingService service.SettingService
	logger         *zap.Logger
}

func NewSettingHandler(settingService service.SettingService, logger *zap.Logger) *SettingHandler {
	return &SettingHandler{settingService: settingService, logger: logger}
}

// ServeHTTP dispatches /api/v1/settings.
func (h *SettingHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetSettings(w, r)
	case http.MethodPut:
		h.UpdateSettings(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// GetSettings returns the current policy.
func (h *SettingHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := h.settingService.GetSettings(r.Context())
	if err != nil {
		h.logger.Error("GetSettings failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(settingsView(settings)))
}

// UpdateSettings applies a partial policy update (admin only).
func (h *SettingHandler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	var req service.UpdateSettingsRequest
	if err := readBodyJSON(r, 1<<20, &req); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}
	req.CurrentUserID = currentUserID(r)

	settings, err := h.settingService.UpdateSettings(r.Context(), req)
	if err != nil {
		h.logger.Warn("UpdateSettings failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(settingsView(settings)))
}

func settingsView(s *domain.Settings) map[string]any {
	return map[string]any{
		"max_reservations_per_user":              s.MaxReservationsPerUser,
		"max_advance_days":                       s.MaxAdvanceDays,
		"max_duration_hours":                     s.MaxDurationHours,
		"require_validation":                     s.RequireValidation,
		"notify_on_validation":                   s.NotifyOnValidation,
		"suppress_admin_if_responsable_notified": s.SuppressAdminIfResponsableNotified,
		"working_hours_start":                    s.WorkingHoursStart,
		"working_hours_end":                      s.WorkingHoursEnd,
	}
}
