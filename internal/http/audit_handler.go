package httpapi

import (
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// AuditHandler serves the admin audit trail.
type AuditHandler struct {
	auditService service.AuditService
	logger       *zap.Logger
}

func NewAuditHandler(auditService service.AuditService, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{auditService: auditService, logger: logger}
}

// ServeHTTP dispatches /api/v1/audit-logs.
func (h *AuditHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.ListAuditLogs(w, r)
	case http.MethodDelete:
		h.PruneAuditLogs(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// ListAuditLogs lists audit rows with filters (admin only).
func (h *AuditHandler) ListAuditLogs(w http.ResponseWriter, r *http.Request) {
	req, ok := h.listRequest(w, r)
	if !ok {
		return
	}

	resp, err := h.auditService.ListAuditLogs(r.Context(), req)
	if err != nil {
		h.logger.Warn("ListAuditLogs failed", zap.Error(err))
		writeError(w, err)
		return
	}

	items := make([]any, 0, len(resp.Items))
	for _, log := range resp.Items {
		items = append(items, auditView(log))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

// PruneAuditLogs removes rows older than the retention window (admin only).
func (h *AuditHandler) PruneAuditLogs(w http.ResponseWriter, r *http.Request) {
	days := parseInt(r.URL.Query().Get("older_than_days"), 0)
	resp, err := h.auditService.PruneAuditLogs(r.Context(), service.PruneAuditLogsRequest{
		CurrentUserID: currentUserID(r),
		MaxAge:        time.Duration(days) * 24 * time.Hour,
	})
	if err != nil {
		h.logger.Warn("PruneAuditLogs failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"removed": resp.Removed}))
}

// ExportExcel streams the filtered audit trail as an xlsx workbook
// (admin only).
func (h *AuditHandler) ExportExcel(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	req, ok := h.listRequest(w, r)
	if !ok {
		return
	}
	req.Size = 10000

	resp, err := h.auditService.ListAuditLogs(r.Context(), req)
	if err != nil {
		h.logger.Warn("Audit export failed", zap.Error(err))
		writeError(w, err)
		return
	}

	data, err := GenerateAuditExport(resp.Items)
	if err != nil {
		h.logger.Error("Failed to generate audit workbook", zap.Error(err))
		writeError(w, err)
		return
	}

	filename := fmt.Sprintf("audit-logs-%s.xlsx", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *AuditHandler) listRequest(w http.ResponseWriter, r *http.Request) (service.ListAuditLogsRequest, bool) {
	q := r.URL.Query()
	since, ok := parseTime(q.Get("since"))
	if !ok {
		writeJSON(w, http.StatusBadRequest, Fail("since must be RFC 3339"))
		return service.ListAuditLogsRequest{}, false
	}
	return service.ListAuditLogsRequest{
		CurrentUserID: currentUserID(r),
		Action:        q.Get("action"),
		ActorID:       q.Get("actor_id"),
		TargetType:    q.Get("target_type"),
		TargetID:      q.Get("target_id"),
		Outcome:       q.Get("outcome"),
		Since:         since,
		Page:          parseInt(q.Get("page"), 1),
		Size:          parseInt(q.Get("size"), 20),
	}, true
}

func auditView(log *domain.AuditLog) map[string]any {
	item := map[string]any{
		"audit_id":    log.AuditID,
		"action":      log.Action,
		"target_type": log.TargetType,
		"target_id":   log.TargetID,
		"outcome":     log.Outcome,
		"before":      log.BeforeState,
		"after":       log.AfterState,
	}
	if log.ActorID.Valid {
		item["actor_id"] = log.ActorID.String
	}
	if log.ErrorMessage.Valid {
		item["error_message"] = log.ErrorMessage.String
	}
	if !log.CreatedAt.IsZero() {
		item["created_at"] = log.CreatedAt.Format(time.RFC3339)
	}
	return item
}
