package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// NotificationHandler serves the current user's notification inbox.
type NotificationHandler struct {
	notificationService service.NotificationService
	logger              *zap.Logger
}

func NewNotificationHandler(notificationService service.NotificationService, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{notificationService: notificationService, logger: logger}
}

// ServeHTTP dispatches under /api/v1/notifications.
func (h *NotificationHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/notifications" && r.Method == http.MethodGet:
		h.ListNotifications(w, r)
	case path == "/api/v1/notifications/read-all" && r.Method == http.MethodPost:
		h.MarkAllRead(w, r)
	case strings.HasSuffix(path, "/read") && r.Method == http.MethodPost:
		id := strings.TrimSuffix(path, "/read")
		id = strings.TrimPrefix(id, "/api/v1/notifications/")
		if id != "" && !strings.Contains(id, "/") {
			h.MarkRead(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

// ListNotifications lists the caller's notifications.
func (h *NotificationHandler) ListNotifications(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.notificationService.ListNotifications(r.Context(), service.ListNotificationsRequest{
		CurrentUserID: currentUserID(r),
		UnreadOnly:    parseBool(q.Get("unread_only")),
		Page:          parseInt(q.Get("page"), 1),
		Size:          parseInt(q.Get("size"), 20),
	})
	if err != nil {
		h.logger.Error("ListNotifications failed", zap.Error(err))
		writeError(w, err)
		return
	}

	items := make([]any, 0, len(resp.Items))
	for _, n := range resp.Items {
		items = append(items, notificationView(n))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

// MarkRead flags one notification as read.
func (h *NotificationHandler) MarkRead(w http.ResponseWriter, r *http.Request, id string) {
	err := h.notificationService.MarkNotificationRead(r.Context(), service.MarkNotificationReadRequest{
		CurrentUserID:  currentUserID(r),
		NotificationID: id,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

// MarkAllRead flags every unread notification of the caller as read.
func (h *NotificationHandler) MarkAllRead(w http.ResponseWriter, r *http.Request) {
	updated, err := h.notificationService.MarkAllNotificationsRead(r.Context(), service.MarkAllNotificationsReadRequest{
		CurrentUserID: currentUserID(r),
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"updated": updated}))
}

func notificationView(n *domain.Notification) map[string]any {
	item := map[string]any{
		"notification_id": n.NotificationID,
		"type":            n.Type,
		"title":           n.Title,
		"message":         n.Message,
		"read":            n.Read,
	}
	if n.ReservationID.Valid {
		item["reservation_id"] = n.ReservationID.String
	}
	if !n.CreatedAt.IsZero() {
		item["created_at"] = n.CreatedAt.Format(time.RFC3339)
	}
	return item
}
