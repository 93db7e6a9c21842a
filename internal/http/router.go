package httpapi

import (
	"net/http"

	"go.uber.org/zap"
)

// Router wraps the standard library http.ServeMux; handler structs do
// their own path/method dispatch under their prefix.
type Router struct {
	mux    *http.ServeMux
	logger *zap.Logger
}

func NewRouter(logger *zap.Logger) *Router {
	return &Router{
		mux:    http.NewServeMux(),
		logger: logger,
	}
}

func (r *Router) Handle(pattern string, h http.HandlerFunc) {
	r.mux.HandleFunc(pattern, h)
}

// HandleHandler supports the http.Handler interface (pprof etc.).
func (r *Router) HandleHandler(pattern string, h http.Handler) {
	r.mux.Handle(pattern, h)
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	r.mux.ServeHTTP(w, req)
}

// RegisterReservationRoutes registers the reservation surface.
func (r *Router) RegisterReservationRoutes(h *ReservationHandler) {
	r.Handle("/api/v1/reservations", h.ServeHTTP)
	r.Handle("/api/v1/reservations/", h.ServeHTTP)
	r.Handle("/api/v1/availability", h.CheckAvailability)
}

// RegisterRoomRoutes registers the room catalogue surface.
func (r *Router) RegisterRoomRoutes(h *RoomHandler) {
	r.Handle("/api/v1/rooms", h.ServeHTTP)
	r.Handle("/api/v1/rooms/", h.ServeHTTP)
}

// RegisterUserRoutes registers account management.
func (r *Router) RegisterUserRoutes(h *UserHandler) {
	r.Handle("/api/v1/users", h.ServeHTTP)
	r.Handle("/api/v1/users/", h.ServeHTTP)
}

// RegisterDepartmentRoutes registers the department directory.
func (r *Router) RegisterDepartmentRoutes(h *DepartmentHandler) {
	r.Handle("/api/v1/departments", h.ServeHTTP)
	r.Handle("/api/v1/departments/", h.ServeHTTP)
}

// RegisterNotificationRoutes registers the notification inbox.
func (r *Router) RegisterNotificationRoutes(h *NotificationHandler) {
	r.Handle("/api/v1/notifications", h.ServeHTTP)
	r.Handle("/api/v1/notifications/", h.ServeHTTP)
}

// RegisterSettingsRoutes registers the policy settings surface.
func (r *Router) RegisterSettingsRoutes(h *SettingHandler) {
	r.Handle("/api/v1/settings", h.ServeHTTP)
}

// RegisterAuditRoutes registers the admin audit trail, including the
// Excel export.
func (r *Router) RegisterAuditRoutes(h *AuditHandler) {
	r.Handle("/api/v1/audit-logs", h.ServeHTTP)
	r.Handle("/api/v1/audit-logs/export", h.ExportExcel)
}

// RegisterReportRoutes registers the Excel report exports.
func (r *Router) RegisterReportRoutes(h *ReportHandler) {
	r.Handle("/api/v1/reports/reservations.xlsx", h.ExportReservations)
}

// RegisterHealthRoute registers the liveness probe.
func (r *Router) RegisterHealthRoute() {
	r.Handle("/healthz", func(w http.ResponseWriter, req *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
}
