package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/repository"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
	"github.com/marxist91/reservation-backend-sub001/internal/store"
)

type apiFixture struct {
	router *Router

	adminID       string
	responsableID string
	userID        string
	roomID        string
}

func newAPIFixture(t *testing.T) *apiFixture {
	t.Helper()
	logger := zap.NewNop()
	ctx := context.Background()

	users := repository.NewMemoryUsersRepo()
	rooms := repository.NewMemoryRoomsRepo()
	departments := repository.NewMemoryDepartmentsRepo()
	reservations := repository.NewMemoryReservationsRepo()
	audits := repository.NewMemoryAuditLogsRepo()
	notifs := repository.NewMemoryNotificationsRepo()
	settings := repository.NewMemorySettingsRepo()
	rooms.AttachReservations(reservations)
	reservations.AttachAudits(audits)

	auditSvc := service.NewAuditService(audits, users, logger)
	notificationSvc := service.NewNotificationService(notifs, nil, logger)
	settingSvc := service.NewSettingService(settings, users, auditSvc, store.NewMemoryKV(), logger)
	reservationSvc := service.NewReservationService(
		reservations, rooms, users, departments,
		settingSvc, notificationSvc, auditSvc, logger,
	)

	f := &apiFixture{}
	seed := func(id, email string, role domain.Role) string {
		created, err := users.CreateUser(ctx, &domain.User{
			UserID:    id,
			FirstName: "Test",
			LastName:  id,
			Email:     email,
			Role:      role,
			Active:    true,
		})
		require.NoError(t, err)
		return created
	}
	f.adminID = seed("admin-1", "admin@example.com", domain.RoleAdmin)
	f.responsableID = seed("resp-1", "resp@example.com", domain.RoleResponsable)
	f.userID = seed("user-1", "user@example.com", domain.RoleUser)

	roomID, err := rooms.CreateRoom(ctx, &domain.Room{
		RoomName:          "Conference A",
		Capacity:          10,
		Status:            domain.RoomAvailable,
		ResponsibleUserID: sql.NullString{String: f.responsableID, Valid: true},
	})
	require.NoError(t, err)
	f.roomID = roomID

	router := NewRouter(logger)
	router.RegisterHealthRoute()
	router.RegisterReservationRoutes(NewReservationHandler(reservationSvc, logger))
	router.RegisterNotificationRoutes(NewNotificationHandler(notificationSvc, logger))
	router.RegisterSettingsRoutes(NewSettingHandler(settingSvc, logger))
	f.router = router
	return f
}

func (f *apiFixture) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if userID != "" {
		req.Header.Set("X-User-Id", userID)
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func decodeResult(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var envelope map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &envelope))
	return envelope
}

func futureSlot(startHour, endHour int) (string, string) {
	day := time.Now().UTC().AddDate(0, 0, 1)
	start := time.Date(day.Year(), day.Month(), day.Day(), startHour, 0, 0, 0, time.UTC)
	end := time.Date(day.Year(), day.Month(), day.Day(), endHour, 0, 0, 0, time.UTC)
	return start.Format(time.RFC3339), end.Format(time.RFC3339)
}

func TestReservationLifecycleOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(9, 10)

	body := fmt.Sprintf(`{"room_id":%q,"start_time":%q,"end_time":%q,"participant_count":4}`,
		f.roomID, start, end)
	rec := f.do(t, http.MethodPost, "/api/v1/reservations", f.userID, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	envelope := decodeResult(t, rec)
	require.EqualValues(t, ResultSuccess, envelope["code"])
	result := envelope["result"].(map[string]any)
	reservationID := result["reservation_id"].(string)
	require.NotEmpty(t, reservationID)
	require.Equal(t, "pending", result["status"])

	// The slot is now taken.
	rec = f.do(t, http.MethodPost, "/api/v1/reservations", f.userID, body)
	require.Equal(t, http.StatusConflict, rec.Code)

	// The responsable validates over the status endpoint.
	rec = f.do(t, http.MethodPost, "/api/v1/reservations/"+reservationID+"/status",
		f.responsableID, `{"status":"validated"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeResult(t, rec)["result"].(map[string]any)
	require.Equal(t, "validated", result["status"])
	require.Equal(t, f.responsableID, result["validated_by"])

	// A plain user hitting an admin-only delete gets 403.
	rec = f.do(t, http.MethodDelete, "/api/v1/reservations/"+reservationID, f.userID, "")
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodDelete, "/api/v1/reservations/"+reservationID, f.adminID, "")
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestReservationBadInput(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodPost, "/api/v1/reservations", f.userID,
		`{"room_id":"x","start_time":"not-a-time","end_time":"also-not","participant_count":1}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	// Unknown reservation id maps to 404.
	rec = f.do(t, http.MethodGet, "/api/v1/reservations/missing", f.adminID, "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Missing identity header is a validation error.
	start, end := futureSlot(9, 10)
	body := fmt.Sprintf(`{"room_id":%q,"start_time":%q,"end_time":%q,"participant_count":4}`,
		f.roomID, start, end)
	rec = f.do(t, http.MethodPost, "/api/v1/reservations", "", body)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAvailabilityEndpoint(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(9, 10)

	rec := f.do(t, http.MethodGet,
		"/api/v1/availability?room_id="+f.roomID+"&start_time="+start+"&end_time="+end, f.userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)["result"].(map[string]any)
	require.Equal(t, true, result["available"])

	body := fmt.Sprintf(`{"room_id":%q,"start_time":%q,"end_time":%q,"participant_count":4}`,
		f.roomID, start, end)
	rec = f.do(t, http.MethodPost, "/api/v1/reservations", f.userID, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = f.do(t, http.MethodGet,
		"/api/v1/availability?room_id="+f.roomID+"&start_time="+start+"&end_time="+end, f.userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeResult(t, rec)["result"].(map[string]any)
	require.Equal(t, false, result["available"])
	require.NotEmpty(t, result["conflicting_reservation_id"])
}

func TestSettingsEndpoint(t *testing.T) {
	f := newAPIFixture(t)

	rec := f.do(t, http.MethodGet, "/api/v1/settings", f.userID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)["result"].(map[string]any)
	require.EqualValues(t, 5, result["max_reservations_per_user"])

	// Non-admin update is forbidden.
	rec = f.do(t, http.MethodPut, "/api/v1/settings", f.userID, `{"max_reservations_per_user":3}`)
	require.Equal(t, http.StatusForbidden, rec.Code)

	rec = f.do(t, http.MethodPut, "/api/v1/settings", f.adminID, `{"max_reservations_per_user":3}`)
	require.Equal(t, http.StatusOK, rec.Code)
	result = decodeResult(t, rec)["result"].(map[string]any)
	require.EqualValues(t, 3, result["max_reservations_per_user"])
}

func TestNotificationInboxOverHTTP(t *testing.T) {
	f := newAPIFixture(t)
	start, end := futureSlot(9, 10)

	body := fmt.Sprintf(`{"room_id":%q,"start_time":%q,"end_time":%q,"participant_count":4}`,
		f.roomID, start, end)
	rec := f.do(t, http.MethodPost, "/api/v1/reservations", f.userID, body)
	require.Equal(t, http.StatusCreated, rec.Code)

	// The responsable received the creation notification.
	rec = f.do(t, http.MethodGet, "/api/v1/notifications?unread_only=true", f.responsableID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeResult(t, rec)["result"].(map[string]any)
	require.EqualValues(t, 1, result["total"])

	items := result["items"].([]any)
	notifID := items[0].(map[string]any)["notification_id"].(string)

	rec = f.do(t, http.MethodPost, "/api/v1/notifications/"+notifID+"/read", f.responsableID, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = f.do(t, http.MethodGet, "/api/v1/notifications?unread_only=true", f.responsableID, "")
	result = decodeResult(t, rec)["result"].(map[string]any)
	require.EqualValues(t, 0, result["total"])
}
