package httpapi

import (
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// UserHandler serves account management.
type UserHandler struct {
	userService service.UserService
	logger      *zap.Logger
}

func NewUserHandler(userService service.UserService, logger *zap.Logger) *UserHandler {
	return &UserHandler{userService: userService, logger: logger}
}

// ServeHTTP dispatches under /api/v1/users.
func (h *UserHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/users" && r.Method == http.MethodGet:
		h.ListUsers(w, r)
	case path == "/api/v1/users" && r.Method == http.MethodPost:
		h.CreateUser(w, r)
	case strings.HasPrefix(path, "/api/v1/users/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/api/v1/users/")
		if id != "" && !strings.Contains(id, "/") {
			h.GetUser(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/users/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(path, "/api/v1/users/")
		if id != "" && !strings.Contains(id, "/") {
			h.UpdateUser(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/users/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/api/v1/users/")
		if id != "" && !strings.Contains(id, "/") {
			h.DeactivateUser(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type userPayload struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Role      string `json:"role"`
}

// CreateUser creates an account (admin only).
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var payload userPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	user, err := h.userService.CreateUser(r.Context(), service.CreateUserRequest{
		CurrentUserID: currentUserID(r),
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		Email:         payload.Email,
		Password:      payload.Password,
		Role:          domain.Role(payload.Role),
	})
	if err != nil {
		h.logger.Warn("CreateUser failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(userView(user)))
}

// GetUser returns one account.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request, id string) {
	user, err := h.userService.GetUser(r.Context(), service.GetUserRequest{
		CurrentUserID: currentUserID(r),
		UserID:        id,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(userView(user)))
}

// ListUsers lists accounts (admin only).
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.userService.ListUsers(r.Context(), service.ListUsersRequest{
		CurrentUserID: currentUserID(r),
		Role:          q.Get("role"),
		ActiveOnly:    parseBool(q.Get("active_only")),
		Search:        strings.TrimSpace(q.Get("search")),
		Page:          parseInt(q.Get("page"), 1),
		Size:          parseInt(q.Get("size"), 20),
	})
	if err != nil {
		h.logger.Error("ListUsers failed", zap.Error(err))
		writeError(w, err)
		return
	}

	items := make([]any, 0, len(resp.Items))
	for _, u := range resp.Items {
		items = append(items, userView(u))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

// UpdateUser rewrites profile fields. Role changes are admin-only.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request, id string) {
	var payload userPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	user, err := h.userService.UpdateUser(r.Context(), service.UpdateUserRequest{
		CurrentUserID: currentUserID(r),
		UserID:        id,
		FirstName:     payload.FirstName,
		LastName:      payload.LastName,
		Email:         payload.Email,
		Password:      payload.Password,
		Role:          domain.Role(payload.Role),
	})
	if err != nil {
		h.logger.Warn("UpdateUser failed", zap.String("user_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(userView(user)))
}

// DeactivateUser soft-deletes an account (admin only).
func (h *UserHandler) DeactivateUser(w http.ResponseWriter, r *http.Request, id string) {
	err := h.userService.DeactivateUser(r.Context(), service.DeactivateUserRequest{
		CurrentUserID: currentUserID(r),
		UserID:        id,
	})
	if err != nil {
		h.logger.Warn("DeactivateUser failed", zap.String("user_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func userView(user *domain.User) map[string]any {
	item := map[string]any{
		"user_id":    user.UserID,
		"first_name": user.FirstName,
		"last_name":  user.LastName,
		"email":      user.Email,
		"role":       user.Role,
		"active":     user.Active,
	}
	if !user.CreatedAt.IsZero() {
		item["created_at"] = user.CreatedAt.Format(time.RFC3339)
	}
	return item
}
