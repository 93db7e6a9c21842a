package httpapi

import (
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/marxist91/reservation-backend-sub001/internal/domain"
	"github.com/marxist91/reservation-backend-sub001/internal/service"
)

// DepartmentHandler serves the department directory.
type DepartmentHandler struct {
	departmentService service.DepartmentService
	logger            *zap.Logger
}

func NewDepartmentHandler(departmentService service.DepartmentService, logger *zap.Logger) *DepartmentHandler {
	return &DepartmentHandler{departmentService: departmentService, logger: logger}
}

// ServeHTTP dispatches under /api/v1/departments.
func (h *DepartmentHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/departments" && r.Method == http.MethodGet:
		h.ListDepartments(w, r)
	case path == "/api/v1/departments" && r.Method == http.MethodPost:
		h.CreateDepartment(w, r)
	case strings.HasPrefix(path, "/api/v1/departments/") && r.Method == http.MethodGet:
		id := strings.TrimPrefix(path, "/api/v1/departments/")
		if id != "" && !strings.Contains(id, "/") {
			h.GetDepartment(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/departments/") && r.Method == http.MethodPut:
		id := strings.TrimPrefix(path, "/api/v1/departments/")
		if id != "" && !strings.Contains(id, "/") {
			h.UpdateDepartment(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	case strings.HasPrefix(path, "/api/v1/departments/") && r.Method == http.MethodDelete:
		id := strings.TrimPrefix(path, "/api/v1/departments/")
		if id != "" && !strings.Contains(id, "/") {
			h.DeleteDepartment(w, r, id)
		} else {
			w.WriteHeader(http.StatusNotFound)
		}
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type departmentPayload struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	ResponsibleUserID string `json:"responsible_user_id"`
}

// CreateDepartment creates a department (admin only).
func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var payload departmentPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	dept, err := h.departmentService.CreateDepartment(r.Context(), service.CreateDepartmentRequest{
		CurrentUserID:     currentUserID(r),
		Name:              payload.Name,
		Description:       payload.Description,
		ResponsibleUserID: payload.ResponsibleUserID,
	})
	if err != nil {
		h.logger.Warn("CreateDepartment failed", zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, Ok(departmentView(dept)))
}

// GetDepartment returns one department.
func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request, id string) {
	dept, err := h.departmentService.GetDepartment(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(departmentView(dept)))
}

// ListDepartments lists departments.
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	resp, err := h.departmentService.ListDepartments(r.Context(), service.ListDepartmentsRequest{
		Search: strings.TrimSpace(q.Get("search")),
		Page:   parseInt(q.Get("page"), 1),
		Size:   parseInt(q.Get("size"), 20),
	})
	if err != nil {
		h.logger.Error("ListDepartments failed", zap.Error(err))
		writeError(w, err)
		return
	}

	items := make([]any, 0, len(resp.Items))
	for _, dept := range resp.Items {
		items = append(items, departmentView(dept))
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{
		"items": items,
		"total": resp.Total,
	}))
}

// UpdateDepartment rewrites a department (admin only).
func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request, id string) {
	var payload departmentPayload
	if err := readBodyJSON(r, 1<<20, &payload); err != nil {
		writeJSON(w, http.StatusBadRequest, Fail("invalid body"))
		return
	}

	dept, err := h.departmentService.UpdateDepartment(r.Context(), service.UpdateDepartmentRequest{
		CurrentUserID:     currentUserID(r),
		DepartmentID:      id,
		Name:              payload.Name,
		Description:       payload.Description,
		ResponsibleUserID: payload.ResponsibleUserID,
	})
	if err != nil {
		h.logger.Warn("UpdateDepartment failed", zap.String("department_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(departmentView(dept)))
}

// DeleteDepartment removes a department (admin only).
func (h *DepartmentHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request, id string) {
	err := h.departmentService.DeleteDepartment(r.Context(), service.DeleteDepartmentRequest{
		CurrentUserID: currentUserID(r),
		DepartmentID:  id,
	})
	if err != nil {
		h.logger.Warn("DeleteDepartment failed", zap.String("department_id", id), zap.Error(err))
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, Ok(map[string]any{"success": true}))
}

func departmentView(dept *domain.Department) map[string]any {
	item := map[string]any{
		"department_id": dept.DepartmentID,
		"name":          dept.Name,
	}
	if dept.Slug.Valid {
		item["slug"] = dept.Slug.String
	}
	if dept.Description.Valid {
		item["description"] = dept.Description.String
	}
	if dept.ResponsibleUserID.Valid {
		item["responsible_user_id"] = dept.ResponsibleUserID.String
	}
	return item
}
