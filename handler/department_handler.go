package handler

import (
	"citizenone/models"
	"citizenone/service"
	"net/http"
)

// DepartmentHandler serves department management and staff lookups
type DepartmentHandler struct {
	departments *service.DepartmentService
}

// NewDepartmentHandler creates a new department handler
func NewDepartmentHandler(departments *service.DepartmentService) *DepartmentHandler {
	return &DepartmentHandler{departments: departments}
}

// ListDepartments handles GET /api/v1/departments
func (h *DepartmentHandler) ListDepartments(w http.ResponseWriter, r *http.Request) {
	depts, err := h.departments.ListDepartments(r.Context())
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if depts == nil {
		depts = []models.Department{}
	}
	respondWithJSON(w, http.StatusOK, depts)
}

// GetDepartment handles GET /api/v1/departments/{id}
func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	dept, err := h.departments.GetDepartment(r.Context(), id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dept)
}

// CreateDepartment handles POST /api/v1/departments
func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.DepartmentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	dept, err := h.departments.CreateDepartment(r.Context(), p, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, dept)
}

// UpdateDepartment handles PUT /api/v1/departments/{id}
func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	var req models.DepartmentRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	dept, err := h.departments.UpdateDepartment(r.Context(), p, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, dept)
}

// ListStaff handles GET /api/v1/departments/{id}/staff
func (h *DepartmentHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	staff, err := h.departments.ListStaff(r.Context(), p, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if staff == nil {
		staff = []models.User{}
	}
	respondWithJSON(w, http.StatusOK, staff)
}
