package handler

import (
	"citizenone/models"
	"citizenone/repository"
	"citizenone/service"
	"net/http"
	"strconv"
)

// AdminHandler serves account administration. Routes are mounted behind RequireAdminAuth;
// the service checks the role again.
type AdminHandler struct {
	users *service.UserService
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(users *service.UserService) *AdminHandler {
	return &AdminHandler{users: users}
}

// userListResponse is one page of accounts
type userListResponse struct {
	Users []models.User `json:"users"`
	Total int64         `json:"total"`
	Page  int           `json:"page"`
	Limit int           `json:"limit"`
}

// ListUsers handles GET /api/v1/admin/users?role=&department_id=&status=
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	page, limit := pageParams(r)
	f := repository.UserFilter{Page: page, Limit: limit}

	q := r.URL.Query()
	if role := q.Get("role"); role != "" {
		if !models.Role(role).Valid() {
			respondWithError(w, http.StatusBadRequest, "Validation error", "unknown role")
			return
		}
		rl := models.Role(role)
		f.Role = &rl
	}
	if status := q.Get("status"); status != "" {
		if !models.UserStatus(status).Valid() {
			respondWithError(w, http.StatusBadRequest, "Validation error", "unknown status")
			return
		}
		st := models.UserStatus(status)
		f.Status = &st
	}
	if dept := q.Get("department_id"); dept != "" {
		id, err := strconv.ParseInt(dept, 10, 64)
		if err != nil || id <= 0 {
			respondWithError(w, http.StatusBadRequest, "Validation error", "department_id must be a positive integer")
			return
		}
		f.DepartmentID = &id
	}

	users, total, err := h.users.ListUsers(r.Context(), p, f)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	if users == nil {
		users = []models.User{}
	}
	respondWithJSON(w, http.StatusOK, userListResponse{Users: users, Total: total, Page: f.Page, Limit: f.Limit})
}

// CreateUser handles POST /api/v1/admin/users
func (h *AdminHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var req models.CreateUserRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	user, err := h.users.CreateUser(r.Context(), p, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// GetUser handles GET /api/v1/admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	user, err := h.users.GetUser(r.Context(), p, id)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdateUser handles PATCH /api/v1/admin/users/{id}
func (h *AdminHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	var req models.UpdateUserRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	user, err := h.users.UpdateUser(r.Context(), p, id, &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
