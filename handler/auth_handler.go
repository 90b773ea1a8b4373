package handler

import (
	"citizenone/models"
	"citizenone/service"
	"net/http"
)

// AuthHandler handles registration, login and the caller's own account
type AuthHandler struct {
	users *service.UserService
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(users *service.UserService) *AuthHandler {
	return &AuthHandler{users: users}
}

// Register handles POST /api/v1/auth/register (citizens only)
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	user, err := h.users.Register(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusCreated, user)
}

// Login handles POST /api/v1/auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeAndValidate(w, r, &req); err != nil {
		respondWithServiceError(w, err)
		return
	}
	resp, err := h.users.Login(r.Context(), &req)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, resp)
}

// Me handles GET /api/v1/auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	user, err := h.users.GetUser(r.Context(), p, p.UserID)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}

// UpdatePreferences handles PUT /api/v1/auth/me/preferences
func (h *AuthHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	p, ok := principal(w, r)
	if !ok {
		return
	}
	var prefs models.NotificationPreferences
	if err := decodeAndValidate(w, r, &prefs); err != nil {
		respondWithServiceError(w, err)
		return
	}
	user, err := h.users.UpdatePreferences(r.Context(), p, prefs)
	if err != nil {
		respondWithServiceError(w, err)
		return
	}
	respondWithJSON(w, http.StatusOK, user)
}
