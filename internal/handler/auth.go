package handler

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/aiqa-platform/helpdesk-backend/internal/middleware"
	"github.com/aiqa-platform/helpdesk-backend/internal/model"
	"github.com/aiqa-platform/helpdesk-backend/internal/service"
	"github.com/aiqa-platform/helpdesk-backend/pkg/logger"
)

// AuthHandler handles credential exchange and the caller's own profile.
type AuthHandler struct {
	auth   *service.AuthService
	users  *service.UserService
	logger *logger.Logger
}

// NewAuthHandler creates an auth handler.
func NewAuthHandler(auth *service.AuthService, users *service.UserService, log *logger.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, logger: log}
}

// Authenticate handles POST /api/auth
func (h *AuthHandler) Authenticate(w http.ResponseWriter, r *http.Request) {
	var req model.AuthRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.auth.Authenticate(r.Context(), &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// Profile handles GET /api/profile
func (h *AuthHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// UpdateProfile handles PUT /api/profile
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	user, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	var req model.UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	updated, err := h.users.Update(r.Context(), user.ID, &req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Profile updated successfully",
		"user":    updated,
	})
}

// currentUser resolves the bearer-token subject to a local account.
func (h *AuthHandler) currentUser(w http.ResponseWriter, r *http.Request) (*model.User, bool) {
	subject := middleware.GetUserID(r.Context())
	id, err := uuid.Parse(subject)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return nil, false
	}

	user, err := h.users.GetByID(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "could not validate credentials")
		return nil, false
	}
	return user, true
}
