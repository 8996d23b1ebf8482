// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/auth"
	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/store"
)

// UserHandler covers the admin user-management surface.
type UserHandler struct {
	base
}

func NewUserHandler(st store.Store, ss *sessions.CookieStore) *UserHandler {
	return &UserHandler{base{st: st, sessions: ss}}
}

// List handles GET /users (admin only). The store already strips
// secrets from every returned record.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	_, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}

	users, err := h.st.GetUsers(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, users)
}

// Update handles PUT /users/{id} (admin only): a full-record
// upsert-merge. The stored credential survives whatever the form sent.
func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}

	var u models.User
	if err := middleware.ParseJSONBody(r, &u); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	u.ID = r.PathValue("id")
	if u.ID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.st.UpdateUser(r.Context(), u); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("user updated", "user_id", u.ID, "by", admin.ID)
	middleware.JSONResponse(w, http.StatusOK, u.Public())
}

// Delete handles DELETE /users/{id} (admin only). Irreversible and
// deliberately without cascade: the user's applications and scores
// survive, with scorer references rendered as "Unknown".
func (h *UserHandler) Delete(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}
	id := r.PathValue("id")
	if id == admin.ID {
		middleware.ErrorResponse(w, http.StatusBadRequest, "cannot delete your own account")
		return
	}

	if err := h.st.DeleteUser(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("user deleted", "user_id", id, "by", admin.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Create handles POST /users (admin only). On the networked backend
// the store reports that admin account creation is unsupported; the
// 501 carries that explanation to the UI.
func (h *UserHandler) Create(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}

	var req models.AdminCreateUserRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if !strings.Contains(req.Email, "@") {
		middleware.ErrorResponse(w, http.StatusBadRequest, "a valid email is required")
		return
	}
	if err := auth.ValidatePassword(req.Password); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
		return
	}
	role := req.Role
	if role == "" {
		role = models.RoleApplicant
	}

	u, err := h.st.AdminCreateUser(r.Context(), models.User{
		Email:       req.Email,
		Role:        role,
		Area:        req.Area,
		DisplayName: req.DisplayName,
	}, req.Password)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("user created by admin", "user_id", u.ID, "role", u.Role, "by", admin.ID)
	middleware.JSONResponse(w, http.StatusCreated, u)
}
