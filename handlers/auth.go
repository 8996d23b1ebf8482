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

type AuthHandler struct {
	base
}

func NewAuthHandler(st store.Store, ss *sessions.CookieStore) *AuthHandler {
	return &AuthHandler{base{st: st, sessions: ss}}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
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
	if req.DisplayName == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "display_name is required")
		return
	}

	u, err := h.st.Register(r.Context(), req.Email, req.Password, req.DisplayName)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("user registered", "user_id", u.ID, "email", u.Email)

	h.signIn(w, r, u)
	middleware.JSONResponse(w, http.StatusCreated, models.SessionResponse{User: u})
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.Identifier == "" || req.Password == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "identifier and password are required")
		return
	}

	u, err := h.st.Login(r.Context(), req.Identifier, req.Password)
	if err != nil {
		slog.Info("login failed", "identifier", req.Identifier, "remote", middleware.GetClientIP(r), "error", err)
		writeStoreError(w, err)
		return
	}

	slog.Info("login", "user_id", u.ID, "role", u.Role)

	h.signIn(w, r, u)
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{User: u})
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.signOut(w, r)
	w.WriteHeader(http.StatusNoContent)
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{User: u})
}

// UpdateProfile handles PATCH /profile. Role and area are admin-only
// fields; a self-service patch cannot escalate.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	var patch models.UserPatch
	if err := middleware.ParseJSONBody(r, &patch); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if (patch.Role != nil || patch.Area != nil) && u.Role != models.RoleAdmin {
		middleware.ErrorResponse(w, http.StatusForbidden, "role and area can only be changed by an admin")
		return
	}

	updated, err := h.st.UpdateUserProfile(r.Context(), u.ID, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.SessionResponse{User: updated})
}
