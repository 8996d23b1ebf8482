// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/store"
)

type SettingsHandler struct {
	base
}

func NewSettingsHandler(st store.Store, ss *sessions.CookieStore) *SettingsHandler {
	return &SettingsHandler{base{st: st, sessions: ss}}
}

// Get handles GET /settings. Public: the login screen needs to know
// which phases are live before anyone signs in, and the store already
// degrades to defaults on a read failure.
func (h *SettingsHandler) Get(w http.ResponseWriter, r *http.Request) {
	settings, err := h.st.GetPortalSettings(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, settings)
}

// Update handles PUT /settings (admin only): an unconditional
// overwrite, no merge.
func (h *SettingsHandler) Update(w http.ResponseWriter, r *http.Request) {
	admin, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}

	var settings models.PortalSettings
	if err := middleware.ParseJSONBody(r, &settings); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if err := h.st.UpdatePortalSettings(r.Context(), settings); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("portal settings updated",
		"stage1_visible", settings.Stage1Visible,
		"stage2_visible", settings.Stage2Visible,
		"voting_open", settings.VotingOpen,
		"by", admin.ID)
	middleware.JSONResponse(w, http.StatusOK, settings)
}
