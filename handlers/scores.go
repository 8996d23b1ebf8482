// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/rubric"
	"github.com/danielhkuo/pb-portal/store"
)

type ScoreHandler struct {
	base
}

func NewScoreHandler(st store.Store, ss *sessions.CookieStore) *ScoreHandler {
	return &ScoreHandler{base{st: st, sessions: ss}}
}

// Save handles PUT /scores. The scorer identity comes from the
// session, never the body, and the store recomputes the total.
func (h *ScoreHandler) Save(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleCommittee, models.RoleAdmin)
	if !ok {
		return
	}

	var req models.SaveScoreRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.AppID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "app_id is required")
		return
	}
	for id, rating := range req.Ratings {
		if _, ok := rubric.Lookup(id); !ok {
			middleware.ErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("unknown criterion %q", id))
			return
		}
		if !rubric.ValidRating(rating) {
			middleware.ErrorResponse(w, http.StatusBadRequest,
				fmt.Sprintf("rating for %q must be between 0 and %d", id, rubric.MaxRating))
			return
		}
	}

	// Scoring is only open once Stage 2 is visible.
	if u.Role == models.RoleCommittee {
		settings, err := h.st.GetPortalSettings(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if !settings.Stage2Visible {
			middleware.ErrorResponse(w, http.StatusForbidden, "scoring is not open yet")
			return
		}
	}

	if _, err := h.st.GetApplication(r.Context(), req.AppID); err != nil {
		writeStoreError(w, err)
		return
	}

	scorerName := u.DisplayName
	if scorerName == "" {
		scorerName = u.Email
	}

	saved, err := h.st.SaveScore(r.Context(), models.Score{
		AppID:      req.AppID,
		ScorerID:   u.ID,
		ScorerName: scorerName,
		Ratings:    req.Ratings,
		Notes:      req.Notes,
		IsFinal:    req.IsFinal,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("score saved", "app_id", saved.AppID, "scorer_id", saved.ScorerID, "total", saved.Total, "final", saved.IsFinal)
	middleware.JSONResponse(w, http.StatusOK, saved)
}

// List handles GET /scores. All scores are returned; callers filter by
// scorer or application client-side.
func (h *ScoreHandler) List(w http.ResponseWriter, r *http.Request) {
	_, ok := h.requireRole(w, r, models.RoleCommittee, models.RoleAdmin)
	if !ok {
		return
	}

	scores, err := h.st.GetScores(r.Context())
	if err != nil {
		writeStoreError(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, scores)
}

// Delete handles DELETE /scores/{appID}/{scorerID} (admin only).
func (h *ScoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}
	appID := r.PathValue("appID")
	scorerID := r.PathValue("scorerID")

	if err := h.st.DeleteScore(r.Context(), appID, scorerID); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("score deleted", "app_id", appID, "scorer_id", scorerID, "by", u.ID)
	w.WriteHeader(http.StatusNoContent)
}

// Reset handles POST /scores/reset (admin only). With an app_id it
// removes that one score; without, every score the scorer has written.
func (h *ScoreHandler) Reset(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}

	var req models.ResetScoresRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}
	if req.ScorerID == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "scorer_id is required")
		return
	}

	if err := h.st.ResetUserScores(r.Context(), req.ScorerID, req.AppID); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("scores reset", "scorer_id", req.ScorerID, "app_id", req.AppID, "by", u.ID)
	w.WriteHeader(http.StatusNoContent)
}
