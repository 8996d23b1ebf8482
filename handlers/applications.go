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

type ApplicationHandler struct {
	base
}

func NewApplicationHandler(st store.Store, ss *sessions.CookieStore) *ApplicationHandler {
	return &ApplicationHandler{base{st: st, sessions: ss}}
}

// stage2Status reports whether a status belongs to the Stage 2 part of
// the workflow, which the committee only sees once stage2Visible is
// switched on.
func stage2Status(status string) bool {
	switch status {
	case models.StatusInvitedStage2, models.StatusSubmittedStage2,
		models.StatusFinalist, models.StatusFunded:
		return true
	}
	return false
}

// List handles GET /applications?area=...
//
// Visibility depends on the caller: admins see everything (optionally
// area-filtered), committee members see their own area plus Cross-Area
// subject to the portal phase switches, applicants see only their own
// submissions.
func (h *ApplicationHandler) List(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	area := r.URL.Query().Get("area")

	switch u.Role {
	case models.RoleAdmin:
		apps, err := h.st.GetApplications(r.Context(), area)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		middleware.JSONResponse(w, http.StatusOK, apps)

	case models.RoleCommittee:
		apps, err := h.st.GetApplications(r.Context(), u.Area)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		settings, err := h.st.GetPortalSettings(r.Context())
		if err != nil {
			writeStoreError(w, err)
			return
		}
		visible := []models.Application{}
		for _, app := range apps {
			if stage2Status(app.Status) {
				if settings.Stage2Visible {
					visible = append(visible, app)
				}
			} else if settings.Stage1Visible {
				visible = append(visible, app)
			}
		}
		middleware.JSONResponse(w, http.StatusOK, visible)

	default:
		apps, err := h.st.GetApplications(r.Context(), "")
		if err != nil {
			writeStoreError(w, err)
			return
		}
		own := []models.Application{}
		for _, app := range apps {
			if app.UserID == u.ID {
				own = append(own, app)
			}
		}
		middleware.JSONResponse(w, http.StatusOK, own)
	}
}

// Get handles GET /applications/{id}
func (h *ApplicationHandler) Get(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}

	app, err := h.st.GetApplication(r.Context(), r.PathValue("id"))
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if u.Role == models.RoleApplicant && app.UserID != u.ID {
		middleware.ErrorResponse(w, http.StatusForbidden, "Not your application")
		return
	}
	middleware.JSONResponse(w, http.StatusOK, app)
}

// Create handles POST /applications (Stage 1 submission)
func (h *ApplicationHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleApplicant, models.RoleAdmin)
	if !ok {
		return
	}

	var req models.CreateApplicationRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.ProjectTitle == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "project_title is required")
		return
	}
	if req.AmountRequested < 0 || req.TotalCost < 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "amounts must be non-negative")
		return
	}
	if req.SubmissionMethod != models.MethodDigital && req.SubmissionMethod != models.MethodUpload {
		middleware.ErrorResponse(w, http.StatusBadRequest, "submission_method must be digital or upload")
		return
	}

	app, err := h.st.CreateApplication(r.Context(), models.Application{
		UserID:           u.ID,
		ApplicantName:    req.ApplicantName,
		OrgName:          req.OrgName,
		ProjectTitle:     req.ProjectTitle,
		Area:             req.Area,
		Summary:          req.Summary,
		AmountRequested:  req.AmountRequested,
		TotalCost:        req.TotalCost,
		SubmissionMethod: req.SubmissionMethod,
		PDFURL:           req.PDFURL,
		FormData:         req.FormData,
	})
	if err != nil {
		writeStoreError(w, err)
		return
	}

	slog.Info("application created", "app_id", app.ID, "ref", app.Ref, "area", app.Area, "user_id", u.ID)
	middleware.JSONResponse(w, http.StatusCreated, app)
}

// Update handles PATCH /applications/{id}
//
// Admins may patch anything (?force=true bypasses the workflow graph
// for repair edits); committee members may only move status; an
// applicant may edit their own application and complete Stage 2.
func (h *ApplicationHandler) Update(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireUser(w, r)
	if !ok {
		return
	}
	id := r.PathValue("id")

	var patch models.ApplicationPatch
	if err := middleware.ParseJSONBody(r, &patch); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	switch u.Role {
	case models.RoleAdmin:
		patch.ForceStatus = r.URL.Query().Get("force") == "true"

	case models.RoleCommittee:
		if patch.Status == nil {
			middleware.ErrorResponse(w, http.StatusForbidden, "committee members may only change status")
			return
		}
		status := *patch.Status
		patch = models.ApplicationPatch{Status: &status}

	default:
		app, err := h.st.GetApplication(r.Context(), id)
		if err != nil {
			writeStoreError(w, err)
			return
		}
		if app.UserID != u.ID {
			middleware.ErrorResponse(w, http.StatusForbidden, "Not your application")
			return
		}
		// Applicants can only drive the one applicant-side transition:
		// completing the Stage 2 form.
		if patch.Status != nil && *patch.Status != models.StatusSubmittedStage2 {
			middleware.ErrorResponse(w, http.StatusForbidden, "applicants may only submit Stage 2")
			return
		}
	}

	app, err := h.st.UpdateApplication(r.Context(), id, patch)
	if err != nil {
		writeStoreError(w, err)
		return
	}

	if patch.Status != nil {
		slog.Info("application status changed", "app_id", app.ID, "ref", app.Ref, "status", app.Status, "by", u.ID)
	}
	middleware.JSONResponse(w, http.StatusOK, app)
}

// Delete handles DELETE /applications/{id} (admin only). The cascade
// to the application's scores happens inside the store.
func (h *ApplicationHandler) Delete(w http.ResponseWriter, r *http.Request) {
	u, ok := h.requireRole(w, r, models.RoleAdmin)
	if !ok {
		return
	}
	id := r.PathValue("id")

	if err := h.st.DeleteApplication(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}
	slog.Info("application deleted", "app_id", id, "by", u.ID)
	w.WriteHeader(http.StatusNoContent)
}
