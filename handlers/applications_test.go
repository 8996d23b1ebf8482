// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/store"
	"github.com/danielhkuo/pb-portal/testutil"
)

// seedApp inserts an application directly through the store.
func seedApp(t *testing.T, st store.Store, userID, title, area string) models.Application {
	t.Helper()
	app, err := st.CreateApplication(context.Background(), models.Application{
		UserID:           userID,
		ProjectTitle:     title,
		Area:             area,
		AmountRequested:  5000,
		TotalCost:        6000,
		SubmissionMethod: models.MethodDigital,
	})
	if err != nil {
		t.Fatalf("CreateApplication: %v", err)
	}
	return app
}

func TestCreateApplication(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	u := testutil.CreateTestUser(t, st, "app@example.org", "correct-horse", models.RoleApplicant, "")
	cookie := testutil.SignIn(t, ss, SessionName, u)

	w := httptest.NewRecorder()
	h.Create(w, testutil.MakeRequest(http.MethodPost, "/applications", models.CreateApplicationRequest{
		ProjectTitle:     "Community Garden",
		Area:             models.AreaBlaenavon,
		AmountRequested:  4500,
		TotalCost:        5000,
		SubmissionMethod: models.MethodDigital,
	}, cookie))
	testutil.AssertStatus(t, w, http.StatusCreated)

	var app models.Application
	testutil.AssertJSON(t, w, &app)
	if !regexp.MustCompile(`^PB-BLA-\d{3}$`).MatchString(app.Ref) {
		t.Errorf("Unexpected ref %q", app.Ref)
	}
	if app.Status != models.StatusSubmittedStage1 {
		t.Errorf("Status = %q, want %q", app.Status, models.StatusSubmittedStage1)
	}
	if app.UserID != u.ID {
		t.Errorf("UserID = %q, want session user %q", app.UserID, u.ID)
	}
}

func TestCreateApplicationValidation(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	u := testutil.CreateTestUser(t, st, "app2@example.org", "correct-horse", models.RoleApplicant, "")
	cookie := testutil.SignIn(t, ss, SessionName, u)

	tests := []struct {
		name string
		req  models.CreateApplicationRequest
	}{
		{"missing title", models.CreateApplicationRequest{
			Area: models.AreaBlaenavon, SubmissionMethod: models.MethodDigital}},
		{"negative amount", models.CreateApplicationRequest{
			ProjectTitle: "X", Area: models.AreaBlaenavon,
			AmountRequested: -1, SubmissionMethod: models.MethodDigital}},
		{"bad method", models.CreateApplicationRequest{
			ProjectTitle: "X", Area: models.AreaBlaenavon, SubmissionMethod: "fax"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h.Create(w, testutil.MakeRequest(http.MethodPost, "/applications", tt.req, cookie))
			testutil.AssertStatus(t, w, http.StatusBadRequest)
		})
	}
}

func TestCreateApplicationCommitteeForbidden(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	u := testutil.CreateTestUser(t, st, "cmte@committee.local", "correct-horse",
		models.RoleCommittee, models.AreaBlaenavon)
	cookie := testutil.SignIn(t, ss, SessionName, u)

	w := httptest.NewRecorder()
	h.Create(w, testutil.MakeRequest(http.MethodPost, "/applications", models.CreateApplicationRequest{
		ProjectTitle: "X", Area: models.AreaBlaenavon, SubmissionMethod: models.MethodDigital,
	}, cookie))
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestApplicantSeesOnlyOwnApplications(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	mine := testutil.CreateTestUser(t, st, "mine@example.org", "correct-horse", models.RoleApplicant, "")
	other := testutil.CreateTestUser(t, st, "other@example.org", "correct-horse", models.RoleApplicant, "")
	seedApp(t, st, mine.ID, "Mine", models.AreaBlaenavon)
	seedApp(t, st, other.ID, "Theirs", models.AreaBlaenavon)
	cookie := testutil.SignIn(t, ss, SessionName, mine)

	w := httptest.NewRecorder()
	h.List(w, testutil.MakeRequest(http.MethodGet, "/applications", nil, cookie))
	testutil.AssertStatus(t, w, http.StatusOK)

	var apps []models.Application
	testutil.AssertJSON(t, w, &apps)
	if len(apps) != 1 || apps[0].ProjectTitle != "Mine" {
		t.Errorf("Expected only own application, got %+v", apps)
	}
}

func TestCommitteeAreaVisibility(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	applicant := testutil.CreateTestUser(t, st, "seed@example.org", "correct-horse", models.RoleApplicant, "")
	seedApp(t, st, applicant.ID, "Local", models.AreaBlaenavon)
	seedApp(t, st, applicant.ID, "Elsewhere", models.AreaThornhill)
	seedApp(t, st, applicant.ID, "Everywhere", models.AreaCross)

	cmte := testutil.CreateTestUser(t, st, "bla@committee.local", "correct-horse",
		models.RoleCommittee, models.AreaBlaenavon)
	cookie := testutil.SignIn(t, ss, SessionName, cmte)

	w := httptest.NewRecorder()
	h.List(w, testutil.MakeRequest(http.MethodGet, "/applications", nil, cookie))
	testutil.AssertStatus(t, w, http.StatusOK)

	var apps []models.Application
	testutil.AssertJSON(t, w, &apps)
	titles := map[string]bool{}
	for _, a := range apps {
		titles[a.ProjectTitle] = true
	}
	if !titles["Local"] || !titles["Everywhere"] || titles["Elsewhere"] {
		t.Errorf("Committee visibility wrong: %v", titles)
	}
}

func TestCommitteeListGatedByStage1Visibility(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	applicant := testutil.CreateTestUser(t, st, "seed2@example.org", "correct-horse", models.RoleApplicant, "")
	seedApp(t, st, applicant.ID, "Hidden", models.AreaBlaenavon)

	if err := st.UpdatePortalSettings(context.Background(), models.PortalSettings{}); err != nil {
		t.Fatalf("UpdatePortalSettings: %v", err)
	}

	cmte := testutil.CreateTestUser(t, st, "bla2@committee.local", "correct-horse",
		models.RoleCommittee, models.AreaBlaenavon)
	cookie := testutil.SignIn(t, ss, SessionName, cmte)

	w := httptest.NewRecorder()
	h.List(w, testutil.MakeRequest(http.MethodGet, "/applications", nil, cookie))
	testutil.AssertStatus(t, w, http.StatusOK)

	var apps []models.Application
	testutil.AssertJSON(t, w, &apps)
	if len(apps) != 0 {
		t.Errorf("Expected no visible applications, got %d", len(apps))
	}
}

func TestCommitteeStatusOnlyPatch(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	applicant := testutil.CreateTestUser(t, st, "seed3@example.org", "correct-horse", models.RoleApplicant, "")
	app := seedApp(t, st, applicant.ID, "Original Title", models.AreaBlaenavon)

	cmte := testutil.CreateTestUser(t, st, "bla3@committee.local", "correct-horse",
		models.RoleCommittee, models.AreaBlaenavon)
	cookie := testutil.SignIn(t, ss, SessionName, cmte)

	status := models.StatusInvitedStage2
	title := "Renamed"
	req := testutil.MakeRequest(http.MethodPatch, "/applications/"+app.ID,
		models.ApplicationPatch{Status: &status, ProjectTitle: &title}, cookie)
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	h.Update(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	got, err := st.GetApplication(context.Background(), app.ID)
	if err != nil {
		t.Fatalf("GetApplication: %v", err)
	}
	if got.Status != models.StatusInvitedStage2 {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusInvitedStage2)
	}
	if got.ProjectTitle != "Original Title" {
		t.Errorf("Committee patch changed the title to %q", got.ProjectTitle)
	}
}

func TestApplicantCannotEditOthersApplication(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	owner := testutil.CreateTestUser(t, st, "owner@example.org", "correct-horse", models.RoleApplicant, "")
	app := seedApp(t, st, owner.ID, "Owned", models.AreaBlaenavon)
	intruder := testutil.CreateTestUser(t, st, "intruder@example.org", "correct-horse", models.RoleApplicant, "")
	cookie := testutil.SignIn(t, ss, SessionName, intruder)

	summary := "hijacked"
	req := testutil.MakeRequest(http.MethodPatch, "/applications/"+app.ID,
		models.ApplicationPatch{Summary: &summary}, cookie)
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	h.Update(w, req)
	testutil.AssertStatus(t, w, http.StatusForbidden)
}

func TestAdminForceStatus(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	applicant := testutil.CreateTestUser(t, st, "seed4@example.org", "correct-horse", models.RoleApplicant, "")
	app := seedApp(t, st, applicant.ID, "Jumper", models.AreaBlaenavon)
	admin := testutil.CreateTestUser(t, st, "admin@committee.local", "correct-horse", models.RoleAdmin, "")
	cookie := testutil.SignIn(t, ss, SessionName, admin)

	// Submitted-Stage1 -> Funded skips the whole graph.
	funded := models.StatusFunded

	req := testutil.MakeRequest(http.MethodPatch, "/applications/"+app.ID,
		models.ApplicationPatch{Status: &funded}, cookie)
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	h.Update(w, req)
	testutil.AssertStatus(t, w, http.StatusConflict)

	req = testutil.MakeRequest(http.MethodPatch, "/applications/"+app.ID+"?force=true",
		models.ApplicationPatch{Status: &funded}, cookie)
	req.SetPathValue("id", app.ID)
	w = httptest.NewRecorder()
	h.Update(w, req)
	testutil.AssertStatus(t, w, http.StatusOK)

	var got models.Application
	testutil.AssertJSON(t, w, &got)
	if got.Status != models.StatusFunded {
		t.Errorf("Status = %q, want %q", got.Status, models.StatusFunded)
	}
}

func TestDeleteApplicationAdminOnly(t *testing.T) {
	st, ss := newTestEnv(t)
	h := NewApplicationHandler(st, ss)
	applicant := testutil.CreateTestUser(t, st, "seed5@example.org", "correct-horse", models.RoleApplicant, "")
	app := seedApp(t, st, applicant.ID, "Doomed", models.AreaBlaenavon)

	ownerCookie := testutil.SignIn(t, ss, SessionName, applicant)
	req := testutil.MakeRequest(http.MethodDelete, "/applications/"+app.ID, nil, ownerCookie)
	req.SetPathValue("id", app.ID)
	w := httptest.NewRecorder()
	h.Delete(w, req)
	testutil.AssertStatus(t, w, http.StatusForbidden)

	admin := testutil.CreateTestUser(t, st, "admin2@committee.local", "correct-horse", models.RoleAdmin, "")
	adminCookie := testutil.SignIn(t, ss, SessionName, admin)
	req = testutil.MakeRequest(http.MethodDelete, "/applications/"+app.ID, nil, adminCookie)
	req.SetPathValue("id", app.ID)
	w = httptest.NewRecorder()
	h.Delete(w, req)
	testutil.AssertStatus(t, w, http.StatusNoContent)

	if _, err := st.GetApplication(context.Background(), app.ID); err == nil {
		t.Error("Application still present after delete")
	}
}
