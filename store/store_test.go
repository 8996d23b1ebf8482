// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/danielhkuo/pb-portal/models"
)

// openTestStore returns an empty (unseeded) local store backed by a
// temp file. The SQLite backend exercises the full contract without a
// network; the Postgres backend shares the same logic over lib/pq.
func openTestStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := OpenSQLite(t.TempDir()+"/test.db", false)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func mustRegister(t *testing.T, s *SQLiteStore, email, password, name string) models.User {
	t.Helper()
	u, err := s.Register(context.Background(), email, password, name)
	if err != nil {
		t.Fatalf("Register(%s) failed: %v", email, err)
	}
	return u
}

func mustCreateApp(t *testing.T, s *SQLiteStore, area, title string) models.Application {
	t.Helper()
	app, err := s.CreateApplication(context.Background(), models.Application{
		UserID:           "u-test",
		ApplicantName:    "Test Applicant",
		ProjectTitle:     title,
		Area:             area,
		AmountRequested:  500,
		TotalCost:        750,
		SubmissionMethod: models.MethodDigital,
	})
	if err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}
	return app
}

func TestRegisterLoginRoundTrip(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	reg := mustRegister(t, s, "Alice@Example.Org", "alice-pass-123", "Alice")
	if reg.Secret != "" {
		t.Errorf("registered user leaked secret %q", reg.Secret)
	}
	if reg.Email != "alice@example.org" {
		t.Errorf("email not normalized: %q", reg.Email)
	}
	if reg.Username != "alice" {
		t.Errorf("derived username = %q, want alice", reg.Username)
	}
	if reg.Role != models.RoleApplicant {
		t.Errorf("default role = %q, want applicant", reg.Role)
	}

	u, err := s.Login(ctx, "alice@example.org", "alice-pass-123")
	if err != nil {
		t.Fatalf("Login failed: %v", err)
	}
	if u.ID != reg.ID {
		t.Errorf("login id %q != registered id %q", u.ID, reg.ID)
	}
	if u.Secret != "" {
		t.Errorf("login leaked secret %q", u.Secret)
	}
}

func TestLoginErrors(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustRegister(t, s, "bob@example.org", "bob-password", "Bob")

	tests := []struct {
		name       string
		identifier string
		password   string
		wantErr    error
	}{
		{"wrong password", "bob@example.org", "nope", ErrInvalidCredentials},
		{"unknown email", "nobody@example.org", "whatever", ErrInvalidCredentials},
		{"case-insensitive identifier", "BOB@EXAMPLE.ORG", "bob-password", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Login(ctx, tt.identifier, tt.password)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Login() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestLoginBareUsername(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// Committee accounts register under the synthetic domain and then
	// sign in with the bare username.
	mustRegister(t, s, "blaenavon1@committee.local", "committee-pass", "Blaenavon 1")

	u, err := s.Login(ctx, "Blaenavon1", "committee-pass")
	if err != nil {
		t.Fatalf("bare-username login failed: %v", err)
	}
	if u.Email != "blaenavon1@committee.local" {
		t.Errorf("resolved email = %q", u.Email)
	}
}

func TestLoginProfileMissing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := mustRegister(t, s, "ghost@example.org", "ghost-pass-1", "Ghost")

	// Deleting the profile leaves the credential; login must surface
	// the inconsistency distinctly, not as bad credentials.
	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser failed: %v", err)
	}
	_, err := s.Login(ctx, "ghost@example.org", "ghost-pass-1")
	if !errors.Is(err, ErrProfileMissing) {
		t.Errorf("Login() error = %v, want ErrProfileMissing", err)
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustRegister(t, s, "dup@example.org", "password-1", "First")
	_, err := s.Register(ctx, "DUP@example.org", "password-2", "Second")
	if !errors.Is(err, ErrEmailExists) {
		t.Errorf("duplicate register error = %v, want ErrEmailExists", err)
	}
}

func TestGetUsersNeverLeaksSecrets(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustRegister(t, s, "one@example.org", "password-1", "One")
	mustRegister(t, s, "two@example.org", "password-2", "Two")

	users, err := s.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	for _, u := range users {
		if u.Secret != "" {
			t.Errorf("user %s has non-empty secret", u.Email)
		}
	}
}

func TestUpdateUserProfile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := mustRegister(t, s, "profile@example.org", "password-1", "Before")

	name := "After"
	bio := "Community volunteer"
	updated, err := s.UpdateUserProfile(ctx, u.ID, models.UserPatch{DisplayName: &name, Bio: &bio})
	if err != nil {
		t.Fatalf("UpdateUserProfile failed: %v", err)
	}
	if updated.DisplayName != "After" || updated.Bio != "Community volunteer" {
		t.Errorf("patch not applied: %+v", updated)
	}
	if updated.Email != "profile@example.org" {
		t.Errorf("unset field changed: %q", updated.Email)
	}

	_, err = s.UpdateUserProfile(ctx, "no-such-id", models.UserPatch{DisplayName: &name})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
}

func TestUpdateUserPreservesCredential(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u := mustRegister(t, s, "edit@example.org", "original-pass", "Editable")

	// A full-record update with a caller-supplied secret must not
	// disturb the stored credential.
	u.Role = models.RoleCommittee
	u.Area = models.AreaBlaenavon
	u.Secret = "attacker-controlled"
	if err := s.UpdateUser(ctx, u); err != nil {
		t.Fatalf("UpdateUser failed: %v", err)
	}

	got, err := s.Login(ctx, "edit@example.org", "original-pass")
	if err != nil {
		t.Fatalf("login after UpdateUser failed: %v", err)
	}
	if got.Role != models.RoleCommittee || got.Area != models.AreaBlaenavon {
		t.Errorf("update not applied: %+v", got)
	}
	if got.Secret != "" {
		t.Errorf("secret leaked: %q", got.Secret)
	}
}

func TestAdminCreateUser(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	u, err := s.AdminCreateUser(ctx, models.User{
		Email:       "chair@committee.local",
		Role:        models.RoleCommittee,
		Area:        models.AreaTrevethin,
		DisplayName: "Chair",
	}, "chair-password")
	if err != nil {
		t.Fatalf("AdminCreateUser failed: %v", err)
	}
	if u.Role != models.RoleCommittee || u.Area != models.AreaTrevethin {
		t.Errorf("created user = %+v", u)
	}

	if _, err := s.Login(ctx, "chair", "chair-password"); err != nil {
		t.Errorf("created account cannot log in: %v", err)
	}
}

var refPattern = regexp.MustCompile(`^PB-[A-Z]{3}-\d{3}$`)

func TestCreateApplication(t *testing.T) {
	s := openTestStore(t)

	before := time.Now().Add(-time.Second)
	app := mustCreateApp(t, s, models.AreaBlaenavon, "Community Garden")

	if !refPattern.MatchString(app.Ref) {
		t.Errorf("ref %q does not match PB-XXX-NNN", app.Ref)
	}
	if app.Ref[:6] != "PB-BLA" {
		t.Errorf("ref %q missing area code BLA", app.Ref)
	}
	if app.Status != models.StatusSubmittedStage1 {
		t.Errorf("initial status = %q, want Submitted-Stage1", app.Status)
	}
	if app.CreatedAt.Before(before) {
		t.Errorf("createdAt %v predates the call", app.CreatedAt)
	}
	if app.ID == "" {
		t.Error("id not assigned")
	}

	_, err := s.CreateApplication(context.Background(), models.Application{Area: "Narnia"})
	if !errors.Is(err, ErrInvalidArea) {
		t.Errorf("unknown area error = %v, want ErrInvalidArea", err)
	}
}

func TestCrossAreaVisibleUnderEveryFilter(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	mustCreateApp(t, s, models.AreaBlaenavon, "Local Project")
	cross := mustCreateApp(t, s, models.AreaCross, "Countywide Project")

	for _, filter := range []string{models.AreaBlaenavon, models.AreaThornhill, models.AreaTrevethin, models.AreaCross} {
		apps, err := s.GetApplications(ctx, filter)
		if err != nil {
			t.Fatalf("GetApplications(%q) failed: %v", filter, err)
		}
		found := false
		for _, a := range apps {
			if a.ID == cross.ID {
				found = true
			}
		}
		if !found {
			t.Errorf("cross-area application missing under filter %q", filter)
		}
	}

	// Blaenavon's own application must not appear under other areas.
	apps, err := s.GetApplications(ctx, models.AreaThornhill)
	if err != nil {
		t.Fatalf("GetApplications failed: %v", err)
	}
	if len(apps) != 1 {
		t.Errorf("Thornhill filter returned %d apps, want only the cross-area one", len(apps))
	}

	// No filter and the All sentinel return everything.
	for _, filter := range []string{"", "All"} {
		apps, err := s.GetApplications(ctx, filter)
		if err != nil {
			t.Fatalf("GetApplications(%q) failed: %v", filter, err)
		}
		if len(apps) != 2 {
			t.Errorf("GetApplications(%q) returned %d apps, want 2", filter, len(apps))
		}
	}
}

func TestUpdateApplicationStatusTransitions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	app := mustCreateApp(t, s, models.AreaTrevethin, "Youth Choir")

	invite := models.StatusInvitedStage2
	updated, err := s.UpdateApplication(ctx, app.ID, models.ApplicationPatch{Status: &invite})
	if err != nil {
		t.Fatalf("legal transition rejected: %v", err)
	}
	if updated.Status != models.StatusInvitedStage2 {
		t.Errorf("status = %q", updated.Status)
	}

	funded := models.StatusFunded
	_, err = s.UpdateApplication(ctx, app.ID, models.ApplicationPatch{Status: &funded})
	if !errors.Is(err, ErrInvalidTransition) {
		t.Errorf("illegal transition error = %v, want ErrInvalidTransition", err)
	}

	// The admin override path may repair any status.
	_, err = s.UpdateApplication(ctx, app.ID, models.ApplicationPatch{Status: &funded, ForceStatus: true})
	if err != nil {
		t.Errorf("forced status update failed: %v", err)
	}

	_, err = s.UpdateApplication(ctx, "no-such-app", models.ApplicationPatch{Status: &invite})
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("unknown id error = %v, want ErrNotFound", err)
	}
}

func TestUpdateApplicationPartial(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	app := mustCreateApp(t, s, models.AreaThornhill, "Original Title")

	title := "Revised Title"
	fd := &models.FormData{Activities: "Weekly workshops", BudgetBreakdown: []models.BudgetLine{{Item: "Hall hire", Cost: 300}}}
	updated, err := s.UpdateApplication(ctx, app.ID, models.ApplicationPatch{ProjectTitle: &title, FormData: fd})
	if err != nil {
		t.Fatalf("UpdateApplication failed: %v", err)
	}
	if updated.ProjectTitle != "Revised Title" {
		t.Errorf("title = %q", updated.ProjectTitle)
	}
	if updated.Ref != app.Ref {
		t.Errorf("ref changed from %q to %q", app.Ref, updated.Ref)
	}

	got, err := s.GetApplication(ctx, app.ID)
	if err != nil {
		t.Fatalf("GetApplication failed: %v", err)
	}
	if got.FormData == nil || got.FormData.Activities != "Weekly workshops" {
		t.Errorf("form data not persisted: %+v", got.FormData)
	}
	if len(got.FormData.BudgetBreakdown) != 1 || got.FormData.BudgetBreakdown[0].Cost != 300 {
		t.Errorf("budget breakdown not persisted: %+v", got.FormData.BudgetBreakdown)
	}
}

func TestSaveScoreUpsert(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	app := mustCreateApp(t, s, models.AreaBlaenavon, "Scored Project")

	_, err := s.SaveScore(ctx, models.Score{
		AppID: app.ID, ScorerID: "s1", ScorerName: "Scorer One",
		Ratings: map[string]int{"need": 2},
	})
	if err != nil {
		t.Fatalf("first SaveScore failed: %v", err)
	}

	_, err = s.SaveScore(ctx, models.Score{
		AppID: app.ID, ScorerID: "s1", ScorerName: "Scorer One",
		Ratings: map[string]int{"need": 3}, IsFinal: true,
	})
	if err != nil {
		t.Fatalf("second SaveScore failed: %v", err)
	}

	scores, err := s.GetScores(ctx)
	if err != nil {
		t.Fatalf("GetScores failed: %v", err)
	}
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want exactly 1 after upsert", len(scores))
	}
	if scores[0].Ratings["need"] != 3 {
		t.Errorf("stored rating = %d, want the second write (3)", scores[0].Ratings["need"])
	}
	if !scores[0].IsFinal {
		t.Error("finality flag from second write lost")
	}
}

func TestSaveScoreRecomputesTotal(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	app := mustCreateApp(t, s, models.AreaBlaenavon, "Totalled Project")

	// Caller-supplied total is a lie; the store must recompute it.
	saved, err := s.SaveScore(ctx, models.Score{
		AppID: app.ID, ScorerID: "s1",
		Ratings: map[string]int{"need": 3, "outcomes": 3},
		Total:   999,
	})
	if err != nil {
		t.Fatalf("SaveScore failed: %v", err)
	}
	if saved.Total != 50 {
		t.Errorf("recomputed total = %v, want 50", saved.Total)
	}

	scores, _ := s.GetScores(ctx)
	if len(scores) != 1 || scores[0].Total != 50 {
		t.Errorf("persisted total = %+v, want 50", scores)
	}
}

func TestDeleteApplicationCascadesScores(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	app := mustCreateApp(t, s, models.AreaBlaenavon, "Doomed Project")
	other := mustCreateApp(t, s, models.AreaThornhill, "Survivor Project")

	for _, scorer := range []string{"s1", "s2"} {
		if _, err := s.SaveScore(ctx, models.Score{AppID: app.ID, ScorerID: scorer, Ratings: map[string]int{"need": 1}}); err != nil {
			t.Fatalf("SaveScore failed: %v", err)
		}
	}
	if _, err := s.SaveScore(ctx, models.Score{AppID: other.ID, ScorerID: "s1", Ratings: map[string]int{"need": 2}}); err != nil {
		t.Fatalf("SaveScore failed: %v", err)
	}

	if err := s.DeleteApplication(ctx, app.ID); err != nil {
		t.Fatalf("DeleteApplication failed: %v", err)
	}

	apps, _ := s.GetApplications(ctx, "")
	for _, a := range apps {
		if a.ID == app.ID {
			t.Error("deleted application still listed")
		}
	}

	scores, _ := s.GetScores(ctx)
	if len(scores) != 1 {
		t.Fatalf("got %d scores, want 1 (only the other application's)", len(scores))
	}
	if scores[0].AppID != other.ID {
		t.Errorf("surviving score belongs to %q, want %q", scores[0].AppID, other.ID)
	}
}

func TestResetUserScores(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	a1 := mustCreateApp(t, s, models.AreaBlaenavon, "Project One")
	a2 := mustCreateApp(t, s, models.AreaThornhill, "Project Two")

	for _, sc := range []models.Score{
		{AppID: a1.ID, ScorerID: "target", Ratings: map[string]int{"need": 1}},
		{AppID: a2.ID, ScorerID: "target", Ratings: map[string]int{"need": 2}},
		{AppID: a1.ID, ScorerID: "bystander", Ratings: map[string]int{"need": 3}},
	} {
		if _, err := s.SaveScore(ctx, sc); err != nil {
			t.Fatalf("SaveScore failed: %v", err)
		}
	}

	// Targeted mode removes one (scorer, app) pair only.
	if err := s.ResetUserScores(ctx, "target", a1.ID); err != nil {
		t.Fatalf("targeted reset failed: %v", err)
	}
	scores, _ := s.GetScores(ctx)
	if len(scores) != 2 {
		t.Fatalf("after targeted reset got %d scores, want 2", len(scores))
	}

	// Bulk mode removes everything the scorer wrote, nothing else.
	if err := s.ResetUserScores(ctx, "target", ""); err != nil {
		t.Fatalf("bulk reset failed: %v", err)
	}
	scores, _ = s.GetScores(ctx)
	if len(scores) != 1 || scores[0].ScorerID != "bystander" {
		t.Errorf("bulk reset left %+v, want only bystander's score", scores)
	}
}

func TestDeleteScoreAbsentIsNoop(t *testing.T) {
	s := openTestStore(t)
	if err := s.DeleteScore(context.Background(), "no-app", "no-scorer"); err != nil {
		t.Errorf("DeleteScore on absent record errored: %v", err)
	}
}

func TestPortalSettingsLifecycle(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	// First access creates the defaults.
	st, err := s.GetPortalSettings(ctx)
	if err != nil {
		t.Fatalf("GetPortalSettings failed: %v", err)
	}
	if !st.Stage1Visible || st.Stage2Visible || st.VotingOpen {
		t.Errorf("defaults = %+v", st)
	}

	st.Stage2Visible = true
	if err := s.UpdatePortalSettings(ctx, st); err != nil {
		t.Fatalf("UpdatePortalSettings failed: %v", err)
	}

	got, err := s.GetPortalSettings(ctx)
	if err != nil {
		t.Fatalf("GetPortalSettings failed: %v", err)
	}
	if !got.Stage2Visible {
		t.Error("settings update not persisted")
	}
}

func TestSettingsReadFailureFallsBack(t *testing.T) {
	s := openTestStore(t)
	// Closing the handle makes every query fail; reads must degrade to
	// defaults instead of erroring.
	s.Close()

	st, err := s.GetPortalSettings(context.Background())
	if err != nil {
		t.Fatalf("GetPortalSettings errored on backend failure: %v", err)
	}
	if st != models.DefaultSettings() {
		t.Errorf("fallback settings = %+v", st)
	}
}

func TestBlaenavonScenario(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	app, err := s.CreateApplication(ctx, models.Application{
		UserID:          "u1",
		Area:            models.AreaBlaenavon,
		AmountRequested: 500,
	})
	if err != nil {
		t.Fatalf("CreateApplication failed: %v", err)
	}
	if app.Area != models.AreaBlaenavon {
		t.Errorf("area = %q", app.Area)
	}
	if app.Status != models.StatusSubmittedStage1 {
		t.Errorf("status = %q", app.Status)
	}
	if !regexp.MustCompile(`^PB-BLA-\d{3}$`).MatchString(app.Ref) {
		t.Errorf("ref = %q, want PB-BLA-###", app.Ref)
	}
	if app.AmountRequested != 500 {
		t.Errorf("amount = %v", app.AmountRequested)
	}
}

func TestSeededStore(t *testing.T) {
	path := t.TempDir() + "/seeded.db"
	s, err := OpenSQLite(path, true)
	if err != nil {
		t.Fatalf("Failed to open seeded store: %v", err)
	}
	defer s.Close()
	ctx := context.Background()

	users, err := s.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers failed: %v", err)
	}
	if len(users) == 0 {
		t.Fatal("seeded store has no users")
	}
	for _, u := range users {
		if u.Secret != "" {
			t.Errorf("seeded user %s leaks secret", u.Email)
		}
	}

	apps, err := s.GetApplications(ctx, "")
	if err != nil {
		t.Fatalf("GetApplications failed: %v", err)
	}
	if len(apps) == 0 {
		t.Fatal("seeded store has no applications")
	}
	for _, a := range apps {
		if !refPattern.MatchString(a.Ref) {
			t.Errorf("seeded app ref %q malformed", a.Ref)
		}
	}

	// The demo admin can log in.
	if _, err := s.Login(ctx, "admin", "admin-demo-pass"); err != nil {
		t.Errorf("demo admin login failed: %v", err)
	}

	// Reopening the same file must not seed twice.
	s.Close()
	s2, err := OpenSQLite(path, true)
	if err != nil {
		t.Fatalf("Failed to reopen seeded store: %v", err)
	}
	defer s2.Close()
	again, err := s2.GetUsers(ctx)
	if err != nil {
		t.Fatalf("GetUsers after reopen failed: %v", err)
	}
	if len(again) != len(users) {
		t.Errorf("reopen changed user count from %d to %d", len(users), len(again))
	}
}
