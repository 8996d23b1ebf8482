// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/cliparse"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/store"
)

// TestSessionSecret signs session cookies in tests.
const TestSessionSecret = "test-session-secret"

// SetupTestStore opens a fresh SQLite store in a per-test temp
// directory, without demo seed data. Cleanup closes it.
func SetupTestStore(t *testing.T) store.Store {
	t.Helper()

	st, err := store.OpenSQLite(t.TempDir()+"/test.db", false)
	if err != nil {
		t.Fatalf("Failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:          3326,
		DatabaseType:  "sqlite",
		SQLitePath:    ":memory:",
		SessionSecret: TestSessionSecret,
	}
}

// CreateTestUser registers an account and promotes it to the given
// role and area. Returns the stored user.
func CreateTestUser(t *testing.T, st store.Store, email, password, role, area string) models.User {
	t.Helper()

	u, err := st.Register(context.Background(), email, password, "Test User")
	if err != nil {
		t.Fatalf("Failed to register test user: %v", err)
	}
	if role != models.RoleApplicant || area != "" {
		u.Role = role
		u.Area = area
		if err := st.UpdateUser(context.Background(), u); err != nil {
			t.Fatalf("Failed to set test user role: %v", err)
		}
	}
	return u
}

// SignIn fabricates a signed session cookie for u without going
// through the login endpoint.
func SignIn(t *testing.T, ss *sessions.CookieStore, sessionName string, u models.User) *http.Cookie {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	sess, _ := ss.Get(req, sessionName)
	sess.Values["user_id"] = u.ID
	sess.Values["role"] = u.Role
	if err := sess.Save(req, rec); err != nil {
		t.Fatalf("Failed to save test session: %v", err)
	}
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionName {
			return c
		}
	}
	t.Fatalf("Session cookie %q was not set", sessionName)
	return nil
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, cookies ...*http.Cookie) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for _, c := range cookies {
		req.AddCookie(c)
	}
	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v. Body: %s", err, w.Body.String())
	}
}
