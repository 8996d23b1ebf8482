// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/models"
	"github.com/danielhkuo/pb-portal/store"
)

// SessionName is the cookie holding the signed session.
const SessionName = "pb_session"

// NewSessionStore builds the cookie store every handler shares.
func NewSessionStore(secret string) *sessions.CookieStore {
	ss := sessions.NewCookieStore([]byte(secret))
	ss.Options = &sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return ss
}

// base carries the dependencies common to all handler types and the
// session/role plumbing built on them.
type base struct {
	st       store.Store
	sessions *sessions.CookieStore
}

// currentUser resolves the session cookie to a live profile record.
// A session whose profile has since been deleted counts as signed out.
func (b base) currentUser(r *http.Request) (models.User, bool) {
	sess, _ := b.sessions.Get(r, SessionName)
	id, ok := sess.Values["user_id"].(string)
	if !ok || id == "" {
		return models.User{}, false
	}
	u, err := b.st.GetUser(r.Context(), id)
	if err != nil {
		return models.User{}, false
	}
	return u, true
}

// requireUser writes a 401 and returns ok=false when the request has
// no valid session.
func (b base) requireUser(w http.ResponseWriter, r *http.Request) (models.User, bool) {
	u, ok := b.currentUser(r)
	if !ok {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Sign in required")
		return models.User{}, false
	}
	return u, true
}

// requireRole is requireUser plus a role allow-list.
func (b base) requireRole(w http.ResponseWriter, r *http.Request, roles ...string) (models.User, bool) {
	u, ok := b.requireUser(w, r)
	if !ok {
		return models.User{}, false
	}
	for _, role := range roles {
		if u.Role == role {
			return u, true
		}
	}
	middleware.ErrorResponse(w, http.StatusForbidden, "Insufficient role")
	return models.User{}, false
}

// signIn stores the user in the session cookie.
func (b base) signIn(w http.ResponseWriter, r *http.Request, u models.User) {
	sess, _ := b.sessions.Get(r, SessionName)
	sess.Values["user_id"] = u.ID
	sess.Values["role"] = u.Role
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to save session", "error", err)
	}
}

// signOut expires the session cookie.
func (b base) signOut(w http.ResponseWriter, r *http.Request) {
	sess, _ := b.sessions.Get(r, SessionName)
	sess.Options.MaxAge = -1
	if err := sess.Save(r, w); err != nil {
		slog.Error("failed to expire session", "error", err)
	}
}

// writeStoreError maps the store's error taxonomy onto HTTP statuses.
func writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		middleware.ErrorResponse(w, http.StatusNotFound, "Record not found")
	case errors.Is(err, store.ErrEmailExists):
		middleware.ErrorResponse(w, http.StatusConflict, "Email already registered")
	case errors.Is(err, store.ErrInvalidCredentials):
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid credentials")
	case errors.Is(err, store.ErrProfileMissing):
		middleware.ErrorResponse(w, http.StatusConflict, "Account exists but its profile record is missing; contact an administrator")
	case errors.Is(err, store.ErrNotSupported):
		middleware.ErrorResponse(w, http.StatusNotImplemented, "Not supported in this configuration; ask the user to register themselves")
	case errors.Is(err, store.ErrInvalidTransition):
		middleware.ErrorResponse(w, http.StatusConflict, err.Error())
	case errors.Is(err, store.ErrInvalidArea):
		middleware.ErrorResponse(w, http.StatusBadRequest, err.Error())
	default:
		slog.Error("store operation failed", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Storage error")
	}
}
