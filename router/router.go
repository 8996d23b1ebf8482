// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package router

import (
	"net/http"

	"github.com/gorilla/sessions"

	"github.com/danielhkuo/pb-portal/handlers"
	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/store"
)

func NewRouter(st store.Store, ss *sessions.CookieStore) *http.ServeMux {
	mux := http.NewServeMux()

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(st, ss)
	appHandler := handlers.NewApplicationHandler(st, ss)
	scoreHandler := handlers.NewScoreHandler(st, ss)
	userHandler := handlers.NewUserHandler(st, ss)
	settingsHandler := handlers.NewSettingsHandler(st, ss)
	resultsHandler := handlers.NewResultsHandler(st, ss)

	// Health check
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	})

	// Session management
	mux.HandleFunc("POST /auth/register", middleware.WithLogging(authHandler.Register))
	mux.HandleFunc("POST /auth/login", middleware.WithLogging(authHandler.Login))
	mux.HandleFunc("POST /auth/logout", middleware.WithLogging(authHandler.Logout))
	mux.HandleFunc("GET /auth/me", middleware.WithLogging(authHandler.Me))
	mux.HandleFunc("PATCH /profile", middleware.WithLogging(authHandler.UpdateProfile))

	// Application lifecycle
	mux.HandleFunc("GET /applications", middleware.WithLogging(appHandler.List))
	mux.HandleFunc("POST /applications", middleware.WithLogging(appHandler.Create))
	mux.HandleFunc("GET /applications/{id}", middleware.WithLogging(appHandler.Get))
	mux.HandleFunc("PATCH /applications/{id}", middleware.WithLogging(appHandler.Update))
	mux.HandleFunc("DELETE /applications/{id}", middleware.WithLogging(appHandler.Delete))

	// Committee scoring
	mux.HandleFunc("PUT /scores", middleware.WithLogging(scoreHandler.Save))
	mux.HandleFunc("GET /scores", middleware.WithLogging(scoreHandler.List))
	mux.HandleFunc("DELETE /scores/{appID}/{scorerID}", middleware.WithLogging(scoreHandler.Delete))
	mux.HandleFunc("POST /scores/reset", middleware.WithLogging(scoreHandler.Reset))

	// User management (admin)
	mux.HandleFunc("GET /users", middleware.WithLogging(userHandler.List))
	mux.HandleFunc("POST /users", middleware.WithLogging(userHandler.Create))
	mux.HandleFunc("PUT /users/{id}", middleware.WithLogging(userHandler.Update))
	mux.HandleFunc("DELETE /users/{id}", middleware.WithLogging(userHandler.Delete))

	// Portal phase switches
	mux.HandleFunc("GET /settings", middleware.WithLogging(settingsHandler.Get))
	mux.HandleFunc("PUT /settings", middleware.WithLogging(settingsHandler.Update))

	// Aggregated results
	mux.HandleFunc("GET /results", middleware.WithLogging(resultsHandler.Get))
	mux.HandleFunc("GET /results/export", middleware.WithLogging(resultsHandler.Export))

	// Root endpoint
	mux.HandleFunc("GET /", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("pb-portal API v1"))
	})

	return mux
}
