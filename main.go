// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package main

import (
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/danielhkuo/pb-portal/cliparse"
	"github.com/danielhkuo/pb-portal/handlers"
	"github.com/danielhkuo/pb-portal/middleware"
	"github.com/danielhkuo/pb-portal/router"
	"github.com/danielhkuo/pb-portal/store"
)

func main() {
	var err error

	// Optional .env for local development; real deployments set the
	// environment directly.
	if err := godotenv.Load(); err == nil {
		slog.Info("Loaded .env file")
	}

	// Parse configuration
	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		slog.Error("Error parsing flags", "error", err)
		os.Exit(1)
	}

	// Open the storage backend
	st, err := store.Open(cfg)
	if err != nil {
		slog.Error("storage backend failed to open", "type", cfg.DatabaseType, "error", err)
		os.Exit(1)
	}
	defer st.Close()
	slog.Info("Storage backend ready", "type", cfg.DatabaseType)

	// Create router
	sessionStore := handlers.NewSessionStore(cfg.SessionSecret)
	mux := router.NewRouter(st, sessionStore)

	// Create server
	server := http.Server{
		Handler: middleware.CORS(mux),
		Addr:    ":" + strconv.Itoa(cfg.Port),
	}

	// signal.Notify requires the channel to be buffered
	ctrlc := make(chan os.Signal, 1)
	signal.Notify(ctrlc, os.Interrupt, syscall.SIGTERM)
	go func() {
		// Wait for Ctrl-C signal
		<-ctrlc
		server.Close()
	}()

	// Start server
	slog.Info("Listening", "port", cfg.Port)
	err = server.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		slog.Error("Server closed", "error", err)
	} else {
		slog.Info("Server closed", "error", err)
	}
}
