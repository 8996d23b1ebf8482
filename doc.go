// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the participatory budgeting
portal API server.

The portal runs a two-stage community grant round: applicants submit an
Expression of Interest, shortlisted projects complete a full Stage 2
application, and area committees score them against a weighted rubric
before decision day.

# Starting the Server

The server runs against a local SQLite file by default:

	SESSION_SECRET=... go run main.go

Or against PostgreSQL:

	SESSION_SECRET=... go run main.go -t postgres -d "postgres://..."

A .env file in the working directory is loaded if present.

# Configuration

Required settings:

  - SESSION_SECRET (--session-secret): Secret for session cookie signing
  - DATABASE_URL (-d): PostgreSQL connection string (postgres backend only)

Optional settings:

  - PORT (-p): Server port (default: 3326)
  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres"
  - SQLITE_PATH (-f): SQLite file path (default: pb-portal.db)
  - SEED_DEMO (--seed-demo): Load demonstration accounts and
    applications into an empty local store

# Architecture

The server uses a handler-based architecture with dependency injection:

  - store: the storage abstraction with SQLite and PostgreSQL backends
  - handlers: HTTP request handlers (auth, applications, scores, users,
    settings, results)
  - router: Route definitions using Go 1.22+ routing
  - middleware: CORS, logging, JSON helpers
  - models: Domain and request/response types
  - rubric: the weighted scoring rubric and RAG banding
  - auth: identifier normalization and password hashing

A companion CLI for administrators lives in cmd/pbadmin.
*/
package main
