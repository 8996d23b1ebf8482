// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the participatory
budgeting portal API.

# Handler Types

Each handler embeds a shared base carrying the store and the session
cookie store:

  - AuthHandler: registration, login, logout, session introspection,
    self-service profile edits
  - ApplicationHandler: the grant application lifecycle
  - ScoreHandler: committee rubric scoring
  - UserHandler: admin user management
  - SettingsHandler: the portal phase switches
  - ResultsHandler: aggregated scoring results and CSV export

Handlers are created via constructor functions that accept a
store.Store and a *sessions.CookieStore:

	authHandler := handlers.NewAuthHandler(st, sessionStore)

# Sessions and Roles

Authentication is a signed session cookie (gorilla/sessions) holding
the user id. Every request resolves the cookie to a live profile
record, so a deleted account is signed out immediately. Role checks
are allow-lists per endpoint:

  - applicant: own applications only
  - committee: own area plus Cross-Area, gated by the portal phase
    switches
  - admin: everything, including ?force=true status repairs

# Application Workflow

Applications move along a fixed graph (Draft through Funded). Status
patches that leave the graph are rejected by the store with
ErrInvalidTransition, which surfaces as 409. Admins may bypass the
graph with ?force=true for repair edits.

# Scoring

Committee members save one score per application (upsert on resave).
The scorer identity always comes from the session, and the weighted
total is recomputed by the store from the rubric, never trusted from
the client.

# Error Mapping

Store sentinel errors map onto HTTP statuses in writeStoreError:
not-found 404, duplicate email 409, bad credentials 401, orphaned
credential 409, unsupported operation 501, illegal transition 409,
unknown area 400. Everything else is a 500 with a structured log line.
*/
package handlers
