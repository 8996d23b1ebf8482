// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and JSON helpers shared by
every handler.

# Request Logging

WithLogging wraps a handler with structured slog entries at start and
completion, including the request duration.

# JSON Helpers

	middleware.JSONResponse(w, http.StatusOK, payload)
	middleware.ErrorResponse(w, http.StatusNotFound, "Application not found")
	middleware.ParseJSONBody(r, &req)

ErrorResponse emits the models.ErrorResponse shape the frontend
expects.

# CORS

CORS reflects the request origin and allows credentials, so the
session cookie works from the Vite dev server and production domains.

# Client IP

GetClientIP checks X-Forwarded-For, then X-Real-IP, then RemoteAddr.
Used for login-failure logging.
*/
package middleware
