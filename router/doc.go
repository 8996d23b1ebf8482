// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines the HTTP route table using Go 1.22+ method
routing.

Routes are grouped by concern: session management under /auth,
the application lifecycle under /applications, committee scoring
under /scores, admin user management under /users, the portal phase
switches under /settings, and aggregated results under /results.

Every route is wrapped with request logging. Authorization is not a
router concern: each handler resolves the session cookie and enforces
its own role allow-list, so an unrouted method falls through to the
mux's 405 while an unauthorized request gets the handler's 401/403.
*/
package router
