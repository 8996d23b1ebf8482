// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines the record shapes and constants shared across
the portal: users, applications, committee scores, portal settings,
and the request/response types of the HTTP API.

# Record Types

Three record types plus a singleton:

  - User: identity, role (guest/applicant/committee/admin), committee
    area assignment, and profile fields. The Secret field exists so the
    stored shape matches the backends, but it is redacted through
    User.Public() on every read path.
  - Application: one funding request, with a fixed reference code,
    workflow status, and either an uploaded-PDF or structured digital
    form payload.
  - Score: one committee member's evaluation of one application,
    keyed by (AppID, ScorerID).
  - PortalSettings: the singleton phase switches (Stage 1 visibility,
    Stage 2 visibility, public voting).

# Workflow

Application status follows a fixed graph:

	Draft → Submitted-Stage1 → {Rejected-Stage1 | Invited-Stage2}
	      → Submitted-Stage2 → {Finalist | Rejected}
	Finalist → {Funded | Rejected}

CanTransition reports whether a status change follows the graph.
Applications are created directly in Submitted-Stage1; Draft exists
only as a graph root.

# Partial Updates

UserPatch and ApplicationPatch carry pointer fields; nil means "leave
unchanged". Apply copies the set fields onto a record.
*/
package models
