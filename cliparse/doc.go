// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles configuration parsing from CLI flags and
environment variables.

# Usage

	cfg, err := cliparse.ParseFlags(os.Args[1:])

CLI flags take precedence over environment variables.

# Settings

Backend selection:

  - DATABASE_TYPE (-t): "sqlite" (default) or "postgres". Selects which
    store backend the process runs against.
  - DATABASE_URL (-d): Postgres connection string; required when the
    postgres backend is selected.
  - SQLITE_PATH (-f): local database file (default: pb-portal.db).
  - SEED_DEMO (--seed-demo): seed demonstration users and applications
    into an empty local store.

Server:

  - PORT (-p): server port (default: 3326).

Secrets (must be provided, prefer environment variables):

  - SESSION_SECRET (--session-secret): key for session cookie signing.
*/
package cliparse
