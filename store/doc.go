// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store is the durable-storage layer of the portal: users,
applications, committee scores, and the portal-settings singleton,
behind one Store interface with two interchangeable backends.

# Backends

	store.Open(cfg)

selects the backend from configuration at process start:

  - PostgresStore: the networked deployment backend (lib/pq). Account
    creation is self-registration only; AdminCreateUser returns
    ErrNotSupported.
  - SQLiteStore: a local database file (modernc.org/sqlite, pure Go, no
    network). With seeding enabled (SEED_DEMO), an empty file is loaded
    with fixed demonstration data so a fresh checkout is immediately
    explorable.

Both enforce the same contract; handlers never know which one they
hold.

# Consistency

Every operation is independently atomic at single-record granularity.
There are no multi-record transactions: DeleteApplication removes the
application and then its scores as two sequential idempotent steps, so
an interruption in between leaves orphaned scores until the delete is
repeated. Concurrent writers to the same record get the backend's
native last-write-wins behavior.

# Credential Handling

Passwords live only in the credentials table as bcrypt hashes. Profile
records declare a secret field to match the stored shape, but every
read path projects users through models.User.Public(), which empties
it. UpdateUser never writes the secret column from a caller-supplied
record.

# Derived State

SaveScore recomputes Score.Total from the rating map via the rubric
package on every write; a caller-supplied total is discarded.

# Errors

Operations return sentinel errors (ErrNotFound, ErrEmailExists,
ErrInvalidCredentials, ErrProfileMissing, ErrNotSupported,
ErrInvalidTransition, ErrInvalidArea) that callers test with
errors.Is. The one deliberate exception: GetPortalSettings falls back
to the default settings on a read failure instead of erroring, because
a settings read must never take the portal down.
*/
package store
