// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package auth provides identifier normalization, credential hashing,
and random ID generation for the portal.

# Login Identifiers

Users may sign in with a full email address or, for committee members,
a bare username. NormalizeIdentifier lower-cases the input and appends
the synthetic "@committee.local" domain to bare usernames, so both
forms resolve to one credential key:

	auth.NormalizeIdentifier("Blaenavon1")  // "blaenavon1@committee.local"
	auth.NormalizeIdentifier("Me@Org.uk")   // "me@org.uk"

# Credentials

Passwords are stored only as bcrypt hashes in the backend's credential
table, never in profile records:

	hash, err := auth.HashPassword(password)
	err = auth.CheckPassword(password, hash)

# IDs

GenerateID returns a crypto/rand hex string for generated secrets and
anywhere a non-record identifier is needed. Record ids use
github.com/google/uuid at the store layer.
*/
package auth
