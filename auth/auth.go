// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// SyntheticDomain is appended to bare usernames at login so committee
// members can sign in without remembering a full email address.
const SyntheticDomain = "committee.local"

var ErrWeakPassword = errors.New("password must be at least 8 characters")

// GenerateID creates a random hex ID of the specified byte length
func GenerateID(byteLen int) (string, error) {
	b := make([]byte, byteLen)
	_, err := rand.Read(b)
	if err != nil {
		return "", fmt.Errorf("failed to generate random ID: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// NormalizeIdentifier resolves a human-entered login identifier to the
// canonical credential key: lower-cased, and bare usernames (no "@")
// get the synthetic committee domain appended.
func NormalizeIdentifier(identifier string) string {
	id := strings.ToLower(strings.TrimSpace(identifier))
	if !strings.Contains(id, "@") {
		id = id + "@" + SyntheticDomain
	}
	return id
}

// UsernameFromEmail derives the default username for a new account:
// the local part of the email address.
func UsernameFromEmail(email string) string {
	local, _, found := strings.Cut(email, "@")
	if !found {
		return email
	}
	return local
}

// HashPassword returns the bcrypt hash of a password for storage in
// the credential table.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(bytes), nil
}

// CheckPassword compares a plaintext password against a stored hash.
func CheckPassword(password, hash string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// ValidatePassword enforces the minimum password policy at registration.
func ValidatePassword(password string) error {
	if len(password) < 8 {
		return ErrWeakPassword
	}
	return nil
}
