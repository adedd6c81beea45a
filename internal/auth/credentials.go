// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package auth

import (
	"crypto/subtle"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// CredentialManager verifies the bootstrap admin credentials. The password is
// bcrypt-hashed once at startup so login requests only pay the comparison cost.
type CredentialManager struct {
	username     string
	passwordHash []byte
}

// NewCredentialManager hashes the configured password and returns a manager.
func NewCredentialManager(username, password string) (*CredentialManager, error) {
	if username == "" {
		return nil, fmt.Errorf("username is required")
	}
	if len(password) < 8 {
		return nil, fmt.Errorf("password must be at least 8 characters")
	}

	// Cost 12 balances login latency against brute-force resistance
	hash, err := bcrypt.GenerateFromPassword([]byte(password), 12)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	return &CredentialManager{
		username:     username,
		passwordHash: hash,
	}, nil
}

// Verify checks a username and password pair. Both comparisons run
// unconditionally so a wrong username costs the same as a wrong password.
func (m *CredentialManager) Verify(username, password string) bool {
	usernameMatch := subtle.ConstantTimeCompare([]byte(username), []byte(m.username)) == 1
	passwordMatch := bcrypt.CompareHashAndPassword(m.passwordHash, []byte(password)) == nil
	return usernameMatch && passwordMatch
}

// Username returns the configured admin username.
func (m *CredentialManager) Username() string {
	return m.username
}
