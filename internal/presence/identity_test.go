// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package presence

import "testing"

func TestResolvePrecedence(t *testing.T) {
	tests := []struct {
		name   string
		userID string
		anonID string
		connID string
		want   string
	}{
		{
			name:   "authenticated user wins over everything",
			userID: "42",
			anonID: "a1b2",
			connID: "c9",
			want:   "user:42",
		},
		{
			name:   "anonymous cookie wins over connection",
			anonID: "a1b2",
			connID: "c9",
			want:   "anon:a1b2",
		},
		{
			name:   "connection ID is the last resort",
			connID: "c9",
			want:   "conn:c9",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Resolve(tt.userID, tt.anonID, tt.connID)
			if got.Key() != tt.want {
				t.Errorf("Resolve(%q, %q, %q).Key() = %q, want %q",
					tt.userID, tt.anonID, tt.connID, got.Key(), tt.want)
			}
		})
	}
}

func TestKeyNamespacing(t *testing.T) {
	// The same raw ID under different kinds must never collide
	user := UserIdentity("abc")
	anon := AnonIdentity("abc")
	conn := ConnIdentity("abc")

	if user.Key() == anon.Key() || anon.Key() == conn.Key() || user.Key() == conn.Key() {
		t.Errorf("identity keys collide: %q %q %q", user.Key(), anon.Key(), conn.Key())
	}
}

func TestAuthenticated(t *testing.T) {
	if !UserIdentity("42").Authenticated() {
		t.Error("user identity must report authenticated")
	}
	if AnonIdentity("a1").Authenticated() {
		t.Error("anon identity must not report authenticated")
	}
	if ConnIdentity("c1").Authenticated() {
		t.Error("conn identity must not report authenticated")
	}
}
