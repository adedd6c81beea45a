// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package auth

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/reelroom/reelroom/internal/config"
	"github.com/reelroom/reelroom/internal/logging"
)

func init() {
	logging.Init(logging.Config{Level: "error", Format: "json", Output: io.Discard})
}

func testSecurityConfig() *config.SecurityConfig {
	return &config.SecurityConfig{
		JWTSecret:      "test-secret-that-is-at-least-32-chars-long",
		SessionTimeout: time.Hour,
	}
}

func TestNewJWTManagerRejectsWeakSecrets(t *testing.T) {
	tests := []struct {
		name   string
		secret string
	}{
		{"empty secret", ""},
		{"short secret", "too-short"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testSecurityConfig()
			cfg.JWTSecret = tt.secret
			if _, err := NewJWTManager(cfg); err == nil {
				t.Error("expected error for weak secret, got nil")
			}
		})
	}
}

func TestJWTRoundTrip(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("user-42", "alice", "admin")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	claims, err := m.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}

	if claims.UserID != "user-42" {
		t.Errorf("UserID = %q, want user-42", claims.UserID)
	}
	if claims.Username != "alice" {
		t.Errorf("Username = %q, want alice", claims.Username)
	}
	if claims.Role != "admin" {
		t.Errorf("Role = %q, want admin", claims.Role)
	}
}

func TestJWTRejectsTamperedToken(t *testing.T) {
	m, err := NewJWTManager(testSecurityConfig())
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("user-42", "alice", "user")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}

	// Flip a character in the signature segment
	tampered := token[:len(token)-2] + "xx"
	if _, err := m.ValidateToken(tampered); err == nil {
		t.Error("expected tampered token to fail validation")
	}

	// Token signed with a different secret
	other, err := NewJWTManager(&config.SecurityConfig{
		JWTSecret:      "another-secret-that-is-32-characters!",
		SessionTimeout: time.Hour,
	})
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}
	foreign, err := other.GenerateToken("user-42", "alice", "user")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(foreign); err == nil {
		t.Error("expected token from different secret to fail validation")
	}
}

func TestJWTRejectsExpiredToken(t *testing.T) {
	cfg := testSecurityConfig()
	cfg.SessionTimeout = -time.Minute // already expired at issue
	m, err := NewJWTManager(cfg)
	if err != nil {
		t.Fatalf("NewJWTManager: %v", err)
	}

	token, err := m.GenerateToken("user-42", "alice", "user")
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if _, err := m.ValidateToken(token); err == nil {
		t.Error("expected expired token to fail validation")
	}
}

func TestCredentialManager(t *testing.T) {
	m, err := NewCredentialManager("admin", "correct-horse")
	if err != nil {
		t.Fatalf("NewCredentialManager: %v", err)
	}

	if !m.Verify("admin", "correct-horse") {
		t.Error("expected valid credentials to verify")
	}
	if m.Verify("admin", "wrong-password") {
		t.Error("expected wrong password to fail")
	}
	if m.Verify("intruder", "correct-horse") {
		t.Error("expected wrong username to fail")
	}
}

func TestCredentialManagerRejectsWeakConfig(t *testing.T) {
	if _, err := NewCredentialManager("", "correct-horse"); err == nil {
		t.Error("expected error for empty username")
	}
	if _, err := NewCredentialManager("admin", "short"); err == nil {
		t.Error("expected error for short password")
	}
}

func TestAnonManagerIssuesStableIdentity(t *testing.T) {
	m, err := NewAnonManager("anon-secret-that-is-at-least-32-chars!!")
	if err != nil {
		t.Fatalf("NewAnonManager: %v", err)
	}

	// First request has no cookie; an identity is issued
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id1, err := m.Identity(rec, req)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected non-empty anon ID")
	}

	cookies := rec.Result().Cookies()
	var anonCookie *http.Cookie
	for _, c := range cookies {
		if c.Name == AnonCookieName {
			anonCookie = c
		}
	}
	if anonCookie == nil {
		t.Fatal("expected anon cookie to be set")
	}
	if !anonCookie.HttpOnly {
		t.Error("anon cookie must be HTTP-only")
	}

	// Second request with the cookie returns the same identity
	rec2 := httptest.NewRecorder()
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(anonCookie)
	id2, err := m.Identity(rec2, req2)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if id2 != id1 {
		t.Errorf("expected stable identity, got %q then %q", id1, id2)
	}
	if len(rec2.Result().Cookies()) != 0 {
		t.Error("valid cookie must not be reissued")
	}

	if got := m.Peek(req2); got != id1 {
		t.Errorf("Peek = %q, want %q", got, id1)
	}
}

func TestAnonManagerHandshakeCookie(t *testing.T) {
	m, err := NewAnonManager("anon-secret-that-is-at-least-32-chars!!")
	if err != nil {
		t.Fatalf("NewAnonManager: %v", err)
	}

	// No cookie on the request: a serialized Set-Cookie value comes back for
	// the caller to attach, which is how the websocket upgrade carries it
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	id1, setCookie, err := m.Handshake(req)
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if id1 == "" {
		t.Fatal("expected non-empty anon ID")
	}
	if setCookie == "" {
		t.Fatal("expected a Set-Cookie value for a first-time visitor")
	}

	// The serialized value must round-trip as a real cookie header
	header := http.Header{}
	header.Add("Set-Cookie", setCookie)
	cookies := (&http.Response{Header: header}).Cookies()
	if len(cookies) != 1 || cookies[0].Name != AnonCookieName {
		t.Fatalf("Set-Cookie did not parse to the anon cookie: %q", setCookie)
	}

	// Replaying it yields the same identity and no reissue
	req2 := httptest.NewRequest(http.MethodGet, "/", nil)
	req2.AddCookie(cookies[0])
	id2, setCookie2, err := m.Handshake(req2)
	if err != nil {
		t.Fatalf("Handshake: %v", err)
	}
	if id2 != id1 {
		t.Errorf("expected stable identity, got %q then %q", id1, id2)
	}
	if setCookie2 != "" {
		t.Error("valid cookie must not be reissued")
	}
}

func TestAnonManagerRejectsTamperedCookie(t *testing.T) {
	m, err := NewAnonManager("anon-secret-that-is-at-least-32-chars!!")
	if err != nil {
		t.Fatalf("NewAnonManager: %v", err)
	}

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: AnonCookieName, Value: "forged-value"})

	id, err := m.Identity(rec, req)
	if err != nil {
		t.Fatalf("Identity: %v", err)
	}
	if id == "" {
		t.Fatal("expected fresh identity for tampered cookie")
	}
	if strings.Contains(id, "forged") {
		t.Error("tampered cookie value must not become the identity")
	}
	if m.Peek(req) != "" {
		t.Error("Peek must reject a tampered cookie")
	}
}

func TestAnonManagerRejectsShortSecret(t *testing.T) {
	if _, err := NewAnonManager("short"); err == nil {
		t.Error("expected error for short anon cookie secret")
	}
}
