// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package auth

import (
	"crypto/rand"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/securecookie"

	"github.com/reelroom/reelroom/internal/logging"
)

// AnonCookieName is the cookie that carries a visitor's anonymous identity.
const AnonCookieName = "reelroom_anon"

// anonCookieMaxAge keeps anonymous identities stable across browser restarts
// so the same visitor is not counted twice after reopening a tab.
const anonCookieMaxAge = 365 * 24 * time.Hour

// AnonManager issues and reads signed anonymous identity cookies. Visitors
// without an account get a random UUID bound to their browser; the presence
// registry uses it to collapse multiple tabs into one active user.
type AnonManager struct {
	codec *securecookie.SecureCookie
}

// NewAnonManager creates an anonymous identity manager. If secret is empty a
// random key is generated, which means anonymous identities rotate when the
// process restarts.
func NewAnonManager(secret string) (*AnonManager, error) {
	var hashKey []byte
	if secret != "" {
		if len(secret) < 32 {
			return nil, fmt.Errorf("anon cookie secret must be at least 32 characters, got %d", len(secret))
		}
		hashKey = []byte(secret)
	} else {
		hashKey = make([]byte, 32)
		if _, err := rand.Read(hashKey); err != nil {
			return nil, fmt.Errorf("failed to generate anon cookie key: %w", err)
		}
		logging.Warn().Msg("ANON_COOKIE_SECRET not set, anonymous identities will rotate on restart")
	}

	codec := securecookie.New(hashKey, nil)
	codec.MaxAge(int(anonCookieMaxAge.Seconds()))

	return &AnonManager{codec: codec}, nil
}

// Handshake returns the visitor's anonymous ID from the request cookie. If
// the cookie is missing or fails authentication a fresh ID is minted and the
// serialized Set-Cookie header value is returned alongside it; the caller is
// responsible for attaching it to the response. This matters for websocket
// upgrades, where headers written to the ResponseWriter are discarded and the
// cookie must travel in the 101 handshake instead.
func (m *AnonManager) Handshake(r *http.Request) (anonID, setCookie string, err error) {
	if cookie, cerr := r.Cookie(AnonCookieName); cerr == nil {
		var id string
		if derr := m.codec.Decode(AnonCookieName, cookie.Value, &id); derr == nil && id != "" {
			return id, "", nil
		}
		// Tampered or expired cookie falls through to reissue
	}

	anonID = uuid.NewString()
	encoded, err := m.codec.Encode(AnonCookieName, anonID)
	if err != nil {
		return "", "", fmt.Errorf("failed to encode anon cookie: %w", err)
	}

	cookie := &http.Cookie{
		Name:     AnonCookieName,
		Value:    encoded,
		Path:     "/",
		MaxAge:   int(anonCookieMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	return anonID, cookie.String(), nil
}

// Identity returns the visitor's anonymous ID from the request cookie,
// issuing a fresh one on the plain HTTP response when needed.
func (m *AnonManager) Identity(w http.ResponseWriter, r *http.Request) (string, error) {
	anonID, setCookie, err := m.Handshake(r)
	if err != nil {
		return "", err
	}
	if setCookie != "" {
		w.Header().Add("Set-Cookie", setCookie)
	}
	return anonID, nil
}

// Peek returns the anonymous ID from the request without issuing a new one.
// Returns empty string if no valid cookie is present.
func (m *AnonManager) Peek(r *http.Request) string {
	cookie, err := r.Cookie(AnonCookieName)
	if err != nil {
		return ""
	}
	var anonID string
	if err := m.codec.Decode(AnonCookieName, cookie.Value, &anonID); err != nil {
		return ""
	}
	return anonID
}
