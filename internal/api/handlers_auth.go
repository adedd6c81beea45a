// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"net/http"
	"time"

	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/models"
)

// Login handles POST /api/v1/auth/login.
//
// On success the token is returned in the body and also set as an HTTP-only
// cookie so the WebSocket endpoint can authenticate without a header.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}

	if req.Username == "" || req.Password == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "username and password are required", nil)
		return
	}

	if h.credentials == nil {
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "login is not configured", nil)
		return
	}

	if !h.credentials.Verify(req.Username, req.Password) {
		logging.Warn().Str("username", sanitizeLogValue(req.Username)).Msg("failed login attempt")
		respondError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "invalid credentials", nil)
		return
	}

	token, err := h.jwtManager.GenerateToken(req.Username, req.Username, "user")
	if err != nil {
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "failed to issue token", err)
		return
	}

	expiresAt := time.Now().Add(h.jwtManager.Timeout())

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    token,
		Path:     "/",
		Expires:  expiresAt,
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	respondSuccess(w, http.StatusOK, models.LoginResponse{
		Token:     token,
		ExpiresAt: expiresAt,
	})
}

// Logout handles POST /api/v1/auth/logout by expiring the session cookie.
// The JWT itself stays valid until its expiry; this only clears the browser
// session.
func (h *Handler) Logout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})

	respondSuccess(w, http.StatusOK, map[string]string{"message": "logged out"})
}
