// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/reelroom/reelroom/internal/auth"
	"github.com/reelroom/reelroom/internal/logging"
)

type contextKey string

// ClaimsContextKey carries the authenticated user's JWT claims.
const ClaimsContextKey contextKey = "claims"

// TokenCookieName is the HTTP-only cookie carrying the session JWT.
const TokenCookieName = "reelroom_token"

// Authenticate rejects requests without a valid JWT. The token is read from
// the Authorization header (Bearer scheme) or the session cookie.
func (h *Handler) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := h.claimsFromRequest(r)
		if err != nil {
			respondError(w, http.StatusUnauthorized, "AUTH_REQUIRED", "authentication required", nil)
			return
		}

		ctx := context.WithValue(r.Context(), ClaimsContextKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// claimsFromRequest extracts and validates the JWT from a request.
func (h *Handler) claimsFromRequest(r *http.Request) (*auth.Claims, error) {
	token, err := extractToken(r)
	if err != nil {
		return nil, err
	}

	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		logging.Debug().Err(err).Msg("token validation failed")
		return nil, err
	}
	return claims, nil
}

// extractToken reads the JWT from the Authorization header or the session
// cookie, in that order.
func extractToken(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		cookie, err := r.Cookie(TokenCookieName)
		if err != nil {
			return "", auth.ErrMissingToken
		}
		return cookie.Value, nil
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", auth.ErrMissingToken
	}
	return parts[1], nil
}

// ClaimsFromContext retrieves the authenticated claims set by Authenticate.
func ClaimsFromContext(ctx context.Context) *auth.Claims {
	if claims, ok := ctx.Value(ClaimsContextKey).(*auth.Claims); ok {
		return claims
	}
	return nil
}
