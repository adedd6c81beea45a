// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/reelroom/reelroom/internal/auth"
	"github.com/reelroom/reelroom/internal/config"
	"github.com/reelroom/reelroom/internal/database"
	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/presence"
	"github.com/reelroom/reelroom/internal/tmdb"
	ws "github.com/reelroom/reelroom/internal/websocket"
)

// Handler contains dependencies for API handlers.
//
// Handler methods are split across multiple files:
//   - handlers.go: Handler struct, constructor, WebSocket upgrade helpers
//   - handlers_health.go: Health and readiness endpoints
//   - handlers_auth.go: Login endpoint
//   - handlers_presence.go: Active users query and WebSocket endpoint
//   - handlers_social.go: Discussions, comments, watchlist, progress
//   - handlers_tmdb.go: TMDB catalog proxy endpoints
type Handler struct {
	db          *database.DB
	config      *config.Config
	jwtManager  *auth.JWTManager
	credentials *auth.CredentialManager
	anonManager *auth.AnonManager
	tmdbClient  *tmdb.Client
	registry    *presence.Registry
	wsHub       *ws.Hub
	startTime   time.Time
	version     string
}

// NewHandler creates an API handler with all required dependencies.
func NewHandler(db *database.DB, cfg *config.Config, jwtManager *auth.JWTManager, credentials *auth.CredentialManager, anonManager *auth.AnonManager, tmdbClient *tmdb.Client, registry *presence.Registry, wsHub *ws.Hub, version string) *Handler {
	return &Handler{
		db:          db,
		config:      cfg,
		jwtManager:  jwtManager,
		credentials: credentials,
		anonManager: anonManager,
		tmdbClient:  tmdbClient,
		registry:    registry,
		wsHub:       wsHub,
		startTime:   time.Now(),
		version:     version,
	}
}

// getUpgrader creates a WebSocket upgrader with origin checking and a
// handshake timeout against slow client attacks.
func (h *Handler) getUpgrader() websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:   1024,
		WriteBufferSize:  1024,
		CheckOrigin:      h.checkWebSocketOrigin,
		HandshakeTimeout: 10 * time.Second,
	}
}

// checkWebSocketOrigin validates WebSocket connection origins. Browser
// WebSockets always send Origin; an empty header means a non-browser client,
// which is rejected so empty origins cannot bypass CORS.
func (h *Handler) checkWebSocketOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")

	if origin == "" {
		logging.Warn().Msg("websocket connection rejected: missing Origin header")
		return false
	}

	if h.config == nil {
		return true
	}

	for _, allowedOrigin := range h.config.Security.CORSOrigins {
		if allowedOrigin == "*" || allowedOrigin == origin {
			return true
		}
	}

	logging.Warn().Str("origin", sanitizeLogValue(origin)).Msg("websocket connection rejected from unauthorized origin")
	return false
}
