// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/reelroom/reelroom/internal/logging"
	"github.com/reelroom/reelroom/internal/models"
	"github.com/reelroom/reelroom/internal/presence"
	ws "github.com/reelroom/reelroom/internal/websocket"
)

// ActiveUsers handles GET /api/active-users.
//
// The payload shape is a frontend contract: a flat {count, timestamp} object
// rather than the APIResponse envelope. The debug block with aggregate
// registry sizes is included when presence debug mode is enabled in config or
// requested with ?debug=true.
func (h *Handler) ActiveUsers(w http.ResponseWriter, r *http.Request) {
	snapshot := h.registry.Snapshot()

	response := models.ActiveUsersResponse{
		Count:     snapshot.Count,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	if h.config.Presence.Debug || r.URL.Query().Get("debug") == "true" {
		response.Debug = &models.ActiveUsersDebug{
			TotalConnections: snapshot.TotalConnections,
			ActiveUsersMap:   len(snapshot.Identities),
		}
	}

	respondRaw(w, http.StatusOK, response)
}

// WebSocket handles GET /ws, upgrading the connection and registering it
// with the hub.
//
// The connection's identity is resolved before the upgrade: a valid JWT wins,
// otherwise the signed anonymous visitor cookie, otherwise the connection
// falls back to counting as its own ephemeral identity. A freshly minted
// anonymous cookie must ride in the 101 handshake's response header, since
// Upgrade hijacks the connection and anything written to the ResponseWriter
// is discarded.
func (h *Handler) WebSocket(w http.ResponseWriter, r *http.Request) {
	connectionID := uuid.NewString()

	var userID string
	if claims, err := h.claimsFromRequest(r); err == nil {
		userID = claims.UserID
	}

	var anonID string
	var handshakeHeader http.Header
	if userID == "" {
		id, setCookie, err := h.anonManager.Handshake(r)
		if err != nil {
			logging.Warn().Err(err).Msg("failed to issue anonymous identity")
		} else {
			anonID = id
			if setCookie != "" {
				handshakeHeader = http.Header{"Set-Cookie": []string{setCookie}}
			}
		}
	}

	identity := presence.Resolve(userID, anonID, connectionID)

	upgrader := h.getUpgrader()
	conn, err := upgrader.Upgrade(w, r, handshakeHeader)
	if err != nil {
		// Upgrade already wrote the HTTP error response
		logging.Debug().Err(err).Msg("websocket upgrade failed")
		return
	}

	client := ws.NewClient(h.wsHub, conn, connectionID, identity, h.upgradeToken)

	h.wsHub.Register <- client
	client.Start()
}

// upgradeToken validates an auth message token and returns the authenticated
// identity for an in-place connection re-key.
func (h *Handler) upgradeToken(token string) (presence.Identity, error) {
	claims, err := h.jwtManager.ValidateToken(token)
	if err != nil {
		return presence.Identity{}, err
	}
	return presence.UserIdentity(claims.UserID), nil
}
