// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package models

// ActiveUsersResponse is the fixed payload of GET /api/active-users.
//
// This endpoint intentionally does not use the APIResponse envelope: its
// shape is shared with the websocket activeUsers:update push and consumed
// directly by the frontend presence widget.
type ActiveUsersResponse struct {
	Count     int               `json:"count"`
	Timestamp string            `json:"timestamp"`
	Debug     *ActiveUsersDebug `json:"debug,omitempty"`
}

// ActiveUsersDebug exposes registry internals when debug mode is enabled.
// TotalConnections counts sockets; ActiveUsersMap is the size of the registry
// identity map. Only aggregates; identity keys never leave the process.
type ActiveUsersDebug struct {
	TotalConnections int `json:"totalConnections"`
	ActiveUsersMap   int `json:"activeUsersMap"`
}

// ActiveUsersUpdate is the payload of the activeUsers:update websocket event.
type ActiveUsersUpdate struct {
	Count int `json:"count"`
}

// WSMessage is the envelope for every websocket frame in either direction.
type WSMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload,omitempty"`
}

// Client-to-server websocket message types.
const (
	WSTypeHeartbeat = "heartbeat"
	WSTypeAuth      = "auth"
)

// Server-to-client websocket message types.
const (
	WSTypeActiveUsers    = "activeUsers:update"
	WSTypeIdentityIssued = "identity:issued"
	WSTypeError          = "error"
)
