// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package models

import (
	"time"
)

// APIResponse is the standardized response wrapper used by all HTTP endpoints
// except the fixed-shape presence query endpoint (see ActiveUsersResponse).
//
// Status field values:
//   - "success": request completed, see Data
//   - "error": request failed, see Error
//
// Example error response:
//
//	{
//	  "status": "error",
//	  "error": {"code": "VALIDATION_ERROR", "message": "title is required"},
//	  "metadata": {"timestamp": "2026-08-29T12:00:00Z"}
//	}
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata contains response metadata for observability.
//
// QueryTimeMS is the storage execution time in milliseconds; Cached marks
// responses served from the TMDB read-through cache.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
	Cached      bool      `json:"cached,omitempty"`
}

// APIError represents structured error details.
//
// Common codes: VALIDATION_ERROR, NOT_FOUND, AUTH_REQUIRED, FORBIDDEN,
// DATABASE_ERROR, UPSTREAM_ERROR, SERVICE_UNAVAILABLE.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// HealthStatus reports overall service health.
type HealthStatus struct {
	Status            string  `json:"status"` // healthy | degraded
	Version           string  `json:"version"`
	DatabaseConnected bool    `json:"database_connected"`
	TMDBConfigured    bool    `json:"tmdb_configured"`
	ActiveUsers       int     `json:"active_users"`
	Uptime            float64 `json:"uptime_seconds"`
}

// LoginRequest is the POST /api/v1/auth/login payload.
type LoginRequest struct {
	Username   string `json:"username"`
	Password   string `json:"password"`
	RememberMe bool   `json:"remember_me,omitempty"`
}

// LoginResponse carries the issued token; the same token is also set as an
// HTTP-only cookie.
type LoginResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expires_at"`
}
