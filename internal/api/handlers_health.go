// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"net/http"
	"time"

	"github.com/reelroom/reelroom/internal/models"
)

// Health handles GET /api/v1/health with a full dependency report.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	dbConnected := false
	if h.db != nil {
		dbConnected = h.db.Ping(r.Context()) == nil
	}

	status := "healthy"
	httpStatus := http.StatusOK
	if !dbConnected {
		status = "degraded"
		httpStatus = http.StatusServiceUnavailable
	}

	respondRaw(w, httpStatus, models.HealthStatus{
		Status:            status,
		Version:           h.version,
		DatabaseConnected: dbConnected,
		TMDBConfigured:    h.tmdbClient != nil && h.tmdbClient.Configured(),
		ActiveUsers:       h.registry.Count(),
		Uptime:            time.Since(h.startTime).Seconds(),
	})
}

// HealthLive handles GET /api/v1/health/live. Always 200 while the process
// serves requests; used as the container liveness probe.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	respondRaw(w, http.StatusOK, map[string]string{"status": "alive"})
}

// HealthReady handles GET /api/v1/health/ready. Fails until the database
// answers, so the container is not routed traffic before storage is up.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	if h.db == nil || h.db.Ping(r.Context()) != nil {
		respondRaw(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready"})
		return
	}
	respondRaw(w, http.StatusOK, map[string]string{"status": "ready"})
}
