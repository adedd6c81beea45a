// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/reelroom/reelroom/internal/models"
	"github.com/reelroom/reelroom/internal/tmdb"
)

// Search handles GET /api/v1/catalog/search?query=matrix&page=1.
func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "query is required", nil)
		return
	}
	page := getIntParam(r, "page", 1)
	if page < 1 {
		page = 1
	}

	results, cached, err := h.tmdbClient.SearchMulti(r.Context(), query, page)
	if err != nil {
		h.respondTMDBError(w, err)
		return
	}

	h.respondCatalog(w, results, cached)
}

// MovieDetail handles GET /api/v1/catalog/movie/{id}.
func (h *Handler) MovieDetail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, "movie")
}

// TVDetail handles GET /api/v1/catalog/tv/{id}.
func (h *Handler) TVDetail(w http.ResponseWriter, r *http.Request) {
	h.detail(w, r, "tv")
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request, mediaType string) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "id must be a positive integer", nil)
		return
	}

	var (
		result *models.TMDBDetail
		cached bool
	)
	if mediaType == "movie" {
		result, cached, err = h.tmdbClient.MovieDetail(r.Context(), id)
	} else {
		result, cached, err = h.tmdbClient.TVDetail(r.Context(), id)
	}
	if err != nil {
		h.respondTMDBError(w, err)
		return
	}

	h.respondCatalog(w, result, cached)
}

// Trending handles GET /api/v1/catalog/trending?media_type=movie.
func (h *Handler) Trending(w http.ResponseWriter, r *http.Request) {
	mediaType := r.URL.Query().Get("media_type")
	if mediaType == "" {
		mediaType = "all"
	}
	if mediaType != "all" && mediaType != "movie" && mediaType != "tv" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "media_type must be all, movie or tv", nil)
		return
	}

	results, cached, err := h.tmdbClient.Trending(r.Context(), mediaType)
	if err != nil {
		h.respondTMDBError(w, err)
		return
	}

	h.respondCatalog(w, results, cached)
}

func (h *Handler) respondCatalog(w http.ResponseWriter, data interface{}, cached bool) {
	respondJSON(w, http.StatusOK, &models.APIResponse{
		Status: "success",
		Data:   data,
		Metadata: models.Metadata{
			Timestamp: time.Now(),
			Cached:    cached,
		},
	})
}

func (h *Handler) respondTMDBError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, tmdb.ErrNotConfigured):
		respondError(w, http.StatusServiceUnavailable, "SERVICE_UNAVAILABLE", "catalog service is not configured", nil)
	case errors.Is(err, tmdb.ErrUpstream):
		respondError(w, http.StatusBadGateway, "UPSTREAM_ERROR", "catalog service is unavailable", err)
	default:
		respondError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "catalog request failed", err)
	}
}
