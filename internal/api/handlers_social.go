// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package api

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/reelroom/reelroom/internal/database"
	"github.com/reelroom/reelroom/internal/models"
)

// CreateDiscussion handles POST /api/v1/discussions.
func (h *Handler) CreateDiscussion(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req models.DiscussionCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	discussion, err := h.db.CreateDiscussion(r.Context(), claims.UserID, &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to create discussion", err)
		return
	}

	respondSuccess(w, http.StatusCreated, discussion)
}

// GetDiscussion handles GET /api/v1/discussions/{id}.
func (h *Handler) GetDiscussion(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	discussion, err := h.db.GetDiscussion(r.Context(), id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "discussion not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to load discussion", err)
		return
	}

	respondSuccess(w, http.StatusOK, discussion)
}

// ListDiscussions handles GET /api/v1/discussions?media_type=movie&media_id=603.
func (h *Handler) ListDiscussions(w http.ResponseWriter, r *http.Request) {
	mediaType := r.URL.Query().Get("media_type")
	mediaID := int64(getIntParam(r, "media_id", 0))
	if mediaType != "movie" && mediaType != "tv" {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "media_type must be movie or tv", nil)
		return
	}
	if mediaID <= 0 {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "media_id is required", nil)
		return
	}

	limit, offset := h.pagination(r)
	discussions, err := h.db.ListDiscussions(r.Context(), mediaType, mediaID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list discussions", err)
		return
	}

	respondSuccess(w, http.StatusOK, discussions)
}

// DeleteDiscussion handles DELETE /api/v1/discussions/{id}. Only the author
// may delete; anyone else sees the same 404 as a missing thread.
func (h *Handler) DeleteDiscussion(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")

	if err := h.db.DeleteDiscussion(r.Context(), id, claims.UserID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "discussion not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to delete discussion", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "discussion deleted"})
}

// CreateComment handles POST /api/v1/discussions/{id}/comments.
func (h *Handler) CreateComment(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	discussionID := chi.URLParam(r, "id")

	var req models.CommentCreateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	comment, err := h.db.CreateComment(r.Context(), discussionID, claims.UserID, &req)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "discussion not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to create comment", err)
		return
	}

	respondSuccess(w, http.StatusCreated, comment)
}

// ListComments handles GET /api/v1/discussions/{id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	discussionID := chi.URLParam(r, "id")
	limit, offset := h.pagination(r)

	comments, err := h.db.ListComments(r.Context(), discussionID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list comments", err)
		return
	}

	respondSuccess(w, http.StatusOK, comments)
}

// AddToWatchlist handles POST /api/v1/watchlist. Adding a title twice is
// idempotent and returns the existing item.
func (h *Handler) AddToWatchlist(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req models.WatchlistAddRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	item, err := h.db.AddToWatchlist(r.Context(), claims.UserID, &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to add to watchlist", err)
		return
	}

	respondSuccess(w, http.StatusCreated, item)
}

// ListWatchlist handles GET /api/v1/watchlist.
func (h *Handler) ListWatchlist(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	limit, offset := h.pagination(r)

	items, err := h.db.ListWatchlist(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list watchlist", err)
		return
	}

	respondSuccess(w, http.StatusOK, items)
}

// RemoveFromWatchlist handles DELETE /api/v1/watchlist/{id}.
func (h *Handler) RemoveFromWatchlist(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	itemID := chi.URLParam(r, "id")

	if err := h.db.RemoveFromWatchlist(r.Context(), claims.UserID, itemID); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			respondError(w, http.StatusNotFound, "NOT_FOUND", "watchlist item not found", nil)
			return
		}
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to remove watchlist item", err)
		return
	}

	respondSuccess(w, http.StatusOK, map[string]string{"message": "watchlist item removed"})
}

// UpdateProgress handles PUT /api/v1/progress, upserting the user's position
// in a title.
func (h *Handler) UpdateProgress(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())

	var req models.ProgressUpdateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "VALIDATION_ERROR", "invalid request body", nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondError(w, http.StatusBadRequest, apiErr.Code, apiErr.Message, nil)
		return
	}

	progress, err := h.db.UpsertProgress(r.Context(), claims.UserID, &req)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to update progress", err)
		return
	}

	// Best-effort push so other open tabs of the same account can sync their
	// playback position without polling.
	h.wsHub.BroadcastJSON("progress:update", progress)

	respondSuccess(w, http.StatusOK, progress)
}

// ListProgress handles GET /api/v1/progress, returning the user's recently
// watched titles.
func (h *Handler) ListProgress(w http.ResponseWriter, r *http.Request) {
	claims := ClaimsFromContext(r.Context())
	limit, offset := h.pagination(r)

	progress, err := h.db.ListProgress(r.Context(), claims.UserID, limit, offset)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "DATABASE_ERROR", "failed to list progress", err)
		return
	}

	respondSuccess(w, http.StatusOK, progress)
}
