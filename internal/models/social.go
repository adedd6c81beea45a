// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package models

import (
	"time"
)

// Discussion is a user-started thread about a movie or TV show.
type Discussion struct {
	ID        string    `json:"id"`
	MediaType string    `json:"media_type"` // movie | tv
	MediaID   int64     `json:"media_id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// DiscussionCreateRequest is the POST /api/v1/discussions payload.
type DiscussionCreateRequest struct {
	MediaType string `json:"media_type" validate:"required,oneof=movie tv"`
	MediaID   int64  `json:"media_id" validate:"required,gt=0"`
	Title     string `json:"title" validate:"required,min=1,max=200"`
	Body      string `json:"body" validate:"max=10000"`
}

// Comment is a reply inside a discussion thread.
type Comment struct {
	ID           string    `json:"id"`
	DiscussionID string    `json:"discussion_id"`
	UserID       string    `json:"user_id"`
	Body         string    `json:"body"`
	CreatedAt    time.Time `json:"created_at"`
}

// CommentCreateRequest is the POST /api/v1/discussions/{id}/comments payload.
type CommentCreateRequest struct {
	Body string `json:"body" validate:"required,min=1,max=10000"`
}

// WatchlistItem tracks a title a user intends to watch.
type WatchlistItem struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaID   int64     `json:"media_id"`
	AddedAt   time.Time `json:"added_at"`
}

// WatchlistAddRequest is the POST /api/v1/watchlist payload.
type WatchlistAddRequest struct {
	MediaType string `json:"media_type" validate:"required,oneof=movie tv"`
	MediaID   int64  `json:"media_id" validate:"required,gt=0"`
}

// WatchProgress records how far a user is through a title. Position and
// Duration are seconds; Season/Episode are zero for movies.
type WatchProgress struct {
	UserID    string    `json:"user_id"`
	MediaType string    `json:"media_type"`
	MediaID   int64     `json:"media_id"`
	Season    int       `json:"season,omitempty"`
	Episode   int       `json:"episode,omitempty"`
	Position  int       `json:"position_seconds"`
	Duration  int       `json:"duration_seconds"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ProgressUpdateRequest is the PUT /api/v1/progress payload.
type ProgressUpdateRequest struct {
	MediaType string `json:"media_type" validate:"required,oneof=movie tv"`
	MediaID   int64  `json:"media_id" validate:"required,gt=0"`
	Season    int    `json:"season" validate:"gte=0"`
	Episode   int    `json:"episode" validate:"gte=0"`
	Position  int    `json:"position_seconds" validate:"gte=0"`
	Duration  int    `json:"duration_seconds" validate:"gte=0"`
}
