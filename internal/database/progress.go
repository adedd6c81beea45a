// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/models"
)

// UpsertProgress records or updates a user's watch position for a title.
func (db *DB) UpsertProgress(ctx context.Context, userID string, req *models.ProgressUpdateRequest) (*models.WatchProgress, error) {
	p := &models.WatchProgress{
		UserID:    userID,
		MediaType: req.MediaType,
		MediaID:   req.MediaID,
		Season:    req.Season,
		Episode:   req.Episode,
		Position:  req.Position,
		Duration:  req.Duration,
		UpdatedAt: time.Now().UTC(),
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO watch_progress (user_id, media_type, media_id, season, episode, position_seconds, duration_seconds, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (user_id, media_type, media_id) DO UPDATE SET
		   season = excluded.season,
		   episode = excluded.episode,
		   position_seconds = excluded.position_seconds,
		   duration_seconds = excluded.duration_seconds,
		   updated_at = excluded.updated_at`,
		p.UserID, p.MediaType, p.MediaID, p.Season, p.Episode, p.Position, p.Duration, p.UpdatedAt,
	)
	metrics.RecordDBQuery("UPSERT", "watch_progress", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert progress: %w", err)
	}

	return p, nil
}

// GetProgress returns a user's progress for one title, or ErrNotFound.
func (db *DB) GetProgress(ctx context.Context, userID, mediaType string, mediaID int64) (*models.WatchProgress, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT user_id, media_type, media_id, season, episode, position_seconds, duration_seconds, updated_at
		 FROM watch_progress
		 WHERE user_id = ? AND media_type = ? AND media_id = ?`,
		userID, mediaType, mediaID)

	var p models.WatchProgress
	err := row.Scan(&p.UserID, &p.MediaType, &p.MediaID, &p.Season, &p.Episode, &p.Position, &p.Duration, &p.UpdatedAt)
	metrics.RecordDBQuery("SELECT", "watch_progress", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get progress: %w", err)
	}

	return &p, nil
}

// ListProgress returns a user's in-progress titles, most recently watched
// first.
func (db *DB) ListProgress(ctx context.Context, userID string, limit, offset int) ([]models.WatchProgress, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT user_id, media_type, media_id, season, episode, position_seconds, duration_seconds, updated_at
		 FROM watch_progress
		 WHERE user_id = ?
		 ORDER BY updated_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset)
	metrics.RecordDBQuery("SELECT", "watch_progress", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list progress: %w", err)
	}
	defer rows.Close()

	items := make([]models.WatchProgress, 0)
	for rows.Next() {
		var p models.WatchProgress
		if err := rows.Scan(&p.UserID, &p.MediaType, &p.MediaID, &p.Season, &p.Episode, &p.Position, &p.Duration, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan progress: %w", err)
		}
		items = append(items, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate progress: %w", err)
	}

	return items, nil
}
