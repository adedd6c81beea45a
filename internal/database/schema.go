// Reelroom - Streaming Aggregator with Social Watch Features
// Copyright 2026 Reelroom Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/reelroom/reelroom

package database

import (
	"context"
	"fmt"
	"time"
)

// createTables creates the social data schema. All statements are idempotent
// so startup after a crash is safe.
func (db *DB) createTables() error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	queries := []string{
		`CREATE TABLE IF NOT EXISTS discussions (
			id UUID PRIMARY KEY,
			media_type TEXT NOT NULL,
			media_id BIGINT NOT NULL,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS comments (
			id UUID PRIMARY KEY,
			discussion_id UUID NOT NULL,
			user_id TEXT NOT NULL,
			body TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,
		`CREATE TABLE IF NOT EXISTS watchlist_items (
			id UUID PRIMARY KEY,
			user_id TEXT NOT NULL,
			media_type TEXT NOT NULL,
			media_id BIGINT NOT NULL,
			added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			UNIQUE (user_id, media_type, media_id)
		)`,
		`CREATE TABLE IF NOT EXISTS watch_progress (
			user_id TEXT NOT NULL,
			media_type TEXT NOT NULL,
			media_id BIGINT NOT NULL,
			season INTEGER NOT NULL DEFAULT 0,
			episode INTEGER NOT NULL DEFAULT 0,
			position_seconds INTEGER NOT NULL DEFAULT 0,
			duration_seconds INTEGER NOT NULL DEFAULT 0,
			updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (user_id, media_type, media_id)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_discussions_media ON discussions (media_type, media_id)`,
		`CREATE INDEX IF NOT EXISTS idx_comments_discussion ON comments (discussion_id)`,
		`CREATE INDEX IF NOT EXISTS idx_watchlist_user ON watchlist_items (user_id)`,
	}

	for _, query := range queries {
		if _, err := db.conn.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to execute query: %s: %w", query, err)
		}
	}

	return nil
}
