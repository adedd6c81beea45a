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

	"github.com/google/uuid"

	"github.com/reelroom/reelroom/internal/metrics"
	"github.com/reelroom/reelroom/internal/models"
)

// AddToWatchlist adds a title to a user's watchlist. Adding a title that is
// already listed returns the existing item unchanged.
func (db *DB) AddToWatchlist(ctx context.Context, userID string, req *models.WatchlistAddRequest) (*models.WatchlistItem, error) {
	if existing, err := db.getWatchlistItem(ctx, userID, req.MediaType, req.MediaID); err == nil {
		return existing, nil
	} else if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	item := &models.WatchlistItem{
		ID:        uuid.NewString(),
		UserID:    userID,
		MediaType: req.MediaType,
		MediaID:   req.MediaID,
		AddedAt:   time.Now().UTC(),
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO watchlist_items (id, user_id, media_type, media_id, added_at)
		 VALUES (?, ?, ?, ?, ?)`,
		item.ID, item.UserID, item.MediaType, item.MediaID, item.AddedAt,
	)
	metrics.RecordDBQuery("INSERT", "watchlist_items", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert watchlist item: %w", err)
	}

	return item, nil
}

// ListWatchlist returns a user's watchlist, most recently added first.
func (db *DB) ListWatchlist(ctx context.Context, userID string, limit, offset int) ([]models.WatchlistItem, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, media_type, media_id, added_at
		 FROM watchlist_items
		 WHERE user_id = ?
		 ORDER BY added_at DESC
		 LIMIT ? OFFSET ?`,
		userID, limit, offset)
	metrics.RecordDBQuery("SELECT", "watchlist_items", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list watchlist: %w", err)
	}
	defer rows.Close()

	items := make([]models.WatchlistItem, 0)
	for rows.Next() {
		var item models.WatchlistItem
		if err := rows.Scan(&item.ID, &item.UserID, &item.MediaType, &item.MediaID, &item.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist item: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate watchlist: %w", err)
	}

	return items, nil
}

// RemoveFromWatchlist deletes a watchlist item owned by the user.
func (db *DB) RemoveFromWatchlist(ctx context.Context, userID, itemID string) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM watchlist_items WHERE id = ? AND user_id = ?`, itemID, userID)
	metrics.RecordDBQuery("DELETE", "watchlist_items", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to remove watchlist item: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

func (db *DB) getWatchlistItem(ctx context.Context, userID, mediaType string, mediaID int64) (*models.WatchlistItem, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, media_type, media_id, added_at
		 FROM watchlist_items
		 WHERE user_id = ? AND media_type = ? AND media_id = ?`,
		userID, mediaType, mediaID)

	var item models.WatchlistItem
	err := row.Scan(&item.ID, &item.UserID, &item.MediaType, &item.MediaID, &item.AddedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get watchlist item: %w", err)
	}
	return &item, nil
}
