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

// CreateDiscussion inserts a new discussion thread and returns it with server
// assigned ID and timestamps.
func (db *DB) CreateDiscussion(ctx context.Context, userID string, req *models.DiscussionCreateRequest) (*models.Discussion, error) {
	now := time.Now().UTC()
	d := &models.Discussion{
		ID:        uuid.NewString(),
		MediaType: req.MediaType,
		MediaID:   req.MediaID,
		UserID:    userID,
		Title:     req.Title,
		Body:      req.Body,
		CreatedAt: now,
		UpdatedAt: now,
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO discussions (id, media_type, media_id, user_id, title, body, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		d.ID, d.MediaType, d.MediaID, d.UserID, d.Title, d.Body, d.CreatedAt, d.UpdatedAt,
	)
	metrics.RecordDBQuery("INSERT", "discussions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert discussion: %w", err)
	}

	return d, nil
}

// GetDiscussion returns a discussion by ID, or ErrNotFound.
func (db *DB) GetDiscussion(ctx context.Context, id string) (*models.Discussion, error) {
	start := time.Now()
	row := db.conn.QueryRowContext(ctx,
		`SELECT id, media_type, media_id, user_id, title, body, created_at, updated_at
		 FROM discussions WHERE id = ?`, id)

	var d models.Discussion
	err := row.Scan(&d.ID, &d.MediaType, &d.MediaID, &d.UserID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt)
	metrics.RecordDBQuery("SELECT", "discussions", time.Since(start), err)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get discussion: %w", err)
	}

	return &d, nil
}

// ListDiscussions returns discussions for a title, newest first.
func (db *DB) ListDiscussions(ctx context.Context, mediaType string, mediaID int64, limit, offset int) ([]models.Discussion, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, media_type, media_id, user_id, title, body, created_at, updated_at
		 FROM discussions
		 WHERE media_type = ? AND media_id = ?
		 ORDER BY created_at DESC
		 LIMIT ? OFFSET ?`,
		mediaType, mediaID, limit, offset)
	metrics.RecordDBQuery("SELECT", "discussions", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list discussions: %w", err)
	}
	defer rows.Close()

	discussions := make([]models.Discussion, 0)
	for rows.Next() {
		var d models.Discussion
		if err := rows.Scan(&d.ID, &d.MediaType, &d.MediaID, &d.UserID, &d.Title, &d.Body, &d.CreatedAt, &d.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan discussion: %w", err)
		}
		discussions = append(discussions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate discussions: %w", err)
	}

	return discussions, nil
}

// DeleteDiscussion removes a discussion and its comments. Only the author may
// delete; ErrNotFound covers both a missing row and a foreign author so the
// API does not leak which one happened.
func (db *DB) DeleteDiscussion(ctx context.Context, id, userID string) error {
	start := time.Now()
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM discussions WHERE id = ? AND user_id = ?`, id, userID)
	metrics.RecordDBQuery("DELETE", "discussions", time.Since(start), err)
	if err != nil {
		return fmt.Errorf("failed to delete discussion: %w", err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}

	if _, err := db.conn.ExecContext(ctx,
		`DELETE FROM comments WHERE discussion_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete discussion comments: %w", err)
	}

	return nil
}

// CreateComment inserts a comment on a discussion. Returns ErrNotFound if the
// discussion does not exist.
func (db *DB) CreateComment(ctx context.Context, discussionID, userID string, req *models.CommentCreateRequest) (*models.Comment, error) {
	if _, err := db.GetDiscussion(ctx, discussionID); err != nil {
		return nil, err
	}

	c := &models.Comment{
		ID:           uuid.NewString(),
		DiscussionID: discussionID,
		UserID:       userID,
		Body:         req.Body,
		CreatedAt:    time.Now().UTC(),
	}

	start := time.Now()
	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO comments (id, discussion_id, user_id, body, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.DiscussionID, c.UserID, c.Body, c.CreatedAt,
	)
	metrics.RecordDBQuery("INSERT", "comments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}

	return c, nil
}

// ListComments returns a discussion's comments in posting order.
func (db *DB) ListComments(ctx context.Context, discussionID string, limit, offset int) ([]models.Comment, error) {
	start := time.Now()
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, discussion_id, user_id, body, created_at
		 FROM comments
		 WHERE discussion_id = ?
		 ORDER BY created_at ASC
		 LIMIT ? OFFSET ?`,
		discussionID, limit, offset)
	metrics.RecordDBQuery("SELECT", "comments", time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]models.Comment, 0)
	for rows.Next() {
		var c models.Comment
		if err := rows.Scan(&c.ID, &c.DiscussionID, &c.UserID, &c.Body, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}

	return comments, nil
}
