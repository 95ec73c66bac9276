package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/model"
)

// AppendFeedback appends one immutable feedback entry to the log.
func (s *SQLiteStore) AppendFeedback(ctx context.Context, entry *model.FeedbackEntry) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeedback(entry); err != nil {
		return err
	}

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	original, err := json.Marshal(entry.Original)
	if err != nil {
		return fmt.Errorf("failed to encode feedback original: %w", err)
	}
	correction, err := json.Marshal(entry.Correction)
	if err != nil {
		return fmt.Errorf("failed to encode feedback correction: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO feedback (id, transaction_id, original, correction, applied, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, entry.ID, entry.TransactionID, string(original), string(correction),
		entry.Applied, entry.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to append feedback: %w", err)
	}
	return nil
}

// GetRecentFeedback returns up to limit entries, newest first.
func (s *SQLiteStore) GetRecentFeedback(ctx context.Context, limit int) ([]model.FeedbackEntry, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, transaction_id, original, correction, applied, created_at
		FROM feedback
		ORDER BY created_at DESC, id DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var entries []model.FeedbackEntry
	for rows.Next() {
		var e model.FeedbackEntry
		var original, correction string
		if err := rows.Scan(&e.ID, &e.TransactionID, &original, &correction, &e.Applied, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback: %w", err)
		}
		if err := json.Unmarshal([]byte(original), &e.Original); err != nil {
			return nil, fmt.Errorf("failed to decode feedback original: %w", err)
		}
		if err := json.Unmarshal([]byte(correction), &e.Correction); err != nil {
			return nil, fmt.Errorf("failed to decode feedback correction: %w", err)
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}
