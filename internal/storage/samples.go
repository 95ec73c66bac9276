package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/service"
)

// RecordSample appends one performance sample.
func (s *SQLiteStore) RecordSample(ctx context.Context, sample *model.PerformanceSample) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if sample == nil {
		return fmt.Errorf("sample cannot be nil")
	}
	if err := validateString(sample.Operation, "sample operation"); err != nil {
		return err
	}

	if sample.CreatedAt.IsZero() {
		sample.CreatedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO perf_samples (operation, duration_ms, confidence, created_at)
		VALUES (?, ?, ?, ?)
	`, sample.Operation, sample.Duration.Milliseconds(), sample.Confidence, sample.CreatedAt)

	if err != nil {
		return fmt.Errorf("failed to record sample: %w", err)
	}
	return nil
}

// Stats returns the read-only monitoring surface of the store.
func (s *SQLiteStore) Stats(ctx context.Context) (*service.StoreStats, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	stats := &service.StoreStats{
		PerSourceAccuracy: make(map[model.Source]float64),
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM merchants`).Scan(&stats.MerchantCount); err != nil {
		return nil, fmt.Errorf("failed to count merchants: %w", err)
	}

	if err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM feedback`).Scan(&stats.FeedbackCount); err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, AVG(accuracy) FROM source_patterns GROUP BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query source accuracy: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var source model.Source
		var accuracy float64
		if err := rows.Scan(&source, &accuracy); err != nil {
			return nil, fmt.Errorf("failed to scan source accuracy: %w", err)
		}
		stats.PerSourceAccuracy[source] = accuracy
	}

	return stats, rows.Err()
}

// Cleanup runs the retention pass: stale low-occurrence merchants are
// removed, the feedback log keeps only the newest N entries, and old
// performance samples are pruned.
func (s *SQLiteStore) Cleanup(ctx context.Context, opts service.CleanupOptions) (*service.CleanupResult, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	result := &service.CleanupResult{}

	cutoff := time.Now().Add(-opts.UnseenWindow)
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM merchants
		WHERE occurrences < ? AND last_seen < ?
	`, opts.MinOccurrences, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to remove stale merchants: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.MerchantsRemoved = int(n)
	}

	res, err = s.db.ExecContext(ctx, `
		DELETE FROM feedback
		WHERE id NOT IN (
			SELECT id FROM feedback ORDER BY created_at DESC, id DESC LIMIT ?
		)
	`, opts.KeepFeedback)
	if err != nil {
		return nil, fmt.Errorf("failed to trim feedback log: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.FeedbackTrimmed = int(n)
	}

	sampleCutoff := time.Now().Add(-opts.SampleMaxAge)
	res, err = s.db.ExecContext(ctx, `
		DELETE FROM perf_samples WHERE created_at < ?
	`, sampleCutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to prune samples: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil {
		result.SamplesPruned = int(n)
	}

	return result, nil
}
