package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
)

// accuracyBlend controls how far a stored accuracy moves toward a new
// candidate on upsert.
const accuracyBlend = 0.3

// UpsertSourcePattern creates or updates a pattern keyed by (source, pattern).
// On conflict the stored accuracy is blended toward the candidate instead of
// being overwritten, and use counts accumulate.
func (s *SQLiteStore) UpsertSourcePattern(ctx context.Context, pattern *model.SourcePattern) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateSourcePattern(pattern); err != nil {
		return err
	}

	unlock := s.lockKey("pattern:" + string(pattern.Source) + ":" + pattern.Pattern)
	defer unlock()

	if pattern.LastUsed.IsZero() {
		pattern.LastUsed = time.Now()
	}

	return s.withWriteRetry(ctx, func() error {
		_, err := s.db.ExecContext(ctx, `
			INSERT INTO source_patterns (source, pattern, kind, accuracy, use_count, last_used)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(source, pattern) DO UPDATE SET
				kind = excluded.kind,
				accuracy = source_patterns.accuracy + (excluded.accuracy - source_patterns.accuracy) * ?,
				use_count = source_patterns.use_count + MAX(excluded.use_count, 1),
				last_used = excluded.last_used
		`, pattern.Source, pattern.Pattern, pattern.Kind, pattern.Accuracy,
			pattern.UseCount, pattern.LastUsed, accuracyBlend)

		if err != nil {
			return fmt.Errorf("failed to upsert source pattern: %w", err)
		}
		return nil
	})
}

// GetSourcePatterns retrieves all patterns for one source.
func (s *SQLiteStore) GetSourcePatterns(ctx context.Context, source model.Source) ([]model.SourcePattern, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(string(source), "source"); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT source, pattern, kind, accuracy, use_count, last_used
		FROM source_patterns
		WHERE source = ?
		ORDER BY accuracy DESC, use_count DESC
	`, source)
	if err != nil {
		return nil, fmt.Errorf("failed to query source patterns: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var patterns []model.SourcePattern
	for rows.Next() {
		var p model.SourcePattern
		if err := rows.Scan(&p.Source, &p.Pattern, &p.Kind, &p.Accuracy, &p.UseCount, &p.LastUsed); err != nil {
			return nil, fmt.Errorf("failed to scan source pattern: %w", err)
		}
		patterns = append(patterns, p)
	}

	return patterns, rows.Err()
}

// AdjustPatternAccuracy shifts a pattern's accuracy by delta, clamped to
// [0,1], and bumps its usage. Feedback events adjust accuracy; nothing ever
// overwrites it wholesale.
func (s *SQLiteStore) AdjustPatternAccuracy(ctx context.Context, source model.Source, pattern string, delta float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(string(source), "source"); err != nil {
		return err
	}
	if err := validateString(pattern, "pattern"); err != nil {
		return err
	}

	unlock := s.lockKey("pattern:" + string(source) + ":" + pattern)
	defer unlock()

	return s.withWriteRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE source_patterns
			SET accuracy = MIN(1.0, MAX(0.0, accuracy + ?)),
			    use_count = use_count + 1,
			    last_used = ?
			WHERE source = ? AND pattern = ?
		`, delta, time.Now(), source, pattern)
		if err != nil {
			return fmt.Errorf("failed to adjust pattern accuracy: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return common.ErrNotFound
		}
		return nil
	})
}
