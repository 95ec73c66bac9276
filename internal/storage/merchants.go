package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
)

// GetMerchant retrieves a merchant by its normalized name.
func (s *SQLiteStore) GetMerchant(ctx context.Context, normalizedName string) (*model.MerchantRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return nil, err
	}

	if m := s.getCachedMerchant(normalizedName); m != nil {
		return m, nil
	}

	return s.getMerchantTx(ctx, s.db, normalizedName)
}

func (s *SQLiteStore) getMerchantTx(ctx context.Context, q queryable, normalizedName string) (*model.MerchantRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT normalized_name, name, category, COALESCE(subcategory, ''),
		       confidence, occurrences, last_seen, COALESCE(metadata, '')
		FROM merchants
		WHERE normalized_name = ?
	`, normalizedName)

	merchant, err := scanMerchant(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get merchant: %w", err)
	}

	if err := s.loadAliases(ctx, q, merchant); err != nil {
		return nil, err
	}

	s.cacheMerchant(merchant)
	return merchant, nil
}

// GetMerchantByAlias resolves a registered alias to its canonical merchant.
func (s *SQLiteStore) GetMerchantByAlias(ctx context.Context, alias string) (*model.MerchantRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(alias, "alias"); err != nil {
		return nil, err
	}

	var normalizedName string
	err := s.db.QueryRowContext(ctx, `
		SELECT normalized_name FROM merchant_aliases WHERE alias = ?
	`, alias).Scan(&normalizedName)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to resolve alias: %w", err)
	}

	return s.GetMerchant(ctx, normalizedName)
}

// UpsertMerchant creates or updates a merchant keyed by normalized name.
// Confidence is blended, never blindly overwritten: the stored value only
// moves toward the candidate, and MAX wins on conflict. Writes for the same
// key are serialized.
func (s *SQLiteStore) UpsertMerchant(ctx context.Context, merchant *model.MerchantRecord) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateMerchant(merchant); err != nil {
		return err
	}

	unlock := s.lockKey("merchant:" + merchant.NormalizedName)
	defer unlock()

	if merchant.LastSeen.IsZero() {
		merchant.LastSeen = time.Now()
	}

	metadata := ""
	if len(merchant.Metadata) > 0 {
		raw, err := json.Marshal(merchant.Metadata)
		if err != nil {
			return fmt.Errorf("failed to encode merchant metadata: %w", err)
		}
		metadata = string(raw)
	}

	if err := s.withWriteRetry(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin transaction: %w", err)
		}
		defer func() { _ = tx.Rollback() }()

		_, err = tx.ExecContext(ctx, `
			INSERT INTO merchants (normalized_name, name, category, subcategory, confidence, occurrences, last_seen, metadata)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(normalized_name) DO UPDATE SET
				name = excluded.name,
				category = excluded.category,
				subcategory = excluded.subcategory,
				confidence = MAX(merchants.confidence, excluded.confidence),
				occurrences = MAX(merchants.occurrences, excluded.occurrences),
				last_seen = excluded.last_seen,
				metadata = excluded.metadata
		`, merchant.NormalizedName, merchant.Name, merchant.Category,
			nullable(merchant.Subcategory), merchant.Confidence, merchant.Occurrences,
			merchant.LastSeen, nullable(metadata))

		if err != nil {
			return fmt.Errorf("failed to upsert merchant: %w", err)
		}

		for _, alias := range merchant.Aliases {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO merchant_aliases (alias, normalized_name)
				VALUES (?, ?)
				ON CONFLICT(alias) DO UPDATE SET normalized_name = excluded.normalized_name
			`, alias, merchant.NormalizedName); err != nil {
				return fmt.Errorf("failed to upsert alias %q: %w", alias, err)
			}
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit merchant upsert: %w", err)
		}
		return nil
	}); err != nil {
		return err
	}

	s.invalidateCachedMerchant(merchant.NormalizedName)
	return nil
}

// SetMerchantCategory moves a merchant to a new category with the given
// confidence, overriding the blended MAX update. Used by the feedback
// processor where a correction must lower the old category's standing.
func (s *SQLiteStore) SetMerchantCategory(ctx context.Context, normalizedName, category, subcategory string, confidence float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(normalizedName, "normalizedName"); err != nil {
		return err
	}
	if err := validateString(category, "category"); err != nil {
		return err
	}

	unlock := s.lockKey("merchant:" + normalizedName)
	defer unlock()

	if err := s.withWriteRetry(ctx, func() error {
		res, err := s.db.ExecContext(ctx, `
			UPDATE merchants
			SET category = ?, subcategory = ?, confidence = ?, last_seen = ?
			WHERE normalized_name = ?
		`, category, nullable(subcategory), confidence, time.Now(), normalizedName)
		if err != nil {
			return fmt.Errorf("failed to set merchant category: %w", err)
		}

		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read rows affected: %w", err)
		}
		if n == 0 {
			return common.ErrNotFound
		}
		return nil
	}); err != nil {
		return err
	}

	s.invalidateCachedMerchant(normalizedName)
	return nil
}

// GetAllMerchants retrieves every merchant record.
func (s *SQLiteStore) GetAllMerchants(ctx context.Context) ([]model.MerchantRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.queryMerchants(ctx, `
		SELECT normalized_name, name, category, COALESCE(subcategory, ''),
		       confidence, occurrences, last_seen, COALESCE(metadata, '')
		FROM merchants
		ORDER BY normalized_name
	`)
}

// GetMerchantsByCategory retrieves merchants in the given category.
func (s *SQLiteStore) GetMerchantsByCategory(ctx context.Context, category string) ([]model.MerchantRecord, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(category, "category"); err != nil {
		return nil, err
	}
	return s.queryMerchants(ctx, `
		SELECT normalized_name, name, category, COALESCE(subcategory, ''),
		       confidence, occurrences, last_seen, COALESCE(metadata, '')
		FROM merchants
		WHERE category = ?
		ORDER BY occurrences DESC
	`, category)
}

func (s *SQLiteStore) queryMerchants(ctx context.Context, query string, args ...any) ([]model.MerchantRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query merchants: %w", err)
	}

	var merchants []model.MerchantRecord
	for rows.Next() {
		m, err := scanMerchant(rows)
		if err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan merchant: %w", err)
		}
		merchants = append(merchants, *m)
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return nil, err
	}

	// The pool holds a single connection, so rows must be fully drained and
	// closed before any other query runs. Aliases load in a second pass.
	if err := rows.Close(); err != nil {
		return nil, fmt.Errorf("failed to close merchant rows: %w", err)
	}

	for i := range merchants {
		if err := s.loadAliases(ctx, s.db, &merchants[i]); err != nil {
			return nil, err
		}
	}
	return merchants, nil
}

func (s *SQLiteStore) loadAliases(ctx context.Context, q queryable, m *model.MerchantRecord) error {
	rows, err := q.QueryContext(ctx, `
		SELECT alias FROM merchant_aliases WHERE normalized_name = ? ORDER BY alias
	`, m.NormalizedName)
	if err != nil {
		return fmt.Errorf("failed to load aliases: %w", err)
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var alias string
		if err := rows.Scan(&alias); err != nil {
			return fmt.Errorf("failed to scan alias: %w", err)
		}
		m.Aliases = append(m.Aliases, alias)
	}
	return rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanMerchant(row rowScanner) (*model.MerchantRecord, error) {
	var m model.MerchantRecord
	var metadata string

	if err := row.Scan(
		&m.NormalizedName,
		&m.Name,
		&m.Category,
		&m.Subcategory,
		&m.Confidence,
		&m.Occurrences,
		&m.LastSeen,
		&metadata,
	); err != nil {
		return nil, err
	}

	if metadata != "" {
		if err := json.Unmarshal([]byte(metadata), &m.Metadata); err != nil {
			return nil, fmt.Errorf("failed to decode merchant metadata: %w", err)
		}
	}

	return &m, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
