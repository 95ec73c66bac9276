package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
)

// ExpectedSchemaVersion is the latest schema version that the application
// expects. If the database cannot be migrated to this version, it's a fatal
// error.
const ExpectedSchemaVersion = 3

// Migration represents a database schema migration.
type Migration struct {
	Up          func(*sql.Tx) error
	Description string
	Version     int
}

var migrations = []Migration{
	{
		Version:     1,
		Description: "Initial schema: merchants, aliases, source patterns",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS merchants (
					normalized_name TEXT PRIMARY KEY,
					name TEXT NOT NULL,
					category TEXT NOT NULL,
					subcategory TEXT,
					confidence REAL DEFAULT 0,
					occurrences INTEGER DEFAULT 0,
					last_seen DATETIME DEFAULT CURRENT_TIMESTAMP,
					metadata TEXT
				)`,
				`CREATE INDEX idx_merchants_category ON merchants(category)`,
				`CREATE INDEX idx_merchants_last_seen ON merchants(last_seen)`,

				`CREATE TABLE IF NOT EXISTS merchant_aliases (
					alias TEXT PRIMARY KEY,
					normalized_name TEXT NOT NULL,
					FOREIGN KEY (normalized_name) REFERENCES merchants(normalized_name) ON DELETE CASCADE
				)`,
				`CREATE INDEX idx_aliases_merchant ON merchant_aliases(normalized_name)`,

				`CREATE TABLE IF NOT EXISTS source_patterns (
					source TEXT NOT NULL,
					pattern TEXT NOT NULL,
					kind TEXT NOT NULL,
					accuracy REAL DEFAULT 0.5,
					use_count INTEGER DEFAULT 0,
					last_used DATETIME DEFAULT CURRENT_TIMESTAMP,
					PRIMARY KEY (source, pattern)
				)`,
				`CREATE INDEX idx_source_patterns_source ON source_patterns(source)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     2,
		Description: "Add feedback log and classifier weights",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS feedback (
					id TEXT PRIMARY KEY,
					transaction_id TEXT NOT NULL,
					original TEXT NOT NULL,
					correction TEXT NOT NULL,
					applied BOOLEAN DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_feedback_created ON feedback(created_at)`,
				`CREATE INDEX idx_feedback_transaction ON feedback(transaction_id)`,

				`CREATE TABLE IF NOT EXISTS classifier_weights (
					version INTEGER PRIMARY KEY AUTOINCREMENT,
					input_size INTEGER NOT NULL,
					hidden_size INTEGER NOT NULL,
					w1 TEXT NOT NULL,
					b1 TEXT NOT NULL,
					w2 TEXT NOT NULL,
					b2 TEXT NOT NULL,
					updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
	{
		Version:     3,
		Description: "Add performance samples for stage monitoring",
		Up: func(tx *sql.Tx) error {
			queries := []string{
				`CREATE TABLE IF NOT EXISTS perf_samples (
					id INTEGER PRIMARY KEY AUTOINCREMENT,
					operation TEXT NOT NULL,
					duration_ms INTEGER NOT NULL,
					confidence REAL DEFAULT 0,
					created_at DATETIME DEFAULT CURRENT_TIMESTAMP
				)`,
				`CREATE INDEX idx_perf_samples_created ON perf_samples(created_at)`,
				`CREATE INDEX idx_perf_samples_operation ON perf_samples(operation)`,
			}

			for _, query := range queries {
				if _, err := tx.Exec(query); err != nil {
					return fmt.Errorf("failed to execute query: %w", err)
				}
			}
			return nil
		},
	},
}

// Migrate runs all pending database migrations.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	if _, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version INTEGER PRIMARY KEY,
			applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
		)
	`); err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}

	var current int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(version), 0) FROM schema_migrations`).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	for _, m := range migrations {
		if m.Version <= current {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("failed to begin migration %d: %w", m.Version, err)
		}

		if err := m.Up(tx); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d (%s) failed: %w", m.Version, m.Description, err)
		}

		if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES (?)`, m.Version); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("failed to record migration %d: %w", m.Version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit migration %d: %w", m.Version, err)
		}

		slog.Info("Applied migration", "version", m.Version, "description", m.Description)
	}

	return nil
}
