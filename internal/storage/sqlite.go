// Package storage implements the learning store on SQLite.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	sqlite3 "github.com/mattn/go-sqlite3"

	"github.com/ioan-nomad/finante-engine/internal/common"
	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/service"
)

// SQLiteStore implements the service.LearningStore interface using SQLite.
type SQLiteStore struct {
	cacheExpiry   time.Time
	db            *sql.DB
	merchantCache map[string]*model.MerchantRecord
	dbPath        string
	keyLocks      sync.Map // string -> *sync.Mutex
	cacheMutex    sync.RWMutex
}

// queryable abstracts *sql.DB and *sql.Tx.
type queryable interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// NewSQLiteStore creates a new SQLite learning store instance.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if err := validateString(dbPath, "dbPath"); err != nil {
		return nil, err
	}

	// Ensure directory exists
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite doesn't benefit from multiple connections
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &SQLiteStore{
		db:            db,
		dbPath:        dbPath,
		merchantCache: make(map[string]*model.MerchantRecord),
	}, nil
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// lockKey serializes writes for one logical key (merchant normalized name or
// source+pattern pair). Returned function releases the lock.
func (s *SQLiteStore) lockKey(key string) func() {
	v, _ := s.keyLocks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}

// writeRetryOptions bounds the retry budget for store writes that lose the
// database to a concurrent writer.
var writeRetryOptions = service.RetryOptions{
	MaxAttempts:  3,
	InitialDelay: 25 * time.Millisecond,
	MaxDelay:     500 * time.Millisecond,
	Multiplier:   2.0,
}

// withWriteRetry runs a write, retrying when SQLite reports the database as
// busy or locked. Those driver errors map to ErrWriteConflict so conflicts
// resolve by re-running the write instead of surfacing to callers.
func (s *SQLiteStore) withWriteRetry(ctx context.Context, op func() error) error {
	return common.WithRetry(ctx, func() error {
		err := op()
		if isBusy(err) {
			return fmt.Errorf("%w: %v", common.ErrWriteConflict, err)
		}
		return err
	}, writeRetryOptions)
}

func isBusy(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrBusy || sqliteErr.Code == sqlite3.ErrLocked
	}
	return false
}

const cacheTTL = 30 * time.Second

func (s *SQLiteStore) getCachedMerchant(normalizedName string) *model.MerchantRecord {
	s.cacheMutex.RLock()
	defer s.cacheMutex.RUnlock()

	if time.Now().After(s.cacheExpiry) {
		return nil
	}
	if m, ok := s.merchantCache[normalizedName]; ok {
		clone := *m
		return &clone
	}
	return nil
}

func (s *SQLiteStore) cacheMerchant(m *model.MerchantRecord) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()

	if time.Now().After(s.cacheExpiry) {
		s.merchantCache = make(map[string]*model.MerchantRecord)
		s.cacheExpiry = time.Now().Add(cacheTTL)
	}
	clone := *m
	s.merchantCache[m.NormalizedName] = &clone
}

func (s *SQLiteStore) invalidateCachedMerchant(normalizedName string) {
	s.cacheMutex.Lock()
	defer s.cacheMutex.Unlock()
	delete(s.merchantCache, normalizedName)
}
