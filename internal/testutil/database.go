// Package testutil provides shared helpers for learning-store backed tests.
package testutil

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/ioan-nomad/finante-engine/internal/model"
	"github.com/ioan-nomad/finante-engine/internal/storage"
)

// SetupStore creates a migrated SQLite learning store in a per-test temp
// directory and registers its cleanup.
func SetupStore(t *testing.T) *storage.SQLiteStore {
	t.Helper()

	store, err := storage.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create test store: %v", err)
	}
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to migrate test store: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})
	return store
}

// SeedMerchants inserts the given records, failing the test on error.
// Records without a last-seen timestamp get the current time.
func SeedMerchants(t *testing.T, store *storage.SQLiteStore, merchants ...*model.MerchantRecord) {
	t.Helper()

	ctx := context.Background()
	for _, m := range merchants {
		if m.LastSeen.IsZero() {
			m.LastSeen = time.Now()
		}
		if err := store.UpsertMerchant(ctx, m); err != nil {
			t.Fatalf("failed to seed merchant %q: %v", m.NormalizedName, err)
		}
	}
}
