package testfixtures

import (
	"context"
	"testing"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence/sqlite"
)

// NewStore opens a migrated in-memory store that is torn down with the test.
func NewStore(t *testing.T) *sqlite.Store {
	t.Helper()

	store, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("close store: %v", err)
		}
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store
}

// SeedHolder inserts a holder who has accepted the lending rules.
func SeedHolder(t *testing.T, store *sqlite.Store, id, name, location string, at time.Time) {
	t.Helper()

	ctx := context.Background()
	err := store.UpsertHolder(ctx, persistence.Holder{
		ID:          id,
		DisplayName: name,
		Location:    location,
		CreatedAt:   at,
		UpdatedAt:   at,
	})
	if err != nil {
		t.Fatalf("seed holder %s: %v", id, err)
	}
	if err := store.SetRulesAccepted(ctx, id); err != nil {
		t.Fatalf("accept rules for %s: %v", id, err)
	}
}

// SeedCopy inserts an available copy and returns its id.
func SeedCopy(t *testing.T, store *sqlite.Store, title, location string, at time.Time) int64 {
	t.Helper()

	id, err := store.InsertCopy(context.Background(), persistence.Copy{
		Title:     title,
		Author:    "Test Author",
		Location:  location,
		State:     persistence.CopyAvailable,
		CreatedAt: at,
	})
	if err != nil {
		t.Fatalf("seed copy %q: %v", title, err)
	}
	return id
}
