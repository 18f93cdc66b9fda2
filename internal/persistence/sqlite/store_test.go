package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

var baseTime = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

func setupStore(t *testing.T) *Store {
	t.Helper()

	store, err := Open(":memory:")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Errorf("Close failed: %v", err)
		}
	})

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return store
}

func insertHolder(t *testing.T, store *Store, id string) {
	t.Helper()

	err := store.UpsertHolder(context.Background(), persistence.Holder{
		ID:          id,
		DisplayName: "Holder " + id,
		Location:    "Main",
		CreatedAt:   baseTime,
		UpdatedAt:   baseTime,
	})
	if err != nil {
		t.Fatalf("UpsertHolder failed: %v", err)
	}
}

func insertCopy(t *testing.T, store *Store, title string) int64 {
	t.Helper()

	id, err := store.InsertCopy(context.Background(), persistence.Copy{
		Title:     title,
		Author:    "Author",
		Location:  "Main",
		State:     persistence.CopyAvailable,
		CreatedAt: baseTime,
	})
	if err != nil {
		t.Fatalf("InsertCopy failed: %v", err)
	}
	return id
}

func insertReservation(t *testing.T, store *Store, id, holderID string, copyID int64, title string) persistence.Reservation {
	t.Helper()

	reservation := persistence.Reservation{
		ID:        id,
		HolderID:  holderID,
		CopyID:    copyID,
		Title:     title,
		Location:  "Main",
		Start:     baseTime,
		Duration:  "1_week",
		End:       baseTime.Add(7 * 24 * time.Hour),
		Status:    persistence.ReservationActive,
		CreatedAt: baseTime,
	}
	if err := store.InsertReservation(context.Background(), reservation); err != nil {
		t.Fatalf("InsertReservation failed: %v", err)
	}
	return reservation
}

func TestWithTx_RollsBackOnError(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	insertHolder(t, store, "holder1")

	wantErr := context.DeadlineExceeded
	err := store.WithTx(ctx, func(ctx context.Context) error {
		if err := store.SetRulesAccepted(ctx, "holder1"); err != nil {
			t.Fatalf("SetRulesAccepted failed: %v", err)
		}
		return wantErr
	})
	if err != wantErr {
		t.Fatalf("WithTx returned %v, want %v", err, wantErr)
	}

	holder, err := store.GetHolder(ctx, "holder1")
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if holder.RulesAccepted {
		t.Error("rules acceptance survived a rolled back transaction")
	}
}

func TestWithTx_NestedCallJoinsTransaction(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	insertHolder(t, store, "holder1")

	err := store.WithTx(ctx, func(ctx context.Context) error {
		return store.WithTx(ctx, func(ctx context.Context) error {
			return store.SetRulesAccepted(ctx, "holder1")
		})
	})
	if err != nil {
		t.Fatalf("nested WithTx failed: %v", err)
	}

	holder, err := store.GetHolder(ctx, "holder1")
	if err != nil {
		t.Fatalf("GetHolder failed: %v", err)
	}
	if !holder.RulesAccepted {
		t.Error("nested transaction write was not committed")
	}
}
