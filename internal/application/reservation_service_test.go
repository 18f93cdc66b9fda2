package application_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence/sqlite"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/testfixtures"
)

var testStart = time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)

type env struct {
	store        *sqlite.Store
	clock        *testfixtures.Clock
	ids          *testfixtures.IDGenerator
	notifier     *testfixtures.NotifierSpy
	reservations *application.ReservationService
}

func newEnv(t *testing.T) *env {
	t.Helper()

	store := testfixtures.NewStore(t)
	clock := testfixtures.NewClock(testStart)
	ids := testfixtures.NewIDGenerator("res")
	notifier := testfixtures.NewNotifierSpy()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	return &env{
		store:    store,
		clock:    clock,
		ids:      ids,
		notifier: notifier,
		reservations: application.NewReservationService(
			store, notifier, ids.Next, clock.Now, logger, time.Second),
	}
}

func (e *env) reserve(t *testing.T, holderID, title string, class application.DurationClass) application.ReserveResult {
	t.Helper()
	result, err := e.reservations.Reserve(context.Background(), application.ReserveParams{
		HolderID: holderID,
		Title:    title,
		Location: "Main",
		Duration: class,
	})
	if err != nil {
		t.Fatalf("reserve %q for %s: %v", title, holderID, err)
	}
	return result
}

func TestReserveTakesLowestAvailableCopy(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	first := testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)

	result := e.reserve(t, "holder-1", "Dune", application.OneWeek)

	if result.Copy.ID != first {
		t.Errorf("copy id = %d, want %d", result.Copy.ID, first)
	}
	wantEnd := testStart.Add(7 * 24 * time.Hour)
	if !result.End.Equal(wantEnd) {
		t.Errorf("end = %v, want %v", result.End, wantEnd)
	}

	reservation, err := e.store.ActiveReservationForHolder(context.Background(), "holder-1")
	if err != nil {
		t.Fatalf("active reservation: %v", err)
	}
	if reservation.ID != result.ReservationID {
		t.Errorf("active reservation id = %s, want %s", reservation.ID, result.ReservationID)
	}

	copyRecord, err := e.store.GetCopy(context.Background(), first)
	if err != nil {
		t.Fatalf("get copy: %v", err)
	}
	if copyRecord.State != persistence.CopyReserved {
		t.Errorf("copy state = %s, want %s", copyRecord.State, persistence.CopyReserved)
	}
}

func TestReserveMatchesTitleCaseInsensitively(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)

	result := e.reserve(t, "holder-1", "dUNE", application.OneHour)

	if result.Copy.Title != "Dune" {
		t.Errorf("copy title = %q, want %q", result.Copy.Title, "Dune")
	}
}

func TestReserveRejectsSecondActiveReservation(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Solaris", "Main", testStart)
	e.reserve(t, "holder-1", "Dune", application.OneWeek)

	_, err := e.reservations.Reserve(context.Background(), application.ReserveParams{
		HolderID: "holder-1",
		Title:    "Solaris",
		Location: "Main",
		Duration: application.OneWeek,
	})
	if !errors.Is(err, application.ErrAlreadyHolding) {
		t.Errorf("err = %v, want ErrAlreadyHolding", err)
	}
}

func TestReserveDistinguishesExhaustedFromUnknownTitle(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedHolder(t, e.store, "holder-2", "Grace", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	e.reserve(t, "holder-1", "Dune", application.OneWeek)

	_, err := e.reservations.Reserve(context.Background(), application.ReserveParams{
		HolderID: "holder-2",
		Title:    "Dune",
		Location: "Main",
		Duration: application.OneWeek,
	})
	if !errors.Is(err, application.ErrNoCopyAvailable) {
		t.Errorf("exhausted title: err = %v, want ErrNoCopyAvailable", err)
	}

	_, err = e.reservations.Reserve(context.Background(), application.ReserveParams{
		HolderID: "holder-2",
		Title:    "Hyperion",
		Location: "Main",
		Duration: application.OneWeek,
	})
	if !errors.Is(err, application.ErrNotFound) {
		t.Errorf("unknown title: err = %v, want ErrNotFound", err)
	}
}

func TestReserveRequiresAcceptedRules(t *testing.T) {
	e := newEnv(t)
	err := e.store.UpsertHolder(context.Background(), persistence.Holder{
		ID:          "holder-1",
		DisplayName: "Ada",
		Location:    "Main",
		CreatedAt:   testStart,
		UpdatedAt:   testStart,
	})
	if err != nil {
		t.Fatalf("upsert holder: %v", err)
	}
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)

	_, err = e.reservations.Reserve(context.Background(), application.ReserveParams{
		HolderID: "holder-1",
		Title:    "Dune",
		Location: "Main",
		Duration: application.OneWeek,
	})
	if !errors.Is(err, application.ErrRulesNotAccepted) {
		t.Errorf("err = %v, want ErrRulesNotAccepted", err)
	}
}

func TestReserveValidatesParams(t *testing.T) {
	e := newEnv(t)

	_, err := e.reservations.Reserve(context.Background(), application.ReserveParams{
		HolderID: "",
		Title:    "Dune",
		Location: "Main",
		Duration: application.DurationClass("fortnight"),
	})

	var validation *application.ValidationError
	if !errors.As(err, &validation) {
		t.Fatalf("err = %v, want ValidationError", err)
	}
	for _, field := range []string{"holder_id", "duration"} {
		if _, ok := validation.FieldErrors[field]; !ok {
			t.Errorf("missing field error for %s", field)
		}
	}
}

func TestCompleteFreesCopyAndFinishesReservation(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	copyID := testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	result := e.reserve(t, "holder-1", "Dune", application.OneWeek)

	if err := e.reservations.Complete(context.Background(), result.ReservationID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	copyRecord, err := e.store.GetCopy(context.Background(), copyID)
	if err != nil {
		t.Fatalf("get copy: %v", err)
	}
	if copyRecord.State != persistence.CopyAvailable {
		t.Errorf("copy state = %s, want %s", copyRecord.State, persistence.CopyAvailable)
	}

	if _, err := e.store.ActiveReservationForHolder(context.Background(), "holder-1"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("active reservation err = %v, want ErrNotFound", err)
	}
}

func TestCompleteIsNotRepeatable(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	result := e.reserve(t, "holder-1", "Dune", application.OneWeek)

	if err := e.reservations.Complete(context.Background(), result.ReservationID); err != nil {
		t.Fatalf("first complete: %v", err)
	}
	if err := e.reservations.Complete(context.Background(), result.ReservationID); !errors.Is(err, application.ErrNotFound) {
		t.Errorf("second complete err = %v, want ErrNotFound", err)
	}
}

func TestCompleteOffersFreedCopyToOldestWaiter(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedHolder(t, e.store, "holder-2", "Grace", "Main", testStart)
	testfixtures.SeedHolder(t, e.store, "holder-3", "Edsger", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	result := e.reserve(t, "holder-1", "Dune", application.OneWeek)

	ctx := context.Background()
	for i, holderID := range []string{"holder-2", "holder-3"} {
		entry := persistence.WaitlistEntry{
			HolderID:   holderID,
			Title:      "Dune",
			Location:   "Main",
			EnqueuedAt: testStart.Add(time.Duration(i) * time.Minute),
		}
		if _, err := e.store.EnqueueWaitlist(ctx, entry); err != nil {
			t.Fatalf("enqueue %s: %v", holderID, err)
		}
	}
	e.notifier.Reset()

	if err := e.reservations.Complete(ctx, result.ReservationID); err != nil {
		t.Fatalf("complete: %v", err)
	}

	offers := e.notifier.SentTo(application.RecipientHolder)
	if len(offers) != 1 {
		t.Fatalf("holder notifications = %d, want 1", len(offers))
	}
	if offers[0].Recipient.HolderID != "holder-2" {
		t.Errorf("offer went to %s, want holder-2", offers[0].Recipient.HolderID)
	}
	if len(offers[0].Affordances) != 1 || offers[0].Affordances[0].Action != application.AffordanceReserve {
		t.Errorf("offer affordances = %+v, want one reserve action", offers[0].Affordances)
	}
}

func TestWaitlistOfferRollsBackWhenDeliveryFails(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedHolder(t, e.store, "holder-2", "Grace", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)

	ctx := context.Background()
	entry := persistence.WaitlistEntry{
		HolderID: "holder-2", Title: "Dune", Location: "Main", EnqueuedAt: testStart,
	}
	if _, err := e.store.EnqueueWaitlist(ctx, entry); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	e.notifier.FailNext(1, errors.New("sink down"))
	_, err := e.reservations.ServeWaitlist(ctx, "Dune", "Main")
	if !errors.Is(err, application.ErrReminderDeliveryFailed) {
		t.Fatalf("err = %v, want ErrReminderDeliveryFailed", err)
	}

	// The notified mark must roll back with the failed delivery so the
	// holder keeps their turn.
	served, err := e.reservations.ServeWaitlist(ctx, "Dune", "Main")
	if err != nil {
		t.Fatalf("retry: %v", err)
	}
	if !served {
		t.Fatal("retry did not serve the waiter")
	}
	offers := e.notifier.SentTo(application.RecipientHolder)
	if len(offers) != 1 || offers[0].Recipient.HolderID != "holder-2" {
		t.Fatalf("offers = %+v, want one to holder-2", offers)
	}
}

func TestExtendUsesClassExtensionOnce(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	result := e.reserve(t, "holder-1", "Dune", application.OneWeek)

	ctx := context.Background()
	extended, err := e.reservations.Extend(ctx, application.ExtendParams{
		ReservationID: result.ReservationID,
		HolderID:      "holder-1",
	})
	if err != nil {
		t.Fatalf("extend: %v", err)
	}
	wantEnd := result.End.Add(7 * 24 * time.Hour)
	if !extended.NewEnd.Equal(wantEnd) {
		t.Errorf("new end = %v, want %v", extended.NewEnd, wantEnd)
	}
	if extended.ExtensionLabel != "1 week" {
		t.Errorf("extension label = %q, want %q", extended.ExtensionLabel, "1 week")
	}

	_, err = e.reservations.Extend(ctx, application.ExtendParams{
		ReservationID: result.ReservationID,
		HolderID:      "holder-1",
	})
	if !errors.Is(err, application.ErrAlreadyExtended) {
		t.Errorf("second extend err = %v, want ErrAlreadyExtended", err)
	}
}

func TestExtendRejectsForeignReservation(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedHolder(t, e.store, "holder-2", "Grace", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)
	result := e.reserve(t, "holder-1", "Dune", application.OneWeek)

	_, err := e.reservations.Extend(context.Background(), application.ExtendParams{
		ReservationID: result.ReservationID,
		HolderID:      "holder-2",
	})
	if !errors.Is(err, application.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestReserveRemovesHolderFromWaitlist(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)

	ctx := context.Background()
	entry := persistence.WaitlistEntry{
		HolderID: "holder-1", Title: "Dune", Location: "Main", EnqueuedAt: testStart,
	}
	if _, err := e.store.EnqueueWaitlist(ctx, entry); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	e.reserve(t, "holder-1", "Dune", application.OneWeek)

	if _, err := e.store.OldestUnnotified(ctx, "Dune", "Main"); !errors.Is(err, persistence.ErrNotFound) {
		t.Errorf("waitlist head err = %v, want ErrNotFound", err)
	}
}

func TestVerifyIntegrityReportsDisagreement(t *testing.T) {
	e := newEnv(t)
	testfixtures.SeedHolder(t, e.store, "holder-1", "Ada", "Main", testStart)
	copyID := testfixtures.SeedCopy(t, e.store, "Dune", "Main", testStart)

	ctx := context.Background()
	if err := e.reservations.VerifyIntegrity(ctx); err != nil {
		t.Fatalf("clean store: %v", err)
	}

	// Flip the copy to reserved without a backing reservation.
	if err := e.store.SetCopyState(ctx, copyID, persistence.CopyAvailable, persistence.CopyReserved); err != nil {
		t.Fatalf("set copy state: %v", err)
	}
	if err := e.reservations.VerifyIntegrity(ctx); !errors.Is(err, application.ErrIntegrityViolation) {
		t.Errorf("err = %v, want ErrIntegrityViolation", err)
	}
}
