package application

import (
	"context"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// Store captures the persistence interactions needed by the services. It is
// satisfied by the SQLite store; calls made with the context derived by
// WithTx join one atomic transaction.
type Store interface {
	persistence.TxRunner
	persistence.HolderRepository
	persistence.CopyRepository
	persistence.ReservationRepository
	persistence.WaitlistRepository
	persistence.IntegrityChecker
}

// ReserveParams wraps the data required to reserve a copy.
type ReserveParams struct {
	HolderID string
	Title    string
	Location string
	Duration DurationClass
}

// ReserveResult reports the outcome of a successful reservation.
type ReserveResult struct {
	ReservationID string
	Copy          persistence.Copy
	End           time.Time
}

// ExtendParams wraps the data required to extend a reservation.
type ExtendParams struct {
	ReservationID string
	HolderID      string
}

// ExtendResult reports the outcome of a successful extension.
type ExtendResult struct {
	NewEnd         time.Time
	ExtensionLabel string
}

// RegisterHolderParams wraps the data required to register a holder.
type RegisterHolderParams struct {
	HolderID    string
	DisplayName string
	Location    string
}

// AddCopyParams wraps the data required to add a catalog copy.
type AddCopyParams struct {
	Title    string
	Author   string
	Location string
	Shelf    *int
	Floor    *int
}

// WaitlistParams identifies one waitlist membership.
type WaitlistParams struct {
	HolderID string
	Title    string
	Location string
}

// HolderSummary describes who currently holds a title, with enough detail
// for the requester to decide the next action.
type HolderSummary struct {
	HolderID    string
	DisplayName string
	Title       string
	End         time.Time
}

// WaitlistServer serves the head of one waitlist queue. It is implemented by
// the ReservationService and consumed by the reminder scheduler's
// reconciliation pass.
type WaitlistServer interface {
	ServeWaitlist(ctx context.Context, title, location string) (bool, error)
}
