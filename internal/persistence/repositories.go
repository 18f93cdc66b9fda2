package persistence

import (
	"context"
	"time"
)

// TxRunner executes a function inside one storage transaction. The derived
// context carries the transaction; repository calls made with it join the
// same atomic unit. Returning an error rolls everything back.
type TxRunner interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// HolderRepository exposes operations on library members.
type HolderRepository interface {
	UpsertHolder(ctx context.Context, holder Holder) error
	GetHolder(ctx context.Context, id string) (Holder, error)
	SetRulesAccepted(ctx context.Context, id string) error
}

// CopyRepository exposes operations on physical book copies.
type CopyRepository interface {
	InsertCopy(ctx context.Context, copy Copy) (int64, error)
	GetCopy(ctx context.Context, id int64) (Copy, error)
	// TitleExists reports whether any copy of the title exists at the
	// location, regardless of state. Title matching is case-insensitive.
	TitleExists(ctx context.Context, title, location string) (bool, error)
	// FindAvailableCopy returns the available copy with the lowest id, or
	// ErrNotFound when every instance is reserved or the title is unknown.
	FindAvailableCopy(ctx context.Context, title, location string) (Copy, error)
	// SetCopyState flips a copy between states. The update is guarded by the
	// expected current state; ErrNotFound is returned when no row matched.
	SetCopyState(ctx context.Context, id int64, from, to CopyState) error
	ListAvailableCopies(ctx context.Context, location string) ([]Copy, error)
}

// ReservationRepository exposes operations on the reservation ledger.
type ReservationRepository interface {
	InsertReservation(ctx context.Context, reservation Reservation) error
	GetReservation(ctx context.Context, id string) (Reservation, error)
	// ActiveReservationForHolder returns the holder's single active
	// reservation, or ErrNotFound.
	ActiveReservationForHolder(ctx context.Context, holderID string) (Reservation, error)
	// ActiveReservationsForTitle returns active reservations matching the
	// title and location, ordered by start time.
	ActiveReservationsForTitle(ctx context.Context, title, location string) ([]Reservation, error)
	ListActiveReservations(ctx context.Context) ([]Reservation, error)
	// CompleteReservation marks an active reservation completed. The update
	// is guarded by status; ErrNotFound is returned when no active row matched.
	CompleteReservation(ctx context.Context, id string) error
	// ExtendReservation pushes the end time forward and sets the extension
	// flag. Guarded by extension_used = false; ErrNotFound when no row matched.
	ExtendReservation(ctx context.Context, id string, newEnd time.Time) error
	// ClaimMilestone records that a milestone reminder is being sent. It
	// reports false when the milestone was already claimed for the
	// reservation, making each milestone fire at most once.
	ClaimMilestone(ctx context.Context, reservationID, milestone string, sentAt time.Time) (bool, error)
	// ClaimOverdueNotice advances the durable overdue-reminder timestamp when
	// the cooldown window has elapsed. It reports false when a notice was
	// already sent within the window.
	ClaimOverdueNotice(ctx context.Context, id string, now time.Time, cooldown time.Duration) (bool, error)
	// ClaimEscalation sets the monotonic overdue-escalated flag. It reports
	// false when the reservation was already escalated.
	ClaimEscalation(ctx context.Context, id string) (bool, error)
}

// WaitlistRepository exposes operations on the per-title FIFO waitlists.
type WaitlistRepository interface {
	// EnqueueWaitlist inserts an entry, reporting whether it was newly added.
	// A duplicate (holder, title, location) enqueue is an idempotent no-op.
	EnqueueWaitlist(ctx context.Context, entry WaitlistEntry) (bool, error)
	// DequeueWaitlist removes an entry, reporting whether one was removed.
	// Removing an absent entry is not an error.
	DequeueWaitlist(ctx context.Context, holderID, title, location string) (bool, error)
	// OldestUnnotified returns the earliest-enqueued entry that has not been
	// notified yet, or ErrNotFound.
	OldestUnnotified(ctx context.Context, title, location string) (WaitlistEntry, error)
	// MarkNotified flips the notified flag, guarded by notified = false. It
	// reports false when the entry was already notified or does not exist.
	MarkNotified(ctx context.Context, holderID, title, location string) (bool, error)
	// QueuesWithWaiters lists the (title, location) pairs that currently have
	// unnotified entries. Used by the reconciliation pass.
	QueuesWithWaiters(ctx context.Context) ([]TitleLocation, error)
}

// IntegrityChecker verifies that the copy table and the reservation ledger
// agree. Disagreement is a data-integrity error, never silently repaired.
type IntegrityChecker interface {
	VerifyIntegrity(ctx context.Context) ([]IntegrityIssue, error)
}

// Store aggregates every persistence capability the reservation engine needs.
type Store interface {
	TxRunner
	HolderRepository
	CopyRepository
	ReservationRepository
	WaitlistRepository
	IntegrityChecker
}
