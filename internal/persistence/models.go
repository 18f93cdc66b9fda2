package persistence

import "time"

// CopyState enumerates the availability states of a physical book copy.
type CopyState string

const (
	// CopyAvailable marks a copy that can be reserved.
	CopyAvailable CopyState = "available"
	// CopyReserved marks a copy currently held by a reservation.
	CopyReserved CopyState = "reserved"
)

// ReservationStatus enumerates the lifecycle states of a reservation.
type ReservationStatus string

const (
	// ReservationActive marks a live hold on a copy.
	ReservationActive ReservationStatus = "active"
	// ReservationCompleted marks a returned reservation kept for history.
	ReservationCompleted ReservationStatus = "completed"
)

// Holder represents an employee known to the library.
type Holder struct {
	ID            string
	DisplayName   string
	Location      string
	RulesAccepted bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Copy represents one physical instance of a title at one office location.
type Copy struct {
	ID        int64
	Title     string
	Author    string
	Location  string
	Shelf     *int
	Floor     *int
	State     CopyState
	CreatedAt time.Time
}

// Reservation records one holder's bounded hold on one copy.
//
// LastOverdueNotifiedAt is the durable cooldown bookkeeping for overdue
// reminders; it is read and written inside the same transaction as the rest
// of a sweep step so restarts and duplicate sweeps cannot double-fire.
type Reservation struct {
	ID                    string
	HolderID              string
	CopyID                int64
	Title                 string
	Location              string
	Start                 time.Time
	Duration              string
	End                   time.Time
	Status                ReservationStatus
	ExtensionUsed         bool
	OverdueEscalated      bool
	LastOverdueNotifiedAt *time.Time
	CreatedAt             time.Time
}

// WaitlistEntry represents a standing request for a title at a location.
type WaitlistEntry struct {
	HolderID   string
	Title      string
	Location   string
	EnqueuedAt time.Time
	Notified   bool
}

// TitleLocation identifies one waitlist queue.
type TitleLocation struct {
	Title    string
	Location string
}

// IntegrityIssue describes a disagreement between the copy table and the
// reservation ledger. Issues must never occur in normal operation.
type IntegrityIssue struct {
	CopyID      int64
	HolderID    string
	Description string
}
