package application

import "context"

// RecipientKind distinguishes a person from the oversight channel.
type RecipientKind string

const (
	// RecipientHolder addresses a specific person.
	RecipientHolder RecipientKind = "holder"
	// RecipientOversight addresses the shared oversight channel.
	RecipientOversight RecipientKind = "oversight"
)

// Recipient identifies where a notification should be delivered.
type Recipient struct {
	Kind     RecipientKind
	HolderID string
}

// HolderRecipient addresses a notification to one person.
func HolderRecipient(holderID string) Recipient {
	return Recipient{Kind: RecipientHolder, HolderID: holderID}
}

// OversightRecipient addresses a notification to the oversight channel.
func OversightRecipient() Recipient {
	return Recipient{Kind: RecipientOversight}
}

// Affordance actions rendered as actionable options by the front-end.
const (
	// AffordanceReturn offers to return the held copy.
	AffordanceReturn = "offer_return"
	// AffordanceExtend offers the one-shot extension.
	AffordanceExtend = "offer_extend"
	// AffordanceReserve offers to reserve a freed copy.
	AffordanceReserve = "offer_reserve"
)

// Affordance is a structured action hint attached to a notification. The
// engine decides when and what to send; rendering belongs to the front-end.
type Affordance struct {
	Action        string `json:"action"`
	ReservationID string `json:"reservation_id,omitempty"`
	Title         string `json:"title,omitempty"`
	Location      string `json:"location,omitempty"`
}

// Notification is one message bound for a person or the oversight channel.
type Notification struct {
	Recipient   Recipient    `json:"recipient"`
	Text        string       `json:"text"`
	Affordances []Affordance `json:"affordances,omitempty"`
}

// Notifier delivers notifications. State correctness never depends on
// delivery succeeding; callers bound the call with a timeout and treat
// failures as retryable.
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}
