package application

import "errors"

var (
	// ErrAlreadyHolding is returned when the holder already has an active
	// reservation.
	ErrAlreadyHolding = errors.New("application: holder already has an active reservation")
	// ErrNoCopyAvailable is returned when every copy of the requested title
	// is out; callers should route the requester to the waitlist.
	ErrNoCopyAvailable = errors.New("application: no copy available")
	// ErrNotFound is returned when the requested record does not exist or is
	// in the wrong state for the operation.
	ErrNotFound = errors.New("application: not found")
	// ErrAlreadyExtended is returned when a reservation's single extension
	// has already been used.
	ErrAlreadyExtended = errors.New("application: reservation already extended")
	// ErrRulesNotAccepted is returned when a holder who has not accepted the
	// lending rules tries to reserve a copy.
	ErrRulesNotAccepted = errors.New("application: lending rules not accepted")
	// ErrIntegrityViolation is returned when the copy table and the
	// reservation ledger disagree. This must never occur; the operation
	// fails loudly rather than silently repairing state.
	ErrIntegrityViolation = errors.New("application: data integrity violation")
	// ErrReminderDeliveryFailed wraps a notification-sink failure during a
	// sweep step. It is logged per reservation and never aborts the sweep.
	ErrReminderDeliveryFailed = errors.New("application: reminder delivery failed")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	if v == nil {
		return ""
	}
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}
