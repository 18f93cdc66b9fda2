package application

import (
	"context"
	"errors"
	"log/slog"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/logging"
)

// ErrorKind maps an error to a stable label for structured logs and
// response classification.
func ErrorKind(err error) string {
	var validation *ValidationError
	switch {
	case err == nil:
		return "none"
	case errors.Is(err, ErrAlreadyHolding):
		return "already_holding"
	case errors.Is(err, ErrNoCopyAvailable):
		return "no_copy_available"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyExtended):
		return "already_extended"
	case errors.Is(err, ErrRulesNotAccepted):
		return "rules_not_accepted"
	case errors.Is(err, ErrIntegrityViolation):
		return "integrity_violation"
	case errors.Is(err, ErrReminderDeliveryFailed):
		return "reminder_delivery_failed"
	case errors.As(err, &validation):
		return "validation"
	default:
		return "unexpected"
	}
}

func loggerFromContext(ctx context.Context, fallback *slog.Logger) *slog.Logger {
	return logging.FromContext(ctx, fallback)
}
