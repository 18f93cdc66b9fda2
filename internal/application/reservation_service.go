package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

// ReservationService implements the reservation lifecycle: reserving a copy,
// returning it, extending it once, and handing a freed copy to the next
// waitlisted holder.
type ReservationService struct {
	store         Store
	notifier      Notifier
	idGenerator   func() string
	now           func() time.Time
	logger        *slog.Logger
	notifyTimeout time.Duration
}

// NewReservationService creates a ReservationService. The id generator and
// clock are injected so tests can pin them.
func NewReservationService(
	store Store,
	notifier Notifier,
	idGenerator func() string,
	now func() time.Time,
	logger *slog.Logger,
	notifyTimeout time.Duration,
) *ReservationService {
	return &ReservationService{
		store:         store,
		notifier:      notifier,
		idGenerator:   idGenerator,
		now:           now,
		logger:        logger,
		notifyTimeout: notifyTimeout,
	}
}

// Reserve places an exclusive hold on one available copy of the given title.
// The copy with the lowest id is taken. Reserving also removes the holder
// from the waitlist of that title, so a served waitlist offer and a direct
// reservation converge on the same state.
func (s *ReservationService) Reserve(ctx context.Context, params ReserveParams) (ReserveResult, error) {
	logger := s.serviceLogger(ctx).With(
		slog.String("operation", "reserve"),
		slog.String("holder_id", params.HolderID),
		slog.String("title", params.Title),
	)

	if err := validateReserveParams(params); err != nil {
		logger.Warn("reservation rejected", slog.String("error_kind", ErrorKind(err)))
		return ReserveResult{}, err
	}

	var result ReserveResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		holder, err := s.store.GetHolder(ctx, params.HolderID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load holder: %w", err)
		}
		if !holder.RulesAccepted {
			return ErrRulesNotAccepted
		}

		if _, err := s.store.ActiveReservationForHolder(ctx, holder.ID); err == nil {
			return ErrAlreadyHolding
		} else if !errors.Is(err, persistence.ErrNotFound) {
			return fmt.Errorf("check active reservation: %w", err)
		}

		chosen, err := s.store.FindAvailableCopy(ctx, params.Title, params.Location)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				exists, existsErr := s.store.TitleExists(ctx, params.Title, params.Location)
				if existsErr != nil {
					return fmt.Errorf("check title: %w", existsErr)
				}
				if exists {
					return ErrNoCopyAvailable
				}
				return ErrNotFound
			}
			return fmt.Errorf("find available copy: %w", err)
		}

		if err := s.store.SetCopyState(ctx, chosen.ID, persistence.CopyAvailable, persistence.CopyReserved); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNoCopyAvailable
			}
			return fmt.Errorf("reserve copy: %w", err)
		}

		if _, err := s.store.DequeueWaitlist(ctx, params.HolderID, params.Title, params.Location); err != nil {
			return fmt.Errorf("dequeue waitlist: %w", err)
		}

		start := s.now().UTC()
		reservation := persistence.Reservation{
			ID:        s.idGenerator(),
			HolderID:  holder.ID,
			CopyID:    chosen.ID,
			Title:     chosen.Title,
			Location:  chosen.Location,
			Start:     start,
			Duration:  string(params.Duration),
			End:       start.Add(params.Duration.Length()),
			Status:    persistence.ReservationActive,
			CreatedAt: start,
		}
		if err := s.store.InsertReservation(ctx, reservation); err != nil {
			if errors.Is(err, persistence.ErrDuplicate) {
				return ErrAlreadyHolding
			}
			return fmt.Errorf("insert reservation: %w", err)
		}

		result = ReserveResult{
			ReservationID: reservation.ID,
			Copy:          chosen,
			End:           reservation.End,
		}
		return nil
	})
	if err != nil {
		logger.Warn("reservation failed", slog.String("error_kind", ErrorKind(err)))
		return ReserveResult{}, err
	}

	logger.Info("reservation created",
		slog.String("reservation_id", result.ReservationID),
		slog.Int64("copy_id", result.Copy.ID),
		slog.Time("end", result.End))

	s.audit(ctx, fmt.Sprintf("%s reserved %q (copy %d, %s) until %s",
		params.HolderID, result.Copy.Title, result.Copy.ID,
		params.Duration, result.End.Format(time.RFC3339)))
	return result, nil
}

// Complete returns the reserved copy. The copy becomes available again, and
// if the title has waiting holders the oldest unnotified one is offered the
// freed copy.
func (s *ReservationService) Complete(ctx context.Context, reservationID string) error {
	logger := s.serviceLogger(ctx).With(
		slog.String("operation", "complete"),
		slog.String("reservation_id", reservationID),
	)

	var completed persistence.Reservation
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		reservation, err := s.store.GetReservation(ctx, reservationID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load reservation: %w", err)
		}
		if reservation.Status != persistence.ReservationActive {
			return ErrNotFound
		}

		if err := s.store.CompleteReservation(ctx, reservation.ID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("complete reservation: %w", err)
		}

		if err := s.store.SetCopyState(ctx, reservation.CopyID, persistence.CopyReserved, persistence.CopyAvailable); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return fmt.Errorf("%w: copy %d not in reserved state for active reservation %s",
					ErrIntegrityViolation, reservation.CopyID, reservation.ID)
			}
			return fmt.Errorf("release copy: %w", err)
		}

		completed = reservation
		return nil
	})
	if err != nil {
		logger.Warn("return failed", slog.String("error_kind", ErrorKind(err)))
		return err
	}

	logger.Info("reservation completed",
		slog.String("holder_id", completed.HolderID),
		slog.Int64("copy_id", completed.CopyID))

	s.audit(ctx, fmt.Sprintf("%s returned %q (copy %d)",
		completed.HolderID, completed.Title, completed.CopyID))

	if _, err := s.ServeWaitlist(ctx, completed.Title, completed.Location); err != nil {
		logger.Warn("waitlist offer failed",
			slog.String("title", completed.Title),
			slog.String("error_kind", ErrorKind(err)))
	}
	return nil
}

// Extend pushes the reservation end out by the duration class's fixed
// extension. A reservation can be extended at most once.
func (s *ReservationService) Extend(ctx context.Context, params ExtendParams) (ExtendResult, error) {
	logger := s.serviceLogger(ctx).With(
		slog.String("operation", "extend"),
		slog.String("reservation_id", params.ReservationID),
		slog.String("holder_id", params.HolderID),
	)

	var result ExtendResult
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		reservation, err := s.store.GetReservation(ctx, params.ReservationID)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load reservation: %w", err)
		}
		if reservation.Status != persistence.ReservationActive || reservation.HolderID != params.HolderID {
			return ErrNotFound
		}
		if reservation.ExtensionUsed {
			return ErrAlreadyExtended
		}

		class, err := ParseDurationClass(reservation.Duration)
		if err != nil {
			return fmt.Errorf("%w: reservation %s has unknown duration %q",
				ErrIntegrityViolation, reservation.ID, reservation.Duration)
		}

		newEnd := reservation.End.Add(class.Extension())
		if err := s.store.ExtendReservation(ctx, reservation.ID, newEnd); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrAlreadyExtended
			}
			return fmt.Errorf("extend reservation: %w", err)
		}

		result = ExtendResult{NewEnd: newEnd, ExtensionLabel: class.ExtensionLabel()}
		return nil
	})
	if err != nil {
		logger.Warn("extension failed", slog.String("error_kind", ErrorKind(err)))
		return ExtendResult{}, err
	}

	logger.Info("reservation extended", slog.Time("new_end", result.NewEnd))

	s.audit(ctx, fmt.Sprintf("%s extended reservation %s by %s",
		params.HolderID, params.ReservationID, result.ExtensionLabel))
	return result, nil
}

// ActiveReservation returns the holder's current reservation, or ErrNotFound
// when the holder has none.
func (s *ReservationService) ActiveReservation(ctx context.Context, holderID string) (persistence.Reservation, error) {
	reservation, err := s.store.ActiveReservationForHolder(ctx, holderID)
	if err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			return persistence.Reservation{}, ErrNotFound
		}
		return persistence.Reservation{}, fmt.Errorf("load active reservation: %w", err)
	}
	return reservation, nil
}

// ServeWaitlist offers a freed copy of the title to the oldest unnotified
// waitlisted holder. The notified mark and the delivery commit or roll back
// together, so a failed delivery leaves the holder's turn intact. It reports
// whether an offer went out.
func (s *ReservationService) ServeWaitlist(ctx context.Context, title, location string) (bool, error) {
	served := false
	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		entry, err := s.store.OldestUnnotified(ctx, title, location)
		if err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("load waitlist head: %w", err)
		}

		if _, err := s.store.FindAvailableCopy(ctx, title, location); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return nil
			}
			return fmt.Errorf("find available copy: %w", err)
		}

		claimed, err := s.store.MarkNotified(ctx, entry.HolderID, entry.Title, entry.Location)
		if err != nil {
			return fmt.Errorf("mark waitlist entry notified: %w", err)
		}
		if !claimed {
			return nil
		}

		notification := Notification{
			Recipient: HolderRecipient(entry.HolderID),
			Text:      fmt.Sprintf("A copy of %q is available again at %s.", entry.Title, entry.Location),
			Affordances: []Affordance{{
				Action:   AffordanceReserve,
				Title:    entry.Title,
				Location: entry.Location,
			}},
		}
		if err := s.notify(ctx, notification); err != nil {
			return fmt.Errorf("%w: waitlist offer to %s: %v", ErrReminderDeliveryFailed, entry.HolderID, err)
		}

		served = true
		return nil
	})
	if err != nil {
		return false, err
	}
	if served {
		s.serviceLogger(ctx).Info("waitlist offer sent",
			slog.String("title", title),
			slog.String("location", location))
	}
	return served, nil
}

// VerifyIntegrity cross-checks copy states against the reservation ledger
// and fails loudly on any disagreement.
func (s *ReservationService) VerifyIntegrity(ctx context.Context) error {
	issues, err := s.store.VerifyIntegrity(ctx)
	if err != nil {
		return fmt.Errorf("verify integrity: %w", err)
	}
	if len(issues) == 0 {
		return nil
	}
	descriptions := make([]string, 0, len(issues))
	for _, issue := range issues {
		descriptions = append(descriptions, issue.Description)
	}
	return fmt.Errorf("%w: %s", ErrIntegrityViolation, strings.Join(descriptions, "; "))
}

// notify delivers with a bounded timeout that survives cancellation of the
// surrounding request context.
func (s *ReservationService) notify(ctx context.Context, notification Notification) error {
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.notifyTimeout)
	defer cancel()
	return s.notifier.Notify(notifyCtx, notification)
}

// audit sends a best-effort notice to the oversight channel. Failures are
// logged and never surfaced to the caller.
func (s *ReservationService) audit(ctx context.Context, text string) {
	err := s.notify(ctx, Notification{
		Recipient: OversightRecipient(),
		Text:      text,
	})
	if err != nil {
		s.serviceLogger(ctx).Warn("audit notice failed", slog.String("error", err.Error()))
	}
}

func (s *ReservationService) serviceLogger(ctx context.Context) *slog.Logger {
	return loggerFromContext(ctx, s.logger)
}

func validateReserveParams(params ReserveParams) error {
	validation := &ValidationError{}
	if strings.TrimSpace(params.HolderID) == "" {
		validation.add("holder_id", "holder_id is required")
	}
	if strings.TrimSpace(params.Title) == "" {
		validation.add("title", "title is required")
	}
	if strings.TrimSpace(params.Location) == "" {
		validation.add("location", "location is required")
	}
	if !params.Duration.Valid() {
		validation.add("duration", "duration must be one of 1_hour, 1_week, 1_month, 3_months, 6_months")
	}
	if validation.HasErrors() {
		return validation
	}
	return nil
}
