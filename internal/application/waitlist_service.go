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

// WaitlistService manages waitlist membership for titles that are fully
// reserved. Queue order follows enqueue time.
type WaitlistService struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewWaitlistService creates a WaitlistService.
func NewWaitlistService(store Store, now func() time.Time, logger *slog.Logger) *WaitlistService {
	return &WaitlistService{store: store, now: now, logger: logger}
}

// Enqueue adds the holder to the waitlist of the title at the location. A
// holder already on that waitlist stays in place and the call succeeds
// without changing queue order.
func (s *WaitlistService) Enqueue(ctx context.Context, params WaitlistParams) error {
	logger := loggerFromContext(ctx, s.logger).With(
		slog.String("operation", "waitlist_enqueue"),
		slog.String("holder_id", params.HolderID),
		slog.String("title", params.Title),
	)

	if err := validateWaitlistParams(params); err != nil {
		logger.Warn("waitlist enqueue rejected", slog.String("error_kind", ErrorKind(err)))
		return err
	}

	err := s.store.WithTx(ctx, func(ctx context.Context) error {
		if _, err := s.store.GetHolder(ctx, params.HolderID); err != nil {
			if errors.Is(err, persistence.ErrNotFound) {
				return ErrNotFound
			}
			return fmt.Errorf("load holder: %w", err)
		}

		exists, err := s.store.TitleExists(ctx, params.Title, params.Location)
		if err != nil {
			return fmt.Errorf("check title: %w", err)
		}
		if !exists {
			return ErrNotFound
		}

		added, err := s.store.EnqueueWaitlist(ctx, persistence.WaitlistEntry{
			HolderID:   params.HolderID,
			Title:      params.Title,
			Location:   params.Location,
			EnqueuedAt: s.now().UTC(),
		})
		if err != nil {
			return fmt.Errorf("enqueue waitlist: %w", err)
		}
		if !added {
			logger.Info("holder already waitlisted")
		}
		return nil
	})
	if err != nil {
		logger.Warn("waitlist enqueue failed", slog.String("error_kind", ErrorKind(err)))
		return err
	}

	logger.Info("waitlist enqueued")
	return nil
}

// Dequeue removes the holder from the waitlist of the title at the location.
// Removing an absent entry succeeds.
func (s *WaitlistService) Dequeue(ctx context.Context, params WaitlistParams) error {
	logger := loggerFromContext(ctx, s.logger).With(
		slog.String("operation", "waitlist_dequeue"),
		slog.String("holder_id", params.HolderID),
		slog.String("title", params.Title),
	)

	if err := validateWaitlistParams(params); err != nil {
		logger.Warn("waitlist dequeue rejected", slog.String("error_kind", ErrorKind(err)))
		return err
	}

	removed, err := s.store.DequeueWaitlist(ctx, params.HolderID, params.Title, params.Location)
	if err != nil {
		logger.Warn("waitlist dequeue failed", slog.String("error_kind", ErrorKind(err)))
		return fmt.Errorf("dequeue waitlist: %w", err)
	}

	logger.Info("waitlist dequeued", slog.Bool("removed", removed))
	return nil
}

func validateWaitlistParams(params WaitlistParams) error {
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
	if validation.HasErrors() {
		return validation
	}
	return nil
}
