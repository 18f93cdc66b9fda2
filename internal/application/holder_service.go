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

// HolderService manages holder registration and rules acceptance.
type HolderService struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewHolderService creates a HolderService.
func NewHolderService(store Store, now func() time.Time, logger *slog.Logger) *HolderService {
	return &HolderService{store: store, now: now, logger: logger}
}

// Register creates the holder, or refreshes the display name and location of
// an existing one. Re-registering never resets rules acceptance.
func (s *HolderService) Register(ctx context.Context, params RegisterHolderParams) (persistence.Holder, error) {
	logger := loggerFromContext(ctx, s.logger).With(
		slog.String("operation", "register_holder"),
		slog.String("holder_id", params.HolderID),
	)

	validation := &ValidationError{}
	if strings.TrimSpace(params.HolderID) == "" {
		validation.add("holder_id", "holder_id is required")
	}
	if strings.TrimSpace(params.DisplayName) == "" {
		validation.add("display_name", "display_name is required")
	}
	if strings.TrimSpace(params.Location) == "" {
		validation.add("location", "location is required")
	}
	if validation.HasErrors() {
		logger.Warn("registration rejected", slog.String("error_kind", ErrorKind(validation)))
		return persistence.Holder{}, validation
	}

	now := s.now().UTC()
	holder := persistence.Holder{
		ID:          params.HolderID,
		DisplayName: params.DisplayName,
		Location:    params.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.UpsertHolder(ctx, holder); err != nil {
		logger.Warn("registration failed", slog.String("error_kind", ErrorKind(err)))
		return persistence.Holder{}, fmt.Errorf("upsert holder: %w", err)
	}

	stored, err := s.store.GetHolder(ctx, params.HolderID)
	if err != nil {
		return persistence.Holder{}, fmt.Errorf("load holder: %w", err)
	}

	logger.Info("holder registered")
	return stored, nil
}

// AcceptRules records that the holder accepted the lending rules. Accepting
// twice is a no-op.
func (s *HolderService) AcceptRules(ctx context.Context, holderID string) error {
	logger := loggerFromContext(ctx, s.logger).With(
		slog.String("operation", "accept_rules"),
		slog.String("holder_id", holderID),
	)

	if err := s.store.SetRulesAccepted(ctx, holderID); err != nil {
		if errors.Is(err, persistence.ErrNotFound) {
			logger.Warn("rules acceptance rejected", slog.String("error_kind", ErrorKind(ErrNotFound)))
			return ErrNotFound
		}
		return fmt.Errorf("set rules accepted: %w", err)
	}

	logger.Info("rules accepted")
	return nil
}
