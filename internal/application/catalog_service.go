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

// CatalogService manages the copy catalog and answers who currently holds a
// title.
type CatalogService struct {
	store  Store
	now    func() time.Time
	logger *slog.Logger
}

// NewCatalogService creates a CatalogService.
func NewCatalogService(store Store, now func() time.Time, logger *slog.Logger) *CatalogService {
	return &CatalogService{store: store, now: now, logger: logger}
}

// AddCopy registers a new physical copy in the catalog. The copy starts
// available.
func (s *CatalogService) AddCopy(ctx context.Context, params AddCopyParams) (persistence.Copy, error) {
	logger := loggerFromContext(ctx, s.logger).With(
		slog.String("operation", "add_copy"),
		slog.String("title", params.Title),
	)

	validation := &ValidationError{}
	if strings.TrimSpace(params.Title) == "" {
		validation.add("title", "title is required")
	}
	if strings.TrimSpace(params.Location) == "" {
		validation.add("location", "location is required")
	}
	if validation.HasErrors() {
		logger.Warn("copy rejected", slog.String("error_kind", ErrorKind(validation)))
		return persistence.Copy{}, validation
	}

	copyRecord := persistence.Copy{
		Title:     params.Title,
		Author:    params.Author,
		Location:  params.Location,
		Shelf:     params.Shelf,
		Floor:     params.Floor,
		State:     persistence.CopyAvailable,
		CreatedAt: s.now().UTC(),
	}
	id, err := s.store.InsertCopy(ctx, copyRecord)
	if err != nil {
		logger.Warn("copy insert failed", slog.String("error_kind", ErrorKind(err)))
		return persistence.Copy{}, fmt.Errorf("insert copy: %w", err)
	}
	copyRecord.ID = id

	logger.Info("copy added", slog.Int64("copy_id", id))
	return copyRecord, nil
}

// ListAvailableCopies returns every available copy at the location, ordered
// by title.
func (s *CatalogService) ListAvailableCopies(ctx context.Context, location string) ([]persistence.Copy, error) {
	if strings.TrimSpace(location) == "" {
		validation := &ValidationError{}
		validation.add("location", "location is required")
		return nil, validation
	}
	copies, err := s.store.ListAvailableCopies(ctx, location)
	if err != nil {
		return nil, fmt.Errorf("list available copies: %w", err)
	}
	return copies, nil
}

// CurrentHolders reports who holds the title right now, one entry per
// reserved copy. ErrNotFound means the title is unknown at the location; an
// empty slice means every copy is on the shelf.
func (s *CatalogService) CurrentHolders(ctx context.Context, title, location string) ([]HolderSummary, error) {
	validation := &ValidationError{}
	if strings.TrimSpace(title) == "" {
		validation.add("title", "title is required")
	}
	if strings.TrimSpace(location) == "" {
		validation.add("location", "location is required")
	}
	if validation.HasErrors() {
		return nil, validation
	}

	exists, err := s.store.TitleExists(ctx, title, location)
	if err != nil {
		return nil, fmt.Errorf("check title: %w", err)
	}
	if !exists {
		return nil, ErrNotFound
	}

	reservations, err := s.store.ActiveReservationsForTitle(ctx, title, location)
	if err != nil {
		return nil, fmt.Errorf("load active reservations: %w", err)
	}

	summaries := make([]HolderSummary, 0, len(reservations))
	for _, reservation := range reservations {
		holder, err := s.store.GetHolder(ctx, reservation.HolderID)
		if err != nil && !errors.Is(err, persistence.ErrNotFound) {
			return nil, fmt.Errorf("load holder: %w", err)
		}
		summaries = append(summaries, HolderSummary{
			HolderID:    reservation.HolderID,
			DisplayName: holder.DisplayName,
			Title:       reservation.Title,
			End:         reservation.End,
		})
	}
	return summaries, nil
}
