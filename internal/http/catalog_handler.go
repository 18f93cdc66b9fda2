package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/persistence"
)

type catalogService interface {
	AddCopy(ctx context.Context, params application.AddCopyParams) (persistence.Copy, error)
	ListAvailableCopies(ctx context.Context, location string) ([]persistence.Copy, error)
	CurrentHolders(ctx context.Context, title, location string) ([]application.HolderSummary, error)
}

// CatalogHandler exposes the copy catalog over HTTP.
type CatalogHandler struct {
	service   catalogService
	responder responder
	logger    *slog.Logger
}

func NewCatalogHandler(service catalogService, logger *slog.Logger) *CatalogHandler {
	base := defaultLogger(logger)
	return &CatalogHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *CatalogHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "CatalogHandler", operation, attrs...)
}

type copyRequest struct {
	Title    string `json:"title"`
	Author   string `json:"author"`
	Location string `json:"location"`
	Shelf    *int   `json:"shelf,omitempty"`
	Floor    *int   `json:"floor,omitempty"`
}

type copyDTO struct {
	ID       int64  `json:"id"`
	Title    string `json:"title"`
	Author   string `json:"author"`
	Location string `json:"location"`
	Shelf    *int   `json:"shelf,omitempty"`
	Floor    *int   `json:"floor,omitempty"`
	State    string `json:"state"`
}

func toCopyDTO(record persistence.Copy) copyDTO {
	return copyDTO{
		ID:       record.ID,
		Title:    record.Title,
		Author:   record.Author,
		Location: record.Location,
		Shelf:    record.Shelf,
		Floor:    record.Floor,
		State:    string(record.State),
	}
}

func (h *CatalogHandler) AddCopy(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req copyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "AddCopy", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode copy request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "AddCopy", "title", req.Title)

	added, err := h.service.AddCopy(r.Context(), application.AddCopyParams{
		Title:    req.Title,
		Author:   req.Author,
		Location: req.Location,
		Shelf:    req.Shelf,
		Floor:    req.Floor,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "copy insert failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("copy_id", added.ID).InfoContext(r.Context(), "copy added")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toCopyDTO(added))
}

func (h *CatalogHandler) ListAvailable(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if location == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingLocation)
		return
	}

	copies, err := h.service.ListAvailableCopies(r.Context(), location)
	if err != nil {
		h.log(r.Context(), "ListAvailable", "location", location).ErrorContext(r.Context(), "list failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]copyDTO, 0, len(copies))
	for _, record := range copies {
		dtos = append(dtos, toCopyDTO(record))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]copyDTO{"copies": dtos})
}

type holderSummaryDTO struct {
	HolderID    string    `json:"holder_id"`
	DisplayName string    `json:"display_name"`
	Title       string    `json:"title"`
	End         time.Time `json:"end"`
}

func (h *CatalogHandler) CurrentHolders(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	title := strings.TrimSpace(r.URL.Query().Get("title"))
	location := strings.TrimSpace(r.URL.Query().Get("location"))
	if title == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingTitle)
		return
	}
	if location == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errMissingLocation)
		return
	}

	holders, err := h.service.CurrentHolders(r.Context(), title, location)
	if err != nil {
		h.log(r.Context(), "CurrentHolders", "title", title).ErrorContext(r.Context(), "lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]holderSummaryDTO, 0, len(holders))
	for _, summary := range holders {
		dtos = append(dtos, holderSummaryDTO{
			HolderID:    summary.HolderID,
			DisplayName: summary.DisplayName,
			Title:       summary.Title,
			End:         summary.End,
		})
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, map[string][]holderSummaryDTO{"holders": dtos})
}
