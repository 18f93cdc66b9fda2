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

type reservationService interface {
	Reserve(ctx context.Context, params application.ReserveParams) (application.ReserveResult, error)
	Complete(ctx context.Context, reservationID string) error
	Extend(ctx context.Context, params application.ExtendParams) (application.ExtendResult, error)
}

// ReservationHandler exposes the reservation lifecycle over HTTP.
type ReservationHandler struct {
	service   reservationService
	responder responder
	logger    *slog.Logger
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	base := defaultLogger(logger)
	return &ReservationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ReservationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReservationHandler", operation, attrs...)
}

type reserveRequest struct {
	HolderID string `json:"holder_id"`
	Title    string `json:"title"`
	Location string `json:"location"`
	Duration string `json:"duration"`
}

type reserveResponse struct {
	ReservationID string    `json:"reservation_id"`
	CopyID        int64     `json:"copy_id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	Shelf         *int      `json:"shelf,omitempty"`
	Floor         *int      `json:"floor,omitempty"`
	End           time.Time `json:"end"`
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req reserveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode reserve request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "holder_id", req.HolderID, "title", req.Title)

	result, err := h.service.Reserve(r.Context(), application.ReserveParams{
		HolderID: req.HolderID,
		Title:    req.Title,
		Location: req.Location,
		Duration: application.DurationClass(req.Duration),
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "reservation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("reservation_id", result.ReservationID).InfoContext(r.Context(), "reservation created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, reserveResponse{
		ReservationID: result.ReservationID,
		CopyID:        result.Copy.ID,
		Title:         result.Copy.Title,
		Location:      result.Copy.Location,
		Shelf:         result.Copy.Shelf,
		Floor:         result.Copy.Floor,
		End:           result.End,
	})
}

func (h *ReservationHandler) Return(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	reservationID := strings.TrimSpace(params.ByName("id"))
	if reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	logger := h.log(r.Context(), "Return", "reservation_id", reservationID)

	if err := h.service.Complete(r.Context(), reservationID); err != nil {
		logger.ErrorContext(r.Context(), "return failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation completed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

type extendRequest struct {
	HolderID string `json:"holder_id"`
}

type extendResponse struct {
	NewEnd         time.Time `json:"new_end"`
	ExtensionLabel string    `json:"extension_label"`
}

func (h *ReservationHandler) Extend(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	reservationID := strings.TrimSpace(params.ByName("id"))
	if reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req extendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Extend", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode extend request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Extend", "reservation_id", reservationID, "holder_id", req.HolderID)

	result, err := h.service.Extend(r.Context(), application.ExtendParams{
		ReservationID: reservationID,
		HolderID:      req.HolderID,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "extension failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "reservation extended")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, extendResponse{
		NewEnd:         result.NewEnd,
		ExtensionLabel: result.ExtensionLabel,
	})
}

type reservationDTO struct {
	ID            string    `json:"id"`
	CopyID        int64     `json:"copy_id"`
	Title         string    `json:"title"`
	Location      string    `json:"location"`
	Start         time.Time `json:"start"`
	Duration      string    `json:"duration"`
	End           time.Time `json:"end"`
	ExtensionUsed bool      `json:"extension_used"`
}

func toReservationDTO(reservation persistence.Reservation) reservationDTO {
	return reservationDTO{
		ID:            reservation.ID,
		CopyID:        reservation.CopyID,
		Title:         reservation.Title,
		Location:      reservation.Location,
		Start:         reservation.Start,
		Duration:      reservation.Duration,
		End:           reservation.End,
		ExtensionUsed: reservation.ExtensionUsed,
	}
}
