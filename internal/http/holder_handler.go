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

type holderService interface {
	Register(ctx context.Context, params application.RegisterHolderParams) (persistence.Holder, error)
	AcceptRules(ctx context.Context, holderID string) error
}

type reservationLookup interface {
	ActiveReservation(ctx context.Context, holderID string) (persistence.Reservation, error)
}

// HolderHandler exposes holder registration and lookup over HTTP.
type HolderHandler struct {
	service      holderService
	reservations reservationLookup
	responder    responder
	logger       *slog.Logger
}

func NewHolderHandler(service holderService, reservations reservationLookup, logger *slog.Logger) *HolderHandler {
	base := defaultLogger(logger)
	return &HolderHandler{
		service:      service,
		reservations: reservations,
		responder:    newResponder(base),
		logger:       base,
	}
}

func (h *HolderHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "HolderHandler", operation, attrs...)
}

type holderRequest struct {
	HolderID    string `json:"holder_id"`
	DisplayName string `json:"display_name"`
	Location    string `json:"location"`
}

type holderDTO struct {
	HolderID      string    `json:"holder_id"`
	DisplayName   string    `json:"display_name"`
	Location      string    `json:"location"`
	RulesAccepted bool      `json:"rules_accepted"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *HolderHandler) Register(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req holderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Register", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode holder request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Register", "holder_id", req.HolderID)

	holder, err := h.service.Register(r.Context(), application.RegisterHolderParams{
		HolderID:    req.HolderID,
		DisplayName: req.DisplayName,
		Location:    req.Location,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "holder registration failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "holder registered")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, holderDTO{
		HolderID:      holder.ID,
		DisplayName:   holder.DisplayName,
		Location:      holder.Location,
		RulesAccepted: holder.RulesAccepted,
		CreatedAt:     holder.CreatedAt,
	})
}

func (h *HolderHandler) AcceptRules(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	holderID := strings.TrimSpace(params.ByName("id"))
	if holderID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidHolderID)
		return
	}

	logger := h.log(r.Context(), "AcceptRules", "holder_id", holderID)

	if err := h.service.AcceptRules(r.Context(), holderID); err != nil {
		logger.ErrorContext(r.Context(), "rules acceptance failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "rules accepted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *HolderHandler) ActiveReservation(w http.ResponseWriter, r *http.Request, params httprouter.Params) {
	holderID := strings.TrimSpace(params.ByName("id"))
	if holderID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidHolderID)
		return
	}

	logger := h.log(r.Context(), "ActiveReservation", "holder_id", holderID)

	reservation, err := h.reservations.ActiveReservation(r.Context(), holderID)
	if err != nil {
		logger.ErrorContext(r.Context(), "active reservation lookup failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}
