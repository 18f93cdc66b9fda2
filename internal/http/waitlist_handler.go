package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/julienschmidt/httprouter"

	"github.com/olgakorsuk5-lang/stonelibrary-bot/internal/application"
)

type waitlistService interface {
	Enqueue(ctx context.Context, params application.WaitlistParams) error
	Dequeue(ctx context.Context, params application.WaitlistParams) error
}

// WaitlistHandler exposes waitlist membership over HTTP.
type WaitlistHandler struct {
	service   waitlistService
	responder responder
	logger    *slog.Logger
}

func NewWaitlistHandler(service waitlistService, logger *slog.Logger) *WaitlistHandler {
	base := defaultLogger(logger)
	return &WaitlistHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *WaitlistHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "WaitlistHandler", operation, attrs...)
}

type waitlistRequest struct {
	HolderID string `json:"holder_id"`
	Title    string `json:"title"`
	Location string `json:"location"`
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Join", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode waitlist request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Join", "holder_id", req.HolderID, "title", req.Title)

	err := h.service.Enqueue(r.Context(), application.WaitlistParams{
		HolderID: req.HolderID,
		Title:    req.Title,
		Location: req.Location,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "waitlist join failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "waitlist joined")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *WaitlistHandler) Leave(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req waitlistRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Leave", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode waitlist request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Leave", "holder_id", req.HolderID, "title", req.Title)

	err := h.service.Dequeue(r.Context(), application.WaitlistParams{
		HolderID: req.HolderID,
		Title:    req.Title,
		Location: req.Location,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "waitlist leave failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "waitlist left")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}
