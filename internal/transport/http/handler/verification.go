package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/event-snap/internal/application/verification"
	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/pkg/validate"
)

// VerificationHandler issues and checks emailed one-time codes.
type VerificationHandler struct {
	svc verification.Service
	log *slog.Logger
}

func NewVerificationHandler(svc verification.Service, log *slog.Logger) *VerificationHandler {
	return &VerificationHandler{svc: svc, log: orDefault(log)}
}

func (h *VerificationHandler) Send(w http.ResponseWriter, r *http.Request) {
	purpose, err := domain.ParsePurpose(chi.URLParam(r, "purpose"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	var req domain.SendCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := h.svc.Send(r.Context(), req.Email, purpose); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusAccepted, MessageEnvelope{Message: "verification code sent"})
}

// Validate checks a code without spending it.
func (h *VerificationHandler) Validate(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.svc.Validate, "code is valid")
}

// Consume checks a code and deletes it so it cannot be replayed.
func (h *VerificationHandler) Consume(w http.ResponseWriter, r *http.Request) {
	h.check(w, r, h.svc.Consume, "code accepted")
}

type codeCheck func(ctx context.Context, principal, code string, purpose domain.Purpose) error

func (h *VerificationHandler) check(w http.ResponseWriter, r *http.Request, fn codeCheck, okMsg string) {
	purpose, err := domain.ParsePurpose(chi.URLParam(r, "purpose"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	var req domain.ValidateCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	if err := fn(r.Context(), req.Email, req.Code, purpose); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: okMsg})
}
