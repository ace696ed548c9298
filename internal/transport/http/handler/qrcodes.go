package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/event-snap/internal/application/qrcode"
	"github.com/event-snap/internal/domain"
	"github.com/event-snap/internal/pkg/validate"
	"github.com/event-snap/internal/transport/http/middleware"
)

// PublicQRCode is what a guest holding the token is allowed to see.
type PublicQRCode struct {
	Token       string     `json:"token"`
	EventName   string     `json:"event_name,omitempty"`
	Description string     `json:"description_event,omitempty"`
	ExpiresAt   *time.Time `json:"expiration_date,omitempty"`
	Active      bool       `json:"active"`
}

// QRCodeHandler handles event endpoints.
type QRCodeHandler struct {
	svc qrcode.Service
	log *slog.Logger
}

func NewQRCodeHandler(svc qrcode.Service, log *slog.Logger) *QRCodeHandler {
	return &QRCodeHandler{svc: svc, log: orDefault(log)}
}

func (h *QRCodeHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.CreateQRCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	// Only admins may create on behalf of someone else.
	if req.OwnerID == "" || claims.Role != domain.RoleAdmin {
		req.OwnerID = claims.UserID
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	q, err := h.svc.Create(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, q)
}

func (h *QRCodeHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	q, err := h.svc.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	if q.OwnerID != claims.UserID && claims.Role != domain.RoleAdmin {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}
	writeJSON(w, http.StatusOK, q)
}

// Resolve is public: guests look up the event behind a scanned code by its
// token or id and get the public view only.
func (h *QRCodeHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	q, err := h.svc.Resolve(r.Context(), chi.URLParam(r, "ref"))
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, PublicQRCode{
		Token:       q.Token,
		EventName:   q.EventName,
		Description: q.Description,
		ExpiresAt:   q.ExpiresAt,
		Active:      q.Active && !q.Expired(time.Now()),
	})
}

// List returns the caller's events. Admins may pass owner_id to list someone else's.
func (h *QRCodeHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	take, skip, ok := pageParams(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "take and skip must be non-negative integers")
		return
	}
	ownerID := claims.UserID
	if o := r.URL.Query().Get("owner_id"); o != "" && claims.Role == domain.RoleAdmin {
		ownerID = o
	}
	page, err := h.svc.ListByOwner(r.Context(), ownerID, take, skip)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *QRCodeHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req domain.UpdateQRCodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	q, err := h.svc.Update(r.Context(), chi.URLParam(r, "id"), req, claims.UserID, claims.Role == domain.RoleAdmin)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, q)
}

func (h *QRCodeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.svc.Delete(r.Context(), chi.URLParam(r, "id"), claims.UserID, claims.Role == domain.RoleAdmin); err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, MessageEnvelope{Message: "qrcode deleted"})
}

// Stats is admin-only. Owners are given as repeated owner_id parameters or
// one comma-separated list.
func (h *QRCodeHandler) Stats(w http.ResponseWriter, r *http.Request) {
	var owners []string
	for _, v := range r.URL.Query()["owner_id"] {
		owners = append(owners, splitComma(v)...)
	}
	if len(owners) == 0 {
		writeError(w, http.StatusBadRequest, "owner_id is required")
		return
	}
	counts, err := h.svc.Stats(r.Context(), owners)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, counts)
}
