package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/event-snap/internal/application/upload"
	"github.com/event-snap/internal/pkg/validate"
	"github.com/event-snap/internal/transport/http/middleware"
)

const (
	// maxUploadMemory is how much of a multipart body is buffered in memory.
	maxUploadMemory = 8 << 20
	// DefaultMaxUploadBytes caps a whole upload request body.
	DefaultMaxUploadBytes = 20 << 20
)

type deleteUploadsRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// UploadHandler handles photo endpoints. Upload is public (guests hold only
// the token); the rest require the event's owner.
type UploadHandler struct {
	svc      upload.Service
	maxBytes int64
	log      *slog.Logger
}

// NewUploadHandler builds the handler. maxBytes <= 0 uses DefaultMaxUploadBytes.
func NewUploadHandler(svc upload.Service, maxBytes int64, log *slog.Logger) *UploadHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &UploadHandler{svc: svc, maxBytes: maxBytes, log: orDefault(log)}
}

func (h *UploadHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if r.ContentLength > h.maxBytes {
		writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	defer func() {
		if r.MultipartForm != nil {
			_ = r.MultipartForm.RemoveAll()
		}
	}()
	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "missing file field")
		return
	}
	defer f.Close()

	u, err := h.svc.Upload(r.Context(), chi.URLParam(r, "token"), upload.UploadInput{
		Reader:      f,
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
	})
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusCreated, u)
}

func (h *UploadHandler) List(w http.ResponseWriter, r *http.Request) {
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
	page, err := h.svc.List(r.Context(), chi.URLParam(r, "token"), claims.UserID, take, skip)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *UploadHandler) SignedURLs(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	urls, err := h.svc.SignedURLs(r.Context(), chi.URLParam(r, "token"), claims.UserID)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, URLsEnvelope{URLs: urls})
}

func (h *UploadHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req deleteUploadsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := validate.Struct(req); err != nil {
		writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	n, err := h.svc.Delete(r.Context(), chi.URLParam(r, "token"), claims.UserID, req.IDs)
	if err != nil {
		writeServiceError(w, h.log, err)
		return
	}
	writeJSON(w, http.StatusOK, DeletedEnvelope{Deleted: n})
}
