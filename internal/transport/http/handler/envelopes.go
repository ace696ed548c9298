package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/event-snap/internal/domain"
)

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
	ErrorCode int    `json:"error_code,omitempty"`
}

// URLsEnvelope wraps the presigned links of an event's photos.
type URLsEnvelope struct {
	URLs []string `json:"urls"`
}

// DeletedEnvelope reports how many uploads a delete request removed.
type DeletedEnvelope struct {
	Deleted int `json:"deleted"`
}

const (
	defaultTake = 20
	maxTake     = 100
)

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps a service error onto its HTTP status. Anything that
// is not a domain sentinel is logged and reported as a bare 500.
func writeServiceError(w http.ResponseWriter, log *slog.Logger, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrBadRequest), errors.Is(err, domain.ErrInvalidOrExpiredCode):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		status = http.StatusUnauthorized
	case errors.Is(err, domain.ErrForbidden), errors.Is(err, domain.ErrQuotaExceeded):
		status = http.StatusForbidden
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrRateLimited):
		status = http.StatusTooManyRequests
	case errors.Is(err, domain.ErrStoreUnavailable):
		log.Error("store unavailable", "err", err)
		writeError(w, http.StatusServiceUnavailable, "service unavailable")
		return
	default:
		log.Error("request failed", "err", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, status, MessageEnvelope{Error: err.Error(), ErrorCode: status})
}

// pageParams reads take and skip from the query string. take defaults to
// defaultTake and is capped at maxTake; negative values are rejected.
func pageParams(r *http.Request) (take, skip int, ok bool) {
	take, skip = defaultTake, 0
	q := r.URL.Query()
	if v := q.Get("take"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		take = min(n, maxTake)
	}
	if v := q.Get("skip"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		skip = n
	}
	return take, skip, true
}

func orDefault(log *slog.Logger) *slog.Logger {
	if log == nil {
		return slog.Default()
	}
	return log
}

func splitComma(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
