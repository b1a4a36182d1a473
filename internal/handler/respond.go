package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/illia-shyn/thoughtcaptcha/internal/i18n"
	"github.com/illia-shyn/thoughtcaptcha/internal/store"
)

const maxBodyBytes = 1 << 20

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Detail string            `json:"detail"`
	Errors map[string]string `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encode response", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorBody{Detail: detail})
}

// writeStoreError answers 404 with notFoundID for missing rows and 500 for
// anything else.
func writeStoreError(w http.ResponseWriter, r *http.Request, err error, notFoundID string) {
	if errors.Is(err, store.ErrNotFound) {
		writeDetail(w, http.StatusNotFound, i18n.T(r.Context(), notFoundID))
		return
	}
	slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
	writeDetail(w, http.StatusInternalServerError, i18n.T(r.Context(), "InternalError"))
}

// decode reads a JSON body into dst and validates it. On failure it writes
// a 400 response and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		slog.Debug("invalid request body", "path", r.URL.Path, "error", err)
		writeDetail(w, http.StatusBadRequest, i18n.T(r.Context(), "InvalidJSON"))
		return false
	}
	if err := h.validate.StructCtx(r.Context(), dst); err != nil {
		fields, ok := h.fieldErrors(err)
		if !ok {
			slog.Error("validate request", "path", r.URL.Path, "error", err)
			writeDetail(w, http.StatusInternalServerError, i18n.T(r.Context(), "InternalError"))
			return false
		}
		writeJSON(w, http.StatusBadRequest, errorBody{
			Detail: i18n.Tp(r.Context(), "ValidationFailed", len(fields)),
			Errors: fields,
		})
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeDetail(w, http.StatusBadRequest, i18n.Td(r.Context(), "InvalidParam", map[string]any{"Name": name}))
		return 0, false
	}
	return id, true
}

// page parses skip and limit query parameters.
func (h *Handler) page(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	skip, ok = queryInt(w, r, "skip", 0, 0, -1)
	if !ok {
		return 0, 0, false
	}
	limit, ok = queryInt(w, r, "limit", h.config.DefaultLimit, 1, h.config.MaxLimit)
	if !ok {
		return 0, 0, false
	}
	return skip, limit, true
}

// queryInt reads an integer query parameter bounded by lo and, when hi is
// non-negative, hi.
func queryInt(w http.ResponseWriter, r *http.Request, name string, def, lo, hi int) (int, bool) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < lo || (hi >= 0 && v > hi) {
		writeDetail(w, http.StatusBadRequest, i18n.Td(r.Context(), "InvalidParam", map[string]any{"Name": name}))
		return 0, false
	}
	return v, true
}
