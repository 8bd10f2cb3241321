package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/roach88/bookcat/internal/book"
	"github.com/roach88/bookcat/internal/storage"
)

const activityJSON = "application/activity+json"

type handlers struct {
	cat    Catalog
	logger *slog.Logger
}

type healthResponse struct {
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	Message   string `json:"message,omitempty"`
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Status:    "ok",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	code := http.StatusOK
	if err := h.cat.Ping(r.Context()); err != nil {
		resp.Status = "fail"
		resp.Message = err.Error()
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, "application/json", resp)
}

func (h *handlers) editions(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		http.Error(w, "invalid book id", http.StatusBadRequest)
		return
	}
	page := 0
	if raw := r.URL.Query().Get("page"); raw != "" {
		if page, err = strconv.Atoi(raw); err != nil {
			http.Error(w, "invalid page", http.StatusBadRequest)
			return
		}
	}

	coll, err := h.cat.EditionCollection(r.Context(), id, page, book.DefaultPageLength)
	switch {
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, book.ErrPageOutOfRange):
		http.NotFound(w, r)
		return
	case err != nil:
		h.logger.Error("editions collection", slog.Int64("work_id", id), slog.Any("error", err))
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, activityJSON, coll)
}

func writeJSON(w http.ResponseWriter, code int, contentType string, v any) {
	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
