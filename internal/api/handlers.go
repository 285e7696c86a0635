package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/arnstad/hugin/internal/apperr"
	"github.com/arnstad/hugin/internal/factservice"
	"github.com/arnstad/hugin/internal/store"
)

// Handler holds API route handlers.
type Handler struct {
	svc *factservice.Service
}

// NewHandler creates a new Handler.
func NewHandler(svc *factservice.Service) *Handler {
	return &Handler{svc: svc}
}

// GetFacts handles GET /api/facts and returns the latest flat fact table.
// An empty table (nothing gathered yet, or an unreachable metadata service)
// is a valid 200 response, not an error.
func (h *Handler) GetFacts(w http.ResponseWriter, r *http.Request) {
	facts, err := h.svc.Table(r.Context())
	if err != nil {
		slog.Error("get facts failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, FactTableResponse{Facts: facts, Count: len(facts)})
}

// GetFact handles GET /api/facts/{name}.
func (h *Handler) GetFact(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody("name is required"))
		return
	}
	value, err := h.svc.Get(r.Context(), name)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			writeJSON(w, http.StatusNotFound, errorBody("not found"))
		} else {
			slog.Error("get fact failed", slog.String("name", name), slog.String("error", err.Error()))
			writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		}
		return
	}
	writeJSON(w, http.StatusOK, FactResponse{Name: name, Value: value})
}

// Refresh handles POST /api/refresh and triggers a crawl immediately.
// The crawl is detached from request cancellation so a client disconnect
// mid-crawl cannot persist a truncated table as a snapshot.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Refresh(context.WithoutCancel(r.Context()))
	if err != nil {
		slog.Error("refresh failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// Snapshots handles GET /api/snapshots.
func (h *Handler) Snapshots(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	snaps, err := h.svc.Snapshots(r.Context(), limit)
	if err != nil {
		slog.Error("list snapshots failed", slog.String("error", err.Error()))
		writeJSON(w, http.StatusInternalServerError, errorBody("internal error"))
		return
	}
	if snaps == nil {
		snaps = []store.Snapshot{}
	}
	writeJSON(w, http.StatusOK, SnapshotListResponse{Snapshots: snaps})
}
