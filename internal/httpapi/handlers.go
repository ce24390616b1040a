// Package httpapi exposes the stored products, runs, and snapshots over a
// read-only JSON API.
package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/maltedev/ph-ai-tracker/internal/database"
)

const defaultListLimit = 50

type Handlers struct {
	store  *database.Store
	logger *slog.Logger
}

func NewHandlers(store *database.Store) *Handlers {
	return &Handlers{
		store:  store,
		logger: slog.Default().With("component", "httpapi"),
	}
}

// Health handles liveness checks.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	products, err := h.store.CountProducts(r.Context())
	if err != nil {
		h.respondJSON(w, http.StatusServiceUnavailable, map[string]string{
			"status": "error",
			"error":  "database unavailable",
		})
		return
	}
	snapshots, _ := h.store.CountSnapshots(r.Context())
	h.respondJSON(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"products":  products,
		"snapshots": snapshots,
	})
}

// ListProducts returns deduplicated products, highest votes first.
func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultListLimit)
	products, err := h.store.LatestProducts(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list products", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list products")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count":    len(products),
		"products": products,
	})
}

// GetProductSnapshots returns one product's observation history.
func (h *Handlers) GetProductSnapshots(w http.ResponseWriter, r *http.Request) {
	productID, err := strconv.ParseInt(chi.URLParam(r, "productID"), 10, 64)
	if err != nil {
		h.respondError(w, http.StatusBadRequest, "product ID must be an integer")
		return
	}

	snapshots, err := h.store.ProductSnapshots(r.Context(), productID)
	if err != nil {
		h.logger.Error("failed to get snapshots", "error", err, "product_id", productID)
		h.respondError(w, http.StatusInternalServerError, "failed to get snapshots")
		return
	}
	if len(snapshots) == 0 {
		h.respondError(w, http.StatusNotFound, "no snapshots for product")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"product_id": productID,
		"count":      len(snapshots),
		"snapshots":  snapshots,
	})
}

// ListRuns returns the most recent fetch runs, newest first.
func (h *Handlers) ListRuns(w http.ResponseWriter, r *http.Request) {
	limit := queryLimit(r, defaultListLimit)
	runs, err := h.store.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list runs", "error", err)
		h.respondError(w, http.StatusInternalServerError, "failed to list runs")
		return
	}
	h.respondJSON(w, http.StatusOK, map[string]any{
		"count": len(runs),
		"runs":  runs,
	})
}

func queryLimit(r *http.Request, fallback int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

func (h *Handlers) respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handlers) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, map[string]string{"error": message})
}
