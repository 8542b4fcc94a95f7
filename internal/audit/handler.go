package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

type TrailReader interface {
	ListByOrder(ctx context.Context, orderID string) ([]domain.AuditEvent, error)
}

type Handler struct {
	store  TrailReader
	logger *slog.Logger
}

func NewHandler(store TrailReader, logger *slog.Logger) *Handler {
	return &Handler{store: store, logger: logger}
}

func (h *Handler) HandleTrail(w http.ResponseWriter, r *http.Request) {
	orderID := r.PathValue("id")

	events, err := h.store.ListByOrder(r.Context(), orderID)
	if err != nil {
		h.logger.Error("failed to list audit trail", "error", err, "order_id", orderID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if len(events) == 0 {
		h.writeError(w, http.StatusNotFound, "no audit records for order")
		return
	}

	h.writeJSON(w, http.StatusOK, events)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
