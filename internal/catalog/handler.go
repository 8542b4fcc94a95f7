package catalog

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

// Reader is the read side the HTTP handler needs.
type Reader interface {
	ListMenuItems(ctx context.Context, activeOnly bool) ([]domain.MenuItem, error)
	GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error)
	ListDeals(ctx context.Context, activeOnly bool) ([]domain.Deal, error)
	GetDeal(ctx context.Context, id string) (*domain.Deal, error)
}

type Handler struct {
	repo   Reader
	logger *slog.Logger
}

func NewHandler(repo Reader, logger *slog.Logger) *Handler {
	return &Handler{
		repo:   repo,
		logger: logger,
	}
}

func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /menu-items", h.HandleListMenuItems)
	mux.HandleFunc("GET /menu-items/{id}", h.HandleGetMenuItem)
	mux.HandleFunc("GET /deals", h.HandleListDeals)
	mux.HandleFunc("GET /deals/{id}", h.HandleGetDeal)
}

func (h *Handler) HandleListMenuItems(w http.ResponseWriter, r *http.Request) {
	activeOnly, ok := h.activeOnly(w, r)
	if !ok {
		return
	}

	items, err := h.repo.ListMenuItems(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("failed to list menu items", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("menu items listed", "count", len(items))
	h.writeJSON(w, http.StatusOK, items)
}

func (h *Handler) HandleGetMenuItem(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	item, err := h.repo.GetMenuItem(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get menu item", "error", err, "item_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if item == nil {
		h.writeError(w, http.StatusNotFound, "menu item not found")
		return
	}

	h.writeJSON(w, http.StatusOK, item)
}

func (h *Handler) HandleListDeals(w http.ResponseWriter, r *http.Request) {
	activeOnly, ok := h.activeOnly(w, r)
	if !ok {
		return
	}

	deals, err := h.repo.ListDeals(r.Context(), activeOnly)
	if err != nil {
		h.logger.Error("failed to list deals", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("deals listed", "count", len(deals))
	h.writeJSON(w, http.StatusOK, deals)
}

func (h *Handler) HandleGetDeal(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")

	deal, err := h.repo.GetDeal(r.Context(), id)
	if err != nil {
		h.logger.Error("failed to get deal", "error", err, "deal_id", id)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	if deal == nil {
		h.writeError(w, http.StatusNotFound, "deal not found")
		return
	}

	h.writeJSON(w, http.StatusOK, deal)
}

// activeOnly reads ?active=; listings default to active products only.
func (h *Handler) activeOnly(w http.ResponseWriter, r *http.Request) (bool, bool) {
	v := r.URL.Query().Get("active")
	if v == "" {
		return true, true
	}
	active, err := strconv.ParseBool(v)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, "active must be a boolean")
		return false, false
	}
	return active, true
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
