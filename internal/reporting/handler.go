package reporting

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// HandleDashboard serves GET /dashboard?from=YYYY-MM-DD&to=YYYY-MM-DD. Either
// bound may be omitted only if both are.
func (h *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	rng, err := h.parseRange(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	dashboard, err := h.service.Dashboard(r.Context(), rng)
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.writeError(w, http.StatusBadRequest, verr.Error())
			return
		}
		h.logger.Error("failed to build dashboard", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.writeJSON(w, http.StatusOK, dashboard)
}

func (h *Handler) parseRange(r *http.Request) (*Range, error) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	if from == "" && to == "" {
		return nil, nil
	}
	if from == "" || to == "" {
		return nil, domain.NewValidationError("from", "from and to must be given together")
	}

	loc := h.service.Location()
	start, err := time.ParseInLocation(time.DateOnly, from, loc)
	if err != nil {
		return nil, domain.NewValidationError("from", "must be a YYYY-MM-DD date")
	}
	end, err := time.ParseInLocation(time.DateOnly, to, loc)
	if err != nil {
		return nil, domain.NewValidationError("to", "must be a YYYY-MM-DD date")
	}
	return &Range{From: start, To: end}, nil
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
