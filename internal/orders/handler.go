package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/transition"
)

// Identity headers set by the gateway after it verifies the caller's token.
const (
	HeaderActorID   = "X-Actor-ID"
	HeaderActorRole = "X-Actor-Role"
)

type Handler struct {
	manager *Manager
	logger  *slog.Logger
}

func NewHandler(manager *Manager, logger *slog.Logger) *Handler {
	return &Handler{
		manager: manager,
		logger:  logger,
	}
}

// Register mounts the order routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /orders", h.HandleCreate)
	mux.HandleFunc("GET /orders", h.HandleList)
	mux.HandleFunc("GET /orders/{id}", h.HandleGet)
	mux.HandleFunc("PATCH /orders/{id}", h.HandleEdit)
	mux.HandleFunc("PATCH /orders/{id}/status", h.HandleChangeStatus)
	mux.HandleFunc("DELETE /orders/{id}", h.HandleDelete)
	mux.HandleFunc("GET /orders/{id}/next-statuses", h.HandleNextStatuses)
	mux.HandleFunc("GET /statuses/next", h.HandleStatusPreview)
}

func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req CreateInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.manager.Create(r.Context(), actor, req)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "missing order id")
		return
	}

	order, err := h.manager.Get(r.Context(), id)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	orders, err := h.manager.List(r.Context(), filter)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.logger.InfoContext(r.Context(), "orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var patch Patch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.manager.Edit(r.Context(), actor, r.PathValue("id"), patch)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

type changeStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
}

func (h *Handler) HandleChangeStatus(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req changeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.manager.ChangeStatus(r.Context(), actor, r.PathValue("id"), req.Status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	if err := h.manager.Delete(r.Context(), actor, r.PathValue("id")); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

type nextStatusesResponse struct {
	Channel  domain.Channel       `json:"channel"`
	Status   domain.OrderStatus   `json:"status"`
	Statuses []domain.OrderStatus `json:"statuses"`
}

func (h *Handler) HandleNextStatuses(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)

	order, err := h.manager.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	next, err := transition.NextStatuses(order.Channel, order.Status, actor.Privileged())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, nextStatusesResponse{Channel: order.Channel, Status: order.Status, Statuses: next})
}

// HandleStatusPreview answers the policy question for a channel/status pair
// without touching storage.
func (h *Handler) HandleStatusPreview(w http.ResponseWriter, r *http.Request) {
	actor := actorFromRequest(r)
	ch := domain.Channel(strings.ToUpper(r.URL.Query().Get("channel")))
	status := domain.OrderStatus(strings.ToUpper(r.URL.Query().Get("status")))

	next, err := transition.NextStatuses(ch, status, actor.Privileged())
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	h.writeJSON(w, http.StatusOK, nextStatusesResponse{Channel: ch, Status: status, Statuses: next})
}

func (h *Handler) requireActor(w http.ResponseWriter, r *http.Request) (domain.Actor, bool) {
	actor := actorFromRequest(r)
	if actor.ID == "" {
		h.writeError(w, http.StatusUnauthorized, "missing "+HeaderActorID+" header")
		return domain.Actor{}, false
	}
	return actor, true
}

func actorFromRequest(r *http.Request) domain.Actor {
	return domain.Actor{
		ID:   strings.TrimSpace(r.Header.Get(HeaderActorID)),
		Role: domain.Role(strings.ToLower(strings.TrimSpace(r.Header.Get(HeaderActorRole)))),
	}
}

func parseFilter(r *http.Request) (Filter, error) {
	q := r.URL.Query()
	filter := Filter{
		Status:  domain.OrderStatus(strings.ToUpper(q.Get("status"))),
		Channel: domain.Channel(strings.ToUpper(q.Get("channel"))),
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return Filter{}, domain.NewValidationError("status", "unknown status %q", filter.Status)
	}
	if filter.Channel != "" && !filter.Channel.Valid() {
		return Filter{}, domain.NewValidationError("channel", "unknown channel %q", filter.Channel)
	}

	var err error
	if filter.From, err = parseTime(q.Get("from"), "from"); err != nil {
		return Filter{}, err
	}
	if filter.To, err = parseTime(q.Get("to"), "to"); err != nil {
		return Filter{}, err
	}

	if v := q.Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 0 {
			return Filter{}, domain.NewValidationError("limit", "must be a non-negative integer")
		}
		filter.Limit = limit
	}
	return filter, nil
}

func parseTime(v, field string) (time.Time, error) {
	if v == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, domain.NewValidationError(field, "must be an RFC 3339 timestamp")
	}
	return t, nil
}

type rejectionResponse struct {
	Error   string                 `json:"error"`
	Reason  domain.RejectionReason `json:"reason"`
	Allowed []domain.OrderStatus   `json:"allowed"`
}

func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		verr      *domain.ValidationError
		rejection *domain.PolicyRejection
		serr      *domain.StateError
		nerr      *domain.NotFoundError
	)

	switch {
	case errors.As(err, &verr):
		h.writeError(w, http.StatusBadRequest, verr.Error())
	case errors.Is(err, domain.ErrUnknownChannel), errors.Is(err, domain.ErrUnknownStatus):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &rejection):
		status := http.StatusConflict
		if rejection.Reason == domain.RejectionAuthorization {
			status = http.StatusForbidden
		}
		h.writeJSON(w, status, rejectionResponse{
			Error:   rejection.Error(),
			Reason:  rejection.Reason,
			Allowed: rejection.Allowed,
		})
	case errors.Is(err, domain.ErrForbidden):
		h.writeError(w, http.StatusForbidden, err.Error())
	case errors.As(err, &serr):
		h.writeError(w, http.StatusConflict, serr.Error())
	case errors.As(err, &nerr):
		h.writeError(w, http.StatusNotFound, nerr.Error())
	default:
		h.logger.ErrorContext(r.Context(), "request failed", "error", err, "method", r.Method, "path", r.URL.Path)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
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
