package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
)

type Handler struct {
	ordersProxy  *ServiceProxy
	catalogProxy *ServiceProxy
	logger       *slog.Logger
}

func NewHandler(ordersProxy, catalogProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		ordersProxy:  ordersProxy,
		catalogProxy: catalogProxy,
		logger:       logger,
	}
}

// Register mounts the public routes. Every route requires a verified token.
func (h *Handler) Register(mux *http.ServeMux, auth *Authenticator) {
	ordersRoutes := []string{
		"POST /orders",
		"GET /orders",
		"GET /orders/{id}",
		"PATCH /orders/{id}",
		"DELETE /orders/{id}",
		"PATCH /orders/{id}/status",
		"GET /orders/{id}/next-statuses",
		"GET /statuses/next",
		"GET /dashboard",
	}
	for _, pattern := range ordersRoutes {
		mux.Handle(pattern, auth.Middleware(http.HandlerFunc(h.HandleOrders)))
	}

	catalogRoutes := []string{
		"GET /menu-items",
		"GET /menu-items/{id}",
		"GET /deals",
		"GET /deals/{id}",
	}
	for _, pattern := range catalogRoutes {
		mux.Handle(pattern, auth.Middleware(http.HandlerFunc(h.HandleCatalog)))
	}
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

func (h *Handler) HandleCatalog(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.catalogProxy, r.URL.Path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "failed to forward request", "error", err, "path", path)
		writeError(w, http.StatusBadGateway, "service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.InfoContext(r.Context(), "request proxied", "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
