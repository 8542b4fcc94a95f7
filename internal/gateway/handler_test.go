package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/orders"
)

const testSecret = "test-secret"

func newTestGateway(t *testing.T, ordersURL, catalogURL string) (*http.ServeMux, *Authenticator) {
	t.Helper()
	auth := NewAuthenticator(testSecret)
	handler := NewHandler(
		NewServiceProxy(ordersURL, http.DefaultClient),
		NewServiceProxy(catalogURL, http.DefaultClient),
		slog.New(slog.NewTextHandler(io.Discard, nil)),
	)
	mux := http.NewServeMux()
	handler.Register(mux, auth)
	return mux, auth
}

func bearer(t *testing.T, auth *Authenticator, id string, role domain.Role) string {
	t.Helper()
	token, err := auth.Issue(id, role, time.Hour)
	if err != nil {
		t.Fatalf("failed to issue token: %v", err)
	}
	return "Bearer " + token
}

func TestHandler_Orders(t *testing.T) {
	t.Run("forwards verified identity", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/orders/abc/status" {
				t.Errorf("expected /orders/abc/status, got %s", r.URL.Path)
			}
			if got := r.Header.Get(orders.HeaderActorID); got != "u-1" {
				t.Errorf("expected actor u-1, got %q", got)
			}
			if got := r.Header.Get(orders.HeaderActorRole); got != "manager" {
				t.Errorf("expected role manager, got %q", got)
			}
			body, _ := io.ReadAll(r.Body)
			if string(body) != `{"status":"PREPARING"}` {
				t.Errorf("unexpected body: %s", body)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":"abc"}`))
		}))
		defer ordersServer.Close()

		mux, auth := newTestGateway(t, ordersServer.URL, "http://unused")

		req := httptest.NewRequest(http.MethodPatch, "/orders/abc/status", strings.NewReader(`{"status":"PREPARING"}`))
		req.Header.Set("Authorization", bearer(t, auth, "u-1", domain.RoleManager))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
		if rec.Header().Get("Content-Type") != "application/json" {
			t.Errorf("expected application/json, got %s", rec.Header().Get("Content-Type"))
		}
		if rec.Body.String() != `{"id":"abc"}` {
			t.Errorf("unexpected body: %s", rec.Body.String())
		}
	})

	t.Run("spoofed identity headers are replaced", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get(orders.HeaderActorRole); got != "user" {
				t.Errorf("expected role user, got %q", got)
			}
			if got := r.Header.Get(orders.HeaderActorID); got != "u-2" {
				t.Errorf("expected actor u-2, got %q", got)
			}
			w.WriteHeader(http.StatusNoContent)
		}))
		defer ordersServer.Close()

		mux, auth := newTestGateway(t, ordersServer.URL, "http://unused")

		req := httptest.NewRequest(http.MethodDelete, "/orders/abc", nil)
		req.Header.Set("Authorization", bearer(t, auth, "u-2", domain.RoleUser))
		req.Header.Set(orders.HeaderActorID, "boss")
		req.Header.Set(orders.HeaderActorRole, "manager")
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNoContent {
			t.Errorf("expected status 204, got %d", rec.Code)
		}
	})

	t.Run("keeps query string", func(t *testing.T) {
		ordersServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/dashboard" {
				t.Errorf("expected /dashboard, got %s", r.URL.Path)
			}
			if r.URL.RawQuery != "from=2024-01-01&to=2024-01-31" {
				t.Errorf("unexpected query: %s", r.URL.RawQuery)
			}
			w.WriteHeader(http.StatusOK)
		}))
		defer ordersServer.Close()

		mux, auth := newTestGateway(t, ordersServer.URL, "http://unused")

		req := httptest.NewRequest(http.MethodGet, "/dashboard?from=2024-01-01&to=2024-01-31", nil)
		req.Header.Set("Authorization", bearer(t, auth, "u-1", domain.RoleManager))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("rejects missing token", func(t *testing.T) {
		mux, _ := newTestGateway(t, "http://unused", "http://unused")

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("expected status 401, got %d", rec.Code)
		}
	})

	t.Run("returns 502 when orders service unavailable", func(t *testing.T) {
		mux, auth := newTestGateway(t, "http://localhost:99999", "http://unused")

		req := httptest.NewRequest(http.MethodGet, "/orders", nil)
		req.Header.Set("Authorization", bearer(t, auth, "u-1", domain.RoleUser))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadGateway {
			t.Errorf("expected status 502, got %d", rec.Code)
		}

		var resp map[string]string
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if resp["error"] != "service unavailable" {
			t.Errorf("expected 'service unavailable', got %s", resp["error"])
		}
	})
}

func TestHandler_Catalog(t *testing.T) {
	t.Run("forwards to catalog service", func(t *testing.T) {
		catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/deals/DEAL-001" {
				t.Errorf("expected /deals/DEAL-001, got %s", r.URL.Path)
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte(`{"id":"DEAL-001"}`))
		}))
		defer catalogServer.Close()

		mux, auth := newTestGateway(t, "http://unused", catalogServer.URL)

		req := httptest.NewRequest(http.MethodGet, "/deals/DEAL-001", nil)
		req.Header.Set("Authorization", bearer(t, auth, "u-1", domain.RoleUser))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("expected status 200, got %d", rec.Code)
		}
	})

	t.Run("preserves downstream error status", func(t *testing.T) {
		catalogServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"error":"menu item not found"}`))
		}))
		defer catalogServer.Close()

		mux, auth := newTestGateway(t, "http://unused", catalogServer.URL)

		req := httptest.NewRequest(http.MethodGet, "/menu-items/unknown", nil)
		req.Header.Set("Authorization", bearer(t, auth, "u-1", domain.RoleUser))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})
}
