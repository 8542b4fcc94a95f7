package audit

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

type fakeTrail struct {
	events map[string][]domain.AuditEvent
	err    error
}

func (f fakeTrail) ListByOrder(_ context.Context, orderID string) ([]domain.AuditEvent, error) {
	return f.events[orderID], f.err
}

func TestHandler_HandleTrail(t *testing.T) {
	trail := fakeTrail{events: map[string][]domain.AuditEvent{
		"order-1": {
			{ID: "e1", Action: domain.AuditOrderCreated, OrderID: "order-1", OccurredAt: time.Date(2024, 3, 10, 12, 0, 0, 0, time.UTC)},
			{ID: "e2", Action: domain.AuditOrderDeleted, OrderID: "order-1", OccurredAt: time.Date(2024, 3, 10, 13, 0, 0, 0, time.UTC)},
		},
	}}

	tests := []struct {
		name       string
		reader     TrailReader
		orderID    string
		wantStatus int
		wantCount  int
	}{
		{"trail survives deletion", trail, "order-1", http.StatusOK, 2},
		{"unknown order", trail, "order-2", http.StatusNotFound, 0},
		{"store failure", fakeTrail{err: errors.New("timeout")}, "order-1", http.StatusInternalServerError, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := http.NewServeMux()
			mux.HandleFunc("GET /audit/orders/{id}", NewHandler(tt.reader, slog.New(slog.NewTextHandler(io.Discard, nil))).HandleTrail)

			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/audit/orders/"+tt.orderID, nil))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d", tt.wantStatus, rec.Code)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			var events []domain.AuditEvent
			if err := json.NewDecoder(rec.Body).Decode(&events); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if len(events) != tt.wantCount {
				t.Errorf("expected %d events, got %d", tt.wantCount, len(events))
			}
		})
	}
}
