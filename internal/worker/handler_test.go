package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/messaging"
)

type fakeSaver struct {
	saved map[string]domain.AuditEvent
	err   error
}

func (s *fakeSaver) Save(_ context.Context, events ...domain.AuditEvent) (int64, error) {
	if s.err != nil {
		return 0, s.err
	}
	var inserted int64
	for _, e := range events {
		if _, ok := s.saved[e.ID]; ok {
			continue
		}
		s.saved[e.ID] = e
		inserted++
	}
	return inserted, nil
}

func TestAuditHandler_Handle(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	valid := messaging.Message{
		Key:   "order-1",
		Value: []byte(`{"id":"e1","action":"order.status_changed","order_id":"order-1","order_number":7,"actor_id":"manager-1","actor_role":"manager","occurred_at":"2024-03-10T12:00:00Z","detail":{"from":"READY","to":"PREPARING","override":true}}`),
	}

	t.Run("stores once", func(t *testing.T) {
		saver := &fakeSaver{saved: make(map[string]domain.AuditEvent)}
		h := NewAuditHandler(saver, logger)

		for range 2 {
			if err := h.Handle(context.Background(), valid); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}
		if len(saver.saved) != 1 {
			t.Fatalf("expected 1 stored event, got %d", len(saver.saved))
		}
		got := saver.saved["e1"]
		if got.Action != domain.AuditOrderStatusChanged || got.OrderNumber != 7 || got.ActorRole != domain.RoleManager {
			t.Errorf("unexpected stored event: %+v", got)
		}
		if got.Detail["override"] != true {
			t.Errorf("expected detail preserved, got %v", got.Detail)
		}
	})

	t.Run("malformed payloads are poison", func(t *testing.T) {
		h := NewAuditHandler(&fakeSaver{saved: make(map[string]domain.AuditEvent)}, logger)
		for _, payload := range []string{`not json`, `{"action":"order.created"}`} {
			err := h.Handle(context.Background(), messaging.Message{Value: []byte(payload)})
			if !errors.Is(err, messaging.ErrPoison) {
				t.Errorf("%s: expected ErrPoison, got %v", payload, err)
			}
		}
	})

	t.Run("storage failure is retried", func(t *testing.T) {
		h := NewAuditHandler(&fakeSaver{err: errors.New("connection refused")}, logger)
		err := h.Handle(context.Background(), valid)
		if err == nil || errors.Is(err, messaging.ErrPoison) {
			t.Errorf("expected a retryable error, got %v", err)
		}
	})
}
