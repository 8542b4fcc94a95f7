package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/messaging"
)

type AuditSaver interface {
	Save(ctx context.Context, events ...domain.AuditEvent) (int64, error)
}

// AuditHandler persists audit events consumed from Kafka.
type AuditHandler struct {
	store  AuditSaver
	logger *slog.Logger
}

func NewAuditHandler(store AuditSaver, logger *slog.Logger) *AuditHandler {
	return &AuditHandler{
		store:  store,
		logger: logger,
	}
}

func (h *AuditHandler) Handle(ctx context.Context, msg messaging.Message) error {
	var event domain.AuditEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return fmt.Errorf("%w: unmarshal audit event: %v", messaging.ErrPoison, err)
	}
	if event.ID == "" || event.OrderID == "" || event.Action == "" {
		return fmt.Errorf("%w: audit event missing id, order id or action", messaging.ErrPoison)
	}

	inserted, err := h.store.Save(ctx, event)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to save audit event", "error", err, "event_id", event.ID)
		return fmt.Errorf("save audit event: %w", err)
	}

	if inserted == 0 {
		h.logger.InfoContext(ctx, "duplicate audit event ignored", "event_id", event.ID, "order_id", event.OrderID)
		return nil
	}

	h.logger.InfoContext(ctx, "audit event stored",
		"event_id", event.ID, "action", event.Action, "order_id", event.OrderID, "actor_id", event.ActorID)
	return nil
}
