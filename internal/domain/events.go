package domain

import "time"

type AuditAction string

const (
	AuditOrderCreated       AuditAction = "order.created"
	AuditOrderUpdated       AuditAction = "order.updated"
	AuditOrderStatusChanged AuditAction = "order.status_changed"
	AuditOrderDeleted       AuditAction = "order.deleted"
)

// AuditEvent records one successful mutation of an order.
type AuditEvent struct {
	ID          string         `json:"id"`
	Action      AuditAction    `json:"action"`
	OrderID     string         `json:"order_id"`
	OrderNumber int64          `json:"order_number"`
	ActorID     string         `json:"actor_id"`
	ActorRole   Role           `json:"actor_role"`
	OccurredAt  time.Time      `json:"occurred_at"`
	Detail      map[string]any `json:"detail,omitempty"`
}
