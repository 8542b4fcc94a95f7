package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

const logTable = "audit.audit_log"

// Store is the append-only audit log written by the audit worker. Event ids are
// the primary key, so redelivered events are dropped.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Save inserts events and returns how many were new.
func (s *Store) Save(ctx context.Context, events ...domain.AuditEvent) (int64, error) {
	if len(events) == 0 {
		return 0, nil
	}

	builder := psql.Insert(logTable).
		Columns(
			"id",
			"action",
			"order_id",
			"order_number",
			"actor_id",
			"actor_role",
			"occurred_at",
			"detail",
		).
		Suffix("ON CONFLICT (id) DO NOTHING")

	for _, e := range events {
		detail, err := json.Marshal(e.Detail)
		if err != nil {
			return 0, fmt.Errorf("marshal detail for event %s: %w", e.ID, err)
		}
		builder = builder.Values(
			e.ID,
			e.Action,
			e.OrderID,
			e.OrderNumber,
			e.ActorID,
			e.ActorRole,
			e.OccurredAt,
			detail,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("build audit insert: %w", err)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("insert audit events: %w", err)
	}

	return result.RowsAffected()
}

// ListByOrder returns an order's trail, oldest first. It survives order deletion.
func (s *Store) ListByOrder(ctx context.Context, orderID string) ([]domain.AuditEvent, error) {
	if _, err := uuid.Parse(orderID); err != nil {
		return []domain.AuditEvent{}, nil
	}

	query, args, err := psql.Select(
		"id", "action", "order_id", "order_number", "actor_id", "actor_role", "occurred_at", "detail",
	).
		From(logTable).
		Where(sq.Eq{"order_id": orderID}).
		OrderBy("occurred_at", "id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build audit select: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	events := []domain.AuditEvent{}
	for rows.Next() {
		var (
			e      domain.AuditEvent
			detail []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.OrderID, &e.OrderNumber, &e.ActorID, &e.ActorRole, &e.OccurredAt, &detail); err != nil {
			return nil, err
		}
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &e.Detail); err != nil {
				return nil, fmt.Errorf("decode detail for event %s: %w", e.ID, err)
			}
		}
		e.OccurredAt = e.OccurredAt.UTC()
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return events, nil
}
