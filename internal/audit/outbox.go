// Package audit stores order audit events: the transactional outbox on the
// orders side and the append-only audit log on the consumer side.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/joao-fontenele/restaurant-pos/internal/dbtx"
	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

const outboxTable = "orders.audit_outbox"

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// OutboxMessage is a pending audit record awaiting publication.
type OutboxMessage struct {
	ID            int64
	EventID       string
	Key           string
	Payload       []byte
	Headers       map[string]string
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
}

// Outbox writes audit events in the caller's transaction and hands them to the
// relay later.
type Outbox struct {
	db  *sql.DB
	now func() time.Time
}

func NewOutbox(db *sql.DB) *Outbox {
	return &Outbox{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// Record enqueues event. Called inside a dbtx unit of work it commits or rolls
// back together with the order mutation.
func (o *Outbox) Record(ctx context.Context, event domain.AuditEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal audit event: %w", err)
	}

	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	headers, err := json.Marshal(carrier)
	if err != nil {
		return fmt.Errorf("marshal trace headers: %w", err)
	}

	now := o.now()
	query, args, err := psql.Insert(outboxTable).
		Columns("event_id", "message_key", "payload", "headers", "attempts", "next_attempt_at", "created_at").
		Values(event.ID, event.OrderID, payload, headers, 0, now, now).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert outbox: %w", err)
	}

	if _, err := dbtx.Conn(ctx, o.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert outbox: %w", err)
	}
	return nil
}

// Claim locks up to limit due messages, oldest first, and runs fn while the
// locks are held. Rows locked by another relay are skipped.
func (o *Outbox) Claim(ctx context.Context, limit int, fn func(ctx context.Context, msgs []OutboxMessage) error) error {
	return dbtx.Run(ctx, o.db, func(ctx context.Context) error {
		query, args, err := psql.Select(
			"id", "event_id", "message_key", "payload", "headers",
			"attempts", "last_error", "next_attempt_at", "created_at",
		).
			From(outboxTable).
			Where(sq.LtOrEq{"next_attempt_at": o.now()}).
			OrderBy("id").
			Limit(uint64(limit)).
			Suffix("FOR UPDATE SKIP LOCKED").
			ToSql()
		if err != nil {
			return fmt.Errorf("build select outbox: %w", err)
		}

		rows, err := dbtx.Conn(ctx, o.db).QueryContext(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("query outbox: %w", err)
		}

		var msgs []OutboxMessage
		for rows.Next() {
			var (
				msg     OutboxMessage
				headers []byte
			)
			err := rows.Scan(
				&msg.ID, &msg.EventID, &msg.Key, &msg.Payload, &headers,
				&msg.Attempts, &msg.LastError, &msg.NextAttemptAt, &msg.CreatedAt,
			)
			if err != nil {
				_ = rows.Close()
				return fmt.Errorf("scan outbox: %w", err)
			}
			if len(headers) > 0 {
				if err := json.Unmarshal(headers, &msg.Headers); err != nil {
					_ = rows.Close()
					return fmt.Errorf("decode outbox headers: %w", err)
				}
			}
			msgs = append(msgs, msg)
		}
		if err := rows.Err(); err != nil {
			_ = rows.Close()
			return err
		}
		_ = rows.Close()

		if len(msgs) == 0 {
			return nil
		}
		return fn(ctx, msgs)
	})
}

// Delete removes a published message.
func (o *Outbox) Delete(ctx context.Context, id int64) error {
	query, args, err := psql.Delete(outboxTable).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return fmt.Errorf("build delete outbox: %w", err)
	}

	if _, err := dbtx.Conn(ctx, o.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("delete outbox: %w", err)
	}
	return nil
}

// Reschedule records a failed publish attempt.
func (o *Outbox) Reschedule(ctx context.Context, id int64, attempts int, lastError string, next time.Time) error {
	query, args, err := psql.Update(outboxTable).
		Set("attempts", attempts).
		Set("last_error", lastError).
		Set("next_attempt_at", next).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update outbox: %w", err)
	}

	if _, err := dbtx.Conn(ctx, o.db).ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update outbox: %w", err)
	}
	return nil
}
