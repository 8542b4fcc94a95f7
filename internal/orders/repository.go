package orders

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/restaurant-pos/internal/dbtx"
	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

const (
	ordersTable = "orders.orders"
	linesTable  = "orders.order_lines"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

var orderColumns = []string{
	"id", "number", "channel", "status", "payment_method", "payment_status",
	"customer_name", "customer_phone", "customer_address",
	"subtotal", "delivery_charge", "discount", "total",
	"created_by", "created_at", "updated_at",
}

var lineColumns = []string{
	"id", "order_id", "position", "product_kind", "product_id",
	"name_at_sale", "unit_price_at_sale", "quantity", "line_total",
}

// OrderRepository is the Postgres Store. Numbers come from the
// orders.order_number_seq sequence.
type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

func (r *OrderRepository) Insert(ctx context.Context, order *domain.Order, after func(ctx context.Context, order *domain.Order) error) error {
	return dbtx.Run(ctx, r.db, func(ctx context.Context) error {
		q := dbtx.Conn(ctx, r.db)

		query, args, err := psql.Insert(ordersTable).
			Columns(
				"id", "channel", "status", "payment_method", "payment_status",
				"customer_name", "customer_phone", "customer_address",
				"subtotal", "delivery_charge", "discount", "total",
				"created_by", "created_at", "updated_at",
			).
			Values(
				order.ID, order.Channel, order.Status, order.PaymentMethod, order.PaymentStatus,
				order.Customer.Name, order.Customer.Phone, order.Customer.Address,
				order.Subtotal, order.DeliveryCharge, order.Discount, order.Total,
				order.CreatedBy, order.CreatedAt, order.UpdatedAt,
			).
			Suffix("RETURNING number").
			ToSql()
		if err != nil {
			return fmt.Errorf("build insert order: %w", err)
		}
		if err := q.QueryRowContext(ctx, query, args...).Scan(&order.Number); err != nil {
			return fmt.Errorf("insert order: %w", err)
		}

		if err := insertLines(ctx, q, order.ID, order.Lines); err != nil {
			return err
		}

		if after != nil {
			return after(ctx, order)
		}
		return nil
	})
}

func (r *OrderRepository) Mutate(ctx context.Context, id string, fn func(ctx context.Context, order *domain.Order) error) (*domain.Order, error) {
	var updated *domain.Order
	err := dbtx.Run(ctx, r.db, func(ctx context.Context) error {
		q := dbtx.Conn(ctx, r.db)

		current, err := load(ctx, q, id, true)
		if err != nil {
			return err
		}
		if current == nil {
			return &domain.NotFoundError{Resource: "order", ID: id}
		}

		next := current.Clone()
		if err := fn(ctx, next); err != nil {
			return err
		}

		query, args, err := psql.Update(ordersTable).
			Set("status", next.Status).
			Set("payment_method", next.PaymentMethod).
			Set("payment_status", next.PaymentStatus).
			Set("customer_name", next.Customer.Name).
			Set("customer_phone", next.Customer.Phone).
			Set("customer_address", next.Customer.Address).
			Set("subtotal", next.Subtotal).
			Set("delivery_charge", next.DeliveryCharge).
			Set("discount", next.Discount).
			Set("total", next.Total).
			Set("updated_at", next.UpdatedAt).
			Where(sq.Eq{"id": id}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build update order: %w", err)
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("update order: %w", err)
		}

		if !slices.Equal(current.Lines, next.Lines) {
			query, args, err := psql.Delete(linesTable).Where(sq.Eq{"order_id": id}).ToSql()
			if err != nil {
				return fmt.Errorf("build delete lines: %w", err)
			}
			if _, err := q.ExecContext(ctx, query, args...); err != nil {
				return fmt.Errorf("delete lines: %w", err)
			}
			if err := insertLines(ctx, q, id, next.Lines); err != nil {
				return err
			}
		}

		updated = next
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *OrderRepository) Remove(ctx context.Context, id string, fn func(ctx context.Context, order *domain.Order) error) error {
	return dbtx.Run(ctx, r.db, func(ctx context.Context) error {
		q := dbtx.Conn(ctx, r.db)

		current, err := load(ctx, q, id, true)
		if err != nil {
			return err
		}
		if current == nil {
			return &domain.NotFoundError{Resource: "order", ID: id}
		}

		if fn != nil {
			if err := fn(ctx, current); err != nil {
				return err
			}
		}

		// order_lines cascade
		query, args, err := psql.Delete(ordersTable).Where(sq.Eq{"id": id}).ToSql()
		if err != nil {
			return fmt.Errorf("build delete order: %w", err)
		}
		if _, err := q.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("delete order: %w", err)
		}
		return nil
	})
}

// GetByID returns nil, nil when the order does not exist.
func (r *OrderRepository) GetByID(ctx context.Context, id string) (*domain.Order, error) {
	return load(ctx, dbtx.Conn(ctx, r.db), id, false)
}

func (r *OrderRepository) List(ctx context.Context, filter Filter) ([]domain.Order, error) {
	q := dbtx.Conn(ctx, r.db)

	builder := psql.Select(orderColumns...).From(ordersTable).OrderBy("created_at DESC", "number DESC")
	if filter.Status != "" {
		builder = builder.Where(sq.Eq{"status": filter.Status})
	}
	if filter.Channel != "" {
		builder = builder.Where(sq.Eq{"channel": filter.Channel})
	}
	if !filter.From.IsZero() {
		builder = builder.Where(sq.GtOrEq{"created_at": filter.From})
	}
	if !filter.To.IsZero() {
		builder = builder.Where(sq.Lt{"created_at": filter.To})
	}
	if filter.Limit > 0 {
		builder = builder.Limit(uint64(filter.Limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list orders: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderIDs []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		order.Lines = []domain.OrderLine{}
		orderMap[order.ID] = order
		orderIDs = append(orderIDs, order.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderIDs) == 0 {
		return []domain.Order{}, nil
	}

	query, args, err = psql.Select(lineColumns...).
		From(linesTable).
		Where(sq.Expr("order_id = ANY(?)", pq.Array(orderIDs))).
		OrderBy("order_id", "position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list lines: %w", err)
	}

	lineRows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		orderID, line, err := scanLine(lineRows)
		if err != nil {
			return nil, err
		}
		order := orderMap[orderID]
		order.Lines = append(order.Lines, line)
	}

	if err := lineRows.Err(); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderIDs))
	for _, id := range orderIDs {
		orders = append(orders, *orderMap[id])
	}

	return orders, nil
}

func load(ctx context.Context, q dbtx.Querier, id string, forUpdate bool) (*domain.Order, error) {
	// ids are uuids; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, nil
	}

	builder := psql.Select(orderColumns...).From(ordersTable).Where(sq.Eq{"id": id})
	if forUpdate {
		builder = builder.Suffix("FOR UPDATE")
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get order: %w", err)
	}

	order, err := scanOrder(q.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	query, args, err = psql.Select(lineColumns...).
		From(linesTable).
		Where(sq.Eq{"order_id": id}).
		OrderBy("position").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get lines: %w", err)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	order.Lines = []domain.OrderLine{}
	for rows.Next() {
		_, line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		order.Lines = append(order.Lines, line)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return order, nil
}

func insertLines(ctx context.Context, q dbtx.Querier, orderID string, lines []domain.OrderLine) error {
	if len(lines) == 0 {
		return nil
	}

	builder := psql.Insert(linesTable).Columns(lineColumns...)
	for i, l := range lines {
		builder = builder.Values(
			l.ID, orderID, i, l.ProductKind, l.ProductID,
			l.NameAtSale, l.UnitPriceAtSale, l.Quantity, l.LineTotal,
		)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert lines: %w", err)
	}
	if _, err := q.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert lines: %w", err)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	err := s.Scan(
		&o.ID, &o.Number, &o.Channel, &o.Status, &o.PaymentMethod, &o.PaymentStatus,
		&o.Customer.Name, &o.Customer.Phone, &o.Customer.Address,
		&o.Subtotal, &o.DeliveryCharge, &o.Discount, &o.Total,
		&o.CreatedBy, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	o.CreatedAt = o.CreatedAt.UTC()
	o.UpdatedAt = o.UpdatedAt.UTC()
	return &o, nil
}

func scanLine(s scanner) (string, domain.OrderLine, error) {
	var (
		l        domain.OrderLine
		orderID  string
		position int
	)
	err := s.Scan(
		&l.ID, &orderID, &position, &l.ProductKind, &l.ProductID,
		&l.NameAtSale, &l.UnitPriceAtSale, &l.Quantity, &l.LineTotal,
	)
	return orderID, l, err
}
