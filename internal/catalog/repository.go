package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// CatalogRepository reads menu items and deals. The orders service prices lines
// through Snapshot; the catalog service serves the rest over HTTP.
type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) ListMenuItems(ctx context.Context, activeOnly bool) ([]domain.MenuItem, error) {
	builder := psql.Select("id", "name", "category", "price", "active").
		From("catalog.menu_items").
		OrderBy("category", "name")
	if activeOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list menu items: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	items := []domain.MenuItem{}
	for rows.Next() {
		var item domain.MenuItem
		if err := rows.Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.Active); err != nil {
			return nil, err
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return items, nil
}

func (r *CatalogRepository) GetMenuItem(ctx context.Context, id string) (*domain.MenuItem, error) {
	item := &domain.MenuItem{}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, category, price, active
		FROM catalog.menu_items
		WHERE id = $1
	`, id).Scan(&item.ID, &item.Name, &item.Category, &item.Price, &item.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	return item, nil
}

func (r *CatalogRepository) ListDeals(ctx context.Context, activeOnly bool) ([]domain.Deal, error) {
	builder := psql.Select("id", "name", "price", "active").
		From("catalog.deals").
		OrderBy("name")
	if activeOnly {
		builder = builder.Where(sq.Eq{"active": true})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list deals: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	dealMap := make(map[string]*domain.Deal)
	var dealIDs []string
	for rows.Next() {
		var deal domain.Deal
		if err := rows.Scan(&deal.ID, &deal.Name, &deal.Price, &deal.Active); err != nil {
			return nil, err
		}
		deal.Items = []domain.DealComponent{}
		dealMap[deal.ID] = &deal
		dealIDs = append(dealIDs, deal.ID)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(dealIDs) == 0 {
		return []domain.Deal{}, nil
	}

	if err := r.loadComponents(ctx, dealIDs, dealMap); err != nil {
		return nil, err
	}

	deals := make([]domain.Deal, 0, len(dealIDs))
	for _, id := range dealIDs {
		deals = append(deals, *dealMap[id])
	}
	return deals, nil
}

func (r *CatalogRepository) GetDeal(ctx context.Context, id string) (*domain.Deal, error) {
	deal := &domain.Deal{Items: []domain.DealComponent{}}

	err := r.db.QueryRowContext(ctx, `
		SELECT id, name, price, active
		FROM catalog.deals
		WHERE id = $1
	`, id).Scan(&deal.ID, &deal.Name, &deal.Price, &deal.Active)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	if err := r.loadComponents(ctx, []string{id}, map[string]*domain.Deal{id: deal}); err != nil {
		return nil, err
	}
	return deal, nil
}

func (r *CatalogRepository) loadComponents(ctx context.Context, dealIDs []string, deals map[string]*domain.Deal) error {
	rows, err := r.db.QueryContext(ctx, `
		SELECT di.deal_id, di.item_id, mi.name, di.quantity
		FROM catalog.deal_items di
		JOIN catalog.menu_items mi ON mi.id = di.item_id
		WHERE di.deal_id = ANY($1)
		ORDER BY di.deal_id, di.item_id
	`, pq.Array(dealIDs))
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		var dealID string
		var c domain.DealComponent
		if err := rows.Scan(&dealID, &c.ItemID, &c.Name, &c.Quantity); err != nil {
			return err
		}
		deal := deals[dealID]
		deal.Items = append(deal.Items, c)
	}

	return rows.Err()
}

// Snapshot resolves refs in at most two queries. Unknown refs are left out of
// the result; inactive products are returned with Active=false.
func (r *CatalogRepository) Snapshot(ctx context.Context, refs []domain.ProductRef) (map[domain.ProductRef]domain.Product, error) {
	var itemIDs, dealIDs []string
	for _, ref := range refs {
		switch ref.Kind {
		case domain.ProductKindItem:
			itemIDs = append(itemIDs, ref.ID)
		case domain.ProductKindDeal:
			dealIDs = append(dealIDs, ref.ID)
		}
	}

	out := make(map[domain.ProductRef]domain.Product, len(refs))
	if err := r.snapshotTable(ctx, "catalog.menu_items", domain.ProductKindItem, itemIDs, out); err != nil {
		return nil, fmt.Errorf("menu items: %w", err)
	}
	if err := r.snapshotTable(ctx, "catalog.deals", domain.ProductKindDeal, dealIDs, out); err != nil {
		return nil, fmt.Errorf("deals: %w", err)
	}
	return out, nil
}

func (r *CatalogRepository) snapshotTable(ctx context.Context, table string, kind domain.ProductKind, ids []string, out map[domain.ProductRef]domain.Product) error {
	if len(ids) == 0 {
		return nil
	}

	query, args, err := psql.Select("id", "name", "price", "active").
		From(table).
		Where(sq.Expr("id = ANY(?)", pq.Array(ids))).
		ToSql()
	if err != nil {
		return err
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return err
	}
	defer func() { _ = rows.Close() }()

	for rows.Next() {
		p := domain.Product{Kind: kind}
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.Active); err != nil {
			return err
		}
		out[domain.ProductRef{Kind: kind, ID: p.ID}] = p
	}

	return rows.Err()
}
