// Package pricing turns line requests into priced order lines and derives order
// totals. Everything here is deterministic; the catalog is read once per quote.
package pricing

import (
	"context"
	"fmt"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

// MaxQuantity bounds a single line.
const MaxQuantity = 10_000

type LineRequest struct {
	Kind      domain.ProductKind `json:"product_kind"`
	ProductID string             `json:"product_id"`
	Quantity  int                `json:"quantity"`
}

// Catalog resolves product references to their current name, price and
// availability. Missing products are simply absent from the result.
type Catalog interface {
	Snapshot(ctx context.Context, refs []domain.ProductRef) (map[domain.ProductRef]domain.Product, error)
}

type Totals struct {
	Subtotal       domain.Money
	DeliveryCharge domain.Money
	Discount       domain.Money
	Total          domain.Money
}

// Quote validates the requests, reads one catalog snapshot and prices the lines.
func Quote(ctx context.Context, catalog Catalog, reqs []LineRequest) ([]domain.OrderLine, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	refs := make([]domain.ProductRef, 0, len(reqs))
	for _, r := range reqs {
		refs = append(refs, domain.ProductRef{Kind: r.Kind, ID: r.ProductID})
	}

	snapshot, err := catalog.Snapshot(ctx, refs)
	if err != nil {
		return nil, fmt.Errorf("catalog snapshot: %w", err)
	}

	return BuildLines(reqs, snapshot)
}

// BuildLines prices each request from the snapshot, capturing name and unit price.
func BuildLines(reqs []LineRequest, snapshot map[domain.ProductRef]domain.Product) ([]domain.OrderLine, error) {
	if err := validateRequests(reqs); err != nil {
		return nil, err
	}

	lines := make([]domain.OrderLine, 0, len(reqs))
	for i, r := range reqs {
		field := fmt.Sprintf("lines[%d].product_id", i)
		p, ok := snapshot[domain.ProductRef{Kind: r.Kind, ID: r.ProductID}]
		if !ok {
			return nil, domain.NewValidationError(field, "%s %q does not exist", r.Kind, r.ProductID)
		}
		if !p.Active {
			return nil, domain.NewValidationError(field, "%s %q is not active", r.Kind, r.ProductID)
		}
		total, err := p.Price.Times(r.Quantity)
		if err != nil {
			return nil, domain.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "line total out of range: %v", err)
		}
		lines = append(lines, domain.OrderLine{
			ProductKind:     r.Kind,
			ProductID:       r.ProductID,
			NameAtSale:      p.Name,
			UnitPriceAtSale: p.Price,
			Quantity:        r.Quantity,
			LineTotal:       total,
		})
	}
	return lines, nil
}

// Subtotal sums the line totals. Overflow is a validation error on "lines".
func Subtotal(lines []domain.OrderLine) (domain.Money, error) {
	var sum domain.Money
	for _, l := range lines {
		next, err := sum.Add(l.LineTotal)
		if err != nil {
			return 0, domain.NewValidationError("lines", "subtotal out of range: %v", err)
		}
		sum = next
	}
	return sum, nil
}

// ComputeTotals applies total = subtotal + deliveryCharge - discount. A discount
// larger than the payable amount is a validation error, never clamped.
func ComputeTotals(lines []domain.OrderLine, deliveryCharge, discount domain.Money) (Totals, error) {
	if deliveryCharge < 0 {
		return Totals{}, domain.NewValidationError("delivery_charge", "must not be negative")
	}
	if discount < 0 {
		return Totals{}, domain.NewValidationError("discount", "must not be negative")
	}

	subtotal, err := Subtotal(lines)
	if err != nil {
		return Totals{}, err
	}
	payable, err := subtotal.Add(deliveryCharge)
	if err != nil {
		return Totals{}, domain.NewValidationError("delivery_charge", "payable amount out of range: %v", err)
	}
	if discount > payable {
		return Totals{}, domain.NewValidationError("discount",
			"%s exceeds payable amount %s", discount, payable)
	}

	return Totals{
		Subtotal:       subtotal,
		DeliveryCharge: deliveryCharge,
		Discount:       discount,
		Total:          payable - discount,
	}, nil
}

// Apply recomputes the order's money fields from its lines.
func Apply(order *domain.Order) error {
	totals, err := ComputeTotals(order.Lines, order.DeliveryCharge, order.Discount)
	if err != nil {
		return err
	}
	order.Subtotal = totals.Subtotal
	order.Total = totals.Total
	return nil
}

func validateRequests(reqs []LineRequest) error {
	if len(reqs) == 0 {
		return domain.NewValidationError("lines", "at least one line is required")
	}
	for i, r := range reqs {
		if !r.Kind.Valid() {
			return domain.NewValidationError(fmt.Sprintf("lines[%d].product_kind", i), "unknown product kind %q", r.Kind)
		}
		if r.ProductID == "" {
			return domain.NewValidationError(fmt.Sprintf("lines[%d].product_id", i), "is required")
		}
		if r.Quantity < 1 || r.Quantity > MaxQuantity {
			return domain.NewValidationError(fmt.Sprintf("lines[%d].quantity", i), "must be between 1 and %d", MaxQuantity)
		}
	}
	return nil
}
