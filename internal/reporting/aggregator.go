// Package reporting builds the dashboard: a pure projection of stored orders.
// Nothing is cached between builds.
package reporting

import (
	"cmp"
	"slices"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

type Options struct {
	// Location is the restaurant's timezone; nil means UTC.
	Location *time.Location
	// CutoverHour is the local hour a business day starts at, 0-23.
	CutoverHour int
	// TopN bounds the item and deal rankings; zero or less means unbounded.
	TopN int
}

// Overview counts every order in scope but takes money and quantities from
// completed orders only.
type Overview struct {
	TotalOrders     int          `json:"total_orders"`
	CompletedOrders int          `json:"completed_orders"`
	CancelledOrders int          `json:"cancelled_orders"`
	Revenue         domain.Money `json:"revenue"`
	ItemsSold       int          `json:"items_sold"`
	DeliveryCharges domain.Money `json:"delivery_charges"`
	Discounts       domain.Money `json:"discounts"`
}

type PaymentBreakdown struct {
	Method domain.PaymentMethod `json:"method"`
	Orders int                  `json:"orders"`
	Amount domain.Money         `json:"amount"`
}

type OrderSummary struct {
	ByChannel map[domain.Channel]int     `json:"by_channel"`
	ByStatus  map[domain.OrderStatus]int `json:"by_status"`
	Payments  []PaymentBreakdown         `json:"payments"`
}

type RankedProduct struct {
	ProductID string       `json:"product_id"`
	Name      string       `json:"name"`
	Quantity  int          `json:"quantity"`
	Revenue   domain.Money `json:"revenue"`
}

// Bucket is one day, month or year of history, [Start, End).
type Bucket struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Overview
}

type Dashboard struct {
	// From and To bound the orders' creation time when a range was requested.
	From     *time.Time      `json:"from,omitempty"`
	To       *time.Time      `json:"to,omitempty"`
	Overview Overview        `json:"overview"`
	Summary  OrderSummary    `json:"summary"`
	TopItems []RankedProduct `json:"top_items"`
	TopDeals []RankedProduct `json:"top_deals"`
	Days     []Bucket        `json:"days"`
	Months   []Bucket        `json:"months"`
	Years    []Bucket        `json:"years"`
}

// Build aggregates orders. The result depends only on its inputs.
func Build(orders []domain.Order, opts Options) Dashboard {
	cal := newCalendar(opts)

	// oldest first so the latest name at sale wins in rankings
	sorted := slices.Clone(orders)
	slices.SortStableFunc(sorted, func(a, b domain.Order) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.Number, b.Number))
	})

	d := Dashboard{
		Summary: OrderSummary{
			ByChannel: make(map[domain.Channel]int),
			ByStatus:  make(map[domain.OrderStatus]int),
			Payments:  []PaymentBreakdown{},
		},
	}

	items := newRanking()
	deals := newRanking()
	payments := make(map[domain.PaymentMethod]*PaymentBreakdown)
	days := make(map[string]*Bucket)
	months := make(map[string]*Bucket)
	years := make(map[string]*Bucket)

	for i := range sorted {
		o := &sorted[i]

		d.Overview.add(o)
		d.Summary.ByChannel[o.Channel]++
		d.Summary.ByStatus[o.Status]++

		cal.bucket(days, o.CreatedAt, dayBucket).add(o)
		cal.bucket(months, o.CreatedAt, monthBucket).add(o)
		cal.bucket(years, o.CreatedAt, yearBucket).add(o)

		if !o.Status.Completed() {
			continue
		}

		p, ok := payments[o.PaymentMethod]
		if !ok {
			p = &PaymentBreakdown{Method: o.PaymentMethod}
			payments[o.PaymentMethod] = p
		}
		p.Orders++
		p.Amount += o.Total

		for _, l := range o.Lines {
			switch l.ProductKind {
			case domain.ProductKindItem:
				items.add(l)
			case domain.ProductKindDeal:
				deals.add(l)
			}
		}
	}

	for _, p := range payments {
		d.Summary.Payments = append(d.Summary.Payments, *p)
	}
	slices.SortFunc(d.Summary.Payments, func(a, b PaymentBreakdown) int {
		return cmp.Compare(a.Method, b.Method)
	})

	d.TopItems = items.top(opts.TopN)
	d.TopDeals = deals.top(opts.TopN)
	d.Days = sortedBuckets(days)
	d.Months = sortedBuckets(months)
	d.Years = sortedBuckets(years)
	return d
}

func (v *Overview) add(o *domain.Order) {
	v.TotalOrders++
	switch {
	case o.Status == domain.OrderStatusCancelled:
		v.CancelledOrders++
	case o.Status.Completed():
		v.CompletedOrders++
		v.Revenue += o.Total
		v.DeliveryCharges += o.DeliveryCharge
		v.Discounts += o.Discount
		for _, l := range o.Lines {
			v.ItemsSold += l.Quantity
		}
	}
}

type ranking map[string]*RankedProduct

func newRanking() ranking {
	return make(ranking)
}

func (r ranking) add(l domain.OrderLine) {
	p, ok := r[l.ProductID]
	if !ok {
		p = &RankedProduct{ProductID: l.ProductID}
		r[l.ProductID] = p
	}
	p.Name = l.NameAtSale
	p.Quantity += l.Quantity
	p.Revenue += l.LineTotal
}

// top orders by quantity desc, revenue desc, name asc, id asc.
func (r ranking) top(n int) []RankedProduct {
	out := make([]RankedProduct, 0, len(r))
	for _, p := range r {
		out = append(out, *p)
	}
	slices.SortFunc(out, func(a, b RankedProduct) int {
		return cmp.Or(
			cmp.Compare(b.Quantity, a.Quantity),
			cmp.Compare(b.Revenue, a.Revenue),
			cmp.Compare(a.Name, b.Name),
			cmp.Compare(a.ProductID, b.ProductID),
		)
	})
	if n > 0 && len(out) > n {
		out = out[:n]
	}
	return out
}

func sortedBuckets(m map[string]*Bucket) []Bucket {
	out := make([]Bucket, 0, len(m))
	for _, b := range m {
		out = append(out, *b)
	}
	slices.SortFunc(out, func(a, b Bucket) int { return a.Start.Compare(b.Start) })
	return out
}
