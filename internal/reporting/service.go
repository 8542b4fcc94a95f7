package reporting

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/orders"
)

type OrderLister interface {
	List(ctx context.Context, filter orders.Filter) ([]domain.Order, error)
}

// Range selects business days. Only the dates of From and To are used; both are
// inclusive.
type Range struct {
	From time.Time
	To   time.Time
}

type Service struct {
	orders OrderLister
	opts   Options
	cal    calendar
	logger *slog.Logger
}

func NewService(orders OrderLister, opts Options, logger *slog.Logger) *Service {
	return &Service{
		orders: orders,
		opts:   opts,
		cal:    newCalendar(opts),
		logger: logger,
	}
}

// Dashboard recomputes the dashboard from stored orders. A nil range covers
// every order.
func (s *Service) Dashboard(ctx context.Context, r *Range) (Dashboard, error) {
	var filter orders.Filter
	if r != nil {
		if r.To.Before(r.From) {
			return Dashboard{}, domain.NewValidationError("to", "must not be before from")
		}
		filter.From = s.cal.DayStart(r.From.Date())
		y, m, d := r.To.Date()
		filter.To = s.cal.DayStart(y, m, d+1)
	}

	list, err := s.orders.List(ctx, filter)
	if err != nil {
		return Dashboard{}, fmt.Errorf("load orders: %w", err)
	}

	dashboard := Build(list, s.opts)
	if r != nil {
		dashboard.From, dashboard.To = &filter.From, &filter.To
	}

	s.logger.InfoContext(ctx, "dashboard built", "orders", len(list), "ranged", r != nil)
	return dashboard, nil
}

// Location returns the timezone business dates are read in.
func (s *Service) Location() *time.Location {
	return s.cal.loc
}
