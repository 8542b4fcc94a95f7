package orders

import (
	"context"
	"slices"
	"sync"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

// memStore is an in-memory Store. A single mutex stands in for row locks; audit
// records staged during fn are only kept when fn succeeds.
type memStore struct {
	mu     sync.Mutex
	orders map[string]*domain.Order
	next   int64
	audit  *memAudit
}

func newMemStore(audit *memAudit) *memStore {
	return &memStore{orders: make(map[string]*domain.Order), audit: audit}
}

type stagedKey struct{}

func (s *memStore) Insert(ctx context.Context, order *domain.Order, after func(ctx context.Context, order *domain.Order) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.next++
	order.Number = s.next
	if err := s.run(ctx, order, after); err != nil {
		return err
	}
	s.orders[order.ID] = order.Clone()
	return nil
}

func (s *memStore) Mutate(ctx context.Context, id string, fn func(ctx context.Context, order *domain.Order) error) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}
	next := current.Clone()
	if err := s.run(ctx, next, fn); err != nil {
		return nil, err
	}
	s.orders[id] = next.Clone()
	return next, nil
}

func (s *memStore) Remove(ctx context.Context, id string, fn func(ctx context.Context, order *domain.Order) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.orders[id]
	if !ok {
		return &domain.NotFoundError{Resource: "order", ID: id}
	}
	if err := s.run(ctx, current.Clone(), fn); err != nil {
		return err
	}
	delete(s.orders, id)
	return nil
}

func (s *memStore) GetByID(_ context.Context, id string) (*domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	o, ok := s.orders[id]
	if !ok {
		return nil, nil
	}
	return o.Clone(), nil
}

func (s *memStore) List(_ context.Context, filter Filter) ([]domain.Order, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := []domain.Order{}
	for _, o := range s.orders {
		if filter.Status != "" && o.Status != filter.Status {
			continue
		}
		if filter.Channel != "" && o.Channel != filter.Channel {
			continue
		}
		out = append(out, *o.Clone())
	}
	slices.SortFunc(out, func(a, b domain.Order) int { return int(b.Number - a.Number) })
	return out, nil
}

func (s *memStore) run(ctx context.Context, order *domain.Order, fn func(ctx context.Context, order *domain.Order) error) error {
	if fn == nil {
		return nil
	}
	staged := &[]domain.AuditEvent{}
	if err := fn(context.WithValue(ctx, stagedKey{}, staged), order); err != nil {
		return err
	}
	if s.audit != nil {
		s.audit.commit(*staged)
	}
	return nil
}

// memAudit records events staged inside a memStore unit of work.
type memAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
	err    error
}

func (a *memAudit) Record(ctx context.Context, event domain.AuditEvent) error {
	if a.err != nil {
		return a.err
	}
	if staged, ok := ctx.Value(stagedKey{}).(*[]domain.AuditEvent); ok {
		*staged = append(*staged, event)
		return nil
	}
	a.commit([]domain.AuditEvent{event})
	return nil
}

func (a *memAudit) commit(events []domain.AuditEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, events...)
}

func (a *memAudit) actions() []domain.AuditAction {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]domain.AuditAction, len(a.events))
	for i, e := range a.events {
		out[i] = e.Action
	}
	return out
}
