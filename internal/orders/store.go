package orders

import (
	"context"
	"time"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

// Filter narrows List. Zero values mean "no constraint"; the created_at range is
// half-open [From, To).
type Filter struct {
	Status  domain.OrderStatus
	Channel domain.Channel
	From    time.Time
	To      time.Time
	Limit   int
}

// Store persists orders. Mutate and Remove must hold an exclusive lock on the
// order for the duration of fn and commit fn's side effects (including audit
// records written through ctx) atomically with the order write.
type Store interface {
	Insert(ctx context.Context, order *domain.Order, after func(ctx context.Context, order *domain.Order) error) error
	Mutate(ctx context.Context, id string, fn func(ctx context.Context, order *domain.Order) error) (*domain.Order, error)
	Remove(ctx context.Context, id string, fn func(ctx context.Context, order *domain.Order) error) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	List(ctx context.Context, filter Filter) ([]domain.Order, error)
}

// AuditSink accepts audit records. Record is called inside the store's unit of
// work; an error aborts the mutation.
type AuditSink interface {
	Record(ctx context.Context, event domain.AuditEvent) error
}
