package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
	"github.com/joao-fontenele/restaurant-pos/internal/pricing"
	"github.com/joao-fontenele/restaurant-pos/internal/transition"
)

type ManagerDeps struct {
	Store   Store
	Catalog pricing.Catalog
	Audit   AuditSink
	Metrics *Metrics
	Logger  *slog.Logger
	Clock   func() time.Time
	NewID   func() string
}

// Manager owns every mutation entry point of an order.
type Manager struct {
	store   Store
	catalog pricing.Catalog
	audit   AuditSink
	metrics *Metrics
	logger  *slog.Logger
	clock   func() time.Time
	newID   func() string
}

func NewManager(deps ManagerDeps) (*Manager, error) {
	if deps.Store == nil {
		return nil, errors.New("orders: store is required")
	}
	if deps.Catalog == nil {
		return nil, errors.New("orders: catalog is required")
	}
	if deps.Audit == nil {
		return nil, errors.New("orders: audit sink is required")
	}
	m := &Manager{
		store:   deps.Store,
		catalog: deps.Catalog,
		audit:   deps.Audit,
		metrics: deps.Metrics,
		logger:  deps.Logger,
		clock:   deps.Clock,
		newID:   deps.NewID,
	}
	if m.logger == nil {
		m.logger = slog.Default()
	}
	if m.clock == nil {
		m.clock = func() time.Time { return time.Now().UTC() }
	}
	if m.newID == nil {
		m.newID = func() string { return uuid.New().String() }
	}
	return m, nil
}

type CreateInput struct {
	Channel        domain.Channel        `json:"channel"`
	Customer       domain.Customer       `json:"customer"`
	Lines          []pricing.LineRequest `json:"lines"`
	PaymentMethod  domain.PaymentMethod  `json:"payment_method"`
	DeliveryCharge domain.Money          `json:"delivery_charge"`
	Discount       domain.Money          `json:"discount"`
}

// Patch is a partial update. Nil fields are left untouched; a non-nil Lines
// replaces all lines.
type Patch struct {
	Customer       *domain.Customer      `json:"customer,omitempty"`
	Lines          []pricing.LineRequest `json:"lines,omitempty"`
	PaymentMethod  *domain.PaymentMethod `json:"payment_method,omitempty"`
	PaymentStatus  *domain.PaymentStatus `json:"payment_status,omitempty"`
	DeliveryCharge *domain.Money         `json:"delivery_charge,omitempty"`
	Discount       *domain.Money         `json:"discount,omitempty"`
}

func (p Patch) fields() []string {
	var fields []string
	if p.Customer != nil {
		fields = append(fields, "customer")
	}
	if p.Lines != nil {
		fields = append(fields, "lines")
	}
	if p.PaymentMethod != nil {
		fields = append(fields, "payment_method")
	}
	if p.PaymentStatus != nil {
		fields = append(fields, "payment_status")
	}
	if p.DeliveryCharge != nil {
		fields = append(fields, "delivery_charge")
	}
	if p.Discount != nil {
		fields = append(fields, "discount")
	}
	return fields
}

func (m *Manager) Create(ctx context.Context, actor domain.Actor, in CreateInput) (*domain.Order, error) {
	if !in.Channel.Valid() {
		return nil, domain.NewValidationError("channel", "unknown channel %q", in.Channel)
	}
	if !in.PaymentMethod.Valid() {
		return nil, domain.NewValidationError("payment_method", "unknown payment method %q", in.PaymentMethod)
	}
	customer := trimCustomer(in.Customer)
	if err := validateCustomer(in.Channel, customer); err != nil {
		return nil, err
	}
	if err := validateDeliveryCharge(in.Channel, in.DeliveryCharge); err != nil {
		return nil, err
	}

	lines, err := pricing.Quote(ctx, m.catalog, in.Lines)
	if err != nil {
		return nil, err
	}
	m.assignLineIDs(lines)

	now := m.clock()
	order := &domain.Order{
		ID:             m.newID(),
		Channel:        in.Channel,
		Status:         domain.OrderStatusDraft,
		PaymentMethod:  in.PaymentMethod,
		PaymentStatus:  initialPaymentStatus(in.PaymentMethod),
		Customer:       customer,
		Lines:          lines,
		DeliveryCharge: in.DeliveryCharge,
		Discount:       in.Discount,
		CreatedBy:      actor.ID,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := pricing.Apply(order); err != nil {
		return nil, err
	}

	err = m.store.Insert(ctx, order, func(ctx context.Context, o *domain.Order) error {
		return m.audit.Record(ctx, m.event(domain.AuditOrderCreated, o, actor, now, map[string]any{
			"channel": o.Channel,
			"total":   o.Total.String(),
			"lines":   len(o.Lines),
		}))
	})
	if err != nil {
		return nil, fmt.Errorf("insert order: %w", err)
	}

	m.metrics.orderCreated(ctx, order.Channel)
	m.logger.InfoContext(ctx, "order created", "order_id", order.ID, "number", order.Number, "channel", order.Channel, "actor_id", actor.ID)
	return order, nil
}

func (m *Manager) Edit(ctx context.Context, actor domain.Actor, id string, patch Patch) (*domain.Order, error) {
	fields := patch.fields()
	if len(fields) == 0 {
		return nil, domain.NewValidationError("", "patch has no fields")
	}
	if patch.PaymentMethod != nil && !patch.PaymentMethod.Valid() {
		return nil, domain.NewValidationError("payment_method", "unknown payment method %q", *patch.PaymentMethod)
	}
	if patch.PaymentStatus != nil && !patch.PaymentStatus.Valid() {
		return nil, domain.NewValidationError("payment_status", "unknown payment status %q", *patch.PaymentStatus)
	}

	var lines []domain.OrderLine
	if patch.Lines != nil {
		var err error
		if lines, err = pricing.Quote(ctx, m.catalog, patch.Lines); err != nil {
			return nil, err
		}
		m.assignLineIDs(lines)
	}

	now := m.clock()
	order, err := m.store.Mutate(ctx, id, func(ctx context.Context, o *domain.Order) error {
		if !editable(o.Status, actor.Privileged()) {
			return &domain.StateError{OrderID: o.ID, Status: o.Status, Message: editableMessage(actor.Privileged())}
		}

		if patch.Customer != nil {
			o.Customer = trimCustomer(*patch.Customer)
		}
		if lines != nil {
			o.Lines = lines
		}
		if patch.PaymentMethod != nil {
			o.PaymentMethod = *patch.PaymentMethod
		}
		if patch.PaymentStatus != nil {
			o.PaymentStatus = *patch.PaymentStatus
		}
		if patch.DeliveryCharge != nil {
			o.DeliveryCharge = *patch.DeliveryCharge
		}
		if patch.Discount != nil {
			o.Discount = *patch.Discount
		}

		if err := validateCustomer(o.Channel, o.Customer); err != nil {
			return err
		}
		if err := validateDeliveryCharge(o.Channel, o.DeliveryCharge); err != nil {
			return err
		}
		if err := pricing.Apply(o); err != nil {
			return err
		}
		o.UpdatedAt = now

		return m.audit.Record(ctx, m.event(domain.AuditOrderUpdated, o, actor, now, map[string]any{
			"fields": fields,
			"status": o.Status,
			"total":  o.Total.String(),
		}))
	})
	if err != nil {
		return nil, err
	}

	m.logger.InfoContext(ctx, "order updated", "order_id", order.ID, "fields", fields, "actor_id", actor.ID)
	return order, nil
}

// ChangeStatus runs the transition policy against the locked order and applies
// the change only if the policy allows it.
func (m *Manager) ChangeStatus(ctx context.Context, actor domain.Actor, id string, requested domain.OrderStatus) (*domain.Order, error) {
	if !requested.Valid() {
		return nil, domain.NewValidationError("status", "unknown status %q", requested)
	}

	now := m.clock()
	var from domain.OrderStatus
	var override bool
	order, err := m.store.Mutate(ctx, id, func(ctx context.Context, o *domain.Order) error {
		decision, err := transition.Decide(o.Channel, o.Status, requested, actor.Privileged())
		if err != nil {
			return err
		}
		if !decision.Allowed {
			return &domain.PolicyRejection{
				Channel: o.Channel,
				From:    o.Status,
				To:      requested,
				Reason:  decision.Reason,
				Allowed: decision.Next,
			}
		}

		from, override = o.Status, decision.Override
		o.Status = requested
		o.UpdatedAt = now

		return m.audit.Record(ctx, m.event(domain.AuditOrderStatusChanged, o, actor, now, map[string]any{
			"from":     from,
			"to":       requested,
			"override": override,
		}))
	})
	if err != nil {
		var rejection *domain.PolicyRejection
		if errors.As(err, &rejection) {
			m.metrics.transitionRejected(ctx, rejection)
			m.logger.InfoContext(ctx, "status change rejected", "order_id", id, "from", rejection.From, "to", requested, "reason", rejection.Reason)
		}
		return nil, err
	}

	m.metrics.statusChanged(ctx, order.Channel, from, requested, override)
	m.logger.InfoContext(ctx, "order status changed", "order_id", order.ID, "from", from, "to", requested, "override", override, "actor_id", actor.ID)
	return order, nil
}

// Delete is the administrative side door; it bypasses the status graph.
func (m *Manager) Delete(ctx context.Context, actor domain.Actor, id string) error {
	if !actor.Privileged() {
		return fmt.Errorf("%w: deleting orders requires a manager", domain.ErrForbidden)
	}

	now := m.clock()
	err := m.store.Remove(ctx, id, func(ctx context.Context, o *domain.Order) error {
		return m.audit.Record(ctx, m.event(domain.AuditOrderDeleted, o, actor, now, map[string]any{
			"status": o.Status,
			"total":  o.Total.String(),
		}))
	})
	if err != nil {
		return err
	}

	m.logger.InfoContext(ctx, "order deleted", "order_id", id, "actor_id", actor.ID)
	return nil
}

func (m *Manager) Get(ctx context.Context, id string) (*domain.Order, error) {
	order, err := m.store.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order == nil {
		return nil, &domain.NotFoundError{Resource: "order", ID: id}
	}
	return order, nil
}

func (m *Manager) List(ctx context.Context, filter Filter) ([]domain.Order, error) {
	orders, err := m.store.List(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list orders: %w", err)
	}
	return orders, nil
}

// ValidNextStatuses answers getValidNextStatuses for a stored order.
func (m *Manager) ValidNextStatuses(ctx context.Context, actor domain.Actor, id string) ([]domain.OrderStatus, error) {
	order, err := m.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return transition.NextStatuses(order.Channel, order.Status, actor.Privileged())
}

func (m *Manager) event(action domain.AuditAction, o *domain.Order, actor domain.Actor, at time.Time, detail map[string]any) domain.AuditEvent {
	return domain.AuditEvent{
		ID:          m.newID(),
		Action:      action,
		OrderID:     o.ID,
		OrderNumber: o.Number,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		OccurredAt:  at,
		Detail:      detail,
	}
}

func (m *Manager) assignLineIDs(lines []domain.OrderLine) {
	for i := range lines {
		lines[i].ID = m.newID()
	}
}

func editable(status domain.OrderStatus, privileged bool) bool {
	switch status {
	case domain.OrderStatusDraft:
		return true
	case domain.OrderStatusPreparing:
		return privileged
	}
	return false
}

func editableMessage(privileged bool) string {
	if privileged {
		return "only DRAFT or PREPARING orders can be edited"
	}
	return "only DRAFT orders can be edited"
}

func initialPaymentStatus(method domain.PaymentMethod) domain.PaymentStatus {
	if method == domain.PaymentMethodOnline {
		return domain.PaymentStatusPaid
	}
	return domain.PaymentStatusUnpaid
}

func trimCustomer(c domain.Customer) domain.Customer {
	return domain.Customer{
		Name:    strings.TrimSpace(c.Name),
		Phone:   strings.TrimSpace(c.Phone),
		Address: strings.TrimSpace(c.Address),
	}
}

func validateCustomer(ch domain.Channel, c domain.Customer) error {
	if ch != domain.ChannelDelivery {
		return nil
	}
	switch {
	case c.Name == "":
		return domain.NewValidationError("customer.name", "is required for delivery orders")
	case c.Phone == "":
		return domain.NewValidationError("customer.phone", "is required for delivery orders")
	case c.Address == "":
		return domain.NewValidationError("customer.address", "is required for delivery orders")
	}
	return nil
}

func validateDeliveryCharge(ch domain.Channel, charge domain.Money) error {
	if charge != 0 && ch != domain.ChannelDelivery {
		return domain.NewValidationError("delivery_charge", "only delivery orders carry a delivery charge")
	}
	return nil
}
