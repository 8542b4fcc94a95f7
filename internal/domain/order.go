package domain

import "time"

// Channel is the fulfilment mode of an order. It never changes after creation.
type Channel string

const (
	ChannelDine     Channel = "DINE"
	ChannelTakeaway Channel = "TAKEAWAY"
	ChannelDelivery Channel = "DELIVERY"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelDine, ChannelTakeaway, ChannelDelivery:
		return true
	}
	return false
}

type OrderStatus string

const (
	OrderStatusDraft          OrderStatus = "DRAFT"
	OrderStatusPreparing      OrderStatus = "PREPARING"
	OrderStatusReady          OrderStatus = "READY"
	OrderStatusOutForDelivery OrderStatus = "OUT_FOR_DELIVERY"
	OrderStatusDelivered      OrderStatus = "DELIVERED"
	OrderStatusPickedUp       OrderStatus = "PICKED_UP"
	OrderStatusFinished       OrderStatus = "FINISHED"
	OrderStatusCancelled      OrderStatus = "CANCELLED"
)

// AllStatuses lists the shared status vocabulary in lifecycle order.
var AllStatuses = []OrderStatus{
	OrderStatusDraft,
	OrderStatusPreparing,
	OrderStatusReady,
	OrderStatusOutForDelivery,
	OrderStatusDelivered,
	OrderStatusPickedUp,
	OrderStatusFinished,
	OrderStatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range AllStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition may leave s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusFinished || s == OrderStatusCancelled
}

// Completed reports whether an order in status s counts as done for reporting.
func (s OrderStatus) Completed() bool {
	switch s {
	case OrderStatusFinished, OrderStatusDelivered, OrderStatusPickedUp:
		return true
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodUnset  PaymentMethod = ""
	PaymentMethodCash   PaymentMethod = "CASH"
	PaymentMethodOnline PaymentMethod = "ONLINE"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodUnset, PaymentMethodCash, PaymentMethodOnline:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPaid   PaymentStatus = "PAID"
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
)

func (s PaymentStatus) Valid() bool {
	return s == PaymentStatusPaid || s == PaymentStatusUnpaid
}

type Customer struct {
	Name    string `json:"name"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
}

// OrderLine is owned by exactly one order. Name and unit price are captured when the
// line is priced and are never re-read from the catalog.
type OrderLine struct {
	ID              string      `json:"id"`
	ProductKind     ProductKind `json:"product_kind"`
	ProductID       string      `json:"product_id"`
	NameAtSale      string      `json:"name_at_sale"`
	UnitPriceAtSale Money       `json:"unit_price_at_sale"`
	Quantity        int         `json:"quantity"`
	LineTotal       Money       `json:"line_total"`
}

type Order struct {
	ID             string        `json:"id"`
	Number         int64         `json:"number"`
	Channel        Channel       `json:"channel"`
	Status         OrderStatus   `json:"status"`
	PaymentMethod  PaymentMethod `json:"payment_method"`
	PaymentStatus  PaymentStatus `json:"payment_status"`
	Customer       Customer      `json:"customer"`
	Lines          []OrderLine   `json:"lines"`
	Subtotal       Money         `json:"subtotal"`
	DeliveryCharge Money         `json:"delivery_charge"`
	Discount       Money         `json:"discount"`
	Total          Money         `json:"total"`
	CreatedBy      string        `json:"created_by"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

// Clone returns a deep copy so callers can mutate lines without aliasing.
func (o *Order) Clone() *Order {
	c := *o
	c.Lines = append([]OrderLine(nil), o.Lines...)
	return &c
}
