// Package transition holds the per-channel order status graphs and the pure
// decision function every status change goes through.
package transition

import (
	"fmt"

	"github.com/joao-fontenele/restaurant-pos/internal/domain"
)

// forward holds the single forward successor of each status per channel.
var forward = map[domain.Channel]map[domain.OrderStatus]domain.OrderStatus{
	domain.ChannelDine: {
		domain.OrderStatusDraft:     domain.OrderStatusPreparing,
		domain.OrderStatusPreparing: domain.OrderStatusReady,
		domain.OrderStatusReady:     domain.OrderStatusFinished,
	},
	domain.ChannelTakeaway: {
		domain.OrderStatusDraft:     domain.OrderStatusPreparing,
		domain.OrderStatusPreparing: domain.OrderStatusReady,
		domain.OrderStatusReady:     domain.OrderStatusPickedUp,
		domain.OrderStatusPickedUp:  domain.OrderStatusFinished,
	},
	domain.ChannelDelivery: {
		domain.OrderStatusDraft:          domain.OrderStatusPreparing,
		domain.OrderStatusPreparing:      domain.OrderStatusReady,
		domain.OrderStatusReady:          domain.OrderStatusOutForDelivery,
		domain.OrderStatusOutForDelivery: domain.OrderStatusDelivered,
		domain.OrderStatusDelivered:      domain.OrderStatusFinished,
	},
}

// overrides holds the privileged one-step backward edges. It mirrors forward,
// minus edges leaving a terminal status.
var overrides = mirror(forward)

func mirror(graph map[domain.Channel]map[domain.OrderStatus]domain.OrderStatus) map[domain.Channel]map[domain.OrderStatus]domain.OrderStatus {
	out := make(map[domain.Channel]map[domain.OrderStatus]domain.OrderStatus, len(graph))
	for ch, edges := range graph {
		back := make(map[domain.OrderStatus]domain.OrderStatus, len(edges))
		for from, to := range edges {
			if to.Terminal() {
				continue
			}
			back[to] = from
		}
		out[ch] = back
	}
	return out
}

// Decision is the outcome of a requested status change.
type Decision struct {
	Allowed  bool
	Override bool
	Reason   domain.RejectionReason
	// Next lists the statuses the caller could request from the current status.
	Next []domain.OrderStatus
}

// Decide evaluates moving an order on channel ch from current to requested.
// It fails only on input the graphs cannot interpret: an unknown channel, or a
// current status outside the channel's graph.
func Decide(ch domain.Channel, current, requested domain.OrderStatus, privileged bool) (Decision, error) {
	next, err := NextStatuses(ch, current, privileged)
	if err != nil {
		return Decision{}, err
	}

	deny := func(reason domain.RejectionReason) (Decision, error) {
		return Decision{Reason: reason, Next: next}, nil
	}

	if requested == domain.OrderStatusCancelled {
		if !privileged {
			return deny(domain.RejectionAuthorization)
		}
		if current.Terminal() {
			return deny(domain.RejectionState)
		}
		return Decision{Allowed: true, Next: next}, nil
	}

	if current.Terminal() {
		return deny(domain.RejectionState)
	}

	if succ, ok := forward[ch][current]; ok && succ == requested {
		return Decision{Allowed: true, Next: next}, nil
	}

	if back, ok := overrides[ch][current]; ok && back == requested {
		if !privileged {
			return deny(domain.RejectionAuthorization)
		}
		return Decision{Allowed: true, Override: true, Next: next}, nil
	}

	return deny(domain.RejectionState)
}

// NextStatuses returns, in order: the forward successor, CANCELLED for a
// privileged caller on a non-terminal status, and the backward override for a
// privileged caller where one is defined.
func NextStatuses(ch domain.Channel, current domain.OrderStatus, privileged bool) ([]domain.OrderStatus, error) {
	if err := checkStatus(ch, current); err != nil {
		return nil, err
	}

	next := []domain.OrderStatus{}
	if current.Terminal() {
		return next, nil
	}
	if succ, ok := forward[ch][current]; ok {
		next = append(next, succ)
	}
	if privileged {
		next = append(next, domain.OrderStatusCancelled)
		if back, ok := overrides[ch][current]; ok {
			next = append(next, back)
		}
	}
	return next, nil
}

// Path returns the forward route of a channel from DRAFT to FINISHED.
func Path(ch domain.Channel) ([]domain.OrderStatus, error) {
	edges, ok := forward[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %q", domain.ErrUnknownChannel, ch)
	}
	path := []domain.OrderStatus{domain.OrderStatusDraft}
	for cur := domain.OrderStatusDraft; ; {
		succ, ok := edges[cur]
		if !ok {
			return path, nil
		}
		path = append(path, succ)
		cur = succ
	}
}

// Statuses returns the subset of the vocabulary a channel uses, CANCELLED included.
func Statuses(ch domain.Channel) ([]domain.OrderStatus, error) {
	path, err := Path(ch)
	if err != nil {
		return nil, err
	}
	return append(path, domain.OrderStatusCancelled), nil
}

func checkStatus(ch domain.Channel, status domain.OrderStatus) error {
	if !ch.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnknownChannel, ch)
	}
	statuses, err := Statuses(ch)
	if err != nil {
		return err
	}
	for _, s := range statuses {
		if s == status {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not used by channel %s", domain.ErrUnknownStatus, status, ch)
}
