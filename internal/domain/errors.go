package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrUnknownChannel is a hard input error, distinct from a transition denial.
	ErrUnknownChannel = errors.New("unknown channel")
	// ErrUnknownStatus signals a status outside the channel's graph.
	ErrUnknownStatus = errors.New("unknown status")
	// ErrForbidden rejects administrative operations by unprivileged callers.
	ErrForbidden = errors.New("forbidden")
)

// ValidationError reports malformed or missing input. Nothing is mutated.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation: " + e.Message
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Message)
}

func NewValidationError(field, format string, args ...any) *ValidationError {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

type RejectionReason string

const (
	// RejectionState means the status graph has no such edge.
	RejectionState RejectionReason = "state"
	// RejectionAuthorization means the edge exists only for privileged callers.
	RejectionAuthorization RejectionReason = "authorization"
)

// PolicyRejection is returned when a status change is refused. Allowed lists the
// statuses the caller may request instead.
type PolicyRejection struct {
	Channel Channel
	From    OrderStatus
	To      OrderStatus
	Reason  RejectionReason
	Allowed []OrderStatus
}

func (e *PolicyRejection) Error() string {
	allowed := make([]string, len(e.Allowed))
	for i, s := range e.Allowed {
		allowed[i] = string(s)
	}
	return fmt.Sprintf("%s transition %s -> %s rejected (%s); allowed: [%s]",
		e.Channel, e.From, e.To, e.Reason, strings.Join(allowed, ", "))
}

// StateError is returned when fields are edited on an order whose status does not
// permit it for the caller.
type StateError struct {
	OrderID string
	Status  OrderStatus
	Message string
}

func (e *StateError) Error() string {
	return fmt.Sprintf("order %s in status %s: %s", e.OrderID, e.Status, e.Message)
}

type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %q not found", e.Resource, e.ID)
}
