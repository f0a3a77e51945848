package refund

import (
	"errors"
	"fmt"
)

// Status describes refund processing stage reported by the source of truth.
type Status string

const (
	StatusNotFound   Status = "NOT_FOUND"
	StatusReceived   Status = "RECEIVED"
	StatusProcessing Status = "PROCESSING"
	StatusApproved   Status = "APPROVED"
	StatusSent       Status = "SENT"
	StatusAvailable  Status = "AVAILABLE"
	StatusRejected   Status = "REJECTED"
)

// ErrInvalidLifecycle is returned when a status ordering cannot form a linear lifecycle.
var ErrInvalidLifecycle = errors.New("invalid refund lifecycle")

// Lifecycle is the ordered, linear sequence of statuses a refund advances through.
// The zero value has no statuses and reports no successor for any input.
type Lifecycle struct {
	order []Status
	index map[Status]int
}

// NewLifecycle builds lifecycle from ordering supplied by the source of truth.
func NewLifecycle(statuses ...Status) (Lifecycle, error) {
	if len(statuses) == 0 {
		return Lifecycle{}, fmt.Errorf("%w: no statuses", ErrInvalidLifecycle)
	}

	order := make([]Status, 0, len(statuses))
	index := make(map[Status]int, len(statuses))
	for _, s := range statuses {
		if s == "" {
			return Lifecycle{}, fmt.Errorf("%w: empty status", ErrInvalidLifecycle)
		}
		if _, dup := index[s]; dup {
			return Lifecycle{}, fmt.Errorf("%w: duplicate status %s", ErrInvalidLifecycle, s)
		}
		index[s] = len(order)
		order = append(order, s)
	}

	return Lifecycle{order: order, index: index}, nil
}

// DefaultLifecycle returns the demo-advance path served by the refund API.
func DefaultLifecycle() Lifecycle {
	l, _ := NewLifecycle(StatusReceived, StatusProcessing, StatusApproved, StatusSent, StatusAvailable)
	return l
}

// Next returns the status following current. The boolean is false when current is the
// terminal status or is not part of the lifecycle.
func (l Lifecycle) Next(current Status) (Status, bool) {
	i, ok := l.index[current]
	if !ok || i+1 >= len(l.order) {
		return "", false
	}
	return l.order[i+1], true
}

// Contains reports whether status belongs to the lifecycle.
func (l Lifecycle) Contains(status Status) bool {
	_, ok := l.index[status]
	return ok
}

// Terminal returns the last status of the lifecycle.
func (l Lifecycle) Terminal() Status {
	if len(l.order) == 0 {
		return ""
	}
	return l.order[len(l.order)-1]
}

// Statuses returns a copy of the ordering.
func (l Lifecycle) Statuses() []Status {
	out := make([]Status, len(l.order))
	copy(out, l.order)
	return out
}
