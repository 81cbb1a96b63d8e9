// Package events publishes customer lifecycle events for downstream
// consumers such as notification workers and audit pipelines.
package events

import (
	"context"
	"time"
)

// Event types emitted by the SEP-12 service.
const (
	TypeCustomerUpdated  = "customer.updated"
	TypeCustomerVerified = "customer.verified"
	TypeCustomerDeleted  = "customer.deleted"
	TypeCallbackChanged  = "customer.callback_changed"
)

// Event describes one customer lifecycle change.
type Event struct {
	Type       string    `json:"type"`
	CustomerID string    `json:"customer_id,omitempty"`
	Account    string    `json:"account"`
	Memo       *int64    `json:"memo,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Publisher delivers events. Publish failures must not fail the request
// that produced the event; callers log and continue.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}
