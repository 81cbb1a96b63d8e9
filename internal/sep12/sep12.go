// Package sep12 implements the anchor side of the SEP-12 KYC protocol:
// customer records, the integration contract the request pipeline dispatches
// to, and a store-backed reference integration.
package sep12

import (
	"context"
	"time"

	"anchorgate/internal/sep12/models"
)

// Customer is one KYC customer record, identified by a server-generated id
// and addressed by (account, memo, type).
type Customer struct {
	ID          string
	Account     string
	Memo        *int64
	Type        string
	Status      models.CustomerStatus
	Fields      map[string]string
	CallbackURL string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CustomerStore persists customer records. Implementations return (nil, nil)
// for lookups that match nothing.
type CustomerStore interface {
	Get(ctx context.Context, id string) (*Customer, error)
	// Lookup addresses a customer by the full (account, memo, type) triple.
	Lookup(ctx context.Context, account string, memo *int64, customerType string) (*Customer, error)
	// FindByAccount addresses a customer by (account, memo) across types.
	FindByAccount(ctx context.Context, account string, memo *int64) (*Customer, error)
	Upsert(ctx context.Context, customer *Customer) error
	Delete(ctx context.Context, id string) error
}

// Integration is the business-logic callback contract the validated request
// pipeline dispatches to. Hosting anchors replace the reference
// implementation with their own KYC backend.
type Integration interface {
	GetCustomer(ctx context.Context, req *models.GetCustomerRequest) (*models.GetCustomerResponse, error)
	PutCustomer(ctx context.Context, req *models.PutCustomerRequest) (*models.PutCustomerResponse, error)
	PutVerification(ctx context.Context, req *models.PutCustomerVerificationRequest) (*models.GetCustomerResponse, error)
	PutCallback(ctx context.Context, req *models.PutCustomerCallbackRequest) error
	// CustomerID resolves the id owned by (account, memo); empty when no
	// customer exists.
	CustomerID(ctx context.Context, account string, memo *int64) (string, error)
	DeleteCustomer(ctx context.Context, id string) error
}

// MemoEqual compares two optional memos.
func MemoEqual(a, b *int64) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}
