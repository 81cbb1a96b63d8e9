// Package memory provides the in-memory CustomerStore used for development
// and tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"anchorgate/internal/sep12"
)

// Store keeps customers in a map guarded by a RWMutex. Safe for concurrent
// use by independent requests.
type Store struct {
	mu        sync.RWMutex
	customers map[string]*sep12.Customer
}

// New creates an empty store.
func New() *Store {
	return &Store{customers: make(map[string]*sep12.Customer)}
}

func (s *Store) Get(_ context.Context, id string) (*sep12.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if customer, ok := s.customers[id]; ok {
		return clone(customer), nil
	}
	return nil, nil
}

func (s *Store) Lookup(_ context.Context, account string, memo *int64, customerType string) (*sep12.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, customer := range s.sorted() {
		if customer.Account == account && sep12.MemoEqual(customer.Memo, memo) && customer.Type == customerType {
			return clone(customer), nil
		}
	}
	return nil, nil
}

func (s *Store) FindByAccount(_ context.Context, account string, memo *int64) (*sep12.Customer, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, customer := range s.sorted() {
		if customer.Account == account && sep12.MemoEqual(customer.Memo, memo) {
			return clone(customer), nil
		}
	}
	return nil, nil
}

func (s *Store) Upsert(_ context.Context, customer *sep12.Customer) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.customers[customer.ID] = clone(customer)
	return nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.customers, id)
	return nil
}

// sorted returns customers in creation order so lookups are deterministic.
func (s *Store) sorted() []*sep12.Customer {
	customers := make([]*sep12.Customer, 0, len(s.customers))
	for _, customer := range s.customers {
		customers = append(customers, customer)
	}
	sort.Slice(customers, func(i, j int) bool {
		return customers[i].CreatedAt.Before(customers[j].CreatedAt)
	})
	return customers
}

// clone keeps callers from mutating stored state through shared maps.
func clone(customer *sep12.Customer) *sep12.Customer {
	copied := *customer
	if customer.Memo != nil {
		memo := *customer.Memo
		copied.Memo = &memo
	}
	if customer.Fields != nil {
		copied.Fields = make(map[string]string, len(customer.Fields))
		for key, value := range customer.Fields {
			copied.Fields[key] = value
		}
	}
	return &copied
}
