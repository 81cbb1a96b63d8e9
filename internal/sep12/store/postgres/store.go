// Package postgres provides the pgx-backed CustomerStore.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"anchorgate/internal/sep12"
	"anchorgate/internal/sep12/models"
)

const schema = `
CREATE TABLE IF NOT EXISTS customers (
	id           TEXT PRIMARY KEY,
	account      TEXT NOT NULL,
	memo         BIGINT,
	type         TEXT NOT NULL DEFAULT '',
	status       TEXT NOT NULL,
	fields       JSONB NOT NULL DEFAULT '{}'::jsonb,
	callback_url TEXT NOT NULL DEFAULT '',
	created_at   TIMESTAMPTZ NOT NULL,
	updated_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS customers_account_memo_idx ON customers (account, memo);
`

const customerColumns = `id, account, memo, type, status, fields, callback_url, created_at, updated_at`

// Store persists customers in postgres through a pgx pool.
type Store struct {
	pool *pgxpool.Pool
}

// New wraps an existing pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Migrate creates the customers table when missing.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schema); err != nil {
		return fmt.Errorf("migrate customers table: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, id string) (*sep12.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
	return scanCustomer(row)
}

func (s *Store) Lookup(ctx context.Context, account string, memo *int64, customerType string) (*sep12.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE account = $1 AND memo IS NOT DISTINCT FROM $2 AND type = $3
		 ORDER BY created_at LIMIT 1`,
		account, memo, customerType)
	return scanCustomer(row)
}

func (s *Store) FindByAccount(ctx context.Context, account string, memo *int64) (*sep12.Customer, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers
		 WHERE account = $1 AND memo IS NOT DISTINCT FROM $2
		 ORDER BY created_at LIMIT 1`,
		account, memo)
	return scanCustomer(row)
}

func (s *Store) Upsert(ctx context.Context, customer *sep12.Customer) error {
	fields, err := json.Marshal(customer.Fields)
	if err != nil {
		return fmt.Errorf("marshal customer fields: %w", err)
	}
	_, err = s.pool.Exec(ctx,
		`INSERT INTO customers (`+customerColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (id) DO UPDATE SET
			account = EXCLUDED.account,
			memo = EXCLUDED.memo,
			type = EXCLUDED.type,
			status = EXCLUDED.status,
			fields = EXCLUDED.fields,
			callback_url = EXCLUDED.callback_url,
			updated_at = EXCLUDED.updated_at`,
		customer.ID, customer.Account, customer.Memo, customer.Type,
		string(customer.Status), fields, customer.CallbackURL,
		customer.CreatedAt, customer.UpdatedAt)
	if err != nil {
		return fmt.Errorf("upsert customer %s: %w", customer.ID, err)
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete customer %s: %w", id, err)
	}
	return nil
}

func scanCustomer(row pgx.Row) (*sep12.Customer, error) {
	var customer sep12.Customer
	var status string
	var fields []byte
	err := row.Scan(&customer.ID, &customer.Account, &customer.Memo, &customer.Type,
		&status, &fields, &customer.CallbackURL, &customer.CreatedAt, &customer.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan customer: %w", err)
	}
	customer.Status = models.CustomerStatus(status)
	if err := json.Unmarshal(fields, &customer.Fields); err != nil {
		return nil, fmt.Errorf("unmarshal customer fields: %w", err)
	}
	return &customer, nil
}
