package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// CustomerService is the phone-keyed customer directory consulted by order
// workflows.
type CustomerService interface {
	GetCustomerByPhone(ctx context.Context, phone string) (*Customer, error)

	// EnsureCustomerTx returns the customer with this phone, creating it when
	// absent. An existing entry keeps its name and address.
	EnsureCustomerTx(ctx context.Context, tx pgx.Tx, phone, name, address string) (*Customer, error)
	// UpdateAddressTx rewrites the stored address of the customer with this
	// phone, creating the entry when absent.
	UpdateAddressTx(ctx context.Context, tx pgx.Tx, phone, name, address string) (*Customer, error)
}

type customerService struct {
	pool *pgxpool.Pool
}

func NewCustomerService(pool *pgxpool.Pool) CustomerService {
	return &customerService{pool: pool}
}

const customerColumns = "id, phone, name, address, created_at, updated_at"

func scanCustomer(row pgx.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.Phone, &c.Name, &c.Address, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	return &c, nil
}

func (s *customerService) GetCustomerByPhone(ctx context.Context, phone string) (*Customer, error) {
	c, err := scanCustomer(s.pool.QueryRow(ctx,
		"SELECT "+customerColumns+" FROM customers WHERE phone = $1", phone))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("customer with phone %s", phone)
		}
		return nil, fmt.Errorf("failed to get customer: %w", err)
	}
	return c, nil
}

func (s *customerService) EnsureCustomerTx(ctx context.Context, tx pgx.Tx, phone, name, address string) (*Customer, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	c, err := scanCustomer(tx.QueryRow(ctx, `
		INSERT INTO customers (phone, name, address)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE SET phone = EXCLUDED.phone
		RETURNING `+customerColumns,
		phone, name, address))
	if err != nil {
		return nil, fmt.Errorf("failed to ensure customer %s: %w", phone, err)
	}
	return c, nil
}

func (s *customerService) UpdateAddressTx(ctx context.Context, tx pgx.Tx, phone, name, address string) (*Customer, error) {
	c, err := scanCustomer(tx.QueryRow(ctx, `
		INSERT INTO customers (phone, name, address)
		VALUES ($1, $2, $3)
		ON CONFLICT (phone) DO UPDATE
		SET address = EXCLUDED.address,
		    name = CASE WHEN EXCLUDED.name = '' THEN customers.name ELSE EXCLUDED.name END,
		    updated_at = NOW()
		RETURNING `+customerColumns,
		phone, name, address))
	if err != nil {
		return nil, fmt.Errorf("failed to update customer %s: %w", phone, err)
	}
	return c, nil
}
