package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type purchaseService struct {
	pool  *pgxpool.Pool
	stock StockService
}

func NewPurchaseService(pool *pgxpool.Pool, stock StockService) PurchaseService {
	return &purchaseService{pool: pool, stock: stock}
}

// ── Mutations ────────────────────────────────────────────────────────────────

func (s *purchaseService) AddPurchase(ctx context.Context, entries []PurchaseEntry) ([]int, error) {
	if err := ValidatePurchaseEntries(entries); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ids, err := s.addPurchaseTx(ctx, tx, entries)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase: %w", err)
	}
	return ids, nil
}

func (s *purchaseService) UpdatePurchase(ctx context.Context, id int, entries []PurchaseEntry) ([]int, error) {
	if err := ValidatePurchaseEntries(entries); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.reversePurchaseTx(ctx, tx, id); err != nil {
		return nil, err
	}
	ids, err := s.addPurchaseTx(ctx, tx, entries)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase update: %w", err)
	}
	return ids, nil
}

func (s *purchaseService) DeletePurchase(ctx context.Context, id int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.reversePurchaseTx(ctx, tx, id); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit purchase delete: %w", err)
	}
	return nil
}

func (s *purchaseService) addPurchaseTx(ctx context.Context, tx pgx.Tx, entries []PurchaseEntry) ([]int, error) {
	ids := make([]int, 0, len(entries))
	for _, e := range entries {
		// Stock first: an unknown product surfaces as NotFound rather than
		// a foreign key violation.
		if err := s.stock.AdjustStockTx(ctx, tx, e.ProductID, e.Quantity, Add); err != nil {
			return nil, err
		}
		var id int
		if err := tx.QueryRow(ctx, `
			INSERT INTO purchases (product_id, quantity, unit_cost)
			VALUES ($1, $2, $3)
			RETURNING id
		`, e.ProductID, e.Quantity, e.UnitCost).Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to insert purchase for product %d: %w", e.ProductID, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// reversePurchaseTx soft-deletes an active purchase and takes its quantity
// back out of stock. The floor is not enforced here: reversing a purchase
// whose goods were already sold leaves a negative counter.
func (s *purchaseService) reversePurchaseTx(ctx context.Context, tx pgx.Tx, id int) error {
	var productID, qty int
	err := tx.QueryRow(ctx, `
		UPDATE purchases SET deleted_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
		RETURNING product_id, quantity
	`, id).Scan(&productID, &qty)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundf("purchase %d", id)
		}
		return fmt.Errorf("failed to delete purchase %d: %w", id, err)
	}
	return s.stock.AdjustStockTx(ctx, tx, productID, qty, Minus)
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *purchaseService) GetPurchase(ctx context.Context, id int) (*Purchase, error) {
	var p Purchase
	err := s.pool.QueryRow(ctx, `
		SELECT id, product_id, quantity, unit_cost, created_at, deleted_at
		FROM purchases WHERE id = $1
	`, id).Scan(&p.ID, &p.ProductID, &p.Quantity, &p.UnitCost, &p.CreatedAt, &p.DeletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("purchase %d", id)
		}
		return nil, fmt.Errorf("failed to get purchase %d: %w", id, err)
	}
	return &p, nil
}

func (s *purchaseService) ListPurchases(ctx context.Context, productID int, includeDeleted bool) ([]Purchase, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, quantity, unit_cost, created_at, deleted_at
		FROM purchases
		WHERE ($1 = 0 OR product_id = $1)
		  AND ($2 OR deleted_at IS NULL)
		ORDER BY created_at DESC, id DESC
	`, productID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchases: %w", err)
	}
	defer rows.Close()

	var purchases []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.ProductID, &p.Quantity, &p.UnitCost, &p.CreatedAt, &p.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan purchase: %w", err)
		}
		purchases = append(purchases, p)
	}
	return purchases, rows.Err()
}

func (s *purchaseService) AverageCost(ctx context.Context, productID int, asOf time.Time) (decimal.Decimal, error) {
	return AverageCostTx(ctx, s.pool, productID, asOf)
}
