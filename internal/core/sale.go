package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// recordSalesTx writes one Sale row per line, costed at the weighted
// average of the product as of now.
func recordSalesTx(ctx context.Context, tx pgx.Tx, orderID int, lines []OrderLineInput) error {
	asOf := time.Now()
	for _, l := range lines {
		cost, err := AverageCostTx(ctx, tx, l.ProductID, asOf)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO sales (product_id, order_id, quantity, product_cost, selling_price, discount)
			VALUES ($1, $2, $3, $4, $5, $6)
		`, l.ProductID, orderID, l.Quantity, cost, l.UnitPrice, l.Discount); err != nil {
			return fmt.Errorf("failed to record sale for order %d product %d: %w", orderID, l.ProductID, err)
		}
	}
	return nil
}

// supersedeSalesTx soft-deletes the active sales of an order ahead of a
// fresh set being recorded for its new lines.
func supersedeSalesTx(ctx context.Context, tx pgx.Tx, orderID int, at time.Time) error {
	if _, err := tx.Exec(ctx,
		"UPDATE sales SET deleted_at = $1 WHERE order_id = $2 AND deleted_at IS NULL", at, orderID); err != nil {
		return fmt.Errorf("failed to supersede sales for order %d: %w", orderID, err)
	}
	return nil
}

// ListSalesForOrder returns the sales of an order, oldest first.
func (s *orderService) ListSalesForOrder(ctx context.Context, orderID int, includeDeleted bool) ([]Sale, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, product_id, order_id, quantity, product_cost, selling_price, discount, created_at, deleted_at
		FROM sales
		WHERE order_id = $1 AND ($2 OR deleted_at IS NULL)
		ORDER BY id
	`, orderID, includeDeleted)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales for order %d: %w", orderID, err)
	}
	defer rows.Close()

	var sales []Sale
	for rows.Next() {
		var sl Sale
		if err := rows.Scan(&sl.ID, &sl.ProductID, &sl.OrderID, &sl.Quantity, &sl.ProductCost,
			&sl.SellingPrice, &sl.Discount, &sl.CreatedAt, &sl.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan sale: %w", err)
		}
		sales = append(sales, sl)
	}
	return sales, rows.Err()
}
