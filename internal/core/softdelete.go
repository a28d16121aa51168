package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// The cascade stamps one timestamp on the order and on every active row
// hanging off it. Restore matches on that exact timestamp, so rows retired
// earlier by an update keep their own deleted_at and stay retired.
var cascadeTables = []string{"order_line_items", "sales", "payments"}

// cascadeDeleteTx soft-deletes an order and its active children at the
// same instant.
func cascadeDeleteTx(ctx context.Context, tx pgx.Tx, orderID int, at time.Time) error {
	if _, err := tx.Exec(ctx,
		"UPDATE orders SET deleted_at = $1, updated_at = NOW() WHERE id = $2", at, orderID); err != nil {
		return fmt.Errorf("failed to delete order %d: %w", orderID, err)
	}
	for _, table := range cascadeTables {
		sql := fmt.Sprintf("UPDATE %s SET deleted_at = $1 WHERE order_id = $2 AND deleted_at IS NULL", table)
		if _, err := tx.Exec(ctx, sql, at, orderID); err != nil {
			return fmt.Errorf("failed to cascade delete to %s for order %d: %w", table, orderID, err)
		}
	}
	return nil
}

// cascadeRestoreTx clears deleted_at on the order and on exactly the child
// rows stamped by the delete that retired it.
func cascadeRestoreTx(ctx context.Context, tx pgx.Tx, orderID int, at time.Time) error {
	for _, table := range cascadeTables {
		sql := fmt.Sprintf("UPDATE %s SET deleted_at = NULL WHERE order_id = $1 AND deleted_at = $2", table)
		if _, err := tx.Exec(ctx, sql, orderID, at); err != nil {
			return fmt.Errorf("failed to cascade restore to %s for order %d: %w", table, orderID, err)
		}
	}
	if _, err := tx.Exec(ctx,
		"UPDATE orders SET deleted_at = NULL, updated_at = NOW() WHERE id = $1", orderID); err != nil {
		return fmt.Errorf("failed to restore order %d: %w", orderID, err)
	}
	return nil
}

// cascadedLinesTx returns the line items retired together with the order.
func cascadedLinesTx(ctx context.Context, tx pgx.Tx, orderID int, at time.Time) ([]OrderLineItem, error) {
	return queryLines(ctx, tx, `
		SELECT id, order_id, product_id, quantity, unit_price, created_at, deleted_at
		FROM order_line_items
		WHERE order_id = $1 AND deleted_at = $2
		ORDER BY id
	`, orderID, at)
}

// cascadedPaymentTx returns the payment retired together with the order,
// or nil when there is none.
func cascadedPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, at time.Time) (*Payment, error) {
	rows, err := tx.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1 AND deleted_at = $2
		ORDER BY id DESC
	`, orderID, at)
	if err != nil {
		return nil, fmt.Errorf("failed to load payment for order %d: %w", orderID, err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	p, err := scanPayment(rows)
	if err != nil {
		return nil, fmt.Errorf("failed to scan payment: %w", err)
	}
	return p, nil
}
