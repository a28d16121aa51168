package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
)

const paymentColumns = "id, payment_number, order_id, provider, status, amount, created_at, updated_at, deleted_at"

func scanPayment(row pgx.Row) (*Payment, error) {
	var p Payment
	if err := row.Scan(&p.ID, &p.PaymentNumber, &p.OrderID, &p.Provider, &p.Status,
		&p.Amount, &p.CreatedAt, &p.UpdatedAt, &p.DeletedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

// recordPaymentTx inserts the payment row of a new order.
func recordPaymentTx(ctx context.Context, tx pgx.Tx, orderID int, provider string, status PaymentStatus, amount int64) (*Payment, error) {
	var p *Payment
	_, err := insertNumberedTx(ctx, tx, NewPaymentNumber, func(sp pgx.Tx, number string) error {
		var err error
		p, err = scanPayment(sp.QueryRow(ctx, `
			INSERT INTO payments (payment_number, order_id, provider, status, amount)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+paymentColumns,
			number, orderID, provider, status, amount))
		if err != nil {
			return fmt.Errorf("failed to insert payment for order %d: %w", orderID, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return p, nil
}

// activePaymentTx returns the active payment of an order, or nil when the
// order has none.
func activePaymentTx(ctx context.Context, q pgxQuerier, orderID int) (*Payment, error) {
	p, err := scanPayment(q.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments
		WHERE order_id = $1 AND deleted_at IS NULL
		ORDER BY id DESC
		LIMIT 1
	`, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load payment for order %d: %w", orderID, err)
	}
	return p, nil
}

// syncPaymentTx rewrites the active payment of an order with the given
// status, provider and amount, inserting one when the order has none.
func syncPaymentTx(ctx context.Context, tx pgx.Tx, current *Payment, orderID int, provider string, status PaymentStatus, amount int64) (*Payment, error) {
	if current == nil {
		return recordPaymentTx(ctx, tx, orderID, provider, status, amount)
	}
	p, err := scanPayment(tx.QueryRow(ctx, `
		UPDATE payments
		SET status = $1, provider = $2, amount = $3, updated_at = NOW()
		WHERE id = $4
		RETURNING `+paymentColumns,
		status, provider, amount, current.ID))
	if err != nil {
		return nil, fmt.Errorf("failed to update payment %d: %w", current.ID, err)
	}
	return p, nil
}

// paymentHeld reports whether p makes its order hold stock.
func paymentHeld(p *Payment) bool {
	return p != nil && p.Status == PaymentSuccess
}
