package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// OrderService is the order ledger. Every mutation runs in one transaction
// together with the stock, sale and payment writes it implies.
//
// An order holds stock exactly while its active payment is "success": its
// line quantities are consumed then and released otherwise.
type OrderService interface {
	CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error)
	// UpdateOrder replaces the line set and mutable fields of an active order
	// and reconciles stock against the previous line set.
	UpdateOrder(ctx context.Context, orderID int, in UpdateOrderInput) (*Order, error)
	// DeleteOrder soft-deletes an active order with its lines, sales and
	// payments, releasing any stock it holds.
	DeleteOrder(ctx context.Context, orderID int) error
	// RestoreOrder undoes DeleteOrder for exactly the rows it retired.
	RestoreOrder(ctx context.Context, orderID int) error

	// GetOrder returns an order with its lines and payment. For a deleted
	// order these are the rows retired together with it.
	GetOrder(ctx context.Context, orderID int) (*Order, error)
	ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error)
	ListSalesForOrder(ctx context.Context, orderID int, includeDeleted bool) ([]Sale, error)
}

// OrderFilter narrows ListOrders. Zero values match everything.
type OrderFilter struct {
	Status         *OrderStatus
	CustomerPhone  string
	IncludeDeleted bool
	Limit          int
}

type orderService struct {
	pool               *pgxpool.Pool
	stock              StockService
	customers          CustomerService
	allowNegativeStock bool
}

func NewOrderService(pool *pgxpool.Pool, stock StockService, customers CustomerService, allowNegativeStock bool) OrderService {
	return &orderService{
		pool:               pool,
		stock:              stock,
		customers:          customers,
		allowNegativeStock: allowNegativeStock,
	}
}

// pgxQuerier is satisfied by both *pgxpool.Pool and pgx.Tx, enabling shared query helpers.
type pgxQuerier interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

const orderColumns = `id, order_number, customer_id, customer_phone, status, address,
	delivery_provider, total, notes, created_at, updated_at, deleted_at`

const lineColumns = "id, order_id, product_id, quantity, unit_price, created_at, deleted_at"

func scanOrder(row pgx.Row) (*Order, error) {
	var o Order
	if err := row.Scan(&o.ID, &o.OrderNumber, &o.CustomerID, &o.CustomerPhone, &o.Status, &o.Address,
		&o.DeliveryProvider, &o.Total, &o.Notes, &o.CreatedAt, &o.UpdatedAt, &o.DeletedAt); err != nil {
		return nil, err
	}
	return &o, nil
}

// deletionStamp is the cascade timestamp, truncated to the column precision
// so that it compares equal once stored.
func deletionStamp() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// ── Create ───────────────────────────────────────────────────────────────────

func (s *orderService) CreateOrder(ctx context.Context, in CreateOrderInput) (*CreatedOrder, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	customerID, err := s.resolveCustomerTx(ctx, tx, in.IsNewCustomer, in.CustomerPhone, in.CustomerName, in.Address)
	if err != nil {
		return nil, err
	}

	total := OrderTotal(in.Lines)
	var orderID int
	orderNumber, err := insertNumberedTx(ctx, tx, NewOrderNumber, func(sp pgx.Tx, number string) error {
		err := sp.QueryRow(ctx, `
			INSERT INTO orders (order_number, customer_id, customer_phone, status, address,
			                    delivery_provider, total, notes)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			RETURNING id
		`, number, customerID, in.CustomerPhone, in.Status, in.Address,
			in.DeliveryProvider, total, in.Notes).Scan(&orderID)
		if err != nil {
			return fmt.Errorf("failed to insert order: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if err := insertLinesTx(ctx, tx, orderID, in.Lines); err != nil {
		return nil, err
	}

	if in.PaymentStatus == PaymentSuccess {
		if err := recordSalesTx(ctx, tx, orderID, in.Lines); err != nil {
			return nil, err
		}
		consume, _ := stockPlan(nil, in.Lines, false, true)
		if err := s.applyStockTx(ctx, tx, consume, nil); err != nil {
			return nil, err
		}
	}

	if _, err := recordPaymentTx(ctx, tx, orderID, in.PaymentProvider, in.PaymentStatus, total); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order: %w", err)
	}
	return &CreatedOrder{OrderID: orderID, OrderNumber: orderNumber}, nil
}

// ── Update ───────────────────────────────────────────────────────────────────

func (s *orderService) UpdateOrder(ctx context.Context, orderID int, in UpdateOrderInput) (*Order, error) {
	in.Normalize()
	if err := in.Validate(); err != nil {
		return nil, err
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := lockActiveOrderTx(ctx, tx, orderID); err != nil {
		return nil, err
	}
	oldLines, err := activeLinesTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}
	payment, err := activePaymentTx(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	newHeld := in.PaymentStatus == PaymentSuccess
	consume, restock := stockPlan(oldLines, in.Lines, paymentHeld(payment), newHeld)
	if err := s.applyStockTx(ctx, tx, consume, restock); err != nil {
		return nil, err
	}

	now := deletionStamp()
	if err := retireLinesTx(ctx, tx, DiffLines(oldLines, nil).ToDeleteIDs, now); err != nil {
		return nil, err
	}
	if err := insertLinesTx(ctx, tx, orderID, in.Lines); err != nil {
		return nil, err
	}

	// Sales always mirror the current line set of a paid order.
	if err := supersedeSalesTx(ctx, tx, orderID, now); err != nil {
		return nil, err
	}
	if newHeld {
		if err := recordSalesTx(ctx, tx, orderID, in.Lines); err != nil {
			return nil, err
		}
	}

	var customerID *int
	if in.IsNewCustomer {
		c, err := s.customers.UpdateAddressTx(ctx, tx, in.CustomerPhone, in.CustomerName, in.Address)
		if err != nil {
			return nil, err
		}
		customerID = &c.ID
	} else if customerID, err = lookupCustomerIDTx(ctx, tx, in.CustomerPhone); err != nil {
		return nil, err
	}

	total := OrderTotal(in.Lines)
	if _, err := tx.Exec(ctx, `
		UPDATE orders
		SET customer_id = $1, customer_phone = $2, status = $3, address = $4,
		    delivery_provider = $5, notes = $6, total = $7, updated_at = NOW()
		WHERE id = $8
	`, customerID, in.CustomerPhone, in.Status, in.Address,
		in.DeliveryProvider, in.Notes, total, orderID); err != nil {
		return nil, fmt.Errorf("failed to update order %d: %w", orderID, err)
	}

	if _, err := syncPaymentTx(ctx, tx, payment, orderID, in.PaymentProvider, in.PaymentStatus, total); err != nil {
		return nil, err
	}

	order, err := loadOrder(ctx, tx, orderID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit order update: %w", err)
	}
	return order, nil
}

// ── Delete / Restore ─────────────────────────────────────────────────────────

func (s *orderService) DeleteOrder(ctx context.Context, orderID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := lockActiveOrderTx(ctx, tx, orderID); err != nil {
		return err
	}
	lines, err := activeLinesTx(ctx, tx, orderID)
	if err != nil {
		return err
	}
	payment, err := activePaymentTx(ctx, tx, orderID)
	if err != nil {
		return err
	}

	if paymentHeld(payment) {
		if err := s.applyStockTx(ctx, tx, nil, lineTotals(lines)); err != nil {
			return err
		}
	}
	if err := cascadeDeleteTx(ctx, tx, orderID, deletionStamp()); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order delete: %w", err)
	}
	return nil
}

func (s *orderService) RestoreOrder(ctx context.Context, orderID int) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var deletedAt *time.Time
	err = tx.QueryRow(ctx, "SELECT deleted_at FROM orders WHERE id = $1 FOR UPDATE", orderID).Scan(&deletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundf("order %d", orderID)
		}
		return fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	if deletedAt == nil {
		return invalidf("order %d is not deleted", orderID)
	}
	at := *deletedAt

	lines, err := cascadedLinesTx(ctx, tx, orderID, at)
	if err != nil {
		return err
	}
	payment, err := cascadedPaymentTx(ctx, tx, orderID, at)
	if err != nil {
		return err
	}

	if paymentHeld(payment) {
		if err := s.applyStockTx(ctx, tx, lineTotals(lines), nil); err != nil {
			return err
		}
	}
	if err := cascadeRestoreTx(ctx, tx, orderID, at); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit order restore: %w", err)
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *orderService) GetOrder(ctx context.Context, orderID int) (*Order, error) {
	return loadOrder(ctx, s.pool, orderID)
}

func (s *orderService) ListOrders(ctx context.Context, filter OrderFilter) ([]Order, error) {
	var status *string
	if filter.Status != nil {
		v := string(*filter.Status)
		status = &v
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}

	rows, err := s.pool.Query(ctx, `
		SELECT `+orderColumns+`
		FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2 = '' OR customer_phone = $2)
		  AND ($3 OR deleted_at IS NULL)
		ORDER BY created_at DESC, id DESC
		LIMIT $4
	`, status, filter.CustomerPhone, filter.IncludeDeleted, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query orders: %w", err)
	}
	defer rows.Close()

	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

// loadOrder reads an order with the lines and payment that belong to its
// current state: the active ones, or the ones retired with it.
func loadOrder(ctx context.Context, q pgxQuerier, orderID int) (*Order, error) {
	o, err := scanOrder(q.QueryRow(ctx, "SELECT "+orderColumns+" FROM orders WHERE id = $1", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("order %d", orderID)
		}
		return nil, fmt.Errorf("failed to get order %d: %w", orderID, err)
	}

	if o.DeletedAt == nil {
		o.Lines, err = queryLines(ctx, q, `
			SELECT `+lineColumns+` FROM order_line_items
			WHERE order_id = $1 AND deleted_at IS NULL ORDER BY id
		`, orderID)
		if err != nil {
			return nil, err
		}
		o.Payment, err = activePaymentTx(ctx, q, orderID)
		if err != nil {
			return nil, err
		}
		return o, nil
	}

	o.Lines, err = queryLines(ctx, q, `
		SELECT `+lineColumns+` FROM order_line_items
		WHERE order_id = $1 AND deleted_at = $2 ORDER BY id
	`, orderID, *o.DeletedAt)
	if err != nil {
		return nil, err
	}
	p, err := scanPayment(q.QueryRow(ctx, `
		SELECT `+paymentColumns+` FROM payments
		WHERE order_id = $1 AND deleted_at = $2 ORDER BY id DESC LIMIT 1
	`, orderID, *o.DeletedAt))
	switch {
	case err == nil:
		o.Payment = p
	case !errors.Is(err, pgx.ErrNoRows):
		return nil, fmt.Errorf("failed to load payment for order %d: %w", orderID, err)
	}
	return o, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// lockActiveOrderTx takes the row lock that serializes concurrent edits of
// one order. Deleted orders are reported as not found.
func lockActiveOrderTx(ctx context.Context, tx pgx.Tx, orderID int) (*Order, error) {
	o, err := scanOrder(tx.QueryRow(ctx,
		"SELECT "+orderColumns+" FROM orders WHERE id = $1 AND deleted_at IS NULL FOR UPDATE", orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, notFoundf("order %d", orderID)
		}
		return nil, fmt.Errorf("failed to lock order %d: %w", orderID, err)
	}
	return o, nil
}

func activeLinesTx(ctx context.Context, tx pgx.Tx, orderID int) ([]OrderLineItem, error) {
	return queryLines(ctx, tx, `
		SELECT `+lineColumns+` FROM order_line_items
		WHERE order_id = $1 AND deleted_at IS NULL ORDER BY id
	`, orderID)
}

func queryLines(ctx context.Context, q pgxQuerier, sql string, args ...any) ([]OrderLineItem, error) {
	rows, err := q.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query order lines: %w", err)
	}
	defer rows.Close()

	var lines []OrderLineItem
	for rows.Next() {
		var l OrderLineItem
		if err := rows.Scan(&l.ID, &l.OrderID, &l.ProductID, &l.Quantity, &l.UnitPrice, &l.CreatedAt, &l.DeletedAt); err != nil {
			return nil, fmt.Errorf("failed to scan order line: %w", err)
		}
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func insertLinesTx(ctx context.Context, tx pgx.Tx, orderID int, lines []OrderLineInput) error {
	for _, l := range lines {
		if _, err := tx.Exec(ctx, `
			INSERT INTO order_line_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, orderID, l.ProductID, l.Quantity, l.UnitPrice); err != nil {
			if isForeignKeyViolation(err) {
				return notFoundf("product %d", l.ProductID)
			}
			return fmt.Errorf("failed to insert line for product %d: %w", l.ProductID, err)
		}
	}
	return nil
}

func retireLinesTx(ctx context.Context, tx pgx.Tx, ids []int, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if _, err := tx.Exec(ctx,
		"UPDATE order_line_items SET deleted_at = $1 WHERE id = ANY($2)", at, ids); err != nil {
		return fmt.Errorf("failed to retire order lines: %w", err)
	}
	return nil
}

// applyStockTx releases before it consumes so that moving quantity between
// the lines of one order never trips the floor.
func (s *orderService) applyStockTx(ctx context.Context, tx pgx.Tx, consume, restock []StockDelta) error {
	for _, d := range restock {
		if err := s.stock.AdjustStockTx(ctx, tx, d.ProductID, d.Quantity, Add); err != nil {
			return err
		}
	}
	for _, d := range consume {
		if err := s.stock.ConsumeStockTx(ctx, tx, d.ProductID, d.Quantity, s.allowNegativeStock); err != nil {
			return err
		}
	}
	return nil
}

func (s *orderService) resolveCustomerTx(ctx context.Context, tx pgx.Tx, isNew bool, phone, name, address string) (*int, error) {
	if !isNew {
		return lookupCustomerIDTx(ctx, tx, phone)
	}
	c, err := s.customers.EnsureCustomerTx(ctx, tx, phone, name, address)
	if err != nil {
		return nil, err
	}
	return &c.ID, nil
}

// lookupCustomerIDTx links an order to an existing directory entry when
// there is one; orders from unknown phones carry no customer id.
func lookupCustomerIDTx(ctx context.Context, tx pgx.Tx, phone string) (*int, error) {
	var id int
	err := tx.QueryRow(ctx, "SELECT id FROM customers WHERE phone = $1", phone).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up customer %s: %w", phone, err)
	}
	return &id, nil
}
