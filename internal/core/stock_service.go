package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Direction selects which way AdjustStockTx moves a counter.
type Direction int

const (
	Add Direction = iota + 1
	Minus
)

func (d Direction) String() string {
	switch d {
	case Add:
		return "add"
	case Minus:
		return "minus"
	}
	return "unknown"
}

// StockLevel is one row of the stock report.
type StockLevel struct {
	ProductID   int    `json:"product_id"`
	ProductName string `json:"product_name"`
	Stock       int    `json:"stock"`
}

// StockService owns the per-product stock counter. All relative changes are
// single UPDATE statements so concurrent writers never lose an update.
type StockService interface {
	// AdjustStockTx moves the counter by amount in the given direction.
	// There is no floor at this level; callers that need one use ConsumeStockTx.
	AdjustStockTx(ctx context.Context, tx pgx.Tx, productID, amount int, dir Direction) error
	// ConsumeStockTx decrements the counter for an order. Unless allowNegative
	// is set, the decrement only applies when enough stock is on hand and
	// ErrInsufficientStock is returned otherwise.
	ConsumeStockTx(ctx context.Context, tx pgx.Tx, productID, qty int, allowNegative bool) error

	// SetStock overwrites the counter. It bypasses purchase history and is
	// meant for manual correction after a physical count.
	SetStock(ctx context.Context, productID, value int) error
	GetStock(ctx context.Context, productID int) (int, error)
	ListStockLevels(ctx context.Context) ([]StockLevel, error)
}

type stockService struct {
	pool *pgxpool.Pool
}

func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

func (s *stockService) AdjustStockTx(ctx context.Context, tx pgx.Tx, productID, amount int, dir Direction) error {
	if amount < 0 {
		return invalidf("stock adjustment amount cannot be negative, got %d", amount)
	}
	var sql string
	switch dir {
	case Add:
		sql = "UPDATE products SET stock = stock + $1, updated_at = NOW() WHERE id = $2"
	case Minus:
		sql = "UPDATE products SET stock = stock - $1, updated_at = NOW() WHERE id = $2"
	default:
		return invalidf("unknown stock direction %d", dir)
	}

	tag, err := tx.Exec(ctx, sql, amount, productID)
	if err != nil {
		return fmt.Errorf("failed to %s stock for product %d: %w", dir, productID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("product %d", productID)
	}
	return nil
}

func (s *stockService) ConsumeStockTx(ctx context.Context, tx pgx.Tx, productID, qty int, allowNegative bool) error {
	if allowNegative {
		return s.AdjustStockTx(ctx, tx, productID, qty, Minus)
	}
	if qty < 0 {
		return invalidf("stock adjustment amount cannot be negative, got %d", qty)
	}

	tag, err := tx.Exec(ctx, `
		UPDATE products SET stock = stock - $1, updated_at = NOW()
		WHERE id = $2 AND stock >= $1
	`, qty, productID)
	if err != nil {
		return fmt.Errorf("failed to consume stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() > 0 {
		return nil
	}

	// Distinguish a missing product from a short one.
	var onHand int
	if err := tx.QueryRow(ctx, "SELECT stock FROM products WHERE id = $1", productID).Scan(&onHand); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return notFoundf("product %d", productID)
		}
		return fmt.Errorf("failed to read stock for product %d: %w", productID, err)
	}
	return fmt.Errorf("%w: product %d has %d, order needs %d", ErrInsufficientStock, productID, onHand, qty)
}

func (s *stockService) SetStock(ctx context.Context, productID, value int) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE products SET stock = $1, updated_at = NOW() WHERE id = $2", value, productID)
	if err != nil {
		return fmt.Errorf("failed to set stock for product %d: %w", productID, err)
	}
	if tag.RowsAffected() == 0 {
		return notFoundf("product %d", productID)
	}
	return nil
}

func (s *stockService) GetStock(ctx context.Context, productID int) (int, error) {
	var stock int
	err := s.pool.QueryRow(ctx, "SELECT stock FROM products WHERE id = $1", productID).Scan(&stock)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, notFoundf("product %d", productID)
		}
		return 0, fmt.Errorf("failed to read stock for product %d: %w", productID, err)
	}
	return stock, nil
}

func (s *stockService) ListStockLevels(ctx context.Context) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, "SELECT id, name, stock FROM products ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(&sl.ProductID, &sl.ProductName, &sl.Stock); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, rows.Err()
}
