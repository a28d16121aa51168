package core

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// CostLot is one purchase as seen by the averaging: a quantity bought at a
// unit cost.
type CostLot struct {
	Quantity int
	UnitCost decimal.Decimal
}

// WeightedAverage is Σ(unit cost × quantity) / Σ(quantity). It returns zero
// for an empty set or a zero total quantity.
func WeightedAverage(lots []CostLot) decimal.Decimal {
	var value decimal.Decimal
	var qty int64
	for _, l := range lots {
		value = value.Add(l.UnitCost.Mul(decimal.NewFromInt(int64(l.Quantity))))
		qty += int64(l.Quantity)
	}
	if qty == 0 {
		return decimal.Zero
	}
	return value.DivRound(decimal.NewFromInt(qty), 4)
}

// AverageCostTx is the weighted-average unit cost of productID over active
// purchases created strictly before asOf, read through q so it sees the
// caller's uncommitted writes. A product with no qualifying purchases
// averages to zero.
func AverageCostTx(ctx context.Context, q pgxQuerier, productID int, asOf time.Time) (decimal.Decimal, error) {
	var value decimal.Decimal
	var qty int64
	err := q.QueryRow(ctx, `
		SELECT COALESCE(SUM(unit_cost * quantity), 0), COALESCE(SUM(quantity), 0)
		FROM purchases
		WHERE product_id = $1 AND deleted_at IS NULL AND created_at < $2
	`, productID, asOf).Scan(&value, &qty)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to compute average cost for product %d: %w", productID, err)
	}
	if qty == 0 {
		return decimal.Zero, nil
	}
	return value.DivRound(decimal.NewFromInt(qty), 4), nil
}
