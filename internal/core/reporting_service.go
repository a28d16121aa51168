package core

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ── Report types ──────────────────────────────────────────────────────────────

// ProductSales is the per-product slice of a SalesSummary.
// Revenue is Σ quantity × (selling price − discount); Cost is
// Σ quantity × product cost as recorded on each sale.
type ProductSales struct {
	ProductID   int             `json:"product_id"`
	ProductName string          `json:"product_name"`
	Units       int64           `json:"units"`
	Revenue     int64           `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
}

// SalesSummary aggregates the active sale rows recognized in [From, To).
type SalesSummary struct {
	From        time.Time       `json:"from"`
	To          time.Time       `json:"to"`
	Units       int64           `json:"units"`
	Revenue     int64           `json:"revenue"`
	Cost        decimal.Decimal `json:"cost"`
	GrossProfit decimal.Decimal `json:"gross_profit"`
	Products    []ProductSales  `json:"products"`
}

// ── Interface ─────────────────────────────────────────────────────────────────

// ReportingService provides read-only queries over the sale ledger.
type ReportingService interface {
	// GetSalesSummary totals active sales created in [from, to).
	GetSalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error)
}

type reportingService struct {
	pool *pgxpool.Pool
}

func NewReportingService(pool *pgxpool.Pool) ReportingService {
	return &reportingService{pool: pool}
}

func (s *reportingService) GetSalesSummary(ctx context.Context, from, to time.Time) (*SalesSummary, error) {
	if !to.After(from) {
		return nil, invalidf("report range end %s must be after start %s",
			to.Format(time.RFC3339), from.Format(time.RFC3339))
	}

	rows, err := s.pool.Query(ctx, `
		SELECT sa.product_id, p.name,
		       SUM(sa.quantity)::bigint,
		       SUM(sa.quantity * (sa.selling_price - sa.discount))::bigint,
		       SUM(sa.quantity * sa.product_cost)
		FROM sales sa
		JOIN products p ON p.id = sa.product_id
		WHERE sa.deleted_at IS NULL
		  AND sa.created_at >= $1 AND sa.created_at < $2
		GROUP BY sa.product_id, p.name
		ORDER BY sa.product_id
	`, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales summary: %w", err)
	}
	defer rows.Close()

	summary := &SalesSummary{From: from, To: to, Cost: decimal.Zero, GrossProfit: decimal.Zero}
	for rows.Next() {
		var ps ProductSales
		if err := rows.Scan(&ps.ProductID, &ps.ProductName, &ps.Units, &ps.Revenue, &ps.Cost); err != nil {
			return nil, fmt.Errorf("failed to scan sales summary row: %w", err)
		}
		ps.GrossProfit = decimal.NewFromInt(ps.Revenue).Sub(ps.Cost)

		summary.Units += ps.Units
		summary.Revenue += ps.Revenue
		summary.Cost = summary.Cost.Add(ps.Cost)
		summary.GrossProfit = summary.GrossProfit.Add(ps.GrossProfit)
		summary.Products = append(summary.Products, ps)
	}
	return summary, rows.Err()
}
