package core

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Purchase is one restocking event. Rows are immutable once written; an
// update soft-deletes the row and writes replacements.
type Purchase struct {
	ID        int             `json:"id"`
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
	CreatedAt time.Time       `json:"created_at"`
	DeletedAt *time.Time      `json:"deleted_at,omitempty"`
}

// PurchaseEntry is the caller input for one restocking line.
type PurchaseEntry struct {
	ProductID int             `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitCost  decimal.Decimal `json:"unit_cost"`
}

// PurchaseService is the purchase ledger plus cost averaging over it.
// Every mutation runs in a single transaction together with its stock
// adjustment.
type PurchaseService interface {
	// AddPurchase inserts one purchase per entry and increments stock by each
	// quantity. Returns the new purchase ids in entry order.
	AddPurchase(ctx context.Context, entries []PurchaseEntry) ([]int, error)
	// UpdatePurchase soft-deletes purchase id, reverses its stock increase and
	// applies AddPurchase semantics to entries.
	UpdatePurchase(ctx context.Context, id int, entries []PurchaseEntry) ([]int, error)
	// DeletePurchase soft-deletes purchase id and reverses its stock increase.
	DeletePurchase(ctx context.Context, id int) error

	GetPurchase(ctx context.Context, id int) (*Purchase, error)
	// ListPurchases returns purchases newest first. productID 0 means all products.
	ListPurchases(ctx context.Context, productID int, includeDeleted bool) ([]Purchase, error)

	// AverageCost is the weighted-average unit cost of productID over active
	// purchases created strictly before asOf. Zero when there are none.
	AverageCost(ctx context.Context, productID int, asOf time.Time) (decimal.Decimal, error)
}
