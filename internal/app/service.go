package app

import (
	"context"
	"time"

	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all adapters (CLI, Web) call.
// It decouples presentation from business logic. Implementations must contain
// no fmt.Println, no ANSI codes, and no display logic of any kind.
type ApplicationService interface {
	// CreateOrder records a new order. With an idempotency key, a repeated
	// request returns the first result instead of creating a second order.
	CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error)

	// UpdateOrder replaces the lines and mutable fields of an active order.
	UpdateOrder(ctx context.Context, orderID int, req UpdateOrderRequest) (*OrderResult, error)

	// DeleteOrder soft-deletes an order together with its lines, sales and payments.
	DeleteOrder(ctx context.Context, orderID int) error

	// RestoreOrder reverses DeleteOrder.
	RestoreOrder(ctx context.Context, orderID int) error

	GetOrder(ctx context.Context, orderID int) (*OrderResult, error)
	ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error)

	// AddPurchase records restocking entries. Idempotent like CreateOrder.
	AddPurchase(ctx context.Context, req AddPurchaseRequest) (*PurchaseResult, error)

	// UpdatePurchase replaces one purchase with new entries.
	UpdatePurchase(ctx context.Context, purchaseID int, entries []core.PurchaseEntry) (*PurchaseResult, error)

	DeletePurchase(ctx context.Context, purchaseID int) error
	ListPurchases(ctx context.Context, productID int, includeDeleted bool) (*PurchaseListResult, error)

	// AverageCost returns the weighted-average unit cost of a product as of asOf.
	AverageCost(ctx context.Context, productID int, asOf time.Time) (decimal.Decimal, error)

	// SetStock overwrites a product's stock counter after a physical count.
	SetStock(ctx context.Context, productID, value int) error
	ListStockLevels(ctx context.Context) (*StockResult, error)

	// SalesSummary totals recognized sales in [from, to). Results may be
	// served from cache and lag recent writes.
	SalesSummary(ctx context.Context, from, to time.Time) (*core.SalesSummary, error)

	// AuthenticateUser verifies credentials and returns a session on success.
	AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error)

	// GetUser returns user profile by ID.
	GetUser(ctx context.Context, userID int) (*UserResult, error)

	// CreateUser hashes the password with bcrypt and stores a new principal.
	CreateUser(ctx context.Context, req CreateUserRequest) (*UserResult, error)
}
