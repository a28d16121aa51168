package app

import "backoffice/internal/core"

// CreateOrderResult is returned by CreateOrder.
type CreateOrderResult struct {
	OrderID     int    `json:"order_id"`
	OrderNumber string `json:"order_number"`
	// Replayed is set when the result came from an earlier request with the
	// same idempotency key.
	Replayed bool `json:"replayed,omitempty"`
}

// OrderResult is returned by order queries and updates.
type OrderResult struct {
	Order *core.Order `json:"order"`
}

// OrderListResult is returned by ListOrders.
type OrderListResult struct {
	Orders []core.Order `json:"orders"`
}

// PurchaseResult is returned by purchase mutations.
type PurchaseResult struct {
	PurchaseIDs []int `json:"purchase_ids"`
	Replayed    bool  `json:"replayed,omitempty"`
}

// PurchaseListResult is returned by ListPurchases.
type PurchaseListResult struct {
	Purchases []core.Purchase `json:"purchases"`
}

// StockResult is returned by ListStockLevels.
type StockResult struct {
	Levels []core.StockLevel `json:"levels"`
}

// UserSession is returned by a successful AuthenticateUser.
type UserSession struct {
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Role     core.Role `json:"role"`
}

// UserResult is the public profile of a user.
type UserResult struct {
	UserID   int       `json:"user_id"`
	Username string    `json:"username"`
	Email    string    `json:"email"`
	Role     core.Role `json:"role"`
}
