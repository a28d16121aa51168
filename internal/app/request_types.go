package app

import "backoffice/internal/core"

// CreateOrderRequest is the input for CreateOrder.
type CreateOrderRequest struct {
	IdempotencyKey string
	Order          core.CreateOrderInput
}

// UpdateOrderRequest is the input for UpdateOrder.
type UpdateOrderRequest struct {
	Order core.UpdateOrderInput
}

// ListOrdersRequest filters ListOrders.
type ListOrdersRequest struct {
	Status         string // empty means any
	CustomerPhone  string
	IncludeDeleted bool
	Limit          int
}

// AddPurchaseRequest is the input for AddPurchase.
type AddPurchaseRequest struct {
	IdempotencyKey string
	Entries        []core.PurchaseEntry
}

// CreateUserRequest provisions a principal. Password is plain text and is
// hashed before it reaches storage.
type CreateUserRequest struct {
	Username string
	Email    string
	Password string
	Role     core.Role
}
