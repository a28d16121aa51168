package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the fulfilment status of an order. It is independent of
// the payment status, which lives on the Payment record.
type OrderStatus string

const (
	OrderPending   OrderStatus = "pending"
	OrderShipped   OrderStatus = "shipped"
	OrderDelivered OrderStatus = "delivered"
	OrderCancelled OrderStatus = "cancelled"
	OrderRefunded  OrderStatus = "refunded"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderPending, OrderShipped, OrderDelivered, OrderCancelled, OrderRefunded:
		return true
	}
	return false
}

// PaymentStatus drives sale recognition and stock consumption: only a
// "success" payment makes an order hold stock and produce Sale rows.
type PaymentStatus string

const (
	PaymentPending PaymentStatus = "pending"
	PaymentSuccess PaymentStatus = "success"
	PaymentFailed  PaymentStatus = "failed"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentSuccess, PaymentFailed:
		return true
	}
	return false
}

// Customer is a directory entry keyed by phone number.
type Customer struct {
	ID        int       `json:"id"`
	Phone     string    `json:"phone"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Product is the catalog entity this engine references. Only the stock
// counter is owned here.
type Product struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Price     int64     `json:"price"`
	Stock     int       `json:"stock"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Order is the aggregate root of the order ledger.
type Order struct {
	ID               int             `json:"id"`
	OrderNumber      string          `json:"order_number"`
	CustomerID       *int            `json:"customer_id,omitempty"`
	CustomerPhone    string          `json:"customer_phone"`
	Status           OrderStatus     `json:"status"`
	Address          string          `json:"address"`
	DeliveryProvider string          `json:"delivery_provider"`
	Total            int64           `json:"total"`
	Notes            string          `json:"notes"`
	Lines            []OrderLineItem `json:"lines"`
	Payment          *Payment        `json:"payment,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        *time.Time      `json:"deleted_at,omitempty"`
}

// OrderLineItem is one product+quantity entry of an order. Rows are never
// patched: an update soft-deletes the old set and inserts a new one.
type OrderLineItem struct {
	ID        int        `json:"id"`
	OrderID   int        `json:"order_id"`
	ProductID int        `json:"product_id"`
	Quantity  int        `json:"quantity"`
	UnitPrice int64      `json:"unit_price"`
	CreatedAt time.Time  `json:"created_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// OrderLineInput is a caller-supplied line. UnitPrice is taken as given and
// locks the price at order time; it is not re-read from the catalog.
// Discount is recorded on the Sale row and does not change the order total.
type OrderLineInput struct {
	ProductID int   `json:"product_id"`
	Quantity  int   `json:"quantity"`
	UnitPrice int64 `json:"unit_price"`
	Discount  int64 `json:"discount"`
}

// CreateOrderInput is the input of OrderService.CreateOrder.
type CreateOrderInput struct {
	CustomerPhone    string           `json:"customer_phone"`
	CustomerName     string           `json:"customer_name"`
	Address          string           `json:"address"`
	DeliveryProvider string           `json:"delivery_provider"`
	Notes            string           `json:"notes"`
	Status           OrderStatus      `json:"status"`
	Lines            []OrderLineInput `json:"lines"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	PaymentProvider  string           `json:"payment_provider"`
	IsNewCustomer    bool             `json:"is_new_customer"`
}

// UpdateOrderInput replaces the mutable parts of an order. The line set is
// replaced wholesale.
type UpdateOrderInput struct {
	CustomerPhone    string           `json:"customer_phone"`
	CustomerName     string           `json:"customer_name"`
	Address          string           `json:"address"`
	DeliveryProvider string           `json:"delivery_provider"`
	Notes            string           `json:"notes"`
	Status           OrderStatus      `json:"status"`
	Lines            []OrderLineInput `json:"lines"`
	PaymentStatus    PaymentStatus    `json:"payment_status"`
	PaymentProvider  string           `json:"payment_provider"`
	// IsNewCustomer marks the customer as new or changed; the directory
	// entry's address is rewritten when set.
	IsNewCustomer bool `json:"is_new_customer"`
}

// CreatedOrder is the result of a successful CreateOrder.
type CreatedOrder struct {
	OrderID     int    `json:"order_id"`
	OrderNumber string `json:"order_number"`
}

// Payment tracks the payment attached to one order.
type Payment struct {
	ID            int           `json:"id"`
	PaymentNumber string        `json:"payment_number"`
	OrderID       int           `json:"order_id"`
	Provider      string        `json:"provider"`
	Status        PaymentStatus `json:"status"`
	Amount        int64         `json:"amount"`
	CreatedAt     time.Time     `json:"created_at"`
	UpdatedAt     time.Time     `json:"updated_at"`
	DeletedAt     *time.Time    `json:"deleted_at,omitempty"`
}

// Sale is one recognized revenue/cost event for a line of a paid order.
// ProductCost is the weighted-average unit cost at recognition time.
type Sale struct {
	ID           int             `json:"id"`
	ProductID    int             `json:"product_id"`
	OrderID      int             `json:"order_id"`
	Quantity     int             `json:"quantity"`
	ProductCost  decimal.Decimal `json:"product_cost"`
	SellingPrice int64           `json:"selling_price"`
	Discount     int64           `json:"discount"`
	CreatedAt    time.Time       `json:"created_at"`
	DeletedAt    *time.Time      `json:"deleted_at,omitempty"`
}
