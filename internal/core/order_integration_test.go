package core_test

import (
	"errors"
	"testing"

	"backoffice/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidOrder(lines ...core.OrderLineInput) core.CreateOrderInput {
	return core.CreateOrderInput{
		CustomerPhone:    "+62-811-0001",
		CustomerName:     "Dewi",
		Address:          "Jl. Merdeka 1",
		DeliveryProvider: "jne",
		Status:           core.OrderPending,
		Lines:            lines,
		PaymentStatus:    core.PaymentSuccess,
		PaymentProvider:  "bank_transfer",
	}
}

func updateFrom(in core.CreateOrderInput) core.UpdateOrderInput {
	return core.UpdateOrderInput{
		CustomerPhone:    in.CustomerPhone,
		CustomerName:     in.CustomerName,
		Address:          in.Address,
		DeliveryProvider: in.DeliveryProvider,
		Notes:            in.Notes,
		Status:           in.Status,
		Lines:            in.Lines,
		PaymentStatus:    in.PaymentStatus,
		PaymentProvider:  in.PaymentProvider,
	}
}

func TestOrderService_CreatePaidOrder(t *testing.T) {
	env := setupTestDB(t)

	created, err := env.orders.CreateOrder(env.ctx, paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 3, UnitPrice: 1000},
		core.OrderLineInput{ProductID: productB, Quantity: 1, UnitPrice: 500},
	))
	require.NoError(t, err)
	assert.Len(t, created.OrderNumber, 8)

	order, err := env.orders.GetOrder(env.ctx, created.OrderID)
	require.NoError(t, err)
	assert.Equal(t, int64(3500), order.Total)
	assert.Len(t, order.Lines, 2)
	require.NotNil(t, order.Payment)
	assert.Equal(t, core.PaymentSuccess, order.Payment.Status)
	assert.Equal(t, int64(3500), order.Payment.Amount)
	assert.Contains(t, order.Payment.PaymentNumber, "PAY-")

	assert.Equal(t, 7, env.stockOf(t, productA))
	assert.Equal(t, 9, env.stockOf(t, productB))
	assert.Len(t, env.activeSales(t, created.OrderID), 2)
}

func TestOrderService_CreatePendingOrderLeavesStock(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 2, UnitPrice: 1000})
	in.PaymentStatus = core.PaymentPending
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 10, env.stockOf(t, productA))
	assert.Empty(t, env.activeSales(t, created.OrderID))
	assert.Equal(t, 1, env.countRows(t, "SELECT COUNT(*) FROM payments WHERE order_id = $1", created.OrderID))
}

func TestOrderService_CreateRejectsInvalidInputBeforeWriting(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 0, UnitPrice: 1000})
	_, err := env.orders.CreateOrder(env.ctx, in)
	require.Error(t, err)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	assert.Equal(t, 0, env.countRows(t, "SELECT COUNT(*) FROM orders"))
}

func TestOrderService_CreateUnknownProductRollsBack(t *testing.T) {
	env := setupTestDB(t)

	_, err := env.orders.CreateOrder(env.ctx, paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 1, UnitPrice: 1000},
		core.OrderLineInput{ProductID: 999, Quantity: 1, UnitPrice: 1},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	assert.Equal(t, 0, env.countRows(t, "SELECT COUNT(*) FROM orders"))
	assert.Equal(t, 10, env.stockOf(t, productA))
}

func TestOrderService_CreateInsufficientStock(t *testing.T) {
	env := setupTestDB(t)

	_, err := env.orders.CreateOrder(env.ctx, paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 11, UnitPrice: 1000},
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientStock))
	assert.Equal(t, core.KindValidation, core.KindOf(err))
	assert.Equal(t, 10, env.stockOf(t, productA))
	assert.Equal(t, 0, env.countRows(t, "SELECT COUNT(*) FROM sales"))
}

func TestOrderService_AllowNegativeStock(t *testing.T) {
	env := setupTestDB(t)
	orders := core.NewOrderService(env.pool, env.stock, env.customers, true)

	_, err := orders.CreateOrder(env.ctx, paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 12, UnitPrice: 1000},
	))
	require.NoError(t, err)
	assert.Equal(t, -2, env.stockOf(t, productA))
}

func TestOrderService_NewCustomerIsCreatedOnce(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 1, UnitPrice: 1000})
	in.IsNewCustomer = true
	first, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	second, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)

	assert.Equal(t, 1, env.countRows(t, "SELECT COUNT(*) FROM customers"))
	c, err := env.customers.GetCustomerByPhone(env.ctx, in.CustomerPhone)
	require.NoError(t, err)

	for _, id := range []int{first.OrderID, second.OrderID} {
		o, err := env.orders.GetOrder(env.ctx, id)
		require.NoError(t, err)
		require.NotNil(t, o.CustomerID)
		assert.Equal(t, c.ID, *o.CustomerID)
	}
}

func TestOrderService_UpdateAppliesDiff(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 3, UnitPrice: 1000},
		core.OrderLineInput{ProductID: productB, Quantity: 2, UnitPrice: 500},
	)
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	require.Equal(t, 7, env.stockOf(t, productA))
	require.Equal(t, 8, env.stockOf(t, productB))

	// A 3→5, B removed, C added with 4.
	up := updateFrom(in)
	up.Lines = []core.OrderLineInput{
		{ProductID: productA, Quantity: 5, UnitPrice: 1000},
		{ProductID: productC, Quantity: 4, UnitPrice: 250},
	}
	order, err := env.orders.UpdateOrder(env.ctx, created.OrderID, up)
	require.NoError(t, err)

	assert.Equal(t, 5, env.stockOf(t, productA))
	assert.Equal(t, 10, env.stockOf(t, productB))
	assert.Equal(t, 6, env.stockOf(t, productC))

	assert.Equal(t, int64(6000), order.Total)
	assert.Len(t, order.Lines, 2)
	assert.Equal(t, 2, env.countRows(t,
		"SELECT COUNT(*) FROM order_line_items WHERE order_id = $1 AND deleted_at IS NOT NULL", created.OrderID))

	// Superseded sales are retired so the order is not counted twice.
	sales := env.activeSales(t, created.OrderID)
	require.Len(t, sales, 2)
	assert.Equal(t, productA, sales[0].ProductID)
	assert.Equal(t, 5, sales[0].Quantity)
}

func TestOrderService_UpdatePendingToSuccessConsumes(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 2, UnitPrice: 1000},
		core.OrderLineInput{ProductID: productB, Quantity: 3, UnitPrice: 500},
	)
	in.PaymentStatus = core.PaymentPending
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	assert.Empty(t, env.activeSales(t, created.OrderID))
	assert.Equal(t, 10, env.stockOf(t, productA))
	assert.Equal(t, 10, env.stockOf(t, productB))

	up := updateFrom(in)
	up.PaymentStatus = core.PaymentSuccess
	order, err := env.orders.UpdateOrder(env.ctx, created.OrderID, up)
	require.NoError(t, err)

	assert.Len(t, env.activeSales(t, created.OrderID), 2)
	assert.Equal(t, 8, env.stockOf(t, productA))
	assert.Equal(t, 7, env.stockOf(t, productB))
	require.NotNil(t, order.Payment)
	assert.Equal(t, core.PaymentSuccess, order.Payment.Status)
	assert.Equal(t, 1, env.countRows(t, "SELECT COUNT(*) FROM payments WHERE order_id = $1", created.OrderID))
}

func TestOrderService_UpdateSuccessToFailedReleases(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 4, UnitPrice: 1000})
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	require.Equal(t, 6, env.stockOf(t, productA))

	up := updateFrom(in)
	up.PaymentStatus = core.PaymentFailed
	_, err = env.orders.UpdateOrder(env.ctx, created.OrderID, up)
	require.NoError(t, err)

	assert.Equal(t, 10, env.stockOf(t, productA))
	assert.Empty(t, env.activeSales(t, created.OrderID))
}

func TestOrderService_UpdateUnknownOrder(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 1, UnitPrice: 1000})
	_, err := env.orders.UpdateOrder(env.ctx, 4242, updateFrom(in))
	require.Error(t, err)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))
}

func TestOrderService_UpdateChangedCustomerAddress(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 1, UnitPrice: 1000})
	in.IsNewCustomer = true
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)

	up := updateFrom(in)
	up.Address = "Jl. Sudirman 9"
	up.IsNewCustomer = true
	_, err = env.orders.UpdateOrder(env.ctx, created.OrderID, up)
	require.NoError(t, err)

	c, err := env.customers.GetCustomerByPhone(env.ctx, in.CustomerPhone)
	require.NoError(t, err)
	assert.Equal(t, "Jl. Sudirman 9", c.Address)
	assert.Equal(t, "Dewi", c.Name)
}

func TestOrderService_DeleteRestoreRoundTrip(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 3, UnitPrice: 1000},
		core.OrderLineInput{ProductID: productB, Quantity: 2, UnitPrice: 500},
	)
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)

	require.NoError(t, env.orders.DeleteOrder(env.ctx, created.OrderID))
	assert.Equal(t, 10, env.stockOf(t, productA))
	assert.Equal(t, 10, env.stockOf(t, productB))
	assert.Empty(t, env.activeSales(t, created.OrderID))

	deleted, err := env.orders.GetOrder(env.ctx, created.OrderID)
	require.NoError(t, err)
	require.NotNil(t, deleted.DeletedAt)
	assert.Len(t, deleted.Lines, 2)

	// Deleting twice is a not-found.
	err = env.orders.DeleteOrder(env.ctx, created.OrderID)
	assert.Equal(t, core.KindNotFound, core.KindOf(err))

	require.NoError(t, env.orders.RestoreOrder(env.ctx, created.OrderID))
	assert.Equal(t, 7, env.stockOf(t, productA))
	assert.Equal(t, 8, env.stockOf(t, productB))
	assert.Len(t, env.activeSales(t, created.OrderID), 2)

	restored, err := env.orders.GetOrder(env.ctx, created.OrderID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	require.NotNil(t, restored.Payment)
	assert.Equal(t, core.PaymentSuccess, restored.Payment.Status)

	// Restoring an active order is rejected.
	err = env.orders.RestoreOrder(env.ctx, created.OrderID)
	assert.Equal(t, core.KindValidation, core.KindOf(err))
}

func TestOrderService_DeleteRestoreSkipsRetiredLines(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 2, UnitPrice: 1000},
		core.OrderLineInput{ProductID: productB, Quantity: 5, UnitPrice: 500},
	)
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)

	// Drop B: it is restocked by the update and its line stays retired.
	up := updateFrom(in)
	up.Lines = []core.OrderLineInput{{ProductID: productA, Quantity: 2, UnitPrice: 1000}}
	_, err = env.orders.UpdateOrder(env.ctx, created.OrderID, up)
	require.NoError(t, err)
	require.Equal(t, 8, env.stockOf(t, productA))
	require.Equal(t, 10, env.stockOf(t, productB))

	require.NoError(t, env.orders.DeleteOrder(env.ctx, created.OrderID))
	assert.Equal(t, 10, env.stockOf(t, productA))
	assert.Equal(t, 10, env.stockOf(t, productB))

	require.NoError(t, env.orders.RestoreOrder(env.ctx, created.OrderID))
	assert.Equal(t, 8, env.stockOf(t, productA))
	assert.Equal(t, 10, env.stockOf(t, productB))

	order, err := env.orders.GetOrder(env.ctx, created.OrderID)
	require.NoError(t, err)
	require.Len(t, order.Lines, 1)
	assert.Equal(t, productA, order.Lines[0].ProductID)
	assert.Len(t, env.activeSales(t, created.OrderID), 1)
}

func TestOrderService_RestoreInsufficientStockKeepsOrderDeleted(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(
		core.OrderLineInput{ProductID: productA, Quantity: 3, UnitPrice: 1000},
		core.OrderLineInput{ProductID: productB, Quantity: 2, UnitPrice: 500},
	)
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	require.NoError(t, env.orders.DeleteOrder(env.ctx, created.OrderID))

	// Product A sells out while the order is deleted.
	require.NoError(t, env.stock.SetStock(env.ctx, productA, 0))

	err = env.orders.RestoreOrder(env.ctx, created.OrderID)
	require.Error(t, err)
	assert.True(t, errors.Is(err, core.ErrInsufficientStock))
	assert.Equal(t, core.KindValidation, core.KindOf(err))

	assert.Equal(t, 0, env.stockOf(t, productA))
	assert.Equal(t, 10, env.stockOf(t, productB))

	order, err := env.orders.GetOrder(env.ctx, created.OrderID)
	require.NoError(t, err)
	assert.NotNil(t, order.DeletedAt)
	assert.Equal(t, 0, env.countRows(t,
		"SELECT COUNT(*) FROM order_line_items WHERE order_id = $1 AND deleted_at IS NULL", created.OrderID))
	assert.Equal(t, 0, env.countRows(t,
		"SELECT COUNT(*) FROM sales WHERE order_id = $1 AND deleted_at IS NULL", created.OrderID))
	assert.Equal(t, 0, env.countRows(t,
		"SELECT COUNT(*) FROM payments WHERE order_id = $1 AND deleted_at IS NULL", created.OrderID))

	// Once restocked the same order restores normally.
	require.NoError(t, env.stock.SetStock(env.ctx, productA, 10))
	require.NoError(t, env.orders.RestoreOrder(env.ctx, created.OrderID))
	assert.Equal(t, 7, env.stockOf(t, productA))
	assert.Equal(t, 8, env.stockOf(t, productB))
	assert.Len(t, env.activeSales(t, created.OrderID), 2)
}

func TestOrderService_DeletePendingOrderLeavesStock(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 3, UnitPrice: 1000})
	in.PaymentStatus = core.PaymentPending
	created, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)

	require.NoError(t, env.orders.DeleteOrder(env.ctx, created.OrderID))
	assert.Equal(t, 10, env.stockOf(t, productA))
	require.NoError(t, env.orders.RestoreOrder(env.ctx, created.OrderID))
	assert.Equal(t, 10, env.stockOf(t, productA))
}

func TestOrderService_ListOrders(t *testing.T) {
	env := setupTestDB(t)

	in := paidOrder(core.OrderLineInput{ProductID: productA, Quantity: 1, UnitPrice: 1000})
	first, err := env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	in.CustomerPhone = "+62-811-0002"
	_, err = env.orders.CreateOrder(env.ctx, in)
	require.NoError(t, err)
	require.NoError(t, env.orders.DeleteOrder(env.ctx, first.OrderID))

	active, err := env.orders.ListOrders(env.ctx, core.OrderFilter{})
	require.NoError(t, err)
	assert.Len(t, active, 1)

	all, err := env.orders.ListOrders(env.ctx, core.OrderFilter{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Len(t, all, 2)

	byPhone, err := env.orders.ListOrders(env.ctx, core.OrderFilter{CustomerPhone: "+62-811-0001", IncludeDeleted: true})
	require.NoError(t, err)
	require.Len(t, byPhone, 1)
	assert.Equal(t, first.OrderID, byPhone[0].ID)
}
