package core_test

import (
	"context"
	"os"
	"testing"

	"backoffice/internal/core"
	"backoffice/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// Seeded product ids.
const (
	productA = 1
	productB = 2
	productC = 3
)

type testEnv struct {
	ctx       context.Context
	pool      *pgxpool.Pool
	stock     core.StockService
	purchases core.PurchaseService
	customers core.CustomerService
	orders    core.OrderService
	reports   core.ReportingService
	users     core.UserService
}

// setupTestDB applies the migrations, truncates every table and seeds three
// products with 10 units each.
func setupTestDB(t *testing.T) *testEnv {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set, skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	require.NoError(t, err, "connect to test database")
	t.Cleanup(pool.Close)

	_, err = db.Migrate(ctx, pool, "../../migrations", zap.NewNop())
	require.NoError(t, err, "migrate test database")

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE sales, payments, order_line_items, orders, purchases, customers, products, users
		RESTART IDENTITY CASCADE;

		INSERT INTO products (id, name, price, stock) VALUES
		(1, 'Product A', 1000, 10),
		(2, 'Product B',  500, 10),
		(3, 'Product C',  250, 10);
		SELECT setval('products_id_seq', 3);
	`)
	require.NoError(t, err, "seed test database")

	stock := core.NewStockService(pool)
	customers := core.NewCustomerService(pool)
	return &testEnv{
		ctx:       ctx,
		pool:      pool,
		stock:     stock,
		purchases: core.NewPurchaseService(pool, stock),
		customers: customers,
		orders:    core.NewOrderService(pool, stock, customers, false),
		reports:   core.NewReportingService(pool),
		users:     core.NewUserService(pool),
	}
}

func (e *testEnv) stockOf(t *testing.T, productID int) int {
	t.Helper()
	n, err := e.stock.GetStock(e.ctx, productID)
	require.NoError(t, err)
	return n
}

func (e *testEnv) countRows(t *testing.T, sql string, args ...any) int {
	t.Helper()
	var n int
	require.NoError(t, e.pool.QueryRow(e.ctx, sql, args...).Scan(&n))
	return n
}

func (e *testEnv) activeSales(t *testing.T, orderID int) []core.Sale {
	t.Helper()
	sales, err := e.orders.ListSalesForOrder(e.ctx, orderID, false)
	require.NoError(t, err)
	return sales
}
