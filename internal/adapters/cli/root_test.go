package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubService struct {
	app.ApplicationService

	added    app.AddPurchaseRequest
	deleted  int
	restored int
	asOf     time.Time
	user     app.CreateUserRequest
	err      error
}

func (s *stubService) AddPurchase(_ context.Context, req app.AddPurchaseRequest) (*app.PurchaseResult, error) {
	s.added = req
	if s.err != nil {
		return nil, s.err
	}
	return &app.PurchaseResult{PurchaseIDs: []int{11, 12}}, nil
}

func (s *stubService) DeleteOrder(_ context.Context, id int) error {
	s.deleted = id
	return s.err
}

func (s *stubService) RestoreOrder(_ context.Context, id int) error {
	s.restored = id
	return s.err
}

func (s *stubService) AverageCost(_ context.Context, _ int, asOf time.Time) (decimal.Decimal, error) {
	s.asOf = asOf
	return decimal.RequireFromString("18.333333"), nil
}

func (s *stubService) ListStockLevels(context.Context) (*app.StockResult, error) {
	return &app.StockResult{Levels: []core.StockLevel{{ProductID: 1, ProductName: "Kopi", Stock: 12}}}, nil
}

func (s *stubService) CreateUser(_ context.Context, req app.CreateUserRequest) (*app.UserResult, error) {
	s.user = req
	return &app.UserResult{UserID: 5, Username: req.Username, Role: req.Role}, nil
}

func run(t *testing.T, svc app.ApplicationService, args ...string) (string, error) {
	t.Helper()
	return runWithInput(t, svc, "", args...)
}

func runWithInput(t *testing.T, svc app.ApplicationService, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCommand(svc)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	err := cmd.Execute()
	return out.String(), err
}

func TestCommandPresence(t *testing.T) {
	cmd := NewRootCommand(&stubService{})
	paths := [][]string{
		{"purchase", "add"}, {"purchase", "update"}, {"purchase", "delete"}, {"purchase", "list"},
		{"cost"},
		{"order", "show"}, {"order", "delete"}, {"order", "restore"},
		{"stock", "list"}, {"stock", "set"},
		{"sales", "summary"},
		{"user", "create"},
	}
	for _, p := range paths {
		sub, _, err := cmd.Find(p)
		require.NoError(t, err, "command %v should exist", p)
		assert.Equal(t, p[len(p)-1], sub.Name())
	}
}

func TestGlobalFlags(t *testing.T) {
	cmd := NewRootCommand(&stubService{})
	formatFlag := cmd.PersistentFlags().Lookup("format")
	require.NotNil(t, formatFlag)
	assert.Equal(t, "text", formatFlag.DefValue)

	_, err := run(t, &stubService{}, "stock", "list", "--format", "yaml")
	assert.ErrorContains(t, err, "invalid format")
}

func TestPurchaseAdd_ParsesEntries(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "purchase", "add", "1:20:100", "2:5:80.50", "--idempotency-key", "inv-1")
	require.NoError(t, err)

	require.Len(t, svc.added.Entries, 2)
	assert.Equal(t, "inv-1", svc.added.IdempotencyKey)
	assert.Equal(t, 2, svc.added.Entries[1].ProductID)
	assert.Equal(t, 5, svc.added.Entries[1].Quantity)
	assert.True(t, decimal.RequireFromString("80.5").Equal(svc.added.Entries[1].UnitCost))
	assert.Contains(t, out, "11, 12")
}

func TestPurchaseAdd_BadEntry(t *testing.T) {
	_, err := run(t, &stubService{}, "purchase", "add", "1-20-100")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOrderDeleteRestore(t *testing.T) {
	svc := &stubService{}
	_, err := run(t, svc, "order", "delete", "42")
	require.NoError(t, err)
	_, err = run(t, svc, "order", "restore", "42")
	require.NoError(t, err)
	assert.Equal(t, 42, svc.deleted)
	assert.Equal(t, 42, svc.restored)
}

func TestExitCodes(t *testing.T) {
	_, err := run(t, &stubService{err: core.ErrNotFound}, "order", "delete", "9")
	assert.Equal(t, ExitFailure, GetExitCode(err))

	_, err = run(t, &stubService{err: errors.New("connection refused")}, "order", "delete", "9")
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = run(t, &stubService{}, "order", "delete", "zero")
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestCost_JSONOutput(t *testing.T) {
	svc := &stubService{}
	out, err := run(t, svc, "cost", "3", "--as-of", "2026-02-01T00:00:00Z", "--format", "json")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC), svc.asOf.UTC())

	var resp struct {
		Status string `json:"status"`
		Data   struct {
			ProductID   int    `json:"product_id"`
			AverageCost string `json:"average_cost"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 3, resp.Data.ProductID)
	assert.Equal(t, "18.333333", resp.Data.AverageCost)
}

func TestStockList_Text(t *testing.T) {
	out, err := run(t, &stubService{}, "stock", "list")
	require.NoError(t, err)
	assert.Contains(t, out, "Kopi")
	assert.Contains(t, out, "12")
}

func TestUserCreate_ReadsPasswordFromStdin(t *testing.T) {
	svc := &stubService{}
	out, err := runWithInput(t, svc, "s3cret-pass\n", "user", "create", "ana", "--role", "admin")
	require.NoError(t, err)
	assert.Equal(t, "ana", svc.user.Username)
	assert.Equal(t, "s3cret-pass", svc.user.Password)
	assert.Equal(t, core.RoleAdmin, svc.user.Role)
	assert.Contains(t, out, "#5")
}
