package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"backoffice/internal/cache"
	"backoffice/internal/core"
	"backoffice/internal/notify"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrRequestInFlight is returned when a request reuses the idempotency key
	// of one that has not finished yet.
	ErrRequestInFlight = errors.New("a request with this idempotency key is already in progress")

	// ErrInvalidCredentials hides whether the username or the password was wrong.
	ErrInvalidCredentials = errors.New("invalid username or password")
)

type appService struct {
	orders    core.OrderService
	purchases core.PurchaseService
	stock     core.StockService
	reports   core.ReportingService
	users     core.UserService
	store     cache.Store
	notifier  notify.Notifier
	log       *zap.Logger
}

// Deps groups the collaborators of NewAppService. Store and Notifier may be
// nil, which disables caching and notifications.
type Deps struct {
	Orders    core.OrderService
	Purchases core.PurchaseService
	Stock     core.StockService
	Reports   core.ReportingService
	Users     core.UserService
	Store     cache.Store
	Notifier  notify.Notifier
	Logger    *zap.Logger
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(d Deps) ApplicationService {
	s := &appService{
		orders:    d.Orders,
		purchases: d.Purchases,
		stock:     d.Stock,
		reports:   d.Reports,
		users:     d.Users,
		store:     d.Store,
		notifier:  d.Notifier,
		log:       d.Logger,
	}
	if s.store == nil {
		s.store = cache.Nop{}
	}
	if s.notifier == nil {
		s.notifier = notify.Nop{}
	}
	if s.log == nil {
		s.log = zap.NewNop()
	}
	return s
}

// ── Orders ───────────────────────────────────────────────────────────────────

func (s *appService) CreateOrder(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	req.Order.Normalize()

	res, replayed, err := idempotent(ctx, s, "orders", req.IdempotencyKey, func() (*CreateOrderResult, error) {
		created, err := s.orders.CreateOrder(ctx, req.Order)
		if err != nil {
			return nil, err
		}
		return &CreateOrderResult{OrderID: created.OrderID, OrderNumber: created.OrderNumber}, nil
	})
	if err != nil {
		s.logFailure("create_order", err, zap.String("customer_phone", req.Order.CustomerPhone))
		return nil, err
	}
	if replayed {
		res.Replayed = true
		return res, nil
	}

	s.log.Info("order created",
		zap.Int("order_id", res.OrderID),
		zap.String("order_number", res.OrderNumber),
		zap.String("payment_status", string(req.Order.PaymentStatus)))

	if req.Order.PaymentStatus == core.PaymentSuccess {
		s.notifyPaid(ctx, notify.PaymentSucceededPayload{
			OrderID:     res.OrderID,
			OrderNumber: res.OrderNumber,
			Amount:      core.OrderTotal(req.Order.Lines),
			Provider:    req.Order.PaymentProvider,
		})
	}
	return res, nil
}

func (s *appService) UpdateOrder(ctx context.Context, orderID int, req UpdateOrderRequest) (*OrderResult, error) {
	// Read outside the write transaction; only used to detect the payment
	// transition for the notification.
	var wasPaid bool
	if prior, err := s.orders.GetOrder(ctx, orderID); err == nil {
		wasPaid = prior.Payment != nil && prior.Payment.Status == core.PaymentSuccess
	}

	order, err := s.orders.UpdateOrder(ctx, orderID, req.Order)
	if err != nil {
		s.logFailure("update_order", err, zap.Int("order_id", orderID))
		return nil, err
	}
	s.log.Info("order updated", zap.Int("order_id", orderID), zap.Int64("total", order.Total))

	if !wasPaid && order.Payment != nil && order.Payment.Status == core.PaymentSuccess {
		s.notifyPaid(ctx, notify.PaymentSucceededPayload{
			OrderID:     order.ID,
			OrderNumber: order.OrderNumber,
			Amount:      order.Payment.Amount,
			Provider:    order.Payment.Provider,
		})
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) DeleteOrder(ctx context.Context, orderID int) error {
	if err := s.orders.DeleteOrder(ctx, orderID); err != nil {
		s.logFailure("delete_order", err, zap.Int("order_id", orderID))
		return err
	}
	s.log.Info("order deleted", zap.Int("order_id", orderID))
	return nil
}

func (s *appService) RestoreOrder(ctx context.Context, orderID int) error {
	if err := s.orders.RestoreOrder(ctx, orderID); err != nil {
		s.logFailure("restore_order", err, zap.Int("order_id", orderID))
		return err
	}
	s.log.Info("order restored", zap.Int("order_id", orderID))
	return nil
}

func (s *appService) GetOrder(ctx context.Context, orderID int) (*OrderResult, error) {
	order, err := s.orders.GetOrder(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return &OrderResult{Order: order}, nil
}

func (s *appService) ListOrders(ctx context.Context, req ListOrdersRequest) (*OrderListResult, error) {
	filter := core.OrderFilter{
		CustomerPhone:  req.CustomerPhone,
		IncludeDeleted: req.IncludeDeleted,
		Limit:          req.Limit,
	}
	if req.Status != "" {
		st := core.OrderStatus(req.Status)
		if !st.Valid() {
			return nil, fmt.Errorf("%w: unknown order status %q", core.ErrValidation, req.Status)
		}
		filter.Status = &st
	}
	orders, err := s.orders.ListOrders(ctx, filter)
	if err != nil {
		return nil, err
	}
	return &OrderListResult{Orders: orders}, nil
}

// ── Purchases & stock ────────────────────────────────────────────────────────

func (s *appService) AddPurchase(ctx context.Context, req AddPurchaseRequest) (*PurchaseResult, error) {
	res, replayed, err := idempotent(ctx, s, "purchases", req.IdempotencyKey, func() (*PurchaseResult, error) {
		ids, err := s.purchases.AddPurchase(ctx, req.Entries)
		if err != nil {
			return nil, err
		}
		return &PurchaseResult{PurchaseIDs: ids}, nil
	})
	if err != nil {
		s.logFailure("add_purchase", err, zap.Int("entries", len(req.Entries)))
		return nil, err
	}
	if replayed {
		res.Replayed = true
		return res, nil
	}
	s.log.Info("purchase recorded", zap.Ints("purchase_ids", res.PurchaseIDs))
	return res, nil
}

func (s *appService) UpdatePurchase(ctx context.Context, purchaseID int, entries []core.PurchaseEntry) (*PurchaseResult, error) {
	ids, err := s.purchases.UpdatePurchase(ctx, purchaseID, entries)
	if err != nil {
		s.logFailure("update_purchase", err, zap.Int("purchase_id", purchaseID))
		return nil, err
	}
	s.log.Info("purchase replaced", zap.Int("purchase_id", purchaseID), zap.Ints("purchase_ids", ids))
	return &PurchaseResult{PurchaseIDs: ids}, nil
}

func (s *appService) DeletePurchase(ctx context.Context, purchaseID int) error {
	if err := s.purchases.DeletePurchase(ctx, purchaseID); err != nil {
		s.logFailure("delete_purchase", err, zap.Int("purchase_id", purchaseID))
		return err
	}
	s.log.Info("purchase deleted", zap.Int("purchase_id", purchaseID))
	return nil
}

func (s *appService) ListPurchases(ctx context.Context, productID int, includeDeleted bool) (*PurchaseListResult, error) {
	purchases, err := s.purchases.ListPurchases(ctx, productID, includeDeleted)
	if err != nil {
		return nil, err
	}
	return &PurchaseListResult{Purchases: purchases}, nil
}

func (s *appService) AverageCost(ctx context.Context, productID int, asOf time.Time) (decimal.Decimal, error) {
	return s.purchases.AverageCost(ctx, productID, asOf)
}

func (s *appService) SetStock(ctx context.Context, productID, value int) error {
	if err := s.stock.SetStock(ctx, productID, value); err != nil {
		s.logFailure("set_stock", err, zap.Int("product_id", productID))
		return err
	}
	s.log.Warn("stock overwritten", zap.Int("product_id", productID), zap.Int("stock", value))
	return nil
}

func (s *appService) ListStockLevels(ctx context.Context) (*StockResult, error) {
	levels, err := s.stock.ListStockLevels(ctx)
	if err != nil {
		return nil, err
	}
	return &StockResult{Levels: levels}, nil
}

// ── Reporting ────────────────────────────────────────────────────────────────

func (s *appService) SalesSummary(ctx context.Context, from, to time.Time) (*core.SalesSummary, error) {
	key := fmt.Sprintf(cache.KeySalesSummary, from.Unix(), to.Unix())

	var cached core.SalesSummary
	switch err := s.store.Get(ctx, key, &cached); {
	case err == nil:
		return &cached, nil
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn("report cache read failed", zap.String("key", key), zap.Error(err))
	}

	summary, err := s.reports.GetSalesSummary(ctx, from, to)
	if err != nil {
		return nil, err
	}
	if err := s.store.Set(ctx, key, summary, cache.SummaryTTL(from, to)); err != nil {
		s.log.Warn("report cache write failed", zap.String("key", key), zap.Error(err))
	}
	return summary, nil
}

// ── Users ────────────────────────────────────────────────────────────────────

func (s *appService) AuthenticateUser(ctx context.Context, username, password string) (*UserSession, error) {
	u, err := s.users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, core.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)); err != nil {
		s.log.Info("login rejected", zap.String("username", username))
		return nil, ErrInvalidCredentials
	}
	return &UserSession{UserID: u.ID, Username: u.Username, Role: u.Role}, nil
}

func (s *appService) GetUser(ctx context.Context, userID int) (*UserResult, error) {
	u, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

func (s *appService) CreateUser(ctx context.Context, req CreateUserRequest) (*UserResult, error) {
	if len(req.Password) < 8 {
		return nil, fmt.Errorf("%w: password must be at least 8 characters", core.ErrValidation)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	u, err := s.users.CreateUser(ctx, req.Username, req.Email, string(hash), req.Role)
	if err != nil {
		s.logFailure("create_user", err, zap.String("username", req.Username))
		return nil, err
	}
	s.log.Info("user created", zap.Int("user_id", u.ID), zap.String("role", string(u.Role)))
	return &UserResult{UserID: u.ID, Username: u.Username, Email: u.Email, Role: u.Role}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

type idemRecord struct {
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
}

// idempotent runs fn at most once per (scope, key) within the idempotency
// TTL and replays the stored result afterwards. An empty key, or a cache
// that cannot be reached, runs fn unguarded.
func idempotent[T any](ctx context.Context, s *appService, scope, key string, fn func() (*T, error)) (*T, bool, error) {
	if key == "" {
		res, err := fn()
		return res, false, err
	}
	ck := fmt.Sprintf(cache.KeyIdempotency, scope, key)

	var rec idemRecord
	switch err := s.store.Get(ctx, ck, &rec); {
	case err == nil:
		if rec.Status != "done" {
			return nil, false, ErrRequestInFlight
		}
		var out T
		if err := json.Unmarshal(rec.Result, &out); err != nil {
			return nil, false, fmt.Errorf("failed to decode stored result for %s: %w", ck, err)
		}
		return &out, true, nil
	case !errors.Is(err, cache.ErrMiss):
		s.log.Warn("idempotency lookup failed, running unguarded", zap.String("key", ck), zap.Error(err))
		res, err := fn()
		return res, false, err
	}

	ok, err := s.store.Reserve(ctx, ck, cache.TTLIdempotency)
	if err != nil {
		s.log.Warn("idempotency reserve failed, running unguarded", zap.String("key", ck), zap.Error(err))
		res, err := fn()
		return res, false, err
	}
	if !ok {
		return nil, false, ErrRequestInFlight
	}

	res, err := fn()
	if err != nil {
		if derr := s.store.Delete(ctx, ck); derr != nil {
			s.log.Warn("idempotency release failed", zap.String("key", ck), zap.Error(derr))
		}
		return nil, false, err
	}

	b, err := json.Marshal(res)
	if err == nil {
		err = s.store.Set(ctx, ck, idemRecord{Status: "done", Result: b}, cache.TTLIdempotency)
	}
	if err != nil {
		s.log.Warn("idempotency store failed", zap.String("key", ck), zap.Error(err))
	}
	return res, false, nil
}

func (s *appService) notifyPaid(ctx context.Context, p notify.PaymentSucceededPayload) {
	if err := s.notifier.PaymentSucceeded(ctx, p); err != nil {
		s.log.Warn("payment notification dropped", zap.Int("order_id", p.OrderID), zap.Error(err))
	}
}

// logFailure records a failed mutation. Rejections are expected traffic;
// internal failures need an operator.
func (s *appService) logFailure(op string, err error, fields ...zap.Field) {
	fields = append(fields, zap.String("op", op), zap.Error(err))
	if core.KindOf(err) == core.KindInternal && !errors.Is(err, ErrRequestInFlight) {
		s.log.Error("operation failed", fields...)
		return
	}
	s.log.Info("operation rejected", append(fields, zap.String("kind", string(core.KindOf(err))))...)
}
