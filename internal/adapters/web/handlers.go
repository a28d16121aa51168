package web

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Options configures NewHandler.
type Options struct {
	// AllowedOrigins is the comma-separated ALLOWED_ORIGINS value.
	AllowedOrigins string
	JWTSecret      string
	// RequestTimeout bounds every request context. Zero means 15s.
	RequestTimeout time.Duration
	Logger         *zap.Logger
}

// Handler holds the ApplicationService and the chi router.
type Handler struct {
	svc       app.ApplicationService
	router    chi.Router
	jwtSecret string
	log       *zap.Logger
}

// NewHandler creates and wires the chi router with all routes.
func NewHandler(svc app.ApplicationService, opts Options) http.Handler {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 15 * time.Second
	}

	h := &Handler{
		svc:       svc,
		jwtSecret: opts.JWTSecret,
		log:       opts.Logger,
	}

	r := chi.NewRouter()
	r.Use(RequestID)
	r.Use(chimw.RealIP)
	r.Use(Logger(h.log))
	r.Use(Recoverer(h.log))
	r.Use(CORS(opts.AllowedOrigins))
	r.Use(chimw.Timeout(opts.RequestTimeout))

	// ── Public ───────────────────────────────────────────────────────────────
	r.Get("/api/health", h.health)
	r.Post("/api/auth/login", h.login)
	r.Post("/api/auth/logout", h.logout)

	// ── Protected API routes (return 401 JSON if unauthenticated) ────────────
	r.Group(func(r chi.Router) {
		r.Use(h.RequireAuth)
		r.Use(RequestBodyLimit(1 << 20)) // 1 MB

		r.Get("/api/auth/me", h.me)

		// Back-office workflows: staff and admins only.
		r.Group(func(r chi.Router) {
			r.Use(RequireRole(core.RoleAdmin, core.RoleStaff))

			// ── Orders ───────────────────────────────────────────────────────
			r.Post("/api/orders", h.apiCreateOrder)
			r.Get("/api/orders", h.apiListOrders)
			r.Get("/api/orders/{id}", h.apiGetOrder)
			r.Put("/api/orders/{id}", h.apiUpdateOrder)
			r.Delete("/api/orders/{id}", h.apiDeleteOrder)
			r.Post("/api/orders/{id}/restore", h.apiRestoreOrder)

			// ── Purchases & stock ────────────────────────────────────────────
			r.Post("/api/purchases", h.apiAddPurchase)
			r.Get("/api/purchases", h.apiListPurchases)
			r.Put("/api/purchases/{id}", h.apiUpdatePurchase)
			r.Delete("/api/purchases/{id}", h.apiDeletePurchase)
			r.Get("/api/products/stock", h.apiListStock)
			r.Get("/api/products/{id}/average-cost", h.apiAverageCost)
			r.With(RequireRole(core.RoleAdmin)).Put("/api/products/{id}/stock", h.apiSetStock)

			// ── Reports ──────────────────────────────────────────────────────
			r.Get("/api/reports/sales", h.apiSalesSummary)
		})
	})

	h.router = r
	return r
}

// health returns service status.
func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// decodeJSON decodes the request body into v and returns false + writes an appropriate
// error response on failure. Returns HTTP 413 when the body exceeds the size limit set
// by RequestBodyLimit middleware; HTTP 400 for all other decode errors.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			writeError(w, r, "request body too large", "REQUEST_TOO_LARGE", http.StatusRequestEntityTooLarge)
			return false
		}
		writeError(w, r, "invalid JSON body: "+err.Error(), "BAD_REQUEST", http.StatusBadRequest)
		return false
	}
	return true
}

// pathID parses a positive integer URL parameter. Writes 400 and returns
// false when it is not one.
func pathID(w http.ResponseWriter, r *http.Request, name string) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, name))
	if err != nil || id <= 0 {
		writeError(w, r, "invalid "+name, "BAD_REQUEST", http.StatusBadRequest)
		return 0, false
	}
	return id, true
}

// queryInt parses an optional integer query parameter; missing means def.
func queryInt(r *http.Request, name string, def int) (int, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return strconv.Atoi(s)
}

// queryTime parses an optional RFC3339 query parameter; missing means def.
func queryTime(r *http.Request, name string, def time.Time) (time.Time, error) {
	s := r.URL.Query().Get(name)
	if s == "" {
		return def, nil
	}
	return time.Parse(time.RFC3339, s)
}
