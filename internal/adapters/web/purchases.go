package web

import (
	"net/http"
	"time"

	"backoffice/internal/app"
	"backoffice/internal/core"

	"github.com/shopspring/decimal"
)

type purchaseBody struct {
	Entries []core.PurchaseEntry `json:"entries"`
}

// apiAddPurchase handles POST /api/purchases.
func (h *Handler) apiAddPurchase(w http.ResponseWriter, r *http.Request) {
	var body purchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}

	res, err := h.svc.AddPurchase(r.Context(), app.AddPurchaseRequest{
		IdempotencyKey: r.Header.Get(idempotencyHeader),
		Entries:        body.Entries,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	status := http.StatusCreated
	if res.Replayed {
		status = http.StatusOK
	}
	writeJSONStatus(w, status, res)
}

// apiListPurchases handles GET /api/purchases?product_id=&include_deleted=.
func (h *Handler) apiListPurchases(w http.ResponseWriter, r *http.Request) {
	productID, err := queryInt(r, "product_id", 0)
	if err != nil {
		writeError(w, r, "invalid product_id", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	res, err := h.svc.ListPurchases(r.Context(), productID, r.URL.Query().Get("include_deleted") == "true")
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiUpdatePurchase handles PUT /api/purchases/{id}.
func (h *Handler) apiUpdatePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body purchaseBody
	if !decodeJSON(w, r, &body) {
		return
	}
	res, err := h.svc.UpdatePurchase(r.Context(), id, body.Entries)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiDeletePurchase handles DELETE /api/purchases/{id}.
func (h *Handler) apiDeletePurchase(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeletePurchase(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiAverageCost handles GET /api/products/{id}/average-cost?as_of=RFC3339.
func (h *Handler) apiAverageCost(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	asOf, err := queryTime(r, "as_of", time.Now())
	if err != nil {
		writeError(w, r, "as_of must be RFC3339", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	cost, err := h.svc.AverageCost(r.Context(), id, asOf)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	type response struct {
		ProductID   int             `json:"product_id"`
		AsOf        time.Time       `json:"as_of"`
		AverageCost decimal.Decimal `json:"average_cost"`
	}
	writeJSON(w, response{ProductID: id, AsOf: asOf.UTC(), AverageCost: cost})
}

// apiListStock handles GET /api/products/stock.
func (h *Handler) apiListStock(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.ListStockLevels(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiSetStock handles PUT /api/products/{id}/stock.
func (h *Handler) apiSetStock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var body struct {
		Stock *int `json:"stock"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	if body.Stock == nil {
		writeError(w, r, "stock is required", "VALIDATION_ERROR", http.StatusBadRequest)
		return
	}
	if err := h.svc.SetStock(r.Context(), id, *body.Stock); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
