package web

import (
	"net/http"

	"backoffice/internal/app"
	"backoffice/internal/core"
)

const idempotencyHeader = "Idempotency-Key"

// apiCreateOrder handles POST /api/orders.
func (h *Handler) apiCreateOrder(w http.ResponseWriter, r *http.Request) {
	var in core.CreateOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.svc.CreateOrder(r.Context(), app.CreateOrderRequest{
		IdempotencyKey: r.Header.Get(idempotencyHeader),
		Order:          in,
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

// apiListOrders handles GET /api/orders?status=&phone=&include_deleted=&limit=.
func (h *Handler) apiListOrders(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		writeError(w, r, "invalid limit", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	q := r.URL.Query()

	res, err := h.svc.ListOrders(r.Context(), app.ListOrdersRequest{
		Status:         q.Get("status"),
		CustomerPhone:  q.Get("phone"),
		IncludeDeleted: q.Get("include_deleted") == "true",
		Limit:          limit,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiGetOrder handles GET /api/orders/{id}.
func (h *Handler) apiGetOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	res, err := h.svc.GetOrder(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiUpdateOrder handles PUT /api/orders/{id}. The body replaces the whole
// order; status and payment_status are required.
func (h *Handler) apiUpdateOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	var in core.UpdateOrderInput
	if !decodeJSON(w, r, &in) {
		return
	}

	res, err := h.svc.UpdateOrder(r.Context(), id, app.UpdateOrderRequest{Order: in})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, res)
}

// apiDeleteOrder handles DELETE /api/orders/{id}.
func (h *Handler) apiDeleteOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.DeleteOrder(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// apiRestoreOrder handles POST /api/orders/{id}/restore.
func (h *Handler) apiRestoreOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	if err := h.svc.RestoreOrder(r.Context(), id); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
