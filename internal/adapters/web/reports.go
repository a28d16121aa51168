package web

import (
	"net/http"
	"time"
)

// apiSalesSummary handles GET /api/reports/sales?from=&to=.
// Both bounds are RFC3339; the default window is the last 30 days.
func (h *Handler) apiSalesSummary(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Truncate(time.Minute)
	to, err := queryTime(r, "to", now)
	if err != nil {
		writeError(w, r, "to must be RFC3339", "BAD_REQUEST", http.StatusBadRequest)
		return
	}
	from, err := queryTime(r, "from", to.AddDate(0, 0, -30))
	if err != nil {
		writeError(w, r, "from must be RFC3339", "BAD_REQUEST", http.StatusBadRequest)
		return
	}

	summary, err := h.svc.SalesSummary(r.Context(), from, to)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, summary)
}
