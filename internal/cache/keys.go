package cache

import "time"

const (
	// Idempotent create: idem:{scope}:{Idempotency-Key} -> stored response
	KeyIdempotency = "idem:%s:%s"

	// Sales summary: report:sales:{from_unix}:{to_unix} -> SalesSummary JSON
	KeySalesSummary = "report:sales:%d:%d"
)

var (
	TTLIdempotency = 24 * time.Hour

	TTLSummaryShort  = 1 * time.Minute
	TTLSummaryMedium = 5 * time.Minute
	TTLSummaryLong   = 30 * time.Minute
)

// SummaryTTL picks how long a sales summary over [from, to) may be served
// stale. Narrow ranges are usually "today so far" and change quickly.
func SummaryTTL(from, to time.Time) time.Duration {
	switch span := to.Sub(from); {
	case span <= 24*time.Hour:
		return TTLSummaryShort
	case span <= 31*24*time.Hour:
		return TTLSummaryMedium
	default:
		return TTLSummaryLong
	}
}
