package notify

import (
	"encoding/json"
	"strconv"
	"time"
)

const (
	EventPaymentSucceeded = "PaymentSucceeded"

	TopicPaymentSucceeded = "payment.succeeded"
)

// Envelope wraps every published event.
type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"`
	Payload       json.RawMessage `json:"payload"`
}

// PaymentSucceededPayload is emitted after a commit that leaves an order's
// payment in "success".
type PaymentSucceededPayload struct {
	OrderID     int    `json:"order_id"`
	OrderNumber string `json:"order_number"`
	Amount      int64  `json:"amount"`
	Provider    string `json:"provider"`
}

// PartitionKey keeps all events of one order on one partition, in order.
func PartitionKey(orderID int) []byte { return []byte(strconv.Itoa(orderID)) }
