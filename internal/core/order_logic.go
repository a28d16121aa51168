package core

import (
	"strings"
)

// Normalize trims free-text fields and fills defaults so that Validate sees
// a canonical input.
func (in *CreateOrderInput) Normalize() {
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Address = strings.TrimSpace(in.Address)
	in.DeliveryProvider = strings.TrimSpace(in.DeliveryProvider)
	in.PaymentProvider = strings.TrimSpace(in.PaymentProvider)
	in.Status = OrderStatus(strings.ToLower(strings.TrimSpace(string(in.Status))))
	if in.Status == "" {
		in.Status = OrderPending
	}
	in.PaymentStatus = PaymentStatus(strings.ToLower(strings.TrimSpace(string(in.PaymentStatus))))
	if in.PaymentStatus == "" {
		in.PaymentStatus = PaymentPending
	}
}

// Validate rejects malformed input before any write happens.
func (in *CreateOrderInput) Validate() error {
	return validateOrderFields(in.CustomerPhone, in.Status, in.PaymentStatus, in.Lines)
}

// Normalize trims and lower-cases like CreateOrderInput.Normalize but fills
// no defaults: an update replaces the whole order, so both statuses must be
// stated.
func (in *UpdateOrderInput) Normalize() {
	in.CustomerPhone = strings.TrimSpace(in.CustomerPhone)
	in.CustomerName = strings.TrimSpace(in.CustomerName)
	in.Address = strings.TrimSpace(in.Address)
	in.DeliveryProvider = strings.TrimSpace(in.DeliveryProvider)
	in.PaymentProvider = strings.TrimSpace(in.PaymentProvider)
	in.Status = OrderStatus(strings.ToLower(strings.TrimSpace(string(in.Status))))
	in.PaymentStatus = PaymentStatus(strings.ToLower(strings.TrimSpace(string(in.PaymentStatus))))
}

// Validate rejects malformed input before any write happens.
func (in *UpdateOrderInput) Validate() error {
	if in.Status == "" {
		return invalidf("order status is required on update")
	}
	if in.PaymentStatus == "" {
		return invalidf("payment status is required on update")
	}
	return validateOrderFields(in.CustomerPhone, in.Status, in.PaymentStatus, in.Lines)
}

func validateOrderFields(phone string, status OrderStatus, payment PaymentStatus, lines []OrderLineInput) error {
	if phone == "" {
		return invalidf("customer phone is required")
	}
	if !status.Valid() {
		return invalidf("unknown order status %q", status)
	}
	if !payment.Valid() {
		return invalidf("unknown payment status %q", payment)
	}
	if len(lines) == 0 {
		return invalidf("order must have at least one line")
	}
	for i, l := range lines {
		if l.ProductID <= 0 {
			return invalidf("line %d: product id must be positive", i+1)
		}
		if l.Quantity < 1 {
			return invalidf("line %d: quantity must be at least 1, got %d", i+1, l.Quantity)
		}
		if l.UnitPrice < 0 {
			return invalidf("line %d: unit price cannot be negative", i+1)
		}
		if l.Discount < 0 || l.Discount > l.UnitPrice {
			return invalidf("line %d: discount must be between 0 and the unit price", i+1)
		}
	}
	return nil
}

// OrderTotal is Σ(quantity × unit price) over the caller-supplied lines.
func OrderTotal(lines []OrderLineInput) int64 {
	var total int64
	for _, l := range lines {
		total += int64(l.Quantity) * l.UnitPrice
	}
	return total
}

// ValidatePurchaseEntries checks a purchase batch before any write.
func ValidatePurchaseEntries(entries []PurchaseEntry) error {
	if len(entries) == 0 {
		return invalidf("purchase must have at least one entry")
	}
	for i, e := range entries {
		if e.ProductID <= 0 {
			return invalidf("entry %d: product id must be positive", i+1)
		}
		if e.Quantity < 1 {
			return invalidf("entry %d: quantity must be at least 1, got %d", i+1, e.Quantity)
		}
		if e.UnitCost.IsNegative() {
			return invalidf("entry %d: unit cost cannot be negative, got %s", i+1, e.UnitCost)
		}
	}
	return nil
}
