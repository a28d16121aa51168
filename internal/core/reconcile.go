package core

import "sort"

// StockDelta is a quantity to move for one product.
type StockDelta struct {
	ProductID int `json:"product_id"`
	Quantity  int `json:"quantity"`
}

// LineDiff is the plan for replacing an order's line set.
type LineDiff struct {
	ToConsume   []StockDelta     // stock to take out, per product
	ToRestock   []StockDelta     // stock to put back, per product
	ToInsert    []OrderLineInput // the new line set, inserted wholesale
	ToDeleteIDs []int            // every old line id, soft-deleted wholesale
}

// DiffLines compares the active line items of an order with the replacement
// set. Quantities are aggregated per product id first, so a product listed
// twice counts once with the summed quantity. Deltas are sorted by product id.
//
//	in both, quantity up:   consume the difference
//	in both, quantity down: restock the difference
//	only in next:           consume the full quantity
//	only in old:            restock the full quantity
func DiffLines(old []OrderLineItem, next []OrderLineInput) LineDiff {
	before := make(map[int]int, len(old))
	for _, l := range old {
		before[l.ProductID] += l.Quantity
	}
	after := make(map[int]int, len(next))
	for _, l := range next {
		after[l.ProductID] += l.Quantity
	}

	var d LineDiff
	for pid, qty := range after {
		switch delta := qty - before[pid]; {
		case delta > 0:
			d.ToConsume = append(d.ToConsume, StockDelta{ProductID: pid, Quantity: delta})
		case delta < 0:
			d.ToRestock = append(d.ToRestock, StockDelta{ProductID: pid, Quantity: -delta})
		}
	}
	for pid, qty := range before {
		if _, ok := after[pid]; !ok {
			d.ToRestock = append(d.ToRestock, StockDelta{ProductID: pid, Quantity: qty})
		}
	}
	sortDeltas(d.ToConsume)
	sortDeltas(d.ToRestock)

	d.ToInsert = append(d.ToInsert, next...)
	for _, l := range old {
		d.ToDeleteIDs = append(d.ToDeleteIDs, l.ID)
	}
	return d
}

// stockPlan returns the stock movements for replacing old with next when the
// old set is held only if oldHeld and the new set only if newHeld.
func stockPlan(old []OrderLineItem, next []OrderLineInput, oldHeld, newHeld bool) (consume, restock []StockDelta) {
	switch {
	case oldHeld && newHeld:
		d := DiffLines(old, next)
		return d.ToConsume, d.ToRestock
	case newHeld:
		return DiffLines(nil, next).ToConsume, nil
	case oldHeld:
		return nil, DiffLines(old, nil).ToRestock
	}
	return nil, nil
}

func sortDeltas(ds []StockDelta) {
	sort.Slice(ds, func(i, j int) bool { return ds[i].ProductID < ds[j].ProductID })
}

// lineTotals sums the quantities of lines per product id, sorted by id.
func lineTotals(lines []OrderLineItem) []StockDelta {
	return DiffLines(lines, nil).ToRestock
}
