package fulfillment

import "github.com/shopspring/decimal"

// LineOutcome is the planned and delivered quantity of one line
type LineOutcome struct {
	Planned decimal.Decimal
	Actual  decimal.Decimal
}

// Reconcile derives the parent sale order state from line outcomes.
//
//	no lines                         -> IN_PROGRESS
//	any line under-delivered         -> PARTIALLY_FULFILLED
//	all delivered, invoiced          -> INVOICED
//	all delivered, not invoiced      -> FULFILLED
func Reconcile(lines []LineOutcome, invoiced bool) ParentOrderState {
	if len(lines) == 0 {
		return ParentStateInProgress
	}
	for _, l := range lines {
		if l.Actual.LessThan(l.Planned) {
			return ParentStatePartiallyFulfilled
		}
	}
	if invoiced {
		return ParentStateInvoiced
	}
	return ParentStateFulfilled
}

// ReconcileParent derives the sale order state across every fulfillment order
// delivering against it. Lines of orders not yet confirmed count as undelivered,
// and the parent is INVOICED only when every order's invoice is issued.
func ReconcileParent(orders []*Order, invoiced func(*Order) bool) ParentOrderState {
	var lines []LineOutcome
	allInvoiced := len(orders) > 0
	for _, o := range orders {
		lines = append(lines, o.Outcomes()...)
		if !invoiced(o) {
			allInvoiced = false
		}
	}
	return Reconcile(lines, allInvoiced)
}
