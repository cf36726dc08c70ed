// Package engine derives financial truth from a ledger snapshot: invoice
// cycles, installment plans, aggregates, forecasts and the settlement
// operations that close a cycle. Everything here is a pure function of its
// inputs; mutating operations return a fresh snapshot.
package engine

import "financaspro/internal/core"

// ResolveInvoiceDate maps a purchase to the due date of the invoice cycle it
// belongs to. A purchase made after the card's closing day falls into the
// next cycle; monthOffset advances additional whole cycles (installment k
// uses offset k). The result is always dueDay of the resolved month, with
// month and day overflow rolling forward by calendar arithmetic; dueDay 31
// in a 30-day month lands on the 1st of the following month, never a
// clamped day.
func ResolveInvoiceDate(purchase core.Date, closingDay, dueDay, monthOffset int) core.Date {
	offset := monthOffset
	if purchase.Day() > closingDay {
		offset++
	}
	return core.NewDate(purchase.Year(), purchase.MonthInt()+offset, dueDay)
}
