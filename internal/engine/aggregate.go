package engine

import (
	"sort"

	"financaspro/internal/core"
)

// Summary is the derived read-only view of a ledger for one viewing month.
type Summary struct {
	Month             core.MonthKey      `json:"month"`
	AccountBalance    core.Money         `json:"accountBalance"`
	TotalInvested     core.Money         `json:"totalInvested"`
	MonthIncome       core.Money         `json:"monthIncome"`
	MonthExpense      core.Money         `json:"monthExpense"`
	MonthTransactions []core.Transaction `json:"monthTransactions"`
}

// CardStats is the live exposure of one credit card.
type CardStats struct {
	Spent     core.Money `json:"spent"`
	Available core.Money `json:"available"`
}

// Invoice is one pending billing cycle of a card: the unpaid purchase lines
// sharing a YYYY-MM date prefix.
type Invoice struct {
	Month core.MonthKey      `json:"month"`
	Total core.Money         `json:"total"`
	Items []core.Transaction `json:"items"`
}

// Summarize computes the aggregate view for one viewing month.
//
// Account balance counts every income, but on the expense side only money
// that actually left the bank: non-card expenses and invoice-payment lines.
// An ordinary card purchase touches the balance only when its invoice is
// eventually paid.
//
// Month expense excludes invoice-payment lines: the underlying purchase
// lines already carry that spend, and counting the payment too would double
// it.
func Summarize(snap *core.Snapshot, month core.MonthKey) Summary {
	sum := Summary{Month: month, MonthTransactions: []core.Transaction{}}

	balance := snap.InitialBalance.Cents
	var invested int64
	for _, t := range snap.Transactions {
		switch t.Type {
		case core.TypeIncome:
			balance += t.Value.Cents
		case core.TypeExpense:
			if t.Method != core.MethodCreditCard || t.IsInvoicePayment {
				balance -= t.Value.Cents
			}
		}
		// lifetime figure: expense lines are contributions, income
		// lines are withdrawals
		if t.Category == core.CategoryInvestment {
			if t.Type == core.TypeExpense {
				invested += t.Value.Cents
			} else {
				invested -= t.Value.Cents
			}
		}
		if month.Contains(t.Date) {
			sum.MonthTransactions = append(sum.MonthTransactions, t)
			if t.Type == core.TypeIncome {
				sum.MonthIncome.Cents += t.Value.Cents
			} else if !t.IsInvoicePayment {
				sum.MonthExpense.Cents += t.Value.Cents
			}
		}
	}
	sum.AccountBalance = core.Money{Cents: balance}
	sum.TotalInvested = core.Money{Cents: invested}
	return sum
}

// pendingCardLines selects a card's expense lines still waiting on an
// invoice payment.
func pendingCardLines(snap *core.Snapshot, cardID core.ID) []core.Transaction {
	var out []core.Transaction
	for _, t := range snap.Transactions {
		if t.CardID.Equal(cardID) && t.Type == core.TypeExpense && !t.IsInvoicePayment && !t.IsPaid {
			out = append(out, t)
		}
	}
	return out
}

// Stats returns a card's open spend and remaining limit. A dangling card id
// yields zero available rather than an error; historical lines survive card
// deletion.
func Stats(snap *core.Snapshot, cardID core.ID) CardStats {
	var spent int64
	for _, t := range pendingCardLines(snap, cardID) {
		spent += t.Value.Cents
	}
	stats := CardStats{Spent: core.Money{Cents: spent}}
	if card, ok := snap.Card(cardID); ok {
		stats.Available = card.Limit.Sub(stats.Spent)
	}
	return stats
}

// Invoices partitions a card's pending lines into per-month invoices,
// oldest month first; the earliest unresolved invoice is the one due
// soonest.
func Invoices(snap *core.Snapshot, cardID core.ID) []Invoice {
	groups := map[core.MonthKey]*Invoice{}
	for _, t := range pendingCardLines(snap, cardID) {
		key := t.Date.Month()
		inv, ok := groups[key]
		if !ok {
			inv = &Invoice{Month: key}
			groups[key] = inv
		}
		inv.Total.Cents += t.Value.Cents
		inv.Items = append(inv.Items, t)
	}
	out := make([]Invoice, 0, len(groups))
	for _, inv := range groups {
		out = append(out, *inv)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month < out[j].Month })
	return out
}

// GoalProgress is one category's month spend measured against its ceiling.
type GoalProgress struct {
	Category string     `json:"category"`
	Goal     core.Money `json:"goal"`
	Spent    core.Money `json:"spent"`
}

// Goals reports month spend per category against the configured ceilings,
// in category-set order.
func Goals(snap *core.Snapshot, month core.MonthKey) []GoalProgress {
	spent := map[string]int64{}
	for _, t := range snap.Transactions {
		if t.Type == core.TypeExpense && month.Contains(t.Date) {
			spent[t.Category] += t.Value.Cents
		}
	}
	out := make([]GoalProgress, 0, len(snap.Categories))
	for _, cat := range snap.Categories {
		out = append(out, GoalProgress{
			Category: cat,
			Goal:     snap.Goals[cat],
			Spent:    core.Money{Cents: spent[cat]},
		})
	}
	return out
}
