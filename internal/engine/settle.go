package engine

import (
	"fmt"

	"github.com/shopspring/decimal"

	"financaspro/internal/core"
)

// PayInvoice settles a card's pending invoice for one month. It returns a
// new snapshot with a synthetic invoice-payment transaction dated today and
// every unpaid purchase line of that card inside monthKey flipped to paid.
// Flipping IsPaid is what removes the invoice from the pending grouping.
func PayInvoice(snap *core.Snapshot, cardID core.ID, amount core.Money, monthKey core.MonthKey, today core.Date) (*core.Snapshot, error) {
	card, ok := snap.Card(cardID)
	if !ok {
		return nil, fmt.Errorf("card %s: %w", cardID, ErrNotFound)
	}
	if amount.Cents <= 0 {
		return nil, validationErr(core.ErrInvalidAmount)
	}
	if _, err := core.ParseMonthKey(monthKey.String()); err != nil {
		return nil, validationErr(err)
	}

	out := snap.Clone()
	for i, t := range out.Transactions {
		if t.CardID.Equal(cardID) && t.Method == core.MethodCreditCard && !t.IsPaid && monthKey.Contains(t.Date) {
			out.Transactions[i].IsPaid = true
		}
	}
	payment := core.Transaction{
		ID:               core.NewID(),
		Description:      fmt.Sprintf("Fatura %s - %s", card.Name, monthKey),
		Value:            amount,
		Type:             core.TypeExpense,
		Category:         core.CategoryCardInvoice,
		Date:             today,
		Method:           core.MethodPix,
		CardID:           card.ID,
		IsInvoicePayment: true,
	}
	out.Transactions = append([]core.Transaction{payment}, out.Transactions...)
	return out, nil
}

// PayFixedBill records a bill payment for the viewing month: a new expense
// transaction valued at the bill's amount plus the bill's LastPaidMonth
// cursor moved to that month. A second call in the same month duplicates
// the expense line; the cursor is simply re-set. Guarding against that is
// the caller's choice, not the engine's.
func PayFixedBill(snap *core.Snapshot, billID core.ID, month core.MonthKey, today core.Date) (*core.Snapshot, error) {
	bill, ok := snap.Bill(billID)
	if !ok {
		return nil, fmt.Errorf("bill %s: %w", billID, ErrNotFound)
	}
	if _, err := core.ParseMonthKey(month.String()); err != nil {
		return nil, validationErr(err)
	}

	out := snap.Clone()
	payment := core.Transaction{
		ID:          core.NewID(),
		Description: "Pgto. " + bill.Name,
		Value:       bill.Value,
		Type:        core.TypeExpense,
		Category:    bill.Category,
		Date:        today,
		Method:      core.MethodBoleto,
		IsPaid:      true,
	}
	out.Transactions = append([]core.Transaction{payment}, out.Transactions...)
	for i, b := range out.FixedBills {
		if b.ID.Equal(billID) {
			out.FixedBills[i].LastPaidMonth = month
		}
	}
	return out, nil
}

// SetGoal replaces the monthly spending ceiling for a category. Raw input
// comes straight from a form field: malformed numbers and negatives coerce
// to zero instead of being rejected.
func SetGoal(snap *core.Snapshot, category, raw string) *core.Snapshot {
	value := core.Money{}
	if d, err := decimal.NewFromString(raw); err == nil && !d.IsNegative() {
		value = core.FromDecimal(d)
	}
	out := snap.Clone()
	if out.Goals == nil {
		out.Goals = map[string]core.Money{}
	}
	out.Goals[category] = value
	return out
}
