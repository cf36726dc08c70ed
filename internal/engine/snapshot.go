package engine

import (
	"fmt"
	"strings"

	"financaspro/internal/core"
)

// Snapshot editing operations. Each takes the current snapshot and returns
// a replacement; the input is never modified. New transactions are
// prepended so the ledger naturally reads newest-first.

// AddTransactions inserts transactions produced by NewTransactions.
func AddTransactions(snap *core.Snapshot, txs []core.Transaction) *core.Snapshot {
	out := snap.Clone()
	out.Transactions = append(append([]core.Transaction(nil), txs...), out.Transactions...)
	return out
}

// UpdateTransaction replaces the transaction with the same id.
func UpdateTransaction(snap *core.Snapshot, tx core.Transaction) (*core.Snapshot, error) {
	if err := tx.Validate(); err != nil {
		return nil, validationErr(err)
	}
	out := snap.Clone()
	for i, t := range out.Transactions {
		if t.ID.Equal(tx.ID) {
			out.Transactions[i] = tx
			return out, nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", tx.ID, ErrNotFound)
}

// DeleteTransaction removes a transaction by id.
func DeleteTransaction(snap *core.Snapshot, id core.ID) (*core.Snapshot, error) {
	out := snap.Clone()
	for i, t := range out.Transactions {
		if t.ID.Equal(id) {
			out.Transactions = append(out.Transactions[:i], out.Transactions[i+1:]...)
			return out, nil
		}
	}
	return nil, fmt.Errorf("transaction %s: %w", id, ErrNotFound)
}

// UpsertCard creates a card (empty id) or replaces an existing one.
func UpsertCard(snap *core.Snapshot, card core.CreditCard) (*core.Snapshot, core.CreditCard, error) {
	if err := card.Validate(); err != nil {
		return nil, core.CreditCard{}, validationErr(err)
	}
	out := snap.Clone()
	if card.ID.IsZero() {
		card.ID = core.NewID()
		out.Cards = append(out.Cards, card)
		return out, card, nil
	}
	for i, c := range out.Cards {
		if c.ID.Equal(card.ID) {
			out.Cards[i] = card
			return out, card, nil
		}
	}
	return nil, core.CreditCard{}, fmt.Errorf("card %s: %w", card.ID, ErrNotFound)
}

// DeleteCard removes a card. Historical transactions keep their cardId;
// deletion does not cascade.
func DeleteCard(snap *core.Snapshot, id core.ID) (*core.Snapshot, error) {
	out := snap.Clone()
	for i, c := range out.Cards {
		if c.ID.Equal(id) {
			out.Cards = append(out.Cards[:i], out.Cards[i+1:]...)
			return out, nil
		}
	}
	return nil, fmt.Errorf("card %s: %w", id, ErrNotFound)
}

// UpsertFixedBill creates a bill (empty id) or replaces an existing one.
// Editing never touches LastPaidMonth: the recurrence cursor survives
// renames and value changes.
func UpsertFixedBill(snap *core.Snapshot, bill core.FixedBill) (*core.Snapshot, core.FixedBill, error) {
	if bill.Category == "" {
		bill.Category = core.CategoryFixedBills
	}
	if err := bill.Validate(); err != nil {
		return nil, core.FixedBill{}, validationErr(err)
	}
	out := snap.Clone()
	if bill.ID.IsZero() {
		bill.ID = core.NewID()
		bill.LastPaidMonth = ""
		out.FixedBills = append(out.FixedBills, bill)
		return out, bill, nil
	}
	for i, b := range out.FixedBills {
		if b.ID.Equal(bill.ID) {
			bill.LastPaidMonth = b.LastPaidMonth
			out.FixedBills[i] = bill
			return out, bill, nil
		}
	}
	return nil, core.FixedBill{}, fmt.Errorf("bill %s: %w", bill.ID, ErrNotFound)
}

// DeleteFixedBill removes a bill by id.
func DeleteFixedBill(snap *core.Snapshot, id core.ID) (*core.Snapshot, error) {
	out := snap.Clone()
	for i, b := range out.FixedBills {
		if b.ID.Equal(id) {
			out.FixedBills = append(out.FixedBills[:i], out.FixedBills[i+1:]...)
			return out, nil
		}
	}
	return nil, fmt.Errorf("bill %s: %w", id, ErrNotFound)
}

// SetInitialBalance replaces the ledger's starting balance.
func SetInitialBalance(snap *core.Snapshot, balance core.Money) *core.Snapshot {
	out := snap.Clone()
	out.InitialBalance = balance
	return out
}

// AddCategory appends a category name; duplicates are ignored.
func AddCategory(snap *core.Snapshot, name string) (*core.Snapshot, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, validationErr(fmt.Errorf("empty category name"))
	}
	out := snap.Clone()
	if !out.HasCategory(name) {
		out.Categories = append(out.Categories, name)
	}
	return out, nil
}

// RemoveCategory drops a category name and its goal ceiling. Transactions
// already recorded under it are left as they are.
func RemoveCategory(snap *core.Snapshot, name string) *core.Snapshot {
	out := snap.Clone()
	for i, c := range out.Categories {
		if c == name {
			out.Categories = append(out.Categories[:i], out.Categories[i+1:]...)
			break
		}
	}
	delete(out.Goals, name)
	return out
}
