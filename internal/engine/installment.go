package engine

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"financaspro/internal/core"
)

// MaxInstallments bounds a credit purchase split.
const MaxInstallments = 60

// TransactionInput is a user-entered ledger entry before allocation. For
// the credit-card channel, Installments and InterestPercent drive the split
// into dated invoice lines; other channels produce a single transaction.
type TransactionInput struct {
	Description     string
	Value           core.Money
	Type            string
	Category        string
	Date            core.Date
	Method          string
	CardID          core.ID
	Installments    int
	InterestPercent decimal.Decimal
}

// NewTransactions turns an input into the transactions it adds to the
// ledger.
//
// Credit-card expenses become N installment lines, one per invoice cycle,
// each dated by ResolveInvoiceDate with offset i. The total interest
// percentage applies once to the whole purchase; the last installment
// absorbs the rounding remainder so the lines always sum to exactly
// value * (1 + interest/100).
//
// Non-credit entries become a single transaction; a non-credit expense is
// considered paid the moment it is recorded.
func NewTransactions(snap *core.Snapshot, in TransactionInput) ([]core.Transaction, error) {
	if strings.TrimSpace(in.Description) == "" {
		return nil, validationErr(core.ErrEmptyDescription)
	}
	if in.Value.Cents <= 0 {
		return nil, validationErr(core.ErrInvalidAmount)
	}
	if in.Type != core.TypeIncome && in.Type != core.TypeExpense {
		return nil, validationErr(core.ErrInvalidType)
	}
	if in.Date.IsZero() {
		return nil, validationErr(core.ErrInvalidDate)
	}

	if in.Method != core.MethodCreditCard {
		return []core.Transaction{{
			ID:          core.NewID(),
			Description: in.Description,
			Value:       in.Value,
			Type:        in.Type,
			Category:    in.Category,
			Date:        in.Date,
			Method:      in.Method,
			IsPaid:      in.Type == core.TypeExpense,
		}}, nil
	}

	card, ok := snap.Card(in.CardID)
	if !ok {
		return nil, fmt.Errorf("card %s: %w", in.CardID, ErrNotFound)
	}
	n := in.Installments
	if n == 0 {
		n = 1
	}
	if n < 1 || n > MaxInstallments {
		return nil, validationErr(fmt.Errorf("installments must be between 1 and %d, got %d", MaxInstallments, n))
	}
	if in.InterestPercent.IsNegative() {
		return nil, validationErr(fmt.Errorf("negative interest rate"))
	}

	totalCents := decimal.NewFromInt(in.Value.Cents).
		Mul(decimal.NewFromInt(1).Add(in.InterestPercent.Div(decimal.NewFromInt(100)))).
		Round(0).IntPart()
	perCents := totalCents / int64(n)
	remainder := totalCents - perCents*int64(n)

	txs := make([]core.Transaction, 0, n)
	for i := 0; i < n; i++ {
		value := perCents
		if i == n-1 {
			value += remainder
		}
		tx := core.Transaction{
			ID:          core.NewID(),
			Description: in.Description,
			Value:       core.Money{Cents: value},
			Type:        core.TypeExpense,
			Category:    in.Category,
			Date:        ResolveInvoiceDate(in.Date, card.ClosingDay, card.DueDay, i),
			Method:      core.MethodCreditCard,
			CardID:      card.ID,
		}
		if n > 1 {
			tx.Description = fmt.Sprintf("%s (%d/%d)", in.Description, i+1, n)
			tx.InstallmentNumber = fmt.Sprintf("%d de %d", i+1, n)
		}
		txs = append(txs, tx)
	}
	return txs, nil
}
