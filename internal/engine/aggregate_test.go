package engine

import (
	"testing"

	"financaspro/internal/core"
)

func tx(id core.ID, typ string, cents int64, dateStr, method, category string) core.Transaction {
	d, _ := core.ParseDate(dateStr)
	return core.Transaction{
		ID: id, Description: string(id), Value: core.Money{Cents: cents},
		Type: typ, Category: category, Date: d, Method: method,
	}
}

func TestSummarizeAccountBalance(t *testing.T) {
	snap := testSnapshot()
	snap.InitialBalance = core.Money{Cents: 100_000}

	salary := tx("t1", core.TypeIncome, 50_000, "2024-03-01", core.MethodPix, "Salário")
	groceries := tx("t2", core.TypeExpense, 20_000, "2024-03-02", core.MethodDebitCard, "Alimentação")
	cardBuy := tx("t3", core.TypeExpense, 30_000, "2024-03-10", core.MethodCreditCard, "Extra")
	cardBuy.CardID = "card-1"
	snap.Transactions = []core.Transaction{salary, groceries, cardBuy}

	sum := Summarize(snap, "2024-03")
	// unpaid card purchase must not move the account balance
	if want := int64(130_000); sum.AccountBalance.Cents != want {
		t.Errorf("AccountBalance = %d, want %d", sum.AccountBalance.Cents, want)
	}

	invoicePay := tx("t4", core.TypeExpense, 30_000, "2024-04-15", core.MethodPix, core.CategoryCardInvoice)
	invoicePay.IsInvoicePayment = true
	invoicePay.CardID = "card-1"
	snap.Transactions = append(snap.Transactions, invoicePay)

	sum = Summarize(snap, "2024-03")
	if want := int64(100_000); sum.AccountBalance.Cents != want {
		t.Errorf("AccountBalance after invoice payment = %d, want %d", sum.AccountBalance.Cents, want)
	}
}

func TestSummarizeMonthScoping(t *testing.T) {
	snap := core.NewSnapshot()
	snap.Transactions = []core.Transaction{
		tx("in-march", core.TypeIncome, 10_000, "2024-03-05", core.MethodPix, "Salário"),
		tx("out-march", core.TypeExpense, 4_000, "2024-03-07", core.MethodPix, "Lazer"),
		tx("out-april", core.TypeExpense, 9_000, "2024-04-01", core.MethodPix, "Lazer"),
	}

	sum := Summarize(snap, "2024-03")
	if len(sum.MonthTransactions) != 2 {
		t.Fatalf("got %d month transactions, want 2", len(sum.MonthTransactions))
	}
	if sum.MonthIncome.Cents != 10_000 {
		t.Errorf("MonthIncome = %d, want 10000", sum.MonthIncome.Cents)
	}
	if sum.MonthExpense.Cents != 4_000 {
		t.Errorf("MonthExpense = %d, want 4000", sum.MonthExpense.Cents)
	}
}

func TestSummarizeExcludesInvoicePaymentsFromMonthExpense(t *testing.T) {
	snap := core.NewSnapshot()
	purchase := tx("p", core.TypeExpense, 15_000, "2024-03-15", core.MethodCreditCard, "Extra")
	payment := tx("ip", core.TypeExpense, 15_000, "2024-03-20", core.MethodPix, core.CategoryCardInvoice)
	payment.IsInvoicePayment = true
	snap.Transactions = []core.Transaction{purchase, payment}

	sum := Summarize(snap, "2024-03")
	if sum.MonthExpense.Cents != 15_000 {
		t.Errorf("MonthExpense = %d, want 15000 (invoice payment excluded)", sum.MonthExpense.Cents)
	}
}

func TestSummarizeTotalInvested(t *testing.T) {
	snap := core.NewSnapshot()
	snap.Transactions = []core.Transaction{
		tx("a1", core.TypeExpense, 100_000, "2023-01-10", core.MethodPix, core.CategoryInvestment),
		tx("a2", core.TypeExpense, 50_000, "2024-02-10", core.MethodPix, core.CategoryInvestment),
		tx("w1", core.TypeIncome, 30_000, "2024-03-01", core.MethodPix, core.CategoryInvestment),
		tx("x", core.TypeExpense, 9_999, "2024-03-02", core.MethodPix, "Lazer"),
	}

	// lifetime balance, not month-scoped
	sum := Summarize(snap, "2024-03")
	if want := int64(120_000); sum.TotalInvested.Cents != want {
		t.Errorf("TotalInvested = %d, want %d", sum.TotalInvested.Cents, want)
	}
}

func TestCardStatsAndInvoices(t *testing.T) {
	snap := testSnapshot()
	mk := func(id core.ID, cents int64, dateStr string, paid bool) core.Transaction {
		c := tx(id, core.TypeExpense, cents, dateStr, core.MethodCreditCard, "Extra")
		c.CardID = "card-1"
		c.IsPaid = paid
		return c
	}
	payment := tx("pay", core.TypeExpense, 5_000, "2024-03-20", core.MethodPix, core.CategoryCardInvoice)
	payment.CardID = "card-1"
	payment.IsInvoicePayment = true

	snap.Transactions = []core.Transaction{
		mk("may", 7_000, "2024-05-15", false),
		mk("april-a", 10_000, "2024-04-15", false),
		mk("april-b", 2_500, "2024-04-15", false),
		mk("settled", 99_000, "2024-03-15", true),
		payment,
	}

	stats := Stats(snap, "card-1")
	if want := int64(19_500); stats.Spent.Cents != want {
		t.Errorf("Spent = %d, want %d (paid lines and invoice payments excluded)", stats.Spent.Cents, want)
	}
	if want := int64(500_000 - 19_500); stats.Available.Cents != want {
		t.Errorf("Available = %d, want %d", stats.Available.Cents, want)
	}

	invoices := Invoices(snap, "card-1")
	if len(invoices) != 2 {
		t.Fatalf("got %d invoices, want 2", len(invoices))
	}
	if invoices[0].Month != "2024-04" || invoices[1].Month != "2024-05" {
		t.Errorf("invoices out of order: %s, %s (oldest must be first)", invoices[0].Month, invoices[1].Month)
	}
	if invoices[0].Total.Cents != 12_500 {
		t.Errorf("april invoice total = %d, want 12500", invoices[0].Total.Cents)
	}
	if len(invoices[0].Items) != 2 {
		t.Errorf("april invoice has %d items, want 2", len(invoices[0].Items))
	}
}

func TestStatsDanglingCard(t *testing.T) {
	snap := core.NewSnapshot()
	orphan := tx("o", core.TypeExpense, 4_000, "2024-03-15", core.MethodCreditCard, "Extra")
	orphan.CardID = "deleted-card"
	snap.Transactions = []core.Transaction{orphan}

	stats := Stats(snap, "deleted-card")
	if stats.Spent.Cents != 4_000 {
		t.Errorf("Spent = %d, want 4000", stats.Spent.Cents)
	}
	if stats.Available.Cents != 0 {
		t.Errorf("Available = %d, want 0 for a missing card", stats.Available.Cents)
	}
}

func TestGoalsProgress(t *testing.T) {
	snap := core.NewSnapshot()
	snap.Goals["Lazer"] = core.Money{Cents: 50_000}
	snap.Transactions = []core.Transaction{
		tx("l1", core.TypeExpense, 12_000, "2024-03-03", core.MethodPix, "Lazer"),
		tx("l2", core.TypeExpense, 8_000, "2024-03-21", core.MethodPix, "Lazer"),
		tx("old", core.TypeExpense, 99_000, "2024-02-21", core.MethodPix, "Lazer"),
	}

	var leisure GoalProgress
	for _, g := range Goals(snap, "2024-03") {
		if g.Category == "Lazer" {
			leisure = g
		}
	}
	if leisure.Spent.Cents != 20_000 {
		t.Errorf("Spent = %d, want 20000 (month-scoped)", leisure.Spent.Cents)
	}
	if leisure.Goal.Cents != 50_000 {
		t.Errorf("Goal = %d, want 50000", leisure.Goal.Cents)
	}
}
