package services

import (
	"context"
	"errors"
	"testing"

	"financaspro/internal/amqp"
	"financaspro/internal/core"
	"financaspro/internal/engine"
)

type fakeStore struct {
	snap    *core.Snapshot
	saves   int
	failing bool
}

func (f *fakeStore) Load(ctx context.Context) (*core.Snapshot, error) {
	if f.snap == nil {
		return core.NewSnapshot(), nil
	}
	return f.snap.Clone(), nil
}

func (f *fakeStore) Save(ctx context.Context, snap *core.Snapshot) error {
	if f.failing {
		return errors.New("disk full")
	}
	f.snap = snap.Clone()
	f.saves++
	return nil
}

func (f *fakeStore) Close() error { return nil }

type fakePublisher struct {
	events  []*amqp.LedgerEvent
	failing bool
}

func (f *fakePublisher) PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error {
	if f.failing {
		return errors.New("broker down")
	}
	f.events = append(f.events, event)
	return nil
}

func (f *fakePublisher) Close() error { return nil }

func newTestService(t *testing.T) (*LedgerService, *fakeStore, *fakePublisher) {
	t.Helper()
	store := &fakeStore{}
	pub := &fakePublisher{}
	svc, err := NewLedgerService(context.Background(), store, pub)
	if err != nil {
		t.Fatalf("NewLedgerService() error = %v", err)
	}
	svc.now = func() core.Date { return core.NewDate(2024, 3, 20) }
	return svc, store, pub
}

func mustDate(t *testing.T, s string) core.Date {
	t.Helper()
	d, err := core.ParseDate(s)
	if err != nil {
		t.Fatalf("ParseDate(%q) error = %v", s, err)
	}
	return d
}

func TestCreateTransactionsCommitsAndPublishes(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()

	txs, err := svc.CreateTransactions(ctx, engine.TransactionInput{
		Description: "Mercado",
		Value:       core.Money{Cents: 25_000},
		Type:        core.TypeExpense,
		Category:    "Alimentação",
		Date:        mustDate(t, "2024-03-10"),
		Method:      core.MethodPix,
	})
	if err != nil {
		t.Fatalf("CreateTransactions() error = %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("got %d transactions, want 1", len(txs))
	}
	if store.saves != 1 {
		t.Errorf("store saves = %d, want 1", store.saves)
	}
	if svc.Version() != 2 {
		t.Errorf("Version() = %d, want 2", svc.Version())
	}
	if len(pub.events) != 1 || pub.events[0].Kind != amqp.EventTransactionCreated {
		t.Errorf("events = %+v", pub.events)
	}
	if pub.events[0].Month != "2024-03" {
		t.Errorf("event month = %s", pub.events[0].Month)
	}
}

func TestCreateTransactionsInstallmentsUseCardCycle(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	card, err := svc.SaveCard(ctx, core.CreditCard{
		Name: "Nubank", Limit: core.Money{Cents: 500_000}, ClosingDay: 5, DueDay: 15,
	})
	if err != nil {
		t.Fatalf("SaveCard() error = %v", err)
	}

	txs, err := svc.CreateTransactions(ctx, engine.TransactionInput{
		Description:  "Notebook",
		Value:        core.Money{Cents: 30_000},
		Type:         core.TypeExpense,
		Category:     "Extra",
		Date:         mustDate(t, "2024-03-10"),
		Method:       core.MethodCreditCard,
		CardID:       card.ID,
		Installments: 3,
	})
	if err != nil {
		t.Fatalf("CreateTransactions() error = %v", err)
	}
	if len(txs) != 3 {
		t.Fatalf("got %d installments, want 3", len(txs))
	}
	// purchase on the 10th is past closing day 5, so the first due date
	// lands in the following month
	if got := txs[0].Date.String(); got != "2024-04-15" {
		t.Errorf("first installment date = %s, want 2024-04-15", got)
	}

	snap := svc.Snapshot()
	if len(snap.Transactions) != 3 {
		t.Errorf("snapshot has %d transactions, want 3", len(snap.Transactions))
	}
}

func TestInstallmentsPublishOneCreatedEventEach(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	card, err := svc.SaveCard(ctx, core.CreditCard{
		Name: "Nubank", Limit: core.Money{Cents: 500_000}, ClosingDay: 5, DueDay: 15,
	})
	if err != nil {
		t.Fatalf("SaveCard() error = %v", err)
	}

	txs, err := svc.CreateTransactions(ctx, engine.TransactionInput{
		Description:  "Notebook",
		Value:        core.Money{Cents: 30_000},
		Type:         core.TypeExpense,
		Category:     "Extra",
		Date:         mustDate(t, "2024-03-10"),
		Method:       core.MethodCreditCard,
		CardID:       card.ID,
		Installments: 3,
	})
	if err != nil {
		t.Fatalf("CreateTransactions() error = %v", err)
	}

	var created []*amqp.LedgerEvent
	for _, e := range pub.events {
		if e.Kind == amqp.EventTransactionCreated {
			created = append(created, e)
		}
	}
	if len(created) != len(txs) {
		t.Fatalf("got %d created events for %d installments", len(created), len(txs))
	}
	for i, tx := range txs {
		if !created[i].EntityID.Equal(tx.ID) {
			t.Errorf("event %d entity id = %s, want %s", i, created[i].EntityID, tx.ID)
		}
	}
}

func TestStoreFailureLeavesStateUntouched(t *testing.T) {
	svc, store, pub := newTestService(t)
	ctx := context.Background()
	store.failing = true

	_, err := svc.CreateTransactions(ctx, engine.TransactionInput{
		Description: "Mercado",
		Value:       core.Money{Cents: 1_000},
		Type:        core.TypeExpense,
		Category:    "Alimentação",
		Date:        mustDate(t, "2024-03-10"),
		Method:      core.MethodPix,
	})
	if err == nil {
		t.Fatal("expected error when store fails")
	}
	if svc.Version() != 1 {
		t.Errorf("Version() = %d, want 1 after failed save", svc.Version())
	}
	if len(svc.Snapshot().Transactions) != 0 {
		t.Error("snapshot should be untouched after failed save")
	}
	if len(pub.events) != 0 {
		t.Error("no event should go out after failed save")
	}
}

func TestPublishFailureDoesNotFailRequest(t *testing.T) {
	svc, _, pub := newTestService(t)
	pub.failing = true

	err := svc.SetInitialBalance(context.Background(), core.Money{Cents: 100_000})
	if err != nil {
		t.Fatalf("SetInitialBalance() error = %v, want nil despite publish failure", err)
	}
	if svc.Snapshot().InitialBalance.Cents != 100_000 {
		t.Error("mutation should land despite publish failure")
	}
}

func TestPayInvoiceFlow(t *testing.T) {
	svc, _, pub := newTestService(t)
	ctx := context.Background()

	card, err := svc.SaveCard(ctx, core.CreditCard{
		Name: "Visa", Limit: core.Money{Cents: 200_000}, ClosingDay: 5, DueDay: 15,
	})
	if err != nil {
		t.Fatalf("SaveCard() error = %v", err)
	}
	if _, err := svc.CreateTransactions(ctx, engine.TransactionInput{
		Description:  "Tênis",
		Value:        core.Money{Cents: 30_000},
		Type:         core.TypeExpense,
		Category:     "Extra",
		Date:         mustDate(t, "2024-03-01"),
		Method:       core.MethodCreditCard,
		CardID:       card.ID,
		Installments: 1,
	}); err != nil {
		t.Fatalf("CreateTransactions() error = %v", err)
	}

	// purchase on the 1st closes in the same month, due 2024-03-15
	if err := svc.PayInvoice(ctx, card.ID, core.Money{Cents: 30_000}, "2024-03"); err != nil {
		t.Fatalf("PayInvoice() error = %v", err)
	}

	view, err := svc.View("2024-03")
	if err != nil {
		t.Fatalf("View() error = %v", err)
	}
	if len(view.Cards) != 1 {
		t.Fatalf("got %d card views, want 1", len(view.Cards))
	}
	if got := view.Cards[0].Stats.Spent.Cents; got != 0 {
		t.Errorf("pending spent after payment = %d, want 0", got)
	}
	if len(view.Cards[0].Invoices) != 0 {
		t.Errorf("pending invoices after payment = %d, want 0", len(view.Cards[0].Invoices))
	}

	last := pub.events[len(pub.events)-1]
	if last.Kind != amqp.EventInvoicePaid || last.Month != "2024-03" {
		t.Errorf("last event = %+v", last)
	}
}

func TestPayFixedBillAdvancesCursor(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	bill, err := svc.SaveFixedBill(ctx, core.FixedBill{
		Name: "Aluguel", Value: core.Money{Cents: 100_000}, DueDay: 5,
	})
	if err != nil {
		t.Fatalf("SaveFixedBill() error = %v", err)
	}
	if err := svc.PayFixedBill(ctx, bill.ID, "2024-03"); err != nil {
		t.Fatalf("PayFixedBill() error = %v", err)
	}

	snap := svc.Snapshot()
	saved, ok := snap.Bill(bill.ID)
	if !ok || saved.LastPaidMonth != "2024-03" {
		t.Errorf("bill cursor = %+v", saved)
	}
	if len(snap.Transactions) != 1 || snap.Transactions[0].Description != "Pgto. Aluguel" {
		t.Errorf("payment transaction = %+v", snap.Transactions)
	}
}

func TestViewRejectsBadMonth(t *testing.T) {
	svc, _, _ := newTestService(t)
	if _, err := svc.View("2024-3"); err == nil {
		t.Error("View() should reject a malformed month key")
	}
}

func TestNotFoundErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.DeleteTransaction(ctx, "ghost"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("DeleteTransaction() error = %v, want ErrNotFound", err)
	}
	if err := svc.PayInvoice(ctx, "ghost", core.Money{Cents: 1}, "2024-03"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("PayInvoice() error = %v, want ErrNotFound", err)
	}
	if err := svc.PayFixedBill(ctx, "ghost", "2024-03"); !errors.Is(err, engine.ErrNotFound) {
		t.Errorf("PayFixedBill() error = %v, want ErrNotFound", err)
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SetInitialBalance(ctx, core.Money{Cents: 55_000}); err != nil {
		t.Fatalf("SetInitialBalance() error = %v", err)
	}
	if err := svc.SetGoal(ctx, "Lazer", "300.50"); err != nil {
		t.Fatalf("SetGoal() error = %v", err)
	}

	data, err := svc.ExportJSON()
	if err != nil {
		t.Fatalf("ExportJSON() error = %v", err)
	}

	other, _, _ := newTestService(t)
	if err := other.ImportJSON(ctx, data); err != nil {
		t.Fatalf("ImportJSON() error = %v", err)
	}

	snap := other.Snapshot()
	if snap.InitialBalance.Cents != 55_000 {
		t.Errorf("InitialBalance = %d", snap.InitialBalance.Cents)
	}
	if snap.Goals["Lazer"].Cents != 30_050 {
		t.Errorf("goal = %d", snap.Goals["Lazer"].Cents)
	}
}

func TestImportRejectsGarbage(t *testing.T) {
	svc, _, _ := newTestService(t)
	if err := svc.ImportJSON(context.Background(), []byte("not json")); err == nil {
		t.Error("ImportJSON() should reject malformed payloads")
	}
}

func TestImportRejectsNonBackupObject(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	if err := svc.SetInitialBalance(ctx, core.Money{Cents: 100_000}); err != nil {
		t.Fatalf("SetInitialBalance() error = %v", err)
	}
	if _, err := svc.CreateTransactions(ctx, engine.TransactionInput{
		Description: "Mercado",
		Value:       core.Money{Cents: 1_000},
		Type:        core.TypeExpense,
		Category:    "Alimentação",
		Date:        mustDate(t, "2024-03-10"),
		Method:      core.MethodPix,
	}); err != nil {
		t.Fatalf("CreateTransactions() error = %v", err)
	}

	// a well-formed object that is not a ledger backup must not wipe anything
	if err := svc.ImportJSON(ctx, []byte(`{}`)); !errors.Is(err, engine.ErrValidation) {
		t.Errorf("ImportJSON({}) error = %v, want ErrValidation", err)
	}

	snap := svc.Snapshot()
	if snap.InitialBalance.Cents != 100_000 || len(snap.Transactions) != 1 {
		t.Errorf("ledger changed after rejected import: balance = %d, transactions = %d",
			snap.InitialBalance.Cents, len(snap.Transactions))
	}
}

func TestImportRejectsInvalidRecords(t *testing.T) {
	svc, _, _ := newTestService(t)

	payload := `{
		"initialBalance": 10,
		"transactions": [
			{"id": "t1", "description": "", "value": 5, "type": "expense", "date": "2024-03-10", "method": "Pix"}
		]
	}`
	if err := svc.ImportJSON(context.Background(), []byte(payload)); !errors.Is(err, engine.ErrValidation) {
		t.Errorf("ImportJSON() error = %v, want ErrValidation for a blank description", err)
	}
}

func TestSaveCardValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	_, err := svc.SaveCard(context.Background(), core.CreditCard{Name: "X", ClosingDay: 0, DueDay: 15})
	if !errors.Is(err, engine.ErrValidation) {
		t.Errorf("SaveCard() error = %v, want ErrValidation", err)
	}
}
