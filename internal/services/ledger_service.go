// Package services orchestrates ledger operations across the calculation
// engine, SQLite storage and AMQP.
package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"financaspro/internal/amqp"
	"financaspro/internal/core"
	"financaspro/internal/engine"
)

// SnapshotStore persists whole ledger snapshots.
type SnapshotStore interface {
	Load(ctx context.Context) (*core.Snapshot, error)
	Save(ctx context.Context, snap *core.Snapshot) error
	Close() error
}

// EventPublisher notifies downstream consumers after a mutation lands.
type EventPublisher interface {
	PublishLedgerEvent(ctx context.Context, event *amqp.LedgerEvent) error
	Close() error
}

// LedgerService owns the in-memory snapshot and serializes every mutation.
// Writes go store-first: only after SQLite accepts the replacement does the
// in-memory snapshot advance and an event go out. A failed publish is logged
// and swallowed; the ledger itself is already safe.
type LedgerService struct {
	store     SnapshotStore
	publisher EventPublisher
	now       func() core.Date

	mu      sync.RWMutex
	snap    *core.Snapshot
	version int64
}

func NewLedgerService(ctx context.Context, store SnapshotStore, publisher EventPublisher) (*LedgerService, error) {
	snap, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	return &LedgerService{
		store:     store,
		publisher: publisher,
		now:       core.Today,
		snap:      snap,
		version:   1,
	}, nil
}

// Version increases by one on every committed mutation. The HTTP layer keys
// its response cache on it.
func (s *LedgerService) Version() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// Snapshot returns a deep copy of the current ledger state.
func (s *LedgerService) Snapshot() *core.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snap.Clone()
}

// CardView bundles a card with its derived numbers.
type CardView struct {
	Card     core.CreditCard  `json:"card"`
	Stats    engine.CardStats `json:"stats"`
	Invoices []engine.Invoice `json:"invoices"`
}

// MonthView is everything the dashboard needs for one viewing month.
type MonthView struct {
	Summary  engine.Summary        `json:"summary"`
	Forecast engine.Forecast       `json:"forecast"`
	Goals    []engine.GoalProgress `json:"goals"`
	Cards    []CardView            `json:"cards"`
}

// View computes the aggregate dashboard for a month.
func (s *LedgerService) View(month core.MonthKey) (MonthView, error) {
	if _, err := core.ParseMonthKey(month.String()); err != nil {
		return MonthView{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	view := MonthView{
		Summary:  engine.Summarize(s.snap, month),
		Forecast: engine.Project(s.snap, month, s.now()),
		Goals:    engine.Goals(s.snap, month),
	}
	for _, card := range s.snap.Cards {
		view.Cards = append(view.Cards, CardView{
			Card:     card,
			Stats:    engine.Stats(s.snap, card.ID),
			Invoices: engine.Invoices(s.snap, card.ID),
		})
	}
	return view, nil
}

// commit persists the replacement snapshot and, on success, advances the
// in-memory state and emits one event per entity id, so a mutation touching
// several entities reaches downstream consumers once per entity. Callers
// must hold s.mu.
func (s *LedgerService) commit(ctx context.Context, next *core.Snapshot, kind string, month core.MonthKey, entityIDs ...core.ID) error {
	if err := s.store.Save(ctx, next); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	s.snap = next
	s.version++

	if s.publisher == nil {
		return nil
	}
	if len(entityIDs) == 0 {
		entityIDs = append(entityIDs, "")
	}
	for _, id := range entityIDs {
		event := amqp.NewLedgerEvent(kind, id, month, s.version)
		if err := s.publisher.PublishLedgerEvent(ctx, event); err != nil {
			slog.ErrorContext(ctx, "Failed to publish ledger event",
				"kind", kind, "entity_id", id, "error", err)
		}
	}
	return nil
}

// CreateTransactions expands the input into one or more transactions and
// commits them. Credit-card inputs split into installments dated on the
// resolved invoice due dates.
func (s *LedgerService) CreateTransactions(ctx context.Context, in engine.TransactionInput) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	txs, err := engine.NewTransactions(s.snap, in)
	if err != nil {
		return nil, err
	}
	next := engine.AddTransactions(s.snap, txs)
	month := core.MonthKey("")
	if len(txs) > 0 {
		month = txs[0].Date.Month()
	}
	// one created event per installment, so the mirror sees every line
	ids := make([]core.ID, len(txs))
	for i, tx := range txs {
		ids[i] = tx.ID
	}
	if err := s.commit(ctx, next, amqp.EventTransactionCreated, month, ids...); err != nil {
		return nil, err
	}
	return txs, nil
}

func (s *LedgerService) UpdateTransaction(ctx context.Context, tx core.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.UpdateTransaction(s.snap, tx)
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventTransactionUpdated, tx.Date.Month(), tx.ID)
}

func (s *LedgerService) DeleteTransaction(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.DeleteTransaction(s.snap, id)
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventTransactionDeleted, "", id)
}

// SaveCard creates or updates a credit card and returns it with its id set.
func (s *LedgerService) SaveCard(ctx context.Context, card core.CreditCard) (core.CreditCard, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, saved, err := engine.UpsertCard(s.snap, card)
	if err != nil {
		return core.CreditCard{}, err
	}
	if err := s.commit(ctx, next, amqp.EventSnapshotChanged, "", saved.ID); err != nil {
		return core.CreditCard{}, err
	}
	return saved, nil
}

func (s *LedgerService) DeleteCard(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.DeleteCard(s.snap, id)
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventSnapshotChanged, "", id)
}

// SaveFixedBill creates or updates a fixed bill and returns it with its id set.
func (s *LedgerService) SaveFixedBill(ctx context.Context, bill core.FixedBill) (core.FixedBill, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, saved, err := engine.UpsertFixedBill(s.snap, bill)
	if err != nil {
		return core.FixedBill{}, err
	}
	if err := s.commit(ctx, next, amqp.EventSnapshotChanged, "", saved.ID); err != nil {
		return core.FixedBill{}, err
	}
	return saved, nil
}

func (s *LedgerService) DeleteFixedBill(ctx context.Context, id core.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.DeleteFixedBill(s.snap, id)
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventSnapshotChanged, "", id)
}

// PayInvoice settles a card's invoice for the given month.
func (s *LedgerService) PayInvoice(ctx context.Context, cardID core.ID, amount core.Money, month core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.PayInvoice(s.snap, cardID, amount, month, s.now())
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventInvoicePaid, month, cardID)
}

// PayFixedBill records a bill payment for the given month.
func (s *LedgerService) PayFixedBill(ctx context.Context, billID core.ID, month core.MonthKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.PayFixedBill(s.snap, billID, month, s.now())
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventBillPaid, month, billID)
}

// SetGoal sets the monthly ceiling for a category. Raw form input; never fails
// validation, only storage.
func (s *LedgerService) SetGoal(ctx context.Context, category, raw string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := engine.SetGoal(s.snap, category, raw)
	return s.commit(ctx, next, amqp.EventSnapshotChanged, "")
}

func (s *LedgerService) SetInitialBalance(ctx context.Context, balance core.Money) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := engine.SetInitialBalance(s.snap, balance)
	return s.commit(ctx, next, amqp.EventSnapshotChanged, "")
}

func (s *LedgerService) AddCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next, err := engine.AddCategory(s.snap, name)
	if err != nil {
		return err
	}
	return s.commit(ctx, next, amqp.EventSnapshotChanged, "")
}

func (s *LedgerService) RemoveCategory(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := engine.RemoveCategory(s.snap, name)
	return s.commit(ctx, next, amqp.EventSnapshotChanged, "")
}

// ExportJSON serializes the full ledger for backup downloads.
func (s *LedgerService) ExportJSON() ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return json.MarshalIndent(s.snap, "", "  ")
}

// ImportJSON replaces the whole ledger with a previously exported backup.
// The payload must actually be a ledger backup: a well-formed but unrelated
// JSON object would otherwise wipe the ledger, so an object without a
// transactions key is rejected, as is any record that fails validation.
func (s *LedgerService) ImportJSON(ctx context.Context, data []byte) error {
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(data, &keys); err != nil {
		return fmt.Errorf("parse backup: %w", err)
	}
	if _, ok := keys["transactions"]; !ok {
		return fmt.Errorf("%w: not a ledger backup, missing transactions", engine.ErrValidation)
	}

	var snap core.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return fmt.Errorf("parse backup: %w", err)
	}
	for i, tx := range snap.Transactions {
		if err := tx.Validate(); err != nil {
			return fmt.Errorf("%w: transaction %d: %v", engine.ErrValidation, i, err)
		}
	}
	for _, card := range snap.Cards {
		if err := card.Validate(); err != nil {
			return fmt.Errorf("%w: card %q: %v", engine.ErrValidation, card.Name, err)
		}
	}
	for _, bill := range snap.FixedBills {
		if err := bill.Validate(); err != nil {
			return fmt.Errorf("%w: fixed bill %q: %v", engine.ErrValidation, bill.Name, err)
		}
	}
	if len(snap.Categories) == 0 {
		snap.Categories = append([]string(nil), core.DefaultCategories...)
	}
	if snap.Goals == nil {
		snap.Goals = map[string]core.Money{}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.commit(ctx, &snap, amqp.EventSnapshotChanged, "")
}

// Close releases storage and AMQP resources.
func (s *LedgerService) Close() error {
	var errs []error

	if s.store != nil {
		if err := s.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("close ledger service: %v", errs)
	}
	return nil
}
