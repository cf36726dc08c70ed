// Package storage persists ledger snapshots in SQLite. The engine treats
// the ledger as one value, so the repository follows suit: Load reads the
// whole snapshot, Save replaces it atomically in a single transaction.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"financaspro/internal/core"

	_ "modernc.org/sqlite"
)

const initialBalanceKey = "initial_balance_cents"

type SQLiteRepository struct {
	db *sql.DB
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Load reads the full ledger snapshot. A freshly migrated database yields a
// default snapshot seeded with the standard categories.
func (r *SQLiteRepository) Load(ctx context.Context) (*core.Snapshot, error) {
	snap := core.NewSnapshot()

	var raw string
	err := r.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, initialBalanceKey).Scan(&raw)
	switch {
	case err == sql.ErrNoRows:
		// first run: keep the seeded defaults
		return snap, nil
	case err != nil:
		return nil, fmt.Errorf("load settings: %w", err)
	}
	cents, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("parse initial balance %q: %w", raw, err)
	}
	snap.InitialBalance = core.Money{Cents: cents}

	if snap.Transactions, err = r.loadTransactions(ctx); err != nil {
		return nil, err
	}
	if snap.Cards, err = r.loadCards(ctx); err != nil {
		return nil, err
	}
	if snap.FixedBills, err = r.loadBills(ctx); err != nil {
		return nil, err
	}
	if snap.Goals, err = r.loadGoals(ctx); err != nil {
		return nil, err
	}
	categories, err := r.loadCategories(ctx)
	if err != nil {
		return nil, err
	}
	if len(categories) > 0 {
		snap.Categories = categories
	}
	return snap, nil
}

func (r *SQLiteRepository) loadTransactions(ctx context.Context) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, description, value_cents, type, category, date, method,
		       card_id, installment_number, is_paid, is_invoice_payment
		FROM transactions ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	defer rows.Close()

	var out []core.Transaction
	for rows.Next() {
		var t core.Transaction
		var cents int64
		var dateStr string
		var cardID, installment sql.NullString
		if err := rows.Scan(&t.ID, &t.Description, &cents, &t.Type, &t.Category,
			&dateStr, &t.Method, &cardID, &installment, &t.IsPaid, &t.IsInvoicePayment); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t.Value = core.Money{Cents: cents}
		if t.Date, err = core.ParseDate(dateStr); err != nil {
			return nil, fmt.Errorf("transaction %s has bad date %q: %w", t.ID, dateStr, err)
		}
		t.CardID = core.ID(cardID.String)
		t.InstallmentNumber = installment.String
		out = append(out, t)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCards(ctx context.Context) ([]core.CreditCard, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, limit_cents, closing_day, due_day FROM cards ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load cards: %w", err)
	}
	defer rows.Close()

	var out []core.CreditCard
	for rows.Next() {
		var c core.CreditCard
		var cents int64
		if err := rows.Scan(&c.ID, &c.Name, &cents, &c.ClosingDay, &c.DueDay); err != nil {
			return nil, fmt.Errorf("scan card: %w", err)
		}
		c.Limit = core.Money{Cents: cents}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadBills(ctx context.Context) ([]core.FixedBill, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, value_cents, due_day, category, last_paid_month
		FROM fixed_bills ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load fixed bills: %w", err)
	}
	defer rows.Close()

	var out []core.FixedBill
	for rows.Next() {
		var b core.FixedBill
		var cents int64
		var lastPaid sql.NullString
		if err := rows.Scan(&b.ID, &b.Name, &cents, &b.DueDay, &b.Category, &lastPaid); err != nil {
			return nil, fmt.Errorf("scan fixed bill: %w", err)
		}
		b.Value = core.Money{Cents: cents}
		b.LastPaidMonth = core.MonthKey(lastPaid.String)
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadGoals(ctx context.Context) (map[string]core.Money, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT category, limit_cents FROM goals`)
	if err != nil {
		return nil, fmt.Errorf("load goals: %w", err)
	}
	defer rows.Close()

	out := map[string]core.Money{}
	for rows.Next() {
		var category string
		var cents int64
		if err := rows.Scan(&category, &cents); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		out[category] = core.Money{Cents: cents}
	}
	return out, rows.Err()
}

func (r *SQLiteRepository) loadCategories(ctx context.Context) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT name FROM categories ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, name)
	}
	return out, rows.Err()
}

// Save commits a proposed snapshot, replacing the stored one atomically.
// Either the whole replacement lands or none of it does.
func (r *SQLiteRepository) Save(ctx context.Context, snap *core.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	for _, table := range []string{"transactions", "cards", "fixed_bills", "goals", "categories"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?)
		 ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		initialBalanceKey, strconv.FormatInt(snap.InitialBalance.Cents, 10)); err != nil {
		return fmt.Errorf("save initial balance: %w", err)
	}

	for i, t := range snap.Transactions {
		var cardID, installment any
		if !t.CardID.IsZero() {
			cardID = t.CardID.String()
		}
		if t.InstallmentNumber != "" {
			installment = t.InstallmentNumber
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO transactions
				(id, description, value_cents, type, category, date, method,
				 card_id, installment_number, is_paid, is_invoice_payment, position)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			t.ID, t.Description, t.Value.Cents, t.Type, t.Category, t.Date.String(),
			t.Method, cardID, installment, t.IsPaid, t.IsInvoicePayment, i); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}

	for i, c := range snap.Cards {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO cards (id, name, limit_cents, closing_day, due_day, position)
			VALUES (?, ?, ?, ?, ?, ?)`,
			c.ID, c.Name, c.Limit.Cents, c.ClosingDay, c.DueDay, i); err != nil {
			return fmt.Errorf("save card %s: %w", c.ID, err)
		}
	}

	for i, b := range snap.FixedBills {
		var lastPaid any
		if !b.LastPaidMonth.IsZero() {
			lastPaid = b.LastPaidMonth.String()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO fixed_bills (id, name, value_cents, due_day, category, last_paid_month, position)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			b.ID, b.Name, b.Value.Cents, b.DueDay, b.Category, lastPaid, i); err != nil {
			return fmt.Errorf("save fixed bill %s: %w", b.ID, err)
		}
	}

	for category, m := range snap.Goals {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO goals (category, limit_cents) VALUES (?, ?)`, category, m.Cents); err != nil {
			return fmt.Errorf("save goal %s: %w", category, err)
		}
	}

	for i, name := range snap.Categories {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO categories (name, position) VALUES (?, ?)`, name, i); err != nil {
			return fmt.Errorf("save category %s: %w", name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}

	slog.DebugContext(ctx, "Snapshot saved",
		"transactions", len(snap.Transactions),
		"cards", len(snap.Cards),
		"fixed_bills", len(snap.FixedBills))
	return nil
}
