package core

import (
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
)

// Transaction types.
const (
	TypeIncome  = "income"
	TypeExpense = "expense"
)

// Payment channels. MethodCreditCard is the one channel with special
// handling: its expenses only leave the account when the invoice is paid.
const (
	MethodCreditCard = "Cartão Crédito"
	MethodDebitCard  = "Cartão Débito"
	MethodPix        = "Pix"
	MethodCash       = "Dinheiro"
	MethodBoleto     = "Boleto"
	MethodTransfer   = "Transferência"
)

// Categories with engine-level meaning.
const (
	CategoryInvestment  = "Investimento"
	CategoryFixedBills  = "Contas Fixas"
	CategoryCardInvoice = "Fatura Cartão"
)

// DefaultCategories seeds a fresh ledger.
var DefaultCategories = []string{
	"Alimentação", "Moradia", "Transporte", "Saúde", "Lazer", "Educação",
	"Salário", CategoryInvestment, CategoryFixedBills, "Extra", CategoryCardInvoice,
}

// PaymentMethods lists the accepted payment channels.
var PaymentMethods = []string{
	MethodCreditCard, MethodDebitCard, MethodPix, MethodCash, MethodBoleto, MethodTransfer,
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidDate      = errors.New("invalid date")
	ErrInvalidMonth     = errors.New("invalid month key")
	ErrEmptyDescription = errors.New("empty description")
	ErrInvalidType      = errors.New("invalid transaction type")
	ErrInvalidDay       = errors.New("day must be between 1 and 31")
)

// ID identifies a ledger entity. Older exports carry numeric ids, so the
// canonical form is always the string rendering and every comparison goes
// through it.
type ID string

// NewID returns a fresh unique id.
func NewID() ID {
	return ID(uuid.NewString())
}

// Equal compares two ids by canonical string form.
func (id ID) Equal(other ID) bool {
	return string(id) == string(other)
}

// IsZero reports whether the id is absent.
func (id ID) IsZero() bool { return id == "" }

func (id ID) String() string { return string(id) }

// UnmarshalJSON accepts both string and numeric id representations.
func (id *ID) UnmarshalJSON(data []byte) error {
	s := string(data)
	if s == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		var v string
		if err := json.Unmarshal(data, &v); err != nil {
			return err
		}
		*id = ID(v)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*id = ID(n.String())
	return nil
}

// Transaction is a single financial event. It is immutable once created
// except for the IsPaid flag, which flips when a card invoice is settled.
//
// A transaction plays exactly one of three roles: a normal income/expense
// line, a credit-card purchase line (unpaid until its invoice settles), or
// a synthetic invoice-payment line. The role decides how every aggregate
// counts it.
type Transaction struct {
	ID                ID     `json:"id"`
	Description       string `json:"description"`
	Value             Money  `json:"value"`
	Type              string `json:"type"`
	Category          string `json:"category"`
	Date              Date   `json:"date"`
	Method            string `json:"method"`
	CardID            ID     `json:"cardId,omitempty"`
	InstallmentNumber string `json:"installmentNumber,omitempty"`
	IsPaid            bool   `json:"isPaid,omitempty"`
	IsInvoicePayment  bool   `json:"isInvoicePayment,omitempty"`
}

// Validate checks the fields every transaction must carry.
func (t Transaction) Validate() error {
	if strings.TrimSpace(t.Description) == "" {
		return ErrEmptyDescription
	}
	if t.Value.Cents <= 0 {
		return ErrInvalidAmount
	}
	if t.Type != TypeIncome && t.Type != TypeExpense {
		return ErrInvalidType
	}
	if t.Date.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// IsCardPurchase reports whether this is an ordinary credit-card expense
// line, i.e. spend that has not left the bank account yet.
func (t Transaction) IsCardPurchase() bool {
	return t.Type == TypeExpense && t.Method == MethodCreditCard && !t.IsInvoicePayment
}

// CreditCard is a credit card with its billing-cycle parameters. ClosingDay
// and DueDay are independent days of month; no ordering between them is
// assumed.
type CreditCard struct {
	ID         ID     `json:"id"`
	Name       string `json:"name"`
	Limit      Money  `json:"limit"`
	ClosingDay int    `json:"closingDay"`
	DueDay     int    `json:"dueDay"`
}

// Validate checks card fields.
func (c CreditCard) Validate() error {
	if strings.TrimSpace(c.Name) == "" {
		return errors.New("empty card name")
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 || c.DueDay < 1 || c.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// FixedBill is a recurring monthly obligation. LastPaidMonth is the sole
// recurrence state: the bill is paid for a month iff LastPaidMonth equals
// that month's key.
type FixedBill struct {
	ID            ID       `json:"id"`
	Name          string   `json:"name"`
	Value         Money    `json:"value"`
	DueDay        int      `json:"dueDay"`
	Category      string   `json:"category"`
	LastPaidMonth MonthKey `json:"lastPaidMonth,omitempty"`
}

// Validate checks bill fields.
func (b FixedBill) Validate() error {
	if strings.TrimSpace(b.Name) == "" {
		return errors.New("empty bill name")
	}
	if b.Value.Cents <= 0 {
		return ErrInvalidAmount
	}
	if b.DueDay < 1 || b.DueDay > 31 {
		return ErrInvalidDay
	}
	return nil
}

// IsPaidFor reports whether the bill has been settled for the given month.
func (b FixedBill) IsPaidFor(month MonthKey) bool {
	return !b.LastPaidMonth.IsZero() && b.LastPaidMonth == month
}

// Snapshot is the aggregate root: the whole ledger as a plain value. The
// engine reads snapshots and proposes replacements; it never mutates one in
// place.
type Snapshot struct {
	InitialBalance Money            `json:"initialBalance"`
	Transactions   []Transaction    `json:"transactions"`
	Cards          []CreditCard     `json:"cards"`
	FixedBills     []FixedBill      `json:"fixedBills"`
	Goals          map[string]Money `json:"goals"`
	Categories     []string         `json:"categories"`
}

// NewSnapshot returns an empty ledger seeded with the default categories.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Goals:      map[string]Money{},
		Categories: append([]string(nil), DefaultCategories...),
	}
}

// Clone returns a deep copy. Engine operations clone first, then edit the
// copy, so the caller's snapshot is never touched.
func (s *Snapshot) Clone() *Snapshot {
	out := &Snapshot{
		InitialBalance: s.InitialBalance,
		Transactions:   append([]Transaction(nil), s.Transactions...),
		Cards:          append([]CreditCard(nil), s.Cards...),
		FixedBills:     append([]FixedBill(nil), s.FixedBills...),
		Goals:          make(map[string]Money, len(s.Goals)),
		Categories:     append([]string(nil), s.Categories...),
	}
	for k, v := range s.Goals {
		out.Goals[k] = v
	}
	return out
}

// Card finds a card by id using canonical string comparison. The second
// return is false when the id dangles (e.g. the card was deleted).
func (s *Snapshot) Card(id ID) (CreditCard, bool) {
	for _, c := range s.Cards {
		if c.ID.Equal(id) {
			return c, true
		}
	}
	return CreditCard{}, false
}

// Bill finds a fixed bill by id.
func (s *Snapshot) Bill(id ID) (FixedBill, bool) {
	for _, b := range s.FixedBills {
		if b.ID.Equal(id) {
			return b, true
		}
	}
	return FixedBill{}, false
}

// Transaction finds a transaction by id.
func (s *Snapshot) Transaction(id ID) (Transaction, bool) {
	for _, t := range s.Transactions {
		if t.ID.Equal(id) {
			return t, true
		}
	}
	return Transaction{}, false
}

// HasCategory reports whether the category set contains name.
func (s *Snapshot) HasCategory(name string) bool {
	for _, c := range s.Categories {
		if c == name {
			return true
		}
	}
	return false
}
