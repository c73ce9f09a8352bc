package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Ledger Types ───────────────────────────────────────────────────────────

// TxType is the accounting side of a ledger entry.
type TxType string

const (
	TxIncome  TxType = "income"
	TxExpense TxType = "expense"
)

// Valid reports whether t is a known entry type.
func (t TxType) Valid() bool { return t == TxIncome || t == TxExpense }

// Transaction is a single row in the append-only ledger. The balance of a
// (user, family) scope is sum(income) − sum(expense) over matching entries.
// An empty FamilyID means the user's personal ledger.
type Transaction struct {
	ID            string          `json:"id"`
	UserID        string          `json:"user_id"`
	FamilyID      string          `json:"family_id,omitempty"`
	LoanID        string          `json:"loan_id,omitempty"`
	Type          TxType          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	Description   string          `json:"description"`
	AttachmentURL string          `json:"attachment_url,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Signed returns the entry's contribution to a balance: positive for
// income, negative for expense.
func (t *Transaction) Signed() decimal.Decimal {
	if t.Type == TxExpense {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ─── Directory Types ────────────────────────────────────────────────────────

// User is a registered account, resolved for counterparty display and
// membership checks.
type User struct {
	ID        string    `json:"id"`
	FullName  string    `json:"full_name"`
	CreatedAt time.Time `json:"created_at"`
}

// Family is a shared ledger group of users.
type Family struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	CreatedAt time.Time `json:"created_at"`
}
