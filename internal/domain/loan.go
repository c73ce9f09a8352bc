// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Loan Types ─────────────────────────────────────────────────────────────

// LoanStatus is the lifecycle state of a loan.
type LoanStatus string

const (
	// StatusPendingConfirmation: a family loan awaiting the debtor's
	// acknowledgment that the funds were received.
	StatusPendingConfirmation LoanStatus = "pending_confirmation"
	// StatusOutstanding: an active loan with an unpaid balance.
	StatusOutstanding LoanStatus = "outstanding"
	// StatusRepaid: fully settled. Terminal — no transition leaves it.
	StatusRepaid LoanStatus = "repaid"
)

// SettlementEpsilon is the tolerance used when deciding whether a loan is
// fully repaid. 0.01 of a currency unit, carried over from the original
// ledger contract.
var SettlementEpsilon = decimal.New(1, -2)

// PendingRepayment is a repayment submitted by the debtor and awaiting the
// creditor's confirmation. At most one may exist per loan.
type PendingRepayment struct {
	Amount      decimal.Decimal `json:"amount"`
	SubmittedBy string          `json:"submitted_by"`
	SubmittedAt time.Time       `json:"submitted_at"`
	ReceiptURL  string          `json:"receipt_url,omitempty"`
}

// RepaymentReceipt is one settled repayment in the loan's append-only history.
type RepaymentReceipt struct {
	URL        string          `json:"url,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	RecordedAt time.Time       `json:"recorded_at"`
}

// Loan is a debt owed to a creditor. A loan with a family id is a "family
// loan" between two in-app users; one without is a "personal loan" to an
// external party tracked only by name.
type Loan struct {
	ID                string             `json:"id"`
	FamilyID          string             `json:"family_id,omitempty"`
	CreditorID        string             `json:"creditor_id"`
	DebtorID          string             `json:"debtor_id,omitempty"`
	DebtorName        string             `json:"debtor_name"`
	Amount            decimal.Decimal    `json:"amount"`
	InterestAmount    decimal.Decimal    `json:"interest_amount"`
	TotalOwed         decimal.Decimal    `json:"total_owed"`
	RepaidAmount      decimal.Decimal    `json:"repaid_amount"`
	Status            LoanStatus         `json:"status"`
	Description       string             `json:"description"`
	PendingRepayment  *PendingRepayment  `json:"pending_repayment,omitempty"`
	RepaymentReceipts []RepaymentReceipt `json:"repayment_receipts"`
	AttachmentURL     string             `json:"attachment_url,omitempty"`
	Deadline          *time.Time         `json:"deadline,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	ConfirmedAt       *time.Time         `json:"confirmed_at,omitempty"`

	// Version is the optimistic concurrency token. Incremented on every
	// committed mutation; stale writers are rejected.
	Version int64 `json:"version"`
}

// IsFamily reports whether the loan has an in-app counterparty.
func (l *Loan) IsFamily() bool { return l.FamilyID != "" }

// Outstanding returns the unpaid balance (total owed minus confirmed
// repayments). Never negative.
func (l *Loan) Outstanding() decimal.Decimal {
	out := l.TotalOwed.Sub(l.RepaidAmount)
	if out.IsNegative() {
		return decimal.Zero
	}
	return out
}

// Settled reports whether confirmed repayments cover the total owed,
// within the settlement epsilon.
func (l *Loan) Settled() bool {
	return l.RepaidAmount.GreaterThanOrEqual(l.TotalOwed.Sub(SettlementEpsilon))
}

// ─── Read-Side Buckets ──────────────────────────────────────────────────────

// LoanBucket is the display categorization of a loan from one participant's
// point of view. Pure projection, not part of the state machine.
type LoanBucket string

const (
	BucketActionRequired LoanBucket = "action_required"
	BucketLent           LoanBucket = "lent"
	BucketBorrowed       LoanBucket = "borrowed"
	BucketRepaid         LoanBucket = "repaid"
)

// ─── Mutations ──────────────────────────────────────────────────────────────

// Mutation is one atomic unit of work produced by a lifecycle transition:
// the loan's next state plus the ledger entries the transition emits.
// A store must commit all of it in a single transaction or none of it.
type Mutation struct {
	Loan    Loan
	Create  bool // insert a new loan row
	Delete  bool // remove the loan row
	Entries []Transaction
}
