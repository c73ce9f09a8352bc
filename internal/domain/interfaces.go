package domain

import (
	"context"

	"github.com/shopspring/decimal"
)

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// LoanFilter narrows a loan listing. Zero values mean "no constraint".
type LoanFilter struct {
	UserID   string // matches creditor or debtor
	FamilyID string
	Status   LoanStatus
}

// TxFilter narrows a ledger listing.
type TxFilter struct {
	UserID   string
	FamilyID string
	LoanID   string
	// PersonalOnly restricts to entries with no family scope. Needed
	// because an empty FamilyID otherwise means "no constraint".
	PersonalOnly bool
}

// LoanStore abstracts persistent loan storage.
type LoanStore interface {
	GetLoan(ctx context.Context, id string) (*Loan, error)
	ListLoans(ctx context.Context, f LoanFilter) ([]Loan, error)

	// Apply commits a mutation atomically: loan insert/update/delete plus
	// all ledger entries in one transaction. Updates and deletes check the
	// loan's version and return ErrConflict on a stale write.
	Apply(ctx context.Context, m Mutation) error
}

// Ledger abstracts the append-only transaction log.
type Ledger interface {
	Append(ctx context.Context, tx Transaction) error
	ListTransactions(ctx context.Context, f TxFilter) ([]Transaction, error)

	// Balance returns sum(income) − sum(expense) for a (user, family)
	// scope. An empty familyID means the personal ledger.
	Balance(ctx context.Context, userID, familyID string) (decimal.Decimal, error)
}

// Directory abstracts user and family lookups.
type Directory interface {
	CreateUser(ctx context.Context, u User) error
	GetUser(ctx context.Context, id string) (*User, error)
	CreateFamily(ctx context.Context, f Family) error
	GetFamily(ctx context.Context, id string) (*Family, error)
	AddMember(ctx context.Context, familyID, userID string) error
	IsMember(ctx context.Context, familyID, userID string) (bool, error)
}
