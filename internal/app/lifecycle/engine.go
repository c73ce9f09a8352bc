// Package lifecycle implements the loan lifecycle state machine.
//
// The engine validates every transition against the loan's current state and
// the acting user's role, then hands the store a single Mutation (the loan's
// next state plus the ledger entries the transition emits), which the store
// commits atomically. A transition whose preconditions fail is rejected
// outright; state is never coerced.
//
// Transitions:
//  1. CreateLoan       (creditor) — family loans start pending_confirmation,
//     personal loans start outstanding
//  2. ConfirmLoan      (debtor, family) — acknowledge receipt of funds
//  3. SubmitRepayment  (debtor, family) — propose a repayment
//  4. ConfirmRepayment (creditor, family) — settle the pending repayment
//  5. RecordRepayment  (creditor, personal) — settle directly, no round trip
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/domain"
	"github.com/EmanAguilera/fiambond/internal/infra/cache"
	"github.com/EmanAguilera/fiambond/internal/infra/observability"
)

// Engine applies loan lifecycle transitions and plain ledger appends.
type Engine struct {
	store    domain.LoanStore
	ledger   domain.Ledger
	dir      domain.Directory
	balances *cache.Balances

	now   func() time.Time
	newID func() string
}

// Option customizes an Engine (used by tests to pin clocks and ids).
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator overrides id generation.
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) { e.newID = gen }
}

// New creates a lifecycle engine.
func New(store domain.LoanStore, ledger domain.Ledger, dir domain.Directory, balances *cache.Balances, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		ledger:   ledger,
		dir:      dir,
		balances: balances,
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ─── Create ─────────────────────────────────────────────────────────────────

// CreateLoanInput carries the fields of a loan creation request.
type CreateLoanInput struct {
	FamilyID       string          // empty ⇒ personal loan
	DebtorID       string          // required for family loans
	DebtorName     string          // required for personal loans
	Amount         decimal.Decimal // principal
	InterestAmount decimal.Decimal
	Description    string
	Deadline       *time.Time
	AttachmentURL  string
}

// CreateLoan records a new loan for the acting creditor. Family loans start
// pending the debtor's confirmation; personal loans have no in-app
// counterparty and start outstanding. The creditor's ledger takes an expense
// for the principal immediately; interest is never removed from the
// creditor's cash at creation, it is realized only through repayments.
func (e *Engine) CreateLoan(ctx context.Context, actorID string, in CreateLoanInput) (*domain.Loan, error) {
	const op = "create"

	if !in.Amount.IsPositive() {
		return nil, reject(op, domain.ErrInvalidAmount)
	}
	if in.InterestAmount.IsNegative() {
		return nil, reject(op, domain.ErrNegativeInterest)
	}
	if in.Description == "" {
		return nil, reject(op, domain.ErrMissingDescription)
	}

	debtorName := in.DebtorName
	if in.FamilyID != "" {
		if in.DebtorID == "" {
			return nil, reject(op, domain.ErrMissingCounterparty)
		}
		if in.DebtorID == actorID {
			return nil, reject(op, domain.ErrSelfLoan)
		}
		for _, userID := range []string{actorID, in.DebtorID} {
			member, err := e.dir.IsMember(ctx, in.FamilyID, userID)
			if err != nil {
				return nil, fmt.Errorf("membership check: %w", err)
			}
			if !member {
				return nil, reject(op, domain.ErrNotFamilyMember)
			}
		}
		debtor, err := e.dir.GetUser(ctx, in.DebtorID)
		if err != nil {
			return nil, reject(op, err)
		}
		debtorName = debtor.FullName
	} else if in.DebtorName == "" {
		return nil, reject(op, domain.ErrMissingCounterparty)
	}

	now := e.now()
	status := domain.StatusOutstanding
	if in.FamilyID != "" {
		status = domain.StatusPendingConfirmation
	}

	loan := domain.Loan{
		ID:                e.newID(),
		FamilyID:          in.FamilyID,
		CreditorID:        actorID,
		DebtorID:          in.DebtorID,
		DebtorName:        debtorName,
		Amount:            in.Amount,
		InterestAmount:    in.InterestAmount,
		TotalOwed:         in.Amount.Add(in.InterestAmount),
		RepaidAmount:      decimal.Zero,
		Status:            status,
		Description:       in.Description,
		RepaymentReceipts: []domain.RepaymentReceipt{},
		AttachmentURL:     in.AttachmentURL,
		Deadline:          in.Deadline,
		CreatedAt:         now,
		Version:           1,
	}

	// The principal leaves the creditor's personal ledger at creation.
	kind := "Loan"
	if !loan.IsFamily() {
		kind = "Personal loan"
	}
	m := domain.Mutation{
		Loan:   loan,
		Create: true,
		Entries: []domain.Transaction{{
			ID:            e.newID(),
			UserID:        actorID,
			LoanID:        loan.ID,
			Type:          domain.TxExpense,
			Amount:        in.Amount,
			Description:   fmt.Sprintf("%s to %s: %s", kind, debtorName, in.Description),
			AttachmentURL: in.AttachmentURL,
			CreatedAt:     now,
		}},
	}

	if err := e.commit(ctx, op, m); err != nil {
		return nil, err
	}
	return &loan, nil
}

// ─── Confirm Initial Receipt ────────────────────────────────────────────────

// ConfirmLoan acknowledges receipt of the funds on a family loan. Only the
// debtor may confirm, and only while the loan is pending confirmation. The
// debtor's ledger takes an income for the principal only, not the interest.
func (e *Engine) ConfirmLoan(ctx context.Context, actorID, loanID string) (*domain.Loan, error) {
	const op = "confirm"

	loan, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsFamily() {
		return nil, reject(op, domain.ErrFamilyLoanOnly)
	}
	if actorID != loan.DebtorID {
		return nil, reject(op, domain.ErrNotDebtor)
	}
	if loan.Status != domain.StatusPendingConfirmation {
		return nil, reject(op, domain.ErrNotAwaitingConfirmation)
	}

	now := e.now()
	next := *loan
	next.Status = domain.StatusOutstanding
	next.ConfirmedAt = &now

	m := domain.Mutation{
		Loan: next,
		Entries: []domain.Transaction{{
			ID:          e.newID(),
			UserID:      loan.DebtorID,
			LoanID:      loan.ID,
			Type:        domain.TxIncome,
			Amount:      loan.Amount,
			Description: "Loan funds received: " + loan.Description,
			CreatedAt:   now,
		}},
	}

	if err := e.commit(ctx, op, m); err != nil {
		return nil, err
	}
	return &next, nil
}

// ─── Submit Repayment ───────────────────────────────────────────────────────

// RepaymentInput carries a repayment amount and optional receipt. A zero
// amount defaults to the full outstanding balance.
type RepaymentInput struct {
	Amount     decimal.Decimal
	ReceiptURL string
}

// SubmitRepayment proposes a repayment on a family loan. Only the debtor may
// submit, the loan must be outstanding, and at most one repayment may await
// confirmation at a time. The debtor's cash leaves on submission; the
// creditor's balance updates only when the repayment is confirmed. This
// asymmetry is deliberate: the debtor pays provisionally.
func (e *Engine) SubmitRepayment(ctx context.Context, actorID, loanID string, in RepaymentInput) (*domain.Loan, error) {
	const op = "submit_repayment"

	loan, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsFamily() {
		return nil, reject(op, domain.ErrFamilyLoanOnly)
	}
	if actorID != loan.DebtorID {
		return nil, reject(op, domain.ErrNotDebtor)
	}
	switch loan.Status {
	case domain.StatusOutstanding:
	case domain.StatusRepaid:
		return nil, reject(op, domain.ErrLoanSettled)
	default:
		return nil, reject(op, domain.ErrLoanNotOutstanding)
	}
	if loan.PendingRepayment != nil {
		return nil, reject(op, domain.ErrRepaymentPending)
	}

	amount, err := e.repaymentAmount(loan, in.Amount)
	if err != nil {
		return nil, reject(op, err)
	}

	now := e.now()
	next := *loan
	next.PendingRepayment = &domain.PendingRepayment{
		Amount:      amount,
		SubmittedBy: actorID,
		SubmittedAt: now,
		ReceiptURL:  in.ReceiptURL,
	}

	m := domain.Mutation{
		Loan: next,
		Entries: []domain.Transaction{{
			ID:            e.newID(),
			UserID:        actorID,
			LoanID:        loan.ID,
			Type:          domain.TxExpense,
			Amount:        amount,
			Description:   "Repayment submitted: " + loan.Description,
			AttachmentURL: in.ReceiptURL,
			CreatedAt:     now,
		}},
	}

	if err := e.commit(ctx, op, m); err != nil {
		return nil, err
	}
	return &next, nil
}

// ─── Confirm Repayment ──────────────────────────────────────────────────────

// ConfirmRepayment settles the pending repayment on a family loan. Only the
// creditor may confirm, and only while a repayment awaits confirmation. The
// confirmed amount moves into repaid_amount and the receipt history, and the
// creditor's ledger takes the income.
func (e *Engine) ConfirmRepayment(ctx context.Context, actorID, loanID string) (*domain.Loan, error) {
	const op = "confirm_repayment"

	loan, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if !loan.IsFamily() {
		return nil, reject(op, domain.ErrFamilyLoanOnly)
	}
	if actorID != loan.CreditorID {
		return nil, reject(op, domain.ErrNotCreditor)
	}
	if loan.PendingRepayment == nil {
		return nil, reject(op, domain.ErrNoPendingRepayment)
	}

	pending := *loan.PendingRepayment
	now := e.now()
	next := settle(loan, pending.Amount, pending.ReceiptURL, now)
	next.PendingRepayment = nil

	m := domain.Mutation{
		Loan: next,
		Entries: []domain.Transaction{{
			ID:            e.newID(),
			UserID:        loan.CreditorID,
			LoanID:        loan.ID,
			Type:          domain.TxIncome,
			Amount:        pending.Amount,
			Description:   "Repayment confirmed: " + loan.Description,
			AttachmentURL: pending.ReceiptURL,
			CreatedAt:     now,
		}},
	}

	if err := e.commit(ctx, op, m); err != nil {
		return nil, err
	}
	return &next, nil
}

// ─── Record Repayment Directly ──────────────────────────────────────────────

// RecordRepayment settles a repayment on a personal loan immediately. There
// is no debtor account to confirm through, so the creditor is both recorder
// and sole authority.
func (e *Engine) RecordRepayment(ctx context.Context, actorID, loanID string, in RepaymentInput) (*domain.Loan, error) {
	const op = "record_repayment"

	loan, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.IsFamily() {
		return nil, reject(op, domain.ErrPersonalLoanOnly)
	}
	if actorID != loan.CreditorID {
		return nil, reject(op, domain.ErrNotCreditor)
	}
	if loan.Status == domain.StatusRepaid {
		return nil, reject(op, domain.ErrLoanSettled)
	}

	amount, err := e.repaymentAmount(loan, in.Amount)
	if err != nil {
		return nil, reject(op, err)
	}

	now := e.now()
	next := settle(loan, amount, in.ReceiptURL, now)

	m := domain.Mutation{
		Loan: next,
		Entries: []domain.Transaction{{
			ID:            e.newID(),
			UserID:        loan.CreditorID,
			LoanID:        loan.ID,
			Type:          domain.TxIncome,
			Amount:        amount,
			Description:   fmt.Sprintf("Repayment received from %s for: %s", loan.DebtorName, loan.Description),
			AttachmentURL: in.ReceiptURL,
			CreatedAt:     now,
		}},
	}

	if err := e.commit(ctx, op, m); err != nil {
		return nil, err
	}
	return &next, nil
}

// ─── Delete ─────────────────────────────────────────────────────────────────

// DeleteLoan removes a loan that has no repayment history. Only the creditor
// may delete. No compensating ledger entries are written; deletion exists to
// undo mistaken entries before any money moved back.
func (e *Engine) DeleteLoan(ctx context.Context, actorID, loanID string) error {
	const op = "delete"

	loan, err := e.store.GetLoan(ctx, loanID)
	if err != nil {
		return err
	}
	if actorID != loan.CreditorID {
		return reject(op, domain.ErrNotCreditor)
	}
	if !loan.RepaidAmount.IsZero() || len(loan.RepaymentReceipts) > 0 || loan.PendingRepayment != nil {
		return reject(op, domain.ErrLoanHasRepayments)
	}
	if loan.Status == domain.StatusRepaid {
		return reject(op, domain.ErrLoanSettled)
	}

	return e.commit(ctx, op, domain.Mutation{Loan: *loan, Delete: true})
}

// ─── Plain Ledger Operations ────────────────────────────────────────────────

// AppendTransaction records a standalone income/expense entry (non-loan
// bookkeeping, as the clients' transaction forms do).
func (e *Engine) AppendTransaction(ctx context.Context, actorID string, tx domain.Transaction) (*domain.Transaction, error) {
	if !tx.Type.Valid() {
		return nil, domain.ErrInvalidEntryType
	}
	if !tx.Amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	if tx.FamilyID != "" {
		member, err := e.dir.IsMember(ctx, tx.FamilyID, actorID)
		if err != nil {
			return nil, fmt.Errorf("membership check: %w", err)
		}
		if !member {
			return nil, domain.ErrNotFamilyMember
		}
	}

	tx.ID = e.newID()
	tx.UserID = actorID
	tx.CreatedAt = e.now()

	if err := e.ledger.Append(ctx, tx); err != nil {
		return nil, err
	}
	observability.LedgerEntries.WithLabelValues(string(tx.Type)).Inc()
	e.balances.Invalidate(ctx, tx.UserID, tx.FamilyID)
	return &tx, nil
}

// Balance returns the ledger balance for a (user, family) scope,
// cache-first.
func (e *Engine) Balance(ctx context.Context, userID, familyID string) (decimal.Decimal, error) {
	if b, ok := e.balances.Get(ctx, userID, familyID); ok {
		return b, nil
	}
	b, err := e.ledger.Balance(ctx, userID, familyID)
	if err != nil {
		return decimal.Zero, err
	}
	e.balances.Set(ctx, userID, familyID, b)
	return b, nil
}

// ─── Read-Side Projection ───────────────────────────────────────────────────

// Bucket categorizes a loan for display from one participant's point of
// view: action required (a confirmation of either kind is waiting on the
// viewer), lent, borrowed, or repaid. Purely a projection.
func Bucket(l *domain.Loan, viewerID string) domain.LoanBucket {
	switch {
	case l.Status == domain.StatusRepaid:
		return domain.BucketRepaid
	case l.Status == domain.StatusPendingConfirmation && viewerID == l.DebtorID:
		return domain.BucketActionRequired
	case l.PendingRepayment != nil && viewerID == l.CreditorID:
		return domain.BucketActionRequired
	case viewerID == l.CreditorID:
		return domain.BucketLent
	default:
		return domain.BucketBorrowed
	}
}

// ─── Internals ──────────────────────────────────────────────────────────────

// repaymentAmount validates a requested repayment amount against the loan's
// outstanding balance, defaulting to the full balance when zero.
func (e *Engine) repaymentAmount(loan *domain.Loan, requested decimal.Decimal) (decimal.Decimal, error) {
	outstanding := loan.Outstanding()
	if requested.IsZero() {
		return outstanding, nil
	}
	if requested.IsNegative() {
		return decimal.Zero, domain.ErrInvalidAmount
	}
	if requested.GreaterThan(outstanding) {
		return decimal.Zero, domain.ErrAmountTooLarge
	}
	return requested, nil
}

// settle applies a confirmed repayment to a copy of the loan: repaid_amount
// grows, the receipt history gains an entry, and the status flips to repaid
// once the balance is covered within the settlement epsilon.
func settle(loan *domain.Loan, amount decimal.Decimal, receiptURL string, now time.Time) domain.Loan {
	next := *loan
	next.RepaidAmount = loan.RepaidAmount.Add(amount)
	next.RepaymentReceipts = append(append([]domain.RepaymentReceipt{}, loan.RepaymentReceipts...), domain.RepaymentReceipt{
		URL:        receiptURL,
		Amount:     amount,
		RecordedAt: now,
	})
	if next.Settled() {
		next.Status = domain.StatusRepaid
	} else {
		next.Status = domain.StatusOutstanding
	}
	return next
}

// commit applies a mutation, records metrics, and invalidates the balance
// cache for every account the ledger entries touched.
func (e *Engine) commit(ctx context.Context, op string, m domain.Mutation) error {
	timer := observability.TransitionTimer(op)
	defer timer.ObserveDuration()

	if err := e.store.Apply(ctx, m); err != nil {
		observability.Transitions.WithLabelValues(op, "error").Inc()
		return err
	}
	observability.Transitions.WithLabelValues(op, "ok").Inc()

	for _, tx := range m.Entries {
		observability.LedgerEntries.WithLabelValues(string(tx.Type)).Inc()
		e.balances.Invalidate(ctx, tx.UserID, tx.FamilyID)
	}
	return nil
}

// reject counts and returns a transition rejection.
func reject(op string, err error) error {
	observability.Rejections.WithLabelValues(op).Inc()
	return err
}
