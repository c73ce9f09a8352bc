package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Validation errors
	ErrInvalidAmount       = errors.New("amount must be greater than zero")
	ErrNegativeInterest    = errors.New("interest amount cannot be negative")
	ErrAmountTooLarge      = errors.New("amount exceeds the outstanding balance")
	ErrMissingCounterparty = errors.New("loan requires a debtor")
	ErrMissingDescription  = errors.New("loan requires a description")
	ErrSelfLoan            = errors.New("cannot lend to yourself")
	ErrInvalidEntryType    = errors.New("transaction type must be income or expense")

	// Authorization errors
	ErrNotCreditor     = errors.New("only the creditor may perform this action")
	ErrNotDebtor       = errors.New("only the debtor may perform this action")
	ErrNotFamilyMember = errors.New("user is not a member of this family")

	// Precondition errors (wrong state for the requested transition)
	ErrNotAwaitingConfirmation = errors.New("loan is not awaiting confirmation")
	ErrLoanNotOutstanding      = errors.New("loan is not outstanding")
	ErrLoanSettled             = errors.New("loan is fully repaid")
	ErrRepaymentPending        = errors.New("a repayment is already awaiting confirmation")
	ErrNoPendingRepayment      = errors.New("no repayment is awaiting confirmation")
	ErrFamilyLoanOnly          = errors.New("action applies only to family loans")
	ErrPersonalLoanOnly        = errors.New("action applies only to personal loans")
	ErrLoanHasRepayments       = errors.New("loan with repayments cannot be deleted")

	// Lookup / storage errors
	ErrLoanNotFound   = errors.New("loan not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrFamilyNotFound = errors.New("family not found")
	ErrConflict       = errors.New("loan was modified concurrently")
)
