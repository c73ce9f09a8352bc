package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/domain"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testLoan(id string) domain.Loan {
	return domain.Loan{
		ID:                id,
		FamilyID:          "fam-1",
		CreditorID:        "alice",
		DebtorID:          "bob",
		DebtorName:        "Bob",
		Amount:            dec("1000"),
		InterestAmount:    dec("100"),
		TotalOwed:         dec("1100"),
		RepaidAmount:      decimal.Zero,
		Status:            domain.StatusPendingConfirmation,
		Description:       "seed money",
		RepaymentReceipts: []domain.RepaymentReceipt{},
		CreatedAt:         time.Now().UTC(),
		Version:           1,
	}
}

// ─── Loan Round Trips ───────────────────────────────────────────────────────

func TestApply_CreateAndGet(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	loan := testLoan("loan-1")
	err := db.Apply(ctx, domain.Mutation{Loan: loan, Create: true, Entries: []domain.Transaction{{
		ID: "tx-1", UserID: "alice", LoanID: "loan-1", Type: domain.TxExpense,
		Amount: dec("1000"), Description: "Loan to Bob: seed money", CreatedAt: time.Now().UTC(),
	}}})
	if err != nil {
		t.Fatalf("Apply(create) error: %v", err)
	}

	got, err := db.GetLoan(ctx, "loan-1")
	if err != nil {
		t.Fatalf("GetLoan() error: %v", err)
	}
	if got.Status != domain.StatusPendingConfirmation {
		t.Errorf("status = %q, want pending_confirmation", got.Status)
	}
	if !got.TotalOwed.Equal(dec("1100")) {
		t.Errorf("total owed = %s, want 1100", got.TotalOwed)
	}
	if got.Version != 1 {
		t.Errorf("version = %d, want 1", got.Version)
	}
	if got.PendingRepayment != nil {
		t.Error("fresh loan should have no pending repayment")
	}
	if len(got.RepaymentReceipts) != 0 {
		t.Errorf("fresh loan should have no receipts, got %d", len(got.RepaymentReceipts))
	}

	// The ledger entry committed with the loan.
	txs, err := db.ListTransactions(ctx, domain.TxFilter{LoanID: "loan-1"})
	if err != nil {
		t.Fatalf("ListTransactions() error: %v", err)
	}
	if len(txs) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(txs))
	}
	if txs[0].Type != domain.TxExpense || !txs[0].Amount.Equal(dec("1000")) {
		t.Errorf("entry = %s %s, want expense 1000", txs[0].Type, txs[0].Amount)
	}
}

func TestGetLoan_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetLoan(context.Background(), "missing")
	if !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("err = %v, want ErrLoanNotFound", err)
	}
}

func TestApply_UpdateAdvancesVersion(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	loan := testLoan("loan-1")
	if err := db.Apply(ctx, domain.Mutation{Loan: loan, Create: true}); err != nil {
		t.Fatal(err)
	}

	now := time.Now().UTC()
	next := loan
	next.Status = domain.StatusOutstanding
	next.ConfirmedAt = &now
	if err := db.Apply(ctx, domain.Mutation{Loan: next}); err != nil {
		t.Fatalf("Apply(update) error: %v", err)
	}

	got, _ := db.GetLoan(ctx, "loan-1")
	if got.Version != 2 {
		t.Errorf("version = %d, want 2", got.Version)
	}
	if got.Status != domain.StatusOutstanding {
		t.Errorf("status = %q, want outstanding", got.Status)
	}
	if got.ConfirmedAt == nil {
		t.Error("confirmed_at not persisted")
	}
}

func TestApply_StaleVersionRejected(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	loan := testLoan("loan-1")
	if err := db.Apply(ctx, domain.Mutation{Loan: loan, Create: true}); err != nil {
		t.Fatal(err)
	}

	// First writer wins.
	first := loan
	first.Status = domain.StatusOutstanding
	if err := db.Apply(ctx, domain.Mutation{Loan: first}); err != nil {
		t.Fatal(err)
	}

	// Second writer computed from the same snapshot (version 1) loses,
	// and its ledger entries must not land.
	second := loan
	second.RepaidAmount = dec("500")
	err := db.Apply(ctx, domain.Mutation{Loan: second, Entries: []domain.Transaction{{
		ID: "tx-orphan", UserID: "alice", Type: domain.TxIncome,
		Amount: dec("500"), CreatedAt: time.Now().UTC(),
	}}})
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("err = %v, want ErrConflict", err)
	}

	txs, _ := db.ListTransactions(ctx, domain.TxFilter{UserID: "alice"})
	for _, tx := range txs {
		if tx.ID == "tx-orphan" {
			t.Error("ledger entry from a rejected mutation was committed")
		}
	}
}

func TestApply_DeleteAndConflict(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	loan := testLoan("loan-1")
	if err := db.Apply(ctx, domain.Mutation{Loan: loan, Create: true}); err != nil {
		t.Fatal(err)
	}
	if err := db.Apply(ctx, domain.Mutation{Loan: loan, Delete: true}); err != nil {
		t.Fatalf("Apply(delete) error: %v", err)
	}
	if _, err := db.GetLoan(ctx, "loan-1"); !errors.Is(err, domain.ErrLoanNotFound) {
		t.Errorf("err = %v, want ErrLoanNotFound after delete", err)
	}

	// Deleting again conflicts (row is gone).
	if err := db.Apply(ctx, domain.Mutation{Loan: loan, Delete: true}); !errors.Is(err, domain.ErrConflict) {
		t.Errorf("err = %v, want ErrConflict", err)
	}
}

func TestApply_SubRecordRoundTrip(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	loan := testLoan("loan-1")
	if err := db.Apply(ctx, domain.Mutation{Loan: loan, Create: true}); err != nil {
		t.Fatal(err)
	}

	submitted := time.Now().UTC().Truncate(time.Millisecond)
	next := loan
	next.Status = domain.StatusOutstanding
	next.PendingRepayment = &domain.PendingRepayment{
		Amount:      dec("600"),
		SubmittedBy: "bob",
		SubmittedAt: submitted,
		ReceiptURL:  "https://img.example/r1.png",
	}
	next.RepaymentReceipts = []domain.RepaymentReceipt{
		{URL: "https://img.example/r0.png", Amount: dec("100"), RecordedAt: submitted},
	}
	if err := db.Apply(ctx, domain.Mutation{Loan: next}); err != nil {
		t.Fatal(err)
	}

	got, _ := db.GetLoan(ctx, "loan-1")
	if got.PendingRepayment == nil {
		t.Fatal("pending repayment not persisted")
	}
	if !got.PendingRepayment.Amount.Equal(dec("600")) || got.PendingRepayment.SubmittedBy != "bob" {
		t.Errorf("pending = %+v", got.PendingRepayment)
	}
	if len(got.RepaymentReceipts) != 1 || !got.RepaymentReceipts[0].Amount.Equal(dec("100")) {
		t.Errorf("receipts = %+v", got.RepaymentReceipts)
	}
}

func TestListLoans_Filters(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	a := testLoan("loan-a")
	b := testLoan("loan-b")
	b.FamilyID = ""
	b.DebtorID = ""
	b.DebtorName = "Cousin Ed"
	b.Status = domain.StatusOutstanding
	c := testLoan("loan-c")
	c.CreditorID = "bob"
	c.DebtorID = "carol"
	for _, l := range []domain.Loan{a, b, c} {
		if err := db.Apply(ctx, domain.Mutation{Loan: l, Create: true}); err != nil {
			t.Fatal(err)
		}
	}

	// alice appears on loans a and b (as creditor).
	got, err := db.ListLoans(ctx, domain.LoanFilter{UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("alice loans = %d, want 2", len(got))
	}

	// bob appears on a (debtor) and c (creditor).
	got, _ = db.ListLoans(ctx, domain.LoanFilter{UserID: "bob"})
	if len(got) != 2 {
		t.Errorf("bob loans = %d, want 2", len(got))
	}

	got, _ = db.ListLoans(ctx, domain.LoanFilter{FamilyID: "fam-1", Status: domain.StatusPendingConfirmation})
	if len(got) != 2 {
		t.Errorf("fam-1 pending loans = %d, want 2", len(got))
	}
}

// ─── Ledger ─────────────────────────────────────────────────────────────────

func TestBalance_ExactDecimalSum(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	entries := []struct {
		txType domain.TxType
		amount string
		family string
	}{
		{domain.TxIncome, "1000.10", ""},
		{domain.TxExpense, "300.03", ""},
		{domain.TxExpense, "0.07", ""},
		{domain.TxIncome, "999", "fam-1"}, // different scope, excluded
	}
	for i, e := range entries {
		err := db.Append(ctx, domain.Transaction{
			ID: "tx-" + string(rune('a'+i)), UserID: "alice", FamilyID: e.family,
			Type: e.txType, Amount: dec(e.amount), CreatedAt: time.Now().UTC(),
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	got, err := db.Balance(ctx, "alice", "")
	if err != nil {
		t.Fatalf("Balance() error: %v", err)
	}
	if !got.Equal(dec("700")) {
		t.Errorf("personal balance = %s, want 700", got)
	}

	got, _ = db.Balance(ctx, "alice", "fam-1")
	if !got.Equal(dec("999")) {
		t.Errorf("family balance = %s, want 999", got)
	}
}

func TestListTransactions_PersonalOnly(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	db.Append(ctx, domain.Transaction{ID: "t1", UserID: "u", Type: domain.TxIncome, Amount: dec("1"), CreatedAt: time.Now().UTC()})
	db.Append(ctx, domain.Transaction{ID: "t2", UserID: "u", FamilyID: "f", Type: domain.TxIncome, Amount: dec("1"), CreatedAt: time.Now().UTC()})

	got, err := db.ListTransactions(ctx, domain.TxFilter{UserID: "u", PersonalOnly: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "t1" {
		t.Errorf("personal entries = %+v, want only t1", got)
	}
}

// ─── Directory ──────────────────────────────────────────────────────────────

func TestDirectory_FamilyMembership(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	for _, u := range []domain.User{{ID: "alice", FullName: "Alice A", CreatedAt: now}, {ID: "bob", FullName: "Bob B", CreatedAt: now}} {
		if err := db.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	if err := db.CreateFamily(ctx, domain.Family{ID: "fam-1", Name: "Aguilera", OwnerID: "alice", CreatedAt: now}); err != nil {
		t.Fatal(err)
	}

	// Owner enrolled automatically.
	if ok, _ := db.IsMember(ctx, "fam-1", "alice"); !ok {
		t.Error("owner should be a member")
	}
	if ok, _ := db.IsMember(ctx, "fam-1", "bob"); ok {
		t.Error("bob should not be a member yet")
	}

	if err := db.AddMember(ctx, "fam-1", "bob"); err != nil {
		t.Fatal(err)
	}
	if ok, _ := db.IsMember(ctx, "fam-1", "bob"); !ok {
		t.Error("bob should be a member after AddMember")
	}

	// Idempotent
	if err := db.AddMember(ctx, "fam-1", "bob"); err != nil {
		t.Errorf("repeat AddMember error: %v", err)
	}

	// Unknown references rejected.
	if err := db.AddMember(ctx, "fam-1", "ghost"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}
	if err := db.AddMember(ctx, "no-family", "bob"); !errors.Is(err, domain.ErrFamilyNotFound) {
		t.Errorf("err = %v, want ErrFamilyNotFound", err)
	}
}

func TestDirectory_GetUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()

	if _, err := db.GetUser(ctx, "nobody"); !errors.Is(err, domain.ErrUserNotFound) {
		t.Errorf("err = %v, want ErrUserNotFound", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	db.CreateUser(ctx, domain.User{ID: "alice", FullName: "Alice A", CreatedAt: now})
	got, err := db.GetUser(ctx, "alice")
	if err != nil {
		t.Fatal(err)
	}
	if got.FullName != "Alice A" || !got.CreatedAt.Equal(now) {
		t.Errorf("user = %+v", got)
	}
}
