package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/domain"
)

// timeLayout is the canonical timestamp encoding for all stored times.
const timeLayout = time.RFC3339Nano

// ─── Loan Reads ─────────────────────────────────────────────────────────────

const loanColumns = `id, family_id, creditor_id, debtor_id, debtor_name,
	amount, interest_amount, total_owed, repaid_amount, status, description,
	pending_json, receipts_json, attachment_url, deadline, created_at,
	confirmed_at, version`

// GetLoan fetches a loan by id.
func (db *DB) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	row := db.db.QueryRowContext(ctx, `SELECT `+loanColumns+` FROM loans WHERE id = ?`, id)
	loan, err := scanLoan(row)
	if err == sql.ErrNoRows {
		return nil, domain.ErrLoanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get loan: %w", err)
	}
	return loan, nil
}

// ListLoans returns loans matching the filter, newest first. A user filter
// matches either side of the loan.
func (db *DB) ListLoans(ctx context.Context, f domain.LoanFilter) ([]domain.Loan, error) {
	query := `SELECT ` + loanColumns + ` FROM loans WHERE 1=1`
	var args []any
	if f.UserID != "" {
		query += ` AND (creditor_id = ? OR debtor_id = ?)`
		args = append(args, f.UserID, f.UserID)
	}
	if f.FamilyID != "" {
		query += ` AND family_id = ?`
		args = append(args, f.FamilyID)
	}
	if f.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(f.Status))
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list loans: %w", err)
	}
	defer rows.Close()

	var out []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("list loans: %w", err)
		}
		out = append(out, *loan)
	}
	return out, rows.Err()
}

// ─── Atomic Mutations ───────────────────────────────────────────────────────

// Apply commits a lifecycle mutation: the loan insert/update/delete plus all
// ledger entries, in a single transaction. Updates and deletes carry an
// optimistic version check; a stale writer gets domain.ErrConflict and no
// partial state is left behind.
func (db *DB) Apply(ctx context.Context, m domain.Mutation) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	switch {
	case m.Create:
		if err := insertLoan(ctx, tx, m.Loan); err != nil {
			return err
		}
	case m.Delete:
		res, err := tx.ExecContext(ctx,
			`DELETE FROM loans WHERE id = ? AND version = ?`,
			m.Loan.ID, m.Loan.Version)
		if err != nil {
			return fmt.Errorf("delete loan: %w", err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return domain.ErrConflict
		}
	default:
		if err := updateLoan(ctx, tx, m.Loan); err != nil {
			return err
		}
	}

	for _, entry := range m.Entries {
		if err := insertTransaction(ctx, tx, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertLoan(ctx context.Context, tx *sql.Tx, l domain.Loan) error {
	pendingJSON, receiptsJSON, err := encodeSubRecords(l)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx, `
		INSERT INTO loans (id, family_id, creditor_id, debtor_id, debtor_name,
			amount, interest_amount, total_owed, repaid_amount, status,
			description, pending_json, receipts_json, attachment_url,
			deadline, created_at, confirmed_at, version)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		l.ID, nullString(l.FamilyID), l.CreditorID, nullString(l.DebtorID), l.DebtorName,
		l.Amount.String(), l.InterestAmount.String(), l.TotalOwed.String(), l.RepaidAmount.String(), string(l.Status),
		l.Description, pendingJSON, receiptsJSON, nullString(l.AttachmentURL),
		nullTime(l.Deadline), l.CreatedAt.Format(timeLayout), nullTime(l.ConfirmedAt), l.Version,
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}
	return nil
}

// updateLoan writes the loan's next state, expecting to find the version the
// transition was computed from. The version column advances by one.
func updateLoan(ctx context.Context, tx *sql.Tx, l domain.Loan) error {
	pendingJSON, receiptsJSON, err := encodeSubRecords(l)
	if err != nil {
		return err
	}
	res, err := tx.ExecContext(ctx, `
		UPDATE loans SET
			repaid_amount = ?,
			status        = ?,
			pending_json  = ?,
			receipts_json = ?,
			confirmed_at  = ?,
			version       = version + 1
		WHERE id = ? AND version = ?
	`,
		l.RepaidAmount.String(), string(l.Status), pendingJSON, receiptsJSON,
		nullTime(l.ConfirmedAt), l.ID, l.Version,
	)
	if err != nil {
		return fmt.Errorf("update loan: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrConflict
	}
	return nil
}

func insertTransaction(ctx context.Context, tx *sql.Tx, t domain.Transaction) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, family_id, loan_id, type,
			amount, description, attachment_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.UserID, nullString(t.FamilyID), nullString(t.LoanID), string(t.Type),
		t.Amount.String(), t.Description, nullString(t.AttachmentURL),
		t.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

// ─── Row Mapping ────────────────────────────────────────────────────────────

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLoan(row rowScanner) (*domain.Loan, error) {
	var (
		l                                  domain.Loan
		familyID, debtorID                 sql.NullString
		amount, interest, owed, repaid     string
		status                             string
		pendingJSON, attachment            sql.NullString
		receiptsJSON                       string
		deadline, createdAt, confirmedAt   sql.NullString
	)

	err := row.Scan(&l.ID, &familyID, &l.CreditorID, &debtorID, &l.DebtorName,
		&amount, &interest, &owed, &repaid, &status, &l.Description,
		&pendingJSON, &receiptsJSON, &attachment, &deadline, &createdAt,
		&confirmedAt, &l.Version)
	if err != nil {
		return nil, err
	}

	l.FamilyID = familyID.String
	l.DebtorID = debtorID.String
	l.Status = domain.LoanStatus(status)
	l.AttachmentURL = attachment.String

	if l.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("loan %s amount: %w", l.ID, err)
	}
	if l.InterestAmount, err = decimal.NewFromString(interest); err != nil {
		return nil, fmt.Errorf("loan %s interest: %w", l.ID, err)
	}
	if l.TotalOwed, err = decimal.NewFromString(owed); err != nil {
		return nil, fmt.Errorf("loan %s total owed: %w", l.ID, err)
	}
	if l.RepaidAmount, err = decimal.NewFromString(repaid); err != nil {
		return nil, fmt.Errorf("loan %s repaid: %w", l.ID, err)
	}

	if pendingJSON.Valid && pendingJSON.String != "" {
		var p domain.PendingRepayment
		if err := json.Unmarshal([]byte(pendingJSON.String), &p); err != nil {
			return nil, fmt.Errorf("loan %s pending repayment: %w", l.ID, err)
		}
		l.PendingRepayment = &p
	}
	l.RepaymentReceipts = []domain.RepaymentReceipt{}
	if err := json.Unmarshal([]byte(receiptsJSON), &l.RepaymentReceipts); err != nil {
		return nil, fmt.Errorf("loan %s receipts: %w", l.ID, err)
	}

	if l.Deadline, err = parseNullTime(deadline); err != nil {
		return nil, err
	}
	if createdAt.Valid {
		if l.CreatedAt, err = time.Parse(timeLayout, createdAt.String); err != nil {
			return nil, fmt.Errorf("loan %s created_at: %w", l.ID, err)
		}
	}
	if l.ConfirmedAt, err = parseNullTime(confirmedAt); err != nil {
		return nil, err
	}
	return &l, nil
}

func encodeSubRecords(l domain.Loan) (pending sql.NullString, receipts string, err error) {
	if l.PendingRepayment != nil {
		raw, err := json.Marshal(l.PendingRepayment)
		if err != nil {
			return sql.NullString{}, "", fmt.Errorf("encode pending repayment: %w", err)
		}
		pending = sql.NullString{String: string(raw), Valid: true}
	}
	recs := l.RepaymentReceipts
	if recs == nil {
		recs = []domain.RepaymentReceipt{}
	}
	raw, err := json.Marshal(recs)
	if err != nil {
		return sql.NullString{}, "", fmt.Errorf("encode receipts: %w", err)
	}
	return pending, string(raw), nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.Format(timeLayout), Valid: true}
}

func parseNullTime(s sql.NullString) (*time.Time, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	t, err := time.Parse(timeLayout, s.String)
	if err != nil {
		return nil, fmt.Errorf("parse time %q: %w", s.String, err)
	}
	return &t, nil
}
