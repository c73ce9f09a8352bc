package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/EmanAguilera/fiambond/internal/domain"
)

// ─── Ledger Operations ──────────────────────────────────────────────────────

// Append writes a standalone ledger entry (outside any loan transition).
func (db *DB) Append(ctx context.Context, t domain.Transaction) error {
	_, err := db.db.ExecContext(ctx, `
		INSERT INTO transactions (id, user_id, family_id, loan_id, type,
			amount, description, attachment_url, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		t.ID, t.UserID, nullString(t.FamilyID), nullString(t.LoanID), string(t.Type),
		t.Amount.String(), t.Description, nullString(t.AttachmentURL),
		t.CreatedAt.Format(timeLayout),
	)
	if err != nil {
		return fmt.Errorf("append transaction: %w", err)
	}
	return nil
}

// ListTransactions returns ledger entries matching the filter, newest first.
func (db *DB) ListTransactions(ctx context.Context, f domain.TxFilter) ([]domain.Transaction, error) {
	query := `SELECT id, user_id, family_id, loan_id, type, amount,
		description, attachment_url, created_at FROM transactions WHERE 1=1`
	var args []any
	if f.UserID != "" {
		query += ` AND user_id = ?`
		args = append(args, f.UserID)
	}
	if f.FamilyID != "" {
		query += ` AND family_id = ?`
		args = append(args, f.FamilyID)
	} else if f.PersonalOnly {
		query += ` AND family_id IS NULL`
	}
	if f.LoanID != "" {
		query += ` AND loan_id = ?`
		args = append(args, f.LoanID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var out []domain.Transaction
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, fmt.Errorf("list transactions: %w", err)
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// Balance computes sum(income) − sum(expense) for a (user, family) scope.
// The sum runs over exact decimal amounts in Go, since SQLite would coerce
// the decimal strings to floats.
func (db *DB) Balance(ctx context.Context, userID, familyID string) (decimal.Decimal, error) {
	query := `SELECT type, amount FROM transactions WHERE user_id = ?`
	args := []any{userID}
	if familyID == "" {
		query += ` AND family_id IS NULL`
	} else {
		query += ` AND family_id = ?`
		args = append(args, familyID)
	}

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return decimal.Zero, fmt.Errorf("balance: %w", err)
	}
	defer rows.Close()

	total := decimal.Zero
	for rows.Next() {
		var txType, amount string
		if err := rows.Scan(&txType, &amount); err != nil {
			return decimal.Zero, fmt.Errorf("balance: %w", err)
		}
		d, err := decimal.NewFromString(amount)
		if err != nil {
			return decimal.Zero, fmt.Errorf("balance amount %q: %w", amount, err)
		}
		if domain.TxType(txType) == domain.TxExpense {
			total = total.Sub(d)
		} else {
			total = total.Add(d)
		}
	}
	return total, rows.Err()
}

func scanTransaction(row rowScanner) (*domain.Transaction, error) {
	var (
		t                            domain.Transaction
		familyID, loanID, attachment sql.NullString
		txType, amount, createdAt    string
	)
	err := row.Scan(&t.ID, &t.UserID, &familyID, &loanID, &txType, &amount,
		&t.Description, &attachment, &createdAt)
	if err != nil {
		return nil, err
	}

	t.FamilyID = familyID.String
	t.LoanID = loanID.String
	t.Type = domain.TxType(txType)
	t.AttachmentURL = attachment.String

	if t.Amount, err = decimal.NewFromString(amount); err != nil {
		return nil, fmt.Errorf("transaction %s amount: %w", t.ID, err)
	}
	if t.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("transaction %s created_at: %w", t.ID, err)
	}
	return &t, nil
}
