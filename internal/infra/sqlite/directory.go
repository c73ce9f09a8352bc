package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/EmanAguilera/fiambond/internal/domain"
)

// ─── Directory Operations ───────────────────────────────────────────────────

// CreateUser registers a user.
func (db *DB) CreateUser(ctx context.Context, u domain.User) error {
	_, err := db.db.ExecContext(ctx,
		`INSERT INTO users (id, full_name, created_at) VALUES (?, ?, ?)`,
		u.ID, u.FullName, u.CreatedAt.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// GetUser fetches a user by id.
func (db *DB) GetUser(ctx context.Context, id string) (*domain.User, error) {
	var u domain.User
	var createdAt string
	err := db.db.QueryRowContext(ctx,
		`SELECT id, full_name, created_at FROM users WHERE id = ?`, id).
		Scan(&u.ID, &u.FullName, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if u.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("user %s created_at: %w", id, err)
	}
	return &u, nil
}

// CreateFamily registers a family and enrolls its owner as the first member.
func (db *DB) CreateFamily(ctx context.Context, f domain.Family) error {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	created := f.CreatedAt.Format(timeLayout)
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO families (id, name, owner_id, created_at) VALUES (?, ?, ?, ?)`,
		f.ID, f.Name, f.OwnerID, created); err != nil {
		return fmt.Errorf("create family: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO family_members (family_id, user_id, joined_at) VALUES (?, ?, ?)`,
		f.ID, f.OwnerID, created); err != nil {
		return fmt.Errorf("enroll owner: %w", err)
	}
	return tx.Commit()
}

// GetFamily fetches a family by id.
func (db *DB) GetFamily(ctx context.Context, id string) (*domain.Family, error) {
	var f domain.Family
	var createdAt string
	err := db.db.QueryRowContext(ctx,
		`SELECT id, name, owner_id, created_at FROM families WHERE id = ?`, id).
		Scan(&f.ID, &f.Name, &f.OwnerID, &createdAt)
	if err == sql.ErrNoRows {
		return nil, domain.ErrFamilyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get family: %w", err)
	}
	if f.CreatedAt, err = time.Parse(timeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("family %s created_at: %w", id, err)
	}
	return &f, nil
}

// AddMember enrolls a user in a family. Idempotent.
func (db *DB) AddMember(ctx context.Context, familyID, userID string) error {
	if _, err := db.GetFamily(ctx, familyID); err != nil {
		return err
	}
	if _, err := db.GetUser(ctx, userID); err != nil {
		return err
	}
	_, err := db.db.ExecContext(ctx, `
		INSERT OR IGNORE INTO family_members (family_id, user_id, joined_at)
		VALUES (?, ?, ?)
	`, familyID, userID, time.Now().Format(timeLayout))
	if err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	return nil
}

// IsMember reports whether a user belongs to a family.
func (db *DB) IsMember(ctx context.Context, familyID, userID string) (bool, error) {
	var count int
	err := db.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM family_members WHERE family_id = ? AND user_id = ?`,
		familyID, userID).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("is member: %w", err)
	}
	return count > 0, nil
}
