package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/spyhole/internal/database"
)

// AccountRepository provides SQLite-backed account storage
type AccountRepository struct {
	db *sql.DB
}

const accountColumns = `id, username, password_hash, role, face_filename, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*database.Account, error) {
	var a database.Account
	var created int64
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.FaceFilename, &created); err != nil {
		return nil, err
	}
	a.CreatedAt = fromUnix(created)
	return &a, nil
}

func (r *AccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts WHERE username = ?`, username).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return n > 0, nil
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*database.Account, error) {
	a, err := scanAccount(r.db.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = ?`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

func (r *AccountRepository) List(ctx context.Context) ([]database.Account, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	var accounts []database.Account
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("scan account: %w", err)
		}
		accounts = append(accounts, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return accounts, nil
}

func (r *AccountRepository) Create(ctx context.Context, a *database.Account) error {
	created := time.Now()
	result, err := r.db.ExecContext(ctx, `
		INSERT INTO accounts (username, password_hash, role, face_filename, created_at)
		VALUES (?, ?, ?, ?, ?)
	`, a.Username, a.PasswordHash, a.Role, a.FaceFilename, unix(created))
	if isUniqueViolation(err) {
		return database.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting account id: %w", err)
	}
	a.ID = id
	a.CreatedAt = fromUnix(unix(created))
	return nil
}

func (r *AccountRepository) SetFaceFilename(ctx context.Context, username, filename string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE accounts SET face_filename = ? WHERE username = ?`, filename, username)
	if err != nil {
		return fmt.Errorf("set face filename: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if n == 0 {
		return database.ErrAccountNotFound
	}
	return nil
}
