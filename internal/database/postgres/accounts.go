package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/kozaktomas/spyhole/internal/database"
)

// AccountRepository provides PostgreSQL-backed account storage
type AccountRepository struct {
	pool *Pool
}

// NewAccountRepository creates a new PostgreSQL account repository
func NewAccountRepository(pool *Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

const accountColumns = `id, username, password_hash, role, face_filename, created_at`

func scanAccount(row interface{ Scan(...any) error }) (*database.Account, error) {
	var a database.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.Role, &a.FaceFilename, &a.CreatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// Exists checks if an account with the username is registered
func (r *AccountRepository) Exists(ctx context.Context, username string) (bool, error) {
	var exists bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE username = $1)`, username).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check account: %w", err)
	}
	return exists, nil
}

// GetByUsername retrieves an account by username
func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*database.Account, error) {
	a, err := scanAccount(r.pool.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE username = $1`, username))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, database.ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return a, nil
}

// Count returns the total number of accounts
func (r *AccountRepository) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count accounts: %w", err)
	}
	return n, nil
}

// List returns all accounts ordered by ID
func (r *AccountRepository) List(ctx context.Context) ([]database.Account, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+accountColumns+` FROM accounts ORDER BY id`)
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

// Create stores a new account
func (r *AccountRepository) Create(ctx context.Context, a *database.Account) error {
	query := `
		INSERT INTO accounts (username, password_hash, role, face_filename)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`
	err := r.pool.QueryRow(ctx, query, a.Username, a.PasswordHash, a.Role, a.FaceFilename).Scan(&a.ID, &a.CreatedAt)
	if isUniqueViolation(err) {
		return database.ErrAccountExists
	}
	if err != nil {
		return fmt.Errorf("create account: %w", err)
	}
	return nil
}

// SetFaceFilename records the reference photo of an account
func (r *AccountRepository) SetFaceFilename(ctx context.Context, username, filename string) error {
	result, err := r.pool.Exec(ctx, `UPDATE accounts SET face_filename = $1 WHERE username = $2`, filename, username)
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
