package database

import (
	"context"
	"errors"
)

var (
	// ErrAccountExists is returned when creating an account whose username is taken.
	ErrAccountExists = errors.New("username already exists")
	// ErrAccountNotFound is returned when no account matches the lookup.
	ErrAccountNotFound = errors.New("account not found")
)

// AccountReader provides read-only access to accounts
type AccountReader interface {
	// Exists checks if an account with the username is registered
	Exists(ctx context.Context, username string) (bool, error)
	// GetByUsername retrieves an account, returns ErrAccountNotFound if missing
	GetByUsername(ctx context.Context, username string) (*Account, error)
	// Count returns the total number of accounts
	Count(ctx context.Context) (int, error)
	// List returns all accounts ordered by creation
	List(ctx context.Context) ([]Account, error)
}

// AccountWriter provides write access to accounts
type AccountWriter interface {
	AccountReader

	// Create stores a new account and fills in its ID and CreatedAt.
	// Returns ErrAccountExists when the username is taken.
	Create(ctx context.Context, account *Account) error

	// SetFaceFilename records the reference photo of an account
	SetFaceFilename(ctx context.Context, username, filename string) error
}

// SessionRepository persists login sessions
type SessionRepository interface {
	// Save stores or replaces a session
	Save(ctx context.Context, s StoredSession) error
	// Get retrieves a session by ID, returns nil if not found or expired
	Get(ctx context.Context, sessionID string) (*StoredSession, error)
	// Delete removes a session
	Delete(ctx context.Context, sessionID string) error
	// DeleteExpired removes all expired sessions and returns the count deleted
	DeleteExpired(ctx context.Context) (int64, error)
}

// Store is an opened database backend.
type Store interface {
	Accounts() AccountWriter
	Sessions() SessionRepository
	Close() error
}
