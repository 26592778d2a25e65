package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/kozaktomas/spyhole/internal/database"
)

// SessionRepository provides SQLite-backed session storage
type SessionRepository struct {
	db *sql.DB
}

func (r *SessionRepository) Save(ctx context.Context, s database.StoredSession) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO sessions (id, account_id, username, role, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			account_id = excluded.account_id,
			username = excluded.username,
			role = excluded.role,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at
	`, s.ID, s.AccountID, s.Username, s.Role, unix(s.CreatedAt), unix(s.ExpiresAt))
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

func (r *SessionRepository) Get(ctx context.Context, sessionID string) (*database.StoredSession, error) {
	var s database.StoredSession
	var created, expires int64
	err := r.db.QueryRowContext(ctx, `
		SELECT id, account_id, username, role, created_at, expires_at
		FROM sessions
		WHERE id = ? AND expires_at > ?
	`, sessionID, unix(time.Now())).Scan(&s.ID, &s.AccountID, &s.Username, &s.Role, &created, &expires)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	s.CreatedAt = fromUnix(created)
	s.ExpiresAt = fromUnix(expires)
	return &s, nil
}

func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, sessionID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE expires_at <= ?`, unix(time.Now()))
	if err != nil {
		return 0, fmt.Errorf("delete expired sessions: %w", err)
	}
	count, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("getting rows affected: %w", err)
	}
	return count, nil
}
