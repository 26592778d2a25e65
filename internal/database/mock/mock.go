// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/spyhole/internal/database"
)

// MockAccountStore is an in-memory implementation of database.AccountWriter
type MockAccountStore struct {
	mu       sync.RWMutex
	accounts map[string]*database.Account
	nextID   int64

	// Error injection
	ExistsError error
	GetError    error
	CreateError error
	ListError   error
}

// NewMockAccountStore creates a new mock account store
func NewMockAccountStore() *MockAccountStore {
	return &MockAccountStore{
		accounts: make(map[string]*database.Account),
	}
}

// AddAccount adds an account to the mock store directly
func (m *MockAccountStore) AddAccount(a database.Account) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	if a.ID == 0 {
		a.ID = m.nextID
	}
	m.accounts[a.Username] = &a
}

func (m *MockAccountStore) Exists(ctx context.Context, username string) (bool, error) {
	if m.ExistsError != nil {
		return false, m.ExistsError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.accounts[username]
	return ok, nil
}

func (m *MockAccountStore) GetByUsername(ctx context.Context, username string) (*database.Account, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.accounts[username]
	if !ok {
		return nil, database.ErrAccountNotFound
	}
	out := *a
	return &out, nil
}

func (m *MockAccountStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.accounts), nil
}

func (m *MockAccountStore) List(ctx context.Context) ([]database.Account, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]database.Account, 0, len(m.accounts))
	for _, a := range m.accounts {
		out = append(out, *a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MockAccountStore) Create(ctx context.Context, a *database.Account) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.accounts[a.Username]; ok {
		return database.ErrAccountExists
	}
	m.nextID++
	a.ID = m.nextID
	a.CreatedAt = time.Now()
	stored := *a
	m.accounts[a.Username] = &stored
	return nil
}

func (m *MockAccountStore) SetFaceFilename(ctx context.Context, username, filename string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.accounts[username]
	if !ok {
		return database.ErrAccountNotFound
	}
	a.FaceFilename = filename
	return nil
}

// MockSessionRepository is an in-memory implementation of database.SessionRepository
type MockSessionRepository struct {
	mu       sync.RWMutex
	sessions map[string]database.StoredSession

	// Error injection
	SaveError error
	GetError  error
}

// NewMockSessionRepository creates a new mock session repository
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{
		sessions: make(map[string]database.StoredSession),
	}
}

func (m *MockSessionRepository) Save(ctx context.Context, s database.StoredSession) error {
	if m.SaveError != nil {
		return m.SaveError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MockSessionRepository) Get(ctx context.Context, sessionID string) (*database.StoredSession, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[sessionID]
	if !ok || !time.Now().Before(s.ExpiresAt) {
		return nil, nil
	}
	return &s, nil
}

func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

func (m *MockSessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	now := time.Now()
	for id, s := range m.sessions {
		if !now.Before(s.ExpiresAt) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored sessions, expired included
func (m *MockSessionRepository) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// MockStore bundles the mock repositories as a database.Store
type MockStore struct {
	AccountStore *MockAccountStore
	SessionStore *MockSessionRepository
	closed       bool
}

// NewMockStore creates a store with empty mock repositories
func NewMockStore() *MockStore {
	return &MockStore{
		AccountStore: NewMockAccountStore(),
		SessionStore: NewMockSessionRepository(),
	}
}

func (m *MockStore) Accounts() database.AccountWriter     { return m.AccountStore }
func (m *MockStore) Sessions() database.SessionRepository { return m.SessionStore }

func (m *MockStore) Close() error {
	m.closed = true
	return nil
}

// Closed reports whether Close was called
func (m *MockStore) Closed() bool {
	return m.closed
}
