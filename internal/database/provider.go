package database

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/kozaktomas/spyhole/internal/config"
)

// Backend names
const (
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
)

// Opener opens a backend and applies its migrations.
type Opener func(ctx context.Context, cfg *config.DatabaseConfig) (Store, error)

var (
	backends   = make(map[string]Opener)
	backendsMu sync.RWMutex
)

// RegisterBackend registers a backend constructor.
// This is called by the backend packages to avoid import cycles.
func RegisterBackend(name string, open Opener) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = open
}

// Backends returns the registered backend names.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BackendFor picks postgres for postgres:// URLs and SQLite for anything else.
func BackendFor(cfg *config.DatabaseConfig) string {
	if cfg.IsPostgres() {
		return BackendPostgres
	}
	return BackendSQLite
}

// Open opens the backend selected by cfg.URL.
func Open(ctx context.Context, cfg *config.DatabaseConfig) (Store, error) {
	name := BackendFor(cfg)

	backendsMu.RLock()
	open, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("database backend %q not registered", name)
	}

	store, err := open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", name, err)
	}
	return store, nil
}
