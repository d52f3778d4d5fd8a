// Package persistence implements Cortex's shared concerns for on-disk
// state: a process-wide SQLite connection-pool registry keyed by
// database path, and a POSIX advisory-locked flat-file update primitive.
// Every SQLite-backed component (cache, degradation, history, memory)
// opens its database through Open so all writers share one pool per path,
// keeping to a one-connection-pool-per-DB-path shared-resource
// policy.
package persistence

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"cortex/internal/logging"
)

var (
	registryMu sync.Mutex
	registry   = make(map[string]*sql.DB)
)

// DefaultMaxConnections bounds each pool; cross-process coordination
// is delegated to SQLite's WAL mode rather
// than an in-process semaphore, so this only bounds same-process
// concurrency.
const DefaultMaxConnections = 5

// BusyTimeoutMs is the PRAGMA busy_timeout applied to every pool,
// paired with the WAL/synchronous/foreign-keys pragma set below.
const BusyTimeoutMs = 5000

// Open returns the shared *sql.DB for path, opening and configuring it on
// first use. Safe for concurrent callers; idempotent per path.
func Open(path string) (*sql.DB, error) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if db, ok := registry[path]; ok {
		return db, nil
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	log := logging.Get(logging.CategoryPersistence)
	timer := logging.StartTimer(logging.CategoryPersistence, "Open")
	defer timer.Stop()

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %s: %w", path, err)
	}
	db.SetMaxOpenConns(DefaultMaxConnections)
	db.SetMaxIdleConns(DefaultMaxConnections)

	for _, pragma := range []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", BusyTimeoutMs),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			log.Warn("failed to apply %q on %s: %v", pragma, path, err)
		}
	}

	log.Debug("opened pool for %s", path)
	registry[path] = db
	return db, nil
}

// CloseAll closes every registered pool, for use at process shutdown.
func CloseAll() error {
	registryMu.Lock()
	defer registryMu.Unlock()

	var firstErr error
	for path, db := range registry {
		if err := db.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("failed to close %s: %w", path, err)
		}
		delete(registry, path)
	}
	return firstErr
}
