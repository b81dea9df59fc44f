package repository

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"nflstats/internal/metrics"

	"github.com/rs/zerolog/log"
	_ "modernc.org/sqlite"
)

const sqliteDriverName = "sqlite"

// Database holds the store handles and provides access to repositories
type Database struct {
	DB *sql.DB

	// readOnly is a query_only handle for caller-supplied SQL
	readOnly *sql.DB

	// writeMu makes this process the single writer of the store
	writeMu sync.Mutex

	path string

	// Repositories
	Stats   *StatsRepository
	Ledger  *LedgerRepository
	History *HistoryRepository
}

// Config holds database configuration
type Config struct {
	Path        string
	BusyTimeout time.Duration
}

// NewDatabase opens (creating if needed) the single-file store, applies the
// schema and initializes repositories
func NewDatabase(ctx context.Context, cfg Config) (*Database, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, fmt.Errorf("database path must not be empty")
	}
	if info, err := os.Stat(path); err == nil && info.IsDir() {
		return nil, fmt.Errorf("database path %q is a directory, expected file", path)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory %q: %w", dir, err)
		}
	}

	busy := cfg.BusyTimeout
	if busy <= 0 {
		busy = 5 * time.Second
	}

	writeDSN := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=journal_mode(WAL)&_pragma=synchronous(NORMAL)",
		path, busy.Milliseconds())
	db, err := sql.Open(sqliteDriverName, writeDSN)
	if err != nil {
		return nil, fmt.Errorf("failed to open database %q: %w", path, err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := migrate(ctx, db); err != nil {
		_ = db.Close()
		return nil, err
	}

	readDSN := fmt.Sprintf("file:%s?_pragma=busy_timeout(%d)&_pragma=query_only(1)", path, busy.Milliseconds())
	ro, err := sql.Open(sqliteDriverName, readDSN)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to open read-only handle: %w", err)
	}
	ro.SetMaxOpenConns(2)

	log.Info().
		Str("path", path).
		Msg("Successfully opened database")

	d := &Database{
		DB:       db,
		readOnly: ro,
		path:     path,
	}

	// Initialize repositories
	d.Stats = &StatsRepository{db: d}
	d.Ledger = &LedgerRepository{db: d}
	d.History = &HistoryRepository{db: d}

	return d, nil
}

// Path returns the store file path
func (d *Database) Path() string {
	return d.path
}

// Close closes both handles
func (d *Database) Close() {
	if d.readOnly != nil {
		_ = d.readOnly.Close()
	}
	if d.DB != nil {
		if err := d.DB.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
			return
		}
		log.Info().Msg("Database closed")
	}
}

// Health checks if the database is healthy
func (d *Database) Health(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := d.DB.PingContext(ctx); err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	return nil
}

// PoolStats returns connection statistics
func (d *Database) PoolStats() map[string]interface{} {
	stat := d.DB.Stats()
	return map[string]interface{}{
		"open_conns": stat.OpenConnections,
		"in_use":     stat.InUse,
		"idle_conns": stat.Idle,
		"max_conns":  stat.MaxOpenConnections,
		"wait_count": stat.WaitCount,
	}
}

// withWriteTx runs fn in a transaction while holding the single-writer lock.
// fn's error rolls the transaction back.
func (d *Database) withWriteTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	d.writeMu.Lock()
	defer d.writeMu.Unlock()

	tx, err := d.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// RefreshStoreStats updates the row and ledger gauges
func (d *Database) RefreshStoreStats(ctx context.Context) error {
	rows, err := d.Stats.Count(ctx)
	if err != nil {
		return err
	}
	entries, err := d.Ledger.Count(ctx)
	if err != nil {
		return err
	}
	metrics.UpdateStoreStats(rows, entries)
	return nil
}
