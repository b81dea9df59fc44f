package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"nflstats/internal/metrics"
	"nflstats/internal/models"
)

// LedgerRepository handles download_log operations
type LedgerRepository struct {
	db *Database
}

// ShouldSkip reports whether sourceID was already ingested with checksum
func (r *LedgerRepository) ShouldSkip(ctx context.Context, sourceID, checksum string) (bool, error) {
	start := time.Now()

	var stored string
	err := r.db.DB.QueryRowContext(ctx,
		`SELECT checksum FROM download_log WHERE source_id = ?`, sourceID,
	).Scan(&stored)

	if errors.Is(err, sql.ErrNoRows) {
		metrics.RecordDBQuery("select", "download_log", "miss", time.Since(start).Seconds())
		return false, nil
	}
	if err != nil {
		metrics.RecordDBQuery("select", "download_log", "error", time.Since(start).Seconds())
		return false, fmt.Errorf("failed to look up ledger entry: %w", err)
	}

	metrics.RecordDBQuery("select", "download_log", "success", time.Since(start).Seconds())
	return stored == checksum, nil
}

// Get retrieves the ledger entry for sourceID
func (r *LedgerRepository) Get(ctx context.Context, sourceID string) (*models.LedgerEntry, error) {
	row := r.db.DB.QueryRowContext(ctx, `
		SELECT source_id, season, season_type, checksum, row_count, ingested_at
		FROM download_log
		WHERE source_id = ?`, sourceID)

	entry, err := scanLedgerEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %s: %w", sourceID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ledger entry: %w", err)
	}
	return entry, nil
}

// List returns every ledger entry ordered by season, REG before POST
func (r *LedgerRepository) List(ctx context.Context) ([]*models.LedgerEntry, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT source_id, season, season_type, checksum, row_count, ingested_at
		FROM download_log
		ORDER BY season, season_type DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*models.LedgerEntry
	for rows.Next() {
		entry, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating ledger entries: %w", err)
	}

	return entries, nil
}

// Count returns the number of ledger entries
func (r *LedgerRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM download_log`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count ledger entries: %w", err)
	}
	return n, nil
}

// recordTx creates or overwrites the entry for entry.SourceID
func (r *LedgerRepository) recordTx(ctx context.Context, tx *sql.Tx, entry models.LedgerEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO download_log (source_id, season, season_type, checksum, row_count, ingested_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (source_id) DO UPDATE SET
			season = excluded.season,
			season_type = excluded.season_type,
			checksum = excluded.checksum,
			row_count = excluded.row_count,
			ingested_at = excluded.ingested_at`,
		entry.SourceID, entry.Season, string(entry.SeasonType), entry.Checksum, entry.RowCount,
		entry.IngestedAt.UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("failed to record ledger entry: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLedgerEntry(s rowScanner) (*models.LedgerEntry, error) {
	var (
		entry      models.LedgerEntry
		seasonType string
		ingestedAt string
	)
	if err := s.Scan(&entry.SourceID, &entry.Season, &seasonType, &entry.Checksum, &entry.RowCount, &ingestedAt); err != nil {
		return nil, err
	}
	entry.SeasonType = models.SeasonType(seasonType)

	t, err := time.Parse(time.RFC3339Nano, ingestedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid ingested_at %q: %w", ingestedAt, err)
	}
	entry.IngestedAt = t
	return &entry, nil
}
