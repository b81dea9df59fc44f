package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"nflstats/internal/metrics"
	"nflstats/internal/models"

	"github.com/rs/zerolog/log"
)

// CommitUnit writes one source file's rows and its ledger entry in a single
// transaction: stale keys of the file's (season, season_type) are pruned,
// every row is fully replaced, then the ledger entry is created or
// overwritten. On any failure nothing is kept and a *WriteError is returned.
func (d *Database) CommitUnit(ctx context.Context, entry models.LedgerEntry, rows []models.StatRow) (int, error) {
	start := time.Now()

	entry.RowCount = len(rows)
	if entry.IngestedAt.IsZero() {
		entry.IngestedAt = time.Now().UTC()
	}

	// Every row must belong to the entry's key space, or the prune would
	// empty it while the rows landed under another file's ledger entry
	teams := make([]string, 0, len(rows))
	for _, r := range rows {
		if r.Season != entry.Season || r.SeasonType != entry.SeasonType {
			metrics.RecordDBQuery("commit_unit", "team_stats", "error", time.Since(start).Seconds())
			return 0, &WriteError{SourceID: entry.SourceID, Err: fmt.Errorf("%w: %s outside %d %s", ErrForeignRow, r.Key(), entry.Season, entry.SeasonType)}
		}
		teams = append(teams, r.Team)
	}

	var (
		written int
		pruned  int64
	)
	err := d.withWriteTx(ctx, func(tx *sql.Tx) error {
		var err error
		if pruned, err = d.Stats.pruneTx(ctx, tx, entry.Season, entry.SeasonType, teams); err != nil {
			return err
		}
		if written, err = d.Stats.upsertTx(ctx, tx, rows); err != nil {
			return err
		}
		return d.Ledger.recordTx(ctx, tx, entry)
	})
	if err != nil {
		metrics.RecordDBQuery("commit_unit", "team_stats", "error", time.Since(start).Seconds())
		return 0, &WriteError{SourceID: entry.SourceID, Err: err}
	}

	metrics.RecordDBQuery("commit_unit", "team_stats", "success", time.Since(start).Seconds())

	log.Debug().
		Str("source", entry.SourceID).
		Int("written", written).
		Int64("pruned", pruned).
		Dur("duration", time.Since(start)).
		Msg("Unit committed")

	return written, nil
}

// ShouldSkip reports whether the source was already ingested with the same
// checksum
func (d *Database) ShouldSkip(ctx context.Context, sourceID, checksum string) (bool, error) {
	return d.Ledger.ShouldSkip(ctx, sourceID, checksum)
}
