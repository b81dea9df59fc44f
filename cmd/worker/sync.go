package main

import (
	"context"
	"errors"

	"nflstats/internal/scheduler"

	"github.com/rs/zerolog/log"
)

// runInitialSync ingests the full catalog once at startup. The ledger makes
// this cheap when the store is already current.
func runInitialSync(ctx context.Context, sched *scheduler.Scheduler) {
	log.Info().Msg("Running initial data sync...")

	summary, err := sched.RunSync(ctx, "startup")
	switch {
	case errors.Is(err, scheduler.ErrSyncInProgress):
		return
	case err != nil:
		log.Error().Err(err).Msg("Initial sync failed, continuing anyway...")
		return
	}

	log.Info().
		Int("succeeded", summary.Succeeded).
		Int("skipped_unchanged", summary.SkippedUnchanged).
		Int("failed", summary.Failed).
		Msg("Initial sync completed")
}
