package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"nflstats/internal/config"
	"nflstats/internal/live"
	"nflstats/internal/metrics"
	"nflstats/internal/models"
	"nflstats/internal/pipeline"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// ErrSyncInProgress is returned when a sync is requested while one runs
var ErrSyncInProgress = errors.New("sync already in progress")

// Ingester runs the ingestion pipeline
type Ingester interface {
	Run(ctx context.Context, years []int) (*pipeline.Summary, error)
}

// LiveSource refreshes the live scoreboard
type LiveSource interface {
	Refresh(ctx context.Context) (*models.Scoreboard, error)
}

// Broadcaster pushes encoded snapshots to live feed clients
type Broadcaster interface {
	Broadcast(data []byte)
}

// StoreReporter refreshes store size gauges after a sync
type StoreReporter interface {
	RefreshStoreStats(ctx context.Context) error
}

// Scheduler manages background tasks:
// - cron-scheduled re-ingestion of the full catalog
// - polling the live scoreboard and fanning snapshots out to the hub
type Scheduler struct {
	cfg      *config.Config
	ingester Ingester
	live     LiveSource
	hub      Broadcaster
	store    StoreReporter

	cron     *cron.Cron
	ticker   *time.Ticker
	stopChan chan struct{}
	running  atomic.Bool

	now func() time.Time
}

// NewScheduler creates a new scheduler instance. live, hub and store may be nil.
func NewScheduler(cfg *config.Config, ingester Ingester, live LiveSource, hub Broadcaster, store StoreReporter) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		ingester: ingester,
		live:     live,
		hub:      hub,
		store:    store,
		cron:     cron.New(),
		stopChan: make(chan struct{}),
		now:      time.Now,
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.RefreshCron, func() {
		log.Info().Msg("Running scheduled refresh...")
		if _, err := s.RunSync(ctx, "cron"); err != nil {
			log.Error().Err(err).Msg("Scheduled refresh failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule", s.cfg.RefreshCron).
		Msg("Catalog refresh scheduled")

	if s.live != nil && s.cfg.LivePollInterval > 0 {
		s.ticker = time.NewTicker(s.cfg.LivePollInterval)
		log.Info().
			Dur("interval", s.cfg.LivePollInterval).
			Msg("Live scoreboard polling started")

		go s.pollLive(ctx)
	}

	return nil
}

// Stop stops the scheduler. It waits for a running cron job to return.
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")

	if s.cron != nil {
		<-s.cron.Stop().Done()
	}

	if s.ticker != nil {
		s.ticker.Stop()
	}

	close(s.stopChan)
	log.Info().Msg("Scheduler stopped")
}

// Running reports whether a sync is in progress
func (s *Scheduler) Running() bool {
	return s.running.Load()
}

// RunSync ingests the full catalog once. trigger labels the sync metrics.
// A sync requested while another is running returns ErrSyncInProgress.
func (s *Scheduler) RunSync(ctx context.Context, trigger string) (*pipeline.Summary, error) {
	if !s.running.CompareAndSwap(false, true) {
		log.Warn().Str("trigger", trigger).Msg("Sync already in progress, skipping")
		return nil, ErrSyncInProgress
	}
	defer s.running.Store(false)

	start := time.Now()
	summary, err := s.ingester.Run(ctx, nil)

	status := "success"
	if err != nil {
		status = "aborted"
	}
	metrics.RecordSync(trigger, status, time.Since(start).Seconds())

	if s.store != nil {
		if serr := s.store.RefreshStoreStats(ctx); serr != nil {
			log.Warn().Err(serr).Msg("Failed to refresh store stats")
		}
	}

	if summary != nil {
		log.Info().
			Str("trigger", trigger).
			Str("summary", summary.String()).
			Msg("Sync complete")
	}

	return summary, err
}

func (s *Scheduler) pollLive(ctx context.Context) {
	// Prime the feed without waiting a full interval
	if err := s.refreshLive(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to refresh live scoreboard")
	}

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Context cancelled, stopping live polling")
			return
		case <-s.stopChan:
			log.Info().Msg("Stop signal received, stopping live polling")
			return
		case <-s.ticker.C:
			if err := s.refreshLive(ctx); err != nil {
				log.Error().Err(err).Msg("Failed to refresh live scoreboard")
			}
		}
	}
}

// refreshLive re-fetches the scoreboard and broadcasts a snapshot
func (s *Scheduler) refreshLive(ctx context.Context) error {
	sb, err := s.live.Refresh(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh scoreboard: %w", err)
	}

	if s.hub == nil {
		return nil
	}

	data, err := json.Marshal(live.NewSnapshot(sb, s.now()))
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}
	s.hub.Broadcast(data)
	return nil
}
