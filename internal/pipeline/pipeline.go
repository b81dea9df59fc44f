// Package pipeline drives fetch, checksum, parse and commit for every catalog
// unit and reports what happened to each.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"nflstats/internal/catalog"
	"nflstats/internal/client"
	"nflstats/internal/metrics"
	"nflstats/internal/models"
	"nflstats/internal/parser"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Fetcher downloads one remote file
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Store is the ledger lookup and the atomic per-unit write
type Store interface {
	ShouldSkip(ctx context.Context, sourceID, checksum string) (bool, error)
	CommitUnit(ctx context.Context, entry models.LedgerEntry, rows []models.StatRow) (int, error)
}

// Outcome is the final state of one unit within a run
type Outcome string

const (
	OutcomeSucceeded        Outcome = "succeeded"
	OutcomeSkippedNotFound  Outcome = "skipped_not_found"
	OutcomeSkippedUnchanged Outcome = "skipped_unchanged"
	OutcomeFailed           Outcome = "failed"
)

// Stage names where a unit failed
const (
	StageFetch  = "fetch"
	StageLedger = "ledger"
	StageParse  = "parse"
	StageWrite  = "write"
)

// UnitFailure records a unit that was attempted and not written
type UnitFailure struct {
	Unit  catalog.Unit
	Stage string
	Err   error
}

func (f UnitFailure) String() string {
	return fmt.Sprintf("%s (%s): %s: %v", f.Unit, f.Unit.SourceID(), f.Stage, f.Err)
}

// Summary is the per-run report
type Summary struct {
	Succeeded        int
	SkippedNotFound  int
	SkippedUnchanged int
	Failed           int
	RowsWritten      int
	Failures         []UnitFailure

	// Aborted is set when the run stopped before visiting every unit
	Aborted  bool
	Duration time.Duration
}

// Attempted is the number of units that reached an outcome
func (s *Summary) Attempted() int {
	return s.Succeeded + s.SkippedNotFound + s.SkippedUnchanged + s.Failed
}

func (s *Summary) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "succeeded=%d skipped_not_found=%d skipped_unchanged=%d failed=%d rows_written=%d duration=%s",
		s.Succeeded, s.SkippedNotFound, s.SkippedUnchanged, s.Failed, s.RowsWritten, s.Duration.Round(time.Millisecond))
	if s.Aborted {
		b.WriteString(" aborted=true")
	}
	return b.String()
}

func (s *Summary) record(u catalog.Unit, outcome Outcome, rows int) {
	switch outcome {
	case OutcomeSucceeded:
		s.Succeeded++
		s.RowsWritten += rows
	case OutcomeSkippedNotFound:
		s.SkippedNotFound++
	case OutcomeSkippedUnchanged:
		s.SkippedUnchanged++
	case OutcomeFailed:
		s.Failed++
	}
	metrics.RecordUnit(string(u.Kind), string(outcome))
}

// Checksum fingerprints raw fetched bytes
func Checksum(data []byte) string {
	sum := sha256.Sum256(data)
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Pipeline ingests catalog units into a store
type Pipeline struct {
	Catalog *catalog.Catalog
	Fetcher Fetcher
	Store   Store

	// Workers bounds concurrent prefetches. Parsing and committing always
	// happen one unit at a time in catalog order.
	Workers int

	// Now is overridable for tests
	Now func() time.Time
}

// New creates a pipeline
func New(cat *catalog.Catalog, fetcher Fetcher, store Store, workers int) *Pipeline {
	return &Pipeline{
		Catalog: cat,
		Fetcher: fetcher,
		Store:   store,
		Workers: workers,
		Now:     time.Now,
	}
}

type fetched struct {
	body []byte
	err  error
}

// Run visits every unit for years (empty = full catalog range). Per-unit
// failures are recorded in the summary and do not stop the run. A rate
// limit stops scheduling further units; the summary so far is returned
// along with the *client.RateLimitedError. Context cancellation likewise
// returns the partial summary with the context error.
func (p *Pipeline) Run(ctx context.Context, years []int) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}

	units := slices.Collect(p.Catalog.Units(years))
	if len(units) == 0 {
		return summary, nil
	}

	log.Info().
		Int("units", len(units)).
		Int("first_year", units[0].Year).
		Int("last_year", units[len(units)-1].Year).
		Int("workers", p.workers()).
		Msg("Starting ingestion run")

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make([]chan fetched, len(units))
	for i := range results {
		results[i] = make(chan fetched, 1)
	}

	g, gctx := errgroup.WithContext(runCtx)
	g.SetLimit(p.workers())

	scheduled := make(chan struct{})
	go func() {
		defer close(scheduled)
		for i, u := range units {
			if gctx.Err() != nil {
				return
			}
			g.Go(func() error {
				body, err := p.Fetcher.Fetch(gctx, p.Catalog.URL(u))
				results[i] <- fetched{body: body, err: err}
				return nil
			})
		}
	}()

	var runErr error
	for i, u := range units {
		var res fetched
		select {
		case res = <-results[i]:
		case <-runCtx.Done():
		}
		if err := ctx.Err(); err != nil {
			runErr = err
			break
		}

		if res.err != nil {
			var rl *client.RateLimitedError
			if errors.As(res.err, &rl) {
				log.Error().
					Err(res.err).
					Str("unit", u.String()).
					Str("reset", rl.Reset).
					Msg("Rate limited, aborting run")
				outcome, rows, failure := p.fail(u, StageFetch, res.err)
				summary.record(u, outcome, rows)
				summary.Failures = append(summary.Failures, *failure)
				runErr = fmt.Errorf("run aborted at %s: %w", u.SourceID(), res.err)
				break
			}
		}

		outcome, rows, failure := p.processUnit(ctx, u, res)
		summary.record(u, outcome, rows)
		if failure != nil {
			summary.Failures = append(summary.Failures, *failure)
		}
	}

	cancel()
	<-scheduled
	_ = g.Wait()

	if runErr != nil {
		summary.Aborted = true
	}
	summary.Duration = time.Since(start)

	log.Info().
		Int("succeeded", summary.Succeeded).
		Int("skipped_not_found", summary.SkippedNotFound).
		Int("skipped_unchanged", summary.SkippedUnchanged).
		Int("failed", summary.Failed).
		Int("rows_written", summary.RowsWritten).
		Bool("aborted", summary.Aborted).
		Dur("duration", summary.Duration).
		Msg("Ingestion run finished")

	return summary, runErr
}

// processUnit takes one fetched unit to its outcome. Rate limits are handled
// by the caller before this point.
func (p *Pipeline) processUnit(ctx context.Context, u catalog.Unit, res fetched) (Outcome, int, *UnitFailure) {
	sourceID := u.SourceID()

	if res.err != nil {
		if errors.Is(res.err, client.ErrNotFound) {
			log.Warn().
				Str("unit", u.String()).
				Str("source", sourceID).
				Msg("Remote file not published, skipping")
			return OutcomeSkippedNotFound, 0, nil
		}
		return p.fail(u, StageFetch, res.err)
	}

	checksum := Checksum(res.body)

	skip, err := p.Store.ShouldSkip(ctx, sourceID, checksum)
	if err != nil {
		return p.fail(u, StageLedger, err)
	}
	if skip {
		log.Debug().
			Str("unit", u.String()).
			Str("checksum", checksum).
			Msg("Unchanged since last ingestion, skipping")
		return OutcomeSkippedUnchanged, 0, nil
	}

	rows, err := parser.Parse(res.body, u.Year, u.Kind)
	if err != nil {
		return p.fail(u, StageParse, err)
	}

	entry := models.LedgerEntry{
		SourceID:   sourceID,
		Season:     u.Year,
		SeasonType: u.Kind,
		Checksum:   checksum,
		IngestedAt: p.now().UTC(),
	}
	written, err := p.Store.CommitUnit(ctx, entry, rows)
	if err != nil {
		return p.fail(u, StageWrite, err)
	}

	log.Info().
		Str("unit", u.String()).
		Int("rows", written).
		Str("checksum", checksum).
		Msg("Unit ingested")

	return OutcomeSucceeded, written, nil
}

func (p *Pipeline) fail(u catalog.Unit, stage string, err error) (Outcome, int, *UnitFailure) {
	log.Error().
		Err(err).
		Str("unit", u.String()).
		Str("stage", stage).
		Msg("Unit failed")
	metrics.RecordError("pipeline", stage)
	return OutcomeFailed, 0, &UnitFailure{Unit: u, Stage: stage, Err: err}
}

func (p *Pipeline) workers() int {
	if p.Workers < 1 {
		return 1
	}
	return p.Workers
}

func (p *Pipeline) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}
