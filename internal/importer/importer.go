// Package importer loads historical play-by-play and scores CSV files from a
// local directory into the plays and games tables.
package importer

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"nflstats/internal/metrics"
	"nflstats/internal/models"
	"nflstats/internal/parser"

	"github.com/rs/zerolog/log"
)

// Store receives parsed files. Each call is one transaction.
type Store interface {
	InsertPlays(ctx context.Context, plays []models.Play) (int, error)
	UpsertGames(ctx context.Context, games []models.GameResult) (int, error)
}

// FileFailure records a file that was read but not stored
type FileFailure struct {
	Name string
	Kind parser.FileKind
	Err  error
}

func (f FileFailure) String() string {
	return fmt.Sprintf("%s (%s): %v", f.Name, f.Kind, f.Err)
}

// Summary is the per-import report
type Summary struct {
	PlayFiles     int
	ScoreFiles    int
	PlaysInserted int
	GamesWritten  int
	Unknown       []string
	Failures      []FileFailure
	Duration      time.Duration
}

func (s *Summary) String() string {
	return fmt.Sprintf("play_files=%d score_files=%d plays_inserted=%d games_written=%d unknown=%d failed=%d duration=%s",
		s.PlayFiles, s.ScoreFiles, s.PlaysInserted, s.GamesWritten, len(s.Unknown), len(s.Failures),
		s.Duration.Round(time.Millisecond))
}

// Importer walks a stats directory
type Importer struct {
	store Store
}

// New creates an Importer writing to store
func New(store Store) *Importer {
	return &Importer{store: store}
}

// ImportDir imports every *.csv directly under dir: plays files first, then
// scores files, each group in name order. A file that fails to read, parse or
// store is recorded and the import moves on. The error is non-nil only when
// dir cannot be listed or ctx is done.
func (im *Importer) ImportDir(ctx context.Context, dir string) (*Summary, error) {
	start := time.Now()
	summary := &Summary{}
	defer func() { summary.Duration = time.Since(start) }()

	entries, err := os.ReadDir(dir)
	if err != nil {
		return summary, fmt.Errorf("failed to list stats directory %q: %w", dir, err)
	}

	var plays, scores []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		kind, ok := parser.Classify(e.Name())
		switch {
		case !ok:
			summary.Unknown = append(summary.Unknown, e.Name())
			log.Warn().Str("file", e.Name()).Msg("Unknown CSV file type, skipping")
		case kind == parser.KindPlays:
			plays = append(plays, e.Name())
		default:
			scores = append(scores, e.Name())
		}
	}
	sort.Strings(plays)
	sort.Strings(scores)
	summary.PlayFiles, summary.ScoreFiles = len(plays), len(scores)

	log.Info().
		Str("dir", dir).
		Int("play_files", len(plays)).
		Int("score_files", len(scores)).
		Msg("Starting historical import")

	for _, group := range []struct {
		kind  parser.FileKind
		names []string
	}{{parser.KindPlays, plays}, {parser.KindScores, scores}} {
		for _, name := range group.names {
			if err := ctx.Err(); err != nil {
				return summary, fmt.Errorf("import aborted at %s: %w", name, err)
			}

			n, err := im.importFile(ctx, filepath.Join(dir, name), group.kind)
			if err != nil {
				metrics.RecordImportFile(string(group.kind), "error")
				log.Error().Err(err).Str("file", name).Msg("Failed to import file")
				summary.Failures = append(summary.Failures, FileFailure{Name: name, Kind: group.kind, Err: err})
				continue
			}

			metrics.RecordImportFile(string(group.kind), "success")
			if group.kind == parser.KindPlays {
				summary.PlaysInserted += n
			} else {
				summary.GamesWritten += n
			}
			log.Info().Str("file", name).Int("rows", n).Msg("Imported file")
		}
	}

	summary.Duration = time.Since(start)
	log.Info().Str("summary", summary.String()).Msg("Historical import complete")
	return summary, nil
}

func (im *Importer) importFile(ctx context.Context, path string, kind parser.FileKind) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	if kind == parser.KindPlays {
		plays, err := parser.ParsePlays(data)
		if err != nil {
			return 0, err
		}
		return im.store.InsertPlays(ctx, plays)
	}

	games, err := parser.ParseScores(data)
	if err != nil {
		return 0, err
	}
	return im.store.UpsertGames(ctx, games)
}
