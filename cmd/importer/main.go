// Command importer loads historical play-by-play and scores CSV files into
// the plays and games tables of the store.
//
// Usage:
//
//	importer --db nfl_stats.db --stats-dir nfl_stats
//	importer --db nfl_stats.db --summary-only
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nflstats/internal/config"
	"nflstats/internal/importer"
	"nflstats/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	dbPath      string
	statsDir    string
	summaryOnly bool
}

func main() {
	setupLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts options

	cmd := &cobra.Command{
		Use:          "importer",
		Short:        "Import play-by-play and scores CSV files into a SQLite store",
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg, opts); err != nil {
				return err
			}
			return run(cmd.Context(), cfg, opts.summaryOnly, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "destination SQLite store (or NFLSTATS_DB)")
	cmd.Flags().StringVar(&opts.statsDir, "stats-dir", "", "directory holding *plays*.csv and *scores*.csv files (or HISTORY_DIR)")
	cmd.Flags().BoolVar(&opts.summaryOnly, "summary-only", false, "print what the store holds without importing")

	return cmd
}

// applyFlags overlays explicitly set flags on the environment config
func applyFlags(cmd *cobra.Command, cfg *config.Config, opts options) error {
	flags := cmd.Flags()

	if flags.Changed("db") {
		cfg.DatabasePath = opts.dbPath
	} else if _, ok := os.LookupEnv("NFLSTATS_DB"); !ok {
		return errors.New("--db is required")
	}
	if flags.Changed("stats-dir") {
		cfg.HistoryDir = opts.statsDir
	}
	if cfg.HistoryDir == "" && !opts.summaryOnly {
		return errors.New("--stats-dir must not be empty")
	}

	return nil
}

// run imports cfg.HistoryDir unless summaryOnly, then prints the store
// summary. Files that fail are listed but do not fail the command.
func run(ctx context.Context, cfg *config.Config, summaryOnly bool, out io.Writer) error {
	db, err := repository.NewDatabase(ctx, repository.Config{Path: cfg.DatabasePath})
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open store")
		return err
	}
	defer db.Close()

	if !summaryOnly {
		summary, err := importer.New(db.History).ImportDir(ctx, cfg.HistoryDir)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "Import summary: %s\n", summary)
		for _, name := range summary.Unknown {
			fmt.Fprintf(out, "  skipped %s (unknown file type)\n", name)
		}
		if len(summary.Failures) > 0 {
			fmt.Fprintln(out, "Failures:")
			for _, f := range summary.Failures {
				fmt.Fprintf(out, "  %s\n", f)
			}
		}
	}

	return printStore(ctx, out, db)
}

func printStore(ctx context.Context, out io.Writer, db *repository.Database) error {
	plays, err := db.History.PlaysOverview(ctx)
	if err != nil {
		return err
	}
	games, err := db.History.GamesOverview(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nPlays:")
	fmt.Fprintf(out, "  Total plays: %d\n", plays.TotalPlays)
	if plays.TotalPlays > 0 {
		fmt.Fprintf(out, "  Seasons: %d (%d-%d)\n", plays.Seasons, plays.EarliestSeason, plays.LatestSeason)
		fmt.Fprintf(out, "  Unique games: %d\n", plays.UniqueGames)
	}

	fmt.Fprintln(out, "\nGames:")
	fmt.Fprintf(out, "  Total games: %d\n", games.TotalGames)
	if games.TotalGames > 0 {
		fmt.Fprintf(out, "  Seasons: %d (%d-%d)\n", games.Seasons, games.EarliestSeason, games.LatestSeason)
		fmt.Fprintf(out, "  Playoff games: %d\n", games.PlayoffGames)
	}
	return nil
}

// setupLogger configures the zerolog logger
func setupLogger() {
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		if parsed, err := zerolog.ParseLevel(lvl); err == nil {
			level = parsed
		}
	}
	zerolog.SetGlobalLevel(level)
}
