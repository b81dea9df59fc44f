// Command downloader ingests nflverse team stats into a local SQLite store.
//
// Usage:
//
//	downloader --db nfl_stats.db
//	downloader --db nfl_stats.db --years 2022,2023
//	downloader --db nfl_stats.db 2021 2022 --github-token $GITHUB_TOKEN
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nflstats/internal/catalog"
	"nflstats/internal/client"
	"nflstats/internal/config"
	"nflstats/internal/pipeline"
	"nflstats/internal/repository"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type options struct {
	dbPath      string
	years       []int
	githubToken string
	workers     int
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
		Use:          "downloader [years...]",
		Short:        "Download nflverse team stats into a SQLite store",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			extra, err := parseYears(args)
			if err != nil {
				return err
			}
			opts.years = append(opts.years, extra...)

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := applyFlags(cmd, cfg, opts); err != nil {
				return err
			}

			return run(cmd.Context(), cfg, opts.years, cmd.OutOrStdout())
		},
	}

	cmd.Flags().StringVar(&opts.dbPath, "db", "", "destination SQLite store (or NFLSTATS_DB)")
	cmd.Flags().IntSliceVar(&opts.years, "years", nil, "seasons to ingest (default: every published season)")
	cmd.Flags().StringVar(&opts.githubToken, "github-token", "", "GitHub token for a higher rate limit (or GITHUB_TOKEN)")
	cmd.Flags().IntVar(&opts.workers, "workers", 0, "concurrent prefetches (or FETCH_WORKERS)")

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
	if flags.Changed("github-token") {
		cfg.GitHubToken = opts.githubToken
	}
	if flags.Changed("workers") {
		cfg.FetchWorkers = opts.workers
	}

	return cfg.Validate()
}

func parseYears(args []string) ([]int, error) {
	years := make([]int, 0, len(args))
	for _, a := range args {
		y, err := strconv.Atoi(a)
		if err != nil {
			return nil, fmt.Errorf("invalid year %q", a)
		}
		years = append(years, y)
	}
	return years, nil
}

// run ingests years (empty = every season) and prints the run and store
// summaries. It fails on a store-open error or an aborted run.
func run(ctx context.Context, cfg *config.Config, years []int, out io.Writer) error {
	db, err := repository.NewDatabase(ctx, repository.Config{Path: cfg.DatabasePath})
	if err != nil {
		log.Error().Err(err).Str("path", cfg.DatabasePath).Msg("Failed to open store")
		return err
	}
	defer db.Close()

	cat := catalog.New(cfg.ReleaseBaseURL, cfg.EarliestSeason)
	fetcher := client.NewFetcher(cfg.GitHubToken, cfg.FetchTimeout)
	p := pipeline.New(cat, fetcher, db, cfg.FetchWorkers)

	summary, runErr := p.Run(ctx, years)
	printSummary(out, summary)

	if err := printStore(ctx, out, db); err != nil {
		log.Warn().Err(err).Msg("Failed to summarise store")
	}

	if runErr != nil {
		var limited *client.RateLimitedError
		if errors.As(runErr, &limited) {
			log.Error().
				Str("url", limited.URL).
				Str("reset", limited.Reset).
				Msg("Rate limited; rerun later or pass --github-token")
		}
		return runErr
	}
	return nil
}

func printSummary(out io.Writer, s *pipeline.Summary) {
	if s == nil {
		return
	}
	fmt.Fprintf(out, "Ingestion summary: %s\n", s)
	if len(s.Failures) > 0 {
		fmt.Fprintln(out, "Failures:")
		for _, f := range s.Failures {
			fmt.Fprintf(out, "  %s\n", f)
		}
	}
}

func printStore(ctx context.Context, out io.Writer, db *repository.Database) error {
	overview, err := db.Stats.Overview(ctx)
	if err != nil {
		return err
	}
	counts, err := db.Stats.SeasonCounts(ctx)
	if err != nil {
		return err
	}

	fmt.Fprintln(out, "\nStore contents:")
	if len(overview) == 0 {
		fmt.Fprintln(out, "  (empty)")
		return nil
	}
	for _, o := range overview {
		fmt.Fprintf(out, "  %s: %d records, %d teams, seasons %d-%d\n",
			o.SeasonType, o.TotalRecords, o.UniqueTeams, o.EarliestSeason, o.LatestSeason)
	}

	fmt.Fprintln(out, "\nTeams per season:")
	for _, c := range counts {
		fmt.Fprintf(out, "  %d %s: %d\n", c.Season, c.SeasonType, c.Teams)
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
