package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"nflstats/internal/api"
	"nflstats/internal/cache"
	"nflstats/internal/catalog"
	"nflstats/internal/client"
	"nflstats/internal/config"
	"nflstats/internal/live"
	"nflstats/internal/metrics"
	"nflstats/internal/pipeline"
	"nflstats/internal/repository"
	"nflstats/internal/scheduler"
	"nflstats/internal/tools"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	setupLogger()

	log.Info().Msg("Starting NFL team stats worker")

	cfg := config.MustLoad()
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Msg("Configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	db, err := repository.NewDatabase(ctx, repository.Config{Path: cfg.DatabasePath})
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open database")
	}
	defer db.Close()

	if err := db.RefreshStoreStats(ctx); err != nil {
		log.Warn().Err(err).Msg("Failed to read store stats")
	}

	// The live service takes the cache as an interface; only hand it a
	// connected one
	var scoreboardCache live.Cache
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cache.Config{
			Host:     cfg.RedisHost,
			Port:     strconv.Itoa(cfg.RedisPort),
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without cache")
		} else {
			defer redisCache.Close()
			scoreboardCache = redisCache
			log.Info().Msg("Redis cache connected")
		}
	}

	espn := client.NewScoreboardClient(cfg.ESPNScoreboardURL, cfg.ESPNTimeout)
	liveSvc := live.NewService(espn, scoreboardCache, cfg.LiveCacheTTL)

	registry := tools.NewRegistry()
	tools.RegisterStatsTools(registry, db)
	tools.RegisterHistoryTools(registry, db)
	tools.RegisterLiveTools(registry, liveSvc)
	log.Info().Int("tools", len(registry.Specs())).Msg("Tools registered")

	hub := api.NewHub()
	go hub.Run(ctx)

	server := api.NewServer(strconv.Itoa(cfg.ServerPort), registry, hub, db.Health)
	go func() {
		log.Info().Int("port", cfg.ServerPort).Msg("Starting tool server")
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("Tool server failed")
			cancel()
		}
	}()

	if cfg.EnableMetrics {
		go startMetricsServer(ctx, cfg.MetricsPort, db)
	}

	// Update system uptime metric
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
			case <-ctx.Done():
				return
			}
		}
	}()

	cat := catalog.New(cfg.ReleaseBaseURL, cfg.EarliestSeason)
	fetcher := client.NewFetcher(cfg.GitHubToken, cfg.FetchTimeout)
	ingester := pipeline.New(cat, fetcher, db, cfg.FetchWorkers)

	sched := scheduler.NewScheduler(cfg, ingester, liveSvc, hub, db)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	if cfg.InitialSyncEnabled {
		go runInitialSync(ctx, sched)
	}

	<-ctx.Done()

	log.Info().Msg("Shutting down...")
	if cfg.EnableScheduler {
		sched.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Tool server shutdown failed")
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger() {
	// Pretty console logging in development
	if os.Getenv("APP_ENV") == "development" {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		parsedLevel, err := zerolog.ParseLevel(lvl)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer serves /metrics and a store-backed /health
func startMetricsServer(ctx context.Context, port int, db *repository.Database) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := db.Health(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unhealthy"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}`))
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Info().Int("port", port).Msg("Starting metrics server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
