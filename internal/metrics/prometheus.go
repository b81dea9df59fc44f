package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for the ingestion pipeline, tool server and live feed

var (
	// Fetch metrics
	FetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_fetches_total",
			Help: "Total number of remote fetches",
		},
		[]string{"source", "status"},
	)

	FetchDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nflstats_fetch_duration_seconds",
			Help:    "Duration of remote fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"source"},
	)

	// Pipeline metrics
	UnitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_units_total",
			Help: "Total number of ingestion units by outcome",
		},
		[]string{"season_type", "outcome"},
	)

	RowsWritten = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nflstats_rows_written_total",
			Help: "Total number of team_stats rows written",
		},
	)

	ImportFilesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_import_files_total",
			Help: "Total number of historical CSV files imported by kind and status",
		},
		[]string{"kind", "status"},
	)

	// Database metrics
	DBQueriesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_db_queries_total",
			Help: "Total number of database queries",
		},
		[]string{"operation", "table", "status"},
	)

	DBQueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nflstats_db_query_duration_seconds",
			Help:    "Duration of database queries in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"operation", "table"},
	)

	LedgerEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nflstats_ledger_entries",
			Help: "Number of source files recorded in the download ledger",
		},
	)

	StatRows = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nflstats_team_stats_rows",
			Help: "Number of rows in team_stats",
		},
	)

	// Cache metrics
	CacheHitsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nflstats_cache_hits_total",
			Help: "Total number of scoreboard cache hits",
		},
	)

	CacheMissesTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "nflstats_cache_misses_total",
			Help: "Total number of scoreboard cache misses",
		},
	)

	// Tool metrics
	ToolCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_tool_calls_total",
			Help: "Total number of tool calls",
		},
		[]string{"tool", "status"},
	)

	ToolCallDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nflstats_tool_call_duration_seconds",
			Help:    "Duration of tool calls in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"tool"},
	)

	// Sync metrics
	SyncOperationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_sync_operations_total",
			Help: "Total number of pipeline runs",
		},
		[]string{"trigger", "status"},
	)

	SyncDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "nflstats_sync_duration_seconds",
			Help:    "Duration of pipeline runs in seconds",
			Buckets: []float64{1, 5, 10, 30, 60, 120, 300, 600},
		},
		[]string{"trigger"},
	)

	LastSuccessfulSync = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nflstats_last_successful_sync_timestamp",
			Help: "Timestamp of last successful pipeline run",
		},
	)

	// Live scoreboard
	LiveGames = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "nflstats_live_games",
			Help: "Games on the live scoreboard by state",
		},
		[]string{"state"},
	)

	// Error metrics
	ErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "nflstats_errors_total",
			Help: "Total number of errors",
		},
		[]string{"component", "error_type"},
	)

	// System metrics
	SystemUptime = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "nflstats_system_uptime_seconds",
			Help: "System uptime in seconds",
		},
	)
)

// RecordFetch records a remote fetch
func RecordFetch(source, status string, duration float64) {
	FetchesTotal.WithLabelValues(source, status).Inc()
	FetchDuration.WithLabelValues(source).Observe(duration)
}

// RecordUnit records the outcome of one ingestion unit
func RecordUnit(seasonType, outcome string) {
	UnitsTotal.WithLabelValues(seasonType, outcome).Inc()
}

// RecordRowsWritten adds n to the rows-written counter
func RecordRowsWritten(n int) {
	RowsWritten.Add(float64(n))
}

// RecordImportFile records one historical file import
func RecordImportFile(kind, status string) {
	ImportFilesTotal.WithLabelValues(kind, status).Inc()
}

// RecordDBQuery records a database query metric
func RecordDBQuery(operation, table, status string, duration float64) {
	DBQueriesTotal.WithLabelValues(operation, table, status).Inc()
	DBQueryDuration.WithLabelValues(operation, table).Observe(duration)
}

// RecordCacheHit records a cache hit
func RecordCacheHit() {
	CacheHitsTotal.Inc()
}

// RecordCacheMiss records a cache miss
func RecordCacheMiss() {
	CacheMissesTotal.Inc()
}

// RecordToolCall records a tool invocation
func RecordToolCall(tool, status string, duration float64) {
	ToolCallsTotal.WithLabelValues(tool, status).Inc()
	ToolCallDuration.WithLabelValues(tool).Observe(duration)
}

// RecordSync records a pipeline run
func RecordSync(trigger, status string, duration float64) {
	SyncOperationsTotal.WithLabelValues(trigger, status).Inc()
	SyncDuration.WithLabelValues(trigger).Observe(duration)

	if status == "success" {
		LastSuccessfulSync.SetToCurrentTime()
	}
}

// RecordError records an error
func RecordError(component, errorType string) {
	ErrorsTotal.WithLabelValues(component, errorType).Inc()
}

// UpdateStoreStats updates store size gauges
func UpdateStoreStats(rows, ledgerEntries int64) {
	StatRows.Set(float64(rows))
	LedgerEntries.Set(float64(ledgerEntries))
}

// UpdateLiveGames updates the live scoreboard gauges
func UpdateLiveGames(live, upcoming, final int) {
	LiveGames.WithLabelValues("live").Set(float64(live))
	LiveGames.WithLabelValues("upcoming").Set(float64(upcoming))
	LiveGames.WithLabelValues("final").Set(float64(final))
}
