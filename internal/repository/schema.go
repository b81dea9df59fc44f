package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"nflstats/internal/models"

	"github.com/rs/zerolog/log"
)

// teamStatsDDL renders CREATE TABLE team_stats from models.StatColumns
func teamStatsDDL() string {
	var b strings.Builder
	b.WriteString("CREATE TABLE IF NOT EXISTS team_stats (\n")
	b.WriteString("  season INTEGER NOT NULL,\n")
	b.WriteString("  team TEXT NOT NULL CHECK (team <> ''),\n")
	b.WriteString("  season_type TEXT NOT NULL CHECK (season_type IN ('REG', 'POST')),\n")
	for _, c := range models.StatColumns {
		typ := "REAL"
		if c.Type == models.Text {
			typ = "TEXT"
		}
		fmt.Fprintf(&b, "  %s %s,\n", c.Name, typ)
	}
	b.WriteString("  PRIMARY KEY (season, team, season_type)\n)")
	return b.String()
}

const downloadLogDDL = `
CREATE TABLE IF NOT EXISTS download_log (
  source_id   TEXT PRIMARY KEY,
  season      INTEGER NOT NULL,
  season_type TEXT NOT NULL,
  checksum    TEXT NOT NULL,
  row_count   INTEGER NOT NULL,
  ingested_at TEXT NOT NULL
)`

const playsDDL = `
CREATE TABLE IF NOT EXISTS plays (
  id                   INTEGER PRIMARY KEY AUTOINCREMENT,
  season               INTEGER NOT NULL,
  week                 TEXT NOT NULL,
  day                  TEXT,
  date                 TEXT,
  away_team            TEXT NOT NULL,
  home_team            TEXT NOT NULL,
  quarter              TEXT NOT NULL,
  drive_number         INTEGER NOT NULL,
  team_with_possession TEXT,
  is_scoring_drive     INTEGER NOT NULL DEFAULT 0,
  play_number_in_drive INTEGER NOT NULL,
  is_scoring_play      INTEGER NOT NULL DEFAULT 0,
  play_outcome         TEXT,
  play_description     TEXT,
  play_start           TEXT,
  UNIQUE (season, week, away_team, home_team, quarter, drive_number, play_number_in_drive)
)`

const gamesDDL = `
CREATE TABLE IF NOT EXISTS games (
  id           INTEGER PRIMARY KEY AUTOINCREMENT,
  season       INTEGER NOT NULL,
  week         TEXT NOT NULL,
  game_status  TEXT,
  day          TEXT,
  date         TEXT NOT NULL DEFAULT '',
  away_team    TEXT NOT NULL,
  away_record  TEXT,
  away_score   REAL,
  away_win     INTEGER NOT NULL DEFAULT 0,
  home_team    TEXT NOT NULL,
  home_record  TEXT,
  home_score   REAL,
  home_win     INTEGER NOT NULL DEFAULT 0,
  away_seeding TEXT,
  home_seeding TEXT,
  post_season  INTEGER NOT NULL DEFAULT 0,
  UNIQUE (season, week, away_team, home_team, date)
)`

// migrations[i] moves the store from user_version i to i+1
var migrations = [][]string{
	{
		teamStatsDDL(),
		`CREATE INDEX IF NOT EXISTS idx_team_stats_type_season ON team_stats (season_type, season)`,
		downloadLogDDL,
	},
	{
		playsDDL,
		`CREATE INDEX IF NOT EXISTS idx_plays_season ON plays (season)`,
		`CREATE INDEX IF NOT EXISTS idx_plays_teams ON plays (away_team, home_team)`,
		`CREATE INDEX IF NOT EXISTS idx_plays_possession ON plays (team_with_possession)`,
		`CREATE INDEX IF NOT EXISTS idx_plays_scoring ON plays (is_scoring_play)`,
		gamesDDL,
		`CREATE INDEX IF NOT EXISTS idx_games_season ON games (season)`,
		`CREATE INDEX IF NOT EXISTS idx_games_teams ON games (away_team, home_team)`,
		`CREATE INDEX IF NOT EXISTS idx_games_postseason ON games (post_season)`,
	},
}

var schemaVersion = len(migrations)

// migrate applies every pending step in one transaction and stamps
// PRAGMA user_version
func migrate(ctx context.Context, db *sql.DB) error {
	var version int
	if err := db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version); err != nil {
		return fmt.Errorf("failed to read schema version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin migration: %w", err)
	}
	defer tx.Rollback()

	for v := version; v < schemaVersion; v++ {
		for _, stmt := range migrations[v] {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("failed to apply schema v%d: %w", v+1, err)
			}
		}
	}
	if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, schemaVersion)); err != nil {
		return fmt.Errorf("failed to stamp schema v%d: %w", schemaVersion, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit schema v%d: %w", schemaVersion, err)
	}

	log.Info().
		Int("from", version).
		Int("to", schemaVersion).
		Msg("Database schema migrated")
	return nil
}
