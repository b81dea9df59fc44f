package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"nflstats/internal/metrics"
	"nflstats/internal/models"
)

// HistoryRepository handles the plays and games tables
type HistoryRepository struct {
	db *Database
}

const playColumns = `season, week, day, date, away_team, home_team, quarter, drive_number,
	team_with_possession, is_scoring_drive, play_number_in_drive, is_scoring_play,
	play_outcome, play_description, play_start`

const gameColumns = `season, week, game_status, day, date, away_team, away_record, away_score,
	away_win, home_team, home_record, home_score, home_win, away_seeding, home_seeding, post_season`

// A play already stored under its natural key is left alone
const insertPlaySQL = `INSERT INTO plays (` + playColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (season, week, away_team, home_team, quarter, drive_number, play_number_in_drive) DO NOTHING`

// A game row is replaced so a later file can finalise its score
const upsertGameSQL = `INSERT INTO games (` + gameColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (season, week, away_team, home_team, date) DO UPDATE SET
		game_status = excluded.game_status,
		day = excluded.day,
		away_record = excluded.away_record,
		away_score = excluded.away_score,
		away_win = excluded.away_win,
		home_record = excluded.home_record,
		home_score = excluded.home_score,
		home_win = excluded.home_win,
		away_seeding = excluded.away_seeding,
		home_seeding = excluded.home_seeding,
		post_season = excluded.post_season`

// roundOrder sorts the week column: preseason first, numbered weeks, then
// the playoff rounds
const roundOrder = `CASE
		WHEN week LIKE '%Preseason%' THEN 0
		WHEN week = 'Wild Card' THEN 19
		WHEN week = 'Divisional' THEN 20
		WHEN week = 'Conference' THEN 21
		WHEN week = 'Super Bowl' THEN 22
		ELSE CAST(week AS INTEGER)
	END`

// InsertPlays stores plays in one transaction and returns how many were new.
// Plays whose natural key is already stored are skipped.
func (r *HistoryRepository) InsertPlays(ctx context.Context, plays []models.Play) (int, error) {
	start := time.Now()
	inserted := 0

	err := r.db.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, insertPlaySQL)
		if err != nil {
			return fmt.Errorf("failed to prepare play insert: %w", err)
		}
		defer stmt.Close()

		for _, p := range plays {
			res, err := stmt.ExecContext(ctx,
				p.Season, p.Week, p.Day, p.Date, p.AwayTeam, p.HomeTeam, p.Quarter, p.DriveNumber,
				p.TeamWithPossession, p.IsScoringDrive, p.PlayNumberInDrive, p.IsScoringPlay,
				p.PlayOutcome, p.PlayDescription, p.PlayStart)
			if err != nil {
				return fmt.Errorf("failed to insert play %d %s %s@%s: %w", p.Season, p.Week, p.AwayTeam, p.HomeTeam, err)
			}
			n, _ := res.RowsAffected()
			inserted += int(n)
		}
		return nil
	})
	if err != nil {
		metrics.RecordDBQuery("insert", "plays", "error", time.Since(start).Seconds())
		return 0, err
	}

	metrics.RecordDBQuery("insert", "plays", "success", time.Since(start).Seconds())
	return inserted, nil
}

// UpsertGames stores games in one transaction and returns how many rows were
// inserted or updated
func (r *HistoryRepository) UpsertGames(ctx context.Context, games []models.GameResult) (int, error) {
	start := time.Now()
	written := 0

	err := r.db.withWriteTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, upsertGameSQL)
		if err != nil {
			return fmt.Errorf("failed to prepare game upsert: %w", err)
		}
		defer stmt.Close()

		for _, g := range games {
			_, err := stmt.ExecContext(ctx,
				g.Season, g.Week, g.GameStatus, g.Day, g.Date, g.AwayTeam, g.AwayRecord, g.AwayScore,
				g.AwayWin, g.HomeTeam, g.HomeRecord, g.HomeScore, g.HomeWin, g.AwaySeeding, g.HomeSeeding, g.PostSeason)
			if err != nil {
				return fmt.Errorf("failed to upsert game %d %s %s@%s: %w", g.Season, g.Week, g.AwayTeam, g.HomeTeam, err)
			}
			written++
		}
		return nil
	})
	if err != nil {
		metrics.RecordDBQuery("upsert", "games", "error", time.Since(start).Seconds())
		return 0, err
	}

	metrics.RecordDBQuery("upsert", "games", "success", time.Since(start).Seconds())
	return written, nil
}

// PlaysOverview summarises the plays table. The season bounds are zero when
// the table is empty.
func (r *HistoryRepository) PlaysOverview(ctx context.Context) (models.PlaysOverview, error) {
	var o models.PlaysOverview
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT season),
		       COALESCE(MIN(season), 0),
		       COALESCE(MAX(season), 0),
		       COUNT(DISTINCT away_team || '-' || home_team || '-' || COALESCE(date, week))
		FROM plays`).Scan(&o.TotalPlays, &o.Seasons, &o.EarliestSeason, &o.LatestSeason, &o.UniqueGames)
	if err != nil {
		return o, fmt.Errorf("failed to get plays overview: %w", err)
	}
	return o, nil
}

// GamesOverview summarises the games table
func (r *HistoryRepository) GamesOverview(ctx context.Context) (models.GamesOverview, error) {
	var o models.GamesOverview
	err := r.db.DB.QueryRowContext(ctx, `
		SELECT COUNT(*),
		       COUNT(DISTINCT season),
		       COALESCE(MIN(season), 0),
		       COALESCE(MAX(season), 0),
		       COALESCE(SUM(post_season), 0)
		FROM games`).Scan(&o.TotalGames, &o.Seasons, &o.EarliestSeason, &o.LatestSeason, &o.PlayoffGames)
	if err != nil {
		return o, fmt.Errorf("failed to get games overview: %w", err)
	}
	return o, nil
}

// GamePlays returns every play of away@home in season, optionally narrowed to
// one week, in quarter, drive and play order
func (r *HistoryRepository) GamePlays(ctx context.Context, away, home string, season int, week string) ([]models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE away_team = ? AND home_team = ? AND season = ?`
	args := []any{away, home, season}
	if week != "" {
		query += ` AND week = ?`
		args = append(args, week)
	}
	query += ` ORDER BY quarter, drive_number, play_number_in_drive`

	return r.queryPlays(ctx, query, args...)
}

// PlaySearch filters SearchPlays. Zero values leave a filter off.
type PlaySearch struct {
	Outcome string
	Season  int
	Team    string
	Limit   int
}

// SearchPlays finds plays whose outcome contains s.Outcome, newest first.
// Team matches either side or the team in possession.
func (r *HistoryRepository) SearchPlays(ctx context.Context, s PlaySearch) ([]models.Play, error) {
	query := `SELECT ` + playColumns + ` FROM plays WHERE play_outcome LIKE ? ESCAPE '\'`
	args := []any{"%" + escapeLike(s.Outcome) + "%"}
	if s.Season != 0 {
		query += ` AND season = ?`
		args = append(args, s.Season)
	}
	if s.Team != "" {
		query += ` AND (away_team = ? OR home_team = ? OR team_with_possession = ?)`
		args = append(args, s.Team, s.Team, s.Team)
	}
	query += ` ORDER BY season DESC, ` + roundOrder + ` DESC, quarter, drive_number, play_number_in_drive LIMIT ?`
	args = append(args, s.Limit)

	return r.queryPlays(ctx, query, args...)
}

// GameScore returns the result of away@home in season. Without a week the
// first game in week order is returned.
func (r *HistoryRepository) GameScore(ctx context.Context, away, home string, season int, week string) (*models.GameResult, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE away_team = ? AND home_team = ? AND season = ?`
	args := []any{away, home, season}
	if week != "" {
		query += ` AND week = ?`
		args = append(args, week)
	}
	query += ` ORDER BY ` + roundOrder + `, date LIMIT 1`

	g, err := scanGame(r.db.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("game %s@%s %d: %w", away, home, season, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game score: %w", err)
	}
	return &g, nil
}

// TeamSeason returns every game team played in season: regular season
// first, then playoffs, each in week order
func (r *HistoryRepository) TeamSeason(ctx context.Context, team string, season int) ([]models.GameResult, error) {
	query := `SELECT ` + gameColumns + ` FROM games
		WHERE (away_team = ? OR home_team = ?) AND season = ?
		ORDER BY post_season, ` + roundOrder + `, date`
	return r.queryGames(ctx, query, team, team, season)
}

// PlayoffResults returns the postseason games of season, optionally one
// round only, in bracket order
func (r *HistoryRepository) PlayoffResults(ctx context.Context, season int, round string) ([]models.GameResult, error) {
	query := `SELECT ` + gameColumns + ` FROM games WHERE season = ? AND post_season = 1`
	args := []any{season}
	if round != "" {
		query += ` AND week = ?`
		args = append(args, round)
	}
	query += ` ORDER BY ` + roundOrder + `, date`
	return r.queryGames(ctx, query, args...)
}

func (r *HistoryRepository) queryPlays(ctx context.Context, query string, args ...any) ([]models.Play, error) {
	start := time.Now()

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("select", "plays", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to query plays: %w", err)
	}
	defer rows.Close()

	var plays []models.Play
	for rows.Next() {
		var (
			p                                        models.Play
			day, date, possession, outcome, desc, ps sql.NullString
		)
		if err := rows.Scan(&p.Season, &p.Week, &day, &date, &p.AwayTeam, &p.HomeTeam, &p.Quarter, &p.DriveNumber,
			&possession, &p.IsScoringDrive, &p.PlayNumberInDrive, &p.IsScoringPlay,
			&outcome, &desc, &ps); err != nil {
			return nil, fmt.Errorf("failed to scan play: %w", err)
		}
		p.Day, p.Date, p.TeamWithPossession = day.String, date.String, possession.String
		p.PlayOutcome, p.PlayDescription, p.PlayStart = outcome.String, desc.String, ps.String
		plays = append(plays, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating plays: %w", err)
	}

	metrics.RecordDBQuery("select", "plays", "success", time.Since(start).Seconds())
	return plays, nil
}

func (r *HistoryRepository) queryGames(ctx context.Context, query string, args ...any) ([]models.GameResult, error) {
	start := time.Now()

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("select", "games", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	var games []models.GameResult
	for rows.Next() {
		g, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}

	metrics.RecordDBQuery("select", "games", "success", time.Since(start).Seconds())
	return games, nil
}

func scanGame(s rowScanner) (models.GameResult, error) {
	var (
		g                                             models.GameResult
		status, day, awayRec, homeRec, awaySd, homeSd sql.NullString
	)
	err := s.Scan(&g.Season, &g.Week, &status, &day, &g.Date, &g.AwayTeam, &awayRec, &g.AwayScore,
		&g.AwayWin, &g.HomeTeam, &homeRec, &g.HomeScore, &g.HomeWin, &awaySd, &homeSd, &g.PostSeason)
	if err != nil {
		return g, err
	}
	g.GameStatus, g.Day = status.String, day.String
	g.AwayRecord, g.HomeRecord = awayRec.String, homeRec.String
	g.AwaySeeding, g.HomeSeeding = awaySd.String, homeSd.String
	return g, nil
}

// escapeLike makes s match literally inside a LIKE pattern using '\' as the
// escape character
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
