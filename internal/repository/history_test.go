package repository

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"nflstats/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func play(season int, week, away, home, quarter string, drive, n int, possession, outcome string) models.Play {
	return models.Play{
		Season: season, Week: week, AwayTeam: away, HomeTeam: home, Quarter: quarter,
		DriveNumber: drive, PlayNumberInDrive: n, TeamWithPossession: possession,
		PlayOutcome: outcome, IsScoringPlay: outcome == "Touchdown",
		PlayDescription: outcome + " by " + possession,
	}
}

func game(season int, week, date, away string, awayScore float64, home string, homeScore float64, post bool) models.GameResult {
	return models.GameResult{
		Season: season, Week: week, Date: date, GameStatus: "Final",
		AwayTeam: away, AwayScore: sql.NullFloat64{Float64: awayScore, Valid: true}, AwayWin: awayScore > homeScore,
		HomeTeam: home, HomeScore: sql.NullFloat64{Float64: homeScore, Valid: true}, HomeWin: homeScore > awayScore,
		PostSeason: post,
	}
}

func TestMigrate_UpgradesVersionOneStore(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "v1.db")

	raw, err := sql.Open(sqliteDriverName, "file:"+path)
	require.NoError(t, err)
	for _, stmt := range migrations[0] {
		_, err := raw.ExecContext(ctx, stmt)
		require.NoError(t, err)
	}
	_, err = raw.ExecContext(ctx, `INSERT INTO team_stats (season, team, season_type, games) VALUES (2023, 'KC', 'REG', 17)`)
	require.NoError(t, err)
	_, err = raw.ExecContext(ctx, `PRAGMA user_version = 1`)
	require.NoError(t, err)
	require.NoError(t, raw.Close())

	db, err := NewDatabase(ctx, Config{Path: path})
	require.NoError(t, err)
	defer db.Close()

	var version int
	require.NoError(t, db.DB.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&version))
	assert.Equal(t, 2, version)

	n, err := db.Stats.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "Existing team stats should survive the upgrade")

	inserted, err := db.History.InsertPlays(ctx, []models.Play{play(2023, "1", "DET", "KC", "1st", 1, 1, "KC", "Pass")})
	require.NoError(t, err)
	assert.Equal(t, 1, inserted)
}

func TestHistoryRepository_InsertPlaysSkipsDuplicates(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	first := []models.Play{
		play(2023, "1", "DET", "KC", "1st", 1, 1, "KC", "Pass"),
		play(2023, "1", "DET", "KC", "1st", 1, 2, "KC", "Touchdown"),
		play(2023, "1", "DET", "KC", "1st", 2, 1, "DET", "Punt"),
	}
	n, err := db.History.InsertPlays(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	again := append(first[:2:2], play(2023, "1", "DET", "KC", "2nd", 3, 1, "KC", "Run"))
	n, err = db.History.InsertPlays(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "Only the new play should be inserted")

	o, err := db.History.PlaysOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), o.TotalPlays)
	assert.Equal(t, int64(1), o.Seasons)
	assert.Equal(t, 2023, o.EarliestSeason)
	assert.Equal(t, int64(1), o.UniqueGames)
}

func TestHistoryRepository_EmptyOverviews(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	plays, err := db.History.PlaysOverview(ctx)
	require.NoError(t, err)
	assert.Zero(t, plays.TotalPlays)
	assert.Zero(t, plays.LatestSeason)

	games, err := db.History.GamesOverview(ctx)
	require.NoError(t, err)
	assert.Zero(t, games.TotalGames)
	assert.Zero(t, games.PlayoffGames)
}

func TestHistoryRepository_GamePlaysOrder(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.History.InsertPlays(ctx, []models.Play{
		play(2023, "1", "DET", "KC", "2nd", 3, 1, "KC", "Run"),
		play(2023, "1", "DET", "KC", "1st", 1, 2, "KC", "Touchdown"),
		play(2023, "1", "DET", "KC", "1st", 1, 1, "KC", "Pass"),
		play(2023, "15", "DET", "KC", "1st", 1, 1, "DET", "Field Goal"),
	})
	require.NoError(t, err)

	plays, err := db.History.GamePlays(ctx, "DET", "KC", 2023, "1")
	require.NoError(t, err)
	require.Len(t, plays, 3)
	assert.Equal(t, "Pass", plays[0].PlayOutcome)
	assert.Equal(t, "Touchdown", plays[1].PlayOutcome)
	assert.True(t, plays[1].IsScoringPlay)
	assert.Equal(t, "Run", plays[2].PlayOutcome)

	all, err := db.History.GamePlays(ctx, "DET", "KC", 2023, "")
	require.NoError(t, err)
	assert.Len(t, all, 4, "Without a week every meeting is returned")

	none, err := db.History.GamePlays(ctx, "KC", "DET", 2023, "")
	require.NoError(t, err)
	assert.Empty(t, none, "Away and home are not interchangeable")
}

func TestHistoryRepository_SearchPlays(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.History.InsertPlays(ctx, []models.Play{
		play(2022, "3", "BUF", "MIA", "1st", 1, 1, "BUF", "Touchdown"),
		play(2023, "2", "DET", "KC", "1st", 1, 1, "KC", "Touchdown"),
		play(2023, "10", "DET", "KC", "1st", 1, 1, "DET", "Touchdown"),
		play(2023, "10", "DET", "KC", "1st", 2, 1, "KC", "Interception"),
		play(2023, "11", "NYJ", "NE", "1st", 1, 1, "NE", "100% effort"),
	})
	require.NoError(t, err)

	tds, err := db.History.SearchPlays(ctx, PlaySearch{Outcome: "touch", Limit: 10})
	require.NoError(t, err)
	require.Len(t, tds, 3, "LIKE should be case-insensitive")
	assert.Equal(t, "10", tds[0].Week, "Newest season and week first")
	assert.Equal(t, "2", tds[1].Week)
	assert.Equal(t, 2022, tds[2].Season)

	limited, err := db.History.SearchPlays(ctx, PlaySearch{Outcome: "Touchdown", Season: 2023, Limit: 1})
	require.NoError(t, err)
	assert.Len(t, limited, 1)

	byTeam, err := db.History.SearchPlays(ctx, PlaySearch{Outcome: "Touchdown", Team: "MIA", Limit: 10})
	require.NoError(t, err)
	require.Len(t, byTeam, 1)
	assert.Equal(t, "BUF", byTeam[0].TeamWithPossession)

	literal, err := db.History.SearchPlays(ctx, PlaySearch{Outcome: "%", Limit: 10})
	require.NoError(t, err)
	require.Len(t, literal, 1, "A percent sign should match literally")
	assert.Equal(t, "100% effort", literal[0].PlayOutcome)
}

func TestHistoryRepository_UpsertGamesReplacesScore(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	pending := game(2024, "1", "2024-09-05", "BAL", 0, "KC", 0, false)
	pending.GameStatus = "Scheduled"
	pending.AwayScore, pending.HomeScore = sql.NullFloat64{}, sql.NullFloat64{}
	_, err := db.History.UpsertGames(ctx, []models.GameResult{pending})
	require.NoError(t, err)

	_, err = db.History.UpsertGames(ctx, []models.GameResult{game(2024, "1", "2024-09-05", "BAL", 20, "KC", 27, false)})
	require.NoError(t, err)

	g, err := db.History.GameScore(ctx, "BAL", "KC", 2024, "")
	require.NoError(t, err)
	assert.Equal(t, "Final", g.GameStatus)
	assert.True(t, g.HomeWin)
	assert.Equal(t, 27.0, g.HomeScore.Float64)

	o, err := db.History.GamesOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), o.TotalGames, "The same game should be updated in place")

	_, err = db.History.GameScore(ctx, "KC", "BAL", 2024, "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestHistoryRepository_TeamSeasonOrder(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	_, err := db.History.UpsertGames(ctx, []models.GameResult{
		game(2023, models.RoundDivisional, "2024-01-21", "BUF", 24, "KC", 27, true),
		game(2023, "10", "2023-11-05", "KC", 21, "MIA", 14, false),
		game(2023, "2", "2023-09-17", "KC", 17, "JAX", 9, false),
		game(2023, "1", "2023-09-07", "DET", 21, "KC", 20, false),
		game(2023, "3", "2023-09-24", "BUF", 48, "WAS", 20, false),
	})
	require.NoError(t, err)

	games, err := db.History.TeamSeason(ctx, "KC", 2023)
	require.NoError(t, err)
	require.Len(t, games, 4)

	weeks := make([]string, len(games))
	for i, g := range games {
		weeks[i] = g.Week
	}
	assert.Equal(t, []string{"1", "2", "10", models.RoundDivisional}, weeks, "Weeks sort numerically with playoffs last")
}

func TestHistoryRepository_PlayoffResults(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	sb := game(2023, models.RoundSuperBowl, "2024-02-11", "SF", 22, "KC", 25, true)
	sb.AwaySeeding, sb.HomeSeeding = "1", "3"
	_, err := db.History.UpsertGames(ctx, []models.GameResult{
		sb,
		game(2023, models.RoundWildCard, "2024-01-14", "PIT", 17, "BUF", 31, true),
		game(2023, models.RoundWildCard, "2024-01-13", "MIA", 7, "KC", 26, true),
		game(2023, models.RoundDivisional, "2024-01-21", "KC", 27, "BUF", 24, true),
		game(2023, "18", "2024-01-07", "KC", 13, "LAC", 12, false),
	})
	require.NoError(t, err)

	games, err := db.History.PlayoffResults(ctx, 2023, "")
	require.NoError(t, err)
	require.Len(t, games, 4)
	assert.Equal(t, "MIA", games[0].AwayTeam, "Same round games should be ordered by date")
	assert.Equal(t, "PIT", games[1].AwayTeam)
	assert.Equal(t, models.RoundDivisional, games[2].Week)
	assert.Equal(t, models.RoundSuperBowl, games[3].Week)
	assert.Equal(t, "1", games[3].AwaySeeding)

	wc, err := db.History.PlayoffResults(ctx, 2023, models.RoundWildCard)
	require.NoError(t, err)
	assert.Len(t, wc, 2)

	o, err := db.History.GamesOverview(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5), o.TotalGames)
	assert.Equal(t, int64(4), o.PlayoffGames)
}
