package tools

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"testing"

	"nflstats/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func finalGame(season int, week, date, away string, awayScore float64, home string, homeScore float64, post bool) models.GameResult {
	return models.GameResult{
		Season: season, Week: week, Date: date, Day: "Sunday", GameStatus: "Final",
		AwayTeam: away, AwayScore: sql.NullFloat64{Float64: awayScore, Valid: true}, AwayWin: awayScore > homeScore,
		HomeTeam: home, HomeScore: sql.NullFloat64{Float64: homeScore, Valid: true}, HomeWin: homeScore > awayScore,
		PostSeason: post,
	}
}

func setupHistoryRegistry(t *testing.T) *Registry {
	t.Helper()
	ctx := context.Background()

	r, db := setupRegistry(t)
	RegisterHistoryTools(r, db)

	_, err := db.History.InsertPlays(ctx, []models.Play{
		{Season: 2023, Week: "1", AwayTeam: "DET", HomeTeam: "KC", Quarter: "1st", DriveNumber: 1, PlayNumberInDrive: 1,
			TeamWithPossession: "KC", PlayOutcome: "Pass", PlayDescription: "Mahomes short right to Kelce for 8 yards"},
		{Season: 2023, Week: "1", AwayTeam: "DET", HomeTeam: "KC", Quarter: "1st", DriveNumber: 1, PlayNumberInDrive: 2,
			TeamWithPossession: "KC", PlayOutcome: "Touchdown", IsScoringPlay: true, PlayDescription: strings.Repeat("x", 120)},
		{Season: 2023, Week: "1", AwayTeam: "DET", HomeTeam: "KC", Quarter: "2nd", DriveNumber: 4, PlayNumberInDrive: 1,
			TeamWithPossession: "DET", PlayOutcome: "Interception", PlayDescription: "Goff pass intercepted"},
		{Season: 2022, Week: "5", AwayTeam: "BUF", HomeTeam: "PIT", Quarter: "3rd", DriveNumber: 7, PlayNumberInDrive: 3,
			TeamWithPossession: "BUF", PlayOutcome: "Touchdown", PlayDescription: "Allen deep to Davis"},
	})
	require.NoError(t, err)

	sb := finalGame(2023, models.RoundSuperBowl, "2024-02-11", "SF", 22, "KC", 25, true)
	sb.AwaySeeding, sb.HomeSeeding = "1", "3"
	div := finalGame(2023, models.RoundDivisional, "2024-01-21", "KC", 27, "BUF", 24, true)
	div.AwaySeeding, div.HomeSeeding = "3", "2"
	opener := finalGame(2023, "1", "2023-09-07", "DET", 21, "KC", 20, false)
	opener.Day, opener.AwayRecord, opener.HomeRecord = "Thursday", "12-5", "11-6"

	_, err = db.History.UpsertGames(ctx, []models.GameResult{
		opener,
		finalGame(2023, "2", "2023-09-17", "KC", 17, "JAX", 9, false),
		div,
		sb,
	})
	require.NoError(t, err)

	return r
}

func TestRegisterHistoryTools_Specs(t *testing.T) {
	r := setupHistoryRegistry(t)

	for _, name := range []string{
		"get_databases_overview",
		"get_game_plays",
		"get_game_score",
		"search_plays_by_outcome",
		"get_team_season_record",
		"get_playoff_results",
	} {
		assert.True(t, r.Has(name), "%s should be registered", name)
	}
}

func TestGetDatabasesOverview(t *testing.T) {
	r := setupHistoryRegistry(t)

	res, err := r.Call(context.Background(), "get_databases_overview", nil)
	require.NoError(t, err)

	assert.Contains(t, res.Text, "Team Stats:\n  REG: 8 records, 2 teams, seasons 2021-2024")
	assert.Contains(t, res.Text, "Plays:\n  Total plays: 4\n  Seasons: 2 (2022-2023)")
	assert.Contains(t, res.Text, "Games:\n  Total games: 4\n  Seasons: 1 (2023-2023)\n  Playoff games: 2")
}

func TestGetGamePlays(t *testing.T) {
	r := setupHistoryRegistry(t)
	ctx := context.Background()

	res, err := r.Call(ctx, "get_game_plays", Args{"away_team": "det", "home_team": "kc", "season": 2023})
	require.NoError(t, err)

	assert.Contains(t, res.Text, "Game Plays: DET @ KC - 2023\n\nTotal plays: 3")
	assert.Contains(t, res.Text, "=== 1st ===\n\nDrive 1 (KC):\n   1. Pass\n")
	assert.Contains(t, res.Text, "   2. Touchdown [score]\n      "+strings.Repeat("x", 100)+"...\n")
	assert.Contains(t, res.Text, "=== 2nd ===\n\nDrive 4 (DET):")

	plays, ok := res.Data.([]models.Play)
	require.True(t, ok)
	assert.Len(t, plays, 3)

	res, err = r.Call(ctx, "get_game_plays", Args{"away_team": "DET", "home_team": "KC", "season": 2023, "week": "9"})
	require.NoError(t, err)
	assert.Equal(t, "No plays found for DET @ KC in 2023 week 9", res.Text)
}

func TestGetGameScore(t *testing.T) {
	r := setupHistoryRegistry(t)
	ctx := context.Background()

	res, err := r.Call(ctx, "get_game_score", Args{"away_team": "DET", "home_team": "KC", "season": 2023})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Date: Thursday, 2023-09-07")
	assert.Contains(t, res.Text, "Score:\n  DET 21 - KC 20")
	assert.Contains(t, res.Text, "Records:\n  DET: 12-5\n  KC: 11-6")
	assert.NotContains(t, res.Text, "Playoff Game")

	res, err = r.Call(ctx, "get_game_score", Args{"away_team": "SF", "home_team": "KC", "season": 2023, "week": "Super Bowl"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Playoff Game\nSeeding: SF #1 vs KC #3")
	assert.Contains(t, res.Text, "KC 25 - SF 22")

	res, err = r.Call(ctx, "get_game_score", Args{"away_team": "KC", "home_team": "DET", "season": 2023})
	require.NoError(t, err)
	assert.Equal(t, "No game found for KC @ DET in 2023", res.Text)
}

func TestSearchPlaysByOutcome(t *testing.T) {
	r := setupHistoryRegistry(t)
	ctx := context.Background()

	res, err := r.Call(ctx, "search_plays_by_outcome", Args{"play_outcome": "Touchdown"})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "Plays with outcome 'Touchdown':")
	assert.Contains(t, res.Text, " 1. 2023 Week 1 - DET @ KC")
	assert.Contains(t, res.Text, " 2. 2022 Week 5 - BUF @ PIT\n    3rd - BUF: Touchdown\n    Allen deep to Davis")

	res, err = r.Call(ctx, "search_plays_by_outcome", Args{"play_outcome": "Touchdown", "team": "buf", "season": 2023})
	require.NoError(t, err)
	assert.Equal(t, "No plays found for 'Touchdown' in 2023 involving BUF", res.Text)

	_, err = r.Call(ctx, "search_plays_by_outcome", Args{"play_outcome": "   "})
	var argErr *ArgError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "play_outcome", argErr.Param)
}

func TestGetTeamSeasonRecord(t *testing.T) {
	r := setupHistoryRegistry(t)
	ctx := context.Background()

	res, err := r.Call(ctx, "get_team_season_record", Args{"team": "kc", "season": 2023})
	require.NoError(t, err)

	assert.Contains(t, res.Text, "KC 2023 Season Record\n\nRegular Season: 1-1\nPlayoffs: 2-0\n")
	assert.Contains(t, res.Text, "  Week 1            L vs DET 20-21\n")
	assert.Contains(t, res.Text, "  Week 2            W @  JAX 17-9\n")
	assert.Contains(t, res.Text, "\nPlayoffs:\n  Week Divisional   W @  BUF 27-24\n")

	data, ok := res.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, map[string]int{"wins": 2, "losses": 0}, data["playoffs"])

	res, err = r.Call(ctx, "get_team_season_record", Args{"team": "NYJ", "season": 2023})
	require.NoError(t, err)
	assert.Equal(t, "No games found for NYJ in 2023", res.Text)
}

func TestGetPlayoffResults(t *testing.T) {
	r := setupHistoryRegistry(t)
	ctx := context.Background()

	res, err := r.Call(ctx, "get_playoff_results", Args{"season": 2023})
	require.NoError(t, err)
	assert.Contains(t, res.Text, "2023 NFL Playoffs\n\nDivisional:\n  KC 27 - BUF 24 (#3 def #2)\n\nSuper Bowl:\n  KC 25 - SF 22 (#3 def #1)\n")

	res, err = r.Call(ctx, "get_playoff_results", Args{"season": 2023, "round_name": "super bowl"})
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(res.Text, "2023 NFL Playoffs - Super Bowl\n"))
	assert.NotContains(t, res.Text, "Divisional")

	res, err = r.Call(ctx, "get_playoff_results", Args{"season": 2023, "round_name": "Wild Card"})
	require.NoError(t, err)
	assert.Equal(t, "No playoff games found for 2023 Wild Card", res.Text)

	_, err = r.Call(ctx, "get_playoff_results", Args{"season": 2023, "round_name": "Quarterfinal"})
	var argErr *ArgError
	require.True(t, errors.As(err, &argErr))
	assert.Equal(t, "round_name", argErr.Param)
}
