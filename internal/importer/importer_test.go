package importer

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"nflstats/internal/parser"
	"nflstats/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	playsHeader  = "Season,Week,Day,Date,AwayTeam,HomeTeam,Quarter,DriveNumber,TeamWithPossession,IsScoringDrive,PlayNumberInDrive,IsScoringPlay,PlayOutcome,PlayDescription,PlayStart\n"
	scoresHeader = "Season,Week,GameStatus,Day,Date,AwayTeam,AwayRecord,AwayScore,AwayWin,HomeTeam,HomeRecord,HomeScore,HomeWin,AwaySeeding,HomeSeeding,PostSeason\n"
)

func writeFiles(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
	}
	return dir
}

func setupStore(t *testing.T) *repository.Database {
	t.Helper()
	db, err := repository.NewDatabase(context.Background(), repository.Config{Path: filepath.Join(t.TempDir(), "stats.db")})
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func TestImportDir(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"2023_plays.csv": playsHeader +
			"2023,1,Thursday,2023-09-07,DET,KC,1st,1,KC,1,1,0,Pass,Short pass,KC 25\n" +
			"2023,1,Thursday,2023-09-07,DET,KC,1st,1,KC,1,2,1,Touchdown,Run up the middle,DET 3\n",
		"2023_scores.csv": scoresHeader +
			"2023,1,Final,Thursday,2023-09-07,DET,1-0,21.0,1.0,KC,0-1,20.0,0.0,,,0\n" +
			"2023,Super Bowl,Final/OT,Sunday,2024-02-11,SF,12-5,22.0,0.0,KC,11-6,25.0,1.0,1.0,3.0,1\n",
		"broken_plays.csv": "Season,Week\n2023,1\n",
		"notes.csv":        "anything\n",
		"readme.txt":       "not a csv",
	})
	db := setupStore(t)

	summary, err := New(db.History).ImportDir(context.Background(), dir)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.PlayFiles)
	assert.Equal(t, 1, summary.ScoreFiles)
	assert.Equal(t, 2, summary.PlaysInserted)
	assert.Equal(t, 2, summary.GamesWritten)
	assert.Equal(t, []string{"notes.csv"}, summary.Unknown)

	require.Len(t, summary.Failures, 1)
	assert.Equal(t, "broken_plays.csv", summary.Failures[0].Name)
	assert.Equal(t, parser.KindPlays, summary.Failures[0].Kind)
	assert.True(t, parser.IsParseError(summary.Failures[0].Err, parser.MissingColumn))
	assert.True(t, strings.Contains(summary.String(), "plays_inserted=2 games_written=2 unknown=1 failed=1"))

	plays, err := db.History.PlaysOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), plays.TotalPlays)

	games, err := db.History.GamesOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(2), games.TotalGames)
	assert.Equal(t, int64(1), games.PlayoffGames)
}

func TestImportDir_RerunIsIdempotent(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"2023_plays.csv": playsHeader +
			"2023,1,Thursday,2023-09-07,DET,KC,1st,1,KC,1,1,0,Pass,Short pass,KC 25\n",
		"2023_scores.csv": scoresHeader +
			"2023,1,Final,Thursday,2023-09-07,DET,1-0,21.0,1.0,KC,0-1,20.0,0.0,,,0\n",
	})
	db := setupStore(t)
	im := New(db.History)

	_, err := im.ImportDir(context.Background(), dir)
	require.NoError(t, err)

	again, err := im.ImportDir(context.Background(), dir)
	require.NoError(t, err)
	assert.Zero(t, again.PlaysInserted, "Stored plays should be skipped")
	assert.Empty(t, again.Failures)

	games, err := db.History.GamesOverview(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), games.TotalGames)
}

func TestImportDir_MissingDirectory(t *testing.T) {
	db := setupStore(t)

	_, err := New(db.History).ImportDir(context.Background(), filepath.Join(t.TempDir(), "absent"))
	assert.Error(t, err)
}

func TestImportDir_CanceledContext(t *testing.T) {
	dir := writeFiles(t, map[string]string{
		"2023_plays.csv": playsHeader + "2023,1,,,DET,KC,1st,1,KC,0,1,0,Pass,,\n",
	})
	db := setupStore(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := New(db.History).ImportDir(ctx, dir)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, summary.PlaysInserted)
}
