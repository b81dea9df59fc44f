package repository

import (
	"context"
	"errors"
	"testing"

	"nflstats/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCommitUnit_WritesRowsAndLedger(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	written, err := db.CommitUnit(ctx, ledgerEntry("stats_team_reg_2023.csv", 2023, models.Regular, "sha256:a"),
		[]models.StatRow{
			statRow(2023, "KC", models.Regular, map[string]float64{"games": 17, "passing_yards": 4183}),
			statRow(2023, "BUF", models.Regular, map[string]float64{"games": 17}),
		})
	require.NoError(t, err)
	assert.Equal(t, 2, written)

	n, err := db.Stats.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	entry, err := db.Ledger.Get(ctx, "stats_team_reg_2023.csv")
	require.NoError(t, err)
	assert.Equal(t, 2, entry.RowCount)
}

func TestCommitUnit_PrunesTeamsMissingFromNewFile(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedSeason(t, db, 2023, models.Regular,
		statRow(2023, "KC", models.Regular, nil),
		statRow(2023, "OAK", models.Regular, nil),
	)
	seedSeason(t, db, 2023, models.Postseason, statRow(2023, "OAK", models.Postseason, nil))

	_, err := db.CommitUnit(ctx, ledgerEntry("stats_team_reg_2023.csv", 2023, models.Regular, "sha256:new"),
		[]models.StatRow{statRow(2023, "KC", models.Regular, nil), statRow(2023, "LV", models.Regular, nil)})
	require.NoError(t, err)

	_, err = db.Stats.GetTeamSeason(ctx, "OAK", 2023, models.Regular)
	assert.ErrorIs(t, err, ErrNotFound, "Team absent from the refreshed file is removed")

	_, err = db.Stats.GetTeamSeason(ctx, "LV", 2023, models.Regular)
	assert.NoError(t, err)

	_, err = db.Stats.GetTeamSeason(ctx, "OAK", 2023, models.Postseason)
	assert.NoError(t, err, "Other season types are untouched")
}

func TestCommitUnit_RollsBackOnFailure(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedSeason(t, db, 2023, models.Regular, statRow(2023, "KC", models.Regular, map[string]float64{"games": 17}))
	before, err := db.Ledger.Get(ctx, "stats_team_reg_2023.csv")
	require.NoError(t, err)

	// The empty team violates the table CHECK mid-batch
	_, err = db.CommitUnit(ctx, ledgerEntry("stats_team_reg_2023.csv", 2023, models.Regular, "sha256:broken"),
		[]models.StatRow{
			statRow(2023, "KC", models.Regular, map[string]float64{"games": 99}),
			statRow(2023, "", models.Regular, nil),
		})
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.Equal(t, "stats_team_reg_2023.csv", werr.SourceID)

	row, err := db.Stats.GetTeamSeason(ctx, "KC", 2023, models.Regular)
	require.NoError(t, err)
	games, _ := row.Stat("games")
	assert.Equal(t, 17.0, games, "Earlier rows of a failed batch must not persist")

	after, err := db.Ledger.Get(ctx, "stats_team_reg_2023.csv")
	require.NoError(t, err)
	assert.Equal(t, before.Checksum, after.Checksum, "Ledger must not advance on failure")

	skip, err := db.ShouldSkip(ctx, "stats_team_reg_2023.csv", "sha256:broken")
	require.NoError(t, err)
	assert.False(t, skip)
}

func TestCommitUnit_CanceledContext(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	canceled, cancel := context.WithCancel(ctx)
	cancel()

	_, err := db.CommitUnit(canceled, ledgerEntry("stats_team_reg_2020.csv", 2020, models.Regular, "sha256:x"),
		[]models.StatRow{statRow(2020, "KC", models.Regular, nil)})
	assert.Error(t, err)

	n, err := db.Ledger.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestCommitUnit_RejectsRowsFromAnotherSeason(t *testing.T) {
	db, ctx := setupTestDB(t)
	defer teardownTestDB(t, db)

	seedSeason(t, db, 2022, models.Regular, statRow(2022, "KC", models.Regular, nil), statRow(2022, "BUF", models.Regular, nil))
	seedSeason(t, db, 2023, models.Regular, statRow(2023, "KC", models.Regular, nil), statRow(2023, "BUF", models.Regular, nil))

	_, err := db.CommitUnit(ctx, ledgerEntry("stats_team_reg_2023.csv", 2023, models.Regular, "sha256:mislabelled"),
		[]models.StatRow{statRow(2022, "NE", models.Regular, nil)})
	require.Error(t, err)

	var werr *WriteError
	require.True(t, errors.As(err, &werr))
	assert.ErrorIs(t, err, ErrForeignRow)

	for _, season := range []int{2022, 2023} {
		rows, err := db.Stats.BySeason(ctx, season, models.Regular)
		require.NoError(t, err)
		assert.Len(t, rows, 2, "season %d must be untouched", season)
	}

	skip, err := db.ShouldSkip(ctx, "stats_team_reg_2023.csv", "sha256:mislabelled")
	require.NoError(t, err)
	assert.False(t, skip)
}
