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

	"github.com/rs/zerolog/log"
)

// ErrUnknownColumn is returned when a caller names a column that is not a
// numeric stat column
var ErrUnknownColumn = errors.New("unknown stat column")

// StatsRepository handles team_stats database operations
type StatsRepository struct {
	db *Database
}

var (
	selectColumns = strings.Join(append(append([]string{}, models.KeyColumns...), statColumnNames()...), ", ")
	upsertSQL     = buildUpsertSQL()
)

func statColumnNames() []string {
	names := make([]string, len(models.StatColumns))
	for i, c := range models.StatColumns {
		names[i] = c.Name
	}
	return names
}

// buildUpsertSQL replaces every column on conflict: the source file is the
// sole authority for the rows it contains, so nothing is merged.
func buildUpsertSQL() string {
	names := statColumnNames()

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(models.KeyColumns)+len(names)), ", ")

	sets := make([]string, len(names))
	for i, n := range names {
		sets[i] = fmt.Sprintf("%s = excluded.%s", n, n)
	}

	return fmt.Sprintf(
		"INSERT INTO team_stats (%s) VALUES (%s)\nON CONFLICT (season, team, season_type) DO UPDATE SET\n\t%s",
		selectColumns, placeholders, strings.Join(sets, ",\n\t"),
	)
}

// upsertTx writes rows inside tx, one statement execution per row
func (r *StatsRepository) upsertTx(ctx context.Context, tx *sql.Tx, rows []models.StatRow) (int, error) {
	stmt, err := tx.PrepareContext(ctx, upsertSQL)
	if err != nil {
		return 0, fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	written := 0
	for _, row := range rows {
		args := make([]any, 0, len(models.KeyColumns)+len(models.StatColumns))
		args = append(args, row.Season, row.Team, string(row.SeasonType))
		args = append(args, row.Values()...)

		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return written, fmt.Errorf("failed to upsert team stats %s: %w", row.Key(), err)
		}
		written++
	}
	return written, nil
}

// pruneTx deletes rows of (season, seasonType) whose team is not in keep.
// A refreshed source file is authoritative for its whole key space.
func (r *StatsRepository) pruneTx(ctx context.Context, tx *sql.Tx, season int, seasonType models.SeasonType, keep []string) (int64, error) {
	query := `DELETE FROM team_stats WHERE season = ? AND season_type = ?`
	args := []any{season, string(seasonType)}

	if len(keep) > 0 {
		query += fmt.Sprintf(" AND team NOT IN (%s)", strings.TrimSuffix(strings.Repeat("?, ", len(keep)), ", "))
		for _, team := range keep {
			args = append(args, team)
		}
	}

	result, err := tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to prune stale team stats: %w", err)
	}
	return result.RowsAffected()
}

// GetTeamSeason retrieves one team's stats for a season and season type
func (r *StatsRepository) GetTeamSeason(ctx context.Context, team string, season int, seasonType models.SeasonType) (*models.StatRow, error) {
	query := fmt.Sprintf(`SELECT %s FROM team_stats WHERE team = ? AND season = ? AND season_type = ?`, selectColumns)

	row, err := scanStatRow(r.db.DB.QueryRowContext(ctx, query, team, season, string(seasonType)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("team stats %s %d %s: %w", team, season, seasonType, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get team stats: %w", err)
	}
	return &row, nil
}

// RecentForTeam retrieves a team's most recent seasons, newest first
func (r *StatsRepository) RecentForTeam(ctx context.Context, team string, seasonType models.SeasonType, limit int) ([]models.StatRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM team_stats
		WHERE team = ? AND season_type = ?
		ORDER BY season DESC
		LIMIT ?`, selectColumns)

	return r.queryRows(ctx, "recent_for_team", query, team, string(seasonType), limit)
}

// BySeason retrieves every team for a season and season type
func (r *StatsRepository) BySeason(ctx context.Context, season int, seasonType models.SeasonType) ([]models.StatRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM team_stats
		WHERE season = ? AND season_type = ?
		ORDER BY team`, selectColumns)

	return r.queryRows(ctx, "by_season", query, season, string(seasonType))
}

// Compare retrieves two teams' rows for a season, ordered by team
func (r *StatsRepository) Compare(ctx context.Context, team1, team2 string, season int, seasonType models.SeasonType) ([]models.StatRow, error) {
	query := fmt.Sprintf(`
		SELECT %s FROM team_stats
		WHERE team IN (?, ?) AND season = ? AND season_type = ?
		ORDER BY team`, selectColumns)

	return r.queryRows(ctx, "compare", query, team1, team2, season, string(seasonType))
}

// Leaders ranks teams by a numeric stat column, positive values only.
// season nil means every season.
func (r *StatsRepository) Leaders(ctx context.Context, column string, season *int, seasonType models.SeasonType, limit int) ([]models.Leader, error) {
	if !models.IsNumericStat(column) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownColumn, column)
	}

	// column is whitelisted above, interpolation is safe
	query := fmt.Sprintf(`
		SELECT season, team, season_type, games, %[1]s
		FROM team_stats
		WHERE season_type = ? AND %[1]s IS NOT NULL AND %[1]s > 0`, column)
	args := []any{string(seasonType)}

	if season != nil {
		query += " AND season = ?"
		args = append(args, *season)
	}
	query += fmt.Sprintf(" ORDER BY %s DESC, season DESC, team LIMIT ?", column)
	args = append(args, limit)

	start := time.Now()
	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery("leaders", "team_stats", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to get stat leaders: %w", err)
	}
	defer rows.Close()

	var leaders []models.Leader
	for rows.Next() {
		var (
			l  models.Leader
			st string
		)
		if err := rows.Scan(&l.Season, &l.Team, &st, &l.Games, &l.Value); err != nil {
			return nil, fmt.Errorf("failed to scan leader: %w", err)
		}
		l.SeasonType = models.SeasonType(st)
		leaders = append(leaders, l)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating leaders: %w", err)
	}

	metrics.RecordDBQuery("leaders", "team_stats", "success", time.Since(start).Seconds())
	return leaders, nil
}

// PlayoffTeams lists teams with postseason rows; season nil means all
// seasons, newest first
func (r *StatsRepository) PlayoffTeams(ctx context.Context, season *int) ([]models.PlayoffTeam, error) {
	query := `SELECT season, team, games FROM team_stats WHERE season_type = 'POST'`
	var args []any

	if season != nil {
		query += " AND season = ?"
		args = append(args, *season)
	}
	query += " ORDER BY season DESC, team"

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get playoff teams: %w", err)
	}
	defer rows.Close()

	var teams []models.PlayoffTeam
	for rows.Next() {
		var p models.PlayoffTeam
		if err := rows.Scan(&p.Season, &p.Team, &p.Games); err != nil {
			return nil, fmt.Errorf("failed to scan playoff team: %w", err)
		}
		teams = append(teams, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating playoff teams: %w", err)
	}

	return teams, nil
}

// Overview summarises stored data per season type
func (r *StatsRepository) Overview(ctx context.Context) ([]models.SeasonTypeOverview, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT season_type,
		       COUNT(*),
		       COUNT(DISTINCT team),
		       COUNT(DISTINCT season),
		       MIN(season),
		       MAX(season)
		FROM team_stats
		GROUP BY season_type
		ORDER BY season_type DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get overview: %w", err)
	}
	defer rows.Close()

	var out []models.SeasonTypeOverview
	for rows.Next() {
		var (
			o  models.SeasonTypeOverview
			st string
		)
		if err := rows.Scan(&st, &o.TotalRecords, &o.UniqueTeams, &o.SeasonsCovered, &o.EarliestSeason, &o.LatestSeason); err != nil {
			return nil, fmt.Errorf("failed to scan overview: %w", err)
		}
		o.SeasonType = models.SeasonType(st)
		out = append(out, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating overview: %w", err)
	}

	return out, nil
}

// SeasonCounts returns the team count per season and season type
func (r *StatsRepository) SeasonCounts(ctx context.Context) ([]models.SeasonCount, error) {
	rows, err := r.db.DB.QueryContext(ctx, `
		SELECT season, season_type, COUNT(*)
		FROM team_stats
		GROUP BY season, season_type
		ORDER BY season, season_type DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to get season counts: %w", err)
	}
	defer rows.Close()

	var out []models.SeasonCount
	for rows.Next() {
		var (
			c  models.SeasonCount
			st string
		)
		if err := rows.Scan(&c.Season, &st, &c.Teams); err != nil {
			return nil, fmt.Errorf("failed to scan season count: %w", err)
		}
		c.SeasonType = models.SeasonType(st)
		out = append(out, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating season counts: %w", err)
	}

	return out, nil
}

// Count returns the number of rows in team_stats
func (r *StatsRepository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM team_stats`).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count team stats: %w", err)
	}
	return n, nil
}

func (r *StatsRepository) queryRows(ctx context.Context, op, query string, args ...any) ([]models.StatRow, error) {
	start := time.Now()

	rows, err := r.db.DB.QueryContext(ctx, query, args...)
	if err != nil {
		metrics.RecordDBQuery(op, "team_stats", "error", time.Since(start).Seconds())
		return nil, fmt.Errorf("failed to query team stats: %w", err)
	}
	defer rows.Close()

	var out []models.StatRow
	for rows.Next() {
		row, err := scanStatRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan team stats: %w", err)
		}
		out = append(out, row)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating team stats: %w", err)
	}

	metrics.RecordDBQuery(op, "team_stats", "success", time.Since(start).Seconds())
	log.Debug().
		Str("operation", op).
		Int("rows", len(out)).
		Msg("Team stats queried")

	return out, nil
}

func scanStatRow(s rowScanner) (models.StatRow, error) {
	var (
		season int
		team   string
		st     string
	)

	nums := make([]sql.NullFloat64, len(models.StatColumns))
	texts := make([]sql.NullString, len(models.StatColumns))

	dest := make([]any, 0, len(models.KeyColumns)+len(models.StatColumns))
	dest = append(dest, &season, &team, &st)
	for i, c := range models.StatColumns {
		if c.Type == models.Text {
			dest = append(dest, &texts[i])
		} else {
			dest = append(dest, &nums[i])
		}
	}

	if err := s.Scan(dest...); err != nil {
		return models.StatRow{}, err
	}

	row := models.NewStatRow(season, team, models.SeasonType(st))
	for i, c := range models.StatColumns {
		if c.Type == models.Text {
			row.Text[c.Name] = texts[i]
		} else {
			row.Stats[c.Name] = nums[i]
		}
	}
	return row, nil
}
