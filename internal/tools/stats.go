package tools

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"nflstats/internal/models"
	"nflstats/internal/repository"
)

const (
	defaultLeaderLimit = 10
	maxLeaderLimit     = 100
	recentSeasons      = 3
	maxQueryRows       = 1000
)

var seasonTypeParam = Param{
	Name:        "season_type",
	Type:        TypeString,
	Description: "REG for regular season, POST for postseason",
	Default:     string(models.Regular),
}

// teamStatsLines are the fields shown per season by get_team_stats
var teamStatsLines = []struct{ label, column string }{
	{"Games", "games"},
	{"Passing Yards", "passing_yards"},
	{"Passing TDs", "passing_tds"},
	{"Passing INTs", "passing_interceptions"},
	{"Rushing Yards", "rushing_yards"},
	{"Rushing TDs", "rushing_tds"},
	{"Receiving Yards", "receiving_yards"},
	{"Receiving TDs", "receiving_tds"},
	{"Defensive Sacks", "def_sacks"},
	{"Defensive INTs", "def_interceptions"},
}

var compareColumns = []string{
	"passing_yards", "rushing_yards", "passing_tds", "rushing_tds",
	"def_sacks", "def_interceptions", "fg_pct",
}

// RegisterStatsTools adds the team_stats tools backed by db
func RegisterStatsTools(r *Registry, db *repository.Database) {
	h := &statsHandlers{db: db}

	r.Register(ToolSpec{
		Name:        "get_data_overview",
		Description: "Get an overview of what NFL team stats data is available in the database",
		ReadOnly:    true,
		Idempotent:  true,
	}, h.dataOverview)

	r.Register(ToolSpec{
		Name:        "get_team_stats",
		Description: "Get detailed statistics for a specific NFL team; the latest 3 seasons when no season is given",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "team", Type: TypeString, Description: "Team abbreviation (e.g. BUF, KC, GB)", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year"},
			seasonTypeParam,
		},
	}, h.teamStats)

	r.Register(ToolSpec{
		Name:        "get_stat_leaders",
		Description: "Get the top teams in a numeric statistical category",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "stat_column", Type: TypeString, Description: "Numeric stat column (e.g. passing_yards, def_sacks)", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year; all seasons when omitted"},
			seasonTypeParam,
			{Name: "limit", Type: TypeInteger, Description: "Number of results, 1-100", Default: defaultLeaderLimit},
		},
	}, h.statLeaders)

	r.Register(ToolSpec{
		Name:        "compare_teams",
		Description: "Compare statistics between two NFL teams for a season",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "team1", Type: TypeString, Description: "First team abbreviation", Required: true},
			{Name: "team2", Type: TypeString, Description: "Second team abbreviation", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year", Required: true},
			seasonTypeParam,
		},
	}, h.compareTeams)

	r.Register(ToolSpec{
		Name:        "get_playoff_teams",
		Description: "Get teams that have postseason data",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "season", Type: TypeInteger, Description: "Season year; all seasons when omitted"},
		},
	}, h.playoffTeams)

	r.Register(ToolSpec{
		Name:        "get_teams_by_season",
		Description: "Get all teams and basic stats for a season",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "season", Type: TypeInteger, Description: "Season year", Required: true},
			seasonTypeParam,
		},
	}, h.teamsBySeason)

	r.Register(ToolSpec{
		Name:        "query_sql",
		Description: "Run a single read-only SELECT or WITH statement against the team_stats, download_log, plays and games tables",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "sql", Type: TypeString, Description: "SELECT statement", Required: true},
		},
	}, h.querySQL)
}

type statsHandlers struct {
	db *repository.Database
}

func (h *statsHandlers) dataOverview(ctx context.Context, _ Args) (Result, error) {
	overview, err := h.db.Stats.Overview(ctx)
	if err != nil {
		return Result{}, err
	}
	files, err := h.db.Ledger.Count(ctx)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	b.WriteString("NFL Team Stats Database Overview:\n\n")
	for _, o := range overview {
		fmt.Fprintf(&b, "Season Type: %s\n", o.SeasonType)
		fmt.Fprintf(&b, "  - Total Records: %d\n", o.TotalRecords)
		fmt.Fprintf(&b, "  - Unique Teams: %d\n", o.UniqueTeams)
		fmt.Fprintf(&b, "  - Seasons Covered: %d (%d-%d)\n\n", o.SeasonsCovered, o.EarliestSeason, o.LatestSeason)
	}
	fmt.Fprintf(&b, "Ingested Files: %d\n", files)

	return Result{
		Text: b.String(),
		Data: map[string]any{"season_types": overview, "ingested_files": files},
	}, nil
}

func (h *statsHandlers) teamStats(ctx context.Context, args Args) (Result, error) {
	team, err := teamArg(args, "team")
	if err != nil {
		return Result{}, err
	}
	st, err := seasonTypeArg(args)
	if err != nil {
		return Result{}, err
	}
	season := args.IntPtr("season")

	var rows []models.StatRow
	if season != nil {
		row, err := h.db.Stats.GetTeamSeason(ctx, team, *season, st)
		if err != nil && !isNotFound(err) {
			return Result{}, err
		}
		if row != nil {
			rows = append(rows, *row)
		}
	} else {
		rows, err = h.db.Stats.RecentForTeam(ctx, team, st, recentSeasons)
		if err != nil {
			return Result{}, err
		}
	}

	seasonText := ""
	if season != nil {
		seasonText = fmt.Sprintf(" in %d", *season)
	}
	if len(rows) == 0 {
		return Result{Text: fmt.Sprintf("No data found for team %s%s (%s)", team, seasonText, st)}, nil
	}

	var b strings.Builder
	if season != nil {
		fmt.Fprintf(&b, "Stats for %s - %d (%s):\n\n", team, *season, st)
	} else {
		fmt.Fprintf(&b, "Stats for %s (%s):\n\n", team, st)
	}
	for _, row := range rows {
		fmt.Fprintf(&b, "Season: %d\n", row.Season)
		for _, l := range teamStatsLines {
			fmt.Fprintf(&b, "%s: %s\n", l.label, formatStat(row, l.column))
		}
		if pct, ok := row.Stat("fg_pct"); ok && pct != 0 {
			fmt.Fprintf(&b, "FG Percentage: %s%%\n", formatNumber(pct))
		}
		b.WriteString("\n")
	}

	return Result{Text: b.String(), Data: rowsData(rows)}, nil
}

func (h *statsHandlers) statLeaders(ctx context.Context, args Args) (Result, error) {
	column, _ := args.String("stat_column")
	column = strings.ToLower(column)
	if !models.IsNumericStat(column) {
		return Result{}, &ArgError{Param: "stat_column", Msg: fmt.Sprintf("%q is not a numeric stat column", column)}
	}
	st, err := seasonTypeArg(args)
	if err != nil {
		return Result{}, err
	}
	season := args.IntPtr("season")

	limit, ok := args.Int("limit")
	if !ok {
		limit = defaultLeaderLimit
	}
	limit = min(max(limit, 1), maxLeaderLimit)

	leaders, err := h.db.Stats.Leaders(ctx, column, season, st, limit)
	if err != nil {
		return Result{}, err
	}
	if len(leaders) == 0 {
		return Result{Text: fmt.Sprintf("No data found for %s", column)}, nil
	}

	seasonText := ""
	if season != nil {
		seasonText = fmt.Sprintf(" - %d", *season)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Top %d in %s%s (%s):\n\n", limit, titleCase(column), seasonText, st)
	for i, l := range leaders {
		fmt.Fprintf(&b, "%d. %s (%d): %s\n", i+1, l.Team, l.Season, formatNumber(l.Value))
	}

	data := make([]map[string]any, len(leaders))
	for i, l := range leaders {
		data[i] = map[string]any{
			"rank":        i + 1,
			"season":      l.Season,
			"team":        l.Team,
			"season_type": l.SeasonType,
			"games":       nullableFloat(l.Games),
			column:        l.Value,
		}
	}

	return Result{Text: b.String(), Data: data}, nil
}

func (h *statsHandlers) compareTeams(ctx context.Context, args Args) (Result, error) {
	team1, err := teamArg(args, "team1")
	if err != nil {
		return Result{}, err
	}
	team2, err := teamArg(args, "team2")
	if err != nil {
		return Result{}, err
	}
	st, err := seasonTypeArg(args)
	if err != nil {
		return Result{}, err
	}
	season, _ := args.Int("season")

	rows, err := h.db.Stats.Compare(ctx, team1, team2, season, st)
	if err != nil {
		return Result{}, err
	}
	if len(rows) != 2 {
		return Result{Text: fmt.Sprintf("Could not find data for both teams in %d (%s)", season, st)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Team Comparison - %d (%s):\n\n", season, st)
	for _, col := range compareColumns {
		fmt.Fprintf(&b, "%s:\n", titleCase(col))
		for _, row := range rows {
			value := formatStat(row, col)
			if col == "fg_pct" && value != "N/A" {
				value += "%"
			}
			fmt.Fprintf(&b, "  %s: %s\n", row.Team, value)
		}
		b.WriteString("\n")
	}

	return Result{Text: b.String(), Data: rowsData(rows)}, nil
}

func (h *statsHandlers) playoffTeams(ctx context.Context, args Args) (Result, error) {
	season := args.IntPtr("season")

	teams, err := h.db.Stats.PlayoffTeams(ctx, season)
	if err != nil {
		return Result{}, err
	}

	seasonText := ""
	if season != nil {
		seasonText = fmt.Sprintf(" - %d", *season)
	}
	if len(teams) == 0 {
		return Result{Text: "No playoff data found" + strings.Replace(seasonText, " - ", " for ", 1)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Playoff Teams%s:\n", seasonText)

	grouped := make(map[int][]string)
	current := 0
	for _, p := range teams {
		if p.Season != current {
			current = p.Season
			fmt.Fprintf(&b, "\n%d:\n", current)
		}
		games := "N/A"
		if p.Games.Valid {
			games = formatNumber(p.Games.Float64)
		}
		fmt.Fprintf(&b, "  %s (%s games)\n", p.Team, games)
		grouped[p.Season] = append(grouped[p.Season], p.Team)
	}

	return Result{Text: b.String(), Data: grouped}, nil
}

func (h *statsHandlers) teamsBySeason(ctx context.Context, args Args) (Result, error) {
	st, err := seasonTypeArg(args)
	if err != nil {
		return Result{}, err
	}
	season, _ := args.Int("season")

	rows, err := h.db.Stats.BySeason(ctx, season, st)
	if err != nil {
		return Result{}, err
	}
	if len(rows) == 0 {
		return Result{Text: fmt.Sprintf("No data found for %d (%s)", season, st)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Teams in %d (%s):\n\n", season, st)
	for _, row := range rows {
		fmt.Fprintf(&b, "%s: %s games, %s pass yds, %s rush yds, %s sacks\n",
			row.Team,
			formatStat(row, "games"),
			formatStat(row, "passing_yards"),
			formatStat(row, "rushing_yards"),
			formatStat(row, "def_sacks"))
	}

	return Result{Text: b.String(), Data: rowsData(rows)}, nil
}

func (h *statsHandlers) querySQL(ctx context.Context, args Args) (Result, error) {
	query, _ := args.String("sql")
	if err := ValidateSelect(query); err != nil {
		return Result{}, &ArgError{Param: "sql", Msg: err.Error()}
	}

	result, err := h.db.QueryReadOnly(ctx, query, maxQueryRows)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	b.WriteString(strings.Join(result.Columns, " | "))
	b.WriteString("\n")
	for _, row := range result.Rows {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = formatCell(v)
		}
		b.WriteString(strings.Join(cells, " | "))
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "\n%d rows", len(result.Rows))
	if result.Truncated {
		fmt.Fprintf(&b, " (truncated at %d)", maxQueryRows)
	}
	b.WriteString("\n")

	return Result{Text: b.String(), Data: result}, nil
}

func teamArg(args Args, name string) (string, error) {
	team, ok := args.String(name)
	if !ok {
		return "", &ArgError{Param: name, Msg: "must not be empty"}
	}
	return strings.ToUpper(team), nil
}

func seasonTypeArg(args Args) (models.SeasonType, error) {
	raw, _ := args.String("season_type")
	st, err := models.ParseSeasonType(raw)
	if err != nil {
		return "", &ArgError{Param: "season_type", Msg: err.Error()}
	}
	return st, nil
}

func isNotFound(err error) bool {
	return errors.Is(err, repository.ErrNotFound)
}

func formatStat(row models.StatRow, column string) string {
	v, ok := row.Stat(column)
	if !ok {
		return "N/A"
	}
	return formatNumber(v)
}

func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case float64:
		return formatNumber(x)
	default:
		return fmt.Sprint(x)
	}
}

func nullableFloat(v sql.NullFloat64) any {
	if !v.Valid {
		return nil
	}
	return v.Float64
}

// titleCase turns passing_yards into Passing Yards
func titleCase(column string) string {
	words := strings.Split(column, "_")
	for i, w := range words {
		if w != "" {
			words[i] = strings.ToUpper(w[:1]) + w[1:]
		}
	}
	return strings.Join(words, " ")
}

// rowsData flattens rows for JSON: NULL stats become null
func rowsData(rows []models.StatRow) []map[string]any {
	out := make([]map[string]any, len(rows))
	for i, row := range rows {
		m := make(map[string]any, len(models.StatColumns)+len(models.KeyColumns))
		m[models.ColSeason] = row.Season
		m[models.ColTeam] = row.Team
		m[models.ColSeasonType] = row.SeasonType
		for _, c := range models.StatColumns {
			if c.Type == models.Text {
				if t := row.Text[c.Name]; t.Valid {
					m[c.Name] = t.String
				} else {
					m[c.Name] = nil
				}
				continue
			}
			m[c.Name] = nullableFloat(row.Stats[c.Name])
		}
		out[i] = m
	}
	return out
}
