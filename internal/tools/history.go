package tools

import (
	"context"
	"fmt"
	"strings"

	"nflstats/internal/models"
	"nflstats/internal/repository"
)

const (
	defaultSearchLimit = 20
	maxSearchLimit     = 200
	// descriptions are printed only for game logs up to this many plays
	maxDescribedPlays = 50
	descriptionWidth  = 100
)

var playoffRounds = []string{models.RoundWildCard, models.RoundDivisional, models.RoundConference, models.RoundSuperBowl}

// RegisterHistoryTools adds the play-by-play and game result tools
func RegisterHistoryTools(r *Registry, db *repository.Database) {
	h := &historyHandlers{db: db}

	r.Register(ToolSpec{
		Name:        "get_databases_overview",
		Description: "Get an overview of the team stats, plays and games tables",
		ReadOnly:    true,
		Idempotent:  true,
	}, h.databasesOverview)

	r.Register(ToolSpec{
		Name:        "get_game_plays",
		Description: "Get all plays from a specific game grouped by quarter and drive",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "away_team", Type: TypeString, Description: "Away team abbreviation (e.g. BUF, KC)", Required: true},
			{Name: "home_team", Type: TypeString, Description: "Home team abbreviation (e.g. BUF, KC)", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year", Required: true},
			{Name: "week", Type: TypeString, Description: "Week number or round name; every meeting when omitted"},
		},
	}, h.gamePlays)

	r.Register(ToolSpec{
		Name:        "get_game_score",
		Description: "Get the final score and details for a specific game",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "away_team", Type: TypeString, Description: "Away team abbreviation", Required: true},
			{Name: "home_team", Type: TypeString, Description: "Home team abbreviation", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year", Required: true},
			{Name: "week", Type: TypeString, Description: "Week number or round name; the earliest meeting when omitted"},
		},
	}, h.gameScore)

	r.Register(ToolSpec{
		Name:        "search_plays_by_outcome",
		Description: "Search plays by outcome (e.g. Touchdown, Interception, Fumble)",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "play_outcome", Type: TypeString, Description: "Text the play outcome contains", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year; all seasons when omitted"},
			{Name: "team", Type: TypeString, Description: "Only plays involving this team"},
			{Name: "limit", Type: TypeInteger, Description: "Maximum results, 1-200", Default: defaultSearchLimit},
		},
	}, h.searchPlays)

	r.Register(ToolSpec{
		Name:        "get_team_season_record",
		Description: "Get a team's win-loss record and every game of a season",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "team", Type: TypeString, Description: "Team abbreviation (e.g. BUF, KC, GB)", Required: true},
			{Name: "season", Type: TypeInteger, Description: "Season year", Required: true},
		},
	}, h.teamSeasonRecord)

	r.Register(ToolSpec{
		Name:        "get_playoff_results",
		Description: "Get playoff results for a season",
		ReadOnly:    true,
		Idempotent:  true,
		Params: []Param{
			{Name: "season", Type: TypeInteger, Description: "Season year", Required: true},
			{Name: "round_name", Type: TypeString, Description: "Wild Card, Divisional, Conference or Super Bowl; every round when omitted"},
		},
	}, h.playoffResults)
}

type historyHandlers struct {
	db *repository.Database
}

func (h *historyHandlers) databasesOverview(ctx context.Context, _ Args) (Result, error) {
	stats, err := h.db.Stats.Overview(ctx)
	if err != nil {
		return Result{}, err
	}
	plays, err := h.db.History.PlaysOverview(ctx)
	if err != nil {
		return Result{}, err
	}
	games, err := h.db.History.GamesOverview(ctx)
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	b.WriteString("NFL Databases Overview:\n\n")

	b.WriteString("Team Stats:\n")
	if len(stats) == 0 {
		b.WriteString("  No data\n")
	}
	for _, o := range stats {
		fmt.Fprintf(&b, "  %s: %d records, %d teams, seasons %d-%d\n",
			o.SeasonType, o.TotalRecords, o.UniqueTeams, o.EarliestSeason, o.LatestSeason)
	}

	b.WriteString("\nPlays:\n")
	if plays.TotalPlays == 0 {
		b.WriteString("  No data\n")
	} else {
		fmt.Fprintf(&b, "  Total plays: %d\n", plays.TotalPlays)
		fmt.Fprintf(&b, "  Seasons: %d (%d-%d)\n", plays.Seasons, plays.EarliestSeason, plays.LatestSeason)
		fmt.Fprintf(&b, "  Unique games: %d\n", plays.UniqueGames)
	}

	b.WriteString("\nGames:\n")
	if games.TotalGames == 0 {
		b.WriteString("  No data\n")
	} else {
		fmt.Fprintf(&b, "  Total games: %d\n", games.TotalGames)
		fmt.Fprintf(&b, "  Seasons: %d (%d-%d)\n", games.Seasons, games.EarliestSeason, games.LatestSeason)
		fmt.Fprintf(&b, "  Playoff games: %d\n", games.PlayoffGames)
	}

	return Result{
		Text: b.String(),
		Data: map[string]any{"team_stats": stats, "plays": plays, "games": games},
	}, nil
}

func (h *historyHandlers) gamePlays(ctx context.Context, args Args) (Result, error) {
	away, home, season, week, err := matchupArgs(args)
	if err != nil {
		return Result{}, err
	}

	plays, err := h.db.History.GamePlays(ctx, away, home, season, week)
	if err != nil {
		return Result{}, err
	}
	if len(plays) == 0 {
		return Result{Text: fmt.Sprintf("No plays found for %s @ %s in %d%s", away, home, season, weekSuffix(week))}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game Plays: %s @ %s - %d%s\n\n", away, home, season, weekSuffix(week))
	fmt.Fprintf(&b, "Total plays: %d\n", len(plays))

	quarter, drive := "", -1
	for _, p := range plays {
		if p.Quarter != quarter {
			quarter, drive = p.Quarter, -1
			fmt.Fprintf(&b, "\n=== %s ===\n", quarter)
		}
		if p.DriveNumber != drive {
			drive = p.DriveNumber
			fmt.Fprintf(&b, "\nDrive %d (%s):\n", drive, p.TeamWithPossession)
		}

		flag := ""
		if p.IsScoringPlay {
			flag = " [score]"
		}
		fmt.Fprintf(&b, "  %2d. %s%s\n", p.PlayNumberInDrive, p.PlayOutcome, flag)
		if len(plays) <= maxDescribedPlays {
			fmt.Fprintf(&b, "      %s\n", truncate(p.PlayDescription, descriptionWidth))
		}
	}

	return Result{Text: b.String(), Data: plays}, nil
}

func (h *historyHandlers) gameScore(ctx context.Context, args Args) (Result, error) {
	away, home, season, week, err := matchupArgs(args)
	if err != nil {
		return Result{}, err
	}

	g, err := h.db.History.GameScore(ctx, away, home, season, week)
	if isNotFound(err) {
		return Result{Text: fmt.Sprintf("No game found for %s @ %s in %d%s", away, home, season, weekSuffix(week))}, nil
	}
	if err != nil {
		return Result{}, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Game Result: %s @ %s\n\n", g.AwayTeam, g.HomeTeam)
	fmt.Fprintf(&b, "Date: %s, %s\n", g.Day, g.Date)
	fmt.Fprintf(&b, "Season: %d Week %s\n", g.Season, g.Week)
	fmt.Fprintf(&b, "Status: %s\n", g.GameStatus)
	if g.PostSeason {
		b.WriteString("Playoff Game\n")
		if g.AwaySeeding != "" && g.HomeSeeding != "" {
			fmt.Fprintf(&b, "Seeding: %s #%s vs %s #%s\n", g.AwayTeam, g.AwaySeeding, g.HomeTeam, g.HomeSeeding)
		}
	}

	w, l := g.Winner(), g.Loser()
	fmt.Fprintf(&b, "\nScore:\n  %s %s - %s %s\n\n", w.Team, formatNumber(w.Score), l.Team, formatNumber(l.Score))
	fmt.Fprintf(&b, "Records:\n  %s: %s\n  %s: %s\n", g.AwayTeam, g.AwayRecord, g.HomeTeam, g.HomeRecord)

	return Result{Text: b.String(), Data: gameData(*g)}, nil
}

func (h *historyHandlers) searchPlays(ctx context.Context, args Args) (Result, error) {
	outcome, ok := args.String("play_outcome")
	if !ok {
		return Result{}, &ArgError{Param: "play_outcome", Msg: "must not be empty"}
	}
	season, _ := args.Int("season")
	team, _ := args.String("team")
	team = strings.ToUpper(team)

	limit, ok := args.Int("limit")
	if !ok {
		limit = defaultSearchLimit
	}
	limit = min(max(limit, 1), maxSearchLimit)

	plays, err := h.db.History.SearchPlays(ctx, repository.PlaySearch{Outcome: outcome, Season: season, Team: team, Limit: limit})
	if err != nil {
		return Result{}, err
	}

	filter := ""
	if season != 0 {
		filter += fmt.Sprintf(" in %d", season)
	}
	if team != "" {
		filter += " involving " + team
	}
	if len(plays) == 0 {
		return Result{Text: fmt.Sprintf("No plays found for '%s'%s", outcome, filter)}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Plays with outcome '%s'%s:\n\n", outcome, filter)
	for i, p := range plays {
		fmt.Fprintf(&b, "%2d. %d Week %s - %s @ %s\n", i+1, p.Season, p.Week, p.AwayTeam, p.HomeTeam)
		fmt.Fprintf(&b, "    %s - %s: %s\n", p.Quarter, p.TeamWithPossession, p.PlayOutcome)
		fmt.Fprintf(&b, "    %s\n\n", truncate(p.PlayDescription, descriptionWidth))
	}

	return Result{Text: b.String(), Data: plays}, nil
}

func (h *historyHandlers) teamSeasonRecord(ctx context.Context, args Args) (Result, error) {
	team, err := teamArg(args, "team")
	if err != nil {
		return Result{}, err
	}
	season, _ := args.Int("season")

	games, err := h.db.History.TeamSeason(ctx, team, season)
	if err != nil {
		return Result{}, err
	}
	if len(games) == 0 {
		return Result{Text: fmt.Sprintf("No games found for %s in %d", team, season)}, nil
	}

	var regW, regL, postW, postL int
	views := make([]models.TeamGame, 0, len(games))
	for _, g := range games {
		v, _ := g.ForTeam(team)
		switch {
		case v.PostSeason && v.Won:
			postW++
		case v.PostSeason:
			postL++
		case v.Won:
			regW++
		default:
			regL++
		}
		views = append(views, v)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s %d Season Record\n\n", team, season)
	fmt.Fprintf(&b, "Regular Season: %d-%d\n", regW, regL)
	if postW+postL > 0 {
		fmt.Fprintf(&b, "Playoffs: %d-%d\n", postW, postL)
	}
	b.WriteString("\nGames:\n")

	inPlayoffs := false
	data := make([]map[string]any, len(views))
	for i, v := range views {
		if v.PostSeason && !inPlayoffs {
			inPlayoffs = true
			b.WriteString("\nPlayoffs:\n")
		}
		result, where := "L", "@"
		if v.Won {
			result = "W"
		}
		if v.Home {
			where = "vs"
		}
		fmt.Fprintf(&b, "  Week %-12s %s %-2s %-3s %s-%s\n",
			v.Week, result, where, v.Opponent, formatNumber(v.TeamScore), formatNumber(v.OpponentScore))

		data[i] = map[string]any{
			"week":           v.Week,
			"date":           v.Date,
			"opponent":       v.Opponent,
			"home":           v.Home,
			"won":            v.Won,
			"team_score":     v.TeamScore,
			"opponent_score": v.OpponentScore,
			"post_season":    v.PostSeason,
		}
	}

	return Result{Text: b.String(), Data: map[string]any{
		"team":           team,
		"season":         season,
		"regular_season": map[string]int{"wins": regW, "losses": regL},
		"playoffs":       map[string]int{"wins": postW, "losses": postL},
		"games":          data,
	}}, nil
}

func (h *historyHandlers) playoffResults(ctx context.Context, args Args) (Result, error) {
	season, _ := args.Int("season")
	round, err := roundArg(args)
	if err != nil {
		return Result{}, err
	}

	games, err := h.db.History.PlayoffResults(ctx, season, round)
	if err != nil {
		return Result{}, err
	}

	title := fmt.Sprintf("%d playoffs", season)
	if round != "" {
		title = fmt.Sprintf("%d %s", season, round)
	}
	if len(games) == 0 {
		return Result{Text: "No playoff games found for " + title}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d NFL Playoffs", season)
	if round != "" {
		b.WriteString(" - " + round)
	}
	b.WriteString("\n")

	current := ""
	data := make([]map[string]any, len(games))
	for i, g := range games {
		if g.Week != current {
			current = g.Week
			fmt.Fprintf(&b, "\n%s:\n", current)
		}
		w, l := g.Winner(), g.Loser()
		seeds := ""
		if w.Seeding != "" && l.Seeding != "" {
			seeds = fmt.Sprintf(" (#%s def #%s)", w.Seeding, l.Seeding)
		}
		fmt.Fprintf(&b, "  %s %s - %s %s%s\n", w.Team, formatNumber(w.Score), l.Team, formatNumber(l.Score), seeds)
		data[i] = gameData(g)
	}

	return Result{Text: b.String(), Data: data}, nil
}

// matchupArgs reads away_team, home_team, season and the optional week
func matchupArgs(args Args) (away, home string, season int, week string, err error) {
	if away, err = teamArg(args, "away_team"); err != nil {
		return
	}
	if home, err = teamArg(args, "home_team"); err != nil {
		return
	}
	season, _ = args.Int("season")
	week, _ = args.String("week")
	return
}

// roundArg accepts a playoff round name in any case
func roundArg(args Args) (string, error) {
	raw, ok := args.String("round_name")
	if !ok {
		return "", nil
	}
	for _, r := range playoffRounds {
		if strings.EqualFold(raw, r) {
			return r, nil
		}
	}
	return "", &ArgError{Param: "round_name", Msg: fmt.Sprintf("must be one of %s", strings.Join(playoffRounds, ", "))}
}

func weekSuffix(week string) string {
	if week == "" {
		return ""
	}
	return " week " + week
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width]) + "..."
}

func gameData(g models.GameResult) map[string]any {
	return map[string]any{
		"season":       g.Season,
		"week":         g.Week,
		"game_status":  g.GameStatus,
		"day":          g.Day,
		"date":         g.Date,
		"away_team":    g.AwayTeam,
		"away_record":  g.AwayRecord,
		"away_score":   nullableFloat(g.AwayScore),
		"away_win":     g.AwayWin,
		"home_team":    g.HomeTeam,
		"home_record":  g.HomeRecord,
		"home_score":   nullableFloat(g.HomeScore),
		"home_win":     g.HomeWin,
		"away_seeding": g.AwaySeeding,
		"home_seeding": g.HomeSeeding,
		"post_season":  g.PostSeason,
	}
}
