package tools

import (
	"context"
	"time"

	"nflstats/internal/live"
)

// RegisterLiveTools adds the ESPN scoreboard tools
func RegisterLiveTools(r *Registry, svc *live.Service) {
	h := &liveHandlers{svc: svc, now: time.Now}

	r.Register(ToolSpec{
		Name:        "get_live_scores",
		Description: "Get current live NFL scores and game status from ESPN",
		ReadOnly:    true,
	}, h.liveScores)

	r.Register(ToolSpec{
		Name:        "get_live_game_details",
		Description: "Get detailed information about a specific live or recent NFL game",
		ReadOnly:    true,
		Params: []Param{
			{Name: "team1", Type: TypeString, Description: "Team name or abbreviation (e.g. Bills, BUF)", Required: true},
			{Name: "team2", Type: TypeString, Description: "Opponent name or abbreviation; team1's current game when omitted"},
		},
	}, h.gameDetails)

	r.Register(ToolSpec{
		Name:        "get_nfl_standings",
		Description: "Get current NFL season information and recent results",
		ReadOnly:    true,
	}, h.standings)
}

type liveHandlers struct {
	svc *live.Service
	now func() time.Time
}

func (h *liveHandlers) liveScores(ctx context.Context, _ Args) (Result, error) {
	sb, err := h.svc.Scoreboard(ctx)
	if err != nil {
		return Result{}, err
	}
	now := h.now()
	return Result{Text: live.FormatScores(sb, now), Data: live.NewSnapshot(sb, now)}, nil
}

func (h *liveHandlers) gameDetails(ctx context.Context, args Args) (Result, error) {
	team1, ok := args.String("team1")
	if !ok {
		return Result{}, &ArgError{Param: "team1", Msg: "must not be empty"}
	}
	team2, _ := args.String("team2")

	sb, err := h.svc.Scoreboard(ctx)
	if err != nil {
		return Result{}, err
	}
	if len(sb.Events()) == 0 {
		return Result{Text: "No NFL games found in the current schedule"}, nil
	}

	game, found := live.FindGame(sb.Events(), team1, team2)
	if !found {
		return Result{Text: live.NotFoundMessage(team1, team2)}, nil
	}
	return Result{Text: live.FormatGameDetail(game), Data: game}, nil
}

func (h *liveHandlers) standings(ctx context.Context, _ Args) (Result, error) {
	sb, err := h.svc.Scoreboard(ctx)
	if err != nil {
		return Result{}, err
	}
	data := map[string]any{}
	if season, ok := sb.Season(); ok {
		data["season"] = season
	}
	if week, ok := sb.CurrentWeek(); ok {
		data["week"] = week
	}
	return Result{Text: live.FormatSeasonInfo(sb), Data: data}, nil
}
