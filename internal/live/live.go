// Package live serves the current NFL scoreboard: fetched from ESPN, cached
// briefly, never persisted.
package live

import (
	"context"
	"fmt"
	"strings"
	"time"

	"nflstats/internal/client"
	"nflstats/internal/metrics"
	"nflstats/internal/models"

	"github.com/rs/zerolog/log"
)

const scoreboardCacheKey = "nflstats:live:scoreboard"

// Source fetches the raw scoreboard payload
type Source interface {
	FetchScoreboardRaw(ctx context.Context) ([]byte, error)
}

// Cache stores the raw payload between fetches
type Cache interface {
	GetBytes(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// Service reads the scoreboard through an optional cache
type Service struct {
	source Source
	cache  Cache
	ttl    time.Duration
}

// NewService creates a live scoreboard service. cache may be nil.
func NewService(source Source, cache Cache, ttl time.Duration) *Service {
	return &Service{source: source, cache: cache, ttl: ttl}
}

// Scoreboard returns the cached scoreboard when fresh, else fetches it
func (s *Service) Scoreboard(ctx context.Context) (*models.Scoreboard, error) {
	if s.cache != nil {
		body, ok, err := s.cache.GetBytes(ctx, scoreboardCacheKey)
		if err != nil {
			log.Warn().Err(err).Msg("Scoreboard cache read failed, fetching")
		} else if ok {
			sb, err := client.DecodeScoreboard(body)
			if err == nil {
				return sb, nil
			}
			log.Warn().Err(err).Msg("Cached scoreboard is corrupt, fetching")
		}
	}

	return s.Refresh(ctx)
}

// Refresh fetches the scoreboard from the source and writes it to the cache
func (s *Service) Refresh(ctx context.Context) (*models.Scoreboard, error) {
	body, err := s.source.FetchScoreboardRaw(ctx)
	if err != nil {
		metrics.RecordError("live", "fetch")
		return nil, err
	}

	sb, err := client.DecodeScoreboard(body)
	if err != nil {
		metrics.RecordError("live", "decode")
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, scoreboardCacheKey, body, s.ttl); err != nil {
			log.Warn().Err(err).Msg("Failed to cache scoreboard")
		}
	}

	g := Group(sb.Events())
	metrics.UpdateLiveGames(len(g.Live), len(g.Upcoming), len(g.Final))

	log.Debug().
		Int("events", len(sb.Events())).
		Int("live", len(g.Live)).
		Msg("Scoreboard refreshed")

	return sb, nil
}

// Groups partitions games by state
type Groups struct {
	Live     []models.Game
	Upcoming []models.Game
	Final    []models.Game
}

// Group puts in-progress and halftime games in Live, scheduled and postponed
// games in Upcoming, and everything else in Final.
func Group(games []models.Game) Groups {
	var g Groups
	for _, game := range games {
		switch {
		case game.IsLive():
			g.Live = append(g.Live, game)
		case game.IsUpcoming():
			g.Upcoming = append(g.Upcoming, game)
		default:
			g.Final = append(g.Final, game)
		}
	}
	return g
}

// FindGame returns the first game involving team1 (and team2, when given).
// Teams match by abbreviation, nickname or display name.
func FindGame(games []models.Game, team1, team2 string) (models.Game, bool) {
	team2 = strings.TrimSpace(team2)

	for _, game := range games {
		comp, ok := game.Competition()
		if !ok || len(comp.Competitors) < 2 {
			continue
		}

		var has1, has2 bool
		for _, c := range comp.Competitors {
			has1 = has1 || c.Matches(team1)
			has2 = has2 || c.Matches(team2)
		}
		if has1 && (team2 == "" || has2) {
			return game, true
		}
	}
	return models.Game{}, false
}

// GameView is the flattened form of a game sent to feed subscribers
type GameView struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	Detail    string `json:"detail"`
	Away      string `json:"away"`
	Home      string `json:"home"`
	AwayScore string `json:"away_score"`
	HomeScore string `json:"home_score"`
	Date      string `json:"date"`
	Summary   string `json:"summary"`
}

// Snapshot is one scoreboard state
type Snapshot struct {
	UpdatedAt  time.Time  `json:"updated_at"`
	Season     int        `json:"season,omitempty"`
	SeasonType string     `json:"season_type,omitempty"`
	Week       int        `json:"week,omitempty"`
	Live       []GameView `json:"live"`
	Upcoming   []GameView `json:"upcoming"`
	Final      []GameView `json:"final"`
}

// NewSnapshot flattens a scoreboard
func NewSnapshot(sb *models.Scoreboard, now time.Time) Snapshot {
	g := Group(sb.Events())
	snap := Snapshot{
		UpdatedAt: now.UTC(),
		Live:      views(g.Live),
		Upcoming:  views(g.Upcoming),
		Final:     views(g.Final),
	}
	if season, ok := sb.Season(); ok {
		snap.Season = season.Year
		snap.SeasonType = season.Type.Name
	}
	if week, ok := sb.CurrentWeek(); ok {
		snap.Week = week
	}
	return snap
}

func views(games []models.Game) []GameView {
	out := make([]GameView, 0, len(games))
	for _, game := range games {
		v := GameView{
			ID:      game.ID,
			Status:  game.StatusName(),
			Detail:  game.Status.Type.Detail,
			Date:    game.Date,
			Summary: FormatGameSummary(game, false),
		}
		if home, away, ok := game.HomeAway(); ok {
			v.Home, v.HomeScore = home.Team.Abbreviation, home.Score
			v.Away, v.AwayScore = away.Team.Abbreviation, away.Score
		}
		out = append(out, v)
	}
	return out
}

// searchTerm renders the lookup for not-found messages
func searchTerm(team1, team2 string) string {
	if strings.TrimSpace(team2) == "" {
		return strings.ToUpper(team1)
	}
	return fmt.Sprintf("%s vs %s", strings.ToUpper(team1), strings.ToUpper(team2))
}
