package models

import "database/sql"

// Playoff round names used in the games "week" column
const (
	RoundWildCard   = "Wild Card"
	RoundDivisional = "Divisional"
	RoundConference = "Conference"
	RoundSuperBowl  = "Super Bowl"
)

// Play is one row of a play-by-play file. The natural key is
// (season, week, away, home, quarter, drive, play number in drive).
type Play struct {
	Season             int    `json:"season"`
	Week               string `json:"week"`
	Day                string `json:"day,omitempty"`
	Date               string `json:"date,omitempty"`
	AwayTeam           string `json:"away_team"`
	HomeTeam           string `json:"home_team"`
	Quarter            string `json:"quarter"`
	DriveNumber        int    `json:"drive_number"`
	TeamWithPossession string `json:"team_with_possession,omitempty"`
	IsScoringDrive     bool   `json:"is_scoring_drive"`
	PlayNumberInDrive  int    `json:"play_number_in_drive"`
	IsScoringPlay      bool   `json:"is_scoring_play"`
	PlayOutcome        string `json:"play_outcome,omitempty"`
	PlayDescription    string `json:"play_description,omitempty"`
	PlayStart          string `json:"play_start,omitempty"`
}

// GameResult is one row of a scores file
type GameResult struct {
	Season      int             `json:"season"`
	Week        string          `json:"week"`
	GameStatus  string          `json:"game_status,omitempty"`
	Day         string          `json:"day,omitempty"`
	Date        string          `json:"date"`
	AwayTeam    string          `json:"away_team"`
	AwayRecord  string          `json:"away_record,omitempty"`
	AwayScore   sql.NullFloat64 `json:"-"`
	AwayWin     bool            `json:"away_win"`
	HomeTeam    string          `json:"home_team"`
	HomeRecord  string          `json:"home_record,omitempty"`
	HomeScore   sql.NullFloat64 `json:"-"`
	HomeWin     bool            `json:"home_win"`
	AwaySeeding string          `json:"away_seeding,omitempty"`
	HomeSeeding string          `json:"home_seeding,omitempty"`
	PostSeason  bool            `json:"post_season"`
}

// Side is one team's view of a game
type Side struct {
	Team    string
	Score   float64
	Seeding string
}

// Winner returns the winning side. A game with no away win counts as a home
// win.
func (g GameResult) Winner() Side {
	if g.AwayWin {
		return g.away()
	}
	return g.home()
}

// Loser is the side Winner did not return
func (g GameResult) Loser() Side {
	if g.AwayWin {
		return g.home()
	}
	return g.away()
}

func (g GameResult) away() Side {
	return Side{Team: g.AwayTeam, Score: g.AwayScore.Float64, Seeding: g.AwaySeeding}
}

func (g GameResult) home() Side {
	return Side{Team: g.HomeTeam, Score: g.HomeScore.Float64, Seeding: g.HomeSeeding}
}

// TeamGame is a game seen from one participant
type TeamGame struct {
	GameResult
	Team          string
	Opponent      string
	Home          bool
	Won           bool
	TeamScore     float64
	OpponentScore float64
}

// ForTeam returns g from team's side. ok is false when team did not play.
func (g GameResult) ForTeam(team string) (TeamGame, bool) {
	switch team {
	case g.AwayTeam:
		return TeamGame{
			GameResult: g, Team: team, Opponent: g.HomeTeam,
			Won: g.AwayWin, TeamScore: g.AwayScore.Float64, OpponentScore: g.HomeScore.Float64,
		}, true
	case g.HomeTeam:
		return TeamGame{
			GameResult: g, Team: team, Opponent: g.AwayTeam, Home: true,
			Won: g.HomeWin, TeamScore: g.HomeScore.Float64, OpponentScore: g.AwayScore.Float64,
		}, true
	}
	return TeamGame{}, false
}

// PlaysOverview summarises the plays table
type PlaysOverview struct {
	TotalPlays     int64 `json:"total_plays"`
	Seasons        int64 `json:"seasons"`
	EarliestSeason int   `json:"earliest_season"`
	LatestSeason   int   `json:"latest_season"`
	UniqueGames    int64 `json:"unique_games"`
}

// GamesOverview summarises the games table
type GamesOverview struct {
	TotalGames     int64 `json:"total_games"`
	Seasons        int64 `json:"seasons"`
	EarliestSeason int   `json:"earliest_season"`
	LatestSeason   int   `json:"latest_season"`
	PlayoffGames   int64 `json:"playoff_games"`
}
