package models

import "database/sql"

// SeasonTypeOverview summarises team_stats for one season type
type SeasonTypeOverview struct {
	SeasonType     SeasonType `json:"season_type"`
	TotalRecords   int        `json:"total_records"`
	UniqueTeams    int        `json:"unique_teams"`
	SeasonsCovered int        `json:"seasons_covered"`
	EarliestSeason int        `json:"earliest_season"`
	LatestSeason   int        `json:"latest_season"`
}

// SeasonCount is the number of teams stored for one season and season type
type SeasonCount struct {
	Season     int        `json:"season"`
	SeasonType SeasonType `json:"season_type"`
	Teams      int        `json:"teams"`
}

// Leader is one row of a stat leaderboard
type Leader struct {
	Season     int             `json:"season"`
	Team       string          `json:"team"`
	SeasonType SeasonType      `json:"season_type"`
	Games      sql.NullFloat64 `json:"-"`
	Value      float64         `json:"value"`
}

// PlayoffTeam is a team with postseason stats for a season
type PlayoffTeam struct {
	Season int             `json:"season"`
	Team   string          `json:"team"`
	Games  sql.NullFloat64 `json:"-"`
}
