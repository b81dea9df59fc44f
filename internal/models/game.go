package models

import (
	"strings"
	"time"
)

// ESPN status names
const (
	StatusScheduled  = "STATUS_SCHEDULED"
	StatusInProgress = "STATUS_IN_PROGRESS"
	StatusHalftime   = "STATUS_HALFTIME"
	StatusPostponed  = "STATUS_POSTPONED"
	StatusFinal      = "STATUS_FINAL"
)

// Scoreboard is the subset of the ESPN core scoreboard payload we read
type Scoreboard struct {
	Content struct {
		SBData ScoreboardData `json:"sbData"`
	} `json:"content"`
}

// ScoreboardData holds the events and league metadata of a scoreboard
type ScoreboardData struct {
	Leagues []League `json:"leagues"`
	Events  []Game   `json:"events"`
	Week    *Week    `json:"week,omitempty"`
}

// Events is a shorthand for Content.SBData.Events
func (s *Scoreboard) Events() []Game {
	return s.Content.SBData.Events
}

// Season returns the first league's season, if any
func (s *Scoreboard) Season() (LeagueSeason, bool) {
	if len(s.Content.SBData.Leagues) == 0 {
		return LeagueSeason{}, false
	}
	return s.Content.SBData.Leagues[0].Season, true
}

// CurrentWeek returns the week number from the season block or the top-level
// week block, whichever is present.
func (s *Scoreboard) CurrentWeek() (int, bool) {
	if season, ok := s.Season(); ok && season.Week != nil {
		return season.Week.Number, true
	}
	if s.Content.SBData.Week != nil {
		return s.Content.SBData.Week.Number, true
	}
	return 0, false
}

type League struct {
	Name         string       `json:"name"`
	Abbreviation string       `json:"abbreviation"`
	Season       LeagueSeason `json:"season"`
}

type LeagueSeason struct {
	Year int `json:"year"`
	Type struct {
		Name         string `json:"name"`
		Abbreviation string `json:"abbreviation"`
	} `json:"type"`
	Week *Week `json:"week,omitempty"`
}

type Week struct {
	Number int `json:"number"`
}

// Game represents one NFL game on the live scoreboard
type Game struct {
	ID           string        `json:"id"`
	Date         string        `json:"date"`
	Name         string        `json:"name"`
	ShortName    string        `json:"shortName"`
	Status       GameStatus    `json:"status"`
	Competitions []Competition `json:"competitions"`
}

type GameStatus struct {
	DisplayClock string `json:"displayClock"`
	Period       int    `json:"period"`
	Type         struct {
		Name        string `json:"name"`
		State       string `json:"state"`
		Completed   bool   `json:"completed"`
		Detail      string `json:"detail"`
		ShortDetail string `json:"shortDetail"`
	} `json:"type"`
}

type Competition struct {
	Venue       *Venue       `json:"venue,omitempty"`
	Broadcasts  []Broadcast  `json:"broadcasts"`
	Odds        []GameOdds   `json:"odds"`
	Competitors []Competitor `json:"competitors"`
}

type Venue struct {
	FullName string `json:"fullName"`
	Address  struct {
		City  string `json:"city"`
		State string `json:"state"`
	} `json:"address"`
}

type Broadcast struct {
	Media struct {
		ShortName string `json:"shortName"`
	} `json:"media"`
}

type GameOdds struct {
	Details   string  `json:"details"`
	OverUnder float64 `json:"overUnder"`
}

type Competitor struct {
	HomeAway string `json:"homeAway"`
	Score    string `json:"score"`
	Team     struct {
		Abbreviation string `json:"abbreviation"`
		DisplayName  string `json:"displayName"`
		Name         string `json:"name"`
	} `json:"team"`
	Records []struct {
		Type    string `json:"type"`
		Summary string `json:"summary"`
	} `json:"records"`
}

// TotalRecord returns the competitor's overall W-L summary
func (c Competitor) TotalRecord() string {
	for _, r := range c.Records {
		if r.Type == "total" {
			return r.Summary
		}
	}
	return ""
}

// Matches reports whether query names this competitor by abbreviation,
// nickname, or display name (case-insensitive).
func (c Competitor) Matches(query string) bool {
	q := strings.ToUpper(strings.TrimSpace(query))
	if q == "" {
		return false
	}
	return q == strings.ToUpper(c.Team.Abbreviation) ||
		q == strings.ToUpper(c.Team.Name) ||
		q == strings.ToUpper(c.Team.DisplayName)
}

// Competition returns the game's first competition
func (g Game) Competition() (Competition, bool) {
	if len(g.Competitions) == 0 {
		return Competition{}, false
	}
	return g.Competitions[0], true
}

// HomeAway returns the home and away competitors. The homeAway field wins;
// without it ESPN's ordering (home first) is used.
func (g Game) HomeAway() (home, away Competitor, ok bool) {
	comp, found := g.Competition()
	if !found || len(comp.Competitors) < 2 {
		return Competitor{}, Competitor{}, false
	}

	home, away = comp.Competitors[0], comp.Competitors[1]
	for _, c := range comp.Competitors {
		switch c.HomeAway {
		case "home":
			home = c
		case "away":
			away = c
		}
	}
	return home, away, true
}

// StatusName returns the ESPN status name, e.g. STATUS_FINAL
func (g Game) StatusName() string {
	return g.Status.Type.Name
}

// IsLive reports an in-progress or halftime game
func (g Game) IsLive() bool {
	switch g.StatusName() {
	case StatusInProgress, StatusHalftime:
		return true
	}
	return false
}

// IsUpcoming reports a scheduled or postponed game
func (g Game) IsUpcoming() bool {
	switch g.StatusName() {
	case StatusScheduled, StatusPostponed:
		return true
	}
	return false
}

// StartTime parses the ESPN date; ESPN omits seconds ("2025-10-19T17:00Z").
func (g Game) StartTime() (time.Time, bool) {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04Z07:00"} {
		if t, err := time.Parse(layout, g.Date); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}
