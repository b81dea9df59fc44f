package live

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"nflstats/internal/models"
)

// FormatGameSummary renders one scoreboard line, e.g. "BUF 17 - KC 24 (3Q 7:42)"
func FormatGameSummary(game models.Game, showDate bool) string {
	home, away, ok := game.HomeAway()
	if !ok {
		return "Invalid game data"
	}

	awayName := orDefault(away.Team.Abbreviation, "TBD")
	homeName := orDefault(home.Team.Abbreviation, "TBD")
	detail := game.Status.Type.Detail

	if game.StatusName() == models.StatusScheduled {
		line := fmt.Sprintf("%s @ %s", awayName, homeName)
		if showDate {
			if t, ok := game.StartTime(); ok {
				line += fmt.Sprintf(" (%s)", t.UTC().Format("01/02 15:04"))
			}
		}
		return line + " - " + detail
	}

	line := fmt.Sprintf("%s %s - %s %s", awayName, orDefault(away.Score, "0"), homeName, orDefault(home.Score, "0"))
	switch game.StatusName() {
	case models.StatusInProgress:
		line += fmt.Sprintf(" (%dQ %s)", max(game.Status.Period, 1), game.Status.DisplayClock)
	case models.StatusHalftime:
		line += " (HALFTIME)"
	case models.StatusFinal:
		if detail != "" && detail != "Final" {
			line += fmt.Sprintf(" (%s)", detail)
		} else {
			line += " (FINAL)"
		}
	}
	return line
}

// FormatGameDetail renders the full game card: teams, score, status, date,
// venue, broadcast, odds and records.
func FormatGameDetail(game models.Game) string {
	home, away, ok := game.HomeAway()
	if !ok {
		return "Invalid game data"
	}
	comp, _ := game.Competition()

	awayAbbr := orDefault(away.Team.Abbreviation, "AWAY")
	homeAbbr := orDefault(home.Team.Abbreviation, "HOME")

	var b strings.Builder
	b.WriteString("Game Details\n\n")
	fmt.Fprintf(&b, "%s (%s)\nvs\n%s (%s)\n\n",
		orDefault(away.Team.DisplayName, "Away Team"), awayAbbr,
		orDefault(home.Team.DisplayName, "Home Team"), homeAbbr)
	fmt.Fprintf(&b, "Score: %s %s - %s %s\n\n", awayAbbr, orDefault(away.Score, "0"), homeAbbr, orDefault(home.Score, "0"))

	switch game.StatusName() {
	case models.StatusInProgress:
		fmt.Fprintf(&b, "Status: %dQ %s - IN PROGRESS\n", max(game.Status.Period, 1), game.Status.DisplayClock)
	case models.StatusHalftime:
		b.WriteString("Status: HALFTIME\n")
	case models.StatusFinal:
		b.WriteString("Status: FINAL\n")
	default:
		fmt.Fprintf(&b, "Status: %s\n", game.Status.Type.Detail)
	}

	if game.Date != "" {
		if t, ok := game.StartTime(); ok {
			fmt.Fprintf(&b, "Date: %s\n", t.UTC().Format("Monday, January 02, 2006 at 03:04 PM UTC"))
		} else {
			fmt.Fprintf(&b, "Date: %s\n", game.Date)
		}
	}

	if comp.Venue != nil {
		fmt.Fprintf(&b, "Venue: %s\n", orDefault(comp.Venue.FullName, "N/A"))
		if city, state := comp.Venue.Address.City, comp.Venue.Address.State; city != "" && state != "" {
			fmt.Fprintf(&b, "Location: %s, %s\n", city, state)
		}
	}

	var networks []string
	for _, bc := range comp.Broadcasts {
		if bc.Media.ShortName != "" {
			networks = append(networks, bc.Media.ShortName)
		}
	}
	if len(networks) > 0 {
		fmt.Fprintf(&b, "TV: %s\n", strings.Join(networks, ", "))
	}

	if len(comp.Odds) > 0 {
		odds := comp.Odds[0]
		b.WriteString("\nBetting Info:\n")
		if odds.Details != "" {
			fmt.Fprintf(&b, "Spread: %s\n", odds.Details)
		}
		if odds.OverUnder != 0 {
			fmt.Fprintf(&b, "Over/Under: %s\n", strconv.FormatFloat(odds.OverUnder, 'f', -1, 64))
		}
	}

	awayRec, homeRec := away.TotalRecord(), home.TotalRecord()
	if awayRec != "" || homeRec != "" {
		b.WriteString("\nRecords:\n")
		if awayRec != "" {
			fmt.Fprintf(&b, "%s: %s\n", awayAbbr, awayRec)
		}
		if homeRec != "" {
			fmt.Fprintf(&b, "%s: %s\n", homeAbbr, homeRec)
		}
	}

	return b.String()
}

// FormatScores renders every game grouped as live, final, then upcoming
func FormatScores(sb *models.Scoreboard, now time.Time) string {
	events := sb.Events()
	if len(events) == 0 {
		return "No NFL games found in the current schedule"
	}

	g := Group(events)

	var b strings.Builder
	b.WriteString("Live NFL Scores & Status\n")
	fmt.Fprintf(&b, "Updated: %s\n\n", now.Format("2006-01-02 15:04:05"))

	section := func(title string, games []models.Game) {
		if len(games) == 0 {
			return
		}
		b.WriteString(title + ":\n")
		for _, game := range games {
			b.WriteString(FormatGameSummary(game, false) + "\n")
		}
		b.WriteString("\n")
	}
	section("LIVE GAMES", g.Live)
	section("FINAL SCORES", g.Final)
	section("UPCOMING GAMES", g.Upcoming)

	return strings.TrimRight(b.String(), "\n") + "\n"
}

// FormatSeasonInfo renders the season block and up to five recent finals.
// The scoreboard carries no standings table.
func FormatSeasonInfo(sb *models.Scoreboard) string {
	var b strings.Builder
	b.WriteString("NFL Season Information\n\n")

	if season, ok := sb.Season(); ok {
		fmt.Fprintf(&b, "Season: %d\n", season.Year)
		fmt.Fprintf(&b, "Type: %s\n", orDefault(season.Type.Name, "N/A"))
		if week, ok := sb.CurrentWeek(); ok {
			fmt.Fprintf(&b, "Week: %d\n\n", week)
		} else {
			b.WriteString("Week: N/A\n\n")
		}
	}

	b.WriteString("For complete standings, please check ESPN.com or NFL.com\n")
	b.WriteString("This tool focuses on live scores and game details.\n")

	var finals []models.Game
	for _, game := range sb.Events() {
		if game.StatusName() == models.StatusFinal {
			finals = append(finals, game)
		}
		if len(finals) == 5 {
			break
		}
	}
	if len(finals) > 0 {
		b.WriteString("\nRecent Results:\n")
		for _, game := range finals {
			b.WriteString(FormatGameSummary(game, true) + "\n")
		}
	}

	return b.String()
}

// NotFoundMessage is the reply when no game matches a lookup
func NotFoundMessage(team1, team2 string) string {
	return "No current game found for " + searchTerm(team1, team2)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
