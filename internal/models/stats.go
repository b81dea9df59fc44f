package models

import (
	"database/sql"
	"fmt"
	"strings"
	"time"
)

// SeasonType is the REG/POST discriminator carried by every stat row
type SeasonType string

const (
	Regular    SeasonType = "REG"
	Postseason SeasonType = "POST"
)

// ParseSeasonType accepts REG/POST in any case plus the long forms
// ("regular", "postseason") used by tool callers.
func ParseSeasonType(s string) (SeasonType, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "REG", "REGULAR":
		return Regular, nil
	case "POST", "POSTSEASON":
		return Postseason, nil
	}
	return "", fmt.Errorf("unknown season type %q", s)
}

// FileToken is the token used in nflverse asset names (reg/post)
func (st SeasonType) FileToken() string {
	if st == Postseason {
		return "post"
	}
	return "reg"
}

// Valid reports whether st is REG or POST
func (st SeasonType) Valid() bool {
	return st == Regular || st == Postseason
}

// ColumnType distinguishes numeric stat columns from free-text ones
type ColumnType int

const (
	Numeric ColumnType = iota
	Text
)

// Column describes one statistical column of team_stats
type Column struct {
	Name string
	Type ColumnType
}

// Key columns of team_stats, in schema order
const (
	ColSeason     = "season"
	ColTeam       = "team"
	ColSeasonType = "season_type"
)

// KeyColumns identify a StatRow
var KeyColumns = []string{ColSeason, ColTeam, ColSeasonType}

// StatColumns lists every statistical column of a nflverse team stats file,
// in file order.
var StatColumns = []Column{
	{"games", Numeric},

	// Passing
	{"completions", Numeric},
	{"attempts", Numeric},
	{"passing_yards", Numeric},
	{"passing_tds", Numeric},
	{"passing_interceptions", Numeric},
	{"sacks_suffered", Numeric},
	{"sack_yards_lost", Numeric},
	{"sack_fumbles", Numeric},
	{"sack_fumbles_lost", Numeric},
	{"passing_air_yards", Numeric},
	{"passing_yards_after_catch", Numeric},
	{"passing_first_downs", Numeric},
	{"passing_epa", Numeric},
	{"passing_cpoe", Numeric},
	{"passing_2pt_conversions", Numeric},

	// Rushing
	{"carries", Numeric},
	{"rushing_yards", Numeric},
	{"rushing_tds", Numeric},
	{"rushing_fumbles", Numeric},
	{"rushing_fumbles_lost", Numeric},
	{"rushing_first_downs", Numeric},
	{"rushing_epa", Numeric},
	{"rushing_2pt_conversions", Numeric},

	// Receiving
	{"receptions", Numeric},
	{"targets", Numeric},
	{"receiving_yards", Numeric},
	{"receiving_tds", Numeric},
	{"receiving_fumbles", Numeric},
	{"receiving_fumbles_lost", Numeric},
	{"receiving_air_yards", Numeric},
	{"receiving_yards_after_catch", Numeric},
	{"receiving_first_downs", Numeric},
	{"receiving_epa", Numeric},
	{"receiving_2pt_conversions", Numeric},
	{"special_teams_tds", Numeric},

	// Defense
	{"def_tackles_solo", Numeric},
	{"def_tackles_with_assist", Numeric},
	{"def_tackle_assists", Numeric},
	{"def_tackles_for_loss", Numeric},
	{"def_tackles_for_loss_yards", Numeric},
	{"def_fumbles_forced", Numeric},
	{"def_sacks", Numeric},
	{"def_sack_yards", Numeric},
	{"def_qb_hits", Numeric},
	{"def_interceptions", Numeric},
	{"def_interception_yards", Numeric},
	{"def_pass_defended", Numeric},
	{"def_tds", Numeric},
	{"def_fumbles", Numeric},
	{"def_safeties", Numeric},

	// Misc
	{"misc_yards", Numeric},
	{"fumble_recovery_own", Numeric},
	{"fumble_recovery_yards_own", Numeric},
	{"fumble_recovery_opp", Numeric},
	{"fumble_recovery_yards_opp", Numeric},
	{"fumble_recovery_tds", Numeric},
	{"penalties", Numeric},
	{"penalty_yards", Numeric},
	{"timeouts", Numeric},

	// Returns
	{"punt_returns", Numeric},
	{"punt_return_yards", Numeric},
	{"kickoff_returns", Numeric},
	{"kickoff_return_yards", Numeric},

	// Kicking
	{"fg_made", Numeric},
	{"fg_att", Numeric},
	{"fg_missed", Numeric},
	{"fg_blocked", Numeric},
	{"fg_long", Numeric},
	{"fg_pct", Numeric},
	{"fg_made_0_19", Numeric},
	{"fg_made_20_29", Numeric},
	{"fg_made_30_39", Numeric},
	{"fg_made_40_49", Numeric},
	{"fg_made_50_59", Numeric},
	{"fg_made_60_", Numeric},
	{"fg_missed_0_19", Numeric},
	{"fg_missed_20_29", Numeric},
	{"fg_missed_30_39", Numeric},
	{"fg_missed_40_49", Numeric},
	{"fg_missed_50_59", Numeric},
	{"fg_missed_60_", Numeric},
	{"fg_made_list", Text},
	{"fg_missed_list", Text},
	{"fg_blocked_list", Text},
	{"fg_made_distance", Text},
	{"fg_missed_distance", Text},
	{"fg_blocked_distance", Text},
	{"pat_made", Numeric},
	{"pat_att", Numeric},
	{"pat_missed", Numeric},
	{"pat_blocked", Numeric},
	{"pat_pct", Numeric},
	{"gwfg_made", Numeric},
	{"gwfg_att", Numeric},
	{"gwfg_missed", Numeric},
	{"gwfg_blocked", Numeric},
	{"gwfg_distance_list", Text},
}

var numericColumns = func() map[string]bool {
	m := make(map[string]bool, len(StatColumns))
	for _, c := range StatColumns {
		if c.Type == Numeric {
			m[c.Name] = true
		}
	}
	return m
}()

// IsNumericStat reports whether name is a numeric stat column. Used to
// whitelist column names before they are interpolated into SQL.
func IsNumericStat(name string) bool {
	return numericColumns[name]
}

// ExpectedColumns returns key columns followed by every stat column
func ExpectedColumns() []string {
	cols := make([]string, 0, len(KeyColumns)+len(StatColumns))
	cols = append(cols, KeyColumns...)
	for _, c := range StatColumns {
		cols = append(cols, c.Name)
	}
	return cols
}

// StatRow is one team's stat line for one season and season type.
// Stats and Text are keyed by column name; an absent key is NULL.
type StatRow struct {
	Season     int
	Team       string
	SeasonType SeasonType

	Stats map[string]sql.NullFloat64
	Text  map[string]sql.NullString
}

// NewStatRow returns a StatRow with its maps allocated
func NewStatRow(season int, team string, st SeasonType) StatRow {
	return StatRow{
		Season:     season,
		Team:       team,
		SeasonType: st,
		Stats:      make(map[string]sql.NullFloat64, len(StatColumns)),
		Text:       make(map[string]sql.NullString),
	}
}

// Key identifies the row in team_stats
func (r StatRow) Key() StatKey {
	return StatKey{Season: r.Season, Team: r.Team, SeasonType: r.SeasonType}
}

// Stat returns the numeric value of column and whether it is present
func (r StatRow) Stat(column string) (float64, bool) {
	v, ok := r.Stats[column]
	if !ok || !v.Valid {
		return 0, false
	}
	return v.Float64, true
}

// Values returns the stat values in StatColumns order, ready for binding
func (r StatRow) Values() []any {
	out := make([]any, 0, len(StatColumns))
	for _, c := range StatColumns {
		if c.Type == Text {
			out = append(out, r.Text[c.Name])
			continue
		}
		out = append(out, r.Stats[c.Name])
	}
	return out
}

// StatKey is the (season, team, season_type) primary key
type StatKey struct {
	Season     int
	Team       string
	SeasonType SeasonType
}

func (k StatKey) String() string {
	return fmt.Sprintf("%d/%s/%s", k.Season, k.Team, k.SeasonType)
}

// LedgerEntry records one successful ingestion of a source file
type LedgerEntry struct {
	SourceID   string     `db:"source_id" json:"source_id"`
	Season     int        `db:"season" json:"season"`
	SeasonType SeasonType `db:"season_type" json:"season_type"`
	Checksum   string     `db:"checksum" json:"checksum"`
	RowCount   int        `db:"row_count" json:"row_count"`
	IngestedAt time.Time  `db:"ingested_at" json:"ingested_at"`
}
