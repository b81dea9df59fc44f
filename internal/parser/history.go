package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"strconv"
	"strings"

	"nflstats/internal/models"

	"github.com/jszwec/csvutil"
)

// FileKind tells which table a historical CSV file feeds
type FileKind string

const (
	KindPlays  FileKind = "plays"
	KindScores FileKind = "scores"
)

// Classify maps a file name to its kind by the "plays" or "scores" token in
// the name. ok is false for anything else.
func Classify(name string) (FileKind, bool) {
	base := strings.ToLower(filepath.Base(name))
	if filepath.Ext(base) != ".csv" {
		return "", false
	}
	switch {
	case strings.Contains(base, "plays"):
		return KindPlays, true
	case strings.Contains(base, "scores"):
		return KindScores, true
	}
	return "", false
}

type playRecord struct {
	Season             string `csv:"Season"`
	Week               string `csv:"Week"`
	Day                string `csv:"Day"`
	Date               string `csv:"Date"`
	AwayTeam           string `csv:"AwayTeam"`
	HomeTeam           string `csv:"HomeTeam"`
	Quarter            string `csv:"Quarter"`
	DriveNumber        string `csv:"DriveNumber"`
	TeamWithPossession string `csv:"TeamWithPossession"`
	IsScoringDrive     string `csv:"IsScoringDrive"`
	PlayNumberInDrive  string `csv:"PlayNumberInDrive"`
	IsScoringPlay      string `csv:"IsScoringPlay"`
	PlayOutcome        string `csv:"PlayOutcome"`
	PlayDescription    string `csv:"PlayDescription"`
	PlayStart          string `csv:"PlayStart"`
}

type scoreRecord struct {
	Season      string `csv:"Season"`
	Week        string `csv:"Week"`
	GameStatus  string `csv:"GameStatus"`
	Day         string `csv:"Day"`
	Date        string `csv:"Date"`
	AwayTeam    string `csv:"AwayTeam"`
	AwayRecord  string `csv:"AwayRecord"`
	AwayScore   string `csv:"AwayScore"`
	AwayWin     string `csv:"AwayWin"`
	HomeTeam    string `csv:"HomeTeam"`
	HomeRecord  string `csv:"HomeRecord"`
	HomeScore   string `csv:"HomeScore"`
	HomeWin     string `csv:"HomeWin"`
	AwaySeeding string `csv:"AwaySeeding"`
	HomeSeeding string `csv:"HomeSeeding"`
	PostSeason  string `csv:"PostSeason"`
}

// ParsePlays decodes a play-by-play file. Every column of the play layout
// must be present.
func ParsePlays(data []byte) ([]models.Play, error) {
	var plays []models.Play
	err := decodeEach(data, playRecord{}, func(n int, dec *csvutil.Decoder) error {
		var rec playRecord
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		p, perr := rec.toPlay()
		if perr != nil {
			perr.Row = n
			return perr
		}
		plays = append(plays, p)
		return nil
	})
	return plays, err
}

// ParseScores decodes a scores file. Every column of the scores layout must
// be present.
func ParseScores(data []byte) ([]models.GameResult, error) {
	var games []models.GameResult
	err := decodeEach(data, scoreRecord{}, func(n int, dec *csvutil.Decoder) error {
		var rec scoreRecord
		if err := dec.Decode(&rec); err != nil {
			return err
		}
		g, perr := rec.toGame()
		if perr != nil {
			perr.Row = n
			return perr
		}
		games = append(games, g)
		return nil
	})
	return games, err
}

// decodeEach checks the header against layout's csv tags and calls fn once
// per data row. fn's decode errors become DataIntegrity errors.
func decodeEach(data []byte, layout any, fn func(n int, dec *csvutil.Decoder) error) error {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(reader)
	if errors.Is(err, io.EOF) {
		return &ParseError{Kind: MissingColumn, Column: "Season", Detail: "file has no header row"}
	}
	if err != nil {
		return &ParseError{Kind: DataIntegrity, Detail: fmt.Sprintf("failed to read header: %v", err)}
	}

	present := make(map[string]bool, len(dec.Header()))
	for _, h := range dec.Header() {
		present[strings.TrimSpace(h)] = true
	}
	required, err := csvutil.Header(layout, "csv")
	if err != nil {
		return fmt.Errorf("invalid record layout: %w", err)
	}
	for _, col := range required {
		if !present[col] {
			return &ParseError{Kind: MissingColumn, Column: col}
		}
	}

	for n := 1; ; n++ {
		err := fn(n, dec)
		if errors.Is(err, io.EOF) {
			return nil
		}
		var pe *ParseError
		if errors.As(err, &pe) {
			return pe
		}
		if err != nil {
			return &ParseError{Kind: DataIntegrity, Row: n, Detail: err.Error()}
		}
	}
}

func (r playRecord) toPlay() (models.Play, *ParseError) {
	season, err := parseSeason(r.Season)
	if err != nil {
		return models.Play{}, err
	}
	away, home, err := parseTeams(r.AwayTeam, r.HomeTeam)
	if err != nil {
		return models.Play{}, err
	}

	drive, convErr := parseCount(r.DriveNumber)
	if convErr != nil {
		return models.Play{}, &ParseError{Kind: DataIntegrity, Column: "DriveNumber", Detail: fmt.Sprintf("invalid drive number %q", r.DriveNumber)}
	}
	number, convErr := parseCount(r.PlayNumberInDrive)
	if convErr != nil {
		return models.Play{}, &ParseError{Kind: DataIntegrity, Column: "PlayNumberInDrive", Detail: fmt.Sprintf("invalid play number %q", r.PlayNumberInDrive)}
	}

	return models.Play{
		Season:             season,
		Week:               strings.TrimSpace(r.Week),
		Day:                strings.TrimSpace(r.Day),
		Date:               strings.TrimSpace(r.Date),
		AwayTeam:           away,
		HomeTeam:           home,
		Quarter:            strings.TrimSpace(r.Quarter),
		DriveNumber:        drive,
		TeamWithPossession: strings.ToUpper(strings.TrimSpace(r.TeamWithPossession)),
		IsScoringDrive:     parseFlag(r.IsScoringDrive),
		PlayNumberInDrive:  number,
		IsScoringPlay:      parseFlag(r.IsScoringPlay),
		PlayOutcome:        strings.TrimSpace(r.PlayOutcome),
		PlayDescription:    strings.TrimSpace(r.PlayDescription),
		PlayStart:          strings.TrimSpace(r.PlayStart),
	}, nil
}

func (r scoreRecord) toGame() (models.GameResult, *ParseError) {
	season, err := parseSeason(r.Season)
	if err != nil {
		return models.GameResult{}, err
	}
	away, home, err := parseTeams(r.AwayTeam, r.HomeTeam)
	if err != nil {
		return models.GameResult{}, err
	}

	return models.GameResult{
		Season:      season,
		Week:        strings.TrimSpace(r.Week),
		GameStatus:  strings.TrimSpace(r.GameStatus),
		Day:         strings.TrimSpace(r.Day),
		Date:        strings.TrimSpace(r.Date),
		AwayTeam:    away,
		AwayRecord:  strings.TrimSpace(r.AwayRecord),
		AwayScore:   parseNumber(strings.TrimSpace(r.AwayScore)),
		AwayWin:     parseFlag(r.AwayWin),
		HomeTeam:    home,
		HomeRecord:  strings.TrimSpace(r.HomeRecord),
		HomeScore:   parseNumber(strings.TrimSpace(r.HomeScore)),
		HomeWin:     parseFlag(r.HomeWin),
		AwaySeeding: seeding(r.AwaySeeding),
		HomeSeeding: seeding(r.HomeSeeding),
		PostSeason:  parseFlag(r.PostSeason),
	}, nil
}

func parseSeason(raw string) (int, *ParseError) {
	season, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, &ParseError{Kind: DataIntegrity, Column: "Season", Detail: fmt.Sprintf("invalid season %q", raw)}
	}
	return season, nil
}

func parseTeams(away, home string) (string, string, *ParseError) {
	away = strings.ToUpper(strings.TrimSpace(away))
	home = strings.ToUpper(strings.TrimSpace(home))
	if away == "" {
		return "", "", &ParseError{Kind: DataIntegrity, Column: "AwayTeam", Detail: "empty away team"}
	}
	if home == "" {
		return "", "", &ParseError{Kind: DataIntegrity, Column: "HomeTeam", Detail: "empty home team"}
	}
	return away, home, nil
}

// parseCount accepts integers written as floats ("3.0"), which is how
// spreadsheet exports emit whole numbers
func parseCount(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if n, err := strconv.Atoi(raw); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != float64(int(f)) {
		return 0, fmt.Errorf("not a whole number: %q", raw)
	}
	return int(f), nil
}

// parseFlag reads 1/0, 1.0/0.0 and true/false. Anything else, NaN
// included, is false.
func parseFlag(raw string) bool {
	raw = strings.TrimSpace(raw)
	if b, err := strconv.ParseBool(raw); err == nil {
		return b
	}
	f, err := strconv.ParseFloat(raw, 64)
	return err == nil && !math.IsNaN(f) && f != 0
}

// seeding drops the float suffix pandas adds to integer columns with gaps
func seeding(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || strings.EqualFold(raw, "nan") || raw == "NA" {
		return ""
	}
	if n, err := parseCount(raw); err == nil {
		return strconv.Itoa(n)
	}
	return raw
}
