// Package parser turns nflverse team stats CSV files into StatRows.
package parser

import (
	"bytes"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"

	"nflstats/internal/models"

	"github.com/jszwec/csvutil"
)

// ErrorKind classifies a ParseError
type ErrorKind int

const (
	// MissingColumn: an expected column is absent from the header
	MissingColumn ErrorKind = iota + 1
	// DataIntegrity: a row disagrees with the file it came from
	DataIntegrity
)

func (k ErrorKind) String() string {
	switch k {
	case MissingColumn:
		return "missing_column"
	case DataIntegrity:
		return "data_integrity"
	}
	return "unknown"
}

// ParseError reports a file that does not match the expected schema
type ParseError struct {
	Kind   ErrorKind
	Column string
	// Row is the 1-based data row number (header excluded), 0 if not row specific
	Row    int
	Detail string
}

func (e *ParseError) Error() string {
	switch {
	case e.Kind == MissingColumn:
		return fmt.Sprintf("missing column %q", e.Column)
	case e.Row > 0:
		return fmt.Sprintf("data integrity error at row %d: %s", e.Row, e.Detail)
	default:
		return fmt.Sprintf("data integrity error: %s", e.Detail)
	}
}

// IsParseError reports whether err is a ParseError of the given kind
func IsParseError(err error, kind ErrorKind) bool {
	var pe *ParseError
	return errors.As(err, &pe) && pe.Kind == kind
}

// rowKey holds the key columns csvutil decodes for each record
type rowKey struct {
	Season     string `csv:"season"`
	Team       string `csv:"team"`
	SeasonType string `csv:"season_type"`
}

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// Parse decodes a team stats CSV published for one season and season type.
// Every expected column must be present; extra columns are ignored. Each
// row's season and season_type must match the file's. Numeric cells that do
// not parse become NULL.
func Parse(data []byte, season int, expected models.SeasonType) ([]models.StatRow, error) {
	data = bytes.TrimPrefix(data, utf8BOM)

	reader := csv.NewReader(bytes.NewReader(data))
	reader.FieldsPerRecord = -1

	dec, err := csvutil.NewDecoder(reader)
	if errors.Is(err, io.EOF) {
		return nil, &ParseError{Kind: MissingColumn, Column: models.ColSeason, Detail: "file has no header row"}
	}
	if err != nil {
		return nil, &ParseError{Kind: DataIntegrity, Detail: fmt.Sprintf("failed to read header: %v", err)}
	}

	index, err := headerIndex(dec.Header())
	if err != nil {
		return nil, err
	}

	var rows []models.StatRow
	seen := make(map[models.StatKey]int)

	for n := 1; ; n++ {
		var key rowKey
		if err := dec.Decode(&key); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, &ParseError{Kind: DataIntegrity, Row: n, Detail: err.Error()}
		}

		row, err := buildRow(key, dec.Record(), index, season, expected)
		if err != nil {
			err.Row = n
			return nil, err
		}

		if first, dup := seen[row.Key()]; dup {
			return nil, &ParseError{
				Kind:   DataIntegrity,
				Row:    n,
				Detail: fmt.Sprintf("duplicate key %s (first seen at row %d)", row.Key(), first),
			}
		}
		seen[row.Key()] = n

		rows = append(rows, row)
	}

	return rows, nil
}

// headerIndex maps every expected column to its position in header
func headerIndex(header []string) (map[string]int, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	for _, col := range models.ExpectedColumns() {
		if _, ok := positions[col]; !ok {
			return nil, &ParseError{Kind: MissingColumn, Column: col}
		}
	}
	return positions, nil
}

func buildRow(key rowKey, record []string, index map[string]int, expectedSeason int, expected models.SeasonType) (models.StatRow, *ParseError) {
	season, err := strconv.Atoi(strings.TrimSpace(key.Season))
	if err != nil {
		return models.StatRow{}, &ParseError{Kind: DataIntegrity, Column: models.ColSeason, Detail: fmt.Sprintf("invalid season %q", key.Season)}
	}

	team := strings.ToUpper(strings.TrimSpace(key.Team))
	if team == "" {
		return models.StatRow{}, &ParseError{Kind: DataIntegrity, Column: models.ColTeam, Detail: "empty team"}
	}

	// A row from another season would land in a key space this file does
	// not own
	if season != expectedSeason {
		return models.StatRow{}, &ParseError{
			Kind:   DataIntegrity,
			Column: models.ColSeason,
			Detail: fmt.Sprintf("season %d does not match expected %d for team %s", season, expectedSeason, team),
		}
	}

	st := models.SeasonType(strings.ToUpper(strings.TrimSpace(key.SeasonType)))
	if st != expected {
		return models.StatRow{}, &ParseError{
			Kind:   DataIntegrity,
			Column: models.ColSeasonType,
			Detail: fmt.Sprintf("season_type %q does not match expected %q for team %s", key.SeasonType, expected, team),
		}
	}

	row := models.NewStatRow(season, team, st)
	for _, col := range models.StatColumns {
		raw := cell(record, index[col.Name])
		if col.Type == models.Text {
			if raw != "" && raw != "NA" {
				row.Text[col.Name] = sql.NullString{String: raw, Valid: true}
			}
			continue
		}
		row.Stats[col.Name] = parseNumber(raw)
	}
	return row, nil
}

// cell returns the trimmed value at i, or "" for short records
func cell(record []string, i int) string {
	if i < 0 || i >= len(record) {
		return ""
	}
	return strings.TrimSpace(record[i])
}

// parseNumber maps anything that is not a finite number to NULL
func parseNumber(raw string) sql.NullFloat64 {
	if raw == "" {
		return sql.NullFloat64{}
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: f, Valid: true}
}
