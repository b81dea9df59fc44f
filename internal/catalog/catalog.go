// Package catalog enumerates the nflverse team stats files to ingest.
package catalog

import (
	"fmt"
	"iter"
	"slices"
	"strings"
	"time"

	"nflstats/internal/models"
)

// DefaultBaseURL is the nflverse stats_team release download path
const DefaultBaseURL = "https://github.com/nflverse/nflverse-data/releases/download/stats_team"

// DefaultEarliestYear is the first season nflverse publishes team stats for
const DefaultEarliestYear = 1999

// Unit is one (year, season type) fetch-parse-write cycle
type Unit struct {
	Year int
	Kind models.SeasonType
}

// SourceID is the remote file name, e.g. stats_team_reg_2023.csv. It doubles
// as the download ledger key.
func (u Unit) SourceID() string {
	return fmt.Sprintf("stats_team_%s_%d.csv", u.Kind.FileToken(), u.Year)
}

// URL joins base and the unit's file name
func (u Unit) URL(base string) string {
	return strings.TrimRight(base, "/") + "/" + u.SourceID()
}

func (u Unit) String() string {
	return fmt.Sprintf("%d %s", u.Year, u.Kind)
}

// Catalog produces units for a year range. It never touches the network.
type Catalog struct {
	BaseURL      string
	EarliestYear int

	// Now is overridable for tests
	Now func() time.Time
}

// New returns a catalog with the given base URL and earliest year; zero
// values fall back to the nflverse defaults.
func New(baseURL string, earliest int) *Catalog {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if earliest == 0 {
		earliest = DefaultEarliestYear
	}
	return &Catalog{BaseURL: baseURL, EarliestYear: earliest, Now: time.Now}
}

// Years resolves the years to ingest. Explicit years are de-duplicated and
// sorted; an empty list means every year from EarliestYear through the
// current year.
func (c *Catalog) Years(explicit []int) []int {
	if len(explicit) > 0 {
		years := slices.Clone(explicit)
		slices.Sort(years)
		return slices.Compact(years)
	}

	now := time.Now
	if c.Now != nil {
		now = c.Now
	}
	current := now().Year()

	years := make([]int, 0, current-c.EarliestYear+1)
	for y := c.EarliestYear; y <= current; y++ {
		years = append(years, y)
	}
	return years
}

// Units yields units in ascending year order, REG before POST within a year
func (c *Catalog) Units(explicit []int) iter.Seq[Unit] {
	years := c.Years(explicit)
	return func(yield func(Unit) bool) {
		for _, y := range years {
			for _, kind := range []models.SeasonType{models.Regular, models.Postseason} {
				if !yield(Unit{Year: y, Kind: kind}) {
					return
				}
			}
		}
	}
}

// URL returns the download URL of u under the catalog's base
func (c *Catalog) URL(u Unit) string {
	return u.URL(c.BaseURL)
}
