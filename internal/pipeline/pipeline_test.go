package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"nflstats/internal/catalog"
	"nflstats/internal/client"
	"nflstats/internal/models"
	"nflstats/internal/parser"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testBase = "https://example.test/stats_team"

type fakeFetcher struct {
	mu     sync.Mutex
	files  map[string][]byte
	errs   map[string]error
	called []string
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{files: map[string][]byte{}, errs: map[string]error{}}
}

func (f *fakeFetcher) set(u catalog.Unit, body string) {
	f.files[u.URL(testBase)] = []byte(body)
}

func (f *fakeFetcher) fail(u catalog.Unit, err error) {
	f.errs[u.URL(testBase)] = err
}

func (f *fakeFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.called = append(f.called, url)

	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if body, ok := f.files[url]; ok {
		return body, nil
	}
	return nil, client.ErrNotFound
}

// fakeStore keeps rows and ledger in maps; CommitUnit is all-or-nothing
type fakeStore struct {
	mu       sync.Mutex
	ledger   map[string]models.LedgerEntry
	rows     map[models.StatKey]models.StatRow
	commits  []string
	failNext map[string]error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		ledger:   map[string]models.LedgerEntry{},
		rows:     map[models.StatKey]models.StatRow{},
		failNext: map[string]error{},
	}
}

func (s *fakeStore) ShouldSkip(ctx context.Context, sourceID, checksum string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.ledger[sourceID]
	return ok && e.Checksum == checksum, nil
}

func (s *fakeStore) CommitUnit(ctx context.Context, entry models.LedgerEntry, rows []models.StatRow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err, ok := s.failNext[entry.SourceID]; ok {
		delete(s.failNext, entry.SourceID)
		return 0, err
	}

	for _, r := range rows {
		s.rows[r.Key()] = r
	}
	entry.RowCount = len(rows)
	s.ledger[entry.SourceID] = entry
	s.commits = append(s.commits, entry.SourceID)
	return len(rows), nil
}

func teamCSV(season int, st models.SeasonType, teams ...string) string {
	cols := models.ExpectedColumns()
	var b strings.Builder
	b.WriteString(strings.Join(cols, ","))
	b.WriteString("\n")
	for i, team := range teams {
		cells := make([]string, len(cols))
		for j, c := range cols {
			switch c {
			case models.ColSeason:
				cells[j] = fmt.Sprint(season)
			case models.ColTeam:
				cells[j] = team
			case models.ColSeasonType:
				cells[j] = string(st)
			case "games":
				cells[j] = "17"
			case "passing_yards":
				cells[j] = fmt.Sprint(4000 + i)
			}
		}
		b.WriteString(strings.Join(cells, ","))
		b.WriteString("\n")
	}
	return b.String()
}

func reg(year int) catalog.Unit  { return catalog.Unit{Year: year, Kind: models.Regular} }
func post(year int) catalog.Unit { return catalog.Unit{Year: year, Kind: models.Postseason} }

func newTestPipeline(f *fakeFetcher, s *fakeStore, workers int) *Pipeline {
	p := New(catalog.New(testBase, 1999), f, s, workers)
	p.Now = func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }
	return p
}

func TestChecksum(t *testing.T) {
	sum := Checksum([]byte("abc"))
	assert.Equal(t, "sha256:ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad", sum)
	assert.NotEqual(t, sum, Checksum([]byte("abd")))
}

func TestRun_IngestsAndIsIdempotent(t *testing.T) {
	for _, workers := range []int{1, 4} {
		t.Run(fmt.Sprintf("workers=%d", workers), func(t *testing.T) {
			f := newFakeFetcher()
			f.set(reg(2023), teamCSV(2023, models.Regular, "KC", "BUF", "PHI"))
			f.set(post(2023), teamCSV(2023, models.Postseason, "KC", "BUF"))
			f.set(reg(2022), teamCSV(2022, models.Regular, "KC", "PHI"))
			s := newFakeStore()
			p := newTestPipeline(f, s, workers)

			first, err := p.Run(context.Background(), []int{2023, 2022})
			require.NoError(t, err)
			assert.Equal(t, 3, first.Succeeded)
			assert.Equal(t, 1, first.SkippedNotFound, "2022 POST is not published")
			assert.Equal(t, 7, first.RowsWritten)
			assert.False(t, first.Aborted)
			assert.Equal(t, 4, first.Attempted())

			assert.Equal(t, []string{
				"stats_team_reg_2022.csv",
				"stats_team_reg_2023.csv",
				"stats_team_post_2023.csv",
			}, s.commits, "Commits follow catalog order")

			second, err := p.Run(context.Background(), []int{2022, 2023})
			require.NoError(t, err)
			assert.Equal(t, 0, second.Succeeded)
			assert.Equal(t, 3, second.SkippedUnchanged)
			assert.Equal(t, 0, second.RowsWritten)
			assert.Len(t, s.commits, 3, "Unchanged files are never rewritten")
			assert.Len(t, s.rows, 7)
		})
	}
}

func TestRun_ChangedChecksumReingests(t *testing.T) {
	f := newFakeFetcher()
	f.set(reg(2023), teamCSV(2023, models.Regular, "KC"))
	s := newFakeStore()
	p := newTestPipeline(f, s, 1)

	_, err := p.Run(context.Background(), []int{2023})
	require.NoError(t, err)
	firstChecksum := s.ledger["stats_team_reg_2023.csv"].Checksum

	f.set(reg(2023), teamCSV(2023, models.Regular, "KC", "BUF"))
	summary, err := p.Run(context.Background(), []int{2023})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 2, summary.RowsWritten)

	entry := s.ledger["stats_team_reg_2023.csv"]
	assert.NotEqual(t, firstChecksum, entry.Checksum)
	assert.Equal(t, 2, entry.RowCount)
	assert.Equal(t, 2023, entry.Season)
	assert.Equal(t, models.Regular, entry.SeasonType)
	assert.True(t, strings.HasPrefix(entry.Checksum, "sha256:"))
}

func TestRun_ContinuesPastUnitFailures(t *testing.T) {
	f := newFakeFetcher()
	f.set(reg(2021), "season,team\n2021,KC\n")
	f.fail(post(2021), &client.FetchFailedError{URL: "x", StatusCode: 500})
	f.set(reg(2022), teamCSV(2022, models.Postseason, "KC"))
	f.set(post(2022), teamCSV(2022, models.Postseason, "KC"))
	f.set(reg(2023), teamCSV(2023, models.Regular, "KC"))
	s := newFakeStore()
	s.failNext["stats_team_post_2022.csv"] = errors.New("disk full")
	p := newTestPipeline(f, s, 2)

	summary, err := p.Run(context.Background(), []int{2021, 2022, 2023})
	require.NoError(t, err, "Unit failures do not fail the run")

	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.SkippedNotFound)
	assert.Equal(t, 4, summary.Failed)
	require.Len(t, summary.Failures, 4)

	assert.Equal(t, StageParse, summary.Failures[0].Stage)
	assert.True(t, parser.IsParseError(summary.Failures[0].Err, parser.MissingColumn))

	assert.Equal(t, StageFetch, summary.Failures[1].Stage)
	var ff *client.FetchFailedError
	assert.True(t, errors.As(summary.Failures[1].Err, &ff))

	assert.Equal(t, StageParse, summary.Failures[2].Stage)
	assert.True(t, parser.IsParseError(summary.Failures[2].Err, parser.DataIntegrity))

	assert.Equal(t, StageWrite, summary.Failures[3].Stage)
	assert.Equal(t, post(2022), summary.Failures[3].Unit)

	assert.Equal(t, []string{"stats_team_reg_2023.csv"}, s.commits)
	_, recorded := s.ledger["stats_team_post_2022.csv"]
	assert.False(t, recorded, "Failed writes leave no ledger entry")
}

func TestRun_RateLimitAborts(t *testing.T) {
	f := newFakeFetcher()
	f.set(reg(2020), teamCSV(2020, models.Regular, "KC"))
	f.fail(post(2020), &client.RateLimitedError{URL: "x", StatusCode: 429, Reset: "60"})
	f.set(reg(2021), teamCSV(2021, models.Regular, "KC"))
	s := newFakeStore()
	p := newTestPipeline(f, s, 1)

	summary, err := p.Run(context.Background(), []int{2020, 2021, 2022})
	require.Error(t, err)

	var rl *client.RateLimitedError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, 429, rl.StatusCode)

	assert.True(t, summary.Aborted)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed, "The rate-limited unit is reported")
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, post(2020), summary.Failures[0].Unit)
	assert.Equal(t, StageFetch, summary.Failures[0].Stage)
	assert.Equal(t, 2, summary.Attempted(), "Units after the abort are never attempted")
	assert.Equal(t, []string{"stats_team_reg_2020.csv"}, s.commits, "Nothing after the rate limit is written")
}

func TestRun_RejectsRowsFromAnotherSeason(t *testing.T) {
	f := newFakeFetcher()
	f.set(reg(2022), teamCSV(2022, models.Regular, "KC", "BUF"))
	f.set(reg(2023), teamCSV(2023, models.Regular, "KC", "BUF"))
	s := newFakeStore()
	p := newTestPipeline(f, s, 1)

	_, err := p.Run(context.Background(), []int{2022, 2023})
	require.NoError(t, err)
	before := s.ledger["stats_team_reg_2023.csv"]

	// The 2023 file is republished holding a 2022 row
	f.set(reg(2023), teamCSV(2022, models.Regular, "NE"))
	summary, err := p.Run(context.Background(), []int{2023})
	require.NoError(t, err)

	assert.Equal(t, 0, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	require.Len(t, summary.Failures, 1)
	assert.Equal(t, StageParse, summary.Failures[0].Stage)

	var pe *parser.ParseError
	require.True(t, errors.As(summary.Failures[0].Err, &pe))
	assert.Equal(t, parser.DataIntegrity, pe.Kind)
	assert.Equal(t, models.ColSeason, pe.Column)

	assert.Len(t, s.rows, 4)
	_, leaked := s.rows[models.StatKey{Season: 2022, Team: "NE", SeasonType: models.Regular}]
	assert.False(t, leaked)
	assert.Equal(t, before, s.ledger["stats_team_reg_2023.csv"], "Ledger stays on the last good file")
}

func TestRun_CanceledContext(t *testing.T) {
	f := newFakeFetcher()
	f.set(reg(2023), teamCSV(2023, models.Regular, "KC"))
	s := newFakeStore()
	p := newTestPipeline(f, s, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := p.Run(ctx, []int{2023})
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, summary.Aborted)
	assert.Empty(t, s.commits)
}

func TestRun_SpecificTeamSeason(t *testing.T) {
	f := newFakeFetcher()
	f.set(reg(2023), teamCSV(2023, models.Regular, "BUF", "kc"))
	s := newFakeStore()
	p := newTestPipeline(f, s, 1)

	_, err := p.Run(context.Background(), []int{2023})
	require.NoError(t, err)

	row, ok := s.rows[models.StatKey{Season: 2023, Team: "KC", SeasonType: models.Regular}]
	require.True(t, ok)
	yards, ok := row.Stat("passing_yards")
	require.True(t, ok)
	assert.Equal(t, 4001.0, yards)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), s.ledger["stats_team_reg_2023.csv"].IngestedAt)
}

func TestSummary_String(t *testing.T) {
	s := &Summary{Succeeded: 2, SkippedNotFound: 1, RowsWritten: 64, Aborted: true, Duration: 1500 * time.Millisecond}
	assert.Equal(t,
		"succeeded=2 skipped_not_found=1 skipped_unchanged=0 failed=0 rows_written=64 duration=1.5s aborted=true",
		s.String())
}
