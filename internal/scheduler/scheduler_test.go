package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"nflstats/internal/client"
	"nflstats/internal/config"
	"nflstats/internal/models"
	"nflstats/internal/pipeline"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIngester struct {
	mu      sync.Mutex
	calls   int
	release chan struct{}
	err     error
}

func (f *fakeIngester) Run(ctx context.Context, years []int) (*pipeline.Summary, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	if f.release != nil {
		<-f.release
	}
	return &pipeline.Summary{Succeeded: 2, RowsWritten: 64}, f.err
}

type fakeLive struct {
	sb  *models.Scoreboard
	err error
}

func (f *fakeLive) Refresh(ctx context.Context) (*models.Scoreboard, error) {
	return f.sb, f.err
}

type recordingHub struct {
	mu   sync.Mutex
	msgs [][]byte
}

func (h *recordingHub) Broadcast(data []byte) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, data)
}

func (h *recordingHub) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.msgs)
}

type countingStore struct {
	calls int
}

func (s *countingStore) RefreshStoreStats(ctx context.Context) error {
	s.calls++
	return nil
}

func testConfig() *config.Config {
	return &config.Config{
		RefreshCron:      "0 6 * * *",
		LivePollInterval: 10 * time.Millisecond,
	}
}

func TestRunSync(t *testing.T) {
	ing := &fakeIngester{}
	store := &countingStore{}
	s := NewScheduler(testConfig(), ing, nil, nil, store)

	summary, err := s.RunSync(context.Background(), "manual")
	require.NoError(t, err)
	assert.Equal(t, 64, summary.RowsWritten)
	assert.Equal(t, 1, store.calls)
	assert.False(t, s.Running())
}

func TestRunSync_AbortedStillReturnsSummary(t *testing.T) {
	limited := &client.RateLimitedError{URL: "https://example.test/x.csv", StatusCode: 429}
	ing := &fakeIngester{err: limited}
	s := NewScheduler(testConfig(), ing, nil, nil, nil)

	summary, err := s.RunSync(context.Background(), "manual")
	require.Error(t, err)
	var rl *client.RateLimitedError
	assert.True(t, errors.As(err, &rl))
	assert.NotNil(t, summary)
}

func TestRunSync_SkipsWhenRunning(t *testing.T) {
	ing := &fakeIngester{release: make(chan struct{})}
	s := NewScheduler(testConfig(), ing, nil, nil, nil)

	done := make(chan error, 1)
	go func() {
		_, err := s.RunSync(context.Background(), "cron")
		done <- err
	}()

	require.Eventually(t, s.Running, time.Second, 5*time.Millisecond)

	_, err := s.RunSync(context.Background(), "manual")
	assert.ErrorIs(t, err, ErrSyncInProgress)

	close(ing.release)
	require.NoError(t, <-done)
	assert.False(t, s.Running())
	assert.Equal(t, 1, ing.calls)
}

func TestStart_InvalidCron(t *testing.T) {
	cfg := testConfig()
	cfg.RefreshCron = "every tuesday"
	s := NewScheduler(cfg, &fakeIngester{}, nil, nil, nil)

	err := s.Start(context.Background())
	assert.Error(t, err)
}

func TestLivePolling(t *testing.T) {
	sb := &models.Scoreboard{}
	hub := &recordingHub{}
	s := NewScheduler(testConfig(), &fakeIngester{}, &fakeLive{sb: sb}, hub, nil)
	s.now = func() time.Time { return time.Date(2025, 10, 19, 18, 30, 0, 0, time.UTC) }

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	require.Eventually(t, func() bool { return hub.count() >= 2 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()

	hub.mu.Lock()
	first := hub.msgs[0]
	hub.mu.Unlock()

	var snap map[string]interface{}
	require.NoError(t, json.Unmarshal(first, &snap))
	assert.Equal(t, "2025-10-19T18:30:00Z", snap["updated_at"])
}

func TestRefreshLive_SourceError(t *testing.T) {
	hub := &recordingHub{}
	s := NewScheduler(testConfig(), &fakeIngester{}, &fakeLive{err: errors.New("espn down")}, hub, nil)

	err := s.refreshLive(context.Background())
	assert.Error(t, err)
	assert.Equal(t, 0, hub.count())
}
