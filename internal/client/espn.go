package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"nflstats/internal/metrics"
	"nflstats/internal/models"

	"github.com/rs/zerolog/log"
)

// DefaultScoreboardURL is ESPN's core NFL scoreboard endpoint
const DefaultScoreboardURL = "https://cdn.espn.com/core/nfl/scoreboard"

// ESPN's CDN rejects requests without a browser-like agent
const browserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36"

// ScoreboardClient is the ESPN live scoreboard client
type ScoreboardClient struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int
	retryDelay time.Duration
}

// NewScoreboardClient creates a new ESPN scoreboard client
func NewScoreboardClient(baseURL string, timeout time.Duration) *ScoreboardClient {
	if baseURL == "" {
		baseURL = DefaultScoreboardURL
	}
	return &ScoreboardClient{
		baseURL:    baseURL,
		maxRetries: 2,
		retryDelay: 500 * time.Millisecond,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 2,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// get performs a GET request with retry logic
func (c *ScoreboardClient) get(ctx context.Context, params map[string]string) ([]byte, error) {
	url := c.baseURL

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			// Exponential backoff
			backoff := c.retryDelay * time.Duration(1<<uint(attempt-1))
			log.Info().
				Str("url", url).
				Int("attempt", attempt).
				Dur("backoff", backoff).
				Msg("Retrying scoreboard request after backoff")

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}

		body, status, err := c.do(ctx, url, params)
		if err != nil {
			lastErr = err
			if attempt < c.maxRetries {
				continue
			}
			return nil, lastErr
		}

		switch status {
		case http.StatusOK:
			log.Debug().
				Str("url", url).
				Int("status", status).
				Int("size", len(body)).
				Msg("Scoreboard request successful")
			return body, nil

		case http.StatusTooManyRequests, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
			lastErr = fmt.Errorf("scoreboard returned retryable status %d", status)
			if attempt < c.maxRetries {
				log.Warn().
					Str("url", url).
					Int("status", status).
					Int("attempt", attempt+1).
					Msg("Received retryable error, will retry")
				continue
			}
			return nil, lastErr

		default:
			return nil, fmt.Errorf("scoreboard returned status %d", status)
		}
	}

	return nil, lastErr
}

func (c *ScoreboardClient) do(ctx context.Context, url string, params map[string]string) ([]byte, int, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", browserUserAgent)
	req.Header.Set("Accept", "application/json")

	if len(params) > 0 {
		q := req.URL.Query()
		for key, value := range params {
			q.Add(key, value)
		}
		req.URL.RawQuery = q.Encode()
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordFetch("espn", "error", time.Since(start).Seconds())
		return nil, 0, fmt.Errorf("scoreboard request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	metrics.RecordFetch("espn", strconv.Itoa(resp.StatusCode), time.Since(start).Seconds())
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read response body: %w", err)
	}
	return body, resp.StatusCode, nil
}

// FetchScoreboardRaw returns the undecoded scoreboard payload
func (c *ScoreboardClient) FetchScoreboardRaw(ctx context.Context) ([]byte, error) {
	body, err := c.get(ctx, map[string]string{"xhr": "1", "limit": "50"})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}
	return body, nil
}

// FetchScoreboard fetches and decodes the current scoreboard
func (c *ScoreboardClient) FetchScoreboard(ctx context.Context) (*models.Scoreboard, error) {
	body, err := c.FetchScoreboardRaw(ctx)
	if err != nil {
		return nil, err
	}
	return DecodeScoreboard(body)
}

// DecodeScoreboard unmarshals an ESPN scoreboard payload
func DecodeScoreboard(body []byte) (*models.Scoreboard, error) {
	var sb models.Scoreboard
	if err := json.Unmarshal(body, &sb); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}
	return &sb, nil
}
