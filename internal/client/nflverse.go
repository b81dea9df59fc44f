package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"nflstats/internal/metrics"

	"github.com/rs/zerolog/log"
)

const (
	userAgent = "nfl-team-stats-downloader/1.0"

	// maxFileSize caps a single CSV download; team stats files are well
	// under a megabyte.
	maxFileSize = 64 << 20
)

// Fetcher downloads nflverse release assets. One attempt per call: a failed
// unit is retried by re-running the pipeline, which the ledger makes safe.
type Fetcher struct {
	token      string
	httpClient *http.Client
	maxBytes   int64
}

// NewFetcher creates a fetcher. An empty token means anonymous requests.
func NewFetcher(token string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		token:    token,
		maxBytes: maxFileSize,
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        10,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch performs a single GET of url. It returns ErrNotFound on 404,
// *RateLimitedError on 403/429 and *FetchFailedError on anything else that
// is not a 2xx.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/csv, application/octet-stream")
	if f.token != "" {
		req.Header.Set("Authorization", "Bearer "+f.token)
	}

	log.Debug().
		Str("url", url).
		Bool("authenticated", f.token != "").
		Msg("Fetching release asset")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		metrics.RecordFetch("nflverse", "error", time.Since(start).Seconds())
		return nil, &FetchFailedError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	status := strconv.Itoa(resp.StatusCode)

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBytes+1))
		if err != nil {
			metrics.RecordFetch("nflverse", "error", time.Since(start).Seconds())
			return nil, &FetchFailedError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("failed to read response body: %w", err)}
		}
		if int64(len(body)) > f.maxBytes {
			metrics.RecordFetch("nflverse", "too_large", time.Since(start).Seconds())
			return nil, &FetchFailedError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("%w: limit is %d bytes", ErrBodyTooLarge, f.maxBytes)}
		}
		metrics.RecordFetch("nflverse", status, time.Since(start).Seconds())

		log.Debug().
			Str("url", url).
			Int("size", len(body)).
			Msg("Release asset fetched")
		return body, nil

	case resp.StatusCode == http.StatusNotFound:
		metrics.RecordFetch("nflverse", status, time.Since(start).Seconds())
		return nil, ErrNotFound

	case resp.StatusCode == http.StatusForbidden, resp.StatusCode == http.StatusTooManyRequests:
		metrics.RecordFetch("nflverse", status, time.Since(start).Seconds())
		reset := resp.Header.Get("Retry-After")
		if reset == "" {
			reset = resp.Header.Get("X-RateLimit-Reset")
		}
		return nil, &RateLimitedError{URL: url, StatusCode: resp.StatusCode, Reset: reset}

	default:
		metrics.RecordFetch("nflverse", status, time.Since(start).Seconds())
		return nil, &FetchFailedError{URL: url, StatusCode: resp.StatusCode}
	}
}
