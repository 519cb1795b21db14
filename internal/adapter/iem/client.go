// Package iem retrieves archived NWS text products from the Iowa
// Environmental Mesonet AFOS service.
package iem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/couchcryptid/storm-data-shared/retry"
	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/afd-term-etl/internal/observability"
)

// DefaultBaseURL is the AFOS retrieve endpoint.
const DefaultBaseURL = "https://mesonet.agron.iastate.edu/cgi-bin/afos/retrieve.py"

// timeLayout is the minute-precision UTC format the endpoint accepts.
const timeLayout = "2006-01-02T15:04Z"

// Retry delays start at InitialBackoff and double up to MaxBackoff.
const (
	InitialBackoff = 2 * time.Second
	MaxBackoff     = 30 * time.Second
)

// maxProducts caps the number of products in one archive response.
const maxProducts = "99999"

// StatusError reports a non-200 response from the archive.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("afos archive error: status %d: %s", e.Code, e.Body)
}

// Client fetches zip archives of text products for a time window.
type Client struct {
	httpClient *http.Client
	baseURL    string
	retries    int
	backoff    time.Duration
	maxBackoff time.Duration
	clock      clockwork.Clock
	metrics    *observability.Metrics
	logger     *slog.Logger
}

// NewClient creates an archive client. Each request is bounded by timeout;
// transient failures are retried up to retries more times.
func NewClient(baseURL string, timeout time.Duration, retries int, metrics *observability.Metrics, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:    baseURL,
		retries:    retries,
		backoff:    InitialBackoff,
		maxBackoff: MaxBackoff,
		clock:      clockwork.NewRealClock(),
		metrics:    metrics,
		logger:     logger,
	}
}

// FetchArchive returns the zip archive of every product with the given
// product code issued in [start, end).
func (c *Client) FetchArchive(ctx context.Context, productCode string, start, end time.Time) ([]byte, error) {
	params := url.Values{
		"sdate": {start.UTC().Format(timeLayout)},
		"edate": {end.UTC().Format(timeLayout)},
		"pil":   {productCode},
		"fmt":   {"zip"},
		"limit": {maxProducts},
	}
	fullURL := c.baseURL + "?" + params.Encode()

	backoff := min(c.backoff, c.maxBackoff)
	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			c.logger.Warn("archive request failed, retrying",
				"product", productCode,
				"attempt", attempt,
				"next_delay", backoff,
				"error", lastErr,
			)
			if !c.sleep(ctx, backoff) {
				return nil, fmt.Errorf("fetch %s: %w", productCode, ctx.Err())
			}
			backoff = retry.NextBackoff(backoff, c.maxBackoff)
		}

		data, err := c.doRequest(ctx, fullURL)
		if err == nil {
			return data, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}
	return nil, fmt.Errorf("fetch %s: %w", productCode, lastErr)
}

func (c *Client) doRequest(ctx context.Context, fullURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	start := c.clock.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.metrics.ArchiveRequests.WithLabelValues("status").Inc()
		return nil, &StatusError{Code: resp.StatusCode, Body: string(body)}
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		c.metrics.ArchiveRequests.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("read archive body: %w", err)
	}
	c.metrics.ArchiveRequests.WithLabelValues("success").Inc()
	c.metrics.ArchiveFetchDuration.Observe(c.clock.Since(start).Seconds())
	return data, nil
}

// retryable reports whether err is worth another attempt: transport
// failures, throttling, and server errors, but never a cancelled context.
func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Code == http.StatusTooManyRequests || se.Code >= http.StatusInternalServerError
	}
	return true
}

func (c *Client) sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-c.clock.After(d):
		return true
	}
}
