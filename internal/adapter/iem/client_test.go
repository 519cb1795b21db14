package iem

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/afd-term-etl/internal/observability"
)

func testClient(baseURL string, retries int, clock clockwork.Clock) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 5 * time.Second},
		baseURL:    baseURL,
		retries:    retries,
		backoff:    time.Second,
		maxBackoff: MaxBackoff,
		clock:      clock,
		metrics:    observability.NewMetricsForTesting(),
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

var (
	testStart = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	testEnd   = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
)

func TestFetchArchive_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2024-01-01T00:00Z", q.Get("sdate"))
		assert.Equal(t, "2025-01-01T00:00Z", q.Get("edate"))
		assert.Equal(t, "AFDOUN", q.Get("pil"))
		assert.Equal(t, "zip", q.Get("fmt"))
		assert.Equal(t, "99999", q.Get("limit"))
		w.Header().Set("Content-Type", "application/zip")
		_, _ = w.Write([]byte("PK-archive"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0, clockwork.NewRealClock())
	data, err := c.FetchArchive(context.Background(), "AFDOUN", testStart, testEnd)
	require.NoError(t, err)
	assert.Equal(t, "PK-archive", string(data))
}

func TestFetchArchive_NotFoundIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte("no such product"))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, clockwork.NewRealClock())
	_, err := c.FetchArchive(context.Background(), "AFDXXX", testStart, testEnd)
	require.Error(t, err)

	var se *StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, http.StatusNotFound, se.Code)
	assert.Contains(t, err.Error(), "404")
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetchArchive_RetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write([]byte("PK-archive"))
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := testClient(srv.URL, 2, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	type result struct {
		data []byte
		err  error
	}
	done := make(chan result, 1)
	go func() {
		data, err := c.FetchArchive(ctx, "AFDOUN", testStart, testEnd)
		done <- result{data, err}
	}()

	require.NoError(t, clock.BlockUntilContext(ctx, 1))
	clock.Advance(time.Second)

	r := <-done
	require.NoError(t, r.err)
	assert.Equal(t, "PK-archive", string(r.data))
	assert.Equal(t, int32(2), calls.Load())
}

func TestFetchArchive_GivesUpAfterRetries(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 2, clockwork.NewRealClock())
	c.backoff = 0

	_, err := c.FetchArchive(context.Background(), "AFDOUN", testStart, testEnd)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
	assert.Equal(t, int32(3), calls.Load())
}

func TestFetchArchive_BackoffIsCapped(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := testClient(srv.URL, 10, clock)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		_, err := c.FetchArchive(ctx, "AFDOUN", testStart, testEnd)
		done <- err
	}()

	want := []time.Duration{
		time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 16 * time.Second,
		MaxBackoff, MaxBackoff, MaxBackoff, MaxBackoff, MaxBackoff,
	}
	var waited time.Duration
	for i, d := range want {
		require.NoError(t, clock.BlockUntilContext(ctx, 1))
		clock.Advance(d)
		waited += d
		require.Eventually(t, func() bool { return calls.Load() == int32(i+2) }, 5*time.Second, time.Millisecond,
			"retry %d did not fire after %s", i+1, d)
	}

	err := <-done
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")
	assert.Equal(t, int32(11), calls.Load())
	assert.Equal(t, 181*time.Second, waited)
}

func TestFetchArchive_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0, clockwork.NewRealClock())
	c.httpClient.Timeout = 50 * time.Millisecond

	_, err := c.FetchArchive(context.Background(), "AFDOUN", testStart, testEnd)
	require.Error(t, err)
}

func TestFetchArchive_CancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	clock := clockwork.NewFakeClock()
	c := testClient(srv.URL, 5, clock)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := c.FetchArchive(ctx, "AFDOUN", testStart, testEnd)
		done <- err
	}()

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	require.NoError(t, clock.BlockUntilContext(waitCtx, 1))
	cancel()

	err := <-done
	require.ErrorIs(t, err, context.Canceled)
}

func TestRetryable(t *testing.T) {
	ctx := context.Background()
	assert.True(t, retryable(ctx, &StatusError{Code: http.StatusTooManyRequests}))
	assert.True(t, retryable(ctx, &StatusError{Code: http.StatusGatewayTimeout}))
	assert.False(t, retryable(ctx, &StatusError{Code: http.StatusBadRequest}))
	assert.True(t, retryable(ctx, io.ErrUnexpectedEOF))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	assert.False(t, retryable(cancelled, io.ErrUnexpectedEOF))
}
