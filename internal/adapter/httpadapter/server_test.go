package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/afd-term-etl/internal/adapter/httpadapter"
	"github.com/couchcryptid/afd-term-etl/internal/pipeline"
)

type mockRunner struct {
	err      error
	progress pipeline.Progress
}

func (m *mockRunner) CheckReadiness(_ context.Context) error { return m.err }
func (m *mockRunner) Progress() pipeline.Progress            { return m.progress }

func serve(t *testing.T, runner *mockRunner, path string) *httptest.ResponseRecorder {
	t.Helper()
	srv := httpadapter.NewServer(":0", runner, slog.Default())
	rec := httptest.NewRecorder()
	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestHealthzReturns200(t *testing.T) {
	rec := serve(t, &mockRunner{}, "/healthz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	rec := serve(t, &mockRunner{}, "/readyz")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReadyzFailsBeforeRunStarts(t *testing.T) {
	rec := serve(t, &mockRunner{err: errors.New("region run has not started")}, "/readyz")
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestStatusReportsProgress(t *testing.T) {
	runner := &mockRunner{progress: pipeline.Progress{
		Region:       "SR",
		OfficesDone:  3,
		OfficesTotal: 30,
		Current:      "OUN",
	}}
	rec := serve(t, runner, "/status")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "SR", body["region"])
	assert.InDelta(t, 3, body["offices_done"], 0)
	assert.Equal(t, "OUN", body["current_office"])
	assert.Equal(t, false, body["finished"])
	assert.NotContains(t, body, "error")
}

func TestMetricsEndpoint(t *testing.T) {
	rec := serve(t, &mockRunner{}, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}

func TestUnknownRouteReturns404(t *testing.T) {
	rec := serve(t, &mockRunner{}, "/nope")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
