package main

import (
	"archive/zip"
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/afd-term-etl/internal/adapter/csvstore"
	"github.com/couchcryptid/afd-term-etl/internal/domain"
)

func TestRun_RequiresExactlyOneArgument(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"none", []string{"afdterms"}},
		{"two", []string{"afdterms", "SR", "CR"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			err := newApp(&out).Run(tt.args)
			require.ErrorIs(t, err, errUsage)
			assert.Contains(t, out.String(), "<region>")
		})
	}
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv("START_YEAR", "2010")
	t.Setenv("END_YEAR", "2005")

	err := newApp(&bytes.Buffer{}).Run([]string{"afdterms", "SR"})
	require.ErrorContains(t, err, "START_YEAR")
}

func TestRun_RejectsRegionOutsideOutputDir(t *testing.T) {
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	t.Setenv("AFD_OUTPUT_DIR", out)

	for _, region := range []string{"../X", "SR/..", "S R"} {
		err := newApp(&bytes.Buffer{}).Run([]string{"afdterms", region})
		require.ErrorIs(t, err, domain.ErrInvalidRegion, region)
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing should be written for a rejected region")
}

func archiveBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("AFDAAA.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("HRRR and NBM guidance. Storms LIKELY."))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestRun_EndToEnd(t *testing.T) {
	data := archiveBytes(t)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("pil") != "AFDAAA" {
			http.Error(w, "no such product", http.StatusNotFound)
			return
		}
		_, _ = w.Write(data)
	}))
	defer srv.Close()

	dir := t.TempDir()
	vocabFile := filepath.Join(dir, "tables.yaml")
	require.NoError(t, os.WriteFile(vocabFile, []byte("regions:\n  XR: [AAA, BBB]\n"), 0o600))

	out := filepath.Join(dir, "out")
	t.Setenv("AFD_OUTPUT_DIR", out)
	t.Setenv("AFD_BASE_URL", srv.URL)
	t.Setenv("VOCABULARY_FILE", vocabFile)
	t.Setenv("START_YEAR", "2020")
	t.Setenv("END_YEAR", "2021")
	t.Setenv("FETCH_RETRIES", "0")
	t.Setenv("LOG_LEVEL", "error")

	var stdout bytes.Buffer
	require.NoError(t, newApp(&stdout).Run([]string{"afdterms", "xr"}))

	assert.Contains(t, stdout.String(), "Combined Term Counts for region XR:")
	assert.Regexp(t, `AAA\s+2020`, stdout.String())
	assert.Contains(t, stdout.String(), "BBB: 2020-2021")

	_, err := os.Stat(csvstore.OfficePath(out, "AAA"))
	require.NoError(t, err)
	_, err = os.Stat(csvstore.OfficePath(out, "BBB"))
	require.NoError(t, err)
	combined, err := os.ReadFile(csvstore.CombinedPath(out, "XR"))
	require.NoError(t, err)
	assert.Contains(t, string(combined), "WFO,Year,GFS,")
	assert.Contains(t, string(combined), "AAA,2021,")
}
