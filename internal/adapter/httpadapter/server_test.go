package httpadapter_test

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/region-choropleth/internal/adapter/httpadapter"
)

type mockArtifacts struct {
	html    []byte
	geojson []byte
	ok      bool
}

func (m *mockArtifacts) CheckReadiness(_ context.Context) error {
	if !m.ok {
		return errors.New("no run has completed yet")
	}
	return nil
}

func (m *mockArtifacts) Artifacts() ([]byte, []byte, bool) { return m.html, m.geojson, m.ok }

func newTestServer(src *mockArtifacts) *httpadapter.Server {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	return httpadapter.NewServer(":0", src, reg, slog.Default())
}

func readyServer() *httpadapter.Server {
	return newTestServer(&mockArtifacts{
		html:    []byte("<html>map</html>"),
		geojson: []byte(`{"type":"FeatureCollection","features":[]}`),
		ok:      true,
	})
}

func TestHealthzReturns200(t *testing.T) {
	srv := newTestServer(&mockArtifacts{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
}

func TestReadyzReturns200WhenReady(t *testing.T) {
	srv := readyServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ready", body["status"])
}

func TestReadyzReturns503WhenNotReady(t *testing.T) {
	srv := newTestServer(&mockArtifacts{})
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/readyz", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "not ready", body["status"])
	assert.Equal(t, "no run has completed yet", body["error"])
}

func TestIndexServesHTML(t *testing.T) {
	srv := readyServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/html; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Equal(t, "<html>map</html>", rec.Body.String())
}

func TestRegionsServesGeoJSON(t *testing.T) {
	srv := readyServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/regions.geojson", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/geo+json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"type":"FeatureCollection","features":[]}`, rec.Body.String())
}

func TestArtifactsUnavailableBeforeRun(t *testing.T) {
	srv := newTestServer(&mockArtifacts{})

	for _, path := range []string{"/", "/regions.geojson"} {
		rec := httptest.NewRecorder()
		srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code, path)
	}
}

func TestUnknownPathIs404(t *testing.T) {
	srv := readyServer()
	rec := httptest.NewRecorder()

	srv.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/favicon.ico", nil))

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMetricsEndpoint(t *testing.T) {
	srv := readyServer()
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)

	srv.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")
}
