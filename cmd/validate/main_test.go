package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/region-choropleth/internal/config"
	"github.com/couchcryptid/region-choropleth/internal/mockdata"
)

func testConfig(t *testing.T, boundaries, clients []byte) *config.Config {
	t.Helper()
	cfg, err := config.Load()
	require.NoError(t, err)

	dir := t.TempDir()
	cfg.BoundariesPath = filepath.Join(dir, "boundaries.json")
	cfg.ClientsPath = filepath.Join(dir, "clients.csv")
	cfg.GeoJSONOut = filepath.Join(dir, "regions.geojson")
	cfg.HTMLOut = filepath.Join(dir, "map.html")
	require.NoError(t, os.WriteFile(cfg.BoundariesPath, boundaries, 0o644))
	require.NoError(t, os.WriteFile(cfg.ClientsPath, clients, 0o644))
	return cfg
}

func TestRun_MockGridPasses(t *testing.T) {
	doc, err := mockdata.Boundaries(mockdata.DefaultGrid)
	require.NoError(t, err)
	clients, err := mockdata.Clients(mockdata.DefaultGrid)
	require.NoError(t, err)
	cfg := testConfig(t, doc, clients)

	var out bytes.Buffer
	code := run(&out, cfg)

	assert.Equal(t, 0, code, out.String())
	assert.Contains(t, out.String(), "All validations passed.")
	assert.Contains(t, out.String(), "Regions: 12 converted, 12 with data; Records: 60")
	assert.NoFileExists(t, cfg.GeoJSONOut)
	assert.NoFileExists(t, cfg.HTMLOut)
}

func TestRun_ReportsEveryFailingPhase(t *testing.T) {
	doc := []byte(`{
  "A": [[[0,0],[1,0],[1,1],[0,1],[0,0]]],
  "Open": [[[5,5],[6,5],[6,6],[5,6]]]
}`)
	clients := []byte("region,status,lat,lon\nA,Good,,\nZ,Good,,\nA,Brilliant,,\n,Poor,north,west\n")
	cfg := testConfig(t, doc, clients)

	var out bytes.Buffer
	code := run(&out, cfg)
	report := out.String()

	assert.Equal(t, 1, code)
	assert.Contains(t, report, "Validation FAILED.")
	assert.Contains(t, report, "--- Phase 1: Boundary conversion ---")
	assert.Contains(t, report, `"Open"`)
	assert.Contains(t, report, "--- Phase 2: Client records ---")
	assert.Contains(t, report, "--- Phase 3: Region join and aggregation ---")
	assert.Contains(t, report, `region "Z" has client records but no boundary`)
	assert.Contains(t, report, "row 4: no region identifier and no containing region")
	assert.NotContains(t, report, "--- Phase 4")
}

func TestRun_MissingInputIsFatal(t *testing.T) {
	cfg := testConfig(t, []byte(`{}`), []byte("region,status\n"))
	cfg.BoundariesPath += ".missing"

	var out bytes.Buffer
	code := run(&out, cfg)

	assert.Equal(t, 1, code)
	assert.Contains(t, out.String(), "FATAL:")
}
