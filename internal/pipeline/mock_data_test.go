package pipeline_test

import (
	"context"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/region-choropleth/internal/domain"
	"github.com/couchcryptid/region-choropleth/internal/mockdata"
	"github.com/couchcryptid/region-choropleth/internal/observability"
	"github.com/couchcryptid/region-choropleth/internal/pipeline"
)

func TestPipeline_WithMockGrid(t *testing.T) {
	grid := mockdata.DefaultGrid
	doc, err := mockdata.Boundaries(grid)
	require.NoError(t, err)
	csv, err := mockdata.Clients(grid)
	require.NoError(t, err)

	scale, err := domain.ParseStatusScale(domain.DefaultScaleLabels, true)
	require.NoError(t, err)

	w := newWorkspace(t, string(doc), string(csv))
	w.opts.Scale = scale
	w.opts.Convert.Policy = domain.FailFast
	w.opts.DataPolicy = domain.FailFast

	p := pipeline.New(w.opts, nil, newComposer(t), nil, discardLogger(), observability.NewMetricsForTesting())
	report, err := p.Run(context.Background())
	require.NoError(t, err)

	regions := grid.Rows * grid.Cols
	records := regions * grid.ClientsPerRegion
	assert.Equal(t, regions, report.RegionsConverted)
	assert.Equal(t, records, report.RecordsRead)
	assert.Equal(t, records/2, report.RecordsLocated)
	assert.Equal(t, 0, report.RecordsSkipped)
	assert.Equal(t, regions, report.RegionsWithData)

	gj, err := os.ReadFile(w.opts.GeoJSONOut)
	require.NoError(t, err)

	var fc struct {
		Type     string `json:"type"`
		Features []struct {
			ID         string         `json:"id"`
			Properties map[string]any `json:"properties"`
			Geometry   struct {
				Type        string         `json:"type"`
				Coordinates [][][2]float64 `json:"coordinates"`
			} `json:"geometry"`
		} `json:"features"`
	}
	require.NoError(t, json.Unmarshal(gj, &fc))
	assert.Equal(t, "FeatureCollection", fc.Type)
	require.Len(t, fc.Features, regions)

	for i, f := range fc.Features {
		t.Run(f.ID, func(t *testing.T) {
			assert.Equal(t, mockdata.RegionID(i/grid.Cols, i%grid.Cols), f.ID)
			assert.Equal(t, f.ID, f.Properties["id"])
			assert.Equal(t, "Polygon", f.Geometry.Type)
			ring := f.Geometry.Coordinates[0]
			assert.Equal(t, ring[0], ring[len(ring)-1], "ring must be closed")
		})
	}
}

func TestPipeline_MockGridMeansWithinScale(t *testing.T) {
	grid := mockdata.DefaultGrid
	doc, err := mockdata.Boundaries(grid)
	require.NoError(t, err)
	csv, err := mockdata.Clients(grid)
	require.NoError(t, err)

	scale, err := domain.ParseStatusScale(domain.DefaultScaleLabels, true)
	require.NoError(t, err)
	lo, hi, ok := scale.Bounds()
	require.True(t, ok)

	w := newWorkspace(t, string(doc), string(csv))
	w.opts.Scale = scale

	p := pipeline.New(w.opts, nil, newComposer(t), nil, discardLogger(), observability.NewMetricsForTesting())
	res, err := p.Prepare(context.Background())
	require.NoError(t, err)

	total := 0
	for _, id := range res.Agg.Aggregates.SortedIDs() {
		agg := res.Agg.Aggregates[id]
		assert.GreaterOrEqual(t, agg.Mean, lo, id)
		assert.LessOrEqual(t, agg.Mean, hi, id)
		total += agg.Count
	}
	assert.Equal(t, len(res.Clients), total)
}
