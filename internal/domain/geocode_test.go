package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	olc "github.com/google/open-location-code/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock geocoder ---

type mockGeocoder struct {
	result  GeocodingResult
	err     error
	calls   int
	queries []string
}

func (m *mockGeocoder) ForwardGeocode(_ context.Context, address string) (GeocodingResult, error) {
	m.calls++
	m.queries = append(m.queries, address)
	return m.result, m.err
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// --- tests ---

func TestEnrichWithGeocoding_NilGeocoder(t *testing.T) {
	rec := ClientRecord{Row: 1, Address: "1 Upper Street, London"}

	result := EnrichWithGeocoding(context.Background(), rec, nil, ", UK", discardLogger())

	assert.Empty(t, result.GeoSource)
	assert.False(t, result.HasCoords)
	assert.Empty(t, result.PlusCode)
}

func TestEnrichWithGeocoding_ForwardGeocode(t *testing.T) {
	geo := &mockGeocoder{
		result: GeocodingResult{
			Lat:              51.5386,
			Lon:              -0.1027,
			FormattedAddress: "1 Upper Street, London N1 0PQ, United Kingdom",
			Confidence:       0.95,
		},
	}
	rec := ClientRecord{Row: 1, Address: " 1 Upper Street, London "}

	result := EnrichWithGeocoding(context.Background(), rec, geo, ", UK", discardLogger())

	assert.True(t, result.HasCoords)
	assert.Equal(t, 51.5386, result.Geo.Lat)
	assert.Equal(t, -0.1027, result.Geo.Lon)
	assert.Equal(t, "forward", result.GeoSource)
	assert.Equal(t, "1 Upper Street, London N1 0PQ, United Kingdom", result.FormattedAddress)
	assert.Equal(t, 0.95, result.GeoConfidence)
	assert.Equal(t, []string{"1 Upper Street, London, UK"}, geo.queries)
	require.NotEmpty(t, result.PlusCode)
	assert.NoError(t, olc.CheckFull(result.PlusCode))
}

func TestEnrichWithGeocoding_OriginalCoordsSkipLookup(t *testing.T) {
	geo := &mockGeocoder{}
	rec := ClientRecord{
		Row:       2,
		Address:   "1 Upper Street, London",
		Geo:       Geo{Lat: 51.5, Lon: -0.12},
		HasCoords: true,
	}

	result := EnrichWithGeocoding(context.Background(), rec, geo, ", UK", discardLogger())

	assert.Equal(t, "original", result.GeoSource)
	assert.Equal(t, 0, geo.calls)
	assert.Equal(t, olc.Encode(51.5, -0.12, 10), result.PlusCode)
}

func TestEnrichWithGeocoding_ForwardError_GracefulDegradation(t *testing.T) {
	geo := &mockGeocoder{err: errors.New("API timeout")}
	rec := ClientRecord{Row: 3, Address: "Nowhere Lane"}

	result := EnrichWithGeocoding(context.Background(), rec, geo, "", discardLogger())

	assert.Equal(t, "failed", result.GeoSource)
	assert.False(t, result.HasCoords)
	assert.Empty(t, result.PlusCode)
}

func TestEnrichWithGeocoding_NoAddress(t *testing.T) {
	geo := &mockGeocoder{}
	rec := ClientRecord{Row: 4, Address: "   "}

	result := EnrichWithGeocoding(context.Background(), rec, geo, ", UK", discardLogger())

	assert.Empty(t, result.GeoSource)
	assert.Equal(t, 0, geo.calls)
}

func TestEnrichWithGeocoding_ForwardEmptyResult(t *testing.T) {
	geo := &mockGeocoder{}
	rec := ClientRecord{Row: 5, Address: "Unknown Place"}

	result := EnrichWithGeocoding(context.Background(), rec, geo, ", UK", discardLogger())

	assert.Equal(t, "unmatched", result.GeoSource)
	assert.False(t, result.HasCoords)
	assert.Equal(t, 1, geo.calls)
}
