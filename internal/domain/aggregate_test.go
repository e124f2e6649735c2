package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregate_IdentityScale(t *testing.T) {
	records := []ClientRecord{
		{Row: 1, RegionID: "A", Status: "1"},
		{Row: 2, RegionID: "A", Status: "-1"},
		{Row: 3, RegionID: "B", Status: "1"},
	}

	res, err := NewAggregator(IdentityScale(), SkipAndWarn).Aggregate(records)
	require.NoError(t, err)

	assert.Equal(t, map[string]float64{"A": 0.0, "B": 1.0}, res.Aggregates.Values())
	assert.Equal(t, 3, res.Counted)
	assert.Empty(t, res.Skipped)
	assert.Equal(t, 2, res.Aggregates["A"].Count)
}

func TestAggregate_LabelScale(t *testing.T) {
	scale, err := ParseStatusScale(DefaultScaleLabels, false)
	require.NoError(t, err)

	records := []ClientRecord{
		{Row: 1, RegionID: "Islington North", Status: "Stellar"},
		{Row: 2, RegionID: "Islington North", Status: "poor"},
		{Row: 3, RegionID: "Islington North", Status: " Good "},
		{Row: 4, RegionID: "Bow", Status: "None"},
	}

	res, err := NewAggregator(scale, SkipAndWarn).Aggregate(records)
	require.NoError(t, err)
	assert.InDelta(t, 8.0/3.0, res.Aggregates["Islington North"].Mean, 1e-9)
	assert.Equal(t, 0.0, res.Aggregates["Bow"].Mean)
	assert.Equal(t, []string{"Bow", "Islington North"}, res.Aggregates.SortedIDs())
}

func TestAggregate_NoDataRegionsExcluded(t *testing.T) {
	boundaries := convertDefault(t, `{"A": `+squareA+`, "B": `+squareA+`, "C": `+squareA+`}`)
	require.Len(t, boundaries.Features, 3)

	records := []ClientRecord{
		{Row: 1, RegionID: "A", Status: "2"},
		{Row: 2, RegionID: "B", Status: "not a number"},
	}
	res, err := NewAggregator(IdentityScale(), SkipAndWarn).Aggregate(records)
	require.NoError(t, err)

	for _, f := range boundaries.Features {
		if f.RegionID == "A" {
			continue
		}
		_, ok := res.Aggregates[f.RegionID]
		assert.False(t, ok, "region %s has no counted records", f.RegionID)
	}
	for id := range res.Aggregates {
		assert.Equal(t, "A", id)
	}
}

func TestAggregate_UnmappableStatus(t *testing.T) {
	scale, err := ParseStatusScale(DefaultScaleLabels, false)
	require.NoError(t, err)

	records := []ClientRecord{
		{Row: 1, RegionID: "A", Status: "Good"},
		{Row: 2, RegionID: "A", Status: "Excellent"},
		{Row: 3, RegionID: "A", Status: ""},
		{Row: 4, RegionID: "A", Status: "Poor"},
	}

	t.Run("skip and warn excludes from mean", func(t *testing.T) {
		res, err := NewAggregator(scale, SkipAndWarn).Aggregate(records)
		require.NoError(t, err)

		agg := res.Aggregates["A"]
		assert.Equal(t, 2.0, agg.Mean)
		assert.Equal(t, 2, agg.Count)
		assert.Equal(t, 2, agg.Excluded)

		require.Len(t, res.Skipped, 2)
		for _, err := range res.Skipped {
			var derr *DataError
			require.True(t, errors.As(err, &derr))
			assert.Equal(t, "status", derr.Field)
			assert.ErrorIs(t, err, ErrUnmappableStatus)
		}
	})

	t.Run("fail fast", func(t *testing.T) {
		_, err := NewAggregator(scale, FailFast).Aggregate(records)
		var derr *DataError
		require.True(t, errors.As(err, &derr))
		assert.Equal(t, 2, derr.Row)
	})
}

func TestAggregate_MissingRegion(t *testing.T) {
	records := []ClientRecord{
		{Row: 1, RegionID: "", Status: "1"},
		{Row: 2, RegionID: "   ", Status: "1"},
		{Row: 3, RegionID: "A", Status: "3"},
	}

	res, err := NewAggregator(IdentityScale(), SkipAndWarn).Aggregate(records)
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"A": 3}, res.Aggregates.Values())
	require.Len(t, res.Skipped, 2)
	assert.ErrorIs(t, res.Skipped[0], ErrMissingRegion)

	_, err = NewAggregator(IdentityScale(), FailFast).Aggregate(records)
	assert.ErrorIs(t, err, ErrMissingRegion)
}

func TestAggregate_Empty(t *testing.T) {
	res, err := NewAggregator(IdentityScale(), FailFast).Aggregate(nil)
	require.NoError(t, err)
	assert.Empty(t, res.Aggregates)
	assert.Zero(t, res.Counted)
}
