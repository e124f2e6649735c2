package csvfile

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"

	"github.com/couchcryptid/region-choropleth/internal/domain"
)

var summaryHeader = []string{"region_id", "name", "mean", "count", "excluded"}

// EncodeSummary renders one row per region in features order. Regions
// without data have an empty mean and zero counts. Aggregates for regions
// missing from features follow, sorted, with an empty name.
func EncodeSummary(features []domain.GeoFeature, aggs domain.RegionAggregates) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(summaryHeader); err != nil {
		return nil, fmt.Errorf("write summary header: %w", err)
	}
	seen := make(map[string]bool, len(features))
	for _, f := range features {
		seen[f.RegionID] = true
		if err := w.Write(summaryRow(f.RegionID, f.Name, aggs)); err != nil {
			return nil, fmt.Errorf("write summary row %s: %w", f.RegionID, err)
		}
	}
	for _, id := range aggs.SortedIDs() {
		if seen[id] {
			continue
		}
		if err := w.Write(summaryRow(id, "", aggs)); err != nil {
			return nil, fmt.Errorf("write summary row %s: %w", id, err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush summary: %w", err)
	}
	return buf.Bytes(), nil
}

func summaryRow(id, name string, aggs domain.RegionAggregates) []string {
	row := []string{id, name, "", "0", "0"}
	if agg, ok := aggs[id]; ok {
		row[2] = strconv.FormatFloat(agg.Mean, 'f', 4, 64)
		row[3] = strconv.Itoa(agg.Count)
		row[4] = strconv.Itoa(agg.Excluded)
	}
	return row
}
