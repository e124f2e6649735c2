package domain

import (
	"sort"
	"strings"
)

// Aggregator reduces client records to one mean status value per region.
type Aggregator struct {
	scale  StatusScale
	policy Policy
}

// AggregateResult holds the per-region means and the records that were left out.
type AggregateResult struct {
	Aggregates RegionAggregates
	Counted    int
	Skipped    []error // *DataError per excluded record
}

// NewAggregator creates an Aggregator using scale to map statuses.
func NewAggregator(scale StatusScale, policy Policy) *Aggregator {
	return &Aggregator{scale: scale, policy: policy}
}

// Aggregate groups records by region and averages their mapped statuses.
//
// A record without a region identifier or with an unmappable status yields a
// *DataError. Under SkipAndWarn it is excluded from the mean and reported in
// Skipped; under FailFast Aggregate returns it. Regions whose records were all
// excluded do not appear in the result.
func (a *Aggregator) Aggregate(records []ClientRecord) (AggregateResult, error) {
	type acc struct {
		sum      float64
		count    int
		excluded int
	}
	groups := make(map[string]*acc)
	var skipped []error

	for _, rec := range records {
		region := strings.TrimSpace(rec.RegionID)
		if region == "" {
			err := &DataError{Row: rec.Row, Field: "region", Err: ErrMissingRegion}
			if a.policy == FailFast {
				return AggregateResult{}, err
			}
			skipped = append(skipped, err)
			continue
		}

		g, ok := groups[region]
		if !ok {
			g = &acc{}
			groups[region] = g
		}

		v, err := a.scale.Map(rec.Status)
		if err != nil {
			derr := &DataError{Row: rec.Row, RegionID: region, Field: "status", Err: err}
			if a.policy == FailFast {
				return AggregateResult{}, derr
			}
			skipped = append(skipped, derr)
			g.excluded++
			continue
		}
		g.sum += v
		g.count++
	}

	out := make(RegionAggregates, len(groups))
	counted := 0
	for region, g := range groups {
		if g.count == 0 {
			continue
		}
		out[region] = RegionAggregate{
			RegionID: region,
			Mean:     g.sum / float64(g.count),
			Count:    g.count,
			Excluded: g.excluded,
		}
		counted += g.count
	}

	return AggregateResult{Aggregates: out, Counted: counted, Skipped: skipped}, nil
}

// SortedIDs returns the region identifiers in ascending order.
func (a RegionAggregates) SortedIDs() []string {
	ids := make([]string, 0, len(a))
	for id := range a {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
