package domain

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// RegionIndex answers "which region contains this point" over converted features.
type RegionIndex struct {
	entries []indexEntry
}

type indexEntry struct {
	regionID string
	bound    orb.Bound
	geometry orb.Geometry
}

// NewRegionIndex indexes features in the order given. When regions overlap,
// the first one in that order wins, so pass the converter's sorted output for
// a deterministic answer.
func NewRegionIndex(features []GeoFeature) *RegionIndex {
	idx := &RegionIndex{entries: make([]indexEntry, 0, len(features))}
	for _, f := range features {
		idx.entries = append(idx.entries, indexEntry{
			regionID: f.RegionID,
			bound:    f.Geometry.Bound(),
			geometry: f.Geometry,
		})
	}
	return idx
}

// Locate returns the identifier of the region containing pt ([lon, lat]).
func (idx *RegionIndex) Locate(pt orb.Point) (string, bool) {
	for _, e := range idx.entries {
		if !e.bound.Contains(pt) {
			continue
		}
		switch g := e.geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return e.regionID, true
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return e.regionID, true
			}
		}
	}
	return "", false
}

// AssignRegions fills in the region of every record that has coordinates but
// no region identifier. It returns the updated records and how many were
// assigned. Records that stay region-less are left for the aggregator to
// report.
func AssignRegions(records []ClientRecord, idx *RegionIndex) ([]ClientRecord, int) {
	out := make([]ClientRecord, len(records))
	copy(out, records)

	assigned := 0
	for i := range out {
		if out[i].RegionID != "" || !out[i].HasCoords {
			continue
		}
		if id, ok := idx.Locate(out[i].Geo.Point()); ok {
			out[i].RegionID = id
			assigned++
		}
	}
	return out, assigned
}
