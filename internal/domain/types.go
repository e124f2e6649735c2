package domain

import (
	"time"

	"github.com/paulmach/orb"
)

// BoundaryRecord is one region as it appears in the custom boundary document,
// after axis normalization but before validation. Each part is a list of
// rings; Parts has one entry for a Polygon source and several for a
// MultiPolygon source. Bare ring lists land in a single part and are
// classified into outers and holes by the converter.
type BoundaryRecord struct {
	RegionID   string
	Name       string
	SourceType string // "Polygon", "MultiPolygon" or "" for bare ring lists
	Parts      [][]orb.Ring
}

// GeoFeature is a validated region geometry ready for GeoJSON encoding.
// Geometry is either an orb.Polygon or an orb.MultiPolygon, [lon, lat].
type GeoFeature struct {
	RegionID string
	Name     string
	Geometry orb.Geometry
}

// ClientRecord is one row of the client CSV.
type ClientRecord struct {
	Row      int    // 1-based data row, header excluded
	RegionID string // join key to GeoFeature.RegionID
	Name     string
	Address  string
	Status   string // raw status cell, mapped through a StatusScale

	// Geo is only meaningful when HasCoords is true.
	Geo       Geo
	HasCoords bool
	GeoSource string // "original", "forward", "unmatched", "failed" or ""
	PlusCode  string

	FormattedAddress string // provider address for forward-geocoded records
	GeoConfidence    float64
}

// Geo represents a WGS-84 latitude/longitude coordinate pair.
type Geo struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point returns the coordinate in orb's [lon, lat] order.
func (g Geo) Point() orb.Point {
	return orb.Point{g.Lon, g.Lat}
}

// RegionAggregate is the representative status value of one region.
type RegionAggregate struct {
	RegionID string  `json:"region_id"`
	Mean     float64 `json:"mean"`
	Count    int     `json:"count"`    // records that contributed to Mean
	Excluded int     `json:"excluded"` // records of this region skipped as unmappable
}

// RegionAggregates maps region identifier to its aggregate.
type RegionAggregates map[string]RegionAggregate

// Values returns the plain region -> mean mapping used for choropleth coloring.
func (a RegionAggregates) Values() map[string]float64 {
	out := make(map[string]float64, len(a))
	for id, agg := range a {
		out[id] = agg.Mean
	}
	return out
}

// RunReport summarizes a completed pipeline run.
type RunReport struct {
	RunID            string
	GeneratedAt      time.Time
	RegionsConverted int
	RegionsSkipped   int
	RecordsRead      int
	RecordsSkipped   int
	RecordsGeocoded  int
	RecordsLocated   int
	RegionsWithData  int
	GeoJSONPath      string
	HTMLPath         string
	SummaryPath      string
}
