package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"
)

// ConvertOptions controls how the custom boundary document is read.
type ConvertOptions struct {
	AxisOrder AxisOrder
	Policy    Policy
}

// Conversion is the result of converting a boundary document.
type Conversion struct {
	Features []GeoFeature // sorted by RegionID
	Skipped  []error      // *GeometryError per dropped region
}

// Convert parses, validates and normalizes a custom boundary document.
//
// Under SkipAndWarn a malformed region is dropped and its *GeometryError is
// recorded in Conversion.Skipped; under FailFast the first one is returned.
// Duplicate region identifiers always fail the conversion.
func Convert(doc []byte, opts ConvertOptions) (Conversion, error) {
	records, skipped, err := ParseBoundaryDocument(doc, opts.AxisOrder)
	if err != nil {
		return Conversion{}, err
	}
	if opts.Policy == FailFast && len(skipped) > 0 {
		return Conversion{}, skipped[0]
	}

	features := make([]GeoFeature, 0, len(records))
	for _, rec := range records {
		f, err := BuildFeature(rec)
		if err != nil {
			if opts.Policy == FailFast {
				return Conversion{}, err
			}
			skipped = append(skipped, err)
			continue
		}
		features = append(features, f)
	}

	sort.Slice(features, func(i, j int) bool {
		return features[i].RegionID < features[j].RegionID
	})

	return Conversion{Features: features, Skipped: skipped}, nil
}

// BuildFeature validates every ring of rec and assembles its geometry.
// Rings are rewound so outer rings are counter-clockwise and holes clockwise.
func BuildFeature(rec BoundaryRecord) (GeoFeature, error) {
	fail := func(err error) (GeoFeature, error) {
		return GeoFeature{}, &GeometryError{RegionID: rec.RegionID, Err: err}
	}

	if len(rec.Parts) == 0 {
		return fail(fmt.Errorf("%w: no rings", ErrInvalidGeometry))
	}
	for p, part := range rec.Parts {
		if len(part) == 0 {
			return fail(fmt.Errorf("%w: polygon %d has no rings", ErrInvalidGeometry, p))
		}
		for r, ring := range part {
			if err := ValidateRing(ring); err != nil {
				return fail(fmt.Errorf("polygon %d ring %d: %w", p, r, err))
			}
		}
	}

	var geom orb.Geometry
	switch rec.SourceType {
	case "Polygon":
		geom = orientPolygon(orb.Polygon(rec.Parts[0]))
	case "MultiPolygon":
		mp := make(orb.MultiPolygon, 0, len(rec.Parts))
		for _, part := range rec.Parts {
			mp = append(mp, orientPolygon(orb.Polygon(part)))
		}
		geom = mp
	default:
		geom = classifyRings(rec.Parts[0])
	}

	return GeoFeature{
		RegionID: rec.RegionID,
		Name:     rec.Name,
		Geometry: geom,
	}, nil
}

// ValidateRing checks closure, vertex count, coordinate range and area.
func ValidateRing(ring orb.Ring) error {
	if len(ring) < 4 {
		return fmt.Errorf("%w: got %d", ErrTooFewPoints, len(ring))
	}
	if !ring.Closed() {
		return ErrUnclosedRing
	}
	for i, pt := range ring {
		lon, lat := pt[0], pt[1]
		if math.IsNaN(lon) || math.IsNaN(lat) || lon < -180 || lon > 180 || lat < -90 || lat > 90 {
			return fmt.Errorf("%w: point %d is [%g, %g]", ErrCoordinateRange, i, lon, lat)
		}
	}
	if ring.Orientation() == 0 {
		return fmt.Errorf("%w: ring has zero area", ErrInvalidGeometry)
	}
	return nil
}

// classifyRings turns a bare ring list into a Polygon or MultiPolygon.
// A ring nested inside an odd number of other rings is a hole of the smallest
// outer ring that contains it; every other ring starts a new polygon.
func classifyRings(rings []orb.Ring) orb.Geometry {
	areas := make([]float64, len(rings))
	for i, r := range rings {
		areas[i] = ringArea(r)
	}

	var outers []int
	holes := make(map[int][]int)
	for i := range rings {
		depth := 0
		for j := range rings {
			if i != j && ringInside(rings[i], areas[i], rings[j], areas[j]) {
				depth++
			}
		}
		if depth%2 == 0 {
			outers = append(outers, i)
		}
	}

	for i := range rings {
		if containsInt(outers, i) {
			continue
		}
		parent := -1
		for _, o := range outers {
			if !ringInside(rings[i], areas[i], rings[o], areas[o]) {
				continue
			}
			if parent == -1 || areas[o] < areas[parent] {
				parent = o
			}
		}
		if parent >= 0 {
			holes[parent] = append(holes[parent], i)
		}
	}

	polygons := make(orb.MultiPolygon, 0, len(outers))
	for _, o := range outers {
		poly := orb.Polygon{rings[o]}
		for _, h := range holes[o] {
			poly = append(poly, rings[h])
		}
		polygons = append(polygons, orientPolygon(poly))
	}

	if len(polygons) == 1 {
		return polygons[0]
	}
	return polygons
}

// ringInside reports whether inner lies within outer: every vertex of inner
// is inside or on outer and inner is strictly smaller.
func ringInside(inner orb.Ring, innerArea float64, outer orb.Ring, outerArea float64) bool {
	if innerArea >= outerArea {
		return false
	}
	for _, pt := range inner {
		if !planar.RingContains(outer, pt) {
			return false
		}
	}
	return true
}

func ringArea(r orb.Ring) float64 {
	_, a := planar.CentroidArea(r)
	return math.Abs(a)
}

func orientPolygon(p orb.Polygon) orb.Polygon {
	for i, ring := range p {
		want := orb.CW
		if i == 0 {
			want = orb.CCW
		}
		if ring.Orientation() != want {
			ring.Reverse()
		}
	}
	return p
}

func containsInt(list []int, v int) bool {
	for _, x := range list {
		if x == v {
			return true
		}
	}
	return false
}

// FeatureCollection wraps features in a GeoJSON FeatureCollection. Each
// feature carries the region identifier as both its "id" member and
// properties.id, the join key for the choropleth.
func FeatureCollection(features []GeoFeature) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	for _, f := range features {
		fc.Append(NewGeoJSONFeature(f))
	}
	return fc
}

// NewGeoJSONFeature converts a GeoFeature into an orb GeoJSON feature.
func NewGeoJSONFeature(f GeoFeature) *geojson.Feature {
	gf := geojson.NewFeature(f.Geometry)
	gf.ID = f.RegionID
	gf.Properties["id"] = f.RegionID
	gf.Properties["name"] = f.Name
	return gf
}

// EncodeFeatureCollection renders features as RFC 7946 GeoJSON. Identical
// input always yields identical bytes: features are sorted by the converter
// and property keys are emitted in sorted order.
func EncodeFeatureCollection(features []GeoFeature) ([]byte, error) {
	data, err := json.Marshal(FeatureCollection(features))
	if err != nil {
		return nil, fmt.Errorf("encode feature collection: %w", err)
	}
	return append(data, '\n'), nil
}
