package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
)

// AxisOrder is the position layout used by the source document.
type AxisOrder int

const (
	// LonLat positions are [longitude, latitude], the GeoJSON convention.
	LonLat AxisOrder = iota
	// LatLon positions are [latitude, longitude] and are swapped on read.
	LatLon
)

// ParseAxisOrder accepts "lonlat" or "latlon".
func ParseAxisOrder(s string) (AxisOrder, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "lonlat":
		return LonLat, nil
	case "latlon":
		return LatLon, nil
	default:
		return LonLat, fmt.Errorf("unknown axis order %q: want lonlat or latlon", s)
	}
}

func (a AxisOrder) String() string {
	if a == LatLon {
		return "latlon"
	}
	return "lonlat"
}

// sourceFeature is one entry of the feature-list document shape.
type sourceFeature struct {
	ID         json.RawMessage `json:"id"`
	Name       string          `json:"name"`
	Geometry   json.RawMessage `json:"geometry"`
	Properties map[string]any  `json:"properties"`
}

type sourceGeometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

type rawEntry struct {
	key   string
	value json.RawMessage
}

// ParseBoundaryDocument decodes the custom boundary document into records.
// Per-region decoding failures are returned in skipped as *GeometryError so
// the caller can apply its policy. A syntactically broken document or a
// duplicate region identifier is returned as err.
func ParseBoundaryDocument(doc []byte, axis AxisOrder) (records []BoundaryRecord, skipped []error, err error) {
	entries, err := readTopLevel(doc)
	if err != nil {
		return nil, nil, err
	}

	for _, e := range entries {
		if e.key == "features" && isFeatureArray(e.value) {
			return parseFeatureList(e.value, axis)
		}
	}
	return parseRegionMap(entries, axis)
}

// readTopLevel streams the top-level object so duplicate keys stay visible;
// encoding/json would silently keep the last one.
func readTopLevel(doc []byte) ([]rawEntry, error) {
	if len(bytes.TrimSpace(doc)) == 0 {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(doc))
	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("parse boundary document: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("parse boundary document: top level must be an object")
	}

	var entries []rawEntry
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, fmt.Errorf("parse boundary document: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("parse boundary document: unexpected token %v", tok)
		}
		var value json.RawMessage
		if err := dec.Decode(&value); err != nil {
			return nil, fmt.Errorf("parse boundary document: key %q: %w", key, err)
		}
		entries = append(entries, rawEntry{key: key, value: value})
	}
	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("parse boundary document: %w", err)
	}
	return entries, nil
}

func parseFeatureList(raw json.RawMessage, axis AxisOrder) ([]BoundaryRecord, []error, error) {
	var features []sourceFeature
	if err := json.Unmarshal(raw, &features); err != nil {
		return nil, nil, fmt.Errorf("parse boundary document: features: %w", err)
	}

	records := make([]BoundaryRecord, 0, len(features))
	var skipped []error
	seen := make(map[string]int, len(features))

	for i, f := range features {
		id, name := featureIdentity(f)
		if id == "" {
			skipped = append(skipped, &GeometryError{
				RegionID: "#" + strconv.Itoa(i),
				Err:      fmt.Errorf("%w: feature has neither id nor name", ErrInvalidGeometry),
			})
			continue
		}
		if first, dup := seen[id]; dup {
			return nil, nil, &GeometryError{
				RegionID: id,
				Err:      fmt.Errorf("%w: features #%d and #%d", ErrDuplicateRegion, first, i),
			}
		}
		seen[id] = i

		rec, err := parseGeometry(f.Geometry, axis)
		if err != nil {
			skipped = append(skipped, &GeometryError{RegionID: id, Err: err})
			continue
		}
		rec.RegionID, rec.Name = id, name
		records = append(records, rec)
	}
	return records, skipped, nil
}

// featureIdentity resolves the region identifier of a source feature: the
// source id when present, otherwise the name. The name falls back to the id.
func featureIdentity(f sourceFeature) (id, name string) {
	name = strings.TrimSpace(f.Name)
	if name == "" {
		name = propString(f.Properties, "name")
	}
	id = rawIDString(f.ID)
	if id == "" {
		id = propString(f.Properties, "id")
	}
	if id == "" {
		id = name
	}
	if name == "" {
		name = id
	}
	return id, name
}

func parseRegionMap(entries []rawEntry, axis AxisOrder) ([]BoundaryRecord, []error, error) {
	records := make([]BoundaryRecord, 0, len(entries))
	var skipped []error
	seen := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		id := strings.TrimSpace(e.key)
		if _, dup := seen[id]; dup {
			return nil, nil, &GeometryError{RegionID: id, Err: ErrDuplicateRegion}
		}
		seen[id] = struct{}{}

		if id == "" {
			skipped = append(skipped, &GeometryError{
				RegionID: id,
				Err:      fmt.Errorf("%w: empty region identifier", ErrInvalidGeometry),
			})
			continue
		}

		rec, err := parseGeometry(e.value, axis)
		if err != nil {
			skipped = append(skipped, &GeometryError{RegionID: id, Err: err})
			continue
		}
		rec.RegionID, rec.Name = id, id
		records = append(records, rec)
	}
	return records, skipped, nil
}

// parseGeometry accepts a geometry object or bare nested coordinate arrays.
func parseGeometry(raw json.RawMessage, axis AxisOrder) (BoundaryRecord, error) {
	raw = bytes.TrimSpace(raw)
	switch {
	case len(raw) == 0 || bytes.Equal(raw, []byte("null")):
		return BoundaryRecord{}, fmt.Errorf("%w: missing geometry", ErrInvalidGeometry)
	case raw[0] == '{':
		var g sourceGeometry
		if err := json.Unmarshal(raw, &g); err != nil {
			return BoundaryRecord{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
		}
		switch g.Type {
		case "Polygon":
			rings, err := decodeRings(g.Coordinates, axis)
			if err != nil {
				return BoundaryRecord{}, err
			}
			return BoundaryRecord{SourceType: "Polygon", Parts: [][]orb.Ring{rings}}, nil
		case "MultiPolygon":
			parts, err := decodeParts(g.Coordinates, axis)
			if err != nil {
				return BoundaryRecord{}, err
			}
			return BoundaryRecord{SourceType: "MultiPolygon", Parts: parts}, nil
		default:
			return BoundaryRecord{}, fmt.Errorf("%w: unsupported geometry type %q", ErrInvalidGeometry, g.Type)
		}
	case raw[0] == '[':
		switch depth := arrayDepth(raw); depth {
		case 3:
			rings, err := decodeRings(raw, axis)
			if err != nil {
				return BoundaryRecord{}, err
			}
			return BoundaryRecord{Parts: [][]orb.Ring{rings}}, nil
		case 4:
			parts, err := decodeParts(raw, axis)
			if err != nil {
				return BoundaryRecord{}, err
			}
			return BoundaryRecord{SourceType: "MultiPolygon", Parts: parts}, nil
		default:
			return BoundaryRecord{}, fmt.Errorf("%w: coordinate nesting depth %d, want 3 or 4", ErrInvalidGeometry, depth)
		}
	default:
		return BoundaryRecord{}, fmt.Errorf("%w: geometry must be an object or an array", ErrInvalidGeometry)
	}
}

func decodeParts(raw json.RawMessage, axis AxisOrder) ([][]orb.Ring, error) {
	var coords [][][][]float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, fmt.Errorf("%w: multipolygon coordinates: %v", ErrInvalidGeometry, err)
	}
	parts := make([][]orb.Ring, 0, len(coords))
	for _, polygon := range coords {
		rings, err := toRings(polygon, axis)
		if err != nil {
			return nil, err
		}
		parts = append(parts, rings)
	}
	return parts, nil
}

func decodeRings(raw json.RawMessage, axis AxisOrder) ([]orb.Ring, error) {
	var coords [][][]float64
	if err := json.Unmarshal(raw, &coords); err != nil {
		return nil, fmt.Errorf("%w: polygon coordinates: %v", ErrInvalidGeometry, err)
	}
	return toRings(coords, axis)
}

func toRings(coords [][][]float64, axis AxisOrder) ([]orb.Ring, error) {
	rings := make([]orb.Ring, 0, len(coords))
	for _, positions := range coords {
		ring := make(orb.Ring, 0, len(positions))
		for _, pos := range positions {
			if len(pos) < 2 {
				return nil, fmt.Errorf("%w: position has %d values, want at least 2", ErrInvalidGeometry, len(pos))
			}
			// Altitude, when present, is dropped.
			if axis == LatLon {
				ring = append(ring, orb.Point{pos[1], pos[0]})
			} else {
				ring = append(ring, orb.Point{pos[0], pos[1]})
			}
		}
		rings = append(rings, ring)
	}
	return rings, nil
}

// arrayDepth counts nested '[' before the first scalar.
func arrayDepth(raw json.RawMessage) int {
	depth := 0
	for _, b := range raw {
		switch b {
		case '[':
			depth++
		case ' ', '\t', '\n', '\r':
		default:
			return depth
		}
	}
	return depth
}

func isJSONArray(raw json.RawMessage) bool {
	raw = bytes.TrimSpace(raw)
	return len(raw) > 0 && raw[0] == '['
}

// isFeatureArray reports whether raw is an array of objects. A region named
// "features" holding bare rings is an array of arrays and stays a region.
func isFeatureArray(raw json.RawMessage) bool {
	if !isJSONArray(raw) {
		return false
	}
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return false
	}
	for _, e := range elems {
		e = bytes.TrimSpace(e)
		if len(e) == 0 || e[0] != '{' {
			return false
		}
	}
	return true
}

func rawIDString(raw json.RawMessage) string {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err == nil {
		return n.String()
	}
	return ""
}

func propString(props map[string]any, key string) string {
	v, ok := props[key]
	if !ok {
		return ""
	}
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
