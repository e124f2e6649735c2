// Package domain converts custom region boundaries to GeoJSON and reduces
// client status records to one value per region.
//
// # Boundary Document
//
// The boundary document is a single JSON object in one of two shapes.
//
// Feature list (the shape exported by the boundary editor):
//
//	{"features": [
//	  {"name": "Islington North", "id": "E14000763",
//	   "geometry": {"type": "Polygon", "coordinates": [[[-0.12, 51.5], ...]]}}
//	]}
//
// Region map:
//
//	{"Islington North": {"type": "MultiPolygon", "coordinates": [...]},
//	 "Hackney South":   [[[-0.05, 51.53], ...], [[...hole...]]]}
//
// A top-level "features" key selects the feature list only when it holds an
// array of objects; a region named "features" with bare rings stays a region.
//
// In the region map a value is either a geometry object or a bare array of
// rings (depth 3) or of polygons (depth 4). Bare ring lists are classified by
// containment: a ring nested inside an odd number of other rings is a hole of
// the smallest ring that contains it, every other ring is an outer boundary.
//
// # Region Identifiers
//
// The region identifier is the feature "id" (string or number), falling back
// to properties.id, then "name" and properties.name. The name is kept as
// properties.name and defaults to the identifier. Two features may share a
// display name as long as their ids differ. Duplicate identifiers always fail
// the conversion: a silent overwrite would attach the wrong geometry to a
// region's clients.
//
// # Coordinates
//
// Positions are [longitude, latitude] unless the document is declared as
// latlon, in which case each pair is swapped on read. Altitude is dropped.
// Every ring must be closed, have at least four positions, stay inside
// [-180, 180] x [-90, 90] and enclose a non-zero area. Output rings are
// rewound to the RFC 7946 right-hand rule: outer rings counter-clockwise,
// holes clockwise.
//
// # Status Scale
//
// Client statuses are ordinal labels mapped through a [StatusScale]
// (default [DefaultScaleLabels]). With numeric passthrough enabled, cells that
// parse as numbers are used as-is. A region's value is the arithmetic mean of
// its mapped statuses; unmappable statuses are excluded from the mean.
//
// # Error Policy
//
// Per-region [GeometryError] and per-record [DataError] values are skipped
// and counted under [SkipAndWarn] and abort the run under [FailFast]. An
// [IOError] on a required input is always fatal.
package domain
