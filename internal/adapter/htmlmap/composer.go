// Package htmlmap renders the standalone choropleth HTML document.
package htmlmap

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"time"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"github.com/couchcryptid/region-choropleth/internal/domain"
)

//go:embed templates/map.html.tmpl
var templateFS embed.FS

const legendStops = 5

// Options control the look of the rendered map.
type Options struct {
	Title string
	Tiles string // XYZ tile URL template
	Zoom  int
	Scale domain.StatusScale
}

// Input is everything one map needs.
type Input struct {
	Features    []domain.GeoFeature
	Aggregates  domain.RegionAggregates
	Clients     []domain.ClientRecord
	RunID       string
	GeneratedAt time.Time
}

// Composer renders choropleth maps with Leaflet.
type Composer struct {
	opts Options
	tmpl *template.Template
}

// NewComposer parses the embedded page template.
func NewComposer(opts Options) (*Composer, error) {
	tmpl, err := template.New("map.html.tmpl").Funcs(template.FuncMap{
		"fmtValue": func(v float64) string { return fmt.Sprintf("%.2f", v) },
	}).ParseFS(templateFS, "templates/map.html.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse map template: %w", err)
	}
	return &Composer{opts: opts, tmpl: tmpl}, nil
}

type marker struct {
	Lat      float64 `json:"lat"`
	Lon      float64 `json:"lon"`
	Name     string  `json:"name"`
	Status   string  `json:"status"`
	Address  string  `json:"address,omitempty"`
	PlusCode string  `json:"plus_code,omitempty"`
	Region   string  `json:"region,omitempty"`
	Color    string  `json:"color"`
}

type center struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type pageData struct {
	Title       string
	Tiles       string
	Zoom        int
	Center      center
	Bounds      [][2]float64 // [[south, west], [north, east]], nil when unknown
	Regions     *geojson.FeatureCollection
	Markers     []marker
	Legend      []LegendStop
	NoDataColor string
	RegionCount int
	WithData    int
	RunID       string
	GeneratedAt string
}

// Render produces the HTML document. Fill colors are computed up front and
// stored in each feature's "fill" property.
func (c *Composer) Render(in Input) ([]byte, error) {
	scale := c.colorScale(in.Aggregates)

	fc := domain.FeatureCollection(in.Features)
	withData := 0
	for _, f := range fc.Features {
		id, _ := f.ID.(string)
		if agg, ok := in.Aggregates[id]; ok {
			f.Properties["value"] = agg.Mean
			f.Properties["count"] = agg.Count
			f.Properties["fill"] = scale.Color(agg.Mean)
			withData++
		} else {
			f.Properties["fill"] = NoDataColor
		}
	}

	data := pageData{
		Title:       c.opts.Title,
		Tiles:       c.opts.Tiles,
		Zoom:        c.opts.Zoom,
		Regions:     fc,
		Markers:     c.markers(in.Clients, scale),
		Legend:      scale.Stops(legendStops),
		NoDataColor: NoDataColor,
		RegionCount: len(in.Features),
		WithData:    withData,
		RunID:       in.RunID,
		GeneratedAt: in.GeneratedAt.UTC().Format(time.RFC3339),
	}
	data.Center, data.Bounds = viewport(in.Features, data.Markers)

	var buf bytes.Buffer
	if err := c.tmpl.Execute(&buf, data); err != nil {
		return nil, fmt.Errorf("render map: %w", err)
	}
	return buf.Bytes(), nil
}

// colorScale spans the configured status scale when it has labels, and the
// observed aggregate range otherwise.
func (c *Composer) colorScale(aggs domain.RegionAggregates) ColorScale {
	if lo, hi, ok := c.opts.Scale.Bounds(); ok && hi > lo {
		return ColorScale{Min: lo, Max: hi}
	}
	if len(aggs) == 0 {
		return ColorScale{Min: 0, Max: 1}
	}
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, a := range aggs {
		lo = math.Min(lo, a.Mean)
		hi = math.Max(hi, a.Mean)
	}
	return ColorScale{Min: lo, Max: hi}
}

func (c *Composer) markers(clients []domain.ClientRecord, scale ColorScale) []marker {
	out := make([]marker, 0, len(clients))
	for _, rec := range clients {
		if !rec.HasCoords {
			continue
		}
		color := NoDataColor
		if v, err := c.opts.Scale.Map(rec.Status); err == nil {
			color = scale.Color(v)
		}
		name := rec.Name
		if name == "" {
			name = fmt.Sprintf("Client %d", rec.Row)
		}
		address := rec.Address
		if address == "" {
			address = rec.FormattedAddress
		}
		out = append(out, marker{
			Lat:      rec.Geo.Lat,
			Lon:      rec.Geo.Lon,
			Name:     name,
			Status:   c.opts.Scale.Label(rec.Status),
			Address:  address,
			PlusCode: rec.PlusCode,
			Region:   rec.RegionID,
			Color:    color,
		})
	}
	return out
}

// viewport centers the map on the regions, or on the markers when there are
// no regions.
func viewport(features []domain.GeoFeature, markers []marker) (center, [][2]float64) {
	var b orb.Bound
	found := false
	add := func(next orb.Bound) {
		if !found {
			b, found = next, true
			return
		}
		b = b.Union(next)
	}

	for _, f := range features {
		add(f.Geometry.Bound())
	}
	if len(features) == 0 {
		for _, m := range markers {
			add(orb.Point{m.Lon, m.Lat}.Bound())
		}
	}
	if !found {
		return center{}, nil
	}

	c := b.Center()
	return center{Lat: c.Lat(), Lon: c.Lon()}, [][2]float64{
		{b.Min.Lat(), b.Min.Lon()},
		{b.Max.Lat(), b.Max.Lon()},
	}
}
