// Package mockdata generates deterministic boundary and client fixtures: a
// grid of square regions and a spread of clients across them.
package mockdata

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Statuses are the labels of the default status scale, best first.
var Statuses = []string{"Stellar", "Good", "Average", "Poor", "None"}

// Grid describes the generated fixture.
type Grid struct {
	Rows, Cols       int
	OriginLon        float64 // south-west corner
	OriginLat        float64
	CellSize         float64 // degrees
	ClientsPerRegion int
	Seed             uint64
}

// DefaultGrid is a 3x4 grid over south-east England.
var DefaultGrid = Grid{
	Rows:             3,
	Cols:             4,
	OriginLon:        -0.5,
	OriginLat:        50.8,
	CellSize:         0.25,
	ClientsPerRegion: 5,
	Seed:             42,
}

// RegionID returns the identifier of the cell at row r, column c.
func RegionID(r, c int) string {
	return fmt.Sprintf("R%02d-%02d", r, c)
}

type feature struct {
	Name     string   `json:"name"`
	ID       string   `json:"id"`
	Geometry geometry `json:"geometry"`
}

type geometry struct {
	Type        string         `json:"type"`
	Coordinates [][][2]float64 `json:"coordinates"`
}

// Boundaries renders the grid as a feature-list boundary document.
func Boundaries(g Grid) ([]byte, error) {
	features := make([]feature, 0, g.Rows*g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			features = append(features, feature{
				Name: fmt.Sprintf("Region %d-%d", r, c),
				ID:   RegionID(r, c),
				Geometry: geometry{
					Type:        "Polygon",
					Coordinates: [][][2]float64{g.cell(r, c)},
				},
			})
		}
	}

	data, err := json.MarshalIndent(map[string]any{"features": features}, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode boundaries: %w", err)
	}
	return append(data, '\n'), nil
}

// cell returns the closed counter-clockwise ring of one grid square.
func (g Grid) cell(r, c int) [][2]float64 {
	w := g.OriginLon + float64(c)*g.CellSize
	s := g.OriginLat + float64(r)*g.CellSize
	e := w + g.CellSize
	n := s + g.CellSize
	return [][2]float64{{w, s}, {e, s}, {e, n}, {w, n}, {w, s}}
}

// Clients renders a client CSV for the grid. Every other client carries
// coordinates inside its cell instead of a region identifier, so region
// assignment by location is exercised too.
func Clients(g Grid) ([]byte, error) {
	rng := rand.New(rand.NewPCG(g.Seed, g.Seed^0x9e3779b97f4a7c15))

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"name", "region", "status", "latitude", "longitude", "address"}); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}

	n := 0
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			for i := 0; i < g.ClientsPerRegion; i++ {
				n++
				row := []string{
					fmt.Sprintf("Agent %03d", n),
					RegionID(r, c),
					Statuses[rng.IntN(len(Statuses))],
					"", "",
					fmt.Sprintf("%d High Street", n),
				}
				if n%2 == 0 {
					// Keep clear of the cell edges.
					lat := g.OriginLat + (float64(r)+0.1+0.8*rng.Float64())*g.CellSize
					lon := g.OriginLon + (float64(c)+0.1+0.8*rng.Float64())*g.CellSize
					row[1] = ""
					row[3] = strconv.FormatFloat(lat, 'f', 6, 64)
					row[4] = strconv.FormatFloat(lon, 'f', 6, 64)
				}
				if err := w.Write(row); err != nil {
					return nil, fmt.Errorf("write row %d: %w", n, err)
				}
			}
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("flush clients: %w", err)
	}
	return buf.Bytes(), nil
}
