// Command genmock writes a deterministic grid of square regions as a custom
// boundary document, plus a client CSV spread across those regions, for demos
// and tests.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -boundaries-out data/mock/customjson.json \
//	  -clients-out data/mock/battle_ground.csv \
//	  -rows 3 -cols 4 -clients-per-region 5
package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/couchcryptid/region-choropleth/internal/adapter/files"
	"github.com/couchcryptid/region-choropleth/internal/mockdata"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	grid := mockdata.DefaultGrid

	boundariesOut := flag.String("boundaries-out", "", "output path for the boundary document")
	clientsOut := flag.String("clients-out", "", "output path for the client CSV")
	flag.IntVar(&grid.Rows, "rows", grid.Rows, "grid rows")
	flag.IntVar(&grid.Cols, "cols", grid.Cols, "grid columns")
	flag.Float64Var(&grid.CellSize, "cell-size", grid.CellSize, "cell edge in degrees")
	flag.Float64Var(&grid.OriginLon, "origin-lon", grid.OriginLon, "south-west corner longitude")
	flag.Float64Var(&grid.OriginLat, "origin-lat", grid.OriginLat, "south-west corner latitude")
	flag.IntVar(&grid.ClientsPerRegion, "clients-per-region", grid.ClientsPerRegion, "clients generated per region")
	flag.Uint64Var(&grid.Seed, "seed", grid.Seed, "random seed for statuses and positions")
	flag.Parse()

	if *boundariesOut == "" || *clientsOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flags: -boundaries-out, -clients-out")
	}
	if grid.Rows <= 0 || grid.Cols <= 0 || grid.CellSize <= 0 || grid.ClientsPerRegion < 0 {
		return fmt.Errorf("rows, cols and cell-size must be positive")
	}

	doc, err := mockdata.Boundaries(grid)
	if err != nil {
		return err
	}
	clients, err := mockdata.Clients(grid)
	if err != nil {
		return err
	}

	if err := files.WriteAtomic(*boundariesOut, doc); err != nil {
		return fmt.Errorf("writing boundaries: %w", err)
	}
	log.Printf("wrote %d regions: %s", grid.Rows*grid.Cols, *boundariesOut)

	if err := files.WriteAtomic(*clientsOut, clients); err != nil {
		return fmt.Errorf("writing clients: %w", err)
	}
	log.Printf("wrote %d clients: %s", grid.Rows*grid.Cols*grid.ClientsPerRegion, *clientsOut)
	return nil
}
