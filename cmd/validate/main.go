// Command validate dry-runs the choropleth pipeline over a boundary document
// and a client CSV. It converts, parses, joins and renders everything in
// memory, prints a PASS/FAIL line per phase, and writes no outputs.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -boundaries data/mock/customjson.json \
//	  -clients data/mock/battle_ground.csv
package main

import (
	"bytes"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/region-choropleth/internal/adapter/csvfile"
	"github.com/couchcryptid/region-choropleth/internal/adapter/files"
	"github.com/couchcryptid/region-choropleth/internal/adapter/htmlmap"
	"github.com/couchcryptid/region-choropleth/internal/config"
	"github.com/couchcryptid/region-choropleth/internal/domain"
	"github.com/couchcryptid/region-choropleth/internal/pipeline"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: load config: %v\n", err)
		os.Exit(1)
	}

	flag.StringVar(&cfg.BoundariesPath, "boundaries", cfg.BoundariesPath, "custom boundary JSON document")
	flag.StringVar(&cfg.ClientsPath, "clients", cfg.ClientsPath, "client status CSV")
	axis := flag.String("axis-order", cfg.AxisOrder.String(), "coordinate order of the boundary document: lonlat or latlon")
	flag.Parse()

	order, err := domain.ParseAxisOrder(*axis)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		os.Exit(1)
	}
	cfg.AxisOrder = order

	if code := run(os.Stdout, cfg); code != 0 {
		os.Exit(code)
	}
}

// state carries results between phases.
type state struct {
	features []domain.GeoFeature
	records  []domain.ClientRecord
	aggs     domain.RegionAggregates
}

func run(out io.Writer, cfg *config.Config) int {
	opts := pipeline.OptionsFromConfig(cfg)

	fmt.Fprintln(out, "=== Choropleth Input Validation ===")
	fmt.Fprintln(out)

	doc, err := files.Read(opts.BoundariesPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}
	clientCSV, err := files.Read(opts.ClientsPath)
	if err != nil {
		fmt.Fprintf(out, "FATAL: %v\n", err)
		return 1
	}

	var st state
	phases := []*phase{
		validateBoundaries(&st, doc, opts),
		validateClients(&st, clientCSV, opts),
		validateJoin(&st, opts),
		validateRender(&st, cfg),
	}

	fmt.Fprintln(out)
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Fprintf(out, "  %-42s %s\n", p.name, status)
	}

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Regions: %d converted, %d with data; Records: %d\n",
		len(st.features), len(st.aggs), len(st.records))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Fprintf(out, "\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Fprintf(out, "  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Fprintln(out, "\nAll validations passed.")
		return 0
	}
	fmt.Fprintln(out, "\nValidation FAILED.")
	return 1
}

// ── Phase 1: Boundaries ──
// Every region must convert; skipped regions count as failures here.

func validateBoundaries(st *state, doc []byte, opts pipeline.Options) *phase {
	p := &phase{name: "Phase 1: Boundary conversion"}

	conv, err := domain.Convert(doc, domain.ConvertOptions{AxisOrder: opts.Convert.AxisOrder, Policy: domain.SkipAndWarn})
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, skip := range conv.Skipped {
		p.errorf("%v", skip)
	}
	if len(conv.Features) == 0 {
		p.errorf("no regions in %s", opts.BoundariesPath)
	}
	st.features = conv.Features
	return p
}

// ── Phase 2: Clients ──

func validateClients(st *state, data []byte, opts pipeline.Options) *phase {
	p := &phase{name: "Phase 2: Client records"}

	clients, err := csvfile.ParseClients(bytes.NewReader(data), opts.Columns)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, inv := range clients.Invalid {
		p.errorf("%v", inv)
	}
	if len(clients.Records) == 0 {
		p.errorf("no client records in %s", opts.ClientsPath)
	}

	// Coordinates from the file get plus codes; no lookups in a dry run.
	records := make([]domain.ClientRecord, 0, len(clients.Records))
	for _, rec := range clients.Records {
		if rec.HasCoords {
			rec.GeoSource = "original"
		}
		records = append(records, rec)
	}
	st.records, _ = domain.AssignRegions(records, domain.NewRegionIndex(st.features))
	return p
}

// ── Phase 3: Join ──
// Every record must map to a known region with a mappable status.

func validateJoin(st *state, opts pipeline.Options) *phase {
	p := &phase{name: "Phase 3: Region join and aggregation"}

	agg, err := domain.NewAggregator(opts.Scale, domain.SkipAndWarn).Aggregate(st.records)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	for _, skip := range agg.Skipped {
		var derr *domain.DataError
		if errors.As(skip, &derr) && errors.Is(derr, domain.ErrMissingRegion) {
			p.errorf("row %d: no region identifier and no containing region", derr.Row)
			continue
		}
		p.errorf("%v", skip)
	}

	known := make(map[string]bool, len(st.features))
	for _, f := range st.features {
		known[f.RegionID] = true
	}
	for _, id := range agg.Aggregates.SortedIDs() {
		if !known[id] {
			p.errorf("region %q has client records but no boundary", id)
		}
	}
	st.aggs = agg.Aggregates
	return p
}

// ── Phase 4: Render ──
// GeoJSON must be reproducible and the map must render.

func validateRender(st *state, cfg *config.Config) *phase {
	p := &phase{name: "Phase 4: Output rendering (dry run)"}

	first, err := domain.EncodeFeatureCollection(st.features)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	second, err := domain.EncodeFeatureCollection(st.features)
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if !bytes.Equal(first, second) {
		p.errorf("GeoJSON output is not reproducible")
	}

	composer, err := htmlmap.NewComposer(htmlmap.Options{
		Title: cfg.MapTitle,
		Tiles: cfg.MapTiles,
		Zoom:  cfg.MapZoom,
		Scale: cfg.StatusScale,
	})
	if err != nil {
		p.errorf("%v", err)
		return p
	}
	if _, err := composer.Render(htmlmap.Input{
		Features:    st.features,
		Aggregates:  st.aggs,
		Clients:     st.records,
		GeneratedAt: domain.Now(),
	}); err != nil {
		p.errorf("render map: %v", err)
	}
	return p
}
