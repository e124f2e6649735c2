package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/couchcryptid/region-choropleth/internal/adapter/csvfile"
	"github.com/couchcryptid/region-choropleth/internal/adapter/files"
	"github.com/couchcryptid/region-choropleth/internal/adapter/htmlmap"
	"github.com/couchcryptid/region-choropleth/internal/domain"
	"github.com/couchcryptid/region-choropleth/internal/observability"
)

// MapRenderer renders the standalone HTML map.
type MapRenderer interface {
	Render(in htmlmap.Input) ([]byte, error)
}

// AggregatePublisher ships region aggregates to a downstream consumer.
type AggregatePublisher interface {
	Publish(ctx context.Context, runID string, generatedAt time.Time, aggs domain.RegionAggregates) error
}

// Pipeline converts boundaries, aggregates client statuses and writes the
// choropleth outputs. A Pipeline is safe to Run repeatedly; the artifacts
// of the last successful run are kept for the preview server.
type Pipeline struct {
	opts      Options
	geocoder  domain.Geocoder
	renderer  MapRenderer
	publisher AggregatePublisher
	logger    *slog.Logger
	metrics   *observability.Metrics

	ready     atomic.Bool
	artifacts atomic.Pointer[artifacts]
}

type artifacts struct {
	html    []byte
	geojson []byte
}

// New creates a Pipeline. geocoder and publisher may be nil to disable
// address lookup and aggregate publishing.
func New(opts Options, geocoder domain.Geocoder, renderer MapRenderer, publisher AggregatePublisher, logger *slog.Logger, metrics *observability.Metrics) *Pipeline {
	return &Pipeline{
		opts:      opts,
		geocoder:  geocoder,
		renderer:  renderer,
		publisher: publisher,
		logger:    logger,
		metrics:   metrics,
	}
}

// CheckReadiness returns nil once a run has completed successfully.
func (p *Pipeline) CheckReadiness(_ context.Context) error {
	if !p.ready.Load() {
		return errors.New("no run has completed yet")
	}
	return nil
}

// Artifacts returns the HTML and GeoJSON written by the last successful run.
func (p *Pipeline) Artifacts() (html, geojson []byte, ok bool) {
	a := p.artifacts.Load()
	if a == nil {
		return nil, nil, false
	}
	return a.html, a.geojson, true
}

// Result is a fully prepared run: every output rendered in memory, nothing
// written yet.
type Result struct {
	Report   domain.RunReport
	Features []domain.GeoFeature
	Clients  []domain.ClientRecord
	Agg      domain.AggregateResult

	GeoJSON []byte
	HTML    []byte
	Summary []byte // nil when the summary export is off

	regionSkips []error
	recordSkips []error
}

// Run prepares every output, then commits them to disk. Inputs are fully
// parsed and validated before the first write, so a failed run leaves no
// partial outputs behind.
func (p *Pipeline) Run(ctx context.Context) (domain.RunReport, error) {
	start := domain.Now()
	p.metrics.PipelineRunning.Set(1)
	defer p.metrics.PipelineRunning.Set(0)

	res, err := p.Prepare(ctx)
	if err != nil {
		return domain.RunReport{}, err
	}
	logger := p.logger.With("run_id", res.Report.RunID)

	if err := ctx.Err(); err != nil {
		return domain.RunReport{}, fmt.Errorf("run cancelled before writing outputs: %w", err)
	}
	if err := p.commit(res, logger); err != nil {
		return domain.RunReport{}, err
	}

	p.artifacts.Store(&artifacts{html: res.HTML, geojson: res.GeoJSON})
	p.ready.Store(true)

	if p.publisher != nil && len(res.Agg.Aggregates) > 0 {
		if err := p.publisher.Publish(ctx, res.Report.RunID, res.Report.GeneratedAt, res.Agg.Aggregates); err != nil {
			return res.Report, fmt.Errorf("publish aggregates: %w", err)
		}
		p.metrics.AggregatesSent.Add(float64(len(res.Agg.Aggregates)))
	}

	p.reportSkips(logger, res)
	p.metrics.LastSuccess.Set(float64(res.Report.GeneratedAt.Unix()))
	p.metrics.RunDuration.Observe(domain.Now().Sub(start).Seconds())

	logger.Info("run complete",
		"regions", res.Report.RegionsConverted,
		"regions_skipped", res.Report.RegionsSkipped,
		"records", res.Report.RecordsRead,
		"records_skipped", res.Report.RecordsSkipped,
		"geocoded", res.Report.RecordsGeocoded,
		"located", res.Report.RecordsLocated,
		"regions_with_data", res.Report.RegionsWithData,
	)
	return res.Report, nil
}

// Prepare reads and validates both inputs and renders every output in
// memory without touching the output paths.
func (p *Pipeline) Prepare(ctx context.Context) (*Result, error) {
	res := &Result{
		Report: domain.RunReport{
			RunID:       uuid.NewString(),
			GeneratedAt: domain.Now(),
		},
	}
	logger := p.logger.With("run_id", res.Report.RunID)

	if err := p.convert(res, logger); err != nil {
		return nil, err
	}
	if err := p.loadClients(ctx, res, logger); err != nil {
		return nil, err
	}
	if err := p.aggregate(res, logger); err != nil {
		return nil, err
	}
	if err := p.render(res); err != nil {
		return nil, err
	}
	return res, nil
}

func (p *Pipeline) convert(res *Result, logger *slog.Logger) error {
	doc, err := files.Read(p.opts.BoundariesPath)
	if err != nil {
		return err
	}

	conv, err := domain.Convert(doc, p.opts.Convert)
	if err != nil {
		return fmt.Errorf("convert %s: %w", p.opts.BoundariesPath, err)
	}

	for _, skip := range conv.Skipped {
		var gerr *domain.GeometryError
		if errors.As(skip, &gerr) {
			logger.Warn("region skipped", "region_id", gerr.RegionID, "error", gerr.Err)
		} else {
			logger.Warn("region skipped", "error", skip)
		}
	}

	p.metrics.RegionsConverted.Add(float64(len(conv.Features)))
	p.metrics.RegionsSkipped.Add(float64(len(conv.Skipped)))

	res.Features = conv.Features
	res.regionSkips = conv.Skipped
	res.Report.RegionsConverted = len(conv.Features)
	res.Report.RegionsSkipped = len(conv.Skipped)
	logger.Info("boundaries converted", "path", p.opts.BoundariesPath, "regions", len(conv.Features))
	return nil
}

func (p *Pipeline) loadClients(ctx context.Context, res *Result, logger *slog.Logger) error {
	data, err := files.Read(p.opts.ClientsPath)
	if err != nil {
		return err
	}

	clients, err := csvfile.ParseClients(bytes.NewReader(data), p.opts.Columns)
	if err != nil {
		return fmt.Errorf("parse %s: %w", p.opts.ClientsPath, err)
	}
	p.metrics.RecordsRead.Add(float64(len(clients.Records)))
	res.Report.RecordsRead = len(clients.Records)

	for _, inv := range clients.Invalid {
		logger.Warn("client coordinates ignored", "error", inv)
		p.metrics.RecordsSkipped.WithLabelValues("invalid_coords").Inc()
	}

	records := make([]domain.ClientRecord, 0, len(clients.Records))
	for _, rec := range clients.Records {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("geocode clients: %w", err)
		}
		rec = domain.EnrichWithGeocoding(ctx, rec, p.geocoder, p.opts.AddressSuffix, logger)
		if rec.GeoSource == "forward" {
			res.Report.RecordsGeocoded++
		}
		records = append(records, rec)
	}

	records, located := domain.AssignRegions(records, domain.NewRegionIndex(res.Features))
	p.metrics.RecordsLocated.Add(float64(located))
	res.Report.RecordsLocated = located

	res.Clients = records
	logger.Info("clients loaded",
		"path", p.opts.ClientsPath,
		"records", len(records),
		"geocoded", res.Report.RecordsGeocoded,
		"located", located,
	)
	return nil
}

func (p *Pipeline) aggregate(res *Result, logger *slog.Logger) error {
	agg, err := domain.NewAggregator(p.opts.Scale, p.opts.DataPolicy).Aggregate(res.Clients)
	if err != nil {
		return fmt.Errorf("aggregate clients: %w", err)
	}

	for _, skip := range agg.Skipped {
		logger.Warn("client record skipped", "error", skip)
		p.metrics.RecordsSkipped.WithLabelValues(skipReason(skip)).Inc()
	}

	known := make(map[string]bool, len(res.Features))
	for _, f := range res.Features {
		known[f.RegionID] = true
	}
	for _, id := range agg.Aggregates.SortedIDs() {
		if !known[id] {
			logger.Warn("aggregate has no matching region", "region_id", id)
		}
	}

	p.metrics.RegionsWithData.Set(float64(len(agg.Aggregates)))
	res.Agg = agg
	res.recordSkips = agg.Skipped
	res.Report.RecordsSkipped = len(agg.Skipped)
	res.Report.RegionsWithData = len(agg.Aggregates)
	return nil
}

func (p *Pipeline) render(res *Result) error {
	gj, err := domain.EncodeFeatureCollection(res.Features)
	if err != nil {
		return err
	}
	res.GeoJSON = gj

	if p.opts.SummaryOut != "" {
		summary, err := csvfile.EncodeSummary(res.Features, res.Agg.Aggregates)
		if err != nil {
			return err
		}
		res.Summary = summary
	}

	html, err := p.renderer.Render(htmlmap.Input{
		Features:    res.Features,
		Aggregates:  res.Agg.Aggregates,
		Clients:     res.Clients,
		RunID:       res.Report.RunID,
		GeneratedAt: res.Report.GeneratedAt,
	})
	if err != nil {
		return fmt.Errorf("render map: %w", err)
	}
	res.HTML = html
	return nil
}

// commit writes GeoJSON, then the summary, then the HTML map.
func (p *Pipeline) commit(res *Result, logger *slog.Logger) error {
	outputs := []struct {
		kind string
		path string
		data []byte
	}{
		{"geojson", p.opts.GeoJSONOut, res.GeoJSON},
		{"summary", p.opts.SummaryOut, res.Summary},
		{"html", p.opts.HTMLOut, res.HTML},
	}

	for _, out := range outputs {
		if out.path == "" {
			continue
		}
		if err := files.WriteAtomic(out.path, out.data); err != nil {
			return err
		}
		p.metrics.OutputsWritten.WithLabelValues(out.kind).Inc()
		logger.Info("output written", "kind", out.kind, "path", out.path, "bytes", len(out.data))
	}

	res.Report.GeoJSONPath = p.opts.GeoJSONOut
	res.Report.HTMLPath = p.opts.HTMLOut
	res.Report.SummaryPath = p.opts.SummaryOut
	return nil
}

func (p *Pipeline) reportSkips(logger *slog.Logger, res *Result) {
	skips := multierr.Combine(append(append([]error{}, res.regionSkips...), res.recordSkips...)...)
	if skips == nil {
		return
	}
	logger.Warn("run completed with skipped items",
		"regions_skipped", len(res.regionSkips),
		"records_skipped", len(res.recordSkips),
		"errors", skips.Error(),
	)
}

func skipReason(err error) string {
	switch {
	case errors.Is(err, domain.ErrMissingRegion):
		return "missing_region"
	case errors.Is(err, domain.ErrUnmappableStatus):
		return "unmappable_status"
	default:
		return "other"
	}
}
