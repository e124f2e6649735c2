// Command choropleth converts a custom boundary document to GeoJSON, joins it
// with client status records and renders a standalone HTML choropleth.
//
// Usage:
//
//	choropleth [-boundaries P] [-clients P] [-geojson-out P] [-html-out P]
//	  [-summary-out P] [-axis-order lonlat|latlon] [-strict] [-serve ADDR]
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/multierr"

	"github.com/couchcryptid/region-choropleth/internal/adapter/htmlmap"
	"github.com/couchcryptid/region-choropleth/internal/adapter/httpadapter"
	kafkaadapter "github.com/couchcryptid/region-choropleth/internal/adapter/kafka"
	"github.com/couchcryptid/region-choropleth/internal/adapter/mapbox"
	"github.com/couchcryptid/region-choropleth/internal/config"
	"github.com/couchcryptid/region-choropleth/internal/domain"
	"github.com/couchcryptid/region-choropleth/internal/observability"
	"github.com/couchcryptid/region-choropleth/internal/pipeline"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	serveAddr, err := applyFlags(cfg, flag.CommandLine, os.Args[1:])
	if err != nil {
		slog.Error("invalid arguments", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg)
	metrics := observability.NewMetrics()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, serveAddr, logger, metrics); err != nil {
		logger.Error("choropleth failed", "error", err)
		os.Exit(1)
	}
}

// applyFlags overlays command-line flags on cfg and validates the result.
// It returns the preview server address, empty when -serve is not given.
func applyFlags(cfg *config.Config, fs *flag.FlagSet, args []string) (string, error) {
	fs.StringVar(&cfg.BoundariesPath, "boundaries", cfg.BoundariesPath, "custom boundary JSON document")
	fs.StringVar(&cfg.ClientsPath, "clients", cfg.ClientsPath, "client status CSV")
	fs.StringVar(&cfg.GeoJSONOut, "geojson-out", cfg.GeoJSONOut, "GeoJSON output path")
	fs.StringVar(&cfg.HTMLOut, "html-out", cfg.HTMLOut, "HTML map output path")
	fs.StringVar(&cfg.SummaryCSVOut, "summary-out", cfg.SummaryCSVOut, "per-region summary CSV path (empty disables)")
	axis := fs.String("axis-order", cfg.AxisOrder.String(), "coordinate order of the boundary document: lonlat or latlon")
	strict := fs.Bool("strict", false, "fail on the first malformed region or record")
	serve := fs.String("serve", "", "serve the rendered map on this address after the run, e.g. :8080")

	if err := fs.Parse(args); err != nil {
		return "", err
	}

	order, err := domain.ParseAxisOrder(*axis)
	if err != nil {
		return "", err
	}
	cfg.AxisOrder = order
	if *strict {
		cfg.GeometryPolicy = domain.FailFast
		cfg.DataPolicy = domain.FailFast
	}

	if err := cfg.Validate(); err != nil {
		return "", err
	}
	return *serve, nil
}

func run(ctx context.Context, cfg *config.Config, serveAddr string, logger *slog.Logger, metrics *observability.Metrics) (err error) {
	// Initialize geocoder (feature-flagged via MAPBOX_ENABLED / MAPBOX_TOKEN).
	var geocoder domain.Geocoder
	if cfg.MapboxEnabled {
		client := mapbox.NewClient(cfg.MapboxToken, cfg.MapboxTimeout, cfg.GeocodeCountry, metrics, logger)
		geocoder = mapbox.NewCachedGeocoder(client, cfg.MapboxCacheSize, metrics)
		metrics.GeocodeEnabled.Set(1)
		logger.Info("mapbox geocoding enabled", "cache_size", cfg.MapboxCacheSize, "timeout", cfg.MapboxTimeout)
	} else {
		logger.Info("mapbox geocoding disabled")
	}

	var publisher pipeline.AggregatePublisher
	if len(cfg.KafkaBrokers) > 0 {
		kp := kafkaadapter.NewPublisher(cfg, logger)
		defer func() {
			if closeErr := kp.Close(); closeErr != nil {
				err = multierr.Append(err, closeErr)
			}
		}()
		publisher = kp
		logger.Info("aggregate publishing enabled", "topic", cfg.KafkaTopic)
	}

	composer, err := htmlmap.NewComposer(htmlmap.Options{
		Title: cfg.MapTitle,
		Tiles: cfg.MapTiles,
		Zoom:  cfg.MapZoom,
		Scale: cfg.StatusScale,
	})
	if err != nil {
		return err
	}

	p := pipeline.New(pipeline.OptionsFromConfig(cfg), geocoder, composer, publisher, logger, metrics)

	report, runErr := p.Run(ctx)

	if exportErr := observability.Export(ctx, metrics.Gatherer, cfg.PushgatewayURL, cfg.PushgatewayInstance, cfg.MetricsTextfile); exportErr != nil {
		logger.Warn("metrics export failed", "run_id", report.RunID, "error", exportErr)
	}

	if runErr != nil {
		return runErr
	}
	if serveAddr == "" {
		return nil
	}
	return serve(ctx, cfg, serveAddr, p, metrics, logger)
}

// serve exposes the last run's artifacts until the context is cancelled.
func serve(ctx context.Context, cfg *config.Config, addr string, p *pipeline.Pipeline, metrics *observability.Metrics, logger *slog.Logger) error {
	srv := httpadapter.NewServer(addr, p, metrics.Gatherer, logger)

	errCh := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
		return err
	}

	logger.Info("shutdown complete")
	return nil
}
