package pipeline

import (
	"github.com/couchcryptid/region-choropleth/internal/adapter/csvfile"
	"github.com/couchcryptid/region-choropleth/internal/config"
	"github.com/couchcryptid/region-choropleth/internal/domain"
)

// Options are the per-run inputs, outputs and domain policies.
type Options struct {
	BoundariesPath string
	ClientsPath    string
	GeoJSONOut     string
	HTMLOut        string
	SummaryOut     string

	Convert       domain.ConvertOptions
	DataPolicy    domain.Policy
	Scale         domain.StatusScale
	Columns       csvfile.Options
	AddressSuffix string
}

// OptionsFromConfig maps the loaded configuration onto run options.
func OptionsFromConfig(cfg *config.Config) Options {
	return Options{
		BoundariesPath: cfg.BoundariesPath,
		ClientsPath:    cfg.ClientsPath,
		GeoJSONOut:     cfg.GeoJSONOut,
		HTMLOut:        cfg.HTMLOut,
		SummaryOut:     cfg.SummaryCSVOut,
		Convert: domain.ConvertOptions{
			AxisOrder: cfg.AxisOrder,
			Policy:    cfg.GeometryPolicy,
		},
		DataPolicy: cfg.DataPolicy,
		Scale:      cfg.StatusScale,
		Columns: csvfile.Options{
			RegionColumn: cfg.ClientRegionColumn,
			StatusColumn: cfg.ClientStatusColumn,
		},
		AddressSuffix: cfg.GeocodeAddressSuffix,
	}
}
