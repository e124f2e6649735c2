package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	sharedcfg "github.com/couchcryptid/storm-data-shared/config"

	"github.com/couchcryptid/region-choropleth/internal/domain"
)

// DefaultTiles is the OpenStreetMap raster tile template.
const DefaultTiles = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"

// Config holds all run settings, populated from environment variables.
// Command-line flags overlay the path fields.
type Config struct {
	BoundariesPath string
	ClientsPath    string
	GeoJSONOut     string
	HTMLOut        string
	SummaryCSVOut  string // empty disables the summary export

	AxisOrder      domain.AxisOrder
	GeometryPolicy domain.Policy
	DataPolicy     domain.Policy
	StatusScale    domain.StatusScale

	ClientRegionColumn string
	ClientStatusColumn string

	MapTitle string
	MapTiles string
	MapZoom  int

	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration

	// Mapbox geocoding configuration.
	MapboxToken          string
	MapboxEnabled        bool
	MapboxTimeout        time.Duration
	MapboxCacheSize      int
	GeocodeCountry       string
	GeocodeAddressSuffix string

	// Optional aggregate publishing; disabled when KafkaBrokers is empty.
	KafkaBrokers []string
	KafkaTopic   string

	// Optional batch-job metrics export. PushgatewayInstance is the stable
	// grouping label for pushed metrics; each push replaces the previous run's.
	PushgatewayURL      string
	PushgatewayInstance string
	MetricsTextfile     string
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	shutdownTimeout, err := sharedcfg.ParseShutdownTimeout()
	if err != nil {
		return nil, err
	}

	mapboxTimeoutStr := sharedcfg.EnvOrDefault("MAPBOX_TIMEOUT", "5s")
	mapboxTimeout, err2 := time.ParseDuration(mapboxTimeoutStr)
	if err2 != nil || mapboxTimeout <= 0 {
		return nil, errors.New("invalid MAPBOX_TIMEOUT")
	}

	axis, err := domain.ParseAxisOrder(sharedcfg.EnvOrDefault("AXIS_ORDER", "lonlat"))
	if err != nil {
		return nil, fmt.Errorf("invalid AXIS_ORDER: %w", err)
	}
	geometryPolicy, err := domain.ParsePolicy(sharedcfg.EnvOrDefault("GEOMETRY_POLICY", "skip"))
	if err != nil {
		return nil, fmt.Errorf("invalid GEOMETRY_POLICY: %w", err)
	}
	dataPolicy, err := domain.ParsePolicy(sharedcfg.EnvOrDefault("DATA_POLICY", "skip"))
	if err != nil {
		return nil, fmt.Errorf("invalid DATA_POLICY: %w", err)
	}

	numeric, err := parseBool("STATUS_NUMERIC", true)
	if err != nil {
		return nil, err
	}
	scale, err := domain.ParseStatusScale(sharedcfg.EnvOrDefault("STATUS_SCALE", domain.DefaultScaleLabels), numeric)
	if err != nil {
		return nil, fmt.Errorf("invalid STATUS_SCALE: %w", err)
	}

	zoom, err := strconv.Atoi(sharedcfg.EnvOrDefault("MAP_ZOOM", "10"))
	if err != nil || zoom < 0 || zoom > 19 {
		return nil, errors.New("invalid MAP_ZOOM: must be an integer in [0, 19]")
	}

	mapboxCacheSize := parseMapboxCacheSize()

	mapboxToken := os.Getenv("MAPBOX_TOKEN")
	mapboxEnabled := mapboxToken != ""
	if v := os.Getenv("MAPBOX_ENABLED"); v != "" {
		mapboxEnabled = v == "true"
	}

	cfg := &Config{
		BoundariesPath: sharedcfg.EnvOrDefault("BOUNDARIES_PATH", "customjson.json"),
		ClientsPath:    sharedcfg.EnvOrDefault("CLIENTS_PATH", "battle_ground.csv"),
		GeoJSONOut:     sharedcfg.EnvOrDefault("GEOJSON_OUT", "uk_constituencies_local.geojson"),
		HTMLOut:        sharedcfg.EnvOrDefault("HTML_OUT", "interactive_choropleth.html"),
		SummaryCSVOut:  os.Getenv("SUMMARY_CSV_OUT"),

		AxisOrder:      axis,
		GeometryPolicy: geometryPolicy,
		DataPolicy:     dataPolicy,
		StatusScale:    scale,

		ClientRegionColumn: os.Getenv("CLIENT_REGION_COLUMN"),
		ClientStatusColumn: sharedcfg.EnvOrDefault("CLIENT_STATUS_COLUMN", "status"),

		MapTitle: sharedcfg.EnvOrDefault("MAP_TITLE", "Estate Agent Relations"),
		MapTiles: sharedcfg.EnvOrDefault("MAP_TILES", DefaultTiles),
		MapZoom:  zoom,

		LogLevel:        sharedcfg.EnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:       sharedcfg.EnvOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,

		MapboxToken:          mapboxToken,
		MapboxEnabled:        mapboxEnabled,
		MapboxTimeout:        mapboxTimeout,
		MapboxCacheSize:      mapboxCacheSize,
		GeocodeCountry:       os.Getenv("GEOCODE_COUNTRY"),
		GeocodeAddressSuffix: os.Getenv("GEOCODE_ADDRESS_SUFFIX"),

		KafkaBrokers: sharedcfg.ParseBrokers(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   sharedcfg.EnvOrDefault("KAFKA_TOPIC", "region-aggregates"),

		PushgatewayURL:      os.Getenv("PUSHGATEWAY_URL"),
		PushgatewayInstance: sharedcfg.EnvOrDefault("PUSHGATEWAY_INSTANCE", hostname()),
		MetricsTextfile:     os.Getenv("METRICS_TEXTFILE"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func hostname() string {
	if h, err := os.Hostname(); err == nil && h != "" {
		return h
	}
	return "localhost"
}

// Validate checks invariants that flag overrides can also break.
func (c *Config) Validate() error {
	if c.BoundariesPath == "" {
		return errors.New("BOUNDARIES_PATH is required")
	}
	if c.ClientsPath == "" {
		return errors.New("CLIENTS_PATH is required")
	}
	if c.GeoJSONOut == "" {
		return errors.New("GEOJSON_OUT is required")
	}
	if c.HTMLOut == "" {
		return errors.New("HTML_OUT is required")
	}
	if c.ClientStatusColumn == "" {
		return errors.New("CLIENT_STATUS_COLUMN must not be empty")
	}
	if len(c.KafkaBrokers) > 0 && c.KafkaTopic == "" {
		return errors.New("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}
	if c.MapboxEnabled && c.MapboxToken == "" {
		return errors.New("MAPBOX_ENABLED is true but MAPBOX_TOKEN is not set")
	}
	return nil
}

func parseMapboxCacheSize() int {
	if s := os.Getenv("MAPBOX_CACHE_SIZE"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	return 1000
}

func parseBool(key string, fallback bool) (bool, error) {
	s := os.Getenv(key)
	if s == "" {
		return fallback, nil
	}
	v, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}
