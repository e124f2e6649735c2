package domain

import (
	"context"
	"log/slog"
	"strings"

	olc "github.com/google/open-location-code/go"
)

// plusCodeLength is the 10-digit code, roughly a 14m square.
const plusCodeLength = 10

// EnrichWithGeocoding resolves coordinates for a client record that has an
// address but no coordinates. If geocoder is nil or geocoding fails, the
// record is returned with GeoSource set accordingly (graceful degradation).
// suffix is appended to the address before lookup, e.g. ", UK".
func EnrichWithGeocoding(ctx context.Context, rec ClientRecord, geocoder Geocoder, suffix string, logger *slog.Logger) ClientRecord {
	if rec.HasCoords {
		rec.GeoSource = "original"
		return withPlusCode(rec)
	}
	if geocoder == nil {
		return rec
	}

	address := strings.TrimSpace(rec.Address)
	if address == "" {
		return rec
	}

	result, err := geocoder.ForwardGeocode(ctx, address+suffix)
	if err != nil {
		logger.Warn("forward geocoding failed",
			"row", rec.Row,
			"address", address,
			"error", err,
		)
		rec.GeoSource = "failed"
		return rec
	}
	if result.Lat == 0 && result.Lon == 0 {
		logger.Debug("no geocoding match", "row", rec.Row, "address", address)
		rec.GeoSource = "unmatched"
		return rec
	}

	rec.Geo = Geo{Lat: result.Lat, Lon: result.Lon}
	rec.HasCoords = true
	rec.GeoSource = "forward"
	rec.FormattedAddress = result.FormattedAddress
	rec.GeoConfidence = result.Confidence
	return withPlusCode(rec)
}

func withPlusCode(rec ClientRecord) ClientRecord {
	if rec.PlusCode == "" {
		rec.PlusCode = olc.Encode(rec.Geo.Lat, rec.Geo.Lon, plusCodeLength)
	}
	return rec
}
