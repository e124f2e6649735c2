package domain

import "context"

// GeocodingResult contains location data returned by a geocoding provider.
type GeocodingResult struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	Confidence       float64 // 0.0 to 1.0 provider confidence score
}

// Geocoder resolves client addresses to coordinates.
type Geocoder interface {
	// ForwardGeocode converts a free-form address to coordinates. A zero
	// result with a nil error means the provider found nothing.
	ForwardGeocode(ctx context.Context, address string) (GeocodingResult, error)
}
