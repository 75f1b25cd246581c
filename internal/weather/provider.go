package weather

import (
	"context"

	"github.com/i474232898/weather-fetch-pipeline/internal/location"
)

// ForecastProvider fetches current conditions for a coordinate. Implementations own
// their retry policy.
type ForecastProvider interface {
	Name() string
	Current(ctx context.Context, lat, lon float64) (Conditions, error)
}

// LocationResolver turns a preference into coordinates and a place name.
type LocationResolver interface {
	Resolve(ctx context.Context, pref location.Preference) (location.Resolution, bool)
}

// CachePersister loads the geocode cache once and writes it back when it changed.
type CachePersister interface {
	EnsureLoaded(ctx context.Context)
	FlushIfDirty(ctx context.Context) bool
}

// Preferences supplies the caller's current location preference.
type Preferences interface {
	Preference(ctx context.Context) (location.Preference, error)
}
