package location

import (
	"context"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geo"

	"github.com/i474232898/weather-fetch-pipeline/internal/geocache"
)

// Cache is the subset of the geocode cache the resolver uses.
type Cache interface {
	GetForward(query string) (geocache.ForwardEntry, bool)
	PutForward(query string, entry geocache.ForwardEntry)
	GetReverse(lat, lon float64) (geocache.ReverseEntry, bool)
	PutReverse(lat, lon float64, entry geocache.ReverseEntry)
}

// Resolution is the outcome of resolving a Preference. Point is only meaningful when
// Resolve reports success; DisplayName may be set either way.
type Resolution struct {
	Point       orb.Point
	DisplayName string
}

// Resolver turns a Preference into coordinates and a place name, consulting the cache
// before the geocoder. It never returns errors: failed lookups degrade to whatever was
// learned so far.
type Resolver struct {
	cache    Cache
	geocoder Geocoder
	device   DeviceLocator
}

func NewResolver(cache Cache, geocoder Geocoder, device DeviceLocator) *Resolver {
	return &Resolver{cache: cache, geocoder: geocoder, device: device}
}

// Resolve reports false when no coordinates could be found.
func (r *Resolver) Resolve(ctx context.Context, pref Preference) (Resolution, bool) {
	if pref.UseCurrentLocation {
		return r.resolveDevice(ctx)
	}
	return r.resolveManual(ctx, pref.ManualLocationName)
}

func (r *Resolver) resolveDevice(ctx context.Context) (Resolution, bool) {
	if r.device == nil {
		log(ctx).Warn("no device locator configured")
		return Resolution{}, false
	}
	readings, err := r.device.LastKnown(ctx)
	if err != nil {
		log(ctx).Warn("device location unavailable", "error", err)
		return Resolution{}, false
	}
	best, ok := BestReading(readings)
	if !ok {
		log(ctx).Warn("device reported no location")
		return Resolution{}, false
	}
	if len(readings) > 1 {
		log(ctx).Debug("picked most precise device reading",
			"readings", len(readings),
			"accuracy", best.Accuracy,
			"spread_m", readingSpread(readings))
	}

	res := Resolution{Point: best.Point}
	lat, lon := best.Point.Lat(), best.Point.Lon()
	if e, ok := r.cache.GetReverse(lat, lon); ok {
		log(ctx).Debug("reverse geocode cache hit", "name", e.DisplayName)
		res.DisplayName = e.DisplayName
		return res, true
	}

	place, err := r.geocoder.Reverse(ctx, lat, lon)
	if err != nil {
		log(ctx).Warn("reverse geocoding failed", "geocoder", r.geocoder.Name(), "error", err)
		return res, true
	}
	res.DisplayName = place.DisplayName
	if place.DisplayName != "" {
		r.cache.PutReverse(lat, lon, geocache.ReverseEntry{DisplayName: place.DisplayName})
	}
	return res, true
}

func (r *Resolver) resolveManual(ctx context.Context, name string) (Resolution, bool) {
	name = strings.TrimSpace(name)
	if name == "" {
		log(ctx).Warn("manual location is blank")
		return Resolution{}, false
	}

	if e, ok := r.cache.GetForward(name); ok {
		log(ctx).Debug("forward geocode cache hit", "query", name, "name", e.DisplayName)
		return Resolution{Point: e.Point, DisplayName: e.DisplayName}, true
	}

	place, err := r.geocoder.Forward(ctx, name)
	if err != nil {
		log(ctx).Warn("forward geocoding failed", "geocoder", r.geocoder.Name(), "query", name, "error", err)
		return Resolution{DisplayName: name}, false
	}
	if place.DisplayName == "" {
		place.DisplayName = name
	}
	r.cache.PutForward(name, geocache.ForwardEntry{Point: place.Point, DisplayName: place.DisplayName})
	return Resolution{Point: place.Point, DisplayName: place.DisplayName}, true
}

// readingSpread is the largest distance in meters between any reading and the first one.
func readingSpread(readings []Reading) float64 {
	var spread float64
	for _, rd := range readings[1:] {
		if d := geo.Distance(readings[0].Point, rd.Point); d > spread {
			spread = d
		}
	}
	return spread
}
