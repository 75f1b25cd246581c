package location

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/paulmach/orb"

	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
)

var googleKeyOnce sync.Once

// GoogleGeocoder uses the Google Maps Geocoding API through kelvins/geocoder.
// The library holds its API key globally, so the first key configured wins. It also
// uses its own HTTP client, so each call is bounded by timeout here instead.
type GoogleGeocoder struct {
	timeout time.Duration
}

func NewGoogleGeocoder(apiKey string, timeout time.Duration) *GoogleGeocoder {
	googleKeyOnce.Do(func() {
		geocoder.ApiKey = apiKey
	})
	return &GoogleGeocoder{timeout: timeout}
}

func (g *GoogleGeocoder) Name() string {
	return "google"
}

// Forward geocodes query, then reverse geocodes the hit to build a display name.
func (g *GoogleGeocoder) Forward(ctx context.Context, query string) (Place, error) {
	place, err := runBlocking(ctx, g.timeout, func() (Place, error) {
		loc, err := geocoder.Geocoding(geocoder.Address{City: query})
		if err != nil {
			return Place{}, err
		}
		if loc.Latitude == 0 && loc.Longitude == 0 {
			return Place{}, ErrNoResult
		}
		place := Place{Point: orb.Point{loc.Longitude, loc.Latitude}, DisplayName: strings.TrimSpace(query)}
		if addrs, err := geocoder.GeocodingReverse(loc); err == nil && len(addrs) > 0 {
			if name := googleDisplayName(addrs[0]); name != "" {
				place.DisplayName = name
			}
		}
		return place, nil
	})
	metrics.GeocodeRequests.WithLabelValues("forward", resultLabel(err)).Inc()
	return place, err
}

func (g *GoogleGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	place, err := runBlocking(ctx, g.timeout, func() (Place, error) {
		addrs, err := geocoder.GeocodingReverse(geocoder.Location{Latitude: lat, Longitude: lon})
		if err != nil {
			return Place{}, err
		}
		if len(addrs) == 0 {
			return Place{}, ErrNoResult
		}
		return Place{Point: orb.Point{lon, lat}, DisplayName: googleDisplayName(addrs[0])}, nil
	})
	metrics.GeocodeRequests.WithLabelValues("reverse", resultLabel(err)).Inc()
	return place, err
}

func googleDisplayName(addr geocoder.Address) string {
	switch {
	case addr.City != "" && addr.Country != "":
		return addr.City + ", " + addr.Country
	case addr.City != "":
		return addr.City
	default:
		return addr.FormattedAddress
	}
}

// runBlocking runs fn, which cannot be cancelled, and stops waiting when ctx is done
// or timeout elapses. An abandoned fn keeps running in the background until it returns.
func runBlocking(ctx context.Context, timeout time.Duration, fn func() (Place, error)) (Place, error) {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	type result struct {
		place Place
		err   error
	}
	done := make(chan result, 1)
	go func() {
		p, err := fn()
		done <- result{p, err}
	}()

	select {
	case <-ctx.Done():
		return Place{}, ctx.Err()
	case r := <-done:
		return r.place, r.err
	}
}
