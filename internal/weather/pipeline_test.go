package weather_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-fetch-pipeline/internal/geocache"
	"github.com/i474232898/weather-fetch-pipeline/internal/location"
	"github.com/i474232898/weather-fetch-pipeline/internal/store"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather/providers"
)

const bodenSearch = `[{"lat":"65.8251","lon":"21.6887","display_name":"Boden, Norrbotten, Sweden",
	"address":{"town":"Boden","country_code":"se"}}]`

type pipeline struct {
	service *weather.Service
	bridge  *geocache.Bridge
}

func newPipeline(st store.Store, geocoderURL, forecastURL string, client *http.Client) pipeline {
	bridge := geocache.NewBridge(geocache.New(geocache.Options{}), st)
	geo := location.NewNominatimGeocoder(client, geocoderURL, "en", 100)
	var device *location.StaticLocator // no readings
	resolver := location.NewResolver(bridge.Gateway(), geo, device)
	forecast := providers.NewOpenMeteoProvider(
		providers.HTTPClientConfig{Client: client, Retry: providers.RetryConfig{MaxRetries: 2}}, forecastURL)
	svc := weather.NewService(resolver, forecast, bridge, location.NewStorePreferences(st), st,
		weather.Options{ProviderName: "simulated"})
	return pipeline{service: svc, bridge: bridge}
}

func TestPipeline_FallbackThenCachedRealFetch(t *testing.T) {
	ctx := context.Background()

	var geocodes atomic.Int32
	geoSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		geocodes.Add(1)
		assert.Equal(t, "/search", r.URL.Path)
		w.Write([]byte(bodenSearch))
	}))
	defer geoSrv.Close()

	var forecastAttempts atomic.Int32
	var forecastUp atomic.Bool
	forecastSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		forecastAttempts.Add(1)
		if !forecastUp.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"current":{"temperature_2m":-1.6,"precipitation_probability":80}}`))
	}))
	defer forecastSrv.Close()

	st := store.NewMemoryStore()
	require.NoError(t, location.NewStorePreferences(st).Save(ctx, location.Preference{ManualLocationName: "Boden"}))

	first := newPipeline(st, geoSrv.URL, forecastSrv.URL, forecastSrv.Client())
	fromNetwork, err := first.service.FetchAndSave(ctx)
	require.NoError(t, err)
	assert.False(t, fromNetwork)
	assert.Equal(t, int32(3), forecastAttempts.Load(), "one attempt plus two retries")

	snap := first.service.Latest()
	assert.True(t, snap.IsLoaded)
	assert.Equal(t, 5, snap.TemperatureC)
	assert.Equal(t, 50, snap.PrecipitationChance)
	assert.Equal(t, "Boden, SE", snap.LocationName)
	assert.Equal(t, "simulated", snap.Provider)

	blob, err := st.Get(ctx, geocache.StoreKeyForward)
	require.NoError(t, err)
	assert.True(t, strings.Contains(blob, `"key":"boden"`), blob)

	// A restarted process resolves from the persisted cache without geocoding again.
	forecastUp.Store(true)
	second := newPipeline(st, geoSrv.URL, forecastSrv.URL, forecastSrv.Client())
	require.NoError(t, second.service.Restore(ctx))
	assert.Equal(t, snap, second.service.Latest())

	fromNetwork, err = second.service.FetchAndSave(ctx)
	require.NoError(t, err)
	assert.True(t, fromNetwork)
	assert.Equal(t, int32(1), geocodes.Load())
	assert.True(t, second.bridge.Loaded())

	snap = second.service.Latest()
	assert.Equal(t, -2, snap.TemperatureC)
	assert.Equal(t, 80, snap.PrecipitationChance)
	assert.Equal(t, weather.ProviderReal, snap.Provider)
	assert.Equal(t, weather.ClothingCold, weather.Advise(snap.TemperatureC, snap.PrecipitationChance).Category)
}

func TestPipeline_CurrentLocationWithoutReadings(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	require.NoError(t, location.NewStorePreferences(st).Save(ctx, location.Preference{UseCurrentLocation: true}))

	p := newPipeline(st, "http://127.0.0.1:1", "http://127.0.0.1:1", http.DefaultClient)
	fromNetwork, err := p.service.FetchAndSave(ctx)
	require.NoError(t, err)
	assert.False(t, fromNetwork)

	snap := p.service.Latest()
	assert.Equal(t, weather.LabelCurrentPlace, snap.LocationName)
	assert.GreaterOrEqual(t, snap.TemperatureC, -5)
	assert.LessOrEqual(t, snap.TemperatureC, 25)
	assert.GreaterOrEqual(t, snap.PrecipitationChance, 0)
	assert.LessOrEqual(t, snap.PrecipitationChance, 50)
}
