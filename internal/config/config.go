package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/alexflint/go-arg"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type AppConfig struct {
	Port     string `arg:"-p,--port,env:PORT" default:"8080"`
	LogLevel string `arg:"--log-level,env:LOG_LEVEL" default:"default" help:"debug, info, warn or error."`

	// HTTPTimeout bounds every outbound geocoding and forecast request.
	HTTPTimeout time.Duration `arg:"--http-timeout,env:HTTP_TIMEOUT" default:"10s" validate:"gt=0"`
	// FetchInterval controls how often the scheduler runs the pipeline.
	FetchInterval time.Duration `arg:"--fetch-interval,env:FETCH_INTERVAL" default:"15m" validate:"gte=1m"`

	CacheCapacity  int           `arg:"--cache-capacity,env:CACHE_CAPACITY" default:"64" validate:"gt=0"`
	CacheTTL       time.Duration `arg:"--cache-ttl,env:CACHE_TTL" default:"168h" validate:"gt=0"`
	CachePrecision int           `arg:"--cache-precision,env:CACHE_PRECISION" default:"4" validate:"gte=1,lte=8"`

	ForecastProvider  string `arg:"--forecast-provider,env:FORECAST_PROVIDER" default:"openmeteo" validate:"oneof=openmeteo openweather weatherapi"`
	OpenWeatherAPIKey string `arg:"--openweather-api-key,env:OPENWEATHER_API_KEY" validate:"required_if=ForecastProvider openweather"`
	WeatherAPIKey     string `arg:"--weatherapi-api-key,env:WEATHERAPI_API_KEY" validate:"required_if=ForecastProvider weatherapi"`

	ForecastURL     string        `arg:"--forecast-url,env:FORECAST_URL" default:"https://api.open-meteo.com/v1/forecast" validate:"url"`
	ForecastRetries int           `arg:"--forecast-retries,env:FORECAST_RETRIES" default:"2" validate:"gte=0"`
	ForecastBackoff time.Duration `arg:"--forecast-backoff,env:FORECAST_BACKOFF" default:"0s" help:"Delay before the first retry, doubled per retry. 0 retries immediately."`

	Geocoder         string  `arg:"--geocoder,env:GEOCODER" default:"nominatim" validate:"oneof=nominatim google"`
	GeocoderURL      string  `arg:"--geocoder-url,env:GEOCODER_URL" default:"https://nominatim.openstreetmap.org" validate:"url"`
	GeocoderLanguage string  `arg:"--geocoder-language,env:GEOCODER_LANGUAGE" default:"en"`
	GeocoderRate     float64 `arg:"--geocoder-rate,env:GEOCODER_RATE" default:"1" help:"Max geocoding requests per second." validate:"gt=0"`
	GoogleAPIKey     string  `arg:"--google-api-key,env:GOOGLE_API_KEY" validate:"required_if=Geocoder google"`

	// ProviderName tags snapshots built from simulated values.
	ProviderName string `arg:"--provider-name,env:PROVIDER_NAME" default:"simulated"`

	Store       string `arg:"--store,env:STORE" default:"file" validate:"oneof=memory file postgres"`
	StorePath   string `arg:"--store-path,env:STORE_PATH" default:"data/settings.yaml"`
	DatabaseURL string `arg:"--database-url,env:DATABASE_URL" validate:"required_if=Store postgres"`

	// Optional fixed device reading for hosts without a location provider.
	DeviceLatitude  *float64 `arg:"--device-latitude,env:DEVICE_LATITUDE" validate:"omitempty,gte=-90,lte=90"`
	DeviceLongitude *float64 `arg:"--device-longitude,env:DEVICE_LONGITUDE" validate:"omitempty,gte=-180,lte=180"`
	DeviceAccuracy  float64  `arg:"--device-accuracy,env:DEVICE_ACCURACY" default:"100"`

	// Seeds for the stored location preference, applied only when none is stored yet.
	UseCurrentLocation bool   `arg:"--use-current-location,env:USE_CURRENT_LOCATION"`
	ManualLocation     string `arg:"--manual-location,env:MANUAL_LOCATION"`
}

// Load reads configuration from flags and environment (after .env) and validates it.
func Load(args []string) (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file loaded", "error", err)
	}

	cfg := &AppConfig{}
	p, err := arg.NewParser(arg.Config{Program: "weather-fetch-pipeline"}, cfg)
	if err != nil {
		return nil, fmt.Errorf("building argument parser: %w", err)
	}
	if err := p.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing configuration: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if (cfg.DeviceLatitude == nil) != (cfg.DeviceLongitude == nil) {
		return nil, fmt.Errorf("invalid configuration: DEVICE_LATITUDE and DEVICE_LONGITUDE must be set together")
	}

	SetLogLevel(cfg.LogLevel)
	return cfg, nil
}
