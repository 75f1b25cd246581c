package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/paulmach/orb"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpapi "github.com/i474232898/weather-fetch-pipeline/internal/api/http"
	"github.com/i474232898/weather-fetch-pipeline/internal/config"
	"github.com/i474232898/weather-fetch-pipeline/internal/geocache"
	"github.com/i474232898/weather-fetch-pipeline/internal/location"
	"github.com/i474232898/weather-fetch-pipeline/internal/scheduler"
	"github.com/i474232898/weather-fetch-pipeline/internal/store"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather/providers"
)

func main() {
	config.InitLogging()

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	settings, closeStore, err := openStore(ctx, cfg)
	if err != nil {
		slog.Error("failed to open settings store", "store", cfg.Store, "error", err)
		os.Exit(1)
	}
	defer closeStore()

	// Shared HTTP client for outbound geocoding and forecast calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Process-wide geocode cache and its persistence.
	cache := geocache.New(geocache.Options{
		Capacity:  cfg.CacheCapacity,
		TTL:       cfg.CacheTTL,
		Precision: cfg.CachePrecision,
	})
	bridge := geocache.NewBridge(cache, settings)

	prefs := location.NewStorePreferences(settings)
	if err := prefs.Seed(ctx, location.Preference{
		UseCurrentLocation: cfg.UseCurrentLocation,
		ManualLocationName: cfg.ManualLocation,
	}); err != nil {
		slog.Warn("failed to seed location preference", "error", err)
	}

	resolver := location.NewResolver(cache, newGeocoder(cfg, httpClient), newDeviceLocator(cfg))

	service := weather.NewService(resolver, newForecastProvider(cfg, httpClient), bridge, prefs, settings,
		weather.Options{ProviderName: cfg.ProviderName})
	if err := service.Restore(ctx); err != nil {
		slog.Debug("no saved weather snapshot", "error", err)
	}

	// Scheduler that periodically fetches and saves weather.
	sched := scheduler.New(cfg.FetchInterval, service)
	if err := sched.Start(); err != nil {
		slog.Error("failed to start scheduler", "error", err)
		os.Exit(1)
	}
	defer sched.Stop()

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-fetch-pipeline",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          2 * time.Minute,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-fetch-pipeline",
		})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	httpapi.RegisterRoutes(app, service, prefs)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			slog.Error("fiber server stopped", "error", err)
		}
	}()
	slog.Info("weather-fetch-pipeline started", "port", cfg.Port, "store", cfg.Store,
		"geocoder", cfg.Geocoder, "forecast", cfg.ForecastProvider)

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		slog.Error("error during shutdown", "error", err)
	}
	bridge.FlushIfDirty(shutdownCtx)
}

func openStore(ctx context.Context, cfg *config.AppConfig) (store.Store, func(), error) {
	switch cfg.Store {
	case "memory":
		return store.NewMemoryStore(), func() {}, nil
	case "postgres":
		pg, err := store.OpenPostgresStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, nil, err
		}
		return pg, pg.Close, nil
	default:
		fs, err := store.OpenFileStore(cfg.StorePath)
		if err != nil {
			return nil, nil, err
		}
		return fs, func() {}, nil
	}
}

func newGeocoder(cfg *config.AppConfig, client *http.Client) location.Geocoder {
	if cfg.Geocoder == "google" {
		return location.NewGoogleGeocoder(cfg.GoogleAPIKey, cfg.HTTPTimeout)
	}
	return location.NewNominatimGeocoder(client, cfg.GeocoderURL, cfg.GeocoderLanguage, cfg.GeocoderRate)
}

func newForecastProvider(cfg *config.AppConfig, client *http.Client) weather.ForecastProvider {
	httpCfg := providers.HTTPClientConfig{
		Client: client,
		Retry: providers.RetryConfig{
			MaxRetries:      cfg.ForecastRetries,
			InitialInterval: cfg.ForecastBackoff,
			MaxInterval:     5 * time.Second,
		},
	}
	switch cfg.ForecastProvider {
	case "openweather":
		return providers.NewOpenWeatherProvider(httpCfg, cfg.OpenWeatherAPIKey)
	case "weatherapi":
		return providers.NewWeatherAPIProvider(httpCfg, cfg.WeatherAPIKey)
	default:
		return providers.NewOpenMeteoProvider(httpCfg, cfg.ForecastURL)
	}
}

// newDeviceLocator returns the configured fixed reading, or none.
func newDeviceLocator(cfg *config.AppConfig) location.DeviceLocator {
	if cfg.DeviceLatitude == nil || cfg.DeviceLongitude == nil {
		return (*location.StaticLocator)(nil)
	}
	return &location.StaticLocator{Reading: location.Reading{
		Point:    orb.Point{*cfg.DeviceLongitude, *cfg.DeviceLatitude},
		Accuracy: cfg.DeviceAccuracy,
	}}
}
