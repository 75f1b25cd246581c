package httpapi

import (
	"context"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-fetch-pipeline/internal/location"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather"
)

var validate = validator.New()

// WeatherService is the part of weather.Service the API needs.
type WeatherService interface {
	Latest() weather.Snapshot
	FetchAndSave(ctx context.Context) (bool, error)
}

// PreferenceStore reads and updates the stored location preference.
type PreferenceStore interface {
	Preference(ctx context.Context) (location.Preference, error)
	Save(ctx context.Context, pref location.Preference) error
}

type weatherResponse struct {
	Snapshot weather.Snapshot `json:"snapshot"`
	Advice   weather.Advice   `json:"advice"`
}

type refreshResponse struct {
	Real bool `json:"real"`
	weatherResponse
}

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, service WeatherService, prefs PreferenceStore) {
	v1 := app.Group("/api/v1")

	v1.Get("/weather", func(c *fiber.Ctx) error {
		snap := service.Latest()
		if !snap.IsLoaded {
			return fiber.NewError(fiber.StatusNotFound, "no weather data yet")
		}
		return c.JSON(newWeatherResponse(snap))
	})

	v1.Post("/weather/refresh", func(c *fiber.Ctx) error {
		fromNetwork, err := service.FetchAndSave(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusServiceUnavailable, "weather refresh cancelled")
		}
		return c.JSON(refreshResponse{
			Real:            fromNetwork,
			weatherResponse: newWeatherResponse(service.Latest()),
		})
	})

	v1.Get("/location", func(c *fiber.Ctx) error {
		pref, err := prefs.Preference(c.UserContext())
		if err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to read location preference")
		}
		return c.JSON(pref)
	})

	v1.Put("/location", func(c *fiber.Ctx) error {
		var pref location.Preference
		if err := c.BodyParser(&pref); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
		}
		if err := validatePreference(pref); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		pref.ManualLocationName = strings.TrimSpace(pref.ManualLocationName)
		if err := prefs.Save(c.UserContext(), pref); err != nil {
			return fiber.NewError(fiber.StatusInternalServerError, "failed to save location preference")
		}
		return c.JSON(pref)
	})
}

func newWeatherResponse(snap weather.Snapshot) weatherResponse {
	return weatherResponse{
		Snapshot: snap,
		Advice:   weather.Advise(snap.TemperatureC, snap.PrecipitationChance),
	}
}

func validatePreference(pref location.Preference) error {
	if err := validate.Struct(pref); err != nil {
		return err
	}
	if !pref.UseCurrentLocation && strings.TrimSpace(pref.ManualLocationName) == "" {
		return errors.New("manualLocationName is required when useCurrentLocation is false")
	}
	return nil
}
