package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-fetch-pipeline/internal/config"
	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather"
)

// WeatherAPIProvider implements weather.ForecastProvider for WeatherAPI.com. The chance
// of rain comes from today's forecast entry when present.
type WeatherAPIProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewWeatherAPIProvider(cfg HTTPClientConfig, apiKey string) *WeatherAPIProvider {
	cb := newCircuitBreaker("weatherapi", cfg.Retry)

	return &WeatherAPIProvider{
		name:    "weatherapi",
		apiKey:  apiKey,
		baseURL: "https://api.weatherapi.com/v1/forecast.json",
		httpCfg: cfg,
		circuit: cb,
	}
}

func (p *WeatherAPIProvider) Name() string {
	return p.name
}

func (p *WeatherAPIProvider) Current(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	if p.apiKey == "" {
		return weather.Conditions{}, fmt.Errorf("weatherapi api key is not configured")
	}
	if p.httpCfg.Client == nil {
		return weather.Conditions{}, errNoHTTPClient
	}
	return doWithResilience(ctx, p.httpCfg.Retry, p.circuit, func(ctx context.Context) (weather.Conditions, error) {
		c, err := p.fetchOnce(ctx, lat, lon)
		if err != nil {
			metrics.ForecastAttempts.WithLabelValues("error").Inc()
			config.Logger(ctx).Warn("forecast attempt failed", "provider", p.name, "error", err)
			return c, err
		}
		metrics.ForecastAttempts.WithLabelValues("ok").Inc()
		return c, nil
	})
}

func (p *WeatherAPIProvider) fetchOnce(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	values := url.Values{}
	values.Set("key", p.apiKey)
	// WeatherAPI uses "q" for location; it accepts "lat,lon".
	values.Set("q", fmt.Sprintf("%.4f,%.4f", lat, lon))
	values.Set("days", "1")

	u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return weather.Conditions{}, err
	}

	resp, err := p.httpCfg.Client.Do(req)
	if err != nil {
		return weather.Conditions{}, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return weather.Conditions{}, err
	}

	var payload struct {
		Current *struct {
			LastUpdatedEpoch int64    `json:"last_updated_epoch"`
			TempC            *float64 `json:"temp_c"`
		} `json:"current"`
		Forecast struct {
			Forecastday []struct {
				Day struct {
					DailyChanceOfRain float64 `json:"daily_chance_of_rain"`
				} `json:"day"`
			} `json:"forecastday"`
		} `json:"forecast"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Conditions{}, err
	}
	if payload.Current == nil || payload.Current.TempC == nil {
		return weather.Conditions{}, ErrMissingTemperature
	}

	ts := time.Now().UTC()
	if payload.Current.LastUpdatedEpoch > 0 {
		ts = time.Unix(payload.Current.LastUpdatedEpoch, 0).UTC()
	}

	var precip float64
	if days := payload.Forecast.Forecastday; len(days) > 0 {
		precip = days[0].Day.DailyChanceOfRain
	}

	return weather.Conditions{
		TemperatureC:        *payload.Current.TempC,
		PrecipitationChance: precip,
		ObservedAt:          ts,
	}, nil
}
