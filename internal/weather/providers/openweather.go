package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-fetch-pipeline/internal/config"
	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather"
)

// OpenWeatherProvider implements weather.ForecastProvider for OpenWeatherMap.
// Its current-weather endpoint has no precipitation probability, so that stays 0.
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, apiKey string) *OpenWeatherProvider {
	cb := newCircuitBreaker("openweather", cfg.Retry)

	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: "https://api.openweathermap.org/data/2.5/weather",
		httpCfg: cfg,
		circuit: cb,
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

func (p *OpenWeatherProvider) Current(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	if p.apiKey == "" {
		return weather.Conditions{}, fmt.Errorf("openweather api key is not configured")
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

func (p *OpenWeatherProvider) fetchOnce(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	values := url.Values{}
	values.Set("appid", p.apiKey)
	values.Set("units", "metric")
	values.Set("lat", strconv.FormatFloat(lat, 'f', 4, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', 4, 64))

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
		Dt   int64 `json:"dt"`
		Main *struct {
			Temp *float64 `json:"temp"`
		} `json:"main"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return weather.Conditions{}, err
	}
	if payload.Main == nil || payload.Main.Temp == nil {
		return weather.Conditions{}, ErrMissingTemperature
	}

	ts := time.Now().UTC()
	if payload.Dt > 0 {
		ts = time.Unix(payload.Dt, 0).UTC()
	}

	return weather.Conditions{
		TemperatureC: *payload.Main.Temp,
		ObservedAt:   ts,
	}, nil
}
