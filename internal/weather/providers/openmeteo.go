package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/weather-fetch-pipeline/internal/config"
	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
	"github.com/i474232898/weather-fetch-pipeline/internal/weather"
)

// ErrMissingTemperature is returned when a forecast response has no current temperature.
var ErrMissingTemperature = errors.New("forecast response has no current temperature")

// OpenMeteoProvider implements weather.ForecastProvider for Open-Meteo.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

// NewOpenMeteoProvider creates a provider for baseURL (the /v1/forecast endpoint).
func NewOpenMeteoProvider(cfg HTTPClientConfig, baseURL string) *OpenMeteoProvider {
	cb := newCircuitBreaker("openmeteo", cfg.Retry)

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: baseURL,
		httpCfg: cfg,
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Current fetches current conditions at (lat, lon), retrying failed attempts immediately
// unless the retry config asks for backoff.
func (p *OpenMeteoProvider) Current(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
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

func (p *OpenMeteoProvider) fetchOnce(ctx context.Context, lat, lon float64) (weather.Conditions, error) {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(lat, 'f', 4, 64))
	values.Set("longitude", strconv.FormatFloat(lon, 'f', 4, 64))
	values.Set("current", "temperature_2m,precipitation_probability")
	values.Set("timezone", "auto")

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
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return weather.Conditions{}, err
	}
	return parseCurrent(body)
}

func parseCurrent(body []byte) (weather.Conditions, error) {
	if !gjson.ValidBytes(body) {
		return weather.Conditions{}, fmt.Errorf("openmeteo: malformed response")
	}
	current := gjson.GetBytes(body, "current")
	temp := current.Get("temperature_2m")
	if temp.Type != gjson.Number {
		// older responses only carry current_weather
		temp = gjson.GetBytes(body, "current_weather.temperature")
	}
	if temp.Type != gjson.Number {
		return weather.Conditions{}, ErrMissingTemperature
	}

	var precip float64
	if pp := current.Get("precipitation_probability"); pp.Type == gjson.Number {
		precip = pp.Float()
	}

	// with timezone=auto, times are local to the location
	ts := time.Now().UTC()
	if t, err := time.Parse("2006-01-02T15:04", current.Get("time").String()); err == nil {
		offset := gjson.GetBytes(body, "utc_offset_seconds").Int()
		ts = t.Add(-time.Duration(offset) * time.Second)
	}

	return weather.Conditions{
		TemperatureC:        temp.Float(),
		PrecipitationChance: precip,
		ObservedAt:          ts,
	}, nil
}
