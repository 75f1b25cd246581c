package location

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
	"golang.org/x/time/rate"

	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
)

const userAgent = "weather-fetch-pipeline/1.0"

// NominatimGeocoder talks to an OpenStreetMap Nominatim instance.
type NominatimGeocoder struct {
	client   *http.Client
	baseURL  string
	language string
	limiter  *rate.Limiter
}

// NewNominatimGeocoder creates a geocoder allowing at most perSecond requests per second.
func NewNominatimGeocoder(client *http.Client, baseURL, language string, perSecond float64) *NominatimGeocoder {
	if perSecond <= 0 {
		perSecond = 1
	}
	return &NominatimGeocoder{
		client:   client,
		baseURL:  strings.TrimRight(baseURL, "/"),
		language: language,
		limiter:  rate.NewLimiter(rate.Limit(perSecond), 1),
	}
}

func (g *NominatimGeocoder) Name() string {
	return "nominatim"
}

// Forward looks up query and returns the first candidate.
func (g *NominatimGeocoder) Forward(ctx context.Context, query string) (Place, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("format", "jsonv2")
	values.Set("addressdetails", "1")
	values.Set("limit", "1")
	values.Set("accept-language", g.language)

	place, err := g.lookup(ctx, "/search", values)
	metrics.GeocodeRequests.WithLabelValues("forward", resultLabel(err)).Inc()
	return place, err
}

// Reverse names the place at (lat, lon).
func (g *NominatimGeocoder) Reverse(ctx context.Context, lat, lon float64) (Place, error) {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	values.Set("format", "jsonv2")
	values.Set("zoom", "10")
	values.Set("accept-language", g.language)

	place, err := g.lookup(ctx, "/reverse", values)
	metrics.GeocodeRequests.WithLabelValues("reverse", resultLabel(err)).Inc()
	return place, err
}

func (g *NominatimGeocoder) lookup(ctx context.Context, path string, values url.Values) (Place, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return Place{}, err
	}

	u := fmt.Sprintf("%s%s?%s", g.baseURL, path, values.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Place{}, err
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Place{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Place{}, fmt.Errorf("nominatim %s: unexpected status code %d", path, resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Place{}, err
	}
	return parsePlace(body)
}

// parsePlace accepts either a result array (search) or a single object (reverse).
func parsePlace(body []byte) (Place, error) {
	if !gjson.ValidBytes(body) {
		return Place{}, fmt.Errorf("nominatim: malformed response")
	}
	res := gjson.ParseBytes(body)
	if res.IsArray() {
		items := res.Array()
		if len(items) == 0 {
			return Place{}, ErrNoResult
		}
		res = items[0]
	}
	if !res.IsObject() || res.Get("error").Exists() {
		return Place{}, ErrNoResult
	}

	lat, lon := res.Get("lat"), res.Get("lon")
	if !lat.Exists() || !lon.Exists() {
		return Place{}, fmt.Errorf("nominatim: result without coordinates")
	}
	latF, err := strconv.ParseFloat(lat.String(), 64)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim: bad latitude %q: %w", lat.String(), err)
	}
	lonF, err := strconv.ParseFloat(lon.String(), 64)
	if err != nil {
		return Place{}, fmt.Errorf("nominatim: bad longitude %q: %w", lon.String(), err)
	}

	return Place{
		Point:       orb.Point{lonF, latF},
		DisplayName: displayName(res.Get("address"), res.Get("display_name").String()),
	}, nil
}

func resultLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
