package location

import (
	"context"
	"errors"
	"strings"

	"github.com/paulmach/orb"
	"github.com/tidwall/gjson"
)

// ErrNoResult is returned by geocoders that found nothing for a query.
var ErrNoResult = errors.New("geocoder returned no result")

// Place is a geocoding result.
type Place struct {
	Point       orb.Point
	DisplayName string
}

// Geocoder resolves place names to coordinates and back.
type Geocoder interface {
	Name() string
	Forward(ctx context.Context, query string) (Place, error)
	Reverse(ctx context.Context, lat, lon float64) (Place, error)
}

// cityFields lists address fields that name the settlement, most specific first.
var cityFields = []string{"city", "town", "village", "municipality", "hamlet", "suburb", "county", "state"}

// displayName builds "City, CC" from a structured address, falling back to the
// provider's full display name.
func displayName(address gjson.Result, fallback string) string {
	var city string
	for _, f := range cityFields {
		if v := strings.TrimSpace(address.Get(f).String()); v != "" {
			city = v
			break
		}
	}
	code := strings.ToUpper(strings.TrimSpace(address.Get("country_code").String()))

	switch {
	case city != "" && code != "":
		return city + ", " + code
	case city != "":
		return city
	default:
		return strings.TrimSpace(fallback)
	}
}
