package weather

import (
	"strings"
	"unicode/utf8"

	"github.com/i474232898/weather-fetch-pipeline/internal/location"
)

// Simulated value ranges for current-location fallbacks, inclusive.
const (
	simMinTempC  = -5
	simMaxTempC  = 25
	simMaxPrecip = 50
)

// simulate produces stand-in values when no real forecast is available. Manual
// locations derive them from the name length so a place reads the same on every
// fallback; current-location fallbacks draw from intN.
func simulate(pref location.Preference, intN func(n int) int) (tempC, precip int) {
	if pref.UseCurrentLocation {
		return simMinTempC + intN(simMaxTempC-simMinTempC+1), intN(simMaxPrecip + 1)
	}
	n := utf8.RuneCountInString(strings.TrimSpace(pref.ManualLocationName))
	return n % 30, (n * 10) % 100
}
