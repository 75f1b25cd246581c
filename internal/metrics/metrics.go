package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "weather_pipeline"

var (
	// CacheLookups counts geocode cache reads by map ("forward", "reverse") and result
	// ("hit", "miss", "expired").
	CacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geocache",
		Name:      "lookups_total",
		Help:      "Geocode cache lookups by map and result.",
	}, []string{"map", "result"})

	// CacheEvictions counts entries dropped because a map was over capacity.
	CacheEvictions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geocache",
		Name:      "evictions_total",
		Help:      "Geocode cache LRU evictions by map.",
	}, []string{"map"})

	// CacheFlushes counts persistence flushes by result ("ok", "error").
	CacheFlushes = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "geocache",
		Name:      "flushes_total",
		Help:      "Geocode cache flushes to the settings store.",
	}, []string{"result"})

	// Fetches counts pipeline runs by outcome ("real", "simulated", "cancelled").
	Fetches = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "fetches_total",
		Help:      "Weather fetch pipeline runs by outcome.",
	}, []string{"outcome"})

	// ForecastAttempts counts single forecast HTTP attempts by result ("ok", "error").
	ForecastAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "forecast_attempts_total",
		Help:      "Forecast endpoint attempts by result.",
	}, []string{"result"})

	// GeocodeRequests counts geocoding network calls by direction and result.
	GeocodeRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "geocode_requests_total",
		Help:      "Geocoding network calls by direction and result.",
	}, []string{"direction", "result"})
)
