package weather

import (
	"context"
	"math"
	"math/rand"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/i474232898/weather-fetch-pipeline/internal/config"
	"github.com/i474232898/weather-fetch-pipeline/internal/location"
	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
	"github.com/i474232898/weather-fetch-pipeline/internal/store"
)

// persistTimeout bounds the writes done after a run, which outlive the caller's context.
const persistTimeout = 10 * time.Second

// Options tune a Service. Zero values select the defaults.
type Options struct {
	// ProviderName tags simulated snapshots.
	ProviderName string
	// IntN draws uniform integers in [0, n) for simulated current-location values.
	IntN func(n int) int
	Now  func() time.Time
}

// Service runs the fetch pipeline: resolve the location, fetch the forecast, fall back
// to simulated values, save the snapshot and persist the geocode cache.
//
// Runs may overlap; the last run to save wins.
type Service struct {
	resolver LocationResolver
	forecast ForecastProvider
	cache    CachePersister
	prefs    Preferences
	store    store.Store

	providerName string
	intN         func(n int) int
	now          func() time.Time

	current atomic.Pointer[Snapshot]
}

// NewService creates a new Service.
func NewService(resolver LocationResolver, forecast ForecastProvider, cache CachePersister,
	prefs Preferences, st store.Store, opts Options) *Service {
	if opts.ProviderName == "" {
		opts.ProviderName = "simulated"
	}
	if opts.IntN == nil {
		opts.IntN = rand.Intn
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		resolver:     resolver,
		forecast:     forecast,
		cache:        cache,
		prefs:        prefs,
		store:        st,
		providerName: opts.ProviderName,
		intN:         opts.IntN,
		now:          opts.Now,
	}
}

// Latest returns the current snapshot. IsLoaded is false until the first save or restore.
func (s *Service) Latest() Snapshot {
	if snap := s.current.Load(); snap != nil {
		return *snap
	}
	return Snapshot{}
}

// FetchAndSave runs the pipeline once and reports whether real network data was used.
// Every failure short of cancellation ends in a simulated snapshot; when ctx is
// cancelled the snapshot is left untouched and ctx's error is returned.
func (s *Service) FetchAndSave(ctx context.Context) (bool, error) {
	ctx = config.WithLogger(ctx, config.Logger(ctx).With("run_id", uuid.NewString()))
	defer s.persistCache(ctx)

	s.cache.EnsureLoaded(ctx)

	pref, err := s.prefs.Preference(ctx)
	if err != nil {
		log(ctx).Error("reading location preference failed", "error", err)
	}

	res, resolved := s.resolver.Resolve(ctx, pref)

	var (
		snap        Snapshot
		fromNetwork bool
	)
	if resolved {
		cond, err := s.forecast.Current(ctx, res.Point.Lat(), res.Point.Lon())
		if err == nil {
			fromNetwork = true
			snap = Snapshot{
				TemperatureC:        int(math.Round(cond.TemperatureC)),
				PrecipitationChance: clampPercent(int(math.Round(cond.PrecipitationChance))),
				Provider:            ProviderReal,
			}
		} else if ctx.Err() == nil {
			log(ctx).Warn("forecast unavailable; using simulated weather",
				"provider", s.forecast.Name(), "error", err)
		}
	} else if ctx.Err() == nil {
		log(ctx).Warn("location unresolved; using simulated weather",
			"use_current_location", pref.UseCurrentLocation)
	}

	if err := ctx.Err(); err != nil {
		metrics.Fetches.WithLabelValues("cancelled").Inc()
		log(ctx).Info("fetch cancelled before save", "error", err)
		return false, err
	}

	if !fromNetwork {
		t, p := simulate(pref, s.intN)
		snap = Snapshot{TemperatureC: t, PrecipitationChance: p, Provider: s.providerName}
	}
	snap.LocationName = placeLabel(res.DisplayName, pref)
	snap.LastUpdated = s.now().UTC()
	snap.IsLoaded = true

	s.save(ctx, snap)

	outcome := "simulated"
	if fromNetwork {
		outcome = "real"
	}
	metrics.Fetches.WithLabelValues(outcome).Inc()
	log(ctx).Info("weather updated",
		"outcome", outcome,
		"location", snap.LocationName,
		"temperature_c", snap.TemperatureC,
		"precipitation_pct", snap.PrecipitationChance)
	return fromNetwork, nil
}

// persistCache flushes the geocode cache even when the run failed or was cancelled.
func (s *Service) persistCache(ctx context.Context) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()
	s.cache.FlushIfDirty(ctx)
}

func placeLabel(name string, pref location.Preference) string {
	switch {
	case name != "":
		return name
	case pref.UseCurrentLocation:
		return LabelCurrentPlace
	default:
		return LabelUnknownPlace
	}
}

func clampPercent(v int) int {
	return max(0, min(100, v))
}
