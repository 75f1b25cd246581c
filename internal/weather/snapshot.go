package weather

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/i474232898/weather-fetch-pipeline/internal/store"
)

// Settings keys backing the saved Snapshot.
const (
	StoreKeyTemperature   = "weather.temperature"
	StoreKeyPrecipitation = "weather.precipitation"
	StoreKeyLocation      = "weather.location"
	StoreKeyProvider      = "weather.provider"
	StoreKeyUpdated       = "weather.updated"
)

// save publishes snap to readers and writes it to the settings store. A failed write
// is logged; the in-memory snapshot stays authoritative.
func (s *Service) save(ctx context.Context, snap Snapshot) {
	s.current.Store(&snap)

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	err := store.SetMany(ctx, s.store, map[string]string{
		StoreKeyTemperature:   strconv.Itoa(snap.TemperatureC),
		StoreKeyPrecipitation: strconv.Itoa(snap.PrecipitationChance),
		StoreKeyLocation:      snap.LocationName,
		StoreKeyProvider:      snap.Provider,
		StoreKeyUpdated:       snap.LastUpdated.Format(time.RFC3339Nano),
	})
	if err != nil {
		log(ctx).Error("persisting weather snapshot failed", "error", err)
	}
}

// Restore loads the last saved snapshot so readers have data before the first fetch.
// It does nothing when a snapshot is already present.
func (s *Service) Restore(ctx context.Context) error {
	snap, err := loadSnapshot(ctx, s.store)
	if err != nil {
		return err
	}
	s.current.CompareAndSwap(nil, &snap)
	return nil
}

func loadSnapshot(ctx context.Context, st store.Store) (Snapshot, error) {
	get := func(key string) (string, error) {
		v, err := st.Get(ctx, key)
		if err != nil {
			return "", fmt.Errorf("reading %s: %w", key, err)
		}
		return v, nil
	}

	var (
		snap Snapshot
		raw  string
		err  error
	)
	if raw, err = get(StoreKeyTemperature); err != nil {
		return snap, err
	}
	if snap.TemperatureC, err = strconv.Atoi(raw); err != nil {
		return snap, fmt.Errorf("parsing %s: %w", StoreKeyTemperature, err)
	}
	if raw, err = get(StoreKeyPrecipitation); err != nil {
		return snap, err
	}
	if snap.PrecipitationChance, err = strconv.Atoi(raw); err != nil {
		return snap, fmt.Errorf("parsing %s: %w", StoreKeyPrecipitation, err)
	}
	if raw, err = get(StoreKeyUpdated); err != nil {
		return snap, err
	}
	if snap.LastUpdated, err = time.Parse(time.RFC3339Nano, raw); err != nil {
		return snap, fmt.Errorf("parsing %s: %w", StoreKeyUpdated, err)
	}
	if snap.LocationName, err = get(StoreKeyLocation); err != nil && !errors.Is(err, store.ErrNotFound) {
		return snap, err
	}
	if snap.Provider, err = get(StoreKeyProvider); err != nil && !errors.Is(err, store.ErrNotFound) {
		return snap, err
	}
	snap.LastUpdated = snap.LastUpdated.UTC()
	snap.IsLoaded = true
	return snap, nil
}
