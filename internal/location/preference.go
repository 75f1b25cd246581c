package location

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/i474232898/weather-fetch-pipeline/internal/store"
)

// Preference is the caller's choice of where to fetch weather for.
type Preference struct {
	UseCurrentLocation bool   `json:"useCurrentLocation"`
	ManualLocationName string `json:"manualLocationName" validate:"max=128"`
}

// Settings keys backing a stored Preference.
const (
	StoreKeyUseCurrent = "location.use_current"
	StoreKeyManualName = "location.manual_name"
)

// StorePreferences reads and writes the Preference kept in the settings store.
type StorePreferences struct {
	store store.Store
}

func NewStorePreferences(s store.Store) *StorePreferences {
	return &StorePreferences{store: s}
}

// Preference returns the stored preference. Missing keys read as the zero value.
func (p *StorePreferences) Preference(ctx context.Context) (Preference, error) {
	var pref Preference

	useCurrent, err := p.store.Get(ctx, StoreKeyUseCurrent)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return pref, fmt.Errorf("reading location preference: %w", err)
	default:
		pref.UseCurrentLocation, _ = strconv.ParseBool(useCurrent)
	}

	name, err := p.store.Get(ctx, StoreKeyManualName)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return pref, fmt.Errorf("reading location preference: %w", err)
	default:
		pref.ManualLocationName = name
	}
	return pref, nil
}

// Save stores pref.
func (p *StorePreferences) Save(ctx context.Context, pref Preference) error {
	err := store.SetMany(ctx, p.store, map[string]string{
		StoreKeyUseCurrent: strconv.FormatBool(pref.UseCurrentLocation),
		StoreKeyManualName: strings.TrimSpace(pref.ManualLocationName),
	})
	if err != nil {
		return fmt.Errorf("saving location preference: %w", err)
	}
	return nil
}

// Seed saves pref only when no preference has been stored yet.
func (p *StorePreferences) Seed(ctx context.Context, pref Preference) error {
	_, err := p.store.Get(ctx, StoreKeyUseCurrent)
	if errors.Is(err, store.ErrNotFound) {
		return p.Save(ctx, pref)
	}
	return err
}
