package location

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-fetch-pipeline/internal/store"
)

func TestStorePreferences(t *testing.T) {
	ctx := context.Background()
	p := NewStorePreferences(store.NewMemoryStore())

	pref, err := p.Preference(ctx)
	require.NoError(t, err)
	assert.Equal(t, Preference{}, pref)

	require.NoError(t, p.Seed(ctx, Preference{ManualLocationName: "Boden"}))
	require.NoError(t, p.Seed(ctx, Preference{ManualLocationName: "Kiruna"}))
	pref, err = p.Preference(ctx)
	require.NoError(t, err)
	assert.Equal(t, "Boden", pref.ManualLocationName, "seed does not overwrite")

	require.NoError(t, p.Save(ctx, Preference{UseCurrentLocation: true, ManualLocationName: " Luleå "}))
	pref, err = p.Preference(ctx)
	require.NoError(t, err)
	assert.Equal(t, Preference{UseCurrentLocation: true, ManualLocationName: "Luleå"}, pref)
}
