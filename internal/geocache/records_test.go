package geocache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExportImport_PreservesEntriesAndOrder(t *testing.T) {
	clock := newFakeClock()
	src := New(Options{Capacity: 3, TTL: time.Hour, Now: clock.Now})
	src.PutForward("a", place("A", 1, 10))
	src.PutForward("b", place("B", 2, 20))
	src.PutForward("c", place("C", 3, 30))
	src.GetForward("a")
	src.PutReverse(59.3293, 18.0686, ReverseEntry{DisplayName: "Stockholm, SE"})

	fwd, rev := src.Export()
	require.Len(t, fwd, 3)
	assert.Equal(t, []string{"b", "c", "a"}, []string{fwd[0].Key, fwd[1].Key, fwd[2].Key})
	require.Len(t, rev, 1)
	assert.Equal(t, "59.3293,18.0686", rev[0].Key)

	dst := New(Options{Capacity: 3, TTL: time.Hour, Now: clock.Now})
	assert.Equal(t, 4, dst.Import(fwd, rev))
	assert.False(t, dst.Dirty(), "loading is not a mutation")

	got, ok := dst.GetForward("b")
	require.True(t, ok)
	assert.Equal(t, "B", got.DisplayName)
	assert.InDelta(t, 2.0, got.Point.Lat(), 1e-9)
	assert.InDelta(t, 20.0, got.Point.Lon(), 1e-9)

	// b was just read, so c is now the least recently used
	dst.PutForward("d", place("D", 4, 40))
	_, ok = dst.GetForward("c")
	assert.False(t, ok)

	name, ok := dst.GetReverse(59.3293, 18.0686)
	require.True(t, ok)
	assert.Equal(t, "Stockholm, SE", name.DisplayName)
}

func TestImport_SkipsExpiredAndInvalidRecords(t *testing.T) {
	clock := newFakeClock()
	g := New(Options{TTL: time.Hour, Now: clock.Now})
	lat, lon := 65.825, 21.689
	fresh := clock.Now().Add(-time.Minute).UnixMilli()
	stale := clock.Now().Add(-2 * time.Hour).UnixMilli()

	loaded := g.Import([]Record{
		{Key: "boden", Lat: &lat, Lon: &lon, Name: "Boden, SE", Timestamp: fresh},
		{Key: "old", Lat: &lat, Lon: &lon, Name: "Old", Timestamp: stale},
		{Key: "nolat", Lon: &lon, Name: "Broken", Timestamp: fresh},
		{Key: "", Lat: &lat, Lon: &lon, Timestamp: fresh},
	}, []Record{
		{Key: "65.8250,21.6890", Name: "Boden, SE", Timestamp: fresh},
		{Key: "1.0000,1.0000", Name: "Gone", Timestamp: stale},
		{Key: "2.0000,2.0000", Name: "No time"},
	})

	assert.Equal(t, 2, loaded)
	_, ok := g.GetForward("Boden")
	assert.True(t, ok)
	_, ok = g.GetForward("old")
	assert.False(t, ok)
	_, ok = g.GetReverse(65.825, 21.689)
	assert.True(t, ok)
}

func TestImport_KeepsExistingEntries(t *testing.T) {
	clock := newFakeClock()
	g := New(Options{TTL: time.Hour, Now: clock.Now})
	g.PutForward("umeå", place("Umeå, SE", 63.82, 20.26))

	lat, lon := 0.0, 0.0
	g.Import([]Record{{Key: "umeå", Lat: &lat, Lon: &lon, Name: "Stale", Timestamp: clock.Now().UnixMilli()}}, nil)

	got, ok := g.GetForward("Umeå")
	require.True(t, ok)
	assert.Equal(t, "Umeå, SE", got.DisplayName)
}

func TestDecodeRecords_SkipsMalformedElements(t *testing.T) {
	blob := `[
		{"key":"a","lat":1.5,"lon":2.5,"name":"A","ts":1700000000000},
		42,
		{"key":""},
		{"key":"b","lat":"not a number","ts":1},
		{"key":"c","name":"C","ts":1700000000000}
	]`

	records, skipped, err := DecodeRecords(blob)
	require.NoError(t, err)
	assert.Equal(t, 3, skipped)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].Key)
	assert.Equal(t, "c", records[1].Key)
	assert.Nil(t, records[1].Lat)
}

func TestDecodeRecords_RejectsNonArray(t *testing.T) {
	_, _, err := DecodeRecords(`{"key":"a"}`)
	assert.Error(t, err)

	records, skipped, err := DecodeRecords("")
	assert.NoError(t, err)
	assert.Empty(t, records)
	assert.Zero(t, skipped)
}

func TestEncodeRecords_EmptyIsArray(t *testing.T) {
	blob, err := EncodeRecords(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", blob)
}
