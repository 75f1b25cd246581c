package geocache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestGateway(clock *fakeClock) *Gateway {
	return New(Options{Capacity: DefaultCapacity, TTL: time.Hour, Now: clock.Now})
}

func place(name string, lat, lon float64) ForwardEntry {
	return ForwardEntry{Point: orb.Point{lon, lat}, DisplayName: name}
}

func TestGateway_ForwardBoundEvictsLeastRecentlyUsed(t *testing.T) {
	g := newTestGateway(newFakeClock())
	const extra = 3

	for i := 0; i < DefaultCapacity+extra; i++ {
		g.PutForward(fmt.Sprintf("place-%d", i), place(fmt.Sprintf("Place %d", i), float64(i), 0))
	}

	fwd, _ := g.Len()
	assert.Equal(t, DefaultCapacity, fwd)
	for i := 0; i < extra; i++ {
		_, ok := g.GetForward(fmt.Sprintf("place-%d", i))
		assert.False(t, ok, "place-%d should have been evicted", i)
	}
	for i := extra; i < DefaultCapacity+extra; i++ {
		_, ok := g.GetForward(fmt.Sprintf("place-%d", i))
		assert.True(t, ok, "place-%d should still be cached", i)
	}
}

func TestGateway_ReadRefreshesRecency(t *testing.T) {
	g := New(Options{Capacity: 3, TTL: time.Hour, Now: newFakeClock().Now})

	g.PutForward("a", place("A", 1, 1))
	g.PutForward("b", place("B", 2, 2))
	g.PutForward("c", place("C", 3, 3))

	_, ok := g.GetForward("a")
	require.True(t, ok)

	g.PutForward("d", place("D", 4, 4))

	_, ok = g.GetForward("b")
	assert.False(t, ok, "b was least recently touched")
	_, ok = g.GetForward("a")
	assert.True(t, ok)
}

func TestGateway_TTLExpiry(t *testing.T) {
	clock := newFakeClock()
	g := newTestGateway(clock)

	g.PutForward("Kiruna", place("Kiruna, SE", 67.85, 20.22))
	clock.Advance(time.Hour - time.Second)
	_, ok := g.GetForward("Kiruna")
	assert.True(t, ok, "entry within TTL is a hit")

	clock.Advance(2 * time.Second)
	g.ClearDirty()
	_, ok = g.GetForward("Kiruna")
	assert.False(t, ok, "entry past TTL is a miss")

	fwd, _ := g.Len()
	assert.Equal(t, 0, fwd, "expired entry is removed")
	assert.True(t, g.Dirty(), "removing an expired entry marks the cache dirty")
}

func TestGateway_ReadDoesNotExtendTTL(t *testing.T) {
	clock := newFakeClock()
	g := newTestGateway(clock)

	g.PutReverse(59.3293, 18.0686, ReverseEntry{DisplayName: "Stockholm, SE"})
	clock.Advance(50 * time.Minute)
	_, ok := g.GetReverse(59.3293, 18.0686)
	require.True(t, ok)

	clock.Advance(11 * time.Minute)
	_, ok = g.GetReverse(59.3293, 18.0686)
	assert.False(t, ok)
}

func TestGateway_MissDoesNotMarkDirty(t *testing.T) {
	g := newTestGateway(newFakeClock())

	_, ok := g.GetForward("nowhere")
	assert.False(t, ok)
	assert.False(t, g.Dirty())
}

func TestGateway_ForwardKeyNormalization(t *testing.T) {
	g := newTestGateway(newFakeClock())
	want := place("Stockholm, SE", 59.3293, 18.0686)

	g.PutForward("Stockholm", want)
	got, ok := g.GetForward("  stockholm ")
	require.True(t, ok)
	assert.Equal(t, want.Point, got.Point)
	assert.Equal(t, want.DisplayName, got.DisplayName)

	_, ok = g.GetForward("STOCKHOLM\t")
	assert.True(t, ok)
}

func TestGateway_ReverseQuantization(t *testing.T) {
	g := newTestGateway(newFakeClock())

	g.PutReverse(59.32938, 18.06871, ReverseEntry{DisplayName: "Stockholm, SE"})
	got, ok := g.GetReverse(59.32939, 18.06872)
	require.True(t, ok)
	assert.Equal(t, "Stockholm, SE", got.DisplayName)

	_, ok = g.GetReverse(59.3300, 18.06871)
	assert.False(t, ok, "a different cell misses")
}

func TestGateway_ForwardAndReverseAreIndependent(t *testing.T) {
	g := newTestGateway(newFakeClock())

	g.PutForward("Boden", place("Boden, SE", 65.825, 21.689))
	_, ok := g.GetReverse(65.825, 21.689)
	assert.False(t, ok)

	fwd, rev := g.Len()
	assert.Equal(t, 1, fwd)
	assert.Equal(t, 0, rev)
}

func TestGateway_PutAlwaysMarksDirty(t *testing.T) {
	g := newTestGateway(newFakeClock())
	e := place("Luleå, SE", 65.58, 22.15)

	g.PutForward("Luleå", e)
	assert.True(t, g.ClearDirty())
	assert.False(t, g.ClearDirty())

	g.PutForward("Luleå", e)
	assert.True(t, g.Dirty(), "identical put still marks dirty")
}

func TestReverseKey(t *testing.T) {
	assert.Equal(t, "59.3294,18.0687", ReverseKey(59.32938, 18.06871, 4))
	assert.Equal(t, "0.0000,-0.0001", ReverseKey(-0.00001, -0.00009, 4))
	assert.Equal(t, "59.33,18.07", ReverseKey(59.32938, 18.06871, 2))
}

func TestGateway_ConcurrentAccess(t *testing.T) {
	g := newTestGateway(newFakeClock())

	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("q-%d", (w*200+i)%100)
				g.PutForward(key, place(key, float64(i%90), float64(w)))
				g.GetForward(key)
				g.PutReverse(float64(i%90), float64(w), ReverseEntry{DisplayName: key})
				g.GetReverse(float64(i%90), float64(w))
			}
		}(w)
	}
	wg.Wait()

	fwd, rev := g.Len()
	assert.LessOrEqual(t, fwd, DefaultCapacity)
	assert.LessOrEqual(t, rev, DefaultCapacity)
}
