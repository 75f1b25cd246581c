package geocache

import (
	"math"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"golang.org/x/text/cases"

	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
)

const (
	// DefaultCapacity bounds each map.
	DefaultCapacity = 64
	// DefaultTTL is how long a geocoding result stays valid.
	DefaultTTL = 7 * 24 * time.Hour
	// DefaultPrecision is the number of decimals kept in reverse cache keys (~11m).
	DefaultPrecision = 4
)

// ForwardEntry records that a place-name query resolved to Point at Timestamp.
type ForwardEntry struct {
	Point       orb.Point
	DisplayName string
	Timestamp   time.Time
}

// ReverseEntry records the place name found for a coordinate cell at Timestamp.
type ReverseEntry struct {
	DisplayName string
	Timestamp   time.Time
}

// Options tune a Gateway. Zero values select the defaults.
type Options struct {
	Capacity  int
	TTL       time.Duration
	Precision int
	Now       func() time.Time
}

// Gateway is the process-wide geocode cache: a forward (name -> coordinates) and a
// reverse (coordinate cell -> name) map, each behind its own lock, plus a dirty flag
// recording that the maps diverged from what was last persisted.
//
// A Gateway must be created with New and shared by pointer for the lifetime of the process.
type Gateway struct {
	forward   *lruMap[ForwardEntry]
	reverse   *lruMap[ReverseEntry]
	precision int
	now       func() time.Time

	dirty atomic.Bool
}

// New creates an empty Gateway.
func New(opts Options) *Gateway {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.Precision <= 0 {
		opts.Precision = DefaultPrecision
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gateway{
		forward:   newLRUMap[ForwardEntry](opts.Capacity, opts.TTL),
		reverse:   newLRUMap[ReverseEntry](opts.Capacity, opts.TTL),
		precision: opts.Precision,
		now:       opts.Now,
	}
}

// GetForward returns the unexpired entry cached for query.
func (g *Gateway) GetForward(query string) (ForwardEntry, bool) {
	e, res := g.forward.get(ForwardKey(query), g.now())
	g.observe("forward", res)
	return e, res == lookupHit
}

// PutForward caches entry under the normalized query.
func (g *Gateway) PutForward(query string, entry ForwardEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = g.now()
	}
	g.evicted("forward", g.forward.put(ForwardKey(query), entry, entry.Timestamp))
	g.dirty.Store(true)
}

// GetReverse returns the unexpired name cached for the cell containing (lat, lon).
func (g *Gateway) GetReverse(lat, lon float64) (ReverseEntry, bool) {
	e, res := g.reverse.get(ReverseKey(lat, lon, g.precision), g.now())
	g.observe("reverse", res)
	return e, res == lookupHit
}

// PutReverse caches entry for the cell containing (lat, lon).
func (g *Gateway) PutReverse(lat, lon float64, entry ReverseEntry) {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = g.now()
	}
	g.evicted("reverse", g.reverse.put(ReverseKey(lat, lon, g.precision), entry, entry.Timestamp))
	g.dirty.Store(true)
}

// Len reports the number of forward and reverse entries currently held.
func (g *Gateway) Len() (forward, reverse int) {
	return g.forward.len(), g.reverse.len()
}

// Dirty reports whether the maps changed since the last ClearDirty.
func (g *Gateway) Dirty() bool {
	return g.dirty.Load()
}

// ClearDirty resets the dirty flag and reports whether it was set.
func (g *Gateway) ClearDirty() bool {
	return g.dirty.CompareAndSwap(true, false)
}

// MarkDirty forces the next flush to write.
func (g *Gateway) MarkDirty() {
	g.dirty.Store(true)
}

func (g *Gateway) observe(name string, res lookupResult) {
	metrics.CacheLookups.WithLabelValues(name, res.String()).Inc()
	if res == lookupExpired {
		g.dirty.Store(true)
	}
}

func (g *Gateway) evicted(name string, n int) {
	if n > 0 {
		metrics.CacheEvictions.WithLabelValues(name).Add(float64(n))
	}
}

// ForwardKey folds case and trims whitespace so equivalent queries share an entry.
func ForwardKey(query string) string {
	return cases.Fold().String(strings.TrimSpace(query))
}

// ReverseKey rounds both coordinates to precision decimals and joins them, so that
// nearby readings land in the same cell.
func ReverseKey(lat, lon float64, precision int) string {
	return roundTo(lat, precision) + "," + roundTo(lon, precision)
}

func roundTo(v float64, precision int) string {
	scale := math.Pow(10, float64(precision))
	r := math.Round(v*scale) / scale
	if r == 0 {
		// drop negative zero
		r = 0
	}
	return strconv.FormatFloat(r, 'f', precision, 64)
}
