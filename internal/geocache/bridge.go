package geocache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/i474232898/weather-fetch-pipeline/internal/metrics"
	"github.com/i474232898/weather-fetch-pipeline/internal/store"
)

// loadTimeout bounds the one-time hydration, which outlives the first caller's context.
const loadTimeout = 10 * time.Second

// Settings keys holding the serialized maps.
const (
	StoreKeyForward = "geocache.forward"
	StoreKeyReverse = "geocache.reverse"
)

// Bridge hydrates a Gateway from the settings store once per process and writes it
// back when it is dirty. Store failures are logged and never returned; the cache then
// simply lives for the session only.
type Bridge struct {
	gateway *Gateway
	store   store.Store

	once   sync.Once
	loaded atomic.Bool
}

// NewBridge ties gateway to the settings store s.
func NewBridge(gateway *Gateway, s store.Store) *Bridge {
	return &Bridge{gateway: gateway, store: s}
}

// Gateway returns the cache this bridge persists.
func (b *Bridge) Gateway() *Gateway {
	return b.gateway
}

// Loaded reports whether EnsureLoaded has completed.
func (b *Bridge) Loaded() bool {
	return b.loaded.Load()
}

// EnsureLoaded reads the persisted maps on the first call. Concurrent first callers
// block until that single load finishes; later calls return immediately. The load
// ignores ctx cancellation so a cancelled first caller cannot leave the cache unhydrated.
func (b *Bridge) EnsureLoaded(ctx context.Context) {
	if b.loaded.Load() {
		return
	}
	b.once.Do(func() {
		defer b.loaded.Store(true)

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		forward := b.readRecords(ctx, StoreKeyForward)
		reverse := b.readRecords(ctx, StoreKeyReverse)
		n := b.gateway.Import(forward, reverse)
		fwd, rev := b.gateway.Len()
		log(ctx).Debug("geocode cache hydrated", "restored", n, "forward", fwd, "reverse", rev)
	})
}

func (b *Bridge) readRecords(ctx context.Context, key string) []Record {
	blob, err := b.store.Get(ctx, key)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		log(ctx).Error("reading geocode cache failed; continuing with empty cache", "key", key, "error", err)
		return nil
	}
	records, skipped, err := DecodeRecords(blob)
	if err != nil {
		log(ctx).Warn("discarding unreadable geocode cache", "key", key, "error", err)
		return nil
	}
	if skipped > 0 {
		log(ctx).Warn("skipped malformed geocode cache records", "key", key, "skipped", skipped)
	}
	return records
}

// FlushIfDirty writes both maps when the gateway changed since the last flush and
// reports whether it wrote. The dirty flag is cleared before serializing, so a
// mutation racing with the write is picked up by a later flush.
func (b *Bridge) FlushIfDirty(ctx context.Context) bool {
	if !b.gateway.ClearDirty() {
		return false
	}

	forward, reverse := b.gateway.Export()
	fwdBlob, err := EncodeRecords(forward)
	if err == nil {
		var revBlob string
		revBlob, err = EncodeRecords(reverse)
		if err == nil {
			err = store.SetMany(ctx, b.store, map[string]string{
				StoreKeyForward: fwdBlob,
				StoreKeyReverse: revBlob,
			})
		}
	}
	if err != nil {
		b.gateway.MarkDirty()
		metrics.CacheFlushes.WithLabelValues("error").Inc()
		log(ctx).Error("persisting geocode cache failed", "error", err)
		return false
	}

	metrics.CacheFlushes.WithLabelValues("ok").Inc()
	log(ctx).Debug("geocode cache persisted", "forward", len(forward), "reverse", len(reverse))
	return true
}
