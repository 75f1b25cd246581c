package geocache

import (
	"container/list"
	"sync"
	"time"
)

type lookupResult int

const (
	lookupMiss lookupResult = iota
	lookupHit
	lookupExpired
)

func (r lookupResult) String() string {
	switch r {
	case lookupHit:
		return "hit"
	case lookupExpired:
		return "expired"
	default:
		return "miss"
	}
}

type lruItem[V any] struct {
	key   string
	value V
	stamp time.Time
}

// lruMap is a bounded, access-ordered map whose entries expire ttl after their stamp.
// The front of order is the most recently touched entry.
type lruMap[V any] struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	order    *list.List
	items    map[string]*list.Element
}

func newLRUMap[V any](capacity int, ttl time.Duration) *lruMap[V] {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &lruMap[V]{
		capacity: capacity,
		ttl:      ttl,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// get returns the value for key. An entry older than ttl is removed and reported as expired.
func (m *lruMap[V]) get(key string, now time.Time) (V, lookupResult) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var zero V
	el, ok := m.items[key]
	if !ok {
		return zero, lookupMiss
	}
	it := el.Value.(lruItem[V])
	if m.expired(it.stamp, now) {
		m.order.Remove(el)
		delete(m.items, key)
		return zero, lookupExpired
	}
	m.order.MoveToFront(el)
	return it.value, lookupHit
}

// put inserts or replaces key as the most recent entry and returns how many entries were evicted.
func (m *lruMap[V]) put(key string, value V, stamp time.Time) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	if el, ok := m.items[key]; ok {
		el.Value = lruItem[V]{key: key, value: value, stamp: stamp}
		m.order.MoveToFront(el)
		return 0
	}
	m.items[key] = m.order.PushFront(lruItem[V]{key: key, value: value, stamp: stamp})

	evicted := 0
	for m.order.Len() > m.capacity {
		back := m.order.Back()
		delete(m.items, back.Value.(lruItem[V]).key)
		m.order.Remove(back)
		evicted++
	}
	return evicted
}

// restore appends key behind every existing entry when it is absent, unexpired and there is room.
// Callers restore from most to least recent so persisted order survives a reload.
func (m *lruMap[V]) restore(key string, value V, stamp time.Time, now time.Time) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.items[key]; ok {
		return false
	}
	if m.order.Len() >= m.capacity || m.expired(stamp, now) {
		return false
	}
	m.items[key] = m.order.PushBack(lruItem[V]{key: key, value: value, stamp: stamp})
	return true
}

// snapshot returns the entries ordered from least to most recently touched.
func (m *lruMap[V]) snapshot() []lruItem[V] {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]lruItem[V], 0, m.order.Len())
	for el := m.order.Back(); el != nil; el = el.Prev() {
		out = append(out, el.Value.(lruItem[V]))
	}
	return out
}

func (m *lruMap[V]) len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.order.Len()
}

func (m *lruMap[V]) expired(stamp, now time.Time) bool {
	return m.ttl > 0 && now.Sub(stamp) > m.ttl
}
