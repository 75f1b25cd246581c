package geocache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/paulmach/orb"
)

// Record is the persisted form of one cache entry. Forward records carry Lat/Lon;
// reverse records leave them nil.
type Record struct {
	Key       string   `json:"key"`
	Lat       *float64 `json:"lat,omitempty"`
	Lon       *float64 `json:"lon,omitempty"`
	Name      string   `json:"name"`
	Timestamp int64    `json:"ts"`
}

// Export returns both maps as records ordered from least to most recently used.
func (g *Gateway) Export() (forward, reverse []Record) {
	for _, it := range g.forward.snapshot() {
		lat, lon := it.value.Point.Lat(), it.value.Point.Lon()
		forward = append(forward, Record{
			Key:       it.key,
			Lat:       &lat,
			Lon:       &lon,
			Name:      it.value.DisplayName,
			Timestamp: it.stamp.UnixMilli(),
		})
	}
	for _, it := range g.reverse.snapshot() {
		reverse = append(reverse, Record{
			Key:       it.key,
			Name:      it.value.DisplayName,
			Timestamp: it.stamp.UnixMilli(),
		})
	}
	return forward, reverse
}

// Import merges persisted records into the maps, skipping invalid or already expired
// records and keys already present in memory. It does not mark the gateway dirty.
func (g *Gateway) Import(forward, reverse []Record) (loaded int) {
	now := g.now()
	for i := len(forward) - 1; i >= 0; i-- {
		r := forward[i]
		if r.Key == "" || r.Lat == nil || r.Lon == nil || r.Timestamp <= 0 {
			continue
		}
		stamp := time.UnixMilli(r.Timestamp)
		entry := ForwardEntry{Point: orb.Point{*r.Lon, *r.Lat}, DisplayName: r.Name, Timestamp: stamp}
		if g.forward.restore(r.Key, entry, stamp, now) {
			loaded++
		}
	}
	for i := len(reverse) - 1; i >= 0; i-- {
		r := reverse[i]
		if r.Key == "" || r.Timestamp <= 0 {
			continue
		}
		stamp := time.UnixMilli(r.Timestamp)
		if g.reverse.restore(r.Key, ReverseEntry{DisplayName: r.Name, Timestamp: stamp}, stamp, now) {
			loaded++
		}
	}
	return loaded
}

// EncodeRecords serializes records as a JSON array.
func EncodeRecords(records []Record) (string, error) {
	if records == nil {
		records = []Record{}
	}
	b, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("encoding cache records: %w", err)
	}
	return string(b), nil
}

// DecodeRecords parses a JSON array of records. Elements that are not valid records
// are skipped and counted; only a blob that is not an array at all is an error.
func DecodeRecords(blob string) (records []Record, skipped int, err error) {
	if blob == "" {
		return nil, 0, nil
	}
	var raw []json.RawMessage
	if err := json.Unmarshal([]byte(blob), &raw); err != nil {
		return nil, 0, fmt.Errorf("decoding cache blob: %w", err)
	}
	for _, item := range raw {
		var r Record
		if err := json.Unmarshal(item, &r); err != nil || r.Key == "" {
			skipped++
			continue
		}
		records = append(records, r)
	}
	return records, skipped, nil
}
