package location

import (
	"context"

	"github.com/paulmach/orb"
)

// Reading is one position fix from a device location provider. Accuracy is the
// provider's uncertainty figure; smaller is more precise.
type Reading struct {
	Point    orb.Point
	Accuracy float64
}

// DeviceLocator returns the last known fixes, one per provider, possibly none.
type DeviceLocator interface {
	LastKnown(ctx context.Context) ([]Reading, error)
}

// BestReading picks the reading with the smallest accuracy value.
// The first of equally accurate readings wins.
func BestReading(readings []Reading) (Reading, bool) {
	if len(readings) == 0 {
		return Reading{}, false
	}
	best := readings[0]
	for _, r := range readings[1:] {
		if r.Accuracy < best.Accuracy {
			best = r
		}
	}
	return best, true
}

// StaticLocator always reports the same fix. A nil *StaticLocator reports none.
type StaticLocator struct {
	Reading Reading
}

func (s *StaticLocator) LastKnown(ctx context.Context) ([]Reading, error) {
	if s == nil {
		return nil, nil
	}
	return []Reading{s.Reading}, nil
}
