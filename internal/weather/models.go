package weather

import (
	"time"
)

// Snapshot is the latest weather shown to users. It is always replaced whole.
type Snapshot struct {
	TemperatureC        int       `json:"temperatureC"`
	PrecipitationChance int       `json:"precipitationChancePercent"`
	LocationName        string    `json:"locationName"`
	Provider            string    `json:"provider"`
	LastUpdated         time.Time `json:"lastUpdated"` // always UTC
	IsLoaded            bool      `json:"isLoaded"`
}

// Conditions are the current conditions reported by a forecast provider.
type Conditions struct {
	TemperatureC        float64
	PrecipitationChance float64 // percent; 0 when the provider does not report it
	ObservedAt          time.Time
}

// ProviderReal tags snapshots built from network data.
const ProviderReal = "real"

// Labels used when resolution produced no place name.
const (
	LabelCurrentPlace = "current place"
	LabelUnknownPlace = "unknown place"
)
