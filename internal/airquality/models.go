package airquality

import (
	"time"
)

// Pollutant identifies one of the criteria pollutants the index is computed from.
type Pollutant string

const (
	PM25 Pollutant = "PM2.5"
	PM10 Pollutant = "PM10"
	O3   Pollutant = "O3"
	NO2  Pollutant = "NO2"
	SO2  Pollutant = "SO2"
	CO   Pollutant = "CO"
)

// Pollutants lists the supported pollutants in dominance priority order.
// When two sub-indices tie, the one listed first is reported as dominant.
var Pollutants = []Pollutant{PM25, PM10, O3, NO2, SO2, CO}

// priority returns the tie-break rank of p; lower ranks win.
func (p Pollutant) priority() int {
	for i, known := range Pollutants {
		if p == known {
			return i
		}
	}
	return len(Pollutants)
}

// outranks reports whether p wins a sub-index tie against q. Pollutants
// outside the priority list fall back to name order.
func (p Pollutant) outranks(q Pollutant) bool {
	pp, qp := p.priority(), q.priority()
	if pp != qp {
		return pp < qp
	}
	return p < q
}

// Location is a monitored place. Name is the registry key.
type Location struct {
	Name      string  `json:"name" validate:"required"`
	Country   string  `json:"country"`
	City      string  `json:"city,omitempty"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"latitude" validate:"gte=-90,lte=90"`
	Longitude float64 `json:"longitude" validate:"gte=-180,lte=180"`
}

// PollutantReading is a single concentration measurement produced by a Collector.
type PollutantReading struct {
	Pollutant     Pollutant `json:"pollutant"`
	Concentration float64   `json:"concentration"`
	Unit          string    `json:"unit"`
	ObservedAt    time.Time `json:"observed_at"`
}

// Category is a named AQI band with an inclusive range.
type Category struct {
	Name   string `json:"name" mapstructure:"name" validate:"required"`
	MinAQI int    `json:"min_aqi" mapstructure:"min_aqi"`
	MaxAQI int    `json:"max_aqi" mapstructure:"max_aqi"`
	Color  string `json:"color" mapstructure:"color"`
}

// SkippedReading records a reading that did not contribute to a result.
type SkippedReading struct {
	Pollutant Pollutant `json:"pollutant"`
	Reason    string    `json:"reason"`
}

// AQIResult is the computed index for one location.
type AQIResult struct {
	Location          Location
	AQI               int
	Category          Category
	DominantPollutant Pollutant
	SubIndices        map[Pollutant]int
	Readings          []PollutantReading
	Skipped           []SkippedReading
	Source            string
	ComputedAt        time.Time
}

// Snapshot is the complete per-location outcome of one refresh.
type Snapshot struct {
	ID          string            `json:"snapshot_id"`
	RefreshedAt time.Time         `json:"refreshed_at"`
	TTL         time.Duration     `json:"-"`
	Reports     map[string]Report `json:"locations"`
}

// Stale reports whether the snapshot is older than its TTL at now.
// A snapshot that was never refreshed is always stale.
func (s Snapshot) Stale(now time.Time) bool {
	if s.RefreshedAt.IsZero() {
		return true
	}
	return s.TTL > 0 && now.Sub(s.RefreshedAt) > s.TTL
}

// Alert flags a location whose AQI reached the configured threshold.
type Alert struct {
	Location  Location  `json:"location"`
	AQI       int       `json:"aqi"`
	Category  Category  `json:"category"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
	Active    bool      `json:"active"`
}
