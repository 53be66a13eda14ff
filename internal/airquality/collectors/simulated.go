package collectors

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"math"
	"math/rand"
	"time"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

// DefaultBucket is the window inside which simulated readings stay constant.
const DefaultBucket = 5 * time.Minute

// Profile describes the typical pollution level of a simulated location.
type Profile struct {
	BaseAQI   float64
	Variation float64
}

var defaultProfile = Profile{BaseAQI: 75, Variation: 20}

// DefaultProfiles returns the built-in per-city profiles.
func DefaultProfiles() map[string]Profile {
	return map[string]Profile{
		"New York":    {BaseAQI: 75, Variation: 20},
		"Los Angeles": {BaseAQI: 95, Variation: 25},
		"Beijing":     {BaseAQI: 155, Variation: 40},
		"London":      {BaseAQI: 65, Variation: 15},
		"Delhi":       {BaseAQI: 180, Variation: 50},
		"Tokyo":       {BaseAQI: 55, Variation: 15},
	}
}

// SimulatedCollector generates plausible readings without any I/O. The random
// source is seeded from the location name and the current time bucket, so
// calls within one bucket return identical readings.
type SimulatedCollector struct {
	bucket   time.Duration
	profiles map[string]Profile
	now      func() time.Time
}

// NewSimulatedCollector creates a simulated collector. Zero bucket and nil
// clock or profiles fall back to the defaults.
func NewSimulatedCollector(bucket time.Duration, now func() time.Time, profiles map[string]Profile) *SimulatedCollector {
	if bucket <= 0 {
		bucket = DefaultBucket
	}
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	if profiles == nil {
		profiles = DefaultProfiles()
	}
	return &SimulatedCollector{
		bucket:   bucket,
		profiles: profiles,
		now:      now,
	}
}

func (c *SimulatedCollector) Name() string {
	return "simulated"
}

func (c *SimulatedCollector) Fetch(ctx context.Context, loc airquality.Location) ([]airquality.PollutantReading, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	start := c.now().Truncate(c.bucket).UTC()
	rng := rand.New(rand.NewSource(seed(loc.Name, start)))

	p, ok := c.profiles[loc.Name]
	if !ok {
		p = defaultProfile
	}

	pm25 := nonNegative(rng.NormFloat64()*p.Variation*0.2 + p.BaseAQI*0.4)
	pm10 := pm25 * (1.2 + rng.Float64()*0.8)
	o3 := nonNegative(rng.NormFloat64()*0.02 + 0.05)
	no2 := nonNegative(rng.NormFloat64()*15 + 40)
	so2 := nonNegative(rng.NormFloat64()*5 + 10)
	co := nonNegative(rng.NormFloat64()*0.3 + 0.8)

	reading := func(pollutant airquality.Pollutant, v float64, unit string) airquality.PollutantReading {
		return airquality.PollutantReading{
			Pollutant:     pollutant,
			Concentration: v,
			Unit:          unit,
			ObservedAt:    start,
		}
	}

	return []airquality.PollutantReading{
		reading(airquality.PM25, pm25, airquality.UnitMicrogramsPerM3),
		reading(airquality.PM10, pm10, airquality.UnitMicrogramsPerM3),
		reading(airquality.O3, o3, airquality.UnitPPM),
		reading(airquality.NO2, no2, airquality.UnitPPB),
		reading(airquality.SO2, so2, airquality.UnitPPB),
		reading(airquality.CO, co, airquality.UnitPPM),
	}, nil
}

func seed(name string, bucketStart time.Time) int64 {
	h := fnv.New64a()
	h.Write([]byte(name))
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], uint64(bucketStart.Unix()))
	h.Write(buf[:])
	return int64(h.Sum64())
}

func nonNegative(v float64) float64 {
	return math.Max(0, v)
}
