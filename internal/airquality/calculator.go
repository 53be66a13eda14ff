package airquality

import (
	"fmt"
	"log"
	"time"
)

// Calculator turns pollutant readings into AQI results. It has no state
// beyond its read-only tables and clock.
type Calculator struct {
	table      *BreakpointTable
	classifier *Classifier
	now        func() time.Time
}

// NewCalculator builds a calculator. A nil clock defaults to time.Now in UTC.
func NewCalculator(table *BreakpointTable, classifier *Classifier, now func() time.Time) *Calculator {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Calculator{
		table:      table,
		classifier: classifier,
		now:        now,
	}
}

// Classifier returns the classifier used for results.
func (c *Calculator) Classifier() *Classifier {
	return c.classifier
}

// SubIndex computes the index of a single pollutant concentration.
func (c *Calculator) SubIndex(p Pollutant, concentration float64) (int, error) {
	bp, conc, err := c.table.Lookup(p, concentration)
	if err != nil {
		return 0, err
	}
	return bp.Interpolate(conc), nil
}

// Compute aggregates readings into a single result for loc. Readings whose
// sub-index cannot be computed are skipped and listed in the result.
// The overall AQI is the highest sub-index; ties go to the pollutant that
// comes first in Pollutants.
func (c *Calculator) Compute(loc Location, readings []PollutantReading) (AQIResult, error) {
	if len(readings) == 0 {
		return AQIResult{}, fmt.Errorf("%s: %w", loc.Name, ErrNoReadings)
	}

	subIndices := make(map[Pollutant]int, len(readings))
	var skipped []SkippedReading

	for _, r := range readings {
		idx, err := c.SubIndex(r.Pollutant, r.Concentration)
		if err != nil {
			log.Printf("DEBUG: skipping %s reading for %s: %v", r.Pollutant, loc.Name, err)
			skipped = append(skipped, SkippedReading{Pollutant: r.Pollutant, Reason: err.Error()})
			continue
		}
		if prev, ok := subIndices[r.Pollutant]; !ok || idx > prev {
			subIndices[r.Pollutant] = idx
		}
	}

	if len(subIndices) == 0 {
		return AQIResult{}, fmt.Errorf("%s: all %d readings skipped: %w", loc.Name, len(readings), ErrNoReadings)
	}

	var (
		aqi      int
		dominant Pollutant
		seeded   bool
	)
	for p, idx := range subIndices {
		if !seeded || idx > aqi || (idx == aqi && p.outranks(dominant)) {
			seeded = true
			aqi = idx
			dominant = p
		}
	}

	kept := make([]PollutantReading, len(readings))
	copy(kept, readings)

	return AQIResult{
		Location:          loc,
		AQI:               aqi,
		Category:          c.classifier.Classify(aqi),
		DominantPollutant: dominant,
		SubIndices:        subIndices,
		Readings:          kept,
		Skipped:           skipped,
		ComputedAt:        c.now(),
	}, nil
}
