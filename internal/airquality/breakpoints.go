package airquality

import (
	"fmt"
	"math"
)

// Concentration units used by the breakpoint tables.
const (
	UnitMicrogramsPerM3 = "µg/m³"
	UnitPPM             = "ppm"
	UnitPPB             = "ppb"
)

// Breakpoint maps the concentration range [ConcLow, ConcHigh] linearly onto
// the index range [AQILow, AQIHigh].
type Breakpoint struct {
	ConcLow  float64
	ConcHigh float64
	AQILow   int
	AQIHigh  int
}

// MaxSubIndex caps extrapolated sub-indices so they always fit in an int.
const MaxSubIndex = math.MaxInt32

// Interpolate applies the EPA formula to c and rounds to the nearest integer.
// Concentrations above ConcHigh extrapolate along the same slope, saturating
// at MaxSubIndex.
func (b Breakpoint) Interpolate(c float64) int {
	slope := float64(b.AQIHigh-b.AQILow) / (b.ConcHigh - b.ConcLow)
	v := math.Round(float64(b.AQILow) + slope*(c-b.ConcLow))
	if v > MaxSubIndex || math.IsNaN(v) {
		return MaxSubIndex
	}
	return int(v)
}

// PollutantTable is the breakpoint scale of a single pollutant.
// Precision is the number of decimals the published breakpoints use; the
// gap between two consecutive segments may not exceed one unit of it.
type PollutantTable struct {
	Pollutant   Pollutant
	Unit        string
	Precision   int
	Breakpoints []Breakpoint
}

func (t PollutantTable) step() float64 {
	return math.Pow(10, -float64(t.Precision))
}

func (t PollutantTable) validate() error {
	if len(t.Breakpoints) == 0 {
		return fmt.Errorf("%w: %s has no breakpoints", ErrConfiguration, t.Pollutant)
	}
	tolerance := t.step() + 1e-9
	for i, bp := range t.Breakpoints {
		if bp.ConcHigh <= bp.ConcLow || bp.AQIHigh <= bp.AQILow {
			return fmt.Errorf("%w: %s breakpoint %d is empty or inverted", ErrConfiguration, t.Pollutant, i)
		}
		if i == 0 {
			continue
		}
		prev := t.Breakpoints[i-1]
		gap := bp.ConcLow - prev.ConcHigh
		if gap <= 0 {
			return fmt.Errorf("%w: %s breakpoints %d and %d overlap", ErrConfiguration, t.Pollutant, i-1, i)
		}
		if gap > tolerance {
			return fmt.Errorf("%w: %s breakpoints %d and %d are not contiguous", ErrConfiguration, t.Pollutant, i-1, i)
		}
		if bp.AQILow <= prev.AQIHigh {
			return fmt.Errorf("%w: %s index ranges %d and %d overlap", ErrConfiguration, t.Pollutant, i-1, i)
		}
	}
	return nil
}

// BreakpointTable holds the breakpoint scales of all supported pollutants.
// It is read-only after construction.
type BreakpointTable struct {
	tables map[Pollutant]PollutantTable
}

// NewBreakpointTable validates and indexes the given scales.
func NewBreakpointTable(tables ...PollutantTable) (*BreakpointTable, error) {
	bt := &BreakpointTable{tables: make(map[Pollutant]PollutantTable, len(tables))}
	for _, t := range tables {
		if _, dup := bt.tables[t.Pollutant]; dup {
			return nil, fmt.Errorf("%w: duplicate table for %s", ErrConfiguration, t.Pollutant)
		}
		if err := t.validate(); err != nil {
			return nil, err
		}
		bps := make([]Breakpoint, len(t.Breakpoints))
		copy(bps, t.Breakpoints)
		t.Breakpoints = bps
		bt.tables[t.Pollutant] = t
	}
	return bt, nil
}

// Unit returns the concentration unit expected for p.
func (bt *BreakpointTable) Unit(p Pollutant) (string, bool) {
	t, ok := bt.tables[p]
	return t.Unit, ok
}

// Lookup returns the breakpoint covering concentration together with the
// concentration to interpolate. Values inside a segment are returned as is.
// Values that fall in the gap between two segments (54.5 for PM10) snap to
// the high end of the lower segment. Past the last breakpoint the last one
// is returned so interpolation extrapolates its slope.
func (bt *BreakpointTable) Lookup(p Pollutant, concentration float64) (Breakpoint, float64, error) {
	if concentration < 0 || math.IsNaN(concentration) || math.IsInf(concentration, 0) {
		return Breakpoint{}, 0, fmt.Errorf("%w: concentration %v for %s must be finite and non-negative", ErrInvalidInput, concentration, p)
	}
	t, ok := bt.tables[p]
	if !ok {
		return Breakpoint{}, 0, fmt.Errorf("%w: %q", ErrUnknownPollutant, p)
	}

	c := concentration
	for i, bp := range t.Breakpoints {
		if c > bp.ConcHigh {
			continue
		}
		if c >= bp.ConcLow {
			return bp, c, nil
		}
		if i == 0 {
			return bp, bp.ConcLow, nil
		}
		prev := t.Breakpoints[i-1]
		return prev, prev.ConcHigh, nil
	}
	return t.Breakpoints[len(t.Breakpoints)-1], c, nil
}

// DefaultBreakpoints returns the EPA breakpoint scales.
func DefaultBreakpoints() []PollutantTable {
	return []PollutantTable{
		{
			Pollutant: PM25, Unit: UnitMicrogramsPerM3, Precision: 1,
			Breakpoints: []Breakpoint{
				{0.0, 12.0, 0, 50},
				{12.1, 35.4, 51, 100},
				{35.5, 55.4, 101, 150},
				{55.5, 150.4, 151, 200},
				{150.5, 250.4, 201, 300},
				{250.5, 500.4, 301, 500},
			},
		},
		{
			Pollutant: PM10, Unit: UnitMicrogramsPerM3, Precision: 0,
			Breakpoints: []Breakpoint{
				{0, 54, 0, 50},
				{55, 154, 51, 100},
				{155, 254, 101, 150},
				{255, 354, 151, 200},
				{355, 424, 201, 300},
				{425, 604, 301, 500},
			},
		},
		{
			// 8-hour values, 1-hour values above 0.200 ppm.
			Pollutant: O3, Unit: UnitPPM, Precision: 3,
			Breakpoints: []Breakpoint{
				{0.000, 0.054, 0, 50},
				{0.055, 0.070, 51, 100},
				{0.071, 0.085, 101, 150},
				{0.086, 0.105, 151, 200},
				{0.106, 0.200, 201, 300},
				{0.201, 0.604, 301, 500},
			},
		},
		{
			Pollutant: NO2, Unit: UnitPPB, Precision: 0,
			Breakpoints: []Breakpoint{
				{0, 53, 0, 50},
				{54, 100, 51, 100},
				{101, 360, 101, 150},
				{361, 649, 151, 200},
				{650, 1249, 201, 300},
				{1250, 2049, 301, 500},
			},
		},
		{
			Pollutant: SO2, Unit: UnitPPB, Precision: 0,
			Breakpoints: []Breakpoint{
				{0, 35, 0, 50},
				{36, 75, 51, 100},
				{76, 185, 101, 150},
				{186, 304, 151, 200},
				{305, 604, 201, 300},
				{605, 1004, 301, 500},
			},
		},
		{
			Pollutant: CO, Unit: UnitPPM, Precision: 1,
			Breakpoints: []Breakpoint{
				{0.0, 4.4, 0, 50},
				{4.5, 9.4, 51, 100},
				{9.5, 12.4, 101, 150},
				{12.5, 15.4, 151, 200},
				{15.5, 30.4, 201, 300},
				{30.5, 50.4, 301, 500},
			},
		},
	}
}
