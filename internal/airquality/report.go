package airquality

import (
	"encoding/json"
	"maps"
	"slices"
	"time"
)

// Report holds the outcome of one location for one refresh: either an
// AQIResult or a CollectionError, never both. Build it with NewResultReport
// or NewFailureReport.
type Report struct {
	result  *AQIResult
	failure *CollectionError
}

// NewResultReport wraps a copy of a successful result.
func NewResultReport(r AQIResult) Report {
	r = r.clone()
	return Report{result: &r}
}

// NewFailureReport wraps a collection failure.
func NewFailureReport(e CollectionError) Report {
	return Report{failure: &e}
}

// Result returns a copy of the successful result, if any. Callers may
// modify it freely.
func (r Report) Result() (AQIResult, bool) {
	if r.result == nil {
		return AQIResult{}, false
	}
	return r.result.clone(), true
}

func (r AQIResult) clone() AQIResult {
	r.SubIndices = maps.Clone(r.SubIndices)
	r.Readings = slices.Clone(r.Readings)
	r.Skipped = slices.Clone(r.Skipped)
	return r
}

// Failure returns the collection error, if any.
func (r Report) Failure() (CollectionError, bool) {
	if r.failure == nil {
		return CollectionError{}, false
	}
	return *r.failure, true
}

// Location returns the location the report belongs to.
func (r Report) Location() Location {
	switch {
	case r.result != nil:
		return r.result.Location
	case r.failure != nil:
		return r.failure.Location
	default:
		return Location{}
	}
}

type categoryView struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

type resultView struct {
	Location          Location           `json:"location"`
	AQI               int                `json:"aqi"`
	Category          categoryView       `json:"category"`
	DominantPollutant Pollutant          `json:"dominant_pollutant"`
	SubIndices        map[Pollutant]int  `json:"sub_indices,omitempty"`
	Readings          []PollutantReading `json:"readings,omitempty"`
	Skipped           []SkippedReading   `json:"skipped,omitempty"`
	Source            string             `json:"source,omitempty"`
	Timestamp         time.Time          `json:"timestamp"`
}

type failureView struct {
	Location Location  `json:"location"`
	Error    string    `json:"error"`
	Kind     ErrorKind `json:"kind"`
}

// MarshalJSON renders either the result shape or the error shape.
func (r Report) MarshalJSON() ([]byte, error) {
	switch {
	case r.result != nil:
		res := r.result
		return json.Marshal(resultView{
			Location:          res.Location,
			AQI:               res.AQI,
			Category:          categoryView{Name: res.Category.Name, Color: res.Category.Color},
			DominantPollutant: res.DominantPollutant,
			SubIndices:        res.SubIndices,
			Readings:          res.Readings,
			Skipped:           res.Skipped,
			Source:            res.Source,
			Timestamp:         res.ComputedAt,
		})
	case r.failure != nil:
		return json.Marshal(failureView{
			Location: r.failure.Location,
			Error:    r.failure.Message,
			Kind:     r.failure.Kind,
		})
	default:
		return []byte("null"), nil
	}
}
