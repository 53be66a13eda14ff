package airquality

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput is returned for negative concentrations and other bad arguments.
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnknownPollutant is returned when a pollutant has no breakpoint table.
	// It also matches ErrInvalidInput.
	ErrUnknownPollutant = fmt.Errorf("%w: unknown pollutant", ErrInvalidInput)

	// ErrNoReadings is returned when a location has no usable reading.
	ErrNoReadings = errors.New("no usable readings")

	ErrCollectorTimeout     = errors.New("collector timed out")
	ErrCollectorResponse    = errors.New("malformed collector response")
	ErrCollectorUnavailable = errors.New("collector unavailable")

	// ErrNotMonitored is returned when a location name is not registered.
	ErrNotMonitored = errors.New("location not monitored")

	// ErrConfiguration marks startup configuration that must stop the process.
	ErrConfiguration = errors.New("invalid configuration")
)

// ErrorKind classifies a per-location collection failure.
type ErrorKind string

const (
	KindTimeout           ErrorKind = "timeout"
	KindMalformedResponse ErrorKind = "malformed-response"
	KindNoData            ErrorKind = "no-data"
	KindUnavailable       ErrorKind = "unavailable"
)

// CollectionError is the failure placeholder stored for a location when its
// refresh could not produce a result.
type CollectionError struct {
	Location Location
	Kind     ErrorKind
	Message  string
}

func (e *CollectionError) Error() string {
	return fmt.Sprintf("%s: %s: %s", e.Location.Name, e.Kind, e.Message)
}

// Unwrap maps the kind back to its sentinel so callers can use errors.Is.
func (e *CollectionError) Unwrap() error {
	switch e.Kind {
	case KindTimeout:
		return ErrCollectorTimeout
	case KindMalformedResponse:
		return ErrCollectorResponse
	case KindNoData:
		return ErrNoReadings
	default:
		return ErrCollectorUnavailable
	}
}

// NewCollectionError classifies err into a CollectionError for loc.
func NewCollectionError(loc Location, err error) *CollectionError {
	var ce *CollectionError
	if errors.As(err, &ce) {
		return &CollectionError{Location: loc, Kind: ce.Kind, Message: ce.Message}
	}

	kind := KindUnavailable
	switch {
	case errors.Is(err, ErrCollectorTimeout), errors.Is(err, context.DeadlineExceeded):
		kind = KindTimeout
	case errors.Is(err, ErrCollectorResponse):
		kind = KindMalformedResponse
	case errors.Is(err, ErrNoReadings), errors.Is(err, ErrInvalidInput):
		kind = KindNoData
	}
	return &CollectionError{Location: loc, Kind: kind, Message: err.Error()}
}
