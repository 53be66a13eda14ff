// Package geocode resolves coordinates for configured locations that only
// name a city.
package geocode

import (
	"errors"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
)

// ErrNoResult is returned when the geocoder cannot place an address.
var ErrNoResult = errors.New("geocode: no result")

// Query is the address of a location to resolve.
type Query struct {
	City    string
	State   string
	Country string
}

// Resolver turns an address into latitude and longitude.
type Resolver interface {
	Resolve(q Query) (lat, lon float64, err error)
}

// GoogleResolver uses the Google Maps geocoding API through kelvins/geocoder.
type GoogleResolver struct {
	apiKey string
}

// The geocoder package keeps its API key in a package variable.
var keyMu sync.Mutex

// lookup is replaced in tests.
var lookup = geocoder.Geocoding

// NewGoogleResolver creates a resolver authenticated with apiKey.
func NewGoogleResolver(apiKey string) *GoogleResolver {
	return &GoogleResolver{apiKey: apiKey}
}

func (r *GoogleResolver) Resolve(q Query) (float64, float64, error) {
	if q.City == "" {
		return 0, 0, fmt.Errorf("geocode: city is required")
	}

	keyMu.Lock()
	defer keyMu.Unlock()
	geocoder.ApiKey = r.apiKey

	loc, err := lookup(geocoder.Address{
		City:    q.City,
		State:   q.State,
		Country: q.Country,
	})
	if err != nil {
		return 0, 0, fmt.Errorf("geocode: %s, %s: %w", q.City, q.Country, err)
	}
	if loc.Latitude == 0 && loc.Longitude == 0 {
		return 0, 0, fmt.Errorf("%w for %s, %s", ErrNoResult, q.City, q.Country)
	}
	return loc.Latitude, loc.Longitude, nil
}
