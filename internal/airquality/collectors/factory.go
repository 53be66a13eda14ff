package collectors

import (
	"fmt"
	"net/http"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

// Options carries the settings any collector variant may need.
type Options struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string

	// Simulation settings.
	Bucket   time.Duration
	Profiles map[string]Profile
	Now      func() time.Time
}

// Constructor builds one collector variant.
type Constructor func(Options) (airquality.Collector, error)

var (
	registryMu sync.RWMutex
	registry   = map[string]Constructor{
		"simulated":      newSimulated,
		"openweathermap": newOpenWeather,
	}
)

// Register adds or replaces a collector variant under kind.
func Register(kind string, ctor Constructor) {
	registryMu.Lock()
	defer registryMu.Unlock()
	registry[strings.ToLower(kind)] = ctor
}

// Kinds lists the registered collector kinds.
func Kinds() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	kinds := make([]string, 0, len(registry))
	for k := range registry {
		kinds = append(kinds, k)
	}
	sort.Strings(kinds)
	return kinds
}

// New selects and builds the collector registered under kind.
func New(kind string, opts Options) (airquality.Collector, error) {
	registryMu.RLock()
	ctor, ok := registry[strings.ToLower(strings.TrimSpace(kind))]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: unknown collector %q (known: %s)",
			airquality.ErrConfiguration, kind, strings.Join(Kinds(), ", "))
	}
	return ctor(opts)
}

func newSimulated(opts Options) (airquality.Collector, error) {
	return NewSimulatedCollector(opts.Bucket, opts.Now, opts.Profiles), nil
}

func newOpenWeather(opts Options) (airquality.Collector, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: openweathermap collector requires an api key", airquality.ErrConfiguration)
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: airquality.DefaultFetchTimeout}
	}
	return NewOpenWeatherCollector(client, opts.APIKey, opts.BaseURL), nil
}
