package airquality

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultWorkers      = 8
	DefaultFetchTimeout = 10 * time.Second
	DefaultTTL          = 300 * time.Second
	DefaultAlertMinAQI  = 101
)

// Options tunes the Service. Zero values fall back to the defaults above.
type Options struct {
	Workers      int
	FetchTimeout time.Duration
	TTL          time.Duration
	AlertMinAQI  int
	Now          func() time.Time
}

func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = DefaultWorkers
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = DefaultFetchTimeout
	}
	if o.TTL <= 0 {
		o.TTL = DefaultTTL
	}
	if o.AlertMinAQI <= 0 {
		o.AlertMinAQI = DefaultAlertMinAQI
	}
	if o.Now == nil {
		o.Now = func() time.Time { return time.Now().UTC() }
	}
	return o
}

// Service orchestrates the collector and calculator across all monitored
// locations and publishes the results as snapshots.
type Service struct {
	collector  Collector
	calculator *Calculator
	store      Store
	locations  []Location
	index      map[string]int
	opts       Options

	flight singleflight.Group
}

// NewService registers locations and wires the collaborators. Location names
// must be non-empty and unique (case-insensitive).
func NewService(collector Collector, calculator *Calculator, store Store, locations []Location, opts Options) (*Service, error) {
	if collector == nil || calculator == nil || store == nil {
		return nil, fmt.Errorf("%w: collector, calculator and store are required", ErrConfiguration)
	}

	s := &Service{
		collector:  collector,
		calculator: calculator,
		store:      store,
		locations:  make([]Location, 0, len(locations)),
		index:      make(map[string]int, len(locations)),
		opts:       opts.withDefaults(),
	}

	for _, loc := range locations {
		key := locationKey(loc.Name)
		if key == "" {
			return nil, fmt.Errorf("%w: location without a name", ErrConfiguration)
		}
		if _, dup := s.index[key]; dup {
			return nil, fmt.Errorf("%w: duplicate location %q", ErrConfiguration, loc.Name)
		}
		s.index[key] = len(s.locations)
		s.locations = append(s.locations, loc)
	}

	return s, nil
}

func locationKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// Refresh fetches and computes every location and publishes the new snapshot.
// Concurrent callers share a single in-flight pass. The pass itself is not
// cancelled by ctx; a caller whose ctx ends stops waiting and gets ctx.Err().
func (s *Service) Refresh(ctx context.Context) (Snapshot, error) {
	ch := s.flight.DoChan("refresh", func() (interface{}, error) {
		return s.refresh(context.WithoutCancel(ctx)), nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return Snapshot{}, res.Err
		}
		if res.Shared {
			log.Printf("DEBUG: refresh result shared between concurrent callers")
		}
		return res.Val.(Snapshot), nil
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Service) refresh(ctx context.Context) Snapshot {
	started := time.Now()
	log.Printf("service: refreshing %d locations with %s collector", len(s.locations), s.collector.Name())

	reports := make([]Report, len(s.locations))

	var g errgroup.Group
	g.SetLimit(s.opts.Workers)
	for i, loc := range s.locations {
		i, loc := i, loc
		g.Go(func() error {
			reports[i] = s.collect(ctx, loc)
			return nil
		})
	}
	_ = g.Wait()

	snapshot := Snapshot{
		ID:          uuid.NewString(),
		RefreshedAt: s.opts.Now(),
		TTL:         s.opts.TTL,
		Reports:     make(map[string]Report, len(reports)),
	}
	failed := 0
	for i, r := range reports {
		if _, ok := r.Failure(); ok {
			failed++
		}
		snapshot.Reports[s.locations[i].Name] = r
	}

	s.store.Save(snapshot)
	log.Printf("service: refresh %s done in %s (%d ok, %d failed)",
		snapshot.ID, time.Since(started).Round(time.Millisecond), len(reports)-failed, failed)

	return snapshot
}

// collect never returns an error: every failure becomes the location's report.
func (s *Service) collect(ctx context.Context, loc Location) Report {
	readings, err := s.fetch(ctx, loc)
	if err != nil {
		log.Printf("service: collector %s failed for %s: %v", s.collector.Name(), loc.Name, err)
		return NewFailureReport(*NewCollectionError(loc, err))
	}

	result, err := s.calculator.Compute(loc, readings)
	if err != nil {
		log.Printf("service: no AQI for %s: %v", loc.Name, err)
		return NewFailureReport(*NewCollectionError(loc, err))
	}
	result.Source = s.collector.Name()

	return NewResultReport(result)
}

type fetchOutcome struct {
	readings []PollutantReading
	err      error
}

// fetch bounds a single collector call by FetchTimeout. A collector that
// ignores its context is abandoned once the deadline passes.
func (s *Service) fetch(parent context.Context, loc Location) ([]PollutantReading, error) {
	ctx, cancel := context.WithTimeout(parent, s.opts.FetchTimeout)
	defer cancel()

	done := make(chan fetchOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- fetchOutcome{err: fmt.Errorf("%w: collector panic: %v", ErrCollectorUnavailable, r)}
			}
		}()
		readings, err := s.collector.Fetch(ctx, loc)
		done <- fetchOutcome{readings: readings, err: err}
	}()

	select {
	case out := <-done:
		if out.err != nil && errors.Is(ctx.Err(), context.DeadlineExceeded) && !errors.Is(out.err, ErrCollectorTimeout) {
			return nil, fmt.Errorf("%w after %s: %v", ErrCollectorTimeout, s.opts.FetchTimeout, out.err)
		}
		return out.readings, out.err
	case <-ctx.Done():
		return nil, fmt.Errorf("%w after %s", ErrCollectorTimeout, s.opts.FetchTimeout)
	}
}

// All returns the latest published snapshot without refreshing. Before the
// first refresh the snapshot is empty.
func (s *Service) All() Snapshot {
	snapshot, err := s.store.Latest()
	if err != nil {
		return Snapshot{TTL: s.opts.TTL, Reports: map[string]Report{}}
	}
	return snapshot
}

// One returns the cached report of a single location.
func (s *Service) One(name string) (Report, error) {
	loc, err := s.lookup(name)
	if err != nil {
		return Report{}, err
	}

	if r, ok := s.All().Reports[loc.Name]; ok {
		return r, nil
	}
	return NewFailureReport(CollectionError{
		Location: loc,
		Kind:     KindNoData,
		Message:  "awaiting first refresh",
	}), nil
}

// History returns the reports of one location across retained snapshots
// refreshed between from and to (inclusive), oldest first.
func (s *Service) History(name string, from, to time.Time) ([]Report, error) {
	loc, err := s.lookup(name)
	if err != nil {
		return nil, err
	}

	snapshots, err := s.store.Range(from, to)
	if err != nil {
		return nil, err
	}

	reports := make([]Report, 0, len(snapshots))
	for _, snap := range snapshots {
		if r, ok := snap.Reports[loc.Name]; ok {
			reports = append(reports, r)
		}
	}
	return reports, nil
}

// Alerts evaluates the latest snapshot against the alert threshold.
func (s *Service) Alerts() []Alert {
	return EvaluateAlerts(s.All(), s.opts.AlertMinAQI)
}

// Categories returns the category table in ascending order.
func (s *Service) Categories() []Category {
	return s.calculator.Classifier().Categories()
}

// Locations returns the registered locations in registration order.
func (s *Service) Locations() []Location {
	locs := make([]Location, len(s.locations))
	copy(locs, s.locations)
	return locs
}

// TTL is the informational freshness window of published snapshots.
func (s *Service) TTL() time.Duration {
	return s.opts.TTL
}

// Now returns the service clock's current time.
func (s *Service) Now() time.Time {
	return s.opts.Now()
}

func (s *Service) lookup(name string) (Location, error) {
	i, ok := s.index[locationKey(name)]
	if !ok {
		return Location{}, fmt.Errorf("%q: %w", name, ErrNotMonitored)
	}
	return s.locations[i], nil
}
