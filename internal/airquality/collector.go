package airquality

import (
	"context"
	"time"
)

// Collector abstracts a source of pollutant readings (simulation, remote
// provider, ...). Implementations must honour ctx cancellation where they block.
type Collector interface {
	Name() string
	Fetch(ctx context.Context, loc Location) ([]PollutantReading, error)
}

// Store is the contract the snapshot cache must satisfy.
type Store interface {
	Save(snapshot Snapshot)
	Latest() (Snapshot, error)
	Range(from, to time.Time) ([]Snapshot, error)
}
