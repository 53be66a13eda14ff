package store

import (
	"errors"
	"maps"
	"sync"
	"time"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

var (
	// ErrNotFound is returned when no snapshot is available.
	ErrNotFound = errors.New("no air quality snapshot available")
)

// MemoryStore is a concurrency-safe in-memory snapshot cache. The latest
// snapshot is replaced in one step so readers never see a partial refresh.
type MemoryStore struct {
	mu sync.RWMutex

	// oldest first; the last element is the latest snapshot
	history []airquality.Snapshot

	// retention configuration
	maxHistory int           // max number of snapshots kept
	maxAge     time.Duration // optional max age for snapshots
	now        func() time.Time
}

// NewMemoryStore creates a new MemoryStore with optional limits.
// If maxHistory is <= 0, it is treated as unlimited.
func NewMemoryStore(maxHistory int, maxAge time.Duration) *MemoryStore {
	return &MemoryStore{
		maxHistory: maxHistory,
		maxAge:     maxAge,
		now:        time.Now,
	}
}

// Save publishes snapshot as the latest one and enforces retention.
func (s *MemoryStore) Save(snapshot airquality.Snapshot) {
	snapshot.Reports = maps.Clone(snapshot.Reports)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.history = append(s.history, snapshot)

	// Enforce retention by count.
	if s.maxHistory > 0 && len(s.history) > s.maxHistory {
		over := len(s.history) - s.maxHistory
		s.history = append([]airquality.Snapshot(nil), s.history[over:]...)
	}

	// Enforce retention by age, always keeping the latest snapshot.
	if s.maxAge > 0 {
		cutoff := s.now().Add(-s.maxAge)
		i := 0
		for ; i < len(s.history)-1; i++ {
			if !s.history[i].RefreshedAt.Before(cutoff) {
				break
			}
		}
		if i > 0 {
			s.history = s.history[i:]
		}
	}
}

// Latest returns the most recently saved snapshot.
func (s *MemoryStore) Latest() (airquality.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.history) == 0 {
		return airquality.Snapshot{}, ErrNotFound
	}
	latest := s.history[len(s.history)-1]
	latest.Reports = maps.Clone(latest.Reports)
	return latest, nil
}

// Range returns all snapshots refreshed between from and to (inclusive).
func (s *MemoryStore) Range(from, to time.Time) ([]airquality.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []airquality.Snapshot
	for _, snap := range s.history {
		if !snap.RefreshedAt.Before(from) && !snap.RefreshedAt.After(to) {
			snap.Reports = maps.Clone(snap.Reports)
			result = append(result, snap)
		}
	}

	if len(result) == 0 {
		return nil, ErrNotFound
	}

	return result, nil
}
