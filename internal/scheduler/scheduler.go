package scheduler

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/aqi-monitor/internal/airquality"
)

// DefaultInterval is used when no positive refresh interval is configured.
const DefaultInterval = 5 * time.Minute

// Refresher is the part of airquality.Service the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context) (airquality.Snapshot, error)
}

// Scheduler periodically refreshes all monitored locations.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   Refresher
	interval  time.Duration

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a new Scheduler.
func New(service Refresher, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		scheduler: gocron.NewScheduler(time.UTC),
		service:   service,
		interval:  interval,
		ctx:       ctx,
		cancel:    cancel,
	}
}

// Start schedules the refresh job and starts the underlying scheduler. The
// first run happens immediately; a run still in progress when the next tick
// fires makes that tick a no-op.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run)
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	log.Printf("scheduler: refreshing every %s", s.interval)
	return nil
}

func (s *Scheduler) run() {
	log.Println("scheduler: running air quality refresh job")

	snapshot, err := s.service.Refresh(s.ctx)
	if err != nil {
		log.Printf("scheduler: refresh failed: %v", err)
		return
	}
	log.Printf("scheduler: completed refresh %s (%d locations)", snapshot.ID, len(snapshot.Reports))
}

// Stop cancels any running refresh wait and stops future jobs.
func (s *Scheduler) Stop() {
	s.cancel()
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
