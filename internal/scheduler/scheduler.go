package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	log "github.com/sirupsen/logrus"
)

// Sweeper drops expired cache entries.
type Sweeper interface {
	Sweep() int
}

// Warmer prefetches weather for a list of cities.
type Warmer interface {
	WarmUp(ctx context.Context, cities []string)
}

// Scheduler runs the background cache maintenance jobs.
type Scheduler struct {
	scheduler *gocron.Scheduler
}

// New creates a new Scheduler.
func New() *Scheduler {
	return &Scheduler{scheduler: gocron.NewScheduler(time.UTC)}
}

// Sweep evicts expired entries from s every interval.
func (s *Scheduler) Sweep(sw Sweeper, interval time.Duration) error {
	if interval <= 0 {
		interval = time.Minute
	}
	_, err := s.scheduler.Every(interval).Do(func() {
		if n := sw.Sweep(); n > 0 {
			log.WithFields(log.Fields{"evicted": n}).Debug("scheduler: swept payload cache")
		}
	})
	return err
}

// Warm refetches cities every interval, starting immediately, so their
// payloads are in the cache before anyone asks.
func (s *Scheduler) Warm(w Warmer, cities []string, interval time.Duration) error {
	if len(cities) == 0 {
		log.Info("scheduler: no warm-up cities configured; nothing to schedule")
		return nil
	}

	minutes := int(interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.WithFields(log.Fields{"cities": len(cities)}).Info("scheduler: running warm-up job")

		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		w.WarmUp(ctx, cities)
		log.Info("scheduler: completed warm-up job")
	})
	return err
}

// Start starts the underlying scheduler.
func (s *Scheduler) Start() {
	s.scheduler.StartAsync()
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
