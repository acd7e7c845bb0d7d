package app

import (
	"fmt"
	"log"

	"github.com/robfig/cron/v3"
)

// Scheduler runs the periodic refresh on a fixed interval.
type Scheduler struct {
	cron *cron.Cron
}

// NewScheduler creates a scheduler in the configured timezone.
func NewScheduler() *Scheduler {
	return &Scheduler{cron: cron.New(cron.WithLocation(Location))}
}

// Start registers the refresh job and starts the cron loop. The first
// refresh is expected to have run already; the cron only handles the
// periodic ticks.
func (s *Scheduler) Start() error {
	spec := fmt.Sprintf("@every %s", UpdateInterval)
	if _, err := s.cron.AddFunc(spec, func() {
		if err := Refresh(); err != nil {
			log.Printf("Scheduled refresh failed: %v", err)
		}
	}); err != nil {
		return fmt.Errorf("add refresh job: %w", err)
	}

	s.cron.Start()
	log.Printf("Scheduler started (interval: %s, TZ: %s)", UpdateInterval, Location)
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("Scheduler stopped")
}
