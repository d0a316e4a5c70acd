package scheduler

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/i474232898/earth-imagery-service/internal/imagery"
	"github.com/i474232898/earth-imagery-service/internal/store"
)

// Scheduler periodically probes upstream provider health and records the
// results. Imagery requests themselves are never scheduled or cached; this
// only feeds the /health endpoint.
type Scheduler struct {
	scheduler *gocron.Scheduler
	providers []imagery.Provider
	results   *store.MemoryStore
	interval  time.Duration
}

// New creates a new Scheduler.
func New(providers []imagery.Provider, interval time.Duration, results *store.MemoryStore) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		providers: providers,
		results:   results,
		interval:  interval,
	}
}

// Start schedules the periodic probe job and starts the underlying
// scheduler.
func (s *Scheduler) Start() error {
	if len(s.providers) == 0 {
		log.Println("scheduler: no providers configured; nothing to probe")
		return nil
	}

	minutes := int(s.interval.Minutes())
	if minutes <= 0 {
		minutes = 15
	}

	_, err := s.scheduler.Every(minutes).Minutes().Do(func() {
		log.Println("scheduler: running provider health probes")

		var wg sync.WaitGroup
		for _, p := range s.providers {
			p := p
			wg.Add(1)
			go func() {
				defer wg.Done()

				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				defer cancel()

				result := store.ProbeResult{
					Provider:  p.Name(),
					Timestamp: time.Now().UTC(),
					Healthy:   true,
				}
				if err := p.Probe(ctx); err != nil {
					log.Printf("scheduler: probe failed for %s: %v", p.Name(), err)
					result.Healthy = false
					result.Detail = err.Error()
				}
				s.results.SaveProbe(result)
			}()
		}
		wg.Wait()
		log.Println("scheduler: completed provider health probes")
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
