package bench

import (
	"context"

	"golang.org/x/time/rate"
)

// Scheduler paces request starts and caps how many are in flight.
type Scheduler struct {
	limiter *rate.Limiter
	sem     chan struct{}
}

func NewScheduler(requestsPerSecond float64, maxConcurrency int) *Scheduler {
	if maxConcurrency < 1 {
		maxConcurrency = 1
	}
	return &Scheduler{
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), 1),
		sem:     make(chan struct{}, maxConcurrency),
	}
}

// Wait blocks until the next request may start.
func (s *Scheduler) Wait(ctx context.Context) error {
	return s.limiter.Wait(ctx)
}

// Acquire takes an in-flight slot.
func (s *Scheduler) Acquire(ctx context.Context) error {
	select {
	case s.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) Release() {
	<-s.sem
}

// InFlight reports how many slots are taken.
func (s *Scheduler) InFlight() int {
	return len(s.sem)
}

func (s *Scheduler) SetRate(requestsPerSecond float64) {
	if requestsPerSecond > 0 {
		s.limiter.SetLimit(rate.Limit(requestsPerSecond))
	}
}
