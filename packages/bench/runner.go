package bench

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/abdul-hamid-achik/rqn/packages/http"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// Requester is the part of http.Client a run needs.
type Requester interface {
	Request(ctx context.Context, method, rawURL string, opts *http.RequestOptions) (*http.Response, error)
}

// Runner executes bench runs
type Runner struct {
	config    *Config
	client    Requester
	scheduler *Scheduler
	metrics   *Metrics
	logger    zerolog.Logger
}

// RunnerOption configures the runner
type RunnerOption func(*Runner)

// WithClient sets the client requests are sent through
func WithClient(client Requester) RunnerOption {
	return func(r *Runner) {
		r.client = client
	}
}

func WithLogger(logger zerolog.Logger) RunnerOption {
	return func(r *Runner) {
		r.logger = logger
	}
}

func NewRunner(config *Config, opts ...RunnerOption) *Runner {
	r := &Runner{
		config:  config,
		metrics: NewMetrics(),
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.client == nil {
		r.client = http.NewClient()
	}
	r.scheduler = NewScheduler(config.Rate, config.MaxConcurrency)
	return r
}

// Result holds the final result of a run
type Result struct {
	RunID      string
	Summary    *Summary
	Thresholds []ThresholdResult
	Passed     bool
}

// Run sends requests until the configured duration elapses or ctx is done,
// then waits for in-flight requests and summarizes.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
	if err := r.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	runID := uuid.New().String()
	logger := r.logger.With().Str("run", runID).Logger()
	logger.Debug().
		Str("method", r.config.Method).
		Str("url", r.config.URL).
		Float64("rate", r.config.Rate).
		Dur("duration", r.config.Duration).
		Msg("bench started")

	ctx, cancel := context.WithTimeout(ctx, r.config.Duration)
	defer cancel()

	r.metrics.Start()
	r.loop(ctx)
	r.metrics.Stop()

	summary := r.metrics.GetSummary()
	thresholds := r.config.Thresholds.Evaluate(summary)
	passed := true
	for _, tr := range thresholds {
		if !tr.Passed {
			passed = false
			break
		}
	}

	logger.Debug().
		Int64("requests", summary.TotalRequests).
		Int64("errors", summary.ErrorCount).
		Msg("bench finished")

	return &Result{
		RunID:      runID,
		Summary:    summary,
		Thresholds: thresholds,
		Passed:     passed,
	}, nil
}

func (r *Runner) loop(ctx context.Context) {
	var wg sync.WaitGroup
	defer wg.Wait()

	for {
		if err := r.scheduler.Wait(ctx); err != nil {
			return
		}
		if err := r.scheduler.Acquire(ctx); err != nil {
			return
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			defer r.scheduler.Release()
			r.execute(ctx)
		}()
	}
}

func (r *Runner) execute(ctx context.Context) {
	start := time.Now()
	resp, err := r.client.Request(ctx, r.config.Method, r.config.URL, r.config.Options)
	duration := time.Since(start)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
			r.metrics.RecordTimeout()
			return
		}
		r.logger.Debug().Err(err).Msg("bench request failed")
		r.metrics.Record(duration, 0, err)
		return
	}
	r.metrics.Record(duration, resp.StatusCode, nil)
}
