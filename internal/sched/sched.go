// Package sched runs a job on a success/failure cadence forever
package sched

import (
	"context"
	"sync"
	"time"

	"replywatch/internal/platform/logger"
)

// Job is one unit of periodic work
type Job interface {
	RunOnce(ctx context.Context) error
}

// JobFunc adapts a function to Job
type JobFunc func(ctx context.Context) error

// RunOnce calls the underlying function
func (f JobFunc) RunOnce(ctx context.Context) error { return f(ctx) }

// Health is a snapshot of the runner state for status endpoints
type Health struct {
	LastRun  time.Time
	LastErr  error
	RunCount int64
}

// Runner arms the next run only after the current one completes, with a
// short delay after success and a long one after failure. There is never
// more than one run in flight
type Runner struct {
	name  string
	job   Job
	short time.Duration
	long  time.Duration
	log   logger.Logger

	mu     sync.Mutex
	health Health
}

// NewRunner builds a Runner for job under name
func NewRunner(name string, job Job, short, long time.Duration) *Runner {
	return &Runner{
		name:  name,
		job:   job,
		short: short,
		long:  long,
		log:   *logger.Named(name),
	}
}

// Run executes the loop until ctx is cancelled. Errors from the job are
// recorded and logged, never returned; the loop always reschedules
func (r *Runner) Run(ctx context.Context) error {
	for {
		start := time.Now()
		err := r.job.RunOnce(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		delay := r.short
		if err != nil {
			delay = r.long
			r.log.Error().Err(err).Dur("elapsed", time.Since(start)).Dur("retry_in", delay).Msg("run failed")
		} else {
			r.log.Debug().Dur("elapsed", time.Since(start)).Dur("next_in", delay).Msg("run done")
		}
		r.record(err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// Health reports the last run outcome
func (r *Runner) Health() Health {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.health
}

func (r *Runner) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.health.LastRun = time.Now()
	r.health.LastErr = err
	r.health.RunCount++
}
