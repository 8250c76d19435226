// Package sampler runs a user-supplied sampling function on a fixed
// cadence against a remote device and accumulates the results, either
// as-is or differenced through a fold function (e.g. turning two raw
// /proc/stat snapshots into one CPU-usage delta).
package sampler

import (
	"context"
	"sync"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
)

// SampleFunc takes one raw reading from the device.
type SampleFunc[R any] func(ctx context.Context) (R, error)

// FoldFunc differences a run of raw samples into zero or more
// processed records, returning the raw buffer that should carry
// forward into the next fold (typically just the last raw sample, so
// consecutive windows can still be differenced against each other).
// When R and P are the same type, a nil FoldFunc means "keep every raw
// sample as a processed record unchanged."
type FoldFunc[R, P any] func(raw []R) (processed []P, carry []R)

// Engine runs SampleFunc on a fixed cadence in a background goroutine
// and accumulates either the raw samples directly (R == P, no fold),
// or the output of Fold differencing raw readings of type R into
// processed records of type P (e.g. two /proc/stat snapshots folding
// into one CPU usage delta).
//
// The cadence deliberately does not use time.Ticker: last_run advances
// by exactly one interval each tick rather than being reset to "now",
// so a slow sample (or a paused process) doesn't let later ticks drift
// later and later relative to the schedule. The wait between samples
// is capped at interval/4 so Stop is responsive even with a long
// interval.
type Engine[R, P any] struct {
	interval time.Duration
	sample   SampleFunc[R]
	fold     FoldFunc[R, P]
	log      *logging.Logger

	mu        sync.Mutex
	running   bool
	stopCh    chan struct{}
	doneCh    chan struct{}
	raw       []R
	processed []P
	err       error
}

// New builds an Engine sampling at interval using fold to turn raw
// readings into processed records.
func New[R, P any](interval time.Duration, sample SampleFunc[R], fold FoldFunc[R, P], log *logging.Logger) *Engine[R, P] {
	if log == nil {
		log = logging.Noop()
	}
	return &Engine[R, P]{interval: interval, sample: sample, fold: fold, log: log}
}

// NewDirect builds an Engine with no differencing: every raw sample is
// kept as-is as a processed record.
func NewDirect[T any](interval time.Duration, sample SampleFunc[T], log *logging.Logger) *Engine[T, T] {
	return New[T, T](interval, sample, nil, log)
}

// Start launches the sampling loop. Calling Start on an already-running
// Engine is a no-op.
func (e *Engine[R, P]) Start(ctx context.Context) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return
	}
	e.running = true
	e.stopCh = make(chan struct{})
	e.doneCh = make(chan struct{})
	e.mu.Unlock()

	go e.run(ctx)
}

func (e *Engine[R, P]) run(ctx context.Context) {
	defer close(e.doneCh)

	lastRun := time.Now()
	e.takeSample(ctx)

	for {
		elapsed := time.Since(lastRun)
		if elapsed >= e.interval {
			lastRun = lastRun.Add(e.interval)
			e.takeSample(ctx)
			elapsed = time.Since(lastRun)
		}

		wait := e.interval - elapsed
		if quarter := e.interval / 4; wait > quarter {
			wait = quarter
		}
		if wait <= 0 {
			wait = time.Millisecond
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			e.finish()
			return
		case <-e.stopCh:
			timer.Stop()
			e.finish()
			return
		case <-timer.C:
		}
	}
}

// finish takes one more synchronous sample if a fold is configured but
// no processed record has been produced yet, so a sampler stopped
// before its first full window still returns at least one reading.
func (e *Engine[R, P]) finish() {
	e.mu.Lock()
	needsFinal := e.fold != nil && len(e.processed) == 0
	e.mu.Unlock()
	if needsFinal {
		e.takeSample(context.Background())
	}
}

func (e *Engine[R, P]) takeSample(ctx context.Context) {
	sample, err := e.sample(ctx)
	if err != nil {
		e.mu.Lock()
		e.err = err
		e.mu.Unlock()
		e.log.Warn("sample failed", "error", err)
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	e.raw = append(e.raw, sample)
	if e.fold == nil {
		if p, ok := any(sample).(P); ok {
			e.processed = append(e.processed, p)
		}
		return
	}
	processed, carry := e.fold(e.raw)
	e.processed = append(e.processed, processed...)
	e.raw = carry
}

// Results returns a snapshot of every processed record collected so
// far, without stopping the engine.
func (e *Engine[R, P]) Results() ([]P, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]P, len(e.processed))
	copy(out, e.processed)
	return out, e.err
}

// Stop halts the sampling loop, waits for it to finish its current
// tick, and returns every processed record collected.
func (e *Engine[R, P]) Stop() ([]P, error) {
	e.mu.Lock()
	if !e.running {
		e.mu.Unlock()
		return e.Results()
	}
	e.running = false
	stopCh := e.stopCh
	doneCh := e.doneCh
	e.mu.Unlock()

	close(stopCh)
	<-doneCh

	return e.Results()
}

// Running reports whether the sampling loop is active.
func (e *Engine[R, P]) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
