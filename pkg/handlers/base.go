// Package handlers glues transport, parsers, and the sampling engine
// together into the per-device-family query surface: one-shot getters
// and start/stop background samplers for CPU, memory, disk, and
// network metrics, both system-wide and per-process.
package handlers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/metrics"
	"github.com/jihwankim/remoteperf/pkg/sampler"
	"github.com/jihwankim/remoteperf/pkg/transport"
)

// engineHandle adapts a sampler.Engine[R, P] to the type-erased
// stoppable interface so Base's registry can hold samplers of
// differing result types side by side.
type engineHandle[R, P any] struct {
	engine *sampler.Engine[R, P]
}

func (h engineHandle[R, P]) stopAny() (any, error)    { return h.engine.Stop() }
func (h engineHandle[R, P]) resultsAny() (any, error) { return h.engine.Results() }

// stopTyped stops the sampler registered under kind and asserts its
// results back to []T, the concrete type only the caller (a specific
// handler method) knows.
func stopTyped[T any](b *Base, kind string) ([]T, error) {
	out, err := b.stopSampler(kind)
	if err != nil {
		return nil, err
	}
	typed, ok := out.([]T)
	if !ok {
		return nil, fmt.Errorf("sampler %q returned unexpected result type %T", kind, out)
	}
	return typed, nil
}

// nonexistentSeparator is both an argument guaranteed to make a shell
// command fail with a consistent "No such file or directory" message,
// and (not coincidentally) a delimiter reserved_token that cannot
// appear in legitimate /proc output — reused to split per-process
// command batches that concatenate many files into one round trip.
const nonexistentSeparator = "e39f7761903b"

// stoppable type-erases a running sampler.Engine[T] so Base can hold a
// single registry across samplers of different result types; the
// owning handler knows T and recovers it with a type assertion.
type stoppable interface {
	stopAny() (any, error)
	resultsAny() (any, error)
}

// Base holds the scaffolding every device-family handler shares: the
// transport connection, its logger, and the registry of currently
// running background samplers keyed by kind ("cpu", "mem_proc", ...).
type Base struct {
	Transport transport.Transport
	Log       *logging.Logger
	Metrics   *metrics.Metrics
	Family    string

	mu      sync.Mutex
	running map[string]stoppable
}

// NewBase builds handler scaffolding around an already-open transport.
// family labels this handler's metrics ("linux", "android", "qnx").
func NewBase(t transport.Transport, log *logging.Logger, family string) Base {
	if log == nil {
		log = logging.Noop()
	}
	return Base{Transport: t, Log: log, Metrics: metrics.Noop(), Family: family, running: make(map[string]stoppable)}
}

// SetMetrics directs this handler's active-sampler gauge to m instead
// of the no-op default.
func (b *Base) SetMetrics(m *metrics.Metrics) { b.Metrics = m }

// startSampler registers h under kind, failing if one is already
// running or if interval is not strictly positive. Mirrors the
// dispatch-by-kind shape used throughout the sampler start/stop
// surface: one map entry per active measurement.
func (b *Base) startSampler(kind string, interval time.Duration, h stoppable) error {
	if interval <= 0 {
		return &InvalidIntervalError{Kind: kind, Interval: interval}
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.running[kind]; ok {
		return &AlreadyRunningError{Kind: kind}
	}
	b.running[kind] = h
	b.Metrics.SamplerStarted(b.Family, kind)
	return nil
}

// stopSampler removes and stops the sampler registered under kind,
// returning its type-erased results.
func (b *Base) stopSampler(kind string) (any, error) {
	b.mu.Lock()
	h, ok := b.running[kind]
	if ok {
		delete(b.running, kind)
	}
	b.mu.Unlock()
	if !ok {
		return nil, &NotRunningError{Kind: kind}
	}
	b.Metrics.SamplerStopped(b.Family, kind)
	return h.stopAny()
}

// peekSampler returns the current results of a running sampler without
// stopping it.
func (b *Base) peekSampler(kind string) (any, error) {
	b.mu.Lock()
	h, ok := b.running[kind]
	b.mu.Unlock()
	if !ok {
		return nil, &NotRunningError{Kind: kind}
	}
	return h.resultsAny()
}

func (b *Base) run(ctx context.Context, command string) (string, error) {
	out, err := b.Transport.RunCommand(ctx, command)
	if err != nil {
		return "", fmt.Errorf("command %q failed: %w", command, err)
	}
	return out, nil
}
