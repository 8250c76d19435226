package transport

import (
	"context"
	"errors"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/metrics"
)

// Attempter is the single wire operation RunWithRetry drives through
// the attempt/timeout/probe/reconnect state machine: run once and
// report whether the transport itself needs to be re-established
// before the next attempt.
type Attempter interface {
	// Attempt performs one try of the operation. deadline is the point
	// in time this attempt must complete by.
	Attempt(ctx context.Context, deadline time.Time) (string, error)
	// Alive reports whether the underlying connection still looks
	// reachable, used to decide whether a non-timeout error needs a
	// reconnect before retrying.
	Alive(ctx context.Context) bool
	// Reconnect re-establishes the underlying connection.
	Reconnect(ctx context.Context) error
}

// RunWithRetry drives a: attempts up to retries+1 times total. Auth and
// argument errors are never retried. Timeouts and connection errors
// count against retries; a connection error additionally probes
// liveness and reconnects before the next attempt. File integrity
// errors are the caller's responsibility to surface without retry (see
// PullFile/PushFile) and never reach this loop.
func RunWithRetry(ctx context.Context, command string, retries int, timeout time.Duration, a Attempter, log *logging.Logger, m *metrics.Metrics, transportKind string) (string, error) {
	if log == nil {
		log = logging.Noop()
	}
	if m == nil {
		m = metrics.Noop()
	}
	if retries < 0 {
		retries = 0
	}
	attempts := retries + 1

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if attempt > 1 {
			log.Debug("retrying command", "command", command, "attempt", attempt, "of", attempts, "previous_error", lastErr)
			m.RecordRetry(transportKind)
		}

		start := time.Now()
		deadline := start.Add(timeout)
		out, err := a.Attempt(ctx, deadline)
		m.ObserveCommandDuration(transportKind, time.Since(start).Seconds())
		if err == nil {
			return out, nil
		}
		lastErr = err

		var authErr *AuthenticationError
		var argErr *ArgumentError
		if errors.As(err, &authErr) {
			m.RecordError(transportKind, "AuthenticationError")
			return "", err
		}
		if errors.As(err, &argErr) {
			m.RecordError(transportKind, "ArgumentError")
			return "", err
		}

		var timeoutErr *TimeoutError
		if errors.As(err, &timeoutErr) {
			continue
		}

		var connErr *ConnectionError
		if errors.As(err, &connErr) {
			if !a.Alive(ctx) {
				log.Warn("transport connection lost, reconnecting", "command", command)
				m.RecordReconnect(transportKind)
				if rerr := a.Reconnect(ctx); rerr != nil {
					lastErr = &ConnectionError{Err: rerr}
				}
			}
			continue
		}
	}

	m.RecordError(transportKind, "ExhaustedError")
	return "", &ExhaustedError{Command: command, Attempts: attempts, Err: lastErr}
}
