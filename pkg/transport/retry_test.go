package transport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
)

type fakeAttempter struct {
	results    []fakeResult
	i          int
	aliveCalls int
	reconnects int
	alive      bool
}

type fakeResult struct {
	out string
	err error
}

func (f *fakeAttempter) Attempt(ctx context.Context, deadline time.Time) (string, error) {
	r := f.results[f.i]
	f.i++
	return r.out, r.err
}

func (f *fakeAttempter) Alive(ctx context.Context) bool {
	f.aliveCalls++
	return f.alive
}

func (f *fakeAttempter) Reconnect(ctx context.Context) error {
	f.reconnects++
	f.alive = true
	return nil
}

func TestRunWithRetrySucceedsFirstTry(t *testing.T) {
	a := &fakeAttempter{results: []fakeResult{{out: "ok"}}}
	out, err := RunWithRetry(context.Background(), "echo hi", 2, time.Second, a, nil, nil, "test")
	if err != nil || out != "ok" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestRunWithRetryRetriesOnTimeout(t *testing.T) {
	a := &fakeAttempter{results: []fakeResult{
		{err: &TimeoutError{Command: "x", Timeout: "1s"}},
		{out: "ok"},
	}}
	out, err := RunWithRetry(context.Background(), "x", 2, time.Second, a, nil, nil, "test")
	if err != nil || out != "ok" {
		t.Fatalf("got %q, %v", out, err)
	}
}

func TestRunWithRetryFailsImmediatelyOnAuthError(t *testing.T) {
	a := &fakeAttempter{results: []fakeResult{
		{err: &AuthenticationError{Host: "h", Err: errors.New("nope")}},
		{out: "should not be reached"},
	}}
	_, err := RunWithRetry(context.Background(), "x", 2, time.Second, a, nil, nil, "test")
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
	if a.i != 1 {
		t.Fatalf("expected exactly one attempt, got %d", a.i)
	}
}

func TestRunWithRetryReconnectsOnConnectionError(t *testing.T) {
	a := &fakeAttempter{alive: false, results: []fakeResult{
		{err: &ConnectionError{Err: errors.New("dropped")}},
		{out: "ok"},
	}}
	out, err := RunWithRetry(context.Background(), "x", 2, time.Second, a, nil, nil, "test")
	if err != nil || out != "ok" {
		t.Fatalf("got %q, %v", out, err)
	}
	if a.reconnects != 1 {
		t.Fatalf("expected 1 reconnect, got %d", a.reconnects)
	}
}

func TestRunWithRetryExhausted(t *testing.T) {
	a := &fakeAttempter{results: []fakeResult{
		{err: &TimeoutError{Command: "x", Timeout: "1s"}},
		{err: &TimeoutError{Command: "x", Timeout: "1s"}},
		{err: &TimeoutError{Command: "x", Timeout: "1s"}},
	}}
	_, err := RunWithRetry(context.Background(), "x", 2, time.Second, a, nil, nil, "test")
	var exhausted *ExhaustedError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected ExhaustedError, got %v", err)
	}
	if exhausted.Attempts != 3 {
		t.Fatalf("expected 3 attempts, got %d", exhausted.Attempts)
	}
}

func TestCommandLockLogsReentrancy(t *testing.T) {
	var buf bytes.Buffer
	l := NewCommandLock(logging.New(logging.Config{Level: logging.LevelWarn, Format: logging.FormatJSON, Output: &buf}))
	ctx := WithOwnerToken(context.Background(), "caller-1")

	done := make(chan struct{})
	go func() {
		_ = l.Run(ctx, func() error {
			close(done)
			time.Sleep(20 * time.Millisecond)
			return nil
		})
	}()
	<-done
	_ = l.Run(ctx, func() error { return nil })
	if !strings.Contains(buf.String(), "reentrant call detected") {
		t.Fatalf("expected a reentrancy warning in the log, got %q", buf.String())
	}
}
