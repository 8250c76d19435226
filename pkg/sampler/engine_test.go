package sampler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"
)

func TestEngineCollectsRawSamplesWithoutFold(t *testing.T) {
	var n int64
	e := NewDirect(20*time.Millisecond, func(ctx context.Context) (int64, error) {
		return atomic.AddInt64(&n, 1), nil
	}, nil)

	e.Start(context.Background())
	time.Sleep(90 * time.Millisecond)
	results, err := e.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) < 2 {
		t.Fatalf("expected at least 2 samples, got %d", len(results))
	}
}

func TestEngineAppliesFold(t *testing.T) {
	var n int
	e := New(15*time.Millisecond, func(ctx context.Context) (int, error) {
		n++
		return n, nil
	}, func(raw []int) ([]int, []int) {
		if len(raw) < 2 {
			return nil, raw
		}
		delta := raw[len(raw)-1] - raw[0]
		return []int{delta}, []int{raw[len(raw)-1]}
	}, nil)

	e.Start(context.Background())
	time.Sleep(80 * time.Millisecond)
	results, err := e.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one folded result")
	}
}

func TestEngineFinishesWithOneSampleEvenIfStoppedEarly(t *testing.T) {
	calls := 0
	e := New(time.Hour, func(ctx context.Context) (int, error) {
		calls++
		return calls, nil
	}, func(raw []int) ([]int, []int) {
		// Needs two samples per record, so the single sample taken on
		// Start yields nothing and only the finishing sample completes one.
		if len(raw) < 2 {
			return nil, raw
		}
		return []int{raw[len(raw)-1] - raw[0]}, raw[len(raw)-1:]
	}, nil)

	e.Start(context.Background())
	time.Sleep(10 * time.Millisecond)
	results, err := e.Stop()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) != 1 {
		t.Fatalf("expected exactly one finishing sample, got %d", len(results))
	}
}

func TestEngineStartIsIdempotent(t *testing.T) {
	e := NewDirect(10*time.Millisecond, func(ctx context.Context) (int, error) { return 1, nil }, nil)
	e.Start(context.Background())
	e.Start(context.Background())
	if !e.Running() {
		t.Fatal("expected engine to be running")
	}
	e.Stop()
}
