package handlers

import (
	"context"
	"testing"
	"time"
)

const hogsSample = "1 [idle]       0   0%   95%\n" +
	"2 [idle]       0   0%   85%\n" +
	" 100 proc1      10   5%   2% 100k  1 \n"

func TestQNXGetCPUUsage(t *testing.T) {
	// First response answers the detached launch (its pid), the second
	// the read-back of the redirected hogs output.
	tr := &fakeTransport{responses: []string{"12345\n", hogsSample}}
	h := NewQNX(tr, nil)
	usage, err := h.GetCPUUsage(context.Background(), 1, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.Load <= 0 {
		t.Fatalf("expected positive load, got %v", usage.Load)
	}
}

const vmStats = "page_count=0x12345 (1.0GB)\npages_free=0x100 (0.5GB)\n"

func TestQNXGetMemUsage(t *testing.T) {
	tr := &fakeTransport{responses: []string{vmStats}}
	h := NewQNX(tr, nil)
	mem, err := h.GetMemUsage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.Mem.Total <= 0 {
		t.Fatalf("expected positive total, got %v", mem.Mem.Total)
	}
}

func TestQNXGetCPUUsageProcWiseMissingCapability(t *testing.T) {
	tr := &fakeTransport{responses: []string{""}}
	h := NewQNX(tr, nil)
	_, err := h.GetCPUUsageProcWise(context.Background(), 1, false)
	if _, ok := err.(*UnsupportedCapabilityError); !ok {
		t.Fatalf("expected *UnsupportedCapabilityError, got %T (%v)", err, err)
	}
}

func TestQNXGetCPUUsageRejectsSubSecondIntervalByDefault(t *testing.T) {
	tr := &fakeTransport{responses: []string{hogsSample}}
	h := NewQNX(tr, nil)
	_, err := h.GetCPUUsage(context.Background(), 0, false)
	if _, ok := err.(*QNXIntervalTooShortError); !ok {
		t.Fatalf("expected *QNXIntervalTooShortError, got %T (%v)", err, err)
	}
}

func TestQNXGetCPUUsageAllowsSubSecondIntervalWhenForced(t *testing.T) {
	tr := &fakeTransport{responses: []string{"12345\n", hogsSample}}
	h := NewQNX(tr, nil)
	if _, err := h.GetCPUUsage(context.Background(), 0, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQNXStartCPUMeasurementRejectsSubSecondIntervalByDefault(t *testing.T) {
	tr := &fakeTransport{}
	h := NewQNX(tr, nil)
	err := h.StartCPUMeasurement(context.Background(), 0, false)
	if _, ok := err.(*QNXIntervalTooShortError); !ok {
		t.Fatalf("expected *QNXIntervalTooShortError, got %T (%v)", err, err)
	}
}

func TestQNXStartMemMeasurementRejectsNonPositiveInterval(t *testing.T) {
	tr := &fakeTransport{}
	h := NewQNX(tr, nil)
	err := h.StartMemMeasurement(context.Background(), 0)
	if _, ok := err.(*InvalidIntervalError); !ok {
		t.Fatalf("expected *InvalidIntervalError, got %T (%v)", err, err)
	}
}

func TestQNXGetBootTimeMissingCapability(t *testing.T) {
	tr := &fakeTransport{responses: []string{"False\n"}}
	h := NewQNX(tr, nil)
	_, err := h.GetBootTime(context.Background())
	if _, ok := err.(*UnsupportedCapabilityError); !ok {
		t.Fatalf("expected *UnsupportedCapabilityError, got %T (%v)", err, err)
	}
}

func TestQNXStartStopMemMeasurement(t *testing.T) {
	// Enough readings for every sample the 5ms sampler takes in 20ms; an
	// exhausted queue answers "" and the parse error would surface on stop.
	responses := make([]string, 100)
	for i := range responses {
		responses[i] = vmStats
	}
	tr := &fakeTransport{responses: responses}
	h := NewQNX(tr, nil)
	if err := h.StartMemMeasurement(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	results, err := h.StopMemMeasurement()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one memory reading")
	}
}
