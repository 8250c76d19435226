package handlers

import (
	"context"
	"testing"
)

func TestGetBootTime(t *testing.T) {
	tr := &fakeTransport{responses: []string{"/system/bin/bootstat\n", "absolute_boot_time=12345\n"}}
	h := NewAndroid(tr, nil)
	d, err := h.GetBootTime(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if d.Seconds() != 12345 {
		t.Fatalf("expected 12345s, got %v", d)
	}
}

func TestGetBootTimeMissingCapability(t *testing.T) {
	tr := &fakeTransport{responses: []string{""}}
	h := NewAndroid(tr, nil)
	_, err := h.GetBootTime(context.Background())
	if _, ok := err.(*UnsupportedCapabilityError); !ok {
		t.Fatalf("expected *UnsupportedCapabilityError, got %T (%v)", err, err)
	}
}
