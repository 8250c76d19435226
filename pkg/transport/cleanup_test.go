package transport

import (
	"context"
	"errors"
	"testing"
)

func TestCleanupRegistryRunsInOrder(t *testing.T) {
	var removed []string
	reg := NewCleanupRegistry(func(ctx context.Context, path string, flags []string) error {
		removed = append(removed, path)
		return nil
	}, nil)

	reg.AddCleanup("/tmp/a")
	reg.AddCleanup("/tmp/b")
	reg.runCleanup(context.Background())

	if len(removed) != 2 || removed[0] != "/tmp/a" || removed[1] != "/tmp/b" {
		t.Fatalf("unexpected removal order: %v", removed)
	}
	if len(reg.Entries()) != 0 {
		t.Fatalf("expected entries to be drained after run, got %d", len(reg.Entries()))
	}
}

func TestCleanupRegistryContinuesAfterFailure(t *testing.T) {
	var removed []string
	reg := NewCleanupRegistry(func(ctx context.Context, path string, flags []string) error {
		removed = append(removed, path)
		if path == "/tmp/a" {
			return errors.New("boom")
		}
		return nil
	}, nil)

	reg.AddCleanup("/tmp/a")
	reg.AddCleanup("/tmp/b")
	reg.runCleanup(context.Background())

	if len(removed) != 2 {
		t.Fatalf("expected both entries attempted, got %v", removed)
	}
}
