package sampler

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jihwankim/remoteperf/pkg/transport"
)

type fakeDelegatedRunner struct {
	launchCmd string
	reads     []string
	readIndex int
	cleanups  []string
	removed   string
}

func (f *fakeDelegatedRunner) RunCommand(ctx context.Context, command string, opts ...transport.RunOption) (string, error) {
	if strings.HasPrefix(command, "cat ") {
		if f.readIndex >= len(f.reads) {
			return "", nil
		}
		out := f.reads[f.readIndex]
		f.readIndex++
		return out, nil
	}
	if strings.HasPrefix(command, "rm ") {
		f.removed = command
		return "", nil
	}
	f.launchCmd = command
	return "12345", nil
}

func (f *fakeDelegatedRunner) AddCleanup(path string, flags ...string) {
	f.cleanups = append(f.cleanups, path)
}

func TestDelegatedRunSucceedsAfterRetries(t *testing.T) {
	runner := &fakeDelegatedRunner{reads: []string{
		"cat: No such file or directory",
		"",
		"hogs output here",
	}}
	d := NewDelegated(runner, "hogs", 5*time.Millisecond, 5, nil)

	out, err := d.Run(context.Background(), "hogs -i 1 -s 1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "hogs output here" {
		t.Fatalf("unexpected output: %q", out)
	}
	if runner.removed == "" {
		t.Fatal("expected output file to be removed")
	}
	if len(runner.cleanups) != 1 {
		t.Fatalf("expected one cleanup glob registered, got %v", runner.cleanups)
	}
}

func TestDelegatedRunExhaustsRetries(t *testing.T) {
	runner := &fakeDelegatedRunner{reads: []string{
		"", "", "",
	}}
	d := NewDelegated(runner, "hogs", time.Millisecond, 2, nil)

	_, err := d.Run(context.Background(), "hogs -i 1 -s 1")
	if err == nil {
		t.Fatal("expected error")
	}
	var delegatedErr *DelegatedExecutionError
	if e, ok := err.(*DelegatedExecutionError); ok {
		delegatedErr = e
	}
	if delegatedErr == nil {
		t.Fatalf("expected DelegatedExecutionError, got %v", err)
	}
}
