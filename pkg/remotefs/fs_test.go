package remotefs

import (
	"context"
	"strings"
	"testing"

	"github.com/jihwankim/remoteperf/pkg/transport"
)

type fakeRunner struct {
	responses []string
	commands  []string
	cleanups  []string
}

func (f *fakeRunner) RunCommand(ctx context.Context, command string, opts ...transport.RunOption) (string, error) {
	f.commands = append(f.commands, command)
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

func (f *fakeRunner) AddCleanup(path string, flags ...string) {
	f.cleanups = append(f.cleanups, path)
}

func TestIsFileTrue(t *testing.T) {
	r := &fakeRunner{responses: []string{"True\n"}}
	fs := New(r, "/tmp")
	ok, err := fs.IsFile(context.Background(), "/etc/passwd")
	if err != nil || !ok {
		t.Fatalf("got %v, %v", ok, err)
	}
}

func TestIsFileFalse(t *testing.T) {
	r := &fakeRunner{responses: []string{"False\n"}}
	fs := New(r, "/tmp")
	ok, err := fs.IsFile(context.Background(), "/nonexistent")
	if err != nil || ok {
		t.Fatalf("got %v, %v", ok, err)
	}
}

func TestConditionalCheckUnexpectedOutput(t *testing.T) {
	r := &fakeRunner{responses: []string{"garbage\n"}}
	fs := New(r, "/tmp")
	_, err := fs.IsFile(context.Background(), "/x")
	if err == nil {
		t.Fatal("expected error for unrecognized output")
	}
	var fsErr *FsError
	if !asFsError(err, &fsErr) {
		t.Fatalf("expected FsError, got %v", err)
	}
}

func asFsError(err error, target **FsError) bool {
	e, ok := err.(*FsError)
	if ok {
		*target = e
	}
	return ok
}

func TestRemoveRefusesWithoutWritePermission(t *testing.T) {
	r := &fakeRunner{responses: []string{"True\n", "False\n"}}
	fs := New(r, "/tmp")
	err := fs.Remove(context.Background(), "/etc/shadow", true)
	if err == nil {
		t.Fatal("expected permission error")
	}
	if !strings.Contains(err.Error(), "insufficient permissions") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestTemporaryDirectoryRegistersCleanup(t *testing.T) {
	r := &fakeRunner{responses: []string{"", "True\n"}}
	fs := New(r, "/tmp")
	dir, err := fs.TemporaryDirectory(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(dir.Path, "/tmp/") {
		t.Fatalf("unexpected path: %s", dir.Path)
	}
	if len(r.cleanups) != 1 {
		t.Fatalf("expected cleanup registered, got %v", r.cleanups)
	}
}
