package handlers

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/jihwankim/remoteperf/pkg/transport"
)

// fakeTransport answers RunCommand from a queue of canned outputs, one
// per call, regardless of which command was issued; tests order the
// queue to match the sequence of commands a handler method issues.
type fakeTransport struct {
	responses []string
	commands  []string
}

func (f *fakeTransport) Host() string                        { return "fake" }
func (f *fakeTransport) Connect(ctx context.Context) error    { return nil }
func (f *fakeTransport) Disconnect(ctx context.Context) error { return nil }
func (f *fakeTransport) Connected() bool                      { return true }
func (f *fakeTransport) PullFile(ctx context.Context, remotePath, localPath string) error {
	return nil
}
func (f *fakeTransport) PushFile(ctx context.Context, localPath, remotePath string) error {
	return nil
}
func (f *fakeTransport) AddCleanup(path string, flags ...string) {}

func (f *fakeTransport) RunCommand(ctx context.Context, command string, opts ...transport.RunOption) (string, error) {
	f.commands = append(f.commands, command)
	if len(f.responses) == 0 {
		return "", nil
	}
	r := f.responses[0]
	f.responses = f.responses[1:]
	return r, nil
}

const statLine1 = "cpu  100 0 100 800 0 0 0 0 0 0\ncpu0 50 0 50 400 0 0 0 0 0 0\n"
const statLine2 = "cpu  200 0 200 1600 0 0 0 0 0 0\ncpu0 100 0 100 800 0 0 0 0 0 0\n"

func TestGetCPUUsage(t *testing.T) {
	tr := &fakeTransport{responses: []string{statLine1, statLine2}}
	h := NewLinux(tr, nil)
	usage, err := h.GetCPUUsage(context.Background(), time.Millisecond)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if usage.Load <= 0 {
		t.Fatalf("expected positive load, got %v", usage.Load)
	}
	if len(tr.commands) != 2 || !strings.Contains(tr.commands[0], "/proc/stat") {
		t.Fatalf("expected two /proc/stat reads, got %v", tr.commands)
	}
}

const meminfo = "MemTotal:   1000 kB\nMemFree:    400 kB\nCached:     100 kB\n" +
	"SReclaimable: 10 kB\nBuffers:    5 kB\nShmem:      1 kB\n" +
	"MemAvailable: 500 kB\nSwapTotal:  200 kB\nSwapFree:   200 kB\n"

func TestGetMemUsage(t *testing.T) {
	tr := &fakeTransport{responses: []string{meminfo}}
	h := NewLinux(tr, nil)
	mem, err := h.GetMemUsage(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mem.Mem.Total != 1000 {
		t.Fatalf("expected total 1000, got %d", mem.Mem.Total)
	}
}

func TestGetSystemUptime(t *testing.T) {
	tr := &fakeTransport{responses: []string{"12345.67 0.0\n"}}
	h := NewLinux(tr, nil)
	up, err := h.GetSystemUptime(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if up < 12345*time.Second {
		t.Fatalf("expected uptime around 12345s, got %v", up)
	}
}

func TestGetDiskInfo(t *testing.T) {
	df := "Filesystem     1K-blocks     Used Available Use% Mounted on\n" +
		"/dev/sda1       1000000   400000    500000  40% /\n"
	tr := &fakeTransport{responses: []string{df}}
	h := NewLinux(tr, nil)
	disks, err := h.GetDiskInfo(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(disks) != 1 || disks[0].MountPoint != "/" {
		t.Fatalf("unexpected disks: %+v", disks)
	}
}

func TestStartStopCPUMeasurement(t *testing.T) {
	tr := &fakeTransport{responses: []string{statLine1, statLine2, statLine2}}
	h := NewLinux(tr, nil)
	if err := h.StartCPUMeasurement(context.Background(), 5*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	time.Sleep(20 * time.Millisecond)
	results, err := h.StopCPUMeasurement()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(results) == 0 {
		t.Fatal("expected at least one folded cpu usage record")
	}
}

func TestStartCPUMeasurementAlreadyRunning(t *testing.T) {
	tr := &fakeTransport{responses: []string{statLine1}}
	h := NewLinux(tr, nil)
	if err := h.StartCPUMeasurement(context.Background(), time.Hour); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	defer h.StopCPUMeasurement()

	err := h.StartCPUMeasurement(context.Background(), time.Hour)
	if err == nil {
		t.Fatal("expected AlreadyRunningError")
	}
	if _, ok := err.(*AlreadyRunningError); !ok {
		t.Fatalf("expected *AlreadyRunningError, got %T", err)
	}
}

func TestStartCPUMeasurementRejectsNonPositiveInterval(t *testing.T) {
	tr := &fakeTransport{}
	h := NewLinux(tr, nil)
	err := h.StartCPUMeasurement(context.Background(), 0)
	if _, ok := err.(*InvalidIntervalError); !ok {
		t.Fatalf("expected *InvalidIntervalError, got %T (%v)", err, err)
	}

	err = h.StartCPUMeasurement(context.Background(), -time.Second)
	if _, ok := err.(*InvalidIntervalError); !ok {
		t.Fatalf("expected *InvalidIntervalError, got %T (%v)", err, err)
	}
}

func TestStopMemMeasurementNotRunning(t *testing.T) {
	tr := &fakeTransport{}
	h := NewLinux(tr, nil)
	_, err := h.StopMemMeasurement()
	if _, ok := err.(*NotRunningError); !ok {
		t.Fatalf("expected *NotRunningError, got %T (%v)", err, err)
	}
}
