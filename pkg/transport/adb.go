package transport

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/zach-klippenstein/goadb"

	"github.com/jihwankim/remoteperf/pkg/config"
	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/metrics"
)

// ADBTransport runs commands on an Android device through the debug
// bridge, addressing the device by serial number.
type ADBTransport struct {
	serial  string
	cfg     config.TransportConfig
	log     *logging.Logger
	metrics *metrics.Metrics

	client *adb.Adb
	device *adb.Device

	lock    *CommandLock
	cleanup *CleanupRegistry
}

// NewADBTransport builds a transport addressing the device identified
// by serial (as reported by `adb devices`).
func NewADBTransport(serial string, cfg config.TransportConfig, log *logging.Logger) *ADBTransport {
	if log == nil {
		log = logging.Noop()
	}
	t := &ADBTransport{serial: serial, cfg: cfg, log: log, metrics: metrics.Noop(), lock: NewCommandLock(log)}
	t.cleanup = NewCleanupRegistry(t.removePath, log)
	return t
}

// SetMetrics directs this transport's retry/reconnect/latency
// instrumentation to m instead of the no-op default.
func (t *ADBTransport) SetMetrics(m *metrics.Metrics) { t.metrics = m }

func (t *ADBTransport) Host() string { return t.serial }

func (t *ADBTransport) Connect(ctx context.Context) error {
	client, err := adb.New()
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to start adb client: %w", err)}
	}
	device := client.Device(adb.DeviceWithSerial(t.serial))
	if _, err := device.RunCommand("true"); err != nil {
		return &ConnectionError{Err: fmt.Errorf("device %s not reachable: %w", t.serial, err)}
	}
	t.client = client
	t.device = device
	return nil
}

func (t *ADBTransport) Disconnect(ctx context.Context) error {
	t.cleanup.runCleanup(ctx)
	t.device = nil
	t.client = nil
	return nil
}

func (t *ADBTransport) Connected() bool {
	if t.device == nil {
		return false
	}
	_, err := t.device.RunCommand("true")
	return err == nil
}

func (t *ADBTransport) RunCommand(ctx context.Context, command string, opts ...RunOption) (string, error) {
	o := applyOptions(opts...)
	retries := t.cfg.Retries
	if o.Retries != nil {
		retries = *o.Retries
	}
	timeout := t.cfg.Timeout
	if o.Timeout > 0 {
		timeout = o.Timeout
	}

	var out string
	err := t.lock.Run(ctx, func() error {
		var runErr error
		out, runErr = RunWithRetry(ctx, command, retries, timeout, &adbAttempter{t: t, command: command}, t.log, t.metrics, "adb")
		return runErr
	})
	if o.LogPath != "" {
		t.logCommand(o.LogPath, command, out, err)
	}
	return out, err
}

type adbAttempter struct {
	t       *ADBTransport
	command string
}

func (a *adbAttempter) Attempt(ctx context.Context, deadline time.Time) (string, error) {
	if a.t.device == nil {
		return "", &ConnectionError{Err: fmt.Errorf("not connected")}
	}
	resultCh := make(chan attemptResult, 1)
	go func() {
		out, err := a.t.device.RunCommand(a.command)
		resultCh <- attemptResult{out: out, err: err}
	}()

	select {
	case r := <-resultCh:
		if r.err != nil {
			if strings.Contains(r.err.Error(), "device not found") || strings.Contains(r.err.Error(), "device offline") {
				return r.out, &ConnectionError{Err: r.err}
			}
			return r.out, r.err
		}
		return r.out, nil
	case <-time.After(time.Until(deadline)):
		return "", &TimeoutError{Command: a.command, Timeout: deadline.Sub(time.Now()).String()}
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

type attemptResult struct {
	out string
	err error
}

func (a *adbAttempter) Alive(ctx context.Context) bool {
	if a.t.device == nil {
		return false
	}
	_, err := a.t.device.RunCommand("true")
	return err == nil
}

func (a *adbAttempter) Reconnect(ctx context.Context) error {
	return a.t.Connect(ctx)
}

// PullFile copies remotePath off the device via adb's sync protocol.
func (t *ADBTransport) PullFile(ctx context.Context, remotePath, localPath string) error {
	if t.device == nil {
		return &NotConnectedError{}
	}
	info, err := t.device.Stat(remotePath)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	reader, err := t.device.OpenRead(remotePath)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	defer reader.Close()

	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer local.Close()

	n, err := io.Copy(local, reader)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	if uint32(n) != info.Size {
		return &FileIntegrityError{Path: remotePath, Err: fmt.Errorf("copied %d of %d bytes", n, info.Size)}
	}
	return nil
}

// PushFile copies localPath onto the device via adb's sync protocol.
func (t *ADBTransport) PushFile(ctx context.Context, localPath, remotePath string) error {
	if t.device == nil {
		return &NotConnectedError{}
	}
	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer local.Close()
	info, err := local.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat local file %s: %w", localPath, err)
	}

	err = t.device.Push(local, remotePath, info.Mode(), info.ModTime(), nil)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	return nil
}

func (t *ADBTransport) AddCleanup(path string, flags ...string) {
	t.cleanup.AddCleanup(path, flags...)
}

func (t *ADBTransport) removePath(ctx context.Context, path string, flags []string) error {
	cmd := "rm -f " + path
	if len(flags) > 0 {
		cmd = "rm " + joinFlags(flags) + " " + path
	}
	_, err := t.RunCommand(ctx, cmd)
	return err
}

func (t *ADBTransport) logCommand(path, command, output string, err error) {
	f, ferr := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if ferr != nil {
		t.log.Warn("failed to open command log", "path", path, "error", ferr)
		return
	}
	defer f.Close()
	status := "ok"
	if err != nil {
		status = err.Error()
	}
	fmt.Fprintf(f, "Command: %s\nTimestamp: %s\nStatus: %s\n%s\n", command, time.Now().Format(time.RFC3339), status, output)
}
