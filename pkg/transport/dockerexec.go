package transport

import (
	"archive/tar"
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/docker/docker/api/types"
	"github.com/docker/docker/client"

	"github.com/jihwankim/remoteperf/pkg/config"
	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/metrics"
)

// DockerTransport runs commands inside a named container via the
// Docker exec API, standing in for a real device when one isn't
// reachable — primarily for this module's own tests.
type DockerTransport struct {
	containerName string
	containerID   string
	cli           *client.Client
	cfg           config.TransportConfig
	log           *logging.Logger
	metrics       *metrics.Metrics
	lock          *CommandLock
	cleanup       *CleanupRegistry
}

// NewDockerTransport builds a transport that execs into containerName.
// The Docker client itself is dialed lazily on Connect.
func NewDockerTransport(containerName string, cfg config.TransportConfig, log *logging.Logger) *DockerTransport {
	if log == nil {
		log = logging.Noop()
	}
	t := &DockerTransport{containerName: containerName, cfg: cfg, log: log, metrics: metrics.Noop(), lock: NewCommandLock(log)}
	t.cleanup = NewCleanupRegistry(t.removePath, log)
	return t
}

// SetMetrics directs this transport's retry/reconnect/latency
// instrumentation to m instead of the no-op default.
func (t *DockerTransport) SetMetrics(m *metrics.Metrics) { t.metrics = m }

func (t *DockerTransport) Host() string { return t.containerName }

func (t *DockerTransport) Connect(ctx context.Context) error {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to create docker client: %w", err)}
	}
	id, err := ResolveContainerByName(ctx, cli, t.containerName)
	if err != nil {
		return &ConnectionError{Err: err}
	}
	t.cli = cli
	t.containerID = id
	return nil
}

func (t *DockerTransport) Disconnect(ctx context.Context) error {
	t.cleanup.runCleanup(ctx)
	if t.cli == nil {
		return nil
	}
	err := t.cli.Close()
	t.cli = nil
	t.containerID = ""
	return err
}

func (t *DockerTransport) Connected() bool {
	return t.cli != nil && t.containerID != ""
}

func (t *DockerTransport) RunCommand(ctx context.Context, command string, opts ...RunOption) (string, error) {
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
		out, runErr = RunWithRetry(ctx, command, retries, timeout, &dockerAttempter{t: t, command: command}, t.log, t.metrics, "dockerexec")
		return runErr
	})
	if o.LogPath != "" {
		t.logCommand(o.LogPath, command, out, err)
	}
	return out, err
}

type dockerAttempter struct {
	t       *DockerTransport
	command string
}

func (a *dockerAttempter) Attempt(ctx context.Context, deadline time.Time) (string, error) {
	t := a.t
	attemptCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	execConfig := types.ExecConfig{Cmd: []string{"/bin/sh", "-c", a.command}, AttachStdout: true, AttachStderr: true}
	execID, err := t.cli.ContainerExecCreate(attemptCtx, t.containerID, execConfig)
	if err != nil {
		return "", &ConnectionError{Err: fmt.Errorf("failed to create exec: %w", err)}
	}
	resp, err := t.cli.ContainerExecAttach(attemptCtx, execID.ID, types.ExecStartCheck{})
	if err != nil {
		return "", &ConnectionError{Err: fmt.Errorf("failed to attach exec: %w", err)}
	}
	defer resp.Close()

	output, err := io.ReadAll(resp.Reader)
	if attemptCtx.Err() != nil {
		return string(output), &TimeoutError{Command: a.command, Timeout: deadline.Sub(time.Now()).String()}
	}
	if err != nil {
		return string(output), &ConnectionError{Err: err}
	}

	inspectResp, err := t.cli.ContainerExecInspect(ctx, execID.ID)
	if err != nil {
		return string(output), &ConnectionError{Err: err}
	}
	if inspectResp.ExitCode != 0 {
		return string(output), fmt.Errorf("command exited with code %d", inspectResp.ExitCode)
	}
	return string(output), nil
}

func (a *dockerAttempter) Alive(ctx context.Context) bool {
	_, err := a.t.cli.ContainerInspect(ctx, a.t.containerID)
	return err == nil
}

func (a *dockerAttempter) Reconnect(ctx context.Context) error {
	id, err := ResolveContainerByName(ctx, a.t.cli, a.t.containerName)
	if err != nil {
		return err
	}
	a.t.containerID = id
	return nil
}

// PullFile copies remotePath out of the container to localPath using
// Docker's tar-stream copy API.
func (t *DockerTransport) PullFile(ctx context.Context, remotePath, localPath string) error {
	reader, _, err := t.cli.CopyFromContainer(ctx, t.containerID, remotePath)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	defer reader.Close()

	tr := tar.NewReader(reader)
	hdr, err := tr.Next()
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	out, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer out.Close()

	if _, err := io.CopyN(out, tr, hdr.Size); err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	return nil
}

// PushFile copies localPath into the container at remotePath using
// Docker's tar-stream copy API.
func (t *DockerTransport) PushFile(ctx context.Context, localPath, remotePath string) error {
	data, err := os.ReadFile(localPath)
	if err != nil {
		return fmt.Errorf("failed to read local file %s: %w", localPath, err)
	}

	var buf bytes.Buffer
	tw := tar.NewWriter(&buf)
	hdr := &tar.Header{Name: filepath.Base(remotePath), Mode: 0o644, Size: int64(len(data))}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write tar header: %w", err)
	}
	if _, err := tw.Write(data); err != nil {
		return fmt.Errorf("failed to write tar payload: %w", err)
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to close tar stream: %w", err)
	}

	err = t.cli.CopyToContainer(ctx, t.containerID, filepath.Dir(remotePath), &buf, types.CopyToContainerOptions{})
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	return nil
}

func (t *DockerTransport) AddCleanup(path string, flags ...string) {
	t.cleanup.AddCleanup(path, flags...)
}

func (t *DockerTransport) removePath(ctx context.Context, path string, flags []string) error {
	cmd := "rm -f " + path
	if len(flags) > 0 {
		cmd = "rm " + joinFlags(flags) + " " + path
	}
	_, err := t.RunCommand(ctx, cmd)
	return err
}

func joinFlags(flags []string) string {
	out := ""
	for i, f := range flags {
		if i > 0 {
			out += " "
		}
		out += f
	}
	return out
}

func (t *DockerTransport) logCommand(path, command, output string, err error) {
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
