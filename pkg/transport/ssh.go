package transport

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"strings"
	"time"

	"github.com/pkg/sftp"
	"golang.org/x/crypto/ssh"

	"github.com/jihwankim/remoteperf/pkg/config"
	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/metrics"
)

// SSHTarget describes how to reach a device over SSH, optionally via a
// jump host.
type SSHTarget struct {
	Host           string
	Port           int
	Username       string
	Password       string
	PrivateKeyPath string
	JumpHost       *SSHTarget
}

func (t SSHTarget) addr() string {
	port := t.Port
	if port == 0 {
		port = 22
	}
	return fmt.Sprintf("%s:%d", t.Host, port)
}

// SSHTransport runs commands over an interactive SSH session, with the
// same attempt/timeout/reconnect behavior as every other Transport.
type SSHTransport struct {
	target  SSHTarget
	cfg     config.TransportConfig
	log     *logging.Logger
	metrics *metrics.Metrics

	client   *ssh.Client
	jumpConn net.Conn
	lock     *CommandLock
	cleanup  *CleanupRegistry
}

// NewSSHTransport builds an SSH transport for target.
func NewSSHTransport(target SSHTarget, cfg config.TransportConfig, log *logging.Logger) *SSHTransport {
	if log == nil {
		log = logging.Noop()
	}
	t := &SSHTransport{target: target, cfg: cfg, log: log, metrics: metrics.Noop(), lock: NewCommandLock(log)}
	t.cleanup = NewCleanupRegistry(t.removePath, log)
	return t
}

// SetMetrics directs this transport's retry/reconnect/latency
// instrumentation to m instead of the no-op default.
func (t *SSHTransport) SetMetrics(m *metrics.Metrics) { t.metrics = m }

func (t *SSHTransport) Host() string { return t.target.Host }

func (t *SSHTransport) authMethods() ([]ssh.AuthMethod, error) {
	var methods []ssh.AuthMethod
	if t.target.Password != "" {
		methods = append(methods, ssh.Password(t.target.Password))
	}
	if t.target.PrivateKeyPath != "" {
		key, err := os.ReadFile(t.target.PrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read private key %s: %w", t.target.PrivateKeyPath, err)
		}
		signer, err := ssh.ParsePrivateKey(key)
		if err != nil {
			return nil, fmt.Errorf("failed to parse private key %s: %w", t.target.PrivateKeyPath, err)
		}
		methods = append(methods, ssh.PublicKeys(signer))
	}
	return methods, nil
}

func (t *SSHTransport) clientConfig() (*ssh.ClientConfig, error) {
	methods, err := t.authMethods()
	if err != nil {
		return nil, err
	}
	return &ssh.ClientConfig{
		User:            t.target.Username,
		Auth:            methods,
		HostKeyCallback: ssh.InsecureIgnoreHostKey(),
		Timeout:         t.cfg.Timeout,
	}, nil
}

// Connect dials the target directly, or tunnels through JumpHost's
// already-open connection when one is configured.
func (t *SSHTransport) Connect(ctx context.Context) error {
	cc, err := t.clientConfig()
	if err != nil {
		return &ArgumentError{Message: err.Error()}
	}

	if t.target.JumpHost == nil {
		client, err := ssh.Dial("tcp", t.target.addr(), cc)
		if err != nil {
			return classifyDialError(t.target.Host, err)
		}
		t.client = client
		return nil
	}

	jumpT := NewSSHTransport(*t.target.JumpHost, t.cfg, t.log)
	jumpCC, err := jumpT.clientConfig()
	if err != nil {
		return &ArgumentError{Message: err.Error()}
	}
	jumpClient, err := ssh.Dial("tcp", t.target.JumpHost.addr(), jumpCC)
	if err != nil {
		return classifyDialError(t.target.JumpHost.Host, err)
	}
	conn, err := jumpClient.Dial("tcp", t.target.addr())
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("jump host dial failed: %w", err)}
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, t.target.addr(), cc)
	if err != nil {
		return classifyDialError(t.target.Host, err)
	}
	t.jumpConn = conn
	t.client = ssh.NewClient(sshConn, chans, reqs)
	return nil
}

func classifyDialError(host string, err error) error {
	if _, ok := err.(*ssh.PassphraseMissingError); ok {
		return &AuthenticationError{Host: host, Err: err}
	}
	if strings.Contains(err.Error(), "unable to authenticate") {
		return &AuthenticationError{Host: host, Err: err}
	}
	return &ConnectionError{Err: fmt.Errorf("connect to %s failed: %w", host, err)}
}

func (t *SSHTransport) Disconnect(ctx context.Context) error {
	t.cleanup.runCleanup(ctx)
	var err error
	if t.client != nil {
		err = t.client.Close()
		t.client = nil
	}
	if t.jumpConn != nil {
		t.jumpConn.Close()
		t.jumpConn = nil
	}
	return err
}

func (t *SSHTransport) Connected() bool {
	if t.client == nil {
		return false
	}
	_, _, err := t.client.SendRequest("keepalive@remoteperf", true, nil)
	return err == nil
}

func (t *SSHTransport) RunCommand(ctx context.Context, command string, opts ...RunOption) (string, error) {
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
		out, runErr = RunWithRetry(ctx, command, retries, timeout, &sshAttempter{t: t, command: command}, t.log, t.metrics, "ssh")
		return runErr
	})
	if o.LogPath != "" {
		t.logCommand(o.LogPath, command, out, err)
	}
	return out, err
}

type sshAttempter struct {
	t       *SSHTransport
	command string
}

// Attempt runs one SSH session, polling exit-status readiness against
// deadline and sending a keepalive global request on every poll so
// long-running commands don't trip an idle timeout partway through.
func (a *sshAttempter) Attempt(ctx context.Context, deadline time.Time) (string, error) {
	if a.t.client == nil {
		return "", &ConnectionError{Err: fmt.Errorf("not connected")}
	}
	session, err := a.t.client.NewSession()
	if err != nil {
		return "", &ConnectionError{Err: fmt.Errorf("failed to open session: %w", err)}
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	if err := session.Start(a.command); err != nil {
		return "", &ConnectionError{Err: fmt.Errorf("failed to start command: %w", err)}
	}

	done := make(chan error, 1)
	go func() { done <- session.Wait() }()

	poll := time.NewTicker(100 * time.Millisecond)
	defer poll.Stop()
	for {
		select {
		case err := <-done:
			out := stdout.String() + stderr.String()
			if err != nil {
				if _, ok := err.(*ssh.ExitError); ok {
					return out, fmt.Errorf("command %q exited non-zero: %w", a.command, err)
				}
				return out, &ConnectionError{Err: err}
			}
			return out, nil
		case <-poll.C:
			a.t.client.SendRequest("keepalive@remoteperf", false, nil)
			if time.Now().After(deadline) {
				session.Signal(ssh.SIGKILL)
				return stdout.String() + stderr.String(), &TimeoutError{Command: a.command, Timeout: deadline.Sub(time.Now()).String()}
			}
		case <-ctx.Done():
			session.Signal(ssh.SIGKILL)
			return stdout.String() + stderr.String(), ctx.Err()
		}
	}
}

func (a *sshAttempter) Alive(ctx context.Context) bool { return a.t.Connected() }

func (a *sshAttempter) Reconnect(ctx context.Context) error {
	a.t.Disconnect(ctx)
	return a.t.Connect(ctx)
}

func (t *SSHTransport) session() (*ssh.Session, error) {
	if t.client == nil {
		return nil, &NotConnectedError{}
	}
	return t.client.NewSession()
}

// PullFile copies remotePath to localPath over SFTP. A short read or a
// size mismatch is reported as a FileIntegrityError and never retried,
// since re-running a partial transfer risks leaving a corrupt file in
// place either way.
func (t *SSHTransport) PullFile(ctx context.Context, remotePath, localPath string) error {
	if t.client == nil {
		return &NotConnectedError{}
	}
	client, err := sftp.NewClient(t.client)
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to start sftp: %w", err)}
	}
	defer client.Close()

	remote, err := client.Open(remotePath)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	defer remote.Close()

	info, err := remote.Stat()
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}

	local, err := os.Create(localPath)
	if err != nil {
		return fmt.Errorf("failed to create local file %s: %w", localPath, err)
	}
	defer local.Close()

	n, err := io.Copy(local, remote)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	if n != info.Size() {
		return &FileIntegrityError{Path: remotePath, Err: fmt.Errorf("copied %d of %d bytes", n, info.Size())}
	}
	return nil
}

// PushFile copies localPath to remotePath over SFTP, with the same
// never-retried integrity check as PullFile.
func (t *SSHTransport) PushFile(ctx context.Context, localPath, remotePath string) error {
	if t.client == nil {
		return &NotConnectedError{}
	}
	client, err := sftp.NewClient(t.client)
	if err != nil {
		return &ConnectionError{Err: fmt.Errorf("failed to start sftp: %w", err)}
	}
	defer client.Close()

	local, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("failed to open local file %s: %w", localPath, err)
	}
	defer local.Close()
	info, err := local.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat local file %s: %w", localPath, err)
	}

	remote, err := client.Create(remotePath)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	defer remote.Close()

	n, err := io.Copy(remote, local)
	if err != nil {
		return &FileIntegrityError{Path: remotePath, Err: err}
	}
	if n != info.Size() {
		return &FileIntegrityError{Path: remotePath, Err: fmt.Errorf("wrote %d of %d bytes", n, info.Size())}
	}
	return nil
}

func (t *SSHTransport) AddCleanup(path string, flags ...string) {
	t.cleanup.AddCleanup(path, flags...)
}

func (t *SSHTransport) removePath(ctx context.Context, path string, flags []string) error {
	cmd := "rm -f " + path
	if len(flags) > 0 {
		cmd = "rm " + joinFlags(flags) + " " + path
	}
	_, err := t.RunCommand(ctx, cmd)
	return err
}

func (t *SSHTransport) logCommand(path, command, output string, err error) {
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
