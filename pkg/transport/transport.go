// Package transport dials a remote device over whatever channel reaches
// it — SSH, ADB, or a container exec stand-in — and exposes one uniform
// contract for running commands and moving files: Transport. Retry and
// reconnect behavior, a single exclusive command lock, and an ordered
// cleanup registry are shared by every implementation.
package transport

import (
	"context"
	"errors"
	"time"
)

// RunOptions configures a single RunCommand call, overriding the
// transport's configured defaults.
type RunOptions struct {
	Retries *int
	Timeout time.Duration
	LogPath string
}

// RunOption mutates RunOptions; see WithRetries, WithTimeout, WithLogPath.
type RunOption func(*RunOptions)

// WithRetries overrides the transport's default retry count for one call.
func WithRetries(n int) RunOption { return func(o *RunOptions) { o.Retries = &n } }

// WithTimeout overrides the transport's default per-attempt timeout.
func WithTimeout(d time.Duration) RunOption { return func(o *RunOptions) { o.Timeout = d } }

// WithLogPath appends the command and its output to a local audit log
// after the call completes, independent of success or failure.
func WithLogPath(path string) RunOption { return func(o *RunOptions) { o.LogPath = path } }

func applyOptions(opts ...RunOption) RunOptions {
	var o RunOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Transport is the contract every device connection implements: connect
// once, run commands against it, move files across it, and register
// cleanup actions that run when the connection scope closes.
type Transport interface {
	Host() string
	Connect(ctx context.Context) error
	Disconnect(ctx context.Context) error
	Connected() bool
	RunCommand(ctx context.Context, command string, opts ...RunOption) (string, error)
	PullFile(ctx context.Context, remotePath, localPath string) error
	PushFile(ctx context.Context, localPath, remotePath string) error
	AddCleanup(path string, flags ...string)
}

// Session scopes a Transport's connection to a block of work: Open
// connects, Close disconnects and, unless the transport died with a
// connection error, runs every registered cleanup action first.
type Session struct {
	transport Transport
	closeErr  error
}

// Open connects t and returns a Session guarding the connection.
func Open(ctx context.Context, t Transport) (*Session, error) {
	if err := t.Connect(ctx); err != nil {
		return nil, err
	}
	return &Session{transport: t}, nil
}

// Transport returns the underlying connection for issuing commands.
func (s *Session) Transport() Transport { return s.transport }

// Close runs registered cleanup (unless the session is closing because
// of a connection error, in which case cleanup against a dead transport
// would only add noise) and disconnects.
func (s *Session) Close(ctx context.Context) error {
	if reg, ok := s.transport.(cleanupRunner); ok {
		var connErr *ConnectionError
		if !errors.As(s.closeErr, &connErr) {
			reg.runCleanup(ctx)
		}
	}
	return s.transport.Disconnect(ctx)
}

// Fail marks the session as closing due to err, skipping cleanup when
// err indicates the transport itself is no longer reachable.
func (s *Session) Fail(err error) { s.closeErr = err }

type cleanupRunner interface {
	runCleanup(ctx context.Context)
}
