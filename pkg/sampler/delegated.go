package sampler

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/transport"
)

// CommandRunner is the transport capability delegated execution needs:
// run a command and register a cleanup glob for the scratch files it
// leaves behind. Matches transport.Transport's RunCommand signature
// exactly so any Transport implementation satisfies it directly.
type CommandRunner interface {
	RunCommand(ctx context.Context, command string, opts ...transport.RunOption) (string, error)
	AddCleanup(path string, flags ...string)
}

// DelegatedExecutionError is returned when a delegated command's output
// file never appeared (or kept reading as empty/missing) within the
// configured number of retries.
type DelegatedExecutionError struct {
	Filename string
	Attempts int
}

func (e *DelegatedExecutionError) Error() string {
	return fmt.Sprintf("delegated output %s was not available after %d attempts", e.Filename, e.Attempts)
}

// Delegated launches a long-running command detached from the current
// session (so a command timeout doesn't kill it) and reads its output
// back later by polling for the file it was redirected into. This is
// the shape `hogs`-style QNX sampling commands need: they block for
// their own sampling window, longer than any single command timeout
// should allow.
type Delegated struct {
	runner      CommandRunner
	uid         string
	readDelay   time.Duration
	readRetries int
	log         *logging.Logger
}

// NewDelegated builds a Delegated executor. uid distinguishes this
// executor's scratch files from others running concurrently against
// the same device.
func NewDelegated(runner CommandRunner, uid string, readDelay time.Duration, readRetries int, log *logging.Logger) *Delegated {
	if log == nil {
		log = logging.Noop()
	}
	if readRetries <= 0 {
		readRetries = 3
	}
	return &Delegated{runner: runner, uid: uid, readDelay: readDelay, readRetries: readRetries, log: log}
}

// Run launches command in the background, waits readDelay, then reads
// its redirected output back, retrying while the file is missing or
// empty. The temp-then-rename redirect avoids ever reading a partially
// written file.
func (d *Delegated) Run(ctx context.Context, command string) (string, error) {
	filename := fmt.Sprintf("/tmp/remoteperf_delayed_%s-%d", d.uid, time.Now().UnixNano()/int64(10*time.Millisecond))
	wrapped := fmt.Sprintf("(%s) > %s_tmp && mv %s_tmp %s & echo $!", command, filename, filename, filename)

	d.runner.AddCleanup("/tmp/remoteperf_delayed_*")
	if _, err := d.runner.RunCommand(ctx, wrapped); err != nil {
		return "", fmt.Errorf("failed to launch delegated command: %w", err)
	}

	return d.readBack(ctx, filename)
}

func (d *Delegated) readBack(ctx context.Context, filename string) (string, error) {
	select {
	case <-time.After(d.readDelay + 200*time.Millisecond):
	case <-ctx.Done():
		return "", ctx.Err()
	}

	retries := d.readRetries
	for {
		out, err := d.runner.RunCommand(ctx, "cat "+filename)
		if err == nil && out != "" && !strings.Contains(out, "No such file or directory") {
			if _, rmErr := d.runner.RunCommand(ctx, "rm "+filename); rmErr != nil {
				d.log.Debug("failed to remove delegated output file", "file", filename, "error", rmErr)
			}
			return out, nil
		}

		retries--
		if retries <= 0 {
			return "", &DelegatedExecutionError{Filename: filename, Attempts: d.readRetries}
		}

		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
}
