// Package remotefs answers filesystem predicates about paths on the
// far side of a Transport, by shelling out to `test`-style conditional
// checks, and hands out scope-guarded remote temporary directories.
package remotefs

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/jihwankim/remoteperf/pkg/transport"
)

// Runner is the minimal transport capability RemoteFs needs: run a
// command and get its output back. transport.Transport satisfies it.
type Runner interface {
	RunCommand(ctx context.Context, command string, opts ...transport.RunOption) (string, error)
	AddCleanup(path string, flags ...string)
}

// FsError indicates a conditional check produced output that was
// neither a success nor failure marker, meaning the remote shell
// itself misbehaved rather than the predicate being false.
type FsError struct {
	Command string
	Output  string
}

func (e *FsError) Error() string {
	return fmt.Sprintf("conditional check %q produced unexpected output: %q", e.Command, e.Output)
}

// PermissionError indicates an operation (currently Remove) was
// refused because the remote path lacked the required permission bit.
type PermissionError struct {
	Path string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("insufficient permissions for %s", e.Path)
}

// RemoteFs answers boolean questions about paths on the device reached
// through runner, and scopes temporary directories to a block of work.
type RemoteFs struct {
	runner       Runner
	tmpDirectory string
}

// New builds a RemoteFs. tmpDirectory is the parent directory
// TemporaryDirectory creates scoped subdirectories under; "" selects
// /tmp.
func New(runner Runner, tmpDirectory string) *RemoteFs {
	if tmpDirectory == "" {
		tmpDirectory = "/tmp"
	}
	return &RemoteFs{runner: runner, tmpDirectory: tmpDirectory}
}

// IsFile reports whether path exists and is a regular file.
func (fs *RemoteFs) IsFile(ctx context.Context, path string) (bool, error) {
	return fs.conditionalCheck(ctx, fmt.Sprintf("[ -f %q ]", path))
}

// IsDirectory reports whether path exists and is a directory.
func (fs *RemoteFs) IsDirectory(ctx context.Context, path string) (bool, error) {
	return fs.conditionalCheck(ctx, fmt.Sprintf("[ -d %q ]", path))
}

// Exists reports whether path exists at all.
func (fs *RemoteFs) Exists(ctx context.Context, path string) (bool, error) {
	return fs.conditionalCheck(ctx, fmt.Sprintf("[ -e %q ]", path))
}

// HasWritePermissions reports whether path is writable by the
// connected user.
func (fs *RemoteFs) HasWritePermissions(ctx context.Context, path string) (bool, error) {
	return fs.conditionalCheck(ctx, fmt.Sprintf("[ -w %q ]", path))
}

// HasReadPermissions reports whether path is readable by the
// connected user.
func (fs *RemoteFs) HasReadPermissions(ctx context.Context, path string) (bool, error) {
	return fs.conditionalCheck(ctx, fmt.Sprintf("[ -r %q ]", path))
}

func (fs *RemoteFs) conditionalCheck(ctx context.Context, command string) (bool, error) {
	full := fmt.Sprintf(`%s && echo "True" || echo "False"`, command)
	out, err := fs.runner.RunCommand(ctx, full)
	if err != nil {
		return false, err
	}
	hasTrue := strings.Contains(out, "True")
	hasFalse := strings.Contains(out, "False")
	if !hasTrue && !hasFalse {
		return false, &FsError{Command: full, Output: out}
	}
	return hasTrue, nil
}

// Remove deletes path, refusing if it is missing the write permission
// bit, and verifies the path is actually gone afterward.
func (fs *RemoteFs) Remove(ctx context.Context, path string, force bool) error {
	exists, err := fs.Exists(ctx, path)
	if err != nil {
		return err
	}
	if !exists {
		return nil
	}
	writable, err := fs.HasWritePermissions(ctx, path)
	if err != nil {
		return err
	}
	if !writable {
		return &PermissionError{Path: path}
	}

	isDir, err := fs.IsDirectory(ctx, path)
	if err != nil {
		return err
	}
	flag := ""
	if force {
		flag = "f"
	}
	var cmd string
	if isDir {
		cmd = fmt.Sprintf("rm -r%s %s 2>&1", flag, path)
	} else {
		cmd = fmt.Sprintf("rm -%s %s 2>&1", flag, path)
	}
	out, err := fs.runner.RunCommand(ctx, cmd)
	if err != nil {
		return err
	}

	exists, err = fs.Exists(ctx, path)
	if err != nil {
		return err
	}
	if exists {
		return fmt.Errorf("could not remove %s: %s", path, out)
	}
	return nil
}

// TemporaryDirectory creates a uniquely named directory under the
// configured tmp root, registers it for cleanup on the owning
// Transport, and returns its path. Call Remove (or let the Transport's
// own cleanup handle it) when the caller is done.
func (fs *RemoteFs) TemporaryDirectory(ctx context.Context) (*TemporaryDirectory, error) {
	if fs.tmpDirectory == "" {
		return nil, fmt.Errorf("no temporary directory root configured")
	}
	path := fmt.Sprintf("%s/%s", fs.tmpDirectory, uuid.New().String())
	if _, err := fs.runner.RunCommand(ctx, "mkdir -p "+path); err != nil {
		return nil, err
	}
	fs.runner.AddCleanup(path, "-rf")

	isDir, err := fs.IsDirectory(ctx, path)
	if err != nil {
		return nil, err
	}
	if !isDir {
		return nil, fmt.Errorf("could not create directory: %s", path)
	}
	return &TemporaryDirectory{fs: fs, Path: path}, nil
}

// TemporaryDirectory scopes a remote directory's lifetime: Close
// removes it immediately, independent of the Transport-level cleanup
// registered when it was created.
type TemporaryDirectory struct {
	fs   *RemoteFs
	Path string
}

// Close removes the temporary directory.
func (d *TemporaryDirectory) Close(ctx context.Context) error {
	_, err := d.fs.runner.RunCommand(ctx, "rm -rf "+d.Path)
	return err
}
