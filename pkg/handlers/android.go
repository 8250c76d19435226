package handlers

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/jihwankim/remoteperf/pkg/logging"
	"github.com/jihwankim/remoteperf/pkg/transport"
)

// Android is a Linux handler with one Android-specific addition: boot
// time read from bootstat, a binary that only ships on Android.
type Android struct {
	Linux
}

// NewAndroid builds an Android handler around an already-open transport.
func NewAndroid(t transport.Transport, log *logging.Logger) *Android {
	a := &Android{Linux: *NewLinux(t, log)}
	a.Family = "android"
	return a
}

// hasCapability reports whether command is resolvable on the device's
// PATH, the same check `command -v` performs in any POSIX shell.
func (h *Android) hasCapability(ctx context.Context, command string) bool {
	out, err := h.run(ctx, "command -v "+command)
	return err == nil && strings.TrimSpace(out) != ""
}

var bootTimeNumberRe = regexp.MustCompile(`\d+`)

// GetBootTime returns the device's absolute boot time, as reported by
// bootstat. Returns UnsupportedCapabilityError if bootstat is not
// present on the device.
func (h *Android) GetBootTime(ctx context.Context) (time.Duration, error) {
	const binary = "/system/bin/bootstat"
	if !h.hasCapability(ctx, binary) {
		return 0, &UnsupportedCapabilityError{Capability: binary}
	}
	out, err := h.run(ctx, binary+" -p | grep absolute_boot_time")
	if err != nil {
		return 0, err
	}
	m := bootTimeNumberRe.FindString(strings.TrimSpace(out))
	if m == "" {
		return 0, &ParseError{Operation: "GetBootTime", Err: &strconvError{raw: out}}
	}
	seconds, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, &ParseError{Operation: "GetBootTime", Err: err}
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

type strconvError struct{ raw string }

func (e *strconvError) Error() string { return "could not parse bootstat output: " + e.raw }
