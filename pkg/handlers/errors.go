package handlers

import (
	"fmt"
	"time"
)

// ParseError wraps a parser failure with the handler operation it broke,
// so callers see which query failed without losing the parser's detail.
type ParseError struct {
	Operation string
	Err       error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: failed to parse device output: %v", e.Operation, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// AlreadyRunningError is returned by a Start* method when a sampler of
// that kind is already active.
type AlreadyRunningError struct {
	Kind string
}

func (e *AlreadyRunningError) Error() string {
	return fmt.Sprintf("a %s measurement is already running", e.Kind)
}

// NotRunningError is returned by a Stop* method when no sampler of that
// kind is active.
type NotRunningError struct {
	Kind string
}

func (e *NotRunningError) Error() string {
	return fmt.Sprintf("no %s measurement is running", e.Kind)
}

// UnsupportedCapabilityError is returned when an operation depends on a
// device capability (e.g. QNX's /dev/bmetrics or the hogs tool) that
// the connected device was found not to have.
type UnsupportedCapabilityError struct {
	Capability string
}

func (e *UnsupportedCapabilityError) Error() string {
	return fmt.Sprintf("device does not support required capability: %s", e.Capability)
}

// InvalidIntervalError is returned by a Start* method when interval is
// zero or negative.
type InvalidIntervalError struct {
	Kind     string
	Interval time.Duration
}

func (e *InvalidIntervalError) Error() string {
	return fmt.Sprintf("%s: interval must be positive, got %s", e.Kind, e.Interval)
}

// QNXIntervalTooShortError is returned by a QNX CPU query or sampler
// when interval is below the 1 second hogs floor and force was not set.
type QNXIntervalTooShortError struct {
	Interval time.Duration
}

func (e *QNXIntervalTooShortError) Error() string {
	return fmt.Sprintf("qnx cpu interval %s is below the 1s hogs floor; pass force=true to override", e.Interval)
}
