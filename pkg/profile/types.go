// Package profile describes which measurements a `watch` invocation
// should sample and at what interval, as a small YAML document — the
// sampling-profile counterpart to a chaos scenario.
package profile

import "time"

// Profile is a complete sampling-profile document.
type Profile struct {
	APIVersion string   `yaml:"apiVersion"`
	Kind       string   `yaml:"kind"`
	Targets    []Target `yaml:"targets"`
	Samplers   []Sampler `yaml:"samplers"`
}

// Target names one device to connect to and sample from.
type Target struct {
	// Family selects the handler: "linux", "android", or "qnx".
	Family string `yaml:"family"`

	// Host is the transport-specific address: "user@host:port" for
	// SSH, a device serial for ADB, a container name for Docker exec.
	Host string `yaml:"host"`

	// Alias names this target for reference in output; defaults to
	// Host when empty.
	Alias string `yaml:"alias,omitempty"`
}

// Sampler names one measurement kind a profile samples and the
// interval to sample it at. Kind matches the keys a handler's
// Start*/Stop* pair is registered under (e.g. "cpu", "mem_proc").
type Sampler struct {
	Kind     string        `yaml:"kind"`
	Interval time.Duration `yaml:"interval"`

	// Force allows a qnx "cpu"/"cpu_proc" sampler below the 1s hogs
	// floor through instead of being rejected. Ignored by every other
	// family/kind combination.
	Force bool `yaml:"force,omitempty"`
}

// KnownKinds are the sampler kinds at least one handler family
// recognizes. The set is not family-scoped and the validator does no
// per-family check: a kind the target's family lacks (e.g. "net" on
// QNX) passes validation and fails only when watch tries to start it.
var KnownKinds = map[string]bool{
	"cpu":         true,
	"mem":         true,
	"diskinfo":    true,
	"diskio":      true,
	"net":         true,
	"cpu_proc":    true,
	"mem_proc":    true,
	"diskio_proc": true,
}
