// Package validator checks a parsed sampling profile for problems the
// YAML schema alone can't express: unknown families, unknown sampler
// kinds, non-positive intervals.
package validator

import (
	"fmt"
	"strings"

	"github.com/jihwankim/remoteperf/pkg/profile"
)

var validFamilies = map[string]bool{"linux": true, "android": true, "qnx": true}

// Validator accumulates fatal errors and non-fatal warnings across one
// Validate call.
type Validator struct {
	Warnings []string
	Errors   []string
}

// New creates an empty Validator.
func New() *Validator {
	return &Validator{Warnings: make([]string, 0), Errors: make([]string, 0)}
}

// Validate checks p, resetting accumulated state from any prior call.
func (v *Validator) Validate(p *profile.Profile) error {
	v.Warnings = v.Warnings[:0]
	v.Errors = v.Errors[:0]

	v.validateTargets(p)
	v.validateSamplers(p)

	if len(v.Errors) > 0 {
		return fmt.Errorf("validation failed with %d errors", len(v.Errors))
	}
	return nil
}

// HasWarnings reports whether the last Validate call produced warnings.
func (v *Validator) HasWarnings() bool { return len(v.Warnings) > 0 }

// GetReport formats accumulated errors and warnings for display.
func (v *Validator) GetReport() string {
	var sb strings.Builder
	if len(v.Errors) > 0 {
		sb.WriteString("ERRORS:\n")
		for _, e := range v.Errors {
			sb.WriteString(fmt.Sprintf("  - %s\n", e))
		}
	}
	if len(v.Warnings) > 0 {
		sb.WriteString("\nWARNINGS:\n")
		for _, w := range v.Warnings {
			sb.WriteString(fmt.Sprintf("  - %s\n", w))
		}
	}
	if len(v.Errors) == 0 && len(v.Warnings) == 0 {
		sb.WriteString("Validation passed with no issues.\n")
	}
	return sb.String()
}

func (v *Validator) validateTargets(p *profile.Profile) {
	if len(p.Targets) == 0 {
		v.Errors = append(v.Errors, "targets must have at least one entry")
		return
	}
	for i, t := range p.Targets {
		if !validFamilies[t.Family] {
			v.Errors = append(v.Errors, fmt.Sprintf("targets[%d].family %q is not one of linux, android, qnx", i, t.Family))
		}
		if t.Host == "" {
			v.Errors = append(v.Errors, fmt.Sprintf("targets[%d].host is required", i))
		}
	}
}

func (v *Validator) validateSamplers(p *profile.Profile) {
	if len(p.Samplers) == 0 {
		v.Errors = append(v.Errors, "samplers must have at least one entry")
		return
	}
	for i, s := range p.Samplers {
		if !profile.KnownKinds[s.Kind] {
			v.Warnings = append(v.Warnings, fmt.Sprintf("samplers[%d].kind %q is not a recognized sampler kind", i, s.Kind))
		}
		if s.Interval <= 0 {
			v.Errors = append(v.Errors, fmt.Sprintf("samplers[%d].interval must be positive, got %s", i, s.Interval))
		}
	}
}
