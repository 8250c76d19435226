package validator

import (
	"testing"
	"time"

	"github.com/jihwankim/remoteperf/pkg/profile"
)

func validProfile() *profile.Profile {
	return &profile.Profile{
		APIVersion: "remoteperf/v1",
		Kind:       "SamplingProfile",
		Targets:    []profile.Target{{Family: "linux", Host: "10.0.0.5:22"}},
		Samplers:   []profile.Sampler{{Kind: "cpu", Interval: time.Second}},
	}
}

func TestValidateValidProfile(t *testing.T) {
	v := New()
	if err := v.Validate(validProfile()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v.HasWarnings() {
		t.Fatalf("unexpected warnings: %v", v.Warnings)
	}
}

func TestValidateUnknownFamily(t *testing.T) {
	p := validProfile()
	p.Targets[0].Family = "windows"
	v := New()
	if err := v.Validate(p); err == nil {
		t.Fatal("expected error for unknown family")
	}
}

func TestValidateNonPositiveInterval(t *testing.T) {
	p := validProfile()
	p.Samplers[0].Interval = 0
	v := New()
	if err := v.Validate(p); err == nil {
		t.Fatal("expected error for non-positive interval")
	}

	p.Samplers[0].Interval = -time.Second
	v2 := New()
	if err := v2.Validate(p); err == nil {
		t.Fatal("expected error for negative interval")
	}
}

func TestValidateUnknownKindWarns(t *testing.T) {
	p := validProfile()
	p.Samplers[0].Kind = "mystery"
	v := New()
	if err := v.Validate(p); err != nil {
		t.Fatalf("unknown kind should warn, not error: %v", err)
	}
	if !v.HasWarnings() {
		t.Fatal("expected a warning for unknown sampler kind")
	}
}

func TestValidateEmptyTargetsAndSamplers(t *testing.T) {
	v := New()
	if err := v.Validate(&profile.Profile{APIVersion: "remoteperf/v1", Kind: "SamplingProfile"}); err == nil {
		t.Fatal("expected error for empty targets and samplers")
	}
}

func TestGetReportNoIssues(t *testing.T) {
	v := New()
	_ = v.Validate(validProfile())
	report := v.GetReport()
	if report != "Validation passed with no issues.\n" {
		t.Fatalf("unexpected report: %q", report)
	}
}
