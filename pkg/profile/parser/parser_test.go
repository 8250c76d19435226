package parser

import (
	"testing"
	"time"
)

const sampleProfile = `
apiVersion: remoteperf/v1
kind: SamplingProfile
targets:
  - family: linux
    host: "${TARGET_HOST}:22"
samplers:
  - kind: cpu
    interval: 1s
  - kind: mem_proc
    interval: 2s
`

func TestParseSubstitutesVariables(t *testing.T) {
	p := New(map[string]string{"TARGET_HOST": "10.0.0.5"})
	pr, err := p.Parse([]byte(sampleProfile))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pr.Targets[0].Host != "10.0.0.5:22" {
		t.Fatalf("expected substituted host, got %q", pr.Targets[0].Host)
	}
	if pr.Samplers[1].Interval != 2*time.Second {
		t.Fatalf("expected 2s interval, got %v", pr.Samplers[1].Interval)
	}
}

func TestParseMissingRequiredField(t *testing.T) {
	p := New(nil)
	_, err := p.Parse([]byte("apiVersion: remoteperf/v1\nkind: SamplingProfile\n"))
	if err == nil {
		t.Fatal("expected error for missing targets/samplers")
	}
}
