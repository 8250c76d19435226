package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"
)

func TestRecordRetryIncrementsCounter(t *testing.T) {
	m := New()
	m.RecordRetry("ssh")
	m.RecordRetry("ssh")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `remoteperf_transport_retries_total{transport="ssh"} 2`) {
		t.Fatalf("expected retry counter of 2 for ssh, got body:\n%s", body)
	}
}

func TestSamplerStartedStoppedTracksGauge(t *testing.T) {
	m := New()
	m.SamplerStarted("linux", "cpu")
	m.SamplerStarted("linux", "mem")
	m.SamplerStopped("linux", "cpu")

	rec := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/metrics", nil)
	m.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `remoteperf_sampler_active{family="linux",kind="cpu"} 0`) {
		t.Fatalf("expected cpu gauge back at 0, got body:\n%s", body)
	}
	if !strings.Contains(body, `remoteperf_sampler_active{family="linux",kind="mem"} 1`) {
		t.Fatalf("expected mem gauge at 1, got body:\n%s", body)
	}
}

func TestNoopIsSafeToRecordAgainst(t *testing.T) {
	n := Noop()
	n.RecordRetry("ssh")
	n.RecordReconnect("adb")
	n.RecordError("dockerexec", "ExhaustedError")
	n.ObserveCommandDuration("ssh", 0.5)
	n.SamplerStarted("qnx", "cpu")
	n.SamplerStopped("qnx", "cpu")
}
