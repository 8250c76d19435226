package profile

import "testing"

func TestKnownKindsCoversCoreSamplers(t *testing.T) {
	for _, kind := range []string{"cpu", "mem", "diskinfo", "diskio", "net", "cpu_proc", "mem_proc", "diskio_proc"} {
		if !KnownKinds[kind] {
			t.Errorf("expected %q to be a known sampler kind", kind)
		}
	}
}

func TestTargetAliasDefaultsEmpty(t *testing.T) {
	tg := Target{Family: "linux", Host: "10.0.0.5:22"}
	if tg.Alias != "" {
		t.Errorf("expected empty alias, got %q", tg.Alias)
	}
}
