package parsers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseHogsCPUUsage(t *testing.T) {
	raw := "0   [idle]      1   5%  80%\n1   [idle]      1   5%  60%\n"
	usage, err := ParseHogsCPUUsage(raw, time.Now())
	require.NoError(t, err)
	assert.InDelta(t, 30, usage.Load, 0.01)
	assert.InDelta(t, 20, usage.Cores["0"], 0.01)
	assert.InDelta(t, 40, usage.Cores["1"], 0.01)
}

func TestParseBmetricsBootTime(t *testing.T) {
	d, err := ParseBmetricsBootTime("SYS_BOOT_LOADER_END: 3s450000000ns")
	require.NoError(t, err)
	assert.Equal(t, "3.45s", d.String())
}

func TestParseBmetricsBootTimeNsOnly(t *testing.T) {
	d, err := ParseBmetricsBootTime("SYS_BOOT_LOADER_END: 450000000ns")
	require.NoError(t, err)
	assert.Equal(t, "450ms", d.String())
}

func TestParseMemoryPerPid(t *testing.T) {
	raw := "rss_pid=1:\npid=1:junk as_stats.rss=0x1000 junk(2MB)\n"
	out, err := ParseMemoryPerPid(raw)
	require.NoError(t, err)
	assert.Equal(t, int64(2048), out[1])
}

func TestFuzzyContains(t *testing.T) {
	assert.True(t, fuzzyContains("myprocess", "myproces"))
	assert.True(t, fuzzyContains("myprocess", "myprocess"))
	assert.False(t, fuzzyContains("myprocess", "totallydifferent"))
}

func TestParseUptime(t *testing.T) {
	pidinInfo := "BootTime:Jan 1 00:00:00 GMT 2024\n"
	dateOut := "Mon Jan 1 01:00:00 UTC 2024"
	d, err := ParseUptime(pidinInfo, dateOut)
	require.NoError(t, err)
	assert.Equal(t, "1h0m0s", d.String())
}
