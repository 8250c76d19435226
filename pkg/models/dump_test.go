package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDumpExcludesTimestampRecursively(t *testing.T) {
	sample := CpuSampleProcessInfo{ProcessInfo[CpuSample]{
		Process: Process{PID: 1, Name: "init"},
		Samples: []CpuSample{{CpuLoad: 12.5, Timestamp: time.Now()}},
	}}

	dumped := Dump(sample, map[string]struct{}{"timestamp": {}})
	m, ok := dumped.(map[string]any)
	require.True(t, ok)

	samples, ok := m["samples"].([]any)
	require.True(t, ok)
	require.Len(t, samples, 1)
	first, ok := samples[0].(map[string]any)
	require.True(t, ok)
	_, hasTimestamp := first["timestamp"]
	assert.False(t, hasTimestamp)
	assert.Equal(t, 12.5, first["cpu_load"])
}

func TestDumpRoundTrip(t *testing.T) {
	ts := time.Now().UTC().Round(time.Second)
	original := CpuUsage{
		Load:      42.123,
		Cores:     map[string]float64{"0": 10, "1": 90},
		Timestamp: ts,
	}

	dumped := Dump(original, nil)
	m, ok := dumped.(map[string]any)
	require.True(t, ok)

	restored, err := FromMapping[CpuUsage](m)
	require.NoError(t, err)
	assert.Equal(t, original.Load, restored.Load)
	assert.Equal(t, original.Cores, restored.Cores)
	assert.True(t, original.Timestamp.Equal(restored.Timestamp))
}

func TestDumpIndent(t *testing.T) {
	m := Memory{Total: 100, Used: 40, Free: 60}
	text := DumpIndent(m, nil)
	assert.Contains(t, text, "total: 100")
	assert.Contains(t, text, "used: 40")
}
